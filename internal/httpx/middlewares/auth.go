// Package middlewares carries the identity middleware of the REST surface.
//
// Authentication itself is an external collaborator: an upstream gateway
// verifies credentials and forwards the caller's identity in trusted
// headers. The engine only reads them.
package middlewares

import (
	"context"
	"encoding/json"
	"net/http"
)

const (
	HeaderXUserID   = "X-User-Id"
	HeaderXUserRole = "X-User-Role"

	RoleAdmin = "admin"
)

type contextKey string

const (
	contextKeyUserID contextKey = "user_id"
	contextKeyRole   contextKey = "user_role"
)

// Identity copies the identity headers into the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), contextKeyUserID, r.Header.Get(HeaderXUserID))
		ctx = context.WithValue(ctx, contextKeyRole, r.Header.Get(HeaderXUserRole))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects requests without an authenticated user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == "" {
			deny(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests unless the caller has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == "" {
			deny(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !IsAdmin(r.Context()) {
			deny(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserID returns the authenticated user id, "" when anonymous.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyUserID).(string)
	return id
}

// IsAdmin reports whether the caller carries the admin role.
func IsAdmin(ctx context.Context) bool {
	role, _ := ctx.Value(contextKeyRole).(string)
	return role == RoleAdmin
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
