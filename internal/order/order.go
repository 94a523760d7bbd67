// Package order implements the order aggregate, its builder, its status
// state machine and the read paths.
package order

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is how the customer pays. The engine never talks to a
// gateway; razorpay/upi orders arrive with an opaque payment id.
type PaymentMethod string

const (
	PaymentCOD      PaymentMethod = "cod"
	PaymentRazorpay PaymentMethod = "razorpay"
	PaymentUPI      PaymentMethod = "upi"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentRazorpay || m == PaymentUPI
}

// PaymentStatus is the externally supplied payment state.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Item is a snapshot of a product at purchase time. Later catalog edits
// never alter a placed order.
type Item struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	ArtisanID string `json:"artisanId,omitempty"`
	Image     string `json:"image,omitempty"`
}

// HistoryEntry is one row of the append-only status audit trail.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// Address is a shipping address, validated at request time.
type Address struct {
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone"`
}

func (a Address) Validate() error {
	required := []struct{ field, value string }{
		{"shippingAddress.fullName", a.FullName},
		{"shippingAddress.line1", a.Line1},
		{"shippingAddress.city", a.City},
		{"shippingAddress.state", a.State},
		{"shippingAddress.postalCode", a.PostalCode},
		{"shippingAddress.phone", a.Phone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Reason: "required"}
		}
	}
	return nil
}

// Order is the aggregate. Header fields are set once at creation; only
// status, statusHistory, paymentStatus, trackingNumber and the delivery and
// cancellation fields change afterwards, exclusively through the state
// machine. All amounts are minor currency units.
type Order struct {
	ID                 string         `json:"id"`
	OrderNumber        string         `json:"orderNumber"`
	UserID             string         `json:"userId"`
	Items              []Item         `json:"items"`
	Subtotal           int64          `json:"subtotal"`
	ShippingCost       int64          `json:"shippingCost"`
	Tax                int64          `json:"tax"`
	Discount           int64          `json:"discount"`
	Total              int64          `json:"total"`
	ShippingAddress    Address        `json:"shippingAddress"`
	PaymentMethod      PaymentMethod  `json:"paymentMethod"`
	PaymentStatus      PaymentStatus  `json:"paymentStatus"`
	PaymentID          string         `json:"paymentId,omitempty"`
	Status             Status         `json:"status"`
	StatusHistory      []HistoryEntry `json:"statusHistory"`
	TrackingNumber     string         `json:"trackingNumber,omitempty"`
	Notes              string         `json:"notes,omitempty"`
	IsGift             bool           `json:"isGift,omitempty"`
	GiftMessage        string         `json:"giftMessage,omitempty"`
	DeliveredAt        *time.Time     `json:"deliveredAt,omitempty"`
	CancelledAt        *time.Time     `json:"cancelledAt,omitempty"`
	CancellationReason string         `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

const orderNumberSuffixLen = 6

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber generates an order number of the form
// ORD-<unixMillis>-<6 base36 chars>. The random suffix makes collisions
// under concurrent creation vanishingly rare; the store's unique index plus
// the builder's retry handles the remainder.
func NewOrderNumber() string {
	suffix := make([]byte, orderNumberSuffixLen)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand failing means the process is in real trouble.
		panic(fmt.Sprintf("order: read random bytes: %v", err))
	}
	for i, b := range suffix {
		suffix[i] = base36[int(b)%len(base36)]
	}
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}

// newOrder materializes the aggregate in its initial state. Explicit factory
// instead of persistence hooks: the number, timestamps and first history
// entry exist before anything touches the store.
func newOrder(userID string, items []Item, pr pricing, req BuildRequest) *Order {
	now := time.Now().UTC()

	paymentStatus := PaymentPending
	if req.PaymentMethod != PaymentCOD && req.PaymentID != "" {
		paymentStatus = PaymentPaid
	}

	return &Order{
		ID:              uuid.NewString(),
		OrderNumber:     NewOrderNumber(),
		UserID:          userID,
		Items:           items,
		Subtotal:        pr.Subtotal,
		ShippingCost:    pr.ShippingCost,
		Tax:             pr.Tax,
		Total:           pr.Total,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   paymentStatus,
		PaymentID:       req.PaymentID,
		Status:          StatusPlaced,
		StatusHistory: []HistoryEntry{{
			Status:    StatusPlaced,
			Timestamp: now,
			Note:      "Order placed successfully",
		}},
		Notes:       req.Notes,
		IsGift:      req.IsGift,
		GiftMessage: req.GiftMessage,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
