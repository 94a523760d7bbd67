package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/karigari/order-engine/internal/cart"
	cartsqlite "github.com/karigari/order-engine/internal/cart/sqlite"
	"github.com/karigari/order-engine/internal/catalog"
	catalogsqlite "github.com/karigari/order-engine/internal/catalog/sqlite"
	buildlogsqlite "github.com/karigari/order-engine/internal/coordinator/buildlog/sqlite"
	"github.com/karigari/order-engine/internal/config"
	"github.com/karigari/order-engine/internal/events"
	"github.com/karigari/order-engine/internal/httpx"
	"github.com/karigari/order-engine/internal/order"
	ordersqlite "github.com/karigari/order-engine/internal/order/sqlite"
	"github.com/karigari/order-engine/internal/pkg/cache"
	"github.com/karigari/order-engine/internal/pkg/sqlitedb"
	"github.com/karigari/order-engine/internal/pkg/telemetry"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	telemetry.InitLogger()

	shutdown, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		// Tracing is observability, not correctness; run without it.
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer shutdown(context.Background())
	}

	db, err := sqlitedb.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	catalogRepo, err := catalogsqlite.New(db)
	if err != nil {
		fatal("catalog store", err)
	}
	cartRepo, err := cartsqlite.New(db)
	if err != nil {
		fatal("cart store", err)
	}
	orderRepo, err := ordersqlite.New(db)
	if err != nil {
		fatal("order store", err)
	}
	buildLog, err := buildlogsqlite.New(db)
	if err != nil {
		fatal("build log store", err)
	}

	var readCache cache.Cache
	if cfg.RedisAddr != "" {
		readCache = cache.NewRedisCache(cfg.RedisAddr, cfg.ServiceName)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}

	ledger := catalog.NewLedger(catalogRepo)
	carts := cart.NewService(cartRepo, catalogRepo)
	builder := order.NewBuilder(catalogRepo, ledger, orderRepo, cartRepo, buildLog, publisher)
	machine := order.NewMachine(orderRepo, ledger, publisher, readCache)
	queries := order.NewQueryService(orderRepo, readCache)

	handler := httpx.NewHandler(carts, builder, machine, queries)
	router := httpx.NewRouter(handler)

	slog.Info("order engine running", "addr", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, router); err != nil {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func fatal(what string, err error) {
	slog.Error("failed to initialise "+what, "error", err)
	os.Exit(1)
}
