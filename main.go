package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appOrder "github.com/quickmart/ordercore/internal/application/order"
	appStock "github.com/quickmart/ordercore/internal/application/stock"
	"github.com/quickmart/ordercore/internal/config"
	"github.com/quickmart/ordercore/internal/domain/catalog"
	"github.com/quickmart/ordercore/internal/domain/storage"
	"github.com/quickmart/ordercore/internal/infrastructure/id"
	"github.com/quickmart/ordercore/internal/infrastructure/lowstock"
	"github.com/quickmart/ordercore/internal/infrastructure/memory"
	obsinfra "github.com/quickmart/ordercore/internal/infrastructure/observability"
	"github.com/quickmart/ordercore/internal/infrastructure/observability/oteltrace"
	"github.com/quickmart/ordercore/internal/infrastructure/observability/prometrics"
	"github.com/quickmart/ordercore/internal/infrastructure/observability/zaplogger"
	"github.com/quickmart/ordercore/internal/infrastructure/outbox"
	"github.com/quickmart/ordercore/internal/infrastructure/postgres"
	"github.com/quickmart/ordercore/internal/observability"
	"github.com/quickmart/ordercore/internal/pkg/logging"
	httppresentation "github.com/quickmart/ordercore/internal/presentation/http"
)

func main() {
	cfg := config.Load()

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	log := zaplogger.Wrap(baseLogger)

	reg := prometrics.New("", "")
	tel := obsinfra.New(
		oteltrace.New(cfg.ServiceName),
		log,
		obsinfra.Instruments{
			Counters: map[observability.MetricKey]observability.Counter{
				observability.MUsecaseRequests: reg.Counter(string(observability.MUsecaseRequests),
					"Total number of use case invocations.", "use_case", "outcome"),
				observability.MHTTPRequests: reg.Counter(string(observability.MHTTPRequests),
					"Total number of HTTP requests.", "method", "route", "status"),
			},
			Histograms: map[observability.MetricKey]observability.Histogram{
				observability.MUsecaseDuration: reg.Histogram(string(observability.MUsecaseDuration),
					"Duration of use case execution in seconds.", prometheus.DefBuckets, "use_case"),
				observability.MHTTPRequestDuration: reg.Histogram(string(observability.MHTTPRequestDuration),
					"Duration of HTTP requests in seconds.", prometheus.DefBuckets, "method", "route", "status"),
			},
			Gauges: map[observability.MetricKey]observability.Gauge{
				observability.MLowStockProducts: reg.Gauge(string(observability.MLowStockProducts),
					"Number of products currently below the low-stock threshold."),
			},
		},
	)

	var uow storage.UnitOfWork
	var catalogReader catalog.Reader

	if cfg.DatabaseURL != "" {
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			baseLogger.Fatal("postgres_connect_failed", zap.Error(err))
		}
		defer func() { _ = store.Close() }()
		if err := store.RunMigrations(cfg.MigrationsDir); err != nil {
			baseLogger.Fatal("migrations_failed", zap.Error(err))
		}
		uow = store
		catalogReader = store
		baseLogger.Info("storage_ready", zap.String("backend", "postgres"))
	} else {
		ledger := memory.NewLedger()
		cat := memory.NewCatalog()
		seedDemoData(ledger, cat)
		uow = memory.NewUnitOfWork(ledger, memory.NewOrderRepository(), memory.NewAuditLog())
		catalogReader = cat
		baseLogger.Info("storage_ready", zap.String("backend", "memory"))
	}

	bus := outbox.NewBus(tel.Logger())
	bus.Start(context.Background())

	worker := lowstock.New(bus, cfg.LowStockThreshold, tel)
	worker.Start()

	idGen := id.NewUUIDGenerator()
	placement := appOrder.NewPlacementService(uow, catalogReader, idGen, bus, tel)
	adjustment := appStock.NewAdjustmentService(uow, bus, tel)

	handler := httppresentation.NewHandler(placement, adjustment, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		baseLogger.Info("http_server_stopped")
	}
	bus.Stop(shutdownCtx)
}

// seedDemoData gives the in-memory backend something to sell.
func seedDemoData(ledger *memory.Ledger, cat *memory.Catalog) {
	products := []struct {
		catalog.Product
		quantity int
	}{
		{catalog.Product{ID: "espresso-beans-1kg", Name: "Espresso Beans 1kg", Category: "coffee", UnitPrice: decimal.RequireFromString("18.50")}, 40},
		{catalog.Product{ID: "oat-milk-1l", Name: "Oat Milk 1L", Category: "dairy", UnitPrice: decimal.RequireFromString("2.95")}, 120},
		{catalog.Product{ID: "filter-papers-100", Name: "Filter Papers x100", Category: "accessories", UnitPrice: decimal.RequireFromString("4.10")}, 35},
	}
	for _, p := range products {
		cat.Put(p.Product)
		ledger.SeedProduct(p.ID, p.quantity)
	}
}
