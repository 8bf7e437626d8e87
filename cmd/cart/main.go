package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mwondhaf/boxconv-sub001/internal/cart"
	"github.com/mwondhaf/boxconv-sub001/internal/catalog"
	"github.com/mwondhaf/boxconv-sub001/internal/messaging"
	"github.com/mwondhaf/boxconv-sub001/internal/pricing"
	"github.com/mwondhaf/boxconv-sub001/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "cart", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("cart", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if _, err := db.Exec("SET search_path TO marketplace"); err != nil {
		logger.Error("failed to set search_path", "error", err)
		os.Exit(1)
	}

	var producer *messaging.Producer
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		producer = messaging.NewProducer(brokers, "order.events")
		defer func() { _ = producer.Close() }()
	}

	defaultCurrency := os.Getenv("DEFAULT_CURRENCY")
	if defaultCurrency == "" {
		defaultCurrency = "UGX"
	}

	resolver := pricing.NewResolver(defaultCurrency)
	catalogRepo := catalog.NewRepository(db)
	store := cart.NewStore(db, catalogRepo, resolver)
	handler := cart.NewHandler(store, producer, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /cart", telemetry.WithHTTPRoute(handler.HandleGetOrCreate))
	mux.HandleFunc("GET /cart/{id}", telemetry.WithHTTPRoute(handler.HandleGet))
	mux.HandleFunc("POST /cart/{id}/items", telemetry.WithHTTPRoute(handler.HandleAddItem))
	mux.HandleFunc("POST /cart/merge", telemetry.WithHTTPRoute(handler.HandleMerge))
	mux.HandleFunc("GET /cart/{id}/validate", telemetry.WithHTTPRoute(handler.HandleValidate))
	mux.HandleFunc("POST /cart/{id}/checkout", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "cart",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go runReaper(reaperCtx, store, logger)

	go func() {
		logger.Info("starting cart service", "port", port, "default_currency", defaultCurrency)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	stopReaper()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// runReaper deletes expired carts in batches once an hour. Expired carts are
// already invisible to reads; this just keeps the table from growing without
// bound.
func runReaper(ctx context.Context, store *cart.Store, logger *slog.Logger) {
	interval := time.Hour
	if v := os.Getenv("REAPER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			interval = d
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.DeleteExpired(ctx, 500)
			if err != nil {
				logger.Error("failed to delete expired carts", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("expired carts deleted", "count", deleted)
			}
		}
	}
}
