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

	"github.com/mwondhaf/boxconv-sub001/internal/dispatch"
	"github.com/mwondhaf/boxconv-sub001/internal/fulfillment"
	"github.com/mwondhaf/boxconv-sub001/internal/messaging"
	"github.com/mwondhaf/boxconv-sub001/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "fulfillment", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("fulfillment", "0.1.0")
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

	repo := fulfillment.NewRepository(db)
	engine := fulfillment.NewEngine(repo, producer, logger)
	orderHandler := fulfillment.NewHandler(repo, engine, logger)

	dispatchRepo := dispatch.NewRepository(db)
	dispatchHandler := dispatch.NewHandler(dispatchRepo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("GET /orders/{id}/events", telemetry.WithHTTPRoute(orderHandler.HandleListEvents))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(orderHandler.HandleUpdateStatus))
	mux.HandleFunc("POST /orders/{id}/accept", telemetry.WithHTTPRoute(orderHandler.HandleAccept))
	mux.HandleFunc("POST /orders/{id}/pickup", telemetry.WithHTTPRoute(orderHandler.HandlePickup))
	mux.HandleFunc("POST /orders/{id}/deliver", telemetry.WithHTTPRoute(orderHandler.HandleDeliver))
	mux.HandleFunc("POST /orders/{id}/unassign", telemetry.WithHTTPRoute(orderHandler.HandleUnassign))
	mux.HandleFunc("POST /orders/{id}/assign", telemetry.WithHTTPRoute(orderHandler.HandleAssign))
	mux.HandleFunc("POST /riders/{id}/location", telemetry.WithHTTPRoute(dispatchHandler.HandleUpdateLocation))
	mux.HandleFunc("GET /dispatch/deliveries", telemetry.WithHTTPRoute(dispatchHandler.HandleListDeliveries))
	mux.HandleFunc("GET /dispatch/riders", telemetry.WithHTTPRoute(dispatchHandler.HandleListRiders))
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "fulfillment",
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

	go func() {
		logger.Info("starting fulfillment service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
