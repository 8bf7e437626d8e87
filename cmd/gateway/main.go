package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mwondhaf/boxconv-sub001/internal/gateway"
	"github.com/mwondhaf/boxconv-sub001/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "gateway", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	cartServiceURL := os.Getenv("CART_SERVICE_URL")
	if cartServiceURL == "" {
		logger.Error("CART_SERVICE_URL is required")
		os.Exit(1)
	}

	fulfillmentServiceURL := os.Getenv("FULFILLMENT_SERVICE_URL")
	if fulfillmentServiceURL == "" {
		logger.Error("FULFILLMENT_SERVICE_URL is required")
		os.Exit(1)
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	cartProxy := gateway.NewServiceProxy(cartServiceURL, httpClient)
	fulfillmentProxy := gateway.NewServiceProxy(fulfillmentServiceURL, httpClient)
	handler := gateway.NewHandler(cartProxy, fulfillmentProxy, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /cart", telemetry.WithHTTPRoute(handler.HandleCart))
	mux.HandleFunc("POST /cart/merge", telemetry.WithHTTPRoute(handler.HandleCart))
	mux.HandleFunc("GET /cart/{id}", telemetry.WithHTTPRoute(handler.HandleCart))
	mux.HandleFunc("POST /cart/{id}/items", telemetry.WithHTTPRoute(handler.HandleCart))
	mux.HandleFunc("GET /cart/{id}/validate", telemetry.WithHTTPRoute(handler.HandleCart))
	mux.HandleFunc("POST /cart/{id}/checkout", telemetry.WithHTTPRoute(handler.HandleCart))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("GET /orders/{id}/events", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("POST /orders/{id}/accept", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("POST /orders/{id}/pickup", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("POST /orders/{id}/deliver", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("POST /orders/{id}/unassign", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("POST /orders/{id}/assign", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("POST /riders/{id}/location", telemetry.WithHTTPRoute(handler.HandleRiders))
	mux.HandleFunc("GET /dispatch/deliveries", telemetry.WithHTTPRoute(handler.HandleDispatch))
	mux.HandleFunc("GET /dispatch/riders", telemetry.WithHTTPRoute(handler.HandleDispatch))

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "gateway",
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
		logger.Info("starting gateway service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
