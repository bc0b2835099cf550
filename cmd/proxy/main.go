// ACP Proxy - Translates the Agentic Commerce Protocol to a UCP checkout engine.
// Designed for Cloud Run deployment with stateless operation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"acp-proxy/internal/config"
	"acp-proxy/internal/handler"
	"acp-proxy/internal/metrics"
	"acp-proxy/internal/middleware"
	"acp-proxy/internal/negotiation"
	"acp-proxy/internal/session"
	"acp-proxy/internal/telemetry"
	"acp-proxy/internal/translate"
	"acp-proxy/internal/transport"
	"acp-proxy/internal/ucp"
)

const (
	serviceName = "acp-proxy"

	// renegotiateInterval bounds how long a changed engine profile goes unnoticed.
	renegotiateInterval = 5 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Load configuration first: it may seed LOG_LEVEL and ENVIRONMENT from .env
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := initLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("merchant_id", cfg.MerchantID),
		slog.String("environment", cfg.Environment),
		slog.String("engine_url", cfg.Merchant.EngineURL),
		slog.String("tls_fingerprint", cfg.Merchant.EngineTLSFingerprint),
	)

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	m := metrics.New()

	rt, err := transport.New(cfg.Merchant.EngineTLSFingerprint)
	if err != nil {
		return fmt.Errorf("creating engine transport: %w", err)
	}

	client, err := ucp.NewClient(ucp.Config{
		BaseURL:         cfg.Merchant.EngineURL,
		APIKey:          cfg.Merchant.EngineAPIKey,
		AgentProfileURL: cfg.AgentProfileURL(),
		Transport:       rt,
		Metrics:         m,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("creating engine client: %w", err)
	}

	// Negotiate with the engine before serving traffic. An incompatible
	// engine is fatal; an unreachable one degrades to configured handler ids.
	negotiator := negotiation.NewNegotiator(
		client,
		config.PlatformMetadata(),
		cfg.Providers(),
		cfg.Merchant.PaymentHandlers,
		logger,
	)
	result, err := negotiator.Negotiate(ctx)
	if err != nil {
		return fmt.Errorf("negotiating with engine: %w", err)
	}
	if result.FetchError != nil {
		logger.Warn("engine profile unavailable, using configured payment handlers",
			slog.String("error", result.FetchError.Error()),
		)
	} else {
		logger.Info("engine negotiated",
			slog.String("version", result.Version),
			slog.Int("capabilities", len(result.Capabilities)),
			slog.Any("handler_ids", result.HandlerIDs),
		)
	}
	go negotiator.Run(ctx, renegotiateInterval)

	catalog := cfg.BuildCatalog()
	asm := translate.NewAssembler(catalog, translate.WithUnmappedStatusHook(func(status string) {
		logger.Warn("unmapped engine status", slog.String("status", status))
		m.RecordUnmappedStatus(status)
	}))

	sessions := session.NewService(client, asm, negotiator, m, logger)

	h := handler.New(sessions, handler.Config{
		MerchantName: cfg.Merchant.Name,
		SupportEmail: cfg.Merchant.SupportEmail,
		BaseURL:      cfg.ProxyBaseURL,
		Catalog:      catalog,
	}, m, logger)

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → request id → logging → auth → handler
	// Recovery must be outermost to catch panics from logging middleware
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger, m),
		middleware.BearerAuth(middleware.DefaultAuthExempt...),
	)(mux)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(httpHandler, "acp-proxy"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stop()

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if cfg.Environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
