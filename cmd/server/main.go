package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/medbank/internal"
	"github.com/DukeRupert/medbank/internal/handler"
	"github.com/DukeRupert/medbank/internal/metrics"
	"github.com/DukeRupert/medbank/internal/middleware"
	"github.com/DukeRupert/medbank/internal/service"
	"github.com/DukeRupert/medbank/internal/session"
	"github.com/DukeRupert/medbank/internal/supabase"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg)

	// Initialize backend clients
	upstreamCfg := supabase.Config{
		BaseURL:    cfg.SupabaseURL,
		AnonKey:    cfg.SupabaseAnonKey,
		ServiceKey: cfg.SupabaseServiceRoleKey,
		Timeout:    cfg.UpstreamTimeout,
	}
	authClient, err := supabase.NewAuthClient(upstreamCfg, logger)
	if err != nil {
		return fmt.Errorf("auth client initialization failed: %w", err)
	}
	dataClient, err := supabase.NewDataClient(upstreamCfg, logger)
	if err != nil {
		return fmt.Errorf("data client initialization failed: %w", err)
	}
	logger.Info("Upstream clients ready", "base_url", cfg.SupabaseURL)

	// Initialize services
	authService := service.NewAuthService(authClient, cfg.FrontendURL, logger)
	profileService := service.NewProfileService(dataClient, logger)
	qbankService := service.NewQbankService(dataClient, nil, logger)
	commentService := service.NewCommentService(dataClient, logger)
	contentService := service.NewContentService(dataClient, logger)

	// Session cookie policy shared by handlers and middleware
	policy := session.NewPolicy(
		cfg.AccessCookieName,
		cfg.RefreshCookieName,
		cfg.IsProduction(),
		cfg.CookieSameSite,
		cfg.CookieDomain,
	)

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService, policy, logger)
	corsMw := middleware.NewCORSMiddleware(cfg.CORSOrigins)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(cfg.IsProduction())
	authLimiter := middleware.NewAuthRateLimiter(logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, policy, logger)
	meHandler := handler.NewMeHandler(profileService, logger)
	qbankHandler := handler.NewQbankHandler(qbankService, logger)
	commentsHandler := handler.NewCommentsHandler(commentService, logger)
	textbookHandler := handler.NewTextbookHandler(contentService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.Health)

	// Metrics endpoint (basic auth when credentials are configured)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Auth routes (public, rate limited on the credential endpoints)
	authHandler.RegisterRoutes(mux, authLimiter.LimitSignUp, authLimiter.LimitSignIn)

	// Create middleware stack for protected routes
	protected := middleware.Stack(authMw.WithIdentity, authMw.RequireIdentity)

	mux.Handle("GET /me", protected(http.HandlerFunc(meHandler.Me)))
	qbankHandler.RegisterRoutes(mux, protected)
	commentsHandler.RegisterRoutes(mux, protected)
	textbookHandler.RegisterRoutes(mux, protected)

	// Outer stack applied to every route
	root := middleware.Stack(
		securityMw.Handler,
		corsMw.Handler,
		loggingMw.Handler,
		metrics.Middleware,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
