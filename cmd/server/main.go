// Askari Patrol Assistant - conversational front-end server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askarihq/patrolbot/internal/api"
	"github.com/askarihq/patrolbot/internal/bot"
	"github.com/askarihq/patrolbot/internal/config"
	"github.com/askarihq/patrolbot/internal/dispatch"
	"github.com/askarihq/patrolbot/internal/format"
	"github.com/askarihq/patrolbot/internal/identity"
	"github.com/askarihq/patrolbot/internal/middleware"
	"github.com/askarihq/patrolbot/internal/session"
	"github.com/askarihq/patrolbot/internal/store"
	"github.com/askarihq/patrolbot/internal/webchat"
	"github.com/askarihq/patrolbot/internal/whatsapp"
	"github.com/askarihq/patrolbot/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	mcp := dispatch.NewMCPClient(cfg.MCPServerURL, cfg.DispatchTimeout, logger)
	if !mcp.Healthy(context.Background()) {
		slog.Warn("MCP server not reachable at startup", "url", cfg.MCPServerURL)
	}

	sessions := session.NewStore()

	engine := bot.NewEngine(bot.EngineConfig{
		Sessions:      sessions,
		Dispatcher:    mcp,
		Authenticator: mcp,
		Repo:          repo,
		Timeout:       cfg.DispatchTimeout,
		Logger:        logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize handlers.
	healthHandler := api.NewHealthHandler(repo, mcp)
	webProfile := format.Web(cfg.WebChunkLimit)
	chatHandler := webchat.NewHandler(engine, sessions, webProfile, cfg.FrontendURL, cfg.IsDevelopment(), logger)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(!cfg.IsDevelopment()))

	healthHandler.RegisterRoutes(r)

	// WhatsApp channel (only when Twilio credentials are configured).
	if cfg.Twilio.Enabled() {
		sender := whatsapp.NewTwilioSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.WhatsAppNumber, logger)
		limiter := whatsapp.NewRateLimiter(ctx, cfg.RateLimitMessages, cfg.RateLimitWindow)
		waProfile := format.WhatsApp(cfg.WhatsAppChunkLimit)
		webhookHandler := whatsapp.NewHandler(engine, sender, limiter, sessions, waProfile, logger)
		webhookHandler.RegisterRoutes(r)
		slog.Info("WhatsApp channel enabled", "number", cfg.Twilio.WhatsAppNumber)
	} else {
		slog.Info("WhatsApp channel disabled (Twilio credentials not set)")
	}

	// Web chat channel.
	r.Get("/ws/chat", chatHandler.ServeHTTP)

	// Serve embedded chat page.
	r.Handle("/*", web.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket connections stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	session.StartSweeper(ctx, sessions, repo, cfg.SessionTTL, cfg.SweepInterval)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
