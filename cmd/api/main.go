package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scanpay/scanpay-api/internal/auth"
	"github.com/scanpay/scanpay-api/internal/captcha"
	"github.com/scanpay/scanpay-api/internal/config"
	"github.com/scanpay/scanpay-api/internal/handler"
	"github.com/scanpay/scanpay-api/internal/inference"
	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/mailer"
	"github.com/scanpay/scanpay-api/internal/metrics"
	"github.com/scanpay/scanpay-api/internal/middleware"
	"github.com/scanpay/scanpay-api/internal/repository"
	"github.com/scanpay/scanpay-api/internal/saltedge"
	"github.com/scanpay/scanpay-api/internal/service"
	"github.com/scanpay/scanpay-api/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("scanpay-api", cfg.LogLevel, cfg.AppEnv)
	decimal.MarshalJSONWithoutQuotes = true

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Up(cfg.DatabaseURL); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	mux := http.NewServeMux()
	if err := registerRoutes(mux, cfg, db, m); err != nil {
		slog.Error("failed to build routes", "error", err)
		os.Exit(1)
	}

	var h http.Handler = mux
	h = middleware.Metrics(m)(h)
	h = middleware.Logging(h)
	h = middleware.Tracing(h)
	h = middleware.Recovery(h)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr, "saltedge_environment", cfg.SaltEdgeEnvironment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config, db *sql.DB, m *metrics.Metrics) error {
	session := middleware.Auth(auth.NewVerifier(cfg.AuthJWTSecret))
	protected := func(h http.HandlerFunc) http.Handler { return session(h) }

	health := handler.NewHealthHandler(db)
	mux.HandleFunc("GET /health", health.Liveness)
	mux.HandleFunc("GET /ready", health.Readiness)
	mux.Handle("GET /metrics", m.Handler())

	if err := registerSaltEdge(mux, cfg, m, protected); err != nil {
		return err
	}

	mail := mailer.New(cfg.ResendAPIKey, cfg.EmailFrom)
	if !mail.Enabled() {
		slog.Warn("RESEND_API_KEY not set, emails are disabled")
	}

	waitlist := service.NewWaitlistService(
		repository.NewWaitlistRepository(db),
		captcha.NewTurnstileVerifier(cfg.TurnstileSecretKey),
		mail,
	)
	contact := service.NewContactService(
		captcha.NewRecaptchaVerifier(cfg.RecaptchaSecretKey, cfg.RecaptchaMinScore, cfg.RecaptchaAction),
		mail,
		cfg.ContactEmailTo,
	)
	subscriptions := service.NewSubscriptionService(inference.NewClient(cfg.ReplicateAPIToken), cfg.ReplicateModel)

	mux.HandleFunc("POST /api/waitlist", handler.NewWaitlistHandler(waitlist).Join)
	mux.HandleFunc("POST /api/contact", handler.NewContactHandler(contact).Submit)
	mux.Handle("POST /api/ai/get-subscriptions", protected(handler.NewSubscriptionHandler(subscriptions).GetSubscriptions))

	authHandler := handler.NewAuthHandler(
		auth.NewBackendClient(cfg.AuthURL, cfg.AuthAnonKey),
		repository.NewUserRepository(db),
		cfg.AppEnv != "development",
	)
	mux.HandleFunc("GET /auth/callback", authHandler.Callback)
	mux.HandleFunc("POST /auth/signout", authHandler.SignOut)
	mux.Handle("GET /api/auth/user", protected(authHandler.CurrentUser))

	return nil
}

func registerSaltEdge(mux *http.ServeMux, cfg *config.Config, m *metrics.Metrics, protected func(http.HandlerFunc) http.Handler) error {
	debug := handler.NewDebugHandler(handler.DebugConfig{
		AppID:       cfg.SaltEdgeAppID,
		Secret:      cfg.SaltEdgeSecret,
		BaseURL:     cfg.SaltEdgeBaseURL,
		Environment: cfg.SaltEdgeEnvironment,
		AppEnv:      cfg.AppEnv,
		CallbackURL: cfg.CallbackURL(),
	}, cfg.BaseURL)
	mux.Handle("GET /api/saltedge/debug", protected(debug.Config))
	mux.Handle("POST /api/saltedge/test-webhook", protected(debug.TestWebhook))

	client, err := saltedge.NewClient(cfg.ClientConfig(), saltedge.WithObserver(m))
	if errors.Is(err, saltedge.ErrMissingCredentials) {
		slog.Warn("SALTEDGE_APP_ID or SALTEDGE_SECRET not set, banking routes are disabled")
		notConfigured := func(w http.ResponseWriter, r *http.Request) {
			handler.RespondDomainError(w, saltedge.ErrMissingCredentials)
		}
		mux.HandleFunc("/api/saltedge/", notConfigured)
		return nil
	}
	if err != nil {
		return fmt.Errorf("registerSaltEdge: %w", err)
	}

	verifier, err := saltedge.NewCallbackVerifier(cfg.SaltEdgeCallbackPublicKey, cfg.CallbackURL())
	if err != nil {
		return fmt.Errorf("registerSaltEdge: %w", err)
	}
	if verifier == nil {
		slog.Warn("SALTEDGE_CALLBACK_PUBLIC_KEY not set, callback signatures are not checked")
	}

	syncer := service.NewTransactionSync(client, service.NewLogObserver(m), m)
	callbacks := handler.NewCallbackHandler(service.NewCallbackProcessor(syncer, m), verifier)
	se := handler.NewSaltEdgeHandler(
		client,
		service.NewConnectSessionService(client, client.Environment(), cfg.BaseURL),
		service.NewRefreshService(client),
	)

	mux.HandleFunc("POST /api/saltedge/callbacks", callbacks.Receive)
	mux.Handle("POST /api/saltedge/customers", protected(se.CreateCustomer))
	mux.Handle("GET /api/saltedge/customers", protected(se.ListCustomers))
	mux.Handle("POST /api/saltedge/connect", protected(se.Connect))
	mux.Handle("GET /api/saltedge/connections", protected(se.ListConnections))
	mux.Handle("GET /api/saltedge/connections/{connectionId}", protected(se.ShowConnection))
	mux.Handle("DELETE /api/saltedge/connections/{connectionId}", protected(se.RemoveConnection))
	mux.Handle("GET /api/saltedge/accounts", protected(se.ListAccounts))
	mux.Handle("GET /api/saltedge/debug-accounts", protected(se.DebugAccounts))
	mux.Handle("GET /api/saltedge/transactions", protected(se.ListTransactions))
	mux.Handle("POST /api/saltedge/refresh", protected(se.Refresh))
	return nil
}

// connectDB retries until the database accepts connections.
func connectDB(cfg *config.Config) (*sql.DB, error) {
	var lastErr error
	for i := range 30 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, cfg.Pool())
		cancel()
		if err == nil {
			return db, nil
		}
		lastErr = err
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", lastErr)
}
