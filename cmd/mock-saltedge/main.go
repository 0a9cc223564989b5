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

	env "github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/middleware"
	"github.com/scanpay/scanpay-api/internal/mockprovider"
)

func main() {
	cfg, err := env.ParseAs[mockprovider.Config]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("mock-saltedge", cfg.LogLevel, cfg.AppEnv)
	decimal.MarshalJSONWithoutQuotes = true

	provider, err := mockprovider.New(cfg)
	if err != nil {
		slog.Error("failed to build mock provider", "error", err)
		os.Exit(1)
	}

	var h http.Handler = provider.Handler()
	h = middleware.Logging(h)
	h = middleware.Tracing(h)
	h = middleware.Recovery(h)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("mock provider started", "addr", addr, "callback_url", cfg.CallbackURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("mock provider stopped")
}
