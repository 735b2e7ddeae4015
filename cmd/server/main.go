package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"accountsvc/internal/api"
	"accountsvc/internal/api/middleware"
	"accountsvc/internal/config"
	"accountsvc/pkg/factory"
	"accountsvc/pkg/logger"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	log := logger.New(logger.LogLevel(cfg.LogLevel), nil)
	log.Info("Starting account service", map[string]interface{}{
		"env":     cfg.AppEnv,
		"version": Version,
		"storage": cfg.Storage.Driver,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appFactory, err := factory.NewFactory(ctx, cfg, log, Version)
	if err != nil {
		log.Error("Failed to initialize dependencies", map[string]interface{}{"error": err.Error()})
		return 1
	}

	mux := http.NewServeMux()
	api.NewAccountHandler(appFactory.GetAccountService(), appFactory.GetTokenIssuer(), log).RegisterRoutes(mux)
	api.NewHealthHandler(appFactory, Version, log).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = middleware.MetricsMiddleware(mux)(handler)
	handler = middleware.TracingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"port": cfg.Server.Port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received", map[string]interface{}{})
	case err := <-serverErr:
		log.Error("HTTP server failed", map[string]interface{}{"error": err.Error()})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exitCode := 0
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", map[string]interface{}{"error": err.Error()})
		exitCode = 1
	}
	if err := appFactory.Close(shutdownCtx); err != nil {
		log.Error("Failed to release resources", map[string]interface{}{"error": err.Error()})
		exitCode = 1
	}

	log.Info("Server stopped", map[string]interface{}{})
	return exitCode
}
