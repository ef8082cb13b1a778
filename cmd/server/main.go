package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/rwa/internal/app"
	"github.com/JonMunkholm/rwa/internal/auth"
	"github.com/JonMunkholm/rwa/internal/config"
	"github.com/JonMunkholm/rwa/internal/core"
	"github.com/JonMunkholm/rwa/internal/logging"
	"github.com/JonMunkholm/rwa/internal/metrics"
	"github.com/JonMunkholm/rwa/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	host, _ := os.Hostname()
	reporter := logging.NewReporter(cfg.Logging.RollbarToken, cfg.Logging.Environment, host)
	defer reporter.Close()

	m := metrics.New()

	ctx := context.Background()
	a, err := app.Open(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to open backends", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Service.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare spreadsheet", "error", err, "hint", core.FormatUserError(err))
		os.Exit(1)
	}
	slog.Info("tabs ready", "count", core.TabCount())

	server := web.NewServer(a.Service, cfg, web.Options{
		Tokens:   auth.NewTokens(cfg.Auth.SecretKey, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		Metrics:  m,
		Reporter: reporter,
	})

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	if cfg.Jobs.Enabled {
		go a.Service.StartScheduler(jobCtx, app.JobsConfig(cfg))
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight spreadsheet writes finish before the workbook closes.
		if err := a.Store.Limiter().WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("spreadsheet calls did not finish in time", "error", err)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		return
	}
	slog.Info("server stopped")
}
