package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"water-quality-api/app"
	"water-quality-api/collector"
	"water-quality-api/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	slog.SetDefault(app.NewLogger(cfg.Server.LogLevel))

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	server := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           collector.MetricsHandler(a.Store),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
			stop()
		}
	}()

	if err := collector.New(a.Ingest, cfg.MQTT).Run(ctx); err != nil {
		slog.Error("collector stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
