package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brunobiangulo/rpdextract"
	"github.com/brunobiangulo/rpdextract/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML or JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	cfg, err := rpdextract.LoadConfig(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	// Structured JSON logging.
	logger, logCloser, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		JSON:   true,
		Stderr: os.Stdout,
	})
	if err != nil {
		slog.Error("configuring logging", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	corsOrigins := os.Getenv("RPD_CORS_ORIGINS")

	proc, err := rpdextract.New(cfg, rpdextract.WithLogger(logger))
	if err != nil {
		slog.Error("creating processor", "error", err)
		os.Exit(1)
	}
	defer proc.Close()

	h := newHandler(proc, int64(cfg.MaxFileSizeMB)<<20)

	// Middleware chain: recovery -> cors -> logging -> mux
	handler := recoveryMiddleware(corsMiddleware(corsOrigins, logMiddleware(h.routes())))

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Minute, // uploads
		WriteTimeout: 0,               // extraction can be long
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr, "provider", cfg.LLM.Provider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
