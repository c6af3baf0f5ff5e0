package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/efreitasn/stockmarket/internal/config"
	"github.com/efreitasn/stockmarket/internal/engine"
	"github.com/efreitasn/stockmarket/internal/events"
	"github.com/efreitasn/stockmarket/internal/handler"
	"github.com/efreitasn/stockmarket/internal/service"
	"github.com/efreitasn/stockmarket/internal/store"
)

// sessionSweepInterval is how often expired sessions are dropped.
const sessionSweepInterval = time.Minute

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store: pebble when a data directory is configured, memory otherwise.
	var st store.Store
	if cfg.DataDir != "" {
		db, err := store.OpenPebble(cfg.DataDir, nil)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close()
		st = db
		logger.Info("using pebble store", slog.String("dir", cfg.DataDir))
	} else {
		st = store.NewMemoryStore()
		logger.Info("using in-memory store")
	}

	// Trade events: websocket hub, plus kafka when brokers are configured.
	hub := events.NewHub()
	publishers := events.Multi{hub}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafka.Close()
		publishers = append(publishers, kafka)
		logger.Info("publishing trades to kafka",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", cfg.KafkaTopic),
		)
	}

	// Services.
	sessions := store.NewSessionStore(cfg.SessionTTL)
	traderSvc := service.NewTraderService(st, sessions, logger)
	orderSvc := service.NewOrderService(st, engine.NewMatcher(), engine.NewStockLocks(), publishers, logger, cfg.PriceBandPercent)
	stockSvc := service.NewStockService(st, logger)

	if err := stockSvc.SeedStocks(ctx, cfg.SeedStocks); err != nil {
		return fmt.Errorf("seed stocks: %w", err)
	}

	// Background jobs stop when ctx is cancelled.
	traderSvc.StartSessionSweeper(ctx, sessionSweepInterval)
	if cfg.PriceFeedURL != "" {
		source := service.NewHTTPPriceSource(cfg.PriceFeedURL, cfg.PriceFeedTimeout)
		service.NewPriceFeed(cfg.PriceFeedInterval, source, stockSvc, logger).Start(ctx)
	}

	// Router.
	router := handler.NewRouter(traderSvc, orderSvc, stockSvc, hub, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for SIGINT/SIGTERM or a listener failure.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	// Graceful shutdown: stop HTTP server, then cancel background jobs.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
	return nil
}
