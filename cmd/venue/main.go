package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/efreitasn/minivenue/internal/config"
	"github.com/efreitasn/minivenue/internal/engine"
	"github.com/efreitasn/minivenue/internal/handler"
	"github.com/efreitasn/minivenue/internal/ledger"
	"github.com/efreitasn/minivenue/internal/metrics"
	"github.com/efreitasn/minivenue/internal/service"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before reading the environment")
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
	if err := config.LoadEnvFile(*envFile); err != nil {
		slog.Error("failed to load env file", slog.String("error", err.Error()))
		os.Exit(1)
	}
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
		logger.Error("venue stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("venue stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Core actors.
	l := ledger.New(logger, m, ledger.Options{
		MailboxSize:  cfg.LedgerMailbox,
		PasswordCost: cfg.BcryptCost,
	})
	markets := engine.NewRegistry(l, logger, m, engine.MarketOptions{
		MailboxSize: cfg.MarketMailbox,
		TapeSize:    cfg.TradeTapeSize,
	})
	for _, id := range cfg.Markets {
		if _, err := markets.Open(id); err != nil {
			return fmt.Errorf("open market %d: %w", id, err)
		}
	}

	// Services and router.
	accountSvc := service.NewAccountService(l, cfg.RequestTimeout)
	orderSvc := service.NewOrderService(l, markets, cfg.RequestTimeout)
	router := handler.NewRouter(accountSvc, orderSvc, reg, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The actors get their own contexts so they stop in order: server,
	// then markets, then the ledger they settle against.
	ledgerCtx, stopLedger := context.WithCancel(context.Background())
	defer stopLedger()
	marketsCtx, stopMarkets := context.WithCancel(context.Background())
	defer stopMarkets()
	marketsDone := make(chan struct{})

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error { return l.Run(ledgerCtx) })
	g.Go(func() error {
		defer close(marketsDone)
		return markets.Run(marketsCtx)
	})
	g.Go(func() error {
		logger.Info("server starting", slog.String("addr", addr), slog.Any("markets", markets.IDs()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown started")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.String("error", err.Error()))
		}

		stopMarkets()
		<-marketsDone
		stopLedger()
		return nil
	})

	return g.Wait()
}
