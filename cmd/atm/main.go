package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/yash-g01/Next-Gen-ATM/internal/account"
	"github.com/yash-g01/Next-Gen-ATM/internal/config"
	"github.com/yash-g01/Next-Gen-ATM/internal/infra"
	"github.com/yash-g01/Next-Gen-ATM/internal/logging"
	"github.com/yash-g01/Next-Gen-ATM/internal/metrics"
	"github.com/yash-g01/Next-Gen-ATM/internal/nfc"
	"github.com/yash-g01/Next-Gen-ATM/internal/notification"
	"github.com/yash-g01/Next-Gen-ATM/internal/server"
	"github.com/yash-g01/Next-Gen-ATM/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	metrics.Init()

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	var directory account.Directory
	if db != nil {
		directory = account.NewPostgresDirectory(db)
	} else {
		seeds, err := account.SeedAccounts()
		if err != nil {
			logger.Error("seed accounts", "error", err)
			os.Exit(1)
		}
		directory, err = account.NewMemoryDirectory(seeds...)
		if err != nil {
			logger.Error("build account directory", "error", err)
			os.Exit(1)
		}
	}

	reader := nfc.New(nfc.Config{
		Addr:       cfg.TapAddr,
		Budget:     cfg.TapBudget,
		PollStep:   cfg.TapPollStep,
		ReadWindow: cfg.TapReadWindow,
	}, logger)

	controller := session.NewController(directory, reader, notification.NewLoggerNotifier(logger), session.Config{
		UPILimit:     cfg.UPILimit,
		UPICountdown: cfg.UPICountdown,
		Payee:        cfg.UPIPayee,
		PayeeName:    cfg.UPIPayeeName,
	}, logger)

	srv, err := server.New(cfg, db, cache, controller, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("terminal exited cleanly")
}
