package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolRewards/internal/config"
	"poolRewards/internal/replay"
	"poolRewards/internal/rewards"
	"poolRewards/internal/storage"
	"poolRewards/internal/storage/memory"
	"poolRewards/internal/storage/postgres"
)

const (
	backendMemory   = "memory"
	backendPostgres = "postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv, err := serveMetrics(cfg.MetricsAddr, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var store storage.Store
	var stateStore replay.StateStore
	switch cfg.Backend {
	case backendMemory:
		mem := memory.New()
		store = mem
		stateStore = &replay.SnapshotStateStore{Store: mem, Path: cfg.Snapshot}
	case backendPostgres:
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		store = pg
		if cfg.StateFile != "" {
			stateStore = &replay.FileStateStore{Path: cfg.StateFile}
		} else {
			stateStore = &replay.DBStateStore{Store: pg, Name: cfg.StateName}
		}
	default:
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	payouts := replay.NewPayoutBuffer()
	engine := rewards.New(store, rewards.WithPayoutHook(payouts), rewards.WithLogger(logger))

	var errSink replay.OperationErrorSink
	if cfg.Errors != "" {
		errSink = storage.NewJsonlStorage(cfg.Errors)
	}
	var paySink storage.PayoutSink
	if cfg.Payouts != "" {
		paySink = storage.NewJsonlStorage(cfg.Payouts)
	}

	runner := replay.NewRunner(replay.Config{
		BatchSize:    cfg.BatchSize,
		Workers:      cfg.Workers,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		StateStore:   stateStore,
	}, engine, payouts, paySink, errSink, logger)

	logger.Info("replay start",
		zap.String("input", cfg.Input),
		zap.String("backend", cfg.Backend),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("snapshot", cfg.Snapshot),
		zap.String("payouts", cfg.Payouts),
		zap.String("errors", cfg.Errors),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int("workers", cfg.Workers),
	)

	_, err = runner.Run(ctx, cfg.Input)
	return err
}

func serveMetrics(addr string, logger *zap.Logger) (*http.Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	logger.Info("prometheus metrics server listening", zap.String("address", listener.Addr().String()))
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("prometheus metrics server failed", zap.Error(err))
		}
	}()
	return srv, nil
}
