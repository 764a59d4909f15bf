package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolRewards/internal/config"
	"poolRewards/internal/model"
	"poolRewards/internal/rewards"
	"poolRewards/internal/storage"
	"poolRewards/internal/storage/memory"
	"poolRewards/internal/storage/postgres"
)

type ledger interface {
	storage.Store
	storage.Lister
}

type inspectReport struct {
	Pools   []model.PoolID            `json:"pools,omitempty"`
	Pool    model.PoolID              `json:"pool,omitempty"`
	Info    *model.PoolInfo           `json:"info,omitempty"`
	Account *common.Address           `json:"account,omitempty"`
	Share   *model.ShareRecord        `json:"share,omitempty"`
	Pending map[common.Address]string `json:"pending,omitempty"`
	Check   string                    `json:"check,omitempty"`
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadInspect(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store ledger
	switch cfg.Backend {
	case backendMemory:
		mem := memory.New()
		seq, ok, err := mem.LoadFile(cfg.Snapshot)
		if err != nil {
			return err
		}
		if ok {
			logger.Info("snapshot loaded", zap.String("snapshot", cfg.Snapshot), zap.Uint64("last_seq", seq))
		}
		store = mem
	case backendPostgres:
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		store = pg
	default:
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	report, err := inspect(ctx, store, cfg)
	if err != nil {
		return err
	}
	if err := writeReport(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if report.Check != "" && report.Check != "ok" {
		return fmt.Errorf("pool %s failed invariant check", cfg.Pool)
	}
	return nil
}

func inspect(ctx context.Context, store ledger, cfg config.InspectConfig) (inspectReport, error) {
	var report inspectReport
	if cfg.Pool == "" {
		pools, err := store.Pools(ctx)
		if err != nil {
			return report, fmt.Errorf("list pools: %w", err)
		}
		report.Pools = pools
		return report, nil
	}

	pool := model.PoolID(cfg.Pool)
	engine := rewards.New(store)
	report.Pool = pool

	info, err := engine.PoolInfo(ctx, pool)
	if err != nil {
		return report, err
	}
	report.Info = &info

	if cfg.Account != "" {
		if !common.IsHexAddress(cfg.Account) {
			return report, fmt.Errorf("invalid account address: %s", cfg.Account)
		}
		account := common.HexToAddress(cfg.Account)
		report.Account = &account

		rec, err := engine.ShareAndWithdrawn(ctx, pool, account)
		if err != nil {
			return report, err
		}
		report.Share = &rec

		pending, err := engine.PendingRewards(ctx, pool, account)
		if err != nil {
			return report, err
		}
		report.Pending = make(map[common.Address]string, len(pending))
		for currency, amount := range pending {
			report.Pending[currency] = model.FormatAmount(amount)
		}
	}

	if cfg.Check {
		shares, err := store.Shares(ctx, pool)
		if err != nil {
			return report, fmt.Errorf("list shares: %w", err)
		}
		tolerance := cfg.Tolerance
		if tolerance == 0 {
			tolerance = uint64(len(shares))
		}
		if err := rewards.CheckPool(info, shares, tolerance); err != nil {
			report.Check = err.Error()
		} else {
			report.Check = "ok"
		}
	}
	return report, nil
}

func writeReport(w io.Writer, report inspectReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
