package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "rewards",
		Short:        "Proportional pool reward accounting",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply an operation journal to the reward ledger",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input operation journal JSONL")
	replayCmd.Flags().String("backend", "memory", "ledger backend (memory, postgres)")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN for the postgres backend")
	replayCmd.Flags().String("snapshot", "./data/snapshot.json", "snapshot file for the memory backend")
	replayCmd.Flags().String("state-file", "", "optional local state file for the postgres backend")
	replayCmd.Flags().String("state-name", "replay", "checkpoint name in rewards_state")
	replayCmd.Flags().String("payouts", "./data/payouts.jsonl", "output payouts JSONL")
	replayCmd.Flags().String("errors", "./data/operation_errors.jsonl", "rejected operations JSONL")
	replayCmd.Flags().Int("batch-size", 1000, "operations per checkpoint")
	replayCmd.Flags().Int("workers", 4, "parallel workers, each owning a subset of pools")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts for store failures")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	depositsCmd := &cobra.Command{
		Use:   "deposits",
		Short: "Turn reward token transfers into pool custody into accumulate operations",
		RunE:  runDeposits,
	}

	depositsCmd.Flags().String("rpc", "", "RPC URL")
	depositsCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	depositsCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	depositsCmd.Flags().StringSlice("token", nil, "reward token addresses (comma-separated)")
	depositsCmd.Flags().StringSlice("custody", nil, "pool custody addresses as pool=0xaddress (comma-separated)")
	depositsCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	depositsCmd.Flags().String("out", "./data/journal.jsonl", "output operation journal JSONL")
	depositsCmd.Flags().String("checkpoint", "./data/deposits_checkpoint.json", "checkpoint file path")
	depositsCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	depositsCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	depositsCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	depositsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(depositsCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print pool state, an account's share and its pending rewards",
		RunE:  runInspect,
	}

	inspectCmd.Flags().String("backend", "memory", "ledger backend (memory, postgres)")
	inspectCmd.Flags().String("pg-dsn", "", "Postgres DSN for the postgres backend")
	inspectCmd.Flags().String("snapshot", "./data/snapshot.json", "snapshot file for the memory backend")
	inspectCmd.Flags().String("pool", "", "pool id, empty lists pools")
	inspectCmd.Flags().String("account", "", "account address")
	inspectCmd.Flags().Bool("check", false, "verify pool invariants")
	inspectCmd.Flags().Uint64("tolerance", 0, "allowed rounding gap for --check, 0 means number of accounts")
	inspectCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(inspectCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema",
		RunE:  runMigrate,
	}

	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
