package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "REWARDS"

// ReplayConfig holds settings for applying an operation journal.
type ReplayConfig struct {
	Input        string
	Backend      string
	PGDSN        string
	Snapshot     string
	StateFile    string
	StateName    string
	Payouts      string
	Errors       string
	BatchSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	MetricsAddr  string
	LogLevel     string
}

// DepositsConfig holds settings for the custody deposit scanner.
type DepositsConfig struct {
	RPCURL            string
	FromBlock         uint64
	ToBlock           uint64
	Tokens            []string
	Custody           []string
	BatchSize         uint64
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string
}

// InspectConfig holds settings for reading pool state.
type InspectConfig struct {
	Backend   string
	PGDSN     string
	Snapshot  string
	Pool      string
	Account   string
	Check     bool
	Tolerance uint64
	LogLevel  string
}

// MigrateConfig holds settings for schema migrations.
type MigrateConfig struct {
	PGDSN    string
	LogLevel string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"backend":       "memory",
		"snapshot":      "./data/snapshot.json",
		"state-name":    "replay",
		"payouts":       "./data/payouts.jsonl",
		"errors":        "./data/operation_errors.jsonl",
		"batch-size":    1000,
		"workers":       4,
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{
		Input:        v.GetString("in"),
		Backend:      v.GetString("backend"),
		PGDSN:        v.GetString("pg-dsn"),
		Snapshot:     v.GetString("snapshot"),
		StateFile:    v.GetString("state-file"),
		StateName:    v.GetString("state-name"),
		Payouts:      v.GetString("payouts"),
		Errors:       v.GetString("errors"),
		BatchSize:    v.GetInt("batch-size"),
		Workers:      v.GetInt("workers"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		MetricsAddr:  v.GetString("metrics-addr"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}

// LoadDeposits merges config file, environment variables, and flags into DepositsConfig.
func LoadDeposits(cfgFile string, flags *pflag.FlagSet) (DepositsConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"batch-size":         uint64(2000),
		"out":                "./data/journal.jsonl",
		"checkpoint":         "./data/deposits_checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
	})
	if err != nil {
		return DepositsConfig{}, err
	}

	return DepositsConfig{
		RPCURL:            v.GetString("rpc"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		Tokens:            getStringSlice(v, "token"),
		Custody:           getStringSlice(v, "custody"),
		BatchSize:         v.GetUint64("batch-size"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}

// LoadInspect merges config file, environment variables, and flags into InspectConfig.
func LoadInspect(cfgFile string, flags *pflag.FlagSet) (InspectConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"backend":  "memory",
		"snapshot": "./data/snapshot.json",
	})
	if err != nil {
		return InspectConfig{}, err
	}

	return InspectConfig{
		Backend:   v.GetString("backend"),
		PGDSN:     v.GetString("pg-dsn"),
		Snapshot:  v.GetString("snapshot"),
		Pool:      v.GetString("pool"),
		Account:   v.GetString("account"),
		Check:     v.GetBool("check"),
		Tolerance: v.GetUint64("tolerance"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}

// LoadMigrate merges config file, environment variables, and flags into MigrateConfig.
func LoadMigrate(cfgFile string, flags *pflag.FlagSet) (MigrateConfig, error) {
	v, err := load(cfgFile, flags, nil)
	if err != nil {
		return MigrateConfig{}, err
	}
	return MigrateConfig{
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("rewards")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	switch typed := v.Get(key).(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
