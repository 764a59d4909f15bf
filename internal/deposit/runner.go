// Package deposit turns reward token transfers into pool custody addresses
// into accumulate operations.
package deposit

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"poolRewards/internal/metrics"
	"poolRewards/internal/model"
	"poolRewards/internal/retry"
	"poolRewards/internal/storage"
)

// LogSource is the part of the chain client the runner needs.
type LogSource interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topics [][]common.Hash) ([]types.Log, error)
}

// RunConfig holds runtime settings for the deposit scanner.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	Tokens            []common.Address
	Custody           map[common.Address]model.PoolID
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	Clock             clockwork.Clock
}

// Runner scans Transfer logs and appends accumulate operations to a journal.
type Runner struct {
	cfg        RunConfig
	chain      LogSource
	sink       storage.OperationSink
	decoder    *TransferDecoder
	logger     *zap.Logger
	seen       map[string]struct{}
	cursor     CursorFile
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, chainClient LogSource, sink storage.OperationSink, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	decoder, err := NewTransferDecoder()
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainClient,
		sink:       sink,
		decoder:    decoder,
		logger:     logger,
		seen:       make(map[string]struct{}),
		cursor:     newCursorFile(cfg),
	}, nil
}

// Run executes the scanning loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("operation sink is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Tokens) == 0 {
		return fmt.Errorf("at least one reward token is required")
	}
	if len(r.cfg.Custody) == 0 {
		return fmt.Errorf("at least one custody address is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	cursor, ok, err := r.cursor.Load()
	if err != nil {
		return err
	}
	if ok && cursor.ChainID != chainIDValue {
		return fmt.Errorf("cursor %s belongs to chain %d, connected to chain %d", r.cursor.Path, cursor.ChainID, chainIDValue)
	}
	cursor.ChainID = chainIDValue
	if ok && cursor.LastBlock >= from {
		from = cursor.LastBlock + 1
		r.logger.Info("resume from cursor",
			zap.Uint64("last_block", cursor.LastBlock),
			zap.Uint64("last_seq", cursor.LastSeq),
			zap.Uint64("deposits", cursor.Deposits),
			zap.Uint64("from", from),
		)
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	custodyTopics := make([]common.Hash, 0, len(r.cfg.Custody))
	for addr := range r.cfg.Custody {
		custodyTopics = append(custodyTopics, common.BytesToHash(addr.Bytes()))
	}
	topics := [][]common.Hash{{r.decoder.Topic0()}, nil, custodyTopics}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("fetch transfers", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := r.filterLogsWithRetry(ctx, blockRange, topics)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		var lastSeq uint64
		ops := make([]model.Operation, 0, len(logs))
		for _, log := range logs {
			if log.Removed || r.isDuplicate(log) {
				continue
			}
			transfer, err := r.decoder.Decode(log)
			if err != nil {
				r.logger.Warn("decode transfer", zap.Error(err), zap.String("tx", log.TxHash.Hex()), zap.Uint("log_index", log.Index))
				continue
			}
			pool, ok := r.cfg.Custody[transfer.To]
			if !ok || transfer.Value.IsZero() {
				continue
			}
			op, err := buildOperation(chainIDValue, log, transfer, pool)
			if err != nil {
				return err
			}
			ops = append(ops, op)
			if op.Seq > lastSeq {
				lastSeq = op.Seq
			}
		}

		if err := r.sink.PutOperationBatch(ops); err != nil {
			return fmt.Errorf("store operations: %w", err)
		}
		metrics.DepositsIndexedTotal.Add(float64(len(ops)))

		cursor = cursor.next(blockRange.To, len(ops), lastSeq)
		if err := r.cursor.Save(cursor); err != nil {
			return err
		}

		r.logger.Info("batch complete", zap.Int("deposits", len(ops)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}

	return nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, blockRange BlockRange, topics [][]common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, blockRange.From, blockRange.To, r.cfg.Tokens, topics)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
		}
		return err
	})
	return logs, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}

func newCursorFile(cfg RunConfig) CursorFile {
	if !cfg.CheckpointEnabled {
		return CursorFile{}
	}
	return CursorFile{Path: cfg.CheckpointPath, Clock: cfg.Clock}
}
