// Package replay applies an operation journal to the rewards engine.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolRewards/internal/metrics"
	"poolRewards/internal/model"
	"poolRewards/internal/retry"
	"poolRewards/internal/rewards"
	"poolRewards/internal/storage"
)

const (
	statusApplied  = "applied"
	statusRejected = "rejected"
	statusInvalid  = "invalid"
	statusSkipped  = "skipped"
)

// OperationErrorSink receives journal lines that could not be applied.
type OperationErrorSink interface {
	PutOperationErrorBatch(errs []model.OperationError) error
}

// Config controls replay behavior.
type Config struct {
	BatchSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	StateStore   StateStore
}

// Runner reads journal lines and applies them to an engine. Operations on
// one pool keep their journal order; different pools are applied in
// parallel.
type Runner struct {
	cfg     Config
	engine  *rewards.Engine
	payouts *PayoutBuffer
	paySink storage.PayoutSink
	errSink OperationErrorSink
	logger  *zap.Logger
}

// Stats summarizes one replay run.
type Stats struct {
	Total    int
	Applied  int
	Rejected int
	Invalid  int
	Skipped  int
	Payouts  int
	LastSeq  uint64
}

type pendingOp struct {
	line int
	op   model.Operation
}

type batchResult struct {
	applied  int
	rejected []model.OperationError
}

func NewRunner(cfg Config, engine *rewards.Engine, payouts *PayoutBuffer, paySink storage.PayoutSink, errSink OperationErrorSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Runner{
		cfg:     cfg,
		engine:  engine,
		payouts: payouts,
		paySink: paySink,
		errSink: errSink,
		logger:  logger,
	}
}

// Run replays the journal at inputPath from the last saved checkpoint.
func (r *Runner) Run(ctx context.Context, inputPath string) (Stats, error) {
	var stats Stats
	if r.engine == nil {
		return stats, fmt.Errorf("engine is nil")
	}

	lastSeq, hasState, err := r.loadState(ctx)
	if err != nil {
		return stats, err
	}
	if hasState {
		r.logger.Info("resume from checkpoint", zap.Uint64("last_seq", lastSeq))
	}
	stats.LastSeq = lastSeq

	file, err := os.Open(inputPath)
	if err != nil {
		return stats, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]pendingOp, 0, r.cfg.BatchSize)
	var invalid []model.OperationError
	seen := hasState
	lineNo := 0

	flush := func() error {
		if len(batch) == 0 && len(invalid) == 0 {
			return nil
		}
		if err := r.flushBatch(ctx, batch, invalid, stats.LastSeq, &stats); err != nil {
			return err
		}
		batch = batch[:0]
		invalid = nil
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Total++

		var op model.Operation
		if err := json.Unmarshal(line, &op); err != nil {
			stats.Invalid++
			metrics.JournalOperationsTotal.WithLabelValues(statusInvalid).Inc()
			r.logger.Warn("decode operation", zap.Error(err), zap.Int("line", lineNo))
			invalid = append(invalid, model.OperationError{Line: lineNo, Error: fmt.Sprintf("decode: %v", err)})
			continue
		}

		if seen && op.Seq <= stats.LastSeq {
			if !hasState || op.Seq > lastSeq {
				// Past the checkpoint but not increasing.
				stats.Invalid++
				metrics.JournalOperationsTotal.WithLabelValues(statusInvalid).Inc()
				invalid = append(invalid, model.OperationError{
					Seq:   op.Seq,
					Kind:  op.Kind,
					Pool:  op.Pool,
					Line:  lineNo,
					Error: fmt.Sprintf("seq %d is not greater than %d", op.Seq, stats.LastSeq),
				})
				continue
			}
			stats.Skipped++
			metrics.JournalOperationsTotal.WithLabelValues(statusSkipped).Inc()
			continue
		}
		seen = true
		stats.LastSeq = op.Seq

		batch = append(batch, pendingOp{line: lineNo, op: op})
		if len(batch) >= r.cfg.BatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}
	if err := flush(); err != nil {
		return stats, err
	}

	r.logger.Info("replay complete",
		zap.Int("total", stats.Total),
		zap.Int("applied", stats.Applied),
		zap.Int("rejected", stats.Rejected),
		zap.Int("invalid", stats.Invalid),
		zap.Int("skipped", stats.Skipped),
		zap.Int("payouts", stats.Payouts),
		zap.Uint64("last_seq", stats.LastSeq),
	)
	return stats, nil
}

func (r *Runner) loadState(ctx context.Context) (uint64, bool, error) {
	if r.cfg.StateStore == nil {
		return 0, false, nil
	}
	seq, ok, err := r.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("load state: %w", err)
	}
	return seq, ok, nil
}

// flushBatch applies batch, records rejected lines and payouts, and then
// advances the checkpoint to lastSeq. Payouts carry ids derived from their
// journal seq, so a batch replayed after a crash re-emits the same ids.
func (r *Runner) flushBatch(ctx context.Context, batch []pendingOp, invalid []model.OperationError, lastSeq uint64, stats *Stats) error {
	start := time.Now()

	results, err := r.applyBatch(ctx, batch)
	if err != nil {
		return err
	}

	rejected := invalid
	for _, res := range results {
		stats.Applied += res.applied
		stats.Rejected += len(res.rejected)
		rejected = append(rejected, res.rejected...)
	}

	if len(rejected) > 0 && r.errSink != nil {
		if err := r.errSink.PutOperationErrorBatch(rejected); err != nil {
			return fmt.Errorf("store operation errors: %w", err)
		}
	}

	if r.payouts != nil {
		payouts := r.payouts.Drain()
		stats.Payouts += len(payouts)
		if len(payouts) > 0 && r.paySink != nil {
			if err := r.paySink.PutPayoutBatch(payouts); err != nil {
				return fmt.Errorf("store payouts: %w", err)
			}
		}
	}

	if r.cfg.StateStore != nil {
		if err := r.cfg.StateStore.Save(ctx, lastSeq); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}

	r.logger.Info("batch complete",
		zap.Int("ops", len(batch)),
		zap.Int("rejected", len(rejected)),
		zap.Uint64("last_seq", lastSeq),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// applyBatch partitions batch by pool and applies every partition on its
// own worker.
func (r *Runner) applyBatch(ctx context.Context, batch []pendingOp) ([]batchResult, error) {
	workers := r.cfg.Workers
	parts := make([][]pendingOp, workers)
	for _, p := range batch {
		idx := workerFor(p.op.Pool, workers)
		parts[idx] = append(parts[idx], p)
	}

	results := make([]batchResult, workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := range parts {
		i := i
		if len(parts[i]) == 0 {
			continue
		}
		g.Go(func() error {
			res, err := r.applyPartition(gctx, parts[i])
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) applyPartition(ctx context.Context, ops []pendingOp) (batchResult, error) {
	var res batchResult
	for _, p := range ops {
		cmd, err := parseOperation(p.op)
		if err != nil {
			res.rejected = append(res.rejected, operationError(p, err))
			metrics.JournalOperationsTotal.WithLabelValues(statusRejected).Inc()
			continue
		}

		var rejectErr error
		err = retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			err := cmd.apply(withSeq(ctx, p.op.Seq), r.engine)
			if rewards.IsValidation(err) {
				rejectErr = err
				return nil
			}
			if err != nil {
				r.logger.Warn("apply operation failed", zap.Error(err), zap.Uint64("seq", p.op.Seq), zap.String("pool", p.op.Pool))
			}
			return err
		})
		if err != nil {
			return res, fmt.Errorf("apply seq %d: %w", p.op.Seq, err)
		}
		if rejectErr != nil {
			res.rejected = append(res.rejected, operationError(p, rejectErr))
			metrics.JournalOperationsTotal.WithLabelValues(statusRejected).Inc()
			continue
		}
		res.applied++
		metrics.JournalOperationsTotal.WithLabelValues(statusApplied).Inc()
	}
	return res, nil
}

func operationError(p pendingOp, err error) model.OperationError {
	return model.OperationError{
		Seq:   p.op.Seq,
		Kind:  p.op.Kind,
		Pool:  p.op.Pool,
		Line:  p.line,
		Error: err.Error(),
	}
}

func workerFor(pool string, workers int) int {
	if workers <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(pool))
	return int(h.Sum32() % uint32(workers))
}
