// Package rewards implements proportional reward accounting for share pools.
//
// Every pool keeps, per reward currency, the total reward ever credited and
// the part of it already accounted to accounts. Every account keeps its share
// and a per-currency withdrawn offset. An account's claimable amount is
//
//	floor(share * totalReward / totalShares) - withdrawn
//
// so depositing a reward or changing one account's share costs time
// proportional to the number of reward currencies, never to the number of
// accounts. Adding a share inflates both the pool totals and the new
// account's offset by the reward the new share would otherwise be entitled
// to, so late joiners cannot claim rewards accrued before they joined.
package rewards

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"poolRewards/internal/metrics"
	"poolRewards/internal/model"
	"poolRewards/internal/storage"
)

const (
	opAccumulate  = "accumulate_reward"
	opAddShare    = "add_share"
	opRemoveShare = "remove_share"
	opSetShare    = "set_share"
	opClaim       = "claim_reward"
	opClaimAll    = "claim_rewards"
	opTransfer    = "transfer_share_and_rewards"
)

// Engine owns the pool registry and share ledger held in a Store.
// Operations on the same pool are serialized; different pools proceed in
// parallel.
type Engine struct {
	store  storage.Store
	hook   PayoutHook
	logger *zap.Logger
	locks  *poolLocks
}

// Option configures an Engine.
type Option func(*Engine)

// WithPayoutHook sets the hook invoked for every non-zero claim.
func WithPayoutHook(hook PayoutHook) Option {
	return func(e *Engine) {
		if hook != nil {
			e.hook = hook
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New builds an Engine over store.
func New(store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		hook:   nopHook{},
		logger: zap.NewNop(),
		locks:  newPoolLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run executes fn against a private session under the pool lock, commits
// the resulting changeset and then hands queued payouts to the hook. The
// hook runs after the lock is released.
func (e *Engine) run(ctx context.Context, op string, pool model.PoolID, fn func(s *session) error) error {
	start := time.Now()

	unlock := e.locks.lock(pool)
	s := newSession(ctx, e.store, pool)
	err := fn(s)
	if err == nil {
		if cs := s.changeset(); !cs.Empty() {
			if applyErr := e.store.Apply(ctx, cs); applyErr != nil {
				err = fmt.Errorf("apply changes to pool %s: %w", pool, applyErr)
			}
		}
	}
	unlock()

	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(op, "error").Inc()
		e.logger.Debug("operation failed", zap.String("op", op), zap.String("pool", string(pool)), zap.Error(err))
		return err
	}
	metrics.OperationsTotal.WithLabelValues(op, "ok").Inc()

	for _, payout := range s.payouts {
		e.logger.Debug("payout",
			zap.String("pool", string(payout.Pool)),
			zap.String("account", payout.Account.Hex()),
			zap.String("currency", payout.Currency.Hex()),
			zap.String("amount", payout.Amount.Dec()),
		)
		metrics.PayoutsTotal.Inc()
		e.hook.Payout(ctx, payout)
	}
	return nil
}
