package rewards

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"poolRewards/internal/model"
)

// PoolInfo returns the pool aggregate. A missing pool reads as empty.
func (e *Engine) PoolInfo(ctx context.Context, pool model.PoolID) (model.PoolInfo, error) {
	unlock := e.locks.lock(pool)
	defer unlock()

	info, ok, err := e.store.LoadPool(ctx, pool)
	if err != nil {
		return model.PoolInfo{}, fmt.Errorf("load pool %s: %w", pool, err)
	}
	if !ok {
		return model.NewPoolInfo(), nil
	}
	return info.Clone(), nil
}

// ShareAndWithdrawn returns account's share record. A missing record reads as empty.
func (e *Engine) ShareAndWithdrawn(ctx context.Context, pool model.PoolID, account common.Address) (model.ShareRecord, error) {
	unlock := e.locks.lock(pool)
	defer unlock()

	rec, ok, err := e.store.LoadShare(ctx, pool, account)
	if err != nil {
		return model.ShareRecord{}, fmt.Errorf("load share %s/%s: %w", pool, account.Hex(), err)
	}
	if !ok {
		return model.NewShareRecord(), nil
	}
	return rec.Clone(), nil
}

// PendingRewards returns, per currency, what ClaimRewards would pay account now.
// Currencies with nothing to pay are omitted.
func (e *Engine) PendingRewards(ctx context.Context, pool model.PoolID, account common.Address) (map[common.Address]uint256.Int, error) {
	unlock := e.locks.lock(pool)
	defer unlock()

	out := make(map[common.Address]uint256.Int)
	rec, ok, err := e.store.LoadShare(ctx, pool, account)
	if err != nil {
		return nil, fmt.Errorf("load share %s/%s: %w", pool, account.Hex(), err)
	}
	if !ok || rec.Share.IsZero() {
		return out, nil
	}
	info, ok, err := e.store.LoadPool(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("load pool %s: %w", pool, err)
	}
	if !ok {
		return out, nil
	}
	for currency, entry := range info.Rewards {
		amount := rewardToWithdraw(rec.Share, entry.Total, info.TotalShares, rec.Withdrawn[currency], entry.Withdrawn)
		if !amount.IsZero() {
			out[currency] = amount
		}
	}
	return out, nil
}
