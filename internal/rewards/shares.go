package rewards

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"poolRewards/internal/model"
)

// AccumulateReward credits amount of currency to an existing pool. The caller
// must already have moved the currency into the pool's custody.
func (e *Engine) AccumulateReward(ctx context.Context, pool model.PoolID, currency common.Address, amount *uint256.Int) error {
	value := amountOf(amount)
	if value.IsZero() {
		return nil
	}
	return e.run(ctx, opAccumulate, pool, func(s *session) error {
		ok, err := s.loadPool()
		if err != nil {
			return err
		}
		if !ok {
			return ErrPoolDoesNotExist
		}
		entry := s.info.Rewards[currency]
		entry.Total = saturatingAdd(entry.Total, value)
		s.info.Rewards[currency] = entry
		s.touchPool()
		return nil
	})
}

// AddShare grows account's share in pool, creating the pool and the share
// record as needed.
func (e *Engine) AddShare(ctx context.Context, account common.Address, pool model.PoolID, amount *uint256.Int) error {
	value := amountOf(amount)
	if value.IsZero() {
		return nil
	}
	return e.run(ctx, opAddShare, pool, func(s *session) error {
		return s.addShare(account, value)
	})
}

// RemoveShare settles account's rewards and then shrinks its share. Removing
// more than the account holds removes all of it.
func (e *Engine) RemoveShare(ctx context.Context, account common.Address, pool model.PoolID, amount *uint256.Int) error {
	value := amountOf(amount)
	if value.IsZero() {
		return nil
	}
	return e.run(ctx, opRemoveShare, pool, func(s *session) error {
		return s.removeShare(account, value)
	})
}

// SetShare adds or removes the difference between newShare and the current share.
func (e *Engine) SetShare(ctx context.Context, account common.Address, pool model.PoolID, newShare *uint256.Int) error {
	target := amountOf(newShare)
	return e.run(ctx, opSetShare, pool, func(s *session) error {
		slot, err := s.share(account)
		if err != nil {
			return err
		}
		current := slot.rec.Share
		if target.Gt(&current) {
			return s.addShare(account, saturatingSub(target, current))
		}
		return s.removeShare(account, saturatingSub(current, target))
	})
}

// TransferShareAndRewards moves moveShare of from's share, with the matching
// part of its withdrawn offsets, to another account. The pool aggregate is
// untouched. moveShare must be strictly less than from's share.
func (e *Engine) TransferShareAndRewards(ctx context.Context, from common.Address, pool model.PoolID, moveShare *uint256.Int, to common.Address) error {
	value := amountOf(moveShare)
	return e.run(ctx, opTransfer, pool, func(s *session) error {
		return s.transfer(from, value, to)
	})
}

func (s *session) addShare(account common.Address, amount uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := s.ensurePool(); err != nil {
		return err
	}
	slot, err := s.share(account)
	if err != nil {
		return err
	}

	initial := s.info.TotalShares
	if !initial.IsZero() {
		for _, currency := range s.info.Currencies() {
			entry := s.info.Rewards[currency]
			inflation := mulDiv(amount, entry.Total, initial)
			if inflation.IsZero() {
				continue
			}
			entry.Total = saturatingAdd(entry.Total, inflation)
			entry.Withdrawn = saturatingAdd(entry.Withdrawn, inflation)
			s.info.Rewards[currency] = entry
			slot.rec.Withdrawn[currency] = saturatingAdd(slot.rec.Withdrawn[currency], inflation)
		}
	}

	s.info.TotalShares = saturatingAdd(initial, amount)
	s.touchPool()
	slot.rec.Share = saturatingAdd(slot.rec.Share, amount)
	slot.exists = true
	slot.dirty = true
	return nil
}

func (s *session) removeShare(account common.Address, amount uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	// Settle at the current denominator before it changes.
	if err := s.claimRewards(account); err != nil {
		return err
	}
	slot, err := s.share(account)
	if err != nil {
		return err
	}
	if !slot.exists {
		return nil
	}
	removing := minAmount(amount, slot.rec.Share)
	if removing.IsZero() {
		return nil
	}
	poolExists, err := s.loadPool()
	if err != nil {
		return err
	}

	// The removed share takes its proportion of the account's own offset out
	// of the pool; using pool totals here would shift other accounts' claims.
	share := slot.rec.Share
	for _, currency := range slot.rec.Currencies() {
		withdrawn := slot.rec.Withdrawn[currency]
		toRemove := mulDiv(removing, withdrawn, share)
		if poolExists {
			if entry, ok := s.info.Rewards[currency]; ok {
				entry.Total = saturatingSub(entry.Total, toRemove)
				entry.Withdrawn = saturatingSub(entry.Withdrawn, toRemove)
				if entry.Total.IsZero() {
					delete(s.info.Rewards, currency)
				} else {
					s.info.Rewards[currency] = entry
				}
			}
		}
		remaining := saturatingSub(withdrawn, toRemove)
		if remaining.IsZero() {
			delete(slot.rec.Withdrawn, currency)
		} else {
			slot.rec.Withdrawn[currency] = remaining
		}
	}

	if poolExists {
		// The row outlives its last holder so rewards accumulated while the
		// pool is empty go to the next joiner.
		s.info.TotalShares = saturatingSub(s.info.TotalShares, removing)
		s.touchPool()
	}

	slot.rec.Share = saturatingSub(share, removing)
	if slot.rec.Share.IsZero() {
		slot.rec = model.NewShareRecord()
		slot.exists = false
	}
	slot.dirty = true
	return nil
}

func (s *session) transfer(from common.Address, moveShare uint256.Int, to common.Address) error {
	src, err := s.share(from)
	if err != nil {
		return err
	}
	if !src.exists {
		return ErrShareDoesNotExist
	}
	if !moveShare.Lt(&src.rec.Share) {
		return ErrCanSplitOnlyLessThanShare
	}
	if from == to || moveShare.IsZero() {
		return nil
	}
	dst, err := s.share(to)
	if err != nil {
		return err
	}

	share := src.rec.Share
	for _, currency := range src.rec.Currencies() {
		balance := src.rec.Withdrawn[currency]
		moveBalance := mulDiv(balance, moveShare, share)
		if moveBalance.IsZero() {
			continue
		}
		remaining := saturatingSub(balance, moveBalance)
		if remaining.IsZero() {
			delete(src.rec.Withdrawn, currency)
		} else {
			src.rec.Withdrawn[currency] = remaining
		}
		dst.rec.Withdrawn[currency] = saturatingAdd(dst.rec.Withdrawn[currency], moveBalance)
	}

	src.rec.Share = saturatingSub(share, moveShare)
	dst.rec.Share = saturatingAdd(dst.rec.Share, moveShare)
	dst.exists = true
	src.dirty = true
	dst.dirty = true
	return nil
}
