package rewards

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"poolRewards/internal/model"
)

// ClaimReward pays account what it is owed in one currency of pool.
func (e *Engine) ClaimReward(ctx context.Context, account common.Address, pool model.PoolID, currency common.Address) error {
	return e.run(ctx, opClaim, pool, func(s *session) error {
		return s.claimReward(account, currency)
	})
}

// ClaimRewards pays account what it is owed in every currency of pool.
func (e *Engine) ClaimRewards(ctx context.Context, account common.Address, pool model.PoolID) error {
	return e.run(ctx, opClaimAll, pool, func(s *session) error {
		return s.claimRewards(account)
	})
}

func (s *session) claimReward(account common.Address, currency common.Address) error {
	slot, ok, err := s.claimable(account)
	if err != nil || !ok {
		return err
	}
	if _, found := s.info.Rewards[currency]; !found {
		return nil
	}
	s.claimOne(account, slot, currency)
	return nil
}

func (s *session) claimRewards(account common.Address) error {
	slot, ok, err := s.claimable(account)
	if err != nil || !ok {
		return err
	}
	for _, currency := range s.info.Currencies() {
		s.claimOne(account, slot, currency)
	}
	return nil
}

// claimable loads the account and its pool and reports whether a claim can
// pay anything at all.
func (s *session) claimable(account common.Address) (*shareSlot, bool, error) {
	slot, err := s.share(account)
	if err != nil {
		return nil, false, err
	}
	if !slot.exists || slot.rec.Share.IsZero() {
		return slot, false, nil
	}
	ok, err := s.loadPool()
	if err != nil {
		return nil, false, err
	}
	return slot, ok, nil
}

func (s *session) claimOne(account common.Address, slot *shareSlot, currency common.Address) {
	entry := s.info.Rewards[currency]
	withdrawn := slot.rec.Withdrawn[currency]
	toWithdraw := rewardToWithdraw(slot.rec.Share, entry.Total, s.info.TotalShares, withdrawn, entry.Withdrawn)
	if toWithdraw.IsZero() {
		return
	}

	entry.Withdrawn = saturatingAdd(entry.Withdrawn, toWithdraw)
	s.info.Rewards[currency] = entry
	s.touchPool()
	slot.rec.Withdrawn[currency] = saturatingAdd(withdrawn, toWithdraw)
	slot.dirty = true

	s.payouts = append(s.payouts, model.Payout{
		Account:  account,
		Pool:     s.pool,
		Currency: currency,
		Amount:   toWithdraw,
	})
}
