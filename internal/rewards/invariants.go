package rewards

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"poolRewards/internal/model"
)

// CheckPool verifies a pool aggregate against all of its share records.
//
// It checks that total shares equal the sum of shares, that no currency has
// paid out more than it holds, that the accounts' offsets add up to the
// pool's withdrawn total, and that the accounts' claimable amounts add up to
// the outstanding reward within tolerance units. A pool without shares only
// needs a zero withdrawn total.
func CheckPool(info model.PoolInfo, shares map[common.Address]model.ShareRecord, tolerance uint64) error {
	var errs []error

	var shareSum uint256.Int
	for _, rec := range shares {
		shareSum = saturatingAdd(shareSum, rec.Share)
	}
	if !shareSum.Eq(&info.TotalShares) {
		errs = append(errs, fmt.Errorf("total shares %s != sum of shares %s", info.TotalShares.Dec(), shareSum.Dec()))
	}

	slack := uint256.NewInt(tolerance)
	for _, currency := range info.Currencies() {
		entry := info.Rewards[currency]
		if entry.Withdrawn.Gt(&entry.Total) {
			errs = append(errs, fmt.Errorf("currency %s: withdrawn %s > total %s", currency.Hex(), entry.Withdrawn.Dec(), entry.Total.Dec()))
			continue
		}

		var offsets, claimable uint256.Int
		for _, rec := range shares {
			withdrawn := rec.Withdrawn[currency]
			offsets = saturatingAdd(offsets, withdrawn)
			entitled := mulDiv(rec.Share, entry.Total, info.TotalShares)
			claimable = saturatingAdd(claimable, saturatingSub(entitled, withdrawn))
		}
		if !offsets.Eq(&entry.Withdrawn) {
			errs = append(errs, fmt.Errorf("currency %s: sum of offsets %s != pool withdrawn %s", currency.Hex(), offsets.Dec(), entry.Withdrawn.Dec()))
		}
		// An empty pool keeps its outstanding reward for the next joiner.
		if info.TotalShares.IsZero() {
			continue
		}

		outstanding := saturatingSub(entry.Total, entry.Withdrawn)
		var diff uint256.Int
		if claimable.Gt(&outstanding) {
			diff = saturatingSub(claimable, outstanding)
		} else {
			diff = saturatingSub(outstanding, claimable)
		}
		if diff.Gt(slack) {
			errs = append(errs, fmt.Errorf("currency %s: claimable %s vs outstanding %s exceeds tolerance %d", currency.Hex(), claimable.Dec(), outstanding.Dec(), tolerance))
		}
	}

	for account, rec := range shares {
		for currency := range rec.Withdrawn {
			if _, ok := info.Rewards[currency]; !ok {
				w := rec.Withdrawn[currency]
				if !w.IsZero() {
					errs = append(errs, fmt.Errorf("account %s holds offset %s for currency %s unknown to the pool", account.Hex(), w.Dec(), currency.Hex()))
				}
			}
		}
	}

	return errors.Join(errs...)
}
