package rewards

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// TestRandomOperationsKeepInvariants drives the engine with seeded random
// operations and checks the pool after every step. Claimable rewards stay
// within one unit per account of what is outstanding, and what was paid plus
// what is still outstanding never exceeds what was accumulated. A removal
// moves every other account's pending rewards by at most two units: one for
// the settled account's rounding and one for the floored removal amount.
func TestRandomOperationsKeepInvariants(t *testing.T) {
	for _, seed := range []int64{1, 7, 42, 1337} {
		seed := seed
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			runRandomOperations(t, seed, 300)
		})
	}
}

func runRandomOperations(t *testing.T, seed int64, steps int) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(seed))
	engine, store, payouts := newTestEngine(t)

	accounts := make([]common.Address, 5)
	for i := range accounts {
		accounts[i] = common.BytesToAddress([]byte{0x01, byte(i)})
	}
	currencies := []common.Address{usdc, weth}

	accumulated := make(map[common.Address]uint256.Int)
	paid := make(map[common.Address]uint256.Int)

	pick := func() common.Address { return accounts[rng.Intn(len(accounts))] }
	amount := func(limit int64) *uint256.Int { return uint256.NewInt(uint64(rng.Int63n(limit) + 1)) }

	for step := 0; step < steps; step++ {
		var err error
		switch rng.Intn(7) {
		case 0, 1:
			currency := currencies[rng.Intn(len(currencies))]
			value := amount(1_000_000)
			err = engine.AccumulateReward(ctx, testPool, currency, value)
			if err == nil {
				accumulated[currency] = saturatingAdd(accumulated[currency], *value)
			}
		case 2:
			err = engine.AddShare(ctx, pick(), testPool, amount(10_000))
		case 3:
			account := pick()
			before := pendingByAccount(t, engine, accounts, account)
			err = engine.RemoveShare(ctx, account, testPool, amount(10_000))
			after := pendingByAccount(t, engine, accounts, account)
			for other, pending := range before {
				for _, currency := range currencies {
					was, now := pending[currency], after[other][currency]
					requireWithin(t, was, now, 2, "step %d: removal by %s moved %s pending %s", step, account.Hex(), other.Hex(), currency.Hex())
				}
			}
		case 4:
			err = engine.SetShare(ctx, pick(), testPool, uint256.NewInt(uint64(rng.Int63n(10_000))))
		case 5:
			if rng.Intn(2) == 0 {
				err = engine.ClaimRewards(ctx, pick(), testPool)
			} else {
				err = engine.ClaimReward(ctx, pick(), testPool, currencies[rng.Intn(len(currencies))])
			}
		case 6:
			err = engine.TransferShareAndRewards(ctx, pick(), testPool, amount(5_000), pick())
		}
		if err != nil {
			require.True(t, IsValidation(err), "step %d: unexpected error %v", step, err)
		}

		for _, payout := range payouts.take() {
			paid[payout.Currency] = saturatingAdd(paid[payout.Currency], payout.Amount)
		}

		checkPool(t, store, testPool, uint64(len(accounts)))

		info, err := engine.PoolInfo(ctx, testPool)
		require.NoError(t, err)
		for _, currency := range currencies {
			entry := info.Rewards[currency]
			outstanding := saturatingSub(entry.Total, entry.Withdrawn)
			sent := paid[currency]
			spent := saturatingAdd(sent, outstanding)
			limit := accumulated[currency]
			require.False(t, spent.Gt(&limit), "step %d: paid %s + outstanding %s > accumulated %s",
				step, sent.Dec(), outstanding.Dec(), limit.Dec())
		}
	}
}

func pendingByAccount(t *testing.T, engine *Engine, accounts []common.Address, skip common.Address) map[common.Address]map[common.Address]uint256.Int {
	t.Helper()
	out := make(map[common.Address]map[common.Address]uint256.Int, len(accounts))
	for _, account := range accounts {
		if account == skip {
			continue
		}
		pending, err := engine.PendingRewards(context.Background(), testPool, account)
		require.NoError(t, err)
		out[account] = pending
	}
	return out
}

func requireWithin(t *testing.T, a, b uint256.Int, slack uint64, msg string, args ...any) {
	t.Helper()
	diff := saturatingSub(a, b)
	if b.Gt(&a) {
		diff = saturatingSub(b, a)
	}
	require.False(t, diff.GtUint64(slack), "%s: %s vs %s", fmt.Sprintf(msg, args...), a.Dec(), b.Dec())
}
