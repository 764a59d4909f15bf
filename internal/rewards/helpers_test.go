package rewards

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"poolRewards/internal/model"
	"poolRewards/internal/storage"
	"poolRewards/internal/storage/memory"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x00000000000000000000000000000000000ca401")

	usdc = common.HexToAddress("0x0000000000000000000000000000000000000001")
	weth = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

const testPool model.PoolID = "pool-1"

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func requireAmount(t *testing.T, want uint64, got uint256.Int) {
	t.Helper()
	require.Equal(t, uint256.NewInt(want).Dec(), got.Dec())
}

type payoutRecorder struct {
	mu      sync.Mutex
	payouts []model.Payout
}

func (r *payoutRecorder) Payout(_ context.Context, payout model.Payout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payouts = append(r.payouts, payout)
}

func (r *payoutRecorder) take() []model.Payout {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.payouts
	r.payouts = nil
	return out
}

func newTestEngine(t *testing.T) (*Engine, *memory.Store, *payoutRecorder) {
	t.Helper()
	store := memory.New()
	rec := &payoutRecorder{}
	return New(store, WithPayoutHook(rec)), store, rec
}

// failingStore rejects every Apply once armed.
type failingStore struct {
	*memory.Store
	fail bool
}

var errApply = errors.New("apply rejected")

func (s *failingStore) Apply(ctx context.Context, cs storage.Changeset) error {
	if s.fail {
		return errApply
	}
	return s.Store.Apply(ctx, cs)
}

func checkPool(t *testing.T, store *memory.Store, pool model.PoolID, tolerance uint64) {
	t.Helper()
	ctx := context.Background()
	info, ok, err := store.LoadPool(ctx, pool)
	require.NoError(t, err)
	shares, err := store.Shares(ctx, pool)
	require.NoError(t, err)
	if !ok {
		require.Empty(t, shares)
		return
	}
	require.NoError(t, CheckPool(info, shares, tolerance))
}
