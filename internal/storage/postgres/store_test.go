package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolRewards/internal/model"
	"poolRewards/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("REWARDS_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("REWARDS_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, nil, dsn))
	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestApplyRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pool := model.PoolID("test-" + uuid.NewString())
	account := common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	currency := common.HexToAddress("0x0000000000000000000000000000000000000001")

	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 250)
	info := model.NewPoolInfo()
	info.TotalShares = *huge
	info.Rewards[currency] = model.RewardEntry{Total: *uint256.NewInt(100), Withdrawn: *uint256.NewInt(40)}
	rec := model.NewShareRecord()
	rec.Share = *huge
	rec.Withdrawn[currency] = *uint256.NewInt(40)

	require.NoError(t, store.Apply(ctx, storage.Changeset{
		Pool:   pool,
		Info:   &info,
		Shares: map[common.Address]*model.ShareRecord{account: &rec},
	}))

	gotInfo, ok, err := store.LoadPool(ctx, pool)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, info, gotInfo)

	gotRec, ok, err := store.LoadShare(ctx, pool, account)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, gotRec)

	shares, err := store.Shares(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, map[common.Address]model.ShareRecord{account: rec}, shares)

	emptied := model.NewPoolInfo()
	require.NoError(t, store.Apply(ctx, storage.Changeset{
		Pool:   pool,
		Info:   &emptied,
		Shares: map[common.Address]*model.ShareRecord{account: nil},
	}))
	gotInfo, ok, err = store.LoadPool(ctx, pool)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, emptied, gotInfo)
	_, ok, err = store.LoadShare(ctx, pool, account)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	name := "test-" + uuid.NewString()

	_, ok, err := store.LoadState(ctx, name)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveState(ctx, name, 42))
	seq, ok, err := store.LoadState(ctx, name)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), seq)
}
