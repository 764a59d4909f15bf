package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolRewards/internal/config"
	"poolRewards/internal/rewards"
	"poolRewards/internal/storage/memory"
)

func TestInspectReportsPendingAndCheck(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := rewards.New(store)

	alice := common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	usdc := common.HexToAddress("0x0000000000000000000000000000000000000001")
	require.NoError(t, engine.AddShare(ctx, alice, "p", uint256.NewInt(10)))
	require.NoError(t, engine.AccumulateReward(ctx, "p", usdc, uint256.NewInt(30)))

	report, err := inspect(ctx, store, config.InspectConfig{Pool: "p", Account: alice.Hex(), Check: true})
	require.NoError(t, err)
	assert.Equal(t, "ok", report.Check)
	assert.Equal(t, "30", report.Pending[usdc])
	require.NotNil(t, report.Share)
	assert.Equal(t, "10", report.Share.Share.Dec())

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, report))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "p", decoded["pool"])

	listing, err := inspect(ctx, store, config.InspectConfig{})
	require.NoError(t, err)
	assert.Len(t, listing.Pools, 1)
}
