package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolRewards/internal/model"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestPutPayoutBatchStampsPayouts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "payouts.jsonl")
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sink := NewJsonlStorage(path).WithClock(clockwork.NewFakeClockAt(now))

	payouts := []model.Payout{
		{
			Account:  common.HexToAddress("0xa"),
			Pool:     "p",
			Currency: common.HexToAddress("0x1"),
			Amount:   *uint256.NewInt(42),
		},
		{
			ID:       "fixed",
			Account:  common.HexToAddress("0xb"),
			Pool:     "p",
			Currency: common.HexToAddress("0x1"),
			Amount:   *uint256.NewInt(7),
		},
	}
	require.NoError(t, sink.PutPayoutBatch(payouts))
	require.NoError(t, sink.PutPayoutBatch(nil))

	lines := readLines(t, path)
	require.Len(t, lines, 2)

	var first, second model.Payout
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "fixed", second.ID)
	assert.True(t, first.PaidAt.Equal(now))
	assert.Equal(t, "42", first.Amount.Dec())
	assert.Contains(t, lines[0], `"amount":"42"`)

	// The caller's slice is left untouched.
	assert.Empty(t, payouts[0].ID)
}

func TestPutOperationBatchAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	sink := NewJsonlStorage(path)

	require.NoError(t, sink.PutOperationBatch([]model.Operation{{Seq: 1, Kind: model.OpAddShare, Pool: "p", Account: "0xa", Amount: "10"}}))
	require.NoError(t, sink.PutOperationBatch([]model.Operation{{Seq: 2, Kind: model.OpAccumulate, Pool: "p", Currency: "0x1", Amount: "5"}}))

	lines := readLines(t, path)
	require.Len(t, lines, 2)

	var op model.Operation
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &op))
	assert.Equal(t, uint64(2), op.Seq)
	assert.Equal(t, model.OpAccumulate, op.Kind)
}
