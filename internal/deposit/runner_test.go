package deposit

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolRewards/internal/model"
)

var (
	token    = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	custody  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	stranger = common.HexToAddress("0x2222222222222222222222222222222222222222")
	sender   = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type fakeChain struct {
	latest  uint64
	logs    []types.Log
	calls   []BlockRange
	failOne bool
}

func (f *fakeChain) GetChainID(context.Context) (*big.Int, error) {
	return big.NewInt(56), nil
}

func (f *fakeChain) LatestBlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeChain) FilterLogs(_ context.Context, from, to uint64, _ []common.Address, _ [][]common.Hash) ([]types.Log, error) {
	if f.failOne {
		f.failOne = false
		return nil, errors.New("rpc unavailable")
	}
	f.calls = append(f.calls, BlockRange{From: from, To: to})
	var out []types.Log
	for _, log := range f.logs {
		if log.BlockNumber >= from && log.BlockNumber <= to {
			out = append(out, log)
		}
	}
	return out, nil
}

type opRecorder struct {
	ops []model.Operation
}

func (r *opRecorder) PutOperationBatch(ops []model.Operation) error {
	r.ops = append(r.ops, ops...)
	return nil
}

func transferLog(t *testing.T, block uint64, index uint, to common.Address, value int64) types.Log {
	t.Helper()
	parsed, err := ERC20TransferABI()
	require.NoError(t, err)
	data, err := parsed.Events["Transfer"].Inputs.NonIndexed().Pack(big.NewInt(value))
	require.NoError(t, err)
	return types.Log{
		Address:     token,
		Topics:      []common.Hash{parsed.Events["Transfer"].ID, common.BytesToHash(sender.Bytes()), common.BytesToHash(to.Bytes())},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block)*1000 + int64(index))),
		Index:       index,
	}
}

func TestTransferTopicMatchesSignature(t *testing.T) {
	decoder, err := NewTransferDecoder()
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")), decoder.Topic0())
}

func TestRunnerEmitsCustodyDeposits(t *testing.T) {
	chain := &fakeChain{
		latest:  20,
		failOne: true,
		logs: []types.Log{
			transferLog(t, 11, 0, custody, 500),
			transferLog(t, 11, 1, stranger, 900),
			transferLog(t, 15, 3, custody, 0),
			transferLog(t, 19, 2, custody, 25),
		},
	}
	sink := &opRecorder{}
	checkpoint := filepath.Join(t.TempDir(), "deposits.json")

	runner, err := NewRunner(RunConfig{
		FromBlock:         10,
		Tokens:            []common.Address{token},
		Custody:           map[common.Address]model.PoolID{custody: "staking"},
		BatchSize:         5,
		CheckpointPath:    checkpoint,
		CheckpointEnabled: true,
		MaxRetries:        2,
		RetryBackoff:      time.Millisecond,
	}, chain, sink, nil)
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))

	require.Len(t, sink.ops, 2)
	first := sink.ops[0]
	assert.Equal(t, model.OpAccumulate, first.Kind)
	assert.Equal(t, "staking", first.Pool)
	assert.Equal(t, token.Hex(), first.Currency)
	assert.Equal(t, "500", first.Amount)
	assert.Equal(t, uint64(11<<16), first.Seq)
	assert.Equal(t, uint64(19<<16|2), sink.ops[1].Seq)
	assert.Less(t, first.Seq, sink.ops[1].Seq)

	assert.Equal(t, []BlockRange{{From: 10, To: 14}, {From: 15, To: 19}, {From: 20, To: 20}}, chain.calls)

	cursor, ok, err := CursorFile{Path: checkpoint}.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(56), cursor.ChainID)
	assert.Equal(t, uint64(20), cursor.LastBlock)
	assert.Equal(t, uint64(19<<16|2), cursor.LastSeq)
	assert.Equal(t, uint64(2), cursor.Deposits)

	// A second run starts after the cursor.
	chain.calls = nil
	chain.latest = 22
	runner, err = NewRunner(RunConfig{
		FromBlock:         10,
		Tokens:            []common.Address{token},
		Custody:           map[common.Address]model.PoolID{custody: "staking"},
		BatchSize:         5,
		CheckpointPath:    checkpoint,
		CheckpointEnabled: true,
	}, chain, sink, nil)
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))
	assert.Equal(t, []BlockRange{{From: 21, To: 22}}, chain.calls)
	assert.Len(t, sink.ops, 2)
}

func TestRunnerRequiresCustody(t *testing.T) {
	runner, err := NewRunner(RunConfig{BatchSize: 1, Tokens: []common.Address{token}}, &fakeChain{}, &opRecorder{}, nil)
	require.NoError(t, err)
	assert.Error(t, runner.Run(context.Background()))
}

func TestBuildOperationRejectsLargeLogIndex(t *testing.T) {
	log := transferLog(t, 1, maxLogIndex+1, custody, 1)
	decoder, err := NewTransferDecoder()
	require.NoError(t, err)
	transfer, err := decoder.Decode(log)
	require.NoError(t, err)
	_, err = buildOperation(56, log, transfer, "staking")
	assert.Error(t, err)
}

func TestRunnerRejectsCursorFromOtherChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deposits.json")
	require.NoError(t, CursorFile{Path: path}.Save(Cursor{ChainID: 1, LastBlock: 100}))

	runner, err := NewRunner(RunConfig{
		Tokens:            []common.Address{token},
		Custody:           map[common.Address]model.PoolID{custody: "staking"},
		BatchSize:         5,
		CheckpointPath:    path,
		CheckpointEnabled: true,
	}, &fakeChain{latest: 120}, &opRecorder{}, nil)
	require.NoError(t, err)
	assert.ErrorContains(t, runner.Run(context.Background()), "chain 1")
}

func TestCursorFile(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	file := CursorFile{Path: filepath.Join(t.TempDir(), "nested", "cursor.json"), Clock: clock}

	_, ok, err := file.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	cursor := Cursor{ChainID: 56}.next(10, 3, 10<<16|4).next(20, 0, 0)
	require.NoError(t, file.Save(cursor))

	got, ok, err := file.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(20), got.LastBlock)
	assert.Equal(t, uint64(10<<16|4), got.LastSeq)
	assert.Equal(t, uint64(3), got.Deposits)
	assert.True(t, clock.Now().Equal(got.UpdatedAt))

	disabled := CursorFile{}
	require.NoError(t, disabled.Save(cursor))
	_, ok, err = disabled.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}
