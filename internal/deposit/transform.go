package deposit

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"poolRewards/internal/model"
)

// maxLogIndex bounds the log index packed into the low bits of a sequence.
const maxLogIndex = 1<<16 - 1

// Transfer is a decoded ERC-20 Transfer event.
type Transfer struct {
	Token common.Address
	From  common.Address
	To    common.Address
	Value uint256.Int
}

// TransferDecoder decodes ERC-20 Transfer logs.
type TransferDecoder struct {
	event abi.Event
}

func NewTransferDecoder() (*TransferDecoder, error) {
	parsed, err := ERC20TransferABI()
	if err != nil {
		return nil, err
	}
	return &TransferDecoder{event: parsed.Events["Transfer"]}, nil
}

// Topic0 returns the Transfer event signature hash.
func (d *TransferDecoder) Topic0() common.Hash {
	return d.event.ID
}

// Decode converts a Transfer log into a Transfer.
func (d *TransferDecoder) Decode(log types.Log) (Transfer, error) {
	if len(log.Topics) != 3 {
		return Transfer{}, fmt.Errorf("transfer log has %d topics", len(log.Topics))
	}
	if log.Topics[0] != d.event.ID {
		return Transfer{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}

	values, err := d.event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return Transfer{}, fmt.Errorf("unpack transfer: %w", err)
	}
	if len(values) != 1 {
		return Transfer{}, fmt.Errorf("unexpected transfer values: %d", len(values))
	}
	raw, ok := values[0].(*big.Int)
	if !ok {
		return Transfer{}, fmt.Errorf("transfer value type %T", values[0])
	}
	value, overflow := uint256.FromBig(raw)
	if overflow {
		return Transfer{}, fmt.Errorf("transfer value overflows 256 bits")
	}

	return Transfer{
		Token: log.Address,
		From:  common.BytesToAddress(log.Topics[1].Bytes()),
		To:    common.BytesToAddress(log.Topics[2].Bytes()),
		Value: *value,
	}, nil
}

// buildOperation turns a custody deposit into an accumulate operation. The
// sequence orders deposits by block and log index.
func buildOperation(chainID uint64, log types.Log, transfer Transfer, pool model.PoolID) (model.Operation, error) {
	if log.Index > maxLogIndex {
		return model.Operation{}, fmt.Errorf("log index %d does not fit in a sequence", log.Index)
	}
	if log.BlockNumber > (1<<48)-1 {
		return model.Operation{}, fmt.Errorf("block number %d does not fit in a sequence", log.BlockNumber)
	}
	return model.Operation{
		Seq:      log.BlockNumber<<16 | uint64(log.Index),
		Kind:     model.OpAccumulate,
		Pool:     string(pool),
		Currency: transfer.Token.Hex(),
		Amount:   model.FormatAmount(transfer.Value),
		Source:   fmt.Sprintf("%d:%s:%d", chainID, log.TxHash.Hex(), log.Index),
	}, nil
}
