package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"poolRewards/internal/model"
	"poolRewards/internal/rewards"
)

// ErrInvalidOperation marks journal lines that cannot be turned into an
// engine call.
var ErrInvalidOperation = errors.New("replay: invalid operation")

// command is a journal operation with its fields parsed.
type command struct {
	op       model.Operation
	pool     model.PoolID
	account  common.Address
	to       common.Address
	currency common.Address
	amount   uint256.Int
}

func parseOperation(op model.Operation) (command, error) {
	cmd := command{op: op, pool: model.PoolID(strings.TrimSpace(op.Pool))}
	if cmd.pool == "" {
		return command{}, fmt.Errorf("%w: seq %d: pool is required", ErrInvalidOperation, op.Seq)
	}

	var needAccount, needTo, needCurrency, needAmount bool
	switch op.Kind {
	case model.OpAccumulate:
		needCurrency, needAmount = true, true
	case model.OpAddShare, model.OpRemoveShare, model.OpSetShare:
		needAccount, needAmount = true, true
	case model.OpClaim:
		needAccount, needCurrency = true, true
	case model.OpClaimAll:
		needAccount = true
	case model.OpTransfer:
		needAccount, needTo, needAmount = true, true, true
	default:
		return command{}, fmt.Errorf("%w: seq %d: unknown op %q", ErrInvalidOperation, op.Seq, op.Kind)
	}

	var err error
	if needAccount {
		if cmd.account, err = parseAddress("account", op.Account); err != nil {
			return command{}, fmt.Errorf("%w: seq %d: %v", ErrInvalidOperation, op.Seq, err)
		}
	}
	if needTo {
		if cmd.to, err = parseAddress("to", op.To); err != nil {
			return command{}, fmt.Errorf("%w: seq %d: %v", ErrInvalidOperation, op.Seq, err)
		}
	}
	if needCurrency {
		if cmd.currency, err = parseAddress("currency", op.Currency); err != nil {
			return command{}, fmt.Errorf("%w: seq %d: %v", ErrInvalidOperation, op.Seq, err)
		}
	}
	if needAmount {
		if strings.TrimSpace(op.Amount) == "" {
			return command{}, fmt.Errorf("%w: seq %d: amount is required", ErrInvalidOperation, op.Seq)
		}
		if cmd.amount, err = model.ParseAmount(op.Amount); err != nil {
			return command{}, fmt.Errorf("%w: seq %d: %v", ErrInvalidOperation, op.Seq, err)
		}
	}
	return cmd, nil
}

func parseAddress(field, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, fmt.Errorf("%s is required", field)
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s address: %s", field, input)
	}
	return common.HexToAddress(input), nil
}

func (c command) apply(ctx context.Context, engine *rewards.Engine) error {
	amount := c.amount
	switch c.op.Kind {
	case model.OpAccumulate:
		return engine.AccumulateReward(ctx, c.pool, c.currency, &amount)
	case model.OpAddShare:
		return engine.AddShare(ctx, c.account, c.pool, &amount)
	case model.OpRemoveShare:
		return engine.RemoveShare(ctx, c.account, c.pool, &amount)
	case model.OpSetShare:
		return engine.SetShare(ctx, c.account, c.pool, &amount)
	case model.OpClaim:
		return engine.ClaimReward(ctx, c.account, c.pool, c.currency)
	case model.OpClaimAll:
		return engine.ClaimRewards(ctx, c.account, c.pool)
	case model.OpTransfer:
		return engine.TransferShareAndRewards(ctx, c.account, c.pool, &amount, c.to)
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidOperation, c.op.Kind)
	}
}
