package model

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Payout is emitted once per non-zero claim.
type Payout struct {
	ID       string
	Account  common.Address
	Pool     PoolID
	Currency common.Address
	Amount   uint256.Int
	PaidAt   time.Time
}

type payoutJSON struct {
	ID       string         `json:"id,omitempty"`
	Account  common.Address `json:"account"`
	Pool     PoolID         `json:"pool"`
	Currency common.Address `json:"currency"`
	Amount   string         `json:"amount"`
	PaidAt   string         `json:"paid_at,omitempty"`
}

// MarshalJSON encodes the amount as a decimal string.
func (p Payout) MarshalJSON() ([]byte, error) {
	out := payoutJSON{
		ID:       p.ID,
		Account:  p.Account,
		Pool:     p.Pool,
		Currency: p.Currency,
		Amount:   FormatAmount(p.Amount),
	}
	if !p.PaidAt.IsZero() {
		out.PaidAt = p.PaidAt.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a Payout written by MarshalJSON.
func (p *Payout) UnmarshalJSON(data []byte) error {
	var in payoutJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return err
	}
	out := Payout{
		ID:       in.ID,
		Account:  in.Account,
		Pool:     in.Pool,
		Currency: in.Currency,
		Amount:   amount,
	}
	if in.PaidAt != "" {
		paidAt, err := time.Parse(time.RFC3339Nano, in.PaidAt)
		if err != nil {
			return err
		}
		out.PaidAt = paidAt
	}
	*p = out
	return nil
}
