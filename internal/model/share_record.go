package model

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ShareRecord is one account's stake in a pool. Withdrawn holds, per currency,
// how much of the account's entitlement is already accounted for, either paid
// out by a claim or pre-paid when the share was added.
type ShareRecord struct {
	Share     uint256.Int
	Withdrawn map[common.Address]uint256.Int
}

// NewShareRecord returns an empty share record.
func NewShareRecord() ShareRecord {
	return ShareRecord{Withdrawn: make(map[common.Address]uint256.Int)}
}

// Clone returns a deep copy.
func (r ShareRecord) Clone() ShareRecord {
	out := ShareRecord{
		Share:     r.Share,
		Withdrawn: make(map[common.Address]uint256.Int, len(r.Withdrawn)),
	}
	for currency, amount := range r.Withdrawn {
		out.Withdrawn[currency] = amount
	}
	return out
}

// Currencies returns the currencies with a withdrawn offset in ascending address order.
func (r ShareRecord) Currencies() []common.Address {
	return sortedKeys(r.Withdrawn)
}

type shareRecordJSON struct {
	Share     string                    `json:"share"`
	Withdrawn map[common.Address]string `json:"withdrawn"`
}

// MarshalJSON encodes amounts as decimal strings.
func (r ShareRecord) MarshalJSON() ([]byte, error) {
	out := shareRecordJSON{
		Share:     FormatAmount(r.Share),
		Withdrawn: make(map[common.Address]string, len(r.Withdrawn)),
	}
	for currency, amount := range r.Withdrawn {
		out.Withdrawn[currency] = FormatAmount(amount)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a ShareRecord written by MarshalJSON.
func (r *ShareRecord) UnmarshalJSON(data []byte) error {
	var in shareRecordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	share, err := ParseAmount(in.Share)
	if err != nil {
		return err
	}
	out := NewShareRecord()
	out.Share = share
	for currency, value := range in.Withdrawn {
		amount, err := ParseAmount(value)
		if err != nil {
			return err
		}
		out.Withdrawn[currency] = amount
	}
	*r = out
	return nil
}
