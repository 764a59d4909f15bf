package model

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PoolID names a reward pool.
type PoolID string

// RewardEntry is the per-currency aggregate of a pool.
type RewardEntry struct {
	Total     uint256.Int
	Withdrawn uint256.Int
}

// PoolInfo is the aggregate state of a pool.
type PoolInfo struct {
	TotalShares uint256.Int
	Rewards     map[common.Address]RewardEntry
}

// NewPoolInfo returns an empty pool record.
func NewPoolInfo() PoolInfo {
	return PoolInfo{Rewards: make(map[common.Address]RewardEntry)}
}

// Clone returns a deep copy.
func (p PoolInfo) Clone() PoolInfo {
	out := PoolInfo{
		TotalShares: p.TotalShares,
		Rewards:     make(map[common.Address]RewardEntry, len(p.Rewards)),
	}
	for currency, entry := range p.Rewards {
		out.Rewards[currency] = entry
	}
	return out
}

// Currencies returns the pool's reward currencies in ascending address order.
func (p PoolInfo) Currencies() []common.Address {
	return sortedKeys(p.Rewards)
}

type rewardEntryJSON struct {
	Total     string `json:"total_reward"`
	Withdrawn string `json:"total_withdrawn_reward"`
}

type poolInfoJSON struct {
	TotalShares string                             `json:"total_shares"`
	Rewards     map[common.Address]rewardEntryJSON `json:"rewards"`
}

// MarshalJSON encodes amounts as decimal strings.
func (p PoolInfo) MarshalJSON() ([]byte, error) {
	out := poolInfoJSON{
		TotalShares: FormatAmount(p.TotalShares),
		Rewards:     make(map[common.Address]rewardEntryJSON, len(p.Rewards)),
	}
	for currency, entry := range p.Rewards {
		out.Rewards[currency] = rewardEntryJSON{
			Total:     FormatAmount(entry.Total),
			Withdrawn: FormatAmount(entry.Withdrawn),
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a PoolInfo written by MarshalJSON.
func (p *PoolInfo) UnmarshalJSON(data []byte) error {
	var in poolInfoJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	totalShares, err := ParseAmount(in.TotalShares)
	if err != nil {
		return err
	}
	out := NewPoolInfo()
	out.TotalShares = totalShares
	for currency, entry := range in.Rewards {
		total, err := ParseAmount(entry.Total)
		if err != nil {
			return err
		}
		withdrawn, err := ParseAmount(entry.Withdrawn)
		if err != nil {
			return err
		}
		out.Rewards[currency] = RewardEntry{Total: total, Withdrawn: withdrawn}
	}
	*p = out
	return nil
}

func sortedKeys[V any](m map[common.Address]V) []common.Address {
	keys := make([]common.Address, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
	return keys
}
