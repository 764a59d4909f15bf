package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"poolRewards/internal/model"
)

type snapshot struct {
	LastSeq   *uint64                                                `json:"last_seq,omitempty"`
	Pools     map[model.PoolID]model.PoolInfo                        `json:"pools"`
	Shares    map[model.PoolID]map[common.Address]model.ShareRecord `json:"shares"`
	UpdatedAt string                                                 `json:"updated_at"`
}

// LoadFile replaces the store contents with a snapshot written by SaveFile
// and returns the journal sequence saved with it. A missing file leaves the
// store untouched and reports no sequence.
func (s *Store) LoadFile(path string) (uint64, bool, error) {
	if path == "" {
		return 0, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, false, fmt.Errorf("parse snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pools = make(map[model.PoolID]model.PoolInfo, len(snap.Pools))
	for pool, info := range snap.Pools {
		s.pools[pool] = info
	}
	s.shares = make(map[model.PoolID]map[common.Address]model.ShareRecord, len(snap.Shares))
	for pool, rows := range snap.Shares {
		if len(rows) == 0 {
			continue
		}
		s.shares[pool] = rows
	}

	if snap.LastSeq == nil {
		return 0, false, nil
	}
	return *snap.LastSeq, true, nil
}

// SaveFile atomically writes the store contents together with the last
// applied journal sequence.
func (s *Store) SaveFile(path string, lastSeq uint64, now time.Time) error {
	if path == "" {
		return nil
	}

	s.mu.RLock()
	data, err := json.Marshal(snapshot{
		LastSeq:   &lastSeq,
		Pools:     s.pools,
		Shares:    s.shares,
		UpdatedAt: now.UTC().Format(time.RFC3339Nano),
	})
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
