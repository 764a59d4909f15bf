package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"poolRewards/internal/model"
	"poolRewards/internal/storage"
)

var (
	_ storage.Store  = (*Store)(nil)
	_ storage.Lister = (*Store)(nil)
)

// Store keeps pools and shares in process memory. Rows are copied on the
// way in and out so callers never share maps with the store.
type Store struct {
	mu     sync.RWMutex
	pools  map[model.PoolID]model.PoolInfo
	shares map[model.PoolID]map[common.Address]model.ShareRecord
}

func New() *Store {
	return &Store{
		pools:  make(map[model.PoolID]model.PoolInfo),
		shares: make(map[model.PoolID]map[common.Address]model.ShareRecord),
	}
}

func (s *Store) LoadPool(_ context.Context, pool model.PoolID) (model.PoolInfo, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.pools[pool]
	if !ok {
		return model.PoolInfo{}, false, nil
	}
	return info.Clone(), true, nil
}

func (s *Store) LoadShare(_ context.Context, pool model.PoolID, account common.Address) (model.ShareRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.shares[pool][account]
	if !ok {
		return model.ShareRecord{}, false, nil
	}
	return rec.Clone(), true, nil
}

// Apply writes the changeset under a single lock.
func (s *Store) Apply(_ context.Context, cs storage.Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cs.Info != nil {
		s.pools[cs.Pool] = cs.Info.Clone()
	}

	for account, rec := range cs.Shares {
		if rec == nil {
			if rows, ok := s.shares[cs.Pool]; ok {
				delete(rows, account)
				if len(rows) == 0 {
					delete(s.shares, cs.Pool)
				}
			}
			continue
		}
		rows, ok := s.shares[cs.Pool]
		if !ok {
			rows = make(map[common.Address]model.ShareRecord)
			s.shares[cs.Pool] = rows
		}
		rows[account] = rec.Clone()
	}
	return nil
}

// Pools lists pool ids in ascending order.
func (s *Store) Pools(_ context.Context) ([]model.PoolID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.PoolID, 0, len(s.pools))
	for pool := range s.pools {
		out = append(out, pool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) Shares(_ context.Context, pool model.PoolID) (map[common.Address]model.ShareRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[common.Address]model.ShareRecord, len(s.shares[pool]))
	for account, rec := range s.shares[pool] {
		out[account] = rec.Clone()
	}
	return out, nil
}
