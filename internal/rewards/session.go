package rewards

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"poolRewards/internal/model"
	"poolRewards/internal/storage"
)

// session holds private copies of the rows one operation touches. Nothing
// reaches the store until the operation has succeeded.
type session struct {
	ctx   context.Context
	store storage.Store
	pool  model.PoolID

	info      model.PoolInfo
	loaded    bool
	exists    bool
	poolDirty bool

	shares  map[common.Address]*shareSlot
	payouts []model.Payout
}

type shareSlot struct {
	rec    model.ShareRecord
	exists bool
	dirty  bool
}

func newSession(ctx context.Context, store storage.Store, pool model.PoolID) *session {
	return &session{
		ctx:    ctx,
		store:  store,
		pool:   pool,
		info:   model.NewPoolInfo(),
		shares: make(map[common.Address]*shareSlot),
	}
}

// loadPool reads the pool row once and reports whether it exists.
func (s *session) loadPool() (bool, error) {
	if s.loaded {
		return s.exists, nil
	}
	info, ok, err := s.store.LoadPool(s.ctx, s.pool)
	if err != nil {
		return false, fmt.Errorf("load pool %s: %w", s.pool, err)
	}
	s.loaded = true
	s.exists = ok
	if ok {
		s.info = info.Clone()
	}
	return ok, nil
}

// ensurePool creates the pool row if it is absent.
func (s *session) ensurePool() error {
	ok, err := s.loadPool()
	if err != nil {
		return err
	}
	if !ok {
		s.info = model.NewPoolInfo()
		s.exists = true
		s.poolDirty = true
	}
	return nil
}

func (s *session) touchPool() {
	s.poolDirty = true
}

func (s *session) share(account common.Address) (*shareSlot, error) {
	if slot, ok := s.shares[account]; ok {
		return slot, nil
	}
	rec, ok, err := s.store.LoadShare(s.ctx, s.pool, account)
	if err != nil {
		return nil, fmt.Errorf("load share %s/%s: %w", s.pool, account.Hex(), err)
	}
	slot := &shareSlot{rec: model.NewShareRecord(), exists: ok}
	if ok {
		slot.rec = rec.Clone()
	}
	s.shares[account] = slot
	return slot, nil
}

func (s *session) changeset() storage.Changeset {
	cs := storage.Changeset{Pool: s.pool}
	if s.poolDirty {
		info := s.info.Clone()
		cs.Info = &info
	}
	for account, slot := range s.shares {
		if !slot.dirty {
			continue
		}
		if cs.Shares == nil {
			cs.Shares = make(map[common.Address]*model.ShareRecord)
		}
		if !slot.exists {
			cs.Shares[account] = nil
			continue
		}
		rec := slot.rec.Clone()
		cs.Shares[account] = &rec
	}
	return cs
}
