package rewards

import (
	"sync"

	"poolRewards/internal/model"
)

// poolLocks hands out one mutex per pool and forgets it once unused.
type poolLocks struct {
	mu    sync.Mutex
	locks map[model.PoolID]*poolLock
}

type poolLock struct {
	mu   sync.Mutex
	refs int
}

func newPoolLocks() *poolLocks {
	return &poolLocks{locks: make(map[model.PoolID]*poolLock)}
}

func (l *poolLocks) lock(pool model.PoolID) func() {
	l.mu.Lock()
	pl, ok := l.locks[pool]
	if !ok {
		pl = &poolLock{}
		l.locks[pool] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()

		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, pool)
		}
		l.mu.Unlock()
	}
}
