package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"poolRewards/internal/model"
)

// Changeset is the complete write set of one engine operation on one pool.
// Stores must apply it atomically.
type Changeset struct {
	Pool model.PoolID
	// Info replaces the pool row when set.
	Info *model.PoolInfo
	// Shares replaces share rows; a nil record deletes the row.
	Shares map[common.Address]*model.ShareRecord
}

// Empty reports whether the changeset writes nothing.
func (c Changeset) Empty() bool {
	return c.Info == nil && len(c.Shares) == 0
}

// Store persists pool and share rows.
type Store interface {
	LoadPool(ctx context.Context, pool model.PoolID) (model.PoolInfo, bool, error)
	LoadShare(ctx context.Context, pool model.PoolID, account common.Address) (model.ShareRecord, bool, error)
	Apply(ctx context.Context, cs Changeset) error
}

// Lister enumerates stored rows.
type Lister interface {
	Pools(ctx context.Context) ([]model.PoolID, error)
	Shares(ctx context.Context, pool model.PoolID) (map[common.Address]model.ShareRecord, error)
}

// OperationSink receives journal operations.
type OperationSink interface {
	PutOperationBatch(ops []model.Operation) error
}

// PayoutSink receives payouts emitted by claims.
type PayoutSink interface {
	PutPayoutBatch(payouts []model.Payout) error
}
