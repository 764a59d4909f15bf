package replay

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"poolRewards/internal/model"
	"poolRewards/internal/rewards"
)

var _ rewards.PayoutHook = (*PayoutBuffer)(nil)

var payoutNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("poolRewards/payout"))

type seqKey struct{}

// withSeq tags ctx with the journal seq of the operation being applied.
func withSeq(ctx context.Context, seq uint64) context.Context {
	return context.WithValue(ctx, seqKey{}, seq)
}

func seqFrom(ctx context.Context) (uint64, bool) {
	seq, ok := ctx.Value(seqKey{}).(uint64)
	return seq, ok
}

// payoutID is stable across replays of the same journal line. One operation
// pays an account at most once per currency.
func payoutID(seq uint64, payout model.Payout) string {
	name := fmt.Sprintf("%d/%s/%s/%s", seq, payout.Pool, payout.Account.Hex(), payout.Currency.Hex())
	return uuid.NewSHA1(payoutNamespace, []byte(name)).String()
}

// PayoutBuffer collects payouts until the runner flushes them with the
// batch that produced them.
type PayoutBuffer struct {
	mu      sync.Mutex
	payouts []model.Payout
}

func NewPayoutBuffer() *PayoutBuffer {
	return &PayoutBuffer{}
}

func (b *PayoutBuffer) Payout(ctx context.Context, payout model.Payout) {
	if seq, ok := seqFrom(ctx); ok && payout.ID == "" {
		payout.ID = payoutID(seq, payout)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payouts = append(b.payouts, payout)
}

// Drain returns the buffered payouts and empties the buffer.
func (b *PayoutBuffer) Drain() []model.Payout {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.payouts
	b.payouts = nil
	return out
}
