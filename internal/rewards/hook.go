package rewards

import (
	"context"

	"poolRewards/internal/model"
)

// PayoutHook moves real currency once a claim has been booked. The engine
// does not observe the outcome and never rolls back on failure.
type PayoutHook interface {
	Payout(ctx context.Context, payout model.Payout)
}

// PayoutFunc adapts a plain function to PayoutHook.
type PayoutFunc func(ctx context.Context, payout model.Payout)

// Payout implements PayoutHook.
func (f PayoutFunc) Payout(ctx context.Context, payout model.Payout) {
	f(ctx, payout)
}

type nopHook struct{}

func (nopHook) Payout(context.Context, model.Payout) {}
