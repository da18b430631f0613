package domain

import (
	"context"
	"time"
)

// RoundSummary aggregates a round's accepted bets for the round record.
type RoundSummary struct {
	Bets      int
	Players   int
	Winners   int
	BetAmount int64
	Payout    int64
}

// BetOrderRepository persists bet order rows.
type BetOrderRepository interface {
	// Create writes the durable row for an accepted bet.
	Create(ctx context.Context, order *BetOrder) error

	// Settle records the terminal status and payout of a bet exactly
	// once. Settling an already-settled order is a no-op.
	Settle(ctx context.Context, orderID int64, status BetOrderStatus, payout int64, settledAt time.Time) error

	// FindPendingByRound returns unsettled orders of a round, used to
	// re-drive settlement for orphaned rounds after a restart.
	FindPendingByRound(ctx context.Context, roundNumber int64) ([]*BetOrder, error)

	// ListByUser returns a user's bet history, newest first.
	ListByUser(ctx context.Context, userID int64, limit int) ([]*BetOrder, error)

	// TotalsByRound aggregates the round's settled orders. Refunded
	// orders are excluded.
	TotalsByRound(ctx context.Context, roundNumber int64) (RoundSummary, error)
}
