package domain

import (
	"context"
	"time"
)

// GameRoundRepository persists round history. The scheduler calls it
// synchronously at phase boundaries, so the winner row update is durable
// before the spin animation starts.
type GameRoundRepository interface {
	Create(ctx context.Context, round *GameRound) error
	UpdateStatus(ctx context.Context, roundNumber int64, status string) error
	UpdateBettingEnd(ctx context.Context, roundNumber int64, bettingEnd time.Time) error
	RecordWinner(ctx context.Context, roundNumber int64, winningNumber int, spinStart time.Time) error
	Complete(ctx context.Context, roundNumber int64, totals RoundTotals, resultTime time.Time) error
	Cancel(ctx context.Context, roundNumber int64, reason string) error
	FindByRoundNumber(ctx context.Context, roundNumber int64) (*GameRound, error)
	// FindUnfinished returns rounds left in a non-terminal status,
	// oldest first. Used by crash recovery on startup.
	FindUnfinished(ctx context.Context) ([]*GameRound, error)
	// LastRoundNumber returns the highest round number on record, or 0
	// when the table is empty.
	LastRoundNumber(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]*GameRound, error)
}
