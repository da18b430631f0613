package domain

import "context"

// BetRepository is the live bet store for in-flight rounds. It only holds
// bets between placement and settlement; history lives in bet_orders.
type BetRepository interface {
	// SaveBet saves a bet
	SaveBet(ctx context.Context, bet *Bet) error

	// GetBets retrieves all bets for a round
	GetBets(ctx context.Context, roundNumber int64) ([]*Bet, error)

	// GetUserBets retrieves all bets for a user in a round
	GetUserBets(ctx context.Context, roundNumber int64, userID int64) ([]*Bet, error)

	// ClearBets clears all bets for a round
	ClearBets(ctx context.Context, roundNumber int64) error

	// GetBetsForSettlement retrieves bets for settlement.
	// For Memory repo: returns all bets.
	// For Redis repo: pops a batch of bets for concurrent processing.
	GetBetsForSettlement(ctx context.Context, roundNumber int64) ([]*Bet, error)
}
