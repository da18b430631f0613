// Package win5x defines the service boundary between the win5x game modules
// and their consumers (gateway, admin surface). Deployments wire either local
// adapters (monolith) or remote ones behind these interfaces.
package win5x

import (
	"context"
	"time"
)

// GameCode identifies this game on the gateway wire.
const GameCode = "win5x"

// RoundView is the externally visible state of the current round. The
// winning number reads -1 until the round reaches RESULT.
type RoundView struct {
	RoundNumber   int64     `json:"round_number"`
	Phase         string    `json:"phase"`
	BettingEnd    time.Time `json:"betting_end"`
	TimeRemaining int64     `json:"time_remaining_seconds"`
	WinningNumber int       `json:"winning_number"`
}

// PlaceBetReq carries a bet request from the gateway to GS.
type PlaceBetReq struct {
	UserID  int64  `json:"user_id" validate:"required,gt=0"`
	BetType string `json:"bet_type" validate:"required,oneof=number odd_even"`
	Value   string `json:"value" validate:"required,max=8"`
	Amount  int64  `json:"amount" validate:"required,gt=0"`
	Wallet  string `json:"wallet" validate:"omitempty,oneof=betting gaming"`
}

// BetReceipt confirms an accepted bet.
type BetReceipt struct {
	BetID           int64 `json:"bet_id"`
	RoundNumber     int64 `json:"round_number"`
	Amount          int64 `json:"amount"`
	PotentialPayout int64 `json:"potential_payout"`
	Balance         int64 `json:"balance"`
}

// BetRecord is one row of a user's bet history.
type BetRecord struct {
	BetID       int64      `json:"bet_id"`
	RoundNumber int64      `json:"round_number"`
	BetType     string     `json:"bet_type"`
	Value       string     `json:"value"`
	Amount      int64      `json:"amount"`
	Payout      int64      `json:"payout"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	SettledAt   *time.Time `json:"settled_at,omitempty"`
}

// Admin actions accepted by Control.
const (
	ActionEmergencyStop = "emergency_stop"
	ActionManualSpin    = "manual_spin"
	ActionExtendBetting = "extend_betting"
	ActionCancelRound   = "cancel_round"
)

// AdminAction is an operator command against the round scheduler.
type AdminAction struct {
	Action  string `json:"action" validate:"required,oneof=emergency_stop manual_spin extend_betting cancel_round"`
	Number  *int   `json:"number,omitempty" validate:"omitempty,min=0,max=9"`
	Seconds int    `json:"seconds" validate:"min=0,max=120"`
	Reason  string `json:"reason" validate:"max=255"`
}

// GMSService is the round scheduler boundary.
type GMSService interface {
	// GetCurrentRound returns the externally visible round state.
	GetCurrentRound(ctx context.Context) (RoundView, error)

	// RecordBet folds an accepted bet into the live per-outcome
	// aggregates. coveredNumbers lists every outcome the bet pays on.
	RecordBet(ctx context.Context, roundNumber, userID, amount int64, coveredNumbers []int) error

	// Control applies an operator command.
	Control(ctx context.Context, action AdminAction) error

	// RoundHistory returns recently finished rounds, newest first.
	RoundHistory(ctx context.Context, limit int) ([]RoundRecord, error)
}

// RoundRecord is one row of finished round history.
type RoundRecord struct {
	RoundNumber     int64      `json:"round_number"`
	Status          string     `json:"status"`
	WinningNumber   *int       `json:"winning_number,omitempty"`
	TotalBets       int        `json:"total_bets"`
	TotalPlayers    int        `json:"total_players"`
	TotalBetAmount  int64      `json:"total_bet_amount"`
	TotalPayout     int64      `json:"total_payout"`
	HouseProfitLoss int64      `json:"house_profit_loss"`
	BettingStart    time.Time  `json:"betting_start"`
	ResultTime      *time.Time `json:"result_time,omitempty"`
}

// GSService is the bet service boundary.
type GSService interface {
	// PlaceBet validates, debits and records a bet on the current round.
	PlaceBet(ctx context.Context, req PlaceBetReq) (BetReceipt, error)

	// GetState returns the current round plus the caller's live bets,
	// shaped for the websocket state push.
	GetState(ctx context.Context, userID int64) (map[string]interface{}, error)

	// BetHistory returns the user's settled bets, newest first.
	BetHistory(ctx context.Context, userID int64, limit int) ([]BetRecord, error)
}
