package domain

import (
	"time"
)

// Socket event names pushed by the round scheduler.
const (
	EventPhaseUpdate       = "phase_update"
	EventBetDistribution   = "bet_distribution"
	EventRoundWinner       = "round_winner"
	EventAdminNotification = "admin_notification"
)

// PhaseUpdate is broadcast on every phase transition so clients can drive
// their countdowns and UI state.
type PhaseUpdate struct {
	RoundNumber   int64     `json:"round_number"`
	Phase         Phase     `json:"phase"`
	Duration      int64     `json:"duration_seconds"`
	TimeRemaining int64     `json:"time_remaining_seconds"`
	BettingEnd    time.Time `json:"betting_end"`
}

func (PhaseUpdate) EventName() string { return EventPhaseUpdate }

// BetDistributionUpdate is broadcast as live bets reshape the per-outcome
// exposure during BETTING, and once more when the bet set freezes.
type BetDistributionUpdate struct {
	RoundNumber int64           `json:"round_number"`
	Amounts     [Outcomes]int64 `json:"amounts"`
	Total       int64           `json:"total"`
	Frozen      bool            `json:"frozen"`
}

func (BetDistributionUpdate) EventName() string { return EventBetDistribution }

// RoundWinner is broadcast when the round enters RESULT. This is the first
// moment the decided number is visible outside the scheduler.
type RoundWinner struct {
	RoundNumber   int64 `json:"round_number"`
	WinningNumber int   `json:"winning_number"`
	TotalPayout   int64 `json:"total_payout"`
	Winners       int   `json:"winners"`
}

func (RoundWinner) EventName() string { return EventRoundWinner }

// AdminNotification alerts operator consoles about degraded conditions such
// as settlement retries running out or an emergency stop.
type AdminNotification struct {
	RoundNumber int64  `json:"round_number,omitempty"`
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	Message     string `json:"message"`
}

func (AdminNotification) EventName() string { return EventAdminNotification }
