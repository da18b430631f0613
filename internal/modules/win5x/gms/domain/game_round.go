package domain

import (
	"time"
)

// Round statuses persisted on GameRound rows.
const (
	RoundStatusBetting   = "betting"
	RoundStatusSpinning  = "spinning"
	RoundStatusResult    = "result"
	RoundStatusCompleted = "completed"
	RoundStatusCancelled = "cancelled"
)

// GameRound is the persisted record of a round. Rows are created when
// betting opens and updated as the round advances; a row whose status is not
// completed or cancelled after a restart is an orphan the recovery pass has
// to resolve.
type GameRound struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	RoundNumber     int64     `gorm:"uniqueIndex;not null"`
	Status          string    `gorm:"size:16;not null;index"`
	WinningNumber   *int      `gorm:"default:null"`
	BettingStart    time.Time `gorm:"not null"`
	BettingEnd      time.Time `gorm:"not null"`
	SpinStart       *time.Time
	ResultTime      *time.Time
	TotalBets       int   `gorm:"not null;default:0"`
	TotalPlayers    int   `gorm:"not null;default:0"`
	TotalBetAmount  int64 `gorm:"not null;default:0"`
	TotalPayout     int64 `gorm:"not null;default:0"`
	HouseProfitLoss int64 `gorm:"not null;default:0"`
	CancelReason    string `gorm:"size:255"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName gives gorm the explicit table name.
func (GameRound) TableName() string {
	return "game_rounds"
}

// StatusForPhase maps a runtime phase onto the persisted status value.
// SPIN_PREPARATION and TRANSITION are sub-states of spinning and result
// respectively as far as the history table is concerned.
func StatusForPhase(p Phase) string {
	switch p {
	case PhaseBetting:
		return RoundStatusBetting
	case PhaseSpinPreparation, PhaseSpinning:
		return RoundStatusSpinning
	case PhaseResult, PhaseTransition:
		return RoundStatusResult
	case PhaseCompleted:
		return RoundStatusCompleted
	case PhaseCancelled:
		return RoundStatusCancelled
	}
	return RoundStatusBetting
}
