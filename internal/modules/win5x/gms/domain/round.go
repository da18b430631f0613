package domain

import (
	"time"
)

// Phase is the lifecycle phase of a round. COMPLETED and CANCELLED are
// terminal; exactly one round may be in a non-terminal phase at a time.
type Phase string

const (
	PhaseBetting         Phase = "BETTING"
	PhaseSpinPreparation Phase = "SPIN_PREPARATION"
	PhaseSpinning        Phase = "SPINNING"
	PhaseResult          Phase = "RESULT"
	PhaseTransition      Phase = "TRANSITION"
	PhaseCompleted       Phase = "COMPLETED"
	PhaseCancelled       Phase = "CANCELLED"
)

// Terminal reports whether the phase is a terminal round status.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled
}

// NoWinner marks a round whose winning number has not been decided yet.
const NoWinner = -1

// RoundTotals are the settlement aggregates recorded on a completed round.
type RoundTotals struct {
	Bets      int
	Players   int
	Winners   int
	BetAmount int64
	Payout    int64
}

// HouseProfitLoss is positive when the house keeps money on the round.
func (t RoundTotals) HouseProfitLoss() int64 {
	return t.BetAmount - t.Payout
}

// Round is the scheduler's in-memory round state. It is owned and mutated by
// the state machine only; everyone else sees snapshots.
type Round struct {
	Number        int64
	Phase         Phase
	StartTime     time.Time
	BettingStart  time.Time
	BettingEnd    time.Time
	SpinStart     time.Time
	ResultTime    time.Time
	WinningNumber int
	Distribution  Distribution
	Frozen        bool
	Totals        RoundTotals
	CancelReason  string
}

// NewRound creates a round in the BETTING phase with an open betting window.
func NewRound(number int64, bettingDuration time.Duration) *Round {
	now := time.Now()
	return &Round{
		Number:        number,
		Phase:         PhaseBetting,
		StartTime:     now,
		BettingStart:  now,
		BettingEnd:    now.Add(bettingDuration),
		WinningNumber: NoWinner,
	}
}

// CanAcceptBet reports whether a bet arriving now falls inside the betting
// window. The stored BettingEnd timestamp is the authoritative boundary, not
// any countdown the clients display.
func (r *Round) CanAcceptBet() bool {
	return r.Phase == PhaseBetting && !r.Frozen && time.Now().Before(r.BettingEnd)
}

// ExtendBetting pushes the betting boundary out by d.
func (r *Round) ExtendBetting(d time.Duration) {
	r.BettingEnd = r.BettingEnd.Add(d)
}

// FreezeBets closes the bet set and records the final distribution. After
// this no bet can reach the round, and the distribution never changes.
func (r *Round) FreezeBets(dist Distribution) {
	r.Frozen = true
	r.Distribution = dist
	r.Phase = PhaseSpinPreparation
}

// SetWinner records the decided outcome. Must happen before the spin starts;
// an operator override may replace it until then, never after.
func (r *Round) SetWinner(n int) {
	r.WinningNumber = n
}

// BeginSpin transitions to SPINNING. The winner is already decided.
func (r *Round) BeginSpin() {
	r.Phase = PhaseSpinning
	r.SpinStart = time.Now()
}

// BeginResult transitions to RESULT.
func (r *Round) BeginResult() {
	r.Phase = PhaseResult
	r.ResultTime = time.Now()
}

// BeginTransition transitions to TRANSITION after settlement is complete.
func (r *Round) BeginTransition() {
	r.Phase = PhaseTransition
}

// Complete marks the round terminal with its settlement totals.
func (r *Round) Complete(totals RoundTotals) {
	r.Totals = totals
	r.Phase = PhaseCompleted
}

// Cancel marks the round terminal after all bets were refunded.
func (r *Round) Cancel(reason string) {
	r.CancelReason = reason
	r.Phase = PhaseCancelled
}

// View is a read-only snapshot of the current round handed to other modules.
// WinningNumber is NoWinner until the round reaches RESULT so the decided
// outcome cannot leak before the spin finishes.
type View struct {
	Number        int64
	Phase         Phase
	BettingStart  time.Time
	BettingEnd    time.Time
	WinningNumber int
	TimeRemaining time.Duration
}

// Snapshot builds a View with the given phase deadline.
func (r *Round) Snapshot(phaseEnd time.Time) View {
	left := time.Until(phaseEnd)
	if left < 0 {
		left = 0
	}
	winner := NoWinner
	if r.Phase == PhaseResult || r.Phase == PhaseTransition || r.Phase.Terminal() {
		winner = r.WinningNumber
	}
	return View{
		Number:        r.Number,
		Phase:         r.Phase,
		BettingStart:  r.BettingStart,
		BettingEnd:    r.BettingEnd,
		WinningNumber: winner,
		TimeRemaining: left,
	}
}
