package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRound_BettingWindow(t *testing.T) {
	round := NewRound(1, 30*time.Second)

	assert.Equal(t, PhaseBetting, round.Phase)
	assert.True(t, round.CanAcceptBet())

	// The stored boundary governs, not the phase alone.
	round.BettingEnd = time.Now().Add(-time.Second)
	assert.False(t, round.CanAcceptBet(), "bet after the betting boundary must be rejected")

	round.ExtendBetting(10 * time.Second)
	assert.True(t, round.CanAcceptBet(), "extension reopens the window")

	round.Frozen = true
	assert.False(t, round.CanAcceptBet(), "frozen round rejects bets regardless of the clock")
}

func TestRound_SnapshotHidesWinnerUntilResult(t *testing.T) {
	round := NewRound(7, 30*time.Second)
	round.FreezeBets(Distribution{100, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	round.SetWinner(3)

	view := round.Snapshot(time.Now().Add(10 * time.Second))
	assert.Equal(t, NoWinner, view.WinningNumber, "winner must not leak during SPIN_PREPARATION")

	round.BeginSpin()
	view = round.Snapshot(time.Now().Add(11 * time.Second))
	assert.Equal(t, NoWinner, view.WinningNumber, "winner must not leak during SPINNING")

	round.BeginResult()
	view = round.Snapshot(time.Now().Add(9 * time.Second))
	assert.Equal(t, 3, view.WinningNumber)

	assert.GreaterOrEqual(t, view.TimeRemaining, time.Duration(0))
}

func TestRound_TerminalPhases(t *testing.T) {
	round := NewRound(2, time.Second)
	round.Complete(RoundTotals{Bets: 3, Players: 2, BetAmount: 300, Payout: 500})

	assert.True(t, round.Phase.Terminal())
	assert.Equal(t, int64(-200), round.Totals.HouseProfitLoss(), "house loses when payouts exceed intake")

	cancelled := NewRound(3, time.Second)
	cancelled.Cancel("cancelled by operator")
	assert.True(t, cancelled.Phase.Terminal())
	assert.Equal(t, "cancelled by operator", cancelled.CancelReason)
}

func TestDistribution_Totals(t *testing.T) {
	var dist Distribution
	assert.True(t, dist.IsZero())
	assert.Equal(t, int64(0), dist.Total())

	dist[4] = 250
	dist[9] = 50
	assert.False(t, dist.IsZero())
	assert.Equal(t, int64(300), dist.Total())
}
