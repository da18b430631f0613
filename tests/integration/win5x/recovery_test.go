package win5x_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gmsDomain "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/domain"
	gsDomain "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/domain"
	"github.com/jbdekhoooff08512/Win5x/pkg/service"
	"github.com/jbdekhoooff08512/Win5x/pkg/service/win5x"
)

// seedOrphan writes a round row and one pending order as a crash would leave
// them: durable rows present, live bet store empty.
func seedOrphan(t *testing.T, e *engine, roundNumber int64, winningNumber *int, orderID, userID int64, value string) {
	t.Helper()
	ctx := context.Background()

	round := &gmsDomain.GameRound{
		RoundNumber:  roundNumber,
		Status:       gmsDomain.RoundStatusBetting,
		BettingStart: time.Now().Add(-time.Minute),
		BettingEnd:   time.Now().Add(-30 * time.Second),
	}
	require.NoError(t, e.roundRepo.Create(ctx, round))
	if winningNumber != nil {
		require.NoError(t, e.roundRepo.RecordWinner(ctx, roundNumber, *winningNumber, time.Now().Add(-20*time.Second)))
	}

	require.NoError(t, e.orderRepo.Create(ctx, &gsDomain.BetOrder{
		OrderID:     orderID,
		UserID:      userID,
		RoundNumber: roundNumber,
		GameCode:    win5x.GameCode,
		BetType:     string(gsDomain.BetTypeNumber),
		BetValue:    value,
		Wallet:      string(service.WalletBetting),
		Amount:      100,
		Status:      gsDomain.BetOrderStatusPending,
		CreatedAt:   time.Now().Add(-time.Minute),
	}))
}

func TestRecovery_SettlesRoundWithRecordedWinner(t *testing.T) {
	e := newEngine(t, 10*time.Second)
	ctx := context.Background()

	// Round 5 crashed after the winner was decided; the bet on 4 wins.
	n := 4
	seedOrphan(t, e, 5, &n, 9001, 1001, "4")
	e.wallet.SetBalance(1001, service.WalletBetting, 900)

	require.NoError(t, e.gmsUC.Recover(ctx))

	// The winner was paid exactly as if the crash never happened.
	assert.Equal(t, int64(500), e.balances(t, 1001)[service.WalletGaming])

	round, err := e.roundRepo.FindByRoundNumber(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, round)
	assert.Equal(t, gmsDomain.RoundStatusCompleted, round.Status)
	assert.Equal(t, int64(500), round.TotalPayout)

	// The scheduler resumes after the recovered round.
	stop := e.start(t)
	defer stop()
	next := e.broadcaster.WaitFor(t, gmsDomain.EventPhaseUpdate).(gmsDomain.PhaseUpdate)
	assert.Equal(t, int64(6), next.RoundNumber)
}

func TestRecovery_RefundsRoundWithoutWinner(t *testing.T) {
	e := newEngine(t, 10*time.Second)
	ctx := context.Background()

	// Round 3 crashed mid-betting; no winner was ever recorded.
	seedOrphan(t, e, 3, nil, 9002, 1002, "7")
	e.wallet.SetBalance(1002, service.WalletBetting, 900)

	require.NoError(t, e.gmsUC.Recover(ctx))

	assert.Equal(t, int64(1000), e.balances(t, 1002)[service.WalletBetting], "stake returned to its source wallet")
	assert.Equal(t, int64(0), e.balances(t, 1002)[service.WalletGaming])

	round, err := e.roundRepo.FindByRoundNumber(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, round)
	assert.Equal(t, gmsDomain.RoundStatusCancelled, round.Status)
	assert.Equal(t, "orphaned after restart", round.CancelReason)

	orders, err := e.orderRepo.FindPendingByRound(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, orders, "refunded orders are no longer pending")
}

func TestRecovery_NothingToDo(t *testing.T) {
	e := newEngine(t, 40*time.Millisecond)
	require.NoError(t, e.gmsUC.Recover(context.Background()))

	stop := e.start(t)
	defer stop()
	first := e.broadcaster.WaitFor(t, gmsDomain.EventPhaseUpdate).(gmsDomain.PhaseUpdate)
	assert.Equal(t, int64(1), first.RoundNumber, "an empty database starts at round 1")
}
