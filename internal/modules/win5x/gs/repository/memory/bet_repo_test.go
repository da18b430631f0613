package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/domain"
	"github.com/jbdekhoooff08512/Win5x/pkg/service"
)

func newBet(roundNumber, userID int64) *domain.Bet {
	return domain.NewBet(roundNumber, userID, domain.BetTypeNumber, "3", 100, service.WalletBetting, 5)
}

func TestBetRepository_SaveAndGet(t *testing.T) {
	repo := NewBetRepository()
	ctx := context.Background()

	b1 := newBet(1, 1001)
	b2 := newBet(1, 1002)
	require.NoError(t, repo.SaveBet(ctx, b1))
	require.NoError(t, repo.SaveBet(ctx, b2))

	bets, err := repo.GetBets(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, bets, 2)

	userBets, err := repo.GetUserBets(ctx, 1, 1001)
	require.NoError(t, err)
	require.Len(t, userBets, 1)
	assert.Equal(t, b1.BetID, userBets[0].BetID)

	empty, err := repo.GetBets(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBetRepository_SettlementQueueDrainsOnce(t *testing.T) {
	repo := NewBetRepository()
	ctx := context.Background()

	require.NoError(t, repo.SaveBet(ctx, newBet(1, 1001)))
	require.NoError(t, repo.SaveBet(ctx, newBet(1, 1002)))

	queued, err := repo.GetBetsForSettlement(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, queued, 2)

	// The queue pops; a second drain finds nothing, but history survives.
	queued, err = repo.GetBetsForSettlement(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, queued)

	bets, err := repo.GetBets(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, bets, 2)
}

func TestBetRepository_ClearBets(t *testing.T) {
	repo := NewBetRepository()
	ctx := context.Background()

	require.NoError(t, repo.SaveBet(ctx, newBet(1, 1001)))
	require.NoError(t, repo.SaveBet(ctx, newBet(2, 1001)))

	require.NoError(t, repo.ClearBets(ctx, 1))

	bets, err := repo.GetBets(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, bets)

	queued, err := repo.GetBetsForSettlement(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, queued)

	// Other rounds are untouched.
	bets, err = repo.GetBets(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, bets, 1)
}
