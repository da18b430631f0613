// Package memory provides memory-based repositories for the win5x GS module.
package memory

import (
	"context"
	"sync"

	"github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/domain"
)

// BetRepository implements domain.BetRepository using memory
type BetRepository struct {
	bets            map[int64][]*domain.Bet // roundNumber -> bets (History for GetUserBets)
	settlementQueue map[int64][]*domain.Bet // roundNumber -> bets (Queue for GetBetsForSettlement)
	mu              sync.RWMutex
}

// NewBetRepository creates a new memory bet repository
func NewBetRepository() *BetRepository {
	return &BetRepository{
		bets:            make(map[int64][]*domain.Bet),
		settlementQueue: make(map[int64][]*domain.Bet),
	}
}

func (r *BetRepository) SaveBet(ctx context.Context, bet *domain.Bet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 1. Add to history
	r.bets[bet.RoundNumber] = append(r.bets[bet.RoundNumber], bet)

	// 2. Add to settlement queue
	r.settlementQueue[bet.RoundNumber] = append(r.settlementQueue[bet.RoundNumber], bet)

	return nil
}

func (r *BetRepository) GetBets(ctx context.Context, roundNumber int64) ([]*domain.Bet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bets := r.bets[roundNumber]
	if bets == nil {
		return make([]*domain.Bet, 0), nil
	}
	out := make([]*domain.Bet, len(bets))
	copy(out, bets)
	return out, nil
}

func (r *BetRepository) GetUserBets(ctx context.Context, roundNumber int64, userID int64) ([]*domain.Bet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userBets := make([]*domain.Bet, 0)
	for _, bet := range r.bets[roundNumber] {
		if bet.UserID == userID {
			userBets = append(userBets, bet)
		}
	}
	return userBets, nil
}

func (r *BetRepository) ClearBets(ctx context.Context, roundNumber int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.bets, roundNumber)
	delete(r.settlementQueue, roundNumber)
	return nil
}

func (r *BetRepository) GetBetsForSettlement(ctx context.Context, roundNumber int64) ([]*domain.Bet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bets := r.settlementQueue[roundNumber]
	if len(bets) == 0 {
		return nil, nil
	}

	// Return all bets in the queue and clear the queue
	// This simulates "popping" all items
	delete(r.settlementQueue, roundNumber)

	return bets, nil
}
