// Package local provides the in-process adapter for the win5x GS module.
package local

import (
	"context"

	"github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/usecase"
	win5x "github.com/jbdekhoooff08512/Win5x/pkg/service/win5x"
)

// Handler adapts the GS use case to the win5x.GSService boundary for
// monolith deployments.
type Handler struct {
	gsUC *usecase.GSUseCase
}

// NewHandler creates a new local handler
func NewHandler(gsUC *usecase.GSUseCase) *Handler {
	return &Handler{
		gsUC: gsUC,
	}
}

// PlaceBet handles placing a bet
func (h *Handler) PlaceBet(ctx context.Context, req win5x.PlaceBetReq) (win5x.BetReceipt, error) {
	bet, balance, err := h.gsUC.PlaceBet(ctx, req)
	if err != nil {
		return win5x.BetReceipt{}, err
	}
	return win5x.BetReceipt{
		BetID:           bet.BetID,
		RoundNumber:     bet.RoundNumber,
		Amount:          bet.Amount,
		PotentialPayout: bet.PotentialPayout,
		Balance:         balance,
	}, nil
}

// GetState returns the current round with the caller's bets
func (h *Handler) GetState(ctx context.Context, userID int64) (map[string]interface{}, error) {
	return h.gsUC.GetCurrentRound(ctx, userID)
}

// BetHistory returns the user's settled bets
func (h *Handler) BetHistory(ctx context.Context, userID int64, limit int) ([]win5x.BetRecord, error) {
	orders, err := h.gsUC.BetHistory(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	records := make([]win5x.BetRecord, 0, len(orders))
	for _, order := range orders {
		records = append(records, win5x.BetRecord{
			BetID:       order.OrderID,
			RoundNumber: order.RoundNumber,
			BetType:     order.BetType,
			Value:       order.BetValue,
			Amount:      order.Amount,
			Payout:      order.Payout,
			Status:      string(order.Status),
			CreatedAt:   order.CreatedAt,
			SettledAt:   order.SettledAt,
		})
	}
	return records, nil
}
