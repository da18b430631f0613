// Package local provides the in-process adapter for the win5x GMS module.
package local

import (
	"context"

	"github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/usecase"
	win5x "github.com/jbdekhoooff08512/Win5x/pkg/service/win5x"
)

// Handler adapts the GMS use case to the win5x.GMSService boundary for
// monolith deployments.
type Handler struct {
	gmsUC *usecase.GMSUseCase
}

// NewHandler creates a new local handler
func NewHandler(gmsUC *usecase.GMSUseCase) *Handler {
	return &Handler{
		gmsUC: gmsUC,
	}
}

// GetCurrentRound gets the current round
func (h *Handler) GetCurrentRound(ctx context.Context) (win5x.RoundView, error) {
	view, err := h.gmsUC.GetCurrentRound(ctx)
	if err != nil {
		return win5x.RoundView{}, err
	}
	return win5x.RoundView{
		RoundNumber:   view.Number,
		Phase:         string(view.Phase),
		BettingEnd:    view.BettingEnd,
		TimeRemaining: int64(view.TimeRemaining.Seconds()),
		WinningNumber: view.WinningNumber,
	}, nil
}

// RecordBet records a bet in the live aggregates
func (h *Handler) RecordBet(ctx context.Context, roundNumber, userID, amount int64, coveredNumbers []int) error {
	return h.gmsUC.RecordBet(ctx, roundNumber, userID, amount, coveredNumbers)
}

// Control applies an operator command
func (h *Handler) Control(ctx context.Context, action win5x.AdminAction) error {
	return h.gmsUC.Control(ctx, action)
}

// RoundHistory returns recently finished rounds
func (h *Handler) RoundHistory(ctx context.Context, limit int) ([]win5x.RoundRecord, error) {
	rounds, err := h.gmsUC.RoundHistory(ctx, limit)
	if err != nil {
		return nil, err
	}
	records := make([]win5x.RoundRecord, 0, len(rounds))
	for _, r := range rounds {
		records = append(records, win5x.RoundRecord{
			RoundNumber:     r.RoundNumber,
			Status:          r.Status,
			WinningNumber:   r.WinningNumber,
			TotalBets:       r.TotalBets,
			TotalPlayers:    r.TotalPlayers,
			TotalBetAmount:  r.TotalBetAmount,
			TotalPayout:     r.TotalPayout,
			HouseProfitLoss: r.HouseProfitLoss,
			BettingStart:    r.BettingStart,
			ResultTime:      r.ResultTime,
		})
	}
	return records, nil
}
