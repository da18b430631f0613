// Package usecase implements the business logic for the gateway module.
package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/jbdekhoooff08512/Win5x/pkg/logger"
	win5x "github.com/jbdekhoooff08512/Win5x/pkg/service/win5x"
)

// GatewayUseCase routes client messages to game services.
type GatewayUseCase struct {
	gsSvc    win5x.GSService
	validate *validator.Validate
}

// NewGatewayUseCase creates a new gateway use case
func NewGatewayUseCase(gsSvc win5x.GSService) *GatewayUseCase {
	return &GatewayUseCase{
		gsSvc:    gsSvc,
		validate: validator.New(),
	}
}

// RequestEnvelope defines the standard request structure
type RequestEnvelope struct {
	Game    string          `json:"game"`
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data"`
}

// HandleMessage forwards a message to the owning game service
func (uc *GatewayUseCase) HandleMessage(ctx context.Context, userID int64, message []byte) ([]byte, error) {
	var req RequestEnvelope
	if err := json.Unmarshal(message, &req); err != nil {
		return nil, fmt.Errorf("invalid message format: %w", err)
	}

	if req.Game == "" || req.Command == "" {
		return nil, fmt.Errorf("missing game or command")
	}

	switch req.Game {
	case win5x.GameCode:
		return uc.handleWin5x(ctx, userID, req.Command, req.Data)
	default:
		return nil, fmt.Errorf("unknown game: %s", req.Game)
	}
}

func (uc *GatewayUseCase) handleWin5x(ctx context.Context, userID int64, command string, data []byte) ([]byte, error) {
	switch command {
	case "place_bet":
		var payload struct {
			BetType string `json:"bet_type"`
			Value   string `json:"value"`
			Amount  int64  `json:"amount"`
			Wallet  string `json:"wallet"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			logger.Error(ctx).
				Err(err).
				Int64("user_id", userID).
				Str("command", command).
				Msg("Failed to unmarshal place_bet payload")
			return nil, fmt.Errorf("invalid place_bet payload: %w", err)
		}

		betReq := win5x.PlaceBetReq{
			UserID:  userID,
			BetType: payload.BetType,
			Value:   payload.Value,
			Amount:  payload.Amount,
			Wallet:  payload.Wallet,
		}
		if err := uc.validate.Struct(betReq); err != nil {
			return uc.betError(ctx, userID, fmt.Sprintf("invalid bet: %v", err))
		}

		receipt, err := uc.gsSvc.PlaceBet(ctx, betReq)
		if err != nil {
			return uc.betError(ctx, userID, err.Error())
		}

		return json.Marshal(map[string]interface{}{
			"game":    win5x.GameCode,
			"command": "place_bet_result",
			"data": map[string]interface{}{
				"success":          true,
				"bet_id":           receipt.BetID,
				"round_number":     receipt.RoundNumber,
				"amount":           receipt.Amount,
				"potential_payout": receipt.PotentialPayout,
				"balance":          receipt.Balance,
			},
		})

	case "get_current_round":
		state, err := uc.gsSvc.GetState(ctx, userID)
		if err != nil {
			logger.Error(ctx).
				Err(err).
				Int64("user_id", userID).
				Str("command", command).
				Msg("get_current_round failed")
			return json.Marshal(map[string]interface{}{
				"game":    win5x.GameCode,
				"command": "error",
				"data": map[string]interface{}{
					"error": err.Error(),
				},
			})
		}

		return json.Marshal(map[string]interface{}{
			"game":    win5x.GameCode,
			"command": "current_round",
			"data":    state,
		})

	case "bet_history":
		var payload struct {
			Limit int `json:"limit"`
		}
		// Optional payload, defaults apply on error
		_ = json.Unmarshal(data, &payload)

		records, err := uc.gsSvc.BetHistory(ctx, userID, payload.Limit)
		if err != nil {
			logger.Error(ctx).
				Err(err).
				Int64("user_id", userID).
				Str("command", command).
				Msg("bet_history failed")
			return nil, err
		}
		return json.Marshal(map[string]interface{}{
			"game":    win5x.GameCode,
			"command": "bet_history",
			"data": map[string]interface{}{
				"bets": records,
			},
		})

	default:
		logger.Error(ctx).
			Int64("user_id", userID).
			Str("command", command).
			Msg("Unknown command for win5x")
		return nil, fmt.Errorf("unknown command for win5x: %s", command)
	}
}

func (uc *GatewayUseCase) betError(ctx context.Context, userID int64, msg string) ([]byte, error) {
	logger.Warn(ctx).
		Int64("user_id", userID).
		Str("error", msg).
		Msg("place_bet rejected")
	return json.Marshal(map[string]interface{}{
		"game":    win5x.GameCode,
		"command": "place_bet_result",
		"data": map[string]interface{}{
			"success": false,
			"error":   msg,
		},
	})
}
