package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbdekhoooff08512/Win5x/pkg/service/win5x"
)

type fakeGS struct {
	receipt win5x.BetReceipt
	betErr  error
	state   map[string]interface{}
	history []win5x.BetRecord
	lastReq win5x.PlaceBetReq
}

func (f *fakeGS) PlaceBet(ctx context.Context, req win5x.PlaceBetReq) (win5x.BetReceipt, error) {
	f.lastReq = req
	return f.receipt, f.betErr
}

func (f *fakeGS) GetState(ctx context.Context, userID int64) (map[string]interface{}, error) {
	return f.state, nil
}

func (f *fakeGS) BetHistory(ctx context.Context, userID int64, limit int) ([]win5x.BetRecord, error) {
	return f.history, nil
}

type envelope struct {
	Game    string                 `json:"game"`
	Command string                 `json:"command"`
	Data    map[string]interface{} `json:"data"`
}

func decode(t *testing.T, raw []byte) envelope {
	t.Helper()
	var out envelope
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHandleMessage_PlaceBet(t *testing.T) {
	gs := &fakeGS{receipt: win5x.BetReceipt{BetID: 42, RoundNumber: 7, Amount: 100, PotentialPayout: 500, Balance: 900}}
	uc := NewGatewayUseCase(gs)

	resp, err := uc.HandleMessage(context.Background(), 1001,
		[]byte(`{"game":"win5x","command":"place_bet","data":{"bet_type":"number","value":"3","amount":100}}`))
	require.NoError(t, err)

	out := decode(t, resp)
	assert.Equal(t, "win5x", out.Game)
	assert.Equal(t, "place_bet_result", out.Command)
	assert.Equal(t, true, out.Data["success"])
	assert.Equal(t, float64(500), out.Data["potential_payout"])

	// The user identity comes from the connection, never the payload.
	assert.Equal(t, int64(1001), gs.lastReq.UserID)
}

func TestHandleMessage_PlaceBetValidation(t *testing.T) {
	uc := NewGatewayUseCase(&fakeGS{})

	// bet_type outside the enum never reaches the game service.
	resp, err := uc.HandleMessage(context.Background(), 1001,
		[]byte(`{"game":"win5x","command":"place_bet","data":{"bet_type":"color","value":"red","amount":100}}`))
	require.NoError(t, err)

	out := decode(t, resp)
	assert.Equal(t, "place_bet_result", out.Command)
	assert.Equal(t, false, out.Data["success"])
	assert.NotEmpty(t, out.Data["error"])
}

func TestHandleMessage_PlaceBetRejection(t *testing.T) {
	gs := &fakeGS{betErr: errors.New("betting window closed")}
	uc := NewGatewayUseCase(gs)

	resp, err := uc.HandleMessage(context.Background(), 1001,
		[]byte(`{"game":"win5x","command":"place_bet","data":{"bet_type":"odd_even","value":"odd","amount":100}}`))
	require.NoError(t, err, "a rejected bet is a result message, not a transport error")

	out := decode(t, resp)
	assert.Equal(t, false, out.Data["success"])
	assert.Contains(t, out.Data["error"], "betting window closed")
}

func TestHandleMessage_GetCurrentRound(t *testing.T) {
	gs := &fakeGS{state: map[string]interface{}{"round_number": int64(3), "phase": "BETTING"}}
	uc := NewGatewayUseCase(gs)

	resp, err := uc.HandleMessage(context.Background(), 1001,
		[]byte(`{"game":"win5x","command":"get_current_round"}`))
	require.NoError(t, err)

	out := decode(t, resp)
	assert.Equal(t, "current_round", out.Command)
	assert.Equal(t, "BETTING", out.Data["phase"])
}

func TestHandleMessage_BadRequests(t *testing.T) {
	uc := NewGatewayUseCase(&fakeGS{})
	ctx := context.Background()

	_, err := uc.HandleMessage(ctx, 1001, []byte(`not json`))
	assert.Error(t, err)

	_, err = uc.HandleMessage(ctx, 1001, []byte(`{"game":"win5x"}`))
	assert.Error(t, err, "missing command")

	_, err = uc.HandleMessage(ctx, 1001, []byte(`{"game":"poker","command":"deal"}`))
	assert.Error(t, err, "unknown game")

	_, err = uc.HandleMessage(ctx, 1001, []byte(`{"game":"win5x","command":"fold"}`))
	assert.Error(t, err, "unknown command")
}
