// Package local provides local adapters for the gateway module.
package local

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jbdekhoooff08512/Win5x/internal/modules/gateway/ws"
	"github.com/jbdekhoooff08512/Win5x/pkg/logger"
	"github.com/jbdekhoooff08512/Win5x/pkg/service"
)

// Handler pushes game events to WebSocket clients.
// It implements service.GatewayService.
type Handler struct {
	wsManager *ws.Manager
}

// NewHandler creates a new gateway handler
func NewHandler(wsManager *ws.Manager) *Handler {
	return &Handler{
		wsManager: wsManager,
	}
}

// convertEvent wraps an event in the standard wire envelope. The event body
// marshals as-is under "data"; the command is the event's wire name.
func (h *Handler) convertEvent(gameCode string, event service.Event) []byte {
	jsonMsg, err := json.Marshal(map[string]interface{}{
		"game":      gameCode,
		"command":   event.EventName(),
		"data":      event,
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		logger.ErrorGlobal().Err(err).
			Str("event", event.EventName()).
			Msg("marshalling event failed, dropping")
		return nil
	}
	return jsonMsg
}

func (h *Handler) Broadcast(ctx context.Context, gameCode string, event service.Event) {
	if msgBytes := h.convertEvent(gameCode, event); msgBytes != nil {
		h.wsManager.Broadcast(msgBytes)
	}
}

func (h *Handler) SendToUser(ctx context.Context, userID int64, gameCode string, event service.Event) {
	if msgBytes := h.convertEvent(gameCode, event); msgBytes != nil {
		h.wsManager.SendToUser(userID, msgBytes)
	}
}
