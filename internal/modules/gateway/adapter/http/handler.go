// Package http exposes the gateway's WebSocket endpoint and REST surface.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jbdekhoooff08512/Win5x/internal/modules/gateway/usecase"
	"github.com/jbdekhoooff08512/Win5x/internal/modules/gateway/ws"
	"github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/machine"
	gsusecase "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/usecase"
	"github.com/jbdekhoooff08512/Win5x/pkg/logger"
	win5x "github.com/jbdekhoooff08512/Win5x/pkg/service/win5x"
)

const roundHistoryCacheKey = "round_history"

// Handler handles HTTP/WebSocket requests
type Handler struct {
	useCase  *usecase.GatewayUseCase
	manager  *ws.Manager
	gmsSvc   win5x.GMSService
	gsSvc    win5x.GSService
	validate *validator.Validate
	cache    *gocache.Cache
}

// NewHandler creates a new HTTP handler
func NewHandler(useCase *usecase.GatewayUseCase, manager *ws.Manager, gmsSvc win5x.GMSService, gsSvc win5x.GSService) *Handler {
	return &Handler{
		useCase:  useCase,
		manager:  manager,
		gmsSvc:   gmsSvc,
		gsSvc:    gsSvc,
		validate: validator.New(),
		// Round history hits the DB; a short TTL keeps poll storms off it.
		cache: gocache.New(5*time.Second, time.Minute),
	}
}

// RegisterRoutes mounts every gateway route on the gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", gin.WrapF(h.HandleWebSocket))
	r.GET("/healthz", h.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/game/current-round", h.handleCurrentRound)
		api.GET("/game/rounds", h.handleRoundHistory)
		api.POST("/game/bet", h.handlePlaceBet)
		api.GET("/user/bets", h.handleBetHistory)
		api.POST("/admin/game/action", h.handleAdminAction)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// userIDFrom pulls the authenticated user from the request. Authentication
// itself happens upstream; by the time a request reaches this service, the
// edge has already resolved and stamped the user id.
func userIDFrom(r *http.Request) (int64, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		raw = r.URL.Query().Get("user_id")
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, errors.New("missing or invalid user id")
	}
	return userID, nil
}

// HandleWebSocket handles websocket requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Create context with Request ID for WebSocket
	ctx := logger.WebSocketContext(r)
	requestID := logger.GetRequestID(ctx)

	logger.Info(ctx).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection request")

	userID, err := userIDFrom(r)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("rejected WebSocket without user id")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("WebSocket upgrade failed")
		return
	}

	logger.Info(ctx).
		Int64("user_id", userID).
		Msg("WebSocket connection established")

	client := h.manager.Register(conn, userID)

	go client.WritePump()
	go client.ReadPump(func(userID int64, message []byte) {
		// Create new context with Request ID for each message
		msgCtx := logger.WithRequestID(context.Background(), logger.GenerateRequestID())
		msgCtx = logger.WithFields(msgCtx, map[string]interface{}{
			"user_id":       userID,
			"ws_request_id": requestID, // Original WS connection ID
		})

		logger.Debug(msgCtx).
			Int("message_size", len(message)).
			Msg("WebSocket message received")

		response, err := h.useCase.HandleMessage(msgCtx, userID, message)
		if err != nil {
			logger.Error(msgCtx).
				Err(err).
				Msg("handling message failed")

			errorResp := map[string]interface{}{
				"type":  "error",
				"error": err.Error(),
			}
			if jsonResp, err := json.Marshal(errorResp); err == nil {
				h.manager.SendToUser(userID, jsonResp)
			}
		} else if response != nil {
			h.manager.SendToUser(userID, response)
		}
	})
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"online": h.manager.Online(),
	})
}

func (h *Handler) handleCurrentRound(c *gin.Context) {
	round, err := h.gmsSvc.GetCurrentRound(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, round)
}

func (h *Handler) handleRoundHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if cached, ok := h.cache.Get(roundHistoryCacheKey); ok {
		if records, ok := cached.([]win5x.RoundRecord); ok && len(records) >= limit {
			c.JSON(http.StatusOK, gin.H{"rounds": records[:limit]})
			return
		}
	}

	records, err := h.gmsSvc.RoundHistory(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.cache.SetDefault(roundHistoryCacheKey, records)
	c.JSON(http.StatusOK, gin.H{"rounds": records})
}

// handlePlaceBet is the REST twin of the websocket place_bet command.
func (h *Handler) handlePlaceBet(c *gin.Context) {
	userID, err := userIDFrom(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var payload struct {
		BetType string `json:"bet_type"`
		Value   string `json:"value"`
		Amount  int64  `json:"amount"`
		Wallet  string `json:"wallet"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := win5x.PlaceBetReq{
		UserID:  userID,
		BetType: payload.BetType,
		Value:   payload.Value,
		Amount:  payload.Amount,
		Wallet:  payload.Wallet,
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.gsSvc.PlaceBet(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusForBetError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (h *Handler) handleBetHistory(c *gin.Context) {
	userID, err := userIDFrom(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := h.gsSvc.BetHistory(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bets": records})
}

// handleAdminAction applies an operator command to the scheduler. The admin
// surface sits behind the internal network; role checks happen upstream.
func (h *Handler) handleAdminAction(c *gin.Context) {
	var action win5x.AdminAction
	if err := c.ShouldBindJSON(&action); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(action); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.gmsSvc.Control(c.Request.Context(), action); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, machine.ErrWrongPhase),
			errors.Is(err, machine.ErrInvalidNumber),
			errors.Is(err, machine.ErrInvalidDuration):
			status = http.StatusConflict
		case errors.Is(err, machine.ErrMachineStopped):
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted", "action": action.Action})
}

// statusForBetError maps bet rejections onto HTTP statuses for the REST
// surface (the websocket path reports errors in-band).
func statusForBetError(err error) int {
	switch {
	case errors.Is(err, gsusecase.ErrBettingClosed):
		return http.StatusConflict
	case errors.Is(err, gsusecase.ErrAmountRange), errors.Is(err, gsusecase.ErrInvalidWallet):
		return http.StatusBadRequest
	case errors.Is(err, gsusecase.ErrNoActiveRound):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
