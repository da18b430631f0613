// Package usecase implements the business logic for the win5x GS module.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jbdekhoooff08512/Win5x/internal/metrics"
	gmsdomain "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/domain"
	"github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/domain"
	"github.com/jbdekhoooff08512/Win5x/pkg/logger"
	"github.com/jbdekhoooff08512/Win5x/pkg/service"
	win5x "github.com/jbdekhoooff08512/Win5x/pkg/service/win5x"
)

// Bet rejection errors surfaced to the gateway.
var (
	ErrBettingClosed = errors.New("betting is closed for the current round")
	ErrAmountRange   = errors.New("bet amount outside allowed range")
	ErrInvalidWallet = errors.New("unknown wallet")
	ErrNoActiveRound = errors.New("no active round")
)

// GSUseCase handles player betting and settlement.
type GSUseCase struct {
	betRepo            domain.BetRepository
	betOrderRepo       domain.BetOrderRepository
	gmsService         win5x.GMSService
	walletSvc          service.WalletService
	gatewayBroadcaster service.GatewayService

	minBet     int64
	maxBet     int64
	multiplier int64

	// per-credit retry policy during settlement
	creditAttempts int
	creditBackoff  time.Duration
}

// NewGSUseCase creates a new player use case
func NewGSUseCase(
	betRepo domain.BetRepository,
	betOrderRepo domain.BetOrderRepository,
	gmsService win5x.GMSService,
	walletSvc service.WalletService,
	gatewayBroadcaster service.GatewayService,
	minBet, maxBet, multiplier int64,
) *GSUseCase {
	return &GSUseCase{
		betRepo:            betRepo,
		betOrderRepo:       betOrderRepo,
		gmsService:         gmsService,
		walletSvc:          walletSvc,
		gatewayBroadcaster: gatewayBroadcaster,
		minBet:             minBet,
		maxBet:             maxBet,
		multiplier:         multiplier,
		creditAttempts:     3,
		creditBackoff:      100 * time.Millisecond,
	}
}

// PlaceBet validates and accepts a bet on the current round. The wallet
// debit happens only after every check passes; a failure after the debit
// credits the money straight back.
func (uc *GSUseCase) PlaceBet(ctx context.Context, req win5x.PlaceBetReq) (*domain.Bet, int64, error) {
	started := time.Now()
	ctx = logger.WithFields(ctx, map[string]interface{}{
		"user_id": req.UserID,
	})

	logger.Info(ctx).
		Str("bet_type", req.BetType).
		Str("value", req.Value).
		Int64("amount", req.Amount).
		Msg("bet request received")

	if req.Amount < uc.minBet || req.Amount > uc.maxBet {
		metrics.RecordBetReject("amount_range")
		return nil, 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrAmountRange, req.Amount, uc.minBet, uc.maxBet)
	}

	wallet := service.Wallet(req.Wallet)
	if req.Wallet == "" {
		wallet = service.WalletBetting
	}
	if wallet != service.WalletBetting && wallet != service.WalletGaming {
		metrics.RecordBetReject("wallet")
		return nil, 0, ErrInvalidWallet
	}

	// 1. Get current round from GMS
	round, err := uc.gmsService.GetCurrentRound(ctx)
	if err != nil {
		metrics.RecordBetReject("no_round")
		return nil, 0, ErrNoActiveRound
	}
	ctx = logger.WithFields(ctx, map[string]interface{}{
		"round_number": round.RoundNumber,
	})
	if round.Phase != string(gmsdomain.PhaseBetting) {
		metrics.RecordBetReject("betting_closed")
		return nil, 0, ErrBettingClosed
	}
	// The stored timestamp is the authoritative boundary. The phase can lag
	// it by up to a scheduler tick, and a bet in that gap must bounce here,
	// before any money moves.
	if !time.Now().Before(round.BettingEnd) {
		metrics.RecordBetReject("betting_closed")
		return nil, 0, ErrBettingClosed
	}

	// 2. Validate the bet itself
	bet := domain.NewBet(round.RoundNumber, req.UserID, domain.BetType(req.BetType), req.Value, req.Amount, wallet, uc.multiplier)
	if err := bet.Validate(); err != nil {
		metrics.RecordBetReject("bet_value")
		return nil, 0, err
	}

	// 3. Deduct from wallet
	balance, err := uc.walletSvc.Debit(ctx, req.UserID, wallet, req.Amount, fmt.Sprintf("bet:%d", bet.BetID))
	if err != nil {
		if errors.Is(err, service.ErrInsufficientBalance) {
			metrics.RecordBetReject("insufficient_balance")
			return nil, 0, err
		}
		logger.Error(ctx).Err(err).Msg("wallet debit failed")
		metrics.RecordBetReject("wallet_error")
		return nil, 0, fmt.Errorf("failed to deduct from wallet: %w", err)
	}

	// 4. Durable bet order. The money has left the wallet, so any failure
	// from here on refunds it before returning.
	order := domain.OrderFromBet(bet, win5x.GameCode)
	if err := uc.betOrderRepo.Create(ctx, order); err != nil {
		logger.Error(ctx).Err(err).Int64("bet_id", bet.BetID).Msg("persisting bet order failed, refunding debit")
		uc.compensateDebit(ctx, bet)
		return nil, 0, fmt.Errorf("failed to persist bet: %w", err)
	}

	// 5. Record in GMS live aggregates; GMS is the authority on whether
	// the betting window is really still open.
	if err := uc.gmsService.RecordBet(ctx, round.RoundNumber, req.UserID, req.Amount, bet.CoveredNumbers()); err != nil {
		logger.Warn(ctx).Err(err).Int64("bet_id", bet.BetID).Msg("GMS rejected bet, refunding debit")
		uc.compensateDebit(ctx, bet)
		now := time.Now()
		if serr := uc.betOrderRepo.Settle(ctx, bet.BetID, domain.BetOrderStatusRefunded, 0, now); serr != nil {
			logger.Error(ctx).Err(serr).Int64("bet_id", bet.BetID).Msg("marking rejected bet refunded failed")
		}
		metrics.RecordBetReject("betting_closed")
		return nil, 0, ErrBettingClosed
	}

	// 6. Live bet store for settlement
	if err := uc.betRepo.SaveBet(ctx, bet); err != nil {
		// The order row is still pending; settlement's DB fallback will
		// pick it up, so the bet stands.
		logger.Error(ctx).Err(err).Int64("bet_id", bet.BetID).Msg("saving live bet failed, settlement will use the order row")
	}

	uc.notifyBalance(ctx, req.UserID, wallet, balance, "bet")
	uc.gatewayBroadcaster.SendToUser(ctx, req.UserID, win5x.GameCode, domain.BetAccepted{
		BetID:           bet.BetID,
		RoundNumber:     bet.RoundNumber,
		BetType:         string(bet.BetType),
		Value:           bet.Value,
		Amount:          bet.Amount,
		PotentialPayout: bet.PotentialPayout,
	})

	logger.Info(ctx).
		Int64("bet_id", bet.BetID).
		Int64("amount", bet.Amount).
		Int64("potential_payout", bet.PotentialPayout).
		Msg("bet accepted")
	metrics.RecordBet("success", string(bet.BetType), bet.Amount, started)

	return bet, balance, nil
}

// compensateDebit returns a debited stake after a post-debit failure.
func (uc *GSUseCase) compensateDebit(ctx context.Context, bet *domain.Bet) {
	balance, err := uc.walletSvc.Credit(ctx, bet.UserID, bet.Wallet, bet.Amount, fmt.Sprintf("bet_refund:%d", bet.BetID))
	if err != nil {
		// A stake is stranded; this needs an operator.
		logger.Error(ctx).Err(err).
			Int64("user_id", bet.UserID).
			Int64("bet_id", bet.BetID).
			Int64("amount", bet.Amount).
			Msg("🚨 compensating credit failed, stake stranded")
		uc.gatewayBroadcaster.Broadcast(ctx, win5x.GameCode, gmsdomain.AdminNotification{
			RoundNumber: bet.RoundNumber,
			Severity:    "critical",
			Code:        "refund_failed",
			Message:     fmt.Sprintf("compensating credit for bet %d (user %d, amount %d) failed", bet.BetID, bet.UserID, bet.Amount),
		})
		return
	}
	uc.notifyBalance(ctx, bet.UserID, bet.Wallet, balance, "bet_refund")
}

func (uc *GSUseCase) notifyBalance(ctx context.Context, userID int64, wallet service.Wallet, balance int64, reason string) {
	uc.gatewayBroadcaster.SendToUser(ctx, userID, win5x.GameCode, domain.UserBalanceUpdate{
		UserID:  userID,
		Wallet:  string(wallet),
		Balance: balance,
		Reason:  reason,
	})
}

// SettleRound settles every bet of a round against the winning number. Safe
// to call again after a partial failure or a restart: winner credits carry
// the bet ID for provider-side dedup, and order rows flip to a terminal
// status exactly once.
func (uc *GSUseCase) SettleRound(ctx context.Context, roundNumber int64, winningNumber int) (gmsdomain.RoundTotals, error) {
	started := time.Now()
	logger.Info(ctx).
		Int64("round_number", roundNumber).
		Int("winning_number", winningNumber).
		Msg("settlement started")

	failed := 0

	// 1. Drain the live bet queue.
	for {
		bets, err := uc.betRepo.GetBetsForSettlement(ctx, roundNumber)
		if err != nil {
			metrics.RecordSettlement("fail", started)
			return gmsdomain.RoundTotals{}, fmt.Errorf("loading bets for settlement: %w", err)
		}
		if len(bets) == 0 {
			break
		}
		for _, bet := range bets {
			payout := domain.Payout(bet, winningNumber, uc.multiplier)
			if !uc.settleOne(ctx, bet.BetID, bet.UserID, bet.RoundNumber, payout) {
				failed++
			}
		}
	}

	// 2. DB fallback: orders still pending (live store lost in a crash,
	// or a credit that failed last pass).
	pending, err := uc.betOrderRepo.FindPendingByRound(ctx, roundNumber)
	if err != nil {
		metrics.RecordSettlement("fail", started)
		return gmsdomain.RoundTotals{}, fmt.Errorf("loading pending orders: %w", err)
	}
	for _, order := range pending {
		payout := orderPayout(order, winningNumber, uc.multiplier)
		if !uc.settleOne(ctx, order.OrderID, order.UserID, order.RoundNumber, payout) {
			failed++
		}
	}

	_ = uc.betRepo.ClearBets(ctx, roundNumber)

	summary, err := uc.betOrderRepo.TotalsByRound(ctx, roundNumber)
	if err != nil {
		metrics.RecordSettlement("fail", started)
		return gmsdomain.RoundTotals{}, fmt.Errorf("aggregating round totals: %w", err)
	}
	totals := gmsdomain.RoundTotals{
		Bets:      summary.Bets,
		Players:   summary.Players,
		Winners:   summary.Winners,
		BetAmount: summary.BetAmount,
		Payout:    summary.Payout,
	}

	if failed > 0 {
		metrics.RecordSettlement("fail", started)
		return totals, fmt.Errorf("%d bets remain unsettled for round %d", failed, roundNumber)
	}

	logger.Info(ctx).
		Int64("round_number", roundNumber).
		Int("total_bets", totals.Bets).
		Int("winners", totals.Winners).
		Int64("total_payout", totals.Payout).
		Dur("duration_ms", time.Since(started)).
		Msg("settlement completed")
	metrics.RecordSettlement("success", started)

	return totals, nil
}

// settleOne credits a winner and flips the order row. Returns false when the
// credit exhausted its retries; the order stays pending for the next pass.
func (uc *GSUseCase) settleOne(ctx context.Context, orderID, userID, roundNumber int64, payout int64) bool {
	status := domain.BetOrderStatusLost
	if payout > 0 {
		// Winnings always land in the gaming wallet.
		balance, ok := uc.creditWithRetry(ctx, userID, service.WalletGaming, payout, fmt.Sprintf("win:%d", orderID))
		if !ok {
			logger.Error(ctx).
				Int64("order_id", orderID).
				Int64("user_id", userID).
				Int64("payout", payout).
				Msg("winner credit exhausted retries, order left pending")
			return false
		}
		status = domain.BetOrderStatusWon
		uc.notifyBalance(ctx, userID, service.WalletGaming, balance, "win")
	}

	if err := uc.betOrderRepo.Settle(ctx, orderID, status, payout, time.Now()); err != nil {
		// The credit went through; the status guard keeps a re-run from
		// paying twice, so just report and retry next pass.
		logger.Error(ctx).Err(err).Int64("order_id", orderID).Msg("flipping order status failed")
		return false
	}

	uc.gatewayBroadcaster.SendToUser(ctx, userID, win5x.GameCode, domain.BetSettled{
		BetID:       orderID,
		RoundNumber: roundNumber,
		Status:      string(status),
		Payout:      payout,
	})
	return true
}

func (uc *GSUseCase) creditWithRetry(ctx context.Context, userID int64, wallet service.Wallet, amount int64, reason string) (int64, bool) {
	var lastErr error
	for attempt := 1; attempt <= uc.creditAttempts; attempt++ {
		balance, err := uc.walletSvc.Credit(ctx, userID, wallet, amount, reason)
		if err == nil {
			return balance, true
		}
		lastErr = err
		if attempt < uc.creditAttempts {
			metrics.RecordSettlementRetry()
			time.Sleep(uc.creditBackoff * time.Duration(attempt))
		}
	}
	logger.ErrorGlobal().Err(lastErr).
		Int64("user_id", userID).
		Str("reason", reason).
		Msg("wallet credit failed after retries")
	return 0, false
}

// orderPayout recomputes a payout from the durable order row when the live
// bet object is gone.
func orderPayout(order *domain.BetOrder, winningNumber int, multiplier int64) int64 {
	bet := &domain.Bet{
		BetType: domain.BetType(order.BetType),
		Value:   order.BetValue,
		Amount:  order.Amount,
	}
	return domain.Payout(bet, winningNumber, multiplier)
}

// RefundRound returns every stake of a cancelled round. Idempotent the same
// way settlement is.
func (uc *GSUseCase) RefundRound(ctx context.Context, roundNumber int64, reason string) error {
	logger.Warn(ctx).
		Int64("round_number", roundNumber).
		Str("reason", reason).
		Msg("refunding round")

	failed := 0

	for {
		bets, err := uc.betRepo.GetBetsForSettlement(ctx, roundNumber)
		if err != nil {
			return fmt.Errorf("loading bets for refund: %w", err)
		}
		if len(bets) == 0 {
			break
		}
		for _, bet := range bets {
			if !uc.refundOne(ctx, bet.BetID, bet.UserID, bet.RoundNumber, bet.Wallet, bet.Amount) {
				failed++
			}
		}
	}

	pending, err := uc.betOrderRepo.FindPendingByRound(ctx, roundNumber)
	if err != nil {
		return fmt.Errorf("loading pending orders for refund: %w", err)
	}
	for _, order := range pending {
		if !uc.refundOne(ctx, order.OrderID, order.UserID, order.RoundNumber, service.Wallet(order.Wallet), order.Amount) {
			failed++
		}
	}

	_ = uc.betRepo.ClearBets(ctx, roundNumber)

	if failed > 0 {
		return fmt.Errorf("%d stakes remain unrefunded for round %d", failed, roundNumber)
	}
	return nil
}

func (uc *GSUseCase) refundOne(ctx context.Context, orderID, userID, roundNumber int64, wallet service.Wallet, amount int64) bool {
	balance, ok := uc.creditWithRetry(ctx, userID, wallet, amount, fmt.Sprintf("refund:%d", orderID))
	if !ok {
		return false
	}
	if err := uc.betOrderRepo.Settle(ctx, orderID, domain.BetOrderStatusRefunded, 0, time.Now()); err != nil {
		logger.Error(ctx).Err(err).Int64("order_id", orderID).Msg("marking order refunded failed")
		return false
	}
	uc.notifyBalance(ctx, userID, wallet, balance, "refund")
	uc.gatewayBroadcaster.SendToUser(ctx, userID, win5x.GameCode, domain.BetSettled{
		BetID:       orderID,
		RoundNumber: roundNumber,
		Status:      string(domain.BetOrderStatusRefunded),
		Payout:      0,
	})
	return true
}

// GetCurrentRound gets the current round info with the caller's live bets.
func (uc *GSUseCase) GetCurrentRound(ctx context.Context, userID int64) (map[string]interface{}, error) {
	round, err := uc.gmsService.GetCurrentRound(ctx)
	if err != nil {
		return nil, err
	}

	playerBets, err := uc.betRepo.GetUserBets(ctx, round.RoundNumber, userID)
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Int64("round_number", round.RoundNumber).
			Int64("user_id", userID).
			Msg("Failed to get user bets")
		// Don't fail the request, just return empty bets
		playerBets = []*domain.Bet{}
	}

	bets := make([]map[string]interface{}, 0, len(playerBets))
	for _, bet := range playerBets {
		bets = append(bets, map[string]interface{}{
			"bet_id":           bet.BetID,
			"bet_type":         string(bet.BetType),
			"value":            bet.Value,
			"amount":           bet.Amount,
			"potential_payout": bet.PotentialPayout,
		})
	}

	return map[string]interface{}{
		"round_number":           round.RoundNumber,
		"phase":                  round.Phase,
		"betting_end":            round.BettingEnd,
		"time_remaining_seconds": round.TimeRemaining,
		"winning_number":         round.WinningNumber,
		"player_bets":            bets,
	}, nil
}

// BetHistory returns the user's bet orders, newest first.
func (uc *GSUseCase) BetHistory(ctx context.Context, userID int64, limit int) ([]*domain.BetOrder, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return uc.betOrderRepo.ListByUser(ctx, userID, limit)
}
