// Package usecase implements the business logic for the win5x GMS module.
package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jbdekhoooff08512/Win5x/internal/metrics"
	"github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/domain"
	"github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/machine"
	"github.com/jbdekhoooff08512/Win5x/pkg/logger"
	"github.com/jbdekhoooff08512/Win5x/pkg/service"
	win5x "github.com/jbdekhoooff08512/Win5x/pkg/service/win5x"
)

// GMSUseCase handles round scheduling, persistence and broadcasts. It owns
// the live per-outcome aggregates for the current round; GS owns the
// individual bets.
type GMSUseCase struct {
	stateMachine       *machine.StateMachine
	gatewayBroadcaster service.GatewayService
	gameRoundRepo      domain.GameRoundRepository
	settler            machine.Settler

	// live aggregates for the current round
	liveRound    int64
	distribution domain.Distribution
	betCount     int
	betPlayers   map[int64]struct{}
	frozen       bool
	mu           sync.RWMutex
}

// NewGMSUseCase creates a new round use case and hooks it into the machine's
// event stream.
func NewGMSUseCase(stateMachine *machine.StateMachine, gatewayBroadcaster service.GatewayService, gameRoundRepo domain.GameRoundRepository) *GMSUseCase {
	uc := &GMSUseCase{
		stateMachine:       stateMachine,
		gatewayBroadcaster: gatewayBroadcaster,
		gameRoundRepo:      gameRoundRepo,
		betPlayers:         make(map[int64]struct{}),
	}

	stateMachine.RegisterEventHandler(uc.handleGameEvent)

	return uc
}

// SetSettler wires the settler used by crash recovery (same instance the
// machine settles with). Setter injection breaks the GS/GMS construction
// cycle.
func (uc *GMSUseCase) SetSettler(settler machine.Settler) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.settler = settler
}

// handleGameEvent persists round state and pushes broadcasts on every
// machine event. Runs on the scheduler goroutine, so persistence here is
// durable before the machine enters the next phase.
func (uc *GMSUseCase) handleGameEvent(event machine.GameEvent) {
	ctx := context.Background()

	switch event.Type {
	case machine.EventRoundStarted:
		uc.mu.Lock()
		uc.liveRound = event.RoundNumber
		uc.distribution = domain.Distribution{}
		uc.betCount = 0
		uc.betPlayers = make(map[int64]struct{})
		uc.frozen = false
		uc.mu.Unlock()

		if err := uc.gameRoundRepo.Create(ctx, &domain.GameRound{
			RoundNumber:  event.RoundNumber,
			Status:       domain.RoundStatusBetting,
			BettingStart: time.Now(),
			BettingEnd:   event.BettingEnd,
		}); err != nil {
			logger.ErrorGlobal().Err(err).Int64("round_number", event.RoundNumber).Msg("persisting new round failed")
		}
		uc.broadcastPhase(ctx, event, domain.PhaseBetting)

	case machine.EventBettingExtended:
		if err := uc.gameRoundRepo.UpdateBettingEnd(ctx, event.RoundNumber, event.BettingEnd); err != nil {
			logger.ErrorGlobal().Err(err).Int64("round_number", event.RoundNumber).Msg("persisting betting extension failed")
		}
		uc.broadcastPhase(ctx, event, domain.PhaseBetting)

	case machine.EventBettingClosed:
		uc.mu.Lock()
		uc.distribution = event.Distribution
		uc.mu.Unlock()

		uc.broadcastPhase(ctx, event, domain.PhaseSpinPreparation)
		uc.gatewayBroadcaster.Broadcast(ctx, win5x.GameCode, domain.BetDistributionUpdate{
			RoundNumber: event.RoundNumber,
			Amounts:     event.Distribution,
			Total:       event.Distribution.Total(),
			Frozen:      true,
		})

	case machine.EventWinnerDecided:
		// Durable before SPINNING starts; never broadcast here.
		if err := uc.gameRoundRepo.RecordWinner(ctx, event.RoundNumber, event.WinningNumber, time.Now()); err != nil {
			logger.ErrorGlobal().Err(err).Int64("round_number", event.RoundNumber).Msg("persisting winning number failed")
		}

	case machine.EventSpinStarted:
		uc.broadcastPhase(ctx, event, domain.PhaseSpinning)

	case machine.EventResultShown:
		if err := uc.gameRoundRepo.UpdateStatus(ctx, event.RoundNumber, domain.RoundStatusResult); err != nil {
			logger.ErrorGlobal().Err(err).Int64("round_number", event.RoundNumber).Msg("persisting result status failed")
		}
		uc.broadcastPhase(ctx, event, domain.PhaseResult)
		uc.gatewayBroadcaster.Broadcast(ctx, win5x.GameCode, domain.RoundWinner{
			RoundNumber:   event.RoundNumber,
			WinningNumber: event.WinningNumber,
			TotalPayout:   event.Totals.Payout,
			Winners:       event.Totals.Winners,
		})

	case machine.EventRoundCompleted:
		if err := uc.gameRoundRepo.Complete(ctx, event.RoundNumber, event.Totals, time.Now()); err != nil {
			logger.ErrorGlobal().Err(err).Int64("round_number", event.RoundNumber).Msg("persisting round completion failed")
		}
		metrics.RecordRound(domain.RoundStatusCompleted, event.WinningNumber, event.Totals.HouseProfitLoss())
		uc.broadcastPhase(ctx, event, domain.PhaseTransition)

	case machine.EventRoundCancelled:
		if err := uc.gameRoundRepo.Cancel(ctx, event.RoundNumber, event.Reason); err != nil {
			logger.ErrorGlobal().Err(err).Int64("round_number", event.RoundNumber).Msg("persisting round cancellation failed")
		}
		metrics.RecordRound(domain.RoundStatusCancelled, domain.NoWinner, 0)
		uc.broadcastPhase(ctx, event, domain.PhaseCancelled)
		uc.gatewayBroadcaster.Broadcast(ctx, win5x.GameCode, domain.AdminNotification{
			RoundNumber: event.RoundNumber,
			Severity:    "warning",
			Code:        "round_cancelled",
			Message:     fmt.Sprintf("round %d cancelled: %s", event.RoundNumber, event.Reason),
		})

	case machine.EventSettlementStuck:
		metrics.RecordSettlementStuck()
		uc.gatewayBroadcaster.Broadcast(ctx, win5x.GameCode, domain.AdminNotification{
			RoundNumber: event.RoundNumber,
			Severity:    "critical",
			Code:        "settlement_stuck",
			Message:     fmt.Sprintf("round %d has unsettled bets, scheduler halted: %s", event.RoundNumber, event.Reason),
		})

	case machine.EventMachineStopped:
		uc.gatewayBroadcaster.Broadcast(ctx, win5x.GameCode, domain.AdminNotification{
			Severity: "info",
			Code:     "scheduler_stopped",
			Message:  "round scheduler stopped",
		})
	}
}

func (uc *GMSUseCase) broadcastPhase(ctx context.Context, event machine.GameEvent, phase domain.Phase) {
	uc.gatewayBroadcaster.Broadcast(ctx, win5x.GameCode, domain.PhaseUpdate{
		RoundNumber:   event.RoundNumber,
		Phase:         phase,
		Duration:      event.LeftTime,
		TimeRemaining: event.LeftTime,
		BettingEnd:    event.BettingEnd,
	})
}

// RecordBet folds an accepted bet into the live aggregates and pushes the
// updated distribution. GS calls this after the wallet debit succeeds.
func (uc *GMSUseCase) RecordBet(ctx context.Context, roundNumber, userID, amount int64, coveredNumbers []int) error {
	if !uc.stateMachine.CanAcceptBet() {
		return fmt.Errorf("betting not allowed in current phase")
	}

	current := uc.stateMachine.GetCurrentRound()
	if current.Number != roundNumber {
		logger.Warn(ctx).
			Int64("round_number", roundNumber).
			Int64("current_round", current.Number).
			Msg("bet for a stale round rejected")
		return fmt.Errorf("round %d is not the current round", roundNumber)
	}

	uc.mu.Lock()
	if uc.liveRound != roundNumber {
		uc.mu.Unlock()
		return fmt.Errorf("round %d is not the current round", roundNumber)
	}
	if uc.frozen {
		uc.mu.Unlock()
		return fmt.Errorf("betting not allowed in current phase")
	}
	for _, n := range coveredNumbers {
		if n >= 0 && n < domain.Outcomes {
			uc.distribution[n] += amount
		}
	}
	uc.betCount++
	uc.betPlayers[userID] = struct{}{}
	dist := uc.distribution
	uc.mu.Unlock()

	uc.gatewayBroadcaster.Broadcast(ctx, win5x.GameCode, domain.BetDistributionUpdate{
		RoundNumber: roundNumber,
		Amounts:     dist,
		Total:       dist.Total(),
		Frozen:      false,
	})

	return nil
}

// Distribution freezes the live aggregates for a round and returns them. The
// scheduler calls this once when the betting window closes; the freeze and
// every RecordBet fold share the same lock, so a bet is either inside the
// returned snapshot or rejected and refunded, never settled unseen.
func (uc *GMSUseCase) Distribution(ctx context.Context, roundNumber int64) (domain.Distribution, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.liveRound != roundNumber {
		return domain.Distribution{}, fmt.Errorf("round %d is not the current round", roundNumber)
	}
	uc.frozen = true
	return uc.distribution, nil
}

// GetCurrentRound returns the externally visible state of the current round.
func (uc *GMSUseCase) GetCurrentRound(ctx context.Context) (domain.View, error) {
	view := uc.stateMachine.GetCurrentRound()
	if view.Number == 0 {
		return domain.View{}, fmt.Errorf("no active round")
	}
	return view, nil
}

// Control applies an operator command to the scheduler.
func (uc *GMSUseCase) Control(ctx context.Context, action win5x.AdminAction) error {
	numberField := -1
	if action.Number != nil {
		numberField = *action.Number
	}
	logger.Info(ctx).
		Str("action", action.Action).
		Int("number", numberField).
		Int("seconds", action.Seconds).
		Str("reason", action.Reason).
		Msg("🕹️ [GMS] admin command received")

	var cmd machine.Command
	switch action.Action {
	case win5x.ActionEmergencyStop:
		cmd.EmergencyStop = true
	case win5x.ActionManualSpin:
		n := domain.NoWinner
		if action.Number != nil {
			n = *action.Number
		}
		cmd.ManualSpin = &n
	case win5x.ActionExtendBetting:
		if action.Seconds <= 0 {
			return machine.ErrInvalidDuration
		}
		cmd.ExtendBetting = time.Duration(action.Seconds) * time.Second
	case win5x.ActionCancelRound:
		reason := action.Reason
		if reason == "" {
			reason = "cancelled by operator"
		}
		cmd.CancelRound = reason
	default:
		return fmt.Errorf("unknown admin action: %s", action.Action)
	}

	if err := uc.stateMachine.Do(ctx, cmd); err != nil {
		logger.Warn(ctx).Err(err).Str("action", action.Action).Msg("admin command rejected")
		return err
	}
	if action.Action == win5x.ActionManualSpin {
		metrics.RecordManualSpin()
	}
	return nil
}

// RoundHistory returns recently finished rounds, newest first.
func (uc *GMSUseCase) RoundHistory(ctx context.Context, limit int) ([]*domain.GameRound, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return uc.gameRoundRepo.ListRecent(ctx, limit)
}

// Recover resolves rounds left non-terminal by a crash, then seeds the round
// counter. Must run before the machine starts: rounds with a recorded winner
// are settled as if the crash never happened, rounds without one are
// cancelled with refunds.
func (uc *GMSUseCase) Recover(ctx context.Context) error {
	orphans, err := uc.gameRoundRepo.FindUnfinished(ctx)
	if err != nil {
		return fmt.Errorf("loading unfinished rounds: %w", err)
	}

	for _, round := range orphans {
		if round.WinningNumber != nil {
			logger.Info(ctx).
				Int64("round_number", round.RoundNumber).
				Int("winning_number", *round.WinningNumber).
				Msg("♻️ [GMS] settling orphaned round")
			totals, err := uc.settler.SettleRound(ctx, round.RoundNumber, *round.WinningNumber)
			if err != nil {
				return fmt.Errorf("settling orphaned round %d: %w", round.RoundNumber, err)
			}
			if err := uc.gameRoundRepo.Complete(ctx, round.RoundNumber, totals, time.Now()); err != nil {
				return fmt.Errorf("completing orphaned round %d: %w", round.RoundNumber, err)
			}
			metrics.RecordRound(domain.RoundStatusCompleted, *round.WinningNumber, totals.HouseProfitLoss())
			continue
		}

		reason := "orphaned after restart"
		logger.Warn(ctx).
			Int64("round_number", round.RoundNumber).
			Msg("♻️ [GMS] refunding orphaned round without a winner")
		if err := uc.settler.RefundRound(ctx, round.RoundNumber, reason); err != nil {
			return fmt.Errorf("refunding orphaned round %d: %w", round.RoundNumber, err)
		}
		if err := uc.gameRoundRepo.Cancel(ctx, round.RoundNumber, reason); err != nil {
			return fmt.Errorf("cancelling orphaned round %d: %w", round.RoundNumber, err)
		}
		metrics.RecordRound(domain.RoundStatusCancelled, domain.NoWinner, 0)
	}

	last, err := uc.gameRoundRepo.LastRoundNumber(ctx)
	if err != nil {
		return fmt.Errorf("loading last round number: %w", err)
	}
	uc.stateMachine.SetNextRound(last)

	logger.Info(ctx).
		Int("orphans", len(orphans)).
		Int64("last_round_number", last).
		Msg("✅ [GMS] recovery finished")
	return nil
}

// RegisterEventHandler registers an additional event handler
func (uc *GMSUseCase) RegisterEventHandler(handler machine.EventHandler) {
	uc.stateMachine.RegisterEventHandler(handler)
}
