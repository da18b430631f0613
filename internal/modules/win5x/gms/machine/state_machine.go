package machine

import (
	"context"
	"sync"
	"time"

	"github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/domain"
	"github.com/jbdekhoooff08512/Win5x/pkg/logger"
)

// EventType identifies a scheduler event.
type EventType string

const (
	EventRoundStarted    EventType = "ROUND_STARTED"
	EventBettingExtended EventType = "BETTING_EXTENDED"
	EventBettingClosed   EventType = "BETTING_CLOSED"
	EventWinnerDecided   EventType = "WINNER_DECIDED"
	EventSpinStarted     EventType = "SPIN_STARTED"
	EventResultShown     EventType = "RESULT_SHOWN"
	EventRoundCompleted  EventType = "ROUND_COMPLETED"
	EventRoundCancelled  EventType = "ROUND_CANCELLED"
	EventSettlementStuck EventType = "SETTLEMENT_STUCK"
	EventMachineStopped  EventType = "MACHINE_STOPPED"
)

// GameEvent carries a scheduler event to registered handlers.
type GameEvent struct {
	Type          EventType
	RoundNumber   int64
	Phase         domain.Phase
	WinningNumber int
	Distribution  domain.Distribution
	Totals        domain.RoundTotals
	Reason        string
	LeftTime      int64
	BettingEnd    time.Time
}

// EventHandler handles scheduler events. Handlers run synchronously on the
// scheduler goroutine, so a handler that persists the winner returns before
// the spin phase starts.
type EventHandler func(event GameEvent)

// BetSource supplies the frozen bet distribution when betting closes.
type BetSource interface {
	Distribution(ctx context.Context, roundNumber int64) (domain.Distribution, error)
}

// Settler settles or refunds every bet of a round. Implementations retry
// individual credits internally; an error means bets remain unsettled and the
// scheduler must not move on.
type Settler interface {
	SettleRound(ctx context.Context, roundNumber int64, winningNumber int) (domain.RoundTotals, error)
	RefundRound(ctx context.Context, roundNumber int64, reason string) error
}

// StateMachine drives the round lifecycle on a single goroutine: BETTING,
// SPIN_PREPARATION, SPINNING, RESULT, TRANSITION, then the next round. Admin
// commands are injected through a channel and handled between timer waits, so
// there is never more than one non-terminal round.
type StateMachine struct {
	mu           sync.RWMutex
	currentRound *domain.Round
	roundCounter int64
	phaseEndTime time.Time

	eventHandlers []EventHandler
	selector      *domain.Selector
	bets          BetSource
	settler       Settler

	commands chan Command
	running  bool
	stopping bool

	BettingDuration  time.Duration
	PrepareDuration  time.Duration
	SpinningDuration time.Duration
	ResultDuration   time.Duration
	WaitDuration     time.Duration // TRANSITION pause before the next round
	MaxBettingTime   time.Duration // hard cap on BETTING including extensions

	// settlement retry policy for the RESULT phase
	SettleAttempts int
	SettleBackoff  time.Duration
}

// NewStateMachine creates a scheduler with default phase durations. The
// caller overrides the duration fields from config and wires the bet source
// and settler through SetCollaborators before Start.
func NewStateMachine(selector *domain.Selector) *StateMachine {
	return &StateMachine{
		eventHandlers:    make([]EventHandler, 0),
		selector:         selector,
		commands:         make(chan Command),
		BettingDuration:  30 * time.Second,
		PrepareDuration:  10 * time.Second,
		SpinningDuration: 11 * time.Second,
		ResultDuration:   9 * time.Second,
		WaitDuration:     3 * time.Second,
		MaxBettingTime:   120 * time.Second,
		SettleAttempts:   3,
		SettleBackoff:    2 * time.Second,
	}
}

// SetCollaborators wires the bet source and settler. Separate from the
// constructor to break the circular dependency with the bet service; must be
// called before Start.
func (sm *StateMachine) SetCollaborators(bets BetSource, settler Settler) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.bets = bets
	sm.settler = settler
}

// RegisterEventHandler registers an event handler. Must be called before
// Start.
func (sm *StateMachine) RegisterEventHandler(handler EventHandler) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.eventHandlers = append(sm.eventHandlers, handler)
}

// SetNextRound seeds the round counter, typically with the last persisted
// round number after recovery.
func (sm *StateMachine) SetNextRound(lastRoundNumber int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.roundCounter = lastRoundNumber
}

// emitEvent runs every handler synchronously in registration order.
func (sm *StateMachine) emitEvent(event GameEvent) {
	sm.mu.RLock()
	handlers := make([]EventHandler, len(sm.eventHandlers))
	copy(handlers, sm.eventHandlers)
	sm.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// Stop signals the scheduler to halt once the current round reaches a
// terminal phase.
func (sm *StateMachine) Stop() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.stopping = true
}

// Do injects an admin command and waits for the scheduler to act on it.
func (sm *StateMachine) Do(ctx context.Context, cmd Command) error {
	sm.mu.RLock()
	running := sm.running
	sm.mu.RUnlock()
	if !running {
		return ErrMachineStopped
	}

	cmd.reply = make(chan error, 1)
	select {
	case sm.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start runs the scheduler loop until Stop, an emergency stop, or ctx
// cancellation. It blocks, so callers run it on its own goroutine.
func (sm *StateMachine) Start(ctx context.Context) {
	sm.mu.Lock()
	sm.running = true
	sm.mu.Unlock()

	logger.Info(ctx).Msg("🚀 [GMS] round scheduler started")

	for {
		sm.mu.RLock()
		stopping := sm.stopping
		sm.mu.RUnlock()

		if stopping || ctx.Err() != nil {
			break
		}
		sm.runRound(ctx)
	}

	sm.mu.Lock()
	sm.running = false
	sm.mu.Unlock()

	logger.Info(ctx).Msg("🛑 [GMS] round scheduler stopped")
	sm.emitEvent(GameEvent{Type: EventMachineStopped})
}

// waitOutcome tells runRound why a phase wait ended.
type waitOutcome int

const (
	waitElapsed waitOutcome = iota
	waitManualSpin
	waitCancelled
	waitAborted
)

// waitPhase blocks until the deadline, handling commands as they arrive.
// forced receives the manual winning number when the outcome is
// waitManualSpin.
func (sm *StateMachine) waitPhase(ctx context.Context, round *domain.Round, deadline time.Time, forced *int) waitOutcome {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return waitElapsed

		case <-ctx.Done():
			return waitAborted

		case cmd := <-sm.commands:
			newDeadline, handled := sm.handleCommand(ctx, round, cmd, deadline, forced)
			if handled != waitElapsed {
				return handled
			}
			if !newDeadline.Equal(deadline) {
				deadline = newDeadline
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(time.Until(deadline))
			}
		}
	}
}

// handleCommand applies one admin command against the current phase. It
// returns the possibly-moved deadline and a non-waitElapsed outcome when the
// command ends the wait.
func (sm *StateMachine) handleCommand(ctx context.Context, round *domain.Round, cmd Command, deadline time.Time, forced *int) (time.Time, waitOutcome) {
	phase := round.Phase

	switch {
	case cmd.EmergencyStop:
		logger.Warn(ctx).
			Int64("round_number", round.Number).
			Str("phase", string(phase)).
			Msg("🧯 [GMS] emergency stop requested")
		sm.mu.Lock()
		sm.stopping = true
		sm.mu.Unlock()
		cmd.reply <- nil
		return deadline, waitCancelled

	case cmd.CancelRound != "":
		if phase == domain.PhaseResult || phase == domain.PhaseTransition {
			cmd.reply <- ErrWrongPhase
			return deadline, waitElapsed
		}
		sm.mu.Lock()
		round.CancelReason = cmd.CancelRound
		sm.mu.Unlock()
		cmd.reply <- nil
		return deadline, waitCancelled

	case cmd.ManualSpin != nil:
		// Valid until the spin starts: in BETTING it closes the window, in
		// SPIN_PREPARATION it overrides the not-yet-public winner.
		if phase != domain.PhaseBetting && phase != domain.PhaseSpinPreparation {
			cmd.reply <- ErrWrongPhase
			return deadline, waitElapsed
		}
		n := *cmd.ManualSpin
		if n != domain.NoWinner && (n < 0 || n >= domain.Outcomes) {
			cmd.reply <- ErrInvalidNumber
			return deadline, waitElapsed
		}
		*forced = n
		cmd.reply <- nil
		return deadline, waitManualSpin

	case cmd.ExtendBetting > 0:
		if phase != domain.PhaseBetting {
			cmd.reply <- ErrWrongPhase
			return deadline, waitElapsed
		}
		extended := round.BettingEnd.Add(cmd.ExtendBetting)
		if extended.Sub(round.BettingStart) > sm.MaxBettingTime {
			cmd.reply <- ErrInvalidDuration
			return deadline, waitElapsed
		}
		sm.mu.Lock()
		round.ExtendBetting(cmd.ExtendBetting)
		sm.phaseEndTime = round.BettingEnd
		sm.mu.Unlock()
		logger.Info(ctx).
			Int64("round_number", round.Number).
			Time("betting_end", round.BettingEnd).
			Msg("⏳ [GMS] betting window extended")
		sm.emitEvent(GameEvent{
			Type:        EventBettingExtended,
			RoundNumber: round.Number,
			Phase:       domain.PhaseBetting,
			BettingEnd:  round.BettingEnd,
			LeftTime:    int64(time.Until(round.BettingEnd).Seconds()),
		})
		cmd.reply <- nil
		return round.BettingEnd, waitElapsed

	default:
		cmd.reply <- ErrWrongPhase
		return deadline, waitElapsed
	}
}

// runRound executes one full round.
func (sm *StateMachine) runRound(ctx context.Context) {
	sm.mu.Lock()
	sm.roundCounter++
	round := domain.NewRound(sm.roundCounter, sm.BettingDuration)
	sm.currentRound = round
	sm.phaseEndTime = round.BettingEnd
	sm.mu.Unlock()

	logger.Info(ctx).
		Int64("round_number", round.Number).
		Time("betting_end", round.BettingEnd).
		Msg("🟢 [GMS] round started, betting open")

	sm.emitEvent(GameEvent{
		Type:        EventRoundStarted,
		RoundNumber: round.Number,
		Phase:       domain.PhaseBetting,
		BettingEnd:  round.BettingEnd,
		LeftTime:    int64(sm.BettingDuration.Seconds()),
	})

	//--------------------------------------------
	// BETTING
	//--------------------------------------------
	forced := domain.NoWinner
	switch sm.waitPhase(ctx, round, round.BettingEnd, &forced) {
	case waitCancelled:
		sm.cancelRound(ctx, round)
		return
	case waitAborted:
		sm.cancelRound(ctx, round)
		return
	}

	//--------------------------------------------
	// SPIN_PREPARATION: freeze bets, decide and persist the winner
	//--------------------------------------------
	sm.mu.Lock()
	round.Frozen = true // stop accepting bets before snapshotting the totals
	sm.mu.Unlock()

	dist, err := sm.bets.Distribution(ctx, round.Number)
	if err != nil {
		logger.Error(ctx).Err(err).
			Int64("round_number", round.Number).
			Msg("❌ [GMS] reading bet distribution failed, cancelling round")
		round.CancelReason = "bet distribution unavailable"
		sm.cancelRound(ctx, round)
		return
	}

	sm.mu.Lock()
	round.FreezeBets(dist)
	winner := forced
	if winner == domain.NoWinner {
		winner = sm.selector.Pick(dist)
	}
	round.SetWinner(winner)
	sm.phaseEndTime = time.Now().Add(sm.PrepareDuration)
	prepareEnd := sm.phaseEndTime
	sm.mu.Unlock()

	logger.Info(ctx).
		Int64("round_number", round.Number).
		Int("winning_number", winner).
		Int64("total_bets", dist.Total()).
		Bool("manual", forced != domain.NoWinner).
		Msg("🎯 [GMS] betting closed, winner decided")

	sm.emitEvent(GameEvent{
		Type:         EventBettingClosed,
		RoundNumber:  round.Number,
		Phase:        domain.PhaseSpinPreparation,
		Distribution: dist,
		BettingEnd:   round.BettingEnd,
		LeftTime:     int64(sm.PrepareDuration.Seconds()),
	})
	sm.emitEvent(GameEvent{
		Type:          EventWinnerDecided,
		RoundNumber:   round.Number,
		Phase:         domain.PhaseSpinPreparation,
		WinningNumber: winner,
	})

	switch sm.waitPhase(ctx, round, prepareEnd, &forced) {
	case waitCancelled, waitAborted:
		sm.cancelRound(ctx, round)
		return
	case waitManualSpin:
		// Operator override while the winner is still private. Re-persist
		// before SPINNING so the spin reveals the overridden number.
		if forced != domain.NoWinner && forced != winner {
			winner = forced
			sm.mu.Lock()
			round.SetWinner(winner)
			sm.mu.Unlock()
			logger.Info(ctx).
				Int64("round_number", round.Number).
				Int("winning_number", winner).
				Msg("🎯 [GMS] winner overridden by operator")
			sm.emitEvent(GameEvent{
				Type:          EventWinnerDecided,
				RoundNumber:   round.Number,
				Phase:         domain.PhaseSpinPreparation,
				WinningNumber: winner,
			})
		}
	}

	//--------------------------------------------
	// SPINNING: animation only, the outcome is already fixed
	//--------------------------------------------
	sm.mu.Lock()
	round.BeginSpin()
	sm.phaseEndTime = time.Now().Add(sm.SpinningDuration)
	spinEnd := sm.phaseEndTime
	sm.mu.Unlock()

	logger.Info(ctx).
		Int64("round_number", round.Number).
		Msg("🎡 [GMS] wheel spinning")

	sm.emitEvent(GameEvent{
		Type:        EventSpinStarted,
		RoundNumber: round.Number,
		Phase:       domain.PhaseSpinning,
		LeftTime:    int64(sm.SpinningDuration.Seconds()),
	})

	if sm.waitPhase(ctx, round, spinEnd, &forced) != waitElapsed {
		sm.cancelRound(ctx, round)
		return
	}

	//--------------------------------------------
	// RESULT: reveal, settle every bet before moving on
	//--------------------------------------------
	sm.mu.Lock()
	round.BeginResult()
	sm.phaseEndTime = time.Now().Add(sm.ResultDuration)
	resultEnd := sm.phaseEndTime
	sm.mu.Unlock()

	totals, ok := sm.settle(ctx, round)
	if !ok {
		return
	}

	logger.Info(ctx).
		Int64("round_number", round.Number).
		Int("winning_number", winner).
		Int64("total_payout", totals.Payout).
		Int64("house_pl", totals.HouseProfitLoss()).
		Msg("📊 [GMS] result published")

	sm.emitEvent(GameEvent{
		Type:          EventResultShown,
		RoundNumber:   round.Number,
		Phase:         domain.PhaseResult,
		WinningNumber: winner,
		Totals:        totals,
		LeftTime:      int64(sm.ResultDuration.Seconds()),
	})

	if sm.waitPhase(ctx, round, resultEnd, &forced) == waitAborted {
		// Settlement already happened; finish the round before exiting.
		logger.Warn(ctx).Int64("round_number", round.Number).Msg("⚠️ [GMS] shutdown during result, completing round")
	}

	//--------------------------------------------
	// TRANSITION
	//--------------------------------------------
	sm.mu.Lock()
	round.BeginTransition()
	sm.phaseEndTime = time.Now().Add(sm.WaitDuration)
	transitionEnd := sm.phaseEndTime
	sm.mu.Unlock()

	logger.Info(ctx).
		Int64("round_number", round.Number).
		Msg("🏁 [GMS] round completed")

	sm.emitEvent(GameEvent{
		Type:          EventRoundCompleted,
		RoundNumber:   round.Number,
		Phase:         domain.PhaseTransition,
		WinningNumber: winner,
		Totals:        totals,
		LeftTime:      int64(sm.WaitDuration.Seconds()),
	})

	sm.waitPhase(ctx, round, transitionEnd, &forced)

	// The round stays observable as TRANSITION for the whole wait; it only
	// turns COMPLETED once the next round is about to open.
	sm.mu.Lock()
	round.Complete(totals)
	sm.mu.Unlock()
}

// settle runs the settler with retries. A false return means the round is
// stuck and the machine has halted.
func (sm *StateMachine) settle(ctx context.Context, round *domain.Round) (domain.RoundTotals, bool) {
	var lastErr error
	for attempt := 1; attempt <= sm.SettleAttempts; attempt++ {
		totals, err := sm.settler.SettleRound(ctx, round.Number, round.WinningNumber)
		if err == nil {
			return totals, true
		}
		lastErr = err
		logger.Error(ctx).Err(err).
			Int64("round_number", round.Number).
			Int("attempt", attempt).
			Msg("❌ [GMS] settlement failed")
		if attempt < sm.SettleAttempts {
			time.Sleep(sm.SettleBackoff * time.Duration(attempt))
		}
	}

	// Money is on the line; do not start new rounds over unsettled bets.
	logger.Error(ctx).Err(lastErr).
		Int64("round_number", round.Number).
		Msg("🚨 [GMS] settlement exhausted retries, halting scheduler")
	sm.mu.Lock()
	sm.stopping = true
	sm.mu.Unlock()
	sm.emitEvent(GameEvent{
		Type:          EventSettlementStuck,
		RoundNumber:   round.Number,
		Phase:         domain.PhaseResult,
		WinningNumber: round.WinningNumber,
		Reason:        lastErr.Error(),
	})
	return domain.RoundTotals{}, false
}

// cancelRound refunds every bet and marks the round cancelled.
func (sm *StateMachine) cancelRound(ctx context.Context, round *domain.Round) {
	reason := round.CancelReason
	if reason == "" {
		reason = "scheduler shutdown"
	}

	if err := sm.settler.RefundRound(ctx, round.Number, reason); err != nil {
		// Refunds retry inside the settler; reaching here means some
		// are still pending and need operator attention.
		logger.Error(ctx).Err(err).
			Int64("round_number", round.Number).
			Msg("🚨 [GMS] refund incomplete for cancelled round")
		sm.emitEvent(GameEvent{
			Type:        EventSettlementStuck,
			RoundNumber: round.Number,
			Phase:       round.Phase,
			Reason:      err.Error(),
		})
	}

	sm.mu.Lock()
	round.Cancel(reason)
	sm.mu.Unlock()

	logger.Warn(ctx).
		Int64("round_number", round.Number).
		Str("reason", reason).
		Msg("🚫 [GMS] round cancelled")

	sm.emitEvent(GameEvent{
		Type:        EventRoundCancelled,
		RoundNumber: round.Number,
		Phase:       domain.PhaseCancelled,
		Reason:      reason,
	})
}

// GetCurrentRound returns a snapshot of the current round. The winning
// number reads as undecided until the round reaches RESULT.
func (sm *StateMachine) GetCurrentRound() domain.View {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.currentRound == nil {
		return domain.View{WinningNumber: domain.NoWinner}
	}
	return sm.currentRound.Snapshot(sm.phaseEndTime)
}

// CanAcceptBet checks whether the current round accepts bets right now.
func (sm *StateMachine) CanAcceptBet() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.currentRound == nil {
		return false
	}
	return sm.currentRound.CanAcceptBet()
}
