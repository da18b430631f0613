package machine

import (
	"errors"
	"time"
)

// Command errors returned to the admin caller.
var (
	ErrMachineStopped  = errors.New("machine: not running")
	ErrWrongPhase      = errors.New("machine: command not valid in current phase")
	ErrInvalidNumber   = errors.New("machine: winning number out of range")
	ErrInvalidDuration = errors.New("machine: extension out of range")
)

// Command is an admin instruction injected into the scheduler loop. Each
// variant sets exactly one field; the loop inspects them in priority order.
type Command struct {
	// EmergencyStop cancels the current round with refunds and halts the
	// machine without starting another round.
	EmergencyStop bool
	// ManualSpin ends the current wait: in BETTING it closes the window,
	// in SPIN_PREPARATION it starts the spin early. A value in
	// [0, Outcomes) forces that winning number; domain.NoWinner lets the
	// decided one stand. Nil means unset.
	ManualSpin *int
	// ExtendBetting pushes the betting deadline out. Zero means unset.
	ExtendBetting time.Duration
	// CancelRound cancels the current round with refunds and moves on to
	// the next round. Empty means unset.
	CancelRound string

	reply chan error
}
