package domain

import (
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/jbdekhoooff08512/Win5x/pkg/service"
)

// BetType discriminates what a bet covers.
type BetType string

const (
	BetTypeNumber  BetType = "number"
	BetTypeOddEven BetType = "odd_even"
)

// Values for odd_even bets. Zero counts as even.
const (
	BetValueOdd  = "odd"
	BetValueEven = "even"
)

// Bet validation errors.
var (
	ErrInvalidBetType  = errors.New("bet: unknown bet type")
	ErrInvalidBetValue = errors.New("bet: value does not match bet type")
)

// Bet is a player's live bet on the current round.
type Bet struct {
	BetID           int64
	RoundNumber     int64
	UserID          int64
	BetType         BetType
	Value           string
	Amount          int64
	Wallet          service.Wallet
	PotentialPayout int64
	Time            time.Time
}

var (
	node *snowflake.Node
	once sync.Once
)

func initSnowflake() {
	var err error
	// TODO: Get NodeID from config or environment variable
	// For now, we use a default NodeID of 1.
	// In a real distributed system, each instance MUST have a unique NodeID.
	node, err = snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
}

// NewBet creates a bet with a generated ID and its potential payout
// snapshotted from the multiplier in force when the bet was placed.
func NewBet(roundNumber int64, userID int64, betType BetType, value string, amount int64, wallet service.Wallet, multiplier int64) *Bet {
	return &Bet{
		BetID:           generateBetID(),
		RoundNumber:     roundNumber,
		UserID:          userID,
		BetType:         betType,
		Value:           value,
		Amount:          amount,
		Wallet:          wallet,
		PotentialPayout: amount * multiplier,
		Time:            time.Now(),
	}
}

func generateBetID() int64 {
	once.Do(initSnowflake)
	return node.Generate().Int64()
}

// Validate checks the type/value pairing.
func (b *Bet) Validate() error {
	switch b.BetType {
	case BetTypeNumber:
		if len(b.Value) != 1 || b.Value[0] < '0' || b.Value[0] > '9' {
			return ErrInvalidBetValue
		}
	case BetTypeOddEven:
		if b.Value != BetValueOdd && b.Value != BetValueEven {
			return ErrInvalidBetValue
		}
	default:
		return ErrInvalidBetType
	}
	return nil
}

// Covers reports whether the bet wins when n is the winning number.
func (b *Bet) Covers(n int) bool {
	switch b.BetType {
	case BetTypeNumber:
		return int(b.Value[0]-'0') == n
	case BetTypeOddEven:
		if n%2 == 1 {
			return b.Value == BetValueOdd
		}
		return b.Value == BetValueEven
	}
	return false
}

// CoveredNumbers lists every winning number the bet covers. Used when
// aggregating per-outcome exposure.
func (b *Bet) CoveredNumbers() []int {
	switch b.BetType {
	case BetTypeNumber:
		return []int{int(b.Value[0] - '0')}
	case BetTypeOddEven:
		if b.Value == BetValueOdd {
			return []int{1, 3, 5, 7, 9}
		}
		return []int{0, 2, 4, 6, 8}
	}
	return nil
}
