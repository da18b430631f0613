package domain

// Socket event names pushed by the bet service.
const (
	EventUserBalanceUpdate = "user_balance_update"
	EventBetAccepted       = "bet_accepted"
	EventBetSettled        = "bet_settled"
)

// UserBalanceUpdate is sent to a single user whenever a wallet operation
// changes their balance.
type UserBalanceUpdate struct {
	UserID         int64  `json:"user_id"`
	Wallet         string `json:"wallet"`
	Balance        int64  `json:"balance"`
	BettingBalance int64  `json:"betting_balance"`
	GamingBalance  int64  `json:"gaming_balance"`
	Reason         string `json:"reason"`
}

func (UserBalanceUpdate) EventName() string { return EventUserBalanceUpdate }

// BetAccepted confirms a placed bet back to its owner.
type BetAccepted struct {
	BetID           int64  `json:"bet_id"`
	RoundNumber     int64  `json:"round_number"`
	BetType         string `json:"bet_type"`
	Value           string `json:"value"`
	Amount          int64  `json:"amount"`
	PotentialPayout int64  `json:"potential_payout"`
}

func (BetAccepted) EventName() string { return EventBetAccepted }

// BetSettled tells a user the outcome of one of their bets.
type BetSettled struct {
	BetID       int64  `json:"bet_id"`
	RoundNumber int64  `json:"round_number"`
	Status      string `json:"status"`
	Payout      int64  `json:"payout"`
}

func (BetSettled) EventName() string { return EventBetSettled }
