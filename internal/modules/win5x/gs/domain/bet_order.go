package domain

import "time"

// BetOrderStatus is the persisted settlement status of a bet.
type BetOrderStatus string

const (
	BetOrderStatusPending  BetOrderStatus = "pending"
	BetOrderStatusWon      BetOrderStatus = "won"
	BetOrderStatusLost     BetOrderStatus = "lost"
	BetOrderStatusRefunded BetOrderStatus = "refunded"
)

// BetOrder is the durable record of a bet. Rows are written when the bet is
// accepted and updated exactly once at settlement; a pending row after a
// restart is an orphan recovery has to resolve.
type BetOrder struct {
	OrderID     int64          `gorm:"primaryKey" json:"order_id"`
	UserID      int64          `gorm:"not null;index:idx_bet_orders_user_id" json:"user_id"`
	RoundNumber int64          `gorm:"not null;index:idx_bet_orders_round_number" json:"round_number"`
	GameCode    string         `gorm:"type:varchar(32);not null;index:idx_bet_orders_game_code" json:"game_code"`
	BetType     string         `gorm:"type:varchar(16);not null" json:"bet_type"`
	BetValue    string         `gorm:"type:varchar(8);not null" json:"bet_value"`
	Wallet      string         `gorm:"type:varchar(16);not null" json:"wallet"`
	Amount      int64          `gorm:"not null" json:"amount"`
	Payout      int64          `gorm:"not null;default:0" json:"payout"`
	Status      BetOrderStatus `gorm:"type:varchar(16);not null;default:pending;index:idx_bet_orders_status" json:"status"`
	CreatedAt   time.Time      `gorm:"not null;index:idx_bet_orders_created_at" json:"created_at"`
	SettledAt   *time.Time     `json:"settled_at"`
}

// TableName overrides the table name
func (BetOrder) TableName() string {
	return "bet_orders"
}

// OrderFromBet builds the durable row for an accepted bet.
func OrderFromBet(bet *Bet, gameCode string) *BetOrder {
	return &BetOrder{
		OrderID:     bet.BetID,
		UserID:      bet.UserID,
		RoundNumber: bet.RoundNumber,
		GameCode:    gameCode,
		BetType:     string(bet.BetType),
		BetValue:    bet.Value,
		Wallet:      string(bet.Wallet),
		Amount:      bet.Amount,
		Status:      BetOrderStatusPending,
		CreatedAt:   bet.Time,
	}
}
