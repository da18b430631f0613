package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/domain"
)

type BetOrderRepository struct {
	db *gorm.DB
}

func NewBetOrderRepository(db *gorm.DB) *BetOrderRepository {
	return &BetOrderRepository{db: db}
}

func (r *BetOrderRepository) Create(ctx context.Context, order *domain.BetOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Settle flips a pending order to its terminal status. The status guard in
// the WHERE clause makes the update idempotent under settlement retries.
func (r *BetOrderRepository) Settle(ctx context.Context, orderID int64, status domain.BetOrderStatus, payout int64, settledAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.BetOrder{}).
		Where("order_id = ? AND status = ?", orderID, domain.BetOrderStatusPending).
		Updates(map[string]interface{}{
			"status":     status,
			"payout":     payout,
			"settled_at": settledAt,
		}).Error
}

func (r *BetOrderRepository) FindPendingByRound(ctx context.Context, roundNumber int64) ([]*domain.BetOrder, error) {
	var orders []*domain.BetOrder
	err := r.db.WithContext(ctx).
		Where("round_number = ? AND status = ?", roundNumber, domain.BetOrderStatusPending).
		Find(&orders).Error
	return orders, err
}

func (r *BetOrderRepository) TotalsByRound(ctx context.Context, roundNumber int64) (domain.RoundSummary, error) {
	var row struct {
		Bets      int
		Players   int
		Winners   int
		BetAmount int64
		Payout    int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.BetOrder{}).
		Select(`COUNT(*) AS bets,
			COUNT(DISTINCT user_id) AS players,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS winners,
			COALESCE(SUM(amount), 0) AS bet_amount,
			COALESCE(SUM(payout), 0) AS payout`, domain.BetOrderStatusWon).
		Where("round_number = ? AND status <> ?", roundNumber, domain.BetOrderStatusRefunded).
		Scan(&row).Error
	if err != nil {
		return domain.RoundSummary{}, err
	}
	return domain.RoundSummary{
		Bets:      row.Bets,
		Players:   row.Players,
		Winners:   row.Winners,
		BetAmount: row.BetAmount,
		Payout:    row.Payout,
	}, nil
}

func (r *BetOrderRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.BetOrder, error) {
	var orders []*domain.BetOrder
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
