package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/domain"
)

type GameRoundRepository struct {
	db *gorm.DB
}

func NewGameRoundRepository(db *gorm.DB) *GameRoundRepository {
	return &GameRoundRepository{db: db}
}

func (r *GameRoundRepository) Create(ctx context.Context, round *domain.GameRound) error {
	return r.db.WithContext(ctx).Create(round).Error
}

func (r *GameRoundRepository) UpdateStatus(ctx context.Context, roundNumber int64, status string) error {
	return r.db.WithContext(ctx).
		Model(&domain.GameRound{}).
		Where("round_number = ?", roundNumber).
		Update("status", status).Error
}

func (r *GameRoundRepository) UpdateBettingEnd(ctx context.Context, roundNumber int64, bettingEnd time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.GameRound{}).
		Where("round_number = ?", roundNumber).
		Update("betting_end", bettingEnd).Error
}

func (r *GameRoundRepository) RecordWinner(ctx context.Context, roundNumber int64, winningNumber int, spinStart time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.GameRound{}).
		Where("round_number = ?", roundNumber).
		Updates(map[string]interface{}{
			"winning_number": winningNumber,
			"spin_start":     spinStart,
			"status":         domain.RoundStatusSpinning,
		}).Error
}

func (r *GameRoundRepository) Complete(ctx context.Context, roundNumber int64, totals domain.RoundTotals, resultTime time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.GameRound{}).
		Where("round_number = ?", roundNumber).
		Updates(map[string]interface{}{
			"status":            domain.RoundStatusCompleted,
			"result_time":       resultTime,
			"total_bets":        totals.Bets,
			"total_players":     totals.Players,
			"total_bet_amount":  totals.BetAmount,
			"total_payout":      totals.Payout,
			"house_profit_loss": totals.HouseProfitLoss(),
		}).Error
}

func (r *GameRoundRepository) Cancel(ctx context.Context, roundNumber int64, reason string) error {
	return r.db.WithContext(ctx).
		Model(&domain.GameRound{}).
		Where("round_number = ?", roundNumber).
		Updates(map[string]interface{}{
			"status":        domain.RoundStatusCancelled,
			"cancel_reason": reason,
		}).Error
}

func (r *GameRoundRepository) FindByRoundNumber(ctx context.Context, roundNumber int64) (*domain.GameRound, error) {
	var round domain.GameRound
	err := r.db.WithContext(ctx).
		Where("round_number = ?", roundNumber).
		First(&round).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &round, nil
}

func (r *GameRoundRepository) FindUnfinished(ctx context.Context) ([]*domain.GameRound, error) {
	var rounds []*domain.GameRound
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", []string{domain.RoundStatusCompleted, domain.RoundStatusCancelled}).
		Order("round_number ASC").
		Find(&rounds).Error
	return rounds, err
}

func (r *GameRoundRepository) LastRoundNumber(ctx context.Context) (int64, error) {
	var round domain.GameRound
	err := r.db.WithContext(ctx).
		Order("round_number DESC").
		First(&round).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return round.RoundNumber, nil
}

func (r *GameRoundRepository) ListRecent(ctx context.Context, limit int) ([]*domain.GameRound, error) {
	var rounds []*domain.GameRound
	err := r.db.WithContext(ctx).
		Order("round_number DESC").
		Limit(limit).
		Find(&rounds).Error
	return rounds, err
}
