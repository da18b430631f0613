package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/domain"
)

const ShardCount = 16

// BetRepository implements domain.BetRepository using Redis
type BetRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBetRepository creates a new Redis bet repository
func NewBetRepository(rdb *redis.Client) *BetRepository {
	return &BetRepository{
		rdb: rdb,
		ttl: 24 * time.Hour, // Keep bets for 24 hours
	}
}

// SaveBet saves a bet
func (r *BetRepository) SaveBet(ctx context.Context, bet *domain.Bet) error {
	data, err := json.Marshal(bet)
	if err != nil {
		return err
	}
	betID := strconv.FormatInt(bet.BetID, 10)

	pipe := r.rdb.Pipeline()

	// 1. Save bet data to Hash
	dataKey := fmt.Sprintf("win5x:bet_data:%d", bet.RoundNumber)
	pipe.HSet(ctx, dataKey, betID, data)
	pipe.Expire(ctx, dataKey, r.ttl)

	// 2. Add to settlement queue (List of BetIDs)
	shardID := bet.UserID % ShardCount
	queueKey := fmt.Sprintf("win5x:settlement_queue:%d:%d", bet.RoundNumber, shardID)
	pipe.RPush(ctx, queueKey, betID)
	pipe.Expire(ctx, queueKey, r.ttl)

	// 3. Update user index (Set of bet IDs per user)
	indexKey := fmt.Sprintf("win5x:user_index:%d:%d", bet.RoundNumber, bet.UserID)
	pipe.SAdd(ctx, indexKey, betID)
	pipe.Expire(ctx, indexKey, r.ttl)

	_, err = pipe.Exec(ctx)
	return err
}

// GetBets retrieves all bets for a round
func (r *BetRepository) GetBets(ctx context.Context, roundNumber int64) ([]*domain.Bet, error) {
	dataKey := fmt.Sprintf("win5x:bet_data:%d", roundNumber)
	dataMap, err := r.rdb.HGetAll(ctx, dataKey).Result()
	if err != nil {
		return nil, err
	}

	allBets := make([]*domain.Bet, 0, len(dataMap))
	for _, data := range dataMap {
		var bet domain.Bet
		if err := json.Unmarshal([]byte(data), &bet); err != nil {
			continue
		}
		allBets = append(allBets, &bet)
	}
	return allBets, nil
}

// GetUserBets retrieves all bets for a user in a round
func (r *BetRepository) GetUserBets(ctx context.Context, roundNumber int64, userID int64) ([]*domain.Bet, error) {
	// 1. Get bet IDs from user index
	indexKey := fmt.Sprintf("win5x:user_index:%d:%d", roundNumber, userID)
	betIDs, err := r.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}

	if len(betIDs) == 0 {
		return []*domain.Bet{}, nil
	}

	// 2. Get bet data
	dataKey := fmt.Sprintf("win5x:bet_data:%d", roundNumber)
	dataList, err := r.rdb.HMGet(ctx, dataKey, betIDs...).Result()
	if err != nil {
		return nil, err
	}

	bets := make([]*domain.Bet, 0, len(dataList))
	for _, data := range dataList {
		if data == nil {
			continue
		}
		var bet domain.Bet
		// HMGet returns []interface{}, need to assert to string
		if strData, ok := data.(string); ok {
			if err := json.Unmarshal([]byte(strData), &bet); err != nil {
				continue
			}
			bets = append(bets, &bet)
		}
	}
	return bets, nil
}

// ClearBets clears all bets for a round
func (r *BetRepository) ClearBets(ctx context.Context, roundNumber int64) error {
	pipe := r.rdb.Pipeline()

	// Delete bet data
	pipe.Del(ctx, fmt.Sprintf("win5x:bet_data:%d", roundNumber))

	// Delete queues
	for i := 0; i < ShardCount; i++ {
		pipe.Del(ctx, fmt.Sprintf("win5x:settlement_queue:%d:%d", roundNumber, i))
	}

	// Note: user_index keys expire automatically, hard to delete all without scan
	// We rely on TTL for user_index cleanup

	_, err := pipe.Exec(ctx)
	return err
}

// GetBetsForSettlement retrieves bets for settlement
func (r *BetRepository) GetBetsForSettlement(ctx context.Context, roundNumber int64) ([]*domain.Bet, error) {
	startShard := rand.Intn(ShardCount)

	for i := 0; i < ShardCount; i++ {
		shardID := (startShard + i) % ShardCount
		queueKey := fmt.Sprintf("win5x:settlement_queue:%d:%d", roundNumber, shardID)

		// Pop bet IDs
		betIDs, err := r.rdb.LPopCount(ctx, queueKey, 100).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, err
		}

		if len(betIDs) > 0 {
			// Get bet data
			dataKey := fmt.Sprintf("win5x:bet_data:%d", roundNumber)
			dataList, err := r.rdb.HMGet(ctx, dataKey, betIDs...).Result()
			if err != nil {
				return nil, err
			}

			bets := make([]*domain.Bet, 0, len(dataList))
			for _, data := range dataList {
				if data == nil {
					continue
				}
				var bet domain.Bet
				if strData, ok := data.(string); ok {
					if err := json.Unmarshal([]byte(strData), &bet); err != nil {
						continue
					}
					bets = append(bets, &bet)
				}
			}
			return bets, nil
		}
	}

	return make([]*domain.Bet, 0), nil
}
