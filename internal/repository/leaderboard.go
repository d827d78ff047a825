package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"playledger/internal/model"
)

const leaderboardKey = "playledger:leaderboard"

// recordBestScore keeps the participant's highest score in the sorted set.
// GT makes replays of older events harmless.
func recordBestScore(ctx context.Context, rdb *redis.Client, participant model.Address, score uint64) error {
	err := rdb.ZAddArgs(ctx, leaderboardKey, redis.ZAddArgs{
		GT:      true,
		Members: []redis.Z{{Score: float64(score), Member: string(participant)}},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis leaderboard: %w", err)
	}
	return nil
}

func topScores(ctx context.Context, rdb *redis.Client, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	zs, err := rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis leaderboard: %w", err)
	}
	out := make([]model.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, model.LeaderboardEntry{Participant: model.Address(member), BestScore: uint64(z.Score)})
	}
	return out, nil
}
