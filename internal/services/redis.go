package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wager-settlement-backend/internal/models"
)

// RedisService backs rate limits and short-lived read caches. Nothing stored
// here is authoritative.
type RedisService struct {
	client *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisService(ctx context.Context, cfg RedisConfig) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{client: client}, nil
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// CheckRateLimit counts action for wallet in a fixed window.
func (s *RedisService) CheckRateLimit(ctx context.Context, wallet, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, wallet, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, wallet, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, wallet, action)).Err()
}

// GetLeaderboard returns a cached leaderboard. ok is false on a miss.
func (s *RedisService) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, bool, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyLeaderboard, limit)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get leaderboard: %v", err)
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal leaderboard: %v", err)
	}
	return entries, true, nil
}

func (s *RedisService) SetLeaderboard(ctx context.Context, limit int, entries []models.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard: %v", err)
	}
	return s.client.Set(ctx, fmt.Sprintf(KeyLeaderboard, limit), data, TTLLeaderboard).Err()
}

// InvalidateLeaderboard drops every cached leaderboard page.
func (s *RedisService) InvalidateLeaderboard(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, KeyLeaderboardPattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan leaderboard keys: %v", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
