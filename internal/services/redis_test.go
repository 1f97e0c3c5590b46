package services_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wager-settlement-backend/internal/models"
	"wager-settlement-backend/internal/services"
)

func setupTestRedis(t *testing.T) *services.RedisService {
	t.Helper()
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		addr = "localhost:6379"
	}
	redisService, err := services.NewRedisService(context.Background(), services.RedisConfig{Addr: addr})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = redisService.Close() })
	return redisService
}

func TestRedisRateLimit(t *testing.T) {
	redisService := setupTestRedis(t)
	ctx := context.Background()
	wallet := "0x000000000000000000000000000000000000dead"
	defer redisService.ClearRateLimit(ctx, wallet, "flip")

	require.NoError(t, redisService.ClearRateLimit(ctx, wallet, "flip"))
	for i := 0; i < 3; i++ {
		allowed, err := redisService.CheckRateLimit(ctx, wallet, "flip", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d", i)
	}

	allowed, err := redisService.CheckRateLimit(ctx, wallet, "flip", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRedisLeaderboardCache(t *testing.T) {
	redisService := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, redisService.InvalidateLeaderboard(ctx))

	_, ok, err := redisService.GetLeaderboard(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	entries := []models.LeaderboardEntry{{
		Wallet:        "0x000000000000000000000000000000000000beef",
		TotalGames:    4,
		Wins:          3,
		Losses:        1,
		TotalWinnings: decimal.NewFromInt(6),
		TotalWagered:  decimal.NewFromInt(4),
		WinRate:       decimal.NewFromInt(75),
	}}
	require.NoError(t, redisService.SetLeaderboard(ctx, 7, entries))

	got, ok, err := redisService.GetLeaderboard(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, entries[0].Wallet, got[0].Wallet)
	assert.True(t, got[0].WinRate.Equal(entries[0].WinRate))

	require.NoError(t, redisService.InvalidateLeaderboard(ctx))
	_, ok, err = redisService.GetLeaderboard(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}
