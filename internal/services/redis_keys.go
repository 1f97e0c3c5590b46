package services

import "time"

const (
	KeyRateLimit          = "ratelimit:%s:%s"
	KeyLeaderboard        = "coinflip:leaderboard:%d"
	KeyLeaderboardPattern = "coinflip:leaderboard:*"

	TTLLeaderboard = 15 * time.Second

	DefaultRateLimitBets    = 30  // start, flip and battle bets per minute
	DefaultRateLimitReveals = 120 // reveals per minute
	DefaultRateLimitCashout = 60  // cashouts per minute
)
