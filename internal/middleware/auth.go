package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"wager-settlement-backend/internal/logging"
	"wager-settlement-backend/internal/models"
	"wager-settlement-backend/internal/services"
)

func AuthMiddleware(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(c, "invalid authorization format")
				return
			}
			tokenString = parts[1]
		} else {
			// browsers cannot set headers on websocket upgrades
			tokenString = c.Query("token")
			if tokenString == "" {
				unauthorized(c, "authorization header required")
				return
			}
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}

		c.Set("wallet", claims.Wallet)
		c.Set("session_id", claims.SessionID)

		ctx := logging.WithWallet(c.Request.Context(), claims.Wallet)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success":   false,
		"error":     msg,
		"kind":      models.KindUnauthorized,
		"retryable": false,
	})
}

// RateLimiter counts actions per wallet in a fixed window.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, wallet, action string, limit int, window time.Duration) (bool, error)
}

type rateRule struct {
	action string
	limit  int
}

var rateRules = map[string]rateRule{
	"/api/mines/start":   {action: "bet", limit: services.DefaultRateLimitBets},
	"/api/coinflip/play": {action: "bet", limit: services.DefaultRateLimitBets},
	"/api/royale/bet":    {action: "bet", limit: services.DefaultRateLimitBets},
	"/api/royale/coins":  {action: "coin", limit: services.DefaultRateLimitBets},
	"/api/mines/reveal":  {action: "reveal", limit: services.DefaultRateLimitReveals},
	"/api/mines/cashout": {action: "cashout", limit: services.DefaultRateLimitCashout},
}

// RateLimitMiddleware fails open: limits are abuse protection, not a safety
// property, so a limiter error lets the request through.
func RateLimitMiddleware(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		wallet := c.GetString("wallet")
		if limiter == nil || wallet == "" {
			c.Next()
			return
		}

		rule, ok := rateRules[c.FullPath()]
		if !ok {
			c.Next()
			return
		}

		window := time.Minute
		ctx := c.Request.Context()
		allowed, err := limiter.CheckRateLimit(ctx, wallet, rule.action, rule.limit, window)
		if err != nil {
			logging.Warn(ctx).Err(err).Str("action", rule.action).Msg("rate limit check failed, allowing request")
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"error":       "rate limit exceeded",
				"kind":        "rate_limited",
				"retryable":   true,
				"retry_after": window.Seconds(),
			})
			return
		}

		c.Next()
	}
}
