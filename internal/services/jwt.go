package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"wager-settlement-backend/internal/logging"
	"wager-settlement-backend/internal/models"
)

type Claims struct {
	Wallet    string `json:"wallet"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// JWTService issues and validates wallet session tokens.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService signs with secret. An empty secret is replaced by a random
// per-process key, so tokens do not survive a restart.
func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("jwt: generate signing key: %v", err))
		}
		logging.Warn(context.Background()).Msg("JWT_SECRET not set, using a random signing key for this process")
	}
	return &JWTService{secret: key, ttl: ttl, now: time.Now}
}

func (s *JWTService) Issue(wallet string) (*models.WalletSession, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	sessionID := uuid.NewString()

	claims := Claims{
		Wallet:    wallet,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   wallet,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &models.WalletSession{
		Wallet:    wallet,
		SessionID: sessionID,
		Token:     token,
		ExpiresAt: expiresAt.UnixMilli(),
	}, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", models.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: invalid token", models.ErrUnauthorized)
	}
	if !token.Valid || claims.Wallet == "" {
		return nil, fmt.Errorf("%w: invalid token claims", models.ErrUnauthorized)
	}
	return claims, nil
}
