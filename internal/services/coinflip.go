package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wager-settlement-backend/internal/logging"
	"wager-settlement-backend/internal/models"
)

const (
	defaultLeaderboardLimit = 10
	maxListLimit            = 100
)

type CoinflipStore interface {
	InsertCoinflip(ctx context.Context, rec *models.CoinflipRecord) error
	GetCoinflip(ctx context.Context, id uint64) (*models.CoinflipRecord, error)
	ListCoinflips(ctx context.Context, owner string, limit int) ([]*models.CoinflipRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	NowMillis() int64
}

// LeaderboardCache is a non-authoritative read cache for the leaderboard.
type LeaderboardCache interface {
	GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, bool, error)
	SetLeaderboard(ctx context.Context, limit int, entries []models.LeaderboardEntry) error
	InvalidateLeaderboard(ctx context.Context) error
}

type CoinflipService struct {
	store       CoinflipStore
	random      RandomnessSource
	verifier    Verifier
	cache       LeaderboardCache
	broadcaster Broadcaster
	maxSigAge   time.Duration
}

// NewCoinflipService wires the flip protocol. cache may be nil.
func NewCoinflipService(store CoinflipStore, random RandomnessSource, verifier Verifier, cache LeaderboardCache, broadcaster Broadcaster, maxSigAge time.Duration) *CoinflipService {
	return &CoinflipService{
		store:       store,
		random:      random,
		verifier:    verifier,
		cache:       cache,
		broadcaster: orNop(broadcaster),
		maxSigAge:   maxSigAge,
	}
}

// Play settles one flip. The written record is the settlement; there is no
// retry or correction path after it.
func (s *CoinflipService) Play(ctx context.Context, owner string, req *models.CoinflipRequest) (*models.CoinflipResponse, error) {
	wager, err := models.ParseAmount("wager", req.Wager)
	if err != nil {
		return nil, err
	}
	choice := models.CoinSide(strings.ToLower(strings.TrimSpace(string(req.UserChoice))))
	if !choice.Valid() {
		return nil, fmt.Errorf("%w: userChoice must be heads or tails", models.ErrInvalidInput)
	}
	if err := s.verifier.Verify(ctx, req.Message, req.Signature, owner, s.maxSigAge); err != nil {
		return nil, err
	}

	seed, err := s.random.NextSeed(ctx, owner)
	if err != nil {
		return nil, err
	}

	rec := models.NewCoinflipRecord(owner, wager, choice, seed, s.store.NowMillis())
	if err := s.store.InsertCoinflip(ctx, rec); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateLeaderboard(ctx); err != nil {
			logging.Warn(ctx).Err(err).Msg("leaderboard cache invalidation failed")
		}
	}

	resp := &models.CoinflipResponse{
		ID:          rec.ID,
		Outcome:     rec.Outcome,
		Result:      rec.Result,
		Payout:      rec.Payout,
		BlockNumber: rec.BlockNumber,
		BlockHash:   rec.BlockHash,
		SeedSource:  rec.SeedSource,
	}

	logging.Info(ctx).
		Str("wallet", owner).
		Uint64("flip_id", rec.ID).
		Str("wager", wager.String()).
		Str("choice", string(choice)).
		Str("outcome", string(rec.Outcome)).
		Str("result", string(rec.Result)).
		Str("payout", rec.Payout.String()).
		Str("seed_source", rec.SeedSource).
		Bool("fallback_seed", seed.Fallback()).
		Msg("coinflip settled")

	s.broadcaster.BroadcastSettlement(SettlementEvent{
		Type:   EventCoinflipSettled,
		Game:   models.GameTypeCoinFlip,
		ID:     rec.ID,
		Wallet: owner,
		Data:   resp,
	})
	return resp, nil
}

// Leaderboard serves from cache when it can; cache errors fall through to
// the store.
func (s *CoinflipService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	limit = clampLimit(limit, defaultLeaderboardLimit)

	if s.cache != nil {
		entries, ok, err := s.cache.GetLeaderboard(ctx, limit)
		if err != nil {
			logging.Warn(ctx).Err(err).Msg("leaderboard cache read failed")
		} else if ok {
			return entries, nil
		}
	}

	entries, err := s.store.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetLeaderboard(ctx, limit, entries); err != nil {
			logging.Warn(ctx).Err(err).Msg("leaderboard cache write failed")
		}
	}
	return entries, nil
}

func (s *CoinflipService) History(ctx context.Context, owner string, limit int) ([]*models.CoinflipRecord, error) {
	return s.store.ListCoinflips(ctx, owner, clampLimit(limit, 20))
}

// Verify recomputes a flip's outcome from its stored block hash.
func (s *CoinflipService) Verify(ctx context.Context, id uint64) (*models.CoinflipVerification, error) {
	rec, err := s.store.GetCoinflip(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.BlockHash == nil {
		return nil, fmt.Errorf("%w: flip %d used a fallback seed and cannot be verified", models.ErrInvalidState, id)
	}

	computed, err := models.OutcomeFromBlockHash(*rec.BlockHash)
	if err != nil {
		return nil, err
	}
	return &models.CoinflipVerification{
		ID:              rec.ID,
		BlockHash:       *rec.BlockHash,
		StoredOutcome:   rec.Outcome,
		ComputedOutcome: computed,
		Valid:           computed == rec.Outcome,
	}, nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
