package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wager-settlement-backend/internal/models"
)

// InsertCoinflip appends a settled flip. Records are never updated.
func (s *Store) InsertCoinflip(ctx context.Context, rec *models.CoinflipRecord) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.mapErr(ctx, s.db.WithContext(ctx).Create(rec).Error)
}

func (s *Store) GetCoinflip(ctx context.Context, id uint64) (*models.CoinflipRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rec models.CoinflipRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: coinflip %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, s.mapErr(ctx, err)
	}
	return &rec, nil
}

func (s *Store) ListCoinflips(ctx context.Context, owner string, limit int) ([]*models.CoinflipRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var recs []*models.CoinflipRecord
	err := s.db.WithContext(ctx).
		Where("owner_wallet = ?", owner).
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, s.mapErr(ctx, err)
	}
	return recs, nil
}

type leaderboardRow struct {
	Wallet        string
	TotalGames    int64
	Wins          int64
	TotalWagered  decimal.Decimal
	TotalWinnings decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Leaderboard aggregates every flip per wallet, best earners first.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []leaderboardRow
	err := s.db.WithContext(ctx).
		Model(&models.CoinflipRecord{}).
		Select(`owner_wallet AS wallet,
			COUNT(*) AS total_games,
			SUM(CASE WHEN result = ? THEN 1 ELSE 0 END) AS wins,
			COALESCE(SUM(wager), 0) AS total_wagered,
			COALESCE(SUM(payout), 0) AS total_winnings`, models.FlipResultWin).
		Group("owner_wallet").
		Order("total_winnings DESC, wins DESC, wallet ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, s.mapErr(ctx, err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		rate := decimal.Zero
		if r.TotalGames > 0 {
			rate = decimal.NewFromInt(r.Wins).Mul(hundred).
				Div(decimal.NewFromInt(r.TotalGames)).Round(2)
		}
		entries = append(entries, models.LeaderboardEntry{
			Wallet:        r.Wallet,
			TotalGames:    r.TotalGames,
			Wins:          r.Wins,
			Losses:        r.TotalGames - r.Wins,
			TotalWinnings: r.TotalWinnings,
			TotalWagered:  r.TotalWagered,
			WinRate:       rate,
		})
	}
	return entries, nil
}
