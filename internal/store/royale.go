package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wager-settlement-backend/internal/models"
)

// SettleBattle writes a judged battle and the stake placed on it atomically.
// The stake's BattleID is filled in from the new battle.
func (s *Store) SettleBattle(ctx context.Context, battle *models.Battle, stake *models.Stake) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(battle).Error; err != nil {
			return err
		}
		stake.BattleID = battle.ID
		return tx.Create(stake).Error
	})
	return s.mapErr(ctx, err)
}

// RecentBattles returns the newest battles with side metadata where known.
func (s *Store) RecentBattles(ctx context.Context, limit int) ([]models.BattleView, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var battles []models.Battle
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&battles).Error; err != nil {
		return nil, s.mapErr(ctx, err)
	}
	if len(battles) == 0 {
		return []models.BattleView{}, nil
	}

	ids := make([]string, 0, len(battles)*2)
	for _, b := range battles {
		ids = append(ids, b.LeftCoinID, b.RightCoinID)
	}

	var coins []models.Coin
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&coins).Error; err != nil {
		return nil, s.mapErr(ctx, err)
	}
	byID := make(map[string]*models.Coin, len(coins))
	for i := range coins {
		byID[coins[i].ID] = &coins[i]
	}

	views := make([]models.BattleView, 0, len(battles))
	for _, b := range battles {
		views = append(views, models.BattleView{
			Battle:    b,
			LeftCoin:  byID[b.LeftCoinID],
			RightCoin: byID[b.RightCoinID],
		})
	}
	return views, nil
}

func (s *Store) ListStakes(ctx context.Context, owner string, limit int) ([]*models.Stake, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var stakes []*models.Stake
	err := s.db.WithContext(ctx).
		Where("owner_wallet = ?", owner).
		Order("id DESC").
		Limit(limit).
		Find(&stakes).Error
	if err != nil {
		return nil, s.mapErr(ctx, err)
	}
	return stakes, nil
}

// UpsertCoin records display metadata for a coin.
func (s *Store) UpsertCoin(ctx context.Context, coin *models.Coin) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "symbol", "image_url", "contract_address"}),
	}).Create(coin).Error
	return s.mapErr(ctx, err)
}
