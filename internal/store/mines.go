package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wager-settlement-backend/internal/models"
)

func (s *Store) CreateMinesSession(ctx context.Context, session *models.MinesSession) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := session.Grid.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	return s.mapErr(ctx, s.db.WithContext(ctx).Create(session).Error)
}

// GetMinesSession loads a session owned by owner. Sessions owned by someone
// else are reported as not found.
func (s *Store) GetMinesSession(ctx context.Context, id uint64, owner string) (*models.MinesSession, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var session models.MinesSession
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_wallet = ?", id, owner).
		Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: mines session %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, s.mapErr(ctx, err)
	}
	return &session, nil
}

func (s *Store) ListActiveMinesSessions(ctx context.Context, owner string) ([]*models.MinesSession, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var sessions []*models.MinesSession
	err := s.db.WithContext(ctx).
		Where("owner_wallet = ? AND status = ?", owner, models.MinesStatusActive).
		Order("id DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, s.mapErr(ctx, err)
	}
	return sessions, nil
}

// MutateMinesSession is the concurrency guard for every Mines transition.
// Inside one transaction it locks the owner's row, re-checks that the
// session is still active, lets fn compute the next state and commits it
// with a write conditioned on the row still being active. A write that hits
// zero rows means another request settled the session first: ErrConflict.
func (s *Store) MutateMinesSession(ctx context.Context, id uint64, owner string, fn func(*models.MinesSession) error) (*models.MinesSession, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var session models.MinesSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_wallet = ?", id, owner).
			Take(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: mines session %d", models.ErrNotFound, id)
		}
		if err != nil {
			return err
		}

		if session.Status != models.MinesStatusActive {
			return fmt.Errorf("%w: session is %s", models.ErrInvalidState, session.Status)
		}

		if err := fn(&session); err != nil {
			return err
		}
		return commitMinesSession(tx, &session)
	})
	if err != nil {
		return nil, s.mapErr(ctx, err)
	}
	return &session, nil
}

func commitMinesSession(tx *gorm.DB, session *models.MinesSession) error {
	res := tx.Model(&models.MinesSession{}).
		Where("id = ? AND status = ?", session.ID, models.MinesStatusActive).
		Updates(map[string]interface{}{
			"grid":               session.Grid,
			"revealed_indices":   session.RevealedIndices,
			"status":             session.Status,
			"current_multiplier": session.CurrentMultiplier,
			"cashout_amount":     session.CashoutAmount,
			"completed_at":       session.CompletedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: session %d was settled by a concurrent request", models.ErrConflict, session.ID)
	}
	return nil
}
