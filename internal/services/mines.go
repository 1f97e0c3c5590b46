package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	mrand "math/rand/v2"
	"time"

	"wager-settlement-backend/internal/logging"
	"wager-settlement-backend/internal/models"
)

// MinesStore is the slice of the session store the Mines engine needs.
type MinesStore interface {
	CreateMinesSession(ctx context.Context, session *models.MinesSession) error
	GetMinesSession(ctx context.Context, id uint64, owner string) (*models.MinesSession, error)
	ListActiveMinesSessions(ctx context.Context, owner string) ([]*models.MinesSession, error)
	MutateMinesSession(ctx context.Context, id uint64, owner string, fn func(*models.MinesSession) error) (*models.MinesSession, error)
	NowMillis() int64
}

// IndexSource draws uniform integers in [0, n).
type IndexSource interface {
	IntN(n int) int
}

// GenerateGrid places minesCount mines by rejection sampling: draw an index,
// keep it only if it is not already a mine, until enough are placed.
func GenerateGrid(src IndexSource, minesCount int) (models.Grid, error) {
	if minesCount < models.MinMines || minesCount > models.MaxMines {
		return models.Grid{}, fmt.Errorf("%w: minesCount must be between %d and %d",
			models.ErrInvalidInput, models.MinMines, models.MaxMines)
	}

	placed := make(map[int]struct{}, minesCount)
	mines := make([]int, 0, minesCount)
	for len(mines) < minesCount {
		idx := src.IntN(models.GridSize)
		if _, dup := placed[idx]; dup {
			continue
		}
		placed[idx] = struct{}{}
		mines = append(mines, idx)
	}
	return models.NewGrid(mines)
}

// seededIndexSource keys a ChaCha8 stream with the seed and fresh local
// entropy, so a public block hash alone does not reveal the grid.
func seededIndexSource(seed models.Seed) (IndexSource, error) {
	var salt [32]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, fmt.Errorf("read entropy: %w", err)
	}
	h := sha256.New()
	h.Write(seed.Value[:])
	h.Write(salt[:])
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return mrand.New(mrand.NewChaCha8(key)), nil
}

type MinesService struct {
	store       MinesStore
	random      RandomnessSource
	verifier    Verifier
	broadcaster Broadcaster
	maxSigAge   time.Duration
	indexSource func(models.Seed) (IndexSource, error)
}

func NewMinesService(store MinesStore, random RandomnessSource, verifier Verifier, broadcaster Broadcaster, maxSigAge time.Duration) *MinesService {
	return &MinesService{
		store:       store,
		random:      random,
		verifier:    verifier,
		broadcaster: orNop(broadcaster),
		maxSigAge:   maxSigAge,
		indexSource: seededIndexSource,
	}
}

func (s *MinesService) Start(ctx context.Context, owner string, req *models.MinesStartRequest) (*models.MinesStartResponse, error) {
	bet, err := models.ParseAmount("betAmount", req.BetAmount)
	if err != nil {
		return nil, err
	}
	token, err := models.NormalizeWallet(req.StakeTokenAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: stakeTokenAddress is not a valid address", models.ErrInvalidInput)
	}
	if req.MinesCount < models.MinMines || req.MinesCount > models.MaxMines {
		return nil, fmt.Errorf("%w: minesCount must be between %d and %d",
			models.ErrInvalidInput, models.MinMines, models.MaxMines)
	}

	seed, err := s.random.NextSeed(ctx, owner)
	if err != nil {
		return nil, err
	}
	src, err := s.indexSource(seed)
	if err != nil {
		return nil, err
	}
	grid, err := GenerateGrid(src, req.MinesCount)
	if err != nil {
		return nil, err
	}

	session := models.NewMinesSession(owner, bet, token, grid, s.store.NowMillis())
	if err := s.store.CreateMinesSession(ctx, session); err != nil {
		return nil, err
	}

	logging.Info(ctx).
		Str("wallet", owner).
		Uint64("session_id", session.ID).
		Str("bet", bet.String()).
		Int("mines", session.MinesCount).
		Bool("fallback_seed", seed.Fallback()).
		Msg("mines session started")

	return &models.MinesStartResponse{
		SessionID:  session.ID,
		TotalTiles: models.GridSize,
		MinesCount: session.MinesCount,
	}, nil
}

func (s *MinesService) Reveal(ctx context.Context, owner string, req *models.MinesRevealRequest) (*models.MinesRevealResponse, error) {
	if req.TileIndex == nil {
		return nil, fmt.Errorf("%w: tileIndex is required", models.ErrInvalidInput)
	}
	if err := s.verifier.Verify(ctx, req.Message, req.Signature, owner, s.maxSigAge); err != nil {
		return nil, err
	}

	idx := *req.TileIndex
	var outcome models.RevealOutcome
	session, err := s.store.MutateMinesSession(ctx, req.SessionID, owner, func(m *models.MinesSession) error {
		var err error
		outcome, err = m.Reveal(idx, s.store.NowMillis())
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := &models.MinesRevealResponse{
		SessionID:         session.ID,
		GameOver:          outcome.GameOver,
		IsMine:            outcome.IsMine,
		Status:            session.Status,
		CurrentMultiplier: session.CurrentMultiplier,
		RevealedIndices:   []int(session.RevealedIndices),
		SafeTilesLeft:     session.SafeTilesLeft(),
		MinePositions:     outcome.MinePositions,
	}

	log := logging.Info(ctx).
		Str("wallet", owner).
		Uint64("session_id", session.ID).
		Int("tile", idx).
		Str("status", string(session.Status)).
		Str("multiplier", session.CurrentMultiplier.String())
	if outcome.GameOver {
		log.Msg("mines session settled")
		s.broadcaster.BroadcastSettlement(SettlementEvent{
			Type:   EventMinesSettled,
			Game:   models.GameTypeMines,
			ID:     session.ID,
			Wallet: owner,
			Data:   resp,
		})
	} else {
		log.Msg("mines tile revealed")
	}
	return resp, nil
}

func (s *MinesService) Cashout(ctx context.Context, owner string, req *models.MinesCashoutRequest) (*models.MinesCashoutResponse, error) {
	if err := s.verifier.Verify(ctx, req.Message, req.Signature, owner, s.maxSigAge); err != nil {
		return nil, err
	}

	session, err := s.store.MutateMinesSession(ctx, req.SessionID, owner, func(m *models.MinesSession) error {
		_, err := m.Cashout(s.store.NowMillis())
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := &models.MinesCashoutResponse{
		SessionID:     session.ID,
		CashoutAmount: session.CashoutAmount.Decimal,
		Multiplier:    session.CurrentMultiplier,
	}

	logging.Info(ctx).
		Str("wallet", owner).
		Uint64("session_id", session.ID).
		Str("bet", session.BetAmount.String()).
		Str("multiplier", session.CurrentMultiplier.String()).
		Str("cashout", resp.CashoutAmount.String()).
		Msg("mines session cashed out")

	s.broadcaster.BroadcastSettlement(SettlementEvent{
		Type:   EventMinesSettled,
		Game:   models.GameTypeMines,
		ID:     session.ID,
		Wallet: owner,
		Data:   resp,
	})
	return resp, nil
}

func (s *MinesService) Get(ctx context.Context, owner string, id uint64) (models.MinesSessionView, error) {
	session, err := s.store.GetMinesSession(ctx, id, owner)
	if err != nil {
		return models.MinesSessionView{}, err
	}
	return models.NewMinesSessionView(session), nil
}

func (s *MinesService) Active(ctx context.Context, owner string) ([]models.MinesSessionView, error) {
	sessions, err := s.store.ListActiveMinesSessions(ctx, owner)
	if err != nil {
		return nil, err
	}
	views := make([]models.MinesSessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, models.NewMinesSessionView(session))
	}
	return views, nil
}
