package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"wager-settlement-backend/internal/logging"
	"wager-settlement-backend/internal/models"
)

const (
	maxJudgeAttempts = 5
	maxScore         = 100
)

// Judge scores one side of a battle. Scores are in [0, 100].
type Judge interface {
	Name() string
	Score(ctx context.Context, coinID string) (int, error)
}

// RandomJudge is the placeholder scorer: an unweighted random score per side.
type RandomJudge struct{}

func (RandomJudge) Name() string { return "random-v1" }

func (RandomJudge) Score(context.Context, string) (int, error) {
	return rand.IntN(maxScore + 1), nil
}

type RoyaleStore interface {
	SettleBattle(ctx context.Context, battle *models.Battle, stake *models.Stake) error
	RecentBattles(ctx context.Context, limit int) ([]models.BattleView, error)
	ListStakes(ctx context.Context, owner string, limit int) ([]*models.Stake, error)
	UpsertCoin(ctx context.Context, coin *models.Coin) error
	NowMillis() int64
}

type RoyaleService struct {
	store       RoyaleStore
	judge       Judge
	broadcaster Broadcaster
}

func NewRoyaleService(store RoyaleStore, judge Judge, broadcaster Broadcaster) *RoyaleService {
	if judge == nil {
		judge = RandomJudge{}
	}
	return &RoyaleService{store: store, judge: judge, broadcaster: orNop(broadcaster)}
}

// Bet judges a fresh battle between two coins and settles the caller's stake
// on it. A battle is judged exactly once.
func (s *RoyaleService) Bet(ctx context.Context, owner string, req *models.RoyaleBetRequest) (*models.RoyaleBetResponse, error) {
	left := strings.TrimSpace(req.LeftCoinID)
	right := strings.TrimSpace(req.RightCoinID)
	if left == "" || right == "" {
		return nil, fmt.Errorf("%w: both coin ids are required", models.ErrInvalidInput)
	}
	if strings.EqualFold(left, right) {
		return nil, fmt.Errorf("%w: a coin cannot battle itself", models.ErrInvalidInput)
	}
	side := models.StakeSide(strings.ToLower(strings.TrimSpace(string(req.StakeSide))))
	if !side.Valid() {
		return nil, fmt.Errorf("%w: stakeSide must be left or right", models.ErrInvalidInput)
	}
	amount, err := models.ParseAmount("stakeAmount", req.StakeAmount)
	if err != nil {
		return nil, err
	}

	leftScore, rightScore, err := s.judgeBattle(ctx, left, right)
	if err != nil {
		return nil, err
	}

	now := s.store.NowMillis()
	battle := &models.Battle{
		LeftCoinID:   left,
		RightCoinID:  right,
		LeftScore:    leftScore,
		RightScore:   rightScore,
		WinnerCoinID: left,
		Judge:        s.judge.Name(),
		CreatedAt:    now,
		CompletedAt:  now,
	}
	if rightScore > leftScore {
		battle.WinnerCoinID = right
	}
	stake := &models.Stake{
		OwnerWallet: owner,
		StakeSide:   side,
		StakeAmount: amount,
		Won:         battle.WinnerSide() == side,
		CreatedAt:   now,
	}

	if err := s.store.SettleBattle(ctx, battle, stake); err != nil {
		return nil, err
	}

	resp := &models.RoyaleBetResponse{
		BattleID:     battle.ID,
		LeftScore:    battle.LeftScore,
		RightScore:   battle.RightScore,
		WinnerCoinID: battle.WinnerCoinID,
		UserWon:      stake.Won,
	}

	logging.Info(ctx).
		Str("wallet", owner).
		Uint64("battle_id", battle.ID).
		Str("left", left).
		Str("right", right).
		Int("left_score", leftScore).
		Int("right_score", rightScore).
		Str("stake_side", string(side)).
		Str("stake", amount.String()).
		Bool("won", stake.Won).
		Msg("royale battle settled")

	s.broadcaster.BroadcastSettlement(SettlementEvent{
		Type:   EventRoyaleSettled,
		Game:   models.GameTypeMemeRoyale,
		ID:     battle.ID,
		Wallet: owner,
		Data:   resp,
	})
	return resp, nil
}

// judgeBattle re-judges ties a bounded number of times. A persistent tie is
// awarded to the left side.
func (s *RoyaleService) judgeBattle(ctx context.Context, left, right string) (int, int, error) {
	var leftScore, rightScore int
	for attempt := 1; attempt <= maxJudgeAttempts; attempt++ {
		var err error
		if leftScore, err = s.score(ctx, left); err != nil {
			return 0, 0, err
		}
		if rightScore, err = s.score(ctx, right); err != nil {
			return 0, 0, err
		}
		if leftScore != rightScore {
			return leftScore, rightScore, nil
		}
	}
	logging.Warn(ctx).
		Str("left", left).
		Str("right", right).
		Int("score", leftScore).
		Msg("battle still tied after re-judging, left side wins")
	return leftScore, rightScore, nil
}

func (s *RoyaleService) score(ctx context.Context, coinID string) (int, error) {
	v, err := s.judge.Score(ctx, coinID)
	if err != nil {
		return 0, fmt.Errorf("%w: judge %s: %v", models.ErrUnavailable, s.judge.Name(), err)
	}
	if v < 0 || v > maxScore {
		return 0, fmt.Errorf("judge %s returned out of range score %d", s.judge.Name(), v)
	}
	return v, nil
}

// RegisterCoin stores or replaces the display metadata shown next to a
// coin's battles.
func (s *RoyaleService) RegisterCoin(ctx context.Context, req *models.RegisterCoinRequest) (*models.Coin, error) {
	coin := &models.Coin{
		ID:       strings.TrimSpace(req.ID),
		Name:     strings.TrimSpace(req.Name),
		Symbol:   strings.TrimSpace(req.Symbol),
		ImageURL: strings.TrimSpace(req.ImageURL),
	}
	if coin.ID == "" || coin.Name == "" || coin.Symbol == "" {
		return nil, fmt.Errorf("%w: id, name and symbol are required", models.ErrInvalidInput)
	}
	if len(coin.ID) > 64 || len(coin.Name) > 128 || len(coin.Symbol) > 32 || len(coin.ImageURL) > 512 {
		return nil, fmt.Errorf("%w: coin metadata too long", models.ErrInvalidInput)
	}
	if addr := strings.TrimSpace(req.ContractAddress); addr != "" {
		normalized, err := models.NormalizeWallet(addr)
		if err != nil {
			return nil, err
		}
		coin.ContractAddress = normalized
	}

	if err := s.store.UpsertCoin(ctx, coin); err != nil {
		return nil, err
	}

	logging.Info(ctx).
		Str("coin", coin.ID).
		Str("symbol", coin.Symbol).
		Msg("royale coin registered")
	return coin, nil
}

func (s *RoyaleService) Battles(ctx context.Context, limit int) ([]models.BattleView, error) {
	return s.store.RecentBattles(ctx, clampLimit(limit, 20))
}

func (s *RoyaleService) Stakes(ctx context.Context, owner string, limit int) ([]*models.Stake, error) {
	return s.store.ListStakes(ctx, owner, clampLimit(limit, 20))
}
