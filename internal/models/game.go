package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	multiplierBase = decimal.NewFromInt(1)
	multiplierStep = decimal.NewFromFloat(0.1)
	multiplierCap  = decimal.NewFromInt(25)
)

// MinesMultiplier is the payout multiplier after revealed safe tiles:
// min(1 + 0.1*revealed, 25).
func MinesMultiplier(revealed int) decimal.Decimal {
	m := multiplierBase.Add(multiplierStep.Mul(decimal.NewFromInt(int64(revealed))))
	if m.GreaterThan(multiplierCap) {
		return multiplierCap
	}
	return m
}

type MinesSession struct {
	ID                uint64              `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerWallet       string              `gorm:"type:varchar(42);not null;index:idx_mines_owner_status" json:"ownerWallet"`
	BetAmount         decimal.Decimal     `gorm:"type:numeric(38,18);not null" json:"betAmount"`
	StakeTokenAddress string              `gorm:"type:varchar(42);not null" json:"stakeTokenAddress"`
	MinesCount        int                 `gorm:"not null" json:"minesCount"`
	Grid              Grid                `gorm:"type:text;not null" json:"-"`
	RevealedIndices   IndexList           `gorm:"type:text;not null" json:"revealedIndices"`
	Status            MinesStatus         `gorm:"type:varchar(16);not null;index:idx_mines_owner_status" json:"status"`
	CurrentMultiplier decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"currentMultiplier"`
	CashoutAmount     decimal.NullDecimal `gorm:"type:numeric(38,18)" json:"cashoutAmount"`
	CreatedAt         int64               `gorm:"autoCreateTime:milli;not null" json:"createdAt"`
	CompletedAt       *int64              `json:"completedAt,omitempty"`
}

func (MinesSession) TableName() string {
	return "mines_sessions"
}

// NewMinesSession builds an active session over grid. Inputs must already be validated.
func NewMinesSession(owner string, bet decimal.Decimal, stakeToken string, grid Grid, nowMs int64) *MinesSession {
	return &MinesSession{
		OwnerWallet:       owner,
		BetAmount:         bet,
		StakeTokenAddress: stakeToken,
		MinesCount:        grid.MineCount(),
		Grid:              grid,
		RevealedIndices:   IndexList{},
		Status:            MinesStatusActive,
		CurrentMultiplier: MinesMultiplier(0),
		CreatedAt:         nowMs,
	}
}

type RevealOutcome struct {
	IsMine   bool
	GameOver bool
	// MinePositions is only populated once the session is terminal.
	MinePositions []int
}

// Reveal applies one tile reveal to an active session.
func (s *MinesSession) Reveal(idx int, nowMs int64) (RevealOutcome, error) {
	if s.Status != MinesStatusActive {
		return RevealOutcome{}, fmt.Errorf("%w: session is %s", ErrInvalidState, s.Status)
	}
	if idx < 0 || idx >= GridSize {
		return RevealOutcome{}, fmt.Errorf("%w: tile %d out of range", ErrInvalidTile, idx)
	}
	if s.Grid[idx].Revealed || s.RevealedIndices.Contains(idx) {
		return RevealOutcome{}, fmt.Errorf("%w: tile %d already revealed", ErrInvalidTile, idx)
	}

	s.Grid[idx].Revealed = true
	s.RevealedIndices = append(s.RevealedIndices, idx)

	if s.Grid[idx].IsMine {
		s.Status = MinesStatusLost
		s.CompletedAt = &nowMs
		return RevealOutcome{IsMine: true, GameOver: true, MinePositions: s.Grid.MinePositions()}, nil
	}

	s.CurrentMultiplier = MinesMultiplier(len(s.RevealedIndices))

	if len(s.RevealedIndices) == GridSize-s.MinesCount {
		s.Status = MinesStatusWon
		s.CompletedAt = &nowMs
		return RevealOutcome{GameOver: true, MinePositions: s.Grid.MinePositions()}, nil
	}
	return RevealOutcome{}, nil
}

// Cashout settles an active session at its current multiplier.
func (s *MinesSession) Cashout(nowMs int64) (decimal.Decimal, error) {
	if s.Status != MinesStatusActive {
		return decimal.Zero, fmt.Errorf("%w: session is %s", ErrInvalidState, s.Status)
	}

	amount := s.BetAmount.Mul(s.CurrentMultiplier)
	s.CashoutAmount = decimal.NewNullDecimal(amount)
	s.Status = MinesStatusCashedOut
	s.CompletedAt = &nowMs
	return amount, nil
}

// SafeTilesLeft is the number of unrevealed non-mine cells.
func (s *MinesSession) SafeTilesLeft() int {
	left := 0
	for _, c := range s.Grid {
		if !c.IsMine && !c.Revealed {
			left++
		}
	}
	return left
}
