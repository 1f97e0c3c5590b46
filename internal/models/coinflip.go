package models

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// Provenance identifies where a seed came from. BlockHash is nil when the
// local fallback produced the seed, in which case FallbackID is set.
type Provenance struct {
	BlockNumber *uint64 `json:"blockNumber,omitempty"`
	BlockHash   *string `json:"blockHash,omitempty"`
	FallbackID  string  `json:"fallbackId,omitempty"`
}

type Seed struct {
	Value      [32]byte
	Provenance Provenance
}

// Fallback reports whether the seed is not provably fair.
func (s Seed) Fallback() bool {
	return s.Provenance.BlockHash == nil
}

func (s Seed) Source() string {
	if s.Provenance.BlockHash != nil {
		return *s.Provenance.BlockHash
	}
	return s.Provenance.FallbackID
}

// OutcomeFromSeed: even last byte is heads, odd is tails.
func OutcomeFromSeed(value []byte) CoinSide {
	if len(value) == 0 || value[len(value)-1]%2 == 0 {
		return CoinSideHeads
	}
	return CoinSideTails
}

// OutcomeFromBlockHash recomputes a flip outcome from a 0x-prefixed block hash.
func OutcomeFromBlockHash(hash string) (CoinSide, error) {
	raw, err := hexutil.Decode(hash)
	if err != nil {
		return "", fmt.Errorf("%w: block hash: %v", ErrInvalidInput, err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("%w: block hash must be 32 bytes", ErrInvalidInput)
	}
	return OutcomeFromSeed(raw), nil
}

// CoinflipRecord is the append-only settlement of one flip.
type CoinflipRecord struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerWallet string          `gorm:"type:varchar(42);not null;index" json:"ownerWallet"`
	Wager       decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"wager"`
	UserChoice  CoinSide        `gorm:"type:varchar(8);not null" json:"userChoice"`
	Outcome     CoinSide        `gorm:"type:varchar(8);not null" json:"outcome"`
	Result      FlipResult      `gorm:"type:varchar(8);not null" json:"result"`
	Payout      decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"payout"`
	SeedSource  string          `gorm:"type:varchar(80);not null" json:"seedSource"`
	BlockNumber *uint64         `json:"blockNumber,omitempty"`
	BlockHash   *string         `gorm:"type:varchar(66)" json:"blockHash,omitempty"`
	CreatedAt   int64           `gorm:"autoCreateTime:milli;not null;index" json:"createdAt"`
	CompletedAt int64           `gorm:"not null" json:"completedAt"`
}

func (CoinflipRecord) TableName() string {
	return "coinflip_records"
}

// NewCoinflipRecord settles a flip against seed. Win pays twice the wager.
func NewCoinflipRecord(owner string, wager decimal.Decimal, choice CoinSide, seed Seed, nowMs int64) *CoinflipRecord {
	outcome := OutcomeFromSeed(seed.Value[:])

	rec := &CoinflipRecord{
		OwnerWallet: owner,
		Wager:       wager,
		UserChoice:  choice,
		Outcome:     outcome,
		Result:      FlipResultLose,
		Payout:      decimal.Zero,
		SeedSource:  seed.Source(),
		BlockNumber: seed.Provenance.BlockNumber,
		BlockHash:   seed.Provenance.BlockHash,
		CreatedAt:   nowMs,
		CompletedAt: nowMs,
	}
	if choice == outcome {
		rec.Result = FlipResultWin
		rec.Payout = wager.Mul(decimal.NewFromInt(2))
	}
	return rec
}

type LeaderboardEntry struct {
	Wallet        string          `json:"wallet"`
	TotalGames    int64           `json:"totalGames"`
	Wins          int64           `json:"wins"`
	Losses        int64           `json:"losses"`
	TotalWinnings decimal.Decimal `json:"totalWinnings"`
	TotalWagered  decimal.Decimal `json:"totalWagered"`
	WinRate       decimal.Decimal `json:"winRate"`
}
