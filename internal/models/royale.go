package models

import (
	"github.com/shopspring/decimal"
)

// Coin is display metadata for a launched token that can enter a battle.
type Coin struct {
	ID              string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name            string `gorm:"type:varchar(128);not null" json:"name"`
	Symbol          string `gorm:"type:varchar(32);not null" json:"symbol"`
	ImageURL        string `gorm:"type:varchar(512)" json:"imageUrl,omitempty"`
	ContractAddress string `gorm:"type:varchar(42)" json:"contractAddress,omitempty"`
	CreatedAt       int64  `gorm:"autoCreateTime:milli" json:"createdAt"`
}

func (Coin) TableName() string {
	return "coins"
}

type Battle struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	LeftCoinID   string `gorm:"type:varchar(64);not null" json:"leftCoinId"`
	RightCoinID  string `gorm:"type:varchar(64);not null" json:"rightCoinId"`
	LeftScore    int    `gorm:"not null" json:"leftScore"`
	RightScore   int    `gorm:"not null" json:"rightScore"`
	WinnerCoinID string `gorm:"type:varchar(64);not null" json:"winnerCoinId"`
	Judge        string `gorm:"type:varchar(32);not null" json:"judge"`
	CreatedAt    int64  `gorm:"autoCreateTime:milli;not null;index" json:"createdAt"`
	CompletedAt  int64  `gorm:"not null" json:"completedAt"`
}

func (Battle) TableName() string {
	return "meme_royale_battles"
}

func (b Battle) WinnerSide() StakeSide {
	if b.WinnerCoinID == b.LeftCoinID {
		return StakeSideLeft
	}
	return StakeSideRight
}

type Stake struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	BattleID    uint64          `gorm:"not null;index" json:"battleId"`
	OwnerWallet string          `gorm:"type:varchar(42);not null;index" json:"ownerWallet"`
	StakeSide   StakeSide       `gorm:"type:varchar(8);not null" json:"stakeSide"`
	StakeAmount decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"stakeAmount"`
	Won         bool            `gorm:"not null" json:"won"`
	CreatedAt   int64           `gorm:"autoCreateTime:milli;not null" json:"createdAt"`
}

func (Stake) TableName() string {
	return "meme_royale_stakes"
}

// BattleView is a battle with whatever side metadata is known.
type BattleView struct {
	Battle
	LeftCoin  *Coin `json:"leftCoin,omitempty"`
	RightCoin *Coin `json:"rightCoin,omitempty"`
}
