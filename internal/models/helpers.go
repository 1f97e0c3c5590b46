package models

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// NormalizeWallet validates an EVM address and lower-cases it.
func NormalizeWallet(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("%w: %q is not a valid address", ErrInvalidInput, addr)
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), nil
}

// ParseAmount parses a strictly positive decimal amount.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s must be a decimal number", ErrInvalidInput, field)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be greater than zero", ErrInvalidInput, field)
	}
	return amount, nil
}

// Signed carries the optional per-action wallet signature.
type Signed struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

type MinesStartRequest struct {
	BetAmount         string `json:"betAmount" binding:"required"`
	StakeTokenAddress string `json:"stakeTokenAddress" binding:"required"`
	MinesCount        int    `json:"minesCount"`
}

type MinesStartResponse struct {
	SessionID  uint64 `json:"sessionId"`
	TotalTiles int    `json:"totalTiles"`
	MinesCount int    `json:"minesCount"`
}

type MinesRevealRequest struct {
	Signed
	SessionID uint64 `json:"sessionId" binding:"required"`
	TileIndex *int   `json:"tileIndex" binding:"required"`
}

type MinesRevealResponse struct {
	SessionID         uint64          `json:"sessionId"`
	GameOver          bool            `json:"gameOver"`
	IsMine            bool            `json:"isMine"`
	Status            MinesStatus     `json:"status"`
	CurrentMultiplier decimal.Decimal `json:"currentMultiplier"`
	RevealedIndices   []int           `json:"revealedIndices"`
	SafeTilesLeft     int             `json:"safeTilesLeft"`
	MinePositions     []int           `json:"minePositions,omitempty"`
}

type MinesCashoutRequest struct {
	Signed
	SessionID uint64 `json:"sessionId" binding:"required"`
}

type MinesCashoutResponse struct {
	SessionID     uint64          `json:"sessionId"`
	CashoutAmount decimal.Decimal `json:"cashoutAmount"`
	Multiplier    decimal.Decimal `json:"multiplier"`
}

// MinesSessionView is the owner-facing view; mines stay hidden while active.
type MinesSessionView struct {
	*MinesSession
	SafeTilesLeft int   `json:"safeTilesLeft"`
	MinePositions []int `json:"minePositions,omitempty"`
}

func NewMinesSessionView(s *MinesSession) MinesSessionView {
	view := MinesSessionView{MinesSession: s, SafeTilesLeft: s.SafeTilesLeft()}
	if s.Status.Terminal() {
		view.MinePositions = s.Grid.MinePositions()
	}
	return view
}

type CoinflipRequest struct {
	Signed
	Wager      string   `json:"wager" binding:"required"`
	UserChoice CoinSide `json:"userChoice" binding:"required"`
}

type CoinflipResponse struct {
	ID          uint64          `json:"id"`
	Outcome     CoinSide        `json:"outcome"`
	Result      FlipResult      `json:"result"`
	Payout      decimal.Decimal `json:"payout"`
	BlockNumber *uint64         `json:"blockNumber,omitempty"`
	BlockHash   *string         `json:"blockHash,omitempty"`
	SeedSource  string          `json:"seedSource"`
}

type CoinflipVerification struct {
	ID              uint64   `json:"id"`
	BlockHash       string   `json:"blockHash"`
	StoredOutcome   CoinSide `json:"storedOutcome"`
	ComputedOutcome CoinSide `json:"computedOutcome"`
	Valid           bool     `json:"valid"`
}

type RoyaleBetRequest struct {
	LeftCoinID  string    `json:"leftCoinId" binding:"required"`
	RightCoinID string    `json:"rightCoinId" binding:"required"`
	StakeAmount string    `json:"stakeAmount" binding:"required"`
	StakeSide   StakeSide `json:"stakeSide" binding:"required"`
}

type RegisterCoinRequest struct {
	ID              string `json:"id" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Symbol          string `json:"symbol" binding:"required"`
	ImageURL        string `json:"imageUrl"`
	ContractAddress string `json:"contractAddress"`
}

type RoyaleBetResponse struct {
	BattleID     uint64 `json:"battleId"`
	LeftScore    int    `json:"leftScore"`
	RightScore   int    `json:"rightScore"`
	WinnerCoinID string `json:"winnerCoinId"`
	UserWon      bool   `json:"userWon"`
}
