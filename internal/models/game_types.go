package models

type GameType string

const (
	GameTypeMines      GameType = "mines"
	GameTypeCoinFlip   GameType = "coinflip"
	GameTypeMemeRoyale GameType = "meme_royale"
)

type MinesStatus string

const (
	MinesStatusActive    MinesStatus = "active"
	MinesStatusWon       MinesStatus = "won"
	MinesStatusLost      MinesStatus = "lost"
	MinesStatusCashedOut MinesStatus = "cashed_out"
)

func (s MinesStatus) Terminal() bool {
	return s == MinesStatusWon || s == MinesStatusLost || s == MinesStatusCashedOut
}

type CoinSide string

const (
	CoinSideHeads CoinSide = "heads"
	CoinSideTails CoinSide = "tails"
)

func (s CoinSide) Valid() bool {
	return s == CoinSideHeads || s == CoinSideTails
}

type FlipResult string

const (
	FlipResultWin  FlipResult = "win"
	FlipResultLose FlipResult = "lose"
)

type StakeSide string

const (
	StakeSideLeft  StakeSide = "left"
	StakeSideRight StakeSide = "right"
)

func (s StakeSide) Valid() bool {
	return s == StakeSideLeft || s == StakeSideRight
}
