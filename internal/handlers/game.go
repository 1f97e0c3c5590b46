package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wager-settlement-backend/internal/models"
	"wager-settlement-backend/internal/services"
)

type GameHandler struct {
	mines    *services.MinesService
	coinflip *services.CoinflipService
	royale   *services.RoyaleService
	quotes   *services.QuoteService
}

func NewGameHandler(mines *services.MinesService, coinflip *services.CoinflipService, royale *services.RoyaleService, quotes *services.QuoteService) *GameHandler {
	return &GameHandler{
		mines:    mines,
		coinflip: coinflip,
		royale:   royale,
		quotes:   quotes,
	}
}

func (h *GameHandler) StartMines(c *gin.Context) {
	var req models.MinesStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.mines.Start(c.Request.Context(), walletFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game":    resp,
	})
}

func (h *GameHandler) RevealMine(c *gin.Context) {
	var req models.MinesRevealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.mines.Reveal(c.Request.Context(), walletFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  resp,
	})
}

func (h *GameHandler) CashoutMines(c *gin.Context) {
	var req models.MinesCashoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.mines.Cashout(c.Request.Context(), walletFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  resp,
	})
}

func (h *GameHandler) GetMinesSession(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		bindError(c, err)
		return
	}

	view, err := h.mines.Get(c.Request.Context(), walletFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game":    view,
	})
}

func (h *GameHandler) GetActiveMines(c *gin.Context) {
	views, err := h.mines.Active(c.Request.Context(), walletFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"games":   views,
		"count":   len(views),
	})
}

func (h *GameHandler) PlayCoinflip(c *gin.Context) {
	var req models.CoinflipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.coinflip.Play(c.Request.Context(), walletFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"flip":    resp,
	})
}

func (h *GameHandler) GetLeaderboard(c *gin.Context) {
	entries, err := h.coinflip.Leaderboard(c.Request.Context(), queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"leaderboard": entries,
	})
}

func (h *GameHandler) GetCoinflipHistory(c *gin.Context) {
	flips, err := h.coinflip.History(c.Request.Context(), walletFrom(c), queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"flips":   flips,
		"count":   len(flips),
	})
}

func (h *GameHandler) VerifyCoinflip(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		bindError(c, err)
		return
	}

	check, err := h.coinflip.Verify(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"verification": check,
	})
}

func (h *GameHandler) PlaceRoyaleBet(c *gin.Context) {
	var req models.RoyaleBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.royale.Bet(c.Request.Context(), walletFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"battle":  resp,
	})
}

func (h *GameHandler) RegisterCoin(c *gin.Context) {
	var req models.RegisterCoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	coin, err := h.royale.RegisterCoin(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"coin":    coin,
	})
}

func (h *GameHandler) GetBattles(c *gin.Context) {
	battles, err := h.royale.Battles(c.Request.Context(), queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"battles": battles,
	})
}

func (h *GameHandler) GetStakes(c *gin.Context) {
	stakes, err := h.royale.Stakes(c.Request.Context(), walletFrom(c), queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stakes":  stakes,
	})
}

func (h *GameHandler) GetQuote(c *gin.Context) {
	quote, err := h.quotes.Quote(c.Request.Context(), c.Query("token"), c.Query("side"), c.Query("amount"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"quote":   quote,
	})
}
