package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wager-settlement-backend/internal/services"
)

type UserHandler struct {
	mines *services.MinesService
}

func NewUserHandler(mines *services.MinesService) *UserHandler {
	return &UserHandler{mines: mines}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	wallet := walletFrom(c)

	active, err := h.mines.Active(c.Request.Context(), wallet)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"wallet":      wallet,
			"session_id":  c.GetString("session_id"),
			"activeMines": len(active),
		},
	})
}
