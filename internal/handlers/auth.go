package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wager-settlement-backend/internal/logging"
	"wager-settlement-backend/internal/models"
	"wager-settlement-backend/internal/services"
)

type AuthHandler struct {
	verifier  services.Verifier
	jwt       *services.JWTService
	maxSigAge time.Duration
}

func NewAuthHandler(verifier services.Verifier, jwt *services.JWTService, maxSigAge time.Duration) *AuthHandler {
	return &AuthHandler{verifier: verifier, jwt: jwt, maxSigAge: maxSigAge}
}

// WalletLogin exchanges a signed login message for a session token.
func (h *AuthHandler) WalletLogin(c *gin.Context) {
	var req models.WalletLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	wallet, err := models.NormalizeWallet(req.Address)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.verifier.Verify(ctx, req.Message, req.Signature, wallet, h.maxSigAge); err != nil {
		logging.Warn(ctx).Err(err).Str("wallet", wallet).Msg("wallet login rejected")
		respondError(c, err)
		return
	}

	session, err := h.jwt.Issue(wallet)
	if err != nil {
		respondError(c, err)
		return
	}

	logging.Info(ctx).Str("wallet", wallet).Str("session_id", session.SessionID).Msg("wallet logged in")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}
