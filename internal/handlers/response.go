package handlers

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/gin-gonic/gin"

	"wager-settlement-backend/internal/logging"
	"wager-settlement-backend/internal/models"
)

// exposeStack adds the error detail and the responding handler's stack to
// error bodies. Off in production.
var exposeStack = false

func SetExposeStack(v bool) {
	exposeStack = v
}

func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindInvalidInput, models.KindInvalidTile:
		return http.StatusBadRequest
	case models.KindUnauthorized:
		return http.StatusUnauthorized
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindInvalidState, models.KindConflict:
		return http.StatusConflict
	case models.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	kind := models.KindOf(err)
	status := statusFor(kind)

	msg := err.Error()
	if kind == models.KindInternal {
		logging.Error(c.Request.Context()).Err(err).Str("path", c.FullPath()).Msg("request failed")
		msg = "internal error"
	}

	body := gin.H{
		"success":   false,
		"error":     msg,
		"kind":      kind,
		"retryable": kind.Retryable(),
	}
	if exposeStack {
		body["detail"] = err.Error()
		body["handler_stack"] = string(debug.Stack())
	}
	c.AbortWithStatusJSON(status, body)
}

func bindError(c *gin.Context, err error) {
	respondError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
}

func walletFrom(c *gin.Context) string {
	return c.GetString("wallet")
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return limit
}
