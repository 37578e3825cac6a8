package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/miwidot/twitchmod/internal/app/adapters/platform/twitch/api"
)

type moderationRequest struct {
	Channel   string `json:"channel" binding:"required"`
	UserID    string `json:"user_id"`
	Duration  int    `json:"duration"`
	Reason    string `json:"reason"`
	MessageID string `json:"message_id"`
}

func (h *Handlers) BanHandler(c *gin.Context) {
	h.moderate(c, func(req moderationRequest, broadcasterID string) error {
		return h.api.BanUser(c.Request.Context(), broadcasterID, req.UserID, req.Reason)
	})
}

func (h *Handlers) TimeoutHandler(c *gin.Context) {
	h.moderate(c, func(req moderationRequest, broadcasterID string) error {
		return h.api.TimeoutUser(c.Request.Context(), broadcasterID, req.UserID, req.Duration, req.Reason)
	})
}

func (h *Handlers) UnbanHandler(c *gin.Context) {
	h.moderate(c, func(req moderationRequest, broadcasterID string) error {
		return h.api.UnbanUser(c.Request.Context(), broadcasterID, req.UserID)
	})
}

func (h *Handlers) DeleteMessageHandler(c *gin.Context) {
	h.moderate(c, func(req moderationRequest, broadcasterID string) error {
		return h.api.DeleteChatMessage(c.Request.Context(), broadcasterID, req.MessageID)
	})
}

func (h *Handlers) moderate(c *gin.Context, action func(req moderationRequest, broadcasterID string) error) {
	var req moderationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	broadcasterID, err := h.api.GetChannelID(c.Request.Context(), req.Channel)
	if err != nil {
		h.log.Error("Failed to resolve channel", err)
		c.JSON(moderationStatus(err), gin.H{"error": err.Error()})
		return
	}

	if err := action(req, broadcasterID); err != nil {
		h.log.Error("Moderation call failed", err)
		c.JSON(moderationStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func moderationStatus(err error) int {
	switch {
	case errors.Is(err, api.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrUnauthorized), errors.Is(err, api.ErrNoCredential):
		return http.StatusConflict
	case errors.Is(err, api.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, api.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}
