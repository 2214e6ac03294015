package handlers

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/finware/notify/internal/middleware"
	"github.com/finware/notify/internal/services"
	"github.com/finware/notify/internal/stream"
	"github.com/finware/notify/pkg/errors"
	"github.com/finware/notify/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for notifications.
type NotificationHandler struct {
	service *services.NotificationService
	live    *stream.LiveCounter
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(service *services.NotificationService, live *stream.LiveCounter) (*NotificationHandler, error) {
	if service == nil || live == nil {
		return nil, stderrors.New("handlers: notification service and live counter are required")
	}
	return &NotificationHandler{
		service: service,
		live:    live,
	}, nil
}

// List returns notifications for the current user, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID <= 0 {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	limit := parseIntQuery(c, "limit", 25)
	offset := parseIntQuery(c, "offset", 0)

	items, err := h.service.ListForUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}

// MarkRead flips a notification to read. Idempotent.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID <= 0 {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		response.Error(c, errors.NewBadRequest("id must be a positive integer"))
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), uint(id)); err != nil {
		response.Error(c, err)
		return
	}

	response.Ack(c, "Notification marked as read.")
}

// Count streams the unread count as server-sent events: one snapshot frame
// carrying the authoritative count, then one frame per live notification.
func (h *NotificationHandler) Count(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID <= 0 {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	frames, err := h.live.Open(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		frame, ok := <-frames
		if !ok {
			return false
		}
		c.SSEvent("message", frame)
		return true
	})
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
