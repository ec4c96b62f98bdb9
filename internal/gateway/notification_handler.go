package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eduvoyage/admin-gateway/internal/notify"
	"github.com/eduvoyage/admin-gateway/pkg/response"
)

// NotificationHandler replays recent user-facing notifications.
type NotificationHandler struct {
	notifier *notify.Notifier
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifier *notify.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// Recent returns the latest notifications, newest first.
func (h *NotificationHandler) Recent(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	response.JSON(c, http.StatusOK, h.notifier.Recent(limit))
}
