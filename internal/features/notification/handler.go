package notification

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/pkg/pagination"
	"github.com/learnhub-app/learnhub-server-go/pkg/response"
)

// Handler handles notification HTTP requests.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewHandler creates a notification handler.
func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// List returns the caller's notifications, newest first.
func (h *Handler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	params := pagination.Extract(c)

	notifications, total, err := ListForUser(h.db, userID, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to fetch notifications", err)
		return
	}

	response.Success(c, http.StatusOK, notifications, "", pagination.MetadataFrom(total, params))
}

// UnreadCount returns how many of the caller's notifications are unread.
func (h *Handler) UnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	count, err := UnreadCount(h.db, userID)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to count notifications", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unread": count}, "", nil)
}

// MarkRead flags one of the caller's notifications as read.
func (h *Handler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	id, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid notification ID", nil)
		return
	}

	if err := MarkRead(h.db, id, userID); err != nil {
		if err == ErrNotificationNotFound {
			response.Error(c, http.StatusNotFound, "Notification not found", nil)
			return
		}
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to update notification", err)
		return
	}

	response.Success(c, http.StatusOK, nil, "Notification marked as read", nil)
}

// MarkAllRead flags all of the caller's unread notifications as read.
func (h *Handler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	updated, err := MarkAllRead(h.db, userID)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to update notifications", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": updated}, "Notifications marked as read", nil)
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("userId")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}
