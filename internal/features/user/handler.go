package user

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/internal/features/notification"
	"github.com/learnhub-app/learnhub-server-go/pkg/pagination"
	"github.com/learnhub-app/learnhub-server-go/pkg/response"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

// Handler processes user HTTP requests.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewHandler constructs a user handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// List returns paginated users with filters. Admin only.
func (h *Handler) List(c *gin.Context) {
	params := pagination.Extract(c)

	filters := ListFilters{
		Keyword: c.Query("filterKeyword"),
	}
	if role := c.Query("role"); role != "" {
		filters.Roles = []types.UserRole{types.UserRole(role)}
	}

	users, total, err := List(h.db, filters, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to list users", err)
		return
	}

	response.Success(c, http.StatusOK, users, "", pagination.MetadataFrom(total, params))
}

// GetByID fetches a single user.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid user id", err)
		return
	}

	usr, err := Get(h.db, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, "user not found", nil)
			return
		}
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to load user", err)
		return
	}

	response.Success(c, http.StatusOK, usr, "", nil)
}

// Me returns the authenticated user's own record, including the denormalized
// enrolled course stubs.
func (h *Handler) Me(c *gin.Context) {
	id, ok := currentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	usr, err := Get(h.db, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, "user not found", nil)
			return
		}
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to load user", err)
		return
	}

	response.Success(c, http.StatusOK, usr, "", nil)
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("userId")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

// ListPendingMentors returns mentor accounts awaiting verification. Admin
// only.
func (h *Handler) ListPendingMentors(c *gin.Context) {
	params := pagination.Extract(c)

	mentors, total, err := ListPendingMentors(h.db, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to list pending mentors", err)
		return
	}

	response.Success(c, http.StatusOK, mentors, "", pagination.MetadataFrom(total, params))
}

// ApproveMentor verifies a pending mentor account.
func (h *Handler) ApproveMentor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid user ID", nil)
		return
	}

	mentor, err := ApproveMentor(h.db, id)
	if err != nil {
		h.respondMentorError(c, err, "Failed to approve mentor")
		return
	}

	h.notifyMentorDecision(c, mentor,
		"Mentor Verification Approved",
		"Your mentor account has been verified.",
		types.NotificationTypeSuccess)

	response.Success(c, http.StatusOK, mentor, "Mentor approved", nil)
}

type rejectMentorRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectMentor declines a pending mentor account with a reason the mentor
// sees verbatim.
func (h *Handler) RejectMentor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid user ID", nil)
		return
	}

	var req rejectMentorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Rejection reason is required", nil)
		return
	}

	mentor, err := RejectMentor(h.db, id, req.Reason)
	if err != nil {
		h.respondMentorError(c, err, "Failed to reject mentor")
		return
	}

	h.notifyMentorDecision(c, mentor,
		"Mentor Verification Rejected",
		fmt.Sprintf("Your mentor verification was rejected. Reason: %s", mentor.MentorStatusReason),
		types.NotificationTypeError)

	response.Success(c, http.StatusOK, mentor, "Mentor rejected", nil)
}

// notifyMentorDecision records the in-app notification. Failures only get
// logged; the status change already happened.
func (h *Handler) notifyMentorDecision(c *gin.Context, mentor User, title, message string, notifType types.NotificationType) {
	if _, err := notification.Create(h.db, mentor.ID, title, message, notifType); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "mentor decision notification failed",
			slog.String("mentorId", mentor.ID.String()),
			slog.String("error", err.Error()))
	}
}

func (h *Handler) respondMentorError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "User not found", nil)
	case errors.Is(err, ErrNotMentor):
		response.Error(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrMentorDecided):
		response.Error(c, http.StatusConflict, "Mentor verification has already been decided", nil)
	case errors.Is(err, ErrReasonRequired):
		response.Error(c, http.StatusBadRequest, err.Error(), nil)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
