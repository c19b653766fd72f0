package course

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/pkg/cache"
	"github.com/learnhub-app/learnhub-server-go/pkg/pagination"
	"github.com/learnhub-app/learnhub-server-go/pkg/request"
	"github.com/learnhub-app/learnhub-server-go/pkg/response"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

const listVersionKey = "catalog:list:version"

// Handler handles course catalog HTTP requests. Catalog listings go through
// a TTL cache; writes bump a version counter so stale pages age out without
// enumerating every cached key.
type Handler struct {
	db       *gorm.DB
	logger   *slog.Logger
	cache    cache.Client
	cacheTTL time.Duration
}

// NewHandler creates a course handler.
func NewHandler(db *gorm.DB, logger *slog.Logger, cacheClient cache.Client, cacheTTL time.Duration) *Handler {
	return &Handler{db: db, logger: logger, cache: cacheClient, cacheTTL: cacheTTL}
}

type listPayload struct {
	Courses []Course `json:"courses"`
	Total   int64    `json:"total"`
}

// List returns the paginated catalog, served from cache when fresh.
func (h *Handler) List(c *gin.Context) {
	params := pagination.Extract(c)

	filters := ListFilters{
		Category:   c.Query("category"),
		Keyword:    c.Query("keyword"),
		ActiveOnly: c.Query("includeInactive") != "true",
	}
	if mentorID := c.Query("mentorId"); mentorID != "" {
		id, err := uuid.Parse(mentorID)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid mentor ID", nil)
			return
		}
		filters.MentorID = id
	}

	ctx := c.Request.Context()
	key := h.listCacheKey(ctx, filters, params)

	if cached, err := h.cache.Get(ctx, key); err == nil && cached != "" {
		var payload listPayload
		if err := json.Unmarshal([]byte(cached), &payload); err == nil {
			response.Success(c, http.StatusOK, payload.Courses, "", pagination.MetadataFrom(payload.Total, params))
			return
		}
	}

	courses, total, err := List(h.db, filters, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to fetch courses", err)
		return
	}

	if data, err := json.Marshal(listPayload{Courses: courses, Total: total}); err == nil {
		if err := h.cache.Set(ctx, key, string(data), h.cacheTTL); err != nil {
			h.logger.WarnContext(ctx, "course list cache write failed", slog.String("error", err.Error()))
		}
	}

	response.Success(c, http.StatusOK, courses, "", pagination.MetadataFrom(total, params))
}

// GetByID returns a single course.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid course ID", nil)
		return
	}

	crs, err := Get(h.db, id)
	if err != nil {
		h.respondError(c, err, "Failed to fetch course")
		return
	}

	response.SuccessWithCache(c, http.StatusOK, crs, "", 60)
}

type createRequest struct {
	Title        string      `json:"title" binding:"required"`
	Category     string      `json:"category"`
	Description  string      `json:"description"`
	Price        string      `json:"price"`
	ImageKey     string      `json:"imageKey"`
	Sections     SectionList `json:"sections"`
	Active       *bool       `json:"isActive"`
	MentorIDHint *uuid.UUID  `json:"mentorId"`
}

// Create adds a course to the catalog. Mentors own what they create;
// admins may create on behalf of a mentor.
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	mentorID, role, ok := callerIdentity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	if role == types.UserRoleAdmin && req.MentorIDHint != nil {
		mentorID = *req.MentorIDHint
	}

	crs, err := Create(h.db, CreateInput{
		MentorID:     mentorID,
		Title:        req.Title,
		Category:     req.Category,
		Description:  req.Description,
		PriceDisplay: req.Price,
		ImageKey:     req.ImageKey,
		Sections:     req.Sections,
		Active:       req.Active,
	})
	if err != nil {
		h.respondError(c, err, "Failed to create course")
		return
	}

	h.InvalidateList(c.Request.Context())
	response.Created(c, crs, "Course created")
}

type updateRequest struct {
	Title       *string      `json:"title"`
	Category    *string      `json:"category"`
	Description *string      `json:"description"`
	Price       *string      `json:"price"`
	ImageKey    *string      `json:"imageKey"`
	Sections    *SectionList `json:"sections"`
	Active      *bool        `json:"isActive"`
}

// Update modifies a course owned by the caller.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid course ID", nil)
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if err := h.authorizeOwner(c, id); err != nil {
		h.respondError(c, err, "Failed to update course")
		return
	}

	crs, err := Update(h.db, id, UpdateInput{
		Title:        req.Title,
		Category:     req.Category,
		Description:  req.Description,
		PriceDisplay: req.Price,
		ImageKey:     req.ImageKey,
		Sections:     req.Sections,
		Active:       req.Active,
	})
	if err != nil {
		h.respondError(c, err, "Failed to update course")
		return
	}

	h.InvalidateList(c.Request.Context())
	response.Success(c, http.StatusOK, crs, "Course updated", nil)
}

// Delete removes a course owned by the caller.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid course ID", nil)
		return
	}

	if err := h.authorizeOwner(c, id); err != nil {
		h.respondError(c, err, "Failed to delete course")
		return
	}

	if err := Delete(h.db, id); err != nil {
		h.respondError(c, err, "Failed to delete course")
		return
	}

	h.InvalidateList(c.Request.Context())
	response.Success(c, http.StatusOK, nil, "Course deleted", nil)
}

// ListAssignments returns assignments for a course.
func (h *Handler) ListAssignments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid course ID", nil)
		return
	}

	assignments, err := ListAssignments(h.db, id)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to fetch assignments", err)
		return
	}

	response.Success(c, http.StatusOK, assignments, "", nil)
}

type assignmentRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	DueDate     *string `json:"dueDate"`
}

// CreateAssignment adds an assignment to a course owned by the caller.
func (h *Handler) CreateAssignment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid course ID", nil)
		return
	}

	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if err := h.authorizeOwner(c, id); err != nil {
		h.respondError(c, err, "Failed to create assignment")
		return
	}

	dueDate, err := request.ParseRFC3339Ptr(req.DueDate)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid due date, expected RFC3339", nil)
		return
	}

	assignment, err := CreateAssignment(h.db, Assignment{
		CourseID:    id,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     dueDate,
	})
	if err != nil {
		h.respondError(c, err, "Failed to create assignment")
		return
	}

	response.Created(c, assignment, "Assignment created")
}

// ListQuizzes returns quizzes for a course.
func (h *Handler) ListQuizzes(c *gin.Context) {
	id, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid course ID", nil)
		return
	}

	quizzes, err := ListQuizzes(h.db, id)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to fetch quizzes", err)
		return
	}

	response.Success(c, http.StatusOK, quizzes, "", nil)
}

type quizRequest struct {
	Title     string                `json:"title" binding:"required"`
	Questions types.MCQQuestionList `json:"questions"`
}

// CreateQuiz adds a quiz to a course owned by the caller.
func (h *Handler) CreateQuiz(c *gin.Context) {
	id, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid course ID", nil)
		return
	}

	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if err := h.authorizeOwner(c, id); err != nil {
		h.respondError(c, err, "Failed to create quiz")
		return
	}

	quiz, err := CreateQuiz(h.db, Quiz{
		CourseID:  id,
		Title:     req.Title,
		Questions: req.Questions,
	})
	if err != nil {
		h.respondError(c, err, "Failed to create quiz")
		return
	}

	response.Created(c, quiz, "Quiz created")
}

// InvalidateList bumps the catalog version so cached pages stop matching.
func (h *Handler) InvalidateList(ctx context.Context) {
	if _, err := h.cache.Increment(ctx, listVersionKey); err != nil {
		h.logger.WarnContext(ctx, "course list cache invalidation failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) listCacheKey(ctx context.Context, filters ListFilters, params pagination.Params) string {
	version, err := h.cache.Get(ctx, listVersionKey)
	if err != nil || version == "" {
		version = "0"
	}
	return fmt.Sprintf("catalog:list:v%s:%d:%d:%s:%s:%s:%t",
		version, params.Page, params.Limit, filters.MentorID, filters.Category, filters.Keyword, filters.ActiveOnly)
}

// authorizeOwner verifies that the caller is the course's mentor or an admin.
func (h *Handler) authorizeOwner(c *gin.Context, courseID uuid.UUID) error {
	callerID, role, ok := callerIdentity(c)
	if !ok {
		return ErrNotCourseOwner
	}
	if role == types.UserRoleAdmin {
		return nil
	}

	crs, err := Get(h.db, courseID)
	if err != nil {
		return err
	}
	if crs.MentorID != callerID {
		return ErrNotCourseOwner
	}
	return nil
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrCourseNotFound):
		response.Error(c, http.StatusNotFound, "Course not found", nil)
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrInvalidQuestion):
		response.Error(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrNotCourseOwner):
		response.Error(c, http.StatusForbidden, "You do not have access to this course", nil)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}

func callerIdentity(c *gin.Context) (uuid.UUID, types.UserRole, bool) {
	idValue, exists := c.Get("userId")
	if !exists {
		return uuid.Nil, "", false
	}
	id, ok := idValue.(uuid.UUID)
	if !ok {
		return uuid.Nil, "", false
	}

	role := types.UserRole("")
	if roleValue, exists := c.Get("userRole"); exists {
		if r, ok := roleValue.(types.UserRole); ok {
			role = r
		}
	}

	return id, role, true
}
