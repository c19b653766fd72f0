package enrollment

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/internal/features/course"
	"github.com/learnhub-app/learnhub-server-go/internal/features/notification"
	"github.com/learnhub-app/learnhub-server-go/internal/features/user"
	"github.com/learnhub-app/learnhub-server-go/pkg/email"
	"github.com/learnhub-app/learnhub-server-go/pkg/metrics"
	"github.com/learnhub-app/learnhub-server-go/pkg/pagination"
	"github.com/learnhub-app/learnhub-server-go/pkg/response"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

// Handler handles enrollment HTTP requests. The email client may be nil;
// in-app notifications are the primary channel and email is best effort.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	email  *email.Client
}

// NewHandler creates an enrollment handler.
func NewHandler(db *gorm.DB, logger *slog.Logger, emailClient *email.Client) *Handler {
	return &Handler{db: db, logger: logger, email: emailClient}
}

type createRequest struct {
	CourseID        uuid.UUID `json:"courseId" binding:"required"`
	PaymentProofKey string    `json:"paymentProofKey" binding:"required"`
}

// Create opens a pending enrollment for the calling student. Course name,
// price, and mentor are denormalized onto the record at creation time so
// mentor review lists render without joins.
func (h *Handler) Create(c *gin.Context) {
	caller, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	crs, err := course.Get(h.db, req.CourseID)
	if err != nil {
		if err == course.ErrCourseNotFound {
			response.Error(c, http.StatusNotFound, "Course not found", nil)
			return
		}
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to fetch course", err)
		return
	}

	enr, err := Create(h.db, CreateInput{
		StudentID:       caller.ID,
		StudentName:     caller.FullName,
		CourseID:        crs.ID,
		CourseName:      crs.Title,
		PriceDisplay:    crs.PriceDisplay,
		MentorID:        crs.MentorID,
		PaymentProofKey: req.PaymentProofKey,
	})
	if err != nil {
		h.respondError(c, err, "Failed to create enrollment")
		return
	}

	// Second write, outside the enrollment transaction. The stub on the
	// user record is a denormalized convenience; losing it never loses
	// the enrollment.
	stub := user.CourseStub{CourseID: crs.ID, Progress: 0, EnrolledAt: enr.EnrolledAt}
	if err := user.AppendCourseStub(h.db, caller.ID, stub); err != nil {
		h.logger.WarnContext(c.Request.Context(), "enrolled course stub write failed",
			slog.String("enrollmentId", enr.ID),
			slog.String("error", err.Error()))
	}

	response.Created(c, enr, "Enrollment submitted for review")
}

// ListMine returns the calling student's enrollments.
func (h *Handler) ListMine(c *gin.Context) {
	caller, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	enrollments, err := ListForStudent(h.db, caller.ID)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to fetch enrollments", err)
		return
	}

	response.Success(c, http.StatusOK, enrollments, "", nil)
}

// ListPending returns the mentor's enrollments awaiting a decision.
func (h *Handler) ListPending(c *gin.Context) {
	h.listForMentor(c, types.EnrollmentStatusPending)
}

// ListApproved returns the mentor's active enrollments.
func (h *Handler) ListApproved(c *gin.Context) {
	h.listForMentor(c, types.EnrollmentStatusApproved)
}

func (h *Handler) listForMentor(c *gin.Context, status types.EnrollmentStatus) {
	caller, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	mentorID := caller.ID
	if caller.Role == types.UserRoleAdmin {
		if raw := c.Query("mentorId"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				response.Error(c, http.StatusBadRequest, "Invalid mentor ID", nil)
				return
			}
			mentorID = id
		}
	}

	params := pagination.Extract(c)

	enrollments, total, err := ListForMentor(h.db, mentorID, status, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to fetch enrollments", err)
		return
	}

	response.Success(c, http.StatusOK, enrollments, "", pagination.MetadataFrom(total, params))
}

// GetByID returns a single enrollment. Students see their own records,
// mentors the ones assigned to them, admins everything.
func (h *Handler) GetByID(c *gin.Context) {
	caller, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	enr, err := Get(h.db, c.Param("enrollmentId"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch enrollment")
		return
	}

	if caller.Role != types.UserRoleAdmin && enr.StudentID != caller.ID && enr.MentorID != caller.ID {
		response.Error(c, http.StatusForbidden, "You do not have access to this enrollment", nil)
		return
	}

	response.Success(c, http.StatusOK, enr, "", nil)
}

// Approve grants a pending enrollment. The status write is the source of
// truth; the student-facing notification and email follow it and their
// failures only get logged.
func (h *Handler) Approve(c *gin.Context) {
	enrollmentID := c.Param("enrollmentId")

	if !h.authorizeMentor(c, enrollmentID) {
		return
	}

	enr, err := Approve(h.db, enrollmentID)
	if err != nil {
		h.respondError(c, err, "Failed to approve enrollment")
		return
	}

	metrics.RecordEnrollmentTransition("approved")
	h.notifyDecision(c, enr,
		"Enrollment Approved",
		fmt.Sprintf("Your enrollment for %s has been approved.", enr.CourseName),
		types.NotificationTypeSuccess)

	response.Success(c, http.StatusOK, enr, "Enrollment approved", nil)
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Reject declines a pending enrollment with a reason the student sees
// verbatim.
func (h *Handler) Reject(c *gin.Context) {
	enrollmentID := c.Param("enrollmentId")

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Reason) == "" {
		response.Error(c, http.StatusBadRequest, "Rejection reason is required", nil)
		return
	}

	if !h.authorizeMentor(c, enrollmentID) {
		return
	}

	enr, err := Reject(h.db, enrollmentID, req.Reason)
	if err != nil {
		h.respondError(c, err, "Failed to reject enrollment")
		return
	}

	metrics.RecordEnrollmentTransition("rejected")
	h.notifyDecision(c, enr,
		"Enrollment Rejected",
		fmt.Sprintf("Your enrollment for %s was rejected. Reason: %s", enr.CourseName, req.Reason),
		types.NotificationTypeError)

	response.Success(c, http.StatusOK, enr, "Enrollment rejected", nil)
}

type progressRequest struct {
	CompletedVideos       []string          `json:"completedVideos"`
	AssignmentSubmissions map[string]string `json:"assignmentSubmissions"`
	QuizScores            map[string]int    `json:"quizScores"`
}

// UpdateProgress merges the caller's completed items into their enrollment
// and recomputes the percentage against the course's current item counts.
func (h *Handler) UpdateProgress(c *gin.Context) {
	caller, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	courseID, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid course ID", nil)
		return
	}

	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	totals, err := course.ItemCounts(h.db, courseID)
	if err != nil {
		if err == course.ErrCourseNotFound {
			response.Error(c, http.StatusNotFound, "Course not found", nil)
			return
		}
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to fetch course items", err)
		return
	}

	enr, err := UpdateProgress(h.db, caller.ID, courseID, ProgressInput{
		CompletedVideos:       req.CompletedVideos,
		AssignmentSubmissions: req.AssignmentSubmissions,
		QuizScores:            req.QuizScores,
	}, totals)
	if err != nil {
		h.respondError(c, err, "Failed to update progress")
		return
	}

	if err := user.UpdateCourseStubProgress(h.db, caller.ID, courseID, enr.Progress); err != nil {
		h.logger.WarnContext(c.Request.Context(), "course stub progress write failed",
			slog.String("enrollmentId", enr.ID),
			slog.String("error", err.Error()))
	}

	response.Success(c, http.StatusOK, enr, "Progress updated", nil)
}

type playerPayload struct {
	Course      course.Course       `json:"course"`
	Assignments []course.Assignment `json:"assignments"`
	Quizzes     []course.Quiz       `json:"quizzes"`
	Enrollment  *Enrollment         `json:"enrollment,omitempty"`
	Status      string              `json:"enrollmentStatus"`
}

type lockedPayload struct {
	Locked bool   `json:"locked"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Player serves the course player view. The access gate runs once per
// request: approved students and visitors without a record get the full
// curriculum, pending and rejected ones get a locked payload.
func (h *Handler) Player(c *gin.Context) {
	caller, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	courseID, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid course ID", nil)
		return
	}

	crs, err := course.Get(h.db, courseID)
	if err != nil {
		if err == course.ErrCourseNotFound {
			response.Error(c, http.StatusNotFound, "Course not found", nil)
			return
		}
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to fetch course", err)
		return
	}

	found := true
	enr, err := GetForStudent(h.db, caller.ID, courseID)
	if err != nil {
		if err != ErrEnrollmentNotFound {
			response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to fetch enrollment", err)
			return
		}
		found = false
	}

	state := EvaluateAccess(enr, found)
	if !state.Allowed() {
		response.SuccessNoCache(c, http.StatusOK, lockedPayload{
			Locked: true,
			Status: state.Status(),
			Reason: state.Reason,
		}, "")
		return
	}

	assignments, err := course.ListAssignments(h.db, courseID)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to fetch assignments", err)
		return
	}
	quizzes, err := course.ListQuizzes(h.db, courseID)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to fetch quizzes", err)
		return
	}

	payload := playerPayload{
		Course:      crs,
		Assignments: assignments,
		Quizzes:     quizzes,
		Status:      state.Status(),
	}
	if found {
		payload.Enrollment = &enr
	}

	response.SuccessNoCache(c, http.StatusOK, payload, "")
}

// notifyDecision fans the decision out to the student. Failures are logged
// and never surface to the mentor; the status change already happened.
func (h *Handler) notifyDecision(c *gin.Context, enr Enrollment, title, message string, notifType types.NotificationType) {
	ctx := c.Request.Context()

	if _, err := notification.Create(h.db, enr.StudentID, title, message, notifType); err != nil {
		h.logger.ErrorContext(ctx, "decision notification failed",
			slog.String("enrollmentId", enr.ID),
			slog.String("error", err.Error()))
	}

	if h.email == nil {
		return
	}
	student, err := user.Get(h.db, enr.StudentID)
	if err != nil {
		h.logger.WarnContext(ctx, "decision email skipped, student lookup failed",
			slog.String("enrollmentId", enr.ID),
			slog.String("error", err.Error()))
		return
	}
	go func(to string) {
		if err := h.email.SendNotification(to, title, message); err != nil {
			h.logger.WarnContext(ctx, "decision email failed",
				slog.String("enrollmentId", enr.ID),
				slog.String("error", err.Error()))
		}
	}(student.Email)
}

// authorizeMentor verifies the caller may decide this enrollment. It writes
// the error response itself and reports whether to continue.
func (h *Handler) authorizeMentor(c *gin.Context, enrollmentID string) bool {
	caller, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return false
	}
	if caller.Role == types.UserRoleAdmin {
		return true
	}

	enr, err := Get(h.db, enrollmentID)
	if err != nil {
		h.respondError(c, err, "Failed to fetch enrollment")
		return false
	}
	if enr.MentorID != caller.ID {
		h.respondError(c, ErrNotEnrollmentOwner, "Failed to authorize enrollment")
		return false
	}
	return true
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch err {
	case ErrEnrollmentNotFound:
		response.Error(c, http.StatusNotFound, "Enrollment not found", nil)
	case ErrEnrollmentExists:
		response.Error(c, http.StatusConflict, "Enrollment already exists", nil)
	case ErrAlreadyDecided:
		response.Error(c, http.StatusConflict, "Enrollment has already been decided", nil)
	case ErrNotEnrollmentOwner:
		response.Error(c, http.StatusForbidden, "You do not have access to this enrollment", nil)
	case ErrReasonRequired:
		response.Error(c, http.StatusBadRequest, err.Error(), nil)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}

func currentUser(c *gin.Context) (*user.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	usr, ok := value.(*user.User)
	return usr, ok
}
