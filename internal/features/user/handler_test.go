package user

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/internal/features/notification"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// asUser injects an authenticated user into the request context the way the
// auth middleware does.
func asUser(usr *User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user", usr)
		c.Set("userId", usr.ID)
		c.Set("userRole", usr.Role)
		c.Next()
	}
}

func newHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&notification.Notification{}))
	return db
}

func newTestRouter(db *gorm.DB, usr *User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handler := NewHandler(db, testLogger())
	api := engine.Group("/api")
	auth := asUser(usr)
	RegisterRoutes(api, handler, auth, []gin.HandlerFunc{auth})
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func mentorNotifications(t *testing.T, db *gorm.DB, mentorID uuid.UUID) []notification.Notification {
	t.Helper()
	var notifications []notification.Notification
	require.NoError(t, db.Where("user_id = ?", mentorID).Find(&notifications).Error)
	return notifications
}

func TestApproveMentorEndpoint_NotifiesMentor(t *testing.T) {
	db := newHandlerTestDB(t)
	admin := createUser(t, db, "admin@example.com", types.UserRoleAdmin)
	mentor := createUser(t, db, "mentor@example.com", types.UserRoleMentor)

	engine := newTestRouter(db, &admin)
	rec := doJSON(t, engine, http.MethodPatch, "/api/mentors/"+mentor.ID.String()+"/approve", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	refreshed, err := Get(db, mentor.ID)
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusApproved, refreshed.MentorStatus)

	notifications := mentorNotifications(t, db, mentor.ID)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Mentor Verification Approved", notifications[0].Title)
	assert.Equal(t, types.NotificationTypeSuccess, notifications[0].Type)
}

func TestRejectMentorEndpoint_EmbedsReasonVerbatim(t *testing.T) {
	db := newHandlerTestDB(t)
	admin := createUser(t, db, "admin@example.com", types.UserRoleAdmin)
	mentor := createUser(t, db, "mentor@example.com", types.UserRoleMentor)

	reason := "Portfolio link does not resolve."
	engine := newTestRouter(db, &admin)
	rec := doJSON(t, engine, http.MethodPatch, "/api/mentors/"+mentor.ID.String()+"/reject", gin.H{"reason": reason})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	refreshed, err := Get(db, mentor.ID)
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusRejected, refreshed.MentorStatus)
	assert.Equal(t, reason, refreshed.MentorStatusReason)

	notifications := mentorNotifications(t, db, mentor.ID)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Mentor Verification Rejected", notifications[0].Title)
	assert.Equal(t, types.NotificationTypeError, notifications[0].Type)
	assert.Contains(t, notifications[0].Message, reason)
}

func TestRejectMentorEndpoint_MissingReason(t *testing.T) {
	db := newHandlerTestDB(t)
	admin := createUser(t, db, "admin@example.com", types.UserRoleAdmin)
	mentor := createUser(t, db, "mentor@example.com", types.UserRoleMentor)

	engine := newTestRouter(db, &admin)
	rec := doJSON(t, engine, http.MethodPatch, "/api/mentors/"+mentor.ID.String()+"/reject", gin.H{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	refreshed, err := Get(db, mentor.ID)
	require.NoError(t, err)
	assert.Equal(t, types.VerificationStatusPending, refreshed.MentorStatus)
}

func TestApproveMentorEndpoint_Conflicts(t *testing.T) {
	db := newHandlerTestDB(t)
	admin := createUser(t, db, "admin@example.com", types.UserRoleAdmin)
	mentor := createUser(t, db, "mentor@example.com", types.UserRoleMentor)
	student := createUser(t, db, "student@example.com", types.UserRoleStudent)

	engine := newTestRouter(db, &admin)

	rec := doJSON(t, engine, http.MethodPatch, "/api/mentors/"+mentor.ID.String()+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, engine, http.MethodPatch, "/api/mentors/"+mentor.ID.String()+"/approve", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, engine, http.MethodPatch, "/api/mentors/"+student.ID.String()+"/approve", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, engine, http.MethodPatch, "/api/mentors/"+uuid.NewString()+"/approve", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPendingMentorsEndpoint(t *testing.T) {
	db := newHandlerTestDB(t)
	admin := createUser(t, db, "admin@example.com", types.UserRoleAdmin)
	createUser(t, db, "pending@example.com", types.UserRoleMentor)
	approved := createUser(t, db, "approved@example.com", types.UserRoleMentor)
	_, err := ApproveMentor(db, approved.ID)
	require.NoError(t, err)

	engine := newTestRouter(db, &admin)
	rec := doJSON(t, engine, http.MethodGet, "/api/mentors/pending", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data []User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "pending@example.com", envelope.Data[0].Email)
}
