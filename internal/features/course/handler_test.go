package course

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/pkg/cache"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func asCaller(id uuid.UUID, role types.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userId", id)
		c.Set("userRole", role)
		c.Next()
	}
}

func newTestRouter(db *gorm.DB, cacheClient cache.Client, callerID uuid.UUID, role types.UserRole) (*gin.Engine, *Handler) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handler := NewHandler(db, testLogger(), cacheClient, time.Minute)
	auth := asCaller(callerID, role)
	RegisterRoutes(engine.Group("/api"), handler, auth, []gin.HandlerFunc{auth})
	return engine, handler
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

func listTitles(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var envelope struct {
		Data []Course `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	titles := make([]string, 0, len(envelope.Data))
	for _, crs := range envelope.Data {
		titles = append(titles, crs.Title)
	}
	return titles
}

func TestListEndpoint_ServesStaleCacheUntilInvalidated(t *testing.T) {
	db := newTestDB(t)
	memory := cache.NewMemoryCache()
	mentor := uuid.New()
	engine, handler := newTestRouter(db, memory, mentor, types.UserRoleMentor)

	createCourse(t, db, CreateInput{MentorID: mentor, Title: "First"})

	rec := doJSON(t, engine, http.MethodGet, "/api/courses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"First"}, listTitles(t, rec))

	// A direct insert bypasses the handler, so the cached page still wins.
	createCourse(t, db, CreateInput{MentorID: mentor, Title: "Second"})

	rec = doJSON(t, engine, http.MethodGet, "/api/courses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"First"}, listTitles(t, rec))

	handler.InvalidateList(context.Background())

	rec = doJSON(t, engine, http.MethodGet, "/api/courses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"First", "Second"}, listTitles(t, rec))
}

func TestCreateEndpoint_BustsListCache(t *testing.T) {
	db := newTestDB(t)
	memory := cache.NewMemoryCache()
	mentor := uuid.New()
	engine, _ := newTestRouter(db, memory, mentor, types.UserRoleMentor)

	rec := doJSON(t, engine, http.MethodGet, "/api/courses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, listTitles(t, rec))

	rec = doJSON(t, engine, http.MethodPost, "/api/courses", gin.H{"title": "Fresh Course", "price": "$15"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, engine, http.MethodGet, "/api/courses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Fresh Course"}, listTitles(t, rec))
}

func TestUpdateEndpoint_OtherMentorForbidden(t *testing.T) {
	db := newTestDB(t)
	owner := uuid.New()
	crs := createCourse(t, db, CreateInput{MentorID: owner, Title: "Owned"})

	engine, _ := newTestRouter(db, cache.NewMemoryCache(), uuid.New(), types.UserRoleMentor)
	rec := doJSON(t, engine, http.MethodPatch, "/api/courses/"+crs.ID.String(), gin.H{"title": "Hijacked"})

	assert.Equal(t, http.StatusForbidden, rec.Code)

	kept, err := Get(db, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Owned", kept.Title)
}

func TestUpdateEndpoint_AdminBypassesOwnership(t *testing.T) {
	db := newTestDB(t)
	crs := createCourse(t, db, CreateInput{MentorID: uuid.New(), Title: "Owned"})

	engine, _ := newTestRouter(db, cache.NewMemoryCache(), uuid.New(), types.UserRoleAdmin)
	rec := doJSON(t, engine, http.MethodPatch, "/api/courses/"+crs.ID.String(), gin.H{"title": "Renamed"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	kept, err := Get(db, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", kept.Title)
}

func TestCreateAssignmentEndpoint_RejectsBadDueDate(t *testing.T) {
	db := newTestDB(t)
	mentor := uuid.New()
	crs := createCourse(t, db, CreateInput{MentorID: mentor, Title: "Owned"})

	engine, _ := newTestRouter(db, cache.NewMemoryCache(), mentor, types.UserRoleMentor)
	rec := doJSON(t, engine, http.MethodPost, "/api/courses/"+crs.ID.String()+"/assignments", gin.H{
		"title":   "Essay",
		"dueDate": "next tuesday",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateQuizEndpoint_ValidatesQuestions(t *testing.T) {
	db := newTestDB(t)
	mentor := uuid.New()
	crs := createCourse(t, db, CreateInput{MentorID: mentor, Title: "Owned"})

	engine, _ := newTestRouter(db, cache.NewMemoryCache(), mentor, types.UserRoleMentor)
	rec := doJSON(t, engine, http.MethodPost, "/api/courses/"+crs.ID.String()+"/quizzes", gin.H{
		"title": "Broken Quiz",
		"questions": []gin.H{
			{"question": "Pick one", "answers": []string{"only"}, "correctAnswer": "A"},
		},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
