package chat

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/internal/features/user"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []Message
}

func (r *recordingBroadcaster) MessageCreated(conversation Chat, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func asUser(usr *user.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user", usr)
		c.Set("userId", usr.ID)
		c.Set("userRole", usr.Role)
		c.Next()
	}
}

func newTestRouter(db *gorm.DB, usr *user.User, broadcaster Broadcaster) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handler := NewHandler(db, testLogger(), broadcaster)
	api := engine.Group("/api")
	RegisterRoutes(api, handler, asUser(usr))
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

func TestOpen_CreatesConversation(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "Alice")
	bob := seedUser(t, db, "Bob")
	engine := newTestRouter(db, alice, nil)

	rec := doJSON(t, engine, http.MethodPost, "/api/chats", gin.H{"userId": bob.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data Chat `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ChatID(alice.ID, bob.ID), body.Data.ID)
}

func TestOpen_UnknownUser(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "Alice")
	engine := newTestRouter(db, alice, nil)

	rec := doJSON(t, engine, http.MethodPost, "/api/chats", gin.H{"userId": uuid.New()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessage_BroadcastsAndPersists(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "Alice")
	bob := seedUser(t, db, "Bob")
	conversation, err := GetOrCreate(db, alice.ID, bob.ID)
	require.NoError(t, err)

	broadcaster := &recordingBroadcaster{}
	engine := newTestRouter(db, alice, broadcaster)

	rec := doJSON(t, engine, http.MethodPost, "/api/chats/"+conversation.ID+"/messages", gin.H{"text": "hello bob"})
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, broadcaster.messages, 1)
	assert.Equal(t, "hello bob", broadcaster.messages[0].Text)

	messages, total, err := ListMessages(db, conversation.ID, testPage())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "hello bob", messages[0].Text)
}

func TestSendMessage_OutsiderForbidden(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "Alice")
	bob := seedUser(t, db, "Bob")
	outsider := seedUser(t, db, "Mallory")
	conversation, err := GetOrCreate(db, alice.ID, bob.ID)
	require.NoError(t, err)

	engine := newTestRouter(db, outsider, nil)

	rec := doJSON(t, engine, http.MethodPost, "/api/chats/"+conversation.ID+"/messages", gin.H{"text": "hi"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListMessages_OutsiderForbidden(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "Alice")
	bob := seedUser(t, db, "Bob")
	outsider := seedUser(t, db, "Mallory")
	conversation, err := GetOrCreate(db, alice.ID, bob.ID)
	require.NoError(t, err)

	engine := newTestRouter(db, outsider, nil)

	rec := doJSON(t, engine, http.MethodGet, "/api/chats/"+conversation.ID+"/messages", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestList_ReturnsSummaries(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "Alice")
	bob := seedUser(t, db, "Bob")
	conversation, err := GetOrCreate(db, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = Send(db, conversation.ID, bob.ID, MessageInput{Text: "ping"})
	require.NoError(t, err)

	engine := newTestRouter(db, alice, nil)

	rec := doJSON(t, engine, http.MethodGet, "/api/chats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Bob", body.Data[0].OtherUserName)
	assert.Equal(t, "ping", body.Data[0].LastMessage)
}
