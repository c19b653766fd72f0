package chat

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/learnhub-app/learnhub-server-go/internal/features/user"
	"github.com/learnhub-app/learnhub-server-go/pkg/pagination"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Chat{}, &Message{}, &user.User{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *user.User {
	t.Helper()
	usr := &user.User{
		FullName: name,
		Email:    fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Password: "irrelevant",
		Role:     types.UserRoleStudent,
		Active:   true,
	}
	require.NoError(t, db.Create(usr).Error)
	return usr
}

func testPage() pagination.Params {
	return pagination.Params{Page: 1, Limit: 50}
}

func TestChatID_OrderIndependent(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	assert.Equal(t, ChatID(a, b), ChatID(b, a))
	assert.Contains(t, ChatID(a, b), "_")
}

func TestGetOrCreate_SamePairSameChat(t *testing.T) {
	db := newTestDB(t)
	a := seedUser(t, db, "Alice")
	b := seedUser(t, db, "Bob")

	first, err := GetOrCreate(db, a.ID, b.ID)
	require.NoError(t, err)

	// Opening from the other side must land on the same record.
	second, err := GetOrCreate(db, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&Chat{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetOrCreate_SelfChatRejected(t *testing.T) {
	db := newTestDB(t)
	a := seedUser(t, db, "Alice")

	_, err := GetOrCreate(db, a.ID, a.ID)
	assert.ErrorIs(t, err, ErrSelfChat)
}

func TestSend_UpdatesPreview(t *testing.T) {
	db := newTestDB(t)
	a := seedUser(t, db, "Alice")
	b := seedUser(t, db, "Bob")

	conversation, err := GetOrCreate(db, a.ID, b.ID)
	require.NoError(t, err)

	msg, err := Send(db, conversation.ID, a.ID, MessageInput{Text: "  hello there  "})
	require.NoError(t, err)
	assert.Equal(t, "hello there", msg.Text)
	assert.Equal(t, a.ID, msg.SenderID)

	reloaded, err := Get(db, conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello there", reloaded.LastMessage)
	require.NotNil(t, reloaded.LastMessageAt)
}

func TestSend_AttachmentOnlyPreview(t *testing.T) {
	db := newTestDB(t)
	a := seedUser(t, db, "Alice")
	b := seedUser(t, db, "Bob")

	conversation, err := GetOrCreate(db, a.ID, b.ID)
	require.NoError(t, err)

	msg, err := Send(db, conversation.ID, b.ID, MessageInput{
		FileKey:  "chat-files/1712000000000-notes.pdf",
		FileType: "application/pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "attachment", msg.FileName)

	reloaded, err := Get(db, conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sent an attachment", reloaded.LastMessage)
}

func TestSend_EmptyRejected(t *testing.T) {
	db := newTestDB(t)
	a := seedUser(t, db, "Alice")
	b := seedUser(t, db, "Bob")

	conversation, err := GetOrCreate(db, a.ID, b.ID)
	require.NoError(t, err)

	_, err = Send(db, conversation.ID, a.ID, MessageInput{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSend_NonParticipantRejected(t *testing.T) {
	db := newTestDB(t)
	a := seedUser(t, db, "Alice")
	b := seedUser(t, db, "Bob")
	outsider := seedUser(t, db, "Mallory")

	conversation, err := GetOrCreate(db, a.ID, b.ID)
	require.NoError(t, err)

	_, err = Send(db, conversation.ID, outsider.ID, MessageInput{Text: "let me in"})
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestSend_MissingChat(t *testing.T) {
	db := newTestDB(t)
	a := seedUser(t, db, "Alice")

	_, err := Send(db, "nope_nope", a.ID, MessageInput{Text: "hi"})
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestListMessages_OldestFirst(t *testing.T) {
	db := newTestDB(t)
	a := seedUser(t, db, "Alice")
	b := seedUser(t, db, "Bob")

	conversation, err := GetOrCreate(db, a.ID, b.ID)
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		_, err := Send(db, conversation.ID, a.ID, MessageInput{Text: text})
		require.NoError(t, err)
	}

	messages, total, err := ListMessages(db, conversation.ID, testPage())
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, messages, 3)
	assert.Equal(t, "one", messages[0].Text)
	assert.Equal(t, "three", messages[2].Text)
}

func TestListForUser_SortsByActivity(t *testing.T) {
	db := newTestDB(t)
	a := seedUser(t, db, "Alice")
	b := seedUser(t, db, "Bob")
	c := seedUser(t, db, "Carol")

	withBob, err := GetOrCreate(db, a.ID, b.ID)
	require.NoError(t, err)
	withCarol, err := GetOrCreate(db, a.ID, c.ID)
	require.NoError(t, err)

	// Bob's conversation is older activity, Carol's is the most recent.
	_, err = Send(db, withBob.ID, b.ID, MessageInput{Text: "first"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&Chat{}).Where("id = ?", withBob.ID).
		Update("last_message_at", time.Now().UTC().Add(-time.Hour)).Error)
	_, err = Send(db, withCarol.ID, c.ID, MessageInput{Text: "second"})
	require.NoError(t, err)

	summaries, err := ListForUser(db, a.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, withCarol.ID, summaries[0].ID)
	assert.Equal(t, "Carol", summaries[0].OtherUserName)
	assert.Equal(t, "second", summaries[0].LastMessage)
	assert.Equal(t, withBob.ID, summaries[1].ID)
	assert.Equal(t, "Bob", summaries[1].OtherUserName)

	// Bob's own view names the counterpart, not himself.
	bobView, err := ListForUser(db, b.ID)
	require.NoError(t, err)
	require.Len(t, bobView, 1)
	assert.Equal(t, "Alice", bobView[0].OtherUserName)
	assert.Equal(t, a.ID, bobView[0].OtherUserID)
}
