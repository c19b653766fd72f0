package notification

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

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
	require.NoError(t, db.AutoMigrate(&Notification{}))
	return db
}

func testPage() pagination.Params {
	return pagination.Params{Page: 1, Limit: 20}
}

func TestCreate_CoercesUnknownTypeToInfo(t *testing.T) {
	db := newTestDB(t)

	notif, err := Create(db, uuid.New(), "Heads up", "Something happened", types.NotificationType("shouting"))
	require.NoError(t, err)
	assert.Equal(t, types.NotificationTypeInfo, notif.Type)
}

func TestCreate_EmptyTitleRejected(t *testing.T) {
	db := newTestDB(t)

	_, err := Create(db, uuid.New(), "  ", "body", types.NotificationTypeInfo)
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestListForUser_ScopedAndCounted(t *testing.T) {
	db := newTestDB(t)
	userID := uuid.New()
	otherID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := Create(db, userID, fmt.Sprintf("Mine %d", i), "body", types.NotificationTypeInfo)
		require.NoError(t, err)
	}
	_, err := Create(db, otherID, "Not mine", "body", types.NotificationTypeInfo)
	require.NoError(t, err)

	notifications, total, err := ListForUser(db, userID, testPage())
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, notifications, 3)
	for _, notif := range notifications {
		assert.Equal(t, userID, notif.UserID)
	}
}

func TestMarkRead_OtherUsersNotificationUntouched(t *testing.T) {
	db := newTestDB(t)
	owner := uuid.New()

	notif, err := Create(db, owner, "Private", "body", types.NotificationTypeInfo)
	require.NoError(t, err)

	err = MarkRead(db, notif.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	unread, err := UnreadCount(db, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	require.NoError(t, MarkRead(db, notif.ID, owner))

	unread, err = UnreadCount(db, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestMarkAllRead_ReportsFlippedRows(t *testing.T) {
	db := newTestDB(t)
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		_, err := Create(db, userID, "Unread", "body", types.NotificationTypeInfo)
		require.NoError(t, err)
	}
	read, err := Create(db, userID, "Already read", "body", types.NotificationTypeInfo)
	require.NoError(t, err)
	require.NoError(t, MarkRead(db, read.ID, userID))

	flipped, err := MarkAllRead(db, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), flipped)

	unread, err := UnreadCount(db, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}
