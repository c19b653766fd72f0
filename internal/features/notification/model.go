package notification

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/pkg/pagination"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

// Notification is an in-app message shown on the recipient's dashboard.
type Notification struct {
	types.BaseModel

	UserID  uuid.UUID              `gorm:"type:uuid;not null;index;column:user_id" json:"userId"`
	Title   string                 `gorm:"type:varchar(200);not null" json:"title"`
	Message string                 `gorm:"type:text;not null" json:"message"`
	Type    types.NotificationType `gorm:"type:varchar(20);not null;default:'info'" json:"type"`
	Read    bool                   `gorm:"type:boolean;not null;default:false" json:"read"`
}

func (Notification) TableName() string { return "notifications" }

// Create inserts a notification for a user.
func Create(db *gorm.DB, userID uuid.UUID, title, message string, notifType types.NotificationType) (Notification, error) {
	if strings.TrimSpace(title) == "" {
		return Notification{}, ErrTitleRequired
	}

	switch notifType {
	case types.NotificationTypeInfo, types.NotificationTypeSuccess,
		types.NotificationTypeWarning, types.NotificationTypeError:
	default:
		notifType = types.NotificationTypeInfo
	}

	notif := Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    notifType,
	}

	if err := db.Create(&notif).Error; err != nil {
		return Notification{}, err
	}

	return notif, nil
}

// ListForUser retrieves a user's notifications, newest first.
func ListForUser(db *gorm.DB, userID uuid.UUID, params pagination.Params) ([]Notification, int64, error) {
	query := db.Model(&Notification{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []Notification
	err := query.
		Order("created_at DESC").
		Offset(params.Skip).
		Limit(params.Limit).
		Find(&notifications).Error

	return notifications, total, err
}

// UnreadCount returns how many of a user's notifications are unread.
func UnreadCount(db *gorm.DB, userID uuid.UUID) (int64, error) {
	var count int64
	err := db.Model(&Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flags a single notification as read. The user scope keeps one
// user from flipping another's notifications.
func MarkRead(db *gorm.DB, id, userID uuid.UUID) error {
	result := db.Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of a user as read.
func MarkAllRead(db *gorm.DB, userID uuid.UUID) (int64, error) {
	result := db.Model(&Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}
