package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/internal/features/user"
	"github.com/learnhub-app/learnhub-server-go/pkg/pagination"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

// Chat is a direct conversation between two users. The primary key is
// derived from the sorted participant IDs so the same pair always lands on
// the same record no matter who opens it.
type Chat struct {
	ID            string     `gorm:"type:varchar(80);primaryKey" json:"id"`
	ParticipantA  uuid.UUID  `gorm:"type:uuid;not null;index;column:participant_a" json:"participantA"`
	ParticipantB  uuid.UUID  `gorm:"type:uuid;not null;index;column:participant_b" json:"participantB"`
	LastMessage   string     `gorm:"type:text;not null" json:"lastMessage"`
	LastMessageAt *time.Time `gorm:"column:last_message_at" json:"lastMessageAt"`

	types.TimestampModel
}

// TableName overrides the default table name.
func (Chat) TableName() string {
	return "chats"
}

// Message is a single chat entry. Attachments reference media vault keys,
// never raw URLs, so access always goes through the signed URL endpoints.
type Message struct {
	types.BaseModel

	ChatID   string    `gorm:"type:varchar(80);not null;index;column:chat_id" json:"chatId"`
	SenderID uuid.UUID `gorm:"type:uuid;not null;column:sender_id" json:"senderId"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	FileKey  string    `gorm:"type:varchar(300)" json:"fileKey,omitempty"`
	FileType string    `gorm:"type:varchar(100)" json:"fileType,omitempty"`
	FileName string    `gorm:"type:varchar(200)" json:"fileName,omitempty"`
}

// TableName overrides the default table name.
func (Message) TableName() string {
	return "chat_messages"
}

// Summary is one row in a user's conversation list: the chat plus the other
// participant's display data.
type Summary struct {
	ID            string     `json:"id"`
	OtherUserID   uuid.UUID  `json:"otherUserId"`
	OtherUserName string     `json:"otherUserName"`
	LastMessage   string     `json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
}

// ChatID derives the conversation key for a participant pair. Both orderings
// of the same pair produce the same key.
func ChatID(a, b uuid.UUID) string {
	first, second := a.String(), b.String()
	if first > second {
		first, second = second, first
	}
	return fmt.Sprintf("%s_%s", first, second)
}

// IsParticipant reports whether the user belongs to this conversation.
func (c Chat) IsParticipant(userID uuid.UUID) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// OtherParticipant returns the counterpart of the given user.
func (c Chat) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// GetOrCreate returns the conversation between the two users, creating it on
// first contact.
func GetOrCreate(db *gorm.DB, a, b uuid.UUID) (Chat, error) {
	if a == b {
		return Chat{}, ErrSelfChat
	}

	id := ChatID(a, b)

	var existing Chat
	err := db.First(&existing, "id = ?", id).Error
	if err == nil {
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return Chat{}, fmt.Errorf("lookup chat: %w", err)
	}

	first, second := a, b
	if first.String() > second.String() {
		first, second = second, first
	}

	created := Chat{
		ID:           id,
		ParticipantA: first,
		ParticipantB: second,
	}
	if err := db.Create(&created).Error; err != nil {
		return Chat{}, fmt.Errorf("create chat: %w", err)
	}
	return created, nil
}

// Get fetches a conversation by its ID.
func Get(db *gorm.DB, chatID string) (Chat, error) {
	var c Chat
	err := db.First(&c, "id = ?", chatID).Error
	if err == gorm.ErrRecordNotFound {
		return Chat{}, ErrChatNotFound
	}
	if err != nil {
		return Chat{}, fmt.Errorf("get chat: %w", err)
	}
	return c, nil
}

// MessageInput carries a new chat entry. Text and the attachment are both
// optional but at least one must be present.
type MessageInput struct {
	Text     string
	FileKey  string
	FileType string
	FileName string
}

// Send appends a message to the conversation and refreshes its preview in
// one transaction. Only participants may send.
func Send(db *gorm.DB, chatID string, senderID uuid.UUID, input MessageInput) (Message, error) {
	conversation, err := Get(db, chatID)
	if err != nil {
		return Message{}, err
	}
	if !conversation.IsParticipant(senderID) {
		return Message{}, ErrNotParticipant
	}

	text := strings.TrimSpace(input.Text)
	fileKey := strings.TrimSpace(input.FileKey)
	if text == "" && fileKey == "" {
		return Message{}, ErrEmptyMessage
	}

	msg := Message{
		ChatID:   chatID,
		SenderID: senderID,
		Text:     text,
		FileKey:  fileKey,
	}
	if fileKey != "" {
		msg.FileType = strings.TrimSpace(input.FileType)
		msg.FileName = strings.TrimSpace(input.FileName)
		if msg.FileName == "" {
			msg.FileName = "attachment"
		}
	}

	preview := text
	if preview == "" {
		preview = "Sent an attachment"
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"last_message":    preview,
			"last_message_at": now,
		}
		if err := tx.Model(&Chat{}).Where("id = ?", chatID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update chat preview: %w", err)
		}
		return nil
	})
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}

// ListMessages returns the conversation history, oldest first.
func ListMessages(db *gorm.DB, chatID string, params pagination.Params) ([]Message, int64, error) {
	if _, err := Get(db, chatID); err != nil {
		return nil, 0, err
	}

	query := db.Model(&Message{}).Where("chat_id = ?", chatID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	messages := make([]Message, 0)
	err := query.
		Order("created_at ASC").
		Offset(params.Skip).
		Limit(params.Limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	return messages, total, nil
}

// ListForUser returns the user's conversations, most recently active first.
// Conversations that never received a message sort last.
func ListForUser(db *gorm.DB, userID uuid.UUID) ([]Summary, error) {
	chats := make([]Chat, 0)
	err := db.
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("last_message_at DESC NULLS LAST").
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	otherIDs := make([]uuid.UUID, 0, len(chats))
	for _, c := range chats {
		otherIDs = append(otherIDs, c.OtherParticipant(userID))
	}

	names := make(map[uuid.UUID]string, len(otherIDs))
	if len(otherIDs) > 0 {
		var others []user.User
		if err := db.Where("id IN ?", otherIDs).Find(&others).Error; err != nil {
			return nil, fmt.Errorf("load participants: %w", err)
		}
		for _, other := range others {
			names[other.ID] = other.FullName
		}
	}

	summaries := make([]Summary, 0, len(chats))
	for _, c := range chats {
		otherID := c.OtherParticipant(userID)
		name := names[otherID]
		if name == "" {
			name = "Chat"
		}
		summaries = append(summaries, Summary{
			ID:            c.ID,
			OtherUserID:   otherID,
			OtherUserName: name,
			LastMessage:   c.LastMessage,
			LastMessageAt: c.LastMessageAt,
		})
	}
	return summaries, nil
}
