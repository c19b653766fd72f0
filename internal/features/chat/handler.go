package chat

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/internal/features/user"
	"github.com/learnhub-app/learnhub-server-go/pkg/pagination"
	"github.com/learnhub-app/learnhub-server-go/pkg/response"
)

// Broadcaster pushes chat events to connected clients. The realtime server
// implements it; a nil broadcaster means REST-only delivery.
type Broadcaster interface {
	MessageCreated(conversation Chat, msg Message)
}

// Handler handles chat HTTP requests.
type Handler struct {
	db          *gorm.DB
	logger      *slog.Logger
	broadcaster Broadcaster
}

// NewHandler creates a chat handler.
func NewHandler(db *gorm.DB, logger *slog.Logger, broadcaster Broadcaster) *Handler {
	return &Handler{db: db, logger: logger, broadcaster: broadcaster}
}

type openChatRequest struct {
	UserID uuid.UUID `json:"userId" binding:"required"`
}

// Open returns the conversation with another user, creating it on first
// contact.
func (h *Handler) Open(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req openChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if _, err := user.Get(h.db, req.UserID); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, "User not found", nil)
			return
		}
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to load user", err)
		return
	}

	conversation, err := GetOrCreate(h.db, callerID, req.UserID)
	if err != nil {
		h.respondError(c, err, "Failed to open chat")
		return
	}

	response.Success(c, http.StatusOK, conversation, "", nil)
}

// List returns the caller's conversations, most recently active first.
func (h *Handler) List(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	summaries, err := ListForUser(h.db, callerID)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to fetch chats", err)
		return
	}

	response.Success(c, http.StatusOK, summaries, "", nil)
}

// ListMessages returns the conversation history, oldest first. Only
// participants may read it.
func (h *Handler) ListMessages(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	chatID := c.Param("chatId")
	conversation, err := Get(h.db, chatID)
	if err != nil {
		h.respondError(c, err, "Failed to fetch chat")
		return
	}
	if !conversation.IsParticipant(callerID) {
		h.respondError(c, ErrNotParticipant, "Failed to fetch chat")
		return
	}

	params := pagination.Extract(c)

	messages, total, err := ListMessages(h.db, chatID, params)
	if err != nil {
		h.respondError(c, err, "Failed to fetch messages")
		return
	}

	response.Success(c, http.StatusOK, messages, "", pagination.MetadataFrom(total, params))
}

type sendMessageRequest struct {
	Text     string `json:"text"`
	FileKey  string `json:"fileKey"`
	FileType string `json:"fileType"`
	FileName string `json:"fileName"`
}

// SendMessage appends a message over REST. Connected participants still see
// it live through the broadcaster.
func (h *Handler) SendMessage(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	chatID := c.Param("chatId")

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	msg, err := Send(h.db, chatID, callerID, MessageInput{
		Text:     req.Text,
		FileKey:  req.FileKey,
		FileType: req.FileType,
		FileName: req.FileName,
	})
	if err != nil {
		h.respondError(c, err, "Failed to send message")
		return
	}

	if h.broadcaster != nil {
		conversation, err := Get(h.db, chatID)
		if err == nil {
			h.broadcaster.MessageCreated(conversation, msg)
		} else {
			h.logger.WarnContext(c.Request.Context(), "chat broadcast skipped",
				slog.String("chatId", chatID),
				slog.String("error", err.Error()))
		}
	}

	response.Created(c, msg, "Message sent")
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch err {
	case ErrChatNotFound:
		response.Error(c, http.StatusNotFound, "Chat not found", nil)
	case ErrNotParticipant:
		response.Error(c, http.StatusForbidden, "You do not have access to this chat", nil)
	case ErrEmptyMessage:
		response.Error(c, http.StatusBadRequest, err.Error(), nil)
	case ErrSelfChat:
		response.Error(c, http.StatusBadRequest, err.Error(), nil)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("userId")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}
