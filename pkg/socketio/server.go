package socketio

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	socket "github.com/zishang520/socket.io/socket"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/internal/features/chat"
	"github.com/learnhub-app/learnhub-server-go/internal/features/user"
	jwtutil "github.com/learnhub-app/learnhub-server-go/internal/utils/jwt"
)

// Server wraps the Socket.IO server with chat delivery. Clients join their
// conversation rooms after a membership check and every message fans out to
// the room plus both participants' user rooms for list previews.
type Server struct {
	io        *socket.Server
	db        *gorm.DB
	logger    *slog.Logger
	jwtSecret string

	heartbeatStop chan struct{}
	heartbeatWG   sync.WaitGroup

	connMutex   sync.RWMutex
	connections map[string]*socket.Socket
}

// NewServer creates a new Socket.IO server for live chat.
func NewServer(db *gorm.DB, logger *slog.Logger, jwtSecret string) (*Server, error) {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(60 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetServeClient(false)
	opts.SetPath("/socket.io")

	server := socket.NewServer(nil, opts)

	s := &Server{
		io:          server,
		db:          db,
		logger:      logger,
		jwtSecret:   jwtSecret,
		connections: make(map[string]*socket.Socket),
	}

	s.setupEventHandlers()
	s.startHeartbeat()

	return s, nil
}

// GetHandler returns the HTTP handler for Socket.IO.
func (s *Server) GetHandler() http.Handler {
	return s.io.ServeHandler(nil)
}

// Close shuts down the Socket.IO server.
func (s *Server) Close() error {
	if stop := s.heartbeatStop; stop != nil {
		close(stop)
		s.heartbeatWG.Wait()
		s.heartbeatStop = nil
	}

	done := make(chan struct{})
	s.io.Close(func() {
		close(done)
	})

	<-done
	return nil
}

// MessageCreated pushes a freshly persisted message to its conversation room
// and refreshes both participants' chat lists. Implements chat.Broadcaster.
func (s *Server) MessageCreated(conversation chat.Chat, msg chat.Message) {
	payload := serializeMessage(msg)

	if err := s.io.To(chatRoom(conversation.ID)).Emit("chatMessageReceived", payload); err != nil {
		s.logger.Warn("failed to broadcast chat message", slog.String("error", err.Error()))
	}

	preview := map[string]any{
		"chatId":        conversation.ID,
		"lastMessage":   conversation.LastMessage,
		"lastMessageAt": timeOrNil(conversation.LastMessageAt),
	}
	for _, participant := range []uuid.UUID{conversation.ParticipantA, conversation.ParticipantB} {
		if err := s.io.To(userRoom(participant.String())).Emit("chatUpdated", preview); err != nil {
			s.logger.Debug("failed to emit chat preview", slog.String("error", err.Error()))
		}
	}
}

func (s *Server) setupEventHandlers() {
	s.io.Use(s.connectionMiddleware)
	s.io.On("connection", func(args ...any) {
		sock, ok := args[0].(*socket.Socket)
		if !ok {
			s.logger.Error("unexpected connection payload", slog.Any("payload", args))
			return
		}
		s.handleConnection(sock)
	})
}

func (s *Server) connectionMiddleware(sock *socket.Socket, next func(*socket.ExtendedError)) {
	token := s.extractToken(sock)
	if token == "" {
		s.logger.Warn("socket connection rejected: missing token")
		next(socket.NewExtendedError("missing authentication token", map[string]any{"code": "MISSING_TOKEN"}))
		return
	}

	claims, err := jwtutil.VerifyToken(token, s.jwtSecret)
	if err != nil {
		s.logger.Warn("socket connection rejected: invalid token", slog.String("error", err.Error()))
		next(socket.NewExtendedError("invalid token", map[string]any{"code": "INVALID_TOKEN"}))
		return
	}

	var userData user.User
	if err := s.db.First(&userData, "id = ?", claims.UserID).Error; err != nil {
		s.logger.Warn("socket connection rejected: user not found", slog.Any("userId", claims.UserID), slog.String("error", err.Error()))
		next(socket.NewExtendedError("user not found", map[string]any{"code": "USER_NOT_FOUND"}))
		return
	}

	if !userData.Active {
		s.logger.Warn("socket connection rejected: deactivated account", slog.String("userId", userData.ID.String()))
		next(socket.NewExtendedError("account deactivated", map[string]any{"code": "ACCOUNT_DEACTIVATED"}))
		return
	}

	sock.SetData(&userData)
	next(nil)
}

func (s *Server) handleConnection(sock *socket.Socket) {
	userData := s.getUserFromSocket(sock)
	if userData == nil {
		s.logger.Error("connection established without user context")
		sock.Disconnect(true)
		return
	}

	s.connMutex.Lock()
	s.connections[s.socketID(sock)] = sock
	s.connMutex.Unlock()

	s.logger.Info("WebSocket connected",
		slog.String("user", userData.FullName),
		slog.String("userId", userData.ID.String()),
		slog.String("connId", string(sock.Id())),
	)

	confirmData := map[string]any{
		"userId":    userData.ID.String(),
		"userName":  userData.FullName,
		"userEmail": userData.Email,
		"role":      string(userData.Role),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := sock.Emit("connectionConfirmed", confirmData); err != nil {
		s.logger.Warn("failed to emit connection confirmation", slog.String("error", err.Error()))
	}

	sock.Join(userRoom(userData.ID.String()))
	s.registerEventHandlers(sock)
}

func (s *Server) registerEventHandlers(sock *socket.Socket) {
	sock.On("getChats", func(args ...any) {
		s.handleGetChats(sock)
	})

	sock.On("joinChat", func(args ...any) {
		chatID := stringArg(args)
		if chatID == "" {
			s.emitError(sock, "INVALID_INPUT", "chat ID is required")
			return
		}
		s.handleJoinChat(sock, chatID)
	})

	sock.On("leaveChat", func(args ...any) {
		chatID := stringArg(args)
		if chatID == "" {
			s.emitError(sock, "INVALID_INPUT", "chat ID is required")
			return
		}
		sock.Leave(chatRoom(chatID))
	})

	sock.On("chatMessage", func(args ...any) {
		payload := mapArg(args)
		if payload == nil {
			s.emitError(sock, "INVALID_INPUT", "message payload is required")
			return
		}
		s.handleChatMessage(sock, payload)
	})

	sock.On("pong", func(args ...any) {
		if len(args) > 0 {
			s.logger.Debug("pong received", slog.Any("value", args[0]))
		}
	})

	sock.On("disconnect", func(args ...any) {
		reason := "client"
		if len(args) > 0 {
			if r, ok := args[0].(string); ok {
				reason = r
			}
		}
		s.handleDisconnect(sock, reason)
	})
}

func (s *Server) handleGetChats(sock *socket.Socket) {
	userData := s.getUserFromSocket(sock)
	if userData == nil {
		s.emitError(sock, "UNAUTHORIZED", "user context missing")
		return
	}

	summaries, err := chat.ListForUser(s.db, userData.ID)
	if err != nil {
		s.logger.Warn("chat list fetch failed", slog.String("error", err.Error()))
		s.emitError(sock, "LIST_FAILED", "failed to load chats")
		return
	}

	if err := sock.Emit("chatList", summaries); err != nil {
		s.logger.Warn("failed to emit chatList", slog.String("error", err.Error()))
	}
}

func (s *Server) handleJoinChat(sock *socket.Socket, chatID string) {
	userData := s.getUserFromSocket(sock)
	if userData == nil {
		s.emitError(sock, "UNAUTHORIZED", "user context missing")
		return
	}

	conversation, err := chat.Get(s.db, chatID)
	if err != nil {
		s.emitError(sock, "CHAT_NOT_FOUND", "chat not found")
		return
	}
	if !conversation.IsParticipant(userData.ID) {
		s.emitError(sock, "UNAUTHORIZED", "you are not a participant of this chat")
		return
	}

	sock.Join(chatRoom(chatID))

	if err := sock.Emit("chatJoined", map[string]any{
		"chatId":    chatID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		s.logger.Warn("failed to emit chatJoined", slog.String("error", err.Error()))
	}
}

func (s *Server) handleChatMessage(sock *socket.Socket, payload map[string]any) {
	userData := s.getUserFromSocket(sock)
	if userData == nil {
		s.emitError(sock, "UNAUTHORIZED", "user context missing")
		return
	}

	chatID := strings.TrimSpace(stringValue(payload, "chatId"))
	if chatID == "" {
		s.emitError(sock, "INVALID_INPUT", "chat ID is required")
		return
	}

	msg, err := chat.Send(s.db, chatID, userData.ID, chat.MessageInput{
		Text:     stringValue(payload, "text"),
		FileKey:  stringValue(payload, "fileKey"),
		FileType: stringValue(payload, "fileType"),
		FileName: stringValue(payload, "fileName"),
	})
	if err != nil {
		switch err {
		case chat.ErrChatNotFound:
			s.emitError(sock, "CHAT_NOT_FOUND", "chat not found")
		case chat.ErrNotParticipant:
			s.emitError(sock, "UNAUTHORIZED", "you are not a participant of this chat")
		case chat.ErrEmptyMessage:
			s.emitError(sock, "INVALID_INPUT", "message text or attachment is required")
		default:
			s.logger.Warn("chat message persist failed", slog.String("error", err.Error()))
			s.emitError(sock, "SEND_FAILED", "failed to send message")
		}
		return
	}

	conversation, err := chat.Get(s.db, chatID)
	if err != nil {
		s.logger.Warn("chat reload after send failed", slog.String("error", err.Error()))
		return
	}

	// Emitting through io.To() so the sender receives the message as well.
	s.MessageCreated(conversation, msg)
}

func (s *Server) handleDisconnect(sock *socket.Socket, reason string) {
	userData := s.getUserFromSocket(sock)

	s.connMutex.Lock()
	delete(s.connections, s.socketID(sock))
	s.connMutex.Unlock()

	if userData == nil {
		return
	}

	s.logger.Info("WebSocket disconnected",
		slog.String("user", userData.FullName),
		slog.String("userId", userData.ID.String()),
		slog.String("reason", reason),
	)
}

func (s *Server) startHeartbeat() {
	s.heartbeatStop = make(chan struct{})
	s.heartbeatWG.Add(1)

	go func() {
		defer s.heartbeatWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sendHeartbeat()
			case <-s.heartbeatStop:
				return
			}
		}
	}()
}

func (s *Server) sendHeartbeat() {
	timestamp := time.Now().Unix()

	s.connMutex.RLock()
	defer s.connMutex.RUnlock()

	for id, sock := range s.connections {
		if err := sock.Emit("ping", timestamp); err != nil {
			s.logger.Debug("heartbeat emit failed", slog.String("connId", id), slog.String("error", err.Error()))
		}
	}
}

func (s *Server) getUserFromSocket(sock *socket.Socket) *user.User {
	if sock == nil {
		return nil
	}
	if data, ok := sock.Data().(*user.User); ok {
		return data
	}
	return nil
}

func (s *Server) emitError(sock *socket.Socket, code, message string) {
	if sock == nil {
		return
	}
	if err := sock.Emit("error", map[string]any{
		"code":    code,
		"message": message,
	}); err != nil {
		s.logger.Debug("failed to emit error", slog.String("error", err.Error()))
	}
}

func (s *Server) extractToken(sock *socket.Socket) string {
	if sock == nil {
		return ""
	}

	if conn := sock.Conn(); conn != nil {
		if ctx := conn.Request(); ctx != nil {
			if req := ctx.Request(); req != nil {
				if token := req.URL.Query().Get("token"); token != "" {
					return token
				}
			}
			if query := ctx.Query(); query != nil {
				if token, ok := query.Get("token"); ok && token != "" {
					return token
				}
			}
		}
	}

	if hs := sock.Handshake(); hs != nil {
		if hs.Query != nil {
			if token, ok := hs.Query.Get("token"); ok && token != "" {
				return token
			}
		}
		if authMap, ok := hs.Auth.(map[string]any); ok {
			if token, ok := authMap["token"].(string); ok {
				return token
			}
		}
	}

	return ""
}

func (s *Server) socketID(sock *socket.Socket) string {
	if sock == nil {
		return ""
	}
	return string(sock.Id())
}

func serializeMessage(msg chat.Message) map[string]any {
	payload := map[string]any{
		"id":        msg.ID.String(),
		"chatId":    msg.ChatID,
		"senderId":  msg.SenderID.String(),
		"text":      msg.Text,
		"createdAt": msg.CreatedAt.UTC().Format(time.RFC3339),
	}
	if msg.FileKey != "" {
		payload["file"] = map[string]any{
			"key":  msg.FileKey,
			"type": msg.FileType,
			"name": msg.FileName,
		}
	}
	return payload
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func stringValue(payload map[string]any, key string) string {
	if val, ok := payload[key]; ok {
		switch v := val.(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		case []byte:
			return string(v)
		}
	}
	return ""
}

func stringArg(args []any) string {
	if len(args) == 0 {
		return ""
	}
	switch v := args[0].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	}
	return ""
}

func mapArg(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	if payload, ok := args[0].(map[string]any); ok {
		return payload
	}
	return nil
}

func chatRoom(chatID string) socket.Room {
	return socket.Room("chat_" + chatID)
}

func userRoom(userID string) socket.Room {
	return socket.Room("user_" + userID)
}
