package chat

import "errors"

var (
	ErrChatNotFound   = errors.New("chat not found")
	ErrNotParticipant = errors.New("chat belongs to other participants")
	ErrEmptyMessage   = errors.New("message text or attachment is required")
	ErrSelfChat       = errors.New("cannot open a chat with yourself")
)
