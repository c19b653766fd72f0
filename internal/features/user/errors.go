package user

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrNotMentor      = errors.New("user is not a mentor")
	ErrMentorDecided  = errors.New("mentor verification has already been decided")
	ErrReasonRequired = errors.New("rejection reason is required")
)
