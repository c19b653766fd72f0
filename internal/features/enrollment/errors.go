package enrollment

import "errors"

var (
	ErrEnrollmentExists   = errors.New("enrollment already exists")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAlreadyDecided     = errors.New("enrollment has already been decided")
	ErrNotEnrollmentOwner = errors.New("enrollment belongs to another mentor")
	ErrReasonRequired     = errors.New("rejection reason is required")
)
