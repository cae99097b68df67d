package service

import "errors"

// Business errors returned by the service layer. Handlers map these to HTTP
// statuses; anything unrecognized becomes a 500.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrInvalidInviteCode  = errors.New("invalid invite code")
	ErrValidation         = errors.New("invalid input")
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrInternalServer     = errors.New("internal server error")
)
