package domain

import "errors"

var (
	ErrInvalidUserID    = errors.New("invalid user id")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmptyMessage     = errors.New("empty message text")
	ErrSelfConversation = errors.New("recipient and sender are the same user")
	ErrInvalidPayload   = errors.New("malformed message payload")
)
