package domain

import "errors"

var (
	ErrInvalidUserID  = errors.New("invalid user id")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)
