package common

import "errors"

var (
	// repository specific errors
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorInvalidInput = errors.New("invalid input")

	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// prompt-specific errors
	ErrRecordLocked  = errors.New("prompt is locked")
	ErrRecordDeleted = errors.New("prompt is deleted")

	// sync engine errors
	ErrOffline        = errors.New("offline")
	ErrNotInitialized = errors.New("sync engine is not initialized")
)
