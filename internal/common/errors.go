// Package common defines shared constants and sentinel errors used across
// the server, the client and the mock assistant. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (malformed, tampered or wrongly signed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Collaborator errors. Never surfaced to API clients.
	ErrAssistantUnavailable = errors.New("assistant unavailable")

	// Transcript archive is not configured.
	ErrExportDisabled = errors.New("export disabled")
)
