// Package common defines shared constants and sentinel errors used across
// client and server layers of MediKeep. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrLoginAlreadyExists  = errors.New("login already exists")
	ErrInvalidCredentials  = errors.New("invalid login/password")

	// Invitation lifecycle errors. Each maps to a distinct outcome the
	// caller is expected to present; none of them mutates state.
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrTokenMismatch      = errors.New("invitation token mismatch")
	ErrInvitationExpired  = errors.New("invitation expired")
	ErrAlreadyAccepted    = errors.New("invitation already accepted")
	ErrInvitationCanceled = errors.New("invitation canceled")

	// RBAC errors.
	ErrOwnerRoleNotGrantable = errors.New("owner role cannot be granted via invitation")
	ErrPermissionDenied      = errors.New("permission denied")
)
