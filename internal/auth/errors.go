package auth

import "errors"

var (
	// ErrTokenInvalid covers bad signatures, malformed payloads and tokens of the wrong type.
	ErrTokenInvalid = errors.New("token: invalid")
	// ErrTokenExpired signals a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token: expired")

	// ErrSessionStale is returned when a refresh token is no longer the user's active one.
	ErrSessionStale = errors.New("session: refresh token is not live")
	// ErrSessionNotFound indicates the user has no active session.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrActivationInvalid covers unknown and already used activation tokens.
	ErrActivationInvalid = errors.New("activation: invalid token")
	// ErrActivationExpired signals an unused activation token past its expiry.
	ErrActivationExpired = errors.New("activation: token expired")
)
