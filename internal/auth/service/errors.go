package service

import "errors"

// Sentinel errors returned by the services. The HTTP layer maps these onto
// RFC 6749 error codes.
var (
	// ErrInvalidCredentials means the username/password pair did not match
	// a stored user.
	ErrInvalidCredentials = errors.New("service: invalid credentials")

	// ErrInvalidClient means the client ID is unknown or the client secret
	// did not match.
	ErrInvalidClient = errors.New("service: invalid client")

	// ErrUnauthorizedClient means the client exists but is not allowed to
	// use the requested grant type.
	ErrUnauthorizedClient = errors.New("service: client not authorized for grant")

	// ErrInvalidScope means a requested scope is outside the client's
	// allowed scope set.
	ErrInvalidScope = errors.New("service: invalid scope")

	// ErrInvalidRefresh means the refresh token is unknown, expired, or
	// bound to a different client.
	ErrInvalidRefresh = errors.New("service: invalid refresh token")

	// ErrConsumedRefresh means the refresh token was already rotated.
	// Presenting a consumed token is treated as evidence of replay.
	ErrConsumedRefresh = errors.New("service: refresh token already used")
)
