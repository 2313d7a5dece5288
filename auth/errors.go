package auth

import "errors"

var (
	// ErrNoRefreshToken means the store holds no refresh token; the session ends without a network call.
	ErrNoRefreshToken = errors.New("no refresh token stored")
	// ErrRefreshRejected wraps a non-2xx or malformed answer from the refresh endpoint.
	ErrRefreshRejected = errors.New("refresh token rejected")
	// ErrRefreshTransport wraps a network failure while calling the refresh endpoint.
	ErrRefreshTransport = errors.New("refresh request failed")
	// ErrRefreshPanicked is reported to waiters when the refresh leader panicked.
	ErrRefreshPanicked = errors.New("token refresh panicked")
)
