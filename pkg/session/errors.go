package session

import "errors"

var (
	// ErrInvalidCredentials is returned on login when the email is unknown or
	// the password is wrong. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken is returned on registration when a non-deleted user with
	// that email already exists.
	ErrEmailTaken = errors.New("user with this email already exists")

	// ErrInvalidToken is returned for malformed or incorrectly signed tokens,
	// refresh tokens with no matching ledger entry, and access/refresh pairs
	// that do not belong together.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenReused is returned when an already-rotated-away refresh token is
	// presented again. The whole chain has been invalidated by the time the
	// caller sees this error.
	ErrTokenReused = errors.New("refresh token is no longer valid")

	// ErrTokenExpired is returned when the presented refresh token is past its
	// expiry. The entry has been invalidated by the time the caller sees this.
	ErrTokenExpired = errors.New("refresh token has expired")

	// ErrConfig is returned when required secrets or durations are missing.
	ErrConfig = errors.New("invalid session config")
)
