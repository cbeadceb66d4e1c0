package accounts

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	textCodeEmailTaken         = "EMAIL_TAKEN"
	textCodeInvalidCredentials = "INVALID_CREDENTIALS"
	textCodeAccountBlocked     = "ACCOUNT_BLOCKED"
	textCodeTokenExpired       = "TOKEN_EXPIRED"
	textCodeTokenMalformed     = "TOKEN_MALFORMED"
	textCodeTokenRevoked       = "TOKEN_REVOKED"
)

// ErrEmailTaken is returned when a registration hits the store's unique
// constraint on email. Callers present it as "email already exists".
var ErrEmailTaken = errors.New("email already exists", errors.CategoryConflict).
	WithTextCode(textCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrInvalidCredentials covers both an unknown email and a wrong password so
// responses cannot be used to enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountBlocked is returned when a blocked account attempts to log in
var ErrAccountBlocked = errors.New("your account is blocked", errors.CategoryAuth).
	WithTextCode(textCodeAccountBlocked).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired means the session token is past its signed expiry
var ErrTokenExpired = errors.New("session token is expired", errors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed means the token could not be parsed or its signature
// did not verify
var ErrTokenMalformed = errors.New("session token is malformed", errors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenRevoked means the token's jti is on the denylist; the session was
// terminated before its expiry and the holder must log in again.
var ErrTokenRevoked = errors.New("session token is revoked", errors.CategoryAuth).
	WithTextCode(textCodeTokenRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty required input
var ErrNoEmptyString = errors.New("value should not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// IsSessionInvalidError matches any error that should force a re-login:
// expired, malformed, or revoked session tokens.
func IsSessionInvalidError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		switch richErr.TextCode {
		case textCodeTokenExpired, textCodeTokenMalformed, textCodeTokenRevoked:
			return true
		}
	}

	return strings.Contains(err.Error(), "token is expired") ||
		strings.Contains(err.Error(), "token is malformed")
}

// IsBlockedError matches the blocked-account login rejection
func IsBlockedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == textCodeAccountBlocked {
		return true
	}

	return strings.Contains(err.Error(), "account is blocked")
}

// IsConflictError matches unique-constraint violations surfaced by the store
func IsConflictError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryConflict
	}

	return false
}

// IsValidationError matches recoverable bad-input errors
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryValidation
	}

	return false
}
