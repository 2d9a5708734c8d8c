package punchcard

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "invalid_credentials"
	TextCodeInvalidInvitation  = "invalid_or_expired_invitation"
	TextCodeDeliveryFailure    = "invitation_delivery_failed"
	TextCodeTokenExpired       = "session_token_expired"
	TextCodeTokenMalformed     = "session_token_malformed"
	TextCodeUserNotFound       = "user_not_found"
)

// ErrInvalidCredentials is returned for every failed login attempt. Unknown
// identifier and wrong secret collapse into the same value so callers cannot
// enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidOrExpiredInvitation covers absent, unknown, consumed, and expired
// invitation tokens alike; the distinction is never surfaced.
var ErrInvalidOrExpiredInvitation = errors.New("invalid or expired invitation", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidInvitation).
	WithCode(errors.CodeBadRequest)

// ErrUserNotFound is returned by admin operations that reference a missing
// user id.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrDeliveryFailure reports that the invitation email could not be handed
// off. The invitation itself is already persisted when this surfaces.
var ErrDeliveryFailure = errors.New("invitation delivery failed", errors.CategoryOperation).
	WithTextCode(TextCodeDeliveryFailure).
	WithCode(errors.CodeInternal)

// ErrTokenExpired is the rich error for expired session tokens
var ErrTokenExpired = errors.New("session token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is the rich error for undecodable session tokens
var ErrTokenMalformed = errors.New("session token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty password material before hashing
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryBadInput)

// ErrMismatchedHashAndPassword is the single failure value for password
// verification; malformed stored hashes fail closed with it as well.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials)

// ErrUnableToFindSession is the error when a request carries no session cookie
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToMapClaims means a decoded token had an unexpected claims shape
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired") ||
		strings.Contains(err.Error(), TextCodeTokenExpired)
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
