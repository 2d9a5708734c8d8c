package punchcard

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetUserID() string
	GetAudience() []string
	GetIssuer() string
	GetIssuedAt() *time.Time
	NeedsPasswordChange() bool
}

// Authenticator resolves login attempts into signed session tokens
type Authenticator interface {
	Login(ctx context.Context, identifier, secret string) (*LoginResult, error)
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) (*User, error)
	ResetPassword(ctx context.Context, userID int64) (string, error)
	SessionFromToken(token string) (Session, error)
	TokenService() TokenService
}

// LoginResult is the outcome of a successful login attempt. Token is a signed
// session token ready to be set as a cookie; NeedsPasswordChange tells the
// client to route into the forced password change flow before normal use.
type LoginResult struct {
	User                *User
	Token               string
	NeedsPasswordChange bool
}

type LoginPayload interface {
	GetIdentifier() string
	GetSecret() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetInvitationValidityHours() int
}

// TokenService signs and validates session tokens
type TokenService interface {
	Generate(user *User, needsPasswordChange bool) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] PUNCHCARD "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] PUNCHCARD "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] PUNCHCARD "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] PUNCHCARD "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
