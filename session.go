package punchcard

import (
	"strconv"
	"time"
)

var _ Session = &SessionObject{}

// SessionObject is the decoded, transport-agnostic view of a session token.
type SessionObject struct {
	UserID         string     `json:"user_id,omitempty"`
	UserRole       string     `json:"role,omitempty"`
	Audience       []string   `json:"audience,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	PasswordChange bool       `json:"needs_password_change,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

// GetUserIDInt parses the numeric user id carried by the session.
func (s *SessionObject) GetUserIDInt() (int64, error) {
	return strconv.ParseInt(s.UserID, 10, 64)
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) NeedsPasswordChange() bool {
	return s.PasswordChange
}

// sessionFromAuthClaims converts validated claims into a SessionObject.
func sessionFromAuthClaims(claims AuthClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToMapClaims
	}

	session := &SessionObject{
		UserID:         claims.UserID(),
		UserRole:       claims.Role(),
		PasswordChange: claims.NeedsPasswordChange(),
	}

	if issued := claims.IssuedAt(); !issued.IsZero() {
		session.IssuedAt = &issued
	}

	if expires := claims.Expires(); !expires.IsZero() {
		session.ExpirationDate = &expires
	}

	if jc, ok := claims.(*JWTClaims); ok {
		session.Issuer = jc.RegisteredClaims.Issuer
		session.Audience = jc.RegisteredClaims.Audience
	}

	return session, nil
}
