package punchcard

import (
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// User is the identity and credential record. PasswordHash always stores a
// hash+salt pair produced by HashPassword, never plaintext, and is never
// serialized. The invitation fields round-trip through the API exactly as
// named here.
type User struct {
	bun.BaseModel     `bun:"table:users,alias:usr"`
	ID                int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Username          string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email             string     `bun:"email,notnull,unique" json:"email,omitempty"`
	FullName          string     `bun:"full_name,notnull" json:"fullName,omitempty"`
	Phone             string     `bun:"phone_number" json:"phone,omitempty"`
	Role              UserRole   `bun:"user_role,notnull" json:"role,omitempty"`
	PasswordHash      string     `bun:"password_hash,notnull" json:"-"`
	NeedsPassword     bool       `bun:"needs_password_change,notnull,default:false" json:"needsPasswordChange"`
	InvitationToken   *string    `bun:"invitation_token,nullzero" json:"invitationToken,omitempty"`
	InvitationExpires *time.Time `bun:"invitation_expires,nullzero" json:"invitationExpires,omitempty"`
	InvitationSent    bool       `bun:"invitation_sent,notnull,default:false" json:"invitationSent"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
}

// HasPendingInvitation reports whether the user carries a live invitation
// token at the given instant. Expired-but-present tokens do not count.
func (u *User) HasPendingInvitation(now time.Time) bool {
	if u.InvitationToken == nil || *u.InvitationToken == "" {
		return false
	}
	if u.InvitationExpires == nil {
		return false
	}
	return u.InvitationExpires.After(now)
}

// SubjectID is the string form of the numeric id used in session claims.
func (u *User) SubjectID() string {
	return strconv.FormatInt(u.ID, 10)
}

// PublicUser is the reduced view returned by the invitation preview endpoint:
// enough for the invitee to recognize the account, nothing credential-shaped.
type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// Public returns the invitation preview view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
	}
}

// UserUpdate is a partial mutation of a user record. Nil fields are left
// untouched; non-nil fields are applied together in a single statement.
// ClearInvitation nulls out token and expiry, which is how a token is
// consumed or superseded.
type UserUpdate struct {
	FullName          *string
	Phone             *string
	Role              *UserRole
	PasswordHash      *string
	NeedsPassword     *bool
	InvitationToken   *string
	InvitationExpires *time.Time
	InvitationSent    *bool
	ClearInvitation   bool
}
