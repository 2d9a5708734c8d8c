package punchcard

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultInvitationValidity is how long an invitation token stays redeemable
// when no validity is configured.
const DefaultInvitationValidity = 72 * time.Hour

// IssuedInvitation is the one-time disclosure of freshly minted credentials.
// TemporaryPassword is plaintext here and nowhere else: it is not logged and
// only its hash is persisted. DeliveryErr is set when the mail hand-off
// failed; the invitation itself is committed regardless, so the caller can
// relay the credentials manually.
type IssuedInvitation struct {
	User              *User
	Token             string
	TemporaryPassword string
	ExpiresAt         time.Time
	DeliveryErr       error
}

// InvitationManager drives the issue -> deliver -> redeem cycle for
// onboarding credentials. Expiry is checked lazily at validation time.
type InvitationManager struct {
	repo     RepositoryManager
	mailer   Mailer
	logger   Logger
	now      func() time.Time
	validity time.Duration
}

// InvitationOption customizes manager construction.
type InvitationOption func(*InvitationManager)

// WithInvitationMailer sets the delivery collaborator.
func WithInvitationMailer(m Mailer) InvitationOption {
	return func(im *InvitationManager) {
		if m != nil {
			im.mailer = m
		}
	}
}

// WithInvitationClock injects a custom clock (useful for tests).
func WithInvitationClock(clock func() time.Time) InvitationOption {
	return func(im *InvitationManager) {
		if clock != nil {
			im.now = clock
		}
	}
}

// WithInvitationValidity sets how long issued tokens stay redeemable.
func WithInvitationValidity(d time.Duration) InvitationOption {
	return func(im *InvitationManager) {
		if d > 0 {
			im.validity = d
		}
	}
}

// WithInvitationLogger overrides the logger.
func WithInvitationLogger(l Logger) InvitationOption {
	return func(im *InvitationManager) {
		if l != nil {
			im.logger = l
		}
	}
}

// NewInvitationManager creates a manager with console delivery and the
// default validity window.
func NewInvitationManager(repo RepositoryManager, opts ...InvitationOption) *InvitationManager {
	im := &InvitationManager{
		repo:     repo,
		mailer:   ConsoleMailer{},
		logger:   defLogger{},
		now:      time.Now,
		validity: DefaultInvitationValidity,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(im)
		}
	}

	return im
}

// Issue provisions a fresh invitation for the user: a new single-use token,
// a new temporary password (invalidating the previous password immediately),
// and an expiry. Re-issuing always overwrites any prior token, live or not.
func (im *InvitationManager) Issue(ctx context.Context, userID int64) (*IssuedInvitation, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during invitation issue")
	default:
	}

	user, err := im.repo.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	token, err := GenerateInvitationToken()
	if err != nil {
		return nil, err
	}

	tempPassword := GenerateTemporaryPassword()
	passwordHash, err := HashPassword(tempPassword)
	if err != nil {
		return nil, err
	}

	expiresAt := im.now().Add(im.validity)
	sent := true
	needsChange := true

	updated, err := im.repo.Users().Update(ctx, user.ID, &UserUpdate{
		PasswordHash:      &passwordHash,
		NeedsPassword:     &needsChange,
		InvitationToken:   &token,
		InvitationExpires: &expiresAt,
		InvitationSent:    &sent,
	})
	if err != nil {
		return nil, err
	}

	inv := &IssuedInvitation{
		User:              updated,
		Token:             token,
		TemporaryPassword: tempPassword,
		ExpiresAt:         expiresAt,
	}

	// Delivery failure does not roll back issuance; the credentials are
	// returned so the admin can relay them out-of-band.
	if err := im.mailer.SendInvitation(ctx, updated, InvitationEmail{
		Token:             token,
		TemporaryPassword: tempPassword,
		ExpiresAt:         expiresAt,
		AcceptURL:         fmt.Sprintf("/invitation/%s", token),
	}); err != nil {
		im.logger.Error("invitation delivery failed", "user_id", updated.ID, "error", err)
		inv.DeliveryErr = err
	}

	return inv, nil
}

// Validate is the read-only half of redemption: it resolves a live token to
// its user. Unknown tokens and expired tokens fail identically.
func (im *InvitationManager) Validate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrInvalidOrExpiredInvitation
	}

	user, err := im.repo.Users().GetByInvitationToken(ctx, token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidOrExpiredInvitation
		}
		return nil, err
	}

	if !user.HasPendingInvitation(im.now()) {
		return nil, ErrInvalidOrExpiredInvitation
	}

	return user, nil
}

// Redeem consumes a live token: the new password is hashed and stored, the
// forced-change flag clears, and the token is nulled so a second redemption
// of the same string fails like any unknown token.
func (im *InvitationManager) Redeem(ctx context.Context, token, newPassword string) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during invitation redeem")
	default:
	}

	user, err := im.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	needsChange := false
	return im.repo.Users().Update(ctx, user.ID, &UserUpdate{
		PasswordHash:    &passwordHash,
		NeedsPassword:   &needsChange,
		ClearInvitation: true,
	})
}
