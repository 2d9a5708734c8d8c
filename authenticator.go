package punchcard

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// Auther resolves login attempts and credential changes against the user
// directory. It never distinguishes "unknown identifier" from "wrong secret"
// in its results.
type Auther struct {
	repo         RepositoryManager
	tokenService TokenService
	logger       Logger
	now          func() time.Time
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Auther wired to the given directory.
func NewAuthenticator(repo RepositoryManager, cfg Config) *Auther {
	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		defLogger{},
	)

	return &Auther{
		repo:         repo,
		tokenService: tokenService,
		logger:       defLogger{},
		now:          time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock injects a custom clock (useful for tests).
func (s *Auther) WithClock(clock func() time.Time) *Auther {
	if clock != nil {
		s.now = clock
	}
	return s
}

// TokenService returns the TokenService instance used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login resolves identifier+secret into a signed session. While the account
// has a live invitation, the supplied secret may be either the invitation
// token itself (exact string match; the token is the capability) or the
// current password; a login in that window always forces a password change on
// the session, whatever the stored flag says.
func (s *Auther) Login(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	user, err := s.repo.Users().GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Debug("login identifier not found", "identifier", identifier)
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve login identifier")
	}

	needsChange := user.NeedsPassword

	if user.HasPendingInvitation(s.now()) {
		if !s.matchesInvitationWindow(user, secret) {
			return nil, ErrInvalidCredentials
		}
		// Provisional session: the invitation is still open.
		needsChange = true
	} else {
		if err := ComparePasswordAndHash(secret, user.PasswordHash); err != nil {
			return nil, ErrInvalidCredentials
		}
	}

	token, err := s.tokenService.Generate(user, needsChange)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:                user,
		Token:               token,
		NeedsPasswordChange: needsChange,
	}, nil
}

func (s *Auther) matchesInvitationWindow(user *User, secret string) bool {
	if user.InvitationToken != nil && secret == *user.InvitationToken {
		return true
	}
	return ComparePasswordAndHash(secret, user.PasswordHash) == nil
}

// ChangePassword is the self-service path. The current password is
// re-verified even though the caller is already authenticated.
func (s *Auther) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) (*User, error) {
	user, err := s.repo.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := ComparePasswordAndHash(currentPassword, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	needsChange := false
	return s.repo.Users().Update(ctx, user.ID, &UserUpdate{
		PasswordHash:  &passwordHash,
		NeedsPassword: &needsChange,
	})
}

// ResetPassword is the admin path: no current-password check, a fresh
// temporary password is stored hashed and returned in plaintext exactly once.
// It is never logged and never retrievable again.
func (s *Auther) ResetPassword(ctx context.Context, userID int64) (string, error) {
	user, err := s.repo.Users().GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	tempPassword := GenerateTemporaryPassword()
	passwordHash, err := HashPassword(tempPassword)
	if err != nil {
		return "", err
	}

	needsChange := true
	if _, err := s.repo.Users().Update(ctx, user.ID, &UserUpdate{
		PasswordHash:  &passwordHash,
		NeedsPassword: &needsChange,
	}); err != nil {
		return "", err
	}

	return tempPassword, nil
}

// SessionFromToken validates a raw session token and decodes it.
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims", "error", err)
		return nil, err
	}

	return session, nil
}

// UserFromSession loads the full user record behind a session.
func (s *Auther) UserFromSession(ctx context.Context, session Session) (*User, error) {
	so, ok := session.(*SessionObject)
	if !ok {
		return nil, ErrUnableToMapClaims
	}

	id, err := so.GetUserIDInt()
	if err != nil {
		return nil, ErrUnableToMapClaims
	}

	return s.repo.Users().GetByID(ctx, id)
}
