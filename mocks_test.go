package punchcard_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	punchcard "github.com/punchcard-app/punchcard"
)

// testConfig implements punchcard.Config with static values.
type testConfig struct {
	signingKey      string
	tokenExpiration int
	invitationHours int
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:      "test-signing-key",
		tokenExpiration: 24,
		invitationHours: 72,
	}
}

func (c *testConfig) GetSigningKey() string    { return c.signingKey }
func (c *testConfig) GetSigningMethod() string { return "HS256" }
func (c *testConfig) GetContextKey() string    { return "punchcard_session" }
func (c *testConfig) GetTokenExpiration() int  { return c.tokenExpiration }
func (c *testConfig) GetTokenLookup() string {
	return "cookie:punchcard_session,header:Authorization"
}
func (c *testConfig) GetAuthScheme() string           { return "Bearer" }
func (c *testConfig) GetIssuer() string               { return "test-issuer" }
func (c *testConfig) GetAudience() []string           { return []string{"test:audience"} }
func (c *testConfig) GetInvitationValidityHours() int { return c.invitationHours }

// memoryUsers is an in-memory user directory with the same update semantics
// as the bun-backed one.
type memoryUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*punchcard.User
}

var _ punchcard.Users = (*memoryUsers)(nil)

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		nextID: 1,
		users:  map[int64]*punchcard.User{},
	}
}

func userNotFound() error {
	return errors.New("user not found", errors.CategoryNotFound).
		WithCode(errors.CodeNotFound)
}

func copyUser(u *punchcard.User) *punchcard.User {
	c := *u
	return &c
}

func (m *memoryUsers) GetByID(_ context.Context, id int64) (*punchcard.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, userNotFound()
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*punchcard.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, userNotFound()
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*punchcard.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, userNotFound()
}

func (m *memoryUsers) GetByInvitationToken(_ context.Context, token string) (*punchcard.User, error) {
	if token == "" {
		return nil, userNotFound()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.InvitationToken != nil && *u.InvitationToken == token {
			return copyUser(u), nil
		}
	}
	return nil, userNotFound()
}

func (m *memoryUsers) GetByIdentifier(ctx context.Context, identifier string) (*punchcard.User, error) {
	user, err := m.GetByUsername(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}
	return m.GetByEmail(ctx, identifier)
}

func (m *memoryUsers) Create(_ context.Context, record *punchcard.User) (*punchcard.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record.ID = m.nextID
	m.nextID++
	now := time.Now()
	record.CreatedAt = &now
	record.UpdatedAt = &now
	m.users[record.ID] = copyUser(record)
	return copyUser(record), nil
}

func (m *memoryUsers) Update(_ context.Context, id int64, upd *punchcard.UserUpdate) (*punchcard.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, userNotFound()
	}

	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.NeedsPassword != nil {
		u.NeedsPassword = *upd.NeedsPassword
	}
	if upd.ClearInvitation {
		u.InvitationToken = nil
		u.InvitationExpires = nil
	} else {
		if upd.InvitationToken != nil {
			u.InvitationToken = upd.InvitationToken
		}
		if upd.InvitationExpires != nil {
			u.InvitationExpires = upd.InvitationExpires
		}
	}
	if upd.InvitationSent != nil {
		u.InvitationSent = *upd.InvitationSent
	}

	now := time.Now()
	u.UpdatedAt = &now

	return copyUser(u), nil
}

// memoryRepo implements punchcard.RepositoryManager around memoryUsers.
type memoryRepo struct {
	users *memoryUsers
}

var _ punchcard.RepositoryManager = (*memoryRepo)(nil)

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: newMemoryUsers()}
}

func (m *memoryRepo) Users() punchcard.Users { return m.users }

func (m *memoryRepo) Validate() error { return nil }

func (m *memoryRepo) MustValidate() {}

func (m *memoryRepo) RunInTx(ctx context.Context, _ *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

// MockMailer implements punchcard.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendInvitation(ctx context.Context, user *punchcard.User, email punchcard.InvitationEmail) error {
	args := m.Called(ctx, user, email)
	return args.Error(0)
}

// captureMailer records every delivery.
type captureMailer struct {
	mu   sync.Mutex
	sent []punchcard.InvitationEmail
}

func (c *captureMailer) SendInvitation(_ context.Context, _ *punchcard.User, email punchcard.InvitationEmail) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, email)
	return nil
}

func (c *captureMailer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *captureMailer) last() punchcard.InvitationEmail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent[len(c.sent)-1]
}

// seedUser creates a user with a known password.
func seedUser(t *testing.T, repo *memoryRepo, username, email, password string) *punchcard.User {
	t.Helper()

	hash, err := punchcard.HashPassword(password)
	require.NoError(t, err)

	user, err := repo.Users().Create(context.Background(), &punchcard.User{
		Username:     username,
		Email:        email,
		FullName:     "Test User",
		Role:         punchcard.RoleEmployee,
		PasswordHash: hash,
	})
	require.NoError(t, err)

	return user
}
