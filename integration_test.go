package punchcard_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	punchcard "github.com/punchcard-app/punchcard"
)

func setupSQLiteRepo(t *testing.T) punchcard.RepositoryManager {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.NewCreateTable().
		Model((*punchcard.User)(nil)).
		IfNotExists().
		Exec(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	repo := punchcard.NewRepositoryManager(bunDB)
	repo.MustValidate()
	return repo
}

// Walks the full onboarding lifecycle against a real database: provision,
// invite, log in with the invitation token, redeem, and settle into normal
// password logins.
func TestOnboardingLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLiteRepo(t)

	auth := punchcard.NewAuthenticator(repo, newTestConfig())
	mailer := &captureMailer{}
	invitations := punchcard.NewInvitationManager(repo,
		punchcard.WithInvitationMailer(mailer),
	)

	// Provision the account the way the admin endpoint does.
	tempPassword := punchcard.GenerateTemporaryPassword()
	passwordHash, err := punchcard.HashPassword(tempPassword)
	require.NoError(t, err)

	user, err := repo.Users().Create(ctx, &punchcard.User{
		Username:      "newhire",
		Email:         "newhire@example.com",
		FullName:      "New Hire",
		Role:          punchcard.RoleEmployee,
		PasswordHash:  passwordHash,
		NeedsPassword: true,
	})
	require.NoError(t, err)
	require.NotZero(t, user.ID)

	// Issue the invitation; the temp password rotates.
	inv, err := invitations.Issue(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, mailer.count())

	_, err = auth.Login(ctx, "newhire", tempPassword)
	assert.ErrorIs(t, err, punchcard.ErrInvalidCredentials)

	// Both fresh credentials work and force a password change.
	result, err := auth.Login(ctx, "newhire", inv.Token)
	require.NoError(t, err)
	assert.True(t, result.NeedsPasswordChange)

	result, err = auth.Login(ctx, "newhire@example.com", inv.TemporaryPassword)
	require.NoError(t, err)
	assert.True(t, result.NeedsPasswordChange)

	// Redeem and settle.
	redeemed, err := invitations.Redeem(ctx, inv.Token, "chosen-password")
	require.NoError(t, err)
	assert.False(t, redeemed.NeedsPassword)
	assert.Nil(t, redeemed.InvitationToken)

	_, err = auth.Login(ctx, "newhire", inv.Token)
	assert.ErrorIs(t, err, punchcard.ErrInvalidCredentials)

	result, err = auth.Login(ctx, "newhire", "chosen-password")
	require.NoError(t, err)
	assert.False(t, result.NeedsPasswordChange)

	// Session round-trip against the stored record.
	session, err := auth.SessionFromToken(result.Token)
	require.NoError(t, err)

	loaded, err := auth.UserFromSession(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, user.ID, loaded.ID)

	// Self-service change, then an admin reset.
	_, err = auth.ChangePassword(ctx, user.ID, "chosen-password", "rotated-password")
	require.NoError(t, err)

	reset, err := auth.ResetPassword(ctx, user.ID)
	require.NoError(t, err)

	_, err = auth.Login(ctx, "newhire", "rotated-password")
	assert.ErrorIs(t, err, punchcard.ErrInvalidCredentials)

	result, err = auth.Login(ctx, "newhire", reset)
	require.NoError(t, err)
	assert.True(t, result.NeedsPasswordChange)
}

func TestUsersRepositoryUpdateSemantics(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLiteRepo(t)

	hash, err := punchcard.HashPassword("secret123")
	require.NoError(t, err)

	user, err := repo.Users().Create(ctx, &punchcard.User{
		Username:     "maria",
		Email:        "maria@example.com",
		FullName:     "Maria Flores",
		Role:         punchcard.RoleEmployee,
		PasswordHash: hash,
	})
	require.NoError(t, err)

	t.Run("nil fields stay untouched", func(t *testing.T) {
		role := punchcard.RoleAdmin
		updated, err := repo.Users().Update(ctx, user.ID, &punchcard.UserUpdate{
			Role: &role,
		})
		require.NoError(t, err)
		assert.Equal(t, punchcard.RoleAdmin, updated.Role)
		assert.Equal(t, "Maria Flores", updated.FullName)
		assert.Equal(t, hash, updated.PasswordHash)
	})

	t.Run("updating a missing id is not found", func(t *testing.T) {
		name := "Nobody"
		_, err := repo.Users().Update(ctx, 9999, &punchcard.UserUpdate{
			FullName: &name,
		})
		assert.Error(t, err)
	})

	t.Run("identifier lookup prefers username", func(t *testing.T) {
		found, err := repo.Users().GetByIdentifier(ctx, "maria")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		found, err = repo.Users().GetByIdentifier(ctx, "maria@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		_, err = repo.Users().GetByIdentifier(ctx, "nobody")
		assert.Error(t, err)
	})
}
