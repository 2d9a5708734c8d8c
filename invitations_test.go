package punchcard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	punchcard "github.com/punchcard-app/punchcard"
)

func TestInvitationIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("issue provisions token, temp password and expiry", func(t *testing.T) {
		repo := newMemoryRepo()
		user := seedUser(t, repo, "maria", "maria@example.com", "old-password")

		mailer := &captureMailer{}
		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		manager := punchcard.NewInvitationManager(repo,
			punchcard.WithInvitationMailer(mailer),
			punchcard.WithInvitationClock(func() time.Time { return now }),
			punchcard.WithInvitationValidity(48*time.Hour),
		)

		inv, err := manager.Issue(ctx, user.ID)
		require.NoError(t, err)

		assert.NotEmpty(t, inv.Token)
		assert.NotEmpty(t, inv.TemporaryPassword)
		assert.Equal(t, now.Add(48*time.Hour), inv.ExpiresAt)
		assert.NoError(t, inv.DeliveryErr)

		stored, err := repo.Users().GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.InvitationToken)
		assert.Equal(t, inv.Token, *stored.InvitationToken)
		require.NotNil(t, stored.InvitationExpires)
		assert.True(t, stored.InvitationExpires.Equal(inv.ExpiresAt))
		assert.True(t, stored.NeedsPassword)
		assert.True(t, stored.InvitationSent)

		assert.NoError(t, punchcard.ComparePasswordAndHash(inv.TemporaryPassword, stored.PasswordHash))
		assert.Error(t, punchcard.ComparePasswordAndHash("old-password", stored.PasswordHash))

		require.Equal(t, 1, mailer.count())
		sent := mailer.last()
		assert.Equal(t, inv.Token, sent.Token)
		assert.Equal(t, inv.TemporaryPassword, sent.TemporaryPassword)
		assert.Equal(t, "/invitation/"+inv.Token, sent.AcceptURL)
	})

	t.Run("re-issue overwrites the previous token", func(t *testing.T) {
		repo := newMemoryRepo()
		user := seedUser(t, repo, "maria", "maria@example.com", "old-password")

		manager := punchcard.NewInvitationManager(repo)

		first, err := manager.Issue(ctx, user.ID)
		require.NoError(t, err)

		second, err := manager.Issue(ctx, user.ID)
		require.NoError(t, err)
		require.NotEqual(t, first.Token, second.Token)

		_, err = manager.Validate(ctx, first.Token)
		assert.ErrorIs(t, err, punchcard.ErrInvalidOrExpiredInvitation)

		found, err := manager.Validate(ctx, second.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("delivery failure does not roll back issuance", func(t *testing.T) {
		repo := newMemoryRepo()
		user := seedUser(t, repo, "maria", "maria@example.com", "old-password")

		mailer := &MockMailer{}
		mailer.On("SendInvitation", mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("smtp unreachable"))

		manager := punchcard.NewInvitationManager(repo,
			punchcard.WithInvitationMailer(mailer),
		)

		inv, err := manager.Issue(ctx, user.ID)
		require.NoError(t, err)
		require.Error(t, inv.DeliveryErr)

		found, err := manager.Validate(ctx, inv.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		mailer.AssertExpectations(t)
	})

	t.Run("issue for unknown user fails", func(t *testing.T) {
		repo := newMemoryRepo()
		manager := punchcard.NewInvitationManager(repo)

		_, err := manager.Issue(ctx, 999)
		assert.Error(t, err)
	})
}

func TestInvitationValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown, empty and expired tokens fail identically", func(t *testing.T) {
		repo := newMemoryRepo()
		user := seedUser(t, repo, "maria", "maria@example.com", "old-password")

		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		clock := &now
		manager := punchcard.NewInvitationManager(repo,
			punchcard.WithInvitationMailer(&captureMailer{}),
			punchcard.WithInvitationClock(func() time.Time { return *clock }),
			punchcard.WithInvitationValidity(time.Hour),
		)

		inv, err := manager.Issue(ctx, user.ID)
		require.NoError(t, err)

		_, err = manager.Validate(ctx, "")
		assert.ErrorIs(t, err, punchcard.ErrInvalidOrExpiredInvitation)

		_, err = manager.Validate(ctx, "no-such-token")
		assert.ErrorIs(t, err, punchcard.ErrInvalidOrExpiredInvitation)

		later := now.Add(2 * time.Hour)
		clock = &later
		_, err = manager.Validate(ctx, inv.Token)
		assert.ErrorIs(t, err, punchcard.ErrInvalidOrExpiredInvitation)
	})
}

func TestInvitationRedeem(t *testing.T) {
	ctx := context.Background()

	t.Run("redeem stores new password and consumes the token", func(t *testing.T) {
		repo := newMemoryRepo()
		user := seedUser(t, repo, "maria", "maria@example.com", "old-password")

		manager := punchcard.NewInvitationManager(repo,
			punchcard.WithInvitationMailer(&captureMailer{}),
		)

		inv, err := manager.Issue(ctx, user.ID)
		require.NoError(t, err)

		redeemed, err := manager.Redeem(ctx, inv.Token, "my-chosen-password")
		require.NoError(t, err)

		assert.False(t, redeemed.NeedsPassword)
		assert.Nil(t, redeemed.InvitationToken)
		assert.Nil(t, redeemed.InvitationExpires)
		assert.NoError(t, punchcard.ComparePasswordAndHash("my-chosen-password", redeemed.PasswordHash))

		_, err = manager.Redeem(ctx, inv.Token, "another-password")
		assert.ErrorIs(t, err, punchcard.ErrInvalidOrExpiredInvitation)
	})

	t.Run("redeem with an unknown token fails", func(t *testing.T) {
		repo := newMemoryRepo()
		manager := punchcard.NewInvitationManager(repo)

		_, err := manager.Redeem(ctx, "no-such-token", "whatever-password")
		assert.ErrorIs(t, err, punchcard.ErrInvalidOrExpiredInvitation)
	})
}
