package punchcard_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	punchcard "github.com/punchcard-app/punchcard"
)

func newTestController(t *testing.T, repo *memoryRepo) *punchcard.AuthController {
	t.Helper()

	auth := punchcard.NewAuthenticator(repo, newTestConfig())
	httpAuth, err := punchcard.NewHTTPAuthenticator(auth, newTestConfig())
	require.NoError(t, err)

	return punchcard.NewAuthController(func(c *punchcard.AuthController) *punchcard.AuthController {
		c.Repo = repo
		c.Auth = auth
		c.Auther = httpAuth
		c.Invitations = punchcard.NewInvitationManager(repo,
			punchcard.WithInvitationMailer(&captureMailer{}),
		)
		return c
	})
}

func TestLoginPost(t *testing.T) {
	t.Run("valid credentials set the cookie and return the user", func(t *testing.T) {
		repo := newMemoryRepo()
		seedUser(t, repo, "maria", "maria@example.com", "secret123")
		ctrl := newTestController(t, repo)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*punchcard.LoginRequest)
			payload.Identifier = "maria"
			payload.Password = "secret123"
		}).Return(nil)
		ctx.On("Context").Return(context.Background())
		ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
			cookie := args.Get(0).(*router.Cookie)
			assert.Equal(t, "punchcard_session", cookie.Name)
			assert.NotEmpty(t, cookie.Value)
			assert.True(t, cookie.HTTPOnly)
		})
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			body := args.Get(1).(map[string]any)
			user := body["user"].(punchcard.PublicUser)
			assert.Equal(t, "maria", user.Username)
			assert.Equal(t, false, body["needsPasswordChange"])
		}).Return(nil)

		require.NoError(t, ctrl.LoginPost(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("empty payload is a validation error", func(t *testing.T) {
		ctrl := newTestController(t, newMemoryRepo())

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Return(nil)
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Run(func(args mock.Arguments) {
			body := args.Get(1).(map[string]any)
			assert.Equal(t, "Invalid login payload", body["error"])
		}).Return(nil)

		require.NoError(t, ctrl.LoginPost(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("wrong password renders unauthorized", func(t *testing.T) {
		repo := newMemoryRepo()
		seedUser(t, repo, "maria", "maria@example.com", "secret123")
		ctrl := newTestController(t, repo)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*punchcard.LoginRequest)
			payload.Identifier = "maria"
			payload.Password = "not-the-password"
		}).Return(nil)
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Run(func(args mock.Arguments) {
			body := args.Get(1).(map[string]any)
			assert.Equal(t, punchcard.TextCodeInvalidCredentials, body["text_code"])
		}).Return(nil)

		require.NoError(t, ctrl.LoginPost(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestInvitationShow(t *testing.T) {
	t.Run("unknown token reads as invalid, not unauthorized", func(t *testing.T) {
		ctrl := newTestController(t, newMemoryRepo())

		ctx := router.NewMockContext()
		ctx.ParamsM["token"] = "no-such-token"
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Run(func(args mock.Arguments) {
			body := args.Get(1).(map[string]any)
			assert.Equal(t, false, body["valid"])
		}).Return(nil)

		require.NoError(t, ctrl.InvitationShow(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("live token previews the account", func(t *testing.T) {
		repo := newMemoryRepo()
		user := seedUser(t, repo, "maria", "maria@example.com", "secret123")
		ctrl := newTestController(t, repo)

		inv, err := ctrl.Invitations.Issue(context.Background(), user.ID)
		require.NoError(t, err)

		ctx := router.NewMockContext()
		ctx.ParamsM["token"] = inv.Token
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			body := args.Get(1).(map[string]any)
			assert.Equal(t, true, body["valid"])
			preview := body["user"].(punchcard.PublicUser)
			assert.Equal(t, "maria", preview.Username)
		}).Return(nil)

		require.NoError(t, ctrl.InvitationShow(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestInvitationAccept(t *testing.T) {
	repo := newMemoryRepo()
	user := seedUser(t, repo, "maria", "maria@example.com", "secret123")
	ctrl := newTestController(t, repo)

	inv, err := ctrl.Invitations.Issue(context.Background(), user.ID)
	require.NoError(t, err)

	ctx := router.NewMockContext()
	ctx.ParamsM["token"] = inv.Token
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*punchcard.AcceptInvitationRequest)
		payload.Password = "my-chosen-password"
	}).Return(nil)
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookie", mock.Anything)
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		body := args.Get(1).(map[string]any)
		assert.Equal(t, false, body["needsPasswordChange"])
	}).Return(nil)

	require.NoError(t, ctrl.InvitationAccept(ctx))
	ctx.AssertExpectations(t)

	stored, err := repo.Users().GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.InvitationToken)
	assert.NoError(t, punchcard.ComparePasswordAndHash("my-chosen-password", stored.PasswordHash))
}

func TestAdminCreateUser(t *testing.T) {
	t.Run("creates the account and discloses the temporary password once", func(t *testing.T) {
		repo := newMemoryRepo()
		ctrl := newTestController(t, repo)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*punchcard.CreateUserRequest)
			payload.Username = "newhire"
			payload.Email = "newhire@example.com"
			payload.FullName = "New Hire"
		}).Return(nil)
		ctx.On("Context").Return(context.Background())

		var tempPassword string
		ctx.On("JSON", router.StatusCreated, mock.Anything).Run(func(args mock.Arguments) {
			body := args.Get(1).(map[string]any)
			tempPassword = body["temporaryPassword"].(string)
			assert.NotEmpty(t, tempPassword)
		}).Return(nil)

		require.NoError(t, ctrl.AdminCreateUser(ctx))
		ctx.AssertExpectations(t)

		created, err := repo.Users().GetByUsername(context.Background(), "newhire")
		require.NoError(t, err)
		assert.Equal(t, punchcard.RoleEmployee, created.Role)
		assert.True(t, created.NeedsPassword)
		assert.NoError(t, punchcard.ComparePasswordAndHash(tempPassword, created.PasswordHash))
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		repo := newMemoryRepo()
		seedUser(t, repo, "maria", "maria@example.com", "secret123")
		ctrl := newTestController(t, repo)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*punchcard.CreateUserRequest)
			payload.Username = "other"
			payload.Email = "maria@example.com"
		}).Return(nil)
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Run(func(args mock.Arguments) {
			body := args.Get(1).(map[string]any)
			assert.Equal(t, "Email already in use", body["error"])
		}).Return(nil)

		require.NoError(t, ctrl.AdminCreateUser(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestRequestBodyKeys(t *testing.T) {
	t.Run("login reads identifier and secret", func(t *testing.T) {
		var payload punchcard.LoginRequest
		require.NoError(t, json.Unmarshal(
			[]byte(`{"identifier":"maria","secret":"secret123"}`), &payload))

		assert.Equal(t, "maria", payload.GetIdentifier())
		assert.Equal(t, "secret123", payload.GetSecret())
		assert.NoError(t, payload.Validate())
	})

	t.Run("invitation acceptance reads newPassword", func(t *testing.T) {
		var payload punchcard.AcceptInvitationRequest
		require.NoError(t, json.Unmarshal(
			[]byte(`{"newPassword":"my-chosen-password"}`), &payload))

		assert.Equal(t, "my-chosen-password", payload.Password)
		assert.NoError(t, payload.Validate())
	})
}

func TestPayloadValidation(t *testing.T) {
	t.Run("create user", func(t *testing.T) {
		valid := punchcard.CreateUserRequest{
			Username: "maria",
			Email:    "maria@example.com",
			FullName: "Maria Flores",
			Phone:    "+14155552671",
			Role:     punchcard.RoleEmployee,
		}
		assert.NoError(t, valid.Validate())

		assert.Error(t, punchcard.CreateUserRequest{Username: "m", Email: "maria@example.com"}.Validate())
		assert.Error(t, punchcard.CreateUserRequest{Username: "maria", Email: "not-an-email"}.Validate())
		assert.Error(t, punchcard.CreateUserRequest{Username: "maria", Email: "maria@example.com", Role: "superuser"}.Validate())
	})

	t.Run("change password", func(t *testing.T) {
		assert.NoError(t, punchcard.ChangePasswordRequest{CurrentPassword: "old-pass", NewPassword: "long-enough"}.Validate())
		assert.Error(t, punchcard.ChangePasswordRequest{CurrentPassword: "old-pass", NewPassword: "short"}.Validate())
		assert.Error(t, punchcard.ChangePasswordRequest{NewPassword: "long-enough"}.Validate())
	})

	t.Run("accept invitation", func(t *testing.T) {
		assert.NoError(t, punchcard.AcceptInvitationRequest{Password: "long-enough"}.Validate())
		assert.Error(t, punchcard.AcceptInvitationRequest{Password: "short"}.Validate())
	})

	t.Run("update role", func(t *testing.T) {
		assert.NoError(t, punchcard.UpdateRoleRequest{Role: punchcard.RoleAdmin}.Validate())
		assert.Error(t, punchcard.UpdateRoleRequest{}.Validate())
		assert.Error(t, punchcard.UpdateRoleRequest{Role: "superuser"}.Validate())
	})
}

func TestValidatePhoneNumber(t *testing.T) {
	assert.NoError(t, punchcard.ValidatePhoneNumber(""))
	assert.NoError(t, punchcard.ValidatePhoneNumber("+14155552671"))
	assert.NoError(t, punchcard.ValidatePhoneNumber("(415) 555-2671"))
	assert.Error(t, punchcard.ValidatePhoneNumber("123"))
	assert.Error(t, punchcard.ValidatePhoneNumber("not a number"))
}

func TestValidateStringEquals(t *testing.T) {
	rule := punchcard.ValidateStringEquals("expected")
	assert.NoError(t, rule("expected"))
	assert.Error(t, rule("other"))
}

func TestFormatValidationErrorToMap(t *testing.T) {
	t.Run("field errors keyed by field", func(t *testing.T) {
		err := punchcard.CreateUserRequest{}.Validate()
		require.Error(t, err)

		out := punchcard.FormatValidationErrorToMap(err)
		assert.Contains(t, out, "username")
		assert.Contains(t, out, "email")
	})

	t.Run("plain errors fall back to a single entry", func(t *testing.T) {
		out := punchcard.FormatValidationErrorToMap(errors.New("boom"))
		assert.Equal(t, map[string]string{"validation": "boom"}, out)
	})
}
