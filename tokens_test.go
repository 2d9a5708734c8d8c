package punchcard_test

import (
	"encoding/base64"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	punchcard "github.com/punchcard-app/punchcard"
)

func TestGenerateInvitationToken(t *testing.T) {
	t.Run("token decodes to 32 bytes of url-safe base64", func(t *testing.T) {
		token, err := punchcard.GenerateInvitationToken()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		assert.Len(t, raw, 32)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		seen := make(map[string]bool, 10000)

		for i := 0; i < 10000; i++ {
			token, err := punchcard.GenerateInvitationToken()
			require.NoError(t, err)
			require.False(t, seen[token], "duplicate token after %d draws", i)
			seen[token] = true
		}
	})
}

func TestGenerateTemporaryPassword(t *testing.T) {
	t.Run("temporary password is a v4 uuid", func(t *testing.T) {
		password := punchcard.GenerateTemporaryPassword()

		parsed, err := uuid.Parse(password)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), parsed.Version())
	})

	t.Run("temporary passwords are unique", func(t *testing.T) {
		a := punchcard.GenerateTemporaryPassword()
		b := punchcard.GenerateTemporaryPassword()
		assert.NotEqual(t, a, b)
	})
}
