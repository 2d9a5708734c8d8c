package punchcard

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// invitationTokenBytes gives 256 bits of entropy, encoded URL-safe so the
// token can travel as a path segment.
const invitationTokenBytes = 32

// GenerateInvitationToken produces a cryptographically random opaque token.
// The token string itself is the capability, so there is no fallback on
// entropy failure.
func GenerateInvitationToken() (string, error) {
	buf := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to read invitation token from entropy source")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateTemporaryPassword produces an unpredictable initial password,
// unique per call. It is relayed to the user out-of-band and replaced on
// first use, so it does not need the invitation token's entropy bar.
func GenerateTemporaryPassword() string {
	return uuid.New().String()
}
