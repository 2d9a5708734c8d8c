package punchcard

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/scrypt"
)

// scrypt cost parameters. 32 MiB of memory per hash keeps the function
// memory-hard without starving concurrent logins.
const (
	scryptN       = 32768
	scryptR       = 8
	scryptP       = 1
	scryptKeyLen  = 32
	scryptSaltLen = 16
	hashSeparator = "."
)

// HashPassword derives a one-way hash of password with a fresh random salt.
// The stored form is hex(key) + "." + hex(salt) as a single string.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	salt := make([]byte, scryptSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to read salt from entropy source")
	}

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to derive password hash")
	}

	return hex.EncodeToString(key) + hashSeparator + hex.EncodeToString(salt), nil
}

// ComparePasswordAndHash validates the given cleartext password against a
// stored hash+salt pair. The digest comparison is constant-time, and any
// malformed stored value fails closed with ErrMismatchedHashAndPassword.
func ComparePasswordAndHash(password, stored string) error {
	key, salt, ok := splitStoredHash(stored)
	if !ok {
		return ErrMismatchedHashAndPassword
	}

	candidate, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return ErrMismatchedHashAndPassword
	}

	if subtle.ConstantTimeCompare(candidate, key) != 1 {
		return ErrMismatchedHashAndPassword
	}

	return nil
}

func splitStoredHash(stored string) (key, salt []byte, ok bool) {
	parts := strings.SplitN(stored, hashSeparator, 2)
	if len(parts) != 2 {
		return nil, nil, false
	}

	key, err := hex.DecodeString(parts[0])
	if err != nil || len(key) != scryptKeyLen {
		return nil, nil, false
	}

	salt, err = hex.DecodeString(parts[1])
	if err != nil || len(salt) == 0 {
		return nil, nil, false
	}

	return key, salt, true
}
