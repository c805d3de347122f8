package banktest

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters, scaled down so a full journey hashes in milliseconds.
const (
	argonTime    = 1
	argonMemory  = 8 * 1024
	argonThreads = 1
	argonKeyLen  = 32
	saltLen      = 16
)

func derivePasswordHash(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

func (a *Account) setPassword(password string) error {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	a.salt = salt
	a.PasswordHash = derivePasswordHash([]byte(password), salt)
	return nil
}

func (a *Account) checkPassword(password string) bool {
	if len(a.PasswordHash) == 0 {
		return false
	}
	got := derivePasswordHash([]byte(password), a.salt)
	return subtle.ConstantTimeCompare(got, a.PasswordHash) == 1
}
