package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is fixed so digests stay comparable across deployments.
const BcryptCost = 10

// PasswordHasher hashes and verifies passwords. Verify returns (false, nil)
// on a mismatch and an error only when the digest cannot be read.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// BcryptHasher writes bcrypt digests. It also verifies argon2id digests left
// by earlier deployments.
type BcryptHasher struct{}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(password, digest string) (bool, error) {
	if strings.HasPrefix(digest, "$argon2id$") {
		ok, err := argon2id.ComparePasswordAndHash(password, digest)
		if err != nil {
			return false, fmt.Errorf("verify argon2id digest: %w", err)
		}
		return ok, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify bcrypt digest: %w", err)
	}
}

var dummyDigest = sync.OnceValue(func() string {
	digest, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), BcryptCost)
	if err != nil {
		panic(err)
	}
	return string(digest)
})

// DummyDigest is verified against when the account does not exist, so an
// unknown email costs the same as a wrong password.
func DummyDigest() string {
	return dummyDigest()
}
