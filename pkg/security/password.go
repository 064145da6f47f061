package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt cost 12 keeps verification slow enough to blunt offline
// guessing without making interactive logins noticeably laggy.
const hashCost = 12

// HashPassword derives a bcrypt hash for storage. Input length is
// validated upstream by the request binding.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
