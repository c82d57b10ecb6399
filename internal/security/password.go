package security

import "golang.org/x/crypto/bcrypt"

// bcrypt cost used for new hashes. Matches the work factor existing
// accounts were hashed with, so comparisons stay compatible.
const hashCost = 10

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// helper that compares a bcrypt hash with a plaintext password.
// A mismatch is a normal negative result, not a fault.

func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
