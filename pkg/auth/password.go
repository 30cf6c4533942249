package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for stored passwords.
const PasswordCost = 12

// PasswordHasher wraps bcrypt. Every hash gets its own random salt.
type PasswordHasher struct {
	cost int
	// dummy is compared against when no stored hash exists so that
	// unknown emails take as long as wrong passwords.
	dummy []byte
}

func NewPasswordHasher() *PasswordHasher {
	return NewPasswordHasherWithCost(PasswordCost)
}

// NewPasswordHasherWithCost exists for tests; production code uses PasswordCost.
func NewPasswordHasherWithCost(cost int) *PasswordHasher {
	dummy, err := bcrypt.GenerateFromPassword([]byte("timing-equaliser"), cost)
	if err != nil {
		panic(fmt.Sprintf("bcrypt: %v", err))
	}
	return &PasswordHasher{cost: cost, dummy: dummy}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. A nil hash still runs a
// full comparison and always fails.
func (h *PasswordHasher) Verify(hash *string, password string) bool {
	if hash == nil || *hash == "" {
		_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password)) == nil
}
