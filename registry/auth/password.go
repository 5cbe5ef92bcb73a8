package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

func HashPassword(password string) ([]byte, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("error encrypting password: %w", err)
	}
	return hashed, nil
}

func VerifyPassword(hashed []byte, password string) error {
	err := bcrypt.CompareHashAndPassword(hashed, []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return nil
}

var (
	placeholderHashOnce sync.Once
	placeholderHash     []byte
)

// Compares against a fixed hash so that a login for an unknown email costs the
// same as one with a wrong password.
func burnPasswordCheck(password string) {
	placeholderHashOnce.Do(func() {
		placeholderHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder-password"), bcryptCost)
	})
	_ = bcrypt.CompareHashAndPassword(placeholderHash, []byte(password))
}
