package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// PasswordCost is the bcrypt work factor for stored passwords.
	PasswordCost = 12
	// MaxPasswordBytes is the longest input bcrypt reads; longer passwords would be silently truncated.
	MaxPasswordBytes = 72
)

// ErrPasswordTooLong is returned for passwords above MaxPasswordBytes.
var ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches a stored hash.
func CheckPassword(plain, hashed string) bool {
	if len(plain) > MaxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
