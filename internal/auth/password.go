// Package auth handles resident credentials: bcrypt password hashes,
// signed session tokens and the request principal.
package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted on set or change.
const MinPasswordLength = 8

var (
	// ErrPasswordMismatch is returned when a password does not match its hash.
	ErrPasswordMismatch = errors.New("password does not match")

	// ErrPasswordTooShort is returned when a new password is under MinPasswordLength.
	ErrPasswordTooShort = errors.New("password is too short")
)

// HashPassword returns the bcrypt hash of pwd.
func HashPassword(pwd string) (string, error) {
	if len(pwd) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares pwd with a stored hash. A blank hash never matches.
func CheckPassword(hash, pwd string) error {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return ErrPasswordMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pwd)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}
