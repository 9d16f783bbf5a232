package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// HashPassword wraps bcrypt.GenerateFromPassword for local auth storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword wraps bcrypt.CompareHashAndPassword for local auth checks.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CheckPasswordStrength enforces the length bounds on a new password.
func CheckPasswordStrength(field, password string) error {
	if len(password) < minPasswordLength {
		return apiutil.FieldError{Field: field, Reason: "must be at least 8 characters"}
	}
	// bcrypt ignores input past 72 bytes
	if len(password) > maxPasswordLength {
		return apiutil.FieldError{Field: field, Reason: "must be at most 128 characters"}
	}
	return nil
}
