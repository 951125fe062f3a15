// Package authn implements password hashing/validation and session/reset
// token issuance, grounded on auth-service/main.go's bcrypt + golang-jwt
// usage, with the exact password-policy constants recovered from the
// original Python security.py (PasswordValidator).
package authn

import (
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/epicrunze/evocable/internal/apperr"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	bcryptCost        = 12
)

var (
	specialCharsPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
	upperPattern        = regexp.MustCompile(`[A-Z]`)
	lowerPattern        = regexp.MustCompile(`[a-z]`)
	digitPattern        = regexp.MustCompile(`\d`)
	repeatRunPattern    = regexp.MustCompile(`(.)\1{3,}`)
)

var commonPasswords = map[string]bool{
	"password": true, "123456": true, "123456789": true, "qwerty": true,
	"abc123": true, "password123": true, "admin": true, "letmein": true,
	"welcome": true, "monkey": true, "dragon": true, "login": true,
	"master": true, "hello": true, "freedom": true,
}

// ValidatePassword applies the length/class/common-password/repeat-run
// policy and returns a *apperr.Error{Kind: Validation} whose "password"
// field lists every violated requirement, or nil if the password is
// acceptable.
func ValidatePassword(password string) *apperr.Error {
	var problems []string

	if len(password) < minPasswordLength {
		problems = append(problems, "at least 8 characters")
	}
	if len(password) > maxPasswordLength {
		problems = append(problems, "at most 128 characters")
	}
	if !upperPattern.MatchString(password) {
		problems = append(problems, "an uppercase letter")
	}
	if !lowerPattern.MatchString(password) {
		problems = append(problems, "a lowercase letter")
	}
	if !digitPattern.MatchString(password) {
		problems = append(problems, "a digit")
	}
	if !specialCharsPattern.MatchString(password) {
		problems = append(problems, `a special character (!@#$%^&*(),.?":{}|<>)`)
	}
	if commonPasswords[strings.ToLower(password)] {
		problems = append(problems, "not be a commonly used password")
	}
	run, prev := 0, rune(-1)
	for _, r := range password {
		if r == prev {
			run++
		} else {
			run = 1
		}
		prev = r
		if run > 3 {
			problems = append(problems, "no more than 3 identical characters in a row")
			break
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return apperr.WithFields(apperr.Validation, "password does not meet policy requirements",
		map[string]string{"password": "must contain " + strings.Join(problems, ", ")})
}

// HashPassword bcrypt-hashes a password at the same cost factor the
// original passlib configuration used (bcrypt__rounds=12).
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
