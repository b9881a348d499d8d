package security

import (
	"errors"
	"strings"
	"unicode"
)

// ErrWeakPassword is returned by CheckPasswordStrength for any policy violation.
var ErrWeakPassword = errors.New("password does not meet the strength policy")

const minPasswordLength = 8

// CheckPasswordStrength validates password against the strength policy: at least
// 8 characters with one uppercase, one lowercase, one digit, and one special
// character, and it must not contain the account holder's first or last name
// (case-insensitive). Blank names are skipped. Pure function, no side effects;
// call before Hash.
func CheckPasswordStrength(password, firstName, lastName string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return ErrWeakPassword
	}
	lowered := strings.ToLower(password)
	for _, name := range []string{firstName, lastName} {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && strings.Contains(lowered, name) {
			return ErrWeakPassword
		}
	}
	return nil
}

// IsPasswordStrong reports whether password passes CheckPasswordStrength.
func IsPasswordStrong(password, firstName, lastName string) bool {
	return CheckPasswordStrength(password, firstName, lastName) == nil
}
