// Package validate implements the account format rules and the password
// strength policy enforced at registration and profile update time.
package validate

import (
	"errors"
	"regexp"
	"strings"
)

var (
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9]{3,15}$`)
	phoneRe    = regexp.MustCompile(`^\d{10}$`)
)

// weakPasswords is the fixed deny-list of common password substrings.
var weakPasswords = []string{
	"password", "123456", "12345678", "123456789", "1234567890",
	"qwerty", "abc123", "password1", "admin", "welcome",
}

// Email reports whether s has a simple local@domain.tld shape.
func Email(s string) bool { return emailRe.MatchString(s) }

// Username reports whether s is 3-15 alphanumeric characters.
func Username(s string) bool { return usernameRe.MatchString(s) }

// Phone reports whether s is exactly 10 digits.
func Phone(s string) bool { return phoneRe.MatchString(s) }

// Password policy violations.
var (
	ErrPasswordTooShort    = errors.New("password must be at least 6 characters")
	ErrPasswordCharClasses = errors.New("password must include at least one letter, one number, and one special character (@#!&$*)")
	ErrPasswordSequential  = errors.New("password cannot contain consecutive characters or sequential patterns")
	ErrPasswordWeak        = errors.New("password is too common or weak")
)

// Password checks the full strength policy and returns the first violation.
func Password(s string) error {
	if len(s) < 6 {
		return ErrPasswordTooShort
	}

	var hasLetter, hasNumber, hasSpecial bool
	for _, r := range s {
		switch {
		case isLetter(r):
			hasLetter = true
		case r >= '0' && r <= '9':
			hasNumber = true
		case strings.ContainsRune("@#!&$*", r):
			hasSpecial = true
		}
	}
	if !hasLetter || !hasNumber || !hasSpecial {
		return ErrPasswordCharClasses
	}

	if hasSequentialPattern(s) {
		return ErrPasswordSequential
	}
	if isWeak(s) {
		return ErrPasswordWeak
	}
	return nil
}

// hasSequentialPattern reports adjacent pairs that are identical, ascending
// digits ("12"), or ascending letters by character code ("ab").
func hasSequentialPattern(s string) bool {
	runes := []rune(s)
	for i := 0; i < len(runes)-1; i++ {
		a, b := runes[i], runes[i+1]
		if a == b {
			return true
		}
		if isDigit(a) && isDigit(b) && a+1 == b {
			return true
		}
		if isLetter(a) && isLetter(b) && a+1 == b {
			return true
		}
	}
	return false
}

func isWeak(s string) bool {
	lower := strings.ToLower(s)
	for _, weak := range weakPasswords {
		if strings.Contains(lower, weak) {
			return true
		}
	}
	return false
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
