// Package validation holds the account field rules shared by registration and profile edits.
package validation

import (
	"regexp"
	"strings"
	"unicode"
)

// Something@something.tld, no whitespace.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lowercases, so lookups and uniqueness are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName trims and collapses inner whitespace. Display names are unique after normalizing,
// so "Dana  Lee" cannot shadow "Dana Lee".
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword wants 8+ characters including a letter, a digit and a symbol.
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var letter, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			symbol = true
		}
	}
	return letter && digit && symbol
}
