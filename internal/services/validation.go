package services

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// Counted in characters.
	minPasswordLength = 8
	// Counted in bytes: bcrypt ignores input past 72.
	maxPasswordBytes = 72
)

var phonePattern = regexp.MustCompile(`^\+225[0-9]{8}$`)

func validatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return ValidationError{Field: "phone", Message: "must be +225 followed by 8 digits"}
	}
	return nil
}

func validatePassword(password string) error {
	switch {
	case utf8.RuneCountInString(password) < minPasswordLength:
		return ValidationError{Field: "password", Message: "must be at least 8 characters"}
	case len(password) > maxPasswordBytes:
		return ValidationError{Field: "password", Message: "must be at most 72 bytes"}
	}
	return nil
}

// validateEmail accepts a bare address only, no display name.
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return ValidationError{Field: "email", Message: "value is not a valid email address"}
	}
	return nil
}

// normalizeOptional trims s and maps blank values to nil.
func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
