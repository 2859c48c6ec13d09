package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrValidation is wrapped by every request validation failure.
var ErrValidation = errors.New("validation failed")

// DateLayout is the calendar date format tests and bookings are scheduled on.
const DateLayout = "2006-01-02"

func fieldError(field, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, msg)
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail performs basic email validation.
func IsValidEmail(email string) bool {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return false
	}

	parts := strings.Split(normalized, "@")
	if len(parts) != 2 {
		return false
	}

	local, domain := parts[0], parts[1]
	return len(local) > 0 && len(domain) > 2 && strings.Contains(domain, ".")
}

func IsValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
