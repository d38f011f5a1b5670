package domain

import (
	"fmt"
	"regexp"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{2,32}$`)
	tokenRegex    = regexp.MustCompile(`^[A-Za-z0-9_\-]{16,64}$`)
)

// ValidateUsername checks the username format used as the user key.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("invalid username format")
	}
	return nil
}

// ValidateFixtureID checks that a fixture id is positive.
func ValidateFixtureID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("fixture id must be positive, got %d", id)
	}
	return nil
}

// ValidateToken checks the shape of a notification token before it hits the store.
func ValidateToken(token string) error {
	if !tokenRegex.MatchString(token) {
		return fmt.Errorf("malformed token")
	}
	return nil
}
