package validation

import (
	"fmt"
	"regexp"
)

// UsernamePattern allows latin letters, digits and underscore, 3-32 chars.
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

// DeviceIDPattern allows letters, digits, underscore and hyphen, 4-64 chars.
// Device identifiers appear inside operation IDs ("<device>:<seq>") and as
// vector clock keys, so a colon is never allowed.
var DeviceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{4,64}$`)

const (
	// MinUsernameLen is the minimum username length.
	MinUsernameLen = 3
	// MaxUsernameLen is the maximum username length.
	MaxUsernameLen = 32
	// MinPasswordLen is the minimum password length.
	MinPasswordLen = 8
)

// ValidateUsername checks that username matches the allowed format.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) < MinUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters (a-z, A-Z), numbers (0-9), and underscores (_)")
	}

	return nil
}

// ValidatePassword checks minimum password requirements.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	return nil
}

// ValidateDeviceID checks that a caller-supplied device identifier is safe
// to embed in operation identifiers and vector clock keys.
func ValidateDeviceID(deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("device id cannot be empty")
	}

	if !DeviceIDPattern.MatchString(deviceID) {
		return fmt.Errorf("device id can only contain letters, numbers, underscores and hyphens (4-64 characters)")
	}

	return nil
}
