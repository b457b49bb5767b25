package storage

import (
	"context"
)

// AuthStorage defines the interface for storing session data on the client.
type AuthStorage interface {
	// SaveAuth stores the current session.
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves the stored session.
	// Returns ErrAuthNotFound if no session exists.
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes the stored session (logout).
	DeleteAuth(ctx context.Context) error
}

// AuthData represents the authenticated session of this device.
type AuthData struct {
	Username     string `json:"username"`
	UserID       string `json:"user_id"`
	DeviceID     string `json:"device_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds
}
