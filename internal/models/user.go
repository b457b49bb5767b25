package models

import "time"

// User is a registered CoinKeeper account. One user may sync from many
// devices; devices are identified by the device ID presented at login.
type User struct {
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"password_hash"` // bcrypt hash
}

// RefreshToken is a stored refresh token for a user session. The token
// itself is never persisted, only its hash.
type RefreshToken struct {
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`
	DeviceID  string    `json:"device_id"`
	TokenHash string    `json:"token_hash"` // sha256 hex of the token
}
