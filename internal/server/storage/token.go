package storage

import (
	"context"

	"github.com/iudanet/coinkeeper/internal/models"
)

// TokenStorage defines the interface for refresh token persistence.
// Tokens are stored by hash; the plain token never reaches storage.
type TokenStorage interface {
	// SaveRefreshToken stores a refresh token, replacing any existing
	// token with the same hash.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// GetRefreshToken retrieves a refresh token by its hash.
	// Returns ErrTokenNotFound if the token doesn't exist.
	GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// DeleteRefreshToken deletes a refresh token by its hash.
	// Returns ErrTokenNotFound if the token doesn't exist.
	DeleteRefreshToken(ctx context.Context, tokenHash string) error

	// DeleteUserTokens deletes all refresh tokens for a user.
	// Returns the number of deleted tokens.
	DeleteUserTokens(ctx context.Context, userID string) (int, error)

	// DeleteExpiredTokens removes all expired tokens.
	// Returns the number of deleted tokens.
	DeleteExpiredTokens(ctx context.Context) (int, error)
}
