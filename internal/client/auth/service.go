// Package auth manages the client session: registration, login, token
// refresh and the locally persisted credentials the sync transport needs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/coinkeeper/internal/client/storage"
	"github.com/iudanet/coinkeeper/internal/validation"
	pkgapi "github.com/iudanet/coinkeeper/pkg/api"
)

// tokenLeeway is subtracted from the access token expiry so a token is
// refreshed before it actually dies mid-request.
const tokenLeeway = 30 * time.Second

// APIClient is the subset of the HTTP client the service needs.
type APIClient interface {
	Register(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.RegisterResponse, error)
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)
	Refresh(ctx context.Context, req pkgapi.RefreshRequest) (*pkgapi.TokenResponse, error)
}

// Service wires the auth endpoints to the local session store.
type Service struct {
	client   APIClient
	store    storage.AuthStorage
	logger   *slog.Logger
	deviceID string
}

// Option configures the service.
type Option func(*Service)

// WithDeviceID pins the device identity used on first login. The sync
// engine and the session must name the same device, so the binary resolves
// the identity once and injects it here.
func WithDeviceID(id string) Option {
	return func(s *Service) {
		s.deviceID = id
	}
}

// NewService creates an auth service.
func NewService(client APIClient, store storage.AuthStorage, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		client: client,
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new account. It does not log the device in.
func (s *Service) Register(ctx context.Context, username, password string) (*pkgapi.RegisterResponse, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	resp, err := s.client.Register(ctx, pkgapi.RegisterRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	return resp, nil
}

// Login authenticates the user and persists the session. The device ID
// identifies this installation in vector clocks and operation IDs, so a
// repeat login on the same device must reuse the stored one.
func (s *Service) Login(ctx context.Context, username, password string) (*storage.AuthData, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	deviceID, err := s.getOrCreateDeviceID(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Login(ctx, pkgapi.LoginRequest{
		Username: username,
		Password: password,
		DeviceID: deviceID,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	auth := &storage.AuthData{
		Username:     username,
		UserID:       resp.UserID,
		DeviceID:     deviceID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix(),
	}
	if err := s.store.SaveAuth(ctx, auth); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return auth, nil
}

// Logout drops the local session. Refresh tokens expire server-side, so
// no server call is needed.
func (s *Service) Logout(ctx context.Context) error {
	err := s.store.DeleteAuth(ctx)
	if err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Session returns the stored session, ErrAuthNotFound when logged out.
func (s *Service) Session(ctx context.Context) (*storage.AuthData, error) {
	return s.store.GetAuth(ctx)
}

// IsAuthenticated reports whether a session is stored.
func (s *Service) IsAuthenticated(ctx context.Context) (bool, error) {
	_, err := s.store.GetAuth(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrAuthNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Token returns a valid access token, refreshing the pair when the
// current one is expired or about to expire. It is safe to use as the
// transport's token provider.
func (s *Service) Token(ctx context.Context) (string, error) {
	auth, err := s.store.GetAuth(ctx)
	if err != nil {
		return "", fmt.Errorf("not logged in: %w", err)
	}

	if time.Now().Before(time.Unix(auth.ExpiresAt, 0).Add(-tokenLeeway)) {
		return auth.AccessToken, nil
	}

	s.logger.Debug("access token expired, refreshing")
	resp, err := s.client.Refresh(ctx, pkgapi.RefreshRequest{RefreshToken: auth.RefreshToken})
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	auth.AccessToken = resp.AccessToken
	auth.RefreshToken = resp.RefreshToken
	auth.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix()
	if auth.UserID == "" {
		auth.UserID = resp.UserID
	}
	if err := s.store.SaveAuth(ctx, auth); err != nil {
		return "", fmt.Errorf("failed to save refreshed session: %w", err)
	}
	return auth.AccessToken, nil
}

func (s *Service) getOrCreateDeviceID(ctx context.Context) (string, error) {
	auth, err := s.store.GetAuth(ctx)
	switch {
	case err == nil && auth.DeviceID != "":
		return auth.DeviceID, nil
	case err != nil && !errors.Is(err, storage.ErrAuthNotFound):
		return "", fmt.Errorf("failed to read stored session: %w", err)
	}
	if s.deviceID != "" {
		return s.deviceID, nil
	}
	return uuid.New().String(), nil
}
