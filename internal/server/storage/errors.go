// Package storage defines the persistence interfaces of the sync server.
package storage

import "errors"

var (
	// ErrUserNotFound indicates that the user was not found in storage.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that the username is taken.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrTokenNotFound indicates that the refresh token was not found.
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrEntityNotFound indicates that the entity does not exist or is
	// deleted.
	ErrEntityNotFound = errors.New("entity not found")
)
