package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Println()

	isAuth, err := c.authService.IsAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("failed to check authentication: %w", err)
	}

	if !isAuth {
		c.io.Println("Session: not authenticated")
		c.io.Println()
		c.io.Println("Run 'coinkeeper login' to authenticate.")
	} else {
		session, err := c.authService.Session(ctx)
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}

		expiresAt := time.Unix(session.ExpiresAt, 0)
		c.io.Println("Session: authenticated")
		c.io.Printf("Username:  %s\n", session.Username)
		c.io.Printf("Device ID: %s\n", session.DeviceID)
		if remaining := time.Until(expiresAt); remaining > 0 {
			c.io.Printf("Token expires in: %s\n", remaining.Round(time.Second))
		} else {
			c.io.Println("Token expired; it will refresh on the next sync.")
		}
	}

	pending, err := c.engine.PendingOperations(ctx)
	if err != nil {
		return fmt.Errorf("failed to read outbox: %w", err)
	}
	conflicts, err := c.engine.PendingConflicts(ctx)
	if err != nil {
		return fmt.Errorf("failed to read conflicts: %w", err)
	}

	c.io.Println()
	c.io.Printf("Device clock: %v\n", c.engine.Clock())
	if len(pending) > 0 {
		c.io.Printf("Pending operations: %d (run 'coinkeeper sync')\n", len(pending))
	} else {
		c.io.Println("Pending operations: none")
	}
	if len(conflicts) > 0 {
		c.io.Printf("Unresolved conflicts: %d (run 'coinkeeper conflicts')\n", len(conflicts))
	}

	return nil
}
