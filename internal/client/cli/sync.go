package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/coinkeeper/internal/client/sync"
)

// syncWait bounds a one-shot sync invocation end to end.
const syncWait = 60 * time.Second

func (c *Cli) runSync(ctx context.Context) error {
	isAuth, err := c.authService.IsAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("failed to check authentication: %w", err)
	}
	if !isAuth {
		return fmt.Errorf("not authenticated, run 'coinkeeper login' first")
	}

	pending, err := c.engine.PendingOperations(ctx)
	if err != nil {
		return fmt.Errorf("failed to read outbox: %w", err)
	}

	c.io.Println("=== Synchronization ===")
	c.io.Printf("Pending operations: %d\n", len(pending))
	c.io.Println("Connecting...")

	events := c.engine.Events()
	if err := c.engine.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	deadline := time.NewTimer(syncWait)
	defer deadline.Stop()

	conflicts := 0
	for {
		select {
		case ev := <-events:
			switch ev.Kind {
			case sync.EventConflictDetected:
				conflicts++
				c.io.Printf("Conflict detected on %s %s (kept %s for now)\n",
					ev.Conflict.Remote.EntityType, ev.Conflict.Remote.EntityID, ev.Conflict.Winner.ID)
			case sync.EventSyncPartial:
				c.io.Printf("Partial sync: applied %d operations, server response incomplete\n", ev.Applied)
				return c.finishSync(ctx, conflicts)
			case sync.EventSyncCompleted:
				c.io.Printf("Pulled %d operations from server\n", ev.Applied)
				return c.finishSync(ctx, conflicts)
			case sync.EventTransportError:
				return fmt.Errorf("synchronization failed: %w", ev.Err)
			}
		case <-deadline.C:
			return fmt.Errorf("synchronization timed out")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// finishSync waits for the outbox replay that follows a sync session and
// prints the summary.
func (c *Cli) finishSync(ctx context.Context, conflicts int) error {
	remaining, err := c.waitOutboxDrain(ctx, 10*time.Second)
	if err != nil {
		return err
	}

	c.io.Println()
	if remaining == 0 {
		c.io.Println("All local operations acknowledged by the server.")
	} else {
		c.io.Printf("%d operation(s) still queued; they will retry on the next sync.\n", remaining)
	}
	if conflicts > 0 {
		c.io.Printf("%d conflict(s) need attention, run 'coinkeeper conflicts'.\n", conflicts)
	}
	return nil
}

func (c *Cli) waitOutboxDrain(ctx context.Context, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		pending, err := c.engine.PendingOperations(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to read outbox: %w", err)
		}
		if len(pending) == 0 || time.Now().After(deadline) {
			return len(pending), nil
		}
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return len(pending), ctx.Err()
		}
	}
}
