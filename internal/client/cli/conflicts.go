package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/iudanet/coinkeeper/internal/client/sync"
	"github.com/iudanet/coinkeeper/internal/crdt"
)

func (c *Cli) runConflicts(ctx context.Context) error {
	conflicts, err := c.engine.PendingConflicts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}

	if len(conflicts) == 0 {
		c.io.Println("No unresolved conflicts.")
		return nil
	}

	c.io.Printf("Unresolved conflicts (%d):\n", len(conflicts))
	for _, conflict := range conflicts {
		c.io.Println()
		c.io.Printf("Conflict %s on %s %s\n", conflict.ID, conflict.Remote.EntityType, conflict.Remote.EntityID)
		c.io.Printf("  local  (%s @ %s): %s\n",
			conflict.Local.ID,
			conflict.Local.Timestamp.Format("2006-01-02 15:04:05"),
			describeOperation(conflict.Local))
		c.io.Printf("  remote (%s @ %s): %s\n",
			conflict.Remote.ID,
			conflict.Remote.Timestamp.Format("2006-01-02 15:04:05"),
			describeOperation(conflict.Remote))
		c.io.Printf("  provisionally kept: %s\n", conflict.Winner.ID)
	}
	c.io.Println()
	c.io.Println("Run 'coinkeeper resolve <id> local|remote' or 'resolve <id> merge field=value ...'.")
	return nil
}

func (c *Cli) runResolve(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: resolve <id> local|remote|merge [field=value ...]")
	}
	conflictID := args[0]

	var (
		choice  sync.ResolveChoice
		payload crdt.Payload
	)
	switch args[1] {
	case "local":
		choice = sync.ChooseLocal
	case "remote":
		choice = sync.ChooseRemote
	case "merge":
		choice = sync.ChoosePayload
		merged, err := parsePayload(args[2:])
		if err != nil {
			return err
		}
		payload = merged
	default:
		return fmt.Errorf("unknown resolution %q, expected local, remote or merge", args[1])
	}

	if err := c.engine.ResolveManually(ctx, conflictID, choice, payload); err != nil {
		return err
	}

	c.io.Printf("Conflict %s resolved (%s).\n", conflictID, args[1])
	return nil
}

func describeOperation(op *crdt.Operation) string {
	if op.Kind == crdt.OpDelete {
		return "delete"
	}
	return fmt.Sprintf("%s %s", op.Kind, strings.Join(payloadFields(op.Payload), " "))
}
