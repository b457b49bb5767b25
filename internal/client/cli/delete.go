package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/coinkeeper/internal/client/storage"
	"github.com/iudanet/coinkeeper/internal/crdt"
)

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: delete <type> <id>")
	}
	entityType, entityID := args[0], args[1]
	if err := validEntityType(entityType); err != nil {
		return err
	}

	if _, err := c.entities.Query(ctx, entityType, entityID); err != nil {
		if errors.Is(err, storage.ErrEntityNotFound) {
			return fmt.Errorf("%s %s does not exist", entityType, entityID)
		}
		return err
	}

	op, err := c.engine.RecordLocalOperation(ctx, entityType, entityID, crdt.OpDelete, nil)
	if err != nil {
		return err
	}

	c.io.Printf("Deleted %s %s\n", entityType, entityID)
	c.io.Printf("Operation %s queued for sync\n", op.ID)
	return nil
}
