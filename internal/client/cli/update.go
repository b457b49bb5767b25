package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/coinkeeper/internal/client/storage"
	"github.com/iudanet/coinkeeper/internal/crdt"
)

func (c *Cli) runUpdate(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: update <type> <id> field=value ...")
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

	payload, err := parsePayload(args[2:])
	if err != nil {
		return err
	}

	op, err := c.engine.RecordLocalOperation(ctx, entityType, entityID, crdt.OpUpdate, payload)
	if err != nil {
		return err
	}

	c.io.Printf("Updated %s %s\n", entityType, entityID)
	c.io.Printf("Operation %s queued for sync\n", op.ID)
	return nil
}
