package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/coinkeeper/internal/crdt"
)

func (c *Cli) runAdd(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: add <type> field=value ...")
	}
	entityType := args[0]
	if err := validEntityType(entityType); err != nil {
		return err
	}

	payload, err := parsePayload(args[1:])
	if err != nil {
		return err
	}

	entityID := uuid.New().String()
	op, err := c.engine.RecordLocalOperation(ctx, entityType, entityID, crdt.OpCreate, payload)
	if err != nil {
		return err
	}

	c.io.Printf("Added %s %s\n", entityType, entityID)
	c.io.Printf("Operation %s queued for sync\n", op.ID)
	return nil
}
