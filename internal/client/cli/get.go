package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/coinkeeper/internal/client/storage"
)

func (c *Cli) runGet(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: get <type> <id>")
	}
	entityType, entityID := args[0], args[1]
	if err := validEntityType(entityType); err != nil {
		return err
	}

	payload, err := c.entities.Query(ctx, entityType, entityID)
	if err != nil {
		if errors.Is(err, storage.ErrEntityNotFound) {
			return fmt.Errorf("%s %s does not exist", entityType, entityID)
		}
		return err
	}

	c.io.Printf("%s %s\n", entityType, entityID)
	for _, field := range payloadFields(payload) {
		c.io.Printf("  %s\n", field)
	}
	return nil
}
