package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

func (c *Cli) runList(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: list <type>")
	}
	entityType := args[0]
	if err := validEntityType(entityType); err != nil {
		return err
	}

	items, err := c.entities.List(ctx, entityType)
	if err != nil {
		return fmt.Errorf("failed to list %s entities: %w", entityType, err)
	}

	if len(items) == 0 {
		c.io.Printf("No %s entities.\n", entityType)
		return nil
	}

	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	c.io.Printf("%s (%d):\n", entityType, len(ids))
	for _, id := range ids {
		c.io.Printf("  %s  %s\n", id, strings.Join(payloadFields(items[id]), " "))
	}
	return nil
}
