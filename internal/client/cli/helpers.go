package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/iudanet/coinkeeper/internal/crdt"
)

// parsePayload turns "field=value" arguments into an operation payload.
// Values that parse as numbers or booleans are stored typed; everything
// else stays a string.
func parsePayload(args []string) (crdt.Payload, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one field=value pair is required")
	}

	payload := make(crdt.Payload, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected field=value", arg)
		}

		switch {
		case value == "true" || value == "false":
			payload[key] = value == "true"
		default:
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				payload[key] = n
			} else {
				payload[key] = value
			}
		}
	}
	return payload, nil
}

func validEntityType(entityType string) error {
	if !entityTypes[entityType] {
		return fmt.Errorf("unknown entity type %q (account, transaction, budget, category)", entityType)
	}
	return nil
}

// payloadFields renders payload fields in stable order.
func payloadFields(payload crdt.Payload) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s=%v", k, payload[k]))
	}
	return fields
}
