package filterexpr

import (
	"errors"
	"fmt"
	"strings"
)

// OrderSchema describes ordering defaults and whitelisted keys.
type OrderSchema struct {
	DefaultKey  string
	DefaultDesc bool
	FallbackKey string
	Fields      []string
}

// Order is one parsed order_by segment.
type Order struct {
	Key  string
	Desc bool
}

// ParseOrderBy parses "key [asc|desc], key [asc|desc]" into at most two
// orders. The fallback key is appended for stable ordering when absent.
func ParseOrderBy(raw string, schema OrderSchema) ([]Order, error) { //nolint:gocognit // parsing DSL entails validation branches
	if schema.DefaultKey == "" || schema.FallbackKey == "" {
		return nil, errors.New("order schema requires default and fallback keys")
	}
	allowed := make(map[string]struct{}, len(schema.Fields))
	for _, f := range schema.Fields {
		allowed[f] = struct{}{}
	}
	for _, key := range []string{schema.DefaultKey, schema.FallbackKey} {
		if _, ok := allowed[key]; !ok {
			return nil, fmt.Errorf("order key %q missing from schema fields", key)
		}
	}

	var orders []Order
	seen := make(map[string]struct{}, 2)
	for _, seg := range strings.Split(strings.TrimSpace(raw), ",") {
		parts := strings.Fields(seg)
		if len(parts) == 0 {
			continue
		}
		key := parts[0]
		if _, ok := allowed[key]; !ok {
			return nil, fmt.Errorf("field %q cannot be used for ordering", key)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate order key %q", key)
		}
		ord := Order{Key: key}
		switch len(parts) {
		case 1:
		case 2:
			switch strings.ToLower(parts[1]) {
			case "asc":
			case "desc":
				ord.Desc = true
			default:
				return nil, fmt.Errorf("invalid direction %q for field %q", parts[1], key)
			}
		default:
			return nil, fmt.Errorf("invalid order segment %q", seg)
		}
		if len(orders) == 2 {
			return nil, errors.New("order_by supports at most two keys")
		}
		seen[key] = struct{}{}
		orders = append(orders, ord)
	}

	if len(orders) == 0 {
		orders = append(orders, Order{Key: schema.DefaultKey, Desc: schema.DefaultDesc})
		seen[schema.DefaultKey] = struct{}{}
	}
	if _, ok := seen[schema.FallbackKey]; !ok && len(orders) < 2 {
		orders = append(orders, Order{Key: schema.FallbackKey})
	}
	return orders, nil
}
