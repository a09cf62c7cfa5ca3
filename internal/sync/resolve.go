package sync

import (
	"context"
	"fmt"

	"github.com/tknatwork/tokensync/internal/entity"
	"github.com/tknatwork/tokensync/internal/host"
)

// maxAliasDepth bounds recursive alias-chain resolution. A chain longer
// than this (or a cycle, which is indistinguishable from one) resolves to
// the type's zero value instead of looping.
const maxAliasDepth = 10

// resolveScalar follows an alias chain until it reaches a raw value,
// switching to the target collection's same-named mode (or its first mode)
// at each hop.
func resolveScalar(ctx context.Context, h host.Host, es *entity.Store, v *host.Variable, modeName string, depth int) (host.Value, error) {
	if depth <= 0 {
		return host.ZeroValue(v.Type), nil
	}
	c, ok := es.CollectionByID(v.CollectionID)
	if !ok {
		return nil, fmt.Errorf("collection %s not indexed", v.CollectionID)
	}
	mode, ok := c.Mode(modeName)
	if !ok {
		if len(c.Modes) == 0 {
			return nil, fmt.Errorf("collection %q has no modes", c.Name)
		}
		mode = &c.Modes[0]
	}
	val, err := h.Value(ctx, v.ID, mode.ID)
	if err != nil {
		return nil, err
	}
	alias, ok := val.(host.AliasValue)
	if !ok {
		return val, nil
	}
	target, ok := es.VariableByID(alias.TargetID)
	if !ok {
		return host.ZeroValue(v.Type), nil
	}
	return resolveScalar(ctx, h, es, target, mode.Name, depth-1)
}
