package sync

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"

	"github.com/tknatwork/tokensync/internal/colorconv"
	"github.com/tknatwork/tokensync/internal/entity"
	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/naming"
	"github.com/tknatwork/tokensync/internal/token"
)

// ExportOptions selects what the serializer walks and how names and
// aliases are rendered.
type ExportOptions struct {
	// Collections restricts export to the named host collections.
	// Empty means all local collections.
	Collections []string

	// Modes restricts each collection to a subset of its modes, keyed by
	// host collection name. A collection absent from the map exports all
	// of its modes.
	Modes map[string][]string

	// IncludeStyles adds the _styles entry.
	IncludeStyles bool

	// ResolveAliases eagerly resolves every alias to its terminal scalar
	// instead of emitting alias references. Chains are followed to a fixed
	// depth bound; past it the value degrades to the type's zero.
	ResolveAliases bool

	// EmbedImages inlines image paint bytes (base64) so the document can
	// recreate image fills without the source store. Snapshots always set
	// this.
	EmbedImages bool

	// Convention rewrites collection, mode, and variable names. When it
	// changes a collection name the original is kept under $originalName.
	Convention naming.Convention
}

// Export walks the live store and produces one document entry per selected
// collection, plus a _styles entry when requested. Pure read: the store is
// never mutated.
func Export(ctx context.Context, h host.Host, opts ExportOptions) (*token.Document, error) {
	es, err := entity.Rebuild(ctx, h)
	if err != nil {
		return nil, err
	}

	collections, err := h.Collections(ctx)
	if err != nil {
		return nil, err
	}

	doc := &token.Document{}
	for _, c := range collections {
		if c.Remote {
			continue
		}
		if len(opts.Collections) > 0 && !slices.Contains(opts.Collections, c.Name) {
			continue
		}
		entry, err := exportCollection(ctx, h, es, c, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to export collection %q: %w", c.Name, err)
		}
		doc.Collections = append(doc.Collections, entry)
	}

	if opts.IncludeStyles {
		bundle, err := exportStyles(ctx, h, es, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to export styles: %w", err)
		}
		doc.Styles = bundle
	}
	return doc, nil
}

func exportCollection(ctx context.Context, h host.Host, es *entity.Store, c *host.Collection, opts ExportOptions) (*token.CollectionEntry, error) {
	docName := opts.Convention.Apply(c.Name)
	entry := &token.CollectionEntry{
		Name:  docName,
		Modes: make(map[string]*token.Tree),
	}
	if docName != c.Name {
		entry.OriginalName = c.Name
	}

	selected := opts.Modes[c.Name]
	variables, err := h.Variables(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	for _, m := range c.Modes {
		if len(selected) > 0 && !slices.Contains(selected, m.Name) {
			continue
		}
		tree := token.NewTree()
		for _, v := range variables {
			rec, err := exportValue(ctx, h, es, c, v, m, opts)
			if err != nil {
				return nil, fmt.Errorf("variable %q mode %q: %w", v.Path, m.Name, err)
			}
			tree.SetLeaf(opts.Convention.ApplyPath(v.Path), rec)
		}
		docMode := opts.Convention.Apply(m.Name)
		entry.Modes[docMode] = tree
		entry.ModeOrder = append(entry.ModeOrder, docMode)
	}
	return entry, nil
}

func exportValue(ctx context.Context, h host.Host, es *entity.Store, c *host.Collection, v *host.Variable, m host.Mode, opts ExportOptions) (*token.ValueRecord, error) {
	rec := &token.ValueRecord{
		Type:        v.Type,
		Scopes:      v.Scopes,
		Description: v.Description,
	}

	val, err := h.Value(ctx, v.ID, m.ID)
	if err != nil {
		return nil, err
	}

	alias, isAlias := val.(host.AliasValue)
	if !isAlias {
		rec.Value = scalarWire(val)
		return rec, nil
	}

	if opts.ResolveAliases {
		resolved, err := resolveScalar(ctx, h, es, v, m.Name, maxAliasDepth)
		if err != nil {
			return nil, err
		}
		rec.Value = scalarWire(resolved)
		return rec, nil
	}

	target, ok := es.VariableByID(alias.TargetID)
	if !ok {
		// Dangling alias: degrade to the resolved scalar so the document
		// never carries an unresolvable reference without a fallback.
		resolved, err := resolveScalar(ctx, h, es, v, m.Name, maxAliasDepth)
		if err != nil {
			return nil, err
		}
		rec.Value = scalarWire(resolved)
		return rec, nil
	}
	targetColl, ok := es.CollectionByID(target.CollectionID)
	if !ok {
		return nil, fmt.Errorf("alias target collection %s not indexed", target.CollectionID)
	}

	rec.Value = token.AliasValue(opts.Convention.ApplyPath(target.Path))
	if targetColl.ID != c.ID {
		rec.CollectionName = opts.Convention.Apply(targetColl.Name)
	}
	if targetColl.Remote {
		// Library alias: the target is outside the exportable set. Tag it
		// and carry the current resolved scalar so the document stays
		// useful without the library.
		rec.LibraryRef = targetColl.Name
		resolved, err := resolveScalar(ctx, h, es, v, m.Name, maxAliasDepth)
		if err != nil {
			return nil, err
		}
		rec.LocalValue = scalarWire(resolved)
	}
	return rec, nil
}

// scalarWire renders a raw live value in its portable form.
func scalarWire(v host.Value) any {
	switch val := v.(type) {
	case host.ColorValue:
		return colorconv.RGBA{R: val.R, G: val.G, B: val.B, A: val.A}.Bundle()
	case host.FloatValue:
		return float64(val)
	case host.StringValue:
		return string(val)
	case host.BoolValue:
		return bool(val)
	}
	return nil
}

func exportStyles(ctx context.Context, h host.Host, es *entity.Store, opts ExportOptions) (*token.StyleBundle, error) {
	bundle := &token.StyleBundle{}
	for _, kind := range token.StyleKinds {
		styles, err := h.Styles(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, s := range styles {
			if err := exportStyle(ctx, h, es, bundle, s, opts); err != nil {
				return nil, fmt.Errorf("style %q: %w", s.Name, err)
			}
		}
	}
	return bundle, nil
}

func exportStyle(ctx context.Context, h host.Host, es *entity.Store, bundle *token.StyleBundle, s *host.Style, opts ExportOptions) error {
	bound := boundRefs(es, s.BoundVars)
	switch s.Kind {
	case token.StyleColor:
		out := *s.Color
		out.Name = s.Name
		out.Description = s.Description
		out.BoundVariables = bound
		if opts.EmbedImages {
			paints := make([]token.Paint, len(out.Paints))
			copy(paints, out.Paints)
			for i := range paints {
				if paints[i].Kind != token.PaintImage || paints[i].ImageHash == "" {
					continue
				}
				data, err := h.ImageData(ctx, paints[i].ImageHash)
				if err != nil {
					return err
				}
				paints[i].ImageData = base64.StdEncoding.EncodeToString(data)
			}
			out.Paints = paints
		}
		bundle.ColorStyles = append(bundle.ColorStyles, &out)
	case token.StyleText:
		out := *s.Text
		out.Name = s.Name
		out.Description = s.Description
		out.BoundVariables = bound
		bundle.TextStyles = append(bundle.TextStyles, &out)
	case token.StyleEffect:
		out := *s.Effect
		out.Name = s.Name
		out.Description = s.Description
		out.BoundVariables = bound
		bundle.EffectStyles = append(bundle.EffectStyles, &out)
	case token.StyleGrid:
		out := *s.Grid
		out.Name = s.Name
		out.Description = s.Description
		out.BoundVariables = bound
		bundle.GridStyles = append(bundle.GridStyles, &out)
	}
	return nil
}

// boundRefs translates identity bindings back to wire-format
// collection+path references. Bindings whose target no longer exists are
// dropped.
func boundRefs(es *entity.Store, boundVars map[string]string) map[string]token.VariableRef {
	if len(boundVars) == 0 {
		return nil
	}
	out := make(map[string]token.VariableRef, len(boundVars))
	for field, id := range boundVars {
		v, ok := es.VariableByID(id)
		if !ok {
			continue
		}
		c, ok := es.CollectionByID(v.CollectionID)
		if !ok {
			continue
		}
		out[field] = token.VariableRef{Collection: c.Name, Path: v.Path}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
