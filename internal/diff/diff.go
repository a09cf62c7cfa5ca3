// Package diff classifies an inbound document against the live store
// without mutating anything: collections and variable paths as
// new / modified / unchanged, styles as new / modified, plus a scalar
// summary the caller can render before deciding to import.
package diff

import (
	"context"
	"fmt"

	"github.com/tknatwork/tokensync/internal/colorconv"
	"github.com/tknatwork/tokensync/internal/entity"
	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/token"
)

// State classifies one entity.
type State string

const (
	StateNew       State = "new"
	StateModified  State = "modified"
	StateUnchanged State = "unchanged"
)

// VariableDiff is the classification of one variable path. Old and New
// carry display forms of the first differing mode value for modified
// literals.
type VariableDiff struct {
	Path  string `json:"path"`
	State State  `json:"state"`
	Old   string `json:"old,omitempty"`
	New   string `json:"new,omitempty"`
}

// CollectionDiff aggregates one document collection.
type CollectionDiff struct {
	Name      string         `json:"name"`
	State     State          `json:"state"`
	Variables []VariableDiff `json:"variables"`
}

// StyleDiff is the classification of one style, matched by name.
type StyleDiff struct {
	Kind  token.StyleKind `json:"kind"`
	Name  string          `json:"name"`
	State State           `json:"state"`
}

// Summary holds the scalar counts.
type Summary struct {
	NewCollections       int `json:"new_collections"`
	ModifiedCollections  int `json:"modified_collections"`
	UnchangedCollections int `json:"unchanged_collections"`
	NewVariables         int `json:"new_variables"`
	ModifiedVariables    int `json:"modified_variables"`
	UnchangedVariables   int `json:"unchanged_variables"`
	NewStyles            int `json:"new_styles"`
	ModifiedStyles       int `json:"modified_styles"`
}

// Result is the full classification of a document against the live store.
type Result struct {
	Collections []CollectionDiff `json:"collections"`
	Styles      []StyleDiff      `json:"styles,omitempty"`
	Summary     Summary          `json:"summary"`
}

// Compare classifies the document. Read-only: it looks up live state
// through a freshly built entity index and never creates anything.
func Compare(ctx context.Context, h host.Host, doc *token.Document) (*Result, error) {
	es, err := entity.Rebuild(ctx, h)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, entry := range doc.Collections {
		cd, err := compareCollection(ctx, h, es, entry)
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", entry.Name, err)
		}
		res.Collections = append(res.Collections, cd)
		switch cd.State {
		case StateNew:
			res.Summary.NewCollections++
		case StateModified:
			res.Summary.ModifiedCollections++
		default:
			res.Summary.UnchangedCollections++
		}
		for _, vd := range cd.Variables {
			switch vd.State {
			case StateNew:
				res.Summary.NewVariables++
			case StateModified:
				res.Summary.ModifiedVariables++
			default:
				res.Summary.UnchangedVariables++
			}
		}
	}

	if !doc.Styles.Empty() {
		styleDiffs, err := compareStyles(ctx, h, doc.Styles)
		if err != nil {
			return nil, err
		}
		res.Styles = styleDiffs
		for _, sd := range styleDiffs {
			if sd.State == StateNew {
				res.Summary.NewStyles++
			} else {
				res.Summary.ModifiedStyles++
			}
		}
	}
	return res, nil
}

func compareCollection(ctx context.Context, h host.Host, es *entity.Store, entry *token.CollectionEntry) (CollectionDiff, error) {
	cd := CollectionDiff{Name: entry.Name}
	c, exists := es.Collection(entry.HostName())

	_, template, ok := entry.FirstMode()
	if !ok {
		cd.State = StateUnchanged
		return cd, nil
	}

	if !exists {
		cd.State = StateNew
		for _, pv := range template.Flatten() {
			cd.Variables = append(cd.Variables, VariableDiff{Path: pv.Path, State: StateNew})
		}
		return cd, nil
	}

	anyChanged := false
	for _, pv := range template.Flatten() {
		vd, err := compareVariable(ctx, h, es, c, entry, pv.Path)
		if err != nil {
			return cd, err
		}
		cd.Variables = append(cd.Variables, vd)
		if vd.State != StateUnchanged {
			anyChanged = true
		}
	}
	if anyChanged {
		cd.State = StateModified
	} else {
		cd.State = StateUnchanged
	}
	return cd, nil
}

// compareVariable applies the value-equality policy: a missing variable is
// new; a live value that is itself an alias counts as always-different;
// otherwise literals are compared per mode, colors by normalized hex. A
// mode present in the document but absent live folds into modified.
func compareVariable(ctx context.Context, h host.Host, es *entity.Store, c *host.Collection, entry *token.CollectionEntry, path string) (VariableDiff, error) {
	vd := VariableDiff{Path: path}
	v, ok := es.Variable(c.Name, path)
	if !ok {
		vd.State = StateNew
		return vd, nil
	}

	for _, modeName := range entry.ModeOrder {
		leaf, ok := entry.Modes[modeName].Lookup(path)
		if !ok {
			continue
		}
		mode, ok := c.Mode(modeName)
		if !ok {
			vd.State = StateModified
			vd.New = displayLeaf(leaf)
			return vd, nil
		}
		live, err := h.Value(ctx, v.ID, mode.ID)
		if err != nil {
			return vd, err
		}
		if _, isAlias := live.(host.AliasValue); isAlias {
			// Comparing alias chains is not attempted.
			vd.State = StateModified
			vd.Old = "(alias)"
			vd.New = displayLeaf(leaf)
			return vd, nil
		}
		same, oldDisp, newDisp := literalEqual(live, leaf)
		if !same {
			vd.State = StateModified
			vd.Old = oldDisp
			vd.New = newDisp
			return vd, nil
		}
	}
	vd.State = StateUnchanged
	return vd, nil
}

// literalEqual compares a live raw value against a document leaf. Colors
// compare by normalized hex so float rounding cannot produce a false
// modified.
func literalEqual(live host.Value, leaf *token.ValueRecord) (bool, string, string) {
	if leaf.IsAlias() {
		return false, displayValue(live), displayLeaf(leaf)
	}
	switch lv := live.(type) {
	case host.ColorValue:
		bundle, ok := leaf.Color()
		if !ok {
			return false, displayValue(live), displayLeaf(leaf)
		}
		incoming, err := colorconv.FromBundle(bundle)
		if err != nil {
			return false, displayValue(live), displayLeaf(leaf)
		}
		liveHex := colorconv.RGBA{R: lv.R, G: lv.G, B: lv.B, A: lv.A}.ToHex()
		return liveHex == incoming.ToHex(), liveHex, incoming.ToHex()
	case host.FloatValue:
		f, ok := token.FloatValue(leaf.Value)
		return ok && float64(lv) == f, displayValue(live), displayLeaf(leaf)
	case host.StringValue:
		s, ok := leaf.Value.(string)
		return ok && string(lv) == s, displayValue(live), displayLeaf(leaf)
	case host.BoolValue:
		b, ok := leaf.Value.(bool)
		return ok && bool(lv) == b, displayValue(live), displayLeaf(leaf)
	}
	return false, displayValue(live), displayLeaf(leaf)
}

func displayValue(v host.Value) string {
	switch val := v.(type) {
	case host.ColorValue:
		return colorconv.RGBA{R: val.R, G: val.G, B: val.B, A: val.A}.ToHex()
	case host.FloatValue:
		return fmt.Sprintf("%g", float64(val))
	case host.StringValue:
		return string(val)
	case host.BoolValue:
		return fmt.Sprintf("%t", bool(val))
	case host.AliasValue:
		return "(alias)"
	}
	return ""
}

func displayLeaf(leaf *token.ValueRecord) string {
	if path, ok := leaf.AliasPath(); ok {
		return "{" + path + "}"
	}
	if bundle, ok := leaf.Color(); ok && leaf.Type == token.TypeColor {
		if c, err := colorconv.FromBundle(bundle); err == nil {
			return c.ToHex()
		}
	}
	return fmt.Sprintf("%v", leaf.Value)
}

func compareStyles(ctx context.Context, h host.Host, bundle *token.StyleBundle) ([]StyleDiff, error) {
	var out []StyleDiff
	add := func(kind token.StyleKind, names []string) error {
		existing, err := h.Styles(ctx, kind)
		if err != nil {
			return err
		}
		have := make(map[string]bool, len(existing))
		for _, s := range existing {
			have[s.Name] = true
		}
		for _, name := range names {
			state := StateNew
			if have[name] {
				state = StateModified
			}
			out = append(out, StyleDiff{Kind: kind, Name: name, State: state})
		}
		return nil
	}

	var colorNames, textNames, effectNames, gridNames []string
	for _, s := range bundle.ColorStyles {
		colorNames = append(colorNames, s.Name)
	}
	for _, s := range bundle.TextStyles {
		textNames = append(textNames, s.Name)
	}
	for _, s := range bundle.EffectStyles {
		effectNames = append(effectNames, s.Name)
	}
	for _, s := range bundle.GridStyles {
		gridNames = append(gridNames, s.Name)
	}
	if err := add(token.StyleColor, colorNames); err != nil {
		return nil, err
	}
	if err := add(token.StyleText, textNames); err != nil {
		return nil, err
	}
	if err := add(token.StyleEffect, effectNames); err != nil {
		return nil, err
	}
	if err := add(token.StyleGrid, gridNames); err != nil {
		return nil, err
	}
	return out, nil
}
