package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Document is the portable form of a set of collections and styles: an
// ordered list of collection entries plus at most one style bundle.
type Document struct {
	Collections []*CollectionEntry
	Styles      *StyleBundle
}

// CollectionEntry is one collection's export: its modes in document order,
// each holding a tree of value leaves. OriginalName preserves the host-side
// name when a naming convention rewrote Name.
type CollectionEntry struct {
	Name         string
	OriginalName string
	Modes        map[string]*Tree
	ModeOrder    []string
}

// HostName returns the name to use against the live store: the original
// name when the naming convention changed it, otherwise the document name.
func (c *CollectionEntry) HostName() string {
	if c.OriginalName != "" {
		return c.OriginalName
	}
	return c.Name
}

// FirstMode returns the structural template mode: the first mode in document
// order. All modes of a collection must share its path set.
func (c *CollectionEntry) FirstMode() (string, *Tree, bool) {
	if len(c.ModeOrder) == 0 {
		return "", nil, false
	}
	name := c.ModeOrder[0]
	return name, c.Modes[name], true
}

// VariableCount returns the number of variable paths in the entry, counted
// on the template mode.
func (c *CollectionEntry) VariableCount() int {
	_, tree, ok := c.FirstMode()
	if !ok {
		return 0
	}
	return tree.LeafCount()
}

// FilterModes restricts the entry to the given mode names, preserving
// document order. Unknown names are ignored; an empty keep set is a no-op.
func (c *CollectionEntry) FilterModes(keep []string) {
	if len(keep) == 0 {
		return
	}
	kept := make(map[string]*Tree)
	var order []string
	for _, name := range c.ModeOrder {
		if slices.Contains(keep, name) {
			kept[name] = c.Modes[name]
			order = append(order, name)
		}
	}
	c.Modes = kept
	c.ModeOrder = order
}

// Collection returns the entry with the given document name.
func (d *Document) Collection(name string) (*CollectionEntry, bool) {
	for _, c := range d.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// FilterCollections restricts the document to the named collections,
// preserving order. The style bundle is untouched.
func (d *Document) FilterCollections(keep []string) {
	if len(keep) == 0 {
		return
	}
	var out []*CollectionEntry
	for _, c := range d.Collections {
		if slices.Contains(keep, c.Name) {
			out = append(out, c)
		}
	}
	d.Collections = out
}

// LibraryRefs returns the distinct external library names referenced by
// alias leaves anywhere in the document, in first-use order.
func (d *Document) LibraryRefs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range d.Collections {
		for _, mode := range c.ModeOrder {
			for _, pv := range c.Modes[mode].Flatten() {
				if pv.Leaf.LibraryRef == "" || seen[pv.Leaf.LibraryRef] {
					continue
				}
				seen[pv.Leaf.LibraryRef] = true
				out = append(out, pv.Leaf.LibraryRef)
			}
		}
	}
	return out
}

// collectionBody is the wire shape under a collection entry's name key.
type collectionBody struct {
	Modes        map[string]json.RawMessage `json:"modes"`
	OriginalName string                     `json:"$originalName,omitempty"`
}

const stylesKey = "_styles"

// UnmarshalJSON decodes the wire form: a JSON array whose entries are
// single-key objects, either {<collectionName>: {modes: {...}}} or
// {_styles: {...}}.
func (d *Document) UnmarshalJSON(data []byte) error {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("document must be a JSON array: %w", err)
	}

	d.Collections = nil
	d.Styles = nil
	for i, raw := range entries {
		keys, err := objectKeys(raw)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if len(keys) != 1 {
			return fmt.Errorf("entry %d: expected exactly one key, got %d", i, len(keys))
		}
		var body map[string]json.RawMessage
		if err := json.Unmarshal(raw, &body); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}

		name := keys[0]
		if name == stylesKey {
			if d.Styles != nil {
				return fmt.Errorf("entry %d: duplicate %s entry", i, stylesKey)
			}
			var bundle StyleBundle
			if err := json.Unmarshal(body[name], &bundle); err != nil {
				return fmt.Errorf("entry %d: invalid styles: %w", i, err)
			}
			d.Styles = &bundle
			continue
		}

		entry, err := decodeCollectionEntry(name, body[name])
		if err != nil {
			return fmt.Errorf("collection %q: %w", name, err)
		}
		d.Collections = append(d.Collections, entry)
	}
	return nil
}

func decodeCollectionEntry(name string, raw json.RawMessage) (*CollectionEntry, error) {
	var body collectionBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	if body.Modes == nil {
		return nil, fmt.Errorf("missing modes")
	}

	// Recover mode order from the nested modes object.
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return nil, err
	}
	modeOrder, err := objectKeys(outer["modes"])
	if err != nil {
		return nil, fmt.Errorf("modes: %w", err)
	}

	entry := &CollectionEntry{
		Name:         name,
		OriginalName: body.OriginalName,
		Modes:        make(map[string]*Tree, len(modeOrder)),
		ModeOrder:    modeOrder,
	}
	for _, mode := range modeOrder {
		tree := &Tree{}
		if err := tree.UnmarshalJSON(body.Modes[mode]); err != nil {
			return nil, fmt.Errorf("mode %q: %w", mode, err)
		}
		entry.Modes[mode] = tree
	}
	return entry, nil
}

// MarshalJSON encodes the wire form, preserving collection and mode order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	first := true
	for _, c := range d.Collections {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := c.encode(&buf); err != nil {
			return nil, err
		}
	}
	if !d.Styles.Empty() {
		if !first {
			buf.WriteByte(',')
		}
		entry := map[string]*StyleBundle{stylesKey: d.Styles}
		data, err := json.Marshal(entry)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (c *CollectionEntry) encode(buf *bytes.Buffer) error {
	key, err := json.Marshal(c.Name)
	if err != nil {
		return err
	}
	buf.WriteByte('{')
	buf.Write(key)
	buf.WriteString(`:{"modes":{`)
	for i, mode := range c.ModeOrder {
		if i > 0 {
			buf.WriteByte(',')
		}
		mk, err := json.Marshal(mode)
		if err != nil {
			return err
		}
		buf.Write(mk)
		buf.WriteByte(':')
		tv, err := json.Marshal(c.Modes[mode])
		if err != nil {
			return err
		}
		buf.Write(tv)
	}
	buf.WriteByte('}')
	if c.OriginalName != "" {
		on, err := json.Marshal(c.OriginalName)
		if err != nil {
			return err
		}
		buf.WriteString(`,"$originalName":`)
		buf.Write(on)
	}
	buf.WriteString("}}")
	return nil
}
