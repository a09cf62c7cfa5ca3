package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Tree is the recursively nested mapping of a collection's variables within
// one mode. Interior nodes are name groups; leaves are ValueRecords. The
// hierarchy is a rendering of slash-delimited paths, not a live structure:
// Flatten reconstructs the (path, leaf) pairs in document order.
type Tree struct {
	Leaf  *ValueRecord
	Nodes map[string]*Tree
	Order []string
}

// NewTree returns an empty branch node.
func NewTree() *Tree {
	return &Tree{Nodes: make(map[string]*Tree)}
}

// IsLeaf reports whether the node is a value leaf.
func (t *Tree) IsLeaf() bool {
	return t.Leaf != nil
}

// Child returns the named child, creating an empty branch if absent.
func (t *Tree) Child(name string) *Tree {
	if t.Nodes == nil {
		t.Nodes = make(map[string]*Tree)
	}
	c, ok := t.Nodes[name]
	if !ok {
		c = NewTree()
		t.Nodes[name] = c
		t.Order = append(t.Order, name)
	}
	return c
}

// SetLeaf inserts a value record at the given slash path, creating
// intermediate branches as needed.
func (t *Tree) SetLeaf(path string, rec *ValueRecord) {
	parts := strings.Split(path, "/")
	node := t
	for _, p := range parts[:len(parts)-1] {
		node = node.Child(p)
	}
	leafName := parts[len(parts)-1]
	leaf := node.Child(leafName)
	leaf.Leaf = rec
	leaf.Nodes = nil
	leaf.Order = nil
}

// Lookup returns the value record at the given slash path.
func (t *Tree) Lookup(path string) (*ValueRecord, bool) {
	node := t
	for _, p := range strings.Split(path, "/") {
		next, ok := node.Nodes[p]
		if !ok {
			return nil, false
		}
		node = next
	}
	if node.Leaf == nil {
		return nil, false
	}
	return node.Leaf, true
}

// PathValue is one flattened (path, leaf) pair.
type PathValue struct {
	Path string
	Leaf *ValueRecord
}

// Flatten walks the tree in document order and returns all leaves keyed by
// their slash-delimited path.
func (t *Tree) Flatten() []PathValue {
	var out []PathValue
	t.flatten("", &out)
	return out
}

func (t *Tree) flatten(prefix string, out *[]PathValue) {
	if t.Leaf != nil {
		*out = append(*out, PathValue{Path: prefix, Leaf: t.Leaf})
		return
	}
	for _, name := range t.Order {
		child := t.Nodes[name]
		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}
		child.flatten(path, out)
	}
}

// LeafCount returns the number of value leaves in the tree.
func (t *Tree) LeafCount() int {
	return len(t.Flatten())
}

// UnmarshalJSON decodes a tree, classifying each object as a leaf when it
// carries a $type or $value key and as a branch otherwise. Child order
// follows the document.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("tree node is not an object: %w", err)
	}
	if _, typed := raw["$type"]; typed {
		return t.unmarshalLeaf(data)
	}
	if _, valued := raw["$value"]; valued {
		return t.unmarshalLeaf(data)
	}

	keys, err := objectKeys(data)
	if err != nil {
		return err
	}
	t.Leaf = nil
	t.Nodes = make(map[string]*Tree, len(keys))
	t.Order = t.Order[:0]
	for _, k := range keys {
		child := &Tree{}
		if err := child.UnmarshalJSON(raw[k]); err != nil {
			return fmt.Errorf("node %q: %w", k, err)
		}
		t.Nodes[k] = child
		t.Order = append(t.Order, k)
	}
	return nil
}

func (t *Tree) unmarshalLeaf(data []byte) error {
	var rec ValueRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	t.Leaf = &rec
	t.Nodes = nil
	t.Order = nil
	return nil
}

// MarshalJSON encodes the tree preserving child order.
func (t *Tree) MarshalJSON() ([]byte, error) {
	if t.Leaf != nil {
		return json.Marshal(t.Leaf)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range t.Order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(t.Nodes[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// objectKeys returns the top-level keys of a JSON object in document order.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}
	var keys []string
	depth := 0
	for dec.More() || depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch d := tok.(type) {
		case json.Delim:
			if d == '{' || d == '[' {
				depth++
			} else {
				depth--
			}
		case string:
			if depth == 0 {
				keys = append(keys, d)
				// Skip the key's value entirely.
				var skip json.RawMessage
				if err := dec.Decode(&skip); err != nil {
					return nil, err
				}
			}
		}
	}
	return keys, nil
}
