// Package dtcg adapts W3C Design Tokens Community Group files into the
// internal document model so they flow through the same validate / diff /
// import pipeline as native documents.
//
// Each top-level group becomes a single-mode collection. Group-level $type
// declarations are inherited by nested tokens, dimension and duration
// values are coerced to floats, and "{a.b}" references are carried through
// as aliases unchanged.
package dtcg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/token"
)

// Decode parses a DTCG file. Every top-level group yields one collection
// with a single default mode; top-level tokens (outside any group) are not
// supported because collections need a name.
func Decode(data []byte) (*token.Document, error) {
	keys, err := objectKeys(data)
	if err != nil {
		return nil, fmt.Errorf("parse design tokens: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse design tokens: %w", err)
	}

	doc := &token.Document{}
	for _, name := range keys {
		if strings.HasPrefix(name, "$") {
			continue
		}
		node, err := decodeNode(raw[name])
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", name, err)
		}
		if node.isToken() {
			return nil, fmt.Errorf("top-level token %q: tokens must live inside a group", name)
		}
		tree := token.NewTree()
		if err := fillTree(tree, node, "", ""); err != nil {
			return nil, fmt.Errorf("group %q: %w", name, err)
		}
		entry := &token.CollectionEntry{
			Name:      name,
			Modes:     map[string]*token.Tree{host.DefaultModeName: tree},
			ModeOrder: []string{host.DefaultModeName},
		}
		doc.Collections = append(doc.Collections, entry)
	}
	if len(doc.Collections) == 0 {
		return nil, fmt.Errorf("design tokens file has no groups")
	}
	return doc, nil
}

// node is one parsed DTCG group or token.
type node struct {
	typ         string
	value       json.RawMessage
	description string
	order       []string
	children    map[string]*node
}

func (n *node) isToken() bool { return n.value != nil }

func decodeNode(data json.RawMessage) (*node, error) {
	keys, err := objectKeys(data)
	if err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	n := &node{children: map[string]*node{}}
	for _, key := range keys {
		switch key {
		case "$type":
			if err := json.Unmarshal(raw[key], &n.typ); err != nil {
				return nil, fmt.Errorf("$type: %w", err)
			}
		case "$value":
			n.value = raw[key]
		case "$description":
			if err := json.Unmarshal(raw[key], &n.description); err != nil {
				return nil, fmt.Errorf("$description: %w", err)
			}
		default:
			if strings.HasPrefix(key, "$") {
				// $extensions and friends are ignored.
				continue
			}
			child, err := decodeNode(raw[key])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			n.order = append(n.order, key)
			n.children[key] = child
		}
	}
	return n, nil
}

// fillTree walks a group, inheriting $type downward, and writes one leaf
// per token at its slash path. inherited is the nearest enclosing group's
// $type.
func fillTree(tree *token.Tree, group *node, prefix, inherited string) error {
	typ := group.typ
	if typ == "" {
		typ = inherited
	}
	for _, name := range group.order {
		child := group.children[name]
		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}
		if child.isToken() {
			rec, err := tokenRecord(child, typ)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			tree.SetLeaf(path, rec)
			continue
		}
		if err := fillTree(tree, child, path, typ); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func tokenRecord(n *node, inherited string) (*token.ValueRecord, error) {
	typ := n.typ
	if typ == "" {
		typ = inherited
	}
	if typ == "" {
		return nil, fmt.Errorf("token has no $type and no group declares one")
	}

	var value any
	if err := json.Unmarshal(n.value, &value); err != nil {
		return nil, fmt.Errorf("$value: %w", err)
	}

	rec := &token.ValueRecord{Description: n.description}
	if s, ok := value.(string); ok && strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		rec.Type = mapType(typ)
		rec.Value = s
		return rec, nil
	}

	switch typ {
	case "color":
		rec.Type = token.TypeColor
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("color value must be a hex string (got %T)", value)
		}
		rec.Value = s
	case "number":
		rec.Type = token.TypeFloat
		f, ok := token.FloatValue(value)
		if !ok {
			return nil, fmt.Errorf("number value is not numeric (got %T)", value)
		}
		rec.Value = f
	case "dimension", "duration":
		rec.Type = token.TypeFloat
		f, err := measureValue(value)
		if err != nil {
			return nil, err
		}
		rec.Value = f
	case "boolean":
		rec.Type = token.TypeBoolean
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("boolean value is not a bool (got %T)", value)
		}
		rec.Value = b
	default:
		// fontFamily, fontWeight, cubicBezier and the composite types all
		// land as strings.
		rec.Type = token.TypeString
		rec.Value = fmt.Sprintf("%v", value)
		if s, ok := value.(string); ok {
			rec.Value = s
		}
	}
	return rec, nil
}

func mapType(dtcgType string) token.VariableType {
	switch dtcgType {
	case "color":
		return token.TypeColor
	case "number", "dimension", "duration":
		return token.TypeFloat
	case "boolean":
		return token.TypeBoolean
	}
	return token.TypeString
}

// measureValue coerces the two DTCG measure shapes to a bare float: the
// object form {"value": 16, "unit": "px"} and the legacy string form
// "16px" / "250ms". The unit is dropped.
func measureValue(v any) (float64, error) {
	switch m := v.(type) {
	case map[string]any:
		f, ok := token.FloatValue(m["value"])
		if !ok {
			return 0, fmt.Errorf("measure object has no numeric value")
		}
		return f, nil
	case string:
		trimmed := strings.TrimRight(m, "pxremt%ms ")
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse measure %q", m)
		}
		return f, nil
	}
	if f, ok := token.FloatValue(v); ok {
		return f, nil
	}
	return 0, fmt.Errorf("unsupported measure value %T", v)
}

// objectKeys returns a JSON object's top-level keys in document order.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key")
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
