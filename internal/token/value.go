package token

import (
	"fmt"
	"regexp"
	"strings"
)

// ValueRecord is a leaf of a document tree: one variable's value in one mode,
// plus the metadata that survives round-trips.
//
// Value is either a literal matching Type (bool, float64, string, or a color
// bundle) or an alias string of the form "{dotted.path}". CollectionName
// disambiguates cross-collection aliases; when empty the alias targets the
// collection being imported. LibraryRef marks an alias whose target lives in
// an external library, with LocalValue carrying the resolved fallback scalar
// so the document stays useful without that library.
type ValueRecord struct {
	Type           VariableType `json:"$type"`
	Value          any          `json:"$value"`
	Scopes         []string     `json:"$scopes,omitempty"`
	Description    string       `json:"$description,omitempty"`
	CollectionName string       `json:"$collectionName,omitempty"`
	LibraryRef     string       `json:"$libraryRef,omitempty"`
	LocalValue     any          `json:"$localValue,omitempty"`
}

var aliasPattern = regexp.MustCompile(`^\{([^{}]+)\}$`)

// AliasPath returns the slash-delimited target path if Value is an alias
// reference. The wire format's dotted path is purely a serialization detail;
// everything past decode works with slash paths.
func (r *ValueRecord) AliasPath() (string, bool) {
	s, ok := r.Value.(string)
	if !ok {
		return "", false
	}
	m := aliasPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	return strings.ReplaceAll(m[1], ".", "/"), true
}

// IsAlias reports whether the record's value is an alias reference.
func (r *ValueRecord) IsAlias() bool {
	_, ok := r.AliasPath()
	return ok
}

// AliasValue formats a slash path as the wire alias form "{dotted.path}".
func AliasValue(path string) string {
	return "{" + strings.ReplaceAll(path, "/", ".") + "}"
}

// Color interprets Value (or, when the record is an alias, LocalValue) as a
// color literal. Accepts a plain hex string, a ColorBundle, or the generic
// map shape JSON decoding produces.
func (r *ValueRecord) Color() (*ColorBundle, bool) {
	v := r.Value
	if r.IsAlias() {
		v = r.LocalValue
	}
	return colorBundleOf(v)
}

func colorBundleOf(v any) (*ColorBundle, bool) {
	switch c := v.(type) {
	case string:
		if strings.HasPrefix(c, "#") {
			return &ColorBundle{Hex: c}, true
		}
	case *ColorBundle:
		return c, true
	case ColorBundle:
		return &c, true
	case map[string]any:
		b := &ColorBundle{}
		if hex, ok := c["hex"].(string); ok {
			b.Hex = hex
		}
		if rgba, ok := c["rgba"].(string); ok {
			b.RGBA = rgba
		}
		if hsla, ok := c["hsla"].(string); ok {
			b.HSLA = hsla
		}
		if b.Hex != "" {
			return b, true
		}
	}
	return nil, false
}

// Validate checks that the record is well formed: a known type and a value
// shape that matches it (aliases are always well formed at this level).
func (r *ValueRecord) Validate() error {
	if _, err := ParseVariableType(string(r.Type)); err != nil {
		return err
	}
	if r.Value == nil {
		return fmt.Errorf("missing $value")
	}
	if r.IsAlias() {
		return nil
	}
	switch r.Type {
	case TypeColor:
		if _, ok := colorBundleOf(r.Value); !ok {
			return fmt.Errorf("color value must be a hex string or color bundle (got %T)", r.Value)
		}
	case TypeFloat:
		switch r.Value.(type) {
		case float64, float32, int, int64:
		default:
			return fmt.Errorf("float value must be numeric (got %T)", r.Value)
		}
	case TypeString:
		if _, ok := r.Value.(string); !ok {
			return fmt.Errorf("string value must be a string (got %T)", r.Value)
		}
	case TypeBoolean:
		if _, ok := r.Value.(bool); !ok {
			return fmt.Errorf("boolean value must be a bool (got %T)", r.Value)
		}
	}
	return nil
}

// FloatValue coerces a numeric literal to float64.
func FloatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
