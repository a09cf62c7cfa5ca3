// Package naming implements the naming-convention transform applied to
// collection, mode, and variable names on export. The transform is applied
// per slash-delimited path segment; when it changes a name the exporter
// records the original under $originalName so import can restore exact
// host-side identity.
package naming

import (
	"fmt"
	"strings"
	"unicode"
)

// Convention selects a name transform.
type Convention string

const (
	Original Convention = "original"
	Camel    Convention = "camel"
	Pascal   Convention = "pascal"
	Kebab    Convention = "kebab"
	Snake    Convention = "snake"
	Lower    Convention = "lower"
)

// Parse validates a user-supplied convention name.
func Parse(s string) (Convention, error) {
	switch Convention(s) {
	case Original, Camel, Pascal, Kebab, Snake, Lower:
		return Convention(s), nil
	case "":
		return Original, nil
	}
	return "", fmt.Errorf("unknown naming convention %q", s)
}

// Apply transforms a single name segment.
func (c Convention) Apply(name string) string {
	switch c {
	case Camel:
		return joinWords(words(name), false)
	case Pascal:
		return joinWords(words(name), true)
	case Kebab:
		return strings.Join(lowerWords(words(name)), "-")
	case Snake:
		return strings.Join(lowerWords(words(name)), "_")
	case Lower:
		return strings.ToLower(name)
	}
	return name
}

// ApplyPath transforms each segment of a slash-delimited path.
func (c Convention) ApplyPath(path string) string {
	if c == Original {
		return path
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = c.Apply(p)
	}
	return strings.Join(parts, "/")
}

// words splits a name on spaces, dashes, underscores, and case boundaries.
func words(name string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == ' ' || r == '-' || r == '_' || r == '.':
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

func lowerWords(ws []string) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = strings.ToLower(w)
	}
	return out
}

func joinWords(ws []string, upperFirst bool) string {
	var b strings.Builder
	for i, w := range ws {
		if w == "" {
			continue
		}
		lower := strings.ToLower(w)
		if i == 0 && !upperFirst {
			b.WriteString(lower)
			continue
		}
		b.WriteString(strings.ToUpper(lower[:1]))
		b.WriteString(lower[1:])
	}
	return b.String()
}
