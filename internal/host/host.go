// Package host defines the live object model the reconciliation engine
// mutates: collections, variables, and styles as addressable handles behind
// an interface, with pluggable backends (in-memory, SQLite).
//
// The engine only ever holds handles obtained from a Host; it never assumes
// a handle stays valid across a structural mutation. The entity package
// rebuilds its index from the Host after any create/remove.
package host

import (
	"context"
	"errors"

	"github.com/tknatwork/tokensync/internal/token"
)

// ErrNotFound is returned when a collection, variable, mode, style, or
// image does not exist. Callers branch on it with errors.Is.
var ErrNotFound = errors.New("not found")

// DefaultModeName is the name a freshly created collection's sole mode
// carries before any import reconciles it.
const DefaultModeName = "Mode 1"

// Mode is a named value slot within a collection.
type Mode struct {
	ID   string
	Name string
}

// Collection is a live collection handle. Remote marks collections that
// belong to an external library: they are readable (so aliases into them
// can be wired) but never exported or cleared.
type Collection struct {
	ID     string
	Name   string
	Modes  []Mode
	Remote bool
}

// Mode returns the mode with the given name.
func (c *Collection) Mode(name string) (*Mode, bool) {
	for i := range c.Modes {
		if c.Modes[i].Name == name {
			return &c.Modes[i], true
		}
	}
	return nil, false
}

// Variable is a live variable handle. Identity is (collection, path); the
// resolved type is fixed at creation.
type Variable struct {
	ID           string
	CollectionID string
	Path         string
	Type         token.VariableType
	Description  string
	Scopes       []string
}

// Style is a live style handle. Exactly one of Color/Text/Effect/Grid is
// set, matching Kind. BoundVars pins named fields of the style value to
// variables by identity; the wire-format collection+path refs are decoded
// to IDs before they reach the host.
type Style struct {
	ID          string
	Kind        token.StyleKind
	Name        string
	Description string
	Color       *token.ColorStyle
	Text        *token.TextStyle
	Effect      *token.EffectStyle
	Grid        *token.GridStyle
	BoundVars   map[string]string // field -> variable ID
}

// Host is the platform boundary: everything the reconciler, exporter, diff
// engine, and snapshot manager need from the live store. All methods take a
// context because real platforms suspend at every accessor.
type Host interface {
	// Collections enumerates all collections, including remote ones.
	Collections(ctx context.Context) ([]*Collection, error)
	// CreateCollection creates a collection with a single default mode.
	CreateCollection(ctx context.Context, name string) (*Collection, error)
	// RemoveCollection removes a collection and all of its variables.
	RemoveCollection(ctx context.Context, id string) error
	// AddMode appends a named mode to a collection.
	AddMode(ctx context.Context, collectionID, name string) (*Mode, error)
	// RenameMode renames an existing mode.
	RenameMode(ctx context.Context, collectionID, modeID, newName string) error

	// Variables enumerates a collection's variables.
	Variables(ctx context.Context, collectionID string) ([]*Variable, error)
	// VariableByID resolves a variable handle by identity.
	VariableByID(ctx context.Context, id string) (*Variable, error)
	// CreateVariable creates a typed variable at a slash path.
	CreateVariable(ctx context.Context, collectionID, path string, typ token.VariableType) (*Variable, error)
	// RemoveVariable removes a variable.
	RemoveVariable(ctx context.Context, id string) error
	// SetVariableMeta updates description and scopes.
	SetVariableMeta(ctx context.Context, id, description string, scopes []string) error
	// Value reads a variable's value in one mode.
	Value(ctx context.Context, variableID, modeID string) (Value, error)
	// SetValue writes a variable's value in one mode, raw scalar or alias
	// by identity.
	SetValue(ctx context.Context, variableID, modeID string, v Value) error

	// Styles enumerates styles of one kind.
	Styles(ctx context.Context, kind token.StyleKind) ([]*Style, error)
	// SaveStyle creates the style if ID is empty, otherwise updates it.
	// Returns the stored handle.
	SaveStyle(ctx context.Context, s *Style) (*Style, error)
	// RemoveStyle removes a style.
	RemoveStyle(ctx context.Context, id string) error

	// HasFont reports whether a font family/style pair is available.
	HasFont(ctx context.Context, family, style string) (bool, error)
	// ImageData returns the bytes behind an opaque image hash.
	ImageData(ctx context.Context, hash string) ([]byte, error)
	// StoreImage stores image bytes and returns their hash.
	StoreImage(ctx context.Context, data []byte) (string, error)
}
