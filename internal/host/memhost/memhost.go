// Package memhost provides an in-memory Host backend. It backs tests and
// scratch stores, and doubles as the reference implementation of the host
// contract: rejects on duplicate names, collections own a single default
// mode at creation, removal cascades to variables.
package memhost

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/token"
)

// Host is an in-memory implementation of host.Host. Safe for concurrent
// use, though the sync engine is single-writer by design.
type Host struct {
	mu sync.Mutex

	collections     map[string]*collection
	collectionOrder []string
	variables       map[string]*host.Variable
	values          map[string]map[string]host.Value // variable ID -> mode ID -> value
	styles          map[string]*host.Style
	styleOrder      []string
	fonts           map[token.FontRef]bool
	images          map[string][]byte
}

type collection struct {
	host.Collection
	varOrder []string // variable IDs in creation order
}

// New returns an empty in-memory host.
func New() *Host {
	return &Host{
		collections: make(map[string]*collection),
		variables:   make(map[string]*host.Variable),
		values:      make(map[string]map[string]host.Value),
		styles:      make(map[string]*host.Style),
		fonts:       make(map[token.FontRef]bool),
		images:      make(map[string][]byte),
	}
}

func newID() string {
	return ulid.Make().String()
}

// Collections implements host.Host.
func (h *Host) Collections(ctx context.Context) ([]*host.Collection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*host.Collection, 0, len(h.collectionOrder))
	for _, id := range h.collectionOrder {
		out = append(out, copyCollection(&h.collections[id].Collection))
	}
	return out, nil
}

// CreateCollection implements host.Host. The new collection carries a
// single default mode.
func (h *Host) CreateCollection(ctx context.Context, name string) (*host.Collection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range h.collectionOrder {
		c := h.collections[id]
		if c.Name == name && !c.Remote {
			return nil, fmt.Errorf("collection %q already exists", name)
		}
	}
	c := &collection{
		Collection: host.Collection{
			ID:    newID(),
			Name:  name,
			Modes: []host.Mode{{ID: newID(), Name: host.DefaultModeName}},
		},
	}
	h.collections[c.ID] = c
	h.collectionOrder = append(h.collectionOrder, c.ID)
	return copyCollection(&c.Collection), nil
}

// AddRemoteCollection registers a collection that belongs to an external
// library. Remote collections are readable for alias resolution but are
// not exported and never cleared.
func (h *Host) AddRemoteCollection(name string, modes ...string) *host.Collection {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(modes) == 0 {
		modes = []string{host.DefaultModeName}
	}
	c := &collection{Collection: host.Collection{ID: newID(), Name: name, Remote: true}}
	for _, m := range modes {
		c.Modes = append(c.Modes, host.Mode{ID: newID(), Name: m})
	}
	h.collections[c.ID] = c
	h.collectionOrder = append(h.collectionOrder, c.ID)
	return copyCollection(&c.Collection)
}

// RemoveCollection implements host.Host, cascading to the collection's
// variables.
func (h *Host) RemoveCollection(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.collections[id]
	if !ok {
		return fmt.Errorf("collection %s: %w", id, host.ErrNotFound)
	}
	for _, vid := range c.varOrder {
		delete(h.variables, vid)
		delete(h.values, vid)
	}
	delete(h.collections, id)
	for i, cid := range h.collectionOrder {
		if cid == id {
			h.collectionOrder = append(h.collectionOrder[:i], h.collectionOrder[i+1:]...)
			break
		}
	}
	return nil
}

// AddMode implements host.Host.
func (h *Host) AddMode(ctx context.Context, collectionID, name string) (*host.Mode, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.collections[collectionID]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", collectionID, host.ErrNotFound)
	}
	if _, exists := c.Mode(name); exists {
		return nil, fmt.Errorf("mode %q already exists in collection %q", name, c.Name)
	}
	m := host.Mode{ID: newID(), Name: name}
	c.Modes = append(c.Modes, m)
	// Backfill the new slot so no variable is ever missing a mode value.
	for _, vid := range c.varOrder {
		h.values[vid][m.ID] = host.ZeroValue(h.variables[vid].Type)
	}
	return &m, nil
}

// RenameMode implements host.Host.
func (h *Host) RenameMode(ctx context.Context, collectionID, modeID, newName string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.collections[collectionID]
	if !ok {
		return fmt.Errorf("collection %s: %w", collectionID, host.ErrNotFound)
	}
	for i := range c.Modes {
		if c.Modes[i].ID == modeID {
			c.Modes[i].Name = newName
			return nil
		}
	}
	return fmt.Errorf("mode %s: %w", modeID, host.ErrNotFound)
}

// Variables implements host.Host.
func (h *Host) Variables(ctx context.Context, collectionID string) ([]*host.Variable, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.collections[collectionID]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", collectionID, host.ErrNotFound)
	}
	out := make([]*host.Variable, 0, len(c.varOrder))
	for _, vid := range c.varOrder {
		out = append(out, copyVariable(h.variables[vid]))
	}
	return out, nil
}

// VariableByID implements host.Host.
func (h *Host) VariableByID(ctx context.Context, id string) (*host.Variable, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.variables[id]
	if !ok {
		return nil, fmt.Errorf("variable %s: %w", id, host.ErrNotFound)
	}
	return copyVariable(v), nil
}

// CreateVariable implements host.Host. Every mode of the collection starts
// at the type's zero value so a variable is never observable without a
// value.
func (h *Host) CreateVariable(ctx context.Context, collectionID, path string, typ token.VariableType) (*host.Variable, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.collections[collectionID]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", collectionID, host.ErrNotFound)
	}
	for _, vid := range c.varOrder {
		if h.variables[vid].Path == path {
			return nil, fmt.Errorf("variable %q already exists in collection %q", path, c.Name)
		}
	}
	v := &host.Variable{
		ID:           newID(),
		CollectionID: collectionID,
		Path:         path,
		Type:         typ,
	}
	h.variables[v.ID] = v
	c.varOrder = append(c.varOrder, v.ID)
	modeValues := make(map[string]host.Value, len(c.Modes))
	for _, m := range c.Modes {
		modeValues[m.ID] = host.ZeroValue(typ)
	}
	h.values[v.ID] = modeValues
	return copyVariable(v), nil
}

// RemoveVariable implements host.Host.
func (h *Host) RemoveVariable(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.variables[id]
	if !ok {
		return fmt.Errorf("variable %s: %w", id, host.ErrNotFound)
	}
	if c, ok := h.collections[v.CollectionID]; ok {
		for i, vid := range c.varOrder {
			if vid == id {
				c.varOrder = append(c.varOrder[:i], c.varOrder[i+1:]...)
				break
			}
		}
	}
	delete(h.variables, id)
	delete(h.values, id)
	return nil
}

// SetVariableMeta implements host.Host.
func (h *Host) SetVariableMeta(ctx context.Context, id, description string, scopes []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.variables[id]
	if !ok {
		return fmt.Errorf("variable %s: %w", id, host.ErrNotFound)
	}
	v.Description = description
	v.Scopes = append([]string(nil), scopes...)
	return nil
}

// Value implements host.Host.
func (h *Host) Value(ctx context.Context, variableID, modeID string) (host.Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	modeValues, ok := h.values[variableID]
	if !ok {
		return nil, fmt.Errorf("variable %s: %w", variableID, host.ErrNotFound)
	}
	v, ok := modeValues[modeID]
	if !ok {
		return nil, fmt.Errorf("mode %s: %w", modeID, host.ErrNotFound)
	}
	return v, nil
}

// SetValue implements host.Host.
func (h *Host) SetValue(ctx context.Context, variableID, modeID string, val host.Value) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.variables[variableID]
	if !ok {
		return fmt.Errorf("variable %s: %w", variableID, host.ErrNotFound)
	}
	if err := host.CheckValue(v.Type, val); err != nil {
		return err
	}
	modeValues := h.values[variableID]
	if _, ok := modeValues[modeID]; !ok {
		// Mode added after the variable: accept the write, the slot is legal.
		c := h.collections[v.CollectionID]
		found := false
		for _, m := range c.Modes {
			if m.ID == modeID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("mode %s: %w", modeID, host.ErrNotFound)
		}
	}
	modeValues[modeID] = val
	return nil
}

// Styles implements host.Host.
func (h *Host) Styles(ctx context.Context, kind token.StyleKind) ([]*host.Style, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*host.Style
	for _, id := range h.styleOrder {
		if s := h.styles[id]; s.Kind == kind {
			out = append(out, copyStyle(s))
		}
	}
	return out, nil
}

// SaveStyle implements host.Host.
func (h *Host) SaveStyle(ctx context.Context, s *host.Style) (*host.Style, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stored := copyStyle(s)
	if stored.ID == "" {
		stored.ID = newID()
		h.styleOrder = append(h.styleOrder, stored.ID)
	} else if _, ok := h.styles[stored.ID]; !ok {
		return nil, fmt.Errorf("style %s: %w", stored.ID, host.ErrNotFound)
	}
	h.styles[stored.ID] = stored
	return copyStyle(stored), nil
}

// RemoveStyle implements host.Host.
func (h *Host) RemoveStyle(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.styles[id]; !ok {
		return fmt.Errorf("style %s: %w", id, host.ErrNotFound)
	}
	delete(h.styles, id)
	for i, sid := range h.styleOrder {
		if sid == id {
			h.styleOrder = append(h.styleOrder[:i], h.styleOrder[i+1:]...)
			break
		}
	}
	return nil
}

// SeedFont marks a font family/style pair as installed. With no seeded
// fonts every font is reported available.
func (h *Host) SeedFont(family, style string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fonts[token.FontRef{Family: family, Style: style}] = true
}

// HasFont implements host.Host.
func (h *Host) HasFont(ctx context.Context, family, style string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.fonts) == 0 {
		return true, nil
	}
	return h.fonts[token.FontRef{Family: family, Style: style}], nil
}

// ImageData implements host.Host.
func (h *Host) ImageData(ctx context.Context, hash string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	data, ok := h.images[hash]
	if !ok {
		return nil, fmt.Errorf("image %s: %w", hash, host.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// StoreImage implements host.Host. The hash is content-derived so storing
// the same bytes twice is idempotent.
func (h *Host) StoreImage(ctx context.Context, data []byte) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:8])
	h.images[hash] = append([]byte(nil), data...)
	return hash, nil
}

func copyCollection(c *host.Collection) *host.Collection {
	out := *c
	out.Modes = append([]host.Mode(nil), c.Modes...)
	return &out
}

func copyVariable(v *host.Variable) *host.Variable {
	out := *v
	out.Scopes = append([]string(nil), v.Scopes...)
	return &out
}

func copyStyle(s *host.Style) *host.Style {
	out := *s
	if s.BoundVars != nil {
		out.BoundVars = make(map[string]string, len(s.BoundVars))
		for k, v := range s.BoundVars {
			out.BoundVars[k] = v
		}
	}
	return &out
}
