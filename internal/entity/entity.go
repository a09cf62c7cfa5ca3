// Package entity provides the rebuildable index from names and paths to
// live handles. It is a cache over the host, never a source of truth: any
// operation that creates or removes a collection or variable invalidates
// it, and callers rebuild before the next read. The single exception is
// Put, which inserts one freshly created variable when no bulk structural
// change occurred.
package entity

import (
	"context"
	"fmt"

	"github.com/tknatwork/tokensync/internal/host"
)

// Store indexes collections by name and ID, and variables by
// (collection name, path) and by ID.
type Store struct {
	byName   map[string]*host.Collection
	byID     map[string]*host.Collection
	vars     map[string]map[string]*host.Variable // collection name -> path -> variable
	varsByID map[string]*host.Variable
	valid    bool
}

// Rebuild constructs a fresh index by enumerating the host. Remote
// collections are indexed too, so aliases into connected libraries resolve.
func Rebuild(ctx context.Context, h host.Host) (*Store, error) {
	collections, err := h.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate collections: %w", err)
	}

	s := &Store{
		byName:   make(map[string]*host.Collection, len(collections)),
		byID:     make(map[string]*host.Collection, len(collections)),
		vars:     make(map[string]map[string]*host.Variable, len(collections)),
		varsByID: make(map[string]*host.Variable),
		valid:    true,
	}
	for _, c := range collections {
		s.byName[c.Name] = c
		s.byID[c.ID] = c
		variables, err := h.Variables(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate variables of %q: %w", c.Name, err)
		}
		paths := make(map[string]*host.Variable, len(variables))
		for _, v := range variables {
			paths[v.Path] = v
			s.varsByID[v.ID] = v
		}
		s.vars[c.Name] = paths
	}
	return s, nil
}

// Valid reports whether the index may still be read. It turns false after
// Invalidate and the caller must Rebuild.
func (s *Store) Valid() bool {
	return s != nil && s.valid
}

// Invalidate marks the index stale. Reads after Invalidate panic, loudly
// surfacing a missing rebuild instead of silently serving stale handles.
func (s *Store) Invalidate() {
	s.valid = false
}

func (s *Store) mustBeValid() {
	if !s.Valid() {
		panic("entity: read from invalidated store; rebuild after structural mutation")
	}
}

// Collection returns the collection handle with the given name.
func (s *Store) Collection(name string) (*host.Collection, bool) {
	s.mustBeValid()
	c, ok := s.byName[name]
	return c, ok
}

// CollectionByID returns the collection handle with the given identity.
func (s *Store) CollectionByID(id string) (*host.Collection, bool) {
	s.mustBeValid()
	c, ok := s.byID[id]
	return c, ok
}

// Variable returns the variable at (collection name, path).
func (s *Store) Variable(collection, path string) (*host.Variable, bool) {
	s.mustBeValid()
	paths, ok := s.vars[collection]
	if !ok {
		return nil, false
	}
	v, ok := paths[path]
	return v, ok
}

// VariableByID returns the variable handle with the given identity.
func (s *Store) VariableByID(id string) (*host.Variable, bool) {
	s.mustBeValid()
	v, ok := s.varsByID[id]
	return v, ok
}

// Variables returns all indexed variables of a collection, keyed by path.
func (s *Store) Variables(collection string) map[string]*host.Variable {
	s.mustBeValid()
	return s.vars[collection]
}

// Put inserts a single variable created after the last rebuild. Only safe
// immediately after CreateVariable with no other structural change in
// between; bulk mutations still require a rebuild.
func (s *Store) Put(collectionName string, v *host.Variable) {
	s.mustBeValid()
	paths, ok := s.vars[collectionName]
	if !ok {
		paths = make(map[string]*host.Variable)
		s.vars[collectionName] = paths
	}
	paths[v.Path] = v
	s.varsByID[v.ID] = v
}

// PutCollection inserts a single collection created after the last rebuild,
// under the same safety condition as Put. The collection's variable index
// starts empty: a freshly created collection has no variables, including
// the replace case where the prior ones were just removed.
func (s *Store) PutCollection(c *host.Collection) {
	s.mustBeValid()
	if old := s.byName[c.Name]; old != nil && old.ID != c.ID {
		delete(s.byID, old.ID)
		for _, v := range s.vars[c.Name] {
			delete(s.varsByID, v.ID)
		}
	}
	s.byName[c.Name] = c
	s.byID[c.ID] = c
	s.vars[c.Name] = make(map[string]*host.Variable)
}

// MaxModeCount returns the largest mode count across local collections.
// The plan validator uses it to infer the store's tier.
func (s *Store) MaxModeCount() int {
	s.mustBeValid()
	max := 0
	for _, c := range s.byName {
		if c.Remote {
			continue
		}
		if len(c.Modes) > max {
			max = len(c.Modes)
		}
	}
	return max
}
