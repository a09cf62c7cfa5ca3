package entity

import (
	"context"
	"testing"

	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/host/memhost"
	"github.com/tknatwork/tokensync/internal/token"
)

func TestRebuildIndexesEverything(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	c, _ := h.CreateCollection(ctx, "Colors")
	v, _ := h.CreateVariable(ctx, c.ID, "blue/500", token.TypeColor)
	h.AddRemoteCollection("Library", "Default")

	s, err := Rebuild(ctx, h)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	got, ok := s.Collection("Colors")
	if !ok || got.ID != c.ID {
		t.Fatalf("collection lookup by name failed")
	}
	if _, ok := s.CollectionByID(c.ID); !ok {
		t.Error("collection lookup by ID failed")
	}
	gotVar, ok := s.Variable("Colors", "blue/500")
	if !ok || gotVar.ID != v.ID {
		t.Fatalf("variable lookup failed")
	}
	if _, ok := s.VariableByID(v.ID); !ok {
		t.Error("variable lookup by ID failed")
	}

	// Remote collections are indexed so aliases into them can resolve.
	if _, ok := s.Collection("Library"); !ok {
		t.Error("remote collection should be indexed")
	}
}

func TestInvalidatedReadsPanic(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()
	s, err := Rebuild(ctx, h)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	s.Invalidate()
	if s.Valid() {
		t.Fatal("store should be invalid after Invalidate")
	}

	defer func() {
		if recover() == nil {
			t.Error("read from invalidated store should panic")
		}
	}()
	s.Collection("anything")
}

func TestPutSingleVariable(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()
	c, _ := h.CreateCollection(ctx, "Colors")

	s, _ := Rebuild(ctx, h)
	v, _ := h.CreateVariable(ctx, c.ID, "accent", token.TypeColor)
	s.Put("Colors", v)

	if got, ok := s.Variable("Colors", "accent"); !ok || got.ID != v.ID {
		t.Fatal("Put entry not visible")
	}
}

func TestPutCollectionReplacePurgesOldVariables(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()
	c, _ := h.CreateCollection(ctx, "Colors")
	v, _ := h.CreateVariable(ctx, c.ID, "old", token.TypeFloat)

	s, _ := Rebuild(ctx, h)

	// Replace: remove the collection and register the fresh one.
	if err := h.RemoveCollection(ctx, c.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	fresh, _ := h.CreateCollection(ctx, "Colors")
	s.PutCollection(fresh)

	if got, ok := s.Collection("Colors"); !ok || got.ID != fresh.ID {
		t.Fatal("fresh collection not indexed")
	}
	if _, ok := s.Variable("Colors", "old"); ok {
		t.Error("replaced collection's variables must not linger in the index")
	}
	if _, ok := s.VariableByID(v.ID); ok {
		t.Error("replaced variable ID must not linger in the index")
	}
}

func TestMaxModeCount(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	c, _ := h.CreateCollection(ctx, "Theme")
	_, _ = h.AddMode(ctx, c.ID, "Dark")
	_, _ = h.AddMode(ctx, c.ID, "Dim")
	h.AddRemoteCollection("Library", "A", "B", "C", "D", "E")

	s, _ := Rebuild(ctx, h)
	// Remote collections don't count toward the local tier.
	if got := s.MaxModeCount(); got != 3 {
		t.Fatalf("expected max mode count 3, got %d", got)
	}
}

var _ host.Host = (*memhost.Host)(nil)
