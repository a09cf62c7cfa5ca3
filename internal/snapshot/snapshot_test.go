package snapshot

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/host/memhost"
	"github.com/tknatwork/tokensync/internal/sync"
	"github.com/tknatwork/tokensync/internal/token"
)

var discard = log.New(io.Discard, "", 0)

func seedStore(t *testing.T) (*memhost.Host, context.Context) {
	t.Helper()
	h := memhost.New()
	ctx := context.Background()

	c, err := h.CreateCollection(ctx, "Theme")
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	base, err := h.CreateVariable(ctx, c.ID, "color/base", token.TypeColor)
	if err != nil {
		t.Fatalf("create base: %v", err)
	}
	if err := h.SetValue(ctx, base.ID, c.Modes[0].ID, host.ColorValue{R: 1, A: 1}); err != nil {
		t.Fatalf("set base: %v", err)
	}
	ref, err := h.CreateVariable(ctx, c.ID, "color/ref", token.TypeColor)
	if err != nil {
		t.Fatalf("create ref: %v", err)
	}
	if err := h.SetValue(ctx, ref.ID, c.Modes[0].ID, host.AliasValue{TargetID: base.ID}); err != nil {
		t.Fatalf("set ref: %v", err)
	}
	return h, ctx
}

func variableValue(t *testing.T, h host.Host, collection, path string) host.Value {
	t.Helper()
	ctx := context.Background()
	collections, err := h.Collections(ctx)
	if err != nil {
		t.Fatalf("collections: %v", err)
	}
	for _, c := range collections {
		if c.Name != collection {
			continue
		}
		variables, err := h.Variables(ctx, c.ID)
		if err != nil {
			t.Fatalf("variables: %v", err)
		}
		for _, v := range variables {
			if v.Path == path {
				val, err := h.Value(ctx, v.ID, c.Modes[0].ID)
				if err != nil {
					t.Fatalf("value: %v", err)
				}
				return val
			}
		}
	}
	t.Fatalf("%s/%s not found", collection, path)
	return nil
}

func TestTakeRestoreRoundTrip(t *testing.T) {
	h, ctx := seedStore(t)

	snap, err := Take(ctx, h, "before")
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if snap.Label != "before" || snap.TakenAt.IsZero() {
		t.Errorf("snapshot metadata wrong: %+v", snap)
	}
	if snap.Count() != 2 {
		t.Errorf("expected 2 variables captured, got %d", snap.Count())
	}

	// Wreck the store.
	wreck := &token.Document{Collections: []*token.CollectionEntry{{
		Name:      "Junk",
		ModeOrder: []string{"Default"},
		Modes:     map[string]*token.Tree{"Default": token.NewTree()},
	}}}
	wreck.Collections[0].Modes["Default"].SetLeaf("x",
		&token.ValueRecord{Type: token.TypeFloat, Value: 3.0})
	opts := sync.Options{Merge: true, Overwrite: true, ClearFirst: true, Logger: discard}
	if _, err := sync.Import(ctx, h, wreck, opts); err != nil {
		t.Fatalf("wreck: %v", err)
	}

	if err := snap.Restore(ctx, h, discard); err != nil {
		t.Fatalf("restore: %v", err)
	}

	collections, _ := h.Collections(ctx)
	if len(collections) != 1 || collections[0].Name != "Theme" {
		t.Fatalf("restore did not bring back the original state: %+v", collections)
	}
	if c, ok := variableValue(t, h, "Theme", "color/base").(host.ColorValue); !ok || c.R != 1 {
		t.Errorf("base color lost in restore")
	}
	// The alias survives as an identity reference, re-wired to the
	// recreated target.
	if _, ok := variableValue(t, h, "Theme", "color/ref").(host.AliasValue); !ok {
		t.Errorf("alias identity lost in restore")
	}
}

func TestSaveLoad(t *testing.T) {
	h, ctx := seedStore(t)

	snap, err := Take(ctx, h, "persisted")
	if err != nil {
		t.Fatalf("take: %v", err)
	}

	path := filepath.Join(t.TempDir(), "nested", "snap.json")
	if err := snap.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Label != "persisted" {
		t.Errorf("label lost: %q", loaded.Label)
	}
	if !loaded.TakenAt.Equal(snap.TakenAt) {
		t.Errorf("timestamp drifted: %v vs %v", loaded.TakenAt, snap.TakenAt)
	}
	if loaded.Count() != snap.Count() {
		t.Errorf("variable count drifted: %d vs %d", loaded.Count(), snap.Count())
	}

	// A loaded snapshot restores into a fresh store.
	fresh := memhost.New()
	if err := loaded.Restore(ctx, fresh, discard); err != nil {
		t.Fatalf("restore from disk: %v", err)
	}
	if _, ok := variableValue(t, fresh, "Theme", "color/base").(host.ColorValue); !ok {
		t.Error("restored store missing the captured value")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected an error for a missing snapshot file")
	}
}

func TestGuardSuccessKeepsChanges(t *testing.T) {
	h, ctx := seedStore(t)

	res := Guard(ctx, h, discard, "import", func(ctx context.Context) error {
		_, err := h.CreateCollection(ctx, "Added")
		return err
	})
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Outcome, res.OpErr)
	}
	if res.Snapshot == nil {
		t.Error("success must still return the snapshot for undo")
	}
	collections, _ := h.Collections(ctx)
	if len(collections) != 2 {
		t.Errorf("changes should persist on success, got %d collections", len(collections))
	}
}

func TestGuardRollsBackOnFailure(t *testing.T) {
	h, ctx := seedStore(t)

	boom := errors.New("boom")
	res := Guard(ctx, h, discard, "import", func(ctx context.Context) error {
		// Partial mutation before the failure.
		if _, err := h.CreateCollection(ctx, "Partial"); err != nil {
			return err
		}
		return boom
	})
	if res.Outcome != OutcomeRolledBack {
		t.Fatalf("expected rolled-back, got %s", res.Outcome)
	}
	if !errors.Is(res.OpErr, boom) {
		t.Errorf("OpErr should carry the operation error, got %v", res.OpErr)
	}

	collections, _ := h.Collections(ctx)
	if len(collections) != 1 || collections[0].Name != "Theme" {
		t.Errorf("partial mutation should be undone, got %+v", collections)
	}
}

// failingHost wraps a host and fails Collections, which breaks Take.
type failingHost struct {
	host.Host
}

func (f *failingHost) Collections(ctx context.Context) ([]*host.Collection, error) {
	return nil, errors.New("offline")
}

func TestGuardRefusesToRunWithoutSnapshot(t *testing.T) {
	h, ctx := seedStore(t)

	ran := false
	res := Guard(ctx, &failingHost{Host: h}, discard, "import", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if res.Outcome != OutcomeNoSnapshot {
		t.Fatalf("expected no-snapshot, got %s", res.Outcome)
	}
	if ran {
		t.Error("operation must not run when the snapshot failed")
	}
}
