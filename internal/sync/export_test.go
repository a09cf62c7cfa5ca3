package sync

import (
	"context"
	"testing"

	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/host/memhost"
	"github.com/tknatwork/tokensync/internal/naming"
	"github.com/tknatwork/tokensync/internal/token"
)

// seedStore builds a small live store with a cross-collection alias.
func seedStore(t *testing.T) (*memhost.Host, context.Context) {
	t.Helper()
	h := memhost.New()
	ctx := context.Background()

	doc := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Primitives", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {
				"color/blue/500": colorLeaf("#3B82F6"),
				"spacing/md":     floatLeaf(16),
			},
		}),
		makeEntry("Semantic", []string{"Light", "Dark"}, map[string]map[string]*token.ValueRecord{
			"Light": {"bg": aliasLeaf(token.TypeColor, "color/blue/500", "Primitives")},
			"Dark":  {"bg": colorLeaf("#111827")},
		}),
	}}
	if _, err := Import(ctx, h, doc, quietOpts()); err != nil {
		t.Fatalf("seed import: %v", err)
	}
	return h, ctx
}

func findEntry(t *testing.T, doc *token.Document, name string) *token.CollectionEntry {
	t.Helper()
	for _, e := range doc.Collections {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("collection %q not in exported document", name)
	return nil
}

func TestExportEmitsAliasReferences(t *testing.T) {
	h, ctx := seedStore(t)

	doc, err := Export(ctx, h, ExportOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(doc.Collections) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(doc.Collections))
	}

	sem := findEntry(t, doc, "Semantic")
	rec, ok := sem.Modes["Light"].Lookup("bg")
	if !ok {
		t.Fatal("bg missing from Light mode")
	}
	if rec.Value != "{color.blue.500}" {
		t.Errorf("expected dotted alias form, got %v", rec.Value)
	}
	if rec.CollectionName != "Primitives" {
		t.Errorf("cross-collection alias should carry the target collection, got %q", rec.CollectionName)
	}

	// The non-alias mode stays a color literal.
	dark, ok := sem.Modes["Dark"].Lookup("bg")
	if !ok {
		t.Fatal("bg missing from Dark mode")
	}
	bundle, ok := dark.Color()
	if !ok || bundle.Hex != "#111827" {
		t.Errorf("expected #111827 literal in Dark, got %v", dark.Value)
	}
}

func TestExportResolveAliases(t *testing.T) {
	h, ctx := seedStore(t)

	doc, err := Export(ctx, h, ExportOptions{ResolveAliases: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	rec, ok := findEntry(t, doc, "Semantic").Modes["Light"].Lookup("bg")
	if !ok {
		t.Fatal("bg missing")
	}
	if rec.IsAlias() {
		t.Fatalf("resolve mode must not emit aliases, got %v", rec.Value)
	}
	bundle, ok := rec.Color()
	if !ok || bundle.Hex != "#3B82F6" {
		t.Errorf("alias should resolve to its terminal color, got %v", rec.Value)
	}
}

func TestExportLibraryAlias(t *testing.T) {
	h, ctx := seedStore(t)

	lib := h.AddRemoteCollection("Brand Kit", "Default")
	v, err := h.CreateVariable(ctx, lib.ID, "brand/primary", token.TypeColor)
	if err != nil {
		t.Fatalf("library variable: %v", err)
	}
	if err := h.SetValue(ctx, v.ID, lib.Modes[0].ID, host.ColorValue{R: 1, A: 1}); err != nil {
		t.Fatalf("library value: %v", err)
	}

	doc := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Theme", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {"accent": aliasLeaf(token.TypeColor, "brand/primary", "Brand Kit")},
		}),
	}}
	if _, err := Import(ctx, h, doc, quietOpts()); err != nil {
		t.Fatalf("import: %v", err)
	}

	out, err := Export(ctx, h, ExportOptions{Collections: []string{"Theme"}})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(out.Collections) != 1 {
		t.Fatalf("collection filter leaked, got %d entries", len(out.Collections))
	}
	rec, ok := out.Collections[0].Modes["Default"].Lookup("accent")
	if !ok {
		t.Fatal("accent missing")
	}
	if rec.LibraryRef != "Brand Kit" {
		t.Errorf("library alias should be tagged, got %q", rec.LibraryRef)
	}
	if rec.Value != "{brand.primary}" {
		t.Errorf("expected alias reference, got %v", rec.Value)
	}
	if rec.LocalValue == nil {
		t.Error("library alias must carry a resolved fallback")
	}
	bundle, ok := rec.Color()
	if !ok || bundle.Hex != "#FF0000" {
		t.Errorf("fallback should be the resolved red, got %v", rec.LocalValue)
	}
}

func TestExportModeSubset(t *testing.T) {
	h, ctx := seedStore(t)

	doc, err := Export(ctx, h, ExportOptions{
		Modes: map[string][]string{"Semantic": {"Dark"}},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	sem := findEntry(t, doc, "Semantic")
	if len(sem.ModeOrder) != 1 || sem.ModeOrder[0] != "Dark" {
		t.Errorf("expected only Dark, got %v", sem.ModeOrder)
	}
	// Unlisted collections keep all modes.
	prim := findEntry(t, doc, "Primitives")
	if len(prim.ModeOrder) != 1 {
		t.Errorf("Primitives should keep its single mode, got %v", prim.ModeOrder)
	}
}

func TestExportNamingConvention(t *testing.T) {
	h, ctx := seedStore(t)

	doc, err := Export(ctx, h, ExportOptions{Convention: naming.Kebab})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	sem := findEntry(t, doc, "semantic")
	if sem.OriginalName != "Semantic" {
		t.Errorf("renamed collection must keep its original name, got %q", sem.OriginalName)
	}
	if sem.HostName() != "Semantic" {
		t.Errorf("host name should map back, got %q", sem.HostName())
	}
	if _, ok := findEntry(t, doc, "primitives").Modes["default"].Lookup("color/blue/500"); !ok {
		t.Error("path segments should be kebab-cased (already lowercase here)")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	h, ctx := seedStore(t)

	doc, err := Export(ctx, h, ExportOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	fresh := memhost.New()
	stats, err := Import(ctx, fresh, doc, quietOpts())
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	if stats.AliasesResolved != 1 || stats.AliasesUnresolved != 0 || len(stats.Errors) != 0 {
		t.Fatalf("reimport degraded: %+v", stats)
	}

	if _, ok := liveValue(t, fresh, "Semantic", "bg", "Light").(host.AliasValue); !ok {
		t.Error("alias identity should survive the round trip")
	}
	if f, ok := liveValue(t, fresh, "Primitives", "spacing/md", "Default").(host.FloatValue); !ok || float64(f) != 16 {
		t.Error("float literal should survive the round trip")
	}
}
