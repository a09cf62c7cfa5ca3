package sync

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/host/memhost"
	"github.com/tknatwork/tokensync/internal/token"
)

func quietOpts() Options {
	return Options{
		Merge:     true,
		Overwrite: true,
		Logger:    log.New(io.Discard, "", 0),
	}
}

// makeEntry builds a document collection from (mode, path, record) triples.
func makeEntry(name string, modes []string, leaves map[string]map[string]*token.ValueRecord) *token.CollectionEntry {
	entry := &token.CollectionEntry{
		Name:      name,
		Modes:     make(map[string]*token.Tree, len(modes)),
		ModeOrder: modes,
	}
	for _, mode := range modes {
		tree := token.NewTree()
		for path, rec := range leaves[mode] {
			tree.SetLeaf(path, rec)
		}
		entry.Modes[mode] = tree
	}
	return entry
}

func colorLeaf(hex string) *token.ValueRecord {
	return &token.ValueRecord{Type: token.TypeColor, Value: hex}
}

func floatLeaf(v float64) *token.ValueRecord {
	return &token.ValueRecord{Type: token.TypeFloat, Value: v}
}

func aliasLeaf(typ token.VariableType, path, collection string) *token.ValueRecord {
	return &token.ValueRecord{
		Type:           typ,
		Value:          token.AliasValue(path),
		CollectionName: collection,
	}
}

// liveValue resolves (collection, path, mode) to the raw stored value.
func liveValue(t *testing.T, h host.Host, collection, path, mode string) host.Value {
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
		m, ok := c.Mode(mode)
		if !ok {
			t.Fatalf("mode %q not found in %q (have %+v)", mode, collection, c.Modes)
		}
		variables, err := h.Variables(ctx, c.ID)
		if err != nil {
			t.Fatalf("variables: %v", err)
		}
		for _, v := range variables {
			if v.Path == path {
				val, err := h.Value(ctx, v.ID, m.ID)
				if err != nil {
					t.Fatalf("value: %v", err)
				}
				return val
			}
		}
		t.Fatalf("variable %q not found in %q", path, collection)
	}
	t.Fatalf("collection %q not found", collection)
	return nil
}

func TestImportCreatesCollectionsAndWiresAliases(t *testing.T) {
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

	stats, err := Import(ctx, h, doc, quietOpts())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.CollectionsCreated != 2 {
		t.Errorf("expected 2 collections created, got %d", stats.CollectionsCreated)
	}
	if stats.VariablesCreated != 3 {
		t.Errorf("expected 3 variables created, got %d", stats.VariablesCreated)
	}
	if stats.AliasesResolved != 1 || stats.AliasesUnresolved != 0 {
		t.Errorf("expected 1 alias resolved, got %d resolved %d unresolved",
			stats.AliasesResolved, stats.AliasesUnresolved)
	}
	if len(stats.Errors) != 0 {
		t.Errorf("unexpected errors: %v", stats.Errors)
	}

	// The alias is wired by identity to the Primitives variable.
	val := liveValue(t, h, "Semantic", "bg", "Light")
	alias, ok := val.(host.AliasValue)
	if !ok {
		t.Fatalf("expected alias value in Light mode, got %#v", val)
	}
	target, err := h.VariableByID(ctx, alias.TargetID)
	if err != nil || target.Path != "color/blue/500" {
		t.Fatalf("alias target wrong: %+v, %v", target, err)
	}

	// The Dark mode holds a raw color.
	dark := liveValue(t, h, "Semantic", "bg", "Dark")
	if c, ok := dark.(host.ColorValue); !ok || c.R == 0 && c.G == 0 && c.B == 0 {
		t.Errorf("expected raw dark color, got %#v", dark)
	}
}

func TestAliasAcrossDocumentOrder(t *testing.T) {
	// The alias target collection appears AFTER the referencing collection;
	// resolution must still succeed because wiring is deferred to the
	// second pass.
	h := memhost.New()
	ctx := context.Background()

	doc := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Semantic", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {"accent": aliasLeaf(token.TypeColor, "brand/primary", "Primitives")},
		}),
		makeEntry("Primitives", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {"brand/primary": colorLeaf("#FF5733")},
		}),
	}}

	stats, err := Import(ctx, h, doc, quietOpts())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.AliasesResolved != 1 {
		t.Fatalf("expected forward alias to resolve, got %d resolved %d unresolved",
			stats.AliasesResolved, stats.AliasesUnresolved)
	}
	if _, ok := liveValue(t, h, "Semantic", "accent", "Default").(host.AliasValue); !ok {
		t.Error("accent should hold an alias value")
	}
}

func TestUnresolvedAliasKeepsFallback(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	leaf := aliasLeaf(token.TypeColor, "missing/target", "Nowhere")
	leaf.LocalValue = "#ABCDEF"
	doc := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Theme", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {"accent": leaf},
		}),
	}}

	stats, err := Import(ctx, h, doc, quietOpts())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.AliasesUnresolved != 1 {
		t.Fatalf("expected 1 unresolved alias, got %d", stats.AliasesUnresolved)
	}

	// The carried fallback stays in place; the variable is never valueless.
	val := liveValue(t, h, "Theme", "accent", "Default")
	c, ok := val.(host.ColorValue)
	if !ok {
		t.Fatalf("expected fallback color, got %#v", val)
	}
	if c.R == 0 && c.G == 0 && c.B == 0 {
		t.Error("fallback should carry the $localValue color, not the zero value")
	}
}

func TestAliasIntoRemoteLibrary(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	lib := h.AddRemoteCollection("Brand Kit", "Default")
	v, err := h.CreateVariable(ctx, lib.ID, "brand/primary", token.TypeColor)
	if err != nil {
		t.Fatalf("create library variable: %v", err)
	}

	doc := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Theme", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {"accent": aliasLeaf(token.TypeColor, "brand/primary", "Brand Kit")},
		}),
	}}

	stats, err := Import(ctx, h, doc, quietOpts())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.AliasesResolved != 1 {
		t.Fatalf("alias into connected library should resolve, got %d resolved %d unresolved",
			stats.AliasesResolved, stats.AliasesUnresolved)
	}
	alias, ok := liveValue(t, h, "Theme", "accent", "Default").(host.AliasValue)
	if !ok || alias.TargetID != v.ID {
		t.Errorf("alias should target the library variable, got %#v", alias)
	}
}

func TestPristineModeRename(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	doc := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Theme", []string{"Light", "Dark"}, map[string]map[string]*token.ValueRecord{
			"Light": {"bg": colorLeaf("#FFFFFF")},
			"Dark":  {"bg": colorLeaf("#000000")},
		}),
	}}

	stats, err := Import(ctx, h, doc, quietOpts())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.ModesRenamed != 1 {
		t.Errorf("pristine default mode should be renamed, got %d renames", stats.ModesRenamed)
	}
	if stats.ModesCreated != 1 {
		t.Errorf("expected 1 mode created (Dark), got %d", stats.ModesCreated)
	}

	collections, _ := h.Collections(ctx)
	if len(collections) != 1 {
		t.Fatalf("expected 1 collection, got %d", len(collections))
	}
	c := collections[0]
	if len(c.Modes) != 2 || c.Modes[0].Name != "Light" || c.Modes[1].Name != "Dark" {
		t.Fatalf("expected modes [Light Dark], got %+v", c.Modes)
	}
	for _, m := range c.Modes {
		if m.Name == host.DefaultModeName {
			t.Error("default mode name should not survive a pristine rename")
		}
	}
}

func TestExistingCollectionKeepsItsModes(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	c, _ := h.CreateCollection(ctx, "Theme")
	if _, err := h.CreateVariable(ctx, c.ID, "existing", token.TypeFloat); err != nil {
		t.Fatalf("seed: %v", err)
	}

	doc := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Theme", []string{"Light"}, map[string]map[string]*token.ValueRecord{
			"Light": {"bg": colorLeaf("#FFFFFF")},
		}),
	}}

	stats, err := Import(ctx, h, doc, quietOpts())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	// Not pristine (has a variable): Light is added, the default mode stays.
	if stats.ModesRenamed != 0 {
		t.Errorf("non-pristine collection must not have its mode renamed")
	}
	if stats.ModesCreated != 1 {
		t.Errorf("expected Light to be added, got %d creates", stats.ModesCreated)
	}

	collections, _ := h.Collections(ctx)
	if len(collections[0].Modes) != 2 {
		t.Fatalf("expected 2 modes, got %+v", collections[0].Modes)
	}
}

func TestNoOverwriteSkipsExistingVariables(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	first := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Theme", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {"size": floatLeaf(10)},
		}),
	}}
	if _, err := Import(ctx, h, first, quietOpts()); err != nil {
		t.Fatalf("first import: %v", err)
	}

	second := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Theme", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {"size": floatLeaf(99)},
		}),
	}}
	opts := quietOpts()
	opts.Overwrite = false
	stats, err := Import(ctx, h, second, opts)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if stats.VariablesSkipped != 1 {
		t.Errorf("expected 1 skipped variable, got %d", stats.VariablesSkipped)
	}

	val := liveValue(t, h, "Theme", "size", "Default")
	if f, ok := val.(host.FloatValue); !ok || float64(f) != 10 {
		t.Errorf("value should be untouched, got %#v", val)
	}
}

func TestTypeMismatchIsIsolated(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	first := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Theme", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {"size": floatLeaf(10)},
		}),
	}}
	if _, err := Import(ctx, h, first, quietOpts()); err != nil {
		t.Fatalf("first import: %v", err)
	}

	second := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Theme", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {
				"size":  {Type: token.TypeString, Value: "big"},
				"other": floatLeaf(5),
			},
		}),
	}}
	stats, err := Import(ctx, h, second, quietOpts())
	if err != nil {
		t.Fatalf("second import should not abort: %v", err)
	}
	if len(stats.Errors) != 1 {
		t.Fatalf("expected exactly one item error, got %v", stats.Errors)
	}
	if stats.VariablesCreated != 1 {
		t.Errorf("the healthy sibling variable should still import, got %d creates", stats.VariablesCreated)
	}

	// The mismatched variable keeps its original type and value.
	val := liveValue(t, h, "Theme", "size", "Default")
	if f, ok := val.(host.FloatValue); !ok || float64(f) != 10 {
		t.Errorf("mismatched variable should be untouched, got %#v", val)
	}
}

func TestClearFirstWipesLocalOnly(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	old, _ := h.CreateCollection(ctx, "Stale")
	_, _ = h.CreateVariable(ctx, old.ID, "x", token.TypeBoolean)
	h.AddRemoteCollection("Library", "Default")

	doc := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Fresh", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {"y": floatLeaf(1)},
		}),
	}}
	opts := quietOpts()
	opts.ClearFirst = true
	if _, err := Import(ctx, h, doc, opts); err != nil {
		t.Fatalf("import: %v", err)
	}

	collections, _ := h.Collections(ctx)
	var names []string
	for _, c := range collections {
		names = append(names, c.Name)
	}
	if len(collections) != 2 {
		t.Fatalf("expected remote + fresh, got %v", names)
	}
	for _, c := range collections {
		if c.Name == "Stale" {
			t.Error("local collection should have been cleared")
		}
		if c.Name == "Library" && !c.Remote {
			t.Error("library should survive as remote")
		}
	}
}

func TestReplaceBehavior(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	c, _ := h.CreateCollection(ctx, "Theme")
	_, _ = h.CreateVariable(ctx, c.ID, "legacy", token.TypeFloat)

	doc := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Theme", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {"modern": floatLeaf(2)},
		}),
	}}
	opts := quietOpts()
	opts.CollectionBehaviors = map[string]Behavior{"Theme": BehaviorReplace}
	stats, err := Import(ctx, h, doc, opts)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.CollectionsCreated != 1 {
		t.Errorf("replace counts as a create, got %d", stats.CollectionsCreated)
	}

	collections, _ := h.Collections(ctx)
	if len(collections) != 1 {
		t.Fatalf("expected 1 collection, got %d", len(collections))
	}
	variables, _ := h.Variables(ctx, collections[0].ID)
	if len(variables) != 1 || variables[0].Path != "modern" {
		t.Fatalf("legacy variable should be gone, got %+v", variables)
	}
}

func TestNoMergeSkipsExistingCollections(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()
	_, _ = h.CreateCollection(ctx, "Theme")

	doc := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Theme", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {"x": floatLeaf(1)},
		}),
	}}
	opts := quietOpts()
	opts.Merge = false
	stats, err := Import(ctx, h, doc, opts)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.CollectionsSkipped != 1 || stats.VariablesCreated != 0 {
		t.Errorf("existing collection should be skipped whole: %+v", stats)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	doc := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Primitives", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {"a": colorLeaf("#102030"), "b": floatLeaf(7)},
		}),
		makeEntry("Semantic", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {"ref": aliasLeaf(token.TypeColor, "a", "Primitives")},
		}),
	}}

	if _, err := Import(ctx, h, doc, quietOpts()); err != nil {
		t.Fatalf("first import: %v", err)
	}
	stats, err := Import(ctx, h, doc, quietOpts())
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if stats.CollectionsCreated != 0 || stats.VariablesCreated != 0 {
		t.Errorf("second import should create nothing: %+v", stats)
	}
	if stats.CollectionsUpdated != 2 || stats.VariablesUpdated != 3 {
		t.Errorf("second import should update in place: %+v", stats)
	}
	if stats.AliasesResolved != 1 {
		t.Errorf("alias should re-resolve: %+v", stats)
	}
	if len(stats.Errors) != 0 {
		t.Errorf("unexpected errors: %v", stats.Errors)
	}
}

func TestTemplateFillsMissingModeValues(t *testing.T) {
	// A variable present only in the first mode's tree still gets a value
	// in every mode, copied from the template.
	h := memhost.New()
	ctx := context.Background()

	entry := makeEntry("Theme", []string{"Light", "Dark"}, map[string]map[string]*token.ValueRecord{
		"Light": {"only-in-light": floatLeaf(42)},
		"Dark":  {},
	})
	doc := &token.Document{Collections: []*token.CollectionEntry{entry}}

	if _, err := Import(ctx, h, doc, quietOpts()); err != nil {
		t.Fatalf("import: %v", err)
	}

	val := liveValue(t, h, "Theme", "only-in-light", "Dark")
	if f, ok := val.(host.FloatValue); !ok || float64(f) != 42 {
		t.Errorf("Dark mode should carry the template value 42, got %#v", val)
	}
}
