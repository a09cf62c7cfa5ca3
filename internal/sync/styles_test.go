package sync

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/host/memhost"
	"github.com/tknatwork/tokensync/internal/token"
)

func styledDocument() *token.Document {
	doc := &token.Document{Collections: []*token.CollectionEntry{
		makeEntry("Primitives", []string{"Default"}, map[string]map[string]*token.ValueRecord{
			"Default": {"brand/primary": colorLeaf("#3B82F6")},
		}),
	}}
	doc.Styles = &token.StyleBundle{
		ColorStyles: []*token.ColorStyle{{
			Name:   "Brand/Primary",
			Paints: []token.Paint{{Kind: token.PaintSolid, Color: &token.ColorBundle{Hex: "#3B82F6"}}},
			BoundVariables: map[string]token.VariableRef{
				"paints/0/color": {Collection: "Primitives", Path: "brand/primary"},
			},
		}},
		TextStyles: []*token.TextStyle{{
			Name:       "Body",
			FontFamily: "Inter",
			FontStyle:  "Regular",
			FontSize:   16,
		}},
	}
	return doc
}

func styleByName(t *testing.T, h host.Host, kind token.StyleKind, name string) *host.Style {
	t.Helper()
	styles, err := h.Styles(context.Background(), kind)
	if err != nil {
		t.Fatalf("styles: %v", err)
	}
	for _, s := range styles {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("style %q not found", name)
	return nil
}

func TestStyleImportBindsVariables(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	stats, err := Import(ctx, h, styledDocument(), quietOpts())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.StylesCreated != 2 {
		t.Errorf("expected 2 styles created, got %d", stats.StylesCreated)
	}
	if stats.BindingsSkipped != 0 {
		t.Errorf("binding target exists, nothing should be skipped: %d", stats.BindingsSkipped)
	}

	s := styleByName(t, h, token.StyleColor, "Brand/Primary")
	id, ok := s.BoundVars["paints/0/color"]
	if !ok {
		t.Fatal("binding not stored")
	}
	target, err := h.VariableByID(ctx, id)
	if err != nil || target.Path != "brand/primary" {
		t.Fatalf("binding resolves to the wrong variable: %+v, %v", target, err)
	}
}

func TestStyleImportSkipsDanglingBindings(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	doc := styledDocument()
	doc.Styles.ColorStyles[0].BoundVariables = map[string]token.VariableRef{
		"paints/0/color": {Collection: "Nowhere", Path: "missing"},
	}
	stats, err := Import(ctx, h, doc, quietOpts())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.BindingsSkipped != 1 {
		t.Errorf("expected 1 skipped binding, got %d", stats.BindingsSkipped)
	}
	if len(stats.Errors) != 0 {
		t.Errorf("dangling bindings are not errors: %v", stats.Errors)
	}
	if s := styleByName(t, h, token.StyleColor, "Brand/Primary"); len(s.BoundVars) != 0 {
		t.Errorf("no bindings should be stored: %+v", s.BoundVars)
	}
}

func TestStyleReimportUpdatesByName(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	if _, err := Import(ctx, h, styledDocument(), quietOpts()); err != nil {
		t.Fatalf("first import: %v", err)
	}

	doc := styledDocument()
	doc.Styles.ColorStyles[0].Description = "updated"
	stats, err := Import(ctx, h, doc, quietOpts())
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if stats.StylesCreated != 0 || stats.StylesUpdated != 2 {
		t.Errorf("second import should update in place: %+v", stats)
	}

	styles, _ := h.Styles(ctx, token.StyleColor)
	if len(styles) != 1 {
		t.Fatalf("reimport duplicated the style: %d copies", len(styles))
	}
	if styles[0].Description != "updated" {
		t.Errorf("description not updated: %q", styles[0].Description)
	}
}

func TestEmbeddedImageMaterialized(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	raw := []byte("fake png bytes")
	doc := styledDocument()
	doc.Styles.ColorStyles = append(doc.Styles.ColorStyles, &token.ColorStyle{
		Name: "Texture",
		Paints: []token.Paint{{
			Kind:      token.PaintImage,
			ImageData: base64.StdEncoding.EncodeToString(raw),
		}},
	})

	stats, err := Import(ctx, h, doc, quietOpts())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(stats.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", stats.Errors)
	}

	s := styleByName(t, h, token.StyleColor, "Texture")
	paint := s.Color.Paints[0]
	if paint.ImageHash == "" {
		t.Fatal("image bytes should be stored under a hash")
	}
	if paint.ImageData != "" {
		t.Error("live paints must not carry inline image data")
	}
	data, err := h.ImageData(ctx, paint.ImageHash)
	if err != nil || string(data) != string(raw) {
		t.Errorf("stored image does not match: %v", err)
	}
}

func TestInvalidEmbeddedImageIsolated(t *testing.T) {
	h := memhost.New()
	ctx := context.Background()

	doc := styledDocument()
	doc.Styles.ColorStyles[0].Paints = []token.Paint{{
		Kind:      token.PaintImage,
		ImageData: "not base64!!!",
	}}

	stats, err := Import(ctx, h, doc, quietOpts())
	if err != nil {
		t.Fatalf("import should not abort: %v", err)
	}
	if len(stats.Errors) != 1 {
		t.Errorf("expected 1 isolated error, got %v", stats.Errors)
	}
	// The style still lands, minus the broken paint data.
	s := styleByName(t, h, token.StyleColor, "Brand/Primary")
	if s.Color.Paints[0].ImageData != "" {
		t.Error("broken image data should be dropped")
	}
}
