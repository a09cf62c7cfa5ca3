package token

import (
	"encoding/json"
	"testing"
)

const sampleDocument = `[
  {"Primitives": {"modes": {"Default": {
    "color": {
      "blue": {"500": {"$type": "color", "$value": "#3B82F6"}},
      "red":  {"500": {"$type": "color", "$value": "#EF4444"}}
    },
    "spacing": {"md": {"$type": "float", "$value": 16}}
  }}}},
  {"Semantic": {"modes": {
    "Light": {"bg": {"$type": "color", "$value": "{color.blue.500}", "$collectionName": "Primitives"}},
    "Dark":  {"bg": {"$type": "color", "$value": "{color.red.500}", "$collectionName": "Primitives"}}
  }, "$originalName": "Brand Semantic"}},
  {"_styles": {"colorStyles": [
    {"name": "Primary", "paints": [{"kind": "solid", "color": {"hex": "#3B82F6"}}]}
  ]}}
]`

func TestDocumentUnmarshal(t *testing.T) {
	var doc Document
	if err := json.Unmarshal([]byte(sampleDocument), &doc); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if len(doc.Collections) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(doc.Collections))
	}

	prims := doc.Collections[0]
	if prims.Name != "Primitives" {
		t.Errorf("expected first collection Primitives, got %q", prims.Name)
	}
	if got := prims.VariableCount(); got != 3 {
		t.Errorf("expected 3 variables in Primitives, got %d", got)
	}

	sem := doc.Collections[1]
	if sem.HostName() != "Brand Semantic" {
		t.Errorf("expected host name from $originalName, got %q", sem.HostName())
	}
	if len(sem.ModeOrder) != 2 || sem.ModeOrder[0] != "Light" || sem.ModeOrder[1] != "Dark" {
		t.Errorf("mode order not preserved: %v", sem.ModeOrder)
	}

	rec, ok := sem.Modes["Light"].Lookup("bg")
	if !ok {
		t.Fatal("bg not found in Light mode")
	}
	path, isAlias := rec.AliasPath()
	if !isAlias || path != "color/blue/500" {
		t.Errorf("expected alias to color/blue/500, got %q (alias=%v)", path, isAlias)
	}
	if rec.CollectionName != "Primitives" {
		t.Errorf("expected cross-collection name Primitives, got %q", rec.CollectionName)
	}

	if doc.Styles == nil || len(doc.Styles.ColorStyles) != 1 {
		t.Fatalf("expected 1 color style, got %+v", doc.Styles)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	var doc Document
	if err := json.Unmarshal([]byte(sampleDocument), &doc); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	encoded, err := json.Marshal(&doc)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var doc2 Document
	if err := json.Unmarshal(encoded, &doc2); err != nil {
		t.Fatalf("re-unmarshal failed: %v", err)
	}

	if len(doc2.Collections) != len(doc.Collections) {
		t.Fatalf("collection count changed: %d -> %d", len(doc.Collections), len(doc2.Collections))
	}
	for i := range doc.Collections {
		a, b := doc.Collections[i], doc2.Collections[i]
		if a.Name != b.Name {
			t.Errorf("collection %d name changed: %q -> %q", i, a.Name, b.Name)
		}
		if a.OriginalName != b.OriginalName {
			t.Errorf("collection %d original name changed: %q -> %q", i, a.OriginalName, b.OriginalName)
		}
		flat, flat2 := a.Modes[a.ModeOrder[0]].Flatten(), b.Modes[b.ModeOrder[0]].Flatten()
		if len(flat) != len(flat2) {
			t.Fatalf("collection %q leaf count changed: %d -> %d", a.Name, len(flat), len(flat2))
		}
		for j := range flat {
			if flat[j].Path != flat2[j].Path {
				t.Errorf("collection %q leaf %d path changed: %q -> %q", a.Name, j, flat[j].Path, flat2[j].Path)
			}
		}
	}
}

func TestDocumentRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not an array", `{"Primitives": {}}`},
		{"two keys per entry", `[{"A": {"modes": {}}, "B": {"modes": {}}}]`},
		{"missing modes", `[{"A": {"$originalName": "x"}}]`},
		{"duplicate styles", `[{"_styles": {}}, {"_styles": {}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc Document
			if err := json.Unmarshal([]byte(tt.input), &doc); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestFilterModes(t *testing.T) {
	var doc Document
	if err := json.Unmarshal([]byte(sampleDocument), &doc); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	sem := doc.Collections[1]
	sem.FilterModes([]string{"Dark"})

	if len(sem.ModeOrder) != 1 || sem.ModeOrder[0] != "Dark" {
		t.Fatalf("expected only Dark mode, got %v", sem.ModeOrder)
	}
	if _, ok := sem.Modes["Light"]; ok {
		t.Error("Light mode tree should have been dropped")
	}
	if _, ok := sem.Modes["Dark"]; !ok {
		t.Error("Dark mode tree missing")
	}
}

func TestLibraryRefs(t *testing.T) {
	input := `[
  {"Theme": {"modes": {"Default": {
    "accent": {"$type": "color", "$value": "{brand.primary}", "$libraryRef": "lib:brand-kit", "$localValue": "#112233"},
    "direct": {"$type": "color", "$value": "#000000"}
  }}}}
]`
	var doc Document
	if err := json.Unmarshal([]byte(input), &doc); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	refs := doc.LibraryRefs()
	if len(refs) != 1 || refs[0] != "lib:brand-kit" {
		t.Fatalf("expected [lib:brand-kit], got %v", refs)
	}
}
