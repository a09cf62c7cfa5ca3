package sync

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/tknatwork/tokensync/internal/colorconv"
	"github.com/tknatwork/tokensync/internal/entity"
	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/token"
)

// Behavior is a per-collection import policy.
type Behavior string

const (
	// BehaviorMerge reuses an existing collection (the default).
	BehaviorMerge Behavior = "merge"
	// BehaviorReplace deletes and recreates the collection fresh.
	BehaviorReplace Behavior = "replace"
)

// CustomMerge selectively wipes parts of the store before import.
type CustomMerge struct {
	ClearVariables bool
	ClearStyles    bool
}

// Options controls the import reconciler.
type Options struct {
	// Merge allows importing into collections that already exist. When
	// false, an existing collection is skipped entirely.
	Merge bool

	// Overwrite allows updating variables that already exist. When false
	// an existing variable keeps its value and is counted skipped.
	Overwrite bool

	// ClearFirst wipes all local collections and styles before importing.
	ClearFirst bool

	// CustomMerge wipes variables and/or styles selectively. Ignored when
	// ClearFirst is set.
	CustomMerge *CustomMerge

	// CollectionBehaviors overrides the policy per document collection
	// name. Unlisted collections default to merge.
	CollectionBehaviors map[string]Behavior

	// Logger receives per-item warnings. Defaults to stderr.
	Logger *log.Logger
}

// Stats reports what an import did. Errors holds per-item failures that
// were isolated rather than aborting the run.
type Stats struct {
	CollectionsCreated int `json:"collections_created"`
	CollectionsUpdated int `json:"collections_updated"`
	CollectionsSkipped int `json:"collections_skipped"`
	ModesCreated       int `json:"modes_created"`
	ModesRenamed       int `json:"modes_renamed"`
	VariablesCreated   int `json:"variables_created"`
	VariablesUpdated   int `json:"variables_updated"`
	VariablesSkipped   int `json:"variables_skipped"`
	AliasesResolved    int `json:"aliases_resolved"`
	AliasesUnresolved  int `json:"aliases_unresolved"`
	StylesCreated      int `json:"styles_created"`
	StylesUpdated      int `json:"styles_updated"`
	BindingsSkipped    int `json:"bindings_skipped"`

	Errors []string `json:"errors,omitempty"`
}

// pendingAlias is one deferred alias write, queued during Pass 1 and
// consumed by Pass 2. The variable is captured by identity because the
// entity index is rebuilt between the passes.
type pendingAlias struct {
	variableID string
	modeID     string
	collection string // document-format collection name
	path       string
}

type importer struct {
	h      host.Host
	es     *entity.Store
	opts   Options
	logger *log.Logger
	stats  *Stats
}

// Import reconciles a document into the live store. It returns statistics
// on success; an error return means the run aborted and the caller should
// roll back via its pre-taken snapshot.
func Import(ctx context.Context, h host.Host, doc *token.Document, opts Options) (*Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[import] ", log.LstdFlags)
	}
	imp := &importer{h: h, opts: opts, logger: logger, stats: &Stats{}}
	if err := imp.run(ctx, doc); err != nil {
		return imp.stats, err
	}
	return imp.stats, nil
}

func (imp *importer) run(ctx context.Context, doc *token.Document) error {
	if err := imp.preClear(ctx); err != nil {
		return err
	}

	// Clearing (and any prior session) invalidated cached handles, so the
	// index is built fresh before Pass 1.
	es, err := entity.Rebuild(ctx, imp.h)
	if err != nil {
		return fmt.Errorf("failed to build entity index: %w", err)
	}
	imp.es = es

	// Pass 1: raw values for every collection in the document. Alias leaves
	// come back on the worklist.
	var pending []pendingAlias
	for _, entry := range doc.Collections {
		p, err := imp.importCollection(ctx, entry)
		if err != nil {
			return fmt.Errorf("collection %q: %w", entry.Name, err)
		}
		pending = append(pending, p...)
	}

	// Pass 2 only starts once every collection finished Pass 1; a rebuild
	// makes the newly created variables visible for lookup.
	imp.es.Invalidate()
	es, err = entity.Rebuild(ctx, imp.h)
	if err != nil {
		return fmt.Errorf("failed to rebuild entity index for alias pass: %w", err)
	}
	imp.es = es
	imp.wireAliases(ctx, doc, pending)

	if !doc.Styles.Empty() {
		imp.es.Invalidate()
		es, err = entity.Rebuild(ctx, imp.h)
		if err != nil {
			return fmt.Errorf("failed to rebuild entity index for styles: %w", err)
		}
		imp.es = es
		imp.importStyles(ctx, doc.Styles)
	}

	imp.logger.Printf("import complete: collections=%d/%d/%d vars=%d/%d/%d aliases=%d resolved %d unresolved errors=%d",
		imp.stats.CollectionsCreated, imp.stats.CollectionsUpdated, imp.stats.CollectionsSkipped,
		imp.stats.VariablesCreated, imp.stats.VariablesUpdated, imp.stats.VariablesSkipped,
		imp.stats.AliasesResolved, imp.stats.AliasesUnresolved, len(imp.stats.Errors))
	return nil
}

// preClear applies ClearFirst or CustomMerge before anything else touches
// the store.
func (imp *importer) preClear(ctx context.Context) error {
	clearVars := imp.opts.ClearFirst
	clearStyles := imp.opts.ClearFirst
	if !imp.opts.ClearFirst && imp.opts.CustomMerge != nil {
		clearVars = imp.opts.CustomMerge.ClearVariables
		clearStyles = imp.opts.CustomMerge.ClearStyles
	}
	if clearVars {
		collections, err := imp.h.Collections(ctx)
		if err != nil {
			return fmt.Errorf("failed to enumerate collections for clearing: %w", err)
		}
		for _, c := range collections {
			if c.Remote {
				continue
			}
			if err := imp.h.RemoveCollection(ctx, c.ID); err != nil {
				return fmt.Errorf("failed to clear collection %q: %w", c.Name, err)
			}
		}
	}
	if clearStyles {
		for _, kind := range token.StyleKinds {
			styles, err := imp.h.Styles(ctx, kind)
			if err != nil {
				return fmt.Errorf("failed to enumerate %s styles for clearing: %w", kind, err)
			}
			for _, s := range styles {
				if err := imp.h.RemoveStyle(ctx, s.ID); err != nil {
					return fmt.Errorf("failed to clear style %q: %w", s.Name, err)
				}
			}
		}
	}
	return nil
}

func (imp *importer) itemError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	imp.logger.Printf("WARNING: %s", msg)
	imp.stats.Errors = append(imp.stats.Errors, msg)
}

// importCollection performs Pass 1 for one document entry and returns the
// deferred alias writes it queued.
func (imp *importer) importCollection(ctx context.Context, entry *token.CollectionEntry) ([]pendingAlias, error) {
	hostName := entry.HostName()
	behavior := BehaviorMerge
	if b, ok := imp.opts.CollectionBehaviors[entry.Name]; ok {
		behavior = b
	}

	c, exists := imp.es.Collection(hostName)
	switch {
	case exists && behavior == BehaviorReplace:
		if err := imp.h.RemoveCollection(ctx, c.ID); err != nil {
			imp.itemError("failed to replace collection %q: %v", hostName, err)
			imp.stats.CollectionsSkipped++
			return nil, nil
		}
		fresh, err := imp.h.CreateCollection(ctx, hostName)
		if err != nil {
			imp.itemError("failed to recreate collection %q: %v", hostName, err)
			imp.stats.CollectionsSkipped++
			return nil, nil
		}
		imp.es.PutCollection(fresh)
		c = fresh
		imp.stats.CollectionsCreated++
	case exists && !imp.opts.Merge:
		imp.logger.Printf("collection %q exists and merge is off, skipping", hostName)
		imp.stats.CollectionsSkipped++
		return nil, nil
	case exists:
		imp.stats.CollectionsUpdated++
	default:
		fresh, err := imp.h.CreateCollection(ctx, hostName)
		if err != nil {
			imp.itemError("failed to create collection %q: %v", hostName, err)
			imp.stats.CollectionsSkipped++
			return nil, nil
		}
		imp.es.PutCollection(fresh)
		c = fresh
		imp.stats.CollectionsCreated++
	}

	modeIDs := imp.reconcileModes(ctx, c, entry.ModeOrder)

	_, template, ok := entry.FirstMode()
	if !ok {
		imp.itemError("collection %q has no modes in the document", entry.Name)
		return nil, nil
	}

	var pending []pendingAlias
	for _, pv := range template.Flatten() {
		p := imp.importVariable(ctx, c, entry, modeIDs, pv)
		pending = append(pending, p...)
	}
	return pending, nil
}

// reconcileModes makes the live collection carry every required mode and
// returns the mode name -> ID map. The sole pristine default mode is
// renamed to the first required name; otherwise missing modes are added.
// Failures are isolated: a mode that could not be set up is simply absent
// from the returned map.
func (imp *importer) reconcileModes(ctx context.Context, c *host.Collection, required []string) map[string]string {
	pristine := len(c.Modes) == 1 &&
		c.Modes[0].Name == host.DefaultModeName &&
		len(imp.es.Variables(c.Name)) == 0

	if pristine && len(required) > 0 && required[0] != host.DefaultModeName {
		if err := imp.h.RenameMode(ctx, c.ID, c.Modes[0].ID, required[0]); err != nil {
			imp.itemError("failed to rename default mode of %q: %v", c.Name, err)
		} else {
			c.Modes[0].Name = required[0]
			imp.stats.ModesRenamed++
		}
	}

	modeIDs := make(map[string]string, len(required))
	for _, name := range required {
		if m, ok := c.Mode(name); ok {
			modeIDs[name] = m.ID
			continue
		}
		m, err := imp.h.AddMode(ctx, c.ID, name)
		if err != nil {
			imp.itemError("failed to add mode %q to %q: %v", name, c.Name, err)
			continue
		}
		c.Modes = append(c.Modes, *m)
		modeIDs[name] = m.ID
		imp.stats.ModesCreated++
	}
	return modeIDs
}

// importVariable performs Pass 1 for one path: resolve or create the
// variable, then write each required mode's value, literals immediately
// and alias leaves as placeholder fallback plus a pending record.
func (imp *importer) importVariable(ctx context.Context, c *host.Collection, entry *token.CollectionEntry, modeIDs map[string]string, pv token.PathValue) []pendingAlias {
	typ, err := token.ParseVariableType(string(pv.Leaf.Type))
	if err != nil {
		imp.itemError("variable %q in %q: %v", pv.Path, entry.Name, err)
		return nil
	}

	v, exists := imp.es.Variable(c.Name, pv.Path)
	switch {
	case exists && !imp.opts.Overwrite:
		imp.stats.VariablesSkipped++
		return nil
	case exists && v.Type != typ:
		imp.itemError("variable %q in %q: existing type %s does not match incoming %s",
			pv.Path, entry.Name, v.Type, typ)
		return nil
	case exists:
		imp.stats.VariablesUpdated++
	default:
		created, err := imp.h.CreateVariable(ctx, c.ID, pv.Path, typ)
		if err != nil {
			imp.itemError("failed to create variable %q in %q: %v", pv.Path, entry.Name, err)
			return nil
		}
		// Single-entry cache update: provably safe, nothing structural
		// happened besides this one create.
		imp.es.Put(c.Name, created)
		v = created
		imp.stats.VariablesCreated++
	}

	if pv.Leaf.Description != "" || len(pv.Leaf.Scopes) > 0 {
		if err := imp.h.SetVariableMeta(ctx, v.ID, pv.Leaf.Description, pv.Leaf.Scopes); err != nil {
			imp.itemError("failed to set metadata of %q in %q: %v", pv.Path, entry.Name, err)
		}
	}

	var pending []pendingAlias
	for _, modeName := range entry.ModeOrder {
		modeID, ok := modeIDs[modeName]
		if !ok {
			continue // mode setup failed, already counted
		}
		leaf := pv.Leaf
		if rec, ok := entry.Modes[modeName].Lookup(pv.Path); ok {
			leaf = rec
		}

		aliasPath, isAlias := leaf.AliasPath()
		if !isAlias {
			val, err := decodeScalar(leaf.Value, typ)
			if err != nil {
				imp.itemError("variable %q mode %q in %q: %v", pv.Path, modeName, entry.Name, err)
				continue
			}
			if err := imp.h.SetValue(ctx, v.ID, modeID, val); err != nil {
				imp.itemError("failed to set %q mode %q in %q: %v", pv.Path, modeName, entry.Name, err)
			}
			continue
		}

		// Alias leaf: write the carried fallback right now so the variable
		// never sits without a value, and defer the real wiring to Pass 2.
		fallback := fallbackScalar(leaf, typ)
		if err := imp.h.SetValue(ctx, v.ID, modeID, fallback); err != nil {
			imp.itemError("failed to set placeholder for %q mode %q in %q: %v", pv.Path, modeName, entry.Name, err)
			continue
		}
		aliasCollection := leaf.CollectionName
		if aliasCollection == "" {
			aliasCollection = entry.Name
		}
		pending = append(pending, pendingAlias{
			variableID: v.ID,
			modeID:     modeID,
			collection: aliasCollection,
			path:       aliasPath,
		})
	}
	return pending
}

// wireAliases consumes the Pass-1 worklist. Alias collection names are
// document names; entries present in the document map back to their host
// names before lookup.
func (imp *importer) wireAliases(ctx context.Context, doc *token.Document, pending []pendingAlias) {
	hostNames := make(map[string]string, len(doc.Collections))
	for _, entry := range doc.Collections {
		hostNames[entry.Name] = entry.HostName()
	}

	for _, p := range pending {
		collection := p.collection
		if hn, ok := hostNames[collection]; ok {
			collection = hn
		}
		target, ok := imp.es.Variable(collection, p.path)
		if !ok {
			// Target never materialized: external library not connected, or
			// a stale reference. The placeholder fallback stays in place.
			imp.stats.AliasesUnresolved++
			continue
		}
		if err := imp.h.SetValue(ctx, p.variableID, p.modeID, host.AliasValue{TargetID: target.ID}); err != nil {
			imp.itemError("failed to wire alias to %s/%s: %v", collection, p.path, err)
			continue
		}
		imp.stats.AliasesResolved++
	}
}

// decodeScalar converts a wire literal into a live raw value of the
// declared type.
func decodeScalar(raw any, typ token.VariableType) (host.Value, error) {
	switch typ {
	case token.TypeColor:
		rec := token.ValueRecord{Type: typ, Value: raw}
		bundle, ok := rec.Color()
		if !ok {
			return nil, fmt.Errorf("expected a color literal, got %T", raw)
		}
		c, err := colorconv.FromBundle(bundle)
		if err != nil {
			return nil, err
		}
		return host.ColorValue{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	case token.TypeFloat:
		f, ok := token.FloatValue(raw)
		if !ok {
			return nil, fmt.Errorf("expected a number, got %T", raw)
		}
		return host.FloatValue(f), nil
	case token.TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", raw)
		}
		return host.StringValue(s), nil
	case token.TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got %T", raw)
		}
		return host.BoolValue(b), nil
	}
	return nil, fmt.Errorf("unknown variable type %s", typ)
}

// fallbackScalar picks the placeholder for an alias leaf: the carried
// $localValue when present, the type's zero value otherwise.
func fallbackScalar(leaf *token.ValueRecord, typ token.VariableType) host.Value {
	if leaf.LocalValue != nil {
		if v, err := decodeScalar(leaf.LocalValue, typ); err == nil {
			return v
		}
	}
	return host.ZeroValue(typ)
}
