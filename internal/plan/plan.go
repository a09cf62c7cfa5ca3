// Package plan validates an inbound document against the host plan's
// capacity limits before any import runs. Hard limits block the import;
// mode overflows are surfaced per collection so the caller can offer a
// subset; everything else is advisory.
package plan

import (
	"context"
	"fmt"

	"github.com/tknatwork/tokensync/internal/entity"
	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/token"
)

// Tier names a host plan level.
type Tier string

const (
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierOrganization Tier = "organization"
	TierEnterprise   Tier = "enterprise"
)

// MaxVariablesPerCollection is the hard per-collection ceiling that every
// tier shares.
const MaxVariablesPerCollection = 5000

// Advisory thresholds. Crossing one produces a warning, never a block.
const (
	warnVariableCount   = 1000
	warnCollectionCount = 10
)

var modeCeilings = map[Tier]int{
	TierStarter:      1,
	TierProfessional: 4,
	TierOrganization: 40,
	TierEnterprise:   40,
}

// ParseTier parses a tier name. Empty means autodetect.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierStarter, TierProfessional, TierOrganization, TierEnterprise:
		return Tier(s), nil
	case "":
		return "", nil
	}
	return "", fmt.Errorf("unknown plan tier %q", s)
}

// ModeCeiling returns the tier's per-collection mode limit.
func (t Tier) ModeCeiling() int {
	if n, ok := modeCeilings[t]; ok {
		return n
	}
	return modeCeilings[TierStarter]
}

// DetectTier infers the lowest tier consistent with what the store already
// holds: if any local collection has more modes than a tier allows, the
// plan must be at least the next one up.
func DetectTier(es *entity.Store) Tier {
	max := es.MaxModeCount()
	switch {
	case max <= modeCeilings[TierStarter]:
		return TierStarter
	case max <= modeCeilings[TierProfessional]:
		return TierProfessional
	}
	return TierOrganization
}

// ModeOverflow names one collection whose required mode count exceeds the
// tier ceiling. Required counts modes already live plus modes the document
// adds.
type ModeOverflow struct {
	Collection string   `json:"collection"`
	Required   int      `json:"required"`
	Ceiling    int      `json:"ceiling"`
	Modes      []string `json:"modes"`
}

// Validation is the outcome of checking one document against one tier.
type Validation struct {
	Tier          Tier           `json:"tier"`
	Errors        []string       `json:"errors,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
	ModeOverflows []ModeOverflow `json:"modeOverflows,omitempty"`

	// LibraryRefs lists remote libraries the document's aliases point at.
	// Purely informational.
	LibraryRefs []string `json:"libraryRefs,omitempty"`

	// RequiredFonts lists fonts the document's text styles need but the
	// host reports missing.
	RequiredFonts []token.FontRef `json:"requiredFonts,omitempty"`
}

// CanImport reports whether the document may be imported as-is. Mode
// overflows do not block: the importer can proceed with a mode subset.
func (v *Validation) CanImport() bool {
	return len(v.Errors) == 0
}

// Validate checks the document against the tier's limits. When tier is
// empty it is detected from the live store.
func Validate(ctx context.Context, h host.Host, doc *token.Document, tier Tier) (*Validation, error) {
	es, err := entity.Rebuild(ctx, h)
	if err != nil {
		return nil, err
	}
	if tier == "" {
		tier = DetectTier(es)
	}
	v := &Validation{Tier: tier}

	totalVars := 0
	for _, entry := range doc.Collections {
		count := entry.VariableCount()
		totalVars += count
		if count > MaxVariablesPerCollection {
			v.Errors = append(v.Errors, fmt.Sprintf(
				"collection %q has %d variables, over the hard limit of %d",
				entry.Name, count, MaxVariablesPerCollection))
		}
		checkModes(v, es, entry, tier)
	}

	if totalVars > warnVariableCount {
		v.Warnings = append(v.Warnings, fmt.Sprintf(
			"document carries %d variables; imports this large can be slow", totalVars))
	}
	if len(doc.Collections) > warnCollectionCount {
		v.Warnings = append(v.Warnings, fmt.Sprintf(
			"document carries %d collections", len(doc.Collections)))
	}

	v.LibraryRefs = doc.LibraryRefs()
	if !doc.Styles.Empty() {
		for _, f := range doc.Styles.RequiredFonts() {
			ok, err := h.HasFont(ctx, f.Family, f.Style)
			if err != nil {
				return nil, fmt.Errorf("font check %s %s: %w", f.Family, f.Style, err)
			}
			if !ok {
				v.RequiredFonts = append(v.RequiredFonts, f)
			}
		}
	}
	return v, nil
}

// checkModes computes the post-import mode count for the entry's target
// collection and records an overflow when it would exceed the tier ceiling.
func checkModes(v *Validation, es *entity.Store, entry *token.CollectionEntry, tier Tier) {
	ceiling := tier.ModeCeiling()

	required := make(map[string]bool, len(entry.ModeOrder))
	for _, m := range entry.ModeOrder {
		required[m] = true
	}
	if c, ok := es.Collection(entry.HostName()); ok {
		for _, m := range c.Modes {
			required[m.Name] = true
		}
	}
	if len(required) <= ceiling {
		return
	}
	v.ModeOverflows = append(v.ModeOverflows, ModeOverflow{
		Collection: entry.Name,
		Required:   len(required),
		Ceiling:    ceiling,
		Modes:      append([]string(nil), entry.ModeOrder...),
	})
	v.Warnings = append(v.Warnings, fmt.Sprintf(
		"collection %q needs %d modes but the %s plan allows %d",
		entry.Name, len(required), tier, ceiling))
}
