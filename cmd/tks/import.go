package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tknatwork/tokensync/internal/config"
	"github.com/tknatwork/tokensync/internal/plan"
	"github.com/tknatwork/tokensync/internal/snapshot"
	tokensync "github.com/tknatwork/tokensync/internal/sync"
	"github.com/tknatwork/tokensync/internal/token"
	"github.com/tknatwork/tokensync/internal/ui"
)

var (
	importFormat    string
	importNoMerge   bool
	importNoUpdate  bool
	importClear     bool
	importClearVars bool
	importClearSty  bool
	importBehaviors []string
	importTier      string
	importYes       bool
	importNoUndo    bool
)

var importCmd = &cobra.Command{
	Use:   "import <document>",
	Short: "Import a token document into the store",
	Long: `Import a token document, reconciling collections, modes, variables,
aliases, and styles against the local store.

The document is validated against plan capacity limits first. When a
collection needs more modes than the plan allows, an interactive picker
offers a mode subset (skipped with --yes, which imports nothing for
overflowing collections unless --modes narrowed them already).

The store state before the import is saved as an undo snapshot; a failed
import rolls back automatically, and 'tks undo' restores it manually.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		source := args[0]
		doc, err := readDocument(source, importFormat)
		if err != nil {
			fail("%v", err)
		}

		h, closeHost, err := openHost()
		if err != nil {
			fail("%v", err)
		}
		defer closeHost()

		ctx := context.Background()

		tierName := importTier
		if tierName == "" {
			tierName = config.PlanTier()
		}
		tier, err := plan.ParseTier(tierName)
		if err != nil {
			fail("%v", err)
		}

		validation, err := plan.Validate(ctx, h, doc, tier)
		if err != nil {
			fail("validate: %v", err)
		}
		reportValidation(validation)
		if !validation.CanImport() {
			fail("import blocked by plan limits")
		}
		if err := applyModeOverflows(doc, validation); err != nil {
			fail("%v", err)
		}

		opts := tokensync.Options{
			Merge:     !importNoMerge,
			Overwrite: !importNoUpdate,
		}
		if importClear {
			opts.ClearFirst = true
		} else if importClearVars || importClearSty {
			opts.CustomMerge = &tokensync.CustomMerge{
				ClearVariables: importClearVars,
				ClearStyles:    importClearSty,
			}
		}
		opts.CollectionBehaviors, err = parseBehaviors(importBehaviors)
		if err != nil {
			fail("%v", err)
		}

		var stats *tokensync.Stats
		result := snapshot.Guard(ctx, h, nil, "import "+source, func(ctx context.Context) error {
			var err error
			stats, err = tokensync.Import(ctx, h, doc, opts)
			return err
		})

		switch result.Outcome {
		case snapshot.OutcomeSuccess:
			if !importNoUndo {
				if err := result.Snapshot.Save(config.UndoSnapshotPath()); err != nil {
					ui.Warning("could not save undo snapshot: %v", err)
				}
			}
			reportStats(stats)
		case snapshot.OutcomeRolledBack:
			fail("import failed and was rolled back: %v", result.OpErr)
		case snapshot.OutcomeRollbackFailed:
			ui.Error("import failed: %v", result.OpErr)
			fail("rollback also failed, store may be inconsistent: %v", result.RestoreErr)
		case snapshot.OutcomeNoSnapshot:
			fail("could not snapshot store, import not attempted: %v", result.OpErr)
		}
	},
}

func reportValidation(v *plan.Validation) {
	for _, e := range v.Errors {
		ui.Error("%s", e)
	}
	for _, w := range v.Warnings {
		ui.Warning("%s", w)
	}
	for _, ref := range v.LibraryRefs {
		ui.Muted(fmt.Sprintf("references library %s (alias targets must already exist)", ref))
	}
	for _, f := range v.RequiredFonts {
		ui.Warning("font not available: %s %s", f.Family, f.Style)
	}
}

// applyModeOverflows narrows overflowing collections to a mode subset,
// interactively unless --yes suppresses prompts.
func applyModeOverflows(doc *token.Document, v *plan.Validation) error {
	for _, overflow := range v.ModeOverflows {
		entry, ok := doc.Collection(overflow.Collection)
		if !ok {
			continue
		}
		if importYes {
			keep := overflow.Modes
			if len(keep) > overflow.Ceiling {
				keep = keep[:overflow.Ceiling]
			}
			ui.Warning("collection %q: importing first %d of %d modes", overflow.Collection, len(keep), overflow.Required)
			entry.FilterModes(keep)
			continue
		}

		var keep []string
		prompt := huh.NewMultiSelect[string]().
			Title(fmt.Sprintf("Collection %q needs %d modes; the plan allows %d. Pick modes to import:",
				overflow.Collection, overflow.Required, overflow.Ceiling)).
			Options(huh.NewOptions(overflow.Modes...)...).
			Limit(overflow.Ceiling).
			Value(&keep)
		if err := prompt.Run(); err != nil {
			return fmt.Errorf("mode selection: %w", err)
		}
		if len(keep) == 0 {
			return fmt.Errorf("collection %q: no modes selected", overflow.Collection)
		}
		entry.FilterModes(keep)
	}
	return nil
}

// parseBehaviors parses repeated "Collection=replace" values.
func parseBehaviors(specs []string) (map[string]tokensync.Behavior, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]tokensync.Behavior, len(specs))
	for _, spec := range specs {
		name, behavior, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("invalid behavior %q (want Collection=merge|replace)", spec)
		}
		switch tokensync.Behavior(behavior) {
		case tokensync.BehaviorMerge, tokensync.BehaviorReplace:
			out[name] = tokensync.Behavior(behavior)
		default:
			return nil, fmt.Errorf("unknown behavior %q for collection %q", behavior, name)
		}
	}
	return out, nil
}

func reportStats(s *tokensync.Stats) {
	ui.Success("import complete")
	ui.Info("  collections: %d created, %d updated, %d skipped",
		s.CollectionsCreated, s.CollectionsUpdated, s.CollectionsSkipped)
	ui.Info("  modes:       %d created, %d renamed", s.ModesCreated, s.ModesRenamed)
	ui.Info("  variables:   %d created, %d updated, %d skipped",
		s.VariablesCreated, s.VariablesUpdated, s.VariablesSkipped)
	ui.Info("  aliases:     %d resolved, %d unresolved", s.AliasesResolved, s.AliasesUnresolved)
	if s.StylesCreated+s.StylesUpdated+s.BindingsSkipped > 0 {
		ui.Info("  styles:      %d created, %d updated, %d bindings skipped",
			s.StylesCreated, s.StylesUpdated, s.BindingsSkipped)
	}
	if len(s.Errors) > 0 {
		ui.Warning("%d item(s) failed and were skipped:", len(s.Errors))
		for _, e := range s.Errors {
			ui.Muted("  " + e)
		}
	}
}

func init() {
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "document format (json, yaml, dtcg; default by extension)")
	importCmd.Flags().BoolVar(&importNoMerge, "no-merge", false, "skip collections that already exist")
	importCmd.Flags().BoolVar(&importNoUpdate, "no-update", false, "keep existing variable values")
	importCmd.Flags().BoolVar(&importClear, "clear", false, "clear all local collections and styles first")
	importCmd.Flags().BoolVar(&importClearVars, "clear-variables", false, "clear local collections first, keep styles")
	importCmd.Flags().BoolVar(&importClearSty, "clear-styles", false, "clear local styles first, keep collections")
	importCmd.Flags().StringArrayVar(&importBehaviors, "behavior", nil, "per-collection behavior (Collection=merge|replace)")
	importCmd.Flags().StringVar(&importTier, "tier", "", "plan tier (starter, professional, organization, enterprise; default autodetect)")
	importCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "never prompt; truncate overflowing mode sets")
	importCmd.Flags().BoolVar(&importNoUndo, "no-undo", false, "skip saving the undo snapshot")
	rootCmd.AddCommand(importCmd)
}
