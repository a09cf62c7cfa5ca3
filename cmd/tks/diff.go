package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tknatwork/tokensync/internal/diff"
	"github.com/tknatwork/tokensync/internal/ui"
)

var (
	diffFormat string
	diffJSON   bool
	diffAll    bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <document>",
	Short: "Compare a token document against the store",
	Long: `Classify everything in a document as new, modified, or unchanged
relative to the local store, without changing anything.

Unchanged entries are hidden unless --all is set. --json emits the full
machine-readable result.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := readDocument(args[0], diffFormat)
		if err != nil {
			fail("%v", err)
		}

		h, closeHost, err := openHost()
		if err != nil {
			fail("%v", err)
		}
		defer closeHost()

		result, err := diff.Compare(context.Background(), h, doc)
		if err != nil {
			fail("diff: %v", err)
		}

		if diffJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				fail("encode result: %v", err)
			}
			return
		}
		renderDiff(result)
	},
}

func renderDiff(r *diff.Result) {
	for _, cd := range r.Collections {
		if cd.State == diff.StateUnchanged && !diffAll {
			continue
		}
		ui.Title(fmt.Sprintf("%s (%s)", cd.Name, cd.State))
		for _, vd := range cd.Variables {
			switch vd.State {
			case diff.StateNew:
				ui.Info("  + %s", vd.Path)
			case diff.StateModified:
				ui.Info("  ~ %s  %s -> %s", vd.Path, vd.Old, vd.New)
			default:
				if diffAll {
					ui.Muted("    " + vd.Path)
				}
			}
		}
	}
	for _, sd := range r.Styles {
		marker := "+"
		if sd.State == diff.StateModified {
			marker = "~"
		}
		ui.Info("  %s %s style %q", marker, sd.Kind, sd.Name)
	}

	s := r.Summary
	ui.Info("collections: %d new, %d modified, %d unchanged",
		s.NewCollections, s.ModifiedCollections, s.UnchangedCollections)
	ui.Info("variables:   %d new, %d modified, %d unchanged",
		s.NewVariables, s.ModifiedVariables, s.UnchangedVariables)
	if s.NewStyles+s.ModifiedStyles > 0 {
		ui.Info("styles:      %d new, %d modified", s.NewStyles, s.ModifiedStyles)
	}
}

func init() {
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "", "document format (json, yaml, dtcg; default by extension)")
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "emit JSON")
	diffCmd.Flags().BoolVar(&diffAll, "all", false, "show unchanged entries too")
	rootCmd.AddCommand(diffCmd)
}
