package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/tknatwork/tokensync/internal/config"
	"github.com/tknatwork/tokensync/internal/plan"
	"github.com/tknatwork/tokensync/internal/ui"
)

var (
	validateFormat string
	validateTier   string
	validateJSON   bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <document>",
	Short: "Check a token document against plan capacity limits",
	Long: `Validate a document without importing it: hard per-collection
variable ceilings, per-tier mode limits, size warnings, library
references, and missing fonts.

Exits non-zero when the document could not be imported as-is.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := readDocument(args[0], validateFormat)
		if err != nil {
			fail("%v", err)
		}

		h, closeHost, err := openHost()
		if err != nil {
			fail("%v", err)
		}
		defer closeHost()

		tierName := validateTier
		if tierName == "" {
			tierName = config.PlanTier()
		}
		tier, err := plan.ParseTier(tierName)
		if err != nil {
			fail("%v", err)
		}

		v, err := plan.Validate(context.Background(), h, doc, tier)
		if err != nil {
			fail("validate: %v", err)
		}

		if validateJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(v); err != nil {
				fail("encode result: %v", err)
			}
		} else {
			reportValidation(v)
			if v.CanImport() {
				ui.Success("document fits the %s plan", v.Tier)
			}
		}
		if !v.CanImport() {
			os.Exit(1)
		}
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", "", "document format (json, yaml, dtcg; default by extension)")
	validateCmd.Flags().StringVar(&validateTier, "tier", "", "plan tier (default autodetect)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "emit JSON")
	rootCmd.AddCommand(validateCmd)
}
