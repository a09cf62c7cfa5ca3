package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tknatwork/tokensync/internal/config"
	"github.com/tknatwork/tokensync/internal/naming"
	tokensync "github.com/tknatwork/tokensync/internal/sync"
	"github.com/tknatwork/tokensync/internal/token"
	"github.com/tknatwork/tokensync/internal/ui"
)

var (
	exportOutput      string
	exportFormat      string
	exportCollections []string
	exportModes       []string
	exportStyles      bool
	exportResolve     bool
	exportEmbed       bool
	exportConvention  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the store to a token document",
	Long: `Export local variable collections (and optionally styles) to a
token document.

By default aliases are exported as references ({collection.path}); use
--resolve to flatten every alias to its terminal value. Mode subsets are
selected per collection with --modes "Collection:Mode1,Mode2".`,
	Run: func(cmd *cobra.Command, args []string) {
		h, closeHost, err := openHost()
		if err != nil {
			fail("%v", err)
		}
		defer closeHost()

		conventionName := exportConvention
		if conventionName == "" {
			conventionName = config.NamingConvention()
		}
		convention, err := naming.Parse(conventionName)
		if err != nil {
			fail("%v", err)
		}

		modes, err := parseModeSelections(exportModes)
		if err != nil {
			fail("%v", err)
		}

		doc, err := tokensync.Export(context.Background(), h, tokensync.ExportOptions{
			Collections:    exportCollections,
			Modes:          modes,
			IncludeStyles:  exportStyles,
			ResolveAliases: exportResolve,
			EmbedImages:    exportEmbed,
			Convention:     convention,
		})
		if err != nil {
			fail("export: %v", err)
		}

		format, err := token.ParseFormat(exportFormat)
		if err != nil {
			fail("%v", err)
		}
		data, err := token.Encode(doc, format)
		if err != nil {
			fail("encode document: %v", err)
		}

		if exportOutput == "" || exportOutput == "-" {
			fmt.Print(string(data))
			return
		}
		if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
			fail("write %s: %v", exportOutput, err)
		}
		total := 0
		for _, c := range doc.Collections {
			total += c.VariableCount()
		}
		ui.Success("exported %d collections, %d variables to %s", len(doc.Collections), total, exportOutput)
	},
}

// parseModeSelections parses repeated "Collection:ModeA,ModeB" values.
func parseModeSelections(specs []string) (map[string][]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(specs))
	for _, spec := range specs {
		name, modes, ok := strings.Cut(spec, ":")
		if !ok || name == "" || modes == "" {
			return nil, fmt.Errorf("invalid mode selection %q (want Collection:ModeA,ModeB)", spec)
		}
		out[name] = strings.Split(modes, ",")
	}
	return out, nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format (json, yaml)")
	exportCmd.Flags().StringSliceVar(&exportCollections, "collections", nil, "restrict to named collections")
	exportCmd.Flags().StringArrayVar(&exportModes, "modes", nil, "mode subset per collection (Collection:ModeA,ModeB)")
	exportCmd.Flags().BoolVar(&exportStyles, "styles", true, "include styles")
	exportCmd.Flags().BoolVar(&exportResolve, "resolve", false, "resolve aliases to terminal values")
	exportCmd.Flags().BoolVar(&exportEmbed, "embed-images", false, "embed image paint data")
	exportCmd.Flags().StringVar(&exportConvention, "naming", "", "naming convention (original, camel, pascal, kebab, snake, lower)")
	rootCmd.AddCommand(exportCmd)
}
