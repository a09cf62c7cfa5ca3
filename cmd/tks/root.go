package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tknatwork/tokensync/internal/config"
	"github.com/tknatwork/tokensync/internal/dtcg"
	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/host/memhost"
	"github.com/tknatwork/tokensync/internal/host/sqlitehost"
	"github.com/tknatwork/tokensync/internal/token"
	"github.com/tknatwork/tokensync/internal/ui"
)

var (
	cfgFile   string
	storePath string
	plainOut  bool
)

var rootCmd = &cobra.Command{
	Use:   "tks",
	Short: "Design token synchronization for variable collections and styles",
	Long: `tks imports, exports, and diffs design token documents against a
local variable store.

Documents carry variable collections (with modes, nested paths, and
aliases) plus color, text, effect, and grid styles. Imports are
transactional: a failure rolls the store back to its pre-import state.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .tokensync.yaml)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "store database path (overrides config; \"memory\" for in-memory)")
	rootCmd.PersistentFlags().BoolVar(&plainOut, "plain", false, "disable styled output")
}

func initConfig() {
	config.InitDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tokensync")
	}

	viper.SetEnvPrefix("TKS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	if plainOut {
		ui.Plain = true
	}
}

// openHost opens the configured store backend.
func openHost() (host.Host, func(), error) {
	path := storePath
	if path == "" {
		path = config.StorePath()
	}
	if path == "" || path == "memory" {
		return memhost.New(), func() {}, nil
	}
	h, err := sqlitehost.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return h, func() { _ = h.Close() }, nil
}

// readDocument loads a document, picking the decoder from the --format
// flag or the file extension. "dtcg" routes through the W3C adapter.
func readDocument(path, format string) (*token.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if format == "" {
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			format = "yaml"
		case ".tokens", ".tokens.json":
			format = "dtcg"
		default:
			format = "json"
		}
	}
	if format == "dtcg" {
		return dtcg.Decode(data)
	}
	f, err := token.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return token.Decode(data, f)
}

func fail(format string, args ...any) {
	ui.Error(format, args...)
	os.Exit(1)
}
