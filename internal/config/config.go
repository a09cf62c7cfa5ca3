// Package config exposes typed accessors over the viper-backed settings
// file (.tokensync.yaml). Defaults are registered once by InitDefaults.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// InitDefaults registers default values. Called from the root command
// before the config file is read so the file only needs to list overrides.
func InitDefaults() {
	viper.SetDefault("store.path", ".tokensync/store.db")
	viper.SetDefault("naming.convention", "original")
	viper.SetDefault("plan.tier", "")
	viper.SetDefault("watch.debounce", "500ms")
	viper.SetDefault("watch.log_path", "")
	viper.SetDefault("dashboard.port", 4477)
	viper.SetDefault("snapshot.undo_path", ".tokensync/last-import.snapshot.json")
}

// StorePath returns the SQLite store location. Empty selects the in-memory
// host.
func StorePath() string {
	return viper.GetString("store.path")
}

// NamingConvention returns the export naming convention name.
func NamingConvention() string {
	return viper.GetString("naming.convention")
}

// PlanTier returns the configured plan tier; empty means autodetect.
func PlanTier() string {
	return viper.GetString("plan.tier")
}

// DebounceInterval returns the watch debounce window.
func DebounceInterval() time.Duration {
	d := viper.GetDuration("watch.debounce")
	if d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// WatchLogPath returns the rotated log file for watch mode; empty means
// stderr.
func WatchLogPath() string {
	return viper.GetString("watch.log_path")
}

// DashboardPort returns the dashboard listen port.
func DashboardPort() int {
	return viper.GetInt("dashboard.port")
}

// UndoSnapshotPath returns where the pre-import snapshot is saved for
// `tks undo`.
func UndoSnapshotPath() string {
	return viper.GetString("snapshot.undo_path")
}
