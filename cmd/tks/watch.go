package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tknatwork/tokensync/internal/config"
	"github.com/tknatwork/tokensync/internal/daemon"
	"github.com/tknatwork/tokensync/internal/dashboard"
	tokensync "github.com/tknatwork/tokensync/internal/sync"
	"github.com/tknatwork/tokensync/internal/token"
	"github.com/tknatwork/tokensync/internal/ui"
)

var (
	watchFormat    string
	watchDashboard bool
	watchPort      int
)

var watchCmd = &cobra.Command{
	Use:   "watch <document>",
	Short: "Watch a token document and re-import on change",
	Long: `Watch a document file and re-import it whenever it changes, with
debouncing for rapid saves. Every re-import runs behind a snapshot
guard, so a bad save rolls back instead of corrupting the store.

With --dashboard, a WebSocket server broadcasts file events, import
results, and rollbacks to connected clients.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		h, closeHost, err := openHost()
		if err != nil {
			fail("%v", err)
		}
		defer closeHost()

		cfg := daemon.Config{
			DocumentPath:     args[0],
			DebounceInterval: config.DebounceInterval(),
			LogPath:          config.WatchLogPath(),
			ImportOptions:    tokensync.Options{Merge: true, Overwrite: true},
		}
		if watchFormat != "" {
			f, err := token.ParseFormat(watchFormat)
			if err != nil {
				fail("%v", err)
			}
			cfg.Format = f
		}

		var server *dashboard.Server
		if watchDashboard {
			port := watchPort
			if port == 0 {
				port = config.DashboardPort()
			}
			server = dashboard.NewServer(port, nil)
			if err := server.Start(); err != nil {
				fail("dashboard: %v", err)
			}
			defer func() { _ = server.Stop() }()
			cfg.Notifier = &dashboardNotifier{server: server}
			ui.Info("dashboard: ws://%s/ws", server.Addr())
		}

		d, err := daemon.New(h, cfg)
		if err != nil {
			fail("%v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ui.Info("watching %s (ctrl-c to stop)", args[0])
		if err := d.Start(ctx); err != nil && ctx.Err() == nil {
			fail("watch: %v", err)
		}
	},
}

// dashboardNotifier bridges daemon events onto the WebSocket feed.
type dashboardNotifier struct {
	server *dashboard.Server
}

func (n *dashboardNotifier) FileChanged(path, op string) {
	n.server.Broadcast(dashboard.Envelope(dashboard.MessageTypeWatch, dashboard.WatchData{
		Path: path,
		Op:   op,
	}))
}

func (n *dashboardNotifier) ImportFinished(source string, stats *tokensync.Stats, elapsed time.Duration) {
	n.server.Broadcast(dashboard.Envelope(dashboard.MessageTypeImport, dashboard.ImportData{
		Source:             source,
		CollectionsCreated: stats.CollectionsCreated,
		CollectionsUpdated: stats.CollectionsUpdated,
		VariablesCreated:   stats.VariablesCreated,
		VariablesUpdated:   stats.VariablesUpdated,
		AliasesResolved:    stats.AliasesResolved,
		AliasesUnresolved:  stats.AliasesUnresolved,
		StylesCreated:      stats.StylesCreated,
		StylesUpdated:      stats.StylesUpdated,
		Errors:             len(stats.Errors),
		Duration:           elapsed.Round(time.Millisecond).String(),
	}))
}

func (n *dashboardNotifier) RolledBack(source, reason, outcome string) {
	n.server.Broadcast(dashboard.Envelope(dashboard.MessageTypeRollback, dashboard.RollbackData{
		Source:  source,
		Reason:  reason,
		Outcome: outcome,
	}))
}

func init() {
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", "", "document format (json, yaml; default by extension)")
	watchCmd.Flags().BoolVar(&watchDashboard, "dashboard", false, "serve the WebSocket dashboard")
	watchCmd.Flags().IntVar(&watchPort, "port", 0, "dashboard port (default from config)")
	rootCmd.AddCommand(watchCmd)
}
