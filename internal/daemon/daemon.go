// Package daemon watches a token document on disk and re-imports it on
// change. Each re-import runs behind a snapshot guard, so a document that
// fails partway never leaves the store in a half-imported state.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/snapshot"
	tokensync "github.com/tknatwork/tokensync/internal/sync"
	"github.com/tknatwork/tokensync/internal/token"
)

// Notifier receives lifecycle events from the daemon. The dashboard
// implements this; a nil notifier is fine.
type Notifier interface {
	FileChanged(path, op string)
	ImportFinished(source string, stats *tokensync.Stats, elapsed time.Duration)
	RolledBack(source, reason, outcome string)
}

// Config holds daemon configuration.
type Config struct {
	// DocumentPath is the token document to watch and re-import.
	DocumentPath string

	// Format of the watched document. Empty means infer from the extension.
	Format token.Format

	// DebounceInterval batches rapid saves before re-importing.
	DebounceInterval time.Duration

	// ImportOptions are applied to every re-import. The logger field is
	// overridden with the daemon's own.
	ImportOptions tokensync.Options

	// LogPath, when set, routes daemon logs to a size-rotated file instead
	// of stderr.
	LogPath string

	// Notifier receives events. May be nil.
	Notifier Notifier
}

// Daemon watches one document file and keeps the store in sync with it.
type Daemon struct {
	h      host.Host
	cfg    Config
	logger *log.Logger

	watcher *fsnotify.Watcher

	changeMu  sync.Mutex
	changedAt time.Time
	dirty     bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon. Start begins watching.
func New(h host.Host, cfg Config) (*Daemon, error) {
	if cfg.DocumentPath == "" {
		return nil, fmt.Errorf("document path cannot be empty")
	}
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = 500 * time.Millisecond
	}
	if cfg.Format == "" {
		f, err := token.ParseFormat(formatFromExt(cfg.DocumentPath))
		if err != nil {
			return nil, fmt.Errorf("cannot infer document format from %s: %w", cfg.DocumentPath, err)
		}
		cfg.Format = f
	}

	var out io.Writer = os.Stderr
	if cfg.LogPath != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	}
	logger := log.New(out, "[watch] ", log.LstdFlags)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	return &Daemon{h: h, cfg: cfg, logger: logger, watcher: watcher}, nil
}

func formatFromExt(path string) string {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// Start performs an initial import and then blocks, re-importing on every
// change, until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	defer cancel()

	d.logger.Printf("watching %s", d.cfg.DocumentPath)
	if err := d.reimport(ctx); err != nil {
		return fmt.Errorf("initial import: %w", err)
	}

	// Watch the parent directory: editors replace files via rename, which
	// drops a watch placed on the file itself.
	dir := filepath.Dir(d.cfg.DocumentPath)
	if err := d.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	d.wg.Add(2)
	go d.watchFileEvents(ctx)
	go d.processChanges(ctx)

	<-ctx.Done()
	_ = d.watcher.Close()
	d.wg.Wait()
	d.logger.Println("watch stopped")
	return nil
}

// Stop cancels a running daemon.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}

func (d *Daemon) watchFileEvents(ctx context.Context) {
	defer d.wg.Done()

	target, _ := filepath.Abs(d.cfg.DocumentPath)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || abs != target {
				continue
			}
			d.logger.Printf("file event: %s %s", event.Op, event.Name)
			if d.cfg.Notifier != nil {
				d.cfg.Notifier.FileChanged(event.Name, event.Op.String())
			}
			d.markDirty()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Printf("watcher error: %v", err)
		}
	}
}

func (d *Daemon) markDirty() {
	d.changeMu.Lock()
	d.dirty = true
	d.changedAt = time.Now()
	d.changeMu.Unlock()
}

// processChanges re-imports once the file has been quiet for the debounce
// interval.
func (d *Daemon) processChanges(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.DebounceInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			d.changeMu.Lock()
			due := d.dirty && time.Since(d.changedAt) >= d.cfg.DebounceInterval
			if due {
				d.dirty = false
			}
			d.changeMu.Unlock()

			if !due {
				continue
			}
			if err := d.reimport(ctx); err != nil {
				d.logger.Printf("re-import failed: %v", err)
			}
		}
	}
}

// reimport reads the document and imports it behind a snapshot guard.
func (d *Daemon) reimport(ctx context.Context) error {
	data, err := os.ReadFile(d.cfg.DocumentPath)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	doc, err := token.Decode(data, d.cfg.Format)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}

	opts := d.cfg.ImportOptions
	opts.Logger = d.logger

	start := time.Now()
	var stats *tokensync.Stats
	result := snapshot.Guard(ctx, d.h, d.logger, "watch "+filepath.Base(d.cfg.DocumentPath), func(ctx context.Context) error {
		var err error
		stats, err = tokensync.Import(ctx, d.h, doc, opts)
		return err
	})

	switch result.Outcome {
	case snapshot.OutcomeSuccess:
		d.logger.Printf("re-imported %s: %d created, %d updated, %d errors",
			d.cfg.DocumentPath, stats.VariablesCreated, stats.VariablesUpdated, len(stats.Errors))
		if d.cfg.Notifier != nil {
			d.cfg.Notifier.ImportFinished(d.cfg.DocumentPath, stats, time.Since(start))
		}
		return nil
	default:
		if d.cfg.Notifier != nil {
			d.cfg.Notifier.RolledBack(d.cfg.DocumentPath, fmt.Sprint(result.OpErr), string(result.Outcome))
		}
		return fmt.Errorf("import %s (%s): %w", d.cfg.DocumentPath, result.Outcome, result.OpErr)
	}
}
