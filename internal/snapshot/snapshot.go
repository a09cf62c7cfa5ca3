// Package snapshot captures the full local token state as a document and
// restores it later. Restore is a clear-then-import replay through the same
// two-pass reconciler used for normal imports, so a restored store satisfies
// the same invariants as an imported one.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/sync"
	"github.com/tknatwork/tokensync/internal/token"
)

// Snapshot is a frozen copy of every local collection, variable, and style.
// Aliases are stored as references, image paints with embedded bytes, so
// the snapshot is self-contained.
type Snapshot struct {
	TakenAt  time.Time       `json:"takenAt"`
	Label    string          `json:"label,omitempty"`
	Document *token.Document `json:"document"`
}

// Take captures the current local state. Remote collections are not
// captured; they are never cleared on restore either, so alias targets in
// libraries survive the round trip.
func Take(ctx context.Context, h host.Host, label string) (*Snapshot, error) {
	doc, err := sync.Export(ctx, h, sync.ExportOptions{
		IncludeStyles: true,
		EmbedImages:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("capture state: %w", err)
	}
	return &Snapshot{TakenAt: time.Now().UTC(), Label: label, Document: doc}, nil
}

// Restore wipes all local collections and styles and replays the snapshot.
func (s *Snapshot) Restore(ctx context.Context, h host.Host, logger *log.Logger) error {
	if s.Document == nil {
		return fmt.Errorf("snapshot has no document")
	}
	stats, err := sync.Import(ctx, h, s.Document, sync.Options{
		Merge:      true,
		Overwrite:  true,
		ClearFirst: true,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("replay snapshot: %w", err)
	}
	if len(stats.Errors) > 0 {
		return fmt.Errorf("replay snapshot: %d item(s) failed, first: %s", len(stats.Errors), stats.Errors[0])
	}
	return nil
}

// Count returns the number of variables the snapshot holds.
func (s *Snapshot) Count() int {
	if s == nil || s.Document == nil {
		return 0
	}
	total := 0
	for _, c := range s.Document.Collections {
		total += c.VariableCount()
	}
	return total
}

// Save writes the snapshot as indented JSON, creating parent directories.
func (s *Snapshot) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return &s, nil
}
