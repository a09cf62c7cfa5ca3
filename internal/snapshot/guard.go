package snapshot

import (
	"context"
	"log"

	"github.com/tknatwork/tokensync/internal/host"
)

// Outcome reports how a guarded operation ended.
type Outcome string

const (
	// OutcomeSuccess means the operation completed; the snapshot was not used.
	OutcomeSuccess Outcome = "success"

	// OutcomeRolledBack means the operation failed and the store was
	// restored to the pre-operation snapshot.
	OutcomeRolledBack Outcome = "rolled-back"

	// OutcomeRollbackFailed means the operation failed and the restore
	// failed too. The store may be in a partial state.
	OutcomeRollbackFailed Outcome = "rollback-failed"

	// OutcomeNoSnapshot means the pre-operation snapshot could not be
	// taken, so the operation was never run.
	OutcomeNoSnapshot Outcome = "no-snapshot"
)

// Result carries the guard's outcome alongside the snapshot taken before
// the operation ran. The snapshot is returned even on success so callers
// can persist it for a later undo.
type Result struct {
	Outcome  Outcome
	Snapshot *Snapshot

	// OpErr is the error from the guarded operation, nil on success.
	OpErr error

	// RestoreErr is set only for OutcomeRollbackFailed.
	RestoreErr error
}

// Guard snapshots the store, runs fn, and rolls back if fn returns an
// error. When the initial snapshot fails fn is not run at all: a mutation
// that cannot be undone is worse than no mutation.
func Guard(ctx context.Context, h host.Host, logger *log.Logger, label string, fn func(ctx context.Context) error) Result {
	snap, err := Take(ctx, h, label)
	if err != nil {
		return Result{Outcome: OutcomeNoSnapshot, OpErr: err}
	}

	if err := fn(ctx); err != nil {
		if logger != nil {
			logger.Printf("operation failed, rolling back: %v", err)
		}
		if rerr := snap.Restore(ctx, h, logger); rerr != nil {
			return Result{Outcome: OutcomeRollbackFailed, Snapshot: snap, OpErr: err, RestoreErr: rerr}
		}
		return Result{Outcome: OutcomeRolledBack, Snapshot: snap, OpErr: err}
	}
	return Result{Outcome: OutcomeSuccess, Snapshot: snap}
}
