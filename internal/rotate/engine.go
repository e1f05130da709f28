// Package rotate shifts every snapshot of a rotation schedule up one
// generation and creates the fresh generation-0 snapshot.
package rotate

import (
	"context"
	"fmt"

	"github.com/rbdrot-project/rbdrot/internal/audit"
	"github.com/rbdrot-project/rbdrot/pkg/logging"
	"github.com/rbdrot-project/rbdrot/pkg/model"
)

// ImageClient is the slice of the rbd client the engine consumes.
type ImageClient interface {
	CreateSnapshot(ctx context.Context, pool, image, name string) error
	RenameSnapshot(ctx context.Context, pool, image, oldName, newName string) error
}

// Engine performs the counter shift for one rotation schedule.
type Engine struct {
	images   ImageClient
	auditLog audit.Appender
	dryRun   bool
	log      *logging.Logger
}

// NewEngine creates a new rotation engine.
func NewEngine(images ImageClient, auditLog audit.Appender, dryRun bool, log *logging.Logger) *Engine {
	return &Engine{
		images:   images,
		auditLog: auditLog,
		dryRun:   dryRun,
		log:      log,
	}
}

// Rotate renames each snapshot's counter to counter+1, processing the input
// in its given order. The caller supplies the catalog's counter-descending
// order; visiting the highest counter first is what guarantees the target
// name is always free, since any snapshot that held counter c+1 was renamed
// to c+2 earlier in the same pass. A failure aborts the rotation; no
// partial-rotation recovery is attempted.
func (e *Engine) Rotate(ctx context.Context, pool, image string, snaps []model.Snapshot, suffix string) error {
	for _, snap := range snaps {
		counter, err := model.ParseCounter(snap.Name)
		if err != nil {
			return err
		}
		newName := model.SnapshotName(counter+1, suffix)

		e.log.Debug("renaming snapshot", map[string]any{"from": snap.Name, "to": newName})
		if e.dryRun {
			continue
		}
		if err := e.images.RenameSnapshot(ctx, pool, image, snap.Name, newName); err != nil {
			return fmt.Errorf("rotate %s: %w", snap.Name, err)
		}
		e.appendAudit(audit.EventSnapshotRename, pool, image, map[string]any{
			"from": snap.Name,
			"to":   newName,
		})
	}
	return nil
}

// CreateNext creates the new generation-0 snapshot.
func (e *Engine) CreateNext(ctx context.Context, pool, image, suffix string) error {
	name := model.SnapshotName(0, suffix)

	e.log.Debug("creating snapshot", map[string]any{"name": name})
	if e.dryRun {
		return nil
	}
	if err := e.images.CreateSnapshot(ctx, pool, image, name); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	e.appendAudit(audit.EventSnapshotCreate, pool, image, map[string]any{"name": name})
	return nil
}

// appendAudit records a mutation. A failed append does not fail the run;
// the mutation already happened and the log must still say so somewhere.
func (e *Engine) appendAudit(eventType audit.EventType, pool, image string, details map[string]any) {
	if err := e.auditLog.Append(eventType, pool, image, details); err != nil {
		e.log.Warn("audit append failed", map[string]any{"event": eventType, "error": err.Error()})
	}
}
