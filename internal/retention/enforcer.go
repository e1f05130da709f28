// Package retention trims the oldest snapshot once a rotation schedule
// exceeds its configured size.
package retention

import (
	"context"
	"fmt"

	"github.com/rbdrot-project/rbdrot/internal/audit"
	"github.com/rbdrot-project/rbdrot/pkg/logging"
	"github.com/rbdrot-project/rbdrot/pkg/model"
)

// Lister re-reads the catalog after rotation.
type Lister interface {
	List(ctx context.Context, pool, image, suffix string) ([]model.Snapshot, error)
}

// ImageRemover is the slice of the rbd client the enforcer consumes.
type ImageRemover interface {
	RemoveSnapshot(ctx context.Context, pool, image, name string) error
}

// Enforcer deletes the single oldest snapshot when the retained count
// reaches the configured limit.
type Enforcer struct {
	catalog  Lister
	images   ImageRemover
	auditLog audit.Appender
	dryRun   bool
	log      *logging.Logger
}

// NewEnforcer creates a new retention enforcer.
func NewEnforcer(catalog Lister, images ImageRemover, auditLog audit.Appender, dryRun bool, log *logging.Logger) *Enforcer {
	return &Enforcer{
		catalog:  catalog,
		images:   images,
		auditLog: auditLog,
		dryRun:   dryRun,
		log:      log,
	}
}

// Enforce re-lists the schedule and removes exactly the highest-counter
// snapshot when the count is at or above keep. Only one generation is
// trimmed per run: the list grows by one snapshot per run, so a single trim
// holds the steady-state size. External drift beyond keep+1 converges back
// over multiple runs.
func (e *Enforcer) Enforce(ctx context.Context, pool, image, suffix string, keep int) (string, error) {
	snaps, err := e.catalog.List(ctx, pool, image, suffix)
	if err != nil {
		return "", err
	}

	if len(snaps) < keep {
		e.log.Debug("no snapshots to remove", map[string]any{"count": len(snaps), "keep": keep})
		return "", nil
	}

	// The catalog sorts counter-descending, so the oldest is first.
	victim := snaps[0]
	e.log.Debug("removing snapshot", map[string]any{"name": victim.Name})
	if e.dryRun {
		return victim.Name, nil
	}
	if err := e.images.RemoveSnapshot(ctx, pool, image, victim.Name); err != nil {
		return "", fmt.Errorf("remove %s: %w", victim.Name, err)
	}
	if err := e.auditLog.Append(audit.EventSnapshotRemove, pool, image, map[string]any{"name": victim.Name}); err != nil {
		e.log.Warn("audit append failed", map[string]any{"name": victim.Name, "error": err.Error()})
	}
	return victim.Name, nil
}
