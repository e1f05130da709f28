// Package run sequences one complete rotation attempt: jitter, lock
// acquisition, counter shift, fresh snapshot, retention trim, lock release.
package run

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/rbdrot-project/rbdrot/internal/audit"
	"github.com/rbdrot-project/rbdrot/pkg/errclass"
	"github.com/rbdrot-project/rbdrot/pkg/logging"
	"github.com/rbdrot-project/rbdrot/pkg/model"
)

// RunStatus is the coarse outcome of one rotation attempt.
type RunStatus string

const (
	// StatusRotated means the full sequence completed.
	StatusRotated RunStatus = "rotated"
	// StatusSkipped means another holder owned the lock; nothing was mutated.
	StatusSkipped RunStatus = "skipped"
	// StatusFailed means the run aborted with an error.
	StatusFailed RunStatus = "failed"
)

// Result carries the outcome of one rotation attempt back to the caller.
type Result struct {
	Status  RunStatus
	Removed string
	Err     error
}

// ExitCode maps the result onto the process exit code. Each error class has
// a distinct code so schedulers can alert on lock races and parse failures
// separately from plain command failures.
func (r Result) ExitCode() int {
	switch r.Status {
	case StatusRotated:
		return 0
	case StatusSkipped:
		return 3
	}
	switch {
	case errors.Is(r.Err, errclass.ErrNameInvalid),
		errors.Is(r.Err, errclass.ErrPoolUnknown),
		errors.Is(r.Err, errclass.ErrConfigInvalid):
		return 10
	case errors.Is(r.Err, errclass.ErrLockRaceLost):
		return 11
	case errors.Is(r.Err, errclass.ErrLockNotOwner):
		return 12
	case errors.Is(r.Err, errclass.ErrCatalogParse):
		return 13
	case errors.Is(r.Err, errclass.ErrExternalCommand):
		return 14
	default:
		return 1
	}
}

// Cataloger lists the managed snapshots of one schedule.
type Cataloger interface {
	List(ctx context.Context, pool, image, suffix string) ([]model.Snapshot, error)
}

// Locker guards the (pool, image) pair across hosts.
type Locker interface {
	Acquire(ctx context.Context, key, token string) (model.AcquireOutcome, error)
	Release(ctx context.Context, key, token string) error
}

// Rotator shifts the counters and creates the fresh snapshot.
type Rotator interface {
	Rotate(ctx context.Context, pool, image string, snaps []model.Snapshot, suffix string) error
	CreateNext(ctx context.Context, pool, image, suffix string) error
}

// Retainer trims the schedule back to its configured size.
type Retainer interface {
	Enforce(ctx context.Context, pool, image, suffix string, keep int) (string, error)
}

// Orchestrator drives one rotation run end to end.
type Orchestrator struct {
	catalog   Cataloger
	locks     Locker
	rotator   Rotator
	retention Retainer
	auditLog  audit.Appender
	log       *logging.Logger

	// sleep is replaceable so tests skip the jitter delay.
	sleep func(time.Duration)
}

// NewOrchestrator creates a new run orchestrator.
func NewOrchestrator(catalog Cataloger, locks Locker, rotator Rotator, retention Retainer, auditLog audit.Appender, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		catalog:   catalog,
		locks:     locks,
		rotator:   rotator,
		retention: retention,
		auditLog:  auditLog,
		log:       log,
		sleep:     time.Sleep,
	}
}

// Run performs one rotation attempt for the configured schedule. The catalog
// is read and validated before the lock is touched, so a bad pool or an
// unparsable listing never churns the lock key. The lock is then taken with
// a single attempt; an existing lock skips the run cleanly. Once acquired,
// the lock is always released, even when a later step fails.
func (o *Orchestrator) Run(ctx context.Context, cfg model.RunConfig) Result {
	if err := cfg.Validate(); err != nil {
		return Result{Status: StatusFailed, Err: err}
	}

	if cfg.JitterMax > 0 {
		delay := time.Duration(rand.Int64N(int64(cfg.JitterMax)))
		o.log.Debug("jitter sleep", map[string]any{"delay": delay.String()})
		o.sleep(delay)
	}

	snaps, err := o.catalog.List(ctx, cfg.Pool, cfg.Image, cfg.Suffix)
	if err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	o.log.Debug("catalog listed", map[string]any{"count": len(snaps)})

	key := model.LockKey(cfg.Pool, cfg.Image)
	token, err := model.NewOwnerToken(time.Now())
	if err != nil {
		return Result{Status: StatusFailed, Err: err}
	}

	outcome, err := o.locks.Acquire(ctx, key, token)
	if err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	if outcome == model.LockAlreadyHeld {
		return Result{Status: StatusSkipped}
	}
	o.appendAudit(audit.EventLockAcquire, cfg, map[string]any{"token": token})

	removed, runErr := o.rotateLocked(ctx, cfg, snaps)

	if err := o.locks.Release(ctx, key, token); err != nil {
		o.log.Error("lock release failed", map[string]any{"key": key, "error": err.Error()})
		if runErr == nil {
			runErr = err
		}
	} else {
		o.appendAudit(audit.EventLockRelease, cfg, map[string]any{"token": token})
	}

	if runErr != nil {
		return Result{Status: StatusFailed, Err: runErr}
	}
	o.log.Info("rotation complete", map[string]any{
		"pool":    cfg.Pool,
		"image":   cfg.Image,
		"suffix":  cfg.Suffix,
		"removed": removed,
		"dry_run": cfg.DryRun,
	})
	return Result{Status: StatusRotated, Removed: removed}
}

func (o *Orchestrator) rotateLocked(ctx context.Context, cfg model.RunConfig, snaps []model.Snapshot) (string, error) {
	if err := o.rotator.Rotate(ctx, cfg.Pool, cfg.Image, snaps, cfg.Suffix); err != nil {
		return "", err
	}
	if err := o.rotator.CreateNext(ctx, cfg.Pool, cfg.Image, cfg.Suffix); err != nil {
		return "", err
	}
	return o.retention.Enforce(ctx, cfg.Pool, cfg.Image, cfg.Suffix, cfg.Keep)
}

func (o *Orchestrator) appendAudit(eventType audit.EventType, cfg model.RunConfig, details map[string]any) {
	if err := o.auditLog.Append(eventType, cfg.Pool, cfg.Image, details); err != nil {
		o.log.Warn("audit append failed", map[string]any{"event": eventType, "error": err.Error()})
	}
}
