// Package lock implements the advisory mutual-exclusion token guarding one
// (pool, image) pair, stored in the cluster's config-key store.
package lock

import (
	"context"
	"fmt"

	"github.com/rbdrot-project/rbdrot/pkg/errclass"
	"github.com/rbdrot-project/rbdrot/pkg/logging"
	"github.com/rbdrot-project/rbdrot/pkg/model"
)

// Store is the slice of the ceph client the lock manager consumes.
type Store interface {
	LockExists(ctx context.Context, key string) (bool, error)
	LockGet(ctx context.Context, key string) (string, error)
	LockCreate(ctx context.Context, key, value string) error
	LockRemove(ctx context.Context, key string) error
}

// Manager handles advisory lock operations. Acquisition is a single
// attempt: no blocking, no retry, no lease. Contention is resolved by one
// contender losing and exiting cleanly.
type Manager struct {
	store Store
	log   *logging.Logger
}

// NewManager creates a new lock manager.
func NewManager(store Store, log *logging.Logger) *Manager {
	return &Manager{store: store, log: log}
}

// Acquire attempts to take the lock. If the key already exists the lock is
// held elsewhere and the caller must skip the run without mutating — a
// benign outcome. If the key was absent, the token is written and
// immediately re-read: a mismatch means a concurrent writer won the race
// between our existence check and our write, which is fatal and not
// retried.
func (m *Manager) Acquire(ctx context.Context, key, token string) (model.AcquireOutcome, error) {
	exists, err := m.store.LockExists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("check lock: %w", err)
	}
	if exists {
		m.log.Info("lock present, skipping run", map[string]any{"key": key})
		return model.LockAlreadyHeld, nil
	}

	m.log.Debug("lock absent, creating", map[string]any{"key": key})
	if err := m.store.LockCreate(ctx, key, token); err != nil {
		return "", fmt.Errorf("create lock: %w", err)
	}

	// Verify we actually acquired it.
	stored, err := m.store.LockGet(ctx, key)
	if err != nil {
		return "", fmt.Errorf("verify lock owner: %w", err)
	}
	if stored != token {
		return "", errclass.ErrLockRaceLost.WithMessagef("lock %q is owned by %q, not us", key, stored)
	}

	return model.LockAcquired, nil
}

// Release removes the lock only if the stored value still matches our
// token. A mismatch means the lock was never ours or was taken over, which
// signals a correctness violation; the stored value is left untouched. An
// unreadable or vanished key counts as not ours: we held it, so a failed
// owner read means someone else interfered with the key.
func (m *Manager) Release(ctx context.Context, key, token string) error {
	stored, err := m.store.LockGet(ctx, key)
	if err != nil {
		return errclass.ErrLockNotOwner.WithMessagef("read lock %q owner: %v", key, err)
	}
	if stored != token {
		return errclass.ErrLockNotOwner.WithMessagef("lock %q is owned by %q, not removed", key, stored)
	}

	if err := m.store.LockRemove(ctx, key); err != nil {
		return fmt.Errorf("remove lock: %w", err)
	}
	m.log.Debug("lock removed", map[string]any{"key": key})
	return nil
}

// State reports the current lock state and the stored owner value, derived
// by querying the store.
func (m *Manager) State(ctx context.Context, key, token string) (model.LockState, string, error) {
	exists, err := m.store.LockExists(ctx, key)
	if err != nil {
		return "", "", fmt.Errorf("check lock: %w", err)
	}
	if !exists {
		return model.LockAbsent, "", nil
	}

	stored, err := m.store.LockGet(ctx, key)
	if err != nil {
		return "", "", fmt.Errorf("read lock owner: %w", err)
	}
	if stored == token {
		return model.LockHeldBySelf, stored, nil
	}
	return model.LockHeldByOther, stored, nil
}

// ForceClear removes the lock regardless of owner. This is the manual
// intervention for a lock orphaned by an abnormal process exit.
func (m *Manager) ForceClear(ctx context.Context, key string) error {
	exists, err := m.store.LockExists(ctx, key)
	if err != nil {
		return fmt.Errorf("check lock: %w", err)
	}
	if !exists {
		return nil
	}
	if err := m.store.LockRemove(ctx, key); err != nil {
		return fmt.Errorf("remove lock: %w", err)
	}
	m.log.Info("lock force-cleared", map[string]any{"key": key})
	return nil
}
