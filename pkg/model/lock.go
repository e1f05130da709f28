package model

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// LockKey derives the config-key entry guarding one (pool, image) pair.
func LockKey(pool, image string) string {
	return fmt.Sprintf("rbd_snap_mgr/lock_%s/%s", pool, image)
}

// NewOwnerToken builds an owner value unique to this process invocation.
// The host and timestamp make the value readable for operators inspecting
// an orphaned lock; the uuid keeps two same-second invocations on one host
// distinct.
func NewOwnerToken(now time.Time) (string, error) {
	host, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("resolve hostname: %w", err)
	}
	return fmt.Sprintf("%s@%s/%s", host, now.UTC().Format(time.RFC3339Nano), uuid.NewString()), nil
}

// LockState represents the current state of the advisory lock, derived by
// querying the store. It is never persisted.
type LockState string

const (
	LockAbsent      LockState = "absent"
	LockHeldBySelf  LockState = "held-by-self"
	LockHeldByOther LockState = "held-by-other"
)

// AcquireOutcome is the result of a single-attempt lock acquisition.
type AcquireOutcome string

const (
	// LockAcquired means the key was created and the re-read confirmed our
	// token as the stored value.
	LockAcquired AcquireOutcome = "acquired"
	// LockAlreadyHeld means the key existed before our attempt. This is a
	// benign outcome, not an error: the run skips without mutating.
	LockAlreadyHeld AcquireOutcome = "already-held"
)
