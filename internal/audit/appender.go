// Package audit records every mutation of cluster state to an append-only
// JSONL log, so operators can reconstruct what a cron run did.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType identifies an audited operation.
type EventType string

const (
	EventSnapshotRename EventType = "snapshot-rename"
	EventSnapshotCreate EventType = "snapshot-create"
	EventSnapshotRemove EventType = "snapshot-remove"
	EventLockAcquire    EventType = "lock-acquire"
	EventLockRelease    EventType = "lock-release"
	EventLockClear      EventType = "lock-clear"
)

// Record is one audit log line.
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	EventType EventType      `json:"event_type"`
	Pool      string         `json:"pool"`
	Image     string         `json:"image"`
	Details   map[string]any `json:"details,omitempty"`
}

// FileAppender appends audit records to a JSONL file.
type FileAppender struct {
	path string
	mu   sync.Mutex
}

// NewFileAppender creates a new FileAppender.
func NewFileAppender(path string) *FileAppender {
	return &FileAppender{path: path}
}

// Append adds a new audit record to the log.
func (a *FileAppender) Append(eventType EventType, pool, image string, details map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	// Cross-process exclusion: concurrent runs for other images may share
	// the log file.
	if err := lockFile(file); err != nil {
		return fmt.Errorf("flock audit log: %w", err)
	}
	defer unlockFile(file)

	record := &Record{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Pool:      pool,
		Image:     image,
		Details:   details,
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}

	return nil
}

// Appender is the audit surface consumed by the rotation components. Nop
// satisfies it for runs with auditing disabled.
type Appender interface {
	Append(eventType EventType, pool, image string, details map[string]any) error
}

// Nop discards all records.
type Nop struct{}

func (Nop) Append(EventType, string, string, map[string]any) error { return nil }
