package audit_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbdrot-project/rbdrot/internal/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "audit.jsonl")
	appender := audit.NewFileAppender(path)

	err := appender.Append(audit.EventSnapshotCreate, "rbd-pool1", "test-image", map[string]any{
		"name": "0_rbd_snap_manager_DAILY",
	})
	require.NoError(t, err)

	err = appender.Append(audit.EventSnapshotRemove, "rbd-pool1", "test-image", map[string]any{
		"name": "3_rbd_snap_manager_DAILY",
	})
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var records []audit.Record
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec audit.Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, records, 2)
	assert.Equal(t, audit.EventSnapshotCreate, records[0].EventType)
	assert.Equal(t, "rbd-pool1", records[0].Pool)
	assert.Equal(t, "0_rbd_snap_manager_DAILY", records[0].Details["name"])
	assert.Equal(t, audit.EventSnapshotRemove, records[1].EventType)
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestAppend_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "audit.jsonl")
	appender := audit.NewFileAppender(path)

	require.NoError(t, appender.Append(audit.EventLockAcquire, "p", "i", nil))
	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestNop(t *testing.T) {
	var appender audit.Appender = audit.Nop{}
	assert.NoError(t, appender.Append(audit.EventLockClear, "p", "i", nil))
}
