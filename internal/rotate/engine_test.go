package rotate_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/rbdrot-project/rbdrot/internal/audit"
	"github.com/rbdrot-project/rbdrot/internal/rotate"
	"github.com/rbdrot-project/rbdrot/pkg/errclass"
	"github.com/rbdrot-project/rbdrot/pkg/logging"
	"github.com/rbdrot-project/rbdrot/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeImages tracks snapshot names and fails a rename whose target already
// exists, mirroring the external tool's name-collision behavior.
type fakeImages struct {
	names   map[string]bool
	renames int
	creates int
}

func newFakeImages(names ...string) *fakeImages {
	f := &fakeImages{names: make(map[string]bool)}
	for _, n := range names {
		f.names[n] = true
	}
	return f
}

func (f *fakeImages) CreateSnapshot(_ context.Context, _, _, name string) error {
	if f.names[name] {
		return errclass.ErrExternalCommand.WithMessagef("snapshot %s already exists", name)
	}
	f.names[name] = true
	f.creates++
	return nil
}

func (f *fakeImages) RenameSnapshot(_ context.Context, _, _, oldName, newName string) error {
	if !f.names[oldName] {
		return errclass.ErrExternalCommand.WithMessagef("snapshot %s not found", oldName)
	}
	if f.names[newName] {
		return errclass.ErrExternalCommand.WithMessagef("snapshot %s already exists", newName)
	}
	delete(f.names, oldName)
	f.names[newName] = true
	f.renames++
	return nil
}

func (f *fakeImages) counters(t *testing.T) []int {
	t.Helper()
	var counters []int
	for name := range f.names {
		c, err := model.ParseCounter(name)
		require.NoError(t, err)
		counters = append(counters, c)
	}
	sort.Ints(counters)
	return counters
}

// snapsDescending builds the catalog view: counters {0..n-1}, highest first.
func snapsDescending(n int, suffix string) []model.Snapshot {
	var snaps []model.Snapshot
	for c := n - 1; c >= 0; c-- {
		snaps = append(snaps, model.Snapshot{
			Name:    model.SnapshotName(c, suffix),
			Counter: c,
			Suffix:  suffix,
		})
	}
	return snaps
}

func imagesFor(snaps []model.Snapshot) *fakeImages {
	images := newFakeImages()
	for _, s := range snaps {
		images.names[s.Name] = true
	}
	return images
}

func newEngine(images *fakeImages, dryRun bool) *rotate.Engine {
	return rotate.NewEngine(images, audit.Nop{}, dryRun, logging.NewLogger(logging.LevelError))
}

func TestRotate_ShiftsCounters(t *testing.T) {
	snaps := snapsDescending(3, "DAILY")
	images := imagesFor(snaps)
	engine := newEngine(images, false)

	err := engine.Rotate(context.Background(), "rbd-pool1", "test-image", snaps, "DAILY")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, images.counters(t))
}

func TestRotate_ThenCreate_NoGaps(t *testing.T) {
	for n := 0; n <= 6; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			snaps := snapsDescending(n, "DAILY")
			images := imagesFor(snaps)
			engine := newEngine(images, false)
			ctx := context.Background()

			require.NoError(t, engine.Rotate(ctx, "rbd-pool1", "test-image", snaps, "DAILY"))
			require.NoError(t, engine.CreateNext(ctx, "rbd-pool1", "test-image", "DAILY"))

			// Counters must form {0..n} with no duplicates and no gaps.
			want := make([]int, n+1)
			for i := range want {
				want[i] = i
			}
			assert.Equal(t, want, images.counters(t))
		})
	}
}

// Processing in ascending order is the negative control for the ordering
// invariant: renaming c to c+1 while c+1 still exists must collide.
func TestRotate_AscendingOrderCollides(t *testing.T) {
	for n := 2; n <= 4; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			descending := snapsDescending(n, "DAILY")
			images := imagesFor(descending)
			engine := newEngine(images, false)

			ascending := make([]model.Snapshot, len(descending))
			for i, s := range descending {
				ascending[len(descending)-1-i] = s
			}

			err := engine.Rotate(context.Background(), "rbd-pool1", "test-image", ascending, "DAILY")
			require.ErrorIs(t, err, errclass.ErrExternalCommand)
			assert.Contains(t, err.Error(), "already exists")
		})
	}
}

func TestRotate_ParseFailureAborts(t *testing.T) {
	snaps := []model.Snapshot{{Name: "manual_backup_DAILY", Suffix: "DAILY"}}
	images := newFakeImages("manual_backup_DAILY")
	engine := newEngine(images, false)

	err := engine.Rotate(context.Background(), "rbd-pool1", "test-image", snaps, "DAILY")
	require.ErrorIs(t, err, errclass.ErrCatalogParse)
	assert.Zero(t, images.renames)
}

func TestRotate_DryRun(t *testing.T) {
	snaps := snapsDescending(3, "DAILY")
	images := imagesFor(snaps)
	engine := newEngine(images, true)

	require.NoError(t, engine.Rotate(context.Background(), "rbd-pool1", "test-image", snaps, "DAILY"))
	assert.Zero(t, images.renames)
	assert.Equal(t, []int{0, 1, 2}, images.counters(t))
}

func TestCreateNext(t *testing.T) {
	images := newFakeImages()
	engine := newEngine(images, false)

	require.NoError(t, engine.CreateNext(context.Background(), "rbd-pool1", "test-image", "DAILY"))
	assert.True(t, images.names["0_rbd_snap_manager_DAILY"])
}

func TestCreateNext_DryRun(t *testing.T) {
	images := newFakeImages()
	engine := newEngine(images, true)

	require.NoError(t, engine.CreateNext(context.Background(), "rbd-pool1", "test-image", "DAILY"))
	assert.Zero(t, images.creates)
}

// recordingAppender captures audit events for assertions.
type recordingAppender struct {
	events []audit.EventType
}

func (r *recordingAppender) Append(eventType audit.EventType, _, _ string, _ map[string]any) error {
	r.events = append(r.events, eventType)
	return nil
}

// failingAppender rejects every record, like an audit log on a full disk.
type failingAppender struct{}

func (failingAppender) Append(audit.EventType, string, string, map[string]any) error {
	return errors.New("write audit record: no space left on device")
}

func TestRotate_AuditFailureDoesNotFailRun(t *testing.T) {
	snaps := snapsDescending(2, "DAILY")
	images := imagesFor(snaps)

	var buf bytes.Buffer
	log := logging.NewLogger(logging.LevelInfo)
	log.SetOutput(&buf)
	engine := rotate.NewEngine(images, failingAppender{}, false, log)

	require.NoError(t, engine.Rotate(context.Background(), "rbd-pool1", "test-image", snaps, "DAILY"))
	assert.Equal(t, []int{1, 2}, images.counters(t))
	assert.Contains(t, buf.String(), "audit append failed")
}

func TestRotate_AuditsMutations(t *testing.T) {
	snaps := snapsDescending(2, "DAILY")
	images := imagesFor(snaps)
	rec := &recordingAppender{}
	engine := rotate.NewEngine(images, rec, false, logging.NewLogger(logging.LevelError))
	ctx := context.Background()

	require.NoError(t, engine.Rotate(ctx, "rbd-pool1", "test-image", snaps, "DAILY"))
	require.NoError(t, engine.CreateNext(ctx, "rbd-pool1", "test-image", "DAILY"))

	assert.Equal(t, []audit.EventType{
		audit.EventSnapshotRename,
		audit.EventSnapshotRename,
		audit.EventSnapshotCreate,
	}, rec.events)
}
