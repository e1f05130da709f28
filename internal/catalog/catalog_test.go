package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/rbdrot-project/rbdrot/internal/catalog"
	"github.com/rbdrot-project/rbdrot/pkg/errclass"
	"github.com/rbdrot-project/rbdrot/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listing uses the two line shapes rbd emits: with and without the
// protected column.
const listing = `SNAPID NAME SIZE PROTECTED TIMESTAMP
     4 0_rbd_snap_manager_DAILY 10 GiB yes Mon Aug 23 10:00:00 2021
     5 1_rbd_snap_manager_DAILY 10 GiB Sun Aug 22 10:00:00 2021
     6 2_rbd_snap_manager_DAILY 10 GiB Sat Aug 21 10:00:00 2021
     7 0_rbd_snap_manager_WEEKLY 10 GiB Mon Aug 16 10:00:00 2021
`

type fakeCluster struct {
	pools    map[string]int64
	listing  string
	poolsErr error
	listErr  error
}

func (f *fakeCluster) ListPools(context.Context) (map[string]int64, error) {
	return f.pools, f.poolsErr
}

func (f *fakeCluster) ListSnapshots(context.Context, string, string) (string, error) {
	return f.listing, f.listErr
}

func newCatalog(cluster *fakeCluster) *catalog.Catalog {
	return catalog.NewCatalog(cluster, logging.NewLogger(logging.LevelError))
}

func pools() map[string]int64 {
	return map[string]int64{"rbd-pool1": 1}
}

func TestList_SortedDescending(t *testing.T) {
	cat := newCatalog(&fakeCluster{pools: pools(), listing: listing})

	snaps, err := cat.List(context.Background(), "rbd-pool1", "test-image", "DAILY")
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	assert.Equal(t, []int{2, 1, 0}, []int{snaps[0].Counter, snaps[1].Counter, snaps[2].Counter})
	assert.Equal(t, "2_rbd_snap_manager_DAILY", snaps[0].Name)
	assert.Equal(t, "DAILY", snaps[0].Suffix)
}

func TestList_ParsesFields(t *testing.T) {
	cat := newCatalog(&fakeCluster{pools: pools(), listing: listing})

	snaps, err := cat.List(context.Background(), "rbd-pool1", "test-image", "DAILY")
	require.NoError(t, err)

	newest := snaps[2]
	assert.Equal(t, "4", newest.ID)
	assert.Equal(t, "10 GiB", newest.Size)
	assert.True(t, newest.Protected)
	assert.Equal(t, time.Date(2021, time.August, 23, 10, 0, 0, 0, time.UTC), newest.CreatedAt)

	// 9-token line without the protected column defaults to unprotected.
	assert.False(t, snaps[1].Protected)
}

func TestList_FiltersSuffix(t *testing.T) {
	cat := newCatalog(&fakeCluster{pools: pools(), listing: listing})

	snaps, err := cat.List(context.Background(), "rbd-pool1", "test-image", "WEEKLY")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 0, snaps[0].Counter)
}

func TestList_NoMatches(t *testing.T) {
	cat := newCatalog(&fakeCluster{pools: pools(), listing: listing})

	snaps, err := cat.List(context.Background(), "rbd-pool1", "test-image", "MONTHLY")
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestList_UnknownPool(t *testing.T) {
	cat := newCatalog(&fakeCluster{pools: pools(), listing: listing})

	_, err := cat.List(context.Background(), "rbd-pool9", "test-image", "DAILY")
	require.ErrorIs(t, err, errclass.ErrPoolUnknown)
}

func TestList_PoolNotRbdTagged(t *testing.T) {
	// The pool exists in the cluster but is not rbd-tagged, so ListPools
	// never reports it.
	cat := newCatalog(&fakeCluster{pools: pools(), listing: listing})

	_, err := cat.List(context.Background(), "cephfs-data", "test-image", "DAILY")
	require.ErrorIs(t, err, errclass.ErrPoolUnknown)
}

func TestList_UnexpectedTokenCount(t *testing.T) {
	cat := newCatalog(&fakeCluster{pools: pools(), listing: "4 0_rbd_snap_manager_DAILY 10 GiB\n"})

	_, err := cat.List(context.Background(), "rbd-pool1", "test-image", "DAILY")
	require.ErrorIs(t, err, errclass.ErrCatalogParse)
}

func TestList_UnknownMonth(t *testing.T) {
	bad := "4 0_rbd_snap_manager_DAILY 10 GiB yes Mon Abc 23 10:00:00 2021\n"
	cat := newCatalog(&fakeCluster{pools: pools(), listing: bad})

	_, err := cat.List(context.Background(), "rbd-pool1", "test-image", "DAILY")
	require.ErrorIs(t, err, errclass.ErrCatalogParse)
	assert.Contains(t, err.Error(), "unknown month")
}

func TestList_NonNumericCounter(t *testing.T) {
	// A manually created snapshot that happens to end with the suffix must
	// fail the whole call, never be skipped silently.
	bad := "4 manual_backup_DAILY 10 GiB yes Mon Aug 23 10:00:00 2021\n"
	cat := newCatalog(&fakeCluster{pools: pools(), listing: bad})

	_, err := cat.List(context.Background(), "rbd-pool1", "test-image", "DAILY")
	require.ErrorIs(t, err, errclass.ErrCatalogParse)
}

func TestList_HeaderAndBlankLinesSkipped(t *testing.T) {
	raw := "SNAPID NAME SIZE PROTECTED TIMESTAMP\n\n\n"
	cat := newCatalog(&fakeCluster{pools: pools(), listing: raw})

	snaps, err := cat.List(context.Background(), "rbd-pool1", "test-image", "DAILY")
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestList_ListingError(t *testing.T) {
	cat := newCatalog(&fakeCluster{pools: pools(), listErr: errclass.ErrExternalCommand.WithMessage("rbd failed")})

	_, err := cat.List(context.Background(), "rbd-pool1", "test-image", "DAILY")
	require.ErrorIs(t, err, errclass.ErrExternalCommand)
}
