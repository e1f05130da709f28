// Package catalog queries and parses the snapshot listing for one image.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rbdrot-project/rbdrot/pkg/errclass"
	"github.com/rbdrot-project/rbdrot/pkg/logging"
	"github.com/rbdrot-project/rbdrot/pkg/model"
)

// ClusterClient is the slice of the ceph/rbd client the catalog consumes.
type ClusterClient interface {
	ListPools(ctx context.Context) (map[string]int64, error)
	ListSnapshots(ctx context.Context, pool, image string) (string, error)
}

// Catalog lists the managed snapshots of one (pool, image) pair.
type Catalog struct {
	cluster ClusterClient
	log     *logging.Logger
}

// NewCatalog creates a new catalog.
func NewCatalog(cluster ClusterClient, log *logging.Logger) *Catalog {
	return &Catalog{cluster: cluster, log: log}
}

// List validates the pool, retrieves the raw snapshot listing, and returns
// the snapshots of the given rotation schedule sorted by counter descending
// (oldest, highest-numbered first). Any line that fails to parse fails the
// whole call; partial results are never returned.
func (c *Catalog) List(ctx context.Context, pool, image, suffix string) ([]model.Snapshot, error) {
	pools, err := c.cluster.ListPools(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := pools[pool]; !ok {
		return nil, errclass.ErrPoolUnknown.WithMessagef("pool %q not found in cluster", pool)
	}

	raw, err := c.cluster.ListSnapshots(ctx, pool, image)
	if err != nil {
		return nil, err
	}

	all, err := parseListing(raw)
	if err != nil {
		return nil, err
	}

	var matched []model.Snapshot
	for _, snap := range all {
		if !strings.HasSuffix(snap.Name, suffix) {
			continue
		}
		counter, err := model.ParseCounter(snap.Name)
		if err != nil {
			return nil, err
		}
		snap.Counter = counter
		snap.Suffix = suffix
		matched = append(matched, snap)
	}

	if len(matched) == 0 {
		c.log.Debug("no snapshots matching suffix", map[string]any{"pool": pool, "image": image, "suffix": suffix})
		return nil, nil
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Counter > matched[j].Counter
	})
	return matched, nil
}

var months = map[string]time.Month{
	"Jan": time.January,
	"Feb": time.February,
	"Mar": time.March,
	"Apr": time.April,
	"May": time.May,
	"Jun": time.June,
	"Jul": time.July,
	"Aug": time.August,
	"Sep": time.September,
	"Oct": time.October,
	"Nov": time.November,
	"Dec": time.December,
}

// parseListing parses the tabular `rbd snap ls` output. Each data line has
// either 10 tokens (with the protected column) or 9 (without):
//
//	SNAPID NAME SIZE UNIT [PROTECTED] WDAY MON DAY HH:MM:SS YEAR
func parseListing(raw string) ([]model.Snapshot, error) {
	var snaps []model.Snapshot
	for i, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(line, "SNAPID") {
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}

		var id, name, size, unit, protected string
		var stamp []string
		switch len(tokens) {
		case 10:
			id, name, size, unit, protected = tokens[0], tokens[1], tokens[2], tokens[3], tokens[4]
			stamp = tokens[5:]
		case 9:
			id, name, size, unit, protected = tokens[0], tokens[1], tokens[2], tokens[3], "no"
			stamp = tokens[4:]
		default:
			return nil, errclass.ErrCatalogParse.WithMessagef("line %d: unexpected token count %d", i+1, len(tokens))
		}

		createdAt, err := parseTimestamp(stamp)
		if err != nil {
			return nil, errclass.ErrCatalogParse.WithMessagef("line %d: %v", i+1, err)
		}

		snaps = append(snaps, model.Snapshot{
			ID:        id,
			Name:      name,
			Size:      size + " " + unit,
			Protected: protected == "yes",
			CreatedAt: createdAt,
		})
	}
	return snaps, nil
}

// parseTimestamp parses the trailing "WDAY MON DAY HH:MM:SS YEAR" tokens.
// The weekday token is ignored.
func parseTimestamp(tokens []string) (time.Time, error) {
	if len(tokens) != 5 {
		return time.Time{}, fmt.Errorf("unexpected timestamp token count %d", len(tokens))
	}

	month, ok := months[tokens[1]]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month abbreviation %q", tokens[1])
	}
	day, err := strconv.Atoi(tokens[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %v", tokens[2], err)
	}
	year, err := strconv.Atoi(tokens[4])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse year %q: %v", tokens[4], err)
	}

	clock := strings.Split(tokens[3], ":")
	if len(clock) != 3 {
		return time.Time{}, fmt.Errorf("unexpected clock format %q", tokens[3])
	}
	hour, err := strconv.Atoi(clock[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse hour %q: %v", clock[0], err)
	}
	minute, err := strconv.Atoi(clock[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse minute %q: %v", clock[1], err)
	}
	second, err := strconv.Atoi(clock[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse second %q: %v", clock[2], err)
	}

	return time.Date(year, month, day, hour, minute, second, 0, time.UTC), nil
}
