package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/rbdrot-project/rbdrot/pkg/errclass"
)

// NameInfix is the fixed middle part of every managed snapshot name.
// A full name reads "{counter}_rbd_snap_manager_{suffix}".
const NameInfix = "_rbd_snap_manager_"

// Snapshot is one point-in-time copy of an image, parsed from the
// `rbd snap ls` listing.
type Snapshot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Counter   int       `json:"counter"`
	Suffix    string    `json:"suffix"`
	Size      string    `json:"size"`
	Protected bool      `json:"protected"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotName composes the deterministic name for a generation counter.
func SnapshotName(counter int, suffix string) string {
	return fmt.Sprintf("%d%s%s", counter, NameInfix, suffix)
}

// ParseCounter extracts the generation counter from a snapshot name.
// The counter is the leading numeric token, terminated by the first '_'.
func ParseCounter(name string) (int, error) {
	head, _, found := strings.Cut(name, "_")
	if !found {
		return 0, errclass.ErrCatalogParse.WithMessagef("snapshot name %q has no counter separator", name)
	}
	counter, err := strconv.Atoi(head)
	if err != nil {
		return 0, errclass.ErrCatalogParse.WithMessagef("snapshot name %q has non-numeric counter: %v", name, err)
	}
	if counter < 0 {
		return 0, errclass.ErrCatalogParse.WithMessagef("snapshot name %q has negative counter", name)
	}
	return counter, nil
}

var suffixRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateSuffix checks a schedule suffix before it is embedded in names.
func ValidateSuffix(suffix string) error {
	if suffix == "" {
		return errclass.ErrNameInvalid.WithMessage("suffix must not be empty")
	}

	// NFC normalize
	suffix = norm.NFC.String(suffix)

	for _, r := range suffix {
		if unicode.IsControl(r) {
			return errclass.ErrNameInvalid.WithMessagef("suffix must not contain control characters: %q", suffix)
		}
	}

	if !suffixRegex.MatchString(suffix) {
		return errclass.ErrNameInvalid.WithMessagef("suffix must match [a-zA-Z0-9._-]+: %s", suffix)
	}

	return nil
}
