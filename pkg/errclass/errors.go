package errclass

import "fmt"

// Error is a stable, machine-readable error class.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithMessage returns a new Error with the same Code but a specific message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg}
}

// WithMessagef returns a new Error with a formatted message.
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// All stable error classes.
var (
	// ErrNameInvalid reports a suffix or name that fails validation.
	ErrNameInvalid = &Error{Code: "E_NAME_INVALID"}
	// ErrPoolUnknown reports a pool that is not rbd-tagged in the cluster.
	ErrPoolUnknown = &Error{Code: "E_POOL_UNKNOWN"}
	// ErrConfigInvalid reports an unusable run configuration.
	ErrConfigInvalid = &Error{Code: "E_CONFIG_INVALID"}
	// ErrLockRaceLost reports losing the post-write ownership check: another
	// writer won between the existence probe and our create.
	ErrLockRaceLost = &Error{Code: "E_LOCK_RACE_LOST"}
	// ErrLockNotOwner reports a release attempt on a lock whose stored value
	// does not match our token.
	ErrLockNotOwner = &Error{Code: "E_LOCK_NOT_OWNER"}
	// ErrCatalogParse reports snapshot listing output that did not match the
	// expected grammar.
	ErrCatalogParse = &Error{Code: "E_CATALOG_PARSE"}
	// ErrExternalCommand reports a ceph/rbd invocation exiting non-zero.
	ErrExternalCommand = &Error{Code: "E_EXTERNAL_COMMAND"}
)
