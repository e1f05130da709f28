package model

import (
	"time"

	"github.com/rbdrot-project/rbdrot/pkg/errclass"
)

// RunConfig is the immutable configuration of one rotation run, derived once
// from flags and the config file and passed into each component.
type RunConfig struct {
	Pool   string
	Image  string
	Suffix string
	Keep   int

	DryRun bool
	Debug  bool

	// JitterMax bounds the randomized pre-acquisition sleep. Zero disables
	// it. The jitter shrinks the check-then-create race window; it does not
	// provide exclusivity.
	JitterMax time.Duration
}

// Validate checks the run configuration before any external call is made.
func (c RunConfig) Validate() error {
	if c.Pool == "" {
		return errclass.ErrConfigInvalid.WithMessage("pool must not be empty")
	}
	if c.Image == "" {
		return errclass.ErrConfigInvalid.WithMessage("image must not be empty")
	}
	if err := ValidateSuffix(c.Suffix); err != nil {
		return err
	}
	if c.Keep < 1 {
		return errclass.ErrConfigInvalid.WithMessagef("keep must be at least 1, got %d", c.Keep)
	}
	if c.JitterMax < 0 {
		return errclass.ErrConfigInvalid.WithMessage("jitter must not be negative")
	}
	return nil
}
