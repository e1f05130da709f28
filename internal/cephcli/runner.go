// Package cephcli invokes the ceph and rbd command line tools. It is the
// only package that runs subprocesses; everything above it consumes typed
// results.
package cephcli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rbdrot-project/rbdrot/pkg/errclass"
)

// Runner executes one external command and captures its output.
type Runner interface {
	Run(ctx context.Context, bin string, args ...string) (stdout, stderr []byte, err error)
}

// CommandError reports a command that exited non-zero. It unwraps to
// errclass.ErrExternalCommand so call sites can classify it, while keeping
// the exit code and stderr available for the sites that treat specific
// error text as an expected outcome.
type CommandError struct {
	Cmd      string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command `%s` failed with exit code %d: %s", e.Cmd, e.ExitCode, strings.TrimSpace(e.Stderr))
}

func (e *CommandError) Unwrap() error {
	return errclass.ErrExternalCommand
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes bin with args and returns captured stdout and stderr. A
// non-zero exit is returned as a *CommandError; stdout and stderr are still
// populated so callers can inspect them.
func (r *ExecRunner) Run(ctx context.Context, bin string, args ...string) ([]byte, []byte, error) {
	var outBuf, errBuf bytes.Buffer

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return outBuf.Bytes(), errBuf.Bytes(), &CommandError{
				Cmd:      bin + " " + strings.Join(args, " "),
				ExitCode: exitErr.ExitCode(),
				Stderr:   errBuf.String(),
			}
		}
		return outBuf.Bytes(), errBuf.Bytes(), fmt.Errorf("run %s: %w", bin, err)
	}

	return outBuf.Bytes(), errBuf.Bytes(), nil
}
