package cephcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rbdrot-project/rbdrot/pkg/config"
	"github.com/rbdrot-project/rbdrot/pkg/logging"
)

// Client wraps the ceph and rbd binaries behind typed operations.
type Client struct {
	cephBin string
	rbdBin  string
	run     Runner
	log     *logging.Logger
}

// NewClient creates a client using the configured binary paths.
func NewClient(cfg config.CephConfig, log *logging.Logger) *Client {
	return NewClientWithRunner(cfg, NewExecRunner(), log)
}

// NewClientWithRunner creates a client with an injected runner.
func NewClientWithRunner(cfg config.CephConfig, run Runner, log *logging.Logger) *Client {
	return &Client{
		cephBin: cfg.CephBin,
		rbdBin:  cfg.RbdBin,
		run:     run,
		log:     log,
	}
}

func (c *Client) exec(ctx context.Context, bin string, args ...string) ([]byte, []byte, error) {
	c.log.Debug("exec", map[string]any{"cmd": bin + " " + strings.Join(args, " ")})
	return c.run.Run(ctx, bin, args...)
}

// osdDump matches the subset of `ceph osd dump -f json` we consume.
type osdDump struct {
	Pools []struct {
		Pool                int64                      `json:"pool"`
		PoolName            string                     `json:"pool_name"`
		ApplicationMetadata map[string]json.RawMessage `json:"application_metadata"`
	} `json:"pools"`
}

// ListPools returns the rbd-tagged pools as a name-to-id map.
func (c *Client) ListPools(ctx context.Context) (map[string]int64, error) {
	stdout, _, err := c.exec(ctx, c.cephBin, "osd", "dump", "-f", "json")
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}

	var dump osdDump
	if err := json.Unmarshal(stdout, &dump); err != nil {
		return nil, fmt.Errorf("parse osd dump: %w", err)
	}

	pools := make(map[string]int64)
	for _, p := range dump.Pools {
		if _, ok := p.ApplicationMetadata["rbd"]; ok {
			pools[p.PoolName] = p.Pool
		}
	}
	return pools, nil
}

// ListSnapshots returns the raw `rbd snap ls` listing for an image.
func (c *Client) ListSnapshots(ctx context.Context, pool, image string) (string, error) {
	stdout, _, err := c.exec(ctx, c.rbdBin, "snap", "ls", pool+"/"+image)
	if err != nil {
		return "", fmt.Errorf("list snapshots: %w", err)
	}
	return string(stdout), nil
}

// CreateSnapshot creates a named snapshot of an image.
func (c *Client) CreateSnapshot(ctx context.Context, pool, image, name string) error {
	if _, _, err := c.exec(ctx, c.rbdBin, "snap", "create", snapSpec(pool, image, name)); err != nil {
		return fmt.Errorf("create snapshot %s: %w", name, err)
	}
	return nil
}

// RemoveSnapshot deletes a named snapshot of an image.
func (c *Client) RemoveSnapshot(ctx context.Context, pool, image, name string) error {
	if _, _, err := c.exec(ctx, c.rbdBin, "snap", "rm", snapSpec(pool, image, name)); err != nil {
		return fmt.Errorf("remove snapshot %s: %w", name, err)
	}
	return nil
}

// RenameSnapshot renames a snapshot of an image. The external tool fails the
// rename if the target name already exists.
func (c *Client) RenameSnapshot(ctx context.Context, pool, image, oldName, newName string) error {
	if _, _, err := c.exec(ctx, c.rbdBin, "snap", "rename", snapSpec(pool, image, oldName), snapSpec(pool, image, newName)); err != nil {
		return fmt.Errorf("rename snapshot %s -> %s: %w", oldName, newName, err)
	}
	return nil
}

// LockExists probes the config-key store for a key. The tool signals absence
// with a non-zero exit whose stderr says the key "doesn't exist"; that is
// the expected outcome, not an error.
func (c *Client) LockExists(ctx context.Context, key string) (bool, error) {
	_, _, err := c.exec(ctx, c.cephBin, "config-key", "exists", key)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && strings.Contains(cmdErr.Stderr, "doesn't exist") {
			return false, nil
		}
		return false, fmt.Errorf("check lock key: %w", err)
	}
	return true, nil
}

// LockGet returns the stored value for a key.
func (c *Client) LockGet(ctx context.Context, key string) (string, error) {
	stdout, _, err := c.exec(ctx, c.cephBin, "config-key", "get", key)
	if err != nil {
		return "", fmt.Errorf("get lock key: %w", err)
	}
	return strings.TrimSpace(string(stdout)), nil
}

// LockCreate stores a value under a key.
func (c *Client) LockCreate(ctx context.Context, key, value string) error {
	if _, _, err := c.exec(ctx, c.cephBin, "config-key", "set", key, value); err != nil {
		return fmt.Errorf("create lock key: %w", err)
	}
	return nil
}

// LockRemove deletes a key.
func (c *Client) LockRemove(ctx context.Context, key string) error {
	if _, _, err := c.exec(ctx, c.cephBin, "config-key", "rm", key); err != nil {
		return fmt.Errorf("remove lock key: %w", err)
	}
	return nil
}

func snapSpec(pool, image, snap string) string {
	return fmt.Sprintf("%s/%s@%s", pool, image, snap)
}
