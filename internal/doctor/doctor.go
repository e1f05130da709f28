// Package doctor runs environment preflight checks for the rotation tool.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rbdrot-project/rbdrot/pkg/config"
)

// Finding represents a detected issue.
type Finding struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Path        string `json:"path,omitempty"`
}

// Result contains doctor check results.
type Result struct {
	Healthy  bool      `json:"healthy"`
	Findings []Finding `json:"findings"`
}

// PoolLister probes cluster reachability.
type PoolLister interface {
	ListPools(ctx context.Context) (map[string]int64, error)
}

// Doctor performs environment health checks.
type Doctor struct {
	cfg     *config.Config
	cluster PoolLister

	// lookPath is replaceable in tests.
	lookPath func(string) (string, error)
}

// NewDoctor creates a new doctor.
func NewDoctor(cfg *config.Config, cluster PoolLister) *Doctor {
	return &Doctor{cfg: cfg, cluster: cluster, lookPath: exec.LookPath}
}

// Check runs all diagnostic checks.
func (d *Doctor) Check(ctx context.Context) (*Result, error) {
	result := &Result{Healthy: true}

	d.checkBinaries(result)
	d.checkAuditPath(result)
	d.checkCluster(ctx, result)

	return result, nil
}

func (d *Doctor) checkBinaries(result *Result) {
	for _, bin := range []string{d.cfg.Ceph.CephBin, d.cfg.Ceph.RbdBin} {
		if _, err := d.lookPath(bin); err != nil {
			result.Findings = append(result.Findings, Finding{
				Category:    "binaries",
				Description: fmt.Sprintf("%s not found on PATH", bin),
				Severity:    "critical",
				Path:        bin,
			})
			result.Healthy = false
		}
	}
}

func (d *Doctor) checkAuditPath(result *Result) {
	if d.cfg.Audit.Path == "" {
		return
	}
	dir := filepath.Dir(d.cfg.Audit.Path)
	info, err := os.Stat(dir)
	if err != nil {
		result.Findings = append(result.Findings, Finding{
			Category:    "audit",
			Description: "audit log directory missing",
			Severity:    "warning",
			Path:        dir,
		})
		return
	}
	if !info.IsDir() {
		result.Findings = append(result.Findings, Finding{
			Category:    "audit",
			Description: "audit log path parent is not a directory",
			Severity:    "warning",
			Path:        dir,
		})
	}
}

func (d *Doctor) checkCluster(ctx context.Context, result *Result) {
	pools, err := d.cluster.ListPools(ctx)
	if err != nil {
		result.Findings = append(result.Findings, Finding{
			Category:    "cluster",
			Description: fmt.Sprintf("cluster unreachable: %v", err),
			Severity:    "critical",
		})
		result.Healthy = false
		return
	}
	if len(pools) == 0 {
		result.Findings = append(result.Findings, Finding{
			Category:    "cluster",
			Description: "no rbd-tagged pools in cluster",
			Severity:    "warning",
		})
	}
}
