package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rbdrot-project/rbdrot/internal/catalog"
	"github.com/rbdrot-project/rbdrot/internal/lock"
	"github.com/rbdrot-project/rbdrot/internal/retention"
	"github.com/rbdrot-project/rbdrot/internal/rotate"
	"github.com/rbdrot-project/rbdrot/internal/run"
	"github.com/rbdrot-project/rbdrot/pkg/model"
)

var (
	rotatePool   string
	rotateImage  string
	rotateSuffix string
	rotateKeep   int
	rotateJitter string
	rotateDryRun bool
	rotateDebug  bool
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate the snapshots of one image schedule",
	Long: `Rotate the snapshots of one image schedule.

Renames every managed snapshot one counter up, creates the new counter-0
snapshot and removes the oldest one beyond the retention limit. Exits 0 on
success and 3 when another host holds the schedule's lock; every failure
class has its own exit code for cron alerting.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		log := newLogger(cfg, rotateDebug)

		keep := rotateKeep
		if !cmd.Flags().Changed("keep") {
			keep = cfg.Defaults.Keep
		}
		if !cmd.Flags().Changed("jitter") {
			rotateJitter = cfg.Defaults.Jitter
		}
		var jitter time.Duration
		if rotateJitter != "" {
			var err error
			jitter, err = time.ParseDuration(rotateJitter)
			if err != nil {
				fmtErr("parse jitter: %v", err)
				os.Exit(10)
			}
		}

		runCfg := model.RunConfig{
			Pool:      rotatePool,
			Image:     rotateImage,
			Suffix:    rotateSuffix,
			Keep:      keep,
			DryRun:    rotateDryRun,
			Debug:     rotateDebug,
			JitterMax: jitter,
		}

		client := newClient(cfg, log)
		auditLog := newAppender(cfg, rotateDryRun)
		cat := catalog.NewCatalog(client, log)
		locks := lock.NewManager(client, log)
		engine := rotate.NewEngine(client, auditLog, rotateDryRun, log)
		enforcer := retention.NewEnforcer(cat, client, auditLog, rotateDryRun, log)
		orch := run.NewOrchestrator(cat, locks, engine, enforcer, auditLog, log)

		result := orch.Run(context.Background(), runCfg)
		if result.Err != nil {
			log.ErrorErr("rotation failed", result.Err, map[string]any{
				"pool":  rotatePool,
				"image": rotateImage,
			})
		}

		if jsonOutput {
			outputJSON(map[string]any{
				"status":  result.Status,
				"removed": result.Removed,
				"error":   errString(result.Err),
			})
			os.Exit(result.ExitCode())
		}

		switch result.Status {
		case run.StatusRotated:
			successOut.Printf("Rotated %s/%s (%s)\n", rotatePool, rotateImage, rotateSuffix)
			if result.Removed != "" {
				infoOut.Printf("Removed %s\n", result.Removed)
			}
		case run.StatusSkipped:
			infoOut.Printf("Lock held elsewhere, skipping %s/%s\n", rotatePool, rotateImage)
		default:
			errorOut.Printf("Rotation failed: %v\n", result.Err)
		}
		os.Exit(result.ExitCode())
	},
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func init() {
	rotateCmd.Flags().StringVar(&rotatePool, "pool", "", "rbd pool name (required)")
	rotateCmd.Flags().StringVar(&rotateImage, "image", "", "rbd image name (required)")
	rotateCmd.Flags().StringVar(&rotateSuffix, "suffix", "", "schedule suffix, e.g. DAILY (required)")
	rotateCmd.Flags().IntVar(&rotateKeep, "keep", 0, "number of snapshots to retain")
	rotateCmd.Flags().StringVar(&rotateJitter, "jitter", "", "max random startup delay, e.g. 19s (0 disables)")
	rotateCmd.Flags().BoolVar(&rotateDryRun, "dry-run", false, "log intended image mutations without performing them")
	rotateCmd.Flags().BoolVar(&rotateDebug, "debug", false, "debug logging on stderr")
	rotateCmd.MarkFlagRequired("pool")
	rotateCmd.MarkFlagRequired("image")
	rotateCmd.MarkFlagRequired("suffix")
	rootCmd.AddCommand(rotateCmd)
}
