package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/rbdrot-project/rbdrot/internal/audit"
	"github.com/rbdrot-project/rbdrot/internal/lock"
	"github.com/rbdrot-project/rbdrot/pkg/model"
)

var (
	lockPool  string
	lockImage string
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Manage the advisory rotation lock of one image",
}

var lockStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the lock state for one (pool, image) pair",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		log := newLogger(cfg, false)
		mgr := lock.NewManager(newClient(cfg, log), log)

		key := model.LockKey(lockPool, lockImage)
		state, owner, err := mgr.State(context.Background(), key, "")
		if err != nil {
			fmtErr("check lock status: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(map[string]any{
				"key":   key,
				"state": state,
				"owner": owner,
			})
			return
		}

		switch state {
		case model.LockAbsent:
			infoOut.Printf("No lock on %s/%s\n", lockPool, lockImage)
		default:
			warnOut.Printf("Lock on %s/%s held by %s\n", lockPool, lockImage, owner)
		}
	},
}

var lockClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Force-remove the lock regardless of owner",
	Long: `Force-remove the lock regardless of owner.

Only intended for a lock orphaned by an abnormal process exit. Clearing a
lock held by a live rotation run breaks its mutual exclusion.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		log := newLogger(cfg, false)
		mgr := lock.NewManager(newClient(cfg, log), log)

		key := model.LockKey(lockPool, lockImage)
		if err := mgr.ForceClear(context.Background(), key); err != nil {
			fmtErr("clear lock: %v", err)
			os.Exit(1)
		}
		err := newAppender(cfg, false).Append(audit.EventLockClear, lockPool, lockImage, map[string]any{"key": key})
		if err != nil {
			log.Warn("audit append failed", map[string]any{"error": err.Error()})
		}

		if jsonOutput {
			outputJSON(map[string]any{"key": key, "cleared": true})
			return
		}
		successOut.Printf("Lock cleared for %s/%s\n", lockPool, lockImage)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{lockStatusCmd, lockClearCmd} {
		cmd.Flags().StringVar(&lockPool, "pool", "", "rbd pool name (required)")
		cmd.Flags().StringVar(&lockImage, "image", "", "rbd image name (required)")
		cmd.MarkFlagRequired("pool")
		cmd.MarkFlagRequired("image")
	}
	lockCmd.AddCommand(lockStatusCmd)
	lockCmd.AddCommand(lockClearCmd)
	rootCmd.AddCommand(lockCmd)
}
