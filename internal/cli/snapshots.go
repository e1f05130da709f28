package cli

import (
	"context"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/rbdrot-project/rbdrot/internal/catalog"
)

var (
	snapshotsPool   string
	snapshotsImage  string
	snapshotsSuffix string
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect managed snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the managed snapshots of one image schedule",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		log := newLogger(cfg, false)
		cat := catalog.NewCatalog(newClient(cfg, log), log)

		snaps, err := cat.List(context.Background(), snapshotsPool, snapshotsImage, snapshotsSuffix)
		if err != nil {
			fmtErr("list snapshots: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(snaps)
			return
		}

		if len(snaps) == 0 {
			infoOut.Printf("No snapshots for %s/%s (%s)\n", snapshotsPool, snapshotsImage, snapshotsSuffix)
			return
		}

		rows := pterm.TableData{{"COUNTER", "NAME", "SIZE", "PROTECTED", "CREATED"}}
		for _, s := range snaps {
			protected := "no"
			if s.Protected {
				protected = "yes"
			}
			rows = append(rows, []string{
				pterm.Sprintf("%d", s.Counter),
				s.Name,
				s.Size,
				protected,
				s.CreatedAt.Format(time.RFC3339),
			})
		}
		pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

func init() {
	snapshotsListCmd.Flags().StringVar(&snapshotsPool, "pool", "", "rbd pool name (required)")
	snapshotsListCmd.Flags().StringVar(&snapshotsImage, "image", "", "rbd image name (required)")
	snapshotsListCmd.Flags().StringVar(&snapshotsSuffix, "suffix", "", "schedule suffix (required)")
	snapshotsListCmd.MarkFlagRequired("pool")
	snapshotsListCmd.MarkFlagRequired("image")
	snapshotsListCmd.MarkFlagRequired("suffix")
	snapshotsCmd.AddCommand(snapshotsListCmd)
	rootCmd.AddCommand(snapshotsCmd)
}
