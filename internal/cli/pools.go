package cli

import (
	"context"
	"os"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var poolsCmd = &cobra.Command{
	Use:   "pools",
	Short: "List the rbd-tagged pools of the cluster",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		log := newLogger(cfg, false)
		client := newClient(cfg, log)

		pools, err := client.ListPools(context.Background())
		if err != nil {
			fmtErr("list pools: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(pools)
			return
		}

		names := make([]string, 0, len(pools))
		for name := range pools {
			names = append(names, name)
		}
		sort.Strings(names)

		rows := pterm.TableData{{"ID", "NAME"}}
		for _, name := range names {
			rows = append(rows, []string{pterm.Sprintf("%d", pools[name]), name})
		}
		pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

func init() {
	rootCmd.AddCommand(poolsCmd)
}
