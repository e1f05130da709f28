package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var (
	cfgPath    string
	envFile    string
	jsonOutput bool

	rootCmd = &cobra.Command{
		Use:   "rbdrot",
		Short: "rbdrot - RBD snapshot rotation manager",
		Long: `rbdrot rotates numbered snapshots of a Ceph RBD image, creates a fresh
one and trims the oldest beyond the retention limit. Concurrent runs across
hosts are serialized through an advisory lock in the cluster's config-key
store. Designed to run unattended from cron.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default "+configDefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file merged into the environment")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// outputJSON prints v as JSON if --json flag is set, otherwise does nothing.
func outputJSON(v any) error {
	if !jsonOutput {
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
