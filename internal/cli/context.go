package cli

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"github.com/rbdrot-project/rbdrot/internal/audit"
	"github.com/rbdrot-project/rbdrot/internal/cephcli"
	"github.com/rbdrot-project/rbdrot/pkg/config"
	"github.com/rbdrot-project/rbdrot/pkg/logging"
)

const configDefaultPath = config.DefaultPath

// Operator-facing status messages go to stderr so stdout stays pipeable;
// only listings and --json payloads use stdout.
var (
	successOut = pterm.Success.WithWriter(os.Stderr)
	infoOut    = pterm.Info.WithWriter(os.Stderr)
	warnOut    = pterm.Warning.WithWriter(os.Stderr)
	errorOut   = pterm.Error.WithWriter(os.Stderr)
)

// loadConfig resolves the effective configuration: built-in defaults, then
// the config file, then RBDROT_* environment variables (optionally sourced
// from --env-file first). Exits on an unreadable or unparsable file.
func loadConfig() *config.Config {
	if err := config.LoadEnvFile(envFile); err != nil {
		fmtErr("%v", err)
		os.Exit(1)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmtErr("%v", err)
		os.Exit(1)
	}
	for _, warning := range cfg.ApplyEnv() {
		fmtErr("%s", warning)
	}
	return cfg
}

// newLogger builds the logger from the config. Debug forces level debug on
// stderr so the command line overrides the cron-oriented syslog default.
func newLogger(cfg *config.Config, debug bool) *logging.Logger {
	if debug {
		return logging.NewLogger(logging.LevelDebug)
	}
	return logging.NewWithSink(logging.Level(cfg.Logging.Level), logging.Sink(cfg.Logging.Sink))
}

func newClient(cfg *config.Config, log *logging.Logger) *cephcli.Client {
	return cephcli.NewClient(cfg.Ceph, log)
}

// newAppender returns the audit log appender, or a no-op one when auditing
// is disabled or the run must not mutate anything.
func newAppender(cfg *config.Config, dryRun bool) audit.Appender {
	if dryRun || cfg.Audit.Path == "" {
		return audit.Nop{}
	}
	return audit.NewFileAppender(cfg.Audit.Path)
}

func fmtErr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "rbdrot: "+format+"\n", args...)
}
