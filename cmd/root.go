package cmd

import (
	"errors"
	"fmt"
	"os"

	"manhole-tracker/core/dataset"
	"manhole-tracker/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Exit statuses.
const (
	ExitFailure     = 1
	ExitPersistence = 2
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "manhole-tracker",
	Short: "Incremental manhole cover crawler",
	Long: `Manhole Tracker probes the numeric ID space of manhole cover catalogue sites,
reconciles what it finds against a local dataset and reports what was added,
removed, changed or resurrected since the previous pass.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format at debug level gives readable ISO8601 timestamps for a CLI.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status. A dataset that could not be
// written gets its own status so schedulers can tell it from a bad invocation.
func exitCode(err error) int {
	if errors.Is(err, dataset.ErrPersistence) {
		return ExitPersistence
	}
	return ExitFailure
}
