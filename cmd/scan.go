package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"manhole-tracker/core/config"
	"manhole-tracker/core/dataset"
	"manhole-tracker/core/utils"
	"manhole-tracker/feature/tracker"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// scanCmd runs one reconciliation pass.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan an ID window and reconcile it with the dataset",
	Long: `Probes every ID of the window, merges what was found into the dataset and
writes it back atomically. The diff of the pass is printed to stdout as JSON.

An interrupt (Ctrl-C, SIGTERM) stops the scan between two IDs; the records
reconciled so far are saved and the command exits successfully. A dataset that
cannot be written exits with status 2.

Examples:
  # Full scan of the default window
  manhole-tracker scan

  # Only look for new IDs after the highest one already known
  manhole-tracker scan --resume --scan-max 0 --limit-new 20

  # Gundam manholes with geocoding
  manhole-tracker scan --source gmanhole --out gmanhole.ndjson --geocode`,
	RunE: runScan,
}

func init() {
	addScanFlags(scanCmd.Flags())
	RootCmd.AddCommand(scanCmd)
}

func addScanFlags(f *pflag.FlagSet) {
	f.String("source", "", "Source adapter (pokefuta, gmanhole)")
	f.Int("scan-min", 0, "Lowest ID probed")
	f.Int("scan-max", 0, "Highest ID probed (0 with --resume: lookahead window)")
	f.Bool("resume", false, "Start after the highest ID already in the dataset")
	f.Int("limit-new", 0, "Stop after this many new records (0: no limit)")
	f.String("out", "", "Dataset file")
	f.String("format", "", "Dataset layout (ndjson, array)")
	f.String("mirror", "", "Also write the active records to this file")
	f.Float64("sleep", 0, "Seconds to wait after every request (floor 0.2)")
	f.Bool("geocode", false, "Geocode addresses of records without coordinates")
	f.String("summary", "", "Write the full pass summary as JSON to this file")
}

// applyScanFlags overrides configuration values with the flags that were set.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	var err error
	set := func(name string, apply func()) {
		if err == nil && f.Changed(name) {
			apply()
		}
	}
	set("source", func() { cfg.Scan.Source, err = f.GetString("source") })
	set("scan-min", func() { cfg.Scan.Min, err = f.GetInt("scan-min") })
	set("scan-max", func() { cfg.Scan.Max, err = f.GetInt("scan-max") })
	set("resume", func() { cfg.Scan.Resume, err = f.GetBool("resume") })
	set("limit-new", func() { cfg.Scan.NewLimit, err = f.GetInt("limit-new") })
	set("out", func() { cfg.Dataset.OutputPath, err = f.GetString("out") })
	set("format", func() { cfg.Dataset.Format, err = f.GetString("format") })
	set("mirror", func() { cfg.Dataset.MirrorPath, err = f.GetString("mirror") })
	set("sleep", func() { cfg.Fetch.RequestDelaySeconds, err = f.GetFloat64("sleep") })
	set("geocode", func() { cfg.Geocode.Enabled, err = f.GetBool("geocode") })
	return err
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, logg, err := setup()
	if err != nil {
		return err
	}
	defer logg.Sync()

	if err := applyScanFlags(cmd, cfg); err != nil {
		return err
	}
	if _, err := dataset.ParseFormat(cfg.Dataset.Format); err != nil {
		return err
	}

	_, runs := connectHistory(cfg, logg)
	svc, err := newTrackerService(cfg, logg, runs, connectStorage(cfg, logg))
	if err != nil {
		return err
	}

	// Signals cancel the scan only; the dataset is still written afterwards.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := svc.Scan(ctx, tracker.ScanOptions{Config: cfg.Scan})
	if summary != nil {
		if werr := writeSummary(cmd.OutOrStdout(), summary, summaryPath(cmd), logg); werr != nil {
			logg.Warn("Failed to write summary", zap.Error(werr))
		}
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	logg.Info("Scan complete",
		zap.String("run_id", summary.RunID),
		zap.Int("added", len(summary.Added)),
		zap.Int("removed", len(summary.Removed)),
		zap.Int("changed", len(summary.Diff.Changed)),
		zap.Int("resurrected", len(summary.Resurrected)),
		zap.Int("skipped", len(summary.Skipped)),
		zap.Int("needs_review", len(summary.NeedsReview)),
		zap.Bool("cancelled", summary.Cancelled),
	)
	return nil
}

func summaryPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("summary")
	return path
}

// writeSummary prints the diff to out and, when path is set, the full summary
// to path.
func writeSummary(out io.Writer, summary *tracker.Summary, path string, logg *zap.Logger) error {
	if err := encodeJSON(out, summary.Diff); err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	err := utils.WriteFileAtomic(path, 0o644, func(w *bufio.Writer) error {
		return encodeJSON(w, summary)
	})
	if err != nil {
		return err
	}
	logg.Info("Summary saved", zap.String("file", path))
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
