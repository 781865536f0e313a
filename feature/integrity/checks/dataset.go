package checks

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"manhole-tracker/core/dataset"
	"manhole-tracker/core/record"

	"go.uber.org/zap"
)

// Issue kinds reported by CheckDataset.
const (
	IssueSkippedEntries     = "skipped_entries"
	IssueNotCanonical       = "not_canonical"
	IssueLegacyEntries      = "legacy_entries"
	IssueAddedAtMismatch    = "added_at_mismatch"
	IssueUpdatedBeforeSeen  = "updated_before_first_seen"
	IssueMissingTitle       = "missing_title"
	IssueMissingCoordinates = "missing_coordinates"
)

// Issue is one problem found in a dataset file.
type Issue struct {
	Kind    string `json:"kind"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// DatasetReport strictly types the result of a dataset integrity check.
type DatasetReport struct {
	Path      string            `json:"path"`
	Records   int               `json:"records"`
	Active    int               `json:"active"`
	Deleted   int               `json:"deleted"`
	Canonical bool              `json:"canonical"`
	Load      dataset.LoadStats `json:"load"`
	Issues    []Issue           `json:"issues"`
	Status    string            `json:"status"` // "ok", "issues"
}

// CheckDataset loads the dataset at path and validates it: every entry must
// load, the file must be in canonical order and layout, and every record must
// carry consistent provenance. Active records without a title or coordinates
// are reported too.
func CheckDataset(path string, logger *zap.Logger) (*DatasetReport, error) {
	ds, stats, err := dataset.Load(path, logger)
	if err != nil {
		return nil, err
	}

	report := &DatasetReport{
		Path:    path,
		Records: ds.Len(),
		Active:  ds.Count(record.StatusActive),
		Deleted: ds.Count(record.StatusDeleted),
		Load:    stats,
		Issues:  []Issue{},
	}

	if skipped := stats.Skipped(); skipped > 0 || stats.Unparseable {
		report.Issues = append(report.Issues, Issue{
			Kind:    IssueSkippedEntries,
			Message: fmt.Sprintf("%d of %d entries could not be loaded", stats.Entries-stats.Loaded, stats.Entries),
		})
	}

	if stats.Migrated > 0 {
		report.Issues = append(report.Issues, Issue{
			Kind:    IssueLegacyEntries,
			Message: fmt.Sprintf("%d entries lack provenance or carry legacy keys", stats.Migrated),
		})
	}

	if stats.Missing {
		report.Canonical = true
	} else {
		canonical, err := isCanonical(path, ds, stats.Format)
		if err != nil {
			return nil, err
		}
		report.Canonical = canonical
		if !canonical {
			report.Issues = append(report.Issues, Issue{
				Kind:    IssueNotCanonical,
				Message: "file differs from its canonical encoding (order, layout or legacy keys)",
			})
		}
	}

	for _, r := range ds.Sorted() {
		report.Issues = append(report.Issues, checkRecord(r)...)
	}

	report.Status = "ok"
	if len(report.Issues) > 0 {
		report.Status = "issues"
	}
	return report, nil
}

func checkRecord(r *record.Record) []Issue {
	var issues []Issue
	add := func(kind, format string, args ...any) {
		issues = append(issues, Issue{Kind: kind, ID: r.ID, Message: fmt.Sprintf(format, args...)})
	}

	if !r.FirstSeen.Equal(r.AddedAt) {
		add(IssueAddedAtMismatch, "first_seen %s differs from added_at %s",
			r.FirstSeen.Format(record.TimeLayout), r.AddedAt.Format(record.TimeLayout))
	}
	if r.LastUpdated.Before(r.FirstSeen) {
		add(IssueUpdatedBeforeSeen, "last_updated %s precedes first_seen %s",
			r.LastUpdated.Format(record.TimeLayout), r.FirstSeen.Format(record.TimeLayout))
	}

	if r.Status != record.StatusActive {
		return issues
	}
	if r.StringField(record.FieldTitle) == "" {
		add(IssueMissingTitle, "active record has no title")
	}
	if !hasValue(r, record.FieldLat) || !hasValue(r, record.FieldLng) {
		add(IssueMissingCoordinates, "active record has no coordinates")
	}
	return issues
}

func hasValue(r *record.Record, name string) bool {
	v, ok := r.Field(name)
	return ok && v != nil
}

// isCanonical reports whether the file bytes equal a fresh encoding of ds.
func isCanonical(path string, ds *record.Dataset, format dataset.Format) (bool, error) {
	current, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read dataset %s: %w", path, err)
	}
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := dataset.Encode(w, ds.Sorted(), format); err != nil {
		return false, err
	}
	if err := w.Flush(); err != nil {
		return false, err
	}
	return bytes.Equal(current, buf.Bytes()), nil
}
