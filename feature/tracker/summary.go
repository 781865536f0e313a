package tracker

import (
	"time"

	"manhole-tracker/core/dataset"
	"manhole-tracker/core/record"
	"manhole-tracker/core/scan"
)

// Summary is the outcome of one scan pass. The diff keys are inlined so the
// JSON form carries added, removed, changed and resurrected at the top level.
type Summary struct {
	RunID  string      `json:"run_id"`
	Source string      `json:"source"`
	Window scan.Window `json:"window"`
	record.Diff
	// Skipped lists IDs whose fetch failed after all retries.
	Skipped []string `json:"skipped"`
	// NeedsReview lists IDs whose page could not be parsed.
	NeedsReview []string          `json:"needs_review"`
	Report      scan.Report       `json:"report"`
	Load        dataset.LoadStats `json:"load"`
	Records     int               `json:"records"`
	Active      int               `json:"active"`
	Cancelled   bool              `json:"cancelled"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
}

// HasChanges reports whether the pass modified the dataset.
func (s *Summary) HasChanges() bool {
	return !s.Diff.IsEmpty()
}
