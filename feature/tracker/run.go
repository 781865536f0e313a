package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("tracker: run not found")

// Run is one scan pass as kept in the history table.
type Run struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Source       string    `gorm:"size:64;index" json:"source"`
	WindowMin    int       `json:"window_min"`
	WindowMax    int       `json:"window_max"`
	Visited      int       `json:"visited"`
	Found        int       `json:"found"`
	Absent       int       `json:"absent"`
	Failed       int       `json:"failed"`
	Added        int       `json:"added"`
	Removed      int       `json:"removed"`
	Changed      int       `json:"changed"`
	Resurrected  int       `json:"resurrected"`
	NeedsReview  int       `json:"needs_review"`
	Records      int       `json:"records"`
	Active       int       `json:"active"`
	Cancelled    bool      `json:"cancelled"`
	LimitReached bool      `json:"limit_reached"`
	Diff         string    `gorm:"type:text" json:"diff"`
	StartedAt    time.Time `gorm:"index" json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// TableName overrides the gorm default.
func (Run) TableName() string {
	return "scan_runs"
}

// NewRun flattens a summary into a history row.
func NewRun(s *Summary) (*Run, error) {
	diff, err := json.Marshal(s.Diff)
	if err != nil {
		return nil, err
	}
	return &Run{
		ID:           s.RunID,
		Source:       s.Source,
		WindowMin:    s.Window.Min,
		WindowMax:    s.Window.Max,
		Visited:      s.Report.Visited,
		Found:        s.Report.Found,
		Absent:       s.Report.Absent,
		Failed:       s.Report.Failed,
		Added:        len(s.Added),
		Removed:      len(s.Removed),
		Changed:      len(s.Diff.Changed),
		Resurrected:  len(s.Resurrected),
		NeedsReview:  len(s.NeedsReview),
		Records:      s.Records,
		Active:       s.Active,
		Cancelled:    s.Cancelled,
		LimitReached: s.Report.LimitReached,
		Diff:         string(diff),
		StartedAt:    s.StartedAt,
		FinishedAt:   s.FinishedAt,
	}, nil
}

// RunStore keeps the scan history in a SQL database.
type RunStore struct {
	db *gorm.DB
}

// NewRunStore creates a store on db.
func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db}
}

// Migrate creates or updates the history table.
func (s *RunStore) Migrate() error {
	return s.db.AutoMigrate(&Run{})
}

// Record stores the summary of a pass.
func (s *RunStore) Record(ctx context.Context, summary *Summary) error {
	run, err := NewRun(summary)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (s *RunStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := s.db.WithContext(ctx).Order("started_at desc").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Get returns one run.
func (s *RunStore) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &run, nil
}
