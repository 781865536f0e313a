package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"manhole-tracker/core/dataset"
	"manhole-tracker/core/fetch"
	"manhole-tracker/core/geocode"
	"manhole-tracker/core/reconcile"
	"manhole-tracker/core/record"
	"manhole-tracker/core/scan"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrRecordNotFound is returned when the dataset has no record with the requested ID.
	ErrRecordNotFound = errors.New("tracker: record not found")
	// ErrUnknownSource is returned when a scan names a source that is not registered.
	ErrUnknownSource = errors.New("tracker: unknown source")
	// ErrInvalidStatus is returned for a status filter other than active or deleted.
	ErrInvalidStatus = errors.New("tracker: invalid status")
	// ErrScanInProgress is returned when a second scan is started on the same service.
	ErrScanInProgress = errors.New("tracker: scan already in progress")
	// ErrNoRunStore is returned by run queries when no database is configured.
	ErrNoRunStore = errors.New("tracker: run history is not configured")
)

// ScanOptions selects the source and window of one pass. Zero OutputPath and
// Format fall back to the service's dataset configuration.
type ScanOptions struct {
	scan.Config
	OutputPath string
	Format     dataset.Format
}

// Service runs scan passes and serves the resulting dataset.
type Service struct {
	dataset  dataset.Config
	fetcher  scan.Fetcher
	sources  map[string]scan.Source
	enricher *geocode.Enricher
	cache    *geocode.Cache
	mirrors  []Mirror
	runs     *RunStore
	logger   *zap.Logger
	now      func() time.Time

	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithSource registers a source adapter under its name.
func WithSource(src scan.Source) Option {
	return func(s *Service) { s.sources[src.Name()] = src }
}

// WithEnricher enables geocoding of candidates without coordinates. The cache
// is saved after every pass.
func WithEnricher(e *geocode.Enricher, cache *geocode.Cache) Option {
	return func(s *Service) {
		s.enricher = e
		s.cache = cache
	}
}

// WithMirror adds a mirror published after every successful save.
func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirrors = append(s.mirrors, m) }
}

// WithRunStore records every pass in the run history.
func WithRunStore(r *RunStore) Option {
	return func(s *Service) { s.runs = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a tracker service.
func NewService(cfg dataset.Config, fetcher scan.Fetcher, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		dataset: cfg,
		fetcher: fetcher,
		sources: make(map[string]scan.Source),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sources returns the registered source names, sorted.
func (s *Service) Sources() []string {
	names := make([]string, 0, len(s.sources))
	for name := range s.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scan runs one pass over the window described by opts. Cancelling ctx stops the
// scan between two IDs; the records reconciled so far are still saved and the
// summary is marked cancelled.
//
// Only a failure to write the dataset is returned together with the summary.
// Mirror, cache and history failures are logged.
func (s *Service) Scan(ctx context.Context, opts ScanOptions) (*Summary, error) {
	src, ok := s.sources[opts.Source]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, opts.Source)
	}
	path, format, err := s.target(opts)
	if err != nil {
		return nil, err
	}

	if !s.mu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer s.mu.Unlock()

	runID := uuid.NewString()
	l := s.logger.With(zap.String("run_id", runID), zap.String("source", src.Name()))
	startedAt := record.Stamp(s.now())

	ds, stats, err := dataset.LoadAt(path, startedAt, l)
	if err != nil {
		return nil, err
	}

	window, err := scan.ResolveWindow(opts.Config, ds.HighestID())
	if err != nil {
		return nil, err
	}

	engine := reconcile.NewEngine(ds, reconcile.Options{
		CoreFields: src.CoreFields(),
		Now:        s.now,
		Logger:     l,
	})
	// enrichment of an ID already fetched is allowed to finish after ctx is cancelled
	enrichCtx := context.WithoutCancel(ctx)

	driver := scan.NewDriver(src, s.fetcher, opts.NewLimit, l)
	report := driver.Run(ctx, window, func(id string, out fetch.Outcome) bool {
		obs, perr := scan.Observe(src, id, out)
		if perr != nil {
			l.Warn("Page needs review", zap.String("id", id), zap.Error(perr))
		}
		if obs.Kind == reconcile.Found && s.enricher != nil {
			s.enricher.Enrich(enrichCtx, obs.Candidate)
		}
		return engine.Apply(obs).Created()
	})

	engineStats := engine.Stats()
	summary := &Summary{
		RunID:       runID,
		Source:      src.Name(),
		Window:      window,
		Diff:        engine.Diff(),
		Skipped:     engineStats.Skipped,
		NeedsReview: engineStats.NeedsReview,
		Report:      report,
		Load:        stats,
		Records:     ds.Len(),
		Active:      ds.Count(record.StatusActive),
		Cancelled:   report.Cancelled,
		StartedAt:   startedAt,
	}

	if err := dataset.Save(path, ds, format); err != nil {
		summary.FinishedAt = record.Stamp(s.now())
		l.Error("Failed to save dataset", zap.String("path", path), zap.Error(err))
		return summary, err
	}
	l.Info("Dataset saved",
		zap.String("path", path),
		zap.Int("records", summary.Records),
		zap.Int("added", len(summary.Added)),
		zap.Int("removed", len(summary.Removed)),
		zap.Int("changed", len(summary.Diff.Changed)),
		zap.Int("resurrected", len(summary.Resurrected)),
	)

	publishCtx := context.WithoutCancel(ctx)
	for _, m := range s.mirrors {
		if err := m.Publish(publishCtx, ds); err != nil {
			l.Warn("Failed to publish mirror", zap.String("mirror", m.Name()), zap.Error(err))
			continue
		}
		l.Debug("Mirror published", zap.String("mirror", m.Name()))
	}

	if s.cache != nil {
		if err := s.cache.Save(); err != nil {
			l.Warn("Failed to save geocode cache", zap.Error(err))
		}
	}

	summary.FinishedAt = record.Stamp(s.now())
	if s.runs != nil {
		if err := s.runs.Record(publishCtx, summary); err != nil {
			l.Warn("Failed to record run", zap.Error(err))
		}
	}
	return summary, nil
}

func (s *Service) target(opts ScanOptions) (string, dataset.Format, error) {
	path := opts.OutputPath
	if path == "" {
		path = s.dataset.OutputPath
	}
	format := opts.Format
	if format == "" {
		f, err := dataset.ParseFormat(s.dataset.Format)
		if err != nil {
			return "", "", err
		}
		format = f
	}
	return path, format, nil
}

// Records returns the records of the dataset file, optionally filtered by
// status. An empty status returns every record.
func (s *Service) Records(_ context.Context, status string) ([]*record.Record, error) {
	st := record.Status(status)
	if status != "" && !st.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	ds, _, err := dataset.Load(s.dataset.OutputPath, s.logger)
	if err != nil {
		return nil, err
	}
	switch st {
	case "":
		return ds.Sorted(), nil
	case record.StatusActive:
		return ds.Active(), nil
	}
	out := make([]*record.Record, 0)
	for _, r := range ds.Sorted() {
		if r.Status == st {
			out = append(out, r)
		}
	}
	return out, nil
}

// Record returns one record of the dataset file.
func (s *Service) Record(_ context.Context, id string) (*record.Record, error) {
	ds, _, err := dataset.Load(s.dataset.OutputPath, s.logger)
	if err != nil {
		return nil, err
	}
	if !record.ValidID(id) {
		return nil, ErrRecordNotFound
	}
	r, ok := ds.Get(record.CanonicalID(id))
	if !ok {
		return nil, ErrRecordNotFound
	}
	return r, nil
}

// Runs returns the latest recorded passes.
func (s *Service) Runs(ctx context.Context, limit int) ([]Run, error) {
	if s.runs == nil {
		return nil, ErrNoRunStore
	}
	return s.runs.Recent(ctx, limit)
}

// Run returns one recorded pass.
func (s *Service) Run(ctx context.Context, id string) (*Run, error) {
	if s.runs == nil {
		return nil, ErrNoRunStore
	}
	return s.runs.Get(ctx, id)
}
