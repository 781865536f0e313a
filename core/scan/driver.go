package scan

import (
	"context"
	"strconv"

	"manhole-tracker/core/fetch"

	"go.uber.org/zap"
)

// Fetcher is the subset of fetch.Fetcher the driver needs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) fetch.Outcome
}

// Visitor receives every fetched ID in ascending order. It returns true when
// the ID turned out to be a newly discovered record.
type Visitor func(id string, out fetch.Outcome) (discovered bool)

// Report summarizes a driver run.
type Report struct {
	Window       Window   `json:"window"`
	Visited      int      `json:"visited"`
	Found        int      `json:"found"`
	Absent       int      `json:"absent"`
	Failed       int      `json:"failed"`
	Skipped      []string `json:"skipped"`
	Discovered   int      `json:"discovered"`
	Cancelled    bool     `json:"cancelled"`
	LimitReached bool     `json:"limit_reached"`
	// LastID is the last ID visited, 0 when none was.
	LastID int `json:"last_id"`
}

// Driver iterates a window through a fetcher.
type Driver struct {
	source   Source
	fetcher  Fetcher
	newLimit int
	logger   *zap.Logger
}

// NewDriver creates a driver. newLimit <= 0 disables the discovery limit.
func NewDriver(source Source, fetcher Fetcher, newLimit int, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		source:   source,
		fetcher:  fetcher,
		newLimit: newLimit,
		logger:   logger.With(zap.String("source", source.Name())),
	}
}

// Run visits every ID of w until the window ends, the discovery limit is hit, or
// ctx is cancelled. It never returns early in the middle of an ID.
func (d *Driver) Run(ctx context.Context, w Window, visit Visitor) Report {
	rep := Report{Window: w, Skipped: []string{}}
	d.logger.Info("Starting scan", zap.Int("min", w.Min), zap.Int("max", w.Max))

	for n := w.Min; n <= w.Max; n++ {
		if ctx.Err() != nil {
			rep.Cancelled = true
			d.logger.Warn("Scan interrupted", zap.Int("next_id", n))
			break
		}

		id := strconv.Itoa(n)
		url := d.source.URL(n)
		out := d.fetcher.Fetch(ctx, url)
		rep.Visited++
		rep.LastID = n

		switch out.Kind {
		case fetch.Found:
			rep.Found++
		case fetch.Absent:
			rep.Absent++
		default:
			rep.Failed++
			rep.Skipped = append(rep.Skipped, id)
			d.logger.Warn("Fetch failed, skipping id",
				zap.String("id", id),
				zap.String("url", url),
				zap.Int("attempts", out.Attempts),
				zap.Error(out.Err),
			)
		}

		if visit(id, out) {
			rep.Discovered++
			if d.newLimit > 0 && rep.Discovered >= d.newLimit {
				rep.LimitReached = true
				d.logger.Info("Discovery limit reached", zap.Int("limit", d.newLimit))
				break
			}
		}
	}

	d.logger.Info("Scan finished",
		zap.Int("visited", rep.Visited),
		zap.Int("found", rep.Found),
		zap.Int("absent", rep.Absent),
		zap.Int("failed", rep.Failed),
		zap.Int("discovered", rep.Discovered),
		zap.Bool("cancelled", rep.Cancelled),
	)
	return rep
}
