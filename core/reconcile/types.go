package reconcile

import (
	"time"

	"manhole-tracker/core/record"

	"go.uber.org/zap"
)

// Kind classifies one observation of an ID.
type Kind int

const (
	// Found carries a parsed candidate.
	Found Kind = iota
	// Absent means the source authoritatively reported that the ID does not exist.
	Absent
	// Failed means the fetch gave up on transient errors. Nothing is mutated.
	Failed
	// Unparsed means content was fetched but no record could be extracted.
	// It is kept apart from Absent so an extraction bug never deletes data.
	Unparsed
)

func (k Kind) String() string {
	switch k {
	case Found:
		return "found"
	case Absent:
		return "absent"
	case Failed:
		return "failed"
	case Unparsed:
		return "unparsed"
	default:
		return "unknown"
	}
}

// Observation is one (ID, outcome) pair fed to the engine.
type Observation struct {
	ID        string
	Kind      Kind
	Candidate record.Candidate
}

// Transition describes what happened to a record.
type Transition string

const (
	TransitionCreated     Transition = "created"
	TransitionChanged     Transition = "changed"
	TransitionUnchanged   Transition = "unchanged"
	TransitionDeleted     Transition = "deleted"
	TransitionResurrected Transition = "resurrected"
	TransitionNoop        Transition = "noop"
	TransitionSkipped     Transition = "skipped"
	TransitionNeedsReview Transition = "needs_review"
)

// Change is the outcome of applying a single observation.
type Change struct {
	ID         string
	Transition Transition
	// Fields lists the core fields written, sorted.
	Fields []string
}

// Created reports whether the observation discovered a new record.
func (c Change) Created() bool {
	return c.Transition == TransitionCreated
}

// Stats holds the per-pass counters that are not part of the diff.
type Stats struct {
	// Skipped lists IDs whose fetch failed after all retries.
	Skipped []string `json:"skipped"`
	// NeedsReview lists IDs whose content could not be parsed.
	NeedsReview []string `json:"needs_review"`
	// Unchanged counts active records observed with identical core fields.
	Unchanged int `json:"unchanged"`
	// Noop counts Absent observations with nothing to retract.
	Noop int `json:"noop"`
}

// Options configures an Engine.
type Options struct {
	// CoreFields is the allow-list of fields compared between passes.
	CoreFields []string
	// Now supplies the timestamp for every transition. Defaults to time.Now.
	Now func() time.Time
	// Logger receives one line per transition. Defaults to a no-op logger.
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
