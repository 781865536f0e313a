package reconcile

import (
	"sort"

	"manhole-tracker/core/record"

	"go.uber.org/zap"
)

// Engine applies a stream of observations to a dataset in place. It is driven by
// a single goroutine; the dataset is flushed as a unit by the caller.
type Engine struct {
	ds   *record.Dataset
	opts Options

	added       map[string]struct{}
	removed     map[string]struct{}
	changed     map[string]map[string]struct{}
	resurrected map[string]struct{}
	stats       Stats
}

// NewEngine creates an engine that mutates ds.
func NewEngine(ds *record.Dataset, opts Options) *Engine {
	return &Engine{
		ds:          ds,
		opts:        opts.withDefaults(),
		added:       make(map[string]struct{}),
		removed:     make(map[string]struct{}),
		changed:     make(map[string]map[string]struct{}),
		resurrected: make(map[string]struct{}),
	}
}

// Dataset returns the dataset being mutated.
func (e *Engine) Dataset() *record.Dataset {
	return e.ds
}

// Apply merges one observation and returns what happened to the record.
func (e *Engine) Apply(obs Observation) Change {
	log := e.opts.Logger.With(zap.String("id", obs.ID))
	old, _ := e.ds.Get(obs.ID)

	switch obs.Kind {
	case Absent:
		next, ch := Retract(old, e.opts.Now())
		ch.ID = obs.ID
		if ch.Transition == TransitionDeleted {
			e.ds.Put(next)
			e.note(ch)
			log.Info("Record deleted")
		} else {
			e.stats.Noop++
		}
		return ch

	case Found:
		cand := obs.Candidate
		cand.ID = obs.ID
		next, ch, err := Merge(old, cand, e.opts.CoreFields, e.opts.Now())
		if err != nil {
			log.Warn("Candidate could not be merged", zap.Error(err))
			e.stats.NeedsReview = append(e.stats.NeedsReview, obs.ID)
			return Change{ID: obs.ID, Transition: TransitionNeedsReview}
		}
		switch ch.Transition {
		case TransitionUnchanged:
			e.stats.Unchanged++
			return ch
		case TransitionCreated:
			log.Info("Record added")
		case TransitionResurrected:
			log.Info("Record resurrected", zap.Strings("fields", ch.Fields))
		case TransitionChanged:
			log.Info("Record changed", zap.Strings("fields", ch.Fields))
		}
		e.ds.Put(next)
		e.note(ch)
		return ch

	case Failed:
		e.stats.Skipped = append(e.stats.Skipped, obs.ID)
		return Change{ID: obs.ID, Transition: TransitionSkipped}

	default:
		e.stats.NeedsReview = append(e.stats.NeedsReview, obs.ID)
		return Change{ID: obs.ID, Transition: TransitionNeedsReview}
	}
}

// note records a transition in the diff, keeping the four sets disjoint. A change
// to a record that was added or resurrected earlier in the same pass stays under
// that earlier classification.
func (e *Engine) note(ch Change) {
	id := ch.ID
	switch ch.Transition {
	case TransitionCreated:
		e.forget(id)
		e.added[id] = struct{}{}
	case TransitionResurrected:
		e.forget(id)
		e.resurrected[id] = struct{}{}
	case TransitionDeleted:
		e.forget(id)
		e.removed[id] = struct{}{}
	case TransitionChanged:
		if _, ok := e.added[id]; ok {
			return
		}
		if _, ok := e.resurrected[id]; ok {
			return
		}
		set, ok := e.changed[id]
		if !ok {
			set = make(map[string]struct{})
			e.changed[id] = set
		}
		for _, f := range ch.Fields {
			set[f] = struct{}{}
		}
	}
}

func (e *Engine) forget(id string) {
	delete(e.added, id)
	delete(e.removed, id)
	delete(e.changed, id)
	delete(e.resurrected, id)
}

// Diff returns the diff accumulated so far, with IDs in numeric order.
func (e *Engine) Diff() record.Diff {
	d := record.NewDiff()
	d.Added = sortedKeys(e.added)
	d.Removed = sortedKeys(e.removed)
	d.Resurrected = sortedKeys(e.resurrected)
	for id, set := range e.changed {
		fields := make([]string, 0, len(set))
		for f := range set {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		d.Changed[id] = fields
	}
	return d
}

// Stats returns the counters accumulated so far.
func (e *Engine) Stats() Stats {
	s := e.stats
	s.Skipped = append([]string{}, e.stats.Skipped...)
	s.NeedsReview = append([]string{}, e.stats.NeedsReview...)
	return s
}

// Reconcile is the batch form of the engine: it applies observations to a copy
// of ds and returns the new dataset with its diff. ds is left untouched.
func Reconcile(ds *record.Dataset, observations []Observation, opts Options) (*record.Dataset, record.Diff, Stats) {
	eng := NewEngine(ds.Clone(), opts)
	for _, obs := range observations {
		eng.Apply(obs)
	}
	return eng.Dataset(), eng.Diff(), eng.Stats()
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	record.SortIDs(out)
	return out
}
