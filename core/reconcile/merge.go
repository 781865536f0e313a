package reconcile

import (
	"fmt"
	"time"

	"manhole-tracker/core/record"
)

// Merge folds a Found candidate into the existing record, which may be nil.
// It never mutates old; when nothing changes old itself is returned.
func Merge(old *record.Record, cand record.Candidate, coreFields []string, now time.Time) (*record.Record, Change, error) {
	now = record.Stamp(now)

	if old == nil {
		r, err := record.New(cand, now)
		if err != nil {
			return nil, Change{}, err
		}
		return r, Change{ID: cand.ID, Transition: TransitionCreated}, nil
	}

	fields, err := diffFields(old, cand, coreFields)
	if err != nil {
		return nil, Change{}, fmt.Errorf("compare %s: %w", old.ID, err)
	}

	if old.Status == record.StatusDeleted {
		next := old.Clone()
		next.Status = record.StatusActive
		next.LastUpdated = now
		if err := overwrite(next, cand, fields); err != nil {
			return nil, Change{}, err
		}
		return next, Change{ID: old.ID, Transition: TransitionResurrected, Fields: fields}, nil
	}

	if len(fields) == 0 {
		return old, Change{ID: old.ID, Transition: TransitionUnchanged}, nil
	}

	next := old.Clone()
	if err := overwrite(next, cand, fields); err != nil {
		return nil, Change{}, err
	}
	next.LastUpdated = now
	return next, Change{ID: old.ID, Transition: TransitionChanged, Fields: fields}, nil
}

// Retract applies an authoritative Absent observation to the existing record,
// which may be nil.
func Retract(old *record.Record, now time.Time) (*record.Record, Change) {
	if old == nil {
		return nil, Change{Transition: TransitionNoop}
	}
	if old.Status != record.StatusActive {
		return old, Change{ID: old.ID, Transition: TransitionNoop}
	}
	next := old.Clone()
	next.Status = record.StatusDeleted
	next.LastUpdated = record.Stamp(now)
	return next, Change{ID: old.ID, Transition: TransitionDeleted}
}

func overwrite(r *record.Record, cand record.Candidate, fields []string) error {
	for _, name := range fields {
		v, ok := cand.Fields[name]
		if !ok {
			delete(r.Fields, name)
			continue
		}
		if err := r.SetField(name, v); err != nil {
			return err
		}
	}
	return nil
}
