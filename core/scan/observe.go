package scan

import (
	"errors"
	"fmt"

	"manhole-tracker/core/fetch"
	"manhole-tracker/core/reconcile"
)

// Observe turns a fetch outcome into an engine observation, parsing Found
// content through the source. The returned error explains an Unparsed result.
func Observe(src Source, id string, out fetch.Outcome) (reconcile.Observation, error) {
	obs := reconcile.Observation{ID: id}
	switch out.Kind {
	case fetch.Absent:
		obs.Kind = reconcile.Absent
		return obs, nil
	case fetch.Found:
	default:
		obs.Kind = reconcile.Failed
		return obs, nil
	}

	cand, err := src.Parse(id, out.Content)
	switch {
	case errors.Is(err, ErrAbsent):
		obs.Kind = reconcile.Absent
		return obs, nil
	case err != nil:
		obs.Kind = reconcile.Unparsed
		return obs, err
	case cand.ID != "" && cand.ID != id:
		obs.Kind = reconcile.Unparsed
		return obs, fmt.Errorf("%w: page for %s describes %s", ErrNoRecord, id, cand.ID)
	}
	cand.ID = id
	obs.Kind = reconcile.Found
	obs.Candidate = cand
	return obs, nil
}
