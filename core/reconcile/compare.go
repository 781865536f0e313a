package reconcile

import (
	"encoding/json"
	"reflect"
	"sort"

	"manhole-tracker/core/record"
)

// diffFields returns the sorted names of core fields whose candidate value differs
// from the stored one. A field missing from the candidate counts as blank; fields
// the candidate marks unobserved are skipped.
func diffFields(old *record.Record, cand record.Candidate, coreFields []string) ([]string, error) {
	var changed []string
	for _, name := range coreFields {
		if !cand.Observed(name) {
			continue
		}
		next, err := normalizeValue(cand.Fields[name])
		if err != nil {
			return nil, err
		}
		prev, _ := old.Field(name)
		if !equalValues(prev, next) {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

// normalizeValue converts a Go value to the shape json.Unmarshal into any would
// give, so candidate values compare like values read from disk.
func normalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func equalValues(a, b any) bool {
	_, aList := a.([]any)
	_, bList := b.([]any)
	if aList || bList {
		return equalSets(a, b)
	}
	if isBlank(a) && isBlank(b) {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// equalSets compares two list values ignoring order and duplicates. A blank
// scalar on either side counts as the empty list.
func equalSets(a, b any) bool {
	sa, okA := toSet(a)
	sb, okB := toSet(b)
	if !okA || !okB {
		return false
	}
	if len(sa) != len(sb) {
		return false
	}
	for k := range sa {
		if _, ok := sb[k]; !ok {
			return false
		}
	}
	return true
}

func toSet(v any) (map[string]struct{}, bool) {
	if isBlank(v) {
		return map[string]struct{}{}, true
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	set := make(map[string]struct{}, len(list))
	for _, el := range list {
		key, err := json.Marshal(el)
		if err != nil {
			return nil, false
		}
		set[string(key)] = struct{}{}
	}
	return set, true
}
