package record

// Diff is the structured result of one reconciliation pass. The four sets are
// pairwise disjoint.
type Diff struct {
	Added       []string            `json:"added"`
	Removed     []string            `json:"removed"`
	Changed     map[string][]string `json:"changed"`
	Resurrected []string            `json:"resurrected"`
}

// NewDiff returns an empty diff whose collections encode as [] and {}.
func NewDiff() Diff {
	return Diff{
		Added:       []string{},
		Removed:     []string{},
		Changed:     map[string][]string{},
		Resurrected: []string{},
	}
}

// IsEmpty reports whether the pass changed nothing.
func (d Diff) IsEmpty() bool {
	return d.Len() == 0
}

// Len returns the number of IDs mentioned in the diff.
func (d Diff) Len() int {
	return len(d.Added) + len(d.Removed) + len(d.Changed) + len(d.Resurrected)
}

// ChangedIDs returns the IDs of changed records in numeric order.
func (d Diff) ChangedIDs() []string {
	ids := make([]string, 0, len(d.Changed))
	for id := range d.Changed {
		ids = append(ids, id)
	}
	SortIDs(ids)
	return ids
}
