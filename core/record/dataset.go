package record

import (
	"sort"
	"strconv"
)

// Dataset maps IDs to records. It is not safe for concurrent mutation; a scan pass
// owns its dataset exclusively.
type Dataset struct {
	records map[string]*Record
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{records: make(map[string]*Record)}
}

// Get returns the record stored under id.
func (d *Dataset) Get(id string) (*Record, bool) {
	r, ok := d.records[id]
	return r, ok
}

// Put inserts or replaces the record under its ID.
func (d *Dataset) Put(r *Record) {
	d.records[r.ID] = r
}

// Has reports whether id is present.
func (d *Dataset) Has(id string) bool {
	_, ok := d.records[id]
	return ok
}

// Len returns the number of records, deleted ones included.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Sorted returns every record in canonical order.
func (d *Dataset) Sorted() []*Record {
	out := make([]*Record, 0, len(d.records))
	for _, r := range d.records {
		out = append(out, r)
	}
	sortRecords(out)
	return out
}

// Active returns the active records in canonical order.
func (d *Dataset) Active() []*Record {
	out := make([]*Record, 0, len(d.records))
	for _, r := range d.records {
		if r.Status == StatusActive {
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out
}

// Count returns how many records have the given status.
func (d *Dataset) Count(status Status) int {
	n := 0
	for _, r := range d.records {
		if r.Status == status {
			n++
		}
	}
	return n
}

// HighestID returns the highest numeric ID present, or 0 for an empty dataset.
func (d *Dataset) HighestID() int {
	highest := 0
	for id := range d.records {
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	c := &Dataset{records: make(map[string]*Record, len(d.records))}
	for id, r := range d.records {
		c.records[id] = r.Clone()
	}
	return c
}

// Less reports whether a sorts before b in canonical order.
func Less(a, b *Record) bool {
	if c := CompareIDs(a.ID, b.ID); c != 0 {
		return c < 0
	}
	if a.Status != b.Status {
		return a.Status == StatusActive
	}
	return a.ID < b.ID
}

func sortRecords(rs []*Record) {
	sort.SliceStable(rs, func(i, j int) bool { return Less(rs[i], rs[j]) })
}
