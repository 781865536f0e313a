package record

// Candidate is what a source adapter extracts from one fetched page.
type Candidate struct {
	ID     string
	Fields map[string]any
	// Unobserved names fields the page could not tell anything about, such as
	// coordinates that are only known after a successful geocode. They are
	// neither compared nor cleared on merge.
	Unobserved map[string]bool
}

// NewCandidate returns an empty candidate for id.
func NewCandidate(id string) Candidate {
	return Candidate{ID: id, Fields: make(map[string]any), Unobserved: make(map[string]bool)}
}

// Set stores a field value and marks it observed.
func (c Candidate) Set(name string, v any) {
	c.Fields[name] = v
	delete(c.Unobserved, name)
}

// MarkUnobserved flags fields that this candidate cannot speak for.
func (c Candidate) MarkUnobserved(names ...string) {
	if c.Unobserved == nil {
		return
	}
	for _, name := range names {
		if _, ok := c.Fields[name]; !ok {
			c.Unobserved[name] = true
		}
	}
}

// Observed reports whether the candidate speaks for name. A field missing from
// Fields is observed as blank unless it was marked unobserved.
func (c Candidate) Observed(name string) bool {
	return !c.Unobserved[name]
}

// String returns a string field or "".
func (c Candidate) String(name string) string {
	s, _ := c.Fields[name].(string)
	return s
}

// HasCoordinates reports whether both lat and lng are present and non-nil.
func (c Candidate) HasCoordinates() bool {
	lat, okLat := c.Fields[FieldLat]
	lng, okLng := c.Fields[FieldLng]
	return okLat && okLng && lat != nil && lng != nil
}
