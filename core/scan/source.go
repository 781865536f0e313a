package scan

import (
	"errors"

	"manhole-tracker/core/record"
)

var (
	// ErrNoRecord is returned by Source.Parse when the page holds no extractable
	// record. The ID is flagged for review and nothing is mutated.
	ErrNoRecord = errors.New("scan: no record in content")
	// ErrAbsent is returned by Source.Parse when the page itself states that the
	// ID does not exist. It is treated like a 404.
	ErrAbsent = errors.New("scan: source reports id absent")
)

// Source is a site-specific adapter: it knows where an ID lives and how to read it.
type Source interface {
	// Name identifies the source in logs and run history.
	Name() string
	// URL returns the page address of id.
	URL(id int) string
	// Parse extracts a candidate from fetched content.
	Parse(id string, content []byte) (record.Candidate, error)
	// CoreFields is the allow-list of fields compared between passes.
	CoreFields() []string
}
