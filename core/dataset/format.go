package dataset

import "fmt"

// Format is the on-disk layout of a dataset file.
type Format string

const (
	// FormatNDJSON writes one record per line.
	FormatNDJSON Format = "ndjson"
	// FormatArray writes a single JSON array.
	FormatArray Format = "array"
)

// ParseFormat validates a format name. The empty string selects NDJSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatNDJSON:
		return FormatNDJSON, nil
	case FormatArray:
		return FormatArray, nil
	default:
		return "", fmt.Errorf("unknown dataset format %q", s)
	}
}
