package scan

import (
	"errors"
	"fmt"
)

// ErrInvalidWindow is returned when a window cannot be scanned.
var ErrInvalidWindow = errors.New("scan: invalid window")

// Window is an inclusive ID range.
type Window struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Len returns the number of IDs in the window.
func (w Window) Len() int {
	if w.Empty() {
		return 0
	}
	return w.Max - w.Min + 1
}

// Empty reports whether the window holds no IDs.
func (w Window) Empty() bool {
	return w.Max < w.Min
}

// Validate checks that the window starts at 1 or later and is not inverted.
func (w Window) Validate() error {
	if w.Min < 1 {
		return fmt.Errorf("%w: min %d is below 1", ErrInvalidWindow, w.Min)
	}
	if w.Max < w.Min {
		return fmt.Errorf("%w: max %d is below min %d", ErrInvalidWindow, w.Max, w.Min)
	}
	return nil
}

func (w Window) String() string {
	return fmt.Sprintf("[%d, %d]", w.Min, w.Max)
}

// ResolveWindow picks the window for a pass. Without Resume the configured range
// is used as is. With Resume the scan starts after highest, the highest ID
// already known, and ends at Max or after Lookahead IDs when Max is zero.
//
// A resumed scan whose start is beyond Max yields an empty window, which is not
// an error: there is simply nothing new to probe.
func ResolveWindow(cfg Config, highest int) (Window, error) {
	lo := cfg.Min
	if lo < 1 {
		lo = 1
	}

	if !cfg.Resume {
		w := Window{Min: lo, Max: cfg.Max}
		if err := w.Validate(); err != nil {
			return Window{}, err
		}
		return w, nil
	}

	start := lo
	if highest+1 > start {
		start = highest + 1
	}
	end := cfg.Max
	if end <= 0 {
		lookahead := cfg.Lookahead
		if lookahead <= 0 {
			return Window{}, fmt.Errorf("%w: resume needs max or lookahead", ErrInvalidWindow)
		}
		end = start + lookahead - 1
	}
	return Window{Min: start, Max: end}, nil
}
