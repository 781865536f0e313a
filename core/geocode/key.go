package geocode

import (
	"strings"

	"golang.org/x/text/width"
)

var dashes = strings.NewReplacer(
	"ー", "-",
	"―", "-",
	"‐", "-",
	"‑", "-",
	"–", "-",
	"—", "-",
	"−", "-",
)

// NormalizeAddress folds full-width digits and letters to ASCII, maps the dash
// variants used in Japanese addresses to '-', collapses dash runs and trims.
func NormalizeAddress(addr string) string {
	if addr == "" {
		return ""
	}
	s := width.Fold.String(addr)
	s = dashes.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	prevDash := false
	for _, r := range s {
		if r == '-' {
			if prevDash {
				continue
			}
			prevDash = true
		} else {
			prevDash = false
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Key builds the cache key of an address.
func Key(prefecture, city, address string) string {
	return prefecture + "|" + city + "|" + NormalizeAddress(address)
}
