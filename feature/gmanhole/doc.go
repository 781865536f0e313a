// Package gmanhole is the source adapter for the Gundam manhole detail pages at
// <base>/detail.php?id=<id>.
//
// The pages carry no coordinates. Prefecture and city come from a
// "県/市" text run, the address from the first line naming both, and the title
// from the first h3. Characters and series are recognized from a fixed pattern
// table. Coordinates are left for the geocode enricher.
package gmanhole
