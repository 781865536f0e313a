// Package scan walks a numeric ID window and hands each fetch outcome to a visitor.
//
// The driver is deliberately small: it owns the iteration order, the discovery
// limit and cancellation, and delegates fetching to core/fetch and merging to the
// caller's visitor (normally a reconcile.Engine).
//
// IDs are visited in ascending order, one request at a time. Cancellation is only
// observed between IDs, so a fetch that has started is always completed and
// handed to the visitor before the driver stops.
package scan
