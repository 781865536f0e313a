// Package tracker runs scan passes and serves their results.
//
// One pass loads the dataset, resolves the ID window, drives the fetcher over it,
// merges every observation through the reconciliation engine, optionally
// geocodes new addresses, and writes the dataset back atomically. The write
// happens on every exit path, including an interrupt, so the work done so far is
// never lost.
//
// After the write, non-fatal follow-ups run in order: active-only mirrors (a local
// file, an object storage bucket), the geocode cache, and the run history table.
// A failing follow-up is logged and does not fail the pass.
//
// # HTTP Endpoints
//
//   - GET /records : Lists records (supports ?status=active|deleted).
//   - GET /records/:id : Returns one record.
//   - GET /runs : Lists recent scan runs (supports ?limit=N).
//   - GET /runs/:id : Returns one scan run.
package tracker
