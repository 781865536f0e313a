// Package integrity provides health checks over the tracker's outputs.
//
// # Checks Provided
//
//   - Dataset: Loads the dataset file and reports skipped or legacy entries, a file
//     that is not in canonical form, inconsistent provenance (first_seen != added_at,
//     last_updated before first_seen), and active records without a title or coordinates.
//   - History: Validates that the scan_runs table matches the Run model.
//   - Mirror: Checks that the mirror bucket exists (optionally creates it).
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/dataset : Runs the dataset check.
//   - GET /integrity/history : Runs the run history schema check.
//   - GET /integrity/mirror : Runs the mirror bucket check (supports ?fix=true).
package integrity
