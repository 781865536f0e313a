// Package dataset loads and saves the record file.
//
// Two on-disk layouts are understood: line-delimited JSON (one record per line,
// the canonical format) and a single JSON array. Loading is lenient: malformed
// entries are skipped and counted, and a file that cannot be parsed at all is
// treated as empty. Saving is strict and atomic: the previous file stays intact
// unless the new one has been completely written and synced.
package dataset
