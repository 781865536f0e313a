// Package reconcile merges fetch observations into a persisted dataset.
//
// For every scanned ID the engine decides whether the record is new, unchanged,
// changed, deleted or resurrected, mutates the dataset accordingly and records the
// decision in a record.Diff.
//
// # Rules
//
//	Absent,  record active             -> status=deleted, last_updated=now, removed
//	Absent,  no record / deleted       -> no-op
//	Found,   no record                 -> insert active record, added
//	Found,   record deleted            -> status=active, last_updated=now, resurrected
//	Found,   record active, differs    -> overwrite differing fields, changed
//	Found,   record active, identical  -> untouched (last_updated included)
//	Failed / Unparsed                  -> untouched, reported as skipped / needs review
//
// Field comparison runs over an explicit allow-list of core fields supplied by the
// source adapter. Lists compare as unordered sets; scalars compare by value with
// "", null and a missing key treated as the same value. Fields the candidate does
// not carry at all are not compared.
//
// # Usage
//
//	eng := reconcile.NewEngine(ds, reconcile.Options{CoreFields: src.CoreFields(), Now: clock})
//	for obs := range observations {
//	    eng.Apply(obs)
//	}
//	diff := eng.Diff()
//
// Merge is a pure function of (old dataset, observation stream) apart from the
// injected clock, and it is idempotent: replaying a stream against its own output
// produces an empty diff.
package reconcile
