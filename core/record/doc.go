// Package record defines the data model shared by every stage of a scan pass.
//
// A Record is one discovered entity keyed by a canonical digit-string ID. It carries
// provenance (first_seen, added_at, last_updated, status) as typed fields and the
// site-specific domain fields as raw JSON values, so fields the current code does not
// know about survive a load/save round trip unchanged.
//
// # Lifecycle
//
// Records are never physically removed from a Dataset. Deletion is a status flag:
//
//	active  --Absent-->  deleted
//	deleted --Found--->  active   (resurrection)
//
// # Ordering
//
// Dataset.Sorted returns the canonical serialization order: ascending numeric ID,
// active before deleted when two IDs compare equal.
package record
