// Package updater drives the bundle lifecycle.
//
// A Manager downloads an archive, installs it into the hot and persistent
// trees under a fresh id and records it as pending. The current, fallback
// and next pointers decide which bundle the app loads:
//
//	Download -> Set -> (app loads bundle) -> Commit | Rollback
//
// Set fails closed when the target is not installed in both trees. Rollback
// only marks the record as failed; reverting is done by calling Set with the
// fallback. Callers serialize mutating calls.
package updater
