// Package syncer orchestrates a sync run across every configured source.
//
// SyncAll fans out one pipeline per source (fetch, then adapt), waits for all
// of them, and merges the survivors:
//
//	fetch ─┐
//	fetch ─┼─> collect (source order) -> dedup (title, start) -> stable sort -> month
//	fetch ─┘
//
// Each pipeline runs under its own deadline and its failure is recorded as a
// model.SourceError without affecting the others. The run succeeds when at
// least one source succeeded. A fault in the merge stage fails the whole run.
//
// The Syncer owns its state (last success time, in-flight flag). Only one run
// may be in flight; a concurrent SyncAll returns ErrSyncInProgress.
package syncer
