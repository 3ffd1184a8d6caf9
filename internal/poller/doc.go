// Package poller runs the periodic sync check.
//
// The poller:
//   - Checks every Interval (default 15m) whether a sync is due
//   - Runs the sync through the orchestrator's AutoSync policy (24h)
//   - Hands every performed run to a ResultHandler (the dataset holder),
//     which keeps its current data when the run failed
package poller
