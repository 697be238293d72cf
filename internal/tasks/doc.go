// Package tasks implements the synchronization engine: the per-subscription
// reconciliation pass and everything it drives.
//
// # Core Operations
//
// The [Engine] exposes the sync surface:
//
//  1. [Engine.Synchronize] : one reconciliation pass for one subscription
//     - Resets the transient new flags
//     - Reconciles the remote feed against the catalog (incremental with
//       full-listing fallback, or full backfill for never-synced subscriptions)
//     - Stamps last_synchronised, probes every video's local files, and
//       feeds the download scheduler when auto-download resolves true
//
//  2. [Engine.SynchronizeAll] / [Engine.SynchronizeFolder] : batch passes,
//     never-synced subscriptions first; one subscription's failure never
//     blocks the rest
//
//  3. Video actions : [Engine.MarkWatched], [Engine.MarkUnwatched],
//     [Engine.DeleteFiles], [Engine.Download]
//
// # Download discipline
//
// Candidate selection truncates by the global quota first, then the
// per-subscription quota. The actual download invocation is serialized
// process-wide behind a mutex because yt-dlp's directory creation is not
// safe to run concurrently.
//
// # Scheduling
//
// [Queue] provides at-least-once background execution with an idempotency
// key of (kind, subscription id), which keeps two passes for the same
// subscription from ever running concurrently.
package tasks
