// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
//
// Key Implementations:
//   - [UserRepository] : Preference rows with username-based lookups
//   - [FolderRepository] : Subscription folder hierarchy with cycle detection
//   - [SubscriptionRepository] : Subscriptions with provider-scoped playlist lookups and sync bookkeeping
//   - [VideoRepository] : Video catalog with playlist index and download-candidate queries
//
// Sequence numbers provide stable, human-readable ordering (e.g., user #42, subscription #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
