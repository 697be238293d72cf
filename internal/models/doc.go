// Package models defines the domain entities of the subscription manager.
//
// The package contains two categories of types:
//
// 1. Transient values reported by feed providers:
//   - [RemoteItem] : One entry of a remote feed or listing
//   - [Stats] : Refreshed engagement numbers for a single video
//
// 2. Persistent entities backed by the catalog database:
//   - [User] : Preference rows holding the download defaults
//   - [SubscriptionFolder] : User-defined grouping tree for subscriptions
//   - [Subscription] : A followed channel, playlist, or feed with per-subscription overrides
//   - [Video] : A catalog entry tracking watch and download state
//
// Per-subscription overrides are pointer fields; nil inherits the owning
// user's default. The Resolve* methods on [Subscription] fold the two
// levels together.
package models
