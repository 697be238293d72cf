// package providers implements the remote-platform capabilities the sync
// engine consumes: feed listings, per-video stats and URL matching.
//
// The provider set is a fixed enum dispatched through [Registry]; adding a
// platform means adding a [models.ProviderKind] and registering an
// implementation at startup.
package providers

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/shared"
)

// FeedMode selects between the cheap recent-items feed and the complete listing.
type FeedMode int

const (
	// FeedIncremental is the short recent-only feed used for routine polling.
	FeedIncremental FeedMode = iota
	// FeedFull is the complete playlist/channel listing used for the
	// initial backfill and as the recovery path.
	FeedFull
)

func (m FeedMode) String() string {
	if m == FeedFull {
		return "full"
	}
	return "incremental"
}

// Provider is one remote platform implementation.
//
// FetchFeed and FetchStats wrap network and parse failures in
// [shared.ErrTransport]; FetchStats returns (nil, nil) when the remote
// item no longer exists.
type Provider interface {
	Kind() models.ProviderKind
	FetchFeed(ctx context.Context, sub *models.Subscription, mode FeedMode) ([]models.RemoteItem, error)
	FetchStats(ctx context.Context, videoID string) (*models.Stats, error)
	MatchURL(raw string) bool
	// FillSubscription resolves a URL into subscription metadata (name,
	// playlist id, channel, thumbnail, index-rewrite behavior).
	FillSubscription(ctx context.Context, raw string, sub *models.Subscription) error
}

// Registry is the fixed dispatch table from provider kind to implementation.
// It is built once at startup and passed into the engine; there is no
// module-level provider state.
type Registry struct {
	providers map[models.ProviderKind]Provider
	// ordered preserves registration order for URL matching, so fallback
	// providers registered last are consulted last.
	ordered []Provider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[models.ProviderKind]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Kind()] = p
		r.ordered = append(r.ordered, p)
	}
	return r
}

// Get returns the provider registered for kind.
func (r *Registry) Get(kind models.ProviderKind) (Provider, error) {
	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownProvider, kind)
	}
	return p, nil
}

// ForURL returns the first provider that recognizes the given URL, in
// registration order.
func (r *Registry) ForURL(raw string) (Provider, error) {
	for _, p := range r.ordered {
		if p.MatchURL(raw) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrInvalidURL, raw)
}

// Options carries the fetch settings shared by every provider.
type Options struct {
	// RateLimit is the sustained remote fetch rate in requests per second.
	RateLimit float64
	// FetchTimeout bounds a single feed or stats fetch.
	FetchTimeout time.Duration
}

// limiter builds the rate limiter for these options; a zero rate means unlimited.
func (o Options) limiter() *rate.Limiter {
	if o.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(o.RateLimit), 1)
}

// timeout returns the fetch timeout, defaulting to a minute.
func (o Options) timeout() time.Duration {
	if o.FetchTimeout <= 0 {
		return time.Minute
	}
	return o.FetchTimeout
}
