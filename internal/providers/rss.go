package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/shared"
)

// RSSProvider implements [Provider] for plain media RSS/Atom feeds. The
// subscription's playlist id is the feed URL itself, and the feed is the
// complete listing, so incremental and full mode fetch the same thing.
//
// Feeds list newest entries first and prepend on publish, so every RSS
// subscription uses index rewriting.
type RSSProvider struct {
	parser  *gofeed.Parser
	limiter *rate.Limiter
	timeout time.Duration
	logger  *log.Logger
}

// NewRSSProvider creates a generic RSS feed provider.
func NewRSSProvider(opts Options, logger *log.Logger) *RSSProvider {
	return &RSSProvider{
		parser:  gofeed.NewParser(),
		limiter: opts.limiter(),
		timeout: opts.timeout(),
		logger:  logger.With("provider", models.ProviderRSS),
	}
}

// Kind returns the provider tag.
func (p *RSSProvider) Kind() models.ProviderKind {
	return models.ProviderRSS
}

// FetchFeed parses the subscription's feed URL. Both modes return the same
// listing; the feed is all the source publishes.
func (p *RSSProvider) FetchFeed(ctx context.Context, sub *models.Subscription, mode FeedMode) ([]models.RemoteItem, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	feed, err := p.parser.ParseURLWithContext(sub.PlaylistID, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch feed %s: %v", shared.ErrTransport, sub.PlaylistID, err)
	}

	items := make([]models.RemoteItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item := models.RemoteItem{
			ID:          entryID(entry),
			Title:       entry.Title,
			Description: entry.Description,
			Position:    -1,
		}
		if item.ID == "" {
			continue
		}
		if entry.PublishedParsed != nil {
			item.PublishDate = *entry.PublishedParsed
		}
		if entry.Author != nil {
			item.UploaderName = entry.Author.Name
		}
		if entry.Image != nil {
			item.Thumbnail = entry.Image.URL
		}
		items = append(items, item)
	}

	return items, nil
}

// FetchStats is a no-op for RSS sources; feeds carry no engagement data.
func (p *RSSProvider) FetchStats(ctx context.Context, videoID string) (*models.Stats, error) {
	return nil, nil
}

// MatchURL accepts any http(s) URL that ends in a feed-looking path. This
// provider is the fallback and is consulted after the platform providers.
func (p *RSSProvider) MatchURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	path := strings.ToLower(u.Path)
	return strings.HasSuffix(path, ".xml") ||
		strings.HasSuffix(path, ".rss") ||
		strings.HasSuffix(path, ".atom") ||
		strings.Contains(path, "feed")
}

// FillSubscription fetches the feed once to pick up its metadata.
func (p *RSSProvider) FillSubscription(ctx context.Context, raw string, sub *models.Subscription) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	feed, err := p.parser.ParseURLWithContext(raw, ctx)
	if err != nil {
		return fmt.Errorf("%w: fetch feed %s: %v", shared.ErrTransport, raw, err)
	}

	sub.Provider = models.ProviderRSS
	sub.Name = feed.Title
	sub.Description = feed.Description
	sub.PlaylistID = raw
	sub.ChannelName = feed.Title
	if feed.Image != nil {
		sub.Thumbnail = feed.Image.URL
	}
	sub.RewritePlaylistIndices = true

	return nil
}

// entryID prefers the feed GUID and falls back to the entry link.
func entryID(entry *gofeed.Item) string {
	if entry.GUID != "" {
		return entry.GUID
	}
	return entry.Link
}
