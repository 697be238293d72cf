package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/shared"
)

const (
	youtubeFeedURL     = "https://www.youtube.com/feeds/videos.xml"
	youtubePlaylistURL = "https://www.youtube.com/playlist?list="
	youtubeWatchURL    = "https://www.youtube.com/watch?v="
)

// YouTubeProvider implements [Provider] for YouTube playlists and channels.
//
// The incremental feed is the per-playlist Atom feed YouTube publishes
// (roughly the 15 most recent items); the full listing and per-video stats
// come from yt-dlp in flat-playlist JSON mode.
type YouTubeProvider struct {
	parser  *gofeed.Parser
	lister  *flatLister
	limiter *rate.Limiter
	timeout time.Duration
	logger  *log.Logger
}

// NewYouTubeProvider creates a YouTube provider using the given yt-dlp
// binary for full listings and stats.
func NewYouTubeProvider(ytdlpPath string, opts Options, logger *log.Logger) *YouTubeProvider {
	return &YouTubeProvider{
		parser:  gofeed.NewParser(),
		lister:  newFlatLister(ytdlpPath),
		limiter: opts.limiter(),
		timeout: opts.timeout(),
		logger:  logger.With("provider", models.ProviderYouTube),
	}
}

// Kind returns the provider tag.
func (p *YouTubeProvider) Kind() models.ProviderKind {
	return models.ProviderYouTube
}

// FetchFeed retrieves the remote item listing for a subscription.
func (p *YouTubeProvider) FetchFeed(ctx context.Context, sub *models.Subscription, mode FeedMode) ([]models.RemoteItem, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if mode == FeedIncremental {
		return p.fetchIncremental(ctx, sub)
	}
	return p.fetchFull(ctx, sub)
}

// fetchIncremental parses the playlist's Atom feed.
func (p *YouTubeProvider) fetchIncremental(ctx context.Context, sub *models.Subscription) ([]models.RemoteItem, error) {
	feedURL := youtubeFeedURL + "?playlist_id=" + url.QueryEscape(sub.PlaylistID)

	feed, err := p.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch feed for %s: %v", shared.ErrTransport, sub.PlaylistID, err)
	}

	items := make([]models.RemoteItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item := models.RemoteItem{
			ID:          feedVideoID(entry),
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
		item.Thumbnail = feedThumbnail(entry)
		items = append(items, item)
	}

	return items, nil
}

// fetchFull asks yt-dlp for the complete flat playlist listing.
func (p *YouTubeProvider) fetchFull(ctx context.Context, sub *models.Subscription) ([]models.RemoteItem, error) {
	listing, err := p.lister.list(ctx, youtubePlaylistURL+url.QueryEscape(sub.PlaylistID))
	if err != nil {
		return nil, err
	}

	items := make([]models.RemoteItem, 0, len(listing.Entries))
	for i, entry := range listing.Entries {
		if entry.ID == "" {
			continue
		}
		items = append(items, models.RemoteItem{
			ID:          entry.ID,
			Title:       entry.Title,
			Description: entry.Description,
			// Flat listings report entries in playlist order.
			Position:     i,
			PublishDate:  entry.publishDate(),
			Thumbnail:    entry.bestThumbnail(),
			UploaderName: entry.Uploader,
			Duration:     int(entry.Duration),
			Views:        entry.ViewCount,
		})
	}

	return items, nil
}

// FetchStats probes a single video for engagement numbers.
// Returns (nil, nil) when the video no longer exists remotely.
func (p *YouTubeProvider) FetchStats(ctx context.Context, videoID string) (*models.Stats, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.lister.run(ctx, "-J", "--no-warnings", youtubeWatchURL+url.QueryEscape(videoID))
	if err != nil {
		if isUnavailable(err) {
			return nil, nil
		}
		return nil, err
	}

	var probe struct {
		ViewCount    int64   `json:"view_count"`
		LikeCount    int64   `json:"like_count"`
		DislikeCount int64   `json:"dislike_count"`
		Duration     float64 `json:"duration"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("%w: parse stats for %s: %v", shared.ErrTransport, videoID, err)
	}

	return &models.Stats{
		Views:    probe.ViewCount,
		Likes:    probe.LikeCount,
		Dislikes: probe.DislikeCount,
		Duration: int(probe.Duration),
	}, nil
}

// MatchURL reports whether the URL belongs to YouTube.
func (p *YouTubeProvider) MatchURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	return host == "youtube.com" || host == "m.youtube.com" || host == "youtu.be"
}

// FillSubscription resolves a playlist or channel URL into subscription
// metadata. Channel URLs track the uploads listing, which prepends new
// items, so they get index rewriting.
func (p *YouTubeProvider) FillSubscription(ctx context.Context, raw string, sub *models.Subscription) error {
	if !p.MatchURL(raw) {
		return fmt.Errorf("%w: %s", shared.ErrInvalidURL, raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrInvalidURL, raw)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	isPlaylist := u.Query().Get("list") != ""
	listing, err := p.lister.list(ctx, raw)
	if err != nil {
		return err
	}

	sub.Provider = models.ProviderYouTube
	sub.Name = listing.Title
	sub.PlaylistID = listing.ID
	sub.Description = listing.Description
	sub.ChannelID = listing.ChannelID
	sub.ChannelName = listing.Channel
	sub.Thumbnail = listing.bestThumbnail()
	if !isPlaylist {
		// Uploads listings are append-at-top; remote positions are not
		// stable absolute indices.
		sub.RewritePlaylistIndices = true
	}

	return nil
}

// flatLister shells out to yt-dlp for playlist listings.
type flatLister struct {
	path    string
	timeout time.Duration
}

func newFlatLister(path string) *flatLister {
	if path == "" {
		path = "yt-dlp"
	}
	return &flatLister{path: path, timeout: 10 * time.Minute}
}

// flatListing mirrors the subset of yt-dlp's -J output the provider reads.
type flatListing struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Channel     string      `json:"channel"`
	ChannelID   string      `json:"channel_id"`
	Thumbnails  []thumbnail `json:"thumbnails"`
	Entries     []flatEntry `json:"entries"`
}

type flatEntry struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Uploader    string      `json:"uploader"`
	Duration    float64     `json:"duration"`
	ViewCount   int64       `json:"view_count"`
	Timestamp   int64       `json:"timestamp"`
	UploadDate  string      `json:"upload_date"`
	Thumbnails  []thumbnail `json:"thumbnails"`
}

type thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (e flatEntry) publishDate() time.Time {
	if e.Timestamp > 0 {
		return time.Unix(e.Timestamp, 0).UTC()
	}
	if e.UploadDate != "" {
		if t, err := time.Parse("20060102", e.UploadDate); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (e flatEntry) bestThumbnail() string {
	return bestThumbnail(e.Thumbnails)
}

func (l flatListing) bestThumbnail() string {
	return bestThumbnail(l.Thumbnails)
}

func bestThumbnail(thumbs []thumbnail) string {
	best := ""
	bestArea := -1
	for _, t := range thumbs {
		area := t.Width * t.Height
		if area > bestArea {
			best = t.URL
			bestArea = area
		}
	}
	return best
}

// list runs yt-dlp in flat-playlist mode and parses the listing.
func (l *flatLister) list(ctx context.Context, target string) (*flatListing, error) {
	out, err := l.run(ctx, "--flat-playlist", "-J", "--no-warnings", target)
	if err != nil {
		return nil, err
	}

	var listing flatListing
	if err := json.Unmarshal(out, &listing); err != nil {
		return nil, fmt.Errorf("%w: parse listing for %s: %v", shared.ErrTransport, target, err)
	}
	return &listing, nil
}

// run executes yt-dlp and returns stdout. Failures carry stderr in the
// error text and wrap [shared.ErrTransport].
func (l *flatLister) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, l.path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: yt-dlp: %s", shared.ErrTransport, msg)
	}

	return stdout.Bytes(), nil
}

// isUnavailable recognizes yt-dlp's "video unavailable" family of errors,
// which mean the item vanished remotely rather than a transport problem.
func isUnavailable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "video unavailable") ||
		strings.Contains(msg, "private video") ||
		strings.Contains(msg, "has been removed")
}

// feedVideoID extracts the yt:videoId extension from an Atom feed entry,
// falling back to the v= parameter of the entry link.
func feedVideoID(entry *gofeed.Item) string {
	if ext, ok := entry.Extensions["yt"]["videoId"]; ok && len(ext) > 0 {
		return ext[0].Value
	}
	if u, err := url.Parse(entry.Link); err == nil {
		if id := u.Query().Get("v"); id != "" {
			return id
		}
	}
	return ""
}

// feedThumbnail extracts the media:group thumbnail URL from an Atom feed entry.
func feedThumbnail(entry *gofeed.Item) string {
	groups, ok := entry.Extensions["media"]["group"]
	if !ok || len(groups) == 0 {
		return ""
	}
	thumbs, ok := groups[0].Children["thumbnail"]
	if !ok || len(thumbs) == 0 {
		return ""
	}
	return thumbs[0].Attrs["url"]
}
