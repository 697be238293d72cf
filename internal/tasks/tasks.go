package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/girlpunk/ytsm/internal/downloader"
	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/providers"
	"github.com/girlpunk/ytsm/internal/shared"
)

// SubscriptionStore is the subscription surface of the catalog store the
// engine depends on. *repositories.SubscriptionRepository implements it.
type SubscriptionStore interface {
	Get(id string) (*models.Subscription, error)
	Update(sub *models.Subscription) error
	SetLastSynchronised(id string, t time.Time) error
	ListForSync(userID string) ([]*models.Subscription, error)
	ListByFolder(folderID string) ([]*models.Subscription, error)
}

// VideoStore is the video surface of the catalog store.
// *repositories.VideoRepository implements it.
type VideoStore interface {
	Create(video *models.Video) error
	Get(id string) (*models.Video, error)
	Update(video *models.Video) error
	// GetByRemoteID returns (nil, nil) when the video is not in the catalog.
	GetByRemoteID(subscriptionID, videoID string) (*models.Video, error)
	ListBySubscription(subscriptionID string) ([]*models.Video, error)
	ResetNewFlags(subscriptionID string) error
	// MaxPlaylistIndex returns -1 when the subscription has no videos.
	MaxPlaylistIndex(subscriptionID string) (int, error)
	PlaylistIndexTaken(subscriptionID string, index int) (bool, error)
	ListDownloadCandidates(subscriptionID string, order models.VideoOrder) ([]*models.Video, error)
	CountDownloadedByUser(userID string) (int, error)
	CountDownloadedBySubscription(subscriptionID string) (int, error)
}

// UserStore resolves video and subscription owners for preference lookups.
type UserStore interface {
	Get(id string) (*models.User, error)
}

// FolderStore provides the folder traversal used by folder-scoped batch sync.
type FolderStore interface {
	DescendantIDs(id string) ([]string, error)
}

// Thumbnailer resolves remote thumbnail references into local cache paths.
// Failures are non-fatal everywhere it is used.
type Thumbnailer interface {
	Resolve(ctx context.Context, kind, id, ref string) (string, error)
}

// Engine owns every moving part of the sync core: the catalog stores, the
// provider registry, the downloader and its single-flight gate, and the
// thumbnail cache. It is constructed once at startup and passed by
// reference; there is no hidden global state.
type Engine struct {
	subs    SubscriptionStore
	videos  VideoStore
	users   UserStore
	folders FolderStore

	registry   *providers.Registry
	downloader downloader.Downloader
	thumbs     Thumbnailer
	logger     *log.Logger

	// refreshStats forces a stats refresh for every video on every pass
	// instead of only for videos with unknown duration.
	refreshStats bool

	// downloadGate serializes download invocations process-wide. yt-dlp's
	// working-directory creation fails when two instances race it, so at
	// most one download runs at a time. Held for the full attempt.
	downloadGate sync.Mutex

	// resync, when set, hands re-synchronize requests to the background
	// queue instead of running them inline.
	resync func(subscriptionID string)
}

// EngineOpts contains the dependencies for creating an [Engine].
type EngineOpts struct {
	Subscriptions SubscriptionStore
	Videos        VideoStore
	Users         UserStore
	Folders       FolderStore
	Registry      *providers.Registry
	Downloader    downloader.Downloader
	Thumbnails    Thumbnailer
	Logger        *log.Logger
	RefreshStats  bool
}

// NewEngine creates a sync engine with the provided dependencies.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Engine{
		subs:         opts.Subscriptions,
		videos:       opts.Videos,
		users:        opts.Users,
		folders:      opts.Folders,
		registry:     opts.Registry,
		downloader:   opts.Downloader,
		thumbs:       opts.Thumbnails,
		logger:       opts.Logger,
		refreshStats: opts.RefreshStats,
	}
}

// SetResync installs the background re-synchronize hook. Without one,
// re-synchronize requests triggered by video actions run inline.
func (e *Engine) SetResync(fn func(subscriptionID string)) {
	e.resync = fn
}

// scheduleResync queues a re-synchronize of the subscription, falling back
// to an inline pass when no queue is attached.
func (e *Engine) scheduleResync(ctx context.Context, subscriptionID string) {
	if e.resync != nil {
		e.resync(subscriptionID)
		return
	}
	if err := e.Synchronize(ctx, subscriptionID); err != nil {
		e.logger.Error("re-synchronize failed", "subscription", subscriptionID, "error", err)
	}
}
