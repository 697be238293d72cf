// package models defines the data model for the subscription tracker
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/girlpunk/ytsm/internal/shared"
)

// ProviderKind identifies the remote platform a subscription belongs to.
// The set is fixed at compile time; providers are dispatched through a
// lookup table, never loaded dynamically.
type ProviderKind string

const (
	ProviderYouTube ProviderKind = "youtube"
	ProviderRSS     ProviderKind = "rss"
)

// ParseProviderKind validates a provider tag read from storage or user input.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch k := ProviderKind(strings.ToLower(s)); k {
	case ProviderYouTube, ProviderRSS:
		return k, nil
	default:
		return "", fmt.Errorf("unknown provider kind %q", s)
	}
}

// VideoOrder selects how download candidates are ordered.
type VideoOrder string

const (
	OrderNewest          VideoOrder = "newest"
	OrderOldest          VideoOrder = "oldest"
	OrderPlaylist        VideoOrder = "playlist"
	OrderPlaylistReverse VideoOrder = "playlist_reverse"
	OrderPopularity      VideoOrder = "popularity"
	OrderRating          VideoOrder = "rating"
)

// Clause returns the ORDER BY expression for this ordering.
// Unknown values fall back to playlist order.
func (o VideoOrder) Clause() string {
	switch o {
	case OrderNewest:
		return "publish_date DESC"
	case OrderOldest:
		return "publish_date ASC"
	case OrderPlaylist:
		return "playlist_index ASC"
	case OrderPlaylistReverse:
		return "playlist_index DESC"
	case OrderPopularity:
		return "views DESC"
	case OrderRating:
		return "rating DESC"
	default:
		return "playlist_index ASC"
	}
}

// ParseVideoOrder validates an ordering read from storage or user input.
func ParseVideoOrder(s string) (VideoOrder, error) {
	switch o := VideoOrder(strings.ToLower(s)); o {
	case OrderNewest, OrderOldest, OrderPlaylist, OrderPlaylistReverse, OrderPopularity, OrderRating:
		return o, nil
	default:
		return "", fmt.Errorf("unknown video order %q", s)
	}
}

// User owns subscriptions and folders and carries the default download
// preferences that subscription-level overrides fall back to.
type User struct {
	ID       string `json:"id"`
	Sequence int    `json:"-"`
	Username string `json:"username"`

	AutoDownload              bool       `json:"auto_download"`
	DownloadGlobalLimit       int        `json:"download_global_limit"`
	DownloadSubscriptionLimit int        `json:"download_subscription_limit"`
	DownloadOrder             VideoOrder `json:"download_order"`
	DeleteWatched             bool       `json:"delete_watched"`
	MarkDeletedAsWatched      bool       `json:"mark_deleted_as_watched"`
	MaxDownloadAttempts       int        `json:"max_download_attempts"`
	DownloadDir               string     `json:"download_dir"`
	DownloadFilePattern       string     `json:"download_file_pattern"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the user's data is valid.
func (u *User) Validate() error {
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if u.MaxDownloadAttempts < 1 {
		return fmt.Errorf("max_download_attempts must be at least 1")
	}
	if _, err := ParseVideoOrder(string(u.DownloadOrder)); err != nil {
		return err
	}
	return nil
}

// SubscriptionFolder groups subscriptions and other folders, user-scoped
// and arbitrarily deep. The parent graph must stay acyclic; the folder
// repository rejects re-parenting that would introduce a cycle.
type SubscriptionFolder struct {
	ID       string  `json:"id"`
	Sequence int     `json:"-"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
	UserID   string  `json:"user_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the folder's data is valid.
func (f *SubscriptionFolder) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("folder name is required")
	}
	if f.UserID == "" {
		return fmt.Errorf("folder user is required")
	}
	if f.ParentID != nil && *f.ParentID == f.ID {
		return fmt.Errorf("folder cannot be its own parent")
	}
	return nil
}

// Subscription is one tracked remote playlist or channel.
type Subscription struct {
	ID          string `json:"id"`
	Sequence    int    `json:"-"`
	Name        string `json:"name"`
	Description string `json:"description"`

	PlaylistID  string       `json:"playlist_id"`
	ChannelID   string       `json:"channel_id"`
	ChannelName string       `json:"channel_name"`
	Thumbnail   string       `json:"thumbnail"`
	Provider    ProviderKind `json:"provider"`

	// RewritePlaylistIndices is set for sources that prepend new items
	// instead of appending them (channel uploads playlists), where the
	// remote position is meaningless as an absolute index.
	RewritePlaylistIndices bool       `json:"rewrite_playlist_indices"`
	LastSynchronised       *time.Time `json:"last_synchronised,omitempty"`

	ParentFolderID *string `json:"parent_folder_id,omitempty"`
	UserID         string  `json:"user_id"`

	// Per-subscription overrides; nil inherits the user default.
	AutoDownload  *bool       `json:"auto_download,omitempty"`
	DownloadLimit *int        `json:"download_limit,omitempty"`
	DownloadOrder *VideoOrder `json:"download_order,omitempty"`
	DeleteWatched *bool       `json:"delete_watched,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the subscription's data is valid.
func (s *Subscription) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("subscription name is required")
	}
	if s.PlaylistID == "" {
		return fmt.Errorf("subscription playlist id is required")
	}
	if s.UserID == "" {
		return fmt.Errorf("subscription user is required")
	}
	if _, err := ParseProviderKind(string(s.Provider)); err != nil {
		return err
	}
	if s.DownloadOrder != nil {
		if _, err := ParseVideoOrder(string(*s.DownloadOrder)); err != nil {
			return err
		}
	}
	return nil
}

// ResolveAutoDownload returns the subscription override when set, else the
// user default.
func (s *Subscription) ResolveAutoDownload(u *User) bool {
	return shared.FirstNonNil(u.AutoDownload, s.AutoDownload)
}

// ResolveDownloadLimit returns the subscription override when set, else the
// user default. Values <= 0 mean unlimited.
func (s *Subscription) ResolveDownloadLimit(u *User) int {
	return shared.FirstNonNil(u.DownloadSubscriptionLimit, s.DownloadLimit)
}

// ResolveDownloadOrder returns the subscription override when set, else the
// user default.
func (s *Subscription) ResolveDownloadOrder(u *User) VideoOrder {
	return shared.FirstNonNil(u.DownloadOrder, s.DownloadOrder)
}

// ResolveDeleteWatched returns the subscription override when set, else the
// user default.
func (s *Subscription) ResolveDeleteWatched(u *User) bool {
	return shared.FirstNonNil(u.DeleteWatched, s.DeleteWatched)
}

// Video is one catalog entry owned by exactly one subscription.
//
// DownloadedPath is tri-state: nil means never downloaded (or the file was
// removed), the empty string marks a terminal download failure, any other
// value is the output path prefix the downloader wrote to.
type Video struct {
	ID             string `json:"id"`
	Sequence       int    `json:"-"`
	VideoID        string `json:"video_id"`
	SubscriptionID string `json:"subscription_id"`

	Name         string `json:"name"`
	Description  string `json:"description"`
	UploaderName string `json:"uploader_name"`

	Watched bool `json:"watched"`
	// New marks videos discovered during the most recent sync pass for
	// their subscription. It is reset at the start of every pass.
	New bool `json:"new"`

	DownloadedPath *string   `json:"downloaded_path,omitempty"`
	PlaylistIndex  int       `json:"playlist_index"`
	PublishDate    time.Time `json:"publish_date"`
	Thumbnail      string    `json:"thumbnail"`

	Views    int64   `json:"views"`
	Rating   float64 `json:"rating"`
	Duration int     `json:"duration"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the video's data is valid.
func (v *Video) Validate() error {
	if v.VideoID == "" {
		return fmt.Errorf("video remote id is required")
	}
	if v.SubscriptionID == "" {
		return fmt.Errorf("video subscription is required")
	}
	if v.PlaylistIndex < 0 {
		return fmt.Errorf("playlist index must not be negative")
	}
	return nil
}

// Downloaded reports whether a media file is recorded for this video.
// The failure marker "" does not count as downloaded.
func (v *Video) Downloaded() bool {
	return v.DownloadedPath != nil && *v.DownloadedPath != ""
}

// DownloadFailed reports whether the video reached the terminal failure state.
func (v *Video) DownloadFailed() bool {
	return v.DownloadedPath != nil && *v.DownloadedPath == ""
}

// DurationString formats the duration like "1:02:03".
func (v *Video) DurationString() string {
	h := v.Duration / 3600
	m := v.Duration % 3600 / 60
	s := v.Duration % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// RemoteItem is one entry of a remote feed or listing, as reported by a
// provider. Position is -1 when the source does not report one.
type RemoteItem struct {
	ID           string
	Title        string
	Description  string
	Position     int
	PublishDate  time.Time
	Thumbnail    string
	UploaderName string
	Duration     int
	Views        int64
}

// Stats carries refreshed engagement numbers for a single video.
type Stats struct {
	Views    int64
	Likes    int64
	Dislikes int64
	Duration int
}

// Rating folds likes and dislikes into a 0..1 score; 0.5 when unrated.
func (s *Stats) Rating() float64 {
	total := s.Likes + s.Dislikes
	if total == 0 {
		return 0.5
	}
	return float64(s.Likes) / float64(total)
}
