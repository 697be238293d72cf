package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/shared"
)

// VideoRepository handles persistence for [models.Video] and the catalog
// queries the sync engine depends on: duplicate detection, playlist-index
// bookkeeping, quota counts and download-candidate selection.
type VideoRepository struct {
	db *sql.DB
}

// NewVideoRepository creates a new [VideoRepository] with the given database connection
func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

const videoColumns = `id, sequence, video_id, subscription_id, name, description,
	uploader_name, watched, is_new, downloaded_path, playlist_index,
	publish_date, thumbnail, views, rating, duration, created_at, updated_at`

// Create inserts a new video into the database with generated ID and sequence
func (r *VideoRepository) Create(video *models.Video) error {
	sequence, err := NextSequence(r.db, "videos")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	video.ID = shared.GenerateID()
	video.Sequence = sequence
	now := time.Now()
	video.CreatedAt = now
	video.UpdatedAt = now

	if err := video.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO videos (` + videoColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		video.ID,
		video.Sequence,
		video.VideoID,
		video.SubscriptionID,
		video.Name,
		video.Description,
		video.UploaderName,
		video.Watched,
		video.New,
		nullString(video.DownloadedPath),
		video.PlaylistIndex,
		video.PublishDate,
		video.Thumbnail,
		video.Views,
		video.Rating,
		video.Duration,
		video.CreatedAt,
		video.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("video %q in subscription %s: %w", video.VideoID, video.SubscriptionID, shared.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}

	return nil
}

// Get retrieves a video by ID
func (r *VideoRepository) Get(id string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = ?`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByRemoteID retrieves a video by its remote id within a subscription.
// Returns (nil, nil) when no such video exists; the reconciler treats that
// as "create".
func (r *VideoRepository) GetByRemoteID(subscriptionID, videoID string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE subscription_id = ? AND video_id = ?`

	video, err := r.scanOne(r.db.QueryRow(query, subscriptionID, videoID))
	if err != nil && err == errVideoNotFound {
		return nil, nil
	}
	return video, err
}

// Update modifies an existing video
func (r *VideoRepository) Update(video *models.Video) error {
	if err := video.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	video.UpdatedAt = time.Now()

	query := `
		UPDATE videos
		SET name = ?, description = ?, uploader_name = ?, watched = ?,
			is_new = ?, downloaded_path = ?, playlist_index = ?,
			publish_date = ?, thumbnail = ?, views = ?, rating = ?,
			duration = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		video.Name,
		video.Description,
		video.UploaderName,
		video.Watched,
		video.New,
		nullString(video.DownloadedPath),
		video.PlaylistIndex,
		video.PublishDate,
		video.Thumbnail,
		video.Views,
		video.Rating,
		video.Duration,
		video.UpdatedAt,
		video.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("video not found: %s", video.ID)
	}

	return nil
}

// Delete removes a video from the catalog.
func (r *VideoRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("video not found: %s", id)
	}

	return nil
}

// ListBySubscription retrieves all videos of a subscription in playlist order.
func (r *VideoRepository) ListBySubscription(subscriptionID string) ([]*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE subscription_id = ? ORDER BY playlist_index ASC`

	rows, err := r.db.Query(query, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ResetNewFlags clears the transient new marker for every video of a
// subscription. Runs once at the start of each sync pass.
func (r *VideoRepository) ResetNewFlags(subscriptionID string) error {
	_, err := r.db.Exec(`UPDATE videos SET is_new = 0 WHERE subscription_id = ?`, subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to reset new flags: %w", err)
	}
	return nil
}

// MaxPlaylistIndex returns the highest playlist index within a
// subscription, or -1 when the subscription has no videos.
func (r *VideoRepository) MaxPlaylistIndex(subscriptionID string) (int, error) {
	var max sql.NullInt64
	err := r.db.QueryRow(`SELECT MAX(playlist_index) FROM videos WHERE subscription_id = ?`, subscriptionID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to query max playlist index: %w", err)
	}
	if !max.Valid {
		return -1, nil
	}
	return int(max.Int64), nil
}

// PlaylistIndexTaken reports whether a playlist index is already assigned
// within a subscription.
func (r *VideoRepository) PlaylistIndexTaken(subscriptionID string, index int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM videos WHERE subscription_id = ? AND playlist_index = ?)`, subscriptionID, index).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query playlist index: %w", err)
	}
	return exists, nil
}

// ListDownloadCandidates retrieves the not-downloaded, unwatched videos of
// a subscription in the given order. Quota truncation happens in the
// scheduler, not here.
func (r *VideoRepository) ListDownloadCandidates(subscriptionID string, order models.VideoOrder) ([]*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos
		WHERE subscription_id = ? AND downloaded_path IS NULL AND watched = 0
		ORDER BY ` + order.Clause()

	rows, err := r.db.Query(query, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query download candidates: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// CountDownloadedByUser counts downloaded videos across all of a user's
// subscriptions. The terminal failure marker counts as downloaded for
// quota purposes, matching the non-null comparison.
func (r *VideoRepository) CountDownloadedByUser(userID string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM videos v
		JOIN subscriptions s ON s.id = v.subscription_id
		WHERE s.user_id = ? AND v.downloaded_path IS NOT NULL
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count downloaded videos: %w", err)
	}
	return count, nil
}

// CountDownloadedBySubscription counts downloaded videos within one subscription.
func (r *VideoRepository) CountDownloadedBySubscription(subscriptionID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM videos WHERE subscription_id = ? AND downloaded_path IS NOT NULL`, subscriptionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count downloaded videos: %w", err)
	}
	return count, nil
}

// CountUnwatchedBySubscription counts unwatched videos within one subscription.
func (r *VideoRepository) CountUnwatchedBySubscription(subscriptionID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM videos WHERE subscription_id = ? AND watched = 0`, subscriptionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unwatched videos: %w", err)
	}
	return count, nil
}

var errVideoNotFound = fmt.Errorf("video: %w", shared.ErrNotFound)

func (r *VideoRepository) scanOne(row *sql.Row) (*models.Video, error) {
	video, err := scanVideo(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan video: %w", err)
	}
	return video, nil
}

func (r *VideoRepository) scanAll(rows *sql.Rows) ([]*models.Video, error) {
	var videos []*models.Video

	for rows.Next() {
		video, err := scanVideo(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate videos: %w", err)
	}
	return videos, nil
}

func scanVideo(scan func(...any) error) (*models.Video, error) {
	var (
		video          models.Video
		downloadedPath sql.NullString
	)

	err := scan(
		&video.ID,
		&video.Sequence,
		&video.VideoID,
		&video.SubscriptionID,
		&video.Name,
		&video.Description,
		&video.UploaderName,
		&video.Watched,
		&video.New,
		&downloadedPath,
		&video.PlaylistIndex,
		&video.PublishDate,
		&video.Thumbnail,
		&video.Views,
		&video.Rating,
		&video.Duration,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if downloadedPath.Valid {
		video.DownloadedPath = &downloadedPath.String
	}
	return &video, nil
}
