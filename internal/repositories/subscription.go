package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/shared"
)

// SubscriptionRepository handles persistence for [models.Subscription].
type SubscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a new [SubscriptionRepository] with the given database connection
func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, sequence, name, description, playlist_id, channel_id,
	channel_name, thumbnail, provider, rewrite_playlist_indices,
	last_synchronised, parent_folder_id, user_id, auto_download,
	download_limit, download_order, delete_watched, created_at, updated_at`

// Create inserts a new subscription into the database with generated ID and sequence
func (r *SubscriptionRepository) Create(sub *models.Subscription) error {
	sequence, err := NextSequence(r.db, "subscriptions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	sub.ID = shared.GenerateID()
	sub.Sequence = sequence
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	if err := sub.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		sub.ID,
		sub.Sequence,
		sub.Name,
		sub.Description,
		sub.PlaylistID,
		sub.ChannelID,
		sub.ChannelName,
		sub.Thumbnail,
		string(sub.Provider),
		sub.RewritePlaylistIndices,
		nullTime(sub.LastSynchronised),
		nullString(sub.ParentFolderID),
		sub.UserID,
		nullBool(sub.AutoDownload),
		nullInt(sub.DownloadLimit),
		nullOrder(sub.DownloadOrder),
		nullBool(sub.DeleteWatched),
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}

	return nil
}

// Get retrieves a subscription by ID
func (r *SubscriptionRepository) Get(id string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = ?`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByPlaylistID retrieves a subscription by provider and remote playlist id
func (r *SubscriptionRepository) GetByPlaylistID(provider models.ProviderKind, playlistID string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE provider = ? AND playlist_id = ?`
	return r.scanOne(r.db.QueryRow(query, string(provider), playlistID))
}

// Update modifies an existing subscription
func (r *SubscriptionRepository) Update(sub *models.Subscription) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sub.UpdatedAt = time.Now()

	query := `
		UPDATE subscriptions
		SET name = ?, description = ?, playlist_id = ?, channel_id = ?,
			channel_name = ?, thumbnail = ?, rewrite_playlist_indices = ?,
			last_synchronised = ?, parent_folder_id = ?, auto_download = ?,
			download_limit = ?, download_order = ?, delete_watched = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		sub.Name,
		sub.Description,
		sub.PlaylistID,
		sub.ChannelID,
		sub.ChannelName,
		sub.Thumbnail,
		sub.RewritePlaylistIndices,
		nullTime(sub.LastSynchronised),
		nullString(sub.ParentFolderID),
		nullBool(sub.AutoDownload),
		nullInt(sub.DownloadLimit),
		nullOrder(sub.DownloadOrder),
		nullBool(sub.DeleteWatched),
		sub.UpdatedAt,
		sub.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("subscription not found: %s", sub.ID)
	}

	return nil
}

// SetLastSynchronised stamps the end of a sync pass. The stamp records that
// a pass ran, not that it found anything.
func (r *SubscriptionRepository) SetLastSynchronised(id string, t time.Time) error {
	result, err := r.db.Exec(`UPDATE subscriptions SET last_synchronised = ?, updated_at = ? WHERE id = ?`, t, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to stamp subscription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("subscription not found: %s", id)
	}

	return nil
}

// Delete removes a subscription; the cascade removes its videos.
func (r *SubscriptionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("subscription not found: %s", id)
	}

	return nil
}

// ListByUser retrieves all subscriptions owned by a user
func (r *SubscriptionRepository) ListByUser(userID string) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = ? ORDER BY LOWER(name)`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListByFolder retrieves the subscriptions directly inside one folder.
func (r *SubscriptionRepository) ListByFolder(folderID string) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE parent_folder_id = ? ORDER BY LOWER(name)`

	rows, err := r.db.Query(query, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListForSync retrieves a user's subscriptions in batch-sync order:
// last_synchronised ascending with never-synced subscriptions first.
func (r *SubscriptionRepository) ListForSync(userID string) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = ?
		ORDER BY last_synchronised IS NOT NULL, last_synchronised ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func nullOrder(o *models.VideoOrder) any {
	if o == nil {
		return nil
	}
	return string(*o)
}

func (r *SubscriptionRepository) scanOne(row *sql.Row) (*models.Subscription, error) {
	sub, err := scanSubscription(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("subscription: %w", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}
	return sub, nil
}

func (r *SubscriptionRepository) scanAll(rows *sql.Rows) ([]*models.Subscription, error) {
	var subs []*models.Subscription

	for rows.Next() {
		sub, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}
	return subs, nil
}

func scanSubscription(scan func(...any) error) (*models.Subscription, error) {
	var (
		sub           models.Subscription
		provider      string
		lastSync      sql.NullTime
		parentFolder  sql.NullString
		autoDownload  sql.NullBool
		downloadLimit sql.NullInt64
		downloadOrder sql.NullString
		deleteWatched sql.NullBool
	)

	err := scan(
		&sub.ID,
		&sub.Sequence,
		&sub.Name,
		&sub.Description,
		&sub.PlaylistID,
		&sub.ChannelID,
		&sub.ChannelName,
		&sub.Thumbnail,
		&provider,
		&sub.RewritePlaylistIndices,
		&lastSync,
		&parentFolder,
		&sub.UserID,
		&autoDownload,
		&downloadLimit,
		&downloadOrder,
		&deleteWatched,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Provider = models.ProviderKind(provider)
	if lastSync.Valid {
		t := lastSync.Time
		sub.LastSynchronised = &t
	}
	if parentFolder.Valid {
		sub.ParentFolderID = &parentFolder.String
	}
	if autoDownload.Valid {
		sub.AutoDownload = &autoDownload.Bool
	}
	if downloadLimit.Valid {
		limit := int(downloadLimit.Int64)
		sub.DownloadLimit = &limit
	}
	if downloadOrder.Valid {
		order := models.VideoOrder(downloadOrder.String)
		sub.DownloadOrder = &order
	}
	if deleteWatched.Valid {
		sub.DeleteWatched = &deleteWatched.Bool
	}

	return &sub, nil
}
