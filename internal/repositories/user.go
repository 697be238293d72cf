package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/shared"
)

// UserRepository handles persistence for [models.User].
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, sequence, username, auto_download, download_global_limit,
	download_subscription_limit, download_order, delete_watched,
	mark_deleted_as_watched, max_download_attempts, download_dir,
	download_file_pattern, created_at, updated_at`

// Create inserts a new user into the database with generated ID and sequence
func (r *UserRepository) Create(user *models.User) error {
	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	user.ID = shared.GenerateID()
	user.Sequence = sequence
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		user.ID,
		user.Sequence,
		user.Username,
		user.AutoDownload,
		user.DownloadGlobalLimit,
		user.DownloadSubscriptionLimit,
		string(user.DownloadOrder),
		user.DeleteWatched,
		user.MarkDeletedAsWatched,
		user.MaxDownloadAttempts,
		user.DownloadDir,
		user.DownloadFilePattern,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %q: %w", user.Username, shared.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return r.scanOne(r.db.QueryRow(query, username))
}

// Update modifies an existing user's preferences
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET auto_download = ?, download_global_limit = ?,
			download_subscription_limit = ?, download_order = ?,
			delete_watched = ?, mark_deleted_as_watched = ?,
			max_download_attempts = ?, download_dir = ?,
			download_file_pattern = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		user.AutoDownload,
		user.DownloadGlobalLimit,
		user.DownloadSubscriptionLimit,
		string(user.DownloadOrder),
		user.DeleteWatched,
		user.MarkDeletedAsWatched,
		user.MaxDownloadAttempts,
		user.DownloadDir,
		user.DownloadFilePattern,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s", user.ID)
	}

	return nil
}

func (r *UserRepository) scanOne(row *sql.Row) (*models.User, error) {
	var (
		user  models.User
		order string
	)

	err := row.Scan(
		&user.ID,
		&user.Sequence,
		&user.Username,
		&user.AutoDownload,
		&user.DownloadGlobalLimit,
		&user.DownloadSubscriptionLimit,
		&order,
		&user.DeleteWatched,
		&user.MarkDeletedAsWatched,
		&user.MaxDownloadAttempts,
		&user.DownloadDir,
		&user.DownloadFilePattern,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user: %w", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.DownloadOrder = models.VideoOrder(order)
	return &user, nil
}
