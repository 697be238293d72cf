package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/shared"
)

// FolderRepository handles persistence for [models.SubscriptionFolder].
//
// Folders form a self-referential hierarchy. Every traversal carries an
// explicit visited set so a corrupt cycle surfaces as an error instead of
// an unbounded walk, and re-parenting is rejected when it would create one.
type FolderRepository struct {
	db *sql.DB
}

// NewFolderRepository creates a new [FolderRepository] with the given database connection
func NewFolderRepository(db *sql.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

const folderColumns = `id, sequence, name, parent_id, user_id, created_at, updated_at`

// Create inserts a new folder into the database with generated ID and sequence
func (r *FolderRepository) Create(folder *models.SubscriptionFolder) error {
	sequence, err := NextSequence(r.db, "folders")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	folder.ID = shared.GenerateID()
	folder.Sequence = sequence
	now := time.Now()
	folder.CreatedAt = now
	folder.UpdatedAt = now

	if err := folder.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO folders (` + folderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		folder.ID,
		folder.Sequence,
		folder.Name,
		nullString(folder.ParentID),
		folder.UserID,
		folder.CreatedAt,
		folder.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("folder %q: %w", folder.Name, shared.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert folder: %w", err)
	}

	return nil
}

// Get retrieves a folder by ID
func (r *FolderRepository) Get(id string) (*models.SubscriptionFolder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = ?`
	return r.scanOne(r.db.QueryRow(query, id))
}

// Update modifies a folder's name and parent. A parent change that would
// place the folder underneath one of its own descendants is rejected with
// [shared.ErrFolderCycle] and leaves the hierarchy unchanged.
func (r *FolderRepository) Update(folder *models.SubscriptionFolder) error {
	if err := folder.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if folder.ParentID != nil {
		cycle, err := r.wouldCycle(folder.ID, *folder.ParentID)
		if err != nil {
			return err
		}
		if cycle {
			return fmt.Errorf("cannot move folder %q under its own descendant: %w", folder.Name, shared.ErrFolderCycle)
		}
	}

	folder.UpdatedAt = time.Now()

	query := `UPDATE folders SET name = ?, parent_id = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Exec(query, folder.Name, nullString(folder.ParentID), folder.UpdatedAt, folder.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("folder %q: %w", folder.Name, shared.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to update folder: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("folder not found: %s", folder.ID)
	}

	return nil
}

// Delete removes a folder. When keepSubscriptions is true, subscriptions
// anywhere underneath it are detached to the root first; otherwise the
// cascade removes them together with their videos.
func (r *FolderRepository) Delete(id string, keepSubscriptions bool) error {
	if keepSubscriptions {
		ids, err := r.DescendantIDs(id)
		if err != nil {
			return err
		}
		for _, folderID := range ids {
			if _, err := r.db.Exec(`UPDATE subscriptions SET parent_folder_id = NULL WHERE parent_folder_id = ?`, folderID); err != nil {
				return fmt.Errorf("failed to detach subscriptions: %w", err)
			}
		}
	}

	result, err := r.db.Exec(`DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("folder not found: %s", id)
	}

	return nil
}

// ListByUser retrieves all folders owned by a user, parents before children
// within each name ordering.
func (r *FolderRepository) ListByUser(userID string) ([]*models.SubscriptionFolder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE user_id = ? ORDER BY LOWER(name)`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListChildren retrieves the direct children of a folder.
func (r *FolderRepository) ListChildren(parentID string) ([]*models.SubscriptionFolder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE parent_id = ? ORDER BY LOWER(name)`

	rows, err := r.db.Query(query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// DescendantIDs returns the folder id and every folder id underneath it,
// breadth-first. A revisited id means the stored hierarchy is corrupt and
// is reported as [shared.ErrFolderCycle].
func (r *FolderRepository) DescendantIDs(id string) ([]string, error) {
	visited := map[string]bool{}
	queue := []string{id}
	var out []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			return nil, fmt.Errorf("folder %s revisited during traversal: %w", current, shared.ErrFolderCycle)
		}
		visited[current] = true
		out = append(out, current)

		rows, err := r.db.Query(`SELECT id FROM folders WHERE parent_id = ?`, current)
		if err != nil {
			return nil, fmt.Errorf("failed to query folder children: %w", err)
		}
		for rows.Next() {
			var childID string
			if err := rows.Scan(&childID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan folder id: %w", err)
			}
			queue = append(queue, childID)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to iterate folder children: %w", err)
		}
		rows.Close()
	}

	return out, nil
}

// wouldCycle walks the parent chain upwards from newParentID, tracking
// visited ids, and reports whether folderID is an ancestor of it.
func (r *FolderRepository) wouldCycle(folderID, newParentID string) (bool, error) {
	visited := map[string]bool{}
	current := newParentID

	for current != "" {
		if current == folderID {
			return true, nil
		}
		if visited[current] {
			return false, fmt.Errorf("folder %s revisited during traversal: %w", current, shared.ErrFolderCycle)
		}
		visited[current] = true

		var parent sql.NullString
		err := r.db.QueryRow(`SELECT parent_id FROM folders WHERE id = ?`, current).Scan(&parent)
		if err == sql.ErrNoRows {
			return false, fmt.Errorf("folder %s: %w", current, shared.ErrNotFound)
		}
		if err != nil {
			return false, fmt.Errorf("failed to query folder parent: %w", err)
		}

		if !parent.Valid {
			break
		}
		current = parent.String
	}

	return false, nil
}

func (r *FolderRepository) scanOne(row *sql.Row) (*models.SubscriptionFolder, error) {
	var (
		folder   models.SubscriptionFolder
		parentID sql.NullString
	)

	err := row.Scan(&folder.ID, &folder.Sequence, &folder.Name, &parentID, &folder.UserID, &folder.CreatedAt, &folder.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("folder: %w", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan folder: %w", err)
	}

	if parentID.Valid {
		folder.ParentID = &parentID.String
	}
	return &folder, nil
}

func (r *FolderRepository) scanAll(rows *sql.Rows) ([]*models.SubscriptionFolder, error) {
	var folders []*models.SubscriptionFolder

	for rows.Next() {
		var (
			folder   models.SubscriptionFolder
			parentID sql.NullString
		)
		if err := rows.Scan(&folder.ID, &folder.Sequence, &folder.Name, &parentID, &folder.UserID, &folder.CreatedAt, &folder.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		if parentID.Valid {
			folder.ParentID = &parentID.String
		}
		folders = append(folders, &folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate folders: %w", err)
	}
	return folders, nil
}
