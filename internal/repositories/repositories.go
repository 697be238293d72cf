// package repositories provides persistence layer implementations for all model types.
//
// Each repository handles CRUD operations and the entity-specific queries
// the sync engine needs (duplicate detection, quota counts, candidate
// selection). Sequence numbers provide human-readable ordering for
// entities; they are not exposed in CLI output.
package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// NextSequence atomically increments and returns the next sequence number for the given table.
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	_, err = tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// nullString converts a *string to a driver-friendly value, mapping nil to SQL NULL.
func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// nullTime converts a *time.Time to a driver-friendly value, mapping nil to SQL NULL.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// nullBool converts a *bool to a driver-friendly value, mapping nil to SQL NULL.
func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

// nullInt converts a *int to a driver-friendly value, mapping nil to SQL NULL.
func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

// isUniqueViolation reports whether err is a sqlite unique-constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
