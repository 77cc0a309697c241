// package repositories provides persistence layer implementations for the run journal.
//
// Each repository implements models.Repository[T] for a specific entity type,
// handling CRUD operations, soft deletes, and sequence generation.
package repositories

import (
	"database/sql"
	"fmt"
	"regexp"

	"github.com/desertthunder/plbop/internal/shared"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// NextSequence increments and returns the counter kept in table's "<table>_sequence" row.
//
// Sequence numbers give runs a stable, human-readable number (run #42) shown by `plbop history`.
func NextSequence(db *sql.DB, table string) (int, error) {
	if !tableName.MatchString(table) {
		return 0, fmt.Errorf("%w: table name %q", shared.ErrInvalidInput, table)
	}

	var sequence int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to increment %s sequence: %w", table, err)
	}
	return sequence, nil
}
