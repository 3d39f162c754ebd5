package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// Direction moves an item up or down within its siblings
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// orderOffset lifts every sibling clear of the final range while renumbering,
// so UNIQUE (scope, order) keys never collide mid-update
const orderOffset = 1000000

// orderedScope names a table whose rows carry an `order` column, optionally within a parent scope
type orderedScope struct {
	table       string
	scopeColumn string
	notFound    error
}

// nextOrder returns max(order)+1 for the scope
func nextOrder(ctx context.Context, db *sql.DB, s orderedScope, scopeValue string) (int, error) {
	query := fmt.Sprintf("SELECT COALESCE(MAX(`order`), 0) + 1 FROM %s", s.table)
	var args []any
	if s.scopeColumn != "" {
		query += fmt.Sprintf(" WHERE %s = ?", s.scopeColumn)
		args = append(args, scopeValue)
	}

	var next int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to get next order: %w", err)
	}
	return next, nil
}

// move swaps the item with its neighbour in the given direction and renumbers
// every sibling 1..N in a single transaction
func move(ctx context.Context, db *sql.DB, s orderedScope, id string, direction Direction) error {
	if direction != DirectionUp && direction != DirectionDown {
		return fmt.Errorf("invalid direction: %q", direction)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var scopeValue string
	if s.scopeColumn != "" {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", s.scopeColumn, s.table)
		err = tx.QueryRowContext(ctx, query, id).Scan(&scopeValue)
		if err == sql.ErrNoRows {
			return s.notFound
		}
		if err != nil {
			return fmt.Errorf("failed to get item scope: %w", err)
		}
	}

	query := fmt.Sprintf("SELECT id FROM %s", s.table)
	var args []any
	if s.scopeColumn != "" {
		query += fmt.Sprintf(" WHERE %s = ?", s.scopeColumn)
		args = append(args, scopeValue)
	}
	query += " ORDER BY `order` FOR UPDATE"

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query siblings: %w", err)
	}
	var ids []string
	for rows.Next() {
		var siblingID string
		if err := rows.Scan(&siblingID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan sibling: %w", err)
		}
		ids = append(ids, siblingID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	idx := -1
	for i, siblingID := range ids {
		if siblingID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s.notFound
	}

	target := idx - 1
	if direction == DirectionDown {
		target = idx + 1
	}
	if target < 0 || target >= len(ids) {
		return ErrNothingToMove
	}
	ids[idx], ids[target] = ids[target], ids[idx]

	liftQuery := fmt.Sprintf("UPDATE %s SET `order` = `order` + %d", s.table, orderOffset)
	if s.scopeColumn != "" {
		liftQuery += fmt.Sprintf(" WHERE %s = ?", s.scopeColumn)
	}
	if _, err := tx.ExecContext(ctx, liftQuery, args...); err != nil {
		return fmt.Errorf("failed to lift order: %w", err)
	}

	renumber := fmt.Sprintf("UPDATE %s SET `order` = ? WHERE id = ?", s.table)
	for i, siblingID := range ids {
		if _, err := tx.ExecContext(ctx, renumber, i+1, siblingID); err != nil {
			return fmt.Errorf("failed to renumber: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	return nil
}
