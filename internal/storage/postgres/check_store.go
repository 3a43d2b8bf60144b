package postgres

import (
	"context"
	"fmt"

	"github.com/JakeFAU/page-analyzer/internal/analyzer"
)

const (
	insertCheckSQL = `INSERT INTO url_checks (url_id, status_code, h1, title, description, created_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	listChecksSQL = `SELECT id, url_id, status_code, h1, title, description, created_at
FROM url_checks WHERE url_id = $1 ORDER BY id DESC`
	clearChecksSQL = `DELETE FROM url_checks`
	resetChecksSQL = `ALTER SEQUENCE url_checks_id_seq RESTART`
)

var (
	_ analyzer.CheckRepository = (*CheckStore)(nil)
	_ analyzer.Resetter        = (*CheckStore)(nil)
)

// CheckStore persists url_checks rows.
type CheckStore struct {
	db *DB
}

// Create inserts a check and returns it with its generated id.
func (s *CheckStore) Create(ctx context.Context, check analyzer.Check) (analyzer.Check, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	err := s.db.pool.QueryRow(ctx, insertCheckSQL,
		check.URLID,
		check.StatusCode,
		check.H1,
		check.Title,
		check.Description,
		check.CreatedAt,
	).Scan(&check.ID)
	if err != nil {
		return analyzer.Check{}, fmt.Errorf("insert check: %w", err)
	}
	return check, nil
}

// ListByURL returns the checks for urlID, newest first.
func (s *CheckStore) ListByURL(ctx context.Context, urlID int64) ([]analyzer.Check, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.pool.Query(ctx, listChecksSQL, urlID)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	defer rows.Close()

	var out []analyzer.Check
	for rows.Next() {
		var c analyzer.Check
		if err := rows.Scan(&c.ID, &c.URLID, &c.StatusCode, &c.H1, &c.Title, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checks: %w", err)
	}
	return out, nil
}

// Clear deletes every check.
func (s *CheckStore) Clear(ctx context.Context) error {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()
	if _, err := s.db.pool.Exec(ctx, clearChecksSQL); err != nil {
		return fmt.Errorf("clear checks: %w", err)
	}
	return nil
}

// Reset clears checks and restarts the id sequence.
func (s *CheckStore) Reset(ctx context.Context) error {
	if err := s.Clear(ctx); err != nil {
		return err
	}
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()
	if _, err := s.db.pool.Exec(ctx, resetChecksSQL); err != nil {
		return fmt.Errorf("restart url_checks sequence: %w", err)
	}
	return nil
}
