package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/page-analyzer/internal/analyzer"
)

const (
	insertURLSQL     = `INSERT INTO urls (name, created_at) VALUES ($1, $2) RETURNING id`
	selectURLByID    = `SELECT id, name, created_at FROM urls WHERE id = $1`
	selectURLByName  = `SELECT id, name, created_at FROM urls WHERE name = $1`
	listSummariesSQL = `SELECT u.id, u.name, c.created_at, c.status_code
FROM urls AS u
LEFT JOIN (SELECT url_id, MAX(id) AS id FROM url_checks GROUP BY url_id) AS latest ON latest.url_id = u.id
LEFT JOIN url_checks AS c ON c.id = latest.id
ORDER BY u.id DESC`
	clearURLsSQL = `DELETE FROM urls`
	resetURLsSQL = `ALTER SEQUENCE urls_id_seq RESTART`
)

var (
	_ analyzer.URLRepository = (*URLStore)(nil)
	_ analyzer.Resetter      = (*URLStore)(nil)
)

// URLStore persists urls rows.
type URLStore struct {
	db *DB
}

// Create inserts a URL and returns it with its generated id.
func (s *URLStore) Create(ctx context.Context, name string, createdAt time.Time) (analyzer.URL, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	var id int64
	if err := s.db.pool.QueryRow(ctx, insertURLSQL, name, createdAt).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return analyzer.URL{}, analyzer.ErrDuplicateURL
		}
		return analyzer.URL{}, fmt.Errorf("insert url: %w", err)
	}
	return analyzer.URL{ID: id, Name: name, CreatedAt: createdAt}, nil
}

// FindByID loads a URL by primary key.
func (s *URLStore) FindByID(ctx context.Context, id int64) (analyzer.URL, error) {
	return s.findOne(ctx, selectURLByID, id)
}

// FindByName loads a URL by its normalized name.
func (s *URLStore) FindByName(ctx context.Context, name string) (analyzer.URL, error) {
	return s.findOne(ctx, selectURLByName, name)
}

func (s *URLStore) findOne(ctx context.Context, query string, arg any) (analyzer.URL, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	var u analyzer.URL
	err := s.db.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return analyzer.URL{}, analyzer.ErrNotFound
	}
	if err != nil {
		return analyzer.URL{}, fmt.Errorf("select url: %w", err)
	}
	return u, nil
}

// ListSummaries returns every URL with its most recent check, newest URL first.
func (s *URLStore) ListSummaries(ctx context.Context) ([]analyzer.URLSummary, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.pool.Query(ctx, listSummariesSQL)
	if err != nil {
		return nil, fmt.Errorf("list urls: %w", err)
	}
	defer rows.Close()

	var out []analyzer.URLSummary
	for rows.Next() {
		var row analyzer.URLSummary
		if err := rows.Scan(&row.ID, &row.Name, &row.LastCheckedAt, &row.LastStatusCode); err != nil {
			return nil, fmt.Errorf("scan url summary: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate url summaries: %w", err)
	}
	return out, nil
}

// Clear deletes every URL; checks go with them via ON DELETE CASCADE.
func (s *URLStore) Clear(ctx context.Context) error {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()
	if _, err := s.db.pool.Exec(ctx, clearURLsSQL); err != nil {
		return fmt.Errorf("clear urls: %w", err)
	}
	return nil
}

// Reset clears URLs and restarts the id sequence.
func (s *URLStore) Reset(ctx context.Context) error {
	if err := s.Clear(ctx); err != nil {
		return err
	}
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()
	if _, err := s.db.pool.Exec(ctx, resetURLsSQL); err != nil {
		return fmt.Errorf("restart urls sequence: %w", err)
	}
	return nil
}
