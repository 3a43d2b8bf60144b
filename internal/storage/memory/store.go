// Package memory provides in-process repositories for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/page-analyzer/internal/analyzer"
)

// Store holds urls and checks behind a single lock so listings can join them.
type Store struct {
	mu          sync.RWMutex
	urls        map[int64]analyzer.URL
	byName      map[string]int64
	checks      map[int64]analyzer.Check
	nextURLID   int64
	nextCheckID int64
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	s := &Store{}
	s.resetURLs()
	s.resetChecks()
	return s
}

// URLs returns the URL repository view of the store.
func (s *Store) URLs() *URLStore { return &URLStore{s: s} }

// Checks returns the check repository view of the store.
func (s *Store) Checks() *CheckStore { return &CheckStore{s: s} }

func (s *Store) resetURLs() {
	s.urls = make(map[int64]analyzer.URL)
	s.byName = make(map[string]int64)
	s.nextURLID = 1
}

func (s *Store) resetChecks() {
	s.checks = make(map[int64]analyzer.Check)
	s.nextCheckID = 1
}

// URLStore implements analyzer.URLRepository in memory.
type URLStore struct {
	s *Store
}

var (
	_ analyzer.URLRepository   = (*URLStore)(nil)
	_ analyzer.CheckRepository = (*CheckStore)(nil)
	_ analyzer.Resetter        = (*URLStore)(nil)
	_ analyzer.Resetter        = (*CheckStore)(nil)
)

// Create inserts a URL, rejecting duplicate names.
func (u *URLStore) Create(_ context.Context, name string, createdAt time.Time) (analyzer.URL, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, exists := u.s.byName[name]; exists {
		return analyzer.URL{}, analyzer.ErrDuplicateURL
	}
	rec := analyzer.URL{ID: u.s.nextURLID, Name: name, CreatedAt: createdAt}
	u.s.nextURLID++
	u.s.urls[rec.ID] = rec
	u.s.byName[name] = rec.ID
	return rec, nil
}

// FindByID fetches a URL by id.
func (u *URLStore) FindByID(_ context.Context, id int64) (analyzer.URL, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	rec, ok := u.s.urls[id]
	if !ok {
		return analyzer.URL{}, analyzer.ErrNotFound
	}
	return rec, nil
}

// FindByName fetches a URL by exact normalized name.
func (u *URLStore) FindByName(_ context.Context, name string) (analyzer.URL, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	id, ok := u.s.byName[name]
	if !ok {
		return analyzer.URL{}, analyzer.ErrNotFound
	}
	return u.s.urls[id], nil
}

// ListSummaries returns URLs newest first, each with its highest-id check.
func (u *URLStore) ListSummaries(_ context.Context) ([]analyzer.URLSummary, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	latest := make(map[int64]analyzer.Check, len(u.s.urls))
	for _, c := range u.s.checks {
		if prev, ok := latest[c.URLID]; !ok || c.ID > prev.ID {
			latest[c.URLID] = c
		}
	}

	out := make([]analyzer.URLSummary, 0, len(u.s.urls))
	for _, rec := range u.s.urls {
		row := analyzer.URLSummary{ID: rec.ID, Name: rec.Name}
		if c, ok := latest[rec.ID]; ok {
			checkedAt := c.CreatedAt
			row.LastCheckedAt = &checkedAt
			if c.StatusCode != nil {
				status := *c.StatusCode
				row.LastStatusCode = &status
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Clear removes every URL and, like the foreign key cascade, their checks.
func (u *URLStore) Clear(_ context.Context) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	next := u.s.nextURLID
	u.s.resetURLs()
	u.s.nextURLID = next
	u.s.checks = make(map[int64]analyzer.Check)
	return nil
}

// Reset clears URLs and restarts ids at 1.
func (u *URLStore) Reset(ctx context.Context) error {
	if err := u.Clear(ctx); err != nil {
		return err
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.nextURLID = 1
	return nil
}

// CheckStore implements analyzer.CheckRepository in memory.
type CheckStore struct {
	s *Store
}

// Create appends a check for an existing URL.
func (c *CheckStore) Create(_ context.Context, check analyzer.Check) (analyzer.Check, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.urls[check.URLID]; !ok {
		return analyzer.Check{}, analyzer.ErrNotFound
	}
	if check.StatusCode != nil {
		status := *check.StatusCode
		check.StatusCode = &status
	}
	check.ID = c.s.nextCheckID
	c.s.nextCheckID++
	c.s.checks[check.ID] = check
	return check, nil
}

// ListByURL returns a URL's checks, newest first.
func (c *CheckStore) ListByURL(_ context.Context, urlID int64) ([]analyzer.Check, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var out []analyzer.Check
	for _, check := range c.s.checks {
		if check.URLID == urlID {
			out = append(out, check)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Clear removes every check.
func (c *CheckStore) Clear(_ context.Context) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.checks = make(map[int64]analyzer.Check)
	return nil
}

// Reset removes every check and restarts ids at 1.
func (c *CheckStore) Reset(_ context.Context) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.resetChecks()
	return nil
}
