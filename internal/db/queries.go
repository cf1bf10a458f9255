package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nickpending/inbox/internal/cursor"
	"github.com/nickpending/inbox/internal/feed"
)

const (
	// DefaultLimit is used when a query asks for no particular page size
	DefaultLimit = 30
	// MaxLimit caps the page size
	MaxLimit = 100
	// InboxPrefix is the folder whose direct children form the inbox
	InboxPrefix = "inbox/"
)

// DefaultPath returns the default path to the SQLite database
func DefaultPath() (string, error) {
	// Use XDG_DATA_HOME for database storage
	xdgDataHome := os.Getenv("XDG_DATA_HOME")
	if xdgDataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		xdgDataHome = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(xdgDataHome, "inbox", "inbox.db"), nil
}

// Store reads the inbox straight from a local database. It implements
// feed.Source and feed.PinSource.
type Store struct {
	db     *sql.DB
	prefix string
}

// NewStore creates a store over the top-level files of InboxPrefix
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, prefix: InboxPrefix}
}

const fileColumns = `f.path, f.name, f.is_folder, f.size, f.mime_type, f.hash,
	f.modified_at, f.created_at, f.text_preview, f.screenshot_sqlar,
	p.path IS NOT NULL`

// topLevel restricts to direct children of the prefix
const topLevel = `f.path LIKE ? || '%' AND f.path NOT LIKE ? || '%/%'`

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxLimit {
		return DefaultLimit
	}
	return limit
}

// Fetch runs the page query q names
func (s *Store) Fetch(ctx context.Context, q feed.Query) (*feed.Response, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	limit := clampLimit(q.Limit)

	switch {
	case q.Around != "":
		c, err := cursor.Parse(q.Around)
		if err != nil {
			return nil, err
		}
		return s.Around(ctx, c, limit)
	case q.Before != "":
		c, err := cursor.Parse(q.Before)
		if err != nil {
			return nil, err
		}
		return s.Before(ctx, c, limit)
	case q.After != "":
		c, err := cursor.Parse(q.After)
		if err != nil {
			return nil, err
		}
		return s.After(ctx, c, limit)
	}
	return s.Newest(ctx, limit)
}

// Newest returns the newest limit items
func (s *Store) Newest(ctx context.Context, limit int) (*feed.Response, error) {
	query := `SELECT ` + fileColumns + `
		FROM files f LEFT JOIN pins p ON p.path = f.path
		WHERE ` + topLevel + `
		ORDER BY f.created_at DESC, f.path DESC
		LIMIT ?`

	items, err := s.query(ctx, query, s.prefix, s.prefix, limit+1)
	if err != nil {
		return nil, err
	}
	resp := &feed.Response{}
	if len(items) > limit {
		items = items[:limit]
		resp.HasMore.Older = true
	}
	return withCursors(resp, items), nil
}

// Before returns up to limit items strictly older than c, newest first
func (s *Store) Before(ctx context.Context, c cursor.Cursor, limit int) (*feed.Response, error) {
	query := `SELECT ` + fileColumns + `
		FROM files f LEFT JOIN pins p ON p.path = f.path
		WHERE ` + topLevel + `
		  AND (f.created_at < ? OR (f.created_at = ? AND f.path < ?))
		ORDER BY f.created_at DESC, f.path DESC
		LIMIT ?`

	items, err := s.query(ctx, query, s.prefix, s.prefix, c.CreatedAt, c.CreatedAt, c.Path, limit+1)
	if err != nil {
		return nil, err
	}
	// the cursor item itself is newer
	resp := &feed.Response{HasMore: feed.HasMore{Newer: true}}
	if len(items) > limit {
		items = items[:limit]
		resp.HasMore.Older = true
	}
	return withCursors(resp, items), nil
}

// After returns up to limit items strictly newer than c, newest first.
// They are the limit items closest to c.
func (s *Store) After(ctx context.Context, c cursor.Cursor, limit int) (*feed.Response, error) {
	items, more, err := s.newer(ctx, c, limit)
	if err != nil {
		return nil, err
	}
	resp := &feed.Response{HasMore: feed.HasMore{Older: true, Newer: more}}
	return withCursors(resp, items), nil
}

// newer returns up to limit items newer than c, newest first, and whether
// more exist beyond them
func (s *Store) newer(ctx context.Context, c cursor.Cursor, limit int) ([]feed.Item, bool, error) {
	query := `SELECT ` + fileColumns + `
		FROM files f LEFT JOIN pins p ON p.path = f.path
		WHERE ` + topLevel + `
		  AND (f.created_at > ? OR (f.created_at = ? AND f.path > ?))
		ORDER BY f.created_at ASC, f.path ASC
		LIMIT ?`

	items, err := s.query(ctx, query, s.prefix, s.prefix, c.CreatedAt, c.CreatedAt, c.Path, limit+1)
	if err != nil {
		return nil, false, err
	}
	more := len(items) > limit
	if more {
		items = items[:limit]
	}
	reverse(items)
	return items, more, nil
}

// Around returns a page centred on c: up to limit/2 items newer than c,
// then c itself and up to limit/2-1 older ones. TargetIndex points at c,
// or at the nearest older item if c no longer exists.
func (s *Store) Around(ctx context.Context, c cursor.Cursor, limit int) (*feed.Response, error) {
	half := limit / 2
	if half < 1 {
		half = 1
	}

	query := `SELECT ` + fileColumns + `
		FROM files f LEFT JOIN pins p ON p.path = f.path
		WHERE ` + topLevel + `
		  AND (f.created_at < ? OR (f.created_at = ? AND f.path <= ?))
		ORDER BY f.created_at DESC, f.path DESC
		LIMIT ?`
	older, err := s.query(ctx, query, s.prefix, s.prefix, c.CreatedAt, c.CreatedAt, c.Path, half+1)
	if err != nil {
		return nil, err
	}
	newer, moreNewer, err := s.newer(ctx, c, half)
	if err != nil {
		return nil, err
	}

	resp := &feed.Response{HasMore: feed.HasMore{Newer: moreNewer}}
	if len(older) > half {
		older = older[:half]
		resp.HasMore.Older = true
	}
	target := len(newer)
	resp.TargetIndex = &target
	items := append(newer, older...)
	return withCursors(resp, items), nil
}

// Pinned lists pinned inbox items, most recently pinned first
func (s *Store) Pinned(ctx context.Context) ([]feed.Pin, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.path, f.name, f.created_at, f.text_preview, p.created_at
		FROM pins p
		JOIN files f ON f.path = p.path
		WHERE f.path LIKE ? || '%'
		ORDER BY p.created_at DESC`, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query pins: %w", err)
	}
	defer rows.Close()

	var pins []feed.Pin
	for rows.Next() {
		var pin feed.Pin
		var createdAt string
		var preview sql.NullString
		if err := rows.Scan(&pin.Path, &pin.Name, &createdAt, &preview, &pin.PinnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pin: %w", err)
		}
		pin.Cursor = cursor.FormatRaw(createdAt, pin.Path)
		pin.DisplayText = feed.DisplayText(pin.Name, stringPtr(preview))
		pins = append(pins, pin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pins: %w", err)
	}
	return pins, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]feed.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inbox: %w", err)
	}
	defer rows.Close()

	var items []feed.Item
	for rows.Next() {
		var it feed.Item
		var size sql.NullInt64
		var mimeType, hash, preview, screenshot sql.NullString
		err := rows.Scan(
			&it.Path, &it.Name, &it.IsFolder, &size, &mimeType, &hash,
			&it.ModifiedAt, &it.CreatedAt, &preview, &screenshot,
			&it.IsPinned,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if size.Valid {
			it.Size = &size.Int64
		}
		it.MimeType = stringPtr(mimeType)
		it.Hash = stringPtr(hash)
		it.TextPreview = stringPtr(preview)
		it.ScreenshotSqlar = stringPtr(screenshot)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return items, nil
}

func withCursors(resp *feed.Response, items []feed.Item) *feed.Response {
	if items == nil {
		items = []feed.Item{}
	}
	resp.Items = items
	if len(items) > 0 {
		first := items[0].Cursor()
		last := items[len(items)-1].Cursor()
		resp.Cursors.First = &first
		resp.Cursors.Last = &last
	}
	return resp
}

func reverse(items []feed.Item) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
