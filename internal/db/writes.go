package db

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/nickpending/inbox/internal/cursor"
	"github.com/nickpending/inbox/internal/feed"
)

// Insert adds or replaces a file record. Name defaults to the base of
// Path and ModifiedAt to CreatedAt.
func (s *Store) Insert(ctx context.Context, it feed.Item) error {
	if it.Name == "" {
		it.Name = path.Base(it.Path)
	}
	if it.ModifiedAt == "" {
		it.ModifiedAt = it.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO files
			(path, name, is_folder, size, mime_type, hash, modified_at, created_at, text_preview, screenshot_sqlar)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.Path, it.Name, it.IsFolder, it.Size, it.MimeType, it.Hash,
		it.ModifiedAt, it.CreatedAt, it.TextPreview, it.ScreenshotSqlar,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", it.Path, err)
	}
	return nil
}

// Pin marks path as pinned at the given time
func (s *Store) Pin(ctx context.Context, p string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pins (path, created_at) VALUES (?, ?)`,
		p, at.UTC().Format(cursor.TimeFormat))
	if err != nil {
		return fmt.Errorf("failed to pin %s: %w", p, err)
	}
	return nil
}

// Unpin removes the pin on path, if any
func (s *Store) Unpin(ctx context.Context, p string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pins WHERE path = ?`, p); err != nil {
		return fmt.Errorf("failed to unpin %s: %w", p, err)
	}
	return nil
}

// Count returns the number of top-level inbox items
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM files f WHERE `+topLevel, s.prefix, s.prefix).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count inbox: %w", err)
	}
	return n, nil
}
