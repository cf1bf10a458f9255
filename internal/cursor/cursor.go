// Package cursor implements the inbox pagination cursor.
//
// A cursor has the form "<created_at>:<path>", e.g.
// "2026-02-01T15:37:06.000Z:inbox/file.md". The timestamp always ends in
// "Z", so the first "Z:" marks the split point and paths may contain ":".
package cursor

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeFormat is the timestamp layout written by Format.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// ErrInvalid is returned when a cursor string cannot be parsed.
var ErrInvalid = errors.New("invalid cursor")

// Cursor is a decoded pagination cursor
type Cursor struct {
	CreatedAt string // raw timestamp as it appeared in the cursor
	Path      string
}

// Format builds a cursor string from a timestamp and an item path
func Format(createdAt time.Time, path string) string {
	return createdAt.UTC().Format(TimeFormat) + ":" + path
}

// FormatRaw builds a cursor from a timestamp string already in ISO-8601 UTC
// form, as returned by the daemon.
func FormatRaw(createdAt, path string) string {
	return createdAt + ":" + path
}

// Parse decodes a cursor string. The legacy "|" separator is accepted.
func Parse(s string) (Cursor, error) {
	idx := strings.Index(s, "Z:")
	if idx == -1 {
		idx = strings.Index(s, "Z|")
	}
	if idx == -1 {
		return Cursor{}, fmt.Errorf("%w: %q has no timestamp separator", ErrInvalid, s)
	}

	c := Cursor{
		CreatedAt: s[:idx+1],
		Path:      s[idx+2:],
	}
	if _, err := time.Parse(time.RFC3339Nano, c.CreatedAt); err != nil {
		return Cursor{}, fmt.Errorf("%w: bad timestamp %q: %v", ErrInvalid, c.CreatedAt, err)
	}
	if c.Path == "" {
		return Cursor{}, fmt.Errorf("%w: %q has an empty path", ErrInvalid, s)
	}
	return c, nil
}

// PathOf returns the item path embedded in a cursor string
func PathOf(s string) (string, error) {
	c, err := Parse(s)
	if err != nil {
		return "", err
	}
	return c.Path, nil
}

// Time returns the parsed timestamp of the cursor
func (c Cursor) Time() time.Time {
	t, _ := time.Parse(time.RFC3339Nano, c.CreatedAt)
	return t
}

// String re-encodes the cursor with the ":" separator
func (c Cursor) String() string {
	return FormatRaw(c.CreatedAt, c.Path)
}

// Compare orders cursors by (created_at, path), the same order the daemon
// sorts on. It returns -1 if a is older than b, 1 if newer, 0 if equal.
func Compare(a, b Cursor) int {
	ta, tb := a.Time(), b.Time()
	switch {
	case ta.Before(tb):
		return -1
	case ta.After(tb):
		return 1
	}
	return strings.Compare(a.Path, b.Path)
}
