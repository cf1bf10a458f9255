// Package feed implements the windowed, bidirectionally paginated inbox feed.
//
// The controller streams an unbounded, server-ordered item list into a
// bounded set of resident pages, loads more in either direction as the
// viewport nears an edge, jumps straight to an item by cursor, and keeps the
// on-screen position stable while pages are inserted or evicted.
//
// All Controller methods must be called from a single goroutine (the UI
// loop). Fetches are executed elsewhere via Controller.Fetch and their
// results handed back through Controller.Complete.
package feed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nickpending/inbox/internal/cursor"
)

var (
	// ErrConflictingCursors is returned when a query sets more than one cursor.
	ErrConflictingCursors = errors.New("at most one of before, after and around may be set")
	// ErrNotResident is returned by ScrollToItem for items outside the window.
	ErrNotResident = errors.New("item is not resident")
)

// Item is one inbox entry. Only Path and CreatedAt matter to the feed;
// the rest is carried for the renderer.
type Item struct {
	Path            string  `json:"path"`
	Name            string  `json:"name"`
	IsFolder        bool    `json:"isFolder"`
	Size            *int64  `json:"size,omitempty"`
	MimeType        *string `json:"mimeType,omitempty"`
	Hash            *string `json:"hash,omitempty"`
	ModifiedAt      string  `json:"modifiedAt"`
	CreatedAt       string  `json:"createdAt"`
	TextPreview     *string `json:"textPreview,omitempty"`
	ScreenshotSqlar *string `json:"screenshotSqlar,omitempty"`
	IsPinned        bool    `json:"isPinned"`
}

// Cursor returns the pagination cursor identifying this item
func (i Item) Cursor() string {
	return cursor.FormatRaw(i.CreatedAt, i.Path)
}

// Created parses CreatedAt, returning the zero time if it is malformed
func (i Item) Created() time.Time {
	t, _ := time.Parse(time.RFC3339Nano, i.CreatedAt)
	return t
}

// Query is a single page request. At most one of Before, After and Around
// may be set; none means "newest".
type Query struct {
	Limit  int
	Before string
	After  string
	Around string
}

// Validate checks that the query names at most one cursor
func (q Query) Validate() error {
	n := 0
	for _, c := range []string{q.Before, q.After, q.Around} {
		if c != "" {
			n++
		}
	}
	if n > 1 {
		return ErrConflictingCursors
	}
	return nil
}

// Cursors holds the first (newest) and last (oldest) cursor of a response
type Cursors struct {
	First *string `json:"first"`
	Last  *string `json:"last"`
}

// HasMore reports whether items exist beyond either end of a response
type HasMore struct {
	Older bool `json:"older"`
	Newer bool `json:"newer"`
}

// Response is one page of the feed, items newest first
type Response struct {
	Items       []Item  `json:"items"`
	Cursors     Cursors `json:"cursors"`
	HasMore     HasMore `json:"hasMore"`
	TargetIndex *int    `json:"targetIndex,omitempty"`
}

// Source fetches pages of the inbox. Implementations must be safe for use
// from multiple goroutines.
type Source interface {
	Fetch(ctx context.Context, q Query) (*Response, error)
}

// Pin is a pinned inbox item. Cursor is what JumpToCursor takes.
type Pin struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	PinnedAt    string `json:"pinnedAt"`
	DisplayText string `json:"displayText"`
	Cursor      string `json:"cursor"`
}

// PinSource lists pinned items, newest pin first
type PinSource interface {
	Pinned(ctx context.Context) ([]Pin, error)
}

// DisplayText returns the first line of a text preview, or name when the
// preview is missing or starts with a blank line
func DisplayText(name string, preview *string) string {
	if preview == nil {
		return name
	}
	first, _, _ := strings.Cut(*preview, "\n")
	if s := strings.TrimSpace(first); s != "" {
		return s
	}
	return name
}

// Page is a contiguous batch of items from one fetch
type Page struct {
	Index    int
	Items    []Item // newest first, as served
	First    string // cursor of Items[0]
	Last     string // cursor of Items[len-1]
	HasOlder bool
	HasNewer bool
	LoadedAt time.Time
}

func newPage(index int, resp *Response, now time.Time) *Page {
	p := &Page{
		Index:    index,
		Items:    resp.Items,
		HasOlder: resp.HasMore.Older,
		HasNewer: resp.HasMore.Newer,
		LoadedAt: now,
	}
	if resp.Cursors.First != nil {
		p.First = *resp.Cursors.First
	} else if len(resp.Items) > 0 {
		p.First = resp.Items[0].Cursor()
	}
	if resp.Cursors.Last != nil {
		p.Last = *resp.Cursors.Last
	} else if len(resp.Items) > 0 {
		p.Last = resp.Items[len(resp.Items)-1].Cursor()
	}
	return p
}

// Entry is an item placed in the display sequence with its owning page
type Entry struct {
	Page int
	Item Item
}
