package feed

import (
	"fmt"
	"sort"

	"github.com/nickpending/inbox/internal/cursor"
)

// PageStore is the sparse index → page map of resident pages.
// Lower indices hold newer items.
type PageStore struct {
	pages map[int]*Page
}

// NewPageStore creates an empty store
func NewPageStore() *PageStore {
	return &PageStore{pages: make(map[int]*Page)}
}

// Get returns the page at index, or nil
func (s *PageStore) Get(index int) *Page {
	return s.pages[index]
}

// Set stores a page at index, replacing any page already there
func (s *PageStore) Set(index int, p *Page) {
	p.Index = index
	s.pages[index] = p
}

// Delete removes the page at index
func (s *PageStore) Delete(index int) {
	delete(s.pages, index)
}

// Replace drops every page and installs p as the only resident page
func (s *PageStore) Replace(index int, p *Page) {
	s.pages = make(map[int]*Page)
	s.Set(index, p)
}

// Clear drops every page
func (s *PageStore) Clear() {
	s.pages = make(map[int]*Page)
}

// Len returns the number of resident pages
func (s *PageStore) Len() int {
	return len(s.pages)
}

// Indices returns resident indices sorted ascending (newest page first)
func (s *PageStore) Indices() []int {
	out := make([]int, 0, len(s.pages))
	for i := range s.pages {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Newest returns the resident page holding the newest items
func (s *PageStore) Newest() (*Page, bool) {
	idx := s.Indices()
	if len(idx) == 0 {
		return nil, false
	}
	return s.pages[idx[0]], true
}

// Oldest returns the resident page holding the oldest items
func (s *PageStore) Oldest() (*Page, bool) {
	idx := s.Indices()
	if len(idx) == 0 {
		return nil, false
	}
	return s.pages[idx[len(idx)-1]], true
}

// Entries returns resident items in display order (oldest first), with
// duplicates removed. Pages are walked old to new and each page's items
// reversed from served order.
func (s *PageStore) Entries() []Entry {
	idx := s.Indices()
	seen := make(map[string]bool)
	var out []Entry
	for i := len(idx) - 1; i >= 0; i-- {
		p := s.pages[idx[i]]
		for j := len(p.Items) - 1; j >= 0; j-- {
			it := p.Items[j]
			if seen[it.Path] {
				continue
			}
			seen[it.Path] = true
			out = append(out, Entry{Page: p.Index, Item: it})
		}
	}
	return out
}

// Items returns resident items in display order (oldest first)
func (s *PageStore) Items() []Item {
	entries := s.Entries()
	out := make([]Item, len(entries))
	for i, e := range entries {
		out[i] = e.Item
	}
	return out
}

// PageOf returns the index of the resident page containing path
func (s *PageStore) PageOf(path string) (int, bool) {
	for i, p := range s.pages {
		for _, it := range p.Items {
			if it.Path == path {
				return i, true
			}
		}
	}
	return 0, false
}

// CheckAdjacency verifies that for every pair of resident indices i, i+1
// the last item of page i is strictly newer than the first item of page
// i+1, i.e. the pages neither overlap nor appear out of order.
func (s *PageStore) CheckAdjacency() error {
	idx := s.Indices()
	for k := 0; k+1 < len(idx); k++ {
		if idx[k+1] != idx[k]+1 {
			continue
		}
		newer, older := s.pages[idx[k]], s.pages[idx[k+1]]
		if newer.Last == "" || older.First == "" {
			continue
		}
		a, err := cursor.Parse(newer.Last)
		if err != nil {
			return fmt.Errorf("page %d last cursor: %w", newer.Index, err)
		}
		b, err := cursor.Parse(older.First)
		if err != nil {
			return fmt.Errorf("page %d first cursor: %w", older.Index, err)
		}
		if cursor.Compare(a, b) <= 0 {
			return fmt.Errorf("pages %d and %d overlap: %s is not newer than %s",
				newer.Index, older.Index, newer.Last, older.First)
		}
	}
	return nil
}
