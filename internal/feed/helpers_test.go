package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nickpending/inbox/internal/cursor"
)

var errBoom = errors.New("boom")

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// memSource serves an in-memory inbox with the daemon's before/after/around
// semantics. Items are kept newest first.
type memSource struct {
	mu         sync.Mutex
	items      []Item
	queries    []Query
	failNewest bool
	failBefore bool
}

func newMemSource(n int) *memSource {
	s := &memSource{}
	for i := 0; i < n; i++ {
		s.add(i)
	}
	return s
}

func itemPath(i int) string {
	return fmt.Sprintf("inbox/item-%03d.md", i)
}

func itemCursor(i int) string {
	return cursor.Format(baseTime.Add(time.Duration(i)*time.Second), itemPath(i))
}

// add inserts item i, keeping newest-first order
func (s *memSource) add(i int) {
	it := Item{
		Path:      itemPath(i),
		Name:      fmt.Sprintf("item-%03d.md", i),
		CreatedAt: baseTime.Add(time.Duration(i) * time.Second).Format(cursor.TimeFormat),
	}
	s.items = append(s.items, it)
	sort.Slice(s.items, func(a, b int) bool {
		return compareItems(s.items[a], s.items[b]) > 0
	})
}

func compareItems(a, b Item) int {
	ca, _ := cursor.Parse(a.Cursor())
	cb, _ := cursor.Parse(b.Cursor())
	return cursor.Compare(ca, cb)
}

func (s *memSource) calls() []Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Query(nil), s.queries...)
}

func (s *memSource) Fetch(ctx context.Context, q Query) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)

	if err := q.Validate(); err != nil {
		return nil, err
	}

	resp := &Response{}
	switch {
	case q.Around != "":
		c, err := cursor.Parse(q.Around)
		if err != nil {
			return nil, err
		}
		half := q.Limit / 2
		var newer, older []Item
		for _, it := range s.items {
			ic, _ := cursor.Parse(it.Cursor())
			if cursor.Compare(ic, c) > 0 {
				newer = append(newer, it)
			} else {
				older = append(older, it)
			}
		}
		// newer is newest first; keep the ones closest to the cursor
		if len(newer) > half {
			newer = newer[len(newer)-half:]
			resp.HasMore.Newer = true
		}
		if len(older) > half {
			older = older[:half]
			resp.HasMore.Older = true
		}
		target := len(newer)
		resp.Items = append(append([]Item{}, newer...), older...)
		resp.TargetIndex = &target

	case q.Before != "":
		if s.failBefore {
			return nil, errBoom
		}
		c, err := cursor.Parse(q.Before)
		if err != nil {
			return nil, err
		}
		resp.HasMore.Newer = true
		for _, it := range s.items {
			ic, _ := cursor.Parse(it.Cursor())
			if cursor.Compare(ic, c) < 0 {
				resp.Items = append(resp.Items, it)
			}
		}
		if len(resp.Items) > q.Limit {
			resp.Items = resp.Items[:q.Limit]
			resp.HasMore.Older = true
		}

	case q.After != "":
		c, err := cursor.Parse(q.After)
		if err != nil {
			return nil, err
		}
		resp.HasMore.Older = true
		var newer []Item
		for _, it := range s.items {
			ic, _ := cursor.Parse(it.Cursor())
			if cursor.Compare(ic, c) > 0 {
				newer = append(newer, it)
			}
		}
		if len(newer) > q.Limit {
			newer = newer[len(newer)-q.Limit:]
			resp.HasMore.Newer = true
		}
		resp.Items = newer

	default:
		if s.failNewest {
			return nil, errBoom
		}
		resp.Items = append([]Item{}, s.items...)
		if len(resp.Items) > q.Limit {
			resp.Items = resp.Items[:q.Limit]
			resp.HasMore.Older = true
		}
	}

	if len(resp.Items) > 0 {
		first := resp.Items[0].Cursor()
		last := resp.Items[len(resp.Items)-1].Cursor()
		resp.Cursors.First = &first
		resp.Cursors.Last = &last
	}
	return resp, nil
}

// fakeViewport is a scroll container with browser-like clamping
type fakeViewport struct {
	top     int
	content int
	client  int
}

func (v *fakeViewport) ScrollTop() int    { return v.top }
func (v *fakeViewport) ScrollHeight() int { return v.content }
func (v *fakeViewport) ClientHeight() int { return v.client }

func (v *fakeViewport) SetScrollTop(top int) {
	max := v.content - v.client
	if top > max {
		top = max
	}
	if top < 0 {
		top = 0
	}
	v.top = top
}

// harness wires a controller to the fake source, viewport and a renderer
// that gives every item a fixed height.
type harness struct {
	t        *testing.T
	src      *memSource
	vp       *fakeViewport
	ctl      *Controller
	itemRows int
}

func newHarness(t *testing.T, src *memSource, opts Options) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		src:      src,
		vp:       &fakeViewport{client: 20},
		itemRows: 3,
	}
	h.ctl = NewController(src, h.vp, opts)
	return h
}

// layout renders resident items into rows and attaches them to the registry
func (h *harness) layout() {
	reg := h.ctl.Registry()
	reg.Clear()
	top := 0
	for _, e := range h.ctl.Entries() {
		reg.Attach(Element{Path: e.Item.Path, Page: e.Page, Top: top, Height: h.itemRows})
		top += h.itemRows
	}
	h.vp.content = top
	h.vp.SetScrollTop(h.vp.top)
}

// run executes a request and, if it changed the store, relays out and
// settles. Follow-up requests are returned, not executed.
func (h *harness) run(req *Request) []*Request {
	h.t.Helper()
	require.NotNil(h.t, req)
	res := h.ctl.Fetch(context.Background(), req)
	if !h.ctl.Complete(res) {
		return nil
	}
	h.layout()
	return h.ctl.Settle()
}

// start performs the initial load
func (h *harness) start() {
	h.t.Helper()
	h.run(h.ctl.Start())
}

// scrollTo moves the viewport and delivers the scroll event
func (h *harness) scrollTo(top int) []*Request {
	h.vp.SetScrollTop(top)
	return h.ctl.OnScroll()
}

// elementOffset is the on-screen offset of path's element
func (h *harness) elementOffset(path string) int {
	h.t.Helper()
	el, ok := h.ctl.Registry().Lookup(path)
	require.True(h.t, ok, "element %s not rendered", path)
	return el.Top - h.vp.top
}

// firstVisible returns the path of the first item whose top is on screen
func (h *harness) firstVisible() string {
	a := CaptureAnchor(h.ctl.Store(), h.ctl.Registry(), h.vp)
	return a.Path
}
