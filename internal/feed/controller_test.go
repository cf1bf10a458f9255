package feed

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickpending/inbox/internal/cursor"
)

func TestInitialLoadScrollsToBottom(t *testing.T) {
	h := newHarness(t, newMemSource(100), Options{})

	req := h.ctl.Start()
	require.NotNil(t, req)
	assert.Equal(t, KindNewest, req.Kind)
	assert.Equal(t, StateInitialLoading, h.ctl.State())

	h.run(req)

	assert.Equal(t, []int{0}, h.ctl.Store().Indices())
	p := h.ctl.Store().Get(0)
	require.Len(t, p.Items, 30)
	assert.True(t, p.HasOlder)
	assert.False(t, p.HasNewer)
	assert.Equal(t, itemCursor(99), p.First)
	assert.Equal(t, itemCursor(70), p.Last)

	assert.Equal(t, 90, h.vp.content)
	assert.Equal(t, 70, h.vp.top, "should be scrolled to the bottom")
	assert.True(t, h.ctl.StickToBottom())
	assert.Equal(t, StateIdle, h.ctl.State())

	items := h.ctl.Items()
	assert.Equal(t, itemPath(70), items[0].Path, "oldest item renders first")
	assert.Equal(t, itemPath(99), items[len(items)-1].Path)
}

func TestInitialLoadFailureIsTerminal(t *testing.T) {
	src := newMemSource(10)
	src.failNewest = true
	h := newHarness(t, src, Options{})

	h.start()

	assert.Equal(t, StateError, h.ctl.State())
	require.Error(t, h.ctl.Err())
	assert.ErrorIs(t, h.ctl.Err(), errBoom)
	assert.Equal(t, 0, h.ctl.Store().Len())

	// scrolling does not retry
	assert.Empty(t, h.scrollTo(0))
	assert.Nil(t, h.ctl.Refresh())
	assert.Len(t, src.calls(), 1)

	// an explicit reload does
	src.failNewest = false
	h.run(h.ctl.Reload())
	assert.NoError(t, h.ctl.Err())
	assert.Equal(t, StateIdle, h.ctl.State())
	assert.Equal(t, 1, h.ctl.Store().Len())
}

func TestFailedReloadKeepsResidentPages(t *testing.T) {
	src := newMemSource(200)
	h := newHarness(t, src, Options{})
	h.start()
	reqs := h.scrollTo(0)
	require.Len(t, reqs, 1)
	h.run(reqs[0])
	items := h.ctl.Items()

	src.failNewest = true
	req := h.ctl.Reload()
	require.NotNil(t, req)
	assert.Equal(t, StateNavigating, h.ctl.State())
	assert.Empty(t, h.run(req))

	assert.NoError(t, h.ctl.Err())
	assert.Equal(t, StateIdle, h.ctl.State())
	assert.Equal(t, []int{0, 1}, h.ctl.Store().Indices())
	assert.Equal(t, items, h.ctl.Items())

	src.failNewest = false
	h.run(h.ctl.Reload())
	assert.Equal(t, []int{0}, h.ctl.Store().Indices())
	assert.True(t, h.ctl.StickToBottom())
}

func TestEmptyInbox(t *testing.T) {
	h := newHarness(t, newMemSource(0), Options{})
	h.start()

	assert.Equal(t, StateIdle, h.ctl.State())
	assert.Empty(t, h.ctl.Items())
	assert.Empty(t, h.scrollTo(0))
	assert.NotNil(t, h.ctl.Refresh(), "a page without cursors reloads via newest")
}

func TestOlderLoadPreservesAnchor(t *testing.T) {
	h := newHarness(t, newMemSource(100), Options{})
	h.start()

	reqs := h.scrollTo(0)
	require.Len(t, reqs, 1)
	assert.Equal(t, KindOlder, reqs[0].Kind)
	assert.Equal(t, 0, reqs[0].From)
	assert.Equal(t, 1, reqs[0].Target)
	assert.Equal(t, itemCursor(70), reqs[0].Query.Before)
	assert.Equal(t, StateLoadingEdge, h.ctl.State())

	anchor := h.firstVisible()
	require.Equal(t, itemPath(70), anchor)
	before := h.elementOffset(anchor)

	assert.Empty(t, h.run(reqs[0]))

	assert.Equal(t, []int{0, 1}, h.ctl.Store().Indices())
	assert.Equal(t, before, h.elementOffset(anchor), "anchored item must not move on screen")
	assert.Equal(t, 90, h.vp.top)
	assert.False(t, h.ctl.StickToBottom())
	assert.NoError(t, h.ctl.Store().CheckAdjacency())
}

func TestDuplicateTriggerIsDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	src := newMemSource(100)
	h := newHarness(t, src, Options{Metrics: m})
	h.start()

	first := h.scrollTo(0)
	require.Len(t, first, 1)
	assert.Empty(t, h.scrollTo(1))
	assert.Empty(t, h.scrollTo(0))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Dropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fetches.WithLabelValues("older")))

	h.run(first[0])
	assert.Equal(t, 2, h.ctl.Store().Len())
	assert.Len(t, src.calls(), 2)
}

func TestWindowStaysBounded(t *testing.T) {
	h := newHarness(t, newMemSource(200), Options{MaxPages: 3})
	h.start()

	loads := 0
	for i := 0; i < 20; i++ {
		reqs := h.scrollTo(0)
		if len(reqs) == 0 {
			break
		}
		for _, r := range reqs {
			anchor := h.firstVisible()
			offset := h.elementOffset(anchor)
			h.run(r)
			loads++
			assert.Equal(t, offset, h.elementOffset(anchor))
		}
		assert.LessOrEqual(t, h.ctl.Store().Len(), 3)
		require.NoError(t, h.ctl.Store().CheckAdjacency())
	}

	assert.Equal(t, 6, loads)
	assert.Equal(t, []int{4, 5, 6}, h.ctl.Store().Indices())
	oldest, ok := h.ctl.Store().Oldest()
	require.True(t, ok)
	assert.False(t, oldest.HasOlder)
	assert.Equal(t, itemCursor(0), oldest.Last)
	assert.Equal(t, itemPath(0), h.ctl.Items()[0].Path)
}

func TestOlderLoadAtCapEvictsFarthestPage(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	h := newHarness(t, newMemSource(200), Options{MaxPages: 5, Metrics: m})
	h.start()

	for i := 0; i < 4; i++ {
		reqs := h.scrollTo(0)
		require.Len(t, reqs, 1)
		h.run(reqs[0])
	}
	require.Equal(t, []int{0, 1, 2, 3, 4}, h.ctl.Store().Indices())

	reqs := h.scrollTo(0)
	require.Len(t, reqs, 1)
	assert.Equal(t, 5, reqs[0].Target)

	anchor := h.firstVisible()
	offset := h.elementOffset(anchor)
	h.run(reqs[0])

	assert.Equal(t, []int{1, 2, 3, 4, 5}, h.ctl.Store().Indices())
	assert.Equal(t, offset, h.elementOffset(anchor))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evicted))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Resident))
}

func TestNewerLoadRefillsEvictedPage(t *testing.T) {
	h := newHarness(t, newMemSource(200), Options{MaxPages: 3})
	h.start()
	for i := 0; i < 10; i++ {
		reqs := h.scrollTo(0)
		if len(reqs) == 0 {
			break
		}
		h.run(reqs[0])
	}
	require.Equal(t, []int{4, 5, 6}, h.ctl.Store().Indices())

	reqs := h.scrollTo(h.vp.content)
	require.Len(t, reqs, 1)
	assert.Equal(t, KindNewer, reqs[0].Kind)
	assert.Equal(t, 3, reqs[0].Target)

	anchor := h.firstVisible()
	offset := h.elementOffset(anchor)
	h.run(reqs[0])

	assert.Equal(t, []int{3, 4, 5}, h.ctl.Store().Indices())
	p := h.ctl.Store().Get(3)
	assert.Equal(t, itemCursor(109), p.First)
	assert.Equal(t, itemCursor(80), p.Last)
	assert.True(t, p.HasNewer)
	assert.Equal(t, offset, h.elementOffset(anchor), "no live-follow below a gap")
	assert.False(t, h.ctl.StickToBottom())
	require.NoError(t, h.ctl.Store().CheckAdjacency())
}

func TestJumpToNonResidentCursor(t *testing.T) {
	h := newHarness(t, newMemSource(200), Options{})
	h.start()

	req, err := h.ctl.JumpToCursor(itemCursor(50))
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, KindAround, req.Kind)
	assert.Equal(t, AroundPageIndex, req.Target)
	assert.Equal(t, StateNavigating, h.ctl.State())

	h.run(req)

	assert.Equal(t, []int{AroundPageIndex}, h.ctl.Store().Indices())
	assert.Equal(t, itemPath(50), h.ctl.Highlight())
	assert.False(t, h.ctl.StickToBottom())

	el, ok := h.ctl.Registry().Lookup(itemPath(50))
	require.True(t, ok)
	assert.GreaterOrEqual(t, el.Top, h.vp.top)
	assert.Less(t, el.Top+el.Height, h.vp.top+h.vp.client+1)
	assert.Equal(t, 34, h.vp.top, "target is centred")

	// both edges remain loadable from the jump page
	reqs := h.scrollTo(h.vp.content)
	require.Len(t, reqs, 1)
	assert.Equal(t, AroundPageIndex-1, reqs[0].Target)
}

func TestJumpToCursorIssuesAroundFetch(t *testing.T) {
	src := newMemSource(0)
	h := newHarness(t, src, Options{})
	h.start()

	c := "2024-01-01T00:00:00.000Z:/a/b.txt"
	req, err := h.ctl.JumpToCursor(c)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, c, req.Query.Around)

	parsed, err := cursor.Parse(c)
	require.NoError(t, err)
	assert.Equal(t, "/a/b.txt", parsed.Path)
}

func TestJumpToResidentCursorScrollsWithoutFetch(t *testing.T) {
	src := newMemSource(100)
	h := newHarness(t, src, Options{})
	h.start()

	req, err := h.ctl.JumpToCursor(itemCursor(75))
	require.NoError(t, err)
	assert.Nil(t, req)
	assert.False(t, h.ctl.StickToBottom())
	assert.Equal(t, itemPath(75), h.ctl.Highlight())

	h.layout()
	h.ctl.Settle()

	el, ok := h.ctl.Registry().Lookup(itemPath(75))
	require.True(t, ok)
	assert.GreaterOrEqual(t, el.Top, h.vp.top)
	assert.Len(t, src.calls(), 1)
}

func TestJumpRejectsInvalidCursor(t *testing.T) {
	h := newHarness(t, newMemSource(10), Options{})
	h.start()

	req, err := h.ctl.JumpToCursor("not-a-cursor")
	assert.Nil(t, req)
	assert.ErrorIs(t, err, cursor.ErrInvalid)
}

func TestScrollToItemRequiresResidentItem(t *testing.T) {
	h := newHarness(t, newMemSource(10), Options{})
	h.start()

	assert.ErrorIs(t, h.ctl.ScrollToItem("inbox/missing.md"), ErrNotResident)
	assert.NoError(t, h.ctl.ScrollToItem(itemPath(3)))
	h.ctl.ClearHighlight(itemPath(4))
	assert.Equal(t, itemPath(3), h.ctl.Highlight())
	h.ctl.ClearHighlight(itemPath(3))
	assert.Empty(t, h.ctl.Highlight())
}

func TestStaleEdgeResultDiscardedAfterNavigation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	h := newHarness(t, newMemSource(200), Options{Metrics: m})
	h.start()

	older := h.scrollTo(0)
	require.Len(t, older, 1)
	olderRes := h.ctl.Fetch(context.Background(), older[0])

	jump, err := h.ctl.JumpToCursor(itemCursor(20))
	require.NoError(t, err)
	jumpRes := h.ctl.Fetch(context.Background(), jump)

	assert.False(t, h.ctl.Complete(olderRes))
	assert.Equal(t, []int{0}, h.ctl.Store().Indices(), "stale result must not merge")

	assert.True(t, h.ctl.Complete(jumpRes))
	assert.Equal(t, []int{AroundPageIndex}, h.ctl.Store().Indices())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Stale))
}

func TestStaleEdgeResultDiscardedWhenPageGone(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *PageStore)
	}{
		{"evicted", func(s *PageStore) { s.Delete(1) }},
		{"replaced", func(s *PageStore) {
			s.Set(1, &Page{First: itemCursor(150), Last: itemCursor(141), HasOlder: true, HasNewer: true})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			m := NewMetrics(reg)
			h := newHarness(t, newMemSource(200), Options{Metrics: m})
			h.start()
			reqs := h.scrollTo(0)
			require.Len(t, reqs, 1)
			h.run(reqs[0])
			require.Equal(t, []int{0, 1}, h.ctl.Store().Indices())

			reqs = h.scrollTo(0)
			require.Len(t, reqs, 1)
			require.Equal(t, 1, reqs[0].From)
			res := h.ctl.Fetch(context.Background(), reqs[0])

			tt.mutate(h.ctl.Store())
			before := h.ctl.Store().Indices()
			replaced := h.ctl.Store().Get(1)

			assert.False(t, h.ctl.Complete(res))
			assert.Equal(t, before, h.ctl.Store().Indices())
			assert.Nil(t, h.ctl.Store().Get(2))
			assert.Same(t, replaced, h.ctl.Store().Get(1))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Stale))
			assert.Equal(t, 0, h.ctl.loader.Pending())
		})
	}
}

func TestSupersededJumpIsDiscarded(t *testing.T) {
	h := newHarness(t, newMemSource(200), Options{})
	h.start()

	first, err := h.ctl.JumpToCursor(itemCursor(20))
	require.NoError(t, err)
	second, err := h.ctl.JumpToCursor(itemCursor(120))
	require.NoError(t, err)
	again, err := h.ctl.JumpToCursor(itemCursor(120))
	require.NoError(t, err)
	assert.Nil(t, again, "same jump in flight")

	firstRes := h.ctl.Fetch(context.Background(), first)
	h.run(second)
	assert.False(t, h.ctl.Complete(firstRes))
	assert.Equal(t, itemPath(120), h.ctl.Highlight())
}

func TestEdgeFailureKeepsHasMore(t *testing.T) {
	src := newMemSource(100)
	h := newHarness(t, src, Options{})
	h.start()

	src.failBefore = true
	reqs := h.scrollTo(0)
	require.Len(t, reqs, 1)
	assert.Empty(t, h.run(reqs[0]))

	p := h.ctl.Store().Get(0)
	assert.True(t, p.HasOlder)
	assert.Equal(t, []int{0}, h.ctl.Store().Indices())
	assert.Equal(t, StateIdle, h.ctl.State())
	assert.NoError(t, h.ctl.Err(), "edge failures are not terminal")

	src.failBefore = false
	reqs = h.scrollTo(0)
	require.Len(t, reqs, 1, "next scroll retries")
	h.run(reqs[0])
	assert.Equal(t, []int{0, 1}, h.ctl.Store().Indices())
}

func TestEmptyEdgeResultClearsHasMore(t *testing.T) {
	src := newMemSource(100)
	h := newHarness(t, src, Options{})
	h.start()

	// the daemon can claim more and then return nothing
	h.ctl.Store().Get(0).HasNewer = true
	reqs := h.scrollTo(h.vp.content)
	require.Len(t, reqs, 1)
	assert.Equal(t, KindNewer, reqs[0].Kind)
	assert.Empty(t, h.run(reqs[0]))

	assert.False(t, h.ctl.Store().Get(0).HasNewer)
	assert.Equal(t, []int{0}, h.ctl.Store().Indices())
	assert.Empty(t, h.scrollTo(h.vp.content))
}

func TestLiveFollowWhenStuckToBottom(t *testing.T) {
	src := newMemSource(100)
	h := newHarness(t, src, Options{})
	h.start()
	require.True(t, h.ctl.StickToBottom())

	for i := 100; i < 105; i++ {
		src.add(i)
	}
	req := h.ctl.Refresh()
	require.NotNil(t, req)
	assert.Equal(t, KindNewer, req.Kind)
	assert.Equal(t, -1, req.Target)

	h.run(req)

	assert.Equal(t, []int{-1, 0}, h.ctl.Store().Indices())
	assert.Equal(t, 105, h.vp.content)
	assert.Equal(t, 85, h.vp.top, "scrollTop follows to the new bottom")
	assert.True(t, h.ctl.StickToBottom())
	items := h.ctl.Items()
	assert.Equal(t, itemPath(104), items[len(items)-1].Path)
}

func TestLiveFollowFillsLiveEdgePage(t *testing.T) {
	src := newMemSource(100)
	h := newHarness(t, src, Options{MaxPages: 3})
	h.start()

	for i := 100; i < 108; i++ {
		src.add(i)
		h.run(h.ctl.Refresh())

		items := h.ctl.Items()
		require.Equal(t, itemPath(i), items[len(items)-1].Path, "arrival %d", i)
		assert.Equal(t, h.vp.content-h.vp.client, h.vp.top, "arrival %d", i)
		assert.True(t, h.ctl.StickToBottom())
	}

	// the full initial page opens one new page that later arrivals fill
	assert.Equal(t, []int{-1, 0}, h.ctl.Store().Indices())
	newest := h.ctl.Store().Get(-1)
	assert.Len(t, newest.Items, 8)
	assert.Equal(t, itemCursor(107), newest.First)
	assert.Equal(t, itemCursor(100), newest.Last)
	assert.NoError(t, h.ctl.Store().CheckAdjacency())
}

func TestLiveFollowKeepsArrivalsWhenEvicting(t *testing.T) {
	src := newMemSource(100)
	h := newHarness(t, src, Options{PageSize: 3, MaxPages: 3})
	h.start()

	for i := 100; i < 110; i++ {
		src.add(i)
		h.run(h.ctl.Refresh())

		items := h.ctl.Items()
		require.Equal(t, itemPath(i), items[len(items)-1].Path, "arrival %d", i)
		newest, _ := h.ctl.Store().Newest()
		assert.False(t, newest.HasNewer, "arrival %d", i)
		assert.True(t, h.ctl.StickToBottom(), "arrival %d", i)
		assert.LessOrEqual(t, h.ctl.Store().Len(), 3)
	}

	assert.Equal(t, []int{-4, -3, -2}, h.ctl.Store().Indices())
	assert.Equal(t, h.vp.content-h.vp.client, h.vp.top)
	oldest, _ := h.ctl.Store().Oldest()
	assert.True(t, oldest.HasOlder)
	assert.NoError(t, h.ctl.Store().CheckAdjacency())
}

func TestEvictedArrivalStaysReachable(t *testing.T) {
	src := newMemSource(200)
	h := newHarness(t, src, Options{PageSize: 10, MaxPages: 3})
	h.start()
	for i := 0; i < 2; i++ {
		reqs := h.scrollTo(0)
		require.Len(t, reqs, 1)
		h.run(reqs[0])
	}
	require.Equal(t, []int{0, 1, 2}, h.ctl.Store().Indices())
	require.False(t, h.ctl.StickToBottom())

	// the view is two pages up, so the arrival is the farthest page
	src.add(200)
	h.run(h.ctl.Refresh())

	assert.Equal(t, []int{0, 1, 2}, h.ctl.Store().Indices())
	assert.True(t, h.ctl.Store().Get(0).HasNewer)
	assert.Nil(t, h.ctl.Refresh(), "newer pages are loaded by scrolling")

	reqs := h.scrollTo(h.vp.content)
	require.Len(t, reqs, 1)
	assert.Equal(t, KindNewer, reqs[0].Kind)
	assert.Equal(t, -1, reqs[0].Target)

	h.run(reqs[0])
	items := h.ctl.Items()
	assert.Equal(t, itemPath(200), items[len(items)-1].Path)
}

func TestLiveUpdateHoldsPositionWhenScrolledUp(t *testing.T) {
	src := newMemSource(100)
	h := newHarness(t, src, Options{})
	h.start()

	assert.Empty(t, h.scrollTo(30))
	require.False(t, h.ctl.StickToBottom())

	src.add(100)
	h.run(h.ctl.Refresh())

	assert.Equal(t, 93, h.vp.content)
	assert.Equal(t, 30, h.vp.top)
	assert.False(t, h.ctl.StickToBottom())
}

func TestRefreshWaitsWhenNewerPagesExist(t *testing.T) {
	h := newHarness(t, newMemSource(200), Options{})
	h.start()

	jump, err := h.ctl.JumpToCursor(itemCursor(50))
	require.NoError(t, err)
	h.run(jump)

	assert.Nil(t, h.ctl.Refresh())
}

func TestResizeKeepsBottomPinned(t *testing.T) {
	h := newHarness(t, newMemSource(100), Options{})
	h.start()

	h.vp.client = 10
	h.ctl.OnResize()
	h.layout()
	h.ctl.Settle()

	assert.Equal(t, 80, h.vp.top)
	assert.True(t, h.ctl.StickToBottom())
}

func TestScrollToTopAndBottom(t *testing.T) {
	h := newHarness(t, newMemSource(100), Options{})
	h.start()

	reqs := h.ctl.ScrollToTop()
	assert.Equal(t, 0, h.vp.top)
	require.Len(t, reqs, 1)
	assert.Equal(t, KindOlder, reqs[0].Kind)
	assert.False(t, h.ctl.StickToBottom())

	h.ctl.ScrollToBottom()
	h.layout()
	h.ctl.Settle()
	assert.Equal(t, 70, h.vp.top)
	assert.True(t, h.ctl.StickToBottom())
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{StickThreshold: 50}.withDefaults()
	assert.Equal(t, 30, o.PageSize)
	assert.Equal(t, 5, o.MaxPages)
	assert.Equal(t, 8, o.LoadThreshold)
	assert.Equal(t, 8, o.StickThreshold, "stick threshold never exceeds the load threshold")
	assert.Equal(t, DefaultItemHeight, o.ItemHeight)
	assert.NotNil(t, o.Now)
}
