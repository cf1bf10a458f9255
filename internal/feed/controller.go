package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nickpending/inbox/internal/cursor"
)

// State is the controller's loading state
type State int

const (
	StateInitialLoading State = iota
	StateIdle
	StateLoadingEdge
	StateNavigating
	StateError
)

func (s State) String() string {
	switch s {
	case StateInitialLoading:
		return "initial-loading"
	case StateIdle:
		return "idle"
	case StateLoadingEdge:
		return "loading-edge"
	case StateNavigating:
		return "navigating"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Options tunes the controller. Zero fields take the defaults below.
type Options struct {
	PageSize       int // items per fetch (30)
	MaxPages       int // resident page budget (5)
	LoadThreshold  int // rows from an edge that trigger a load (8)
	StickThreshold int // rows from the bottom that count as "at bottom" (2)
	ItemHeight     int // height estimate before any measurement
	Logger         *zerolog.Logger
	Metrics        *Metrics
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = 30
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 5
	}
	if o.LoadThreshold <= 0 {
		o.LoadThreshold = 8
	}
	if o.StickThreshold <= 0 {
		o.StickThreshold = 2
	}
	if o.StickThreshold > o.LoadThreshold {
		o.StickThreshold = o.LoadThreshold
	}
	if o.ItemHeight <= 0 {
		o.ItemHeight = DefaultItemHeight
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Controller orchestrates the feed window: it reacts to scroll, resize and
// navigation, issues fetches through its Loader and keeps the viewport
// stable across the resulting layout changes.
//
// Every call that returns true (Complete) or changes what should be
// rendered must be followed by a relayout of the registry and a call to
// Settle before the frame is painted.
type Controller struct {
	opts    Options
	log     zerolog.Logger
	src     Source
	vp      Viewport
	store   *PageStore
	heights *HeightEstimator
	reg     *Registry
	loader  *Loader

	loaded    bool
	err       error
	stick     bool
	anchor    Anchor
	target    string // item to scroll to at next Settle
	toBottom  bool   // scroll to bottom at next Settle
	resized   bool
	highlight string

	lastTop      int
	lastHeight   int
	lastAtBottom bool
}

// NewController creates a controller reading from src and scrolling vp
func NewController(src Source, vp Viewport, opts Options) *Controller {
	opts = opts.withDefaults()
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "feed").Logger()
	}
	store := NewPageStore()
	loader := NewLoader(store, opts.PageSize, opts.Metrics)
	loader.now = opts.Now
	return &Controller{
		opts:    opts,
		log:     log,
		src:     src,
		vp:      vp,
		store:   store,
		heights: NewHeightEstimator(opts.ItemHeight),
		reg:     NewRegistry(),
		loader:  loader,
	}
}

// Fetch executes req against the source. It is safe to call from any
// goroutine; hand the result back through Complete on the UI goroutine.
func (c *Controller) Fetch(ctx context.Context, req *Request) Result {
	resp, err := c.src.Fetch(ctx, req.Query)
	return Result{Request: req, Response: resp, Err: err}
}

// Start issues the initial load of the newest page
func (c *Controller) Start() *Request {
	c.log.Debug().Msg("initial load")
	return c.loader.Newest()
}

// Reload restarts from the newest page, clearing a previous error. The
// resident set is kept until the new page arrives, and a failed reload
// over resident pages leaves them in place.
func (c *Controller) Reload() *Request {
	c.err = nil
	c.loaded = c.store.Len() > 0
	return c.loader.Newest()
}

// State reports the controller's loading state
func (c *Controller) State() State {
	switch {
	case c.err != nil:
		return StateError
	case c.loader.Navigating() && !c.loaded:
		return StateInitialLoading
	case c.loader.Navigating():
		return StateNavigating
	case c.loader.Pending() > 0:
		return StateLoadingEdge
	case !c.loaded:
		return StateInitialLoading
	}
	return StateIdle
}

// Err returns the initial-load error, if any
func (c *Controller) Err() error {
	return c.err
}

// StickToBottom reports whether the view is following the newest items
func (c *Controller) StickToBottom() bool {
	return c.stick
}

// Highlight returns the path of the transiently highlighted item
func (c *Controller) Highlight() string {
	return c.highlight
}

// ClearHighlight removes the highlight if it is still on path
func (c *Controller) ClearHighlight(path string) {
	if c.highlight == path {
		c.highlight = ""
	}
}

// Entries returns the resident items, oldest first, with their pages
func (c *Controller) Entries() []Entry {
	return c.store.Entries()
}

// Items returns the resident items, oldest first
func (c *Controller) Items() []Item {
	return c.store.Items()
}

// Store exposes the resident pages for read access
func (c *Controller) Store() *PageStore {
	return c.store
}

// Registry is where the renderer attaches laid-out elements
func (c *Controller) Registry() *Registry {
	return c.reg
}

// Heights exposes the height estimator
func (c *Controller) Heights() *HeightEstimator {
	return c.heights
}

// Complete merges a finished fetch. It returns true when the store (or a
// page's flags) changed and the caller must relayout and Settle.
func (c *Controller) Complete(res Result) bool {
	req := res.Request

	// Edge loads are bracketed by an anchor taken against the current
	// layout; the centre page is computed before the new page shifts it.
	var anchor Anchor
	var center int
	edge := !req.Kind.navigation()
	if edge && res.Err == nil {
		anchor = CaptureAnchor(c.store, c.reg, c.vp)
		center = c.viewportPageIndex()
	}

	outcome, page := c.loader.Complete(res)
	switch outcome {
	case OutcomeStale:
		c.log.Debug().Str("kind", req.Kind.String()).Uint64("gen", req.Gen).Msg("discarded stale result")
		return false

	case OutcomeFailed:
		switch {
		case req.Kind == KindNewest && !c.loaded:
			c.err = fmt.Errorf("failed to load inbox: %w", res.Err)
			c.log.Error().Err(res.Err).Msg("initial load failed")
		case req.Kind == KindNewest:
			c.log.Warn().Err(res.Err).Int("pages", c.store.Len()).Msg("reload failed")
		case req.Kind == KindAround:
			c.log.Warn().Err(res.Err).Str("cursor", req.Cursor).Msg("jump failed")
		default:
			c.log.Warn().Err(res.Err).Str("kind", req.Kind.String()).Int("from", req.From).Msg("load failed")
		}
		return false

	case OutcomeExhausted:
		c.log.Debug().Str("kind", req.Kind.String()).Int("from", req.From).Msg("edge exhausted")
		return true
	}

	switch req.Kind {
	case KindNewest:
		c.heights.Reset()
		c.loaded = true
		c.stick = true
		c.toBottom = true
		c.target = ""
		c.anchor = Anchor{}
		c.highlight = ""
		c.log.Info().Int("items", len(page.Items)).Msg("loaded newest page")

	case KindAround:
		c.heights.Reset()
		c.loaded = true
		c.stick = false
		c.toBottom = false
		c.anchor = Anchor{}
		c.target = ""
		if res.Response != nil {
			if t := res.Response.TargetIndex; t != nil && *t >= 0 && *t < len(page.Items) {
				c.target = page.Items[*t].Path
				c.highlight = c.target
			}
		}
		c.log.Info().Str("cursor", req.Cursor).Str("target", c.target).Msg("jumped")

	default:
		c.anchor = anchor
		if req.Kind == KindNewer && c.stick && !page.HasNewer {
			// following the live edge: the arrival is the new bottom
			center = page.Index
		}
		evicted := Evict(c.store, center, c.opts.MaxPages)
		c.reopenEdges(evicted)
		c.opts.Metrics.evicted(len(evicted))
		c.opts.Metrics.resident(c.store.Len())
		c.log.Debug().
			Str("kind", req.Kind.String()).
			Int("page", page.Index).
			Int("items", len(page.Items)).
			Int("center", center).
			Ints("evicted", evicted).
			Msg("merged page")
	}
	return true
}

// reopenEdges marks the resident window's ends as having more items when
// eviction dropped a page beyond them, so scrolling there loads it again.
func (c *Controller) reopenEdges(evicted []int) {
	if len(evicted) == 0 {
		return
	}
	newest, ok := c.store.Newest()
	if !ok {
		return
	}
	oldest, _ := c.store.Oldest()
	for _, i := range evicted {
		if i < newest.Index {
			newest.HasNewer = true
		}
		if i > oldest.Index {
			oldest.HasOlder = true
		}
	}
}

// viewportPageIndex walks pages from the bottom of the content, summing
// estimated heights until passing the middle of the viewport.
func (c *Controller) viewportPageIndex() int {
	idx := c.store.Indices()
	if len(idx) == 0 {
		return 0
	}
	target := float64(distanceFromBottom(c.vp)) + float64(c.vp.ClientHeight())/2
	var acc float64
	for _, i := range idx {
		acc += c.heights.EstimatePageHeight(c.store.Get(i))
		if acc > target {
			return i
		}
	}
	return idx[len(idx)-1]
}

// Settle runs after the renderer has laid out the current items and
// attached them to the registry. It records heights, restores the anchor,
// applies pending scroll targets and live-follow, and treats any resulting
// scroll movement as a scroll event.
func (c *Controller) Settle() []*Request {
	for _, p := range c.reg.Paths() {
		el, _ := c.reg.Lookup(p)
		c.heights.Record(p, el.Height)
	}

	if !c.anchor.Empty() {
		if !c.anchor.Restore(c.reg, c.vp) {
			c.log.Debug().Str("path", c.anchor.Path).Msg("anchor no longer rendered")
		}
		c.anchor = Anchor{}
	}

	switch {
	case c.target != "":
		if el, ok := c.reg.Lookup(c.target); ok {
			c.scrollIntoView(el)
			c.stick = false
		}
		c.target = ""
	case c.toBottom:
		scrollToBottom(c.vp)
		c.toBottom = false
	default:
		// layout changes follow only while the live edge is resident
		changed := c.vp.ScrollHeight() != c.lastHeight && c.atLiveEdge()
		if (changed || c.resized) && (c.stick || c.lastAtBottom) {
			scrollToBottom(c.vp)
		}
	}
	c.resized = false

	if c.vp.ScrollTop() != c.lastTop {
		return c.OnScroll()
	}
	c.observe()
	return nil
}

// atLiveEdge reports whether the newest resident page is the newest page
// the source has
func (c *Controller) atLiveEdge() bool {
	p, ok := c.store.Newest()
	return ok && !p.HasNewer
}

func (c *Controller) scrollIntoView(el Element) {
	top := el.Top - (c.vp.ClientHeight()-el.Height)/2
	if top < 0 {
		top = 0
	}
	c.vp.SetScrollTop(top)
}

func (c *Controller) observe() {
	c.lastTop = c.vp.ScrollTop()
	c.lastHeight = c.vp.ScrollHeight()
	c.lastAtBottom = distanceFromBottom(c.vp) <= c.opts.StickThreshold
}

// OnScroll handles a scroll event: it recomputes stick-to-bottom and
// triggers edge loads when the viewport is near the top or bottom.
func (c *Controller) OnScroll() []*Request {
	defer c.observe()

	dist := distanceFromBottom(c.vp)
	c.stick = dist <= c.opts.StickThreshold
	if c.err != nil || !c.loaded {
		return nil
	}

	var reqs []*Request
	if c.vp.ScrollTop() <= c.opts.LoadThreshold {
		if p, ok := c.store.Oldest(); ok && p.HasOlder {
			if r := c.loader.Older(p.Index); r != nil {
				reqs = append(reqs, r)
			}
		}
	}
	if dist <= c.opts.LoadThreshold {
		if p, ok := c.store.Newest(); ok && p.HasNewer {
			if r := c.loader.Newer(p.Index, false); r != nil {
				reqs = append(reqs, r)
			}
		}
	}
	return reqs
}

// OnResize records that the scroll container changed size; the next Settle
// keeps a following view pinned to the bottom.
func (c *Controller) OnResize() {
	c.resized = true
}

// ScrollToItem scrolls a resident item into view and highlights it.
// Explicit navigation turns off stick-to-bottom.
func (c *Controller) ScrollToItem(path string) error {
	if _, ok := c.store.PageOf(path); !ok {
		return fmt.Errorf("%w: %s", ErrNotResident, path)
	}
	c.target = path
	c.toBottom = false
	c.highlight = path
	c.stick = false
	return nil
}

// JumpToCursor scrolls to the item named by cursor s, loading the page
// around it when it is not resident. It returns the fetch to run, if any.
func (c *Controller) JumpToCursor(s string) (*Request, error) {
	path, err := cursor.PathOf(s)
	if err != nil {
		return nil, err
	}
	if _, ok := c.store.PageOf(path); ok {
		return nil, c.ScrollToItem(path)
	}
	c.stick = false
	c.log.Debug().Str("cursor", s).Msg("jump to non-resident item")
	return c.loader.Around(s), nil
}

// ScrollToBottom moves to the newest resident item and resumes following
func (c *Controller) ScrollToBottom() {
	c.toBottom = true
	c.target = ""
	c.stick = true
}

// ScrollToTop moves to the oldest resident item
func (c *Controller) ScrollToTop() []*Request {
	c.stick = false
	c.vp.SetScrollTop(0)
	return c.OnScroll()
}

// Refresh reacts to new items arriving upstream. When the live edge is
// resident it polls for items after it; otherwise the newest resident page
// already reports HasNewer and the next bottom scroll picks them up.
func (c *Controller) Refresh() *Request {
	if c.err != nil || !c.loaded {
		return nil
	}
	p, ok := c.store.Newest()
	if !ok || p.First == "" {
		return c.loader.Newest()
	}
	if p.HasNewer {
		return nil
	}
	return c.loader.Newer(p.Index, true)
}
