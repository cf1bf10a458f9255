package feed

import (
	"time"
)

// AroundPageIndex is the reserved index holding a jump-to-cursor result.
// A jump replaces the whole resident set, so the index only has to stay
// clear of the indices edge loads walk through from it.
const AroundPageIndex = 1 << 20

// Kind identifies one of the four page fetches
type Kind int

const (
	KindNewest Kind = iota
	KindOlder
	KindNewer
	KindAround
)

func (k Kind) String() string {
	switch k {
	case KindNewest:
		return "newest"
	case KindOlder:
		return "older"
	case KindNewer:
		return "newer"
	case KindAround:
		return "around"
	}
	return "unknown"
}

// navigation reports whether results of this kind replace the resident set
func (k Kind) navigation() bool {
	return k == KindNewest || k == KindAround
}

// Request is an issued page fetch. Gen is unique and increasing; Epoch is
// the navigation epoch at issue time.
type Request struct {
	Kind   Kind
	Gen    uint64
	Epoch  uint64
	From   int // referencing page for edge loads
	Target int // index the result will occupy
	Cursor string
	Query  Query
}

// Result carries a completed fetch back to the controller
type Result struct {
	Request  *Request
	Response *Response
	Err      error
}

// Outcome is what merging a result did to the store
type Outcome int

const (
	// OutcomeApplied means a page was inserted or extended, or the store
	// replaced
	OutcomeApplied Outcome = iota
	// OutcomeExhausted means an edge fetch succeeded with no items and the
	// referencing page's HasOlder/HasNewer flag was cleared
	OutcomeExhausted
	// OutcomeStale means the result no longer applies and was dropped
	OutcomeStale
	// OutcomeFailed means the fetch returned an error
	OutcomeFailed
)

// Loader issues page fetches against a PageStore and merges their results.
// At most one request per target index is in flight; navigations (newest,
// around) bump the epoch, which invalidates every earlier request.
type Loader struct {
	store    *PageStore
	pageSize int
	metrics  *Metrics
	now      func() time.Time

	gen   uint64
	epoch uint64
	edges map[int]uint64 // target index → in-flight gen
	nav   *Request
}

// NewLoader creates a loader merging into store
func NewLoader(store *PageStore, pageSize int, metrics *Metrics) *Loader {
	return &Loader{
		store:    store,
		pageSize: pageSize,
		metrics:  metrics,
		now:      time.Now,
		edges:    make(map[int]uint64),
	}
}

// Newest issues a fetch of the newest page. It is dropped if a newest fetch
// is already in flight.
func (l *Loader) Newest() *Request {
	if l.nav != nil && l.nav.Kind == KindNewest {
		l.metrics.dropped()
		return nil
	}
	return l.navigate(KindNewest, 0, "", Query{Limit: l.pageSize})
}

// Around issues a fetch of the page centred on cursor c. A pending jump to
// the same cursor drops this one; a jump elsewhere supersedes it.
func (l *Loader) Around(c string) *Request {
	if l.nav != nil && l.nav.Kind == KindAround && l.nav.Cursor == c {
		l.metrics.dropped()
		return nil
	}
	return l.navigate(KindAround, AroundPageIndex, c, Query{Limit: l.pageSize, Around: c})
}

func (l *Loader) navigate(k Kind, target int, c string, q Query) *Request {
	l.epoch++
	l.edges = make(map[int]uint64)
	req := l.issue(k, target, target, c, q)
	l.nav = req
	return req
}

// Older issues a fetch of the items before page from. It returns nil when
// the page has no older items, a navigation is pending, or the target is
// already resident or in flight.
func (l *Loader) Older(from int) *Request {
	p := l.store.Get(from)
	if l.nav != nil || p == nil || !p.HasOlder || p.Last == "" {
		return nil
	}
	return l.edge(KindOlder, from, from+1, p.Last, Query{Limit: l.pageSize, Before: p.Last})
}

// Newer issues a fetch of the items after page from. With force set the
// page's HasNewer flag is ignored; live updates use this to poll past the
// live edge.
func (l *Loader) Newer(from int, force bool) *Request {
	p := l.store.Get(from)
	if l.nav != nil || p == nil || p.First == "" || (!p.HasNewer && !force) {
		return nil
	}
	return l.edge(KindNewer, from, from-1, p.First, Query{Limit: l.pageSize, After: p.First})
}

func (l *Loader) edge(k Kind, from, target int, c string, q Query) *Request {
	if l.store.Get(target) != nil {
		return nil
	}
	if _, busy := l.edges[target]; busy {
		l.metrics.dropped()
		return nil
	}
	req := l.issue(k, from, target, c, q)
	l.edges[target] = req.Gen
	return req
}

func (l *Loader) issue(k Kind, from, target int, c string, q Query) *Request {
	l.gen++
	l.metrics.fetch(k)
	return &Request{
		Kind:   k,
		Gen:    l.gen,
		Epoch:  l.epoch,
		From:   from,
		Target: target,
		Cursor: c,
		Query:  q,
	}
}

// Navigating reports whether a newest/around fetch is in flight
func (l *Loader) Navigating() bool {
	return l.nav != nil
}

// Pending returns the number of edge fetches in flight
func (l *Loader) Pending() int {
	return len(l.edges)
}

// current reports whether req is the live request for its slot
func (l *Loader) current(req *Request) bool {
	if req.Kind.navigation() {
		return l.nav != nil && l.nav.Gen == req.Gen
	}
	return req.Epoch == l.epoch && l.edges[req.Target] == req.Gen
}

func (l *Loader) release(req *Request) {
	if req.Kind.navigation() {
		l.nav = nil
		return
	}
	delete(l.edges, req.Target)
}

// Complete merges a finished fetch into the store. Failed and stale results
// never touch the store.
func (l *Loader) Complete(res Result) (Outcome, *Page) {
	req := res.Request
	if !l.current(req) {
		l.metrics.stale()
		return OutcomeStale, nil
	}
	l.release(req)

	if res.Err != nil {
		l.metrics.failure(req.Kind)
		return OutcomeFailed, nil
	}
	resp := res.Response
	if resp == nil {
		resp = &Response{}
	}

	switch req.Kind {
	case KindNewest, KindAround:
		p := newPage(req.Target, resp, l.now())
		l.store.Replace(req.Target, p)
		l.metrics.resident(l.store.Len())
		return OutcomeApplied, p
	}

	from := l.store.Get(req.From)
	if from == nil || l.store.Get(req.Target) != nil {
		l.metrics.stale()
		return OutcomeStale, nil
	}
	if (req.Kind == KindOlder && from.Last != req.Cursor) ||
		(req.Kind == KindNewer && from.First != req.Cursor) {
		l.metrics.stale()
		return OutcomeStale, nil
	}

	if len(resp.Items) == 0 {
		if req.Kind == KindOlder {
			from.HasOlder = false
		} else {
			from.HasNewer = false
		}
		return OutcomeExhausted, nil
	}

	p := newPage(req.Target, resp, l.now())
	if req.Kind == KindNewer && !from.HasNewer && len(from.Items)+len(p.Items) <= l.pageSize {
		// live arrivals fill the live-edge page before opening a new one
		from.Items = append(append([]Item(nil), p.Items...), from.Items...)
		from.First = p.First
		from.HasNewer = p.HasNewer
		from.LoadedAt = p.LoadedAt
		return OutcomeApplied, from
	}
	l.store.Set(req.Target, p)
	l.metrics.resident(l.store.Len())
	return OutcomeApplied, p
}
