package feed

// Viewport is the scroll container the feed is rendered into. Units are
// rows; ScrollTop is the first visible row of the content.
type Viewport interface {
	ScrollTop() int
	SetScrollTop(top int)
	ScrollHeight() int
	ClientHeight() int
}

// distanceFromBottom is how many content rows lie below the visible band
func distanceFromBottom(vp Viewport) int {
	d := vp.ScrollHeight() - vp.ScrollTop() - vp.ClientHeight()
	if d < 0 {
		return 0
	}
	return d
}

// scrollToBottom moves the viewport to the end of the content
func scrollToBottom(vp Viewport) {
	top := vp.ScrollHeight() - vp.ClientHeight()
	if top < 0 {
		top = 0
	}
	vp.SetScrollTop(top)
}

// Anchor is the item used as a fixed visual reference across a mutation.
// The zero value is an empty anchor whose Restore does nothing.
type Anchor struct {
	Path   string
	Offset int // element top minus scrollTop at capture time
}

// Empty reports whether capture found nothing to anchor on
func (a Anchor) Empty() bool {
	return a.Path == ""
}

// CaptureAnchor records the first rendered item, in display order, whose
// top lies inside the visible band.
func CaptureAnchor(s *PageStore, reg *Registry, vp Viewport) Anchor {
	top := vp.ScrollTop()
	bottom := top + vp.ClientHeight()
	for _, e := range s.Entries() {
		el, ok := reg.Lookup(e.Item.Path)
		if !ok {
			continue
		}
		if el.Top >= top && el.Top < bottom {
			return Anchor{Path: el.Path, Offset: el.Top - top}
		}
	}
	return Anchor{}
}

// Restore scrolls so the anchored element sits at the offset it had when
// captured. It returns false when there is nothing to restore, including
// when the anchored item is no longer rendered.
func (a Anchor) Restore(reg *Registry, vp Viewport) bool {
	if a.Empty() {
		return false
	}
	el, ok := reg.Lookup(a.Path)
	if !ok {
		return false
	}
	delta := (el.Top - vp.ScrollTop()) - a.Offset
	if delta == 0 {
		return true
	}
	vp.SetScrollTop(vp.ScrollTop() + delta)
	return true
}
