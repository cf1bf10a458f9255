package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/nickpending/inbox/internal/feed"
)

// scrollView adapts a bubbles viewport to feed.Viewport. Rows are lines.
type scrollView struct {
	vp *viewport.Model
}

func (s scrollView) ScrollTop() int { return s.vp.YOffset }
func (s scrollView) SetScrollTop(top int) { s.vp.SetYOffset(top) }
func (s scrollView) ScrollHeight() int { return s.vp.TotalLineCount() }
func (s scrollView) ClientHeight() int { return s.vp.Height }

// feedPane owns the scroll container and the controller driving it. Model
// holds it by pointer so that every copy bubbletea makes of the model
// scrolls the same viewport.
type feedPane struct {
	vp       viewport.Model
	ctl      *feed.Controller
	theme    StyleTheme
	previews *previewRenderer
	now      func() time.Time

	selected      string // path of the selected item
	lastHighlight string
}

func newFeedPane(src feed.Source, opts feed.Options, theme StyleTheme) *feedPane {
	p := &feedPane{
		vp:    viewport.New(80, 20),
		theme: theme,
		now:   time.Now,
	}
	p.ctl = feed.NewController(src, scrollView{vp: &p.vp}, opts)
	p.previews = newPreviewRenderer(p.previewWidth(), theme)
	return p
}

// SetSize resizes the scroll container and tells the controller
func (p *feedPane) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	p.vp.Width = width
	p.vp.Height = height
	p.previews.reset(p.previewWidth(), p.theme)
	p.ctl.OnResize()
}

// SetTheme switches styles; previews are re-rendered on the next relayout
func (p *feedPane) SetTheme(theme StyleTheme) {
	p.theme = theme
	p.previews.reset(p.previewWidth(), theme)
}

func (p *feedPane) previewWidth() int {
	return max(p.vp.Width-6, 10)
}

// relayout renders every resident item into the viewport and attaches its
// position to the controller's registry
func (p *feedPane) relayout() {
	reg := p.ctl.Registry()
	reg.Clear()

	entries := p.ctl.Entries()
	blocks := make([]string, 0, len(entries))
	row := 0
	for _, e := range entries {
		block := p.renderItem(e.Item)
		h := strings.Count(block, "\n") + 1
		reg.Attach(feed.Element{Path: e.Item.Path, Page: e.Page, Top: row, Height: h})
		blocks = append(blocks, block)
		row += h
	}
	p.vp.SetContent(strings.Join(blocks, "\n"))
}

// settle lays out the current items, lets the controller settle against
// that layout and keeps the selection on a rendered item. It returns the
// loads the resulting scroll position calls for.
func (p *feedPane) settle() []*feed.Request {
	p.relayout()
	reqs := p.ctl.Settle()

	before := p.selected
	if h := p.ctl.Highlight(); h != "" && h != p.lastHighlight {
		p.selected = h
	}
	p.lastHighlight = p.ctl.Highlight()
	if _, ok := p.ctl.Registry().Lookup(p.selected); !ok {
		p.selected = p.middleItem()
	}
	if p.selected != before {
		p.relayout()
	}
	return reqs
}

// middleItem returns the rendered item covering the middle of the viewport
func (p *feedPane) middleItem() string {
	mid := p.vp.YOffset + p.vp.Height/2
	var last string
	for _, e := range p.ctl.Entries() {
		el, ok := p.ctl.Registry().Lookup(e.Item.Path)
		if !ok {
			continue
		}
		last = el.Path
		if el.Top+el.Height > mid {
			return el.Path
		}
	}
	return last
}

// Selected returns the selected item, if it is resident
func (p *feedPane) Selected() (feed.Item, bool) {
	for _, it := range p.ctl.Items() {
		if it.Path == p.selected {
			return it, true
		}
	}
	return feed.Item{}, false
}

// move shifts the selection by delta items and scrolls it into view
func (p *feedPane) move(delta int) {
	items := p.ctl.Items()
	if len(items) == 0 {
		return
	}
	idx := -1
	for i, it := range items {
		if it.Path == p.selected {
			idx = i
			break
		}
	}
	if idx == -1 {
		p.selected = p.middleItem()
		return
	}
	idx = min(max(idx+delta, 0), len(items)-1)
	p.selected = items[idx].Path
	p.reveal(p.selected)
}

// reveal scrolls the least distance that shows the whole item
func (p *feedPane) reveal(path string) {
	el, ok := p.ctl.Registry().Lookup(path)
	if !ok {
		return
	}
	top := p.vp.YOffset
	switch {
	case el.Top < top:
		p.vp.SetYOffset(el.Top)
	case el.Top+el.Height > top+p.vp.Height:
		p.vp.SetYOffset(el.Top + el.Height - p.vp.Height)
	}
}

// selectFirst and selectLast select the oldest and newest resident items
func (p *feedPane) selectFirst() {
	if items := p.ctl.Items(); len(items) > 0 {
		p.selected = items[0].Path
	}
}

func (p *feedPane) selectLast() {
	if items := p.ctl.Items(); len(items) > 0 {
		p.selected = items[len(items)-1].Path
	}
}

// renderItem renders one item block: a title line, up to previewLines of
// preview, and a blank separator line
func (p *feedPane) renderItem(it feed.Item) string {
	theme := p.theme
	width := max(p.vp.Width, 20)

	selector := "  "
	nameStyle := theme.TextStyle().Bold(true)
	if it.Path == p.selected {
		selector = theme.SelectedStyle().Render("▸ ")
		nameStyle = theme.SelectedStyle()
	}

	marker := theme.MutedStyle().Render("●")
	switch {
	case it.IsPinned:
		marker = theme.PinStyle().Render("★")
	case it.IsFolder:
		marker = theme.TagStyle().Render("▪")
	}

	var meta []string
	if created := it.Created(); !created.IsZero() {
		meta = append(meta, formatAge(p.now().Sub(created)))
	}
	if it.Size != nil && !it.IsFolder {
		meta = append(meta, formatSize(*it.Size))
	}
	metaText := theme.MutedStyle().Render(strings.Join(meta, " · "))

	name := truncate(it.Name, max(width-lipgloss.Width(metaText)-8, 8))
	title := fmt.Sprintf("%s%s %s  %s", selector, marker, nameStyle.Render(name), metaText)
	if it.Path == p.ctl.Highlight() {
		title = theme.HighlightStyle().Width(width).Render(title)
	}

	clip := lipgloss.NewStyle().MaxWidth(width)
	lines := []string{clip.Render(title)}
	for _, l := range p.previews.Lines(it) {
		lines = append(lines, clip.Render("    "+l))
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// View renders the visible band of the feed, or the state that replaces it
func (p *feedPane) View() string {
	theme := p.theme
	switch p.ctl.State() {
	case feed.StateError:
		return lipgloss.NewStyle().Foreground(theme.Red).Bold(true).
			Render(fmt.Sprintf("Error: %v", p.ctl.Err())) + "\n\n" +
			theme.MutedStyle().Render("Press R to retry.")
	case feed.StateInitialLoading:
		if len(p.ctl.Items()) == 0 {
			return theme.SelectedStyle().Render("Loading inbox...")
		}
	}
	if p.ctl.Store().Len() > 0 && len(p.ctl.Items()) == 0 {
		return theme.MutedStyle().Italic(true).Render("Inbox is empty.")
	}
	return p.vp.View()
}

// stateString summarises the window for the header
func (p *feedPane) stateString() string {
	states := []string{"SCROLLED"}
	if p.ctl.StickToBottom() {
		states[0] = "FOLLOWING"
	}
	states = append(states, fmt.Sprintf("Loaded: %d", len(p.ctl.Items())))
	states = append(states, fmt.Sprintf("Pages: %d", p.ctl.Store().Len()))
	return strings.Join(states, " | ")
}
