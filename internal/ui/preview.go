package ui

import (
	"path"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/nickpending/inbox/internal/feed"
)

// previewLines caps the preview shown under each feed item
const previewLines = 3

// previewRenderer turns item text previews into styled lines, rendering
// markdown through glamour. Results are cached per item version until the
// width or theme changes.
type previewRenderer struct {
	width int
	theme StyleTheme
	md    *glamour.TermRenderer
	cache map[string][]string
}

func newPreviewRenderer(width int, theme StyleTheme) *previewRenderer {
	p := &previewRenderer{}
	p.reset(width, theme)
	return p
}

// reset drops cached output when the layout parameters changed
func (p *previewRenderer) reset(width int, theme StyleTheme) {
	if width == p.width && theme.Name == p.theme.Name && p.cache != nil {
		return
	}
	p.width = width
	p.theme = theme
	p.cache = make(map[string][]string)
	p.md = nil
	if width <= 0 {
		return
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStyles(theme.ToGlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		p.md = md
	}
}

// isMarkdown reports whether an item's preview should go through glamour
func isMarkdown(it feed.Item) bool {
	if it.MimeType != nil && *it.MimeType == "text/markdown" {
		return true
	}
	switch strings.ToLower(path.Ext(it.Path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// Lines returns at most previewLines non-blank lines of the item's preview
func (p *previewRenderer) Lines(it feed.Item) []string {
	if it.TextPreview == nil || strings.TrimSpace(*it.TextPreview) == "" {
		return nil
	}
	key := it.Path + "\x00" + it.ModifiedAt
	if lines, ok := p.cache[key]; ok {
		return lines
	}

	var out []string
	for _, line := range strings.Split(p.Render(it), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
		if len(out) == previewLines {
			break
		}
	}
	p.cache[key] = out
	return out
}

// Render returns the item's whole preview, styled
func (p *previewRenderer) Render(it feed.Item) string {
	if it.TextPreview == nil {
		return ""
	}
	text := *it.TextPreview
	if p.md != nil && isMarkdown(it) {
		if out, err := p.md.Render(text); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	src := strings.Split(text, "\n")
	lines := make([]string, 0, len(src))
	for _, line := range src {
		lines = append(lines, wrapText(line, p.width))
	}
	return p.theme.TextStyle().Render(strings.Join(lines, "\n"))
}
