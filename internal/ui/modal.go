package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Modal is the frame the overlays share: a rounded box sized from the
// terminal and drawn over the feed below the header line
type Modal struct {
	title   string
	width   int
	height  int
	content string
	visible bool
}

func NewModal(title string, width, height int) Modal {
	return Modal{title: title, width: width, height: height}
}

func (m *Modal) Show()          { m.visible = true }
func (m *Modal) Hide()          { m.visible = false }
func (m Modal) IsVisible() bool { return m.visible }

func (m *Modal) SetContent(content string) {
	m.content = content
}

// setSize takes widthFrac of the terminal width and all but eight rows,
// no smaller than the minimums and never wider than the terminal
func (m *Modal) setSize(termWidth, termHeight int, widthFrac float64, minWidth, minHeight int) {
	m.width = min(max(int(float64(termWidth)*widthFrac), minWidth), termWidth-4)
	m.height = max(termHeight-8, minHeight)
}

// View renders the title and content inside the frame
func (m Modal) View(theme StyleTheme) string {
	if !m.visible {
		return ""
	}
	body := m.content
	if m.title != "" {
		title := lipgloss.NewStyle().Foreground(theme.Cyan).Bold(true).MarginBottom(1)
		body = title.Render(m.title) + "\n" + body
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Cyan).
		Width(m.width).
		Height(m.height).
		Padding(1, 2).
		Render(body)
}

func (m Modal) ViewWithOverlay(backgroundView string, termWidth, termHeight int, theme StyleTheme) string {
	if !m.visible {
		return backgroundView
	}
	return overlay(backgroundView, m.View(theme), m.width+4, termWidth, termHeight)
}

// overlay centres modalView on a cleared screen. Only the background's
// first line, the header, is kept.
func overlay(backgroundView, modalView string, modalWidth, termWidth, termHeight int) string {
	bg := strings.Split(backgroundView, "\n")
	var box []string
	if modalView != "" {
		box = strings.Split(modalView, "\n")
	}

	top := max(1, (termHeight-len(box))/2)
	indent := strings.Repeat(" ", max(0, (termWidth-modalWidth)/2))
	blank := strings.Repeat(" ", max(termWidth, 0))

	out := make([]string, max(len(bg), top+len(box)))
	for i := range out {
		switch {
		case i == 0:
			out[i] = bg[0]
		case i >= top && i < top+len(box):
			out[i] = indent + box[i-top]
		case i < len(bg):
			out[i] = blank
		}
	}
	return strings.Join(out, "\n")
}
