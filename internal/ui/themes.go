package ui

import (
	"strings"

	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// StyleTheme is a color scheme for the feed. The field names are roles
// from the default palette; other themes fill them with their own hues.
type StyleTheme struct {
	Name          string
	Cyan          lipgloss.Color // accent, selection, headings
	Purple        lipgloss.Color // tags and links
	VibrantPurple lipgloss.Color // errors, header gradient end
	Green         lipgloss.Color // success, code
	Red           lipgloss.Color // failures, strong text
	Orange        lipgloss.Color // pins, emphasis
	Gray          lipgloss.Color // muted text and timestamps
	DarkGray      lipgloss.Color // borders and highlight background
	White         lipgloss.Color // body text
}

// palette builds a theme from hex colors in field order
func palette(name string, hex ...string) StyleTheme {
	c := make([]lipgloss.Color, len(hex))
	for i, h := range hex {
		c[i] = lipgloss.Color(h)
	}
	return StyleTheme{
		Name: name, Cyan: c[0], Purple: c[1], VibrantPurple: c[2],
		Green: c[3], Red: c[4], Orange: c[5], Gray: c[6], DarkGray: c[7], White: c[8],
	}
}

var (
	// CleanCyberTheme is the default neon-on-dark theme
	CleanCyberTheme = palette("clean_cyber",
		"#00D9FF", "#E6CCFF", "#9F4DFF", "#00FF88", "#FF0066", "#FF8800", "#666666", "#333333", "#EEEEEE")

	// MonokaiProTheme uses the warm Monokai Pro colors
	MonokaiProTheme = palette("monokai_pro",
		"#78DCE8", "#AB9DF2", "#FF6188", "#A9DC76", "#FF6188", "#FC9867", "#727072", "#403E41", "#FCFCFA")

	// LightTheme has softer slate tones that still read on a dark terminal
	LightTheme = palette("light",
		"#06B6D4", "#8B5CF6", "#EC4899", "#22C55E", "#F43F5E", "#FB923C", "#64748B", "#475569", "#F1F5F9")
)

// AvailableThemes is the order t cycles through
var AvailableThemes = []StyleTheme{CleanCyberTheme, MonokaiProTheme, LightTheme}

// ThemeByName returns the named theme. "default" and unknown names map to
// CleanCyberTheme; ok reports whether name matched a theme.
func ThemeByName(name string) (StyleTheme, bool) {
	for _, t := range AvailableThemes {
		if t.Name == name {
			return t, true
		}
	}
	return CleanCyberTheme, name == "default" || name == ""
}

// NextTheme returns the theme after t in AvailableThemes, wrapping around
func NextTheme(t StyleTheme) StyleTheme {
	for i, candidate := range AvailableThemes {
		if candidate.Name == t.Name {
			return AvailableThemes[(i+1)%len(AvailableThemes)]
		}
	}
	return AvailableThemes[0]
}

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

// PinStyle marks pinned items
func (t StyleTheme) PinStyle() lipgloss.Style { return fg(t.Orange).Bold(true) }

// HighlightStyle is the transient highlight of a jump target
func (t StyleTheme) HighlightStyle() lipgloss.Style {
	return fg(t.Cyan).Background(t.DarkGray).Bold(true)
}

func (t StyleTheme) SelectedStyle() lipgloss.Style { return fg(t.Cyan).Bold(true) }
func (t StyleTheme) ErrorStyle() lipgloss.Style    { return fg(t.VibrantPurple).Bold(true) }
func (t StyleTheme) TagStyle() lipgloss.Style      { return fg(t.Purple) }
func (t StyleTheme) SuccessStyle() lipgloss.Style  { return fg(t.Green) }
func (t StyleTheme) TextStyle() lipgloss.Style     { return fg(t.White) }
func (t StyleTheme) MutedStyle() lipgloss.Style    { return fg(t.Gray) }

// ToGlamourStyle maps the theme onto glamour's dracula style, with the
// document margin removed so previews line up with item titles
func (t StyleTheme) ToGlamourStyle() ansi.StyleConfig {
	style := styles.DraculaStyleConfig
	color := func(c lipgloss.Color) *string { return ptr(string(c)) }

	style.Document.Margin = ptr(uint(0))
	style.Document.Color = color(t.White)
	style.Heading.Color = color(t.Cyan)
	style.Heading.Bold = ptr(true)

	// markdown hashes become a single arrow at every level
	for _, h := range []*ansi.StyleBlock{&style.H1, &style.H2, &style.H3, &style.H4, &style.H5, &style.H6} {
		h.StylePrimitive.Prefix = "▸ "
		h.StylePrimitive.Suffix = ""
		h.StylePrimitive.Format = ""
	}
	for _, h := range []*ansi.StyleBlock{&style.H1, &style.H2, &style.H3} {
		h.Color = color(t.Cyan)
	}
	style.H1.Bold = ptr(true)
	style.H2.Bold = ptr(true)

	style.Link.Color = color(t.Purple)
	style.LinkText.Color = color(t.Purple)
	style.Code.Color = color(t.Green)
	style.CodeBlock.Color = color(t.Green)
	style.Emph.Color = color(t.Orange)
	style.Strong.Color = color(t.Red)

	style.List.Indent = ptr(uint(1))
	style.List.IndentToken = ptr("  ")
	style.List.Color = color(t.White)
	style.List.LevelIndent = 4
	style.Item.BlockPrefix = "• "
	style.Item.Color = color(t.White)
	style.Item.Format = ""
	style.Enumeration.Color = color(t.White)
	style.Task.Ticked = "[✓] "
	style.Task.Unticked = "[ ] "

	style.BlockQuote.Color = ptr("#999999")
	style.BlockQuote.Italic = ptr(true)
	return style
}

func ptr[T any](v T) *T { return &v }

// RenderWithGradientBackground pads or cuts text to width runes and paints
// each column with a background blended from startColor to endColor
func RenderWithGradientBackground(text string, width int, startColor, endColor string) string {
	runes := []rune(text)
	if len(runes) > width {
		runes = runes[:width]
	}
	runes = append(runes, []rune(strings.Repeat(" ", width-len(runes)))...)

	base := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	var b strings.Builder
	for i, r := range runes {
		bg := InterpolateColor(startColor, endColor, float64(i)/float64(max(width-1, 1)))
		b.WriteString(base.Background(lipgloss.Color(bg)).Render(string(r)))
	}
	return b.String()
}

// InterpolateColor blends two hex colors in RGB at position, clamped to
// [0, 1]. A color that does not parse yields startColor unchanged.
func InterpolateColor(startColor, endColor string, position float64) string {
	from, err := colorful.Hex(startColor)
	if err != nil {
		return startColor
	}
	to, err := colorful.Hex(endColor)
	if err != nil {
		return startColor
	}
	position = min(max(position, 0), 1)
	return strings.ToUpper(from.BlendRgb(to, position).Hex())
}
