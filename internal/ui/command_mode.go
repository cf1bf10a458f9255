package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nickpending/inbox/internal/commands"
)

const (
	maxCommandHistory = 100
	commandErrorDelay = 2 * time.Second
)

// CommandMode is the ':' prompt at the bottom of the feed
type CommandMode struct {
	active   bool
	input    textinput.Model
	registry *commands.Registry
	history  commandHistory
	tab      completion
	cursors  []string // offered after "jump "
	theme    StyleTheme
	width    int
	error    string
}

// clearErrorMsg dismisses a command error after commandErrorDelay
type clearErrorMsg struct{}

// commandHistory keeps submitted lines oldest first. pos == len(lines)
// is the empty line being typed.
type commandHistory struct {
	lines []string
	pos   int
}

func (h *commandHistory) push(line string) {
	if n := len(h.lines); n > 0 && h.lines[n-1] == line {
		return
	}
	if len(h.lines) == maxCommandHistory {
		h.lines = h.lines[1:]
	}
	h.lines = append(h.lines, line)
}

func (h *commandHistory) rewind() { h.pos = len(h.lines) }

func (h *commandHistory) prev() (string, bool) {
	if h.pos == 0 {
		return "", false
	}
	h.pos--
	return h.lines[h.pos], true
}

func (h *commandHistory) next() (string, bool) {
	if h.pos >= len(h.lines) {
		return "", false
	}
	h.pos++
	if h.pos == len(h.lines) {
		return "", true
	}
	return h.lines[h.pos], true
}

// completion cycles through the matches for the line tab was first
// pressed on
type completion struct {
	options []string
	next    int
}

func (c *completion) reset() { *c = completion{} }

// cycling reports whether value is the option tab put in the input last
func (c *completion) cycling(value string) bool {
	if len(c.options) == 0 {
		return false
	}
	last := (c.next + len(c.options) - 1) % len(c.options)
	return c.options[last] == value
}

func (c *completion) advance() string {
	s := c.options[c.next]
	c.next = (c.next + 1) % len(c.options)
	return s
}

// position is the 1-based index of the option currently shown
func (c *completion) position() int {
	if c.next == 0 {
		return len(c.options)
	}
	return c.next
}

// NewCommandMode creates an inactive prompt over the default command set
func NewCommandMode() CommandMode {
	ti := textinput.New()
	ti.Prompt = ":"
	ti.CharLimit = 256
	ti.Width = 50

	return CommandMode{
		input:    ti,
		registry: commands.NewRegistry(),
		theme:    CleanCyberTheme,
		width:    80,
	}
}

func (c *CommandMode) SetWidth(width int) {
	c.width = width
	c.input.Width = width - 4
}

func (c *CommandMode) SetTheme(theme StyleTheme) {
	c.theme = theme
}

// SetCursors sets the cursors :jump completes from
func (c *CommandMode) SetCursors(cursors []string) {
	c.cursors = cursors
}

// Show opens an empty prompt
func (c *CommandMode) Show() {
	c.reset()
	c.active = true
	c.input.Focus()
}

// Hide closes the prompt and drops any error
func (c *CommandMode) Hide() {
	c.reset()
	c.active = false
	c.input.Blur()
}

func (c *CommandMode) reset() {
	c.input.SetValue("")
	c.history.rewind()
	c.tab.reset()
	c.error = ""
}

func (c CommandMode) IsActive() bool {
	return c.active
}

// SetError shows err in place of the prompt until a key is pressed or the
// delay runs out
func (c *CommandMode) SetError(err string) tea.Cmd {
	c.error = err
	c.active = true
	c.input.Blur()
	return tea.Tick(commandErrorDelay, func(time.Time) tea.Msg {
		return clearErrorMsg{}
	})
}

// Update handles input while the prompt is open
func (c *CommandMode) Update(msg tea.Msg) (CommandMode, tea.Cmd) {
	if !c.active {
		return *c, nil
	}

	switch msg := msg.(type) {
	case clearErrorMsg:
		c.Hide()
		return *c, nil

	case tea.KeyMsg:
		if c.error != "" {
			c.Hide()
			return *c, nil
		}
		if cmd, handled := c.handleKey(msg); handled {
			return *c, cmd
		}
	}

	before := c.input.Value()
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	if c.input.Value() != before {
		c.tab.reset()
	}
	return *c, cmd
}

// handleKey runs the prompt's own bindings; anything else goes to the
// text input
func (c *CommandMode) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyEscape, tea.KeyCtrlC:
		c.Hide()
		return nil, true

	case tea.KeyEnter:
		return c.submit(), true

	case tea.KeyUp:
		if line, ok := c.history.prev(); ok {
			c.setLine(line)
		}
		return nil, true

	case tea.KeyDown:
		if line, ok := c.history.next(); ok {
			c.setLine(line)
		}
		return nil, true

	case tea.KeyTab:
		c.completeLine()
		return nil, true

	case tea.KeyBackspace:
		if c.input.Value() == "" {
			c.Hide()
			return nil, true
		}
	}
	return nil, false
}

func (c *CommandMode) setLine(line string) {
	c.input.SetValue(line)
	c.input.CursorEnd()
}

// submit records the line and hands it to the registry
func (c *CommandMode) submit() tea.Cmd {
	line := strings.TrimSpace(c.input.Value())
	parts := parseCommandWithQuotes(line)
	c.Hide()
	if len(parts) == 0 {
		return nil
	}
	c.history.push(line)
	return c.registry.Execute(parts[0], parts[1:])
}

func (c *CommandMode) completeLine() {
	value := c.input.Value()
	if value == "" {
		return
	}
	if !c.tab.cycling(value) {
		c.tab = completion{options: c.Complete(value)}
		if len(c.tab.options) == 0 {
			return
		}
	}
	c.setLine(c.tab.advance())
}

// View renders the prompt, or the pending error in its place
func (c CommandMode) View() string {
	if !c.active {
		return ""
	}

	style := lipgloss.NewStyle().Width(c.width).Padding(0, 1)
	if c.error != "" {
		return style.Foreground(c.theme.VibrantPurple).Render(c.error)
	}

	content := c.input.View()
	if len(c.tab.options) > 1 {
		content += fmt.Sprintf(" [%d/%d]", c.tab.position(), len(c.tab.options))
	}
	return style.Foreground(c.theme.Cyan).Render(content)
}

// Complete returns the lines tab offers for prefix: command names, or
// known cursors after "jump "
func (c *CommandMode) Complete(prefix string) []string {
	lower := strings.ToLower(prefix)

	if strings.HasPrefix(lower, "jump ") {
		partial := strings.TrimSpace(prefix[len("jump "):])
		var matches []string
		for _, cur := range c.cursors {
			if strings.HasPrefix(cur, partial) {
				matches = append(matches, "jump "+cur)
			}
		}
		return matches
	}

	var matches []string
	for _, name := range c.registry.GetCommands() {
		if strings.HasPrefix(strings.ToLower(name), lower) {
			matches = append(matches, name)
		}
	}
	return matches
}

// parseCommandWithQuotes splits a command line on spaces. Double quotes
// group words and a backslash escapes the next rune.
func parseCommandWithQuotes(line string) []string {
	var args []string
	var arg strings.Builder
	quoted, escaped, started := false, false, false

	flush := func() {
		if started {
			args = append(args, arg.String())
		}
		arg.Reset()
		started = false
	}

	for _, r := range line {
		switch {
		case escaped:
			arg.WriteRune(r)
			escaped, started = false, true
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
			started = true
		case r == ' ' && !quoted:
			flush()
		default:
			arg.WriteRune(r)
			started = true
		}
	}
	flush()
	return args
}
