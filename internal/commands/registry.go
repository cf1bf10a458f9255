package commands

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nickpending/inbox/internal/cursor"
)

// CommandFunc is a function that executes a command
type CommandFunc func(args []string) tea.Cmd

// Registry holds all available commands
type Registry struct {
	commands map[string]CommandFunc
}

// NewRegistry creates a new command registry with built-in commands
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]CommandFunc),
	}

	// vim-style: full names only, prefixes resolve in Execute
	r.Register("quit", cmdQuit)
	r.Register("help", cmdHelp)

	// Feed navigation
	r.Register("jump", cmdJump)
	r.Register("top", cmdTop)
	r.Register("bottom", cmdBottom)
	r.Register("refresh", cmdRefresh)
	r.Register("reload", cmdReload)

	// Pins and clipboard
	r.Register("pins", cmdPins)
	r.Register("yank", cmdYank)

	r.Register("theme", cmdTheme)

	return r
}

// Register adds a command to the registry
func (r *Registry) Register(name string, fn CommandFunc) {
	r.commands[name] = fn
}

// Execute runs a command by name with arguments
func (r *Registry) Execute(name string, args []string) tea.Cmd {
	if fn, ok := r.commands[name]; ok {
		return fn(args)
	}

	// Then try prefix matching (vim-style)
	matches := r.match(name)
	if len(matches) == 1 {
		return r.commands[matches[0]](args)
	}
	if len(matches) > 1 {
		return showError(fmt.Sprintf("Ambiguous command '%s': %s", name, strings.Join(matches, ", ")))
	}
	return showError(fmt.Sprintf("Unknown command: %s", name))
}

// match returns the sorted command names starting with prefix
func (r *Registry) match(prefix string) []string {
	lower := strings.ToLower(prefix)
	var matches []string
	for name := range r.commands {
		if strings.HasPrefix(strings.ToLower(name), lower) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches
}

// GetCommands returns all registered command names, sorted
func (r *Registry) GetCommands() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Built-in command implementations

func cmdQuit(args []string) tea.Cmd {
	return tea.Quit
}

func cmdHelp(args []string) tea.Cmd {
	return func() tea.Msg {
		return HelpMsg{}
	}
}

// cmdJump scrolls to the item a cursor names, loading around it if needed.
// Cursors may contain spaces only when quoted.
func cmdJump(args []string) tea.Cmd {
	return func() tea.Msg {
		if len(args) == 0 {
			return ErrorMsg{Message: "jump: cursor required"}
		}
		c := strings.Join(args, " ")
		if _, err := cursor.Parse(c); err != nil {
			return ErrorMsg{Message: fmt.Sprintf("jump: %v", err)}
		}
		return JumpMsg{Cursor: c}
	}
}

func cmdTop(args []string) tea.Cmd {
	return func() tea.Msg {
		return TopMsg{}
	}
}

func cmdBottom(args []string) tea.Cmd {
	return func() tea.Msg {
		return BottomMsg{}
	}
}

// cmdRefresh polls for items newer than the live edge
func cmdRefresh(args []string) tea.Cmd {
	return func() tea.Msg {
		return RefreshMsg{}
	}
}

// cmdReload starts over from the newest page
func cmdReload(args []string) tea.Cmd {
	return func() tea.Msg {
		return ReloadMsg{}
	}
}

func cmdPins(args []string) tea.Cmd {
	return func() tea.Msg {
		return PinsMsg{}
	}
}

// cmdYank copies the selected item's cursor, or its path with "path"
func cmdYank(args []string) tea.Cmd {
	return func() tea.Msg {
		target := "cursor"
		if len(args) > 0 {
			target = args[0]
		}
		switch target {
		case "cursor", "path":
			return YankMsg{Target: target}
		default:
			return ErrorMsg{Message: fmt.Sprintf("yank: unknown target '%s' (available: cursor, path)", target)}
		}
	}
}

// cmdTheme cycles themes, or switches to the named one
func cmdTheme(args []string) tea.Cmd {
	return func() tea.Msg {
		if len(args) > 0 {
			return ThemeMsg{Name: args[0]}
		}
		return ThemeMsg{}
	}
}

// showError returns a command that shows an error message
func showError(msg string) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Message: msg}
	}
}

// Message types for commands

// ErrorMsg contains an error message to display
type ErrorMsg struct {
	Message string
}

// HelpMsg signals to show the help modal
type HelpMsg struct{}

// JumpMsg asks the feed to scroll to the item named by Cursor
type JumpMsg struct {
	Cursor string
}

// TopMsg scrolls to the oldest resident item
type TopMsg struct{}

// BottomMsg scrolls to the newest item and resumes following
type BottomMsg struct{}

// RefreshMsg asks for items newer than the live edge
type RefreshMsg struct{}

// ReloadMsg restarts the feed from the newest page
type ReloadMsg struct{}

// PinsMsg opens the pins modal
type PinsMsg struct{}

// YankMsg copies the selected item's cursor or path to the clipboard
type YankMsg struct {
	Target string // "cursor" (default) or "path"
}

// ThemeMsg switches theme. An empty Name cycles to the next one.
type ThemeMsg struct {
	Name string
}
