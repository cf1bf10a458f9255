package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap is the feed's normal-mode bindings
type keyMap struct {
	Down     key.Binding
	Up       key.Binding
	PageDown key.Binding
	PageUp   key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Open     key.Binding
	Pins     key.Binding
	Yank     key.Binding
	Refresh  key.Binding
	Reload   key.Binding
	Theme    key.Binding
	Command  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "next")),
	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "prev")),
	PageDown: key.NewBinding(key.WithKeys("ctrl+d", "pgdown", " "), key.WithHelp("ctrl+d", "half page down")),
	PageUp:   key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("ctrl+u", "half page up")),
	Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "oldest")),
	Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "newest")),
	Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "read")),
	Pins:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pins")),
	Yank:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yank")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Reload:   key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reload")),
	Theme:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
	Command:  key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// shortHelp is the status bar hint
func (k keyMap) shortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Top, k.Bottom, k.Open, k.Pins, k.Yank, k.Command, k.Help, k.Quit}
}
