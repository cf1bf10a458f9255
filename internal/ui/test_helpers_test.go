package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nickpending/inbox/internal/api"
	"github.com/nickpending/inbox/internal/commands"
	"github.com/nickpending/inbox/internal/config"
	"github.com/nickpending/inbox/internal/cursor"
	"github.com/nickpending/inbox/internal/feed"
)

var errFake = errors.New("source unavailable")

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func itemPath(i int) string {
	return fmt.Sprintf("inbox/item-%03d.md", i)
}

func itemCursor(i int) string {
	return cursor.Format(baseTime.Add(time.Duration(i)*time.Second), itemPath(i))
}

func testItem(i int) feed.Item {
	return feed.Item{
		Path:      itemPath(i),
		Name:      fmt.Sprintf("item-%03d.md", i),
		CreatedAt: baseTime.Add(time.Duration(i) * time.Second).Format(cursor.TimeFormat),
	}
}

// fakeSource serves items 0..n-1, one second apart, with the daemon's
// newest/before/after/around semantics
type fakeSource struct {
	mu         sync.Mutex
	items      []feed.Item // oldest first
	queries    []feed.Query
	err        error
	failAround bool
}

func newFakeSource(n int) *fakeSource {
	s := &fakeSource{}
	for i := 0; i < n; i++ {
		s.items = append(s.items, testItem(i))
	}
	return s
}

func (s *fakeSource) add(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, testItem(i))
}

func (s *fakeSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeSource) calls() []feed.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]feed.Query(nil), s.queries...)
}

// split counts the items strictly older than c and those at or before it
func (s *fakeSource) split(raw string) (lt, le int, err error) {
	c, err := cursor.Parse(raw)
	if err != nil {
		return 0, 0, err
	}
	for _, it := range s.items {
		ic, _ := cursor.Parse(it.Cursor())
		switch cmp := cursor.Compare(ic, c); {
		case cmp < 0:
			lt++
			le++
		case cmp == 0:
			le++
		}
	}
	return lt, le, nil
}

func (s *fakeSource) Fetch(ctx context.Context, q feed.Query) (*feed.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}

	n := len(s.items)
	resp := &feed.Response{}
	var start, end int
	switch {
	case q.Around != "":
		if s.failAround {
			return nil, errFake
		}
		_, le, err := s.split(q.Around)
		if err != nil {
			return nil, err
		}
		half := q.Limit / 2
		start, end = max(le-half, 0), min(le+half, n)
		target := end - le
		resp.TargetIndex = &target
		resp.HasMore = feed.HasMore{Older: start > 0, Newer: end < n}
	case q.Before != "":
		lt, _, err := s.split(q.Before)
		if err != nil {
			return nil, err
		}
		start, end = max(lt-q.Limit, 0), lt
		resp.HasMore = feed.HasMore{Older: start > 0, Newer: true}
	case q.After != "":
		_, le, err := s.split(q.After)
		if err != nil {
			return nil, err
		}
		start, end = le, min(le+q.Limit, n)
		resp.HasMore = feed.HasMore{Older: true, Newer: end < n}
	default:
		start, end = max(n-q.Limit, 0), n
		resp.HasMore = feed.HasMore{Older: start > 0}
	}

	for i := end - 1; i >= start; i-- {
		resp.Items = append(resp.Items, s.items[i])
	}
	if len(resp.Items) > 0 {
		first, last := resp.Items[0].Cursor(), resp.Items[len(resp.Items)-1].Cursor()
		resp.Cursors = feed.Cursors{First: &first, Last: &last}
	}
	return resp, nil
}

type fakePins struct {
	pins []feed.Pin
	err  error
}

func (f *fakePins) Pinned(ctx context.Context) ([]feed.Pin, error) {
	return f.pins, f.err
}

// testConfig keeps pages small and thresholds tight so layouts are easy
// to reason about: every item renders as two lines.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Feed.PageSize = 10
	cfg.Feed.LoadThreshold = 2
	cfg.Feed.StickThreshold = 2
	cfg.TUI.Live = false
	return cfg
}

const (
	testWidth  = 100
	testHeight = 15 // a 12 line feed pane
)

// newTestModel builds a sized model and runs its initial load
func newTestModel(t *testing.T, opts Options) Model {
	t.Helper()
	if opts.Config == nil {
		opts.Config = testConfig()
	}
	m := NewModel(context.Background(), opts)
	m = update(t, m, tea.WindowSizeMsg{Width: testWidth, Height: testHeight})
	return drain(t, m, m.Init())
}

// update applies msg and runs the commands it returns
func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	return drain(t, next.(Model), cmd)
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		m = update(t, m, keyMsg(k))
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// cmdTimeout bounds how long a command may block before it is treated as
// a timer or a stream wait and dropped
const cmdTimeout = 100 * time.Millisecond

// drain runs cmd and feeds the messages it produces back into the model.
// Only messages that carry data are delivered; timers are dropped so the
// loop terminates.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for depth := 0; cmd != nil; depth++ {
		if depth > 50 {
			t.Fatal("command loop did not settle")
		}
		var cmds []tea.Cmd
		for _, msg := range collect(cmd) {
			if !deliverable(msg) {
				continue
			}
			next, c := m.Update(msg)
			m = next.(Model)
			cmds = append(cmds, c)
		}
		cmd = tea.Batch(cmds...)
	}
	return m
}

func deliverable(msg tea.Msg) bool {
	switch msg.(type) {
	case feedResultMsg, pinsLoadedMsg, statusMsg, copyMsg, liveEventMsg,
		commands.ErrorMsg, commands.HelpMsg, commands.JumpMsg, commands.TopMsg,
		commands.BottomMsg, commands.RefreshMsg, commands.ReloadMsg,
		commands.PinsMsg, commands.YankMsg, commands.ThemeMsg:
		return true
	}
	return false
}

// collect runs cmd, expanding batches concurrently while keeping order
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-out:
	case <-time.After(cmdTimeout):
		return nil
	}

	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	results := make([][]tea.Msg, len(batch))
	var wg sync.WaitGroup
	for i, c := range batch {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = collect(c)
		}()
	}
	wg.Wait()

	var msgs []tea.Msg
	for _, r := range results {
		msgs = append(msgs, r...)
	}
	return msgs
}

// stubClipboard records clipboard writes for the duration of the test
func stubClipboard(t *testing.T) *string {
	t.Helper()
	var got string
	orig := clipboardWrite
	clipboardWrite = func(text string) error {
		got = text
		return nil
	}
	t.Cleanup(func() { clipboardWrite = orig })
	return &got
}

func itemPaths(items []feed.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Path
	}
	return out
}

func inboxChanged() liveEventMsg {
	return liveEventMsg{event: api.Event{Type: api.EventInboxChanged}, ok: true}
}
