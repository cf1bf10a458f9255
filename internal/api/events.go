package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Event types sent on the notification stream
const (
	EventConnected    = "connected"
	EventInboxChanged = "inbox-changed"
	EventPinChanged   = "pin-changed"
)

// Event is one notification from the daemon
type Event struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Path      string          `json:"path,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Time returns the event timestamp
func (e Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Subscribe opens the notification stream. Events are delivered on the
// returned channel until ctx is cancelled or the stream ends, after which
// the channel is closed.
func (c *Client) Subscribe(ctx context.Context) (<-chan Event, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/notifications/stream", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, statusError(resp.StatusCode, body)
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer resp.Body.Close()
		err := readEvents(resp.Body, func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && ctx.Err() == nil {
			c.log.Warn().Err(err).Msg("event stream ended")
		}
	}()
	return events, nil
}

// readEvents parses a text/event-stream body, calling emit for each data
// event until emit returns false or the body ends. Comment lines
// (heartbeats) and unknown fields are skipped.
func readEvents(r io.Reader, emit func(Event) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data []string
	flush := func() bool {
		if len(data) == 0 {
			return true
		}
		payload := strings.Join(data, "\n")
		data = data[:0]
		var ev Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return true
		}
		return emit(ev)
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if !flush() {
				return nil
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	flush()
	return io.ErrUnexpectedEOF
}

// Watch keeps a notification stream open, reconnecting with backoff, and
// forwards events to out until ctx is cancelled. Authentication failures
// stop the watch.
func (c *Client) Watch(ctx context.Context, out chan<- Event) error {
	backoff := time.Second
	for {
		events, err := c.Subscribe(ctx)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				return err
			}
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("event stream unavailable")
		} else {
			backoff = time.Second
			for ev := range events {
				select {
				case out <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}
