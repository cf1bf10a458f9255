package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nickpending/inbox/internal/config"
	"github.com/nickpending/inbox/internal/feed"
	"github.com/nickpending/inbox/internal/logging"
)

var (
	// ErrUnauthorized is returned when the daemon rejects the API key
	ErrUnauthorized = errors.New("authentication failed: invalid API key")
	// ErrBadRequest is returned for 400 responses, e.g. a malformed cursor
	ErrBadRequest = errors.New("bad request")
	// ErrServer is returned for 5xx responses that survived retries
	ErrServer = errors.New("server error")
)

// StatusError carries the HTTP status and the daemon's error message
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error (status %d)", e.Code)
	}
	return fmt.Sprintf("API error (status %d): %s", e.Code, e.Message)
}

// Unwrap maps the status onto the package's sentinel errors
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden:
		return ErrUnauthorized
	case e.Code == http.StatusBadRequest:
		return ErrBadRequest
	case e.Code >= 500:
		return ErrServer
	}
	return nil
}

// Options configures a Client
type Options struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64 // 0 disables client-side limiting
	RetryMax      int
	RetryWaitMin  time.Duration
	RetryWaitMax  time.Duration
	Logger        *zerolog.Logger
}

// Client talks to the inbox daemon. It implements feed.Source and
// feed.PinSource and is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
	stream  *retryablehttp.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a client for the daemon at opts.BaseURL
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("daemon URL is required")
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid daemon URL %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryMax == 0 {
		opts.RetryMax = 3
	}
	if opts.RetryWaitMin == 0 {
		opts.RetryWaitMin = 250 * time.Millisecond
	}
	if opts.RetryWaitMax == 0 {
		opts.RetryWaitMax = 5 * time.Second
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "api").Logger()
	}

	c := &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    newRetryClient(opts, log),
		stream:  newRetryClient(opts, log),
		log:     log,
	}
	c.http.HTTPClient.Timeout = opts.Timeout
	// the event stream stays open indefinitely
	c.stream.HTTPClient.Timeout = 0

	if opts.RatePerSecond > 0 {
		burst := int(opts.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return c, nil
}

func newRetryClient(opts Options, log zerolog.Logger) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = opts.RetryWaitMin
	rc.RetryWaitMax = opts.RetryWaitMax
	rc.Logger = logging.RetryLogger{Log: log}
	// hand the final response back so status errors keep their body
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc
}

// NewClientFromConfig creates a client from the [api] config section
func NewClientFromConfig(cfg *config.Config, log *zerolog.Logger) (*Client, error) {
	return NewClient(Options{
		BaseURL:       cfg.API.URL,
		APIKey:        cfg.API.Key,
		Timeout:       cfg.Timeout(),
		RatePerSecond: cfg.API.RatePerSecond,
		Logger:        log,
	})
}

// BaseURL returns the daemon URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values) (*retryablehttp.Request, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter cancelled: %w", err)
	}
	return nil
}

// getJSON performs a GET and decodes a 2xx JSON body into out
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, params)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug().
		Str("path", path).
		Str("query", params.Encode()).
		Str("request_id", req.Header.Get("X-Request-ID")).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func statusError(code int, body []byte) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			msg = payload.Error
		} else if payload.Message != "" {
			msg = payload.Message
		}
	}
	return &StatusError{Code: code, Message: msg}
}

// Fetch retrieves one page of the inbox
func (c *Client) Fetch(ctx context.Context, q feed.Query) (*feed.Response, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	switch {
	case q.Around != "":
		params.Set("around", q.Around)
	case q.Before != "":
		params.Set("before", q.Before)
	case q.After != "":
		params.Set("after", q.After)
	}

	var resp feed.Response
	if err := c.getJSON(ctx, "/api/inbox", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch inbox: %w", err)
	}
	return &resp, nil
}

// Pinned lists pinned inbox items
func (c *Client) Pinned(ctx context.Context) ([]feed.Pin, error) {
	var resp struct {
		Items []feed.Pin `json:"items"`
	}
	if err := c.getJSON(ctx, "/api/inbox/pinned", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch pinned items: %w", err)
	}
	return resp.Items, nil
}
