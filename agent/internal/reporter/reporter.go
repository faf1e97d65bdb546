package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentpulse/agentpulse/pkg/types"
)

const defaultTimeout = 10 * time.Second

// APIError is returned when the server answers with a non-success status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Rejected reports whether the server refused the event as invalid.
func (e *APIError) Rejected() bool { return e.StatusCode == http.StatusBadRequest }

// Client talks to one agentpulse-server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("reporter: parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("reporter: server url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("reporter: server url %q: missing host", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Send submits one event and returns it as stored by the server.
func (c *Client) Send(ctx context.Context, in types.Input) (types.Event, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return types.Event{}, fmt.Errorf("reporter: encode event: %w", err)
	}

	var ev types.Event
	if err := c.do(ctx, http.MethodPost, "/api/v1/events", bytes.NewReader(body), http.StatusCreated, &ev); err != nil {
		return types.Event{}, fmt.Errorf("reporter: send: %w", err)
	}
	slog.Debug("reporter: event delivered", "id", ev.ID, "agent_id", ev.AgentID, "status", ev.Status)
	return ev, nil
}

// Snapshot fetches the current health snapshot.
func (c *Client) Snapshot(ctx context.Context) (types.Snapshot, error) {
	var snap types.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/v1/health", nil, http.StatusOK, &snap); err != nil {
		return types.Snapshot{}, fmt.Errorf("reporter: snapshot: %w", err)
	}
	return snap, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, want int, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}

// IsRejected reports whether err is an APIError for an invalid event.
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Rejected()
}
