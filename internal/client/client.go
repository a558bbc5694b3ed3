// Package client is the HTTP client the CLI uses to talk to a running
// Harbor daemon.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ij369/ipa-harbor-sub000/internal/app/taskmgr"
	"github.com/ij369/ipa-harbor-sub000/internal/domain"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/artifact"
)

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("harbor: %d %s", e.StatusCode, e.Message)
}

// Client calls the daemon's REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL, e.g. "http://127.0.0.1:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// ─── Tasks ──────────────────────────────────────────────────────────────────

// CreateTask submits a download.
func (c *Client) CreateTask(ctx context.Context, req taskmgr.CreateRequest) (domain.Task, error) {
	var t domain.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", req, &t)
	return t, err
}

// ListTasks returns every task grouped by status.
func (c *Client) ListTasks(ctx context.Context) (domain.TaskList, error) {
	var l domain.TaskList
	err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &l)
	return l, err
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var t domain.Task
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &t)
	return t, err
}

// Progress returns the in-flight snapshots.
func (c *Client) Progress(ctx context.Context) ([]domain.ProgressSnapshot, error) {
	var p []domain.ProgressSnapshot
	err := c.do(ctx, http.MethodGet, "/api/tasks/progress", nil, &p)
	return p, err
}

// Stats returns scheduler counters.
func (c *Client) Stats(ctx context.Context) (taskmgr.Stats, error) {
	var s taskmgr.Stats
	err := c.do(ctx, http.MethodGet, "/api/tasks/stats", nil, &s)
	return s, err
}

// DeleteTask removes a task and its artifact.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

// ClearAll removes every task and artifact.
func (c *Client) ClearAll(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks", nil, nil)
}

// ─── Files ──────────────────────────────────────────────────────────────────

// ListFiles returns the artifacts on disk.
func (c *Client) ListFiles(ctx context.Context) ([]artifact.File, error) {
	var f []artifact.File
	err := c.do(ctx, http.MethodGet, "/api/files", nil, &f)
	return f, err
}

// Metadata returns the app metadata of an artifact.
func (c *Client) Metadata(ctx context.Context, name string) (domain.Metadata, error) {
	var m domain.Metadata
	err := c.do(ctx, http.MethodGet, "/api/files/"+url.PathEscape(name)+"/metadata", nil, &m)
	return m, err
}

// DeleteFile removes an artifact and every task that produces it.
// Returns how many tasks were removed.
func (c *Client) DeleteFile(ctx context.Context, name string) (int, error) {
	var resp struct {
		DeletedTasks int `json:"deletedTasks"`
	}
	err := c.do(ctx, http.MethodDelete, "/api/files/"+url.PathEscape(name), nil, &resp)
	return resp.DeletedTasks, err
}

// ─── Settings ───────────────────────────────────────────────────────────────

// PassphraseSet reports whether a keychain passphrase override is stored.
func (c *Client) PassphraseSet(ctx context.Context) (bool, error) {
	var resp struct {
		Set bool `json:"set"`
	}
	err := c.do(ctx, http.MethodGet, "/api/settings/passphrase", nil, &resp)
	return resp.Set, err
}

// SetPassphrase stores the override; "" clears it.
func (c *Client) SetPassphrase(ctx context.Context, passphrase string) error {
	body := map[string]string{"passphrase": passphrase}
	return c.do(ctx, http.MethodPut, "/api/settings/passphrase", body, nil)
}

// ─── Events ─────────────────────────────────────────────────────────────────

// Events streams the channel and calls fn for each event until ctx is
// cancelled, the stream ends or fn returns an error.
func (c *Client) Events(ctx context.Context, channel string, fn func(domain.Event) error) error {
	u := c.baseURL + "/api/events"
	if channel != "" {
		u += "?channel=" + url.QueryEscape(channel)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The shared client's Timeout would cut the stream.
	resp, err := (&http.Client{Transport: c.http.Transport}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	var ev domain.Event
	var data []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if ev.Type != "" || len(data) > 0 {
				ev.Data = strings.Join(data, "\n")
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev, data = domain.Event{}, nil
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event:"):
			ev.Type = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return sc.Err()
}

// ─── Transport ──────────────────────────────────────────────────────────────

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &payload) == nil && payload.Error.Message != "" {
		msg = payload.Error.Message
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
