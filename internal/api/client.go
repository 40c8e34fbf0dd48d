package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

var (
	ErrNetwork      = errors.New("network failure")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAPIRejected  = errors.New("request rejected by server")
)

// Envelope is the uniform response shape every Curalis endpoint returns.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// TokenSource supplies the current bearer token, empty when logged out.
type TokenSource interface {
	Token() string
}

type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client is the REST facade for the Curalis API. A 401/403 from any call
// fires the unauthorized hook exactly once for the client's lifetime, which
// the app uses as its global logout trigger.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource

	unauthorizedOnce sync.Once
	onUnauthorized   func()
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUnauthorizedHook registers the global logout callback.
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs one request and decodes the envelope into out (when non-nil).
// All failures map onto the package sentinel errors so callers can dispatch
// with errors.Is without inspecting status codes.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.fireUnauthorized()
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode envelope: %v", ErrNetwork, err)
	}

	if !env.Success {
		base := ErrAPIRejected
		switch resp.StatusCode {
		case http.StatusNotFound:
			base = ErrNotFound
		case http.StatusConflict:
			base = ErrConflict
		}
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return fmt.Errorf("%w: %s", base, msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}

	return nil
}

func (c *Client) fireUnauthorized() {
	if c.onUnauthorized == nil {
		return
	}
	c.unauthorizedOnce.Do(c.onUnauthorized)
}
