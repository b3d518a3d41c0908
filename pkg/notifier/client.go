// Package notifier implements the client side of the notification feed: a
// thin HTTP client over the polling endpoints and a Poller that drives
// periodic fetches into a rendering Sink.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Audience selects which feed endpoints the client talks to. It is fixed at
// construction; a session is either a personnel session or an admin session.
type Audience string

const (
	AudienceUser  Audience = "user"
	AudienceAdmin Audience = "admin"
)

// Notification mirrors the server's notification payload.
type Notification struct {
	ID        uint       `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Priority  string     `json:"priority"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	ActionURL string     `json:"action_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Feed is a single poll result: the most recent notifications plus the
// server's authoritative unread count.
type Feed struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Client calls the notification endpoints with a bearer token.
type Client struct {
	baseURL  string
	token    string
	prefix   string
	httpDoer *http.Client
}

// NewClient builds a feed client. The audience decides between the personnel
// and the admin endpoints.
func NewClient(baseURL, token string, audience Audience, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	prefix := "/api/v1/notifications"
	if audience == AudienceAdmin {
		prefix = "/api/v1/admin/notifications"
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		prefix:   prefix,
		httpDoer: httpClient,
	}
}

// Fetch retrieves the current feed.
func (c *Client) Fetch(ctx context.Context) (Feed, error) {
	var feed Feed
	if err := c.call(ctx, http.MethodGet, c.prefix+"/", nil, &feed); err != nil {
		return Feed{}, err
	}
	return feed, nil
}

// MarkRead flips a single notification to read on the server.
func (c *Client) MarkRead(ctx context.Context, id uint) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf("%s/%d/read", c.prefix, id), nil, nil)
}

// MarkAllRead flips every unread notification of the session's recipient.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.call(ctx, http.MethodPut, c.prefix+"/read-all", nil, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpDoer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest || !env.Success {
		message := env.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("notification api: %s (status %d)", message, resp.StatusCode)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
