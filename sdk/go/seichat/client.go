// Package seichat is a Go client for the SeiChat ops HTTP API.
package seichat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout is used by clients created without a custom http.Client.
// Chain commands wait for receipts, so it is longer than a plain REST call.
const DefaultHTTPTimeout = 90 * time.Second

// Client wraps the HTTP interactions with a seichatd instance.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
}

// Option customises a Client.
type Option func(*Client)

// WithToken sets the bearer token sent on /api/v1 requests.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// Message is the payload for POST /api/v1/messages.
type Message struct {
	Text     string `json:"text"`
	SenderID string `json:"sender_id"`
	ChatID   string `json:"chat_id,omitempty"`
}

// Reply is the bot's answer to a message.
type Reply struct {
	Reply   string `json:"reply"`
	Stage   string `json:"stage,omitempty"`
	Command string `json:"command,omitempty"`
	Failed  bool   `json:"failed"`
}

// Outcome is one entry of the command history.
type Outcome struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ChatID     string    `json:"chat_id,omitempty"`
	Command    string    `json:"command"`
	Failed     bool      `json:"failed"`
	Stage      string    `json:"stage,omitempty"`
	Text       string    `json:"text,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Health is the /healthz payload.
type Health struct {
	Status      string `json:"status"`
	Chain       string `json:"chain,omitempty"`
	ChainID     string `json:"chain_id,omitempty"`
	BlockNumber string `json:"block_number,omitempty"`
	Error       string `json:"error,omitempty"`
}

// APIError represents a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("seichat api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the API rooted at rawURL.
func NewClient(rawURL string, httpClient *http.Client, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", rawURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	c := &Client{baseURL: parsed, httpClient: httpClient}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Send posts a message and returns the bot's reply.
func (c *Client) Send(ctx context.Context, msg Message) (Reply, error) {
	var reply Reply
	if err := c.post(ctx, "/api/v1/messages", msg, &reply); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// History lists the most recent command outcomes for a user. An empty
// userID returns outcomes for all users.
func (c *Client) History(ctx context.Context, userID string, limit int) ([]Outcome, error) {
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var list []Outcome
	if err := c.get(ctx, "/api/v1/history", q, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Health reports the service and chain status.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	if err := c.get(ctx, "/healthz", nil, &h); err != nil {
		return Health{}, err
	}
	return h, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
