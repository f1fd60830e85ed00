package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/notifications"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

// OperationError is one entry of an operation endpoint error response.
type OperationError struct {
	Message    string              `json:"message"`
	StatusCode int                 `json:"statusCode"`
	Data       []models.FieldIssue `json:"data,omitempty"`
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

type operationRequest struct {
	Operation string `json:"operation"`
	Variables any    `json:"variables,omitempty"`
}

type operationResponse struct {
	Data   json.RawMessage  `json:"data"`
	Errors []OperationError `json:"errors"`
}

// Client talks to an inkwell server over the operation endpoint and the live feed socket.
type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer

	mu    sync.RWMutex
	token string
}

// NewClient parses baseURL (e.g. "http://localhost:8080"). A nil httpClient uses a 10s timeout.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		base:   u,
		http:   httpClient,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

// SetToken sets the bearer token sent with every call.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Do runs operation and decodes its data into out. A server-side failure is
// returned as *OperationError.
func (c *Client) Do(ctx context.Context, operation string, variables any, out any) error {
	body, err := json.Marshal(operationRequest{Operation: operation, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath("api", "operations").String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.currentToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var decoded operationResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("%s: decode response (status %d): %w", operation, resp.StatusCode, err)
	}
	if len(decoded.Errors) > 0 {
		e := decoded.Errors[0]
		return &e
	}
	if out == nil || len(decoded.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", operation, err)
	}
	return nil
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (uint, error) {
	var res struct {
		UserID uint   `json:"userId"`
		Token  string `json:"token"`
	}
	err := c.Do(ctx, "login", map[string]string{"email": email, "password": password}, &res)
	if err != nil {
		return 0, err
	}
	c.SetToken(res.Token)
	return res.UserID, nil
}

// ListPosts pulls one feed page. It satisfies PageFetcher.
func (c *Client) ListPosts(ctx context.Context, page int) (*models.PostPage, error) {
	var res models.PostPage
	if err := c.Do(ctx, "listPosts", map[string]int{"page": page}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) streamURL() string {
	u := *c.base.JoinPath("ws")
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	if tok := c.currentToken(); tok != "" {
		q := u.Query()
		q.Set("token", tok)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Stream reads live feed events and passes each to handle until ctx is done or
// the connection drops. Malformed frames are skipped.
func (c *Client) Stream(ctx context.Context, handle func(notifications.FeedEvent)) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.streamURL(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read feed: %w", err)
		}
		var ev notifications.FeedEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			continue
		}
		handle(ev)
	}
}

// StreamWithRetry keeps Stream running, reconnecting with exponential backoff,
// until ctx is cancelled. onReconnect runs after every re-established connection
// so the caller can pull the state it missed.
func (c *Client) StreamWithRetry(ctx context.Context, handle func(notifications.FeedEvent), onReconnect func()) error {
	first := true
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if !first && onReconnect != nil {
			onReconnect()
		}
		first = false
		err := c.Stream(ctx, handle)
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ctx.Err())
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(0),
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
