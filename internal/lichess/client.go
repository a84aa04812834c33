package lichess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-lichess-bot/internal/domain"
	"github.com/valyala/fasthttp"
)

const userAgent = "cheese-lichess-bot"

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// Client talks to the lichess Bot API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	stream  *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the dialer of both the request and the stream client.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) {
		c.http.Dial = dial
		c.stream.Dial = dial
	}
}

// NewClient builds a client authenticated with a personal bot token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	bearer := "Bearer " + strings.TrimSpace(token)
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &fasthttp.Client{
			Name:            userAgent,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxConnsPerHost: 64,
		},
		// ndjson streams stay open for the whole game, so no read timeout.
		stream: &fasthttp.Client{
			Name:               userAgent,
			WriteTimeout:       10 * time.Second,
			MaxConnsPerHost:    64,
			StreamResponseBody: true,
		},
		headers:        func() map[string]string { return map[string]string{"Authorization": bearer} },
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Title    string `json:"title,omitempty"`
}

// GetAccount resolves the identity behind the token.
func (c *Client) GetAccount(ctx context.Context) (domain.Identity, error) {
	var acc account
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/account", nil, &acc, true); err != nil {
		return domain.Identity{}, err
	}
	if strings.TrimSpace(acc.ID) == "" && strings.TrimSpace(acc.Username) == "" {
		return domain.Identity{}, errors.New("lichess account response has no id")
	}
	return domain.Identity{ID: acc.ID, Username: acc.Username}, nil
}

func (c *Client) AcceptChallenge(ctx context.Context, challengeID string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/challenge/"+challengeID+"/accept", nil, nil, false)
}

// MakeMove submits a move in UCI notation.
func (c *Client) MakeMove(ctx context.Context, gameID, uci string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/bot/game/"+gameID+"/move/"+uci, nil, nil, false)
}

// PostChat writes to the player or spectator room of a game.
func (c *Client) PostChat(ctx context.Context, gameID, room, text string) error {
	form := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(form)
	form.Set("room", room)
	form.Set("text", text)
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/bot/game/"+gameID+"/chat", form, nil, false)
}

// StreamEvents opens the account-wide event stream.
func (c *Client) StreamEvents(ctx context.Context) (EventStream, error) {
	return c.openStream(ctx, "/api/stream/event")
}

// StreamGame opens the state stream of one game.
func (c *Client) StreamGame(ctx context.Context, gameID string) (EventStream, error) {
	return c.openStream(ctx, "/api/bot/game/stream/"+gameID)
}

func (c *Client) prepare(req *fasthttp.Request, method, path string) {
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
}

// doJSON sends form (may be nil) and decodes a JSON reply into out (may be nil).
func (c *Client) doJSON(ctx context.Context, method, path string, form *fasthttp.Args, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	c.prepare(req, method, path)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.SetContentType("application/x-www-form-urlencoded")
		req.SetBody(form.QueryString())
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("%s %s: %w", method, path, err)
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			err := &APIError{Status: status, Path: path, Body: truncate(string(resp.Body()), 512)}
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode %s response: %w", path, err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

// APIError is a non-2xx lichess reply.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lichess api error: path=%s status=%d body=%s", e.Path, e.Status, e.Body)
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
