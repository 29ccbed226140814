// Package matrix implements transport.Client over the Matrix client-server API.
package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	bgerrors "github.com/randalmurphal/botgraph/pkg/botgraph/errors"
	"github.com/randalmurphal/botgraph/pkg/botgraph/transport"
)

const apiPrefix = "/_matrix/client/v3"

// ErrNotLoggedIn is returned by authenticated calls made before Login or SetToken.
var ErrNotLoggedIn = errors.New("matrix: not logged in")

// ErrRoomNotFound is returned by JoinPublic when the directory has no match.
var ErrRoomNotFound = errors.New("matrix: public room not found")

// Client talks to one homeserver as one user.
type Client struct {
	server      *url.URL
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	logger      *slog.Logger
	pollTimeout time.Duration

	mu     sync.RWMutex
	token  string
	userID string
}

var _ transport.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for breaker state changes and request failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithPollTimeout sets the server-side long-poll timeout for sync.
func WithPollTimeout(d time.Duration) Option {
	return func(c *Client) { c.pollTimeout = d }
}

// WithBreakerSettings replaces the circuit breaker configuration.
func WithBreakerSettings(s gobreaker.Settings) Option {
	return func(c *Client) { c.breaker = gobreaker.NewCircuitBreaker(s) }
}

// New creates a client for the homeserver at server, e.g. "https://matrix.org".
func New(server string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q needs a scheme and host", server)
	}

	c := &Client{
		server:      u,
		logger:      slog.Default(),
		pollTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.pollTimeout + 30*time.Second}
	}
	if c.breaker == nil {
		c.breaker = gobreaker.NewCircuitBreaker(DefaultBreakerSettings("matrix", c.logger))
	}
	return c, nil
}

// DefaultBreakerSettings trips after five requests with at least 80% failures.
// Client errors (4xx other than 429) don't count as failures.
func DefaultBreakerSettings(name string, logger *slog.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			}
		},
		IsSuccessful: isBreakerSuccess,
	}
}

func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var httpErr *bgerrors.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode < 500 && httpErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// UserID returns the logged-in user id.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// SetToken installs an existing access token instead of logging in.
func (c *Client) SetToken(userID, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.token = token
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login authenticates with a password and stores the access token.
func (c *Client) Login(ctx context.Context, user, password string) error {
	req := map[string]any{
		"type":       "m.login.password",
		"identifier": map[string]string{"type": "m.id.user", "user": user},
		"password":   password,
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		UserID      string `json:"user_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/login", nil, req, &resp, false); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.SetToken(resp.UserID, resp.AccessToken)
	return nil
}

// SetDisplayName sets the bot's profile display name.
func (c *Client) SetDisplayName(ctx context.Context, name string) error {
	path := "/profile/" + url.PathEscape(c.UserID()) + "/displayname"
	return c.do(ctx, http.MethodPut, path, nil, map[string]string{"displayname": name}, nil, true)
}

func (c *Client) sendMessage(ctx context.Context, roomID string, content map[string]any) error {
	path := fmt.Sprintf("/rooms/%s/send/m.room.message/%s", url.PathEscape(roomID), uuid.NewString())
	return c.do(ctx, http.MethodPut, path, nil, content, nil, true)
}

// Send implements transport.Client.
func (c *Client) Send(ctx context.Context, roomID, text string) error {
	return c.sendMessage(ctx, roomID, map[string]any{"msgtype": "m.text", "body": text})
}

// SendFormatted implements transport.Client.
func (c *Client) SendFormatted(ctx context.Context, roomID, html, plain string) error {
	return c.sendMessage(ctx, roomID, map[string]any{
		"msgtype":        "m.text",
		"body":           plain,
		"format":         "org.matrix.custom.html",
		"formatted_body": html,
	})
}

// SendAction implements transport.Client.
func (c *Client) SendAction(ctx context.Context, roomID, text string) error {
	return c.sendMessage(ctx, roomID, map[string]any{"msgtype": "m.emote", "body": text})
}

// Join implements transport.Client. roomID may also be an alias.
func (c *Client) Join(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodPost, "/join/"+url.PathEscape(roomID), nil, struct{}{}, nil, true)
}

// JoinPublic implements transport.Client. Room ids and aliases are joined
// directly; anything else is looked up in the public directory by name.
func (c *Client) JoinPublic(ctx context.Context, name string) error {
	if strings.HasPrefix(name, "!") || strings.HasPrefix(name, "#") {
		return c.Join(ctx, name)
	}
	rooms, err := c.Directory(ctx, name, 20)
	if err != nil {
		return err
	}
	for _, r := range rooms {
		if r.Matches(name) {
			return c.Join(ctx, r.RoomID)
		}
	}
	return fmt.Errorf("%w: %s", ErrRoomNotFound, name)
}

// Leave implements transport.Client.
func (c *Client) Leave(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(roomID)+"/leave", nil, struct{}{}, nil, true)
}

// Kick implements transport.Client.
func (c *Client) Kick(ctx context.Context, roomID, userID, reason string) error {
	body := map[string]string{"user_id": userID, "reason": reason}
	return c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(roomID)+"/kick", nil, body, nil, true)
}

// Ban implements transport.Client.
func (c *Client) Ban(ctx context.Context, roomID, userID, reason string) error {
	body := map[string]string{"user_id": userID, "reason": reason}
	return c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(roomID)+"/ban", nil, body, nil, true)
}

// Typing implements transport.Client.
func (c *Client) Typing(ctx context.Context, roomID string, timeout time.Duration) error {
	body := map[string]any{"typing": timeout > 0}
	if timeout > 0 {
		body["timeout"] = timeout.Milliseconds()
	}
	path := fmt.Sprintf("/rooms/%s/typing/%s", url.PathEscape(roomID), url.PathEscape(c.UserID()))
	return c.do(ctx, http.MethodPut, path, nil, body, nil, true)
}

// Directory implements transport.Client.
func (c *Client) Directory(ctx context.Context, filter string, limit int) ([]transport.PublicRoom, error) {
	req := map[string]any{}
	if limit > 0 {
		req["limit"] = limit
	}
	if filter != "" {
		req["filter"] = map[string]string{"generic_search_term": filter}
	}
	var resp struct {
		Chunk []struct {
			RoomID         string `json:"room_id"`
			Name           string `json:"name"`
			CanonicalAlias string `json:"canonical_alias"`
			Topic          string `json:"topic"`
			Members        int    `json:"num_joined_members"`
		} `json:"chunk"`
	}
	if err := c.do(ctx, http.MethodPost, "/publicRooms", nil, req, &resp, true); err != nil {
		return nil, err
	}
	rooms := make([]transport.PublicRoom, 0, len(resp.Chunk))
	for _, r := range resp.Chunk {
		rooms = append(rooms, transport.PublicRoom{
			RoomID:  r.RoomID,
			Name:    r.Name,
			Alias:   r.CanonicalAlias,
			Topic:   r.Topic,
			Members: r.Members,
		})
	}
	return rooms, nil
}

// JoinedRooms implements transport.Client.
func (c *Client) JoinedRooms(ctx context.Context) ([]string, error) {
	var resp struct {
		JoinedRooms []string `json:"joined_rooms"`
	}
	if err := c.do(ctx, http.MethodGet, "/joined_rooms", nil, nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.JoinedRooms, nil
}

// do sends one API request through the circuit breaker.
// body is JSON-encoded when non-nil; result is decoded when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any, auth bool) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, method, path, query, body, result, auth)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return bgerrors.Transient(err, "matrix "+path)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, result any, auth bool) error {
	// Path segments are escaped by callers, so the URL is assembled as a string.
	target := c.server.String() + apiPrefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		token := c.accessToken()
		if token == "" {
			return bgerrors.Permanent(ErrNotLoggedIn, "matrix "+path)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if ctx.Err() == nil && errors.As(err, &netErr) && netErr.Timeout() {
			return &bgerrors.TimeoutError{Operation: method + " " + path, Duration: c.httpClient.Timeout}
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, path, data)
	}
	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

func decodeError(status int, endpoint string, data []byte) error {
	var body struct {
		ErrCode      string `json:"errcode"`
		Error        string `json:"error"`
		RetryAfterMS int64  `json:"retry_after_ms"`
	}
	_ = json.Unmarshal(data, &body)
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &bgerrors.HTTPError{
		StatusCode: status,
		ErrCode:    body.ErrCode,
		Message:    msg,
		Endpoint:   endpoint,
		RetryAfter: time.Duration(body.RetryAfterMS) * time.Millisecond,
	}
}
