package wsclient

import (
	"context"
	stderrors "errors"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
)

// State is the observable connection state. Every transition is reported
// through OnState so the application can re-join rooms after a reconnect:
// the server keeps no subscription state across connections.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateError        State = "error"
)

// ErrReauthRequired means the refresh budget is spent and the application
// must obtain a fresh credential through a full re-authentication.
var ErrReauthRequired = stderrors.New("wsclient: credential refresh budget exhausted, re-authentication required")

// TokenSource supplies the bearer credential and its refresh path. Refresh
// is the external token-refresh collaborator; the client never mints
// credentials itself.
type TokenSource interface {
	Token() string
	Refresh(ctx context.Context) (string, error)
}

// Event is one inbound frame.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Options struct {
	// URL of the chat endpoint, e.g. wss://host/ws/chat.
	URL string

	TokenSource TokenSource

	// OnState observes connection-state transitions. Optional.
	OnState func(State)

	// OnEvent receives every inbound frame. Optional.
	OnEvent func(Event)

	// ExpirySlack triggers a proactive refresh when the credential expires
	// within this window. Defaults to 30s.
	ExpirySlack time.Duration
}

const maxLifecycleRefreshes = 3

// Client maintains one chat connection. Connect may be called again after a
// disconnect; the refresh budget spans the client's whole lifecycle.
type Client struct {
	opts Options

	mu        sync.Mutex
	conn      *websocket.Conn
	refreshes int
	closed    bool
}

func New(opts Options) *Client {
	if opts.ExpirySlack <= 0 {
		opts.ExpirySlack = 30 * time.Second
	}
	return &Client{opts: opts}
}

// Connect dials the gateway. On an auth rejection it refreshes the
// credential at most once and redials; across the client's lifecycle at most
// three refreshes happen before ErrReauthRequired.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	token := c.opts.TokenSource.Token()
	if expiresWithin(token, c.opts.ExpirySlack) {
		refreshed, err := c.refresh(ctx)
		if err != nil {
			c.setState(StateError)
			return err
		}
		token = refreshed
	}

	conn, authFailed, err := c.dial(ctx, token)
	if err != nil && authFailed {
		// One refresh per failure, then one redial. A second rejection is
		// not retried here.
		token, err = c.refresh(ctx)
		if err != nil {
			c.setState(StateError)
			return err
		}
		conn, _, err = c.dial(ctx, token)
	}
	if err != nil {
		c.setState(StateError)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.closed = false
	c.mu.Unlock()

	c.setState(StateConnected)
	go c.readLoop(conn)
	return nil
}

func (c *Client) dial(ctx context.Context, token string) (conn *websocket.Conn, authFailed bool, err error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.opts.URL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, true, fmt.Errorf("wsclient: connect rejected: %w", err)
		}
		return nil, false, fmt.Errorf("wsclient: dial failed: %w", err)
	}
	return conn, false, nil
}

func (c *Client) refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.refreshes >= maxLifecycleRefreshes {
		c.mu.Unlock()
		return "", ErrReauthRequired
	}
	c.refreshes++
	c.mu.Unlock()

	token, err := c.opts.TokenSource.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("wsclient: credential refresh failed: %w", err)
	}
	return token, nil
}

// Send emits one application event.
func (c *Client) Send(eventType string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("wsclient: marshal %s: %w", eventType, err)
	}
	frame, err := json.Marshal(Event{Type: eventType, Data: raw})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return stderrors.New("wsclient: not connected")
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close tears the connection down. The next state is disconnected, not
// error, so observers can distinguish a deliberate close.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.closed = true
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			deliberate := c.closed
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()

			if deliberate {
				c.setState(StateDisconnected)
			} else {
				conn.Close()
				c.setState(StateDisconnected)
			}
			return
		}

		if c.opts.OnEvent == nil {
			continue
		}
		var ev Event
		if json.Unmarshal(raw, &ev) == nil {
			c.opts.OnEvent(ev)
		}
	}
}

func (c *Client) setState(s State) {
	if c.opts.OnState != nil {
		c.opts.OnState(s)
	}
}

// expiresWithin inspects the credential's exp claim without verifying the
// signature; verification is the server's job. Unparseable tokens are left
// to the server to reject.
func expiresWithin(token string, slack time.Duration) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) < slack
}
