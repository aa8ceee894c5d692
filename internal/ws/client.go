// Package ws is the push channel transport. A Client owns at most one live
// websocket at a time and reconnects with exponential backoff when allowed.
package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

type DialFunc func(ctx context.Context) (Conn, error)

type Config struct {
	URL          string
	Header       http.Header
	PingInterval time.Duration
	// ReconnectMin and ReconnectMax bound the backoff between attempts.
	// A zero ReconnectMax disables reconnecting.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

type Client struct {
	cfg    Config
	dial   DialFunc
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	c := &Client{cfg: cfg, logger: logger}
	c.dial = c.dialGorilla
	return c
}

// NewClientWithDialer is NewClient with a custom dial function.
func NewClientWithDialer(cfg Config, dial DialFunc, logger *slog.Logger) *Client {
	return &Client{cfg: cfg, dial: dial, logger: logger}
}

// Run connects and pumps updates into out until ctx is done. Every
// successful connect is reported with Connected=true, every loss with
// Connected=false. With reconnecting disabled Run returns the first
// connection error; otherwise it only returns once ctx is done.
func (c *Client) Run(ctx context.Context, out chan<- Update) error {
	delay := c.cfg.ReconnectMin
	for attempt := 1; ; attempt++ {
		ws, err := c.dial(ctx)
		if err == nil {
			delay = c.cfg.ReconnectMin
			if !c.report(ctx, out, Update{Connected: true}) {
				_ = ws.Close()
				return nil
			}
			c.logger.Info("push channel connected", "url", c.cfg.URL, "attempt", attempt)
			err = NewConnection(ws, out, c.logger, c.cfg.PingInterval).Handle(ctx)
		}
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = fmt.Errorf("push channel closed")
		}

		c.logger.Warn("push channel lost", "url", c.cfg.URL, "error", err)
		if !c.report(ctx, out, Update{Connected: false, Err: err}) {
			return nil
		}
		if c.cfg.ReconnectMax <= 0 {
			return err
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
		delay = nextDelay(delay, c.cfg.ReconnectMin, c.cfg.ReconnectMax)
	}
}

func (c *Client) report(ctx context.Context, out chan<- Update, u Update) bool {
	select {
	case out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

func nextDelay(cur, minDelay, maxDelay time.Duration) time.Duration {
	if cur < minDelay {
		cur = minDelay
	}
	if cur <= 0 {
		cur = time.Second
	}
	next := cur * 2
	if next > maxDelay {
		next = maxDelay
	}
	return next
}

func (c *Client) dialGorilla(ctx context.Context) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", c.cfg.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	return newGorillaConn(conn, c.cfg.PingInterval), nil
}

// gorillaConn extends the read deadline on every frame and pong, so a silent
// peer is detected after two ping intervals.
type gorillaConn struct {
	*websocket.Conn
	readWait time.Duration
}

func newGorillaConn(conn *websocket.Conn, pingInterval time.Duration) *gorillaConn {
	g := &gorillaConn{Conn: conn}
	if pingInterval > 0 {
		g.readWait = 2 * pingInterval
		_ = conn.SetReadDeadline(time.Now().Add(g.readWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(g.readWait))
		})
	}
	return g
}

func (g *gorillaConn) ReadJSON(v interface{}) error {
	err := g.Conn.ReadJSON(v)
	if g.readWait > 0 {
		_ = g.SetReadDeadline(time.Now().Add(g.readWait))
	}
	return err
}

func (g *gorillaConn) Ping() error {
	return g.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}
