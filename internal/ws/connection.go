package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"supportdesk/internal/protocol"
	"sync"
	"time"
)

// Conn is the part of a websocket connection the transport needs.
type Conn interface {
	Close() error
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
}

type pinger interface {
	Ping() error
}

// Update is reported to the transport owner in arrival order. It carries
// either a push Event or, with a nil Event, a connection state change.
type Update struct {
	Event     protocol.Event
	Connected bool
	Err       error
}

// Connection runs one established push channel until it fails or ctx ends.
type Connection struct {
	ws           Conn
	out          chan<- Update
	logger       *slog.Logger
	pingInterval time.Duration
	errorCh      chan error
}

func NewConnection(ws Conn, out chan<- Update, logger *slog.Logger, pingInterval time.Duration) *Connection {
	return &Connection{
		ws:           ws,
		out:          out,
		logger:       logger,
		pingInterval: pingInterval,
		errorCh:      make(chan error, 2),
	}
}

// Handle requests the presence snapshot, then forwards every valid push
// event until the connection breaks or ctx is cancelled. The socket is
// always closed on return.
func (c *Connection) Handle(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := c.ws.WriteJSON(protocol.GetOnlineUsers()); err != nil {
		_ = c.ws.Close()
		return fmt.Errorf("failed to request online users: %w", err)
	}

	var wg sync.WaitGroup
	wg.Go(func() {
		c.errorCh <- c.pumpMessages(ctx)
		cancel()
	})

	if p, ok := c.ws.(pinger); ok && c.pingInterval > 0 {
		wg.Go(func() {
			c.errorCh <- c.keepAlive(ctx, p)
			cancel()
		})
	}

	var err error
	select {
	case err = <-c.errorCh:
	case <-ctx.Done():
	}
	_ = c.ws.Close()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (c *Connection) pumpMessages(ctx context.Context) error {
	for {
		var frame protocol.Frame
		if err := c.ws.ReadJSON(&frame); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.logger.Warn("dropping malformed push frame", "error", err)
				continue
			}
			return err
		}

		ev, err := protocol.Decode(frame)
		if err != nil {
			c.logger.Warn("dropping push frame", "event", frame.Event, "error", err)
			continue
		}

		select {
		case c.out <- Update{Event: ev}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Connection) keepAlive(ctx context.Context, p pinger) error {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.Ping(); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
