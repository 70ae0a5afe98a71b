package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
)

// MessageHandler is the callback executed when a frame is received.
type MessageHandler func(ctx context.Context, conn *Connection, raw []byte)

// CloseHandler is the callback executed once when the connection terminates.
type CloseHandler func(conn *Connection, err error)

// ConnectionConfig tunes per-connection transport behavior.
type ConnectionConfig struct {
	ReadTimeout time.Duration
	SendBuffer  int
}

// Envelope is the wire format for every frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Connection represents a single live socket. A nil websocket produces a
// detached connection: frames queue in the send buffer and no pumps run,
// which is how in-process callers (and tests) exercise the hub.
type Connection struct {
	id     uuid.UUID
	sock   *websocket.Conn
	config ConnectionConfig
	send   chan []byte

	onMessage MessageHandler
	onClose   CloseHandler

	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	logger *logrus.Entry
}

// NewConnection wraps an accepted websocket in a managed connection.
func NewConnection(parentCtx context.Context, sock *websocket.Conn, cfg ConnectionConfig, log *logger.Logger) *Connection {
	id := uuid.New()
	ctx, cancel := context.WithCancel(parentCtx)

	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Minute
	}

	return &Connection{
		id:     id,
		sock:   sock,
		config: cfg,
		send:   make(chan []byte, cfg.SendBuffer),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		logger: log.WithConnection(id.String()),
	}
}

// ID returns the unique identifier of the connection.
func (c *Connection) ID() uuid.UUID {
	return c.id
}

// Context returns the connection-scoped context, cancelled on close.
func (c *Connection) Context() context.Context {
	return c.ctx
}

// Run starts the read and write pumps. It is a no-op for detached
// connections.
func (c *Connection) Run() {
	if c.sock == nil {
		return
	}
	go c.readPump()
	go c.writePump()
	c.logger.Info("Connection established")
}

// readPump pumps frames from the websocket to the message handler.
func (c *Connection) readPump() {
	var readErr error
	defer func() {
		c.Close(readErr)
	}()

	for {
		readCtx, cancelRead := context.WithTimeout(c.ctx, c.config.ReadTimeout)
		typ, r, err := c.sock.Reader(readCtx)
		if err != nil {
			readErr = err
			cancelRead()
			return
		}
		if typ != websocket.MessageText && typ != websocket.MessageBinary {
			cancelRead()
			continue
		}
		raw, err := io.ReadAll(r)
		cancelRead()
		if err != nil {
			readErr = err
			return
		}
		if c.onMessage != nil {
			c.onMessage(c.ctx, c, raw)
		}
	}
}

// writePump pumps frames from the send channel to the websocket.
func (c *Connection) writePump() {
	var writeErr error
	defer func() {
		c.Close(writeErr)
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				c.sock.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := c.sock.Write(c.ctx, websocket.MessageText, frame); err != nil {
				writeErr = err
				return
			}
		case <-c.ctx.Done():
			c.sock.Close(websocket.StatusNormalClosure, "shutting down")
			return
		}
	}
}

// Send queues a raw frame for delivery. Safe for concurrent use.
func (c *Connection) Send(frame []byte) error {
	select {
	case c.send <- frame:
		return nil
	case <-c.ctx.Done():
		return fmt.Errorf("connection %s is closed", c.id)
	default:
		return fmt.Errorf("connection %s send buffer full", c.id)
	}
}

// Emit marshals an event envelope and queues it for delivery.
func (c *Connection) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", event, err)
	}
	return c.Send(frame)
}

// NextOutbound pops the next queued outbound envelope, if any. Detached
// connections have no write pump draining the queue, so in-process callers
// use this to observe what would have been delivered.
func (c *Connection) NextOutbound() (*Envelope, bool) {
	select {
	case frame := <-c.send:
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			return nil, false
		}
		return &env, true
	default:
		return nil, false
	}
}

// Close terminates the connection exactly once and fires the close handler.
func (c *Connection) Close(err error) {
	c.closeOnce.Do(func() {
		if err != nil {
			c.logger.WithError(err).Info("Connection closing")
		}
		c.cancel()
		if c.sock != nil {
			c.sock.Close(websocket.StatusNormalClosure, "")
		}
		if c.onClose != nil {
			c.onClose(c, err)
		}
		close(c.done)
	})
}

// Done returns a channel closed when the connection is fully terminated.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}
