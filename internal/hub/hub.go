package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

// HandlerFunc processes one inbound event. Handlers run on the hub's single
// dispatch goroutine, so per-event execution is serialized; anything that
// escapes to another goroutine must not touch hub state directly.
type HandlerFunc func(ctx context.Context, conn *Connection, data json.RawMessage)

// DisconnectFunc runs on the dispatch goroutine when a connection ends.
type DisconnectFunc func(ctx context.Context, conn *Connection)

type inboundEvent struct {
	conn       *Connection
	name       string
	data       json.RawMessage
	disconnect bool
}

// Hub owns connection registration, room membership and event dispatch for
// the socket layer. All other realtime components are built on it.
type Hub struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*Connection
	rooms map[string]map[uuid.UUID]*Connection

	handlers      map[string]HandlerFunc
	onDisconnects []DisconnectFunc

	events chan inboundEvent
	logger *logrus.Entry
	base   *logger.Logger
}

// New creates an empty hub.
func New(log *logger.Logger) *Hub {
	return &Hub{
		conns:    make(map[uuid.UUID]*Connection),
		rooms:    make(map[string]map[uuid.UUID]*Connection),
		handlers: make(map[string]HandlerFunc),
		events:   make(chan inboundEvent, 1024),
		logger:   log.WithComponent("hub"),
		base:     log,
	}
}

// Handle registers the handler for an event name. Each name may be
// registered exactly once; a second registration is an error.
func (h *Hub) Handle(name string, fn HandlerFunc) error {
	if _, exists := h.handlers[name]; exists {
		return fmt.Errorf("handler for event %q already registered", name)
	}
	h.handlers[name] = fn
	return nil
}

// OnDisconnect registers a callback invoked on the dispatch goroutine when
// any connection terminates, before the hub forgets the connection.
func (h *Hub) OnDisconnect(fn DisconnectFunc) {
	h.onDisconnects = append(h.onDisconnects, fn)
}

// Attach registers a connection with the hub and wires its transport
// callbacks into the dispatch stream.
func (h *Hub) Attach(conn *Connection) {
	h.mu.Lock()
	h.conns[conn.ID()] = conn
	h.mu.Unlock()

	conn.onMessage = func(ctx context.Context, c *Connection, raw []byte) {
		h.enqueue(c, raw)
	}
	conn.onClose = func(c *Connection, err error) {
		h.events <- inboundEvent{conn: c, disconnect: true}
	}

	connectionsActive.Inc()
}

// enqueue validates the envelope shape and hands the event to the dispatch
// loop. Malformed frames are answered directly; they never reach handlers.
func (h *Hub) enqueue(conn *Connection, raw []byte) {
	name := gjson.GetBytes(raw, "event")
	if !name.Exists() || name.Type != gjson.String || name.Str == "" {
		h.logger.WithField("conn_id", conn.ID().String()).Warn("Dropping frame without event name")
		h.EmitTo(conn, types.EventError, &types.ErrorPayload{Message: "malformed event envelope"})
		return
	}

	var data json.RawMessage
	if d := gjson.GetBytes(raw, "data"); d.Exists() {
		data = json.RawMessage(d.Raw)
	}

	h.events <- inboundEvent{conn: conn, name: name.Str, data: data}
}

// Run consumes the dispatch stream until ctx is cancelled. Each event runs
// to completion before the next is dispatched.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Event dispatch loop started")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Event dispatch loop stopped")
			return
		case ev := <-h.events:
			h.dispatch(ctx, ev)
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, ev inboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.WithFields(logrus.Fields{
				"event":   ev.name,
				"conn_id": ev.conn.ID().String(),
				"panic":   fmt.Sprint(r),
			}).Error("Handler panicked")
			h.EmitTo(ev.conn, types.EventError, &types.ErrorPayload{Message: "internal error"})
		}
	}()

	if ev.disconnect {
		for _, fn := range h.onDisconnects {
			fn(ctx, ev.conn)
		}
		h.forget(ev.conn)
		return
	}

	handler, ok := h.handlers[ev.name]
	if !ok {
		h.logger.WithField("event", ev.name).Debug("No handler for event")
		return
	}

	eventsTotal.WithLabelValues(ev.name).Inc()
	handler(ctx, ev.conn, ev.data)
}

// forget removes a terminated connection from every room and the registry.
func (h *Hub) forget(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := conn.ID()
	if _, ok := h.conns[id]; !ok {
		return
	}
	delete(h.conns, id)
	for room, members := range h.rooms {
		delete(members, id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	connectionsActive.Dec()
}

// Join adds a connection to a room, creating the room implicitly.
func (h *Hub) Join(conn *Connection, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[uuid.UUID]*Connection)
		h.rooms[room] = members
	}
	members[conn.ID()] = conn
}

// Leave removes a connection from a room. Empty rooms are destroyed.
func (h *Hub) Leave(conn *Connection, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, conn.ID())
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Members returns a snapshot of the connections currently in a room.
func (h *Hub) Members(room string) []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.rooms[room]
	out := make([]*Connection, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// MemberCount returns how many connections are in a room.
func (h *Hub) MemberCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// EmitTo delivers one event to one connection.
func (h *Hub) EmitTo(conn *Connection, event string, payload interface{}) {
	if err := conn.Emit(event, payload); err != nil {
		emitFailures.Inc()
		h.logger.WithError(err).WithField("event", event).Warn("Emit failed")
	}
}

// EmitRoom delivers one event to every room member except the listed
// connection ids. Returns the number of connections reached.
func (h *Hub) EmitRoom(room, event string, payload interface{}, except ...uuid.UUID) int {
	skip := make(map[uuid.UUID]struct{}, len(except))
	for _, id := range except {
		skip[id] = struct{}{}
	}

	sent := 0
	for _, conn := range h.Members(room) {
		if _, excluded := skip[conn.ID()]; excluded {
			continue
		}
		h.EmitTo(conn, event, payload)
		sent++
	}
	return sent
}

// Broadcast delivers one event to every attached connection.
func (h *Hub) Broadcast(event string, payload interface{}) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.EmitTo(conn, event, payload)
	}
}
