// Package rooms turns friend-request handshakes into shared chat rooms and
// relays room-scoped messages. No request state is persisted: a pending
// request is purely a transient notification to the target's live
// connections.
package rooms

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ShrutiSoni4370/HealNest-sub001/internal/hub"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/presence"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

// Negotiator implements the request/accept/reject handshake and room chat.
type Negotiator struct {
	hub      *hub.Hub
	registry *presence.Registry
	logger   *logrus.Entry
}

// NewNegotiator creates a room negotiator bound to the hub and registry.
func NewNegotiator(h *hub.Hub, reg *presence.Registry, log *logger.Logger) *Negotiator {
	return &Negotiator{
		hub:      h,
		registry: reg,
		logger:   log.WithComponent("rooms"),
	}
}

// RegisterHandlers wires the negotiation events into the hub router.
func (n *Negotiator) RegisterHandlers(h *hub.Hub) error {
	handlers := map[string]hub.HandlerFunc{
		types.EventSendRequest:   n.handleSendRequest,
		types.EventCancelRequest: n.handleCancelRequest,
		types.EventAcceptRequest: n.handleAcceptRequest,
		types.EventRejectRequest: n.handleRejectRequest,
		types.EventSendMessage:   n.handleSendMessage,
		types.EventLeaveRoom:     n.handleLeaveRoom,
		types.EventRejoinRoom:    n.handleRejoinRoom,
	}
	for name, fn := range handlers {
		if err := h.Handle(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// RoomID derives the deterministic room identifier for a pair of users:
// sorted ids joined by an underscore, so both sides compute the same name.
func RoomID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

func (n *Negotiator) handleSendRequest(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var target types.RequestTargetPayload
	if err := json.Unmarshal(data, &target); err != nil || target.ID == "" {
		n.hub.EmitTo(conn, types.EventError, &types.ErrorPayload{Message: "target user is required"})
		return
	}

	fromID, ok := n.registry.ResolveID(conn)
	if !ok {
		n.logger.WithField("conn_id", conn.ID().String()).Warn("send_request from unregistered connection")
		return
	}
	if fromID == target.ID {
		n.logger.WithField("user_id", fromID).Warn("Ignoring self-targeted request")
		return
	}

	sender, cached := n.registry.Profile(fromID)
	if !cached || sender.FirstName == "" {
		sender = types.PlaceholderProfile(fromID)
	}

	for _, c := range n.registry.ConnectionsFor(target.ID) {
		n.hub.EmitTo(c, types.EventReceiveRequest, sender)
	}
}

func (n *Negotiator) handleCancelRequest(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.CancelRequestPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.TargetUserID == "" {
		n.hub.EmitTo(conn, types.EventError, &types.ErrorPayload{Message: "targetUserId is required"})
		return
	}

	fromID, ok := n.registry.ResolveID(conn)
	if !ok {
		return
	}

	for _, c := range n.registry.ConnectionsFor(payload.TargetUserID) {
		n.hub.EmitTo(c, types.EventRequestCancelled, map[string]string{"userId": fromID})
	}
}

func (n *Negotiator) handleAcceptRequest(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var requester types.RequestTargetPayload
	if err := json.Unmarshal(data, &requester); err != nil || requester.ID == "" {
		n.hub.EmitTo(conn, types.EventError, &types.ErrorPayload{Message: "requester is required"})
		return
	}

	accepterID, ok := n.registry.ResolveID(conn)
	if !ok {
		n.logger.WithField("conn_id", conn.ID().String()).Warn("accept_request from unregistered connection")
		return
	}

	room := RoomID(requester.ID, accepterID)

	// Either side may have zero live connections at accept time; joining
	// and notifying is a no-op for that side.
	requesterConns := n.registry.ConnectionsFor(requester.ID)
	accepterConns := n.registry.ConnectionsFor(accepterID)

	for _, c := range requesterConns {
		n.hub.Join(c, room)
	}
	for _, c := range accepterConns {
		n.hub.Join(c, room)
	}

	for _, c := range requesterConns {
		n.hub.EmitTo(c, types.EventRoomStarted, map[string]string{"room": room, "otherUser": accepterID})
	}
	for _, c := range accepterConns {
		n.hub.EmitTo(c, types.EventRoomStarted, map[string]string{"room": room, "otherUser": requester.ID})
	}

	n.logger.WithFields(logrus.Fields{"room": room, "requester": requester.ID, "accepter": accepterID}).Info("Room started")
}

func (n *Negotiator) handleRejectRequest(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.RejectRequestPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		// Some clients send the requester id as a bare string.
		var id string
		if err := json.Unmarshal(data, &id); err != nil || id == "" {
			n.hub.EmitTo(conn, types.EventError, &types.ErrorPayload{Message: "requester userId is required"})
			return
		}
		payload.UserID = id
	}

	rejecterID, _ := n.registry.ResolveID(conn)
	for _, c := range n.registry.ConnectionsFor(payload.UserID) {
		n.hub.EmitTo(c, types.EventRequestRejected, map[string]string{"userId": rejecterID})
	}
}

func (n *Negotiator) handleSendMessage(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.ChatMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		n.hub.EmitTo(conn, types.EventError, &types.ErrorPayload{Message: "room is required"})
		return
	}

	senderID, ok := n.registry.ResolveID(conn)
	if !ok {
		return
	}

	// Exclude every one of the sender's connections, not just the one that
	// sent the message, so multi-device senders don't echo to themselves.
	except := make([]uuid.UUID, 0, 2)
	for _, c := range n.registry.ConnectionsFor(senderID) {
		except = append(except, c.ID())
	}

	n.hub.EmitRoom(payload.Room, types.EventReceiveMessage, map[string]interface{}{
		"room":      payload.Room,
		"message":   payload.Message,
		"sender":    senderID,
		"timestamp": time.Now().UTC(),
	}, except...)
}

func (n *Negotiator) handleLeaveRoom(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.LeaveRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		n.hub.EmitTo(conn, types.EventError, &types.ErrorPayload{Message: "room is required"})
		return
	}

	leaverID, ok := n.registry.ResolveID(conn)
	if !ok {
		return
	}

	// Snapshot membership before removal so the leaver's other devices are
	// still notified to reset their state.
	members := n.hub.Members(payload.Room)

	// Group the snapshot by distinct user: one notification per user, not
	// per connection.
	byUser := make(map[string][]*hub.Connection)
	for _, c := range members {
		id, ok := n.registry.ResolveID(c)
		if !ok {
			continue
		}
		byUser[id] = append(byUser[id], c)
	}

	for _, c := range n.registry.ConnectionsFor(leaverID) {
		n.hub.Leave(c, payload.Room)
	}

	for userID, conns := range byUser {
		payloadOut := map[string]interface{}{
			"room":     payload.Room,
			"userId":   leaverID,
			"selfLeft": userID == leaverID,
		}
		for _, c := range conns {
			n.hub.EmitTo(c, types.EventUserLeftRoom, payloadOut)
		}
	}

	n.logger.WithField("user_id", leaverID).WithField("room", payload.Room).Info("User left room")
}

func (n *Negotiator) handleRejoinRoom(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.RejoinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		n.hub.EmitTo(conn, types.EventError, &types.ErrorPayload{Message: "room is required"})
		return
	}

	userID := payload.UserID
	if resolved, ok := n.registry.ResolveID(conn); ok {
		userID = resolved
	}

	n.hub.Join(conn, payload.Room)

	if n.hub.MemberCount(payload.Room) > 1 {
		n.hub.EmitRoom(payload.Room, types.EventUserRejoined, map[string]string{
			"room":   payload.Room,
			"userId": userID,
		}, conn.ID())
	}
}
