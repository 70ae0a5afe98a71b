// Package presence tracks which user identities are live on which socket
// connections. A user may be represented by several simultaneous
// connections (multiple devices or tabs); the registry keeps both
// directions of that mapping plus an opportunistic display-name cache.
package presence

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ShrutiSoni4370/HealNest-sub001/internal/hub"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/interfaces"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

// Registry maintains the presence maps. Invariant: a user id appears in
// userConns iff it has at least one live connection; the profile cache is
// evicted together with the last connection.
type Registry struct {
	mu        sync.RWMutex
	connUsers map[uuid.UUID]string
	userConns map[string]map[uuid.UUID]*hub.Connection
	profiles  map[string]*types.UserProfile

	hub      *hub.Hub
	resolver interfaces.ProfileResolver
	logger   *logrus.Entry
}

// NewRegistry creates an empty presence registry bound to a hub.
func NewRegistry(h *hub.Hub, log *logger.Logger) *Registry {
	return &Registry{
		connUsers: make(map[uuid.UUID]string),
		userConns: make(map[string]map[uuid.UUID]*hub.Connection),
		profiles:  make(map[string]*types.UserProfile),
		hub:       h,
		logger:    log.WithComponent("presence"),
	}
}

// UseResolver installs a profile resolver consulted when a connection
// announces itself without display fields.
func (r *Registry) UseResolver(resolver interfaces.ProfileResolver) {
	r.resolver = resolver
}

// RegisterHandlers wires the presence events into the hub router.
func (r *Registry) RegisterHandlers(h *hub.Hub) error {
	if err := h.Handle(types.EventUserOnline, r.handleUserOnline); err != nil {
		return err
	}
	h.OnDisconnect(func(ctx context.Context, conn *hub.Connection) {
		r.Deregister(conn)
	})
	return nil
}

func (r *Registry) handleUserOnline(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.UserOnlinePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		r.logger.WithField("conn_id", conn.ID().String()).Warn("Rejecting malformed user_online payload")
		r.hub.EmitTo(conn, types.EventError, &types.ErrorPayload{Message: "userId is required"})
		return
	}

	var profile *types.UserProfile
	if payload.FirstName != "" || payload.LastName != "" || payload.UserType != "" {
		profile = &types.UserProfile{
			ID:        payload.UserID,
			FirstName: payload.FirstName,
			LastName:  payload.LastName,
			UserType:  payload.UserType,
		}
	}

	r.Register(conn, payload.UserID, payload.UserType, profile)

	// Announcements missing display fields or the user type get their
	// snapshot filled in from the resolver. Off the dispatch loop;
	// CacheProfile drops the result if the user went offline in the
	// meantime.
	if r.resolver != nil && (profile == nil || payload.UserType == "") {
		if p, ok := r.Profile(payload.UserID); !ok || p.FirstName == "" || p.UserType == "" {
			go r.resolveProfile(ctx, payload.UserID)
		}
	}
}

func (r *Registry) resolveProfile(ctx context.Context, userID string) {
	profile, err := r.resolver.ResolveUserProfile(ctx, userID)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", userID).Warn("Profile lookup failed")
		return
	}
	r.CacheProfile(profile)

	// A type-less announcement deferred the role-group join until the role
	// was known. Join every connection the user still has.
	if profile.UserType == "" {
		return
	}
	for _, c := range r.ConnectionsFor(userID) {
		r.hub.Join(c, types.RoleGroup(profile.UserType, userID))
	}
}

// Register adds a connection to both maps, joins the per-type broadcast
// group, and broadcasts the updated online list. Idempotent for a
// connection already registered to the same user.
func (r *Registry) Register(conn *hub.Connection, userID string, userType types.UserType, profile *types.UserProfile) {
	r.mu.Lock()
	if prev, ok := r.connUsers[conn.ID()]; ok && prev != userID {
		// Connection re-announced as a different user: detach it from the
		// previous identity first.
		r.detachLocked(conn, prev)
	}
	r.connUsers[conn.ID()] = userID

	conns, ok := r.userConns[userID]
	if !ok {
		conns = make(map[uuid.UUID]*hub.Connection)
		r.userConns[userID] = conns
	}
	conns[conn.ID()] = conn

	if profile != nil {
		r.profiles[userID] = profile
	} else if _, cached := r.profiles[userID]; !cached && userType != "" {
		r.profiles[userID] = &types.UserProfile{ID: userID, UserType: userType}
	}

	// Never guess the role group. An unknown type defers the join until a
	// resolved profile supplies the role.
	role := userType
	if role == "" {
		if cached, ok := r.profiles[userID]; ok {
			role = cached.UserType
		}
	}
	r.mu.Unlock()

	if role != "" {
		r.hub.Join(conn, types.RoleGroup(role, userID))
	}

	r.logger.WithField("user_id", userID).WithField("conn_id", conn.ID().String()).Info("User connection registered")
	r.broadcastOnline()
}

// Resolve returns the user identity represented by a connection.
func (r *Registry) Resolve(conn *hub.Connection) (*types.UserProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.connUsers[conn.ID()]
	if !ok {
		return nil, false
	}
	if profile, cached := r.profiles[userID]; cached {
		return profile, true
	}
	return &types.UserProfile{ID: userID}, true
}

// ResolveID returns just the user id for a connection.
func (r *Registry) ResolveID(conn *hub.Connection) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.connUsers[conn.ID()]
	return userID, ok
}

// Profile returns the cached display snapshot for a user id, if any.
func (r *Registry) Profile(userID string) (*types.UserProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	return p, ok
}

// CacheProfile stores a resolved display snapshot for an online user. The
// entry is dropped with the user's last connection, so offline users are
// never cached.
func (r *Registry) CacheProfile(profile *types.UserProfile) {
	if profile == nil || profile.ID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, online := r.userConns[profile.ID]; online {
		r.profiles[profile.ID] = profile
	}
}

// ConnectionsFor returns a snapshot of all live connections for a user.
// Empty slice when the user is offline.
func (r *Registry) ConnectionsFor(userID string) []*hub.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.userConns[userID]
	out := make([]*hub.Connection, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// OnlineUsers returns the ids of every user with at least one connection.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.userConns))
	for id := range r.userConns {
		ids = append(ids, id)
	}
	return ids
}

// Deregister removes a connection. When the user's connection set becomes
// empty the identity and its cached profile are dropped and the online
// list is rebroadcast. Calling it again for the same handle is a no-op.
func (r *Registry) Deregister(conn *hub.Connection) {
	r.mu.Lock()
	userID, ok := r.connUsers[conn.ID()]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.connUsers, conn.ID())
	r.detachLocked(conn, userID)
	r.mu.Unlock()

	r.logger.WithField("user_id", userID).WithField("conn_id", conn.ID().String()).Info("User connection deregistered")
	r.broadcastOnline()
}

// detachLocked removes conn from userID's set and evicts the identity when
// the set empties. Caller holds r.mu.
func (r *Registry) detachLocked(conn *hub.Connection, userID string) {
	conns, ok := r.userConns[userID]
	if !ok {
		return
	}
	delete(conns, conn.ID())
	if len(conns) == 0 {
		delete(r.userConns, userID)
		delete(r.profiles, userID)
	}
}

// broadcastOnline pushes the current online-identity list to everyone.
func (r *Registry) broadcastOnline() {
	r.hub.Broadcast(types.EventOnlineUsers, r.OnlineUsers())
}
