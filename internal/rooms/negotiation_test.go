package rooms

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShrutiSoni4370/HealNest-sub001/internal/hub"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/presence"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

func newTestLogger() *logger.Logger {
	return logger.New("panic")
}

type fixture struct {
	hub      *hub.Hub
	registry *presence.Registry
	neg      *Negotiator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := newTestLogger()
	h := hub.New(log)
	reg := presence.NewRegistry(h, log)
	return &fixture{hub: h, registry: reg, neg: NewNegotiator(h, reg, log)}
}

func (f *fixture) connect(t *testing.T, userID string, userType types.UserType) *hub.Connection {
	t.Helper()
	conn := hub.NewConnection(context.Background(), nil, hub.ConnectionConfig{}, newTestLogger())
	f.hub.Attach(conn)
	f.registry.Register(conn, userID, userType, &types.UserProfile{
		ID: userID, FirstName: "First-" + userID, LastName: "Last-" + userID, UserType: userType,
	})
	drain(conn)
	return conn
}

// drain discards everything queued so far and returns the frames.
func drain(conn *hub.Connection) []*hub.Envelope {
	var out []*hub.Envelope
	for {
		env, ok := conn.NextOutbound()
		if !ok {
			return out
		}
		out = append(out, env)
	}
}

func countEvent(frames []*hub.Envelope, event string) int {
	n := 0
	for _, f := range frames {
		if f.Event == event {
			n++
		}
	}
	return n
}

func TestRoomIDIsCommutative(t *testing.T) {
	assert.Equal(t, RoomID("alice", "bob"), RoomID("bob", "alice"))
	assert.Equal(t, "alice_bob", RoomID("bob", "alice"))
}

func TestSelfRequestIsIgnored(t *testing.T) {
	f := newFixture(t)
	conn := f.connect(t, "user-1", types.UserTypePatient)

	f.neg.handleSendRequest(context.Background(), conn, mustJSON(t, types.RequestTargetPayload{ID: "user-1"}))

	assert.Equal(t, 0, countEvent(drain(conn), types.EventReceiveRequest))
}

func TestSendRequestReachesEveryTargetConnection(t *testing.T) {
	f := newFixture(t)
	sender := f.connect(t, "user-1", types.UserTypePatient)
	targetA := f.connect(t, "user-2", types.UserTypeDoctor)
	targetB := f.connect(t, "user-2", types.UserTypeDoctor)
	drain(targetA)
	drain(targetB)

	f.neg.handleSendRequest(context.Background(), sender, mustJSON(t, types.RequestTargetPayload{ID: "user-2"}))

	for _, conn := range []*hub.Connection{targetA, targetB} {
		frames := drain(conn)
		require.Equal(t, 1, countEvent(frames, types.EventReceiveRequest))
	}
}

func TestSendRequestFallsBackToPlaceholderProfile(t *testing.T) {
	f := newFixture(t)
	log := newTestLogger()

	// Register the sender without any profile snapshot.
	sender := hub.NewConnection(context.Background(), nil, hub.ConnectionConfig{}, log)
	f.hub.Attach(sender)
	f.registry.Register(sender, "anon-1", types.UserTypePatient, nil)

	target := f.connect(t, "user-2", types.UserTypeDoctor)
	drain(target)

	f.neg.handleSendRequest(context.Background(), sender, mustJSON(t, types.RequestTargetPayload{ID: "user-2"}))

	frames := drain(target)
	require.Equal(t, 1, countEvent(frames, types.EventReceiveRequest))
	for _, fr := range frames {
		if fr.Event != types.EventReceiveRequest {
			continue
		}
		var profile types.UserProfile
		require.NoError(t, json.Unmarshal(fr.Data, &profile))
		assert.Equal(t, "Unknown", profile.FirstName)
		assert.Equal(t, "User", profile.LastName)
	}
}

func TestAcceptRequestStartsRoomForBothSides(t *testing.T) {
	f := newFixture(t)
	requester := f.connect(t, "pat-1", types.UserTypePatient)
	accepter := f.connect(t, "doc-1", types.UserTypeDoctor)

	f.neg.handleAcceptRequest(context.Background(), accepter, mustJSON(t, types.RequestTargetPayload{ID: "pat-1"}))

	room := RoomID("pat-1", "doc-1")
	assert.Equal(t, 2, f.hub.MemberCount(room))

	var started map[string]string
	frames := drain(requester)
	require.Equal(t, 1, countEvent(frames, types.EventRoomStarted))
	for _, fr := range frames {
		if fr.Event == types.EventRoomStarted {
			require.NoError(t, json.Unmarshal(fr.Data, &started))
		}
	}
	assert.Equal(t, room, started["room"])
	assert.Equal(t, "doc-1", started["otherUser"])

	frames = drain(accepter)
	require.Equal(t, 1, countEvent(frames, types.EventRoomStarted))
	for _, fr := range frames {
		if fr.Event == types.EventRoomStarted {
			require.NoError(t, json.Unmarshal(fr.Data, &started))
		}
	}
	assert.Equal(t, "pat-1", started["otherUser"])
}

func TestAcceptToleratesOfflineRequester(t *testing.T) {
	f := newFixture(t)
	accepter := f.connect(t, "doc-1", types.UserTypeDoctor)

	assert.NotPanics(t, func() {
		f.neg.handleAcceptRequest(context.Background(), accepter, mustJSON(t, types.RequestTargetPayload{ID: "pat-offline"}))
	})

	frames := drain(accepter)
	assert.Equal(t, 1, countEvent(frames, types.EventRoomStarted))
}

func TestSendMessageExcludesAllSenderConnections(t *testing.T) {
	f := newFixture(t)
	senderA := f.connect(t, "pat-1", types.UserTypePatient)
	senderB := f.connect(t, "pat-1", types.UserTypePatient)
	other := f.connect(t, "doc-1", types.UserTypeDoctor)

	room := RoomID("pat-1", "doc-1")
	for _, c := range []*hub.Connection{senderA, senderB, other} {
		f.hub.Join(c, room)
	}

	f.neg.handleSendMessage(context.Background(), senderA, mustJSON(t, types.ChatMessagePayload{Room: room, Message: "hello"}))

	assert.Equal(t, 0, countEvent(drain(senderA), types.EventReceiveMessage))
	assert.Equal(t, 0, countEvent(drain(senderB), types.EventReceiveMessage))
	assert.Equal(t, 1, countEvent(drain(other), types.EventReceiveMessage))
}

func TestLeaveRoomMultiDevice(t *testing.T) {
	f := newFixture(t)
	leaverA := f.connect(t, "pat-1", types.UserTypePatient)
	leaverB := f.connect(t, "pat-1", types.UserTypePatient)
	remaining := f.connect(t, "doc-1", types.UserTypeDoctor)

	room := RoomID("pat-1", "doc-1")
	for _, c := range []*hub.Connection{leaverA, leaverB, remaining} {
		f.hub.Join(c, room)
	}

	f.neg.handleLeaveRoom(context.Background(), leaverA, mustJSON(t, types.LeaveRoomPayload{Room: room}))

	// Both of the leaver's connections are out of the room.
	assert.Equal(t, 1, f.hub.MemberCount(room))

	// The remaining user gets exactly one notification, flagged as the
	// other side leaving.
	frames := drain(remaining)
	require.Equal(t, 1, countEvent(frames, types.EventUserLeftRoom))
	for _, fr := range frames {
		if fr.Event != types.EventUserLeftRoom {
			continue
		}
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(fr.Data, &body))
		assert.Equal(t, false, body["selfLeft"])
		assert.Equal(t, "pat-1", body["userId"])
	}

	// The leaver's own devices each get a self-left reset signal.
	for _, conn := range []*hub.Connection{leaverA, leaverB} {
		frames := drain(conn)
		require.Equal(t, 1, countEvent(frames, types.EventUserLeftRoom))
		for _, fr := range frames {
			if fr.Event != types.EventUserLeftRoom {
				continue
			}
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(fr.Data, &body))
			assert.Equal(t, true, body["selfLeft"])
		}
	}
}

func TestRejoinNotifiesExistingMembers(t *testing.T) {
	f := newFixture(t)
	returning := f.connect(t, "pat-1", types.UserTypePatient)
	present := f.connect(t, "doc-1", types.UserTypeDoctor)

	room := RoomID("pat-1", "doc-1")
	f.hub.Join(present, room)

	f.neg.handleRejoinRoom(context.Background(), returning, mustJSON(t, types.RejoinRoomPayload{Room: room, UserID: "pat-1"}))

	assert.Equal(t, 2, f.hub.MemberCount(room))
	assert.Equal(t, 1, countEvent(drain(present), types.EventUserRejoined))
	assert.Equal(t, 0, countEvent(drain(returning), types.EventUserRejoined))
}

func TestRejectRequestAcceptsBareStringPayload(t *testing.T) {
	f := newFixture(t)
	rejecter := f.connect(t, "doc-1", types.UserTypeDoctor)
	requester := f.connect(t, "pat-1", types.UserTypePatient)

	f.neg.handleRejectRequest(context.Background(), rejecter, json.RawMessage(`"pat-1"`))

	assert.Equal(t, 1, countEvent(drain(requester), types.EventRequestRejected))
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
