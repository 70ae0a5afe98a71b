// Package video coordinates the two-party WebRTC handshake for an
// appointment: room join and ready detection, offer/answer/ICE relay with
// duplicate suppression, and the call lifecycle bridged into the
// appointment store.
package video

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ShrutiSoni4370/HealNest-sub001/internal/appointments"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/hub"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/presence"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/interfaces"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

// Relay forwards WebRTC signaling between an appointment's two
// participants without interpreting the payloads.
type Relay struct {
	hub      *hub.Hub
	registry *presence.Registry
	store    interfaces.AppointmentStore
	shadows  *appointments.ShadowStore
	answers  *answerLog
	logger   *logrus.Entry
}

// NewRelay creates a signaling relay. dedupTTL is the window during which
// a repeated answer for the same (appointment, user) from the same
// connection is dropped.
func NewRelay(h *hub.Hub, reg *presence.Registry, store interfaces.AppointmentStore, shadows *appointments.ShadowStore, dedupTTL time.Duration, log *logger.Logger) *Relay {
	return &Relay{
		hub:      h,
		registry: reg,
		store:    store,
		shadows:  shadows,
		answers:  newAnswerLog(dedupTTL),
		logger:   log.WithComponent("video_relay"),
	}
}

// RegisterHandlers wires the video events into the hub router.
func (r *Relay) RegisterHandlers(h *hub.Hub) error {
	handlers := map[string]hub.HandlerFunc{
		types.EventVideoJoinRoom:     r.handleJoinRoom,
		types.EventVideoOffer:        r.handleOffer,
		types.EventVideoAnswer:       r.handleAnswer,
		types.EventVideoICECandidate: r.handleICECandidate,
		types.EventVideoInitiateCall: r.handleInitiateCall,
		types.EventVideoCallResponse: r.handleCallResponse,
		types.EventVideoEndCall:      r.handleEndCall,
	}
	for name, fn := range handlers {
		if err := h.Handle(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// Close cancels all pending dedup expirations.
func (r *Relay) Close() {
	r.answers.Close()
}

// RoomID returns the signaling channel name for an appointment.
func RoomID(appointmentID string) string {
	return "video:" + appointmentID
}

func (r *Relay) handleJoinRoom(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.VideoJoinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.AppointmentID == "" || payload.UserID == "" {
		r.emitError(conn, errors.New("appointmentId and userId are required"))
		return
	}

	room := RoomID(payload.AppointmentID)
	r.hub.Join(conn, room)

	members := r.hub.Members(room)
	if len(members) < 2 {
		waitingFor := types.UserTypeDoctor
		if payload.UserType == types.UserTypeDoctor {
			waitingFor = types.UserTypePatient
		}
		r.hub.EmitTo(conn, types.EventVideoWaiting, map[string]interface{}{
			"appointmentId": payload.AppointmentID,
			"waitingFor":    waitingFor,
		})
		return
	}

	if len(members) > 2 {
		// A late device joined a call whose handshake already fired. Tell
		// only the joiner the room is live; re-broadcasting ready or
		// re-sending initiate would restart negotiation mid-call.
		r.hub.EmitTo(conn, types.EventVideoReady, map[string]interface{}{
			"appointmentId": payload.AppointmentID,
		})
		return
	}

	// The count just reached two: everyone learns the handshake can start,
	// and exactly one member (the doctor side) originates the offer.
	r.hub.EmitRoom(room, types.EventVideoReady, map[string]interface{}{
		"appointmentId": payload.AppointmentID,
	})

	initiator := r.findDoctorConnection(members, conn, payload)
	if initiator == nil {
		r.logger.WithField("appointment_id", payload.AppointmentID).Warn("No doctor-side connection found to originate offer")
		return
	}
	r.hub.EmitTo(initiator, types.EventVideoInitiateConn, map[string]interface{}{
		"appointmentId": payload.AppointmentID,
	})
}

// findDoctorConnection picks the room member whose identity resolves to
// the doctor role. Selection is by userType only; the joining payload
// covers the joiner before its profile lands in the registry.
func (r *Relay) findDoctorConnection(members []*hub.Connection, joiner *hub.Connection, payload types.VideoJoinPayload) *hub.Connection {
	for _, member := range members {
		if member.ID() == joiner.ID() {
			if payload.UserType == types.UserTypeDoctor {
				return member
			}
			continue
		}
		if profile, ok := r.registry.Resolve(member); ok && profile.UserType == types.UserTypeDoctor {
			return member
		}
	}
	return nil
}

func (r *Relay) handleOffer(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	r.relaySignal(ctx, conn, types.EventVideoOffer, data, false)
}

func (r *Relay) handleAnswer(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	r.relaySignal(ctx, conn, types.EventVideoAnswer, data, true)
}

func (r *Relay) handleICECandidate(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	r.relaySignal(ctx, conn, types.EventVideoICECandidate, data, false)
}

// relaySignal resolves the appointment's participants, computes the
// counterpart of the sender, and delivers the payload once per live target
// connection. The role group, the shared video room and the registry are
// all consulted so a target that has not yet joined every channel is still
// reached, but each connection receives the frame at most once.
func (r *Relay) relaySignal(ctx context.Context, conn *hub.Connection, event string, data json.RawMessage, dedup bool) {
	var payload types.SignalPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.AppointmentID == "" || payload.UserID == "" {
		r.emitError(conn, errors.New("appointmentId and userId are required"))
		return
	}

	if dedup && r.answers.duplicate(conn.ID(), payload.AppointmentID, payload.UserID) {
		r.logger.WithFields(logrus.Fields{
			"appointment_id": payload.AppointmentID,
			"user_id":        payload.UserID,
		}).Debug("Dropping duplicate answer")
		return
	}

	apt, err := r.store.GetAppointment(ctx, payload.AppointmentID)
	if err != nil {
		r.emitError(conn, err)
		return
	}

	targetID, ok := apt.Counterpart(payload.UserID)
	if !ok {
		r.emitError(conn, errors.New("sender is not a participant of this appointment"))
		return
	}
	targetRole := types.UserTypePatient
	if targetID == apt.DoctorID {
		targetRole = types.UserTypeDoctor
	}

	delivered := r.fanOut(targetID, targetRole, payload.AppointmentID, event, data, payload.UserID)
	if dedup {
		// Recorded only once the answer went out, so a retry after a
		// failed lookup above is still relayed.
		r.answers.mark(conn.ID(), payload.AppointmentID, payload.UserID)
	}
	r.logger.WithFields(logrus.Fields{
		"event":          event,
		"appointment_id": payload.AppointmentID,
		"target_id":      targetID,
		"delivered":      delivered,
	}).Debug("Signal relayed")
}

// fanOut resolves every channel the target might be reachable on, then
// deduplicates by connection id and sends once per connection. Connections
// belonging to the sender are skipped.
func (r *Relay) fanOut(targetID string, targetRole types.UserType, appointmentID, event string, data json.RawMessage, senderID string) int {
	candidates := make(map[uuid.UUID]*hub.Connection)

	for _, c := range r.registry.ConnectionsFor(targetID) {
		candidates[c.ID()] = c
	}
	for _, c := range r.hub.Members(types.RoleGroup(targetRole, targetID)) {
		candidates[c.ID()] = c
	}
	for _, c := range r.hub.Members(RoomID(appointmentID)) {
		if id, ok := r.registry.ResolveID(c); ok && id == targetID {
			candidates[c.ID()] = c
		}
	}

	sent := 0
	for _, c := range candidates {
		if id, ok := r.registry.ResolveID(c); ok && id == senderID {
			continue
		}
		r.hub.EmitTo(c, event, json.RawMessage(data))
		sent++
	}
	return sent
}

func (r *Relay) handleInitiateCall(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.InitiateCallPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.AppointmentID == "" {
		r.emitError(conn, errors.New("appointmentId is required"))
		return
	}

	apt, err := r.store.GetAppointment(ctx, payload.AppointmentID)
	if err != nil {
		r.emitError(conn, err)
		return
	}

	r.fanOut(apt.PatientID, types.UserTypePatient, apt.ID, types.EventVideoIncomingCall, mustMarshal(map[string]interface{}{
		"appointmentId": apt.ID,
		"offer":         payload.Offer,
		"doctor":        apt.Doctor,
	}), apt.DoctorID)
}

func (r *Relay) handleCallResponse(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.CallResponsePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.AppointmentID == "" {
		r.emitError(conn, errors.New("appointmentId is required"))
		return
	}

	apt, err := r.store.GetAppointment(ctx, payload.AppointmentID)
	if err != nil {
		r.emitError(conn, err)
		return
	}

	// Acceptance starts the call clock; rejection only notifies.
	if payload.Accepted {
		apt, err = r.store.MarkCallStarted(ctx, apt.ID, time.Now().UTC())
		if err != nil {
			r.emitError(conn, err)
			return
		}
		r.shadows.UpdateStatus(apt.ID, apt.Status)
	}

	r.fanOut(apt.DoctorID, types.UserTypeDoctor, apt.ID, types.EventVideoCallResponse, mustMarshal(map[string]interface{}{
		"appointmentId": apt.ID,
		"accepted":      payload.Accepted,
		"answer":        payload.Answer,
	}), apt.PatientID)
}

func (r *Relay) handleEndCall(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.EndCallPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.AppointmentID == "" {
		r.emitError(conn, errors.New("appointmentId is required"))
		return
	}

	apt, err := r.store.GetAppointment(ctx, payload.AppointmentID)
	if err != nil {
		r.emitError(conn, err)
		return
	}

	now := time.Now().UTC()
	duration := 0
	if apt.CallStartedAt != nil {
		duration = int(now.Sub(*apt.CallStartedAt).Seconds())
	}

	apt, err = r.store.MarkCallEnded(ctx, apt.ID, now, duration)
	if err != nil {
		r.emitError(conn, err)
		return
	}
	r.shadows.UpdateStatus(apt.ID, apt.Status)

	callerID, _ := r.registry.ResolveID(conn)
	counterpartID := apt.DoctorID
	counterpartRole := types.UserTypeDoctor
	if callerID == apt.DoctorID {
		counterpartID = apt.PatientID
		counterpartRole = types.UserTypePatient
	}

	r.fanOut(counterpartID, counterpartRole, apt.ID, types.EventVideoCallEnded, mustMarshal(map[string]interface{}{
		"appointmentId": apt.ID,
		"duration":      duration,
	}), callerID)
	r.hub.EmitTo(conn, types.EventVideoEndConfirmed, map[string]interface{}{
		"appointmentId": apt.ID,
		"duration":      duration,
	})
}

// emitError reports a failure to the initiating connection only. A failed
// signaling step never partially notifies the other side.
func (r *Relay) emitError(conn *hub.Connection, err error) {
	payload := &types.ErrorPayload{Message: err.Error()}

	var hnErr *types.HealNestError
	if errors.As(err, &hnErr) {
		payload.Message = hnErr.Message
		payload.Details = map[string]interface{}{"code": hnErr.Code, "type": hnErr.Type}
	}

	r.logger.WithError(err).Warn("Video signaling operation failed")
	r.hub.EmitTo(conn, types.EventVideoError, payload)
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
