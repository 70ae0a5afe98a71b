// Package appointments bridges the durable appointment store into the live
// socket layer: booking, responses, cancellation and prescription sharing
// are persisted first, then republished as events to the connections of
// both participants. A non-authoritative in-memory shadow mirrors active
// appointments for fast status checks.
package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ShrutiSoni4370/HealNest-sub001/internal/hub"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/presence"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/interfaces"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

// Bridge wires appointment lifecycle events between the store and the hub.
type Bridge struct {
	hub      *hub.Hub
	registry *presence.Registry
	store    interfaces.AppointmentStore
	shadows  *ShadowStore
	logger   *logrus.Entry
}

// NewBridge creates an appointment bridge.
func NewBridge(h *hub.Hub, reg *presence.Registry, store interfaces.AppointmentStore, shadows *ShadowStore, log *logger.Logger) *Bridge {
	return &Bridge{
		hub:      h,
		registry: reg,
		store:    store,
		shadows:  shadows,
		logger:   log.WithComponent("appointment_bridge"),
	}
}

// RegisterHandlers wires the appointment events into the hub router.
func (b *Bridge) RegisterHandlers(h *hub.Hub) error {
	handlers := map[string]hub.HandlerFunc{
		types.EventAppointmentBook:    b.handleBook,
		types.EventAppointmentRespond: b.handleRespond,
		types.EventAppointmentCancel:  b.handleCancel,
		types.EventGetDoctorAppts:     b.handleGetDoctorAppointments,
		types.EventGetPatientAppts:    b.handleGetPatientAppointments,
		types.EventPrescriptionShare:  b.handleSharePrescription,
	}
	for name, fn := range handlers {
		if err := h.Handle(name, fn); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bridge) handleBook(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.BookAppointmentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		b.emitError(conn, types.EventAppointmentError, errors.New("malformed booking payload"))
		return
	}

	// Validation errors are reported before any store call is made.
	if payload.DoctorID == "" || payload.PatientID == "" || payload.ScheduledTime == "" {
		b.emitError(conn, types.EventAppointmentError, errors.New("doctorId, patientId and scheduledTime are required"))
		return
	}

	scheduledTime, err := time.Parse(time.RFC3339, payload.ScheduledTime)
	if err != nil {
		b.emitError(conn, types.EventAppointmentError, errors.New("scheduledTime must be an RFC 3339 timestamp"))
		return
	}

	apt, err := b.store.CreateAppointment(ctx, &types.Appointment{
		DoctorID:      payload.DoctorID,
		PatientID:     payload.PatientID,
		ScheduledTime: scheduledTime,
		Details:       payload.Details,
	})
	if err != nil {
		b.emitError(conn, types.EventAppointmentError, err)
		return
	}

	b.shadows.Put(&Shadow{
		AppointmentID: apt.ID,
		DoctorID:      apt.DoctorID,
		PatientID:     apt.PatientID,
		Status:        apt.Status,
		ExpiresAt:     apt.ExpiresAt,
	})

	b.hub.EmitTo(conn, types.EventBookingConfirmed, map[string]interface{}{
		"appointment": apt,
	})
	b.hub.EmitRoom(types.RoleGroup(types.UserTypeDoctor, apt.DoctorID), types.EventNewAppointment, map[string]interface{}{
		"appointment": apt,
		"patient":     apt.Patient,
	})

	b.logger.WithFields(logrus.Fields{
		"appointment_id": apt.ID,
		"doctor_id":      apt.DoctorID,
		"patient_id":     apt.PatientID,
	}).Info("Appointment booked")
}

func (b *Bridge) handleRespond(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.RespondAppointmentPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.AppointmentID == "" {
		b.emitError(conn, types.EventAppointmentError, errors.New("appointmentId is required"))
		return
	}

	// The store enforces the pending-only precondition; an appointment
	// cancelled while this call was in flight fails there, not here.
	apt, err := b.store.RespondToAppointment(ctx, payload.AppointmentID, payload.Accepted, payload.Message)
	if err != nil {
		b.emitError(conn, types.EventAppointmentError, err)
		return
	}

	b.shadows.UpdateStatus(apt.ID, apt.Status)

	b.hub.EmitRoom(types.RoleGroup(types.UserTypePatient, apt.PatientID), types.EventAppointmentResponse, map[string]interface{}{
		"appointmentId": apt.ID,
		"status":        apt.Status,
		"message":       payload.Message,
		"appointment":   apt,
	})
}

func (b *Bridge) handleCancel(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.CancelAppointmentPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.AppointmentID == "" {
		b.emitError(conn, types.EventAppointmentError, errors.New("appointmentId is required"))
		return
	}

	canceller, ok := b.registry.Resolve(conn)
	if !ok {
		b.emitError(conn, types.EventAppointmentError, errors.New("connection has no registered user"))
		return
	}

	role := types.UserTypePatient
	if canceller.UserType == types.UserTypeDoctor {
		role = types.UserTypeDoctor
	}

	apt, err := b.store.CancelAppointment(ctx, payload.AppointmentID, payload.Reason, string(role))
	if err != nil {
		b.emitError(conn, types.EventAppointmentError, err)
		return
	}

	b.shadows.UpdateStatus(apt.ID, apt.Status)

	// Notify the side that did not cancel.
	counterpartGroup := types.RoleGroup(types.UserTypeDoctor, apt.DoctorID)
	if canceller.ID == apt.DoctorID {
		counterpartGroup = types.RoleGroup(types.UserTypePatient, apt.PatientID)
	}

	b.hub.EmitRoom(counterpartGroup, types.EventAppointmentCancelled, map[string]interface{}{
		"appointmentId": apt.ID,
		"reason":        payload.Reason,
		"cancelledBy":   role,
	})
	b.hub.EmitTo(conn, types.EventCancelConfirmed, map[string]interface{}{
		"appointmentId": apt.ID,
	})

	b.logger.WithFields(logrus.Fields{
		"appointment_id": apt.ID,
		"cancelled_by":   role,
	}).Info("Appointment cancelled")
}

func (b *Bridge) handleGetDoctorAppointments(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.DoctorAppointmentsPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.DoctorID == "" {
		b.emitError(conn, types.EventAppointmentsError, errors.New("doctorId is required"))
		return
	}

	appointments, err := b.store.ListForDoctor(ctx, payload.DoctorID, payload.Filters)
	if err != nil {
		b.emitError(conn, types.EventAppointmentsError, err)
		return
	}
	b.hub.EmitTo(conn, types.EventDoctorApptList, map[string]interface{}{"appointments": appointments})
}

func (b *Bridge) handleGetPatientAppointments(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.PatientAppointmentsPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.PatientID == "" {
		b.emitError(conn, types.EventAppointmentsError, errors.New("patientId is required"))
		return
	}

	appointments, err := b.store.ListForPatient(ctx, payload.PatientID, payload.Filters)
	if err != nil {
		b.emitError(conn, types.EventAppointmentsError, err)
		return
	}
	b.hub.EmitTo(conn, types.EventPatientApptList, map[string]interface{}{"appointments": appointments})
}

func (b *Bridge) handleSharePrescription(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.SharePrescriptionPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.AppointmentID == "" {
		b.emitError(conn, types.EventPrescriptionError, errors.New("appointmentId is required"))
		return
	}

	apt, err := b.store.SharePrescription(ctx, payload.AppointmentID, &types.PrescriptionUpdate{
		Prescription: payload.Prescription,
		Diagnosis:    payload.Diagnosis,
		MedicalNotes: payload.MedicalNotes,
	})
	if err != nil {
		b.emitError(conn, types.EventPrescriptionError, err)
		return
	}

	b.hub.EmitRoom(types.RoleGroup(types.UserTypePatient, apt.PatientID), types.EventPrescriptionReceived, map[string]interface{}{
		"appointmentId": apt.ID,
		"prescription":  apt.Prescription,
		"diagnosis":     apt.Diagnosis,
		"medicalNotes":  apt.MedicalNotes,
		"doctor":        apt.Doctor,
	})
	b.hub.EmitTo(conn, types.EventPrescriptionConfirmed, map[string]interface{}{
		"appointmentId": apt.ID,
	})
}

// emitError converts any failure into a structured error payload scoped to
// the caller's connection. Errors never fan out to other users.
func (b *Bridge) emitError(conn *hub.Connection, event string, err error) {
	payload := &types.ErrorPayload{Message: err.Error()}

	var hnErr *types.HealNestError
	if errors.As(err, &hnErr) {
		payload.Message = hnErr.Message
		payload.Details = map[string]interface{}{"code": hnErr.Code, "type": hnErr.Type}
	}

	b.logger.WithError(err).WithField("event", event).Warn("Appointment operation failed")
	b.hub.EmitTo(conn, event, payload)
}
