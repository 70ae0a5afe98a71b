package interfaces

import (
	"context"
	"time"

	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

// AppointmentStore is the durable appointment collaborator. The store is the
// single consistency authority for status transitions: every mutating call
// enforces its own status precondition (conditional update), so callers must
// never assume a cached status still holds when the call lands.
type AppointmentStore interface {
	CreateAppointment(ctx context.Context, apt *types.Appointment) (*types.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*types.Appointment, error)

	// RespondToAppointment confirms or rejects a pending appointment.
	// Fails with a conflict error if the appointment is no longer pending.
	RespondToAppointment(ctx context.Context, id string, accepted bool, message string) (*types.Appointment, error)

	// CancelAppointment cancels from pending or confirmed only.
	CancelAppointment(ctx context.Context, id, reason, cancelledBy string) (*types.Appointment, error)

	// MarkCallStarted moves a confirmed appointment to in_progress and
	// stamps the call start time.
	MarkCallStarted(ctx context.Context, id string, at time.Time) (*types.Appointment, error)

	// MarkCallEnded completes an in_progress appointment with end time and
	// duration in seconds.
	MarkCallEnded(ctx context.Context, id string, at time.Time, durationSeconds int) (*types.Appointment, error)

	SharePrescription(ctx context.Context, id string, rx *types.PrescriptionUpdate) (*types.Appointment, error)

	ListForDoctor(ctx context.Context, doctorID string, filters *types.AppointmentFilters) ([]*types.Appointment, error)
	ListForPatient(ctx context.Context, patientID string, filters *types.AppointmentFilters) ([]*types.Appointment, error)
}

// ProfileResolver returns display fields for a user identity, for the
// presence registry's opportunistic profile cache.
type ProfileResolver interface {
	ResolveUserProfile(ctx context.Context, id string) (*types.UserProfile, error)
}
