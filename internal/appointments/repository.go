package appointments

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/database"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/interfaces"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

// Repository is the PostgreSQL-backed appointment store. Status-changing
// operations use conditional updates so the database, not any caller's
// cache, enforces the state machine.
type Repository struct {
	db     *database.DB
	ttl    time.Duration
	logger *logrus.Entry
}

// NewRepository creates a new appointment repository. ttl controls how far
// in the future a new pending appointment's expiry is set.
func NewRepository(db *database.DB, ttl time.Duration, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		ttl:    ttl,
		logger: log.WithComponent("appointment_repository"),
	}
}

var _ interfaces.AppointmentStore = (*Repository)(nil)
var _ interfaces.ProfileResolver = (*Repository)(nil)

const appointmentColumns = `
	a.id, a.doctor_id, a.patient_id, a.scheduled_time, a.details, a.status,
	a.response_message, a.cancel_reason, a.cancelled_by,
	a.prescription, a.diagnosis, a.medical_notes,
	a.call_started_at, a.call_ended_at, a.call_duration,
	a.expires_at, a.created_at, a.updated_at,
	d.id, d.first_name, d.last_name,
	p.id, p.first_name, p.last_name`

const appointmentJoins = `
	FROM appointments a
	JOIN users d ON d.id = a.doctor_id
	JOIN users p ON p.id = a.patient_id`

// CreateAppointment inserts a new pending appointment and returns it with
// populated participant snapshots.
func (r *Repository) CreateAppointment(ctx context.Context, apt *types.Appointment) (*types.Appointment, error) {
	if apt.ID == "" {
		apt.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	expiresAt := apt.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(r.ttl)
	}

	query := `
		INSERT INTO appointments (
			id, doctor_id, patient_id, scheduled_time, details, status,
			expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`

	_, err := r.db.ExecContext(ctx, query,
		apt.ID,
		apt.DoctorID,
		apt.PatientID,
		apt.ScheduledTime,
		apt.Details,
		types.StatusPending,
		expiresAt,
		now,
	)
	if err != nil {
		r.logger.WithError(err).Error("Failed to create appointment")
		return nil, types.NewExternalError(types.CodeStoreFailure, "failed to create appointment", err)
	}

	r.logger.WithFields(logrus.Fields{
		"appointment_id": apt.ID,
		"doctor_id":      apt.DoctorID,
		"patient_id":     apt.PatientID,
	}).Info("Created appointment")

	return r.GetAppointment(ctx, apt.ID)
}

// GetAppointment retrieves an appointment with participant snapshots.
func (r *Repository) GetAppointment(ctx context.Context, id string) (*types.Appointment, error) {
	query := "SELECT" + appointmentColumns + appointmentJoins + " WHERE a.id = $1"
	apt, err := r.scanAppointment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.CodeAppointmentNotFound, fmt.Sprintf("appointment not found: %s", id))
		}
		r.logger.WithError(err).WithField("appointment_id", id).Error("Failed to get appointment")
		return nil, types.NewExternalError(types.CodeStoreFailure, "failed to get appointment", err)
	}
	return apt, nil
}

// RespondToAppointment confirms or rejects a pending appointment. The
// WHERE clause carries the pending-only precondition.
func (r *Repository) RespondToAppointment(ctx context.Context, id string, accepted bool, message string) (*types.Appointment, error) {
	status := types.StatusConfirmed
	if !accepted {
		status = types.StatusRejected
	}

	query := `
		UPDATE appointments
		SET status = $2, response_message = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending'`

	return r.conditionalUpdate(ctx, id, "appointment is no longer pending", query, id, status, message, time.Now().UTC())
}

// CancelAppointment cancels from pending or confirmed only.
func (r *Repository) CancelAppointment(ctx context.Context, id, reason, cancelledBy string) (*types.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = 'cancelled', cancel_reason = $2, cancelled_by = $3, updated_at = $4
		WHERE id = $1 AND status IN ('pending', 'confirmed')`

	return r.conditionalUpdate(ctx, id, "appointment cannot be cancelled in its current status", query, id, reason, cancelledBy, time.Now().UTC())
}

// MarkCallStarted moves a confirmed appointment to in_progress.
func (r *Repository) MarkCallStarted(ctx context.Context, id string, at time.Time) (*types.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = 'in_progress', call_started_at = $2, updated_at = $3
		WHERE id = $1 AND status IN ('confirmed', 'in_progress')`

	return r.conditionalUpdate(ctx, id, "appointment is not ready for a call", query, id, at, time.Now().UTC())
}

// MarkCallEnded completes an in_progress appointment.
func (r *Repository) MarkCallEnded(ctx context.Context, id string, at time.Time, durationSeconds int) (*types.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = 'completed', call_ended_at = $2, call_duration = $3, updated_at = $4
		WHERE id = $1 AND status IN ('confirmed', 'in_progress')`

	return r.conditionalUpdate(ctx, id, "appointment has no call to end", query, id, at, durationSeconds, time.Now().UTC())
}

// SharePrescription attaches prescription fields to a confirmed, active or
// completed appointment.
func (r *Repository) SharePrescription(ctx context.Context, id string, rx *types.PrescriptionUpdate) (*types.Appointment, error) {
	query := `
		UPDATE appointments
		SET prescription = $2, diagnosis = $3, medical_notes = $4, updated_at = $5
		WHERE id = $1 AND status IN ('confirmed', 'in_progress', 'completed')`

	return r.conditionalUpdate(ctx, id, "prescription cannot be attached in the current status", query,
		id, rx.Prescription, rx.Diagnosis, rx.MedicalNotes, time.Now().UTC())
}

// ListForDoctor returns a doctor's appointments, newest first.
func (r *Repository) ListForDoctor(ctx context.Context, doctorID string, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	return r.list(ctx, "a.doctor_id", doctorID, filters)
}

// ListForPatient returns a patient's appointments, newest first.
func (r *Repository) ListForPatient(ctx context.Context, patientID string, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	return r.list(ctx, "a.patient_id", patientID, filters)
}

// ResolveUserProfile returns display fields for a user identity.
func (r *Repository) ResolveUserProfile(ctx context.Context, id string) (*types.UserProfile, error) {
	query := `SELECT id, first_name, last_name, user_type FROM users WHERE id = $1`

	profile := &types.UserProfile{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&profile.ID,
		&profile.FirstName,
		&profile.LastName,
		&profile.UserType,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.CodeUserNotFound, fmt.Sprintf("user not found: %s", id))
		}
		return nil, types.NewExternalError(types.CodeStoreFailure, "failed to resolve user profile", err)
	}
	return profile, nil
}

// conditionalUpdate runs a status-guarded UPDATE. Zero rows affected means
// either the appointment is missing or the precondition failed; the
// follow-up read disambiguates the two.
func (r *Repository) conditionalUpdate(ctx context.Context, id, conflictMsg, query string, args ...interface{}) (*types.Appointment, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).WithField("appointment_id", id).Error("Appointment update failed")
		return nil, types.NewExternalError(types.CodeStoreFailure, "appointment update failed", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, types.NewExternalError(types.CodeStoreFailure, "appointment update failed", err)
	}
	if affected == 0 {
		if _, getErr := r.GetAppointment(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, types.NewConflictError(types.CodeInvalidTransition, conflictMsg)
	}

	return r.GetAppointment(ctx, id)
}

func (r *Repository) list(ctx context.Context, column, value string, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	conditions := []string{column + " = $1"}
	args := []interface{}{value}

	if filters != nil {
		if filters.Status != "" {
			args = append(args, filters.Status)
			conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)))
		}
		if !filters.FromDate.IsZero() {
			args = append(args, filters.FromDate)
			conditions = append(conditions, fmt.Sprintf("a.scheduled_time >= $%d", len(args)))
		}
		if !filters.ToDate.IsZero() {
			args = append(args, filters.ToDate)
			conditions = append(conditions, fmt.Sprintf("a.scheduled_time <= $%d", len(args)))
		}
	}

	query := "SELECT" + appointmentColumns + appointmentJoins +
		" WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY a.scheduled_time DESC"

	if filters != nil && filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filters.Limit, filters.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list appointments")
		return nil, types.NewExternalError(types.CodeStoreFailure, "failed to list appointments", err)
	}
	defer rows.Close()

	var appointments []*types.Appointment
	for rows.Next() {
		apt, err := r.scanAppointment(rows)
		if err != nil {
			return nil, types.NewExternalError(types.CodeStoreFailure, "failed to scan appointment", err)
		}
		appointments = append(appointments, apt)
	}
	return appointments, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanAppointment(row scanner) (*types.Appointment, error) {
	apt := &types.Appointment{Doctor: &types.UserProfile{}, Patient: &types.UserProfile{}}
	var responseMessage, cancelReason, cancelledBy sql.NullString
	var prescription, diagnosis, medicalNotes sql.NullString
	var callStartedAt, callEndedAt sql.NullTime
	var callDuration sql.NullInt64

	err := row.Scan(
		&apt.ID, &apt.DoctorID, &apt.PatientID, &apt.ScheduledTime, &apt.Details, &apt.Status,
		&responseMessage, &cancelReason, &cancelledBy,
		&prescription, &diagnosis, &medicalNotes,
		&callStartedAt, &callEndedAt, &callDuration,
		&apt.ExpiresAt, &apt.CreatedAt, &apt.UpdatedAt,
		&apt.Doctor.ID, &apt.Doctor.FirstName, &apt.Doctor.LastName,
		&apt.Patient.ID, &apt.Patient.FirstName, &apt.Patient.LastName,
	)
	if err != nil {
		return nil, err
	}

	apt.ResponseMessage = responseMessage.String
	apt.CancelReason = cancelReason.String
	apt.CancelledBy = cancelledBy.String
	apt.Prescription = prescription.String
	apt.Diagnosis = diagnosis.String
	apt.MedicalNotes = medicalNotes.String
	if callStartedAt.Valid {
		apt.CallStartedAt = &callStartedAt.Time
	}
	if callEndedAt.Valid {
		apt.CallEndedAt = &callEndedAt.Time
	}
	apt.CallDuration = int(callDuration.Int64)
	apt.Doctor.UserType = types.UserTypeDoctor
	apt.Patient.UserType = types.UserTypePatient

	return apt, nil
}
