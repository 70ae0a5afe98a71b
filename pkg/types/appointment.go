package types

import "time"

// AppointmentStatus represents appointment status values
type AppointmentStatus string

const (
	StatusPending    AppointmentStatus = "pending"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusRejected   AppointmentStatus = "rejected"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusExpired    AppointmentStatus = "expired"
)

// Terminal reports whether a status can no longer change.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusExpired
}

// Appointment is the durable appointment record held by the external store.
// Doctor and Patient carry populated display snapshots when the record is
// returned from a store call.
type Appointment struct {
	ID              string            `json:"id" db:"id"`
	DoctorID        string            `json:"doctorId" db:"doctor_id"`
	PatientID       string            `json:"patientId" db:"patient_id"`
	ScheduledTime   time.Time         `json:"scheduledTime" db:"scheduled_time"`
	Details         string            `json:"appointmentDetails" db:"details"`
	Status          AppointmentStatus `json:"status" db:"status"`
	ResponseMessage string            `json:"responseMessage,omitempty" db:"response_message"`
	CancelReason    string            `json:"cancelReason,omitempty" db:"cancel_reason"`
	CancelledBy     string            `json:"cancelledBy,omitempty" db:"cancelled_by"`
	Prescription    string            `json:"prescription,omitempty" db:"prescription"`
	Diagnosis       string            `json:"diagnosis,omitempty" db:"diagnosis"`
	MedicalNotes    string            `json:"medicalNotes,omitempty" db:"medical_notes"`
	CallStartedAt   *time.Time        `json:"callStartedAt,omitempty" db:"call_started_at"`
	CallEndedAt     *time.Time        `json:"callEndedAt,omitempty" db:"call_ended_at"`
	CallDuration    int               `json:"callDuration,omitempty" db:"call_duration"`
	ExpiresAt       time.Time         `json:"expiresAt" db:"expires_at"`
	CreatedAt       time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time         `json:"updatedAt" db:"updated_at"`

	Doctor  *UserProfile `json:"doctor,omitempty" db:"-"`
	Patient *UserProfile `json:"patient,omitempty" db:"-"`
}

// Counterpart returns the participant id on the other side of the
// appointment from userID, and whether userID is a participant at all.
func (a *Appointment) Counterpart(userID string) (string, bool) {
	switch userID {
	case a.DoctorID:
		return a.PatientID, true
	case a.PatientID:
		return a.DoctorID, true
	}
	return "", false
}

// AppointmentFilters narrows list queries against the store.
type AppointmentFilters struct {
	Status   AppointmentStatus `json:"status,omitempty"`
	FromDate time.Time         `json:"fromDate,omitempty"`
	ToDate   time.Time         `json:"toDate,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	Offset   int               `json:"offset,omitempty"`
}

// PrescriptionUpdate carries the fields written by prescription sharing.
type PrescriptionUpdate struct {
	Prescription string `json:"prescription"`
	Diagnosis    string `json:"diagnosis"`
	MedicalNotes string `json:"medicalNotes"`
}
