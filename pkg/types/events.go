package types

import "encoding/json"

// Socket event names. Inbound names are registered with the hub router
// exactly once each; outbound names are what clients pattern-match on.
const (
	// presence
	EventUserOnline  = "user_online"
	EventOnlineUsers = "online_users"

	// room negotiation
	EventSendRequest      = "send_request"
	EventReceiveRequest   = "receive_request"
	EventCancelRequest    = "cancel_request"
	EventRequestCancelled = "request_cancelled"
	EventAcceptRequest    = "accept_request"
	EventRoomStarted      = "room_started"
	EventRejectRequest    = "reject_request"
	EventRequestRejected  = "request_rejected"
	EventSendMessage      = "send_message"
	EventReceiveMessage   = "receive_message"
	EventLeaveRoom        = "leave_room"
	EventUserLeftRoom     = "user_left_room"
	EventRejoinRoom       = "rejoin_room"
	EventUserRejoined     = "user_rejoined"

	// appointment bridge
	EventAppointmentBook      = "appointment:book"
	EventBookingConfirmed     = "appointment:booking_confirmed"
	EventNewAppointment       = "appointment:new_request"
	EventAppointmentRespond   = "appointment:respond"
	EventAppointmentResponse  = "appointment:response"
	EventAppointmentCancel    = "appointment:cancel"
	EventAppointmentCancelled = "appointment:cancelled"
	EventCancelConfirmed      = "appointment:cancel_confirmed"
	EventAppointmentError     = "appointment:error"
	EventGetDoctorAppts       = "appointments:get_doctor"
	EventGetPatientAppts      = "appointments:get_patient"
	EventDoctorApptList       = "appointments:doctor_list"
	EventPatientApptList      = "appointments:patient_list"
	EventAppointmentsError    = "appointments:error"

	// video signaling
	EventVideoJoinRoom     = "video:join_room"
	EventVideoReady        = "video:ready_to_connect"
	EventVideoInitiateConn = "video:initiate_connection"
	EventVideoWaiting      = "video:waiting_for_other_user"
	EventVideoOffer        = "video:offer"
	EventVideoAnswer       = "video:answer"
	EventVideoICECandidate = "video:ice_candidate"
	EventVideoInitiateCall = "video:initiate_call"
	EventVideoIncomingCall = "video:incoming_call"
	EventVideoCallResponse = "video:call_response"
	EventVideoEndCall      = "video:end_call"
	EventVideoCallEnded    = "video:call_ended"
	EventVideoEndConfirmed = "video:call_end_confirmed"
	EventVideoError        = "video:error"

	// prescriptions
	EventPrescriptionShare     = "prescription:share"
	EventPrescriptionReceived  = "prescription:received"
	EventPrescriptionConfirmed = "prescription:share_confirmed"
	EventPrescriptionError     = "prescription:error"

	// companion chat
	EventCompanionMessage = "companion:message"
	EventCompanionReply   = "companion:reply"
	EventCompanionMood    = "companion:mood"
	EventCompanionCrisis  = "companion:crisis"
	EventCompanionError   = "companion:error"

	// generic
	EventError = "error"
)

// UserOnlinePayload announces a user identity on a new connection.
type UserOnlinePayload struct {
	UserID    string   `json:"userId"`
	UserType  UserType `json:"userType,omitempty"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
}

// RequestTargetPayload is the profile document attached to send_request and
// accept_request (the client sends the counterpart's profile as stored).
type RequestTargetPayload struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type CancelRequestPayload struct {
	TargetUserID string `json:"targetUserId"`
}

type RejectRequestPayload struct {
	UserID string `json:"userId"`
}

type ChatMessagePayload struct {
	Room    string `json:"room"`
	Message string `json:"message"`
	Sender  string `json:"sender,omitempty"`
}

type LeaveRoomPayload struct {
	Room string `json:"room"`
}

type RejoinRoomPayload struct {
	Room   string `json:"room"`
	UserID string `json:"userId"`
}

type BookAppointmentPayload struct {
	DoctorID      string `json:"doctorId"`
	PatientID     string `json:"patientId"`
	ScheduledTime string `json:"scheduledTime"`
	Details       string `json:"appointmentDetails"`
}

type RespondAppointmentPayload struct {
	AppointmentID string `json:"appointmentId"`
	Accepted      bool   `json:"accepted"`
	Message       string `json:"message,omitempty"`
}

type CancelAppointmentPayload struct {
	AppointmentID string `json:"appointmentId"`
	Reason        string `json:"reason,omitempty"`
}

type DoctorAppointmentsPayload struct {
	DoctorID string              `json:"doctorId"`
	Filters  *AppointmentFilters `json:"filters,omitempty"`
}

type PatientAppointmentsPayload struct {
	PatientID string              `json:"patientId"`
	Filters   *AppointmentFilters `json:"filters,omitempty"`
}

type VideoJoinPayload struct {
	AppointmentID string   `json:"appointmentId"`
	UserID        string   `json:"userId"`
	UserType      UserType `json:"userType"`
}

// SignalPayload carries WebRTC offer/answer/ICE material. The signaling
// relay forwards it without interpreting the SDP or candidate contents.
type SignalPayload struct {
	AppointmentID string          `json:"appointmentId"`
	UserID        string          `json:"userId"`
	UserType      UserType        `json:"userType,omitempty"`
	Offer         json.RawMessage `json:"offer,omitempty"`
	Answer        json.RawMessage `json:"answer,omitempty"`
	Candidate     json.RawMessage `json:"candidate,omitempty"`
}

type InitiateCallPayload struct {
	AppointmentID string          `json:"appointmentId"`
	PatientID     string          `json:"patientId"`
	Offer         json.RawMessage `json:"offer"`
}

type CallResponsePayload struct {
	AppointmentID string          `json:"appointmentId"`
	Accepted      bool            `json:"accepted"`
	Answer        json.RawMessage `json:"answer,omitempty"`
}

type EndCallPayload struct {
	AppointmentID string `json:"appointmentId"`
}

type SharePrescriptionPayload struct {
	AppointmentID string `json:"appointmentId"`
	Prescription  string `json:"prescription"`
	Diagnosis     string `json:"diagnosis"`
	MedicalNotes  string `json:"medicalNotes"`
}

// CompanionMessagePayload carries one user message to the companion chat.
type CompanionMessagePayload struct {
	Message string `json:"message"`
}

// ErrorPayload is the structured error body emitted on *:error events.
type ErrorPayload struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
