package appointments

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ShrutiSoni4370/HealNest-sub001/internal/hub"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/presence"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

// MockAppointmentStore is a mock implementation of interfaces.AppointmentStore.
type MockAppointmentStore struct {
	mock.Mock
}

func (m *MockAppointmentStore) CreateAppointment(ctx context.Context, apt *types.Appointment) (*types.Appointment, error) {
	args := m.Called(ctx, apt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Appointment), args.Error(1)
}

func (m *MockAppointmentStore) GetAppointment(ctx context.Context, id string) (*types.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Appointment), args.Error(1)
}

func (m *MockAppointmentStore) RespondToAppointment(ctx context.Context, id string, accepted bool, message string) (*types.Appointment, error) {
	args := m.Called(ctx, id, accepted, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Appointment), args.Error(1)
}

func (m *MockAppointmentStore) CancelAppointment(ctx context.Context, id, reason, cancelledBy string) (*types.Appointment, error) {
	args := m.Called(ctx, id, reason, cancelledBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Appointment), args.Error(1)
}

func (m *MockAppointmentStore) MarkCallStarted(ctx context.Context, id string, at time.Time) (*types.Appointment, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Appointment), args.Error(1)
}

func (m *MockAppointmentStore) MarkCallEnded(ctx context.Context, id string, at time.Time, durationSeconds int) (*types.Appointment, error) {
	args := m.Called(ctx, id, at, durationSeconds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Appointment), args.Error(1)
}

func (m *MockAppointmentStore) SharePrescription(ctx context.Context, id string, rx *types.PrescriptionUpdate) (*types.Appointment, error) {
	args := m.Called(ctx, id, rx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Appointment), args.Error(1)
}

func (m *MockAppointmentStore) ListForDoctor(ctx context.Context, doctorID string, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	args := m.Called(ctx, doctorID, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Appointment), args.Error(1)
}

func (m *MockAppointmentStore) ListForPatient(ctx context.Context, patientID string, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	args := m.Called(ctx, patientID, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Appointment), args.Error(1)
}

type bridgeFixture struct {
	hub      *hub.Hub
	registry *presence.Registry
	store    *MockAppointmentStore
	shadows  *ShadowStore
	bridge   *Bridge
}

func newBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()
	log := logger.New("panic")
	h := hub.New(log)
	reg := presence.NewRegistry(h, log)
	store := new(MockAppointmentStore)
	shadows := NewShadowStore(time.Hour, log)
	return &bridgeFixture{
		hub:      h,
		registry: reg,
		store:    store,
		shadows:  shadows,
		bridge:   NewBridge(h, reg, store, shadows, log),
	}
}

func (f *bridgeFixture) connect(t *testing.T, userID string, userType types.UserType) *hub.Connection {
	t.Helper()
	conn := hub.NewConnection(context.Background(), nil, hub.ConnectionConfig{}, logger.New("panic"))
	f.hub.Attach(conn)
	f.registry.Register(conn, userID, userType, &types.UserProfile{ID: userID, UserType: userType})
	drainConn(conn)
	return conn
}

func drainConn(conn *hub.Connection) []*hub.Envelope {
	var out []*hub.Envelope
	for {
		env, ok := conn.NextOutbound()
		if !ok {
			return out
		}
		out = append(out, env)
	}
}

func eventsOf(frames []*hub.Envelope, event string) []*hub.Envelope {
	var out []*hub.Envelope
	for _, f := range frames {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

func rawPayload(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestBookValidationNeverTouchesStore(t *testing.T) {
	f := newBridgeFixture(t)
	patient := f.connect(t, "pat-1", types.UserTypePatient)

	cases := []types.BookAppointmentPayload{
		{PatientID: "pat-1", ScheduledTime: "2026-09-01T10:00:00Z"},            // missing doctor
		{DoctorID: "doc-1", ScheduledTime: "2026-09-01T10:00:00Z"},             // missing patient
		{DoctorID: "doc-1", PatientID: "pat-1"},                                // missing time
		{DoctorID: "doc-1", PatientID: "pat-1", ScheduledTime: "next tuesday"}, // unparseable time
	}

	for _, payload := range cases {
		f.bridge.handleBook(context.Background(), patient, rawPayload(t, payload))

		frames := drainConn(patient)
		require.Len(t, eventsOf(frames, types.EventAppointmentError), 1)
		assert.Empty(t, eventsOf(frames, types.EventBookingConfirmed))
	}

	f.store.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.shadows.Len())
}

func TestBookConfirmsCallerAndNotifiesDoctorGroup(t *testing.T) {
	f := newBridgeFixture(t)
	patient := f.connect(t, "pat-1", types.UserTypePatient)
	doctorA := f.connect(t, "doc-1", types.UserTypeDoctor)
	doctorB := f.connect(t, "doc-1", types.UserTypeDoctor)

	scheduled := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	stored := &types.Appointment{
		ID:            "apt-1",
		DoctorID:      "doc-1",
		PatientID:     "pat-1",
		Status:        types.StatusPending,
		ScheduledTime: scheduled,
		ExpiresAt:     scheduled.Add(24 * time.Hour),
	}
	f.store.On("CreateAppointment", mock.Anything, mock.MatchedBy(func(apt *types.Appointment) bool {
		return apt.DoctorID == "doc-1" && apt.PatientID == "pat-1" && apt.ScheduledTime.Equal(scheduled)
	})).Return(stored, nil)

	f.bridge.handleBook(context.Background(), patient, rawPayload(t, types.BookAppointmentPayload{
		DoctorID:      "doc-1",
		PatientID:     "pat-1",
		ScheduledTime: "2026-09-01T10:00:00Z",
	}))

	// Caller gets the confirmation, every doctor device gets the request.
	assert.Len(t, eventsOf(drainConn(patient), types.EventBookingConfirmed), 1)
	assert.Len(t, eventsOf(drainConn(doctorA), types.EventNewAppointment), 1)
	assert.Len(t, eventsOf(drainConn(doctorB), types.EventNewAppointment), 1)

	// The shadow mirrors the stored record.
	sh, ok := f.shadows.Get("apt-1")
	require.True(t, ok)
	assert.Equal(t, types.StatusPending, sh.Status)
	assert.Equal(t, "doc-1", sh.DoctorID)

	f.store.AssertExpectations(t)
}

func TestRespondNotifiesPatientGroupAndUpdatesShadow(t *testing.T) {
	f := newBridgeFixture(t)
	doctor := f.connect(t, "doc-1", types.UserTypeDoctor)
	patient := f.connect(t, "pat-1", types.UserTypePatient)

	f.shadows.Put(&Shadow{AppointmentID: "apt-1", DoctorID: "doc-1", PatientID: "pat-1", Status: types.StatusPending})

	confirmed := &types.Appointment{ID: "apt-1", DoctorID: "doc-1", PatientID: "pat-1", Status: types.StatusConfirmed}
	f.store.On("RespondToAppointment", mock.Anything, "apt-1", true, "see you then").Return(confirmed, nil)

	f.bridge.handleRespond(context.Background(), doctor, rawPayload(t, types.RespondAppointmentPayload{
		AppointmentID: "apt-1",
		Accepted:      true,
		Message:       "see you then",
	}))

	assert.Len(t, eventsOf(drainConn(patient), types.EventAppointmentResponse), 1)

	sh, _ := f.shadows.Get("apt-1")
	assert.Equal(t, types.StatusConfirmed, sh.Status)
	f.store.AssertExpectations(t)
}

func TestRespondConflictReachesCallerOnly(t *testing.T) {
	f := newBridgeFixture(t)
	doctor := f.connect(t, "doc-1", types.UserTypeDoctor)
	patient := f.connect(t, "pat-1", types.UserTypePatient)

	conflict := types.NewConflictError(types.CodeInvalidTransition, "appointment is no longer pending")
	f.store.On("RespondToAppointment", mock.Anything, "apt-1", true, "").Return(nil, conflict)

	f.bridge.handleRespond(context.Background(), doctor, rawPayload(t, types.RespondAppointmentPayload{
		AppointmentID: "apt-1",
		Accepted:      true,
	}))

	frames := eventsOf(drainConn(doctor), types.EventAppointmentError)
	require.Len(t, frames, 1)

	var errPayload types.ErrorPayload
	require.NoError(t, json.Unmarshal(frames[0].Data, &errPayload))
	assert.Equal(t, "appointment is no longer pending", errPayload.Message)
	assert.Equal(t, types.CodeInvalidTransition, errPayload.Details["code"])

	assert.Empty(t, drainConn(patient), "errors must stay scoped to the caller")
}

func TestCancelByPatientNotifiesDoctorSide(t *testing.T) {
	f := newBridgeFixture(t)
	patient := f.connect(t, "pat-1", types.UserTypePatient)
	doctor := f.connect(t, "doc-1", types.UserTypeDoctor)

	f.shadows.Put(&Shadow{AppointmentID: "apt-1", DoctorID: "doc-1", PatientID: "pat-1", Status: types.StatusConfirmed})

	cancelled := &types.Appointment{ID: "apt-1", DoctorID: "doc-1", PatientID: "pat-1", Status: types.StatusCancelled}
	f.store.On("CancelAppointment", mock.Anything, "apt-1", "feeling better", "patient").Return(cancelled, nil)

	f.bridge.handleCancel(context.Background(), patient, rawPayload(t, types.CancelAppointmentPayload{
		AppointmentID: "apt-1",
		Reason:        "feeling better",
	}))

	assert.Len(t, eventsOf(drainConn(doctor), types.EventAppointmentCancelled), 1)
	assert.Len(t, eventsOf(drainConn(patient), types.EventCancelConfirmed), 1)

	sh, _ := f.shadows.Get("apt-1")
	assert.Equal(t, types.StatusCancelled, sh.Status)
	f.store.AssertExpectations(t)
}

func TestCancelByDoctorNotifiesPatientSide(t *testing.T) {
	f := newBridgeFixture(t)
	doctor := f.connect(t, "doc-1", types.UserTypeDoctor)
	patient := f.connect(t, "pat-1", types.UserTypePatient)

	cancelled := &types.Appointment{ID: "apt-1", DoctorID: "doc-1", PatientID: "pat-1", Status: types.StatusCancelled}
	f.store.On("CancelAppointment", mock.Anything, "apt-1", "emergency", "doctor").Return(cancelled, nil)

	f.bridge.handleCancel(context.Background(), doctor, rawPayload(t, types.CancelAppointmentPayload{
		AppointmentID: "apt-1",
		Reason:        "emergency",
	}))

	assert.Len(t, eventsOf(drainConn(patient), types.EventAppointmentCancelled), 1)
	f.store.AssertExpectations(t)
}

func TestGetDoctorAppointmentsRepliesToCaller(t *testing.T) {
	f := newBridgeFixture(t)
	doctor := f.connect(t, "doc-1", types.UserTypeDoctor)

	list := []*types.Appointment{
		{ID: "apt-1", DoctorID: "doc-1", PatientID: "pat-1", Status: types.StatusConfirmed},
	}
	f.store.On("ListForDoctor", mock.Anything, "doc-1", (*types.AppointmentFilters)(nil)).Return(list, nil)

	f.bridge.handleGetDoctorAppointments(context.Background(), doctor, rawPayload(t, types.DoctorAppointmentsPayload{
		DoctorID: "doc-1",
	}))

	frames := eventsOf(drainConn(doctor), types.EventDoctorApptList)
	require.Len(t, frames, 1)
	f.store.AssertExpectations(t)
}

func TestSharePrescriptionReachesPatientGroup(t *testing.T) {
	f := newBridgeFixture(t)
	doctor := f.connect(t, "doc-1", types.UserTypeDoctor)
	patient := f.connect(t, "pat-1", types.UserTypePatient)

	updated := &types.Appointment{
		ID: "apt-1", DoctorID: "doc-1", PatientID: "pat-1",
		Status: types.StatusCompleted, Prescription: "rest and fluids",
	}
	f.store.On("SharePrescription", mock.Anything, "apt-1", mock.MatchedBy(func(rx *types.PrescriptionUpdate) bool {
		return rx.Prescription == "rest and fluids"
	})).Return(updated, nil)

	f.bridge.handleSharePrescription(context.Background(), doctor, rawPayload(t, types.SharePrescriptionPayload{
		AppointmentID: "apt-1",
		Prescription:  "rest and fluids",
	}))

	assert.Len(t, eventsOf(drainConn(patient), types.EventPrescriptionReceived), 1)
	assert.Len(t, eventsOf(drainConn(doctor), types.EventPrescriptionConfirmed), 1)
	f.store.AssertExpectations(t)
}
