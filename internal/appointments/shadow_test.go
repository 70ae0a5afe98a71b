package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

func newTestShadowStore() *ShadowStore {
	return NewShadowStore(time.Hour, logger.New("panic"))
}

func TestSweepEvictsTerminalAndExpiredPending(t *testing.T) {
	s := newTestShadowStore()
	now := time.Now().UTC()

	s.Put(&Shadow{AppointmentID: "apt-completed", DoctorID: "doc-1", PatientID: "pat-1", Status: types.StatusCompleted})
	s.Put(&Shadow{AppointmentID: "apt-rejected", DoctorID: "doc-1", PatientID: "pat-2", Status: types.StatusRejected})
	s.Put(&Shadow{AppointmentID: "apt-stale", DoctorID: "doc-2", PatientID: "pat-1", Status: types.StatusPending, ExpiresAt: now.Add(-time.Minute)})
	s.Put(&Shadow{AppointmentID: "apt-fresh", DoctorID: "doc-2", PatientID: "pat-2", Status: types.StatusPending, ExpiresAt: now.Add(time.Hour)})
	s.Put(&Shadow{AppointmentID: "apt-confirmed", DoctorID: "doc-3", PatientID: "pat-3", Status: types.StatusConfirmed})

	evicted := s.Sweep(now)
	assert.Equal(t, 3, evicted)
	assert.Equal(t, 2, s.Len())

	_, ok := s.Get("apt-completed")
	assert.False(t, ok)
	_, ok = s.Get("apt-stale")
	assert.False(t, ok)

	// A confirmed appointment past any expiry stays: expiry only applies
	// while pending.
	_, ok = s.Get("apt-confirmed")
	assert.True(t, ok)
	_, ok = s.Get("apt-fresh")
	assert.True(t, ok)
}

func TestSweepCleansParticipantIndexes(t *testing.T) {
	s := newTestShadowStore()

	s.Put(&Shadow{AppointmentID: "apt-1", DoctorID: "doc-1", PatientID: "pat-1", Status: types.StatusCancelled})
	s.Put(&Shadow{AppointmentID: "apt-2", DoctorID: "doc-1", PatientID: "pat-1", Status: types.StatusConfirmed})

	require.Len(t, s.ActiveForDoctor("doc-1"), 2)

	s.Sweep(time.Now().UTC())

	assert.Equal(t, []string{"apt-2"}, s.ActiveForDoctor("doc-1"))
	assert.Equal(t, []string{"apt-2"}, s.ActiveForPatient("pat-1"))
}

func TestUpdateStatusIgnoresMissingShadow(t *testing.T) {
	s := newTestShadowStore()

	assert.False(t, s.UpdateStatus("nope", types.StatusConfirmed))

	s.Put(&Shadow{AppointmentID: "apt-1", DoctorID: "doc-1", PatientID: "pat-1", Status: types.StatusPending})
	assert.True(t, s.UpdateStatus("apt-1", types.StatusConfirmed))

	sh, ok := s.Get("apt-1")
	require.True(t, ok)
	assert.Equal(t, types.StatusConfirmed, sh.Status)
}

func TestGetReturnsCopy(t *testing.T) {
	s := newTestShadowStore()
	s.Put(&Shadow{AppointmentID: "apt-1", DoctorID: "doc-1", PatientID: "pat-1", Status: types.StatusPending})

	sh, ok := s.Get("apt-1")
	require.True(t, ok)
	sh.Status = types.StatusCancelled

	fresh, _ := s.Get("apt-1")
	assert.Equal(t, types.StatusPending, fresh.Status)
}

func TestPutIgnoresEmptyID(t *testing.T) {
	s := newTestShadowStore()
	s.Put(&Shadow{AppointmentID: ""})
	s.Put(nil)
	assert.Equal(t, 0, s.Len())
}
