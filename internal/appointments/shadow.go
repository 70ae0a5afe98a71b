package appointments

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

// Shadow is the in-memory, non-authoritative mirror of one appointment,
// kept for fast status checks. The durable record in the store is always
// the authority.
type Shadow struct {
	AppointmentID string
	DoctorID      string
	PatientID     string
	Status        types.AppointmentStatus
	ExpiresAt     time.Time
}

// ShadowStore holds appointment shadows indexed by appointment, doctor and
// patient, and owns the periodic sweep that bounds its growth.
type ShadowStore struct {
	mu        sync.RWMutex
	byID      map[string]*Shadow
	byDoctor  map[string]map[string]struct{}
	byPatient map[string]map[string]struct{}

	interval time.Duration
	logger   *logrus.Entry
}

// NewShadowStore creates a shadow store sweeping at the given interval.
func NewShadowStore(interval time.Duration, log *logger.Logger) *ShadowStore {
	return &ShadowStore{
		byID:      make(map[string]*Shadow),
		byDoctor:  make(map[string]map[string]struct{}),
		byPatient: make(map[string]map[string]struct{}),
		interval:  interval,
		logger:    log.WithComponent("appointment_shadow"),
	}
}

// Put inserts or replaces a shadow and indexes it under both participants.
func (s *ShadowStore) Put(sh *Shadow) {
	if sh == nil || sh.AppointmentID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[sh.AppointmentID] = sh
	s.index(s.byDoctor, sh.DoctorID, sh.AppointmentID)
	s.index(s.byPatient, sh.PatientID, sh.AppointmentID)
}

// UpdateStatus mutates the denormalized status of an existing shadow.
// Missing shadows are ignored: the durable store already holds the truth.
func (s *ShadowStore) UpdateStatus(appointmentID string, status types.AppointmentStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.byID[appointmentID]
	if !ok {
		return false
	}
	sh.Status = status
	return true
}

// Get returns a copy of a shadow.
func (s *ShadowStore) Get(appointmentID string) (Shadow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, ok := s.byID[appointmentID]
	if !ok {
		return Shadow{}, false
	}
	return *sh, true
}

// ActiveForDoctor returns appointment ids shadowed for a doctor.
func (s *ShadowStore) ActiveForDoctor(doctorID string) []string {
	return s.idsFor(s.byDoctor, doctorID)
}

// ActiveForPatient returns appointment ids shadowed for a patient.
func (s *ShadowStore) ActiveForPatient(patientID string) []string {
	return s.idsFor(s.byPatient, patientID)
}

// Len returns the number of shadows currently held.
func (s *ShadowStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Sweep evicts every shadow whose status is terminal, or whose status is
// still pending past its expiry. Returns the number evicted. The durable
// store is never touched: its own TTL handling owns durable expiry.
func (s *ShadowStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sh := range s.byID {
		stale := sh.Status.Terminal() ||
			(sh.Status == types.StatusPending && !sh.ExpiresAt.IsZero() && sh.ExpiresAt.Before(now))
		if !stale {
			continue
		}
		delete(s.byID, id)
		s.unindex(s.byDoctor, sh.DoctorID, id)
		s.unindex(s.byPatient, sh.PatientID, id)
		evicted++
	}
	return evicted
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *ShadowStore) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.interval.String()).Info("Shadow cleanup scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shadow cleanup scheduler stopped")
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				s.logger.WithField("evicted", n).Info("Swept stale appointment shadows")
			}
		}
	}
}

func (s *ShadowStore) index(idx map[string]map[string]struct{}, key, id string) {
	if key == "" {
		return
	}
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[id] = struct{}{}
}

func (s *ShadowStore) unindex(idx map[string]map[string]struct{}, key, id string) {
	if set, ok := idx[key]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(idx, key)
		}
	}
}

func (s *ShadowStore) idsFor(idx map[string]map[string]struct{}, key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := idx[key]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
