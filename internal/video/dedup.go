package video

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// answerLog tracks (appointmentId, userId) answer keys already relayed per
// sending connection. A key is only recorded once its answer actually went
// out, so a retry after a failed relay is not suppressed. Entries
// self-expire after the configured window so a genuine re-negotiation later
// is processed again. Timers are owned by the log and cancelled on Close.
type answerLog struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	ttl    time.Duration
	closed bool
}

func newAnswerLog(ttl time.Duration) *answerLog {
	return &answerLog{
		timers: make(map[string]*time.Timer),
		ttl:    ttl,
	}
}

func answerKey(connID uuid.UUID, appointmentID, userID string) string {
	return connID.String() + "|" + appointmentID + "|" + userID
}

// duplicate reports whether the key was relayed within the expiry window.
func (l *answerLog) duplicate(connID uuid.UUID, appointmentID, userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, dup := l.timers[answerKey(connID, appointmentID, userID)]
	return dup
}

// mark records a relayed key and schedules its expiration.
func (l *answerLog) mark(connID uuid.UUID, appointmentID, userID string) {
	key := answerKey(connID, appointmentID, userID)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if _, dup := l.timers[key]; dup {
		return
	}

	l.timers[key] = time.AfterFunc(l.ttl, func() {
		l.mu.Lock()
		delete(l.timers, key)
		l.mu.Unlock()
	})
}

// Close stops every pending expiration timer.
func (l *answerLog) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	for key, t := range l.timers {
		t.Stop()
		delete(l.timers, key)
	}
}
