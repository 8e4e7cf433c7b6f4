package usage

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/screenguard/screenguard/internal/domain"
)

// DefaultInactivityTimeout is the event gap after which the current
// session is considered over and a new one starts.
const DefaultInactivityTimeout = 2 * time.Minute

// Recorder turns the foreground event stream into persisted sessions.
// It consumes the same events the monitor does: each sample of the same
// package extends the open session; a package change or a long gap
// finalizes it and opens a new one.
type Recorder struct {
	store             domain.SessionStore
	inactivityTimeout time.Duration
	logger            *zap.Logger

	mu      sync.Mutex
	current *domain.SessionRecord
	lastAt  time.Time
}

// NewRecorder creates a session recorder.
func NewRecorder(store domain.SessionStore, inactivityTimeout time.Duration, logger *zap.Logger) *Recorder {
	if inactivityTimeout <= 0 {
		inactivityTimeout = DefaultInactivityTimeout
	}
	return &Recorder{
		store:             store,
		inactivityTimeout: inactivityTimeout,
		logger:            logger,
	}
}

// Record accounts one foreground event. Storage failures are logged and
// absorbed; usage recording must never stall event processing.
func (r *Recorder) Record(event domain.ForegroundEvent) {
	if event.Package == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil && r.current.Package == event.Package {
		gap := event.At.Sub(r.lastAt)
		if gap >= 0 && gap <= r.inactivityTimeout {
			// Same app still in front: extend the open session.
			r.current.Duration += gap
			r.current.EndedAt = event.At
			r.lastAt = event.At
			r.persistLocked()
			return
		}
	}

	r.finalizeLocked(r.lastAt)

	r.current = &domain.SessionRecord{
		Package:   event.Package,
		StartedAt: event.At,
		EndedAt:   event.At,
	}
	r.lastAt = event.At
	r.persistLocked()

	r.logger.Debug("session started",
		zap.String("package", string(event.Package)),
		zap.Time("at", event.At))
}

// Flush finalizes the open session. Called on shutdown.
func (r *Recorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalizeLocked(r.lastAt)
}

// finalizeLocked closes the current session, if any. Caller holds mu.
func (r *Recorder) finalizeLocked(endedAt time.Time) {
	if r.current == nil {
		return
	}
	r.current.EndedAt = endedAt
	r.persistLocked()

	r.logger.Debug("session finalized",
		zap.String("package", string(r.current.Package)),
		zap.Duration("duration", r.current.Duration))
	r.current = nil
}

// persistLocked upserts the current session row. Caller holds mu.
func (r *Recorder) persistLocked() {
	if r.current == nil {
		return
	}
	id, err := r.store.UpsertSession(*r.current)
	if err != nil {
		r.logger.Warn("failed to persist session",
			zap.String("package", string(r.current.Package)),
			zap.Error(err))
		return
	}
	r.current.ID = id
}
