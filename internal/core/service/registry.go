package service

import (
	"sync"
	"time"

	"github.com/voxlink/bridge/internal/core/domain"
)

// Registry is the process-wide table of active call sessions. It is the
// only state shared between calls: the webhook path populates it, the
// relay teardown drains it. All access is mutex-guarded; a session is
// fully constructed before it becomes visible to readers.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.CallID]*CallSession
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.CallID]*CallSession),
	}
}

// Create publishes a session under its call ID. At most one session per
// call may exist at any time.
func (r *Registry) Create(s *CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.CallID()]; ok {
		return domain.ErrDuplicateSession
	}
	r.sessions[s.CallID()] = s
	activeSessions.Set(float64(len(r.sessions)))
	return nil
}

// Get returns the session for a call.
func (r *Registry) Get(id domain.CallID) (*CallSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Remove drops the session for a call. Idempotent: removing an absent
// key is a no-op.
func (r *Registry) Remove(id domain.CallID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	activeSessions.Set(float64(len(r.sessions)))
}

// Count reports the number of active sessions, for health reporting.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ExpirePending removes and returns sessions older than maxAge that no
// streaming connection has claimed. Claiming here uses the same
// attachment slot a relay would take, so a session is either expired or
// attached, never both.
func (r *Registry) ExpirePending(maxAge time.Duration) []*CallSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*CallSession
	for id, s := range r.sessions {
		if time.Since(s.CreatedAt()) > maxAge && s.TryAttach() {
			out = append(out, s)
			delete(r.sessions, id)
		}
	}
	activeSessions.Set(float64(len(r.sessions)))
	return out
}

// Drain removes and returns every session, for shutdown.
func (r *Registry) Drain() []*CallSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*CallSession, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, s)
		delete(r.sessions, id)
	}
	activeSessions.Set(0)
	return out
}
