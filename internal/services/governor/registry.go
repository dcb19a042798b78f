package governor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/frontdesk-ai/frontdesk/internal/models"
)

// Registry is the process-wide map of live sessions. Entries are inserted
// at admission and removed unconditionally by session cleanup, so the
// registry never outlives real sessions except under process death.
//
// Each entry carries a transfer channel so out-of-band control signals from
// the live-operations surface can reach the running session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*registryEntry
}

type registryEntry struct {
	info      models.ActiveSession
	transfers chan models.TransferRequest
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*registryEntry)}
}

// Register inserts a session and returns the channel its transfer requests
// arrive on.
func (r *Registry) Register(info models.ActiveSession) <-chan models.TransferRequest {
	entry := &registryEntry{
		info:      info,
		transfers: make(chan models.TransferRequest, 1),
	}

	r.mu.Lock()
	r.sessions[info.SessionID] = entry
	r.mu.Unlock()

	return entry.transfers
}

// Unregister removes a session. Removing an unknown id is a no-op so the
// cleanup path can run unconditionally.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}

// Get returns a live session's metadata.
func (r *Registry) Get(sessionID string) (models.ActiveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		return models.ActiveSession{}, false
	}
	return entry.info, true
}

// List returns all live sessions ordered by start time.
func (r *Registry) List() []models.ActiveSession {
	r.mu.RLock()
	sessions := make([]models.ActiveSession, 0, len(r.sessions))
	for _, entry := range r.sessions {
		sessions = append(sessions, entry.info)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
	return sessions
}

// ListByOwner returns the live sessions belonging to one operator.
func (r *Registry) ListByOwner(ownerID string) []models.ActiveSession {
	all := r.List()
	owned := all[:0]
	for _, s := range all {
		if s.OwnerID == ownerID {
			owned = append(owned, s)
		}
	}
	return owned
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Transfer delivers a transfer request to a running session. It fails when
// the session is unknown or already has a pending transfer.
func (r *Registry) Transfer(sessionID string, req models.TransferRequest) error {
	r.mu.RLock()
	entry, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no active session %s", sessionID)
	}

	select {
	case entry.transfers <- req:
		return nil
	default:
		return fmt.Errorf("session %s already has a pending transfer", sessionID)
	}
}
