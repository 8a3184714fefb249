package app

import (
	"sort"

	"web_chat_service/internal/room/domain"
)

// sessionRegistry maps connection ids to sessions. It is owned exclusively by
// the coordinator goroutine and therefore needs no locking; nothing outside
// the actor may touch it.
type sessionRegistry struct {
	sessions map[string]domain.Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]domain.Session)}
}

// Register adds a session with empty status. A handle that already exists is
// rejected so a duplicate accept cannot clobber live status.
func (r *sessionRegistry) Register(connID, userID string) bool {
	if _, exists := r.sessions[connID]; exists {
		return false
	}
	r.sessions[connID] = domain.Session{UserID: userID}
	return true
}

// Restore re-adds a session rebuilt from a durable attachment after restart.
func (r *sessionRegistry) Restore(connID string, session domain.Session) {
	r.sessions[connID] = session
}

// Get returns a copy of the session for the handle.
func (r *sessionRegistry) Get(connID string) (domain.Session, bool) {
	session, ok := r.sessions[connID]
	return session, ok
}

// SetStatus stores the reported status on an existing session. An unknown
// handle reports false; the caller treats that as a protocol violation.
func (r *sessionRegistry) SetStatus(connID string, status domain.Status) (domain.Session, bool) {
	session, ok := r.sessions[connID]
	if !ok {
		return domain.Session{}, false
	}
	session.Status = &status
	r.sessions[connID] = session
	return session, true
}

// Remove deletes the session; idempotent.
func (r *sessionRegistry) Remove(connID string) {
	delete(r.sessions, connID)
}

func (r *sessionRegistry) Len() int {
	return len(r.sessions)
}

// Snapshot returns the current membership for a roomStats broadcast. The
// registry keeps one session per connection, but the snapshot lists each user
// once even when they hold several tabs. Connection ids are sorted so the
// surviving entry is deterministic.
func (r *sessionRegistry) Snapshot() domain.RoomStats {
	connIDs := make([]string, 0, len(r.sessions))
	for connID := range r.sessions {
		connIDs = append(connIDs, connID)
	}
	sort.Strings(connIDs)

	seen := make(map[string]struct{}, len(r.sessions))
	users := []domain.Session{}
	for _, connID := range connIDs {
		session := r.sessions[connID]
		if _, dup := seen[session.UserID]; dup {
			continue
		}
		seen[session.UserID] = struct{}{}
		users = append(users, session)
	}
	return domain.RoomStats{Users: users}
}
