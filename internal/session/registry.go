package session

import "sync"

// Registry maps game ids to live sessions. It only guards the map; session
// state has its own lock, which may be held while calling Remove but never
// the other way round.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[string]*Session{}}
}

// CreateOrGet returns the session for gameID, installing an empty one if
// none exists. created reports whether this call installed it.
func (r *Registry) CreateOrGet(gameID string) (s *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[gameID]; ok {
		return s, false
	}
	s = newSession(gameID)
	r.sessions[gameID] = s
	return s, true
}

func (r *Registry) Get(gameID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[gameID]
	return s, ok
}

// Remove drops gameID. Callers mark the session closed first, under its
// lock, so a joiner holding a stale pointer retries CreateOrGet.
func (r *Registry) Remove(gameID string) {
	r.mu.Lock()
	delete(r.sessions, gameID)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
