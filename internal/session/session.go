package session

import (
	"sync"

	"example.com/chess_session_server/internal/game"
)

type participant struct {
	username string
	role     Role
}

// Session is one live game plus the connections attached to it. Every field
// below mu is guarded by it, and the coordinator holds mu across
// validate, apply and broadcast so moves are never interleaved.
type Session struct {
	id string

	mu           sync.Mutex
	loaded       bool // engine restored from the store
	over         bool // resigned, checkmate or stalemate
	closed       bool // removed from the registry; joiners must retry
	engine       *game.Engine
	participants map[string]participant // conn id -> participant
}

func newSession(id string) *Session {
	return &Session{id: id, participants: map[string]participant{}}
}

func (s *Session) ID() string { return s.id }

// Over reports whether the game has ended.
func (s *Session) Over() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.over
}

// FEN returns the current position, or "" before the session is loaded.
func (s *Session) FEN() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return ""
	}
	return s.engine.FEN()
}

// Participants returns the number of attached connections.
func (s *Session) Participants() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}

// seated reports whether a connection other than except still holds role
// for username.
func (s *Session) seated(role Role, username, except string) bool {
	for id, p := range s.participants {
		if id != except && p.role == role && p.username == username {
			return true
		}
	}
	return false
}
