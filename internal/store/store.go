// Package store implements the server's external collaborators: identity
// resolution for auth tokens and the persisted game records that decide who
// may sit in each colour's seat.
package store

import (
	"context"

	"example.com/chess_session_server/internal/game"
)

// Roles names the users holding each seat; "" means the seat is free.
type Roles struct {
	White string `json:"white,omitempty"`
	Black string `json:"black,omitempty"`
}

// Holder returns the username in c's seat.
func (r Roles) Holder(c game.Color) string {
	if c == game.Black {
		return r.Black
	}
	return r.White
}

func (r *Roles) set(c game.Color, username string) {
	if c == game.Black {
		r.Black = username
	} else {
		r.White = username
	}
}

// GameRecord is a persisted game as listed by the lobby.
type GameRecord struct {
	ID       string `json:"gameID"`
	Name     string `json:"gameName"`
	Roles    Roles  `json:"roles"`
	State    string `json:"-"` // FEN snapshot, "" before the first move
	Finished bool   `json:"finished"`
}

// Authenticator resolves auth tokens to usernames.
type Authenticator interface {
	// ResolveIdentity fails with errors.ErrUnauthorized for unknown tokens.
	ResolveIdentity(ctx context.Context, token string) (string, error)
}

// GameStore is the game-record side used by the session coordinator.
type GameStore interface {
	// GetGameRoles fails with errors.ErrNotFound for unknown games.
	GetGameRoles(ctx context.Context, gameID string) (Roles, error)
	// AssignRole seats username. It is idempotent for the current holder and
	// fails with errors.ErrForbidden when someone else holds the seat.
	AssignRole(ctx context.Context, gameID string, color game.Color, username string) error
	// ReleaseRole frees the seat if username holds it.
	ReleaseRole(ctx context.Context, gameID string, color game.Color, username string) error
	// LoadState returns the last saved FEN ("" if none) and whether the game ended.
	LoadState(ctx context.Context, gameID string) (string, bool, error)
	SaveState(ctx context.Context, gameID, fen string) error
	MarkFinished(ctx context.Context, gameID string) error
}

// Lobby is the CRUD surface used by the HTTP API.
type Lobby interface {
	Login(ctx context.Context, username string) (token string, err error)
	CreateGame(ctx context.Context, name string) (gameID string, err error)
	ListGames(ctx context.Context) ([]GameRecord, error)
}

// Store bundles every collaborator interface.
type Store interface {
	Authenticator
	GameStore
	Lobby
	Close() error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Postgres)(nil)
)
