// Package session coordinates live games: a registry of in-progress
// sessions and the per-connection protocol state machine that drives them.
package session

import (
	"strings"

	"example.com/chess_session_server/internal/errors"
	"example.com/chess_session_server/internal/game"
)

// Role is a connection's relationship to a session.
type Role uint8

const (
	Observer Role = iota
	WhitePlayer
	BlackPlayer
)

var roleNames = [...]string{"OBSERVER", "WHITE", "BLACK"}

// String returns the wire name of r.
func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "UNKNOWN"
}

// Color returns the colour a player role moves; observers have none.
func (r Role) Color() (game.Color, bool) {
	switch r {
	case WhitePlayer:
		return game.White, true
	case BlackPlayer:
		return game.Black, true
	default:
		return game.White, false
	}
}

// RoleFor returns the player role for c.
func RoleFor(c game.Color) Role {
	if c == game.Black {
		return BlackPlayer
	}
	return WhitePlayer
}

// ParseRole accepts WHITE, BLACK, OBSERVER and the *_PLAYER spellings in
// any case.
func ParseRole(s string) (Role, error) {
	switch strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "_PLAYER") {
	case "WHITE":
		return WhitePlayer, nil
	case "BLACK":
		return BlackPlayer, nil
	case "OBSERVER":
		return Observer, nil
	default:
		return Observer, errors.Wrapf(errors.ErrMalformedCommand, "unknown role %q", s)
	}
}

// describe renders r for notifications ("white", "an observer").
func (r Role) describe() string {
	if c, ok := r.Color(); ok {
		return c.String()
	}
	return "an observer"
}
