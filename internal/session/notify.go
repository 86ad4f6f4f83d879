package session

import (
	"example.com/chess_session_server/internal/game"
	"example.com/chess_session_server/internal/protocol"
	"example.com/chess_session_server/internal/ws"
)

// loadGame renders a LOAD_GAME frame. Only the black player views the board
// from Black's side.
func loadGame(e *game.Engine, viewer Role) []byte {
	return protocol.Encode(protocol.LoadGame, protocol.LoadGamePayload{
		Game:          protocol.NewGameView(e),
		ViewerIsWhite: viewer != BlackPlayer,
	})
}

// broadcast sends payload to the session's participants except exclude.
// Connections attached to the game id but not to s are skipped. It runs
// with s.mu held.
func (co *Coordinator) broadcast(s *Session, payload []byte, exclude string) int {
	return co.hub.BroadcastFunc(s.id, exclude, func(c *ws.Client) ([]byte, bool) {
		_, ok := s.participants[c.ID()]
		return payload, ok
	})
}

// broadcastBoard sends every participant a LOAD_GAME in its own orientation.
// It runs with s.mu held.
func (co *Coordinator) broadcastBoard(s *Session) int {
	white := loadGame(s.engine, WhitePlayer)
	black := loadGame(s.engine, BlackPlayer)
	return co.hub.BroadcastFunc(s.id, "", func(c *ws.Client) ([]byte, bool) {
		p, ok := s.participants[c.ID()]
		if !ok {
			return nil, false
		}
		if p.role == BlackPlayer {
			return black, true
		}
		return white, true
	})
}
