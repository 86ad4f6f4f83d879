// Package protocol defines the JSON frames exchanged over a game websocket.
// Every frame is an envelope {"t": type, "m": payload}.
package protocol

import (
	"encoding/json"
	"strings"

	"example.com/chess_session_server/internal/errors"
	"example.com/chess_session_server/internal/game"
)

// ---------- envelope ----------

// Msg is the frame envelope shared by commands and server messages.
type Msg struct {
	T string          `json:"t"`           // type
	M json.RawMessage `json:"m,omitempty"` // payload
}

// ---------- inbound commands ----------

// CommandType names an inbound command.
type CommandType string

const (
	Connect      CommandType = "CONNECT"
	MakeMove     CommandType = "MAKE_MOVE"
	Leave        CommandType = "LEAVE"
	Resign       CommandType = "RESIGN"
	RequestBoard CommandType = "REQUEST_BOARD"
	Highlight    CommandType = "HIGHLIGHT"
)

func (t CommandType) known() bool {
	switch t {
	case Connect, MakeMove, Leave, Resign, RequestBoard, Highlight:
		return true
	}
	return false
}

// Command is a decoded inbound frame. Fields not used by Type are zero.
type Command struct {
	Type      CommandType  `json:"-"`
	AuthToken string       `json:"authToken"`
	GameID    string       `json:"gameID"`
	Role      string       `json:"role,omitempty"`
	Move      *WireMove    `json:"move,omitempty"`
	Square    *game.Square `json:"square,omitempty"`
}

// WireMove is a move as sent by clients. Promotion is a kind name
// ("QUEEN") or letter ("q"); empty means no promotion.
type WireMove struct {
	Start     game.Square `json:"start"`
	End       game.Square `json:"end"`
	Promotion string      `json:"promotion,omitempty"`
}

// ToMove converts w into an engine move. Off-board squares are
// errors.ErrNotFound; an unrecognised promotion is errors.ErrInvalidMove.
func (w WireMove) ToMove() (game.Move, error) {
	if !w.Start.Valid() {
		return game.Move{}, errors.Wrapf(errors.ErrNotFound, "square %+v", w.Start)
	}
	if !w.End.Valid() {
		return game.Move{}, errors.Wrapf(errors.ErrNotFound, "square %+v", w.End)
	}
	m := game.Move{From: w.Start, To: w.End}
	if p := strings.TrimSpace(w.Promotion); p != "" {
		k, ok := game.ParseKind(p)
		if !ok || !k.IsPromotion() {
			return game.Move{}, errors.Wrapf(errors.ErrInvalidMove, "unknown promotion piece %q", p)
		}
		m.Promotion = k
	}
	return m, nil
}

// NewWireMove is the inverse of ToMove.
func NewWireMove(m game.Move) WireMove {
	w := WireMove{Start: m.From, End: m.To}
	if m.Promotion != game.NoKind {
		w.Promotion = m.Promotion.String()
	}
	return w
}

// DecodeCommand parses a raw frame. Any structural problem is
// errors.ErrMalformedCommand.
func DecodeCommand(raw []byte) (Command, error) {
	var env Msg
	if err := json.Unmarshal(raw, &env); err != nil {
		return Command{}, errors.Wrapf(errors.ErrMalformedCommand, "decode frame: %v", err)
	}
	cmd := Command{Type: CommandType(strings.ToUpper(strings.TrimSpace(env.T)))}
	if !cmd.Type.known() {
		return Command{}, errors.Wrapf(errors.ErrMalformedCommand, "unknown command %q", env.T)
	}
	if len(env.M) == 0 {
		return Command{}, errors.Wrapf(errors.ErrMalformedCommand, "%s without payload", cmd.Type)
	}
	if err := json.Unmarshal(env.M, &cmd); err != nil {
		return Command{}, errors.Wrapf(errors.ErrMalformedCommand, "decode %s: %v", cmd.Type, err)
	}
	if strings.TrimSpace(cmd.GameID) == "" {
		return Command{}, errors.Wrapf(errors.ErrMalformedCommand, "%s without gameID", cmd.Type)
	}
	switch cmd.Type {
	case MakeMove:
		if cmd.Move == nil {
			return Command{}, errors.Wrap(errors.ErrMalformedCommand, "MAKE_MOVE without move")
		}
	case Highlight:
		if cmd.Square == nil {
			return Command{}, errors.Wrap(errors.ErrMalformedCommand, "HIGHLIGHT without square")
		}
	}
	return cmd, nil
}

// EncodeCommand builds a frame for cmd; clients and tests use it.
func EncodeCommand(cmd Command) []byte {
	payload, _ := json.Marshal(cmd)
	b, _ := json.Marshal(Msg{T: string(cmd.Type), M: payload})
	return b
}
