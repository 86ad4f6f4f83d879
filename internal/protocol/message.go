package protocol

import (
	"encoding/json"

	"example.com/chess_session_server/internal/errors"
	"example.com/chess_session_server/internal/game"
)

// MessageType names an outbound server message.
type MessageType string

const (
	LoadGame         MessageType = "LOAD_GAME"
	Error            MessageType = "ERROR"
	Notification     MessageType = "NOTIFICATION"
	HighlightMessage MessageType = "HIGHLIGHT"
	LeaveMessage     MessageType = "LEAVE"
	ResignMessage    MessageType = "RESIGN"
)

// GameView is the board snapshot sent to clients.
type GameView struct {
	FEN        string                                 `json:"fen"`
	Squares    [game.BoardSize][game.BoardSize]string `json:"squares"` // [row-1][col-1], FEN letters
	SideToMove string                                 `json:"sideToMove"`
	Status     string                                 `json:"status"`
}

// NewGameView snapshots e. The caller must hold whatever lock guards e.
func NewGameView(e *game.Engine) GameView {
	b := e.Board()
	return GameView{
		FEN:        e.FEN(),
		Squares:    b.Grid(),
		SideToMove: e.SideToMove().String(),
		Status:     e.Status().String(),
	}
}

type LoadGamePayload struct {
	Game          GameView `json:"game"`
	ViewerIsWhite bool     `json:"viewerIsWhite"`
}

type ErrorPayload struct {
	Code         string `json:"code"`
	ErrorMessage string `json:"errorMessage"`
}

type NotificationPayload struct {
	Message string `json:"message"`
}

type HighlightPayload struct {
	Game         GameView      `json:"game"`
	Origin       game.Square   `json:"origin"`
	Destinations []game.Square `json:"destinations"`
}

type LeavePayload struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type ResignPayload struct {
	Username string `json:"username"`
	Winner   string `json:"winner,omitempty"`
}

// Encode wraps payload in an envelope. Payload types in this package
// always marshal, so the error is dropped.
func Encode(t MessageType, payload interface{}) []byte {
	m, _ := json.Marshal(payload)
	b, _ := json.Marshal(Msg{T: string(t), M: m})
	return b
}

// EncodeError builds a directed ERROR frame for err.
func EncodeError(err error) []byte {
	return Encode(Error, ErrorPayload{
		Code:         errors.Code(err),
		ErrorMessage: "Error: " + err.Error(),
	})
}

// EncodeNotification builds a NOTIFICATION frame.
func EncodeNotification(text string) []byte {
	return Encode(Notification, NotificationPayload{Message: text})
}

// DecodeMessage splits a server frame into its type and raw payload.
func DecodeMessage(raw []byte) (MessageType, json.RawMessage, error) {
	var env Msg
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, errors.Wrapf(errors.ErrMalformedCommand, "decode message: %v", err)
	}
	return MessageType(env.T), env.M, nil
}
