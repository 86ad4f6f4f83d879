package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"example.com/chess_session_server/internal/errors"
	"example.com/chess_session_server/internal/game"
)

func TestDecodeCommand(t *testing.T) {
	raw := `{"t":"make_move","m":{"authToken":"tok","gameID":"g1","move":{"start":{"row":7,"col":1},"end":{"row":8,"col":1},"promotion":"QUEEN"}}}`
	cmd, err := DecodeCommand([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeCommand error: %v", err)
	}
	want := Command{
		Type:      MakeMove,
		AuthToken: "tok",
		GameID:    "g1",
		Move: &WireMove{
			Start:     game.Sq(7, 1),
			End:       game.Sq(8, 1),
			Promotion: "QUEEN",
		},
	}
	if diff := cmp.Diff(want, cmd); diff != "" {
		t.Errorf("DecodeCommand mismatch (-want +got):\n%s", diff)
	}

	m, err := cmd.Move.ToMove()
	if err != nil {
		t.Fatalf("ToMove error: %v", err)
	}
	if m != (game.Move{From: game.Sq(7, 1), To: game.Sq(8, 1), Promotion: game.Queen}) {
		t.Errorf("ToMove = %+v", m)
	}
}

func TestDecodeCommandMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `hello`},
		{"unknown type", `{"t":"DANCE","m":{"gameID":"g"}}`},
		{"no payload", `{"t":"LEAVE"}`},
		{"payload wrong shape", `{"t":"LEAVE","m":[1,2]}`},
		{"missing game", `{"t":"LEAVE","m":{"authToken":"x"}}`},
		{"move without move", `{"t":"MAKE_MOVE","m":{"authToken":"x","gameID":"g"}}`},
		{"highlight without square", `{"t":"HIGHLIGHT","m":{"authToken":"x","gameID":"g"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand([]byte(tt.raw))
			if !errors.Is(err, errors.ErrMalformedCommand) {
				t.Errorf("DecodeCommand(%s) error = %v, want ErrMalformedCommand", tt.raw, err)
			}
		})
	}
}

func TestWireMoveErrors(t *testing.T) {
	_, err := WireMove{Start: game.Sq(0, 1), End: game.Sq(1, 1)}.ToMove()
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("off-board start error = %v, want ErrNotFound", err)
	}
	_, err = WireMove{Start: game.Sq(1, 1), End: game.Sq(9, 1)}.ToMove()
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("off-board end error = %v, want ErrNotFound", err)
	}
	for _, p := range []string{"KING", "PAWN", "dragon"} {
		_, err = WireMove{Start: game.Sq(7, 1), End: game.Sq(8, 1), Promotion: p}.ToMove()
		if !errors.Is(err, errors.ErrInvalidMove) {
			t.Errorf("promotion %q error = %v, want ErrInvalidMove", p, err)
		}
	}
}

func TestCommandRoundTrip(t *testing.T) {
	sq := game.Sq(2, 5)
	cmd := Command{Type: Highlight, AuthToken: "tok", GameID: "g", Square: &sq}
	got, err := DecodeCommand(EncodeCommand(cmd))
	if err != nil {
		t.Fatalf("DecodeCommand error: %v", err)
	}
	if diff := cmp.Diff(cmd, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	mv := NewWireMove(game.Move{From: game.Sq(7, 1), To: game.Sq(8, 1), Promotion: game.Knight})
	if mv.Promotion != "KNIGHT" {
		t.Errorf("NewWireMove promotion = %q", mv.Promotion)
	}
}

func TestEncodeError(t *testing.T) {
	raw := EncodeError(errors.Wrap(errors.ErrForbidden, "white is taken"))
	typ, payload, err := DecodeMessage(raw)
	if err != nil {
		t.Fatalf("DecodeMessage error: %v", err)
	}
	if typ != Error {
		t.Fatalf("type = %s, want ERROR", typ)
	}
	var p ErrorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Code != errors.CodeForbidden {
		t.Errorf("code = %q", p.Code)
	}
	if !strings.HasPrefix(p.ErrorMessage, "Error: ") || !strings.Contains(p.ErrorMessage, "white is taken") {
		t.Errorf("errorMessage = %q", p.ErrorMessage)
	}
}

func TestNewGameView(t *testing.T) {
	v := NewGameView(game.NewEngine())
	if v.FEN != game.InitialFEN {
		t.Errorf("FEN = %q", v.FEN)
	}
	if v.Squares[0][4] != "K" || v.Squares[7][3] != "q" || v.Squares[3][3] != "" {
		t.Errorf("unexpected squares: %v", v.Squares)
	}
	if v.SideToMove != "white" || v.Status != "ONGOING" {
		t.Errorf("SideToMove = %q, Status = %q", v.SideToMove, v.Status)
	}
}
