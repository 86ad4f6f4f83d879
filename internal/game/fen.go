package game

import (
	"strings"

	"example.com/chess_session_server/internal/errors"
)

// InitialFEN is the standard starting position.
const InitialFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1"

// FEN encodes the engine's position. Castling and en passant are not
// tracked, so those fields are always "-".
func (e *Engine) FEN() string {
	return EncodeFEN(&e.board, e.turn)
}

// EncodeFEN writes the placement and side-to-move fields of a FEN record.
func EncodeFEN(b *Board, turn Color) string {
	var sb strings.Builder
	for row := BoardSize; row >= 1; row-- {
		empty := 0
		for col := 1; col <= BoardSize; col++ {
			p, ok := b.At(Sq(row, col))
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(p.Letter())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if row > 1 {
			sb.WriteByte('/')
		}
	}
	if turn == White {
		sb.WriteString(" w")
	} else {
		sb.WriteString(" b")
	}
	sb.WriteString(" - - 0 1")
	return sb.String()
}

// NewEngineFromFEN builds an engine from a FEN record. Only the placement
// and side-to-move fields are read; a missing side field means White.
func NewEngineFromFEN(fen string) (*Engine, error) {
	b, turn, err := DecodeFEN(fen)
	if err != nil {
		return nil, err
	}
	return NewEngineFromBoard(b, turn), nil
}

// DecodeFEN parses the placement and side-to-move fields of fen.
func DecodeFEN(fen string) (Board, Color, error) {
	var b Board
	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return b, White, errors.Wrap(errors.ErrMalformedCommand, "empty FEN")
	}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != BoardSize {
		return b, White, errors.Wrapf(errors.ErrMalformedCommand, "FEN %q: want %d ranks", fen, BoardSize)
	}
	for i, rank := range ranks {
		row := BoardSize - i
		col := 1
		for j := 0; j < len(rank); j++ {
			c := rank[j]
			if c >= '1' && c <= '8' {
				col += int(c - '0')
				continue
			}
			k, ok := ParseKind(string(c))
			if !ok {
				return b, White, errors.Wrapf(errors.ErrMalformedCommand, "FEN %q: bad piece %q", fen, c)
			}
			color := White
			if c >= 'a' && c <= 'z' {
				color = Black
			}
			if col > BoardSize {
				return b, White, errors.Wrapf(errors.ErrMalformedCommand, "FEN %q: rank %d too long", fen, row)
			}
			b.Set(Sq(row, col), Piece{color, k})
			col++
		}
		if col != BoardSize+1 {
			return b, White, errors.Wrapf(errors.ErrMalformedCommand, "FEN %q: rank %d has %d files", fen, row, col-1)
		}
	}

	turn := White
	if len(fields) > 1 {
		switch fields[1] {
		case "w":
		case "b":
			turn = Black
		default:
			return b, White, errors.Wrapf(errors.ErrMalformedCommand, "FEN %q: bad side to move", fen)
		}
	}
	return b, turn, nil
}
