package game

import (
	"example.com/chess_session_server/internal/errors"
)

// Status is the derived state of the side to move.
type Status uint8

const (
	Ongoing Status = iota
	Check
	Checkmate
	Stalemate
)

var statusNames = [...]string{"ONGOING", "CHECK", "CHECKMATE", "STALEMATE"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "UNKNOWN"
}

// Terminal reports whether no further move is possible.
func (s Status) Terminal() bool { return s == Checkmate || s == Stalemate }

// Engine owns one game's board and side to move. ApplyMove is the only
// mutating method. Engine is not safe for concurrent use; callers serialize
// access per game.
type Engine struct {
	board Board
	turn  Color
}

// NewEngine returns an engine at the standard starting position, White to move.
func NewEngine() *Engine {
	return &Engine{board: StandardBoard(), turn: White}
}

// NewEngineFromBoard returns an engine for an arbitrary position.
func NewEngineFromBoard(b Board, turn Color) *Engine {
	return &Engine{board: b, turn: turn}
}

// Board returns a copy of the current board.
func (e *Engine) Board() Board { return e.board }

// SideToMove returns the colour whose turn it is.
func (e *Engine) SideToMove() Color { return e.turn }

// ValidMoves returns the legal moves of the piece on sq: its pseudo-legal
// moves minus those that would leave its own king in check. The live board
// is never modified; each candidate is tried on a copy.
func (e *Engine) ValidMoves(sq Square) []Move {
	p, ok := e.board.At(sq)
	if !ok {
		return nil
	}
	candidates := PieceMoves(&e.board, sq)
	seen := make(map[Move]struct{}, len(candidates))
	legal := make([]Move, 0, len(candidates))
	for _, m := range candidates {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		scratch := e.board
		scratch.apply(m)
		if !inCheck(&scratch, p.Color) {
			legal = append(legal, m)
		}
	}
	return legal
}

// IsInCheck reports whether c's king is attacked by any pseudo-legal move
// of the other side. A side without a king is never in check.
func (e *Engine) IsInCheck(c Color) bool {
	return inCheck(&e.board, c)
}

// IsInCheckmate reports whether c is in check with no legal move for any piece.
func (e *Engine) IsInCheckmate(c Color) bool {
	return e.IsInCheck(c) && !e.HasLegalMoves(c)
}

// IsInStalemate reports whether c is not in check but has no legal move.
func (e *Engine) IsInStalemate(c Color) bool {
	return !e.IsInCheck(c) && !e.HasLegalMoves(c)
}

// HasLegalMoves reports whether any piece of colour c has a legal move.
func (e *Engine) HasLegalMoves(c Color) bool {
	found := false
	e.board.Occupied(func(sq Square, p Piece) {
		if found || p.Color != c {
			return
		}
		found = len(e.ValidMoves(sq)) > 0
	})
	return found
}

// Status derives check, checkmate or stalemate for the side to move.
func (e *Engine) Status() Status {
	check := e.IsInCheck(e.turn)
	hasMove := e.HasLegalMoves(e.turn)
	switch {
	case check && !hasMove:
		return Checkmate
	case !hasMove:
		return Stalemate
	case check:
		return Check
	default:
		return Ongoing
	}
}

// ApplyMove plays m for the side to move. It fails with errors.ErrInvalidMove
// when the origin is empty, holds the other side's piece, names an
// unrecognised promotion, or m is not among ValidMoves(m.From). On success the
// piece is relocated (capturing whatever stood on m.To), promoted if
// requested, and the turn passes to the other side.
func (e *Engine) ApplyMove(m Move) error {
	p, ok := e.board.At(m.From)
	if !ok {
		return errors.Wrapf(errors.ErrInvalidMove, "no piece on %s", m.From)
	}
	if p.Color != e.turn {
		return errors.Wrapf(errors.ErrInvalidMove, "it is %s's turn", e.turn)
	}
	if m.Promotion != NoKind && !m.Promotion.IsPromotion() {
		return errors.Wrapf(errors.ErrInvalidMove, "cannot promote to %s", m.Promotion)
	}
	legal := false
	for _, v := range e.ValidMoves(m.From) {
		if v == m {
			legal = true
			break
		}
	}
	if !legal {
		return errors.Wrapf(errors.ErrInvalidMove, "%s cannot play %s", p, m)
	}
	e.board.apply(m)
	e.turn = e.turn.Opposite()
	return nil
}

// inCheck scans pseudo-legal moves, never legal ones, so it cannot recurse
// back into ValidMoves.
func inCheck(b *Board, c Color) bool {
	king, ok := b.KingSquare(c)
	if !ok {
		return false
	}
	attacked := false
	b.Occupied(func(sq Square, p Piece) {
		if attacked || p.Color == c {
			return
		}
		for _, m := range PieceMoves(b, sq) {
			if m.To == king {
				attacked = true
				return
			}
		}
	})
	return attacked
}
