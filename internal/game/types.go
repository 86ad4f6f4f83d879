// Package game implements the chess rules: board representation, pseudo-legal
// move generation per piece kind, and the legality filter that keeps a side
// from leaving its own king in check.
package game

import (
	"fmt"
	"strings"
)

// BoardSize is the number of rows and columns.
const BoardSize = 8

// Color is the side a piece belongs to.
type Color uint8

const (
	White Color = iota
	Black
)

// String returns the lower-case colour name.
func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// Opposite returns the other side.
func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// ParseColor accepts "white"/"w" and "black"/"b" in any case.
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return White, false
	}
}

// Kind is a piece type. NoKind marks an empty square or "no promotion".
type Kind uint8

const (
	NoKind Kind = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
	numKinds
)

var kindNames = [numKinds]string{"", "KING", "QUEEN", "ROOK", "BISHOP", "KNIGHT", "PAWN"}

var kindLetters = [numKinds]byte{' ', 'k', 'q', 'r', 'b', 'n', 'p'}

// String returns the upper-case kind name used on the wire.
func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Letter returns the lower-case FEN letter, or '?' for NoKind.
func (k Kind) Letter() byte {
	if k > NoKind && k < numKinds {
		return kindLetters[k]
	}
	return '?'
}

// ParseKind accepts the wire names ("QUEEN") and single letters ("q").
func ParseKind(s string) (Kind, bool) {
	needle := strings.ToUpper(strings.TrimSpace(s))
	if len(needle) == 1 {
		for k := King; k < numKinds; k++ {
			if kindLetters[k] == strings.ToLower(needle)[0] {
				return k, true
			}
		}
		return NoKind, false
	}
	for k := King; k < numKinds; k++ {
		if kindNames[k] == needle {
			return k, true
		}
	}
	return NoKind, false
}

// PromotionKinds lists the kinds a pawn may become, in generation order.
var PromotionKinds = [...]Kind{Queen, Rook, Bishop, Knight}

// IsPromotion reports whether k is a legal promotion target.
func (k Kind) IsPromotion() bool {
	for _, p := range PromotionKinds {
		if k == p {
			return true
		}
	}
	return false
}

// Piece is an immutable coloured piece. The zero value is "no piece".
type Piece struct {
	Color Color
	Kind  Kind
}

// IsZero reports whether p is the empty piece.
func (p Piece) IsZero() bool { return p.Kind == NoKind }

// Letter returns the FEN letter: upper case for White, lower case for Black.
func (p Piece) Letter() byte {
	l := p.Kind.Letter()
	if p.Color == White && l != '?' {
		return l - 'a' + 'A'
	}
	return l
}

func (p Piece) String() string {
	if p.IsZero() {
		return "empty"
	}
	return p.Color.String() + " " + strings.ToLower(p.Kind.String())
}

// Square is a board coordinate. Row 1 is White's home rank, Col 1 is the a-file.
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Sq is shorthand for Square{Row: row, Col: col}.
func Sq(row, col int) Square { return Square{Row: row, Col: col} }

// Valid reports whether the square lies on the board.
func (s Square) Valid() bool {
	return s.Row >= 1 && s.Row <= BoardSize && s.Col >= 1 && s.Col <= BoardSize
}

// Offset returns the square dr rows and dc columns away. The result may be off-board.
func (s Square) Offset(dr, dc int) Square {
	return Square{Row: s.Row + dr, Col: s.Col + dc}
}

// String returns algebraic notation ("e4"), or "??" when off-board.
func (s Square) String() string {
	if !s.Valid() {
		return "??"
	}
	return string([]byte{byte('a' + s.Col - 1), byte('0' + s.Row)})
}

// ParseSquare parses algebraic notation such as "e4".
func ParseSquare(s string) (Square, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Square{}, false
	}
	sq := Square{Row: int(s[1]-'0'), Col: int(s[0]-'a') + 1}
	if !sq.Valid() {
		return Square{}, false
	}
	return sq, true
}
