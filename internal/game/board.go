package game

// Board is an 8x8 grid of pieces. It is a value type: assigning a Board
// copies every square, so a copy never shares pieces with its source.
type Board struct {
	// squares[row-1][col-1]
	squares [BoardSize][BoardSize]Piece
}

var backRank = [BoardSize]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// StandardBoard returns the initial chess position.
func StandardBoard() Board {
	var b Board
	for col := 1; col <= BoardSize; col++ {
		b.Set(Sq(1, col), Piece{White, backRank[col-1]})
		b.Set(Sq(2, col), Piece{White, Pawn})
		b.Set(Sq(7, col), Piece{Black, Pawn})
		b.Set(Sq(8, col), Piece{Black, backRank[col-1]})
	}
	return b
}

// At returns the piece on sq. ok is false for empty and off-board squares.
func (b *Board) At(sq Square) (Piece, bool) {
	if !sq.Valid() {
		return Piece{}, false
	}
	p := b.squares[sq.Row-1][sq.Col-1]
	return p, !p.IsZero()
}

// Set places p on sq. Off-board squares are ignored.
func (b *Board) Set(sq Square, p Piece) {
	if sq.Valid() {
		b.squares[sq.Row-1][sq.Col-1] = p
	}
}

// Clear empties sq.
func (b *Board) Clear(sq Square) {
	b.Set(sq, Piece{})
}

// KingSquare finds the king of the given colour.
func (b *Board) KingSquare(c Color) (Square, bool) {
	king := Piece{c, King}
	for row := 1; row <= BoardSize; row++ {
		for col := 1; col <= BoardSize; col++ {
			if b.squares[row-1][col-1] == king {
				return Sq(row, col), true
			}
		}
	}
	return Square{}, false
}

// Occupied calls fn for every occupied square, rank 1 first.
func (b *Board) Occupied(fn func(Square, Piece)) {
	for row := 1; row <= BoardSize; row++ {
		for col := 1; col <= BoardSize; col++ {
			if p := b.squares[row-1][col-1]; !p.IsZero() {
				fn(Sq(row, col), p)
			}
		}
	}
}

// Grid returns the board as FEN letters, row 1 first; empty squares are "".
func (b *Board) Grid() [BoardSize][BoardSize]string {
	var out [BoardSize][BoardSize]string
	b.Occupied(func(sq Square, p Piece) {
		out[sq.Row-1][sq.Col-1] = string(p.Letter())
	})
	return out
}

// apply moves a piece without any legality checking.
func (b *Board) apply(m Move) {
	p, ok := b.At(m.From)
	if !ok {
		return
	}
	if m.Promotion != NoKind {
		p = Piece{p.Color, m.Promotion}
	}
	b.Clear(m.From)
	b.Set(m.To, p)
}
