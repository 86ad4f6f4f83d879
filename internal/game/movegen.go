package game

// generator enumerates pseudo-legal moves for the piece p standing on from.
type generator func(b *Board, from Square, p Piece) []Move

type offset struct{ dr, dc int }

var (
	kingOffsets = []offset{
		{1, -1}, {1, 0}, {1, 1},
		{0, -1}, {0, 1},
		{-1, -1}, {-1, 0}, {-1, 1},
	}
	knightOffsets = []offset{
		{2, 1}, {2, -1}, {-2, 1}, {-2, -1},
		{1, 2}, {1, -2}, {-1, 2}, {-1, -2},
	}
	diagonals   = []offset{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	orthogonals = []offset{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	allRays     = append(append([]offset{}, diagonals...), orthogonals...)
)

// generators is the closed dispatch table from kind to move generator.
var generators = [numKinds]generator{
	King:   func(b *Board, from Square, p Piece) []Move { return stepMoves(b, from, p, kingOffsets) },
	Knight: func(b *Board, from Square, p Piece) []Move { return stepMoves(b, from, p, knightOffsets) },
	Bishop: func(b *Board, from Square, p Piece) []Move { return rayMoves(b, from, p, diagonals) },
	Rook:   func(b *Board, from Square, p Piece) []Move { return rayMoves(b, from, p, orthogonals) },
	Queen:  func(b *Board, from Square, p Piece) []Move { return rayMoves(b, from, p, allRays) },
	Pawn:   pawnMoves,
}

// PieceMoves returns the pseudo-legal moves of the piece on sq. Moves that
// would leave the mover's king in check are included. An empty or off-board
// square yields nil.
func PieceMoves(b *Board, sq Square) []Move {
	p, ok := b.At(sq)
	if !ok {
		return nil
	}
	gen := generators[p.Kind]
	if gen == nil {
		return nil
	}
	return gen(b, sq, p)
}

// canLand reports whether a piece of colour c may finish on sq:
// on-board and either empty or holding an opposing piece.
func canLand(b *Board, sq Square, c Color) bool {
	if !sq.Valid() {
		return false
	}
	occ, ok := b.At(sq)
	return !ok || occ.Color != c
}

func stepMoves(b *Board, from Square, p Piece, offsets []offset) []Move {
	moves := make([]Move, 0, len(offsets))
	for _, o := range offsets {
		to := from.Offset(o.dr, o.dc)
		if canLand(b, to, p.Color) {
			moves = append(moves, Move{From: from, To: to})
		}
	}
	return moves
}

func rayMoves(b *Board, from Square, p Piece, dirs []offset) []Move {
	var moves []Move
	for _, d := range dirs {
		for to := from.Offset(d.dr, d.dc); to.Valid(); to = to.Offset(d.dr, d.dc) {
			occ, ok := b.At(to)
			if !ok {
				moves = append(moves, Move{From: from, To: to})
				continue
			}
			if occ.Color != p.Color {
				moves = append(moves, Move{From: from, To: to})
			}
			break
		}
	}
	return moves
}

// pawnDirection is +1 for White (towards row 8) and -1 for Black.
func pawnDirection(c Color) int {
	if c == White {
		return 1
	}
	return -1
}

func pawnStartRow(c Color) int {
	if c == White {
		return 2
	}
	return BoardSize - 1
}

func promotionRow(c Color) int {
	if c == White {
		return BoardSize
	}
	return 1
}

func pawnMoves(b *Board, from Square, p Piece) []Move {
	dir := pawnDirection(p.Color)
	var moves []Move

	one := from.Offset(dir, 0)
	if one.Valid() {
		if _, occupied := b.At(one); !occupied {
			moves = appendPawnMove(moves, from, one, p.Color)
			two := from.Offset(2*dir, 0)
			if from.Row == pawnStartRow(p.Color) && two.Valid() {
				if _, occupied := b.At(two); !occupied {
					moves = append(moves, Move{From: from, To: two})
				}
			}
		}
	}

	for _, dc := range [...]int{-1, 1} {
		diag := from.Offset(dir, dc)
		if !diag.Valid() {
			continue
		}
		if occ, ok := b.At(diag); ok && occ.Color != p.Color {
			moves = appendPawnMove(moves, from, diag, p.Color)
		}
	}
	return moves
}

// appendPawnMove adds from->to, expanded to one move per promotion kind
// when to is on the farthest rank.
func appendPawnMove(moves []Move, from, to Square, c Color) []Move {
	if to.Row != promotionRow(c) {
		return append(moves, Move{From: from, To: to})
	}
	for _, k := range PromotionKinds {
		moves = append(moves, Move{From: from, To: to, Promotion: k})
	}
	return moves
}
