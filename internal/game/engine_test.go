package game

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"example.com/chess_session_server/internal/errors"
)

func mustEngine(t *testing.T, fen string) *Engine {
	t.Helper()
	e, err := NewEngineFromFEN(fen)
	if err != nil {
		t.Fatalf("NewEngineFromFEN(%q) error: %v", fen, err)
	}
	return e
}

func mustMove(t *testing.T, s string) Move {
	t.Helper()
	m, err := ParseMove(s)
	if err != nil {
		t.Fatalf("ParseMove(%q) error: %v", s, err)
	}
	return m
}

func play(t *testing.T, e *Engine, moves ...string) {
	t.Helper()
	for _, s := range moves {
		if err := e.ApplyMove(mustMove(t, s)); err != nil {
			t.Fatalf("ApplyMove(%s) error: %v", s, err)
		}
	}
}

func TestApplyMoveOpening(t *testing.T) {
	e := NewEngine()
	if err := e.ApplyMove(Move{From: Sq(2, 5), To: Sq(4, 5)}); err != nil {
		t.Fatalf("e2e4: %v", err)
	}

	b := e.Board()
	if p, ok := b.At(Sq(2, 5)); ok {
		t.Errorf("e2 still holds %s", p)
	}
	if p, _ := b.At(Sq(4, 5)); p != (Piece{White, Pawn}) {
		t.Errorf("e4 = %s, want white pawn", p)
	}
	if e.SideToMove() != Black {
		t.Errorf("SideToMove() = %s, want black", e.SideToMove())
	}
}

func TestApplyMoveRejects(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move Move
	}{
		{"empty origin", InitialFEN, Move{From: Sq(4, 4), To: Sq(5, 4)}},
		{"opponent piece", InitialFEN, Move{From: Sq(7, 5), To: Sq(5, 5)}},
		{"not a pattern move", InitialFEN, Move{From: Sq(2, 5), To: Sq(5, 5)}},
		{"capture own piece", InitialFEN, Move{From: Sq(1, 1), To: Sq(2, 1)}},
		{"promotion missing", "8/P7/8/8/8/8/8/k6K w - - 0 1", Move{From: Sq(7, 1), To: Sq(8, 1)}},
		{"promotion to king", "8/P7/8/8/8/8/8/k6K w - - 0 1", Move{From: Sq(7, 1), To: Sq(8, 1), Promotion: King}},
		{"promotion to pawn", "8/P7/8/8/8/8/8/k6K w - - 0 1", Move{From: Sq(7, 1), To: Sq(8, 1), Promotion: Pawn}},
		{"unknown promotion", "8/P7/8/8/8/8/8/k6K w - - 0 1", Move{From: Sq(7, 1), To: Sq(8, 1), Promotion: Kind(42)}},
		{"promotion off last rank", InitialFEN, Move{From: Sq(2, 5), To: Sq(4, 5), Promotion: Queen}},
		{"pinned piece", "4r2k/8/8/8/8/8/4B3/4K3 w - - 0 1", Move{From: Sq(2, 5), To: Sq(3, 4)}},
		{"king walks into check", "7k/8/8/8/8/8/r7/4K3 w - - 0 1", Move{From: Sq(1, 5), To: Sq(2, 5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustEngine(t, tt.fen)
			before := e.FEN()
			err := e.ApplyMove(tt.move)
			if !errors.Is(err, errors.ErrInvalidMove) {
				t.Fatalf("ApplyMove(%s) error = %v, want ErrInvalidMove", tt.move, err)
			}
			if after := e.FEN(); after != before {
				t.Errorf("rejected move changed position: %s -> %s", before, after)
			}
		})
	}
}

func TestApplyMovePromotionAndCapture(t *testing.T) {
	e := mustEngine(t, "1r6/P7/8/8/8/8/8/k6K w - - 0 1")
	play(t, e, "a7b8n")
	b := e.Board()
	if p, _ := b.At(mustSquare(t, "b8")); p != (Piece{White, Knight}) {
		t.Errorf("b8 = %s, want white knight", p)
	}
	if _, ok := b.At(mustSquare(t, "a7")); ok {
		t.Error("a7 should be empty after promotion")
	}
	count := 0
	b.Occupied(func(Square, Piece) { count++ })
	if count != 3 {
		t.Errorf("piece count = %d, want 3 after capture", count)
	}
}

func TestValidMovesFiltersSelfCheck(t *testing.T) {
	// The e2 bishop is pinned against its king by the e8 rook.
	e := mustEngine(t, "4r2k/8/8/8/8/8/4B3/4K3 w - - 0 1")
	if got := e.ValidMoves(mustSquare(t, "e2")); len(got) != 0 {
		t.Errorf("pinned bishop has moves %v", got)
	}

	// In check, only moves that resolve it are legal.
	e = mustEngine(t, "4r2k/8/8/8/8/8/3B4/4K3 w - - 0 1")
	want := []Move{{From: mustSquare(t, "d2"), To: mustSquare(t, "e3")}}
	if diff := cmp.Diff(want, e.ValidMoves(mustSquare(t, "d2")), sortMoves); diff != "" {
		t.Errorf("ValidMoves(d2) mismatch (-want +got):\n%s", diff)
	}
}

func TestValidMovesIdempotent(t *testing.T) {
	e := NewEngine()
	play(t, e, "e2e4", "e7e5", "g1f3")
	for _, s := range []string{"b8", "d8", "e8", "f8", "g8"} {
		sq := mustSquare(t, s)
		first := e.ValidMoves(sq)
		second := e.ValidMoves(sq)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("ValidMoves(%s) changed between calls:\n%s", s, diff)
		}
	}
}

func TestCheckmate(t *testing.T) {
	t.Run("fool's mate", func(t *testing.T) {
		e := NewEngine()
		play(t, e, "f2f3", "e7e5", "g2g4", "d8h4")
		if !e.IsInCheck(White) {
			t.Error("IsInCheck(white) = false")
		}
		if !e.IsInCheckmate(White) {
			t.Error("IsInCheckmate(white) = false")
		}
		if e.IsInStalemate(White) {
			t.Error("IsInStalemate(white) = true")
		}
		if e.HasLegalMoves(White) {
			t.Error("mated side has legal moves")
		}
		if e.Status() != Checkmate {
			t.Errorf("Status() = %s, want CHECKMATE", e.Status())
		}
	})

	t.Run("back rank", func(t *testing.T) {
		e := mustEngine(t, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
		play(t, e, "a1a8")
		if !e.IsInCheckmate(Black) {
			t.Error("IsInCheckmate(black) = false")
		}
		if e.IsInCheckmate(White) {
			t.Error("IsInCheckmate(white) = true")
		}
	})

	t.Run("check is not mate when a piece can block", func(t *testing.T) {
		e := mustEngine(t, "6k1/5ppp/8/8/8/8/2r5/R5K1 w - - 0 1")
		play(t, e, "a1a8")
		if !e.IsInCheck(Black) {
			t.Error("IsInCheck(black) = false")
		}
		if e.IsInCheckmate(Black) {
			t.Error("IsInCheckmate(black) = true although c2 rook can block")
		}
		if e.Status() != Check {
			t.Errorf("Status() = %s, want CHECK", e.Status())
		}
	})
}

func TestStalemate(t *testing.T) {
	e := mustEngine(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if e.IsInCheck(Black) {
		t.Fatal("IsInCheck(black) = true")
	}
	if !e.IsInStalemate(Black) {
		t.Error("IsInStalemate(black) = false")
	}
	if e.IsInCheckmate(Black) {
		t.Error("IsInCheckmate(black) = true")
	}
	if e.Status() != Stalemate || !e.Status().Terminal() {
		t.Errorf("Status() = %s, want terminal STALEMATE", e.Status())
	}
	if e.IsInStalemate(White) {
		t.Error("IsInStalemate(white) = true")
	}
}

func TestNoKingIsNeverInCheck(t *testing.T) {
	e := mustEngine(t, "8/8/8/8/8/8/8/R7 w - - 0 1")
	if e.IsInCheck(Black) || e.IsInCheck(White) {
		t.Error("side without a king reported in check")
	}
}

// TestRandomPlayInvariants plays seeded random games and checks that every
// legal move keeps the mover's king safe and that turns alternate.
func TestRandomPlayInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for g := 0; g < 8; g++ {
		e := NewEngine()
		for ply := 0; ply < 60; ply++ {
			mover := e.SideToMove()
			var legal []Move
			b := e.Board()
			b.Occupied(func(sq Square, p Piece) {
				if p.Color != mover {
					return
				}
				for _, m := range e.ValidMoves(sq) {
					scratch := e.Board()
					scratch.apply(m)
					if inCheck(&scratch, mover) {
						t.Fatalf("game %d ply %d: legal move %s leaves %s in check", g, ply, m, mover)
					}
					legal = append(legal, m)
				}
			})
			if len(legal) == 0 {
				if e.Status() != Checkmate && e.Status() != Stalemate {
					t.Fatalf("no legal moves but status %s", e.Status())
				}
				break
			}
			m := legal[rng.Intn(len(legal))]
			if err := e.ApplyMove(m); err != nil {
				t.Fatalf("game %d ply %d: ApplyMove(%s): %v", g, ply, m, err)
			}
			if e.SideToMove() != mover.Opposite() {
				t.Fatalf("turn did not alternate after %s", m)
			}
			if _, ok := e.board.KingSquare(mover); !ok {
				t.Fatalf("%s king disappeared after %s", mover, m)
			}
		}
	}
}
