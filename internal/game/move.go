package game

import (
	"fmt"
	"strings"
)

// Move is a single piece relocation. Promotion is NoKind unless a pawn
// reaches the farthest rank, so two moves compare equal with == exactly when
// from, to and promotion all agree.
type Move struct {
	From      Square
	To        Square
	Promotion Kind
}

// String returns long algebraic notation, e.g. "e2e4" or "e7e8q".
func (m Move) String() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != NoKind {
		s += string(m.Promotion.Letter())
	}
	return s
}

// ParseMove parses long algebraic notation ("e2e4", "e7e8q").
func ParseMove(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("move %q: want 4 or 5 characters", s)
	}
	from, ok := ParseSquare(s[0:2])
	if !ok {
		return Move{}, fmt.Errorf("move %q: bad origin square", s)
	}
	to, ok := ParseSquare(s[2:4])
	if !ok {
		return Move{}, fmt.Errorf("move %q: bad target square", s)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		k, ok := ParseKind(s[4:])
		if !ok {
			return Move{}, fmt.Errorf("move %q: bad promotion piece", s)
		}
		m.Promotion = k
	}
	return m, nil
}

// Destinations returns the target squares of moves, without duplicates,
// in first-seen order.
func Destinations(moves []Move) []Square {
	seen := make(map[Square]struct{}, len(moves))
	out := make([]Square, 0, len(moves))
	for _, m := range moves {
		if _, ok := seen[m.To]; ok {
			continue
		}
		seen[m.To] = struct{}{}
		out = append(out, m.To)
	}
	return out
}
