package session

import (
	"sync"
	"testing"

	"example.com/chess_session_server/internal/errors"
	"example.com/chess_session_server/internal/game"
)

func TestRegistryCreateOrGetIsIdempotent(t *testing.T) {
	r := NewRegistry()
	const n = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		seen    = map[*Session]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, fresh := r.CreateOrGet("g")
			mu.Lock()
			defer mu.Unlock()
			seen[s] = true
			if fresh {
				created++
			}
		}()
	}
	wg.Wait()
	if created != 1 || len(seen) != 1 {
		t.Errorf("created %d sessions, saw %d distinct; want exactly one", created, len(seen))
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	s, ok := r.Get("g")
	if !ok || s.ID() != "g" {
		t.Fatalf("Get = %v, %v", s, ok)
	}
	r.Remove("g")
	r.Remove("g")
	if _, ok := r.Get("g"); ok {
		t.Error("Get after Remove found the session")
	}
	if again, fresh := r.CreateOrGet("g"); !fresh || again == s {
		t.Error("CreateOrGet after Remove should install a new session")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"WHITE", WhitePlayer},
		{"white_player", WhitePlayer},
		{" Black ", BlackPlayer},
		{"BLACK_PLAYER", BlackPlayer},
		{"observer", Observer},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRole(tc.in)
			if err != nil || got != tc.want {
				t.Errorf("ParseRole(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
			}
		})
	}
	for _, in := range []string{"", "KING", "white_observer"} {
		if _, err := ParseRole(in); !errors.Is(err, errors.ErrMalformedCommand) {
			t.Errorf("ParseRole(%q) = %v, want ErrMalformedCommand", in, err)
		}
	}
}

func TestRoleColor(t *testing.T) {
	if c, ok := WhitePlayer.Color(); !ok || c != game.White {
		t.Errorf("WhitePlayer.Color() = %v, %v", c, ok)
	}
	if c, ok := BlackPlayer.Color(); !ok || c != game.Black {
		t.Errorf("BlackPlayer.Color() = %v, %v", c, ok)
	}
	if _, ok := Observer.Color(); ok {
		t.Error("Observer has a colour")
	}
	if RoleFor(game.Black) != BlackPlayer || RoleFor(game.White) != WhitePlayer {
		t.Error("RoleFor mismatch")
	}
}
