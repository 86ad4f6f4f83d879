// Package script runs optional Lua house rules that can veto moves the
// rules engine would otherwise accept.
//
// A rules file may define
//
//	function allow_move(color, piece, from, to, promotion)
//	  return ok, reason
//	end
//
// where color is "white" or "black", piece is the lower-case kind name
// ("pawn"), squares use algebraic names ("e2") and promotion is "" or a kind
// name. A file without allow_move allows everything.
package script

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"example.com/chess_session_server/internal/game"
)

const hookName = "allow_move"

// HouseRules owns one Lua state. An LState is not goroutine safe, so every
// call is serialized.
type HouseRules struct {
	mu      sync.Mutex
	L       *lua.LState
	hook    *lua.LFunction
	timeout time.Duration
}

// Option configures HouseRules.
type Option func(*HouseRules)

// WithTimeout bounds each script invocation, including loading the chunk.
func WithTimeout(d time.Duration) Option {
	return func(h *HouseRules) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// Load compiles and runs the Lua file at path.
func Load(path string, opts ...Option) (*HouseRules, error) {
	return load(func(L *lua.LState) error { return L.DoFile(path) }, opts)
}

// LoadString compiles and runs src.
func LoadString(src string, opts ...Option) (*HouseRules, error) {
	return load(func(L *lua.LState) error { return L.DoString(src) }, opts)
}

func load(run func(*lua.LState) error, opts []Option) (*HouseRules, error) {
	h := &HouseRules{timeout: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(h)
	}
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	if err := openSafeLibs(L); err != nil {
		L.Close()
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	L.SetContext(ctx)
	err := run(L)
	L.RemoveContext()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("load house rules: %w", err)
	}
	h.L = L
	if fn, ok := L.GetGlobal(hookName).(*lua.LFunction); ok {
		h.hook = fn
	}
	return h, nil
}

// openSafeLibs opens everything but io and os.
func openSafeLibs(L *lua.LState) error {
	libs := []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	for _, lib := range libs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return fmt.Errorf("open lua %s: %w", lib.name, err)
		}
	}
	return nil
}

// Defines reports whether the script installed an allow_move hook.
func (h *HouseRules) Defines() bool { return h != nil && h.hook != nil }

// AllowMove asks the script whether piece may play m. A nil HouseRules or a
// script without the hook allows every move. A runtime error or timeout is
// returned as err and the move should be treated as vetoed.
func (h *HouseRules) AllowMove(ctx context.Context, piece game.Piece, m game.Move) (bool, string, error) {
	if !h.Defines() {
		return true, "", nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	h.L.SetContext(ctx)
	defer h.L.RemoveContext()

	promotion := ""
	if m.Promotion != game.NoKind {
		promotion = kindName(m.Promotion)
	}
	err := h.L.CallByParam(lua.P{Fn: h.hook, NRet: 2, Protect: true},
		lua.LString(piece.Color.String()),
		lua.LString(kindName(piece.Kind)),
		lua.LString(m.From.String()),
		lua.LString(m.To.String()),
		lua.LString(promotion),
	)
	if err != nil {
		return false, "", fmt.Errorf("%s: %w", hookName, err)
	}
	ok, reason := h.L.Get(-2), h.L.Get(-1)
	h.L.Pop(2)
	if lua.LVAsBool(ok) {
		return true, "", nil
	}
	msg := "move not allowed by house rules"
	if s, isStr := reason.(lua.LString); isStr && s != "" {
		msg = string(s)
	}
	return false, msg, nil
}

// Close releases the Lua state.
func (h *HouseRules) Close() {
	if h == nil || h.L == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.L.Close()
}

func kindName(k game.Kind) string { return strings.ToLower(k.String()) }
