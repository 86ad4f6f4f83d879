package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"example.com/chess_session_server/internal/errors"
	"example.com/chess_session_server/internal/game"
)

// Memory is a process-local Store. Records vanish with the process.
type Memory struct {
	mu     sync.Mutex
	tokens map[string]string // token -> username
	games  map[string]*GameRecord
	order  []string
}

func NewMemory() *Memory {
	return &Memory{
		tokens: map[string]string{},
		games:  map[string]*GameRecord{},
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Login(_ context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", errors.Wrap(errors.ErrMalformedCommand, "empty username")
	}
	token := uuid.NewString()
	m.mu.Lock()
	m.tokens[token] = username
	m.mu.Unlock()
	return token, nil
}

func (m *Memory) ResolveIdentity(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	username, ok := m.tokens[token]
	if !ok || token == "" {
		return "", errors.ErrUnauthorized
	}
	return username, nil
}

func (m *Memory) CreateGame(_ context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.Wrap(errors.ErrMalformedCommand, "empty game name")
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.games[id] = &GameRecord{ID: id, Name: name}
	m.order = append(m.order, id)
	m.mu.Unlock()
	return id, nil
}

// AddGame installs a record with a caller-chosen id.
func (m *Memory) AddGame(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[id]; ok {
		return
	}
	m.games[id] = &GameRecord{ID: id, Name: name}
	m.order = append(m.order, id)
}

func (m *Memory) ListGames(_ context.Context) ([]GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GameRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.games[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) record(gameID string) (*GameRecord, error) {
	g, ok := m.games[gameID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "game %s", gameID)
	}
	return g, nil
}

func (m *Memory) GetGameRoles(_ context.Context, gameID string) (Roles, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.record(gameID)
	if err != nil {
		return Roles{}, err
	}
	return g.Roles, nil
}

func (m *Memory) AssignRole(_ context.Context, gameID string, color game.Color, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.record(gameID)
	if err != nil {
		return err
	}
	switch holder := g.Roles.Holder(color); holder {
	case "":
		g.Roles.set(color, username)
		return nil
	case username:
		return nil
	default:
		return errors.Wrapf(errors.ErrForbidden, "%s is already taken", color)
	}
}

func (m *Memory) ReleaseRole(_ context.Context, gameID string, color game.Color, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.record(gameID)
	if err != nil {
		return err
	}
	if g.Roles.Holder(color) == username {
		g.Roles.set(color, "")
	}
	return nil
}

func (m *Memory) LoadState(_ context.Context, gameID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.record(gameID)
	if err != nil {
		return "", false, err
	}
	return g.State, g.Finished, nil
}

func (m *Memory) SaveState(_ context.Context, gameID, fen string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.record(gameID)
	if err != nil {
		return err
	}
	g.State = fen
	return nil
}

func (m *Memory) MarkFinished(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.record(gameID)
	if err != nil {
		return err
	}
	g.Finished = true
	return nil
}
