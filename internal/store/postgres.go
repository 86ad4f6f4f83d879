package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"example.com/chess_session_server/internal/errors"
	"example.com/chess_session_server/internal/game"
)

const schema = `
CREATE TABLE IF NOT EXISTS auth_tokens (
	token    TEXT PRIMARY KEY,
	username TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS games (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	white_username TEXT,
	black_username TEXT,
	state          TEXT NOT NULL DEFAULT '',
	finished       BOOLEAN NOT NULL DEFAULT FALSE
);`

// Postgres is a Store backed by a PostgreSQL database.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects, pings and creates the schema if needed.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

// roleColumn maps a colour to its seat column. The result is a constant,
// never user input, so it is safe to splice into SQL.
func roleColumn(c game.Color) string {
	if c == game.Black {
		return "black_username"
	}
	return "white_username"
}

func (p *Postgres) Login(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", errors.Wrap(errors.ErrMalformedCommand, "empty username")
	}
	token := uuid.NewString()
	if _, err := p.db.ExecContext(ctx,
		"INSERT INTO auth_tokens (token, username) VALUES ($1, $2)", token, username); err != nil {
		return "", fmt.Errorf("insert token: %w", err)
	}
	return token, nil
}

func (p *Postgres) ResolveIdentity(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", errors.ErrUnauthorized
	}
	var username string
	err := p.db.QueryRowContext(ctx,
		"SELECT username FROM auth_tokens WHERE token = $1", token).Scan(&username)
	if err == sql.ErrNoRows {
		return "", errors.ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("resolve token: %w", err)
	}
	return username, nil
}

func (p *Postgres) CreateGame(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.Wrap(errors.ErrMalformedCommand, "empty game name")
	}
	id := uuid.NewString()
	if _, err := p.db.ExecContext(ctx,
		"INSERT INTO games (id, name) VALUES ($1, $2)", id, name); err != nil {
		return "", fmt.Errorf("insert game: %w", err)
	}
	return id, nil
}

func (p *Postgres) ListGames(ctx context.Context) ([]GameRecord, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT id, name, COALESCE(white_username, ''), COALESCE(black_username, ''), state, finished FROM games ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()
	var out []GameRecord
	for rows.Next() {
		var g GameRecord
		if err := rows.Scan(&g.ID, &g.Name, &g.Roles.White, &g.Roles.Black, &g.State, &g.Finished); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (p *Postgres) GetGameRoles(ctx context.Context, gameID string) (Roles, error) {
	var r Roles
	err := p.db.QueryRowContext(ctx,
		"SELECT COALESCE(white_username, ''), COALESCE(black_username, '') FROM games WHERE id = $1",
		gameID).Scan(&r.White, &r.Black)
	if err == sql.ErrNoRows {
		return Roles{}, errors.Wrapf(errors.ErrNotFound, "game %s", gameID)
	}
	if err != nil {
		return Roles{}, fmt.Errorf("get roles: %w", err)
	}
	return r, nil
}

func (p *Postgres) AssignRole(ctx context.Context, gameID string, color game.Color, username string) error {
	col := roleColumn(color)
	res, err := p.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE games SET %[1]s = $2 WHERE id = $1 AND (%[1]s IS NULL OR %[1]s = $2)", col),
		gameID, username)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return nil
	}
	if _, err := p.GetGameRoles(ctx, gameID); err != nil {
		return err
	}
	return errors.Wrapf(errors.ErrForbidden, "%s is already taken", color)
}

func (p *Postgres) ReleaseRole(ctx context.Context, gameID string, color game.Color, username string) error {
	col := roleColumn(color)
	_, err := p.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE games SET %[1]s = NULL WHERE id = $1 AND %[1]s = $2", col),
		gameID, username)
	if err != nil {
		return fmt.Errorf("release role: %w", err)
	}
	return nil
}

func (p *Postgres) LoadState(ctx context.Context, gameID string) (string, bool, error) {
	var state string
	var finished bool
	err := p.db.QueryRowContext(ctx,
		"SELECT state, finished FROM games WHERE id = $1", gameID).Scan(&state, &finished)
	if err == sql.ErrNoRows {
		return "", false, errors.Wrapf(errors.ErrNotFound, "game %s", gameID)
	}
	if err != nil {
		return "", false, fmt.Errorf("load state: %w", err)
	}
	return state, finished, nil
}

func (p *Postgres) SaveState(ctx context.Context, gameID, fen string) error {
	return p.update(ctx, "UPDATE games SET state = $2 WHERE id = $1", gameID, fen)
}

func (p *Postgres) MarkFinished(ctx context.Context, gameID string) error {
	return p.update(ctx, "UPDATE games SET finished = TRUE WHERE id = $1", gameID)
}

func (p *Postgres) update(ctx context.Context, query string, args ...interface{}) error {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "game %v", args[0])
	}
	return nil
}
