package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/chess_session_server/internal/errors"
	"example.com/chess_session_server/internal/game"
	"example.com/chess_session_server/internal/protocol"
	"example.com/chess_session_server/internal/script"
	"example.com/chess_session_server/internal/store"
	"example.com/chess_session_server/internal/ws"
)

// ConnectionManager is the part of *ws.Hub the coordinator drives.
type ConnectionManager interface {
	Send(id string, payload []byte) error
	BroadcastFunc(gameID, exclude string, render func(*ws.Client) ([]byte, bool)) int
	Attach(id, gameID string) bool
	Detach(id string)
	Unregister(id string)
}

type connState uint8

const (
	unjoined connState = iota
	joined
	left
)

// peer is the protocol state of one connection. It is only touched from
// that connection's reader goroutine.
type peer struct {
	state    connState
	username string
	role     Role
	session  *Session
}

// Coordinator implements ws.Handler: it decodes commands, validates them
// against the session and the store, drives the rules engine and fans
// results out through the connection manager.
type Coordinator struct {
	hub      ConnectionManager
	auth     store.Authenticator
	games    store.GameStore
	registry *Registry
	rules    *script.HouseRules
	log      *zap.Logger
	timeout  time.Duration

	peers sync.Map // conn id -> *peer
}

var _ ws.Handler = (*Coordinator)(nil)

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

func WithLogger(l *zap.Logger) CoordinatorOption {
	return func(co *Coordinator) {
		if l != nil {
			co.log = l
		}
	}
}

// WithHouseRules installs a Lua move veto consulted before every move.
func WithHouseRules(h *script.HouseRules) CoordinatorOption {
	return func(co *Coordinator) { co.rules = h }
}

// WithTimeout bounds the store calls made for one command.
func WithTimeout(d time.Duration) CoordinatorOption {
	return func(co *Coordinator) {
		if d > 0 {
			co.timeout = d
		}
	}
}

// WithRegistry shares a registry instead of creating a private one.
func WithRegistry(r *Registry) CoordinatorOption {
	return func(co *Coordinator) {
		if r != nil {
			co.registry = r
		}
	}
}

func NewCoordinator(hub ConnectionManager, auth store.Authenticator, games store.GameStore, opts ...CoordinatorOption) *Coordinator {
	co := &Coordinator{
		hub:      hub,
		auth:     auth,
		games:    games,
		registry: NewRegistry(),
		log:      zap.NewNop(),
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(co)
	}
	return co
}

// Registry exposes the live sessions.
func (co *Coordinator) Registry() *Registry { return co.registry }

// ---------- ws.Handler ----------

func (co *Coordinator) OnConnectionOpened(c *ws.Client) {
	co.peers.Store(c.ID(), &peer{})
	co.log.Debug("connection opened", zap.String("conn", c.ID()))
}

func (co *Coordinator) OnMessage(c *ws.Client, raw []byte) {
	cmd, err := protocol.DecodeCommand(raw)
	if err != nil {
		co.fail(c, "", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), co.timeout)
	defer cancel()
	if err := co.dispatch(ctx, c, co.peer(c), cmd); err != nil {
		co.fail(c, cmd.Type, err)
	}
}

// OnConnectionClosed detaches a joined connection as if it had left, except
// that a player's seat stays assigned in the store so they can reconnect.
func (co *Coordinator) OnConnectionClosed(c *ws.Client) {
	v, ok := co.peers.LoadAndDelete(c.ID())
	if ok {
		if p := v.(*peer); p.state == joined {
			ctx, cancel := context.WithTimeout(context.Background(), co.timeout)
			co.leave(ctx, c, p, false)
			cancel()
		}
	}
	co.hub.Unregister(c.ID())
	co.log.Debug("connection closed", zap.String("conn", c.ID()))
}

func (co *Coordinator) peer(c *ws.Client) *peer {
	v, _ := co.peers.LoadOrStore(c.ID(), &peer{})
	return v.(*peer)
}

func (co *Coordinator) fail(c *ws.Client, cmd protocol.CommandType, err error) {
	co.log.Info("command failed",
		zap.String("conn", c.ID()),
		zap.String("cmd", string(cmd)),
		zap.String("code", errors.Code(err)),
		zap.Error(err))
	_ = co.hub.Send(c.ID(), protocol.EncodeError(err))
}

// ---------- dispatch ----------

func (co *Coordinator) dispatch(ctx context.Context, c *ws.Client, p *peer, cmd protocol.Command) error {
	if p.state == left {
		return errors.Wrap(errors.ErrForbidden, "connection has left the game")
	}
	username, err := co.auth.ResolveIdentity(ctx, cmd.AuthToken)
	if err != nil {
		return err
	}
	if cmd.Type == protocol.Connect {
		if p.state == joined {
			return errors.Wrapf(errors.ErrForbidden, "already joined game %s", p.session.ID())
		}
		return co.connect(ctx, c, p, username, cmd)
	}
	if p.state != joined {
		return errors.Wrap(errors.ErrForbidden, "not joined to a game")
	}
	if cmd.GameID != p.session.ID() {
		return errors.Wrapf(errors.ErrForbidden, "not joined to game %s", cmd.GameID)
	}
	if username != p.username {
		return errors.Wrap(errors.ErrUnauthorized, "token does not match this connection")
	}

	switch cmd.Type {
	case protocol.MakeMove:
		return co.makeMove(ctx, c, p, cmd)
	case protocol.Leave:
		co.leave(ctx, c, p, true)
		return nil
	case protocol.Resign:
		return co.resign(ctx, p)
	case protocol.RequestBoard:
		return co.requestBoard(c, p)
	case protocol.Highlight:
		return co.highlight(c, p, *cmd.Square)
	default:
		return errors.Wrapf(errors.ErrMalformedCommand, "unknown command %q", cmd.Type)
	}
}

// ---------- CONNECT ----------

func (co *Coordinator) connect(ctx context.Context, c *ws.Client, p *peer, username string, cmd protocol.Command) error {
	role, err := ParseRole(cmd.Role)
	if err != nil {
		return err
	}
	roles, err := co.games.GetGameRoles(ctx, cmd.GameID)
	if err != nil {
		return err
	}
	color, isPlayer := role.Color()
	if isPlayer {
		if holder := roles.Holder(color); holder != "" && holder != username {
			return errors.Wrapf(errors.ErrForbidden, "%s is already taken by %s", color, holder)
		}
	}

	for {
		s, _ := co.registry.CreateOrGet(cmd.GameID)
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			continue
		}
		err := co.join(ctx, c, p, s, username, role)
		if err != nil && len(s.participants) == 0 {
			co.close(s)
		}
		s.mu.Unlock()
		return err
	}
}

// join runs with s.mu held.
func (co *Coordinator) join(ctx context.Context, c *ws.Client, p *peer, s *Session, username string, role Role) error {
	if err := co.ensureLoaded(ctx, s); err != nil {
		return err
	}
	if !co.hub.Attach(c.ID(), s.id) {
		return errors.Wrap(ws.ErrUnknownClient, "attach connection")
	}
	if color, ok := role.Color(); ok {
		if err := co.games.AssignRole(ctx, s.id, color, username); err != nil {
			co.hub.Detach(c.ID())
			return err
		}
	}
	s.participants[c.ID()] = participant{username: username, role: role}
	p.state, p.username, p.role, p.session = joined, username, role, s

	co.log.Info("joined",
		zap.String("conn", c.ID()),
		zap.String("game", s.id),
		zap.String("user", username),
		zap.Stringer("role", role))
	_ = co.hub.Send(c.ID(), loadGame(s.engine, role))
	co.broadcast(s, protocol.EncodeNotification(fmt.Sprintf("%s joined as %s", username, role.describe())), c.ID())
	return nil
}

// ensureLoaded restores the engine from the store the first time a session
// is used. It runs with s.mu held.
func (co *Coordinator) ensureLoaded(ctx context.Context, s *Session) error {
	if s.loaded {
		return nil
	}
	fen, finished, err := co.games.LoadState(ctx, s.id)
	if err != nil {
		return err
	}
	e := game.NewEngine()
	if fen != "" {
		if e, err = game.NewEngineFromFEN(fen); err != nil {
			return errors.Wrapf(err, "restore game %s", s.id)
		}
	}
	s.engine = e
	s.over = finished || e.Status().Terminal()
	s.loaded = true
	return nil
}

// ---------- MAKE_MOVE ----------

func (co *Coordinator) makeMove(ctx context.Context, c *ws.Client, p *peer, cmd protocol.Command) error {
	color, ok := p.role.Color()
	if !ok {
		return errors.Wrap(errors.ErrForbidden, "observers cannot move")
	}
	m, err := cmd.Move.ToMove()
	if err != nil {
		return err
	}

	s := p.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.over || s.closed {
		return errors.ErrGameOver
	}
	if s.engine.SideToMove() != color {
		return errors.Wrapf(errors.ErrForbidden, "it is %s's turn", s.engine.SideToMove())
	}
	if err := co.consultHouseRules(ctx, s, m); err != nil {
		return err
	}
	if err := s.engine.ApplyMove(m); err != nil {
		return err
	}

	log := co.log.With(zap.String("game", s.id), zap.String("user", p.username))
	log.Info("move", zap.Stringer("move", m))
	if err := co.games.SaveState(ctx, s.id, s.engine.FEN()); err != nil {
		log.Warn("save state failed", zap.Error(err))
	}

	co.broadcastBoard(s)
	co.broadcast(s, protocol.EncodeNotification(fmt.Sprintf("%s moved %s", p.username, m)), c.ID())

	side := s.engine.SideToMove()
	switch status := s.engine.Status(); status {
	case game.Check:
		co.broadcast(s, protocol.EncodeNotification(fmt.Sprintf("%s is in check", side)), "")
	case game.Checkmate:
		co.broadcast(s, protocol.EncodeNotification(fmt.Sprintf("%s is in checkmate, %s wins", side, side.Opposite())), "")
		co.finish(ctx, s, log)
	case game.Stalemate:
		co.broadcast(s, protocol.EncodeNotification(fmt.Sprintf("%s is in stalemate, the game is drawn", side)), "")
		co.finish(ctx, s, log)
	}
	return nil
}

func (co *Coordinator) consultHouseRules(ctx context.Context, s *Session, m game.Move) error {
	if !co.rules.Defines() {
		return nil
	}
	b := s.engine.Board()
	piece, ok := b.At(m.From)
	if !ok || piece.Color != s.engine.SideToMove() {
		// ApplyMove reports these.
		return nil
	}
	allowed, reason, err := co.rules.AllowMove(ctx, piece, m)
	if err != nil {
		co.log.Warn("house rules failed", zap.String("game", s.id), zap.Error(err))
		return errors.Wrap(errors.ErrInvalidMove, "move rejected by house rules")
	}
	if !allowed {
		return errors.Wrap(errors.ErrInvalidMove, reason)
	}
	return nil
}

// finish marks the game over. It runs with s.mu held.
func (co *Coordinator) finish(ctx context.Context, s *Session, log *zap.Logger) {
	s.over = true
	if err := co.games.MarkFinished(ctx, s.id); err != nil {
		log.Warn("mark finished failed", zap.Error(err))
	}
	log.Info("game over", zap.Stringer("status", s.engine.Status()))
}

// ---------- LEAVE / disconnect ----------

// leave detaches p from its session and tells the others. An explicit LEAVE
// also frees the seat in the store; a dropped connection keeps it.
func (co *Coordinator) leave(ctx context.Context, c *ws.Client, p *peer, release bool) {
	s := p.session
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.participants, c.ID())
	co.hub.Detach(c.ID())
	p.state = left

	if color, ok := p.role.Color(); ok && release && !s.seated(p.role, p.username, c.ID()) {
		if err := co.games.ReleaseRole(ctx, s.id, color, p.username); err != nil {
			co.log.Warn("release role failed", zap.String("game", s.id), zap.Error(err))
		}
	}
	co.broadcast(s, protocol.Encode(protocol.LeaveMessage, protocol.LeavePayload{
		Username: p.username,
		Role:     p.role.String(),
	}), "")
	co.log.Info("left",
		zap.String("conn", c.ID()),
		zap.String("game", s.id),
		zap.String("user", p.username),
		zap.Bool("released", release))

	if len(s.participants) == 0 {
		co.close(s)
	}
}

// close removes s from the registry. It runs with s.mu held.
func (co *Coordinator) close(s *Session) {
	if s.closed {
		return
	}
	s.closed = true
	co.registry.Remove(s.id)
}

// ---------- RESIGN ----------

func (co *Coordinator) resign(ctx context.Context, p *peer) error {
	color, ok := p.role.Color()
	if !ok {
		return errors.Wrap(errors.ErrForbidden, "observers cannot resign")
	}
	s := p.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.over || s.closed {
		return errors.ErrGameOver
	}

	log := co.log.With(zap.String("game", s.id), zap.String("user", p.username))
	co.finish(ctx, s, log)
	co.broadcast(s, protocol.Encode(protocol.ResignMessage, protocol.ResignPayload{
		Username: p.username,
		Winner:   color.Opposite().String(),
	}), "")
	co.close(s)
	return nil
}

// ---------- read-only ----------

func (co *Coordinator) requestBoard(c *ws.Client, p *peer) error {
	s := p.session
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = co.hub.Send(c.ID(), loadGame(s.engine, p.role))
	return nil
}

func (co *Coordinator) highlight(c *ws.Client, p *peer, sq game.Square) error {
	if !sq.Valid() {
		return errors.Wrapf(errors.ErrNotFound, "square %+v", sq)
	}
	viewer, ok := p.role.Color()
	if !ok {
		viewer = game.White
	}

	s := p.session
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.engine.Board()
	piece, ok := b.At(sq)
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "no piece on %s", sq)
	}
	if piece.Color != viewer {
		return errors.Wrapf(errors.ErrForbidden, "%s is not your piece", sq)
	}
	_ = co.hub.Send(c.ID(), protocol.Encode(protocol.HighlightMessage, protocol.HighlightPayload{
		Game:         protocol.NewGameView(s.engine),
		Origin:       sq,
		Destinations: game.Destinations(s.engine.ValidMoves(sq)),
	}))
	return nil
}
