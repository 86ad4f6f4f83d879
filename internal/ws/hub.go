// Package ws holds the connection manager (Hub) and the websocket endpoint
// that feeds it.
package ws

import (
	"sync"

	"go.uber.org/zap"
)

// Hub tracks open connections keyed by client id and delivers outbound
// frames to them. Registration and removal go through a sync.Map so no
// operation locks the whole set. It is constructed once at server start and
// drained on shutdown.
type Hub struct {
	log     *zap.Logger
	clients sync.Map // id -> *Client
	buffer  int
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub's logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

// WithSendBuffer sets the per-client outbound queue size used by NewClient.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n >= 1 {
			h.buffer = n
		}
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{log: zap.NewNop(), buffer: 64}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewClient creates a client sized by the hub's send buffer. It is not
// registered yet.
func (h *Hub) NewClient() *Client {
	return NewClient(h.buffer)
}

// ---------- registration ----------

// Register adds c. A client already registered under the same id is
// replaced and closed.
func (h *Hub) Register(c *Client) {
	if prev, loaded := h.clients.Swap(c.ID(), c); loaded {
		if old := prev.(*Client); old != c {
			old.close()
		}
	}
	h.log.Debug("client registered", zap.String("conn", c.ID()))
}

// Unregister removes and closes the client. Unknown ids are ignored.
func (h *Hub) Unregister(id string) {
	v, ok := h.clients.LoadAndDelete(id)
	if !ok {
		return
	}
	v.(*Client).close()
	h.log.Debug("client unregistered", zap.String("conn", id))
}

// Attach records that the client has joined gameID, making it a broadcast
// target for that game.
func (h *Hub) Attach(id, gameID string) bool {
	c, ok := h.get(id)
	if !ok {
		return false
	}
	c.setGameID(gameID)
	return true
}

// Detach clears the client's game.
func (h *Hub) Detach(id string) {
	if c, ok := h.get(id); ok {
		c.setGameID("")
	}
}

// Len returns the number of registered clients.
func (h *Hub) Len() int {
	n := 0
	h.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (h *Hub) get(id string) (*Client, bool) {
	v, ok := h.clients.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Client), true
}

// ---------- delivery ----------

// Send queues payload for one client. A closed or backed-up client is
// logged and removed, and the error returned; callers need not act on it.
func (h *Hub) Send(id string, payload []byte) error {
	c, ok := h.get(id)
	if !ok {
		return ErrUnknownClient
	}
	if err := c.enqueue(payload); err != nil {
		h.log.Warn("dropping client", zap.String("conn", id), zap.Error(err))
		h.Unregister(id)
		return err
	}
	return nil
}

// Broadcast queues payload for every client attached to gameID except
// exclude, and returns the number of successful deliveries.
func (h *Hub) Broadcast(gameID string, payload []byte, exclude string) int {
	return h.BroadcastFunc(gameID, exclude, func(*Client) ([]byte, bool) { return payload, true })
}

// BroadcastFunc is Broadcast with a per-recipient payload. render may skip a
// recipient by returning false. Failed recipients are removed only after the
// whole pass, so a connection closing mid-iteration never causes others to be
// skipped.
func (h *Hub) BroadcastFunc(gameID, exclude string, render func(*Client) ([]byte, bool)) int {
	var failed []string
	sent := 0
	h.clients.Range(func(_, v any) bool {
		c := v.(*Client)
		if c.ID() == exclude || c.GameID() != gameID {
			return true
		}
		payload, ok := render(c)
		if !ok {
			return true
		}
		if err := c.enqueue(payload); err != nil {
			h.log.Warn("broadcast failed",
				zap.String("conn", c.ID()),
				zap.String("game", gameID),
				zap.Error(err))
			failed = append(failed, c.ID())
			return true
		}
		sent++
		return true
	})
	for _, id := range failed {
		h.Unregister(id)
	}
	return sent
}

// Drain unregisters every client. Transport writers observe their closed
// outboxes and close the underlying connections.
func (h *Hub) Drain() {
	h.clients.Range(func(k, _ any) bool {
		h.Unregister(k.(string))
		return true
	})
	h.log.Info("hub drained")
}
