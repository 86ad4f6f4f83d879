package ws

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrClientClosed is returned when sending to a client that has been unregistered.
	ErrClientClosed = errors.New("client closed")
	// ErrSlowClient is returned when a client's outbound queue is full.
	ErrSlowClient = errors.New("client outbound queue full")
	// ErrUnknownClient is returned for ids the hub does not know.
	ErrUnknownClient = errors.New("unknown client")
)

// Client is one transport connection as seen by the hub: an identity, a
// bounded outbound queue drained by the transport's writer, and the game it
// has joined (if any).
type Client struct {
	id   string
	send chan []byte

	mu     sync.RWMutex
	gameID string
	closed bool

	done chan struct{}
}

// NewClient returns a client with a fresh uuid identity and an outbound
// queue of the given capacity.
func NewClient(buffer int) *Client {
	return newClientWithID(uuid.NewString(), buffer)
}

func newClientWithID(id string, buffer int) *Client {
	if buffer < 1 {
		buffer = 1
	}
	return &Client{id: id, send: make(chan []byte, buffer), done: make(chan struct{})}
}

func (c *Client) ID() string { return c.id }

// GameID returns the joined game, or "" before joining.
func (c *Client) GameID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gameID
}

func (c *Client) setGameID(id string) {
	c.mu.Lock()
	c.gameID = id
	c.mu.Unlock()
}

// Outbox is the queue the transport writer drains. It is closed once the
// client is unregistered.
func (c *Client) Outbox() <-chan []byte { return c.send }

// Done is closed when the client is unregistered.
func (c *Client) Done() <-chan struct{} { return c.done }

// enqueue never blocks: a full queue means the peer is not keeping up.
func (c *Client) enqueue(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrSlowClient
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	close(c.done)
}
