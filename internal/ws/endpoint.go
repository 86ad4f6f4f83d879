package ws

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Handler consumes connection lifecycle events. OnMessage and
// OnConnectionClosed for one client are called from that client's reader
// goroutine, never concurrently with each other.
type Handler interface {
	OnConnectionOpened(c *Client)
	OnMessage(c *Client, raw []byte)
	OnConnectionClosed(c *Client)
}

// Endpoint upgrades HTTP requests to websockets and pumps frames between
// the socket and a hub Client.
type Endpoint struct {
	hub          *Hub
	handler      Handler
	log          *zap.Logger
	allowOrigins map[string]bool
	writeTimeout time.Duration
	pingInterval time.Duration
	readLimit    int64
}

// EndpointOption configures an Endpoint.
type EndpointOption func(*Endpoint)

// WithAllowedOrigins restricts the Origin header. An empty list allows any origin.
func WithAllowedOrigins(origins []string) EndpointOption {
	return func(e *Endpoint) {
		for _, o := range origins {
			if o != "" {
				e.allowOrigins[o] = true
			}
		}
	}
}

// WithWriteTimeout bounds each frame write so a dead peer cannot stall its writer.
func WithWriteTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) {
		if d > 0 {
			e.writeTimeout = d
		}
	}
}

// WithPingInterval sets the keepalive ping period.
func WithPingInterval(d time.Duration) EndpointOption {
	return func(e *Endpoint) {
		if d > 0 {
			e.pingInterval = d
		}
	}
}

// WithEndpointLogger sets the endpoint's logger.
func WithEndpointLogger(l *zap.Logger) EndpointOption {
	return func(e *Endpoint) {
		if l != nil {
			e.log = l
		}
	}
}

func NewEndpoint(hub *Hub, handler Handler, opts ...EndpointOption) *Endpoint {
	e := &Endpoint{
		hub:          hub,
		handler:      handler,
		log:          zap.NewNop(),
		allowOrigins: map[string]bool{},
		writeTimeout: 10 * time.Second,
		pingInterval: 15 * time.Second,
		readLimit:    1 << 16,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin != "" && len(e.allowOrigins) > 0 && !e.allowOrigins[origin] {
		http.Error(w, "forbidden origin", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		e.log.Debug("websocket accept failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(e.readLimit)

	client := e.hub.NewClient()
	e.hub.Register(client)
	log := e.log.With(zap.String("conn", client.ID()))
	log.Info("client connected", zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	e.handler.OnConnectionOpened(client)

	// writer
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ping := time.NewTicker(e.pingInterval)
		defer ping.Stop()
		for {
			select {
			case msg, ok := <-client.Outbox():
				if !ok {
					_ = conn.Close(websocket.StatusNormalClosure, "bye")
					cancel()
					return
				}
				if err := e.write(ctx, conn, msg); err != nil {
					log.Debug("write failed", zap.Error(err))
					cancel()
					return
				}
			case <-ping.C:
				pctx, pcancel := context.WithTimeout(ctx, e.writeTimeout)
				err := conn.Ping(pctx)
				pcancel()
				if err != nil {
					log.Debug("ping failed", zap.Error(err))
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// reader
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		e.handler.OnMessage(client, data)
	}

	cancel()
	e.handler.OnConnectionClosed(client)
	e.hub.Unregister(client.ID())
	<-writerDone
	_ = conn.Close(websocket.StatusNormalClosure, "")
	log.Info("client disconnected")
}

func (e *Endpoint) write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	wctx, cancel := context.WithTimeout(ctx, e.writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, msg)
}
