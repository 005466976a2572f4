/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package gateway accepts websocket connections, decodes client frames into
// engine events and writes each participant's outbox back to the wire.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Seednode/wordchain/game"
)

var (
	ErrConnectionLimitExceeded = errors.New("connection limit exceeded")
	ErrClosed                  = errors.New("gateway closed")
)

// Enqueuer is the part of the engine the gateway depends on.
type Enqueuer interface {
	Enqueue(ctx context.Context, ev game.Event) error
}

type Config struct {
	// MaxParticipants caps concurrent connections; zero is unbounded.
	MaxParticipants int
	// HeartbeatTimeout drops a connection that sends nothing, not even a
	// pong, for this long.
	HeartbeatTimeout time.Duration
	OutboxSize       int
	MaxMessageSize   int64
	// PreviewRate and PreviewBurst limit preview frames per connection.
	// Over the limit only the newest preview is kept and it is forwarded
	// once the limiter allows.
	PreviewRate  rate.Limit
	PreviewBurst int
}

func DefaultConfig() Config {
	return Config{
		HeartbeatTimeout: 60 * time.Second,
		OutboxSize:       64,
		MaxMessageSize:   4096,
		PreviewRate:      20,
		PreviewBurst:     10,
	}
}

// Gateway tracks every live connection.
type Gateway struct {
	cfg      Config
	engine   Enqueuer
	log      zerolog.Logger
	upgrader websocket.Upgrader
	fatal    func(error)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	handles map[string]*Handle
	closed  bool
}

// New builds a gateway. fatal is called when the engine can no longer accept
// events; it must shut the process down.
func New(cfg Config, engine Enqueuer, log zerolog.Logger, fatal func(error)) *Gateway {
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = DefaultConfig().HeartbeatTimeout
	}
	if fatal == nil {
		fatal = func(error) {}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Gateway{
		cfg:    cfg,
		engine: engine,
		log:    log.With().Str("component", "gateway").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		fatal:   fatal,
		ctx:     ctx,
		cancel:  cancel,
		handles: make(map[string]*Handle),
	}
}

// Active reports the number of open connections.
func (g *Gateway) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.handles)
}

// ServeWS upgrades the request and runs the connection until it ends.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}

	h, err := g.Accept(conn, r.URL.Query().Get("name"))
	if err != nil {
		g.reject(conn, err)
		return
	}

	g.log.Info().Str("participant", h.ID).Str("remote", r.RemoteAddr).Msg("connection accepted")

	go h.writePump()
	h.readPump()
}

// Accept registers conn as a new participant and announces it to the engine.
func (g *Gateway) Accept(conn *websocket.Conn, displayName string) (*Handle, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}
	if g.cfg.MaxParticipants > 0 && len(g.handles) >= g.cfg.MaxParticipants {
		g.mu.Unlock()
		return nil, ErrConnectionLimitExceeded
	}

	h := &Handle{
		ID:       uuid.NewString(),
		conn:     conn,
		outbox:   game.NewOutbox(g.cfg.OutboxSize),
		previews: rate.NewLimiter(g.cfg.PreviewRate, g.cfg.PreviewBurst),
		gw:       g,
	}
	h.log = g.log.With().Str("participant", h.ID).Logger()
	g.handles[h.ID] = h
	g.mu.Unlock()

	err := g.engine.Enqueue(g.ctx, game.Joined{
		ParticipantID: h.ID,
		DisplayName:   displayName,
		Outbox:        h.outbox,
	})
	if err != nil {
		g.mu.Lock()
		delete(g.handles, h.ID)
		g.mu.Unlock()
		h.outbox.Close()
		g.engineFailed(err)
		return nil, err
	}

	return h, nil
}

func (g *Gateway) reject(conn *websocket.Conn, err error) {
	defer conn.Close()

	kind, code := game.KindInternal, websocket.CloseInternalServerErr
	if errors.Is(err, ErrConnectionLimitExceeded) {
		kind, code = game.KindConnectionLimitExceeded, websocket.CloseTryAgainLater
	}

	g.log.Warn().Err(err).Str("kind", kind).Msg("connection rejected")

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(game.NewErrorMessage(kind, err))
	_ = conn.WriteControl(websocket.CloseMessage, closeMessage(code, kind), time.Now().Add(writeWait))
}

// release runs exactly once per accepted connection.
func (g *Gateway) release(h *Handle) {
	h.leaveOnce.Do(func() {
		g.mu.Lock()
		delete(g.handles, h.ID)
		g.mu.Unlock()

		h.stopPreviews()
		h.outbox.Close()
		_ = h.conn.Close()

		err := g.engine.Enqueue(context.Background(), game.Left{ParticipantID: h.ID})
		if err != nil && !errors.Is(err, game.ErrEngineStopped) {
			g.engineFailed(err)
		}

		h.log.Info().Msg("connection closed")
	})
}

func (g *Gateway) engineFailed(err error) {
	if errors.Is(err, game.ErrQueueExhausted) {
		g.log.Error().Err(err).Msg("engine cannot accept events")
		g.fatal(err)
	}
}

// Close drops every connection and refuses new ones.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	handles := make([]*Handle, 0, len(g.handles))
	for _, h := range g.handles {
		handles = append(handles, h)
	}
	g.mu.Unlock()

	g.cancel()

	for _, h := range handles {
		_ = h.conn.WriteControl(websocket.CloseMessage,
			closeMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = h.conn.Close()
	}

	g.log.Info().Int("connections", len(handles)).Msg("gateway closed")
}

// closeMessage keeps the close reason within the 123 bytes a control frame
// allows.
func closeMessage(code int, reason string) []byte {
	if len(reason) > 123 {
		reason = reason[:123]
	}
	return websocket.FormatCloseMessage(code, reason)
}
