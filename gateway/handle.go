/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Seednode/wordchain/game"
)

const writeWait = 10 * time.Second

// Handle is one accepted connection and its participant id.
type Handle struct {
	ID string

	conn     *websocket.Conn
	outbox   *game.Outbox
	previews *rate.Limiter
	gw       *Gateway
	log      zerolog.Logger

	writeMu   sync.Mutex
	leaveOnce sync.Once

	// sendMu orders everything this handle enqueues. pending holds the
	// newest preview held back by the limiter; flush delivers it.
	sendMu  sync.Mutex
	pending *game.Preview
	flush   *time.Timer
}

func (h *Handle) write(m game.Message) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	_ = h.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return h.conn.WriteJSON(m)
}

func (h *Handle) closeWith(code int, reason string) {
	_ = h.conn.WriteControl(websocket.CloseMessage, closeMessage(code, reason), time.Now().Add(writeWait))
}

func (h *Handle) readPump() {
	defer h.gw.release(h)

	timeout := h.gw.cfg.HeartbeatTimeout

	if h.gw.cfg.MaxMessageSize > 0 {
		h.conn.SetReadLimit(h.gw.cfg.MaxMessageSize)
	}
	_ = h.conn.SetReadDeadline(time.Now().Add(timeout))
	h.conn.SetPongHandler(func(string) error {
		return h.conn.SetReadDeadline(time.Now().Add(timeout))
	})

	for {
		kind, data, err := h.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.log.Debug().Err(err).Msg("read failed")
			}
			return
		}
		_ = h.conn.SetReadDeadline(time.Now().Add(timeout))

		if kind != websocket.TextMessage {
			h.protocolError(&ProtocolError{Reason: "binary frames are not supported"})
			return
		}

		ev, err := Decode(h.ID, data)
		if err != nil {
			h.protocolError(err)
			return
		}
		if ev == nil {
			continue
		}

		if p, ok := ev.(game.Preview); ok {
			err = h.sendPreview(p)
		} else {
			err = h.send(ev)
		}
		if err != nil {
			if !errors.Is(err, game.ErrEngineStopped) {
				h.gw.engineFailed(err)
			}
			return
		}
	}
}

// send enqueues ev. A held-back preview is stale once anything else
// arrives, so it is discarded.
func (h *Handle) send(ev game.Event) error {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	h.pending = nil
	return h.gw.engine.Enqueue(h.gw.ctx, ev)
}

// sendPreview forwards p if the limiter allows it now. Otherwise p waits in
// the pending slot, replacing any older preview, until a token is available.
func (h *Handle) sendPreview(p game.Preview) error {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	if h.pending != nil {
		h.pending = &p
		return nil
	}

	r := h.previews.Reserve()
	if !r.OK() || r.Delay() == 0 {
		return h.gw.engine.Enqueue(h.gw.ctx, p)
	}

	h.pending = &p
	h.flush = time.AfterFunc(r.Delay(), h.flushPreview)
	return nil
}

func (h *Handle) flushPreview() {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	p := h.pending
	h.pending = nil
	if p == nil {
		return
	}

	err := h.gw.engine.Enqueue(h.gw.ctx, *p)
	if err != nil && !errors.Is(err, game.ErrEngineStopped) && !errors.Is(err, context.Canceled) {
		h.gw.engineFailed(err)
	}
}

func (h *Handle) stopPreviews() {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	h.pending = nil
	if h.flush != nil {
		h.flush.Stop()
	}
}

func (h *Handle) protocolError(err error) {
	h.log.Warn().Err(err).Msg("dropping connection")

	_ = h.write(game.NewErrorMessage(game.KindProtocolError, err))
	h.closeWith(websocket.CloseProtocolError, err.Error())
}

func (h *Handle) writePump() {
	ticker := time.NewTicker(h.gw.cfg.HeartbeatTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-h.outbox.Ready():
			for _, m := range h.outbox.Drain() {
				if err := h.write(m); err != nil {
					h.log.Debug().Err(err).Msg("write failed")
					_ = h.conn.Close()
					return
				}
			}
		case <-ticker.C:
			err := h.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			if err != nil {
				_ = h.conn.Close()
				return
			}
		case <-h.outbox.Done():
			return
		}
	}
}
