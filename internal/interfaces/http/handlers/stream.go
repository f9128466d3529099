package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	httpContracts "github.com/sawpanic/astrorun/internal/http"
)

const streamWriteWait = 5 * time.Second

// Now handles GET /ws/now. It pushes the current sky immediately and then on
// every tick until the client goes away or an evaluation fails.
func (h *Handlers) Now(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn().Err(err).Str("request_id", RequestID(r.Context())).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	if h.opts.StreamObserver != nil {
		h.opts.StreamObserver.StreamOpened()
		defer h.opts.StreamObserver.StreamClosed()
	}

	// The client never sends anything meaningful; reading surfaces its close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := r.Context()
	ticker := time.NewTicker(h.opts.StreamInterval)
	defer ticker.Stop()

	for {
		if !h.pushSky(conn, r) {
			return
		}
		select {
		case <-ticker.C:
		case <-gone:
			log.Debug().Str("request_id", RequestID(ctx)).Msg("stream client left")
			return
		case <-ctx.Done():
			return
		}
	}
}

// pushSky sends one frame and reports whether the stream should continue.
func (h *Handlers) pushSky(conn *websocket.Conn, r *http.Request) bool {
	instant, positions, err := h.svc.Now(r.Context())
	var frame httpContracts.StreamFrame
	if err != nil {
		status, code := classify(err)
		e := newErrorResponse(r, status, code, err.Error())
		frame = httpContracts.StreamFrame{Type: "error", Error: &e}
		log.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("stream evaluation failed")
	} else {
		frame = httpContracts.StreamFrame{Type: "positions", Instant: &instant, Planets: planetRows(positions)}
	}

	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if werr := conn.WriteJSON(frame); werr != nil {
		log.Debug().Err(werr).Msg("stream write failed")
		return false
	}
	if err != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "evaluation failed")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
		return false
	}
	return true
}
