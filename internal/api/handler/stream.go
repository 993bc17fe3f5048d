package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Kiosk clients connect from file:// and loopback origins.
		return true
	},
}

type pendingMessage struct {
	Pending int `json:"pending"`
}

// StatusStream pushes the pending-queue depth over a websocket, once on
// connect and then on every change, so the kiosk badge never polls.
func (h *Handler) StatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	feed := h.Store.PendingUpdates()
	updates := feed.Subscribe()
	defer feed.Unsubscribe(updates)

	// The kiosk sends nothing, but reading is what surfaces close frames.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(pendingMessage{Pending: feed.Last()}); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case count, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(pendingMessage{Pending: count}); err != nil {
				return
			}
		}
	}
}
