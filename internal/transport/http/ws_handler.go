package http

import (
	"net/http"

	"github.com/gorilla/websocket"

	"progression-engine/internal/domain"
	"progression-engine/internal/logger"
)

// WSHandler streams award notifications to a connected user.
type WSHandler struct {
	hub      *NotificationHub
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *NotificationHub, log *logger.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		log: log.With("component", "WSHandler"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and forwards notifications until the client goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	// Only the gateway-authenticated identity may subscribe.
	userID := callerOf(r).userID
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.hub.Subscribe(userID)

	closed := make(chan struct{})
	writerDone := make(chan struct{})

	// Single writer goroutine; gorilla connections allow one concurrent writer.
	go func() {
		defer close(writerDone)
		if err := conn.WriteJSON(outboundMessage[map[string]string]{Type: "connected", Payload: map[string]string{"userId": userID}}); err != nil {
			return
		}
		for {
			select {
			case n, ok := <-updates:
				if !ok {
					return
				}
				if err := conn.WriteJSON(outboundMessage[domain.Notification]{Type: string(n.Kind), Payload: n}); err != nil {
					h.log.Warn("ws write error", "user_id", userID, "error", err)
					return
				}
			case <-closed:
				return
			}
		}
	}()

	// Inbound frames are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(closed)
	<-writerDone
	cancel()
	h.log.Debug("ws closed", "user_id", userID, "other_sockets", h.hub.Connected(userID))
}
