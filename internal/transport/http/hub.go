package http

import (
	"context"
	"errors"
	"sync"

	"progression-engine/internal/domain"
)

// ErrNotConnected is returned when a notification targets a user with no open socket.
var ErrNotConnected = errors.New("user not connected")

// NotificationHub tracks websocket subscribers per user and delivers award
// notifications to them. It implements app.Notifier.
type NotificationHub struct {
	mu      sync.RWMutex
	clients map[string]map[chan domain.Notification]struct{}
}

func NewNotificationHub() *NotificationHub {
	return &NotificationHub{clients: make(map[string]map[chan domain.Notification]struct{})}
}

// Subscribe registers a delivery channel for userID.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *NotificationHub) Subscribe(userID string) (<-chan domain.Notification, func()) {
	ch := make(chan domain.Notification, 8)

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[chan domain.Notification]struct{})
	}
	h.clients[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.clients[userID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.clients, userID)
		}
	}
	return ch, cancel
}

// Notify delivers to every socket of the target user without blocking.
func (h *NotificationHub) Notify(_ context.Context, n domain.Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := h.clients[n.UserID]
	if len(subs) == 0 {
		return ErrNotConnected
	}
	for ch := range subs {
		select {
		case ch <- n:
		default:
			// Slow client: drop its oldest pending notification to make room.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- n:
			default:
			}
		}
	}
	return nil
}

// Connected reports whether userID has at least one open socket.
func (h *NotificationHub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}
