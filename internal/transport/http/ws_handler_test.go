package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketReceivesAwardNotification(t *testing.T) {
	srv := newTestServer(t)

	u := "ws" + srv.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, http.Header{headerUserID: []string{"u1"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect connected event first.
	_, payload := readNext(conn, t, "connected")
	if payload["userId"] != "u1" {
		t.Fatalf("expected connected payload for u1, got %v", payload)
	}

	if status := srv.do(t, http.MethodPost, "/quizzes/quiz-1/submissions", "u1", "", correctAnswer(), nil); status != http.StatusOK {
		t.Fatalf("submit status %d", status)
	}

	_, payload = readNext(conn, t, "badge")
	if payload["id"] != "first-pass" || payload["userId"] != "u1" {
		t.Fatalf("unexpected badge payload %v", payload)
	}
}

func TestWebSocketRequiresGatewayIdentity(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/ws", "/ws?userId=u1"} {
		u := "ws" + srv.URL[len("http"):] + path
		_, resp, err := websocket.DefaultDialer.Dial(u, nil)
		if err == nil {
			t.Fatalf("%s: expected dial to fail without the identity header", path)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %v", path, resp)
		}
	}
	if srv.hub.Connected("u1") {
		t.Fatalf("query parameter must not subscribe u1")
	}
}

func TestWebSocketCloseUnsubscribes(t *testing.T) {
	srv := newTestServer(t)

	u := "ws" + srv.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, http.Header{headerUserID: []string{"u1"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readNext(conn, t, "connected")
	if !srv.hub.Connected("u1") {
		t.Fatalf("expected u1 connected")
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.Connected("u1") {
		if time.Now().After(deadline) {
			t.Fatalf("expected u1 unsubscribed after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
