package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"quiz-round-service/internal/app"
	"quiz-round-service/internal/domain"
)

func TestWebSocketAnswerFlow(t *testing.T) {
	engine := newTestEngine(t, app.AccessPolicy{})
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(engine).ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?team=alpha"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the current state first.
	typ, _ := readNext(t, conn, "state")
	if typ != "state" {
		t.Fatalf("expected state, got %s", typ)
	}

	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"choice": "1"},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	_, payload := readNext(t, conn, "answerResult")
	var result submitResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		t.Fatalf("decode answerResult: %v", err)
	}
	if result.Outcome != domain.SubmitStored {
		t.Fatalf("expected stored, got %s", result.Outcome)
	}

	_, payload = readNext(t, conn, "state")
	var view domain.RoundView
	if err := json.Unmarshal(payload, &view); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if !view.Submitted["alpha"] || view.Submitted["bravo"] {
		t.Fatalf("expected only alpha submitted, got %+v", view.Submitted)
	}
}

func TestWebSocketRejectsUnknownTeam(t *testing.T) {
	engine := newTestEngine(t, app.AccessPolicy{})
	server := httptest.NewServer(http.HandlerFunc(NewWSHandler(engine).ServeWS))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/?team=zulu"
	_, res, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail for unknown team")
	}
	if res == nil || res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake response, got %+v", res)
	}
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
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
