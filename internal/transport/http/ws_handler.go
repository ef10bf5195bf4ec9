package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"quiz-round-service/internal/app"
	"quiz-round-service/internal/domain"
)

// WSHandler serves team clients over a websocket. It is request/response
// only: every inbound message gets its replies and nothing is pushed.
type WSHandler struct {
	engine   *app.RoundEngine
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.RoundEngine) *WSHandler {
	return &WSHandler{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request for the team named by ?team= and answers
// "state" and "answer" messages.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team")
	if !h.knownTeam(teamID) {
		http.Error(w, "unknown team", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(outboundMessage[domain.RoundView]{Type: "state", Payload: h.engine.View()}); err != nil {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		if err := h.handle(conn, r, teamID, inbound); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}

func (h *WSHandler) handle(conn *websocket.Conn, r *http.Request, teamID string, inbound inboundMessage) error {
	switch inbound.Type {
	case "state":
		return conn.WriteJSON(outboundMessage[domain.RoundView]{Type: "state", Payload: h.engine.View()})
	case "answer":
		var raw domain.RawAnswer
		if err := json.Unmarshal(inbound.Payload, &raw); err != nil {
			return conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
		}
		outcome, err := h.engine.Submit(r.Context(), teamID, raw)
		if err != nil {
			return conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		}
		if err := conn.WriteJSON(outboundMessage[submitResponse]{Type: "answerResult", Payload: submitResponse{Outcome: outcome}}); err != nil {
			return err
		}
		return conn.WriteJSON(outboundMessage[domain.RoundView]{Type: "state", Payload: h.engine.View()})
	default:
		return conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
	}
}

func (h *WSHandler) knownTeam(teamID string) bool {
	for _, t := range h.engine.Teams() {
		if t.ID == teamID {
			return true
		}
	}
	return false
}
