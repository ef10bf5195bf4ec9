package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"quiz-round-service/internal/app"
	"quiz-round-service/internal/domain"
)

// AdminTokenHeader carries the facilitator secret for reset actions.
const AdminTokenHeader = "X-Admin-Token"

// APIHandler exposes the round engine as a small JSON API.
type APIHandler struct {
	engine *app.RoundEngine
}

func NewAPIHandler(engine *app.RoundEngine) *APIHandler {
	return &APIHandler{engine: engine}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", h.state)
	mux.HandleFunc("GET /api/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /api/teams", h.teams)
	mux.HandleFunc("POST /api/teams/{team}/answer", h.submit)

	mux.HandleFunc("GET /api/facilitator/submissions", h.submissions)
	mux.HandleFunc("POST /api/facilitator/advance", h.action(h.engine.Advance))
	mux.HandleFunc("POST /api/facilitator/retreat", h.action(h.engine.Retreat))
	mux.HandleFunc("POST /api/facilitator/reveal", h.action(h.engine.Reveal))
	mux.HandleFunc("POST /api/facilitator/shuffle", h.action(h.engine.Shuffle))
	mux.HandleFunc("POST /api/facilitator/negative-marking", h.action(h.engine.EnableNegativeMarking))
	mux.HandleFunc("POST /api/facilitator/timer", h.armTimer)
	mux.HandleFunc("POST /api/facilitator/reset-round", h.reset(h.engine.ResetRound))
	mux.HandleFunc("POST /api/facilitator/reset-all", h.reset(h.engine.ResetAll))
}

type submitResponse struct {
	Outcome domain.SubmitOutcome `json:"outcome"`
}

type timerRequest struct {
	Seconds int `json:"seconds"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (h *APIHandler) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.View())
}

func (h *APIHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Leaderboard())
}

func (h *APIHandler) teams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Teams())
}

func (h *APIHandler) submissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Submissions())
}

func (h *APIHandler) submit(w http.ResponseWriter, r *http.Request) {
	var raw domain.RawAnswer
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid answer payload"})
		return
	}
	outcome, err := h.engine.Submit(r.Context(), r.PathValue("team"), raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Outcome: outcome})
}

func (h *APIHandler) armTimer(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid timer payload"})
			return
		}
	}
	if err := h.engine.ArmTimer(r.Context(), req.Seconds); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.View())
}

func (h *APIHandler) action(fn func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.engine.View())
	}
}

func (h *APIHandler) reset(fn func(ctx context.Context, caller domain.Caller) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context(), CallerFromRequest(r)); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.engine.View())
	}
}

// CallerFromRequest extracts the presented admin token and network origin.
func CallerFromRequest(r *http.Request) domain.Caller {
	token := r.Header.Get(AdminTokenHeader)
	if token == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
	}
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return domain.Caller{Token: token, RemoteAddr: r.RemoteAddr}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrTeamNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNoQuestion):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTimer):
		status = http.StatusBadRequest
	default:
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
