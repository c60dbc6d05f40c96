package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"cookduel/apps/server/internal/codec"
	"cookduel/kitchen"
	"cookduel/replay"
)

const maxVerifyBody = 1 << 20

type HTTPHandler struct {
	ledger Service
	log    *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type verifyRequest struct {
	State *kitchen.State `json:"state"`
}

type verifyResponse struct {
	SessionID string              `json:"session_id"`
	OK        bool                `json:"ok"`
	Steps     []replay.StepResult `json:"steps"`
	Final     *kitchen.State      `json:"final,omitempty"`
	Reason    string              `json:"reason,omitempty"`
	Error     string              `json:"error,omitempty"`
	Diff      string              `json:"diff,omitempty"`
}

func NewHTTPHandler(ledgerService Service, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{ledger: ledgerService, log: logger.With("component", "ledger")}
}

func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{sessionID}/tape", h.handleTape)
		r.Get("/{sessionID}/verify", h.handleVerify)
		r.Post("/{sessionID}/verify", h.handleVerify)
	})
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	items, err := h.ledger.ListSessions(ctx, parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		h.log.Error("list sessions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query sessions failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *HTTPHandler) handleTape(w http.ResponseWriter, r *http.Request) {
	tape, ok := h.loadTape(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tape)
}

// handleVerify replays the recorded tape. A POSTed state is compared against the
// replayed result, the way a peer proves its replica matches the relay's record.
func (h *HTTPHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var want *kitchen.State
	if r.Method == http.MethodPost {
		var req verifyRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVerifyBody)).Decode(&req); err != nil || req.State == nil {
			writeError(w, http.StatusBadRequest, "body must carry a state")
			return
		}
		want = req.State
	}

	tape, ok := h.loadTape(w, r)
	if !ok {
		return
	}
	resp := verifyResponse{SessionID: tape.SessionID}
	final, steps, err := replay.Play(tape)
	resp.Steps = steps
	if err == nil && want != nil {
		err = replay.Verify(tape, want)
	}
	if err != nil {
		resp.Error = err.Error()
		if re, ok := replay.AsReplayError(err); ok {
			resp.Reason = re.Reason
			resp.Diff = re.Diff
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.OK = true
	resp.Final = final
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) loadTape(w http.ResponseWriter, r *http.Request) (*replay.Tape, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	recs, err := h.ledger.GetFrames(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil {
		h.log.Error("load frames failed", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "load session failed")
		return nil, false
	}
	tape, err := codec.TapeFromFrames(sessionID, Frames(recs))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}
	return tape, true
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultListLimit
	}
	return clampLimit(n)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
