package lobby

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"cookduel/apps/server/internal/auth"
	"cookduel/kitchen"
)

const maxBody = 4 << 10

type HTTPHandler struct {
	lobby    *Lobby
	validate *validator.Validate
}

type createRoomRequest struct {
	Name     string `json:"name" validate:"max=64"`
	Passcode string `json:"passcode" validate:"omitempty,min=4,max=72"`
	Policy   string `json:"policy" validate:"omitempty,oneof=FREE TURNS"`
}

type joinRequest struct {
	Seat     *int   `json:"seat" validate:"required,min=0,max=1"`
	Passcode string `json:"passcode" validate:"max=72"`
}

type joinResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seat      int    `json:"seat"`
	Host      bool   `json:"host"`
	Policy    string `json:"policy"`
	WSPath    string `json:"ws_path"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(l *Lobby) *HTTPHandler {
	return &HTTPHandler{lobby: l, validate: validator.New()}
}

func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/rooms", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{roomID}", h.handleGet)
		r.Post("/{roomID}/join", h.handleJoin)
	})
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": h.lobby.List()})
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	info, ok := h.lobby.Get(chi.URLParam(r, "roomID"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrRoomNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *HTTPHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !h.decode(w, r, &req) {
		return
	}
	policy := kitchen.TurnPolicyFree
	if req.Policy != "" {
		p, err := kitchen.ParseTurnPolicy(req.Policy)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		policy = p
	}
	info, err := h.lobby.Create(req.Name, req.Passcode, policy)
	switch {
	case errors.Is(err, ErrLobbyFull):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, auth.ErrInvalidPasscode):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "create room failed")
	default:
		writeJSON(w, http.StatusCreated, info)
	}
}

func (h *HTTPHandler) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !h.decode(w, r, &req) {
		return
	}
	roomID := chi.URLParam(r, "roomID")
	token, err := h.lobby.Join(roomID, *req.Seat, req.Passcode)
	switch {
	case errors.Is(err, ErrRoomNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, auth.ErrWrongPasscode):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case errors.Is(err, ErrSeatTaken):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	info, _ := h.lobby.Get(roomID)
	writeJSON(w, http.StatusOK, joinResponse{
		Token:     token,
		SessionID: roomID,
		Seat:      *req.Seat,
		Host:      *req.Seat == 0,
		Policy:    info.Policy,
		WSPath:    "/ws?token=" + token,
	})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
