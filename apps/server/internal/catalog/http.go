// Package catalog serves the card catalog and its art to clients.
package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cookduel/art"
	"cookduel/card"
)

type HTTPHandler struct {
	art *art.Service
}

type cardsResponse struct {
	Ingredients card.List `json:"ingredients"`
	Wilds       card.List `json:"wilds"`
	Orders      card.List `json:"orders"`
}

type artResponse struct {
	TemplateID string `json:"template_id"`
	URL        string `json:"url"`
	Cached     bool   `json:"cached"`
}

func NewHTTPHandler(artService *art.Service) *HTTPHandler {
	return &HTTPHandler{art: artService}
}

func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cards", func(r chi.Router) {
		r.Get("/", h.handleCards)
		r.Get("/{templateID}", h.handleCard)
		r.Get("/{templateID}/art", h.handleArt)
	})
}

func (h *HTTPHandler) handleCards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cardsResponse{
		Ingredients: card.Ingredients(),
		Wilds:       card.Wilds(),
		Orders:      card.Orders(),
	})
}

func (h *HTTPHandler) handleCard(w http.ResponseWriter, r *http.Request) {
	c, ok := card.Lookup(chi.URLParam(r, "templateID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown card"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleArt answers from the cache when it can; otherwise it waits for the generator
// (bounded by the art service timeout) and falls back to a placeholder.
// ?redirect=1 answers with a 302 to the image instead of JSON.
func (h *HTTPHandler) handleArt(w http.ResponseWriter, r *http.Request) {
	tpl := chi.URLParam(r, "templateID")
	c, ok := card.Lookup(tpl)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown card"})
		return
	}
	u, cached := h.art.URL(tpl)
	if !cached {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		u = h.art.CardArt(ctx, c)
	}
	if r.URL.Query().Get("redirect") != "" {
		http.Redirect(w, r, u, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, artResponse{TemplateID: tpl, URL: u, Cached: cached})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
