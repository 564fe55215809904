// Package api provides HTTP API handlers for the winkmouse click history.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/winkmouse/internal/store"
)

// Limits for list endpoints.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// HistoryHandler serves recorded sessions and clicks.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a new HistoryHandler with the given store.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

// Register mounts the history routes on r.
func (h *HistoryHandler) Register(r chi.Router) {
	r.Get("/clicks", h.listClicks)
	r.Get("/sessions", h.listSessions)
	r.Get("/sessions/{id}", h.getSession)
}

// Request and response types

type errorResponse struct {
	Error string `json:"error"`
}

type listClicksResponse struct {
	Clicks []*store.Click `json:"clicks"`
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

type sessionResponse struct {
	*store.Session
	BySide  map[string]int `json:"bySide"`
	History []*store.Click `json:"history"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorResponse{Error: message})
}

// parseLimit reads the limit query parameter, clamped to MaxLimit.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > MaxLimit {
		n = MaxLimit
	}
	return n, nil
}

// listClicks handles GET /clicks and returns the newest clicks first.
func (h *HistoryHandler) listClicks(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	clicks, err := h.store.Clicks().List(limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list clicks")
		return
	}
	if clicks == nil {
		clicks = []*store.Click{}
	}

	WriteJSON(w, http.StatusOK, listClicksResponse{Clicks: clicks})
}

// listSessions handles GET /sessions and returns the newest sessions first.
func (h *HistoryHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}

	WriteJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

// getSession handles GET /sessions/{id} and returns the session with its clicks.
func (h *HistoryHandler) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Session not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	clicks, err := h.store.Clicks().ListBySession(id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list clicks")
		return
	}
	if clicks == nil {
		clicks = []*store.Click{}
	}

	bySide, err := h.store.Clicks().CountBySide(id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to count clicks")
		return
	}

	WriteJSON(w, http.StatusOK, sessionResponse{
		Session: sess,
		BySide:  bySide,
		History: clicks,
	})
}
