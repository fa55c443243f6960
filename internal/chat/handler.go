package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.svc.HandleMessage(r.Context(), req)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Chat failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resp)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userID := r.URL.Query().Get("user_id")

	history, err := h.svc.History(r.Context(), userID, sessionID)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "History lookup failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []MessageLog{}
	}

	writeJSON(w, map[string]interface{}{
		"session_id": sessionID,
		"messages":   history,
	})
}

func (h *Handler) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	closed := h.svc.CloseSession(sessionID)

	writeJSON(w, map[string]interface{}{
		"session_id": sessionID,
		"closed":     closed,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/chat", h.HandleChat)
	r.Get("/history/{sessionID}", h.HandleHistory)
	r.Post("/session/{sessionID}/close", h.HandleCloseSession)
}
