// Package api provides HTTP handlers for the chat assistant API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/saifsoomro/gemini-chat-assistant/internal/chat"
	"github.com/saifsoomro/gemini-chat-assistant/internal/identity"
)

// Handler serves the JSON API next to the chat socket.
type Handler struct {
	assistant *chat.Assistant
	sm        *chat.SessionManager
}

// NewHandler creates a new Handler.
func NewHandler(assistant *chat.Assistant, sm *chat.SessionManager) *Handler {
	return &Handler{
		assistant: assistant,
		sm:        sm,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status         string `json:"status"`
	Model          string `json:"model"`
	ActiveSessions int    `json:"active_sessions"`
}

// AssistantResponse is returned by GET /api/assistant.
type AssistantResponse struct {
	Name    string `json:"name"`
	Model   string `json:"model"`
	Welcome string `json:"welcome"`
}

// SessionResponse is returned by GET /api/session.
type SessionResponse struct {
	Username  string `json:"username"`
	TabID     string `json:"tab_id"`
	Active    bool   `json:"active"`
	SessionID string `json:"session_id,omitempty"`
}

// HandleHealth reports liveness and the number of open chat sessions.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		Model:          h.assistant.ModelName(),
		ActiveSessions: h.sm.Count(),
	})
}

// HandleAssistant describes the assistant for the UI header.
func (h *Handler) HandleAssistant(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, AssistantResponse{
		Name:    chat.AssistantName,
		Model:   h.assistant.ModelName(),
		Welcome: chat.WelcomeMessage,
	})
}

// HandleSession reports the caller's anonymous name and whether its tab has a
// live chat session.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tabID := identity.SessionIDFromContext(ctx)
	resp := SessionResponse{
		Username: identity.UsernameFromContext(ctx),
		TabID:    tabID,
	}
	if sess := h.sm.GetActive(identity.UserIDFromContext(ctx), tabID); sess != nil {
		resp.Active = true
		resp.SessionID = sess.ID
	}
	JSON(w, http.StatusOK, resp)
}

// RegisterRoutes registers API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)
		r.Get("/assistant", h.HandleAssistant)
		r.Get("/session", h.HandleSession)
	})
}
