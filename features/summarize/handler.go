package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pagebrief/backend/internal/middleware"
	"pagebrief/backend/internal/resolve"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL                string `json:"url"`
		Title              string `json:"title"`
		Content            string `json:"content"`
		Enhance            bool   `json:"enhance"`
		RequireEnhancement bool   `json:"require_enhancement"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" && req.URL == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "No content provided", http.StatusBadRequest)
		return
	}

	summary, err := h.service.Summarize(r.Context(), Request{
		URL:                req.URL,
		Title:              req.Title,
		Content:            req.Content,
		Enhance:            req.Enhance,
		RequireEnhancement: req.RequireEnhancement,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNoContent):
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "No content provided", http.StatusBadRequest)
		case errors.Is(err, resolve.ErrEnhancementFailed):
			h.writeError(r.Context(), w, "ENHANCEMENT_FAILED", err.Error(), http.StatusBadGateway)
		default:
			slog.ErrorContext(r.Context(), "summarize failed", "error", err)
			h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query   string `json:"query"`
		Context string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Query == "" || req.Context == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Both 'query' and 'context' are required", http.StatusBadRequest)
		return
	}

	answer, err := h.service.Chat(r.Context(), req.Query, req.Context)
	if err != nil {
		slog.ErrorContext(r.Context(), "chat failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(answer); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
