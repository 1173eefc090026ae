// Package vision exposes asynchronous image text detection: the handler
// validates and dispatches, the caller polls the result endpoint.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pagebrief/backend/internal/dispatch"
	"pagebrief/backend/internal/middleware"
)

type Submitter interface {
	Submit(ctx context.Context, kind dispatch.Kind, params dispatch.Params) (string, error)
}

type Handler struct {
	dispatcher Submitter
}

func NewHandler(dispatcher Submitter) *Handler {
	return &Handler{dispatcher: dispatcher}
}

func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageURL string `json:"image_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Invalid input format", http.StatusBadRequest)
		return
	}
	if req.ImageURL == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Missing 'image_url' in request body", http.StatusBadRequest)
		return
	}

	jobID, err := h.dispatcher.Submit(r.Context(), dispatch.KindImageText, dispatch.Params{URL: req.ImageURL})
	if err != nil {
		code := "DISPATCH_ERROR"
		if errors.Is(err, dispatch.ErrConfiguration) {
			code = "CONFIGURATION_ERROR"
		}
		slog.ErrorContext(r.Context(), "failed to submit vision job", "error", err)
		h.writeError(r.Context(), w, code, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	resp := map[string]string{
		"message": "Text detection task submitted successfully",
		"job_id":  jobID,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
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
