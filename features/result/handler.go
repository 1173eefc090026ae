package result

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pagebrief/backend/internal/middleware"
	"pagebrief/backend/internal/poll"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get reports a job's state: 200 with COMPLETED payload or FAILED reason once
// a terminal artifact exists, 202 PENDING otherwise. Transient store errors
// also answer 202 so the client keeps polling.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")
	if jobID == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Missing 'jobId' in path parameters", http.StatusBadRequest)
		return
	}
	resultType := r.URL.Query().Get("type")
	if resultType == "" {
		resultType = "vision"
	}

	outcome, err := h.service.Check(r.Context(), resultType, jobID)
	if err != nil {
		if errors.Is(err, ErrUnknownType) {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		slog.WarnContext(r.Context(), "result check failed, reporting pending", "job_id", jobID, "error", err)
		h.writeJSON(w, http.StatusAccepted, map[string]string{
			"status": string(poll.StatusPending),
			"detail": "Error checking result, retry later",
		})
		return
	}

	switch outcome.Status {
	case poll.StatusCompleted:
		h.writeJSON(w, http.StatusOK, map[string]string{
			"status": string(poll.StatusCompleted),
			"result": outcome.Payload,
		})
	case poll.StatusFailed:
		h.writeJSON(w, http.StatusOK, map[string]string{
			"status": string(poll.StatusFailed),
			"error":  outcome.Reason,
		})
	default:
		h.writeJSON(w, http.StatusAccepted, map[string]string{
			"status": string(poll.StatusPending),
			"detail": "Result not yet available.",
		})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
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
