// Package speech exposes audio transcription: an asynchronous dispatch
// endpoint plus a synchronous variant that blocks on the result artifact.
package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pagebrief/backend/internal/dispatch"
	"pagebrief/backend/internal/middleware"
	"pagebrief/backend/internal/poll"
)

type Submitter interface {
	Submit(ctx context.Context, kind dispatch.Kind, params dispatch.Params) (string, error)
}

type Awaiter interface {
	AwaitDeadline(ctx context.Context, jobID string, check poll.CheckFunc, interval, ceiling time.Duration) poll.Outcome
}

type Handler struct {
	dispatcher Submitter
	poller     Awaiter
	check      poll.CheckFunc
	interval   time.Duration
	ceiling    time.Duration
}

func NewHandler(dispatcher Submitter, poller Awaiter, check poll.CheckFunc, interval, ceiling time.Duration) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		poller:     poller,
		check:      check,
		interval:   interval,
		ceiling:    ceiling,
	}
}

// Submit stages the audio and dispatches a transcription job; the caller
// polls the result endpoint for the transcript.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	audio, ok := h.decodeAudio(w, r)
	if !ok {
		return
	}

	jobID, err := h.dispatcher.Submit(r.Context(), dispatch.KindTranscription, dispatch.Params{Audio: audio})
	if err != nil {
		code := "DISPATCH_ERROR"
		if errors.Is(err, dispatch.ErrConfiguration) {
			code = "CONFIGURATION_ERROR"
		}
		slog.ErrorContext(r.Context(), "failed to submit transcription job", "error", err)
		h.writeError(r.Context(), w, code, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	resp := map[string]string{
		"message": "Transcription task submitted successfully",
		"job_id":  jobID,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// Transcribe is the blocking variant: dispatch, then poll at a fixed interval
// until the transcript or a failure artifact shows up, bounded by the
// wall-clock ceiling.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	audio, ok := h.decodeAudio(w, r)
	if !ok {
		return
	}

	jobID, err := h.dispatcher.Submit(r.Context(), dispatch.KindTranscription, dispatch.Params{Audio: audio})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to submit transcription job", "error", err)
		h.writeError(r.Context(), w, "DISPATCH_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	outcome := h.poller.AwaitDeadline(r.Context(), jobID, h.check, h.interval, h.ceiling)
	switch outcome.Status {
	case poll.StatusCompleted:
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"transcript": outcome.Payload}); err != nil {
			slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
		}
	case poll.StatusFailed:
		h.writeError(r.Context(), w, "PROCESSING_ERROR", "Transcription job failed: "+outcome.Reason, http.StatusInternalServerError)
	default:
		h.writeError(r.Context(), w, "TIMEOUT", "Transcription job timed out", http.StatusInternalServerError)
	}
}

func (h *Handler) decodeAudio(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	var req struct {
		AudioData string `json:"audio_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Invalid input format or audio data", http.StatusBadRequest)
		return nil, false
	}
	if req.AudioData == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Missing 'audio_data' (base64 encoded) in request body", http.StatusBadRequest)
		return nil, false
	}

	// MediaRecorder uploads sometimes arrive without padding.
	encoded := req.AudioData
	if missing := len(encoded) % 4; missing != 0 {
		encoded += strings.Repeat("=", 4-missing)
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Invalid base64 audio data: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return audio, true
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
