package reflection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wolfman30/reflection-coach/internal/http/middleware"
	"github.com/wolfman30/reflection-coach/pkg/logging"
)

// CheckInRecorder persists a scheduled check-in for an owner.
type CheckInRecorder interface {
	RecordCheckIn(ctx context.Context, ownerID string, goal GoalDisplay, checkIn CheckIn) error
}

// Handler wires HTTP requests to the coach.
type Handler struct {
	coach    *Coach
	recorder CheckInRecorder
	timeout  time.Duration
	logger   *logging.Logger
}

// NewHandler creates a reflection handler. recorder may be nil; timeout <= 0
// leaves turns bounded only by the request context.
func NewHandler(coach *Coach, recorder CheckInRecorder, timeout time.Duration, logger *logging.Logger) *Handler {
	if coach == nil {
		panic("reflection: handler requires a coach")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{coach: coach, recorder: recorder, timeout: timeout, logger: logger}
}

// Respond handles POST /api/chat/respond.
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode turn request", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.coach.Respond(ctx, req)
	switch {
	case errors.Is(err, ErrInvalidRole):
		h.writeError(w, http.StatusBadRequest, "Invalid message role")
		return
	case errors.Is(err, ErrInvalidTurn):
		h.writeError(w, http.StatusBadRequest, "Current user message content is required")
		return
	case err != nil:
		h.writeError(w, http.StatusInternalServerError, "Failed to generate response")
		return
	}

	if ownerID, ok := middleware.OwnerIDFromContext(ctx); ok && h.recorder != nil && result.CheckInDetails.Scheduled() {
		if err := h.recorder.RecordCheckIn(ctx, ownerID, result.NextGoalDisplay, result.CheckInDetails); err != nil {
			h.logger.Warn("failed to record check-in", "owner_id", ownerID, "error", err)
		}
	}

	h.writeJSON(w, http.StatusOK, result)
}

type textRequest struct {
	Message     string      `json:"message"`
	ChatHistory []Message   `json:"chatHistory"`
	Options     CallOptions `json:"options"`
}

// Text handles POST /api/chat/text.
func (h *Handler) Text(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode text request", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.coach.Complete(r.Context(), req.Message, req.ChatHistory, req.Options)
	switch {
	case errors.Is(err, ErrInvalidTurn):
		h.writeError(w, http.StatusBadRequest, "Message is required")
		return
	case err != nil:
		h.logger.Error("text passthrough failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to generate response")
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
