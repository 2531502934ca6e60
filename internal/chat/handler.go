package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/wolfman30/reflection-coach/internal/http/middleware"
	"github.com/wolfman30/reflection-coach/internal/reflection"
	"github.com/wolfman30/reflection-coach/pkg/logging"
)

// Handler serves the persistence endpoints. Stores that are not configured
// answer 503.
type Handler struct {
	transcripts *TranscriptStore
	snapshots   *SnapshotStore
	checkIns    *CheckInStore
	logger      *logging.Logger
}

func NewHandler(transcripts *TranscriptStore, snapshots *SnapshotStore, checkIns *CheckInStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{transcripts: transcripts, snapshots: snapshots, checkIns: checkIns, logger: logger}
}

type storeHistoryRequest struct {
	ChatHistory []reflection.Message `json:"chatHistory"`
}

type setCollectedInformationRequest struct {
	CollectedInformation reflection.CollectedInfo `json:"collectedInformation"`
	NextGoalDisplay      reflection.GoalDisplay   `json:"nextGoalDisplay"`
	NextGoalTiming       string                   `json:"nextGoalTiming"`
}

// StoreHistory handles POST /api/chat/store-chat-history.
func (h *Handler) StoreHistory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	if h.transcripts == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Chat history storage is not configured")
		return
	}

	var req storeHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	for _, msg := range req.ChatHistory {
		if !reflection.ValidRole(msg.Role) {
			h.writeError(w, http.StatusBadRequest, "Invalid message role: "+msg.Role)
			return
		}
	}

	if err := h.transcripts.Save(r.Context(), ownerID, req.ChatHistory); err != nil {
		h.logger.Error("failed to store chat history", "owner_id", ownerID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to store chat history")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// History handles GET /api/chat/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	if h.transcripts == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Chat history storage is not configured")
		return
	}

	transcript, err := h.transcripts.Load(r.Context(), ownerID)
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeError(w, http.StatusNotFound, "No chat history found")
		return
	case err != nil:
		h.logger.Error("failed to load chat history", "owner_id", ownerID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to load chat history")
		return
	}
	h.writeJSON(w, http.StatusOK, storeHistoryRequest{ChatHistory: transcript})
}

// ClearHistory handles DELETE /api/chat/history.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	if h.transcripts == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Chat history storage is not configured")
		return
	}
	if err := h.transcripts.Clear(r.Context(), ownerID); err != nil {
		h.logger.Error("failed to clear chat history", "owner_id", ownerID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to clear chat history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCollectedInformation handles POST /api/chat/set-collected-information.
func (h *Handler) SetCollectedInformation(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	if h.snapshots == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Collected information storage is not configured")
		return
	}

	var req setCollectedInformationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.snapshots.Put(r.Context(), Snapshot{
		OwnerID:              ownerID,
		CollectedInformation: req.CollectedInformation,
		NextGoalDisplay:      req.NextGoalDisplay,
		NextGoalTiming:       req.NextGoalTiming,
	})
	if err != nil {
		h.logger.Error("failed to store collected information", "owner_id", ownerID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to store collected information")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// CollectedInformation handles GET /api/chat/collected-information.
func (h *Handler) CollectedInformation(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	if h.snapshots == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Collected information storage is not configured")
		return
	}

	snapshot, err := h.snapshots.Get(r.Context(), ownerID)
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeError(w, http.StatusNotFound, "No collected information found")
		return
	case err != nil:
		h.logger.Error("failed to load collected information", "owner_id", ownerID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to load collected information")
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

// CheckIns handles GET /api/chat/check-ins?limit=N.
func (h *Handler) CheckIns(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	if h.checkIns == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Check-in storage is not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			h.writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	records, err := h.checkIns.ListByOwner(r.Context(), ownerID, limit)
	if err != nil {
		h.logger.Error("failed to list check-ins", "owner_id", ownerID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list check-ins")
		return
	}
	if records == nil {
		records = []CheckInRecord{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"checkIns": records})
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "User not authenticated")
		return "", false
	}
	return ownerID, true
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
