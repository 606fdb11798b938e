package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/apiarylab/hivemind/effects"
	"github.com/apiarylab/hivemind/store"
)

type completeTaskRequest struct {
	CompletionData json.RawMessage `json:"completion_data,omitempty"`
}

type completeTaskData struct {
	ID             string                  `json:"id"`
	Status         string                  `json:"status"`
	AppliedChanges *effects.AppliedChanges `json:"applied_changes,omitempty"`
}

// handleCompleteTask completes a task and applies its template's
// auto-effects. Effect failures are recorded on the result, not surfaced
// as request errors.
func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	tenantID := TenantID(r.Context())
	userID := UserID(r.Context())
	taskID := chi.URLParam(r, "id")
	if taskID == "" {
		respondError(w, "Task ID is required", http.StatusBadRequest)
		return
	}

	var req completeTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	task, err := s.tasks.GetTask(r.Context(), tenantID, taskID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, "Task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("task lookup failed", "task_id", taskID, "error", err)
		respondError(w, "Failed to get task", http.StatusInternalServerError)
		return
	}
	if task.Status == "completed" {
		respondError(w, "Task is already completed", http.StatusBadRequest)
		return
	}

	task.CompletionData = req.CompletionData

	var applied *effects.AppliedChanges
	if len(task.AutoEffects) > 0 {
		completionData := effects.ParseCompletionData(req.CompletionData)
		applied = s.effects.Process(r.Context(), tenantID, task, completionData)
	}

	var appliedJSON json.RawMessage
	if applied != nil {
		appliedJSON = applied.JSON()
	}
	if err := s.tasks.CompleteTask(r.Context(), taskID, req.CompletionData, appliedJSON); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, "Task is already completed", http.StatusBadRequest)
			return
		}
		s.logger.Error("task completion failed", "task_id", taskID, "error", err)
		respondError(w, "Failed to complete task", http.StatusInternalServerError)
		return
	}

	s.logger.Info("task completed", "task_id", taskID, "completed_by", userID)

	if err := s.effects.LogCompletion(r.Context(), tenantID, task, userID, applied); err != nil {
		s.logger.Error("activity log failed, task still completed", "task_id", taskID, "error", err)
	}

	s.cache.Invalidate(r.Context(), tenantID)

	respondData(w, completeTaskData{
		ID:             taskID,
		Status:         "completed",
		AppliedChanges: applied,
	}, http.StatusOK)
}
