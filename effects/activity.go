package effects

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/apiarylab/hivemind/store"
)

// activityMetadata is the structured payload attached to a task-completion
// activity entry.
type activityMetadata struct {
	TaskID         string         `json:"task_id"`
	TaskName       string         `json:"task_name"`
	AutoApplied    bool           `json:"auto_applied"`
	Changes        []string       `json:"changes,omitempty"`
	CompletionData map[string]any `json:"completion_data,omitempty"`
	Notes          string         `json:"notes,omitempty"`
}

// LogCompletion records a task completion in the hive's activity history.
// Activity logging is best-effort; callers should not fail the completion
// on its error.
func (p *Processor) LogCompletion(ctx context.Context, tenantID string, task *store.Task, userID string, applied *AppliedChanges) error {
	taskName := "Task"
	if task.TemplateName != nil && *task.TemplateName != "" {
		taskName = *task.TemplateName
	} else if task.CustomTitle != nil && *task.CustomTitle != "" {
		taskName = *task.CustomTitle
	}

	content := fmt.Sprintf("Task completed: %s", taskName)

	autoApplied := false
	var changes []string
	if applied != nil && (len(applied.Updates) > 0 || len(applied.Creates) > 0) {
		autoApplied = true
		changes = formatChanges(applied)
		if len(changes) > 0 {
			var names []string
			for field := range applied.Updates {
				names = append(names, field)
			}
			for entity := range applied.Creates {
				names = append(names, entity)
			}
			content = fmt.Sprintf("Task completed: %s. Auto-updated: %s", taskName, strings.Join(names, ", "))
		}
	}

	metadata := activityMetadata{
		TaskID:      task.ID,
		TaskName:    taskName,
		AutoApplied: autoApplied,
		Changes:     changes,
	}
	if len(task.CompletionData) > 0 {
		var completionData map[string]any
		if err := json.Unmarshal(task.CompletionData, &completionData); err == nil {
			metadata.CompletionData = completionData
		}
	}
	if task.Description != nil && *task.Description != "" {
		metadata.Notes = *task.Description
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("effects: marshal activity metadata: %w", err)
	}

	_, err = p.activity.CreateActivityEntry(ctx, tenantID, &store.CreateActivityInput{
		HiveID:    task.HiveID,
		Type:      "task_completion",
		Content:   content,
		Metadata:  metadataJSON,
		CreatedBy: userID,
	})
	if err != nil {
		return fmt.Errorf("effects: create activity entry: %w", err)
	}

	p.logger.Info("task completion logged",
		"task_id", task.ID,
		"hive_id", task.HiveID,
		"auto_applied", autoApplied,
	)
	return nil
}

// formatChanges renders applied changes for the activity log, e.g.
// "brood_boxes -> 3" or "created harvest_id (abc)".
func formatChanges(changes *AppliedChanges) []string {
	result := make([]string, 0, len(changes.Updates)+len(changes.Creates))
	for field, update := range changes.Updates {
		result = append(result, fmt.Sprintf("%s -> %v", field, update.New))
	}
	for entity, id := range changes.Creates {
		result = append(result, fmt.Sprintf("created %s (%s)", entity, id))
	}
	return result
}
