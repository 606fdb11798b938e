package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/apiarylab/hivemind/store"
)

func addAPITask(mem *store.Memory, id, tenantID, hiveID, status, autoEffects string) {
	templateName := "Add honey super"
	task := store.Task{
		ID:           id,
		TenantID:     tenantID,
		HiveID:       hiveID,
		TemplateName: &templateName,
		Status:       status,
	}
	if autoEffects != "" {
		task.AutoEffects = json.RawMessage(autoEffects)
	}
	mem.AddTask(task)
}

func TestCompleteTask(t *testing.T) {
	ts := newTestServer(t)
	addAPIHive(ts.mem, "hive-1", "tenant-1", time.Now())
	addAPITask(ts.mem, "task-1", "tenant-1", "hive-1", "pending", `{
		"updates": [
			{"target": "hive.honey_supers", "action": "increment"}
		]
	}`)

	rec := ts.request(http.MethodPost, "/api/v1/tasks/task-1/complete", "tenant-1", `{"completion_data": {"notes": "done"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["status"] != "completed" {
		t.Errorf("status = %v", data["status"])
	}
	applied, ok := data["applied_changes"].(map[string]any)
	if !ok {
		t.Fatalf("applied_changes = %T", data["applied_changes"])
	}
	updates, ok := applied["updates"].(map[string]any)
	if !ok || updates["honey_supers"] == nil {
		t.Errorf("updates = %v", applied["updates"])
	}

	hive, _ := ts.mem.GetHive(context.Background(), "tenant-1", "hive-1")
	if hive.HoneySupers != 1 {
		t.Errorf("honey_supers = %d, want 1", hive.HoneySupers)
	}

	task, _ := ts.mem.GetTask(context.Background(), "tenant-1", "task-1")
	if task.Status != "completed" {
		t.Errorf("task status = %q", task.Status)
	}

	entries := ts.mem.ActivityEntries()
	if len(entries) != 1 || entries[0].Type != "task_completion" {
		t.Errorf("activity entries = %+v", entries)
	}
}

func TestCompleteTaskWithoutEffects(t *testing.T) {
	ts := newTestServer(t)
	addAPIHive(ts.mem, "hive-1", "tenant-1", time.Now())
	addAPITask(ts.mem, "task-1", "tenant-1", "hive-1", "pending", "")

	// No body at all is a valid completion.
	rec := ts.request(http.MethodPost, "/api/v1/tasks/task-1/complete", "tenant-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["status"] != "completed" {
		t.Errorf("status = %v", data["status"])
	}
	if _, present := data["applied_changes"]; present {
		t.Errorf("applied_changes should be omitted, got %v", data["applied_changes"])
	}
}

func TestCompleteTaskAlreadyCompleted(t *testing.T) {
	ts := newTestServer(t)
	addAPIHive(ts.mem, "hive-1", "tenant-1", time.Now())
	addAPITask(ts.mem, "task-1", "tenant-1", "hive-1", "completed", "")

	rec := ts.request(http.MethodPost, "/api/v1/tasks/task-1/complete", "tenant-1", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if errorMessage(t, rec) != "Task is already completed" {
		t.Errorf("error = %q", errorMessage(t, rec))
	}
}

func TestCompleteTaskNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(http.MethodPost, "/api/v1/tasks/missing/complete", "tenant-1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCompleteTaskTenantMismatch(t *testing.T) {
	ts := newTestServer(t)
	addAPIHive(ts.mem, "hive-1", "tenant-1", time.Now())
	addAPITask(ts.mem, "task-1", "tenant-1", "hive-1", "pending", "")

	rec := ts.request(http.MethodPost, "/api/v1/tasks/task-1/complete", "tenant-2", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for a foreign task", rec.Code)
	}

	task, _ := ts.mem.GetTask(context.Background(), "tenant-1", "task-1")
	if task.Status != "pending" {
		t.Errorf("task status = %q, foreign tenant must not complete it", task.Status)
	}
}

func TestCompleteTaskBadBody(t *testing.T) {
	ts := newTestServer(t)
	addAPIHive(ts.mem, "hive-1", "tenant-1", time.Now())
	addAPITask(ts.mem, "task-1", "tenant-1", "hive-1", "pending", "")

	rec := ts.request(http.MethodPost, "/api/v1/tasks/task-1/complete", "tenant-1", "not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if errorMessage(t, rec) != "Invalid request body" {
		t.Errorf("error = %q", errorMessage(t, rec))
	}
}
