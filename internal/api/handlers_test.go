package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/apiarylab/hivemind/effects"
	"github.com/apiarylab/hivemind/engine"
	"github.com/apiarylab/hivemind/rules"
	"github.com/apiarylab/hivemind/store"
)

const testCatalogYAML = `
rules:
  - id: treatment_due
    name: Treatment due
    condition:
      type: days_since_treatment
      params:
        max_days: 90
    severity: action-needed
    message_template: "{{hive_name}} has gone {{days}} days without varroa treatment"
    suggested_action: "Schedule a varroa treatment"
  - id: inspection_overdue
    name: Inspection overdue
    condition:
      type: days_since_inspection
      params:
        max_days: 14
    severity: warning
    message_template: "{{hive_name}} has not been inspected in {{days}} days"
    suggested_action: "Plan an inspection this week"
`

type testServer struct {
	srv   *Server
	mem   *store.Memory
	cache *store.MemoryCache
	mux   http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mem := store.NewMemory()
	registry := engine.NewRegistry(mem)
	catalog, err := rules.Parse([]byte(testCatalogYAML), registry.ConditionTypes())
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	generator := engine.NewGenerator(catalog, registry, mem, mem, logger)
	processor := effects.NewProcessor(mem, mem, mem, mem, logger)
	cache := store.NewMemoryCache(time.Minute)

	srv := NewServer(generator, processor, mem, mem, cache, nil, logger)
	return &testServer{srv: srv, mem: mem, cache: cache, mux: srv.Router()}
}

func (ts *testServer) request(method, path, tenantID, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return envelope.Data
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response %q: %v", rec.Body.String(), err)
	}
	return resp.Error
}

func addAPIHive(mem *store.Memory, id, tenantID string, createdAt time.Time) {
	mem.AddHive(store.Hive{
		ID:        id,
		TenantID:  tenantID,
		SiteID:    "c3a407f2-83a2-4dd8-93a4-5a4a6a10c2bb",
		Name:      "Hive " + id,
		Status:    "active",
		CreatedAt: createdAt,
	})
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.request(http.MethodGet, "/api/v1/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestMissingTenantRejected(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.request(http.MethodGet, "/api/v1/brain/dashboard", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if errorMessage(t, rec) != "Missing tenant" {
		t.Errorf("error = %q", errorMessage(t, rec))
	}
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(http.MethodGet, "/api/v1/brain/dashboard", "tenant-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["summary"] != "No hives configured yet. Add your first hive to get started!" {
		t.Errorf("summary = %v", data["summary"])
	}
	if data["all_good"] != true {
		t.Errorf("all_good = %v", data["all_good"])
	}
	if _, ok := data["insights"].([]any); !ok {
		t.Errorf("insights should serialize as an array, got %T", data["insights"])
	}
}

func TestDashboardServesCachedPayload(t *testing.T) {
	ts := newTestServer(t)

	first := ts.request(http.MethodGet, "/api/v1/brain/dashboard", "tenant-1", "")
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d", first.Code)
	}

	// The store changes, but the cached payload is served until something
	// invalidates it.
	addAPIHive(ts.mem, "hive-1", "tenant-1", time.Now())
	second := ts.request(http.MethodGet, "/api/v1/brain/dashboard", "tenant-1", "")
	if second.Body.String() != first.Body.String() {
		t.Error("expected the cached payload on the second read")
	}

	refresh := ts.request(http.MethodPost, "/api/v1/brain/refresh", "tenant-1", "")
	if refresh.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", refresh.Code)
	}

	third := ts.request(http.MethodGet, "/api/v1/brain/dashboard", "tenant-1", "")
	data := decodeData(t, third)
	if data["summary"] != "All quiet at your apiary. Your hive is doing well." {
		t.Errorf("summary = %v after invalidation", data["summary"])
	}
}

func TestRefresh(t *testing.T) {
	ts := newTestServer(t)
	addAPIHive(ts.mem, "hive-1", "tenant-1", time.Now().AddDate(0, 0, -120))

	rec := ts.request(http.MethodPost, "/api/v1/brain/refresh", "tenant-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["insights_found"] != float64(2) {
		t.Errorf("insights_found = %v, want 2", data["insights_found"])
	}
	if !strings.HasPrefix(data["message"].(string), "Found 2 insight(s)") {
		t.Errorf("message = %v", data["message"])
	}
}

func TestHiveAnalysis(t *testing.T) {
	ts := newTestServer(t)
	addAPIHive(ts.mem, "hive-1", "tenant-1", time.Now().AddDate(0, 0, -120))

	rec := ts.request(http.MethodGet, "/api/v1/brain/hives/hive-1", "tenant-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["health_assessment"] != "Needs Attention - Action required" {
		t.Errorf("health = %v", data["health_assessment"])
	}

	rec = ts.request(http.MethodGet, "/api/v1/brain/hives/no-such-hive", "tenant-1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	// A hive that exists under another tenant reads as not found.
	rec = ts.request(http.MethodGet, "/api/v1/brain/hives/hive-1", "tenant-2", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-tenant status = %d, want 404", rec.Code)
	}
}

func TestMaintenance(t *testing.T) {
	ts := newTestServer(t)
	addAPIHive(ts.mem, "hive-1", "tenant-1", time.Now().AddDate(0, 0, -120))
	hiveID := "hive-1"
	ts.mem.AddInsight(store.Insight{
		TenantID:        "tenant-1",
		HiveID:          &hiveID,
		RuleID:          "treatment_due",
		Severity:        rules.SeverityActionNeeded,
		Message:         "treatment overdue",
		SuggestedAction: "Schedule a varroa treatment",
	})

	rec := ts.request(http.MethodGet, "/api/v1/brain/maintenance", "tenant-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["total_count"] != float64(1) {
		t.Errorf("total_count = %v", data["total_count"])
	}
	if data["all_caught_up"] != false {
		t.Errorf("all_caught_up = %v", data["all_caught_up"])
	}
	if _, ok := data["recently_completed"].([]any); !ok {
		t.Errorf("recently_completed should serialize as an array, got %T", data["recently_completed"])
	}
}

func TestMaintenanceEmpty(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.request(http.MethodGet, "/api/v1/brain/maintenance", "tenant-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := decodeData(t, rec)
	if data["all_caught_up"] != true {
		t.Errorf("all_caught_up = %v", data["all_caught_up"])
	}
	if _, ok := data["items"].([]any); !ok {
		t.Errorf("items should serialize as an array, got %T", data["items"])
	}
}

func TestMaintenanceRejectsBadSiteID(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.request(http.MethodGet, "/api/v1/brain/maintenance?site_id=not-a-uuid", "tenant-1", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if errorMessage(t, rec) != "Invalid site_id format: must be a valid UUID" {
		t.Errorf("error = %q", errorMessage(t, rec))
	}
}

func TestDismissInsight(t *testing.T) {
	ts := newTestServer(t)
	hiveID := "hive-1"
	ts.mem.AddInsight(store.Insight{
		ID:       "insight-1",
		TenantID: "tenant-1",
		HiveID:   &hiveID,
		RuleID:   "treatment_due",
		Severity: rules.SeverityActionNeeded,
	})

	rec := ts.request(http.MethodPost, "/api/v1/brain/insights/insight-1/dismiss", "tenant-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["message"] != "Insight dismissed successfully" {
		t.Errorf("message = %v", data["message"])
	}

	insight, err := ts.mem.GetInsight(context.Background(), "insight-1")
	if err != nil {
		t.Fatalf("GetInsight: %v", err)
	}
	if insight.DismissedAt == nil {
		t.Error("insight not dismissed in the store")
	}
}

func TestDismissInsightTenantMismatch(t *testing.T) {
	ts := newTestServer(t)
	ts.mem.AddInsight(store.Insight{
		ID:       "insight-1",
		TenantID: "tenant-1",
		RuleID:   "treatment_due",
		Severity: rules.SeverityActionNeeded,
	})

	rec := ts.request(http.MethodPost, "/api/v1/brain/insights/insight-1/dismiss", "tenant-2", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for a foreign insight", rec.Code)
	}
	if errorMessage(t, rec) != "Insight not found" {
		t.Errorf("error = %q", errorMessage(t, rec))
	}

	insight, _ := ts.mem.GetInsight(context.Background(), "insight-1")
	if insight.DismissedAt != nil {
		t.Error("foreign tenant must not dismiss the insight")
	}
}

func TestSnoozeInsight(t *testing.T) {
	ts := newTestServer(t)
	ts.mem.AddInsight(store.Insight{
		ID:       "insight-1",
		TenantID: "tenant-1",
		RuleID:   "treatment_due",
		Severity: rules.SeverityActionNeeded,
	})

	t.Run("default seven days", func(t *testing.T) {
		rec := ts.request(http.MethodPost, "/api/v1/brain/insights/insight-1/snooze", "tenant-1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		data := decodeData(t, rec)
		if data["days"] != float64(7) {
			t.Errorf("days = %v, want 7", data["days"])
		}
	})

	t.Run("days from query", func(t *testing.T) {
		rec := ts.request(http.MethodPost, "/api/v1/brain/insights/insight-1/snooze?days=30", "tenant-1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		data := decodeData(t, rec)
		if data["days"] != float64(30) {
			t.Errorf("days = %v, want 30", data["days"])
		}
		insight, _ := ts.mem.GetInsight(context.Background(), "insight-1")
		if insight.SnoozedUntil == nil {
			t.Fatal("insight not snoozed in the store")
		}
		until := time.Now().AddDate(0, 0, 30)
		if diff := insight.SnoozedUntil.Sub(until); diff < -time.Minute || diff > time.Minute {
			t.Errorf("snoozed until %v, want about %v", insight.SnoozedUntil, until)
		}
	})

	t.Run("days from body", func(t *testing.T) {
		rec := ts.request(http.MethodPost, "/api/v1/brain/insights/insight-1/snooze", "tenant-1", `{"days": 14}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		data := decodeData(t, rec)
		if data["days"] != float64(14) {
			t.Errorf("days = %v, want 14", data["days"])
		}
	})

	t.Run("out of range", func(t *testing.T) {
		for _, q := range []string{"days=0", "days=91", "days=-3", "days=soon"} {
			rec := ts.request(http.MethodPost, "/api/v1/brain/insights/insight-1/snooze?"+q, "tenant-1", "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: status = %d, want 400", q, rec.Code)
				continue
			}
			if errorMessage(t, rec) != "Days must be between 1 and 90" {
				t.Errorf("%s: error = %q", q, errorMessage(t, rec))
			}
		}
	})

	t.Run("unknown insight", func(t *testing.T) {
		rec := ts.request(http.MethodPost, "/api/v1/brain/insights/missing/snooze", "tenant-1", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}
