package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/apiarylab/hivemind/engine"
	"github.com/apiarylab/hivemind/store"
)

// handleDashboard serves the cached active-insight summary for a tenant.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	tenantID := TenantID(r.Context())

	if payload, ok := s.cache.Get(r.Context(), tenantID); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
		return
	}

	result, err := s.generator.Dashboard(r.Context(), tenantID)
	if err != nil {
		s.logger.Error("dashboard failed", "tenant_id", tenantID, "error", err)
		respondError(w, "Failed to get dashboard analysis", http.StatusInternalServerError)
		return
	}
	if result.Insights == nil {
		result.Insights = []store.Insight{}
	}

	payload, err := json.Marshal(map[string]any{"data": result})
	if err != nil {
		respondError(w, "Failed to get dashboard analysis", http.StatusInternalServerError)
		return
	}
	s.cache.Set(r.Context(), tenantID, payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

type refreshData struct {
	Message       string    `json:"message"`
	InsightsFound int       `json:"insights_found"`
	AnalyzedAt    time.Time `json:"analyzed_at"`
}

// handleRefresh runs a fresh tenant-wide analysis.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	tenantID := TenantID(r.Context())

	result, err := s.generator.AnalyzeTenant(r.Context(), tenantID)
	if err != nil {
		s.logger.Error("refresh failed", "tenant_id", tenantID, "error", err)
		respondError(w, "Failed to refresh analysis", http.StatusInternalServerError)
		return
	}

	s.cache.Invalidate(r.Context(), tenantID)

	respondData(w, refreshData{
		Message:       result.Summary,
		InsightsFound: len(result.Insights),
		AnalyzedAt:    result.LastAnalysis,
	}, http.StatusOK)
}

// handleHiveAnalysis runs on-demand analysis for one hive.
func (s *Server) handleHiveAnalysis(w http.ResponseWriter, r *http.Request) {
	tenantID := TenantID(r.Context())
	hiveID := chi.URLParam(r, "id")
	if hiveID == "" {
		respondError(w, "Hive ID is required", http.StatusBadRequest)
		return
	}

	result, err := s.generator.AnalyzeHive(r.Context(), tenantID, hiveID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, "Hive not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("hive analysis failed", "tenant_id", tenantID, "hive_id", hiveID, "error", err)
		respondError(w, "Failed to analyze hive", http.StatusInternalServerError)
		return
	}

	s.cache.Invalidate(r.Context(), tenantID)

	if result.Insights == nil {
		result.Insights = []store.Insight{}
	}
	respondData(w, result, http.StatusOK)
}

type maintenanceData struct {
	Items             []engine.MaintenanceItem       `json:"items"`
	RecentlyCompleted []engine.RecentlyCompletedItem `json:"recently_completed"`
	TotalCount        int                            `json:"total_count"`
	AllCaughtUp       bool                           `json:"all_caught_up"`
}

// handleMaintenance serves the per-hive maintenance worklist.
func (s *Server) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	tenantID := TenantID(r.Context())
	siteID := r.URL.Query().Get("site_id")

	if siteID != "" {
		if _, err := uuid.Parse(siteID); err != nil {
			respondError(w, "Invalid site_id format: must be a valid UUID", http.StatusBadRequest)
			return
		}
	}

	items, err := s.generator.MaintenanceItems(r.Context(), tenantID, siteID)
	if err != nil {
		s.logger.Error("maintenance listing failed", "tenant_id", tenantID, "error", err)
		respondError(w, "Failed to get maintenance items", http.StatusInternalServerError)
		return
	}

	completed, err := s.generator.RecentlyCompleted(r.Context(), tenantID, siteID)
	if err != nil {
		// Completed history is decoration; serve the worklist without it.
		s.logger.Warn("recently completed listing failed", "tenant_id", tenantID, "error", err)
		completed = []engine.RecentlyCompletedItem{}
	}

	if items == nil {
		items = []engine.MaintenanceItem{}
	}
	if completed == nil {
		completed = []engine.RecentlyCompletedItem{}
	}

	respondData(w, maintenanceData{
		Items:             items,
		RecentlyCompleted: completed,
		TotalCount:        len(items),
		AllCaughtUp:       len(items) == 0,
	}, http.StatusOK)
}

// handleDismissInsight permanently dismisses an insight. An insight from
// another tenant reads as not found.
func (s *Server) handleDismissInsight(w http.ResponseWriter, r *http.Request) {
	tenantID := TenantID(r.Context())
	insightID := chi.URLParam(r, "id")
	if insightID == "" {
		respondError(w, "Insight ID is required", http.StatusBadRequest)
		return
	}

	insight, ok := s.requireTenantInsight(w, r, tenantID, insightID, "dismiss")
	if !ok {
		return
	}

	if err := s.insights.DismissInsight(r.Context(), insightID); err != nil {
		s.logger.Error("dismiss failed", "insight_id", insightID, "error", err)
		respondError(w, "Failed to dismiss insight", http.StatusInternalServerError)
		return
	}

	s.cache.Invalidate(r.Context(), tenantID)
	s.logger.Info("insight dismissed", "insight_id", insightID, "rule_id", insight.RuleID)

	respondData(w, map[string]string{
		"message": "Insight dismissed successfully",
		"id":      insightID,
	}, http.StatusOK)
}

type snoozeRequest struct {
	Days int `json:"days"`
}

// handleSnoozeInsight hides an insight for 1 to 90 days, default 7.
func (s *Server) handleSnoozeInsight(w http.ResponseWriter, r *http.Request) {
	tenantID := TenantID(r.Context())
	insightID := chi.URLParam(r, "id")
	if insightID == "" {
		respondError(w, "Insight ID is required", http.StatusBadRequest)
		return
	}

	days := 7
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed <= 0 || parsed > 90 {
			respondError(w, "Days must be between 1 and 90", http.StatusBadRequest)
			return
		}
		days = parsed
	} else if r.Body != nil && r.ContentLength > 0 {
		var req snoozeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Days > 0 {
			if req.Days > 90 {
				respondError(w, "Days must be between 1 and 90", http.StatusBadRequest)
				return
			}
			days = req.Days
		}
	}

	insight, ok := s.requireTenantInsight(w, r, tenantID, insightID, "snooze")
	if !ok {
		return
	}

	snoozedUntil := time.Now().AddDate(0, 0, days)
	if err := s.insights.SnoozeInsight(r.Context(), insightID, snoozedUntil); err != nil {
		s.logger.Error("snooze failed", "insight_id", insightID, "error", err)
		respondError(w, "Failed to snooze insight", http.StatusInternalServerError)
		return
	}

	s.cache.Invalidate(r.Context(), tenantID)
	s.logger.Info("insight snoozed",
		"insight_id", insightID,
		"rule_id", insight.RuleID,
		"days", days,
		"snoozed_until", snoozedUntil,
	)

	respondData(w, map[string]any{
		"message":       "Insight snoozed successfully",
		"id":            insightID,
		"snoozed_until": snoozedUntil.Format(time.RFC3339),
		"days":          days,
	}, http.StatusOK)
}

// requireTenantInsight loads an insight and verifies tenant ownership.
// A mismatch is reported as not found so ids cannot be probed across
// tenants.
func (s *Server) requireTenantInsight(w http.ResponseWriter, r *http.Request, tenantID, insightID, op string) (*store.Insight, bool) {
	insight, err := s.insights.GetInsight(r.Context(), insightID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, "Insight not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.logger.Error("insight lookup failed", "insight_id", insightID, "error", err)
		respondError(w, "Failed to get insight", http.StatusInternalServerError)
		return nil, false
	}
	if insight.TenantID != tenantID {
		s.logger.Warn("tenant mismatch on insight "+op,
			"insight_id", insightID,
			"insight_tenant", insight.TenantID,
			"request_tenant", tenantID,
		)
		respondError(w, "Insight not found", http.StatusNotFound)
		return nil, false
	}
	return insight, true
}
