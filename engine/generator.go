package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/apiarylab/hivemind/rules"
	"github.com/apiarylab/hivemind/store"
)

// AnalysisResult is the outcome of an analysis run or a dashboard read.
type AnalysisResult struct {
	Summary      string          `json:"summary"`
	LastAnalysis time.Time       `json:"last_analysis"`
	Insights     []store.Insight `json:"insights"`
	AllGood      bool            `json:"all_good"`
}

// HiveAnalysisResult is the outcome of analyzing a single hive.
type HiveAnalysisResult struct {
	HiveID           string          `json:"hive_id"`
	HiveName         string          `json:"hive_name"`
	HealthAssessment string          `json:"health_assessment"`
	Insights         []store.Insight `json:"insights"`
	Recommendations  []string        `json:"recommendations"`
	LastAnalysis     time.Time       `json:"last_analysis"`
}

// Generator runs catalog rules over hives and persists the resulting
// insights.
type Generator struct {
	catalog  *rules.Catalog
	registry *Registry
	insights store.InsightStore
	hives    store.HiveStore
	logger   *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(catalog *rules.Catalog, registry *Registry, insights store.InsightStore, hives store.HiveStore, logger *slog.Logger) *Generator {
	return &Generator{
		catalog:  catalog,
		registry: registry,
		insights: insights,
		hives:    hives,
		logger:   logger,
	}
}

// AnalyzeTenant evaluates every rule against every hive of a tenant and
// stores the matches. A hive that fails to analyze is skipped; the rest of
// the run continues.
func (g *Generator) AnalyzeTenant(ctx context.Context, tenantID string) (*AnalysisResult, error) {
	now := time.Now()

	hives, err := g.hives.ListHives(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("engine: list hives: %w", err)
	}

	var all []store.Insight
	for i := range hives {
		insights := g.analyzeHive(ctx, &hives[i], now)
		all = append(all, insights...)
	}

	all = g.storeInsights(ctx, tenantID, all)

	result := &AnalysisResult{
		LastAnalysis: now,
		Insights:     all,
		AllGood:      len(all) == 0,
	}
	if result.AllGood {
		result.Summary = "All looks good. No actions needed."
	} else {
		result.Summary = summarize(len(hives), all)
	}

	g.logger.Info("tenant analysis complete",
		"tenant_id", tenantID,
		"hive_count", len(hives),
		"insight_count", len(all),
		"all_good", result.AllGood,
	)
	return result, nil
}

// AnalyzeHive evaluates every rule against one hive and stores the matches.
func (g *Generator) AnalyzeHive(ctx context.Context, tenantID, hiveID string) (*HiveAnalysisResult, error) {
	now := time.Now()

	hive, err := g.hives.GetHive(ctx, tenantID, hiveID)
	if err != nil {
		return nil, fmt.Errorf("engine: get hive: %w", err)
	}

	insights := g.analyzeHive(ctx, hive, now)
	insights = g.storeInsights(ctx, tenantID, insights)

	result := &HiveAnalysisResult{
		HiveID:           hive.ID,
		HiveName:         hive.Name,
		HealthAssessment: assessHealth(insights),
		Insights:         insights,
		Recommendations:  recommend(insights),
		LastAnalysis:     now,
	}

	g.logger.Info("hive analysis complete",
		"tenant_id", tenantID,
		"hive_id", hiveID,
		"hive_name", hive.Name,
		"insight_count", len(insights),
		"health", result.HealthAssessment,
	)
	return result, nil
}

// Dashboard returns the current active insights for a tenant without
// running new analysis.
func (g *Generator) Dashboard(ctx context.Context, tenantID string) (*AnalysisResult, error) {
	insights, err := g.insights.ListActiveInsights(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("engine: list active insights: %w", err)
	}

	hives, err := g.hives.ListHives(ctx, tenantID)
	if err != nil {
		g.logger.Warn("hive count unavailable for summary", "tenant_id", tenantID, "error", err)
	}

	result := &AnalysisResult{
		LastAnalysis: time.Now(),
		Insights:     insights,
		AllGood:      len(insights) == 0,
	}
	if result.AllGood {
		switch len(hives) {
		case 0:
			result.Summary = "No hives configured yet. Add your first hive to get started!"
		case 1:
			result.Summary = "All quiet at your apiary. Your hive is doing well."
		default:
			result.Summary = fmt.Sprintf("All quiet at your apiary. Your %d hives are doing well.", len(hives))
		}
	} else {
		result.Summary = summarize(len(hives), insights)
	}
	return result, nil
}

func (g *Generator) analyzeHive(ctx context.Context, hive *store.Hive, now time.Time) []store.Insight {
	var insights []store.Insight
	for _, rule := range g.catalog.Rules() {
		insight, matched, err := g.registry.Evaluate(ctx, hive, &rule, now)
		if err != nil {
			g.logger.Warn("rule evaluation failed",
				"rule_id", rule.ID,
				"hive_id", hive.ID,
				"error", err,
			)
			continue
		}
		if !matched || insight == nil {
			continue
		}
		if !g.catalog.GuardAllows(rule.ID, hiveFacts(hive, now), insight.DataPoints) {
			continue
		}
		insights = append(insights, *insight)
	}
	return insights
}

// storeInsights persists each insight, keeping the run going when a single
// write fails. Stored copies pick up their generated id and timestamp.
func (g *Generator) storeInsights(ctx context.Context, tenantID string, insights []store.Insight) []store.Insight {
	for i := range insights {
		stored, err := g.insights.CreateInsight(ctx, tenantID, &store.CreateInsightInput{
			HiveID:          insights[i].HiveID,
			RuleID:          insights[i].RuleID,
			Severity:        insights[i].Severity,
			Message:         insights[i].Message,
			SuggestedAction: insights[i].SuggestedAction,
			DataPoints:      insights[i].DataPoints,
		})
		if err != nil {
			g.logger.Warn("insight store failed", "rule_id", insights[i].RuleID, "error", err)
			continue
		}
		insights[i].ID = stored.ID
		insights[i].CreatedAt = stored.CreatedAt
	}
	return insights
}

// hiveFacts exposes hive state to rule guards.
func hiveFacts(hive *store.Hive, now time.Time) map[string]any {
	facts := map[string]any{
		"id":           hive.ID,
		"name":         hive.Name,
		"status":       hive.Status,
		"brood_boxes":  hive.BroodBoxes,
		"honey_supers": hive.HoneySupers,
		"age_days":     int(now.Sub(hive.CreatedAt).Hours() / 24),
	}
	if hive.QueenSource != nil {
		facts["queen_source"] = *hive.QueenSource
	}
	if hive.QueenIntroducedAt != nil {
		facts["queen_introduced_at"] = hive.QueenIntroducedAt.Format("2006-01-02")
	}
	return facts
}

func summarize(hiveCount int, insights []store.Insight) string {
	if len(insights) == 0 {
		if hiveCount == 1 {
			return "All quiet at your apiary. Your hive is doing well."
		}
		return fmt.Sprintf("All quiet at your apiary. Your %d hives are doing well.", hiveCount)
	}

	actionNeeded, warnings, info := 0, 0, 0
	for _, i := range insights {
		switch i.Severity {
		case rules.SeverityActionNeeded:
			actionNeeded++
		case rules.SeverityWarning:
			warnings++
		case rules.SeverityInfo:
			info++
		}
	}

	var parts []string
	if actionNeeded > 0 {
		parts = append(parts, fmt.Sprintf("%d action needed", actionNeeded))
	}
	if warnings > 0 {
		part := fmt.Sprintf("%d warning", warnings)
		if warnings > 1 {
			part += "s"
		}
		parts = append(parts, part)
	}
	if info > 0 {
		parts = append(parts, fmt.Sprintf("%d info", info))
	}
	return fmt.Sprintf("Found %d insight(s): %s", len(insights), strings.Join(parts, ", "))
}

// recommend lists suggested actions ordered by severity, most urgent first.
func recommend(insights []store.Insight) []string {
	recommendations := make([]string, 0, len(insights))
	for _, severity := range []string{rules.SeverityActionNeeded, rules.SeverityWarning, rules.SeverityInfo} {
		for _, i := range insights {
			if i.Severity == severity && i.SuggestedAction != "" {
				recommendations = append(recommendations, i.SuggestedAction)
			}
		}
	}
	return recommendations
}

func assessHealth(insights []store.Insight) string {
	if len(insights) == 0 {
		return "Excellent - No issues detected"
	}

	hasActionNeeded, hasWarning := false, false
	for _, i := range insights {
		switch i.Severity {
		case rules.SeverityActionNeeded:
			hasActionNeeded = true
		case rules.SeverityWarning:
			hasWarning = true
		}
	}
	if hasActionNeeded {
		return "Needs Attention - Action required"
	}
	if hasWarning {
		return "Fair - Some concerns to address"
	}
	return "Good - Minor items to note"
}
