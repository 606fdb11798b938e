package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apiarylab/hivemind/rules"
	"github.com/apiarylab/hivemind/store"
)

// queenAgeEvaluator flags hives whose queen has passed the age threshold.
// Productivity comparison against prior seasons needs year-over-year harvest
// data and is not evaluated yet.
type queenAgeEvaluator struct{}

func (e *queenAgeEvaluator) Type() string { return "queen_age_productivity" }

func (e *queenAgeEvaluator) Evaluate(ctx context.Context, hive *store.Hive, rule *rules.Rule, now time.Time) (*store.Insight, bool, error) {
	if hive.QueenIntroducedAt == nil {
		return nil, false, nil
	}

	minAgeYears, ok := rule.Condition.ParamFloat("min_queen_age_years")
	if !ok {
		minAgeYears = 2.0
	}

	queenAge := now.Sub(*hive.QueenIntroducedAt)
	queenAgeYears := queenAge.Hours() / (24 * 365)
	if queenAgeYears < minAgeYears {
		return nil, false, nil
	}

	message := rules.RenderTemplate(rule.MessageTemplate, map[string]string{
		"hive_name":    hive.Name,
		"queen_age":    FormatQueenAge(queenAge),
		"drop_percent": "N/A",
	})

	return newInsight(hive, rule, message, map[string]any{
		"queen_age_years":           queenAgeYears,
		"queen_introduced_at":       hive.QueenIntroducedAt.Format("2006-01-02"),
		"threshold_age_years":       minAgeYears,
		"productivity_drop_percent": "not_measured",
	}, now), true, nil
}

// treatmentDueEvaluator flags hives that have gone too long without a
// varroa treatment.
type treatmentDueEvaluator struct {
	events store.EventStore
}

func (e *treatmentDueEvaluator) Type() string { return "days_since_treatment" }

func (e *treatmentDueEvaluator) Evaluate(ctx context.Context, hive *store.Hive, rule *rules.Rule, now time.Time) (*store.Insight, bool, error) {
	maxDays, ok := rule.Condition.ParamInt("max_days")
	if !ok {
		maxDays = 90
	}

	last, err := e.events.LastTreatment(ctx, hive.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Never treated. A brand new hive is not overdue yet.
		daysSinceCreation := int(now.Sub(hive.CreatedAt).Hours() / 24)
		if daysSinceCreation < maxDays {
			return nil, false, nil
		}

		message := rules.RenderTemplate(rule.MessageTemplate, map[string]string{
			"hive_name": hive.Name,
			"days":      "never",
		})
		return newInsight(hive, rule, message, map[string]any{
			"days_since_treatment": "never",
			"last_treatment_date":  nil,
			"threshold_days":       maxDays,
		}, now), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("engine: last treatment: %w", err)
	}

	daysSince := int(now.Sub(last.TreatedAt).Hours() / 24)
	if daysSince <= maxDays {
		return nil, false, nil
	}

	message := rules.RenderTemplate(rule.MessageTemplate, map[string]string{
		"hive_name": hive.Name,
		"days":      fmt.Sprintf("%d", daysSince),
	})
	return newInsight(hive, rule, message, map[string]any{
		"days_since_treatment": daysSince,
		"last_treatment_date":  last.TreatedAt.Format("2006-01-02"),
		"last_treatment_type":  last.TreatmentType,
		"threshold_days":       maxDays,
	}, now), true, nil
}

// inspectionOverdueEvaluator flags hives that have not been inspected
// recently enough.
type inspectionOverdueEvaluator struct {
	events store.EventStore
}

func (e *inspectionOverdueEvaluator) Type() string { return "days_since_inspection" }

func (e *inspectionOverdueEvaluator) Evaluate(ctx context.Context, hive *store.Hive, rule *rules.Rule, now time.Time) (*store.Insight, bool, error) {
	maxDays, ok := rule.Condition.ParamInt("max_days")
	if !ok {
		maxDays = 14
	}

	last, err := e.events.LastInspection(ctx, hive.ID)
	if errors.Is(err, store.ErrNotFound) {
		daysSinceCreation := int(now.Sub(hive.CreatedAt).Hours() / 24)
		if daysSinceCreation < maxDays {
			return nil, false, nil
		}

		message := rules.RenderTemplate(rule.MessageTemplate, map[string]string{
			"hive_name": hive.Name,
			"days":      "never",
		})
		return newInsight(hive, rule, message, map[string]any{
			"days_since_inspection": "never",
			"last_inspection_date":  nil,
			"threshold_days":        maxDays,
		}, now), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("engine: last inspection: %w", err)
	}

	daysSince := int(now.Sub(last.InspectedAt).Hours() / 24)
	if daysSince <= maxDays {
		return nil, false, nil
	}

	message := rules.RenderTemplate(rule.MessageTemplate, map[string]string{
		"hive_name": hive.Name,
		"days":      fmt.Sprintf("%d", daysSince),
	})
	return newInsight(hive, rule, message, map[string]any{
		"days_since_inspection": daysSince,
		"last_inspection_date":  last.InspectedAt.Format("2006-01-02"),
		"threshold_days":        maxDays,
	}, now), true, nil
}

// detectionSpikeEvaluator flags sites where hornet detections in the recent
// window run well above the trailing daily average.
type detectionSpikeEvaluator struct {
	events store.EventStore
}

func (e *detectionSpikeEvaluator) Type() string { return "detection_spike" }

func (e *detectionSpikeEvaluator) Evaluate(ctx context.Context, hive *store.Hive, rule *rules.Rule, now time.Time) (*store.Insight, bool, error) {
	windowHours, ok := rule.Condition.ParamInt("window_hours")
	if !ok {
		windowHours = 24
	}
	thresholdMultiplier, ok := rule.Condition.ParamFloat("threshold_multiplier")
	if !ok {
		thresholdMultiplier = 2.0
	}

	stats, err := e.events.DetectionStats(ctx, hive.ID, windowHours)
	if err != nil {
		return nil, false, fmt.Errorf("engine: detection stats: %w", err)
	}

	// No baseline means no spike. A site with no history should not alarm
	// on its first detections.
	if stats.RecentCount == 0 || stats.AverageDaily == 0 {
		return nil, false, nil
	}

	expected := stats.AverageDaily * (float64(windowHours) / 24.0)
	if expected == 0 {
		return nil, false, nil
	}

	multiplier := float64(stats.RecentCount) / expected
	if multiplier < thresholdMultiplier {
		return nil, false, nil
	}

	message := rules.RenderTemplate(rule.MessageTemplate, map[string]string{
		"hive_name":  hive.Name,
		"count":      fmt.Sprintf("%d", stats.RecentCount),
		"multiplier": fmt.Sprintf("%.1f", multiplier),
	})
	return newInsight(hive, rule, message, map[string]any{
		"recent_count":         stats.RecentCount,
		"window_hours":         windowHours,
		"average_daily":        stats.AverageDaily,
		"multiplier":           multiplier,
		"threshold_multiplier": thresholdMultiplier,
	}, now), true, nil
}

func newInsight(hive *store.Hive, rule *rules.Rule, message string, dataPoints map[string]any, now time.Time) *store.Insight {
	hiveID := hive.ID
	hiveName := hive.Name
	return &store.Insight{
		HiveID:          &hiveID,
		HiveName:        &hiveName,
		RuleID:          rule.ID,
		Severity:        rule.Severity,
		Message:         message,
		SuggestedAction: rule.SuggestedAction,
		DataPoints:      dataPoints,
		CreatedAt:       now,
	}
}

// FormatQueenAge renders a duration as a queen age for display.
func FormatQueenAge(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days < 30 {
		return fmt.Sprintf("%d days", days)
	}
	if days < 365 {
		months := days / 30
		if months == 1 {
			return "1 month"
		}
		return fmt.Sprintf("%d months", months)
	}

	years := days / 365
	months := (days % 365) / 30
	if months == 0 {
		if years == 1 {
			return "1 year"
		}
		return fmt.Sprintf("%d years", years)
	}
	return fmt.Sprintf("%d years %d months", years, months)
}
