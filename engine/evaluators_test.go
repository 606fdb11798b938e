package engine

import (
	"context"
	"testing"
	"time"

	"github.com/apiarylab/hivemind/rules"
	"github.com/apiarylab/hivemind/store"
)

func testRule(id, condType, severity string, params map[string]any) *rules.Rule {
	return &rules.Rule{
		ID:              id,
		Condition:       rules.Condition{Type: condType, Params: params},
		Severity:        severity,
		MessageTemplate: "{{hive_name}}: {{days}}{{queen_age}}{{count}}",
		SuggestedAction: "do something",
	}
}

func testHive(id, name string, createdAt time.Time) store.Hive {
	return store.Hive{
		ID:        id,
		TenantID:  "tenant-1",
		SiteID:    "site-1",
		Name:      name,
		Status:    "active",
		CreatedAt: createdAt,
	}
}

func TestQueenAgeEvaluator(t *testing.T) {
	now := time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)
	eval := &queenAgeEvaluator{}
	rule := testRule("queen_aging", "queen_age_productivity", "warning", nil)

	t.Run("no queen date never fires", func(t *testing.T) {
		hive := testHive("h1", "Hive A", now.AddDate(-3, 0, 0))
		_, matched, err := eval.Evaluate(context.Background(), &hive, rule, now)
		if err != nil {
			t.Fatal(err)
		}
		if matched {
			t.Error("should not match without queen_introduced_at")
		}
	})

	t.Run("young queen does not fire", func(t *testing.T) {
		hive := testHive("h1", "Hive A", now.AddDate(-3, 0, 0))
		introduced := now.AddDate(-1, 0, 0)
		hive.QueenIntroducedAt = &introduced
		_, matched, err := eval.Evaluate(context.Background(), &hive, rule, now)
		if err != nil {
			t.Fatal(err)
		}
		if matched {
			t.Error("1-year queen should not match default 2-year threshold")
		}
	})

	t.Run("old queen fires with data points", func(t *testing.T) {
		hive := testHive("h1", "Hive A", now.AddDate(-4, 0, 0))
		introduced := now.AddDate(-3, 0, 0)
		hive.QueenIntroducedAt = &introduced
		insight, matched, err := eval.Evaluate(context.Background(), &hive, rule, now)
		if err != nil {
			t.Fatal(err)
		}
		if !matched {
			t.Fatal("3-year queen should match")
		}
		if insight.Severity != "warning" {
			t.Errorf("severity = %q, want warning", insight.Severity)
		}
		age, ok := insight.DataPoints["queen_age_years"].(float64)
		if !ok || age < 2.9 || age > 3.1 {
			t.Errorf("queen_age_years = %v, want ~3.0", insight.DataPoints["queen_age_years"])
		}
	})

	t.Run("custom threshold from params", func(t *testing.T) {
		custom := testRule("queen_aging", "queen_age_productivity", "warning",
			map[string]any{"min_queen_age_years": 5.0})
		hive := testHive("h1", "Hive A", now.AddDate(-4, 0, 0))
		introduced := now.AddDate(-3, 0, 0)
		hive.QueenIntroducedAt = &introduced
		_, matched, err := eval.Evaluate(context.Background(), &hive, custom, now)
		if err != nil {
			t.Fatal(err)
		}
		if matched {
			t.Error("3-year queen should not match 5-year threshold")
		}
	})
}

func TestTreatmentDueEvaluator(t *testing.T) {
	now := time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	eval := &treatmentDueEvaluator{events: mem}
	rule := testRule("treatment_due", "days_since_treatment", "action-needed", nil)

	t.Run("new hive with no treatments does not fire", func(t *testing.T) {
		hive := testHive("new-hive", "New Hive", now.AddDate(0, 0, -10))
		mem.AddHive(hive)
		_, matched, err := eval.Evaluate(context.Background(), &hive, rule, now)
		if err != nil {
			t.Fatal(err)
		}
		if matched {
			t.Error("10-day-old untreated hive should not match a 90-day threshold")
		}
	})

	t.Run("old hive never treated fires with days=never", func(t *testing.T) {
		hive := testHive("old-hive", "Old Hive", now.AddDate(-1, 0, 0))
		mem.AddHive(hive)
		insight, matched, err := eval.Evaluate(context.Background(), &hive, rule, now)
		if err != nil {
			t.Fatal(err)
		}
		if !matched {
			t.Fatal("year-old untreated hive should match")
		}
		if insight.DataPoints["days_since_treatment"] != "never" {
			t.Errorf("days_since_treatment = %v, want never", insight.DataPoints["days_since_treatment"])
		}
	})

	t.Run("recent treatment does not fire", func(t *testing.T) {
		hive := testHive("treated", "Treated", now.AddDate(-1, 0, 0))
		mem.AddHive(hive)
		mem.AddTreatment(store.Treatment{
			ID: "t1", HiveID: "treated", TreatmentType: "oxalic_acid",
			TreatedAt: now.AddDate(0, 0, -30),
		})
		_, matched, err := eval.Evaluate(context.Background(), &hive, rule, now)
		if err != nil {
			t.Fatal(err)
		}
		if matched {
			t.Error("30-day-old treatment should not match a 90-day threshold")
		}
	})

	t.Run("overdue treatment fires with day count", func(t *testing.T) {
		hive := testHive("overdue", "Overdue", now.AddDate(-1, 0, 0))
		mem.AddHive(hive)
		mem.AddTreatment(store.Treatment{
			ID: "t2", HiveID: "overdue", TreatmentType: "formic_acid",
			TreatedAt: now.AddDate(0, 0, -120),
		})
		insight, matched, err := eval.Evaluate(context.Background(), &hive, rule, now)
		if err != nil {
			t.Fatal(err)
		}
		if !matched {
			t.Fatal("120-day-old treatment should match")
		}
		if insight.DataPoints["days_since_treatment"] != 120 {
			t.Errorf("days_since_treatment = %v, want 120", insight.DataPoints["days_since_treatment"])
		}
		if insight.DataPoints["last_treatment_type"] != "formic_acid" {
			t.Errorf("last_treatment_type = %v, want formic_acid", insight.DataPoints["last_treatment_type"])
		}
	})
}

func TestInspectionOverdueEvaluator(t *testing.T) {
	now := time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	eval := &inspectionOverdueEvaluator{events: mem}
	rule := testRule("inspection_overdue", "days_since_inspection", "warning", nil)

	t.Run("boundary day does not fire", func(t *testing.T) {
		hive := testHive("h1", "Hive A", now.AddDate(-1, 0, 0))
		mem.AddHive(hive)
		mem.AddInspection(store.Inspection{
			ID: "i1", HiveID: "h1", InspectedAt: now.AddDate(0, 0, -14),
		})
		_, matched, err := eval.Evaluate(context.Background(), &hive, rule, now)
		if err != nil {
			t.Fatal(err)
		}
		if matched {
			t.Error("exactly 14 days should not exceed a 14-day threshold")
		}
	})

	t.Run("one day past boundary fires", func(t *testing.T) {
		hive := testHive("h2", "Hive B", now.AddDate(-1, 0, 0))
		mem.AddHive(hive)
		mem.AddInspection(store.Inspection{
			ID: "i2", HiveID: "h2", InspectedAt: now.AddDate(0, 0, -15),
		})
		insight, matched, err := eval.Evaluate(context.Background(), &hive, rule, now)
		if err != nil {
			t.Fatal(err)
		}
		if !matched {
			t.Fatal("15 days should exceed a 14-day threshold")
		}
		if insight.DataPoints["days_since_inspection"] != 15 {
			t.Errorf("days_since_inspection = %v, want 15", insight.DataPoints["days_since_inspection"])
		}
	})

	t.Run("new hive never inspected does not fire", func(t *testing.T) {
		hive := testHive("h3", "Hive C", now.AddDate(0, 0, -5))
		mem.AddHive(hive)
		_, matched, err := eval.Evaluate(context.Background(), &hive, rule, now)
		if err != nil {
			t.Fatal(err)
		}
		if matched {
			t.Error("5-day-old hive should not match a 14-day threshold")
		}
	})
}

func TestDetectionSpikeEvaluator(t *testing.T) {
	now := time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)
	rule := testRule("hornet_activity_spike", "detection_spike", "action-needed", nil)

	cases := []struct {
		name      string
		stats     store.DetectionStats
		wantMatch bool
	}{
		{"no recent detections", store.DetectionStats{RecentCount: 0, AverageDaily: 5}, false},
		{"no baseline", store.DetectionStats{RecentCount: 10, AverageDaily: 0}, false},
		{"below threshold", store.DetectionStats{RecentCount: 8, AverageDaily: 5}, false},
		{"at threshold", store.DetectionStats{RecentCount: 10, AverageDaily: 5}, true},
		{"clear spike", store.DetectionStats{RecentCount: 25, AverageDaily: 5}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mem := store.NewMemory()
			hive := testHive("h1", "Hive A", now.AddDate(-1, 0, 0))
			mem.AddHive(hive)
			mem.SetDetectionStats("h1", tc.stats)

			eval := &detectionSpikeEvaluator{events: mem}
			insight, matched, err := eval.Evaluate(context.Background(), &hive, rule, now)
			if err != nil {
				t.Fatal(err)
			}
			if matched != tc.wantMatch {
				t.Fatalf("matched = %v, want %v", matched, tc.wantMatch)
			}
			if matched && insight.DataPoints["recent_count"] != tc.stats.RecentCount {
				t.Errorf("recent_count = %v, want %d", insight.DataPoints["recent_count"], tc.stats.RecentCount)
			}
		})
	}
}

func TestFormatQueenAge(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{10, "10 days"},
		{45, "1 month"},
		{100, "3 months"},
		{365, "1 year"},
		{400, "1 years 1 months"},
		{800, "2 years 2 months"},
	}
	for _, tc := range cases {
		got := FormatQueenAge(time.Duration(tc.days) * 24 * time.Hour)
		if got != tc.want {
			t.Errorf("FormatQueenAge(%d days) = %q, want %q", tc.days, got, tc.want)
		}
	}
}
