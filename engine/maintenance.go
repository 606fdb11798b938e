package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/apiarylab/hivemind/rules"
	"github.com/apiarylab/hivemind/store"
)

// MaintenanceItem is one hive's worth of outstanding work on the
// maintenance worklist.
type MaintenanceItem struct {
	HiveID        string          `json:"hive_id"`
	HiveName      string          `json:"hive_name"`
	SiteID        string          `json:"site_id"`
	SiteName      string          `json:"site_name"`
	Priority      string          `json:"priority"`
	PriorityScore int             `json:"priority_score"`
	Summary       string          `json:"summary"`
	Insights      []store.Insight `json:"insights"`
	QuickActions  []QuickAction   `json:"quick_actions"`
}

// QuickAction is a shortcut offered next to a maintenance item.
type QuickAction struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Tab   string `json:"tab,omitempty"`
}

// RecentlyCompletedItem is a maintenance action finished in the last week.
type RecentlyCompletedItem struct {
	HiveID      string    `json:"hive_id"`
	HiveName    string    `json:"hive_name"`
	Action      string    `json:"action"`
	CompletedAt time.Time `json:"completed_at"`
}

// MaintenanceItems aggregates a tenant's active insights by hive and sorts
// the result by priority. An optional siteID narrows the list to one site.
func (g *Generator) MaintenanceItems(ctx context.Context, tenantID, siteID string) ([]MaintenanceItem, error) {
	maintenanceInsights, err := g.insights.ListMaintenanceInsights(ctx, tenantID, siteID)
	if err != nil {
		return nil, fmt.Errorf("engine: list maintenance insights: %w", err)
	}

	now := time.Now()
	byHive := make(map[string]*MaintenanceItem)
	for _, mi := range maintenanceInsights {
		item, ok := byHive[mi.HiveID]
		if !ok {
			item = &MaintenanceItem{
				HiveID:   mi.HiveID,
				HiveName: mi.HiveName,
				SiteID:   mi.SiteID,
				SiteName: mi.SiteName,
				Insights: make([]store.Insight, 0),
			}
			byHive[mi.HiveID] = item
		}

		hiveID, hiveName := mi.HiveID, mi.HiveName
		item.Insights = append(item.Insights, store.Insight{
			ID:              mi.ID,
			HiveID:          &hiveID,
			HiveName:        &hiveName,
			RuleID:          mi.RuleID,
			Severity:        mi.Severity,
			Message:         mi.Message,
			SuggestedAction: mi.SuggestedAction,
			DataPoints:      mi.DataPoints,
			CreatedAt:       mi.CreatedAt,
		})
	}

	items := make([]MaintenanceItem, 0, len(byHive))
	for _, item := range byHive {
		score(item, now)
		item.QuickActions = quickActions(item.HiveID, item.Insights)
		items = append(items, *item)
	}

	// Highest score first; equal scores order by hive id so the worklist
	// is stable between refreshes.
	sort.Slice(items, func(i, j int) bool {
		if items[i].PriorityScore != items[j].PriorityScore {
			return items[i].PriorityScore > items[j].PriorityScore
		}
		return items[i].HiveID < items[j].HiveID
	})
	return items, nil
}

// RecentlyCompleted returns the tenant's most recently dismissed insights.
func (g *Generator) RecentlyCompleted(ctx context.Context, tenantID, siteID string) ([]RecentlyCompletedItem, error) {
	completed, err := g.insights.ListRecentlyCompleted(ctx, tenantID, siteID, 10)
	if err != nil {
		return nil, fmt.Errorf("engine: list recently completed: %w", err)
	}

	result := make([]RecentlyCompletedItem, 0, len(completed))
	for _, c := range completed {
		result = append(result, RecentlyCompletedItem{
			HiveID:      c.HiveID,
			HiveName:    c.HiveName,
			Action:      c.Action,
			CompletedAt: c.CompletedAt,
		})
	}
	return result, nil
}

// score sets the item's priority score, label and summary from its
// insights. The score is the heaviest severity weight plus the age in days
// of the oldest insight, so neglected hives rise over time.
func score(item *MaintenanceItem, now time.Time) {
	var maxWeight int
	var oldest time.Time
	var primary *store.Insight

	for i := range item.Insights {
		ins := &item.Insights[i]
		weight := rules.SeverityWeight(ins.Severity)
		switch {
		case weight > maxWeight:
			maxWeight = weight
			primary = ins
		case weight == maxWeight && primary != nil:
			// Same severity: the older insight wins; equal ages fall back
			// to id order.
			if ins.CreatedAt.Before(primary.CreatedAt) ||
				(ins.CreatedAt.Equal(primary.CreatedAt) && ins.ID < primary.ID) {
				primary = ins
			}
		}
		if oldest.IsZero() || ins.CreatedAt.Before(oldest) {
			oldest = ins.CreatedAt
		}
	}

	item.PriorityScore = maxWeight + int(now.Sub(oldest).Hours()/24)
	item.Priority = priorityLabel(maxWeight)
	if primary != nil {
		item.Summary = primary.Message
	}
}

func priorityLabel(severityWeight int) string {
	switch severityWeight {
	case rules.WeightActionNeeded:
		return "Urgent"
	case rules.WeightWarning:
		return "Soon"
	default:
		return "Optional"
	}
}

// quickActions maps the rule ids present on a hive to shortcut buttons,
// once per action, always ending with a details link.
func quickActions(hiveID string, insights []store.Insight) []QuickAction {
	added := make(map[string]bool)
	var actions []QuickAction

	for _, ins := range insights {
		switch ins.RuleID {
		case "treatment_due":
			if !added["treatment"] {
				actions = append(actions, QuickAction{
					Label: "Log Treatment",
					URL:   "/hives/" + hiveID,
					Tab:   "treatments",
				})
				added["treatment"] = true
			}
		case "inspection_overdue":
			if !added["inspection"] {
				actions = append(actions, QuickAction{
					Label: "Log Inspection",
					URL:   "/hives/" + hiveID + "/inspections/new",
				})
				added["inspection"] = true
			}
		case "queen_aging":
			if !added["queen"] {
				actions = append(actions, QuickAction{
					Label: "View Queen Info",
					URL:   "/hives/" + hiveID,
				})
				added["queen"] = true
			}
		case "hornet_activity_spike":
			if !added["clips"] {
				actions = append(actions, QuickAction{
					Label: "View Clips",
					URL:   "/clips",
				})
				added["clips"] = true
			}
		}
	}

	actions = append(actions, QuickAction{
		Label: "View Details",
		URL:   "/hives/" + hiveID,
	})
	return actions
}
