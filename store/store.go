// Package store defines the persistence contracts the analysis engine runs
// against, with PostgreSQL and in-memory implementations.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrFieldNotAllowed is returned when an auto-effect targets a hive field
// outside the updatable set.
var ErrFieldNotAllowed = errors.New("store: field not allowed for update")

// ErrBadFieldValue is returned when a value cannot be coerced to the
// target field's type.
var ErrBadFieldValue = errors.New("store: bad field value")

// SeverityWeightOf maps a severity label to its numeric weight for sorting.
// Unknown labels weigh zero.
func SeverityWeightOf(severity string) int {
	switch severity {
	case "action-needed":
		return 100
	case "warning":
		return 50
	case "info":
		return 10
	default:
		return 0
	}
}

// Hive is the snapshot of a hive the evaluators read. Hives are owned by the
// CRUD layer; the engine only ever reads them, except for the auto-effect
// field updates below.
type Hive struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenant_id,omitempty"`
	SiteID            string     `json:"site_id"`
	Name              string     `json:"name"`
	Status            string     `json:"status"`
	QueenIntroducedAt *time.Time `json:"queen_introduced_at,omitempty"`
	QueenSource       *string    `json:"queen_source,omitempty"`
	BroodBoxes        int        `json:"brood_boxes"`
	HoneySupers       int        `json:"honey_supers"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Treatment is the most recent treatment record an evaluator looks up.
type Treatment struct {
	ID            string    `json:"id"`
	HiveID        string    `json:"hive_id"`
	TreatmentType string    `json:"treatment_type"`
	TreatedAt     time.Time `json:"treated_at"`
}

// Inspection is the most recent inspection record an evaluator looks up.
type Inspection struct {
	ID          string    `json:"id"`
	HiveID      string    `json:"hive_id"`
	InspectedAt time.Time `json:"inspected_at"`
}

// DetectionStats summarizes hornet-detection activity for a hive's site.
type DetectionStats struct {
	RecentCount  int     `json:"recent_count"`
	AverageDaily float64 `json:"average_daily"`
}

// Insight is one persisted rule match for a tenant. HiveID is nullable:
// current rules are hive-scoped but tenant-scoped rule types are anticipated.
type Insight struct {
	ID              string         `json:"id"`
	TenantID        string         `json:"-"`
	HiveID          *string        `json:"hive_id,omitempty"`
	HiveName        *string        `json:"hive_name,omitempty"`
	RuleID          string         `json:"rule_id"`
	Severity        string         `json:"severity"`
	Message         string         `json:"message"`
	SuggestedAction string         `json:"suggested_action"`
	DataPoints      map[string]any `json:"data_points"`
	CreatedAt       time.Time      `json:"created_at"`
	DismissedAt     *time.Time     `json:"dismissed_at,omitempty"`
	SnoozedUntil    *time.Time     `json:"snoozed_until,omitempty"`
}

// Active reports whether the insight should surface at the given time:
// not dismissed, and any snooze already expired.
func (i *Insight) Active(now time.Time) bool {
	if i.DismissedAt != nil {
		return false
	}
	if i.SnoozedUntil != nil && !i.SnoozedUntil.Before(now) {
		return false
	}
	return true
}

// CreateInsightInput carries the fields for a new insight row.
type CreateInsightInput struct {
	HiveID          *string
	RuleID          string
	Severity        string
	Message         string
	SuggestedAction string
	DataPoints      map[string]any
}

// MaintenanceInsight is an active insight joined with hive and site names,
// as consumed by the maintenance aggregator.
type MaintenanceInsight struct {
	ID              string         `json:"id"`
	HiveID          string         `json:"hive_id"`
	HiveName        string         `json:"hive_name"`
	SiteID          string         `json:"site_id"`
	SiteName        string         `json:"site_name"`
	RuleID          string         `json:"rule_id"`
	Severity        string         `json:"severity"`
	Message         string         `json:"message"`
	SuggestedAction string         `json:"suggested_action"`
	DataPoints      map[string]any `json:"data_points"`
	CreatedAt       time.Time      `json:"created_at"`
}

// CompletedInsight is a recently dismissed insight shown alongside the
// maintenance worklist.
type CompletedInsight struct {
	HiveID      string    `json:"hive_id"`
	HiveName    string    `json:"hive_name"`
	Action      string    `json:"action"`
	CompletedAt time.Time `json:"completed_at"`
}

// Task is a scheduled task joined with its template's declarative effects.
type Task struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"-"`
	HiveID         string          `json:"hive_id"`
	TemplateName   *string         `json:"template_name,omitempty"`
	CustomTitle    *string         `json:"custom_title,omitempty"`
	Description    *string         `json:"description,omitempty"`
	Status         string          `json:"status"`
	AutoEffects    json.RawMessage `json:"auto_effects,omitempty"`
	CompletionData json.RawMessage `json:"completion_data,omitempty"`
}

// CreateActivityInput carries the fields for an activity-log entry. Entries
// are immutable once written.
type CreateActivityInput struct {
	HiveID    string
	Type      string
	Content   string
	Metadata  json.RawMessage
	CreatedBy string
}

// InsightStore is the persistence contract for the insight lifecycle.
type InsightStore interface {
	CreateInsight(ctx context.Context, tenantID string, input *CreateInsightInput) (*Insight, error)
	GetInsight(ctx context.Context, id string) (*Insight, error)
	ListActiveInsights(ctx context.Context, tenantID string) ([]Insight, error)
	ListMaintenanceInsights(ctx context.Context, tenantID, siteID string) ([]MaintenanceInsight, error)
	ListRecentlyCompleted(ctx context.Context, tenantID, siteID string, limit int) ([]CompletedInsight, error)
	DismissInsight(ctx context.Context, id string) error
	SnoozeInsight(ctx context.Context, id string, until time.Time) error
	DismissAllActiveInsights(ctx context.Context, tenantID string) (int64, error)
	DeleteOldInsights(ctx context.Context, tenantID string, daysOld int) (int64, error)
}

// HiveStore reads hive snapshots for evaluation.
type HiveStore interface {
	ListHives(ctx context.Context, tenantID string) ([]Hive, error)
	GetHive(ctx context.Context, tenantID, id string) (*Hive, error)
}

// EventStore reads the per-hive history the evaluators need. All lookups are
// read-only and idempotent so retries are always safe.
type EventStore interface {
	LastTreatment(ctx context.Context, hiveID string) (*Treatment, error)
	LastInspection(ctx context.Context, hiveID string) (*Inspection, error)
	DetectionStats(ctx context.Context, hiveID string, windowHours int) (*DetectionStats, error)
}

// HiveFieldWriter applies auto-effect updates to the allow-listed hive
// fields. Decrement clamps at zero.
type HiveFieldWriter interface {
	SetHiveField(ctx context.Context, hiveID, field string, value any) (old any, err error)
	IncrementHiveField(ctx context.Context, hiveID, field string, amount int) (old, updated int, err error)
	DecrementHiveField(ctx context.Context, hiveID, field string, amount int) (old, updated int, err error)
}

// RecordCreator creates the dependent records auto-effect creates produce.
// Each returns the new record's id.
type RecordCreator interface {
	CreateHarvest(ctx context.Context, tenantID, hiveID string, fields map[string]any) (string, error)
	CreateFeeding(ctx context.Context, tenantID, hiveID string, fields map[string]any) (string, error)
	CreateTreatment(ctx context.Context, tenantID, hiveID string, fields map[string]any) (string, error)
}

// TaskStore reads tasks with their template effects and records completion.
type TaskStore interface {
	GetTask(ctx context.Context, tenantID, id string) (*Task, error)
	CompleteTask(ctx context.Context, id string, completionData, appliedChanges json.RawMessage) error
}

// ActivityStore appends immutable activity-log entries.
type ActivityStore interface {
	CreateActivityEntry(ctx context.Context, tenantID string, input *CreateActivityInput) (string, error)
}
