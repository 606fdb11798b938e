package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Postgres implements the store contracts backed by PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres store around an open connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Open connects to the database and verifies the connection.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping database: %w", err)
	}
	return db, nil
}

// DB exposes the underlying pool for health checks.
func (p *Postgres) DB() *sql.DB {
	return p.db
}

// CreateInsight inserts a new insight row and returns it with generated fields.
func (p *Postgres) CreateInsight(ctx context.Context, tenantID string, input *CreateInsightInput) (*Insight, error) {
	dataPoints, err := json.Marshal(input.DataPoints)
	if err != nil {
		return nil, fmt.Errorf("store: marshal data_points: %w", err)
	}

	var insight Insight
	var rawPoints []byte
	err = p.db.QueryRowContext(ctx, `
		INSERT INTO insights (tenant_id, hive_id, rule_id, severity, message, suggested_action, data_points)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, tenant_id, hive_id, rule_id, severity, message, suggested_action, data_points, created_at, dismissed_at, snoozed_until
	`, tenantID, input.HiveID, input.RuleID, input.Severity, input.Message, input.SuggestedAction, dataPoints).Scan(
		&insight.ID, &insight.TenantID, &insight.HiveID, &insight.RuleID, &insight.Severity,
		&insight.Message, &insight.SuggestedAction, &rawPoints, &insight.CreatedAt,
		&insight.DismissedAt, &insight.SnoozedUntil,
	)
	if err != nil {
		return nil, fmt.Errorf("store: create insight: %w", err)
	}

	if err := json.Unmarshal(rawPoints, &insight.DataPoints); err != nil {
		insight.DataPoints = make(map[string]any)
	}
	return &insight, nil
}

// GetInsight retrieves an insight by id, including the hive name when the
// insight is hive-scoped.
func (p *Postgres) GetInsight(ctx context.Context, id string) (*Insight, error) {
	var insight Insight
	var rawPoints []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT i.id, i.tenant_id, i.hive_id, h.name, i.rule_id, i.severity, i.message, i.suggested_action,
		       i.data_points, i.created_at, i.dismissed_at, i.snoozed_until
		FROM insights i
		LEFT JOIN hives h ON h.id = i.hive_id
		WHERE i.id = $1
	`, id).Scan(
		&insight.ID, &insight.TenantID, &insight.HiveID, &insight.HiveName, &insight.RuleID,
		&insight.Severity, &insight.Message, &insight.SuggestedAction, &rawPoints,
		&insight.CreatedAt, &insight.DismissedAt, &insight.SnoozedUntil,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get insight: %w", err)
	}

	if err := json.Unmarshal(rawPoints, &insight.DataPoints); err != nil {
		insight.DataPoints = make(map[string]any)
	}
	return &insight, nil
}

// ListActiveInsights returns all non-dismissed, non-snoozed insights for a
// tenant, most severe first.
func (p *Postgres) ListActiveInsights(ctx context.Context, tenantID string) ([]Insight, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT i.id, i.tenant_id, i.hive_id, h.name, i.rule_id, i.severity, i.message, i.suggested_action,
		       i.data_points, i.created_at, i.dismissed_at, i.snoozed_until
		FROM insights i
		LEFT JOIN hives h ON h.id = i.hive_id
		WHERE i.tenant_id = $1
		  AND i.dismissed_at IS NULL
		  AND (i.snoozed_until IS NULL OR i.snoozed_until < $2)
		ORDER BY
		  CASE i.severity
		    WHEN 'action-needed' THEN 1
		    WHEN 'warning' THEN 2
		    WHEN 'info' THEN 3
		    ELSE 4
		  END,
		  i.created_at DESC,
		  i.id
	`, tenantID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("store: list active insights: %w", err)
	}
	defer rows.Close()

	return scanInsights(rows)
}

// ListMaintenanceInsights returns active insights joined with hive and site
// names, optionally filtered by site. Only hives still marked active are
// included; lost or sold hives no longer need maintenance.
func (p *Postgres) ListMaintenanceInsights(ctx context.Context, tenantID, siteID string) ([]MaintenanceInsight, error) {
	query := `
		SELECT i.id, i.hive_id, h.name, h.site_id, s.name,
		       i.rule_id, i.severity, i.message, i.suggested_action, i.data_points, i.created_at
		FROM insights i
		JOIN hives h ON h.id = i.hive_id
		JOIN sites s ON s.id = h.site_id
		WHERE i.tenant_id = $1
		  AND i.hive_id IS NOT NULL
		  AND i.dismissed_at IS NULL
		  AND (i.snoozed_until IS NULL OR i.snoozed_until < $2)
		  AND h.status = 'active'`
	args := []any{tenantID, time.Now()}

	if siteID != "" {
		query += ` AND h.site_id = $3`
		args = append(args, siteID)
	}
	query += ` ORDER BY i.created_at, i.id`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list maintenance insights: %w", err)
	}
	defer rows.Close()

	var insights []MaintenanceInsight
	for rows.Next() {
		var mi MaintenanceInsight
		var rawPoints []byte
		if err := rows.Scan(&mi.ID, &mi.HiveID, &mi.HiveName, &mi.SiteID, &mi.SiteName,
			&mi.RuleID, &mi.Severity, &mi.Message, &mi.SuggestedAction, &rawPoints, &mi.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan maintenance insight: %w", err)
		}
		if err := json.Unmarshal(rawPoints, &mi.DataPoints); err != nil {
			mi.DataPoints = make(map[string]any)
		}
		insights = append(insights, mi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate maintenance insights: %w", err)
	}
	return insights, nil
}

// ListRecentlyCompleted returns insights dismissed within the last 7 days.
func (p *Postgres) ListRecentlyCompleted(ctx context.Context, tenantID, siteID string, limit int) ([]CompletedInsight, error) {
	query := `
		SELECT h.id, h.name, i.suggested_action, i.dismissed_at
		FROM insights i
		JOIN hives h ON h.id = i.hive_id
		WHERE i.tenant_id = $1
		  AND i.hive_id IS NOT NULL
		  AND i.dismissed_at IS NOT NULL
		  AND i.dismissed_at > $2`
	args := []any{tenantID, time.Now().AddDate(0, 0, -7)}

	if siteID != "" {
		query += ` AND h.site_id = $3`
		args = append(args, siteID)
	}
	query += fmt.Sprintf(` ORDER BY i.dismissed_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list recently completed insights: %w", err)
	}
	defer rows.Close()

	var completed []CompletedInsight
	for rows.Next() {
		var c CompletedInsight
		if err := rows.Scan(&c.HiveID, &c.HiveName, &c.Action, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("store: scan completed insight: %w", err)
		}
		completed = append(completed, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate completed insights: %w", err)
	}
	return completed, nil
}

// DismissInsight marks an insight as dismissed. Dismissing an already
// dismissed insight is a no-op.
func (p *Postgres) DismissInsight(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx,
		`UPDATE insights SET dismissed_at = NOW() WHERE id = $1 AND dismissed_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("store: dismiss insight: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: dismiss insight rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := p.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM insights WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("store: check insight existence: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

// SnoozeInsight sets the snooze expiry for an insight.
func (p *Postgres) SnoozeInsight(ctx context.Context, id string, until time.Time) error {
	result, err := p.db.ExecContext(ctx,
		`UPDATE insights SET snoozed_until = $2 WHERE id = $1`, id, until)
	if err != nil {
		return fmt.Errorf("store: snooze insight: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: snooze insight rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DismissAllActiveInsights dismisses every active insight for a tenant.
// Used before a fresh analysis run when the operator wants a clean slate.
func (p *Postgres) DismissAllActiveInsights(ctx context.Context, tenantID string) (int64, error) {
	result, err := p.db.ExecContext(ctx,
		`UPDATE insights SET dismissed_at = NOW() WHERE tenant_id = $1 AND dismissed_at IS NULL`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("store: dismiss active insights: %w", err)
	}
	return result.RowsAffected()
}

// DeleteOldInsights removes dismissed insights older than daysOld days.
func (p *Postgres) DeleteOldInsights(ctx context.Context, tenantID string, daysOld int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -daysOld)
	result, err := p.db.ExecContext(ctx, `
		DELETE FROM insights
		WHERE tenant_id = $1 AND created_at < $2 AND dismissed_at IS NOT NULL
	`, tenantID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: delete old insights: %w", err)
	}
	return result.RowsAffected()
}

// ListHives returns all hives for a tenant.
func (p *Postgres) ListHives(ctx context.Context, tenantID string) ([]Hive, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, tenant_id, site_id, name, status, queen_introduced_at, queen_source,
		       brood_boxes, honey_supers, created_at
		FROM hives
		WHERE tenant_id = $1
		ORDER BY created_at
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("store: list hives: %w", err)
	}
	defer rows.Close()

	var hives []Hive
	for rows.Next() {
		var h Hive
		if err := rows.Scan(&h.ID, &h.TenantID, &h.SiteID, &h.Name, &h.Status,
			&h.QueenIntroducedAt, &h.QueenSource, &h.BroodBoxes, &h.HoneySupers, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan hive: %w", err)
		}
		hives = append(hives, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate hives: %w", err)
	}
	return hives, nil
}

// GetHive retrieves a hive by id, scoped to the tenant.
func (p *Postgres) GetHive(ctx context.Context, tenantID, id string) (*Hive, error) {
	var h Hive
	err := p.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, site_id, name, status, queen_introduced_at, queen_source,
		       brood_boxes, honey_supers, created_at
		FROM hives
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID).Scan(&h.ID, &h.TenantID, &h.SiteID, &h.Name, &h.Status,
		&h.QueenIntroducedAt, &h.QueenSource, &h.BroodBoxes, &h.HoneySupers, &h.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get hive: %w", err)
	}
	return &h, nil
}

// LastTreatment returns the most recent treatment for a hive.
func (p *Postgres) LastTreatment(ctx context.Context, hiveID string) (*Treatment, error) {
	var t Treatment
	err := p.db.QueryRowContext(ctx, `
		SELECT id, hive_id, treatment_type, treated_at
		FROM treatments
		WHERE hive_id = $1
		ORDER BY treated_at DESC
		LIMIT 1
	`, hiveID).Scan(&t.ID, &t.HiveID, &t.TreatmentType, &t.TreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: last treatment: %w", err)
	}
	return &t, nil
}

// LastInspection returns the most recent inspection for a hive.
func (p *Postgres) LastInspection(ctx context.Context, hiveID string) (*Inspection, error) {
	var i Inspection
	err := p.db.QueryRowContext(ctx, `
		SELECT id, hive_id, inspected_at
		FROM inspections
		WHERE hive_id = $1
		ORDER BY inspected_at DESC
		LIMIT 1
	`, hiveID).Scan(&i.ID, &i.HiveID, &i.InspectedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: last inspection: %w", err)
	}
	return &i, nil
}

// DetectionStats returns the recent-window detection count and the trailing
// daily average for the hive's site. The average excludes the recent window
// so a spike does not inflate its own baseline.
func (p *Postgres) DetectionStats(ctx context.Context, hiveID string, windowHours int) (*DetectionStats, error) {
	now := time.Now()
	windowStart := now.Add(-time.Duration(windowHours) * time.Hour)
	weekAgo := now.AddDate(0, 0, -7)

	var recentCount int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM detections d
		JOIN hives h ON h.site_id = d.site_id
		WHERE h.id = $1 AND d.detected_at >= $2
	`, hiveID, windowStart).Scan(&recentCount)
	if err != nil {
		return nil, fmt.Errorf("store: recent detection count: %w", err)
	}

	var totalLastWeek int
	err = p.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM detections d
		JOIN hives h ON h.site_id = d.site_id
		WHERE h.id = $1 AND d.detected_at >= $2 AND d.detected_at < $3
	`, hiveID, weekAgo, windowStart).Scan(&totalLastWeek)
	if err != nil {
		return nil, fmt.Errorf("store: weekly detection count: %w", err)
	}

	var avgDaily float64
	if days := windowStart.Sub(weekAgo).Hours() / 24; days > 0 {
		avgDaily = float64(totalLastWeek) / days
	}

	return &DetectionStats{RecentCount: recentCount, AverageDaily: avgDaily}, nil
}

// hiveColumns is the set of hive columns auto-effects may touch. Field names
// come from task templates, so everything else is rejected before it can
// reach a query string.
var hiveColumns = map[string]bool{
	"queen_introduced_at": true,
	"queen_source":        true,
	"brood_boxes":         true,
	"honey_supers":        true,
}

// SetHiveField assigns a value to an allow-listed hive column and returns
// the previous value.
func (p *Postgres) SetHiveField(ctx context.Context, hiveID, field string, value any) (any, error) {
	if !hiveColumns[field] {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotAllowed, field)
	}

	var old any
	err := p.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM hives WHERE id = $1`, field), hiveID).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read hive field %s: %w", field, err)
	}

	_, err = p.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE hives SET %s = $1, updated_at = NOW() WHERE id = $2`, field), value, hiveID)
	if err != nil {
		return nil, fmt.Errorf("store: set hive field %s: %w", field, err)
	}
	return old, nil
}

// IncrementHiveField adds amount to a numeric hive column.
func (p *Postgres) IncrementHiveField(ctx context.Context, hiveID, field string, amount int) (int, int, error) {
	if !hiveColumns[field] {
		return 0, 0, fmt.Errorf("%w: %s", ErrFieldNotAllowed, field)
	}

	var updated int
	err := p.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE hives SET %s = %s + $1, updated_at = NOW() WHERE id = $2 RETURNING %s`, field, field, field),
		amount, hiveID).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("store: increment hive field %s: %w", field, err)
	}
	return updated - amount, updated, nil
}

// DecrementHiveField subtracts amount from a numeric hive column, clamping
// the result at zero.
func (p *Postgres) DecrementHiveField(ctx context.Context, hiveID, field string, amount int) (int, int, error) {
	if !hiveColumns[field] {
		return 0, 0, fmt.Errorf("%w: %s", ErrFieldNotAllowed, field)
	}

	var old, updated int
	err := p.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM hives WHERE id = $1`, field), hiveID).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("store: read hive field %s: %w", field, err)
	}

	err = p.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE hives SET %s = GREATEST(%s - $1, 0), updated_at = NOW() WHERE id = $2 RETURNING %s`, field, field, field),
		amount, hiveID).Scan(&updated)
	if err != nil {
		return 0, 0, fmt.Errorf("store: decrement hive field %s: %w", field, err)
	}
	return old, updated, nil
}

// CreateHarvest creates a harvest record from auto-effect fields.
func (p *Postgres) CreateHarvest(ctx context.Context, tenantID, hiveID string, fields map[string]any) (string, error) {
	amount := AmountFromFields(fields, "amount_kg")
	harvestType := StringFromFields(fields, "harvest_type", "honey")
	harvestedAt := DateFromFields(fields, "harvested_at")
	notes := StringFromFields(fields, "notes", "")

	var id string
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO harvests (tenant_id, hive_id, harvest_type, amount_kg, harvested_at, notes)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING id
	`, tenantID, hiveID, harvestType, amount, harvestedAt, notes).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("store: create harvest: %w", err)
	}
	return id, nil
}

// CreateFeeding creates a feeding record from auto-effect fields.
func (p *Postgres) CreateFeeding(ctx context.Context, tenantID, hiveID string, fields map[string]any) (string, error) {
	feedType := StringFromFields(fields, "feed_type", "sugar_syrup")
	amount := AmountFromFields(fields, "amount")
	unit := StringFromFields(fields, "unit", "L")
	fedAt := DateFromFields(fields, "fed_at")
	notes := StringFromFields(fields, "notes", "")

	var id string
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO feedings (tenant_id, hive_id, feed_type, amount, unit, fed_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING id
	`, tenantID, hiveID, feedType, amount, unit, fedAt, notes).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("store: create feeding: %w", err)
	}
	return id, nil
}

// CreateTreatment creates a treatment record from auto-effect fields.
func (p *Postgres) CreateTreatment(ctx context.Context, tenantID, hiveID string, fields map[string]any) (string, error) {
	treatmentType := StringFromFields(fields, "treatment_type", "other")
	method := StringFromFields(fields, "method", "")
	dose := StringFromFields(fields, "dose", "")
	treatedAt := DateFromFields(fields, "treated_at")
	notes := StringFromFields(fields, "notes", "")

	var id string
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO treatments (tenant_id, hive_id, treatment_type, method, dose, treated_at, notes)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''))
		RETURNING id
	`, tenantID, hiveID, treatmentType, method, dose, treatedAt, notes).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("store: create treatment: %w", err)
	}
	return id, nil
}

// GetTask retrieves a task with its template's name and auto-effects.
func (p *Postgres) GetTask(ctx context.Context, tenantID, id string) (*Task, error) {
	var t Task
	err := p.db.QueryRowContext(ctx, `
		SELECT t.id, t.tenant_id, t.hive_id, tt.name, t.custom_title, t.description,
		       t.status, tt.auto_effects, t.completion_data
		FROM tasks t
		LEFT JOIN task_templates tt ON tt.id = t.template_id
		WHERE t.id = $1 AND t.tenant_id = $2
	`, id, tenantID).Scan(&t.ID, &t.TenantID, &t.HiveID, &t.TemplateName, &t.CustomTitle,
		&t.Description, &t.Status, &t.AutoEffects, &t.CompletionData)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get task: %w", err)
	}
	return &t, nil
}

// CompleteTask marks a task completed and records the completion payload and
// applied changes for audit.
func (p *Postgres) CompleteTask(ctx context.Context, id string, completionData, appliedChanges json.RawMessage) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = 'completed', completed_at = NOW(), completion_data = $2, applied_changes = $3
		WHERE id = $1 AND status != 'completed'
	`, id, completionData, appliedChanges)
	if err != nil {
		return fmt.Errorf("store: complete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: complete task rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateActivityEntry appends an activity-log entry and returns its id.
func (p *Postgres) CreateActivityEntry(ctx context.Context, tenantID string, input *CreateActivityInput) (string, error) {
	var id string
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO activity_log (tenant_id, hive_id, type, content, metadata, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, tenantID, input.HiveID, input.Type, input.Content, input.Metadata, input.CreatedBy).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("store: create activity entry: %w", err)
	}
	return id, nil
}

func scanInsights(rows *sql.Rows) ([]Insight, error) {
	var insights []Insight
	for rows.Next() {
		var insight Insight
		var rawPoints []byte
		if err := rows.Scan(&insight.ID, &insight.TenantID, &insight.HiveID, &insight.HiveName,
			&insight.RuleID, &insight.Severity, &insight.Message, &insight.SuggestedAction,
			&rawPoints, &insight.CreatedAt, &insight.DismissedAt, &insight.SnoozedUntil); err != nil {
			return nil, fmt.Errorf("store: scan insight: %w", err)
		}
		if err := json.Unmarshal(rawPoints, &insight.DataPoints); err != nil {
			insight.DataPoints = make(map[string]any)
		}
		insights = append(insights, insight)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate insights: %w", err)
	}
	return insights, nil
}
