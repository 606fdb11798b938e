package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory store. It backs tests and the dry-run analysis
// command, where nothing should touch the database.
type Memory struct {
	mu          sync.RWMutex
	insights    map[string]*Insight
	hives       map[string]*Hive
	sites       map[string]string
	treatments  map[string][]Treatment
	inspections map[string][]Inspection
	detections  map[string]*DetectionStats
	tasks       map[string]*Task
	activity    []CreateActivityInput
	harvests    int
	feedings    int
	created     int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		insights:    make(map[string]*Insight),
		hives:       make(map[string]*Hive),
		sites:       make(map[string]string),
		treatments:  make(map[string][]Treatment),
		inspections: make(map[string][]Inspection),
		detections:  make(map[string]*DetectionStats),
		tasks:       make(map[string]*Task),
	}
}

// AddHive registers a hive.
func (m *Memory) AddHive(h Hive) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.Status == "" {
		h.Status = "active"
	}
	m.hives[h.ID] = &h
}

// AddSite registers a site name for maintenance listings.
func (m *Memory) AddSite(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sites[id] = name
}

// AddInsight registers an insight as-is, keeping its id and timestamps.
func (m *Memory) AddInsight(i Insight) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now()
	}
	if i.DataPoints == nil {
		i.DataPoints = make(map[string]any)
	}
	m.insights[i.ID] = &i
}

// AddTreatment records a treatment for a hive.
func (m *Memory) AddTreatment(t Treatment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.treatments[t.HiveID] = append(m.treatments[t.HiveID], t)
}

// AddInspection records an inspection for a hive.
func (m *Memory) AddInspection(i Inspection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inspections[i.HiveID] = append(m.inspections[i.HiveID], i)
}

// SetDetectionStats fixes the detection statistics returned for a hive.
func (m *Memory) SetDetectionStats(hiveID string, stats DetectionStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections[hiveID] = &stats
}

// AddTask registers a task.
func (m *Memory) AddTask(t Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = &t
}

// ActivityEntries returns the recorded activity-log entries.
func (m *Memory) ActivityEntries() []CreateActivityInput {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CreateActivityInput, len(m.activity))
	copy(out, m.activity)
	return out
}

// CreatedRecords returns how many harvest, feeding and treatment records
// auto-effects have created.
func (m *Memory) CreatedRecords() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.created
}

func (m *Memory) CreateInsight(ctx context.Context, tenantID string, input *CreateInsightInput) (*Insight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	insight := &Insight{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		HiveID:          input.HiveID,
		RuleID:          input.RuleID,
		Severity:        input.Severity,
		Message:         input.Message,
		SuggestedAction: input.SuggestedAction,
		DataPoints:      input.DataPoints,
		CreatedAt:       time.Now(),
	}
	if insight.DataPoints == nil {
		insight.DataPoints = make(map[string]any)
	}
	if input.HiveID != nil {
		if h, ok := m.hives[*input.HiveID]; ok {
			name := h.Name
			insight.HiveName = &name
		}
	}
	m.insights[insight.ID] = insight

	out := *insight
	return &out, nil
}

func (m *Memory) GetInsight(ctx context.Context, id string) (*Insight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	insight, ok := m.insights[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *insight
	return &out, nil
}

func (m *Memory) ListActiveInsights(ctx context.Context, tenantID string) ([]Insight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var out []Insight
	for _, insight := range m.insights {
		if insight.TenantID == tenantID && insight.Active(now) {
			out = append(out, *insight)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		wi, wj := SeverityWeightOf(out[i].Severity), SeverityWeightOf(out[j].Severity)
		if wi != wj {
			return wi > wj
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) ListMaintenanceInsights(ctx context.Context, tenantID, siteID string) ([]MaintenanceInsight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var out []MaintenanceInsight
	for _, insight := range m.insights {
		if insight.TenantID != tenantID || insight.HiveID == nil || !insight.Active(now) {
			continue
		}
		hive, ok := m.hives[*insight.HiveID]
		if !ok || hive.Status != "active" {
			continue
		}
		if siteID != "" && hive.SiteID != siteID {
			continue
		}
		out = append(out, MaintenanceInsight{
			ID:              insight.ID,
			HiveID:          hive.ID,
			HiveName:        hive.Name,
			SiteID:          hive.SiteID,
			SiteName:        m.sites[hive.SiteID],
			RuleID:          insight.RuleID,
			Severity:        insight.Severity,
			Message:         insight.Message,
			SuggestedAction: insight.SuggestedAction,
			DataPoints:      insight.DataPoints,
			CreatedAt:       insight.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) ListRecentlyCompleted(ctx context.Context, tenantID, siteID string, limit int) ([]CompletedInsight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().AddDate(0, 0, -7)
	var out []CompletedInsight
	for _, insight := range m.insights {
		if insight.TenantID != tenantID || insight.HiveID == nil || insight.DismissedAt == nil {
			continue
		}
		if !insight.DismissedAt.After(cutoff) {
			continue
		}
		hive, ok := m.hives[*insight.HiveID]
		if !ok {
			continue
		}
		if siteID != "" && hive.SiteID != siteID {
			continue
		}
		out = append(out, CompletedInsight{
			HiveID:      hive.ID,
			HiveName:    hive.Name,
			Action:      insight.SuggestedAction,
			CompletedAt: *insight.DismissedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) DismissInsight(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	insight, ok := m.insights[id]
	if !ok {
		return ErrNotFound
	}
	if insight.DismissedAt == nil {
		now := time.Now()
		insight.DismissedAt = &now
	}
	return nil
}

func (m *Memory) SnoozeInsight(ctx context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	insight, ok := m.insights[id]
	if !ok {
		return ErrNotFound
	}
	insight.SnoozedUntil = &until
	return nil
}

func (m *Memory) DismissAllActiveInsights(ctx context.Context, tenantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var count int64
	for _, insight := range m.insights {
		if insight.TenantID == tenantID && insight.DismissedAt == nil {
			t := now
			insight.DismissedAt = &t
			count++
		}
	}
	return count, nil
}

func (m *Memory) DeleteOldInsights(ctx context.Context, tenantID string, daysOld int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -daysOld)
	var count int64
	for id, insight := range m.insights {
		if insight.TenantID == tenantID && insight.DismissedAt != nil && insight.CreatedAt.Before(cutoff) {
			delete(m.insights, id)
			count++
		}
	}
	return count, nil
}

func (m *Memory) ListHives(ctx context.Context, tenantID string) ([]Hive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Hive
	for _, h := range m.hives {
		if h.TenantID == tenantID {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetHive(ctx context.Context, tenantID, id string) (*Hive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hives[id]
	if !ok || h.TenantID != tenantID {
		return nil, ErrNotFound
	}
	out := *h
	return &out, nil
}

func (m *Memory) LastTreatment(ctx context.Context, hiveID string) (*Treatment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	treatments := m.treatments[hiveID]
	if len(treatments) == 0 {
		return nil, ErrNotFound
	}
	last := treatments[0]
	for _, t := range treatments[1:] {
		if t.TreatedAt.After(last.TreatedAt) {
			last = t
		}
	}
	return &last, nil
}

func (m *Memory) LastInspection(ctx context.Context, hiveID string) (*Inspection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inspections := m.inspections[hiveID]
	if len(inspections) == 0 {
		return nil, ErrNotFound
	}
	last := inspections[0]
	for _, i := range inspections[1:] {
		if i.InspectedAt.After(last.InspectedAt) {
			last = i
		}
	}
	return &last, nil
}

func (m *Memory) DetectionStats(ctx context.Context, hiveID string, windowHours int) (*DetectionStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats, ok := m.detections[hiveID]
	if !ok {
		return &DetectionStats{}, nil
	}
	out := *stats
	return &out, nil
}

func (m *Memory) SetHiveField(ctx context.Context, hiveID, field string, value any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hives[hiveID]
	if !ok {
		return nil, ErrNotFound
	}
	switch field {
	case "queen_introduced_at":
		old := h.QueenIntroducedAt
		t, err := toTime(value)
		if err != nil {
			return nil, err
		}
		h.QueenIntroducedAt = &t
		if old == nil {
			return nil, nil
		}
		return *old, nil
	case "queen_source":
		old := h.QueenSource
		s, _ := value.(string)
		h.QueenSource = &s
		if old == nil {
			return nil, nil
		}
		return *old, nil
	case "brood_boxes":
		old := h.BroodBoxes
		n, err := toCount(value)
		if err != nil {
			return nil, err
		}
		h.BroodBoxes = n
		return old, nil
	case "honey_supers":
		old := h.HoneySupers
		n, err := toCount(value)
		if err != nil {
			return nil, err
		}
		h.HoneySupers = n
		return old, nil
	default:
		return nil, ErrFieldNotAllowed
	}
}

func (m *Memory) IncrementHiveField(ctx context.Context, hiveID, field string, amount int) (int, int, error) {
	return m.adjustHiveField(hiveID, field, amount)
}

func (m *Memory) DecrementHiveField(ctx context.Context, hiveID, field string, amount int) (int, int, error) {
	return m.adjustHiveField(hiveID, field, -amount)
}

func (m *Memory) adjustHiveField(hiveID, field string, delta int) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hives[hiveID]
	if !ok {
		return 0, 0, ErrNotFound
	}

	var target *int
	switch field {
	case "brood_boxes":
		target = &h.BroodBoxes
	case "honey_supers":
		target = &h.HoneySupers
	default:
		return 0, 0, ErrFieldNotAllowed
	}

	old := *target
	updated := old + delta
	if updated < 0 {
		updated = 0
	}
	*target = updated
	return old, updated, nil
}

func (m *Memory) CreateHarvest(ctx context.Context, tenantID, hiveID string, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.harvests++
	m.created++
	return uuid.NewString(), nil
}

func (m *Memory) CreateFeeding(ctx context.Context, tenantID, hiveID string, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedings++
	m.created++
	return uuid.NewString(), nil
}

func (m *Memory) CreateTreatment(ctx context.Context, tenantID, hiveID string, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
	return uuid.NewString(), nil
}

func (m *Memory) GetTask(ctx context.Context, tenantID, id string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok || t.TenantID != tenantID {
		return nil, ErrNotFound
	}
	out := *t
	return &out, nil
}

func (m *Memory) CompleteTask(ctx context.Context, id string, completionData, appliedChanges json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = "completed"
	t.CompletionData = completionData
	return nil
}

func (m *Memory) CreateActivityEntry(ctx context.Context, tenantID string, input *CreateActivityInput) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append(m.activity, *input)
	return uuid.NewString(), nil
}

func toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, nil
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t, nil
		}
		return time.Time{}, ErrBadFieldValue
	default:
		return time.Time{}, ErrBadFieldValue
	}
}

func toCount(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, ErrBadFieldValue
	}
}
