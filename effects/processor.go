package effects

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apiarylab/hivemind/store"
)

// allowedHiveFields is the set of hive fields auto-effects may touch.
var allowedHiveFields = map[string]bool{
	"queen_introduced_at": true,
	"queen_source":        true,
	"brood_boxes":         true,
	"honey_supers":        true,
}

// Processor applies auto-effects against the store.
type Processor struct {
	hives    store.HiveStore
	writer   store.HiveFieldWriter
	creator  store.RecordCreator
	activity store.ActivityStore
	logger   *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(hives store.HiveStore, writer store.HiveFieldWriter, creator store.RecordCreator, activity store.ActivityStore, logger *slog.Logger) *Processor {
	return &Processor{
		hives:    hives,
		writer:   writer,
		creator:  creator,
		activity: activity,
		logger:   logger,
	}
}

// Process applies a completed task's auto-effects. Individual effect
// failures are recorded in the result and do not stop the run; each
// update and create executes independently, not atomically.
func (p *Processor) Process(ctx context.Context, tenantID string, task *store.Task, completionData map[string]any) *AppliedChanges {
	result := &AppliedChanges{
		Updates: make(map[string]UpdateResult),
		Creates: make(map[string]string),
		Errors:  []string{},
	}

	effects, err := Parse(task.AutoEffects)
	if err != nil {
		p.logger.Error("auto_effects parse failed", "task_id", task.ID, "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to parse auto_effects: %v", err))
		return result
	}
	if effects == nil {
		return result
	}

	// Orphaned tasks can still create records, but field updates need the
	// hive to exist.
	hiveOK := true
	if task.HiveID != "" && len(effects.Updates) > 0 {
		if _, err := p.hives.GetHive(ctx, tenantID, task.HiveID); err != nil {
			p.logger.Error("hive not found for auto-effects",
				"task_id", task.ID, "hive_id", task.HiveID, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("Hive %s not found: %v", task.HiveID, err))
			hiveOK = false
		}
	}

	if hiveOK {
		for _, update := range effects.Updates {
			if err := p.applyUpdate(ctx, task.HiveID, update, completionData, result); err != nil {
				p.logger.Error("auto-effect update failed",
					"task_id", task.ID, "target", update.Target, "error", err)
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to update %s: %v", update.Target, err))
			}
		}
	}

	for _, create := range effects.Creates {
		if err := p.applyCreate(ctx, tenantID, task.HiveID, create, completionData, result); err != nil {
			p.logger.Error("auto-effect create failed",
				"task_id", task.ID, "entity", create.Entity, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to create %s: %v", create.Entity, err))
		}
	}

	p.logger.Info("auto-effects processed",
		"task_id", task.ID,
		"hive_id", task.HiveID,
		"updates_count", len(result.Updates),
		"creates_count", len(result.Creates),
		"errors_count", len(result.Errors),
	)
	return result
}

func (p *Processor) applyUpdate(ctx context.Context, hiveID string, update Update, completionData map[string]any, result *AppliedChanges) error {
	if update.Condition != "" && !evaluateCondition(update.Condition, completionData, p.logger) {
		return nil
	}

	field := targetField(update.Target)
	if field == "" {
		return fmt.Errorf("invalid target: %s", update.Target)
	}
	if !allowedHiveFields[field] {
		return fmt.Errorf("field not allowed for auto-update: %s", field)
	}

	value := resolveValue(update.Value, update.ValueFrom, completionData)

	switch update.Action {
	case "set":
		old, err := p.writer.SetHiveField(ctx, hiveID, field, value)
		if err != nil {
			return err
		}
		result.Updates[field] = UpdateResult{Old: old, New: value}
		return nil

	case "increment":
		amount := toInt(value, p.logger)
		if amount == 0 {
			amount = 1
		}
		old, updated, err := p.writer.IncrementHiveField(ctx, hiveID, field, amount)
		if err != nil {
			return err
		}
		result.Updates[field] = UpdateResult{Old: old, New: updated}
		return nil

	case "decrement":
		amount := toInt(value, p.logger)
		if amount == 0 {
			amount = 1
		}
		old, updated, err := p.writer.DecrementHiveField(ctx, hiveID, field, amount)
		if err != nil {
			return err
		}
		result.Updates[field] = UpdateResult{Old: old, New: updated}
		return nil

	default:
		return fmt.Errorf("unknown action: %s", update.Action)
	}
}

func (p *Processor) applyCreate(ctx context.Context, tenantID, hiveID string, create Create, completionData map[string]any, result *AppliedChanges) error {
	fields := mergeFields(create.Fields, completionData)
	for k, v := range fields {
		if s, ok := v.(string); ok {
			fields[k] = resolveTemplate(s, completionData)
		}
	}

	switch create.Entity {
	case "harvest":
		id, err := p.creator.CreateHarvest(ctx, tenantID, hiveID, fields)
		if err != nil {
			return err
		}
		result.Creates["harvest_id"] = id
		p.logger.Info("harvest created from task", "harvest_id", id, "hive_id", hiveID)
		return nil

	case "feeding":
		id, err := p.creator.CreateFeeding(ctx, tenantID, hiveID, fields)
		if err != nil {
			return err
		}
		result.Creates["feeding_id"] = id
		p.logger.Info("feeding created from task", "feeding_id", id, "hive_id", hiveID)
		return nil

	case "treatment":
		id, err := p.creator.CreateTreatment(ctx, tenantID, hiveID, fields)
		if err != nil {
			return err
		}
		result.Creates["treatment_id"] = id
		p.logger.Info("treatment created from task", "treatment_id", id, "hive_id", hiveID)
		return nil

	default:
		return fmt.Errorf("unknown entity type: %s", create.Entity)
	}
}
