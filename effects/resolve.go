package effects

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// resolveValue picks the operand for an update: a value_from path wins over
// a direct value, and direct string values may themselves be templates.
func resolveValue(direct any, valueFrom string, completionData map[string]any) any {
	if valueFrom != "" {
		return resolveFromPath(valueFrom, completionData)
	}
	if s, ok := direct.(string); ok {
		return resolveTemplate(s, completionData)
	}
	return direct
}

// resolveFromPath walks a dotted path like "completion_data.source.name"
// through the completion payload. A missing segment yields nil.
func resolveFromPath(path string, completionData map[string]any) any {
	path = strings.TrimPrefix(path, "completion_data.")

	var current any = completionData
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

// resolveTemplate expands the two supported template forms,
// {{current_date}} and {{completion_data.<field>}}. Anything else passes
// through unchanged.
func resolveTemplate(template string, completionData map[string]any) any {
	if template == "{{current_date}}" {
		return time.Now().Format("2006-01-02")
	}
	if strings.HasPrefix(template, "{{completion_data.") && strings.HasSuffix(template, "}}") {
		field := strings.TrimSuffix(strings.TrimPrefix(template, "{{completion_data."), "}}")
		return resolveFromPath(field, completionData)
	}
	return template
}

// evaluateCondition checks a "completion_data.field == 'value'" guard.
// Anything that does not parse as a single equality skips the update.
func evaluateCondition(condition string, completionData map[string]any, logger *slog.Logger) bool {
	parts := strings.Split(condition, " == ")
	if len(parts) != 2 {
		logger.Warn("invalid update condition, skipping", "condition", condition)
		return false
	}

	fieldPath := strings.TrimPrefix(strings.TrimSpace(parts[0]), "completion_data.")
	expected := strings.Trim(strings.TrimSpace(parts[1]), "'\"")

	actual, _ := resolveFromPath(fieldPath, completionData).(string)
	return actual == expected
}

// targetField extracts the field name from a "hive.<field>" target.
// Anything else is invalid and yields an empty string.
func targetField(target string) string {
	parts := strings.Split(target, ".")
	if len(parts) != 2 || parts[0] != "hive" {
		return ""
	}
	return parts[1]
}

// toInt coerces an operand to int. Values that cannot be converted become
// zero, which the increment and decrement actions treat as "use default".
func toInt(v any, logger *slog.Logger) int {
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			logger.Warn("non-numeric string in auto-effect, using 0", "value", val)
			return 0
		}
		return i
	case json.Number:
		i, err := val.Int64()
		if err != nil {
			logger.Warn("non-integer number in auto-effect, using 0", "value", val.String())
			return 0
		}
		return int(i)
	default:
		logger.Warn("unsupported operand type in auto-effect, using 0", "value", v)
		return 0
	}
}

// mergeFields overlays override onto base. The completion payload always
// wins over template defaults.
func mergeFields(base, override map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
