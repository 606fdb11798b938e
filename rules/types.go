package rules

// Severity levels for rule matches, in decreasing order of urgency.
const (
	SeverityActionNeeded = "action-needed"
	SeverityWarning      = "warning"
	SeverityInfo         = "info"
)

// Severity weights used for maintenance priority scoring.
const (
	WeightActionNeeded = 100
	WeightWarning      = 50
	WeightInfo         = 10
)

// SeverityWeight returns the numeric weight for a severity level.
// Unknown severities weigh zero.
func SeverityWeight(severity string) int {
	switch severity {
	case SeverityActionNeeded:
		return WeightActionNeeded
	case SeverityWarning:
		return WeightWarning
	case SeverityInfo:
		return WeightInfo
	default:
		return 0
	}
}

// ValidSeverity reports whether severity is one of the known levels.
func ValidSeverity(severity string) bool {
	switch severity {
	case SeverityActionNeeded, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

// Rule is a single analysis rule from the catalog. A parsed rule is never
// mutated; catalog reloads swap in a fresh list.
type Rule struct {
	ID              string    `yaml:"id"`
	Name            string    `yaml:"name"`
	Description     string    `yaml:"description"`
	Condition       Condition `yaml:"condition"`
	Severity        string    `yaml:"severity"`
	MessageTemplate string    `yaml:"message_template"`
	SuggestedAction string    `yaml:"suggested_action"`

	// When is an optional CEL guard expression over the "hive" and "evidence"
	// facts of a matched condition. Compiled at load time; a rule whose guard
	// does not compile fails the whole catalog load.
	When string `yaml:"when,omitempty"`
}

// Condition names the evaluator to run and carries its parameters.
type Condition struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params"`
}

// ParamInt retrieves a named integer parameter. YAML numbers may arrive as
// int or float64 depending on how they were written.
func (c *Condition) ParamInt(name string) (int, bool) {
	v, ok := c.Params[name]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	default:
		return 0, false
	}
}

// ParamFloat retrieves a named float parameter.
func (c *Condition) ParamFloat(name string) (float64, bool) {
	v, ok := c.Params[name]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}

// ParamString retrieves a named string parameter.
func (c *Condition) ParamString(name string) (string, bool) {
	v, ok := c.Params[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
