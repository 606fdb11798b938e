// Package rules loads and serves the declarative analysis rule catalog.
package rules

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"
)

// Catalog holds the loaded rule set together with compiled guard programs.
// A catalog loaded from a file picks up edits on the next read, so rule
// changes take effect without a restart. All methods are safe for concurrent
// use.
type Catalog struct {
	rules  []Rule
	byID   map[string]*Rule
	guards map[string]cel.Program
	mu     sync.RWMutex

	path           string
	conditionTypes map[string]bool
	modTime        time.Time
}

type catalogFile struct {
	Rules []Rule `yaml:"rules"`
}

// Load reads the YAML catalog at path and validates it against the set of
// registered condition types. Loading fails closed: a missing field, invalid
// severity, duplicate id, unknown condition type, or a guard expression that
// does not compile all abort startup.
func Load(path string, conditionTypes map[string]bool) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read catalog: %w", err)
	}

	c, err := Parse(data, conditionTypes)
	if err != nil {
		return nil, err
	}

	c.path = path
	c.conditionTypes = conditionTypes
	if stat, err := os.Stat(path); err == nil {
		c.modTime = stat.ModTime()
	}

	slog.Info("rule catalog loaded", "path", path, "rule_count", len(c.rules))
	return c, nil
}

// Parse builds a Catalog from raw YAML bytes. Split out from Load so tests
// can feed catalogs without touching the filesystem.
func Parse(data []byte, conditionTypes map[string]bool) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("rules: parse catalog YAML: %w", err)
	}

	c := &Catalog{
		rules:  file.Rules,
		byID:   make(map[string]*Rule, len(file.Rules)),
		guards: make(map[string]cel.Program),
	}

	env, err := guardEnv()
	if err != nil {
		return nil, fmt.Errorf("rules: create guard environment: %w", err)
	}

	for i := range c.rules {
		r := &c.rules[i]
		if r.ID == "" {
			return nil, fmt.Errorf("rules: rule at index %d missing id", i)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("rules: duplicate rule id %q", r.ID)
		}
		if r.Condition.Type == "" {
			return nil, fmt.Errorf("rules: rule %s missing condition type", r.ID)
		}
		if conditionTypes != nil && !conditionTypes[r.Condition.Type] {
			return nil, fmt.Errorf("rules: rule %s references unknown condition type %q", r.ID, r.Condition.Type)
		}
		if !ValidSeverity(r.Severity) {
			return nil, fmt.Errorf("rules: rule %s has invalid severity %q", r.ID, r.Severity)
		}
		if r.When != "" {
			prog, err := compileGuard(env, r.When)
			if err != nil {
				return nil, fmt.Errorf("rules: rule %s guard: %w", r.ID, err)
			}
			c.guards[r.ID] = prog
		}
		c.byID[r.ID] = r
	}

	return c, nil
}

// guardEnv declares the facts available to guard expressions. Both are
// dynamic maps: hive is the snapshot the evaluator saw, evidence is the
// structured data points the match produced.
func guardEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("hive", cel.DynType),
		cel.Variable("evidence", cel.DynType),
	)
}

func compileGuard(env *cel.Env, expression string) (cel.Program, error) {
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prog, err := env.Program(ast, cel.CostLimit(1000000))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// Rules returns a copy of the loaded rule list, reloading the backing file
// first if it has changed.
func (c *Catalog) Rules() []Rule {
	c.maybeReload()

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// maybeReload re-parses the backing file when its mod time has advanced.
// A reload that fails validation keeps the cached catalog; a bad edit must
// not take down a running analysis.
func (c *Catalog) maybeReload() {
	if c.path == "" {
		return
	}
	stat, err := os.Stat(c.path)
	if err != nil {
		return
	}

	c.mu.RLock()
	stale := stat.ModTime().After(c.modTime)
	c.mu.RUnlock()
	if !stale {
		return
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		slog.Warn("rule catalog reload failed, using cached", "path", c.path, "error", err)
		return
	}
	fresh, err := Parse(data, c.conditionTypes)
	if err != nil {
		slog.Warn("rule catalog reload failed, using cached", "path", c.path, "error", err)
		return
	}

	c.mu.Lock()
	// Another goroutine may have reloaded while we parsed.
	if stat.ModTime().After(c.modTime) {
		c.rules = fresh.rules
		c.byID = fresh.byID
		c.guards = fresh.guards
		c.modTime = stat.ModTime()
		slog.Info("rule catalog reloaded", "path", c.path, "rule_count", len(c.rules))
	}
	c.mu.Unlock()
}

// Get returns the rule with the given id, or nil.
func (c *Catalog) Get(id string) *Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID[id]
}

// GuardAllows evaluates the rule's guard against the given facts. Rules with
// no guard always pass. Guard evaluation errors are fail-soft: the match is
// kept rather than silently dropped, and the error is logged.
func (c *Catalog) GuardAllows(ruleID string, hive, evidence map[string]any) bool {
	c.mu.RLock()
	prog, ok := c.guards[ruleID]
	c.mu.RUnlock()
	if !ok {
		return true
	}

	out, _, err := prog.Eval(map[string]any{
		"hive":     hive,
		"evidence": evidence,
	})
	if err != nil {
		slog.Warn("rule guard evaluation failed, keeping match", "rule_id", ruleID, "error", err)
		return true
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		// Non-boolean guard results never suppress a match.
		slog.Warn("rule guard returned non-boolean, keeping match", "rule_id", ruleID)
		return true
	}
	return allowed
}
