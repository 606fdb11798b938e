// Package engine evaluates catalog rules against hive state and turns
// matches into insights.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/apiarylab/hivemind/rules"
	"github.com/apiarylab/hivemind/store"
)

// Evaluator checks one condition type against a hive. A nil insight with
// matched=false means the condition did not fire; an error means the
// evaluation itself could not run.
type Evaluator interface {
	Type() string
	Evaluate(ctx context.Context, hive *store.Hive, rule *rules.Rule, now time.Time) (*store.Insight, bool, error)
}

// Registry maps condition types to their evaluators.
type Registry struct {
	evaluators map[string]Evaluator
}

// NewRegistry builds a registry with the built-in evaluators wired to the
// given event store.
func NewRegistry(events store.EventStore) *Registry {
	r := &Registry{evaluators: make(map[string]Evaluator)}
	r.Register(&queenAgeEvaluator{})
	r.Register(&treatmentDueEvaluator{events: events})
	r.Register(&inspectionOverdueEvaluator{events: events})
	r.Register(&detectionSpikeEvaluator{events: events})
	return r
}

// Register adds an evaluator, replacing any previous one for its type.
func (r *Registry) Register(e Evaluator) {
	r.evaluators[e.Type()] = e
}

// ConditionTypes returns the set of known condition types, used to validate
// the rule catalog at load time.
func (r *Registry) ConditionTypes() map[string]bool {
	types := make(map[string]bool, len(r.evaluators))
	for t := range r.evaluators {
		types[t] = true
	}
	return types
}

// Evaluate dispatches a rule to the evaluator for its condition type.
func (r *Registry) Evaluate(ctx context.Context, hive *store.Hive, rule *rules.Rule, now time.Time) (*store.Insight, bool, error) {
	e, ok := r.evaluators[rule.Condition.Type]
	if !ok {
		return nil, false, fmt.Errorf("engine: unknown condition type: %s", rule.Condition.Type)
	}
	return e.Evaluate(ctx, hive, rule, now)
}
