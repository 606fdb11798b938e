// Package effects applies a task template's declarative auto-effects when
// a task is completed: hive field updates and record creation, driven by
// the completion payload.
package effects

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AutoEffects is the auto_effects schema carried by a task template.
type AutoEffects struct {
	Prompts []Prompt `json:"prompts,omitempty"`
	Updates []Update `json:"updates,omitempty"`
	Creates []Create `json:"creates,omitempty"`
}

// Prompt describes an input the client should collect before completing
// the task. Prompts are rendered client-side; the server only passes them
// through.
type Prompt struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
}

// Update mutates one hive field. Target is "hive.<field>", Action one of
// set, increment or decrement. Value and ValueFrom are mutually exclusive
// ways to supply the operand; Condition optionally gates the whole update.
type Update struct {
	Target    string `json:"target"`
	Action    string `json:"action"`
	Value     any    `json:"value,omitempty"`
	ValueFrom string `json:"value_from,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// Create inserts a new record of the given entity type with the given
// fields, merged with the completion payload.
type Create struct {
	Entity string         `json:"entity"`
	Fields map[string]any `json:"fields,omitempty"`
}

// UpdateResult records the before and after values of one field update.
type UpdateResult struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// AppliedChanges is the audit record of one auto-effects run. It is stored
// as JSON alongside the completed task, so Errors holds strings rather
// than error values.
type AppliedChanges struct {
	Updates map[string]UpdateResult `json:"updates,omitempty"`
	Creates map[string]string       `json:"creates,omitempty"`
	Errors  []string                `json:"errors,omitempty"`
}

// JSON serializes the applied changes for storage.
func (ac *AppliedChanges) JSON() json.RawMessage {
	data, err := json.Marshal(ac)
	if err != nil {
		return nil
	}
	return data
}

// Parse decodes an auto_effects document. Nil or empty input means the
// template has no effects.
func Parse(data json.RawMessage) (*AutoEffects, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var effects AutoEffects
	if err := json.Unmarshal(data, &effects); err != nil {
		return nil, fmt.Errorf("effects: parse auto_effects: %w", err)
	}
	return &effects, nil
}

// ParseCompletionData decodes a completion payload, preserving numeric
// precision. Malformed payloads yield an empty map.
func ParseCompletionData(data json.RawMessage) map[string]any {
	if len(data) == 0 {
		return make(map[string]any)
	}

	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.UseNumber()

	var result map[string]any
	if err := decoder.Decode(&result); err != nil {
		return make(map[string]any)
	}
	return result
}
