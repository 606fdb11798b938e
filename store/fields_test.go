package store

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAmountFromFields(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]any
		key    string
		want   string
	}{
		{"float", map[string]any{"amount_kg": 12.5}, "amount_kg", "12.5"},
		{"int", map[string]any{"amount": 3}, "amount", "3"},
		{"string", map[string]any{"amount_kg": "12.5"}, "amount_kg", "12.5"},
		{"string with unit suffix", map[string]any{"amount": "2L"}, "amount", "2"},
		{"string with spaced unit", map[string]any{"amount_kg": "12.5 kg"}, "amount_kg", "12.5"},
		{"json number", map[string]any{"amount_kg": json.Number("12.5")}, "amount_kg", "12.5"},
		{"json number integer", map[string]any{"amount": json.Number("4")}, "amount", "4"},
		{"missing key", map[string]any{}, "amount_kg", "0"},
		{"unparseable string", map[string]any{"amount": "lots"}, "amount", "0"},
		{"wrong type", map[string]any{"amount": true}, "amount", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AmountFromFields(tc.fields, tc.key)
			if got.String() != tc.want {
				t.Errorf("AmountFromFields(%v, %q) = %s, want %s", tc.fields, tc.key, got, tc.want)
			}
		})
	}
}

func TestStringFromFields(t *testing.T) {
	fields := map[string]any{"method": "oxalic_acid", "empty": "", "num": 3}
	if got := StringFromFields(fields, "method", "fallback"); got != "oxalic_acid" {
		t.Errorf("got %q, want oxalic_acid", got)
	}
	if got := StringFromFields(fields, "empty", "fallback"); got != "fallback" {
		t.Errorf("empty string should fall back, got %q", got)
	}
	if got := StringFromFields(fields, "num", "fallback"); got != "fallback" {
		t.Errorf("non-string should fall back, got %q", got)
	}
	if got := StringFromFields(fields, "missing", "fallback"); got != "fallback" {
		t.Errorf("missing key should fall back, got %q", got)
	}
}

func TestDateFromFields(t *testing.T) {
	fields := map[string]any{"date": "2026-05-15", "bad": "not a date"}
	got := DateFromFields(fields, "date")
	want := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	before := time.Now()
	if got := DateFromFields(fields, "bad"); got.Before(before) {
		t.Errorf("unparseable date should default to now, got %v", got)
	}
	if got := DateFromFields(fields, "missing"); got.Before(before) {
		t.Errorf("missing date should default to now, got %v", got)
	}
}
