package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AmountFromFields extracts a numeric amount from auto-effect fields.
// Accepts numbers and numeric strings; anything else yields zero.
func AmountFromFields(fields map[string]any, key string) decimal.Decimal {
	raw, ok := fields[key]
	if !ok {
		return decimal.Zero
	}
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		// Strings may carry a unit suffix, as in "2L" or "12.5 kg".
		cleaned := strings.TrimRight(v, "LlKkGgMm ")
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Zero
		}
		return d
	case decimal.Decimal:
		return v
	default:
		return decimal.Zero
	}
}

// StringFromFields extracts a string value, falling back to a default when
// the key is absent or not a string.
func StringFromFields(fields map[string]any, key, fallback string) string {
	raw, ok := fields[key]
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return fallback
		}
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fallback
	}
}

// DateFromFields extracts a date value, defaulting to now. String values are
// parsed as RFC 3339 or YYYY-MM-DD.
func DateFromFields(fields map[string]any, key string) time.Time {
	raw, ok := fields[key]
	if !ok {
		return time.Now()
	}
	switch v := raw.(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t
		}
		return time.Now()
	default:
		return time.Now()
	}
}
