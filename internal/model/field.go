package model

import "strings"

// FieldStatus describes how a field value was obtained by the engine.
type FieldStatus string

const (
	FieldStatusFound    FieldStatus = "found"
	FieldStatusInferred FieldStatus = "inferred"
	FieldStatusMissing  FieldStatus = "missing"
)

// FieldMeta is the provenance envelope around a field value.
type FieldMeta struct {
	Status      FieldStatus `json:"status"`
	Confidence  float64     `json:"confidence"`
	Source      []string    `json:"source,omitempty"`
	Description string      `json:"description,omitempty"`
}

// The engine's wrapper format evolved over time, so any field may arrive as a
// bare scalar/list, as a {value, status, confidence, source, description}
// wrapper, or as a wrapper whose value is an {items: [...]} list container.
// Every consumer goes through the accessors below; nothing destructures raw
// fields directly. Absence is always nil/empty, never an error.

// wrapper returns the map form of a wrapped field, if v is one.
func wrapper(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	if _, has := m["value"]; has {
		return m, true
	}
	if _, has := m["status"]; has {
		return m, true
	}
	return nil, false
}

// Value unwraps a field to its payload. Accepts wrapped and bare inputs;
// returns nil for nil input or a missing payload.
func Value(v any) any {
	if v == nil {
		return nil
	}
	if m, ok := wrapper(v); ok {
		return m["value"]
	}
	return v
}

// Items unwraps a field to a list payload. Handles the nested
// {items: [...]} container, a bare list, and a wrapped list; anything else
// yields an empty list.
func Items(v any) []any {
	inner := Value(v)
	if inner == nil {
		return nil
	}
	if m, ok := inner.(map[string]any); ok {
		if items, ok := m["items"].([]any); ok {
			return items
		}
		return nil
	}
	if list, ok := inner.([]any); ok {
		return list
	}
	return nil
}

// Metadata extracts the provenance envelope. Bare non-nil values report
// found with zero confidence; nil reports missing.
func Metadata(v any) FieldMeta {
	if v == nil {
		return FieldMeta{Status: FieldStatusMissing}
	}
	m, ok := wrapper(v)
	if !ok {
		return FieldMeta{Status: FieldStatusFound}
	}

	meta := FieldMeta{Status: FieldStatusMissing}
	if s, ok := m["status"].(string); ok && s != "" {
		meta.Status = FieldStatus(s)
	}
	if c, ok := toFloat(m["confidence"]); ok {
		meta.Confidence = c
	}
	if src, ok := m["source"].([]any); ok {
		for _, s := range src {
			if str, ok := s.(string); ok {
				meta.Source = append(meta.Source, str)
			}
		}
	} else if s, ok := m["source"].(string); ok && s != "" {
		meta.Source = []string{s}
	}
	if d, ok := m["description"].(string); ok {
		meta.Description = d
	}
	return meta
}

// IsPresent reports whether a field carries usable data: status is found or
// inferred AND, where checkable, the unwrapped payload is non-empty. A
// found-status field with a blank string or empty list counts as absent.
func IsPresent(v any) bool {
	meta := Metadata(v)
	if meta.Status != FieldStatusFound && meta.Status != FieldStatusInferred {
		return false
	}

	switch inner := Value(v).(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(inner) != ""
	case []any:
		return len(inner) > 0
	case map[string]any:
		if items, ok := inner["items"].([]any); ok {
			return len(items) > 0
		}
		return len(inner) > 0
	default:
		return true
	}
}

// EnrichedValue returns the full wrapper map for a field, synthesizing one
// around bare values so callers always see a uniform shape.
func EnrichedValue(v any) map[string]any {
	if v == nil {
		return nil
	}
	if m, ok := wrapper(v); ok {
		return m
	}
	return map[string]any{
		"value":      v,
		"status":     string(FieldStatusFound),
		"confidence": 0.0,
	}
}

// Wrap builds a wrapped field map around a payload.
func Wrap(value any, status FieldStatus, confidence float64, source []string, description string) map[string]any {
	m := map[string]any{
		"value":      value,
		"status":     string(status),
		"confidence": confidence,
	}
	if len(source) > 0 {
		srcs := make([]any, len(source))
		for i, s := range source {
			srcs[i] = s
		}
		m["source"] = srcs
	}
	if description != "" {
		m["description"] = description
	}
	return m
}

// Section returns a named top-level section of a canonical structure, or nil.
func Section(comp map[string]any, name string) map[string]any {
	if comp == nil {
		return nil
	}
	sec, _ := comp[name].(map[string]any)
	return sec
}

// Lookup resolves a "section.field" path against a canonical structure.
// Returns the raw (possibly wrapped) field, or nil if any hop is absent.
func Lookup(comp map[string]any, path string) any {
	sec, field, ok := strings.Cut(path, ".")
	if !ok {
		if comp == nil {
			return nil
		}
		return comp[sec]
	}
	section := Section(comp, sec)
	if section == nil {
		return nil
	}
	return section[field]
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
