package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wrapped(value any, status string, confidence float64) map[string]any {
	return map[string]any{
		"value":      value,
		"status":     status,
		"confidence": confidence,
		"source":     []any{"homepage"},
	}
}

func TestValue_AcceptsBareAndWrapped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bare string", "Acme", "Acme"},
		{"bare number", 42.0, 42.0},
		{"bare list", []any{"a", "b"}, []any{"a", "b"}},
		{"wrapped string", wrapped("Acme", "found", 0.9), "Acme"},
		{"wrapped nil missing", map[string]any{"value": nil, "status": "missing"}, nil},
		{"status-only wrapper", map[string]any{"status": "missing"}, nil},
		{"plain map passthrough", map[string]any{"tone": "bold"}, map[string]any{"tone": "bold"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Value(tt.in))
		})
	}
}

func TestValue_RoundTripsWrappedPayload(t *testing.T) {
	t.Parallel()

	// For all wrapped inputs, Value(f) == f["value"].
	payloads := []any{"Acme", 3.5, []any{"x"}, map[string]any{"k": "v"}, nil, true}
	for _, p := range payloads {
		f := wrapped(p, "found", 0.8)
		assert.Equal(t, f["value"], Value(f))
	}
}

func TestItems_HandlesContainerShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want []any
	}{
		{"nil", nil, nil},
		{"bare list", []any{"a"}, []any{"a"}},
		{"wrapped list", wrapped([]any{"a", "b"}, "found", 0.9), []any{"a", "b"}},
		{"wrapped items container", wrapped(map[string]any{"items": []any{"a"}}, "found", 0.9), []any{"a"}},
		{"bare items container", map[string]any{"value": map[string]any{"items": []any{1.0, 2.0}}}, []any{1.0, 2.0}},
		{"scalar", "nope", nil},
		{"wrapped scalar", wrapped("nope", "found", 0.5), nil},
		{"container without items", wrapped(map[string]any{"other": 1}, "found", 0.5), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Items(tt.in))
		})
	}
}

func TestMetadata(t *testing.T) {
	t.Parallel()

	meta := Metadata(wrapped("Acme", "inferred", 0.7))
	assert.Equal(t, FieldStatusInferred, meta.Status)
	assert.InDelta(t, 0.7, meta.Confidence, 0.001)
	assert.Equal(t, []string{"homepage"}, meta.Source)

	assert.Equal(t, FieldStatusMissing, Metadata(nil).Status)
	assert.Equal(t, FieldStatusFound, Metadata("bare").Status)

	// String source is tolerated (single-channel legacy payloads).
	m := Metadata(map[string]any{"value": "x", "status": "found", "source": "search_result"})
	assert.Equal(t, []string{"search_result"}, m.Source)
}

func TestMetadata_IntegerConfidence(t *testing.T) {
	t.Parallel()

	// Decoded JSON normally yields float64, but tolerate ints from
	// hand-built patches.
	m := Metadata(map[string]any{"value": "x", "status": "found", "confidence": 1})
	assert.InDelta(t, 1.0, m.Confidence, 0.001)
}

func TestIsPresent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"nil", nil, false},
		{"bare non-empty string", "Acme", true},
		{"bare blank string", "   ", false},
		{"wrapped found", wrapped("Acme", "found", 0.9), true},
		{"wrapped inferred", wrapped("Acme", "inferred", 0.4), true},
		{"wrapped missing", wrapped("Acme", "missing", 0.9), false},
		{"found but empty string", wrapped("", "found", 0.9), false},
		{"found but blank string", wrapped("  ", "found", 0.9), false},
		{"found but empty list", wrapped([]any{}, "found", 0.9), false},
		{"found non-empty list", wrapped([]any{"x"}, "found", 0.9), true},
		{"found but nil payload", map[string]any{"value": nil, "status": "found"}, false},
		{"found empty items container", wrapped(map[string]any{"items": []any{}}, "found", 0.9), false},
		{"found items container", wrapped(map[string]any{"items": []any{"x"}}, "found", 0.9), true},
		{"found number", wrapped(0.0, "found", 0.9), true},
		{"found bool false", wrapped(false, "found", 0.9), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsPresent(tt.in))
		})
	}
}

func TestEnrichedValue(t *testing.T) {
	t.Parallel()

	w := wrapped("Acme", "found", 0.9)
	assert.Equal(t, w, EnrichedValue(w))

	e := EnrichedValue("bare")
	require.NotNil(t, e)
	assert.Equal(t, "bare", e["value"])
	assert.Equal(t, "found", e["status"])

	assert.Nil(t, EnrichedValue(nil))
}

func TestWrap(t *testing.T) {
	t.Parallel()

	w := Wrap("acme.com", FieldStatusFound, 0.8, []string{"homepage"}, "site domain")
	assert.Equal(t, "acme.com", Value(w))
	meta := Metadata(w)
	assert.Equal(t, FieldStatusFound, meta.Status)
	assert.InDelta(t, 0.8, meta.Confidence, 0.001)
	assert.Equal(t, []string{"homepage"}, meta.Source)
	assert.Equal(t, "site domain", meta.Description)

	// Wrapped output survives a JSON round trip unchanged in meaning.
	data, err := json.Marshal(w)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "acme.com", Value(back))
	assert.True(t, IsPresent(back))
}

func TestSectionAndLookup(t *testing.T) {
	t.Parallel()

	comp := map[string]any{
		"meta": map[string]any{
			"brand_name": wrapped("Acme", "found", 0.9),
		},
	}

	require.NotNil(t, Section(comp, "meta"))
	assert.Nil(t, Section(comp, "visual_identity"))
	assert.Nil(t, Section(nil, "meta"))

	assert.Equal(t, "Acme", Value(Lookup(comp, "meta.brand_name")))
	assert.Nil(t, Lookup(comp, "meta.missing_field"))
	assert.Nil(t, Lookup(comp, "absent_section.brand_name"))
	assert.Nil(t, Lookup(nil, "meta.brand_name"))
	assert.NotNil(t, Lookup(comp, "meta"))
}
