// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestTaskAttributes(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		res     string
		id      string
		wantLen int
	}{
		{name: "all fields", kind: "mob", res: "zone1", id: "abc", wantLen: 3},
		{name: "only kind", kind: "mpr", wantLen: 1},
		{name: "empty fields", wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := TaskAttributes(tt.kind, tt.res, tt.id)
			if len(attrs) != tt.wantLen {
				t.Errorf("Expected %d attributes, got %d", tt.wantLen, len(attrs))
			}
			if tt.kind != "" {
				verifyAttribute(t, attrs, TaskKindKey, tt.kind)
			}
		})
	}
}

func TestSectorAttributes(t *testing.T) {
	attrs := SectorAttributes("zone000001w", true, "hit")
	if len(attrs) != 3 {
		t.Fatalf("Expected 3 attributes, got %d", len(attrs))
	}
	verifyAttribute(t, attrs, SectorNameKey, "zone000001w")
	verifyBoolAttribute(t, attrs, SectorWaterKey, true)
	verifyAttribute(t, attrs, CacheResultKey, "hit")
}

func TestErrorAttributes(t *testing.T) {
	attrs := ErrorAttributes(errors.New("boom"), "load")
	verifyBoolAttribute(t, attrs, ErrorKey, true)
	verifyAttribute(t, attrs, ErrorTypeKey, "load")
}

func findAttribute(t *testing.T, attrs []attribute.KeyValue, key string) attribute.Value {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value
		}
	}
	t.Fatalf("Attribute %s not found", key)
	return attribute.Value{}
}

func verifyAttribute(t *testing.T, attrs []attribute.KeyValue, key, expectedValue string) {
	t.Helper()
	if got := findAttribute(t, attrs, key).AsString(); got != expectedValue {
		t.Errorf("Expected %s=%s, got %s", key, expectedValue, got)
	}
}

func verifyIntAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue int) {
	t.Helper()
	if got := findAttribute(t, attrs, key).AsInt64(); got != int64(expectedValue) {
		t.Errorf("Expected %s=%d, got %d", key, expectedValue, got)
	}
}

func verifyBoolAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue bool) {
	t.Helper()
	if got := findAttribute(t, attrs, key).AsBool(); got != expectedValue {
		t.Errorf("Expected %s=%v, got %v", key, expectedValue, got)
	}
}
