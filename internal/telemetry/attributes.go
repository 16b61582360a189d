// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the engine.
const (
	// Task attributes
	TaskKindKey  = "task.kind"
	TaskNameKey  = "task.resource"
	TaskIDKey    = "task.id"
	TaskItemsKey = "task.items"

	// Sector attributes
	SectorNameKey  = "sector.name"
	SectorWaterKey = "sector.water"
	CacheResultKey = "sector.cache"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// TaskAttributes creates loader-task span attributes. Empty values are skipped.
func TaskAttributes(kind, name, id string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if kind != "" {
		attrs = append(attrs, attribute.String(TaskKindKey, kind))
	}
	if name != "" {
		attrs = append(attrs, attribute.String(TaskNameKey, name))
	}
	if id != "" {
		attrs = append(attrs, attribute.String(TaskIDKey, id))
	}
	return attrs
}

// SectorAttributes creates terrain-sector span attributes.
func SectorAttributes(name string, water bool, cacheResult string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SectorNameKey, name),
		attribute.Bool(SectorWaterKey, water),
		attribute.String(CacheResultKey, cacheResult),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
