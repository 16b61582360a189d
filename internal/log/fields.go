// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldTaskID   = "task_id"
	FieldConsumer = "consumer"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldKind      = "kind"

	// Resource fields
	FieldResource = "resource"
	FieldSector   = "sector"
	FieldObjects  = "objects"
	FieldPath     = "path"

	// Accounting fields
	FieldPosted    = "posted"
	FieldProcessed = "processed"
	FieldQueued    = "queued"
	FieldCompleted = "completed"
	FieldFailed    = "failed"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
)
