// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldBoothID   = "booth_id"
	FieldRenderID  = "render_id"
	FieldWishID    = "wish_id"
	FieldPhotoID   = "photo_id"

	FieldEvent     = "event"
	FieldComponent = "component"

	// Booth pipeline fields
	FieldShot       = "shot"
	FieldShots      = "shots"
	FieldAttempt    = "attempt"
	FieldPhase      = "phase"
	FieldResolution = "resolution"
	FieldDevice     = "device"
	FieldReason     = "reason"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Storage fields
	FieldPath  = "path"
	FieldBytes = "bytes"
	FieldKey   = "key"
)
