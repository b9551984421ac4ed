// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldThreadID  = "thread_id"
	FieldAgentID   = "agent_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldService   = "service"
	FieldVersion   = "version"

	// Generation fields
	FieldModel    = "model"
	FieldCacheHit = "cache_hit"

	// HTTP fields
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldRoute      = "route"
	FieldStatus     = "status"
	FieldRemoteAddr = "remote_addr"
	FieldDuration   = "duration"
	FieldBytes      = "bytes"
)
