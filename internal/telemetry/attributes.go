// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across packages.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	GenerateModelKey    = "nimbus.generate.model"
	GenerateFilesKey    = "nimbus.generate.files"
	GenerateCacheHitKey = "nimbus.generate.cache_hit"
	GenerateSharedKey   = "nimbus.generate.shared"

	UserIDKey   = "nimbus.user_id"
	ThreadIDKey = "nimbus.thread_id"

	KnowledgeQueryLenKey = "nimbus.knowledge.query_len"
	KnowledgeResultsKey  = "nimbus.knowledge.results"

	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates server span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// GenerateAttributes describes one upstream generate call.
func GenerateAttributes(model string, files int, cacheHit bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(GenerateModelKey, model),
		attribute.Int(GenerateFilesKey, files),
		attribute.Bool(GenerateCacheHitKey, cacheHit),
	}
}

// OwnerAttributes tags a span with the acting user and, when set, a thread.
func OwnerAttributes(userID, threadID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if userID != "" {
		attrs = append(attrs, attribute.String(UserIDKey, userID))
	}
	if threadID != "" {
		attrs = append(attrs, attribute.String(ThreadIDKey, threadID))
	}
	return attrs
}

// ErrorAttributes classifies a failure without recording its message.
func ErrorAttributes(kind string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(ErrorTypeKey, kind)}
}
