// SPDX-License-Identifier: MIT

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestGenerateAttributes(t *testing.T) {
	m := attrMap(GenerateAttributes("aviyon1.2", 2, true))
	assert.Equal(t, "aviyon1.2", m[GenerateModelKey].AsString())
	assert.Equal(t, int64(2), m[GenerateFilesKey].AsInt64())
	assert.True(t, m[GenerateCacheHitKey].AsBool())
}

func TestOwnerAttributes(t *testing.T) {
	assert.Empty(t, OwnerAttributes("", ""))

	m := attrMap(OwnerAttributes("u1", "t1"))
	assert.Equal(t, "u1", m[UserIDKey].AsString())
	assert.Equal(t, "t1", m[ThreadIDKey].AsString())

	assert.Len(t, OwnerAttributes("u1", ""), 1)
}

func TestHTTPAttributes(t *testing.T) {
	m := attrMap(HTTPAttributes("GET", "/threads/{id}", 200))
	assert.Equal(t, "GET", m[HTTPMethodKey].AsString())
	assert.Equal(t, "/threads/{id}", m[HTTPRouteKey].AsString())
	assert.Equal(t, int64(200), m[HTTPStatusCodeKey].AsInt64())
}
