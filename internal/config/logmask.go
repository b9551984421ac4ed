// SPDX-License-Identifier: MIT

package config

import (
	"reflect"
	"strings"
)

const masked = "***"

var secretMarkers = [...]string{"password", "passwd", "secret", "token", "apikey", "api_key", "credential"}

func isSensitiveKey(name string) bool {
	name = strings.ToLower(name)
	for _, m := range secretMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// MaskSecret keeps "set" and "unset" distinguishable without revealing the value.
func MaskSecret(v string) string {
	if v == "" {
		return ""
	}
	return masked
}

// MaskSecrets returns a JSON-friendly copy of data in which every string
// field or map entry with a secret-looking name is masked. Structs become
// map[string]any keyed by Go field name.
func MaskSecrets(data any) any {
	if data == nil {
		return nil
	}
	return maskValue(reflect.ValueOf(data))
}

func maskValue(v reflect.Value) any {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		out := map[string]any{}
		t := v.Type()
		for i := range t.NumField() {
			if f := t.Field(i); f.IsExported() {
				out[f.Name] = maskNamed(f.Name, v.Field(i))
			}
		}
		return out
	case reflect.Map:
		out := make(map[string]any, v.Len())
		for k, mv := range v.Seq2() {
			out[k.String()] = maskNamed(k.String(), mv)
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, v.Len())
		for i := range v.Len() {
			out[i] = maskValue(v.Index(i))
		}
		return out
	default:
		return v.Interface()
	}
}

func maskNamed(name string, v reflect.Value) any {
	if isSensitiveKey(name) && v.Kind() == reflect.String {
		return MaskSecret(v.String())
	}
	return maskValue(v)
}
