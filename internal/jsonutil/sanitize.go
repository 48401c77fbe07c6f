// Package jsonutil prepares arbitrary structured bags for the persistence
// layer, which only accepts JSON-safe values.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Sanitize recursively converts v into a tree of JSON-safe primitives:
// timestamps become RFC 3339 strings, UUIDs become their string form,
// structs and maps become map[string]any, slices become []any. Values that
// cannot be represented fall back to their fmt representation rather than
// failing.
func Sanitize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(time.RFC3339)
	case uuid.UUID:
		return val.String()
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case json.RawMessage:
		var out any
		if err := json.Unmarshal(val, &out); err != nil {
			return string(val)
		}
		return out
	case error:
		return val.Error()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Sanitize(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Sanitize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		for _, key := range rv.MapKeys() {
			out[fmt.Sprintf("%v", key.Interface())] = Sanitize(rv.MapIndex(key).Interface())
		}
		return out
	case reflect.Struct:
		// round-trip through encoding/json to honor tags and omitempty
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		var out any
		if err := json.Unmarshal(b, &out); err != nil {
			return fmt.Sprintf("%v", v)
		}
		return out
	case reflect.String:
		return rv.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// SanitizeMap sanitizes every value of a string-keyed bag.
func SanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Sanitize(v)
	}
	return out
}
