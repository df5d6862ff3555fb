// Package payload provides helpers for actions whose payloads are JSON
// documents (string or []byte), the common case when dispatches originate
// from UI bindings or the wire.
//
// Conditions built here plug into HandlerConfig.Condition; modifiers plug
// into Controller.ModifyPayload:
//
//	eng.Register("user.update", handler, &actionpipe.HandlerConfig{
//	    Condition: payload.Match("user.role", "admin"),
//	})
//
//	pc.ModifyPayload(payload.Set("user.verified", true))
package payload

import (
	"reflect"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/actionpipe/actionpipe"
)

// raw extracts the JSON text from a payload. Non-JSON payload kinds report
// ok=false.
func raw(p any) (string, bool) {
	switch v := p.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

// Get resolves a gjson path against a JSON payload. Non-JSON payloads
// yield a non-existent result.
func Get(p any, path string) gjson.Result {
	doc, ok := raw(p)
	if !ok {
		return gjson.Result{}
	}
	return gjson.Get(doc, path)
}

// Exists returns a condition that is true when the path resolves in the
// payload. Non-JSON payloads never match.
func Exists(path string) actionpipe.Condition {
	return func(p any) bool {
		return Get(p, path).Exists()
	}
}

// Match returns a condition that is true when the value at path equals
// want. Numeric values compare as float64, the JSON number representation.
func Match(path string, want any) actionpipe.Condition {
	want = normalize(want)
	return func(p any) bool {
		r := Get(p, path)
		if !r.Exists() {
			return false
		}
		return reflect.DeepEqual(normalize(r.Value()), want)
	}
}

// Set returns a payload modifier that writes v at path. Payloads that are
// not JSON text pass through unchanged, as do documents sjson rejects.
func Set(path string, v any) func(any) any {
	return func(p any) any {
		doc, ok := raw(p)
		if !ok {
			return p
		}
		updated, err := sjson.Set(doc, path, v)
		if err != nil {
			return p
		}
		return sameKind(p, updated)
	}
}

// Delete returns a payload modifier that removes the value at path.
func Delete(path string) func(any) any {
	return func(p any) any {
		doc, ok := raw(p)
		if !ok {
			return p
		}
		updated, err := sjson.Delete(doc, path)
		if err != nil {
			return p
		}
		return sameKind(p, updated)
	}
}

// sameKind returns the updated document in the payload's original kind.
func sameKind(original any, updated string) any {
	if _, isBytes := original.([]byte); isBytes {
		return []byte(updated)
	}
	return updated
}

// normalize folds numeric types to float64 so comparisons against JSON
// numbers behave intuitively.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}
