package storage

import (
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"
)

type absent struct{}

// Absent marks a payload attribute that has no value at all. Document
// databases reject it, so Sanitize strips such keys before a write. It is
// different from an explicit nil, which is stored as null.
var Absent any = absent{}

// IsAbsent reports whether v is the Absent marker.
func IsAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

// OrAbsent returns s, or Absent when s is empty. Payload builders use it for
// optional string fields.
func OrAbsent(s string) any {
	if s == "" {
		return Absent
	}
	return s
}

// ArrayUnionValue adds elements to an array field, skipping ones already
// present. Only meaningful in Update payloads.
type ArrayUnionValue struct {
	Elems []any
}

// ArrayRemoveValue removes every occurrence of the elements from an array
// field. Only meaningful in Update payloads.
type ArrayRemoveValue struct {
	Elems []any
}

// ArrayUnion returns a transform that adds ids to an array field.
func ArrayUnion(ids ...string) ArrayUnionValue {
	return ArrayUnionValue{Elems: toAny(ids)}
}

// ArrayRemove returns a transform that removes ids from an array field.
func ArrayRemove(ids ...string) ArrayRemoveValue {
	return ArrayRemoveValue{Elems: toAny(ids)}
}

type serverTimestamp struct{}

// ServerTimestamp is replaced by the backend's commit time.
var ServerTimestamp any = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp marker.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Sanitize returns a copy of data without the keys whose value is Absent.
// Nested maps are sanitised too. Explicit nil values are kept.
func Sanitize(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if IsAbsent(v) {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			v = Sanitize(nested)
		}
		out[k] = v
	}
	return out
}

// Normalize returns a copy of data where every native timestamp value
// (time.Time or *timestamppb.Timestamp) is replaced by an ISO-8601 string in
// UTC. Nested maps and slices are walked.
func Normalize(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return FormatTime(val)
	case *time.Time:
		if val == nil {
			return nil
		}
		return FormatTime(*val)
	case *timestamppb.Timestamp:
		if val == nil {
			return nil
		}
		return FormatTime(val.AsTime())
	case map[string]any:
		return Normalize(val)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = normalizeValue(item)
		}
		return items
	default:
		return v
	}
}

// FormatTime renders t the way normalised timestamps are exposed.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toAny(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
