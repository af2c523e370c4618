package sqlite

import (
	"fmt"
	"reflect"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/mmynk/justsplit/internal/storage"
)

// timestampKey tags a JSON object that stands for a native timestamp.
const timestampKey = "$timestamp"

// encodeDoc converts a payload into a JSON-ready map. Timestamps become
// tagged objects, transforms are resolved against an empty array, and the
// Absent marker is rejected.
func encodeDoc(data map[string]any, now time.Time) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for k, v := range data {
		enc, err := encodeValue(k, v, now)
		if err != nil {
			return nil, err
		}
		out[k] = enc
	}
	return out, nil
}

func encodeValue(field string, v any, now time.Time) (any, error) {
	if storage.IsAbsent(v) {
		return nil, fmt.Errorf("%w (field %q)", storage.ErrAbsentValue, field)
	}
	if storage.IsServerTimestamp(v) {
		return encodeTime(now), nil
	}

	switch val := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return encodeTime(val), nil
	case *timestamppb.Timestamp:
		if val == nil {
			return nil, nil
		}
		return encodeTime(val.AsTime()), nil
	case storage.ArrayUnionValue:
		return unionInto(nil, val.Elems), nil
	case storage.ArrayRemoveValue:
		return []any{}, nil
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return items, nil
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			enc, err := encodeValue(field, item, now)
			if err != nil {
				return nil, err
			}
			items[i] = enc
		}
		return items, nil
	case map[string]any:
		return encodeDoc(val, now)
	default:
		return v, nil
	}
}

// mergeValue applies an update value on top of the stored one.
func mergeValue(field string, current, v any, now time.Time) (any, error) {
	switch val := v.(type) {
	case storage.ArrayUnionValue:
		existing, _ := current.([]any)
		return unionInto(existing, val.Elems), nil
	case storage.ArrayRemoveValue:
		existing, _ := current.([]any)
		return removeFrom(existing, val.Elems), nil
	default:
		return encodeValue(field, v, now)
	}
}

func encodeTime(t time.Time) map[string]any {
	return map[string]any{timestampKey: t.UTC().Format(time.RFC3339Nano)}
}

// decodeValue turns tagged timestamp objects back into native timestamps.
func decodeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			if raw, ok := val[timestampKey].(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
					return timestamppb.New(t)
				}
			}
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = decodeValue(item)
		}
		return out
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = decodeValue(item)
		}
		return items
	default:
		return v
	}
}

func unionInto(existing []any, elems []any) []any {
	out := make([]any, 0, len(existing)+len(elems))
	out = append(out, existing...)
	for _, e := range elems {
		if !containsValue(out, e) {
			out = append(out, e)
		}
	}
	return out
}

func removeFrom(existing []any, elems []any) []any {
	out := make([]any, 0, len(existing))
	for _, e := range existing {
		if !containsValue(elems, e) {
			out = append(out, e)
		}
	}
	return out
}

func containsValue(items []any, v any) bool {
	for _, item := range items {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}
