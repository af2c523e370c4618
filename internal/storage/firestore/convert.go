package firestore

import (
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"

	"github.com/mmynk/justsplit/internal/storage"
)

// toFirestore maps storage sentinels onto their Firestore counterparts.
func toFirestore(data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for k, v := range data {
		conv, err := toValue(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = conv
	}
	return out, nil
}

func toValue(field string, v any) (any, error) {
	if storage.IsAbsent(v) {
		return nil, fmt.Errorf("%w (field %q)", storage.ErrAbsentValue, field)
	}
	if storage.IsServerTimestamp(v) {
		return firestore.ServerTimestamp, nil
	}
	switch val := v.(type) {
	case storage.ArrayUnionValue:
		return firestore.ArrayUnion(val.Elems...), nil
	case storage.ArrayRemoveValue:
		return firestore.ArrayRemove(val.Elems...), nil
	case map[string]any:
		return toFirestore(val)
	default:
		return v, nil
	}
}

// toUpdates turns a merge payload into field updates, sorted by path so
// the request is deterministic.
func toUpdates(data map[string]any) ([]firestore.Update, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		v, err := toValue(k, data[k])
		if err != nil {
			return nil, err
		}
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	return updates, nil
}
