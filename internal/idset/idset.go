// Package idset provides an immutable, insertion-ordered set of identifiers.
//
// Membership lists (group members, friend lists, an event's expenses) are
// stored as a Set so duplicates cannot be represented at all. Every mutating
// method returns a new Set and leaves the receiver untouched, which lets the
// reducer share unchanged sets between successive states.
package idset

import "encoding/json"

// Set is an ordered collection of unique identifiers. The zero value is an
// empty set ready to use.
type Set struct {
	ids   []string
	index map[string]int
}

// Of builds a set from ids, keeping the first occurrence of each one.
// Empty identifiers are ignored.
func Of(ids ...string) Set {
	var s Set
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := s.index[id]; ok {
			continue
		}
		if s.index == nil {
			s.index = make(map[string]int, len(ids))
		}
		s.index[id] = len(s.ids)
		s.ids = append(s.ids, id)
	}
	return s
}

// Len returns the number of identifiers in the set.
func (s Set) Len() int {
	return len(s.ids)
}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Add returns a set that also contains id. If id is already present (or
// empty) the receiver is returned unchanged.
func (s Set) Add(id string) Set {
	if id == "" || s.Has(id) {
		return s
	}
	ids := make([]string, len(s.ids), len(s.ids)+1)
	copy(ids, s.ids)
	index := make(map[string]int, len(s.ids)+1)
	for k, v := range s.index {
		index[k] = v
	}
	index[id] = len(ids)
	return Set{ids: append(ids, id), index: index}
}

// Remove returns a set without id. If id is absent the receiver is returned
// unchanged.
func (s Set) Remove(id string) Set {
	pos, ok := s.index[id]
	if !ok {
		return s
	}
	ids := make([]string, 0, len(s.ids)-1)
	ids = append(ids, s.ids[:pos]...)
	ids = append(ids, s.ids[pos+1:]...)
	return Of(ids...)
}

// IDs returns a copy of the identifiers in insertion order.
func (s Set) IDs() []string {
	if len(s.ids) == 0 {
		return []string{}
	}
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Equal reports whether both sets hold the same identifiers, ignoring order.
func (s Set) Equal(other Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, id := range s.ids {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a JSON array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON decodes a JSON array, collapsing repeated identifiers.
func (s *Set) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = Of(ids...)
	return nil
}
