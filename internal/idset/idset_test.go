package idset

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, []string{}},
		{"keeps order", []string{"b", "a", "c"}, []string{"b", "a", "c"}},
		{"drops repeats", []string{"a", "b", "a", "b"}, []string{"a", "b"}},
		{"drops empty ids", []string{"", "a", ""}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Of(tt.in...).IDs()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Of(%v).IDs() = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAddIsIdempotent(t *testing.T) {
	s := Of("alice")
	once := s.Add("bob")
	twice := once.Add("bob")

	if twice.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", twice.Len())
	}
	if !twice.Has("bob") {
		t.Error("expected set to contain bob")
	}
	if s.Has("bob") {
		t.Error("Add must not modify the receiver")
	}
}

func TestRemove(t *testing.T) {
	s := Of("a", "b", "c")
	got := s.Remove("b")

	if !reflect.DeepEqual(got.IDs(), []string{"a", "c"}) {
		t.Errorf("Remove(b) = %v, want [a c]", got.IDs())
	}
	if !s.Has("b") {
		t.Error("Remove must not modify the receiver")
	}
	if got.Has("b") {
		t.Error("removed id still reported by Has")
	}

	same := got.Remove("missing")
	if !same.Equal(got) {
		t.Errorf("Remove(missing) changed the set: %v", same.IDs())
	}
}

func TestIDsReturnsCopy(t *testing.T) {
	s := Of("a", "b")
	ids := s.IDs()
	ids[0] = "z"

	if s.IDs()[0] != "a" {
		t.Error("mutating IDs() result leaked into the set")
	}
}

func TestEqualIgnoresOrder(t *testing.T) {
	if !Of("a", "b").Equal(Of("b", "a")) {
		t.Error("expected sets with same members to be equal")
	}
	if Of("a").Equal(Of("a", "b")) {
		t.Error("expected sets of different size to differ")
	}
}

func TestJSON(t *testing.T) {
	t.Run("marshal empty set as array", func(t *testing.T) {
		data, err := json.Marshal(Set{})
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if string(data) != "[]" {
			t.Errorf("Marshal(Set{}) = %s, want []", data)
		}
	})

	t.Run("unmarshal collapses repeats", func(t *testing.T) {
		var s Set
		if err := json.Unmarshal([]byte(`["x","y","x"]`), &s); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if !reflect.DeepEqual(s.IDs(), []string{"x", "y"}) {
			t.Errorf("Unmarshal = %v, want [x y]", s.IDs())
		}
	})

	t.Run("struct field round trip", func(t *testing.T) {
		type holder struct {
			Members Set `json:"members"`
		}
		data, err := json.Marshal(holder{Members: Of("m1", "m2")})
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if string(data) != `{"members":["m1","m2"]}` {
			t.Errorf("Marshal = %s", data)
		}
	})
}

func TestAddKeepsIndexInStep(t *testing.T) {
	var s Set
	base := s.Add("a").Add("b")
	left := base.Add("c")
	right := base.Add("d")

	tests := []struct {
		name   string
		set    Set
		want   []string
		absent string
	}{
		{"base", base, []string{"a", "b"}, "c"},
		{"left branch", left, []string{"a", "b", "c"}, "d"},
		{"right branch", right, []string{"a", "b", "d"}, "c"},
		{"remove then add", left.Remove("a").Add("e"), []string{"b", "c", "e"}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.IDs(); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("IDs() = %v, want %v", got, tt.want)
			}
			for i, id := range tt.want {
				if pos, ok := tt.set.index[id]; !ok || pos != i {
					t.Errorf("index[%q] = %d, %v, want %d", id, pos, ok, i)
				}
			}
			if tt.set.Has(tt.absent) {
				t.Errorf("Has(%q) = true on another branch's id", tt.absent)
			}
			if got := tt.set.Remove(tt.want[0]).IDs(); !reflect.DeepEqual(got, tt.want[1:]) {
				t.Errorf("Remove(%q) = %v, want %v", tt.want[0], got, tt.want[1:])
			}
		})
	}
}
