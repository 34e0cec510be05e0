package match

import (
	"fmt"
	"reflect"
	"strings"
)

func describe(name string, ms []Matcher) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.String()
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func sequence(actual any, kinds ...reflect.Kind) (reflect.Value, bool) {
	if actual == nil {
		return reflect.Value{}, false
	}
	v := reflect.ValueOf(actual)
	for _, k := range kinds {
		if v.Kind() == k {
			return v, true
		}
	}
	return reflect.Value{}, false
}

// Empty matches empty slices, maps, arrays and strings.
func Empty() Matcher {
	return funcMatcher{desc: "Empty()", match: func(actual any) bool {
		v, ok := sequence(actual, reflect.Slice, reflect.Map, reflect.Array, reflect.String)
		return ok && v.Len() == 0
	}}
}

func inOrder(ms []Matcher, kinds ...reflect.Kind) func(any) bool {
	return func(actual any) bool {
		v, ok := sequence(actual, kinds...)
		if !ok || v.Len() != len(ms) {
			return false
		}
		for i, m := range ms {
			if !m.Matches(v.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
}

// ContainsInOrder matches slices and arrays with exactly the given elements
// in order.
func ContainsInOrder(elems ...any) Matcher {
	ms := all(elems)
	return funcMatcher{desc: describe("ContainsInOrder", ms), match: inOrder(ms, reflect.Slice, reflect.Array)}
}

// ContainsInAnyOrder matches slices, arrays and sets (the keys of a map)
// holding exactly the given elements in some order.
func ContainsInAnyOrder(elems ...any) Matcher {
	ms := all(elems)
	return funcMatcher{desc: describe("ContainsInAnyOrder", ms), match: func(actual any) bool {
		v, ok := sequence(actual, reflect.Slice, reflect.Array, reflect.Map)
		if !ok || v.Len() != len(ms) {
			return false
		}
		var items []any
		if v.Kind() == reflect.Map {
			for _, k := range v.MapKeys() {
				items = append(items, k.Interface())
			}
		} else {
			for i := 0; i < v.Len(); i++ {
				items = append(items, v.Index(i).Interface())
			}
		}
		return bipartite(len(ms), len(items), func(i, j int) bool { return ms[i].Matches(items[j]) })
	}}
}

// EntryMatcher matches one key/value pair of a map.
type EntryMatcher struct {
	Key   Matcher
	Value Matcher
}

func (e EntryMatcher) String() string { return e.Key.String() + ": " + e.Value.String() }

// Entry creates an entry matcher from matcher arguments.
func Entry(key, value any) EntryMatcher {
	return EntryMatcher{Key: of(key), Value: of(value)}
}

// NoEntries matches empty maps.
func NoEntries() Matcher {
	return funcMatcher{desc: "NoEntries()", match: func(actual any) bool {
		v, ok := sequence(actual, reflect.Map)
		return ok && v.Len() == 0
	}}
}

// ContainsEntries matches maps holding exactly the given entries.
func ContainsEntries(entries ...EntryMatcher) Matcher {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.String()
	}
	return funcMatcher{
		desc: "ContainsEntries(" + strings.Join(parts, ", ") + ")",
		match: func(actual any) bool {
			v, ok := sequence(actual, reflect.Map)
			if !ok || v.Len() != len(entries) {
				return false
			}
			keys := v.MapKeys()
			return bipartite(len(entries), len(keys), func(i, j int) bool {
				return entries[i].Key.Matches(keys[j].Interface()) && entries[i].Value.Matches(v.MapIndex(keys[j]).Interface())
			})
		},
	}
}

// EmptyArray matches arrays of length zero.
func EmptyArray() Matcher {
	return funcMatcher{desc: "EmptyArray()", match: func(actual any) bool {
		v, ok := sequence(actual, reflect.Array, reflect.Slice)
		return ok && v.Len() == 0
	}}
}

// PrimitiveArray matches arrays of basic values element by element.
func PrimitiveArray(elems ...any) Matcher {
	ms := make([]Matcher, len(elems))
	for i, e := range elems {
		ms[i] = EqualTo(e)
	}
	return funcMatcher{desc: fmt.Sprintf("PrimitiveArray%v", elems), match: inOrder(ms, reflect.Array, reflect.Slice)}
}

// ArrayContaining matches arrays whose elements match elems position by
// position.
func ArrayContaining(elems ...any) Matcher {
	ms := all(elems)
	return funcMatcher{desc: describe("ArrayContaining", ms), match: inOrder(ms, reflect.Array, reflect.Slice)}
}

// bipartite reports whether every left node can be paired with a distinct
// right node it accepts. n and m are expected to be equal.
func bipartite(n, m int, accepts func(i, j int) bool) bool {
	owner := make([]int, m)
	for j := range owner {
		owner[j] = -1
	}
	var augment func(i int, seen []bool) bool
	augment = func(i int, seen []bool) bool {
		for j := 0; j < m; j++ {
			if seen[j] || !accepts(i, j) {
				continue
			}
			seen[j] = true
			if owner[j] < 0 || augment(owner[j], seen) {
				owner[j] = i
				return true
			}
		}
		return false
	}
	for i := 0; i < n; i++ {
		if !augment(i, make([]bool, m)) {
			return false
		}
	}
	return true
}
