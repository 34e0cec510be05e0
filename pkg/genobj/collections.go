package genobj

import (
	"fmt"
	"reflect"
)

// Entry is a key and value of a map built with Map.
type Entry struct {
	Key   any
	Value any
}

// Slice creates a value of the slice type name holding elems. Elements may
// be *Wrapped.
func Slice(name string, elems ...any) *Wrapped {
	t := collectionType(name, reflect.Slice)
	v := reflect.MakeSlice(t, len(elems), len(elems))
	for i, e := range elems {
		if err := assign(v.Index(i), e); err != nil {
			panic(fmt.Errorf("element %d of %s: %w", i, name, err))
		}
	}
	return &Wrapped{v: v}
}

// Array creates a value of the array type name. Elements past elems keep
// their zero value.
func Array(name string, elems ...any) *Wrapped {
	t := collectionType(name, reflect.Array)
	if len(elems) > t.Len() {
		panic(fmt.Errorf("%w: %d elements for %s", ErrIncompatible, len(elems), name))
	}
	v := reflect.New(t).Elem()
	for i, e := range elems {
		if err := assign(v.Index(i), e); err != nil {
			panic(fmt.Errorf("element %d of %s: %w", i, name, err))
		}
	}
	return &Wrapped{v: v}
}

// Set creates a value of the map type name holding elems as keys. Keys map
// to true for bool values and to the zero value otherwise.
func Set(name string, elems ...any) *Wrapped {
	t := collectionType(name, reflect.Map)
	present := reflect.Zero(t.Elem())
	if t.Elem().Kind() == reflect.Bool {
		present = reflect.ValueOf(true).Convert(t.Elem())
	}
	v := reflect.MakeMapWithSize(t, len(elems))
	key := reflect.New(t.Key()).Elem()
	for i, e := range elems {
		if err := assign(key, e); err != nil {
			panic(fmt.Errorf("element %d of %s: %w", i, name, err))
		}
		v.SetMapIndex(key, present)
	}
	return &Wrapped{v: v}
}

// Map creates a value of the map type name holding entries.
func Map(name string, entries ...Entry) *Wrapped {
	t := collectionType(name, reflect.Map)
	v := reflect.MakeMapWithSize(t, len(entries))
	key := reflect.New(t.Key()).Elem()
	value := reflect.New(t.Elem()).Elem()
	for i, e := range entries {
		if err := assign(key, e.Key); err != nil {
			panic(fmt.Errorf("key %d of %s: %w", i, name, err))
		}
		if err := assign(value, e.Value); err != nil {
			panic(fmt.Errorf("value %d of %s: %w", i, name, err))
		}
		v.SetMapIndex(key, value)
	}
	return &Wrapped{v: v}
}

func collectionType(name string, kind reflect.Kind) reflect.Type {
	t, err := lookup(name)
	if err != nil {
		panic(err)
	}
	if t.Kind() != kind {
		panic(fmt.Errorf("%w: %s is not a %s", ErrIncompatible, name, kind))
	}
	return t
}
