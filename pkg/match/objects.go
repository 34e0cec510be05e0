package match

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unsafe"

	"github.com/speakeasy-api/testrecorder/pkg/genobj"
)

// Fields maps struct field names to matcher arguments. Unexported fields
// are read too.
type Fields map[string]any

func (f Fields) String() string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + of(f[name]).String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (f Fields) matches(v reflect.Value) bool {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return false
	}
	v = addressable(v)
	for name, want := range f {
		fv := v.FieldByName(name)
		if !fv.IsValid() {
			return false
		}
		if !of(want).Matches(readable(fv).Interface()) {
			return false
		}
	}
	return true
}

func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

func readable(f reflect.Value) reflect.Value {
	if f.CanInterface() {
		return f
	}
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
}

// Object matches values of type T whose fields match fields.
func Object[T any](fields Fields) Matcher {
	return funcMatcher{
		desc: fmt.Sprintf("Object[%s]%s", reflect.TypeFor[T](), fields),
		match: func(actual any) bool {
			if _, ok := actual.(T); !ok {
				return false
			}
			return fields.matches(reflect.ValueOf(actual))
		},
	}
}

// Generic matches values whose qualified type name is typeName and whose
// fields match fields.
func Generic(typeName string, fields Fields) Matcher {
	return funcMatcher{
		desc: fmt.Sprintf("Generic(%q)%s", typeName, fields),
		match: func(actual any) bool {
			return actual != nil && genobj.QualifiedName(reflect.TypeOf(actual)) == typeName &&
				fields.matches(reflect.ValueOf(actual))
		},
	}
}

// Recursive matches any value of type T. It stands for a value that is
// checked completely elsewhere in the same matcher.
func Recursive[T any]() Matcher {
	return funcMatcher{
		desc: fmt.Sprintf("Recursive[%s]()", reflect.TypeFor[T]()),
		match: func(actual any) bool {
			_, ok := actual.(T)
			return ok
		},
	}
}

// RecursiveOf is Recursive for a type given by qualified name.
func RecursiveOf(typeName string) Matcher {
	return funcMatcher{
		desc: fmt.Sprintf("RecursiveOf(%q)", typeName),
		match: func(actual any) bool {
			return actual != nil && genobj.QualifiedName(reflect.TypeOf(actual)) == typeName
		},
	}
}

// Enum matches the constant registered with genobj under name.
func Enum(name string) Matcher {
	return funcMatcher{
		desc:  fmt.Sprintf("Enum(%q)", name),
		match: func(actual any) bool { return genobj.EnumName(actual) == name },
	}
}
