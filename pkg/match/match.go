// Package match provides the matchers generated tests assert with. Matcher
// arguments that are not matchers themselves are compared for equality, nil
// arguments match nil values.
package match

import (
	"fmt"
	"math"
	"math/big"
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Matcher checks a value.
type Matcher interface {
	Matches(actual any) bool
	String() string
}

// TB is the part of testing.TB Assert needs.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
}

// Assert reports an error on t when actual does not satisfy m.
func Assert(t TB, actual any, m Matcher) {
	t.Helper()
	if !m.Matches(actual) {
		t.Errorf("expected %s\n     got %#v", m, actual)
	}
}

// of turns a matcher argument into a matcher.
func of(x any) Matcher {
	switch x := x.(type) {
	case Matcher:
		return x
	case nil:
		return Nil()
	}
	return EqualTo(x)
}

func all(xs []any) []Matcher {
	out := make([]Matcher, len(xs))
	for i, x := range xs {
		out[i] = of(x)
	}
	return out
}

type funcMatcher struct {
	desc  string
	match func(actual any) bool
}

func (m funcMatcher) Matches(actual any) bool { return m.match(actual) }
func (m funcMatcher) String() string          { return m.desc }

// Any matches every value.
func Any() Matcher {
	return funcMatcher{desc: "Any()", match: func(any) bool { return true }}
}

// Nil matches nil and nil pointers, slices, maps, channels, functions and
// interfaces.
func Nil() Matcher {
	return funcMatcher{desc: "Nil()", match: isNil}
}

func isNil(x any) bool {
	if x == nil {
		return true
	}
	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// EqualTo matches values deeply equal to expected. Numbers and strings are
// converted to the type of the actual value first, so untyped constants
// match named and sized types.
func EqualTo(expected any) Matcher {
	return funcMatcher{
		desc:  fmt.Sprintf("EqualTo(%#v)", expected),
		match: func(actual any) bool { return equal(expected, actual) },
	}
}

var equalOptions = cmp.Options{
	cmp.Exporter(func(reflect.Type) bool { return true }),
	cmp.Comparer(func(a, b *big.Int) bool { return a == b || (a != nil && b != nil && a.Cmp(b) == 0) }),
	cmp.Comparer(func(a, b *big.Float) bool { return a == b || (a != nil && b != nil && a.Cmp(b) == 0) }),
	cmp.Comparer(func(a, b *big.Rat) bool { return a == b || (a != nil && b != nil && a.Cmp(b) == 0) }),
	cmp.Comparer(func(a, b reflect.Type) bool { return a == b }),
	cmpopts.EquateNaNs(),
}

func equal(expected, actual any) bool {
	if expected == nil || actual == nil {
		return isNil(expected) && isNil(actual)
	}
	ev, av := reflect.ValueOf(expected), reflect.ValueOf(actual)
	if ev.Type() != av.Type() && basicFamily(ev.Kind()) != reflect.Invalid &&
		basicFamily(ev.Kind()) == basicFamily(av.Kind()) && ev.Type().ConvertibleTo(av.Type()) {
		converted, ok := convertExact(ev, av.Type())
		if !ok {
			return false
		}
		expected = converted.Interface()
	}
	return cmp.Equal(expected, actual, equalOptions)
}

// convertExact converts v to t when t represents the value of v exactly.
func convertExact(v reflect.Value, t reflect.Type) (reflect.Value, bool) {
	c := v.Convert(t)
	back := c.Convert(v.Type())
	if !back.Equal(v) && !(isNaN(v) && isNaN(back)) {
		return reflect.Value{}, false
	}
	// -1 survives a round trip through uint64
	if sign(v) != sign(c) {
		return reflect.Value{}, false
	}
	return c, true
}

func sign(v reflect.Value) int {
	switch {
	case v.CanInt():
		return cmpZero(float64(v.Int()))
	case v.CanUint():
		return cmpZero(float64(v.Uint()))
	case v.CanFloat():
		return cmpZero(v.Float())
	}
	return 0
}

func cmpZero(f float64) int {
	switch {
	case f < 0:
		return -1
	case f > 0:
		return 1
	}
	return 0
}

func isNaN(v reflect.Value) bool {
	return v.CanFloat() && math.IsNaN(v.Float())
}

// basicFamily groups kinds whose values convert without changing meaning.
func basicFamily(k reflect.Kind) reflect.Kind {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return reflect.Float64
	case reflect.Complex64, reflect.Complex128:
		return reflect.Complex128
	case reflect.Bool, reflect.String:
		return k
	}
	return reflect.Invalid
}
