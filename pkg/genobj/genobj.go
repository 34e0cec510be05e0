// Package genobj builds objects reflectively for generated test code. It
// reaches types and fields that generated code cannot name: unexported
// types, types of internal packages and unexported fields.
//
// Types are looked up by qualified name and have to be registered first,
// usually from an init function in a test file of the package that owns
// them:
//
//	func init() {
//		genobj.Register[cart]()
//		genobj.RegisterConstructor(newCart)
//	}
//
// The functions called from generated code panic on failure.
package genobj

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"unsafe"
)

var (
	ErrUnknownType  = errors.New("genobj: unknown type")
	ErrUnknownField = errors.New("genobj: unknown field")
	ErrUnknownEnum  = errors.New("genobj: unknown enum constant")
	ErrIncompatible = errors.New("genobj: incompatible value")
)

// Fields maps field names to values. Values may be *Wrapped.
type Fields map[string]any

// Wrapped holds a value whose type generated code cannot name.
type Wrapped struct {
	v reflect.Value
}

// Value returns the wrapped value.
func (w *Wrapped) Value() any { return w.v.Interface() }

// Reflect returns the wrapped value as a reflect.Value.
func (w *Wrapped) Reflect() reflect.Value { return w.v }

// Forward allocates an empty instance of the pointer type name, to be filled
// with Define once the values it refers to exist.
func Forward(name string) *Wrapped {
	t, err := lookup(name)
	if err != nil {
		panic(err)
	}
	if t.Kind() != reflect.Pointer {
		panic(fmt.Sprintf("genobj: cannot forward non-pointer type %s", name))
	}
	return &Wrapped{v: alloc(t)}
}

// Define sets fields on the object target points to. target is a pointer or
// a *Wrapped holding one.
func Define(target any, fields Fields) {
	v := unwrap(target)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		panic(fmt.Sprintf("genobj: cannot define %T, need a non-nil pointer", target))
	}
	if err := setFields(v.Elem(), fields); err != nil {
		panic(err)
	}
}

// New creates an instance of the type name with fields set.
func New(name string, fields Fields) *Wrapped {
	t, err := lookup(name)
	if err != nil {
		panic(err)
	}
	v, err := create(t, fields)
	if err != nil {
		panic(err)
	}
	return &Wrapped{v: v}
}

// Build creates a T with fields set, including unexported ones.
func Build[T any](fields Fields) T {
	v, err := create(reflect.TypeFor[T](), fields)
	if err != nil {
		panic(err)
	}
	return v.Interface().(T)
}

func create(t reflect.Type, fields Fields) (reflect.Value, error) {
	v, err := instantiate(t)
	if err != nil {
		return reflect.Value{}, err
	}
	target := v
	if target.Kind() == reflect.Pointer {
		target = target.Elem()
	}
	if !target.CanAddr() {
		// constructors return unaddressable struct values
		c := reflect.New(target.Type()).Elem()
		c.Set(target)
		target, v = c, c
	}
	if err := setFields(target, fields); err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}

// setFields assigns fields on the addressable struct s in name order.
func setFields(s reflect.Value, fields Fields) error {
	if s.Kind() != reflect.Struct {
		if len(fields) == 0 {
			return nil
		}
		return fmt.Errorf("%w: %s is not a struct", ErrIncompatible, QualifiedName(s.Type()))
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := s.FieldByName(name)
		if !f.IsValid() {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, QualifiedName(s.Type()), name)
		}
		if err := assign(writable(f), fields[name]); err != nil {
			return fmt.Errorf("field %s.%s: %w", QualifiedName(s.Type()), name, err)
		}
	}
	return nil
}

// writable returns a settable view of the addressable field f, unexported
// or not.
func writable(f reflect.Value) reflect.Value {
	if f.CanSet() {
		return f
	}
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
}

func unwrap(x any) reflect.Value {
	if w, ok := x.(*Wrapped); ok {
		return w.v
	}
	return reflect.ValueOf(x)
}

// assign stores raw in dst, converting between types of the same kind
// family: numbers to numbers, strings to strings, and identical underlying
// types.
func assign(dst reflect.Value, raw any) error {
	if raw == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	v := unwrap(raw)
	if v.Type().AssignableTo(dst.Type()) {
		dst.Set(v)
		return nil
	}
	if compatible(v.Type(), dst.Type()) && v.Type().ConvertibleTo(dst.Type()) {
		dst.Set(v.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("%w: %s to %s", ErrIncompatible, QualifiedName(v.Type()), QualifiedName(dst.Type()))
}

func compatible(from, to reflect.Type) bool {
	return family(from.Kind()) == family(to.Kind())
}

func family(k reflect.Kind) reflect.Kind {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return reflect.Float64
	case reflect.Complex64:
		return reflect.Complex128
	}
	return k
}
