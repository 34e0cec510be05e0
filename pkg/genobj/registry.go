package genobj

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

var registry = struct {
	sync.RWMutex
	types map[string]reflect.Type
	ctors map[reflect.Type][]reflect.Value
	enums map[reflect.Type]map[string]reflect.Value
}{
	types: make(map[string]reflect.Type),
	ctors: make(map[reflect.Type][]reflect.Value),
	enums: make(map[reflect.Type]map[string]reflect.Value),
}

// Register makes T known by its qualified name.
func Register[T any]() { RegisterType(reflect.TypeFor[T]()) }

// RegisterType makes t known by its qualified name. Pointer indirections are
// stripped; lookups of *T resolve through T.
func RegisterType(t reflect.Type) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	registry.Lock()
	defer registry.Unlock()
	registry.types[QualifiedName(t)] = t
}

// RegisterConstructor adds fn as a way to create values of its first result
// type. fn may return a second error result.
func RegisterConstructor(fn any) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func || t.NumOut() == 0 || t.NumOut() > 2 {
		panic(fmt.Sprintf("genobj: constructor must be a function with one or two results, got %s", t))
	}
	if t.NumOut() == 2 && t.Out(1) != errorType {
		panic(fmt.Sprintf("genobj: second result of constructor %s must be error", t))
	}
	base := baseType(t.Out(0))
	RegisterType(base)

	registry.Lock()
	defer registry.Unlock()
	registry.ctors[base] = append(registry.ctors[base], v)
}

// RegisterEnum makes the constant value of type T known under name.
func RegisterEnum[T any](name string, value T) {
	t := reflect.TypeFor[T]()
	RegisterType(t)

	registry.Lock()
	defer registry.Unlock()
	m := registry.enums[t]
	if m == nil {
		m = make(map[string]reflect.Value)
		registry.enums[t] = m
	}
	m[name] = reflect.ValueOf(value)
}

func constructors(t reflect.Type) []reflect.Value {
	registry.RLock()
	defer registry.RUnlock()
	return registry.ctors[baseType(t)]
}

// lookup resolves a qualified type name. Pointer, slice, array and map
// forms are composed from the registered types they mention.
func lookup(name string) (reflect.Type, error) {
	switch {
	case strings.HasPrefix(name, "*"):
		t, err := lookup(name[1:])
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(t), nil
	case strings.HasPrefix(name, "[]"):
		t, err := lookup(name[2:])
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(t), nil
	case strings.HasPrefix(name, "["):
		end := strings.IndexByte(name, ']')
		n, err := strconv.Atoi(name[1:max(end, 1)])
		if end < 0 || err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
		}
		t, err := lookup(name[end+1:])
		if err != nil {
			return nil, err
		}
		return reflect.ArrayOf(n, t), nil
	case strings.HasPrefix(name, "map["):
		end := closingBracket(name, len("map"))
		if end < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
		}
		key, err := lookup(name[len("map["):end])
		if err != nil {
			return nil, err
		}
		elem, err := lookup(name[end+1:])
		if err != nil {
			return nil, err
		}
		if !key.Comparable() {
			return nil, fmt.Errorf("%w: %s has an incomparable key", ErrUnknownType, name)
		}
		return reflect.MapOf(key, elem), nil
	}
	if t, ok := predeclared[name]; ok {
		return t, nil
	}
	registry.RLock()
	defer registry.RUnlock()
	if t, ok := registry.types[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
}

// closingBracket returns the index of the ']' matching the '[' at open.
func closingBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var errorType = reflect.TypeFor[error]()

var predeclared = func() map[string]reflect.Type {
	m := make(map[string]reflect.Type)
	for _, v := range []any{
		false, 0, int8(0), int16(0), int32(0), int64(0),
		uint(0), uint8(0), uint16(0), uint32(0), uint64(0), uintptr(0),
		float32(0), float64(0), complex64(0), complex128(0), "",
	} {
		t := reflect.TypeOf(v)
		m[t.Name()] = t
	}
	m["any"] = reflect.TypeFor[any]()
	m["error"] = errorType
	m["struct{}"] = reflect.TypeFor[struct{}]()
	return m
}()

func baseType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// QualifiedName renders t with full package paths, the way captured type
// descriptions spell it: *example.com/shop.Cart, []int, map[string]bool.
func QualifiedName(t reflect.Type) string {
	var b strings.Builder
	writeName(&b, t)
	return b.String()
}

func writeName(b *strings.Builder, t reflect.Type) {
	if t.Name() != "" {
		if t.PkgPath() != "" {
			b.WriteString(t.PkgPath())
			b.WriteByte('.')
		}
		b.WriteString(t.Name())
		return
	}
	switch t.Kind() {
	case reflect.Pointer:
		b.WriteByte('*')
		writeName(b, t.Elem())
	case reflect.Slice:
		b.WriteString("[]")
		writeName(b, t.Elem())
	case reflect.Array:
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(t.Len()))
		b.WriteByte(']')
		writeName(b, t.Elem())
	case reflect.Map:
		b.WriteString("map[")
		writeName(b, t.Key())
		b.WriteByte(']')
		writeName(b, t.Elem())
	case reflect.Struct:
		b.WriteString("struct{")
		for i := 0; i < t.NumField(); i++ {
			if i > 0 {
				b.WriteString("; ")
			}
			f := t.Field(i)
			if !f.Anonymous {
				b.WriteString(f.Name)
				b.WriteByte(' ')
			}
			writeName(b, f.Type)
		}
		b.WriteByte('}')
	case reflect.Interface:
		b.WriteString("any")
	case reflect.Func:
		b.WriteString("func()")
	case reflect.Chan:
		b.WriteString("chan ")
		writeName(b, t.Elem())
	default:
		b.WriteString(t.Kind().String())
	}
}
