package testrecorder

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Variant tags the concrete shape of a captured Value.
type Variant uint8

const (
	LiteralVariant Variant = iota
	NullVariant
	ImmutableVariant
	EnumVariant
	ObjectVariant
	ListVariant
	SetVariant
	MapVariant
	ArrayVariant
)

var variantNames = [...]string{"literal", "null", "immutable", "enum", "object", "list", "set", "map", "array"}

func (v Variant) String() string {
	if int(v) < len(variantNames) {
		return variantNames[v]
	}
	return fmt.Sprintf("variant(%d)", uint8(v))
}

// Variants lists every variant in declaration order.
func Variants() []Variant {
	return []Variant{LiteralVariant, NullVariant, ImmutableVariant, EnumVariant, ObjectVariant, ListVariant, SetVariant, MapVariant, ArrayVariant}
}

// Value is one node of a captured graph.
type Value interface {
	// Type is the declared type at the place the value was observed.
	Type() *Type
	// ValueType is the dynamic type of the value.
	ValueType() *Type
	Variant() Variant
}

// Reference is a Value with identity. Two references are the same runtime
// instance exactly when they are the same pointer.
type Reference interface {
	Value
	ID() int
}

var lastID atomic.Int64

func nextID() int { return int(lastID.Add(1)) }

// reference holds the identity shared by all reference variants.
type reference struct {
	id        int
	declared  *Type
	valueType *Type
}

func newReference(declared, valueType *Type) reference {
	if valueType == nil {
		valueType = declared
	}
	return reference{id: nextID(), declared: declared, valueType: valueType}
}

func (r *reference) ID() int          { return r.id }
func (r *reference) Type() *Type      { return r.declared }
func (r *reference) ValueType() *Type { return r.valueType }

// Literal is a boolean, numeric or string value. Equal literals of the same
// type share one node.
type Literal struct {
	typ   *Type
	value any
}

type literalKey struct {
	typ   string
	value any
}

var literals = struct {
	sync.Mutex
	m map[literalKey]*Literal
}{m: make(map[literalKey]*Literal)}

// Lit returns the interned literal node for value of type t. Integers are
// normalized to int64 or uint64, floats to float64 and complex numbers to
// complex128.
func Lit(t *Type, value any) *Literal {
	value = normalizeLiteral(value)
	key := literalKey{typ: t.String(), value: value}

	literals.Lock()
	defer literals.Unlock()
	if l, ok := literals.m[key]; ok {
		return l
	}
	l := &Literal{typ: t, value: value}
	literals.m[key] = l
	return l
}

func normalizeLiteral(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return uint64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uintptr:
		return uint64(x)
	case float32:
		return float64(x)
	case complex64:
		return complex128(x)
	}
	return v
}

func (l *Literal) Type() *Type      { return l.typ }
func (l *Literal) ValueType() *Type { return l.typ }
func (l *Literal) Variant() Variant { return LiteralVariant }

// Value returns the normalized Go value of the literal.
func (l *Literal) Value() any { return l.value }

// Null is a nil value of its declared type.
type Null struct {
	typ *Type
}

// Nil returns a null value declared as t.
func Nil(t *Type) *Null { return &Null{typ: t} }

func (n *Null) Type() *Type      { return n.typ }
func (n *Null) ValueType() *Type { return n.typ }
func (n *Null) Variant() Variant { return NullVariant }

// Immutable is a value that is rebuilt through a canonical factory rather
// than field by field: big numbers, times, durations and type references.
type Immutable struct {
	declared  *Type
	valueType *Type
	value     any
}

// Imm wraps value, one of *big.Int, *big.Float, *big.Rat, time.Time,
// time.Duration or *Type (a type reference).
func Imm(declared *Type, value any) *Immutable {
	return &Immutable{declared: declared, valueType: immutableType(value, declared), value: value}
}

func (i *Immutable) Type() *Type      { return i.declared }
func (i *Immutable) ValueType() *Type { return i.valueType }
func (i *Immutable) Variant() Variant { return ImmutableVariant }
func (i *Immutable) Value() any       { return i.value }

// Enum is a named constant of a named basic type.
type Enum struct {
	declared  *Type
	valueType *Type
	name      string
	value     any
}

// EnumOf creates an enum value of valueType named name with the constant's
// underlying value.
func EnumOf(declared, valueType *Type, name string, value any) *Enum {
	if declared == nil {
		declared = valueType
	}
	return &Enum{declared: declared, valueType: valueType, name: name, value: normalizeLiteral(value)}
}

func (e *Enum) Type() *Type      { return e.declared }
func (e *Enum) ValueType() *Type { return e.valueType }
func (e *Enum) Variant() Variant { return EnumVariant }

// Name is the identifier of the constant.
func (e *Enum) Name() string { return e.name }

// Value is the underlying constant value.
func (e *Enum) Value() any { return e.value }

// Field is a named member of an Object.
type Field struct {
	Name  string
	Type  *Type
	Value Value
	Hints []Hint
}

// Object is a struct or pointer to struct.
type Object struct {
	reference
	fields []*Field
}

// NewObject creates an empty object. valueType may be nil when it equals declared.
func NewObject(declared, valueType *Type) *Object {
	return &Object{reference: newReference(declared, valueType)}
}

func (o *Object) Variant() Variant { return ObjectVariant }

// Fields returns the fields sorted by name.
func (o *Object) Fields() []*Field { return o.fields }

// Field returns the field with the given name or nil.
func (o *Object) Field(name string) *Field {
	i := sort.Search(len(o.fields), func(i int) bool { return o.fields[i].Name >= name })
	if i < len(o.fields) && o.fields[i].Name == name {
		return o.fields[i]
	}
	return nil
}

// AddField inserts f keeping fields ordered by name. A field with the same
// name is replaced.
func (o *Object) AddField(f *Field) *Object {
	i := sort.Search(len(o.fields), func(i int) bool { return o.fields[i].Name >= f.Name })
	if i < len(o.fields) && o.fields[i].Name == f.Name {
		o.fields[i] = f
		return o
	}
	o.fields = append(o.fields, nil)
	copy(o.fields[i+1:], o.fields[i:])
	o.fields[i] = f
	return o
}

// With adds a field declared as t.
func (o *Object) With(name string, t *Type, v Value, hints ...Hint) *Object {
	return o.AddField(&Field{Name: name, Type: t, Value: v, Hints: hints})
}

// List is a slice.
type List struct {
	reference
	elems []Value
}

// NewList creates a slice value.
func NewList(declared, valueType *Type, elems ...Value) *List {
	return &List{reference: newReference(declared, valueType), elems: elems}
}

func (l *List) Variant() Variant  { return ListVariant }
func (l *List) Elements() []Value { return l.elems }
func (l *List) Add(v ...Value)    { l.elems = append(l.elems, v...) }

// ElementType is the element type of the dynamic slice type.
func (l *List) ElementType() *Type { return elemOf(l.valueType) }

// Set is a map used as a set, map[K]struct{}.
type Set struct {
	reference
	elems []Value
}

// NewSet creates a set value.
func NewSet(declared, valueType *Type, elems ...Value) *Set {
	return &Set{reference: newReference(declared, valueType), elems: elems}
}

func (s *Set) Variant() Variant   { return SetVariant }
func (s *Set) Elements() []Value  { return s.elems }
func (s *Set) Add(v ...Value)     { s.elems = append(s.elems, v...) }
func (s *Set) ElementType() *Type { return keyOf(s.valueType) }

// Entry is one key/value pair of a Map.
type Entry struct {
	Key   Value
	Value Value
}

// Map is a map.
type Map struct {
	reference
	entries []Entry
}

// NewMap creates a map value.
func NewMap(declared, valueType *Type, entries ...Entry) *Map {
	return &Map{reference: newReference(declared, valueType), entries: entries}
}

func (m *Map) Variant() Variant   { return MapVariant }
func (m *Map) Entries() []Entry   { return m.entries }
func (m *Map) Put(k, v Value)     { m.entries = append(m.entries, Entry{Key: k, Value: v}) }
func (m *Map) KeyType() *Type     { return keyOf(m.valueType) }
func (m *Map) ElementType() *Type { return elemOf(m.valueType) }

// Array is a fixed size array.
type Array struct {
	reference
	elems []Value
}

// NewArray creates an array value.
func NewArray(declared, valueType *Type, elems ...Value) *Array {
	return &Array{reference: newReference(declared, valueType), elems: elems}
}

func (a *Array) Variant() Variant     { return ArrayVariant }
func (a *Array) Elements() []Value    { return a.elems }
func (a *Array) Add(v ...Value)       { a.elems = append(a.elems, v...) }
func (a *Array) ComponentType() *Type { return elemOf(a.valueType) }

func elemOf(t *Type) *Type {
	if t == nil || t.Elem == nil {
		return AnyType
	}
	return t.Elem
}

func keyOf(t *Type) *Type {
	if t == nil || t.Key == nil {
		return AnyType
	}
	return t.Key
}

// Children returns the values directly referenced by v in a deterministic order.
func Children(v Value) []Value {
	switch v := v.(type) {
	case *Object:
		out := make([]Value, 0, len(v.fields))
		for _, f := range v.fields {
			out = append(out, f.Value)
		}
		return out
	case *List:
		return v.elems
	case *Set:
		return v.elems
	case *Array:
		return v.elems
	case *Map:
		out := make([]Value, 0, 2*len(v.entries))
		for _, e := range v.entries {
			out = append(out, e.Key, e.Value)
		}
		return out
	}
	return nil
}

// IsPrimitive reports whether v is a literal or null.
func IsPrimitive(v Value) bool {
	switch v.(type) {
	case *Literal, *Null:
		return true
	}
	return false
}
