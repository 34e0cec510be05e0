package testrecorder

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind classifies a Type the way reflect.Kind does, restricted to the kinds
// that can appear in a captured graph.
type Kind uint8

const (
	Invalid Kind = iota
	Bool
	Int
	Int8
	Int16
	Int32
	Int64
	Uint
	Uint8
	Uint16
	Uint32
	Uint64
	Uintptr
	Float32
	Float64
	Complex64
	Complex128
	String
	Pointer
	Slice
	ArrayKind
	MapKind
	Struct
	Interface
	Func
	Chan
)

var kindNames = [...]string{
	Invalid:    "invalid",
	Bool:       "bool",
	Int:        "int",
	Int8:       "int8",
	Int16:      "int16",
	Int32:      "int32",
	Int64:      "int64",
	Uint:       "uint",
	Uint8:      "uint8",
	Uint16:     "uint16",
	Uint32:     "uint32",
	Uint64:     "uint64",
	Uintptr:    "uintptr",
	Float32:    "float32",
	Float64:    "float64",
	Complex64:  "complex64",
	Complex128: "complex128",
	String:     "string",
	Pointer:    "ptr",
	Slice:      "slice",
	ArrayKind:  "array",
	MapKind:    "map",
	Struct:     "struct",
	Interface:  "interface",
	Func:       "func",
	Chan:       "chan",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind" + strconv.Itoa(int(k))
}

// IsBasic reports whether k is a boolean, numeric or string kind.
func (k Kind) IsBasic() bool { return k >= Bool && k <= String }

// IsInteger reports whether k is a signed or unsigned integer kind.
func (k Kind) IsInteger() bool { return k >= Int && k <= Uintptr }

// IsFloat reports whether k is a floating point kind.
func (k Kind) IsFloat() bool { return k == Float32 || k == Float64 }

// IsComplex reports whether k is a complex kind.
func (k Kind) IsComplex() bool { return k == Complex64 || k == Complex128 }

// IsNumeric reports whether k is an integer, float or complex kind.
func (k Kind) IsNumeric() bool { return k.IsInteger() || k.IsFloat() || k.IsComplex() }

// Nillable reports whether a value of kind k can be nil.
func (k Kind) Nillable() bool {
	switch k {
	case Pointer, Slice, MapKind, Interface, Func, Chan:
		return true
	}
	return false
}

// Type describes a Go type as seen by the captured graph. Named types carry
// their package path and name, composite types their element types.
type Type struct {
	Kind    Kind
	PkgPath string
	Name    string

	Elem *Type // pointer, slice, array and map element
	Key  *Type // map key
	Len  int   // array length

	Fields []StructField // struct fields in declaration order

	// Interfaces lists the named interfaces this type is known to satisfy.
	Interfaces []*Type
}

// StructField is a field of a struct Type.
type StructField struct {
	Name     string
	Type     *Type
	Embedded bool
}

var basicTypes = func() map[Kind]*Type {
	m := make(map[Kind]*Type, String)
	for k := Bool; k <= String; k++ {
		m[k] = &Type{Kind: k}
	}
	return m
}()

// Predeclared and well-known types.
var (
	AnyType      = &Type{Kind: Interface}
	ErrorType    = &Type{Kind: Interface, Name: "error"}
	EmptyStruct  = &Type{Kind: Struct}
	BigIntType   = PointerTo(Named("math/big", "Int", EmptyStruct))
	BigFloatType = PointerTo(Named("math/big", "Float", EmptyStruct))
	BigRatType   = PointerTo(Named("math/big", "Rat", EmptyStruct))
	TimeType     = Named("time", "Time", EmptyStruct)
	DurationType = Named("time", "Duration", Basic(Int64))
	ReflectType  = Named("reflect", "Type", AnyType)
)

// Basic returns the unnamed basic type of kind k.
func Basic(k Kind) *Type {
	if t, ok := basicTypes[k]; ok {
		return t
	}
	return &Type{Kind: k}
}

// Named declares a named type in pkgPath whose underlying type is u.
func Named(pkgPath, name string, u *Type) *Type {
	if u == nil {
		u = EmptyStruct
	}
	t := *u
	t.PkgPath = pkgPath
	t.Name = name
	t.Interfaces = nil
	return &t
}

// PointerTo returns the type *elem.
func PointerTo(elem *Type) *Type { return &Type{Kind: Pointer, Elem: elem} }

// SliceOf returns the type []elem.
func SliceOf(elem *Type) *Type { return &Type{Kind: Slice, Elem: elem} }

// ArrayOf returns the type [n]elem.
func ArrayOf(n int, elem *Type) *Type { return &Type{Kind: ArrayKind, Elem: elem, Len: n} }

// MapOf returns the type map[key]elem.
func MapOf(key, elem *Type) *Type { return &Type{Kind: MapKind, Key: key, Elem: elem} }

// SetOf returns the type map[key]struct{}.
func SetOf(key *Type) *Type { return MapOf(key, EmptyStruct) }

// StructOf returns an unnamed struct type with the given fields.
func StructOf(fields ...StructField) *Type { return &Type{Kind: Struct, Fields: fields} }

// InterfaceType declares a named interface type.
func InterfaceType(pkgPath, name string) *Type {
	return &Type{Kind: Interface, PkgPath: pkgPath, Name: name}
}

// Implementing records that t satisfies the given interfaces and returns t.
func (t *Type) Implementing(ifaces ...*Type) *Type {
	t.Interfaces = append(t.Interfaces, ifaces...)
	return t
}

// IsNamed reports whether t has a name.
func (t *Type) IsNamed() bool { return t != nil && t.Name != "" }

// IsAny reports whether t is the empty unnamed interface.
func (t *Type) IsAny() bool { return t != nil && t.Kind == Interface && t.Name == "" }

// Exported reports whether the name of t starts with an upper case letter.
// Unnamed types count as exported.
func (t *Type) Exported() bool {
	if t == nil || t.Name == "" {
		return true
	}
	return IsExported(t.Name)
}

// QualifiedName returns pkgPath.Name for named types and "" otherwise.
func (t *Type) QualifiedName() string {
	if !t.IsNamed() {
		return ""
	}
	if t.PkgPath == "" {
		return t.Name
	}
	return t.PkgPath + "." + t.Name
}

// Base strips pointer indirections from t.
func (t *Type) Base() *Type {
	for t != nil && t.Kind == Pointer && t.Elem != nil {
		t = t.Elem
	}
	return t
}

// IsSet reports whether t is a map whose values carry no information.
func (t *Type) IsSet() bool {
	if t == nil || t.Kind != MapKind || t.Elem == nil {
		return false
	}
	if t.Elem.Kind == Struct && len(t.Elem.Fields) == 0 {
		return true
	}
	return false
}

// Field returns the struct field with the given name.
func (t *Type) Field(name string) (StructField, bool) {
	for _, f := range t.Base().fieldsOrNil() {
		if f.Name == name {
			return f, true
		}
	}
	return StructField{}, false
}

func (t *Type) fieldsOrNil() []StructField {
	if t == nil {
		return nil
	}
	return t.Fields
}

// Identical reports whether t and u denote the same type.
func (t *Type) Identical(u *Type) bool {
	return identical(t, u, false)
}

// IdenticalUnderlying reports whether t and u have identical underlying types.
func (t *Type) IdenticalUnderlying(u *Type) bool {
	return identical(t, u, true)
}

func identical(t, u *Type, ignoreNames bool) bool {
	if t == u {
		return true
	}
	if t == nil || u == nil {
		return false
	}
	if !ignoreNames && (t.IsNamed() || u.IsNamed()) {
		return t.PkgPath == u.PkgPath && t.Name == u.Name
	}
	if t.Kind != u.Kind {
		return false
	}
	switch t.Kind {
	case Pointer, Slice:
		return identical(t.Elem, u.Elem, false)
	case ArrayKind:
		return t.Len == u.Len && identical(t.Elem, u.Elem, false)
	case MapKind:
		return identical(t.Key, u.Key, false) && identical(t.Elem, u.Elem, false)
	case Struct:
		if len(t.Fields) != len(u.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != u.Fields[i].Name || !identical(t.Fields[i].Type, u.Fields[i].Type, false) {
				return false
			}
		}
		return true
	case Interface:
		return t.Name == u.Name && t.PkgPath == u.PkgPath
	}
	return true
}

// Implements reports whether t is known to satisfy iface. The empty interface
// is satisfied by every type.
func (t *Type) Implements(iface *Type) bool {
	if iface == nil || iface.Kind != Interface {
		return false
	}
	if iface.IsAny() {
		return true
	}
	if t.Identical(iface) {
		return true
	}
	for _, i := range t.Interfaces {
		if i.Identical(iface) {
			return true
		}
	}
	// the method set of *T includes the method set of T
	if t != nil && t.Kind == Pointer && t.Elem != nil && t.Elem.Kind != Pointer {
		for _, i := range t.Elem.Interfaces {
			if i.Identical(iface) {
				return true
			}
		}
	}
	return false
}

// String renders t as a fully qualified Go type expression.
func (t *Type) String() string {
	var b strings.Builder
	writeType(&b, t, func(t *Type) string { return t.QualifiedName() })
	return b.String()
}

// Format renders t using qualify to spell named types.
func (t *Type) Format(qualify func(*Type) string) string {
	var b strings.Builder
	writeType(&b, t, qualify)
	return b.String()
}

func writeType(b *strings.Builder, t *Type, qualify func(*Type) string) {
	if t == nil {
		b.WriteString("<nil>")
		return
	}
	if t.IsNamed() {
		b.WriteString(qualify(t))
		return
	}
	switch t.Kind {
	case Pointer:
		b.WriteByte('*')
		writeType(b, t.Elem, qualify)
	case Slice:
		b.WriteString("[]")
		writeType(b, t.Elem, qualify)
	case ArrayKind:
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(t.Len))
		b.WriteByte(']')
		writeType(b, t.Elem, qualify)
	case MapKind:
		b.WriteString("map[")
		writeType(b, t.Key, qualify)
		b.WriteByte(']')
		writeType(b, t.Elem, qualify)
	case Struct:
		b.WriteString("struct{")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString("; ")
			}
			if !f.Embedded {
				b.WriteString(f.Name)
				b.WriteByte(' ')
			}
			writeType(b, f.Type, qualify)
		}
		b.WriteByte('}')
	case Interface:
		b.WriteString("any")
	case Func:
		b.WriteString("func()")
	case Chan:
		b.WriteString("chan ")
		writeType(b, t.Elem, qualify)
	default:
		b.WriteString(t.Kind.String())
	}
}

// IsExported reports whether name starts with an upper case letter.
func IsExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
