// Package capture records live Go values as testrecorder value graphs.
//
// Pointers, slices and maps keep their identity within one recording: a value
// reachable on two paths becomes one node, and cycles terminate at the node
// that opened them. Structs and arrays held by value are copied into fresh
// nodes.
package capture

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"time"
	"unsafe"

	"github.com/speakeasy-api/testrecorder"
	"github.com/speakeasy-api/testrecorder/pkg/genobj"
)

// ErrUnsupported marks values that have no graph representation. They are
// recorded as nil of their type, which a generated test would get wrong.
var ErrUnsupported = errors.New("capture: unsupported value")

// Recorder converts Go values to graph values. It is safe for concurrent
// use; the type cache is shared by all recordings.
type Recorder struct {
	types *typeCache
	fp    *testrecorder.Fingerprinter
}

// NewRecorder creates a recorder.
func NewRecorder() *Recorder {
	return &Recorder{types: newTypeCache(), fp: testrecorder.NewFingerprinter()}
}

// RegisterInterface makes the recorder note which of the given interfaces
// recorded types satisfy. Type resolution uses them as candidate declared
// types.
func (r *Recorder) RegisterInterface(ifaces ...reflect.Type) {
	r.types.register(ifaces...)
}

// TypeOf returns the graph type for rt.
func (r *Recorder) TypeOf(rt reflect.Type) *testrecorder.Type {
	return r.types.typeOf(rt)
}

// Value records x declared as its own dynamic type. Unsupported parts of x
// are recorded as nil; use Record to detect them.
func (r *Recorder) Value(x any) testrecorder.Value {
	return r.session().record(x, nil)
}

// Record records x like Value and reports the unsupported parts of x as
// errors wrapping ErrUnsupported.
func (r *Recorder) Record(x any) (testrecorder.Value, error) {
	s := r.session()
	v := s.record(x, nil)
	return v, s.err()
}

// Values records xs in one session, so identities are shared across them.
func (r *Recorder) Values(xs ...any) []testrecorder.Value {
	s := r.session()
	out := make([]testrecorder.Value, len(xs))
	for i, x := range xs {
		out[i] = s.record(x, nil)
	}
	return out
}

type identity struct {
	ptr uintptr
	len int
	typ reflect.Type
}

// session is one recording pass. Identities are tracked per session so a
// post-call recording does not reuse nodes of the pre-call one.
type session struct {
	r           *Recorder
	seen        map[identity]testrecorder.Reference
	unsupported []reflect.Type
}

func (r *Recorder) session() *session {
	return &session{r: r, seen: make(map[identity]testrecorder.Reference)}
}

func (s *session) reject(rt reflect.Type) {
	for _, t := range s.unsupported {
		if t == rt {
			return
		}
	}
	s.unsupported = append(s.unsupported, rt)
}

// err reports the unsupported types met so far, nil when there were none.
func (s *session) err() error {
	errs := make([]error, len(s.unsupported))
	for i, rt := range s.unsupported {
		errs[i] = fmt.Errorf("%w: non-nil %s", ErrUnsupported, genobj.QualifiedName(rt))
	}
	return errors.Join(errs...)
}

// record records x; declared defaults to the dynamic type of x.
func (s *session) record(x any, declared reflect.Type) testrecorder.Value {
	if p, ok := x.(Param); ok {
		x, declared = p.Value, p.Declared
	}
	if declared == nil {
		declared = reflect.TypeOf(x)
	}
	if x == nil {
		return testrecorder.Nil(s.r.TypeOf(declared))
	}
	return s.value(reflect.ValueOf(x), s.r.TypeOf(declared))
}

func (s *session) value(v reflect.Value, declared *testrecorder.Type) testrecorder.Value {
	if !v.IsValid() {
		return testrecorder.Nil(declared)
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return testrecorder.Nil(declared)
		}
		return s.value(v.Elem(), declared)
	}
	v = readable(v)
	rt := v.Type()
	t := s.r.TypeOf(rt)

	if imm, ok := immutable(v); ok {
		if rtype, ok := imm.(reflect.Type); ok {
			return testrecorder.TypeRef(declared, s.r.TypeOf(rtype))
		}
		return testrecorder.Imm(declared, imm)
	}

	switch rt.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return testrecorder.Nil(declared)
		}
		if rt.Elem().Kind() != reflect.Struct {
			// only pointers to structs have a value representation
			s.reject(rt)
			return testrecorder.Nil(declared)
		}
		return s.object(v, declared, t)
	case reflect.Struct:
		return s.object(v, declared, t)
	case reflect.Slice:
		if v.IsNil() {
			return testrecorder.Nil(declared)
		}
		return s.list(v, declared, t)
	case reflect.Map:
		if v.IsNil() {
			return testrecorder.Nil(declared)
		}
		if t.IsSet() {
			return s.set(v, declared, t)
		}
		return s.mapping(v, declared, t)
	case reflect.Array:
		a := testrecorder.NewArray(declared, t)
		for i := 0; i < v.Len(); i++ {
			a.Add(s.value(v.Index(i), t.Elem))
		}
		return a
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Invalid:
		return testrecorder.Nil(declared)
	}

	if name := genobj.EnumName(v.Interface()); name != "" {
		return testrecorder.EnumOf(declared, t, name, basic(v))
	}
	return testrecorder.Lit(t, basic(v))
}

// track returns the node already recorded for v or registers ref for it.
func (s *session) track(v reflect.Value, length int, create func() testrecorder.Reference) (testrecorder.Reference, bool) {
	key := identity{ptr: v.Pointer(), len: length, typ: v.Type()}
	if key.ptr == 0 {
		return create(), false
	}
	if ref, ok := s.seen[key]; ok {
		return ref, true
	}
	ref := create()
	s.seen[key] = ref
	return ref, false
}

func (s *session) object(v reflect.Value, declared, t *testrecorder.Type) testrecorder.Value {
	var o *testrecorder.Object
	if v.Kind() == reflect.Pointer {
		if v.Type().Elem().Size() > 0 {
			ref, seen := s.track(v, 0, func() testrecorder.Reference { return testrecorder.NewObject(declared, t) })
			if seen {
				return ref
			}
			o = ref.(*testrecorder.Object)
		} else {
			o = testrecorder.NewObject(declared, t)
		}
		v = v.Elem()
	} else {
		o = testrecorder.NewObject(declared, t)
		v = addressable(v)
	}

	st := v.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		ft := s.r.TypeOf(f.Type)
		o.With(f.Name, ft, s.value(readable(v.Field(i)), ft))
	}
	return o
}

func (s *session) list(v reflect.Value, declared, t *testrecorder.Type) testrecorder.Value {
	create := func() testrecorder.Reference { return testrecorder.NewList(declared, t) }
	var ref testrecorder.Reference
	if v.Len() == 0 {
		ref = create()
	} else {
		var seen bool
		if ref, seen = s.track(v, v.Len(), create); seen {
			return ref
		}
	}
	l := ref.(*testrecorder.List)
	for i := 0; i < v.Len(); i++ {
		l.Add(s.value(v.Index(i), t.Elem))
	}
	return l
}

func (s *session) set(v reflect.Value, declared, t *testrecorder.Type) testrecorder.Value {
	ref, seen := s.track(v, 0, func() testrecorder.Reference { return testrecorder.NewSet(declared, t) })
	if seen {
		return ref
	}
	set := ref.(*testrecorder.Set)
	keys := make([]testrecorder.Value, 0, v.Len())
	for _, k := range v.MapKeys() {
		keys = append(keys, s.value(k, t.Key))
	}
	s.sort(keys, func(i int) testrecorder.Value { return keys[i] })
	set.Add(keys...)
	return set
}

func (s *session) mapping(v reflect.Value, declared, t *testrecorder.Type) testrecorder.Value {
	ref, seen := s.track(v, 0, func() testrecorder.Reference { return testrecorder.NewMap(declared, t) })
	if seen {
		return ref
	}
	m := ref.(*testrecorder.Map)
	entries := make([]testrecorder.Entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		entries = append(entries, testrecorder.Entry{
			Key:   s.value(iter.Key(), t.Key),
			Value: s.value(iter.Value(), t.Elem),
		})
	}
	s.sort(entries, func(i int) testrecorder.Value { return entries[i].Key })
	for _, e := range entries {
		m.Put(e.Key, e.Value)
	}
	return m
}

// sort orders map keys by fingerprint so recordings are deterministic.
func (s *session) sort(slice any, key func(i int) testrecorder.Value) {
	sums := make(map[testrecorder.Value]string)
	sum := func(i int) string {
		k := key(i)
		if h, ok := sums[k]; ok {
			return h
		}
		h := s.r.fp.Fingerprint(k)
		sums[k] = h
		return h
	}
	sort.SliceStable(slice, func(i, j int) bool { return sum(i) < sum(j) })
}

func immutable(v reflect.Value) (any, bool) {
	if v.Type().Implements(reflectTypeType) {
		if v.IsNil() {
			return nil, false
		}
		return v.Interface(), true
	}
	switch x := v.Interface().(type) {
	case *big.Int:
		return x, x != nil
	case *big.Float:
		return x, x != nil
	case *big.Rat:
		return x, x != nil
	case time.Time, time.Duration:
		return x, true
	}
	return nil, false
}

// basic returns the underlying value of a boolean, numeric or string value.
func basic(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Complex64, reflect.Complex128:
		return v.Complex()
	case reflect.String:
		return v.String()
	}
	return nil
}

func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

// readable lifts the read-only flag of values reached through unexported
// fields.
func readable(v reflect.Value) reflect.Value {
	if v.CanInterface() || !v.CanAddr() {
		return v
	}
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}
