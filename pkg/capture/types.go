package capture

import (
	"math/big"
	"reflect"
	"sync"
	"time"

	"github.com/speakeasy-api/testrecorder"
)

var kinds = map[reflect.Kind]testrecorder.Kind{
	reflect.Bool:       testrecorder.Bool,
	reflect.Int:        testrecorder.Int,
	reflect.Int8:       testrecorder.Int8,
	reflect.Int16:      testrecorder.Int16,
	reflect.Int32:      testrecorder.Int32,
	reflect.Int64:      testrecorder.Int64,
	reflect.Uint:       testrecorder.Uint,
	reflect.Uint8:      testrecorder.Uint8,
	reflect.Uint16:     testrecorder.Uint16,
	reflect.Uint32:     testrecorder.Uint32,
	reflect.Uint64:     testrecorder.Uint64,
	reflect.Uintptr:    testrecorder.Uintptr,
	reflect.Float32:    testrecorder.Float32,
	reflect.Float64:    testrecorder.Float64,
	reflect.Complex64:  testrecorder.Complex64,
	reflect.Complex128: testrecorder.Complex128,
	reflect.String:     testrecorder.String,
	reflect.Pointer:    testrecorder.Pointer,
	reflect.Slice:      testrecorder.Slice,
	reflect.Array:      testrecorder.ArrayKind,
	reflect.Map:        testrecorder.MapKind,
	reflect.Struct:     testrecorder.Struct,
	reflect.Interface:  testrecorder.Interface,
	reflect.Func:       testrecorder.Func,
	reflect.Chan:       testrecorder.Chan,
}

var (
	reflectTypeType = reflect.TypeFor[reflect.Type]()
	errorType       = reflect.TypeFor[error]()
	anyType         = reflect.TypeFor[any]()
)

var wellKnown = map[reflect.Type]*testrecorder.Type{
	reflect.TypeFor[big.Int]():       testrecorder.BigIntType.Elem,
	reflect.TypeFor[big.Float]():     testrecorder.BigFloatType.Elem,
	reflect.TypeFor[big.Rat]():       testrecorder.BigRatType.Elem,
	reflect.TypeFor[time.Time]():     testrecorder.TimeType,
	reflect.TypeFor[time.Duration](): testrecorder.DurationType,
	reflectTypeType:                  testrecorder.ReflectType,
	errorType:                        testrecorder.ErrorType,
	anyType:                          testrecorder.AnyType,
}

// typeCache converts reflect types to graph types. Named types are cached
// before their structure is filled in so recursive types terminate.
type typeCache struct {
	mu         sync.Mutex
	types      map[reflect.Type]*testrecorder.Type
	interfaces []reflect.Type
}

func newTypeCache() *typeCache {
	return &typeCache{types: make(map[reflect.Type]*testrecorder.Type)}
}

func (c *typeCache) register(ifaces ...reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, i := range ifaces {
		if i.Kind() == reflect.Interface {
			c.interfaces = append(c.interfaces, i)
		}
	}
	// implemented interfaces are attached on conversion
	c.types = make(map[reflect.Type]*testrecorder.Type)
}

func (c *typeCache) typeOf(rt reflect.Type) *testrecorder.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.convert(rt)
}

func (c *typeCache) convert(rt reflect.Type) *testrecorder.Type {
	if rt == nil {
		return testrecorder.AnyType
	}
	if t, ok := wellKnown[rt]; ok {
		return t
	}
	if t, ok := c.types[rt]; ok {
		return t
	}

	t := &testrecorder.Type{Kind: kinds[rt.Kind()]}
	if rt.PkgPath() != "" && rt.Name() != "" {
		t.PkgPath, t.Name = rt.PkgPath(), rt.Name()
	}
	c.types[rt] = t

	switch rt.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Chan:
		t.Elem = c.convert(rt.Elem())
	case reflect.Array:
		t.Elem = c.convert(rt.Elem())
		t.Len = rt.Len()
	case reflect.Map:
		t.Key = c.convert(rt.Key())
		t.Elem = c.convert(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			t.Fields = append(t.Fields, testrecorder.StructField{
				Name:     f.Name,
				Type:     c.convert(f.Type),
				Embedded: f.Anonymous,
			})
		}
	}
	if t.IsNamed() || rt.Kind() == reflect.Pointer {
		for _, i := range c.interfaces {
			if rt.Implements(i) {
				t.Implementing(c.convert(i))
			}
		}
	}
	return t
}
