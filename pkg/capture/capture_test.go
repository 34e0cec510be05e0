package capture

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/speakeasy-api/testrecorder"
	"github.com/speakeasy-api/testrecorder/pkg/genobj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pkg = "github.com/speakeasy-api/testrecorder/pkg/capture"

type node struct {
	Name string
	next *node
}

type Status int

const (
	Active  Status = 1
	Retired Status = 2
)

type Named interface{ Label() string }

type tag string

func (t tag) Label() string { return string(t) }

type holder struct {
	Items   []string
	Index   map[string]int
	Members map[tag]struct{}
	Pair    [2]int8
	Status  Status
	Timeout time.Duration
	Kind    reflect.Type
	Size    *big.Int
	label   Named
	hook    func()
	count   *int
}

func init() {
	genobj.RegisterEnum("Active", Active)
	genobj.RegisterEnum("Retired", Retired)
}

// TestTypeOf tests the conversion of reflect types including recursive ones.
func TestTypeOf(t *testing.T) {
	r := NewRecorder()

	nt := r.TypeOf(reflect.TypeFor[*node]())
	require.Equal(t, testrecorder.Pointer, nt.Kind)
	assert.Equal(t, "*"+pkg+".node", nt.String())
	assert.False(t, nt.Elem.Exported())

	next, ok := nt.Elem.Field("next")
	require.True(t, ok)
	assert.Same(t, nt, next.Type)

	assert.Equal(t, "map[string][]int", r.TypeOf(reflect.TypeFor[map[string][]int]()).String())
	assert.Equal(t, "[3]float64", r.TypeOf(reflect.TypeFor[[3]float64]()).String())
	assert.True(t, r.TypeOf(reflect.TypeFor[map[int]struct{}]()).IsSet())
	assert.Same(t, testrecorder.TimeType, r.TypeOf(reflect.TypeFor[time.Time]()))
	assert.Same(t, testrecorder.ErrorType, r.TypeOf(reflect.TypeFor[error]()))
	assert.Same(t, testrecorder.AnyType, r.TypeOf(nil))
}

// TestRegisterInterface tests that registered interfaces are attached to
// implementing types.
func TestRegisterInterface(t *testing.T) {
	r := NewRecorder()
	r.RegisterInterface(reflect.TypeFor[Named]())

	named := r.TypeOf(reflect.TypeFor[Named]())
	assert.Equal(t, pkg+".Named", named.String())
	assert.True(t, r.TypeOf(reflect.TypeFor[tag]()).Implements(named))
	assert.False(t, r.TypeOf(reflect.TypeFor[Status]()).Implements(named))
}

// TestRecordCycle tests that reference cycles terminate and keep identity.
func TestRecordCycle(t *testing.T) {
	a := &node{Name: "a"}
	b := &node{Name: "b", next: a}
	a.next = b

	v := NewRecorder().Value(a)

	oa, ok := v.(*testrecorder.Object)
	require.True(t, ok)
	ob, ok := oa.Field("next").Value.(*testrecorder.Object)
	require.True(t, ok)
	assert.Same(t, oa, ob.Field("next").Value)
	assert.Equal(t, "b", ob.Field("Name").Value.(*testrecorder.Literal).Value())
}

// TestRecordShared tests that values reachable twice become one node within
// a session and distinct nodes across sessions.
func TestRecordShared(t *testing.T) {
	r := NewRecorder()
	shared := &node{Name: "x"}

	vs := r.Values(shared, []*node{shared})
	list := vs[1].(*testrecorder.List)
	assert.Same(t, vs[0], list.Elements()[0])

	assert.NotSame(t, vs[0], r.Value(shared))
}

// TestRecordHolder tests the classification of every field kind.
func TestRecordHolder(t *testing.T) {
	n := 3
	h := holder{
		Items:   []string{"a", "b"},
		Index:   map[string]int{"z": 1, "a": 2},
		Members: map[tag]struct{}{"y": {}, "x": {}},
		Pair:    [2]int8{1, 2},
		Status:  Retired,
		Timeout: time.Second,
		Kind:    reflect.TypeFor[node](),
		Size:    big.NewInt(42),
		label:   tag("l"),
		hook:    func() {},
		count:   &n,
	}

	o := NewRecorder().Value(h).(*testrecorder.Object)
	assert.Equal(t, pkg+".holder", o.ValueType().String())

	items := o.Field("Items").Value.(*testrecorder.List)
	assert.Len(t, items.Elements(), 2)

	index := o.Field("Index").Value.(*testrecorder.Map)
	require.Len(t, index.Entries(), 2)

	members := o.Field("Members").Value.(*testrecorder.Set)
	assert.Len(t, members.Elements(), 2)
	assert.Equal(t, pkg+".tag", members.ElementType().String())

	pair := o.Field("Pair").Value.(*testrecorder.Array)
	assert.Equal(t, int64(2), pair.Elements()[1].(*testrecorder.Literal).Value())

	status := o.Field("Status").Value.(*testrecorder.Enum)
	assert.Equal(t, "Retired", status.Name())
	assert.Equal(t, int64(2), status.Value())

	timeout := o.Field("Timeout").Value.(*testrecorder.Immutable)
	assert.Equal(t, time.Second, timeout.Value())

	kind := o.Field("Kind").Value.(*testrecorder.Immutable)
	assert.Equal(t, pkg+".node", kind.Value().(*testrecorder.Type).String())

	size := o.Field("Size").Value.(*testrecorder.Immutable)
	assert.Zero(t, size.Value().(*big.Int).Cmp(big.NewInt(42)))

	label := o.Field("label").Value.(*testrecorder.Literal)
	assert.Equal(t, "l", label.Value())
	assert.Equal(t, pkg+".tag", label.Type().String())

	assert.IsType(t, &testrecorder.Null{}, o.Field("hook").Value)
	assert.IsType(t, &testrecorder.Null{}, o.Field("count").Value)
}

// TestRecordMapOrder tests that map entries are ordered independently of
// map iteration order.
func TestRecordMapOrder(t *testing.T) {
	r := NewRecorder()
	m := map[string]int{}
	for i := 0; i < 20; i++ {
		m[fmt.Sprint(i)] = i
	}

	keys := func() []string {
		var out []string
		for _, e := range r.Value(m).(*testrecorder.Map).Entries() {
			out = append(out, e.Key.(*testrecorder.Literal).Value().(string))
		}
		return out
	}
	first := keys()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, keys())
	}
}

// TestRecordNil tests nil values of several kinds.
func TestRecordNil(t *testing.T) {
	r := NewRecorder()

	for _, x := range []any{nil, (*node)(nil), []int(nil), map[string]int(nil), Typed[Named](nil)} {
		assert.IsType(t, &testrecorder.Null{}, r.Value(x), "%#v", x)
	}
	assert.Equal(t, pkg+".Named", r.Value(Typed[Named](nil)).Type().String())
}

type account struct {
	Balance int
}

func (a *account) Deposit(n int) error {
	if n < 0 {
		return errors.New("negative deposit")
	}
	a.Balance += n
	total += n
	return nil
}

var total int

// TestCall tests that Begin and End record pre- and post-call state.
func TestCall(t *testing.T) {
	r := NewRecorder()
	acc := &account{Balance: 10}
	method := testrecorder.MethodID{Package: pkg, Receiver: "*account", Name: "Deposit"}

	call := r.Begin(method, acc, 5).Global(pkg, "total", &total)
	err := acc.Deposit(5)
	snap, recErr := call.End(nil, err)

	require.NoError(t, recErr)
	require.NoError(t, snap.Validate())
	before := snap.This.(*testrecorder.Object).Field("Balance").Value.(*testrecorder.Literal)
	after := snap.ThisAfter.(*testrecorder.Object).Field("Balance").Value.(*testrecorder.Literal)
	assert.Equal(t, int64(10), before.Value())
	assert.Equal(t, int64(15), after.Value())
	assert.NotSame(t, snap.This, snap.ThisAfter)

	require.Len(t, snap.Args, 1)
	assert.Equal(t, "int", snap.Args[0].Declared.String())
	require.Len(t, snap.GlobalsAfter, 1)
	assert.Equal(t, pkg+".total", snap.GlobalsAfter[0].QualifiedName())
	assert.Nil(t, snap.Err)
	assert.Nil(t, snap.Result)

	failed := r.Begin(method, acc, -1)
	snap, recErr = failed.End(nil, acc.Deposit(-1))
	require.NoError(t, recErr)
	require.NotNil(t, snap.Err)
	assert.Same(t, testrecorder.ErrorType, snap.Err.Type())
}

// TestCallResultType tests that a typed result records its declared type.
func TestCallResultType(t *testing.T) {
	r := NewRecorder()
	snap, err := r.Begin(testrecorder.MethodID{Package: pkg, Name: "label"}, nil).End(Typed[Named](tag("t")), nil)
	require.NoError(t, err)

	assert.True(t, snap.Static())
	assert.Equal(t, pkg+".Named", snap.ResultType.String())
	assert.Equal(t, pkg+".tag", snap.Result.ValueType().String())
}

// TestRecordPointerToNonStruct tests that pointers without a value
// representation are reported instead of passing for nil.
func TestRecordPointerToNonStruct(t *testing.T) {
	r := NewRecorder()
	n := 3
	s := "x"
	items := []int{1}

	for _, x := range []any{&n, &s, &items, holder{count: &n}} {
		v, err := r.Record(x)
		assert.ErrorIs(t, err, ErrUnsupported, "%#v", x)
		assert.NotNil(t, v)
	}

	_, err := r.Record(&n)
	assert.EqualError(t, err, "capture: unsupported value: non-nil *int")

	_, err = r.Record(holder{count: nil})
	assert.NoError(t, err)
	_, err = r.Record(&node{Name: "a"})
	assert.NoError(t, err)
}

// TestCallPointerToNonStruct tests that End reports unsupported arguments
// once, whether met before or after the call.
func TestCallPointerToNonStruct(t *testing.T) {
	r := NewRecorder()
	s := "before"
	method := testrecorder.MethodID{Package: pkg, Name: "rename"}

	call := r.Begin(method, nil, &s)
	s = "after"
	snap, err := call.End(nil, nil)

	require.ErrorIs(t, err, ErrUnsupported)
	assert.EqualError(t, err, "capture: unsupported value: non-nil *string")
	require.Len(t, snap.Args, 1)
	assert.IsType(t, &testrecorder.Null{}, snap.Args[0].Value)
}
