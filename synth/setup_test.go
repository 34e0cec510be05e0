package synth

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/speakeasy-api/testrecorder"
)

const (
	shopPkg = "example.com/shop"
	appPkg  = "example.com/app"
)

var (
	intT = testrecorder.Basic(testrecorder.Int)
	strT = testrecorder.Basic(testrecorder.String)

	beanT   = testrecorder.Named(shopPkg, "Bean", testrecorder.StructOf(testrecorder.StructField{Name: "Field", Type: intT}))
	beanPtr = testrecorder.PointerTo(beanT)

	hiddenBeanT   = testrecorder.Named(shopPkg, "bean", testrecorder.StructOf(testrecorder.StructField{Name: "Field", Type: intT}))
	hiddenBeanPtr = testrecorder.PointerTo(hiddenBeanT)

	nodeT, nodePtr = nodeTypes()
)

func nodeTypes() (*testrecorder.Type, *testrecorder.Type) {
	t := testrecorder.Named(shopPkg, "Node", testrecorder.StructOf(testrecorder.StructField{Name: "Name", Type: strT}))
	ptr := testrecorder.PointerTo(t)
	t.Fields = append(t.Fields, testrecorder.StructField{Name: "Next", Type: ptr})
	return t, ptr
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Package = appPkg
	opts.Logger = NopLogger()
	return opts
}

func newSetup(opts Options) *SetupGenerator {
	return NewSetupGenerator(NewTypeManager(opts.Package), NewAdaptors(DefaultSetupAdaptors()...), opts)
}

func bean(field int) *testrecorder.Object {
	return testrecorder.NewObject(beanPtr, nil).With("Field", intT, testrecorder.Lit(intT, field))
}

func strs(values ...string) []testrecorder.Value {
	out := make([]testrecorder.Value, len(values))
	for i, v := range values {
		out[i] = testrecorder.Lit(strT, v)
	}
	return out
}

// cycle builds two nodes pointing at each other.
func cycle() (a, b *testrecorder.Object) {
	a = testrecorder.NewObject(nodePtr, nil).With("Name", strT, testrecorder.Lit(strT, "a"))
	b = testrecorder.NewObject(nodePtr, nil).With("Name", strT, testrecorder.Lit(strT, "b"))
	a.With("Next", nodePtr, b)
	b.With("Next", nodePtr, a)
	return a, b
}

func mustGenerate(t *testing.T, g *SetupGenerator, v testrecorder.Value, ctx *Context) *Computation {
	t.Helper()
	c, err := g.Generate(v, ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return c
}

// TestSetupObject tests that a visible struct pointer becomes a composite literal
func TestSetupObject(t *testing.T) {
	g := newSetup(testOptions())
	c := mustGenerate(t, g, bean(12), NewContext())

	want := []string{"bean1 := &shop.Bean{Field: 12}"}
	if diff := cmp.Diff(want, c.Statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
	if c.Value != "bean1" || !c.Stored {
		t.Errorf("Expected stored local bean1, got %q (stored=%v)", c.Value, c.Stored)
	}
	imports := g.Types().Imports()
	if len(imports) != 1 || imports[0].Path != shopPkg || imports[0].Alias != "shop" {
		t.Errorf("Unexpected imports: %+v", imports)
	}
}

// TestSetupIdentityStable tests that a second visit reuses the local
func TestSetupIdentityStable(t *testing.T) {
	g := newSetup(testOptions())
	ctx := NewContext()
	b := bean(1)

	first := mustGenerate(t, g, b, ctx)
	second := mustGenerate(t, g, b, ctx)
	if second.Value != first.Value {
		t.Errorf("Expected the same local, got %s and %s", first.Value, second.Value)
	}
	if len(second.Statements) != 0 {
		t.Errorf("Expected no statements on revisit, got %v", second.Statements)
	}

	other := mustGenerate(t, g, bean(1), ctx)
	if other.Value != "bean2" {
		t.Errorf("Expected a distinct identity to get bean2, got %s", other.Value)
	}
}

// TestSetupList tests slice construction through a temporary
func TestSetupList(t *testing.T) {
	g := newSetup(testOptions())
	list := testrecorder.NewList(testrecorder.SliceOf(strT), nil, strs("a", "b", "c")...)
	c := mustGenerate(t, g, list, NewContext())

	want := []string{
		"temp1 := make([]string, 0, 3)",
		`temp1 = append(temp1, "a")`,
		`temp1 = append(temp1, "b")`,
		`temp1 = append(temp1, "c")`,
		"list1 := temp1",
	}
	if diff := cmp.Diff(want, c.Statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

// TestSetupEmptyList tests that an empty slice is still allocated
func TestSetupEmptyList(t *testing.T) {
	g := newSetup(testOptions())
	c := mustGenerate(t, g, testrecorder.NewList(testrecorder.SliceOf(intT), nil), NewContext())

	want := []string{"temp1 := make([]int, 0, 0)", "list1 := temp1"}
	if diff := cmp.Diff(want, c.Statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

// TestSetupCycleEager tests that both nodes of a cycle are forwarded up front
func TestSetupCycleEager(t *testing.T) {
	g := newSetup(testOptions())
	a, _ := cycle()
	c := mustGenerate(t, g, a, NewContext())

	want := []string{
		"node1 := new(shop.Node)",
		"node2 := new(shop.Node)",
		`*node2 = shop.Node{Name: "b", Next: node1}`,
		`*node1 = shop.Node{Name: "a", Next: node2}`,
	}
	if diff := cmp.Diff(want, c.Statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
	if c.Value != "node1" {
		t.Errorf("Expected node1, got %s", c.Value)
	}
}

// TestSetupCycleReactive tests that only the node closing the cycle is forwarded
func TestSetupCycleReactive(t *testing.T) {
	opts := testOptions()
	opts.EagerForward = false
	g := newSetup(opts)
	a, _ := cycle()
	c := mustGenerate(t, g, a, NewContext())

	want := []string{
		"node1 := new(shop.Node)",
		`node2 := &shop.Node{Name: "b", Next: node1}`,
		`*node1 = shop.Node{Name: "a", Next: node2}`,
	}
	if diff := cmp.Diff(want, c.Statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

// TestSetupSelfLoop tests a node referencing itself
func TestSetupSelfLoop(t *testing.T) {
	g := newSetup(testOptions())
	self := testrecorder.NewObject(nodePtr, nil).With("Name", strT, testrecorder.Lit(strT, "me"))
	self.With("Next", nodePtr, self)
	c := mustGenerate(t, g, self, NewContext())

	want := []string{
		"node1 := new(shop.Node)",
		`*node1 = shop.Node{Name: "me", Next: node1}`,
	}
	if diff := cmp.Diff(want, c.Statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

// TestSetupHiddenObject tests that unexported types are built through genobj
func TestSetupHiddenObject(t *testing.T) {
	g := newSetup(testOptions())
	v := testrecorder.NewObject(hiddenBeanPtr, nil).With("Field", intT, testrecorder.Lit(intT, 12))
	c := mustGenerate(t, g, v, NewContext())

	want := []string{`bean1 := genobj.New("*example.com/shop.bean", genobj.Fields{"Field": 12})`}
	if diff := cmp.Diff(want, c.Statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
	if !c.Type.Identical(WrappedType) {
		t.Errorf("Expected a wrapped result, got %s", c.Type)
	}
	if got := g.Adapt(c, testrecorder.AnyType); got != "bean1.Value()" {
		t.Errorf("Expected unwrapping, got %s", got)
	}
}

func hiddenBean(field int) *testrecorder.Object {
	return testrecorder.NewObject(hiddenBeanPtr, nil).With("Field", intT, testrecorder.Lit(intT, field))
}

// TestSetupHiddenCollections tests that collections of unexported types are built through genobj
func TestSetupHiddenCollections(t *testing.T) {
	beans := testrecorder.SliceOf(hiddenBeanPtr)
	itemsT := testrecorder.Named(shopPkg, "items", beans)
	tests := []struct {
		name  string
		value func() testrecorder.Value
		want  []string
	}{
		{
			name:  "slice",
			value: func() testrecorder.Value { return testrecorder.NewList(beans, nil, hiddenBean(1), hiddenBean(2)) },
			want: []string{
				`bean1 := genobj.New("*example.com/shop.bean", genobj.Fields{"Field": 1})`,
				`bean2 := genobj.New("*example.com/shop.bean", genobj.Fields{"Field": 2})`,
				`list1 := genobj.Slice("[]*example.com/shop.bean", bean1, bean2)`,
			},
		},
		{
			name:  "named slice",
			value: func() testrecorder.Value { return testrecorder.NewList(itemsT, nil, hiddenBean(1)) },
			want: []string{
				`bean1 := genobj.New("*example.com/shop.bean", genobj.Fields{"Field": 1})`,
				`items1 := genobj.Slice("example.com/shop.items", bean1)`,
			},
		},
		{
			name: "map",
			value: func() testrecorder.Value {
				m := testrecorder.NewMap(testrecorder.MapOf(strT, hiddenBeanPtr), nil)
				m.Put(testrecorder.Lit(strT, "x"), hiddenBean(1))
				return m
			},
			want: []string{
				`bean1 := genobj.New("*example.com/shop.bean", genobj.Fields{"Field": 1})`,
				`map1 := genobj.Map("map[string]*example.com/shop.bean", genobj.Entry{Key: "x", Value: bean1})`,
			},
		},
		{
			name: "array",
			value: func() testrecorder.Value {
				return testrecorder.NewArray(testrecorder.ArrayOf(1, hiddenBeanPtr), nil, hiddenBean(1))
			},
			want: []string{
				`bean1 := genobj.New("*example.com/shop.bean", genobj.Fields{"Field": 1})`,
				`array1 := genobj.Array("[1]*example.com/shop.bean", bean1)`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newSetup(testOptions())
			c := mustGenerate(t, g, tt.value(), NewContext())
			if diff := cmp.Diff(tt.want, c.Statements); diff != "" {
				t.Errorf("statements mismatch (-want +got):\n%s", diff)
			}
			if !c.Type.Identical(WrappedType) {
				t.Errorf("Expected a wrapped result, got %s", c.Type)
			}
		})
	}
}

// TestSetupHiddenCollectionField tests a visible struct holding a slice of unexported elements
func TestSetupHiddenCollectionField(t *testing.T) {
	g := newSetup(testOptions())
	beans := testrecorder.SliceOf(hiddenBeanPtr)
	holderT := testrecorder.PointerTo(testrecorder.Named(shopPkg, "Holder", testrecorder.StructOf(
		testrecorder.StructField{Name: "Items", Type: beans},
	)))
	holder := testrecorder.NewObject(holderT, nil).With("Items", beans, testrecorder.NewList(beans, nil, hiddenBean(3)))
	c := mustGenerate(t, g, holder, NewContext())

	want := []string{
		`bean1 := genobj.New("*example.com/shop.bean", genobj.Fields{"Field": 3})`,
		`list1 := genobj.Slice("[]*example.com/shop.bean", bean1)`,
		`holder1 := genobj.Build[*shop.Holder](genobj.Fields{"Items": list1})`,
	}
	if diff := cmp.Diff(want, c.Statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

// TestSetupGenericWhenDisabled tests the fallback once the composite literal adaptor is gone
func TestSetupGenericWhenDisabled(t *testing.T) {
	opts := testOptions()
	adaptors := Collect[*SetupGenerator]([]string{"setup.object"}, DefaultSetupAdaptors)
	g := NewSetupGenerator(NewTypeManager(opts.Package), adaptors, opts)
	c := mustGenerate(t, g, bean(12), NewContext())

	want := []string{`bean1 := genobj.Build[*shop.Bean](genobj.Fields{"Field": 12})`}
	if diff := cmp.Diff(want, c.Statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

// TestSetupMap tests map construction with typed keys
func TestSetupMap(t *testing.T) {
	g := newSetup(testOptions())
	m := testrecorder.NewMap(testrecorder.MapOf(strT, beanPtr), nil)
	m.Put(testrecorder.Lit(strT, "x"), bean(1))
	c := mustGenerate(t, g, m, NewContext())

	want := []string{
		"temp1 := make(map[string]*shop.Bean, 1)",
		"bean1 := &shop.Bean{Field: 1}",
		`temp1["x"] = bean1`,
		"map1 := temp1",
	}
	if diff := cmp.Diff(want, c.Statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

// TestSetupSet tests that struct{} sets get struct{}{} members
func TestSetupSet(t *testing.T) {
	g := newSetup(testOptions())
	s := testrecorder.NewSet(testrecorder.SetOf(strT), nil, strs("a")...)
	c := mustGenerate(t, g, s, NewContext())

	want := []string{
		"temp1 := make(map[string]struct{}, 1)",
		`temp1["a"] = struct{}{}`,
		"set1 := temp1",
	}
	if diff := cmp.Diff(want, c.Statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

// TestSetupArray tests array literals with converted elements
func TestSetupArray(t *testing.T) {
	g := newSetup(testOptions())
	int8T := testrecorder.Basic(testrecorder.Int8)
	arr := testrecorder.NewArray(testrecorder.ArrayOf(2, int8T), nil, testrecorder.Lit(int8T, 1), testrecorder.Lit(int8T, 2))
	c := mustGenerate(t, g, arr, NewContext())

	want := []string{"array1 := [2]int8{int8(1), int8(2)}"}
	if diff := cmp.Diff(want, c.Statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

// TestSetupLoadFromFile tests that hinted literal slices move into a data file
func TestSetupLoadFromFile(t *testing.T) {
	g := newSetup(testOptions())
	list := testrecorder.NewList(testrecorder.SliceOf(intT), nil,
		testrecorder.Lit(intT, 1), testrecorder.Lit(intT, 2), testrecorder.Lit(intT, 3))
	ctx := NewContext(testrecorder.LoadFromFile{WriteTo: "out/testdata", ReadFrom: "testdata"})
	c := mustGenerate(t, g, list, ctx)

	file := testrecorder.Fingerprint(list)[:16] + ".yaml"
	want := []string{`list1 := genobj.Load[[]int]("testdata", "` + file + `")`}
	if diff := cmp.Diff(want, c.Statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}

	files := g.DataFiles()
	if len(files) != 1 {
		t.Fatalf("Expected one data file, got %d", len(files))
	}
	if files[0].Dir != "out/testdata" || files[0].Name != file {
		t.Errorf("Unexpected data file location %s/%s", files[0].Dir, files[0].Name)
	}
	if got := string(files[0].Content); got != "- 1\n- 2\n- 3\n" {
		t.Errorf("Unexpected data file content %q", got)
	}
}

// TestSetupImmutables tests factory calls for immutable values
func TestSetupImmutables(t *testing.T) {
	g := newSetup(testOptions())
	ctx := NewContext()

	tests := []struct {
		name  string
		value testrecorder.Value
		want  string
	}{
		{"duration", testrecorder.Imm(testrecorder.DurationType, time.Duration(1500)), "time.Duration(1500)"},
		{"type", testrecorder.TypeRef(testrecorder.ReflectType, beanPtr), "reflect.TypeFor[*shop.Bean]()"},
		{"hidden type", testrecorder.TypeRef(testrecorder.ReflectType, hiddenBeanT), `genobj.TypeOf("example.com/shop.bean")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustGenerate(t, g, tt.value, ctx)
			if c.Value != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, c.Value)
			}
		})
	}
}

// TestSetupLiterals tests constant rendering per type
func TestSetupLiterals(t *testing.T) {
	g := newSetup(testOptions())
	ctx := NewContext()
	level := testrecorder.Named(shopPkg, "Level", intT)

	tests := []struct {
		name    string
		value   testrecorder.Value
		want    string
		untyped bool
	}{
		{"int", testrecorder.Lit(intT, 3), "3", true},
		{"int8", testrecorder.Lit(testrecorder.Basic(testrecorder.Int8), 3), "int8(3)", false},
		{"named", testrecorder.Lit(level, 3), "shop.Level(3)", false},
		{"float", testrecorder.Lit(testrecorder.Basic(testrecorder.Float64), 1.0), "1.0", true},
		{"string", testrecorder.Lit(strT, "q\"x"), `"q\"x"`, true},
		{"bool", testrecorder.Lit(testrecorder.Basic(testrecorder.Bool), true), "true", true},
		{"nan", testrecorder.Lit(testrecorder.Basic(testrecorder.Float64), math.NaN()), "math.NaN()", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustGenerate(t, g, tt.value, ctx)
			if c.Value != tt.want || c.Untyped != tt.untyped {
				t.Errorf("Expected %s (untyped=%v), got %s (untyped=%v)", tt.want, tt.untyped, c.Value, c.Untyped)
			}
		})
	}

	found := false
	for _, imp := range g.Types().Imports() {
		found = found || imp.Path == "math"
	}
	if !found {
		t.Error("Expected math to be imported for NaN")
	}
}

// TestSetupFieldAdaptation tests conversion of fields declared as interfaces
func TestSetupFieldAdaptation(t *testing.T) {
	g := newSetup(testOptions())
	holderT := testrecorder.PointerTo(testrecorder.Named(shopPkg, "Holder", testrecorder.StructOf(
		testrecorder.StructField{Name: "Any", Type: testrecorder.AnyType},
		testrecorder.StructField{Name: "Small", Type: testrecorder.Basic(testrecorder.Int16)},
	)))
	holder := testrecorder.NewObject(holderT, nil).
		With("Any", testrecorder.AnyType, bean(1)).
		With("Small", testrecorder.Basic(testrecorder.Int16), testrecorder.Lit(intT, 7))
	c := mustGenerate(t, g, holder, NewContext())

	last := c.Statements[len(c.Statements)-1]
	if last != "holder1 := &shop.Holder{Any: bean1, Small: 7}" {
		t.Errorf("Unexpected construction %s", last)
	}
}

// TestSetupTooDeep tests the recursion bound
func TestSetupTooDeep(t *testing.T) {
	opts := testOptions()
	opts.MaxDepth = 2
	g := newSetup(opts)

	inner := testrecorder.NewList(testrecorder.SliceOf(strT), nil, strs("x")...)
	outer := testrecorder.NewList(testrecorder.SliceOf(inner.Type()), nil, inner)
	_, err := g.Generate(outer, NewContext())
	if !errors.Is(err, ErrTooDeep) {
		t.Fatalf("Expected ErrTooDeep, got %v", err)
	}
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Errorf("Expected a GenerationError, got %T", err)
	}
}

// TestSetupDepthCountsReferences tests that a reference chain counts toward MaxDepth
func TestSetupDepthCountsReferences(t *testing.T) {
	chain := func(n int) *testrecorder.Object {
		var next testrecorder.Value = testrecorder.Nil(nodePtr)
		var head *testrecorder.Object
		for i := n; i > 0; i-- {
			head = testrecorder.NewObject(nodePtr, nil).With("Name", strT, testrecorder.Lit(strT, strconv.Itoa(i))).With("Next", nodePtr, next)
			next = head
		}
		return head
	}

	opts := testOptions()
	opts.MaxDepth = 4
	if _, err := newSetup(opts).Generate(chain(5), NewContext()); !errors.Is(err, ErrTooDeep) {
		t.Fatalf("Expected ErrTooDeep for five nodes, got %v", err)
	}

	opts.MaxDepth = 0
	c := mustGenerate(t, newSetup(opts), chain(600), NewContext())
	if c.Value != "node1" {
		t.Errorf("Expected the head in node1, got %s", c.Value)
	}
	if want := `node600 := &shop.Node{Name: "600", Next: nil}`; c.Statements[0] != want {
		t.Errorf("Expected the tail first, got %s", c.Statements[0])
	}
}

// TestSetupExhausted tests the error when every adaptor declines
func TestSetupExhausted(t *testing.T) {
	opts := testOptions()
	g := NewSetupGenerator(NewTypeManager(opts.Package), Collect[*SetupGenerator]([]string{"setup.generic-object"}, DefaultSetupAdaptors), opts)

	v := testrecorder.NewObject(hiddenBeanPtr, nil).With("Field", intT, testrecorder.Lit(intT, 1))
	_, err := g.Generate(v, NewContext())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("Expected ErrExhausted, got %v", err)
	}
	if errors.Is(err, ErrDecline) {
		t.Error("Expected exhaustion not to read as a decline")
	}
	if !strings.Contains(err.Error(), "hidden") {
		t.Errorf("Expected the decline reason in %q", err)
	}
	if _, ok := g.Locals().Lookup(v); ok {
		t.Error("Expected no binding left behind")
	}
}
