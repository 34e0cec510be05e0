package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakeasy-api/testrecorder"
	"github.com/speakeasy-api/testrecorder/synth"
)

var (
	intT = testrecorder.Basic(testrecorder.Int)
	strT = testrecorder.Basic(testrecorder.String)

	stamp = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
)

const (
	calcPkg = "example.com/calc"
	shopPkg = "example.com/shop"
)

func squareSnapshot() *testrecorder.Snapshot {
	return &testrecorder.Snapshot{
		Method: testrecorder.MethodID{Package: calcPkg, Name: "Square"},
		Args:   []testrecorder.Arg{{Declared: intT, Value: testrecorder.Lit(intT, 3)}},
		Result: testrecorder.Lit(intT, 9),
	}
}

func depositSnapshot() *testrecorder.Snapshot {
	accountT := testrecorder.PointerTo(testrecorder.Named(shopPkg, "Account", testrecorder.StructOf(
		testrecorder.StructField{Name: "Balance", Type: intT},
	)))
	failureT := testrecorder.PointerTo(testrecorder.Named(shopPkg, "Failure", testrecorder.StructOf(
		testrecorder.StructField{Name: "Msg", Type: strT},
	)))
	return &testrecorder.Snapshot{
		Method: testrecorder.MethodID{Package: shopPkg, Receiver: "*Account", Name: "Deposit"},
		This:   testrecorder.NewObject(accountT, nil).With("Balance", intT, testrecorder.Lit(intT, 10)),
		Args:   []testrecorder.Arg{{Declared: intT, Value: testrecorder.Lit(intT, 500)}},
		Err:    testrecorder.NewObject(testrecorder.ErrorType, failureT).With("Msg", strT, testrecorder.Lit(strT, "limit")),
		Globals: []testrecorder.Global{
			{Package: shopPkg, Name: "Limit", Declared: intT, Value: testrecorder.Lit(intT, 100)},
		},
	}
}

func plan(t *testing.T, snap *testrecorder.Snapshot, pkg string) *synth.TestPlan {
	t.Helper()
	opts := synth.DefaultOptions()
	opts.Package = pkg
	opts.Logger = synth.NopLogger()
	p, err := synth.New(opts).PlanSnapshot(snap)
	require.NoError(t, err)
	return p
}

func TestRenderFunction(t *testing.T) {
	f := newTestFile("example.com/calc_test")
	require.NoError(t, f.add(plan(t, squareSnapshot(), "example.com/calc_test")))

	src, err := f.source(stamp)
	require.NoError(t, err)
	out := string(src)

	assert.Contains(t, out, "// Code generated by testgen at 2026-01-02 03:04:05. DO NOT EDIT.")
	assert.Contains(t, out, "package calc_test")
	assert.Contains(t, out, `"example.com/calc"`)
	assert.Contains(t, out, `"testing"`)
	assert.Contains(t, out, "func TestSquare_1(t *testing.T) {")
	assert.Contains(t, out, "var arg0 int = 3")
	assert.Contains(t, out, "result := calc.Square(arg0)")
	assert.Contains(t, out, "match.Assert(t, result, match.EqualTo(9))")
}

func TestRenderMethod(t *testing.T) {
	f := newTestFile("example.com/shop_test")
	require.NoError(t, f.add(plan(t, depositSnapshot(), "example.com/shop_test")))

	src, err := f.source(stamp)
	require.NoError(t, err)
	out := string(src)

	assert.Contains(t, out, "func TestAccount_Deposit_1(t *testing.T) {")
	assert.Contains(t, out, "var this *shop.Account = ")
	assert.Contains(t, out, "shop.Limit = 100")
	assert.Contains(t, out, "err := this.Deposit(arg0)")
	assert.Contains(t, out, `match.Assert(t, err, match.Object[*shop.Failure](match.Fields{"Msg": "limit"}))`)
	assert.NotContains(t, out, "result :=")
}

func TestRenderSamePackage(t *testing.T) {
	f := newTestFile(calcPkg)
	require.NoError(t, f.add(plan(t, squareSnapshot(), calcPkg)))
	require.NoError(t, f.add(plan(t, squareSnapshot(), calcPkg)))

	src, err := f.source(stamp)
	require.NoError(t, err)
	out := string(src)

	assert.Contains(t, out, "package calc\n")
	assert.Contains(t, out, "result := Square(arg0)")
	assert.Contains(t, out, "func TestSquare_1(t *testing.T) {")
	assert.Contains(t, out, "func TestSquare_2(t *testing.T) {")
	assert.NotContains(t, out, `"example.com/calc"`)
}

func TestRenderNoAssertions(t *testing.T) {
	f := newTestFile("example.com/calc_test")
	require.NoError(t, f.add(&synth.TestPlan{Method: testrecorder.MethodID{Package: calcPkg, Name: "Reset"}}))

	src, err := f.source(stamp)
	require.NoError(t, err)
	assert.Contains(t, string(src), "\tcalc.Reset()\n")
	assert.NotContains(t, string(src), synth.MatchPackage)
}

func TestRenderImportConflict(t *testing.T) {
	f := newTestFile("example.com/app")
	require.NoError(t, f.add(&synth.TestPlan{
		Method:  testrecorder.MethodID{Package: "example.com/app", Name: "A"},
		Imports: []synth.Import{{Path: "example.com/a/shop", Alias: "shop"}},
	}))

	err := f.add(&synth.TestPlan{
		Method:  testrecorder.MethodID{Package: "example.com/app", Name: "B"},
		Imports: []synth.Import{{Path: "example.com/b/shop", Alias: "shop"}},
	})
	assert.ErrorContains(t, err, "import alias shop")
	assert.Len(t, f.funcs, 1)
}

func TestPackageName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"example.com/calc", "calc"},
		{"example.com/my-pkg", "my_pkg"},
		{"main_test", "main_test"},
		{"", "main_test"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, packageName(tt.path))
		})
	}
}

func TestFuncName(t *testing.T) {
	assert.Equal(t, "TestParse_3", funcName(testrecorder.MethodID{Package: calcPkg, Name: "Parse"}, 3))
	assert.Equal(t, "TestAccount_Deposit_1", funcName(testrecorder.MethodID{Package: shopPkg, Receiver: "*Account", Name: "Deposit"}, 1))
}
