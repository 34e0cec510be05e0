package synth

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/speakeasy-api/testrecorder"
)

func shopSnapshot() *testrecorder.Snapshot {
	receiver := bean(1)
	after := bean(2)
	counter := testrecorder.Named("example.com/shop", "Counter", intT)
	cart := testrecorder.NewList(testrecorder.SliceOf(beanPtr), nil, bean(3))

	return &testrecorder.Snapshot{
		Method:    testrecorder.MethodID{Package: shopPkg, Receiver: "*Bean", Name: "Add"},
		This:      receiver,
		ThisAfter: after,
		Args: []testrecorder.Arg{
			{Declared: intT, Value: testrecorder.Lit(intT, 4)},
			{Declared: testrecorder.SliceOf(beanPtr), Value: cart},
		},
		ArgsAfter: []testrecorder.Arg{
			{Declared: intT, Value: testrecorder.Lit(intT, 4)},
			{Declared: testrecorder.SliceOf(beanPtr), Value: cart},
		},
		ResultType: strT,
		Result:     testrecorder.Lit(strT, "ok"),
		Globals: []testrecorder.Global{
			{Package: shopPkg, Name: "Total", Declared: counter, Value: testrecorder.Lit(counter, 9)},
		},
		GlobalsAfter: []testrecorder.Global{
			{Package: shopPkg, Name: "Total", Declared: counter, Value: testrecorder.Lit(counter, 10)},
		},
	}
}

func fragmentSummary(fs []Fragment) []string {
	var out []string
	for _, f := range fs {
		out = append(out, string(f.Purpose)+" "+f.Name+" = "+f.Expression)
	}
	return out
}

func TestPlanSnapshot(t *testing.T) {
	s := New(testOptions())
	plan, err := s.PlanSnapshot(shopSnapshot())
	if err != nil {
		t.Fatalf("PlanSnapshot failed: %v", err)
	}
	if _, err := uuid.Parse(plan.RunID); err != nil {
		t.Errorf("Expected a uuid run id, got %q", plan.RunID)
	}

	wantArrange := []string{
		"receiver this = bean1",
		"argument arg0 = 4",
		"argument arg1 = list1",
		"global example.com/shop.Total = shop.Counter(9)",
	}
	if diff := cmp.Diff(wantArrange, fragmentSummary(plan.Arrange)); diff != "" {
		t.Errorf("arrange mismatch (-want +got):\n%s", diff)
	}

	wantAssert := []string{
		`result result = match.EqualTo("ok")`,
		`receiver-after this = match.Object[*shop.Bean](match.Fields{"Field": 2})`,
		`argument-after arg1 = match.ContainsInOrder(match.Object[*shop.Bean](match.Fields{"Field": 3}))`,
		"global-after example.com/shop.Total = match.EqualTo(shop.Counter(10))",
	}
	if diff := cmp.Diff(wantAssert, fragmentSummary(plan.Assert)); diff != "" {
		t.Errorf("assert mismatch (-want +got):\n%s", diff)
	}

	if got := plan.Arrange[2].Type; got != "[]*shop.Bean" {
		t.Errorf("Unexpected argument type %s", got)
	}
	if got := plan.Assert[0].Type; got != "match.Matcher" {
		t.Errorf("Unexpected matcher type %s", got)
	}

	var paths []string
	for _, imp := range plan.Imports {
		paths = append(paths, imp.Path)
	}
	wantPaths := []string{shopPkg, MatchPackage}
	if diff := cmp.Diff(wantPaths, paths); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanSnapshotError(t *testing.T) {
	errT := testrecorder.PointerTo(testrecorder.Named(shopPkg, "Failure", testrecorder.StructOf(
		testrecorder.StructField{Name: "Msg", Type: strT},
	)))
	snap := &testrecorder.Snapshot{
		Method: testrecorder.MethodID{Package: shopPkg, Name: "Parse"},
		Args:   []testrecorder.Arg{{Declared: strT, Value: testrecorder.Lit(strT, "x")}},
		Err:    testrecorder.NewObject(testrecorder.ErrorType, errT).With("Msg", strT, testrecorder.Lit(strT, "bad")),
	}

	plan, err := New(testOptions()).PlanSnapshot(snap)
	if err != nil {
		t.Fatalf("PlanSnapshot failed: %v", err)
	}
	want := []string{`error err = match.Object[*shop.Failure](match.Fields{"Msg": "bad"})`}
	if diff := cmp.Diff(want, fragmentSummary(plan.Assert)); diff != "" {
		t.Errorf("assert mismatch (-want +got):\n%s", diff)
	}
}

// TestPlanSnapshotArgLocals tests that locals named after a type Arg do not
// shadow the argument variables
func TestPlanSnapshotArgLocals(t *testing.T) {
	argT := testrecorder.PointerTo(testrecorder.Named(shopPkg, "Arg", testrecorder.StructOf(
		testrecorder.StructField{Name: "N", Type: intT},
	)))
	arg := func(n int) testrecorder.Value {
		return testrecorder.NewObject(argT, nil).With("N", intT, testrecorder.Lit(intT, n))
	}
	snap := &testrecorder.Snapshot{
		Method: testrecorder.MethodID{Package: shopPkg, Name: "Merge"},
		Args:   []testrecorder.Arg{{Declared: argT, Value: arg(1)}, {Declared: argT, Value: arg(2)}},
		Result: testrecorder.Lit(intT, 3),
	}

	plan, err := New(testOptions()).PlanSnapshot(snap)
	if err != nil {
		t.Fatalf("PlanSnapshot failed: %v", err)
	}
	want := []string{"argument arg0 = arg2", "argument arg1 = arg3"}
	if diff := cmp.Diff(want, fragmentSummary(plan.Arrange)); diff != "" {
		t.Errorf("arrange mismatch (-want +got):\n%s", diff)
	}
	if got := plan.Arrange[1].Statements; len(got) != 1 || got[0] != "arg3 := &shop.Arg{N: 2}" {
		t.Errorf("Unexpected statements %v", got)
	}
}

func TestPlanSnapshotInvalid(t *testing.T) {
	snap := shopSnapshot()
	snap.Err = testrecorder.Nil(testrecorder.ErrorType)

	_, err := New(testOptions()).PlanSnapshot(snap)
	if !errors.Is(err, testrecorder.ErrInvalidSnapshot) {
		t.Errorf("Expected ErrInvalidSnapshot, got %v", err)
	}
}

func TestPlanSnapshotSkipChecks(t *testing.T) {
	snap := shopSnapshot()
	snap.ArgsAfter[1].Hints = []testrecorder.Hint{testrecorder.SkipChecks{}}

	plan, err := New(testOptions()).PlanSnapshot(snap)
	if err != nil {
		t.Fatalf("PlanSnapshot failed: %v", err)
	}
	for _, f := range plan.Assert {
		if f.Purpose == PurposeArgumentAfter {
			t.Errorf("Expected skipped argument checks, got %s", f.Expression)
		}
	}
}

func TestRegisterSetupProvider(t *testing.T) {
	before := New(testOptions())
	RegisterSetupProvider(func() []SetupAdaptor {
		return []SetupAdaptor{objectSetup{adaptorInfo{name: "test.object", variant: testrecorder.ObjectVariant, parent: "setup.object"}}}
	})
	t.Cleanup(func() {
		providersMu.Lock()
		setupProviders = setupProviders[:len(setupProviders)-1]
		providersMu.Unlock()
	})

	if n := len(before.SetupAdaptors().Bucket(testrecorder.ObjectVariant)); n != 2 {
		t.Errorf("Expected existing synthesizers to keep their table, got %d adaptors", n)
	}
	bucket := New(testOptions()).SetupAdaptors().Bucket(testrecorder.ObjectVariant)
	if len(bucket) != 3 || bucket[0].Name() != "test.object" {
		t.Errorf("Expected the registered specialization first, got %d adaptors", len(bucket))
	}
}
