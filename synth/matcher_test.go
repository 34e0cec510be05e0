package synth

import (
	"testing"

	"github.com/speakeasy-api/testrecorder"
)

func newMatcher(opts Options) *MatcherGenerator {
	return NewMatcherGenerator(NewTypeManager(opts.Package), NewAdaptors(DefaultMatcherAdaptors()...), opts)
}

func mustMatch(t *testing.T, g *MatcherGenerator, v testrecorder.Value, ctx *Context) *Computation {
	t.Helper()
	c, err := g.Generate(v, ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if c == nil {
		t.Fatal("Expected a matcher, got nil")
	}
	return c
}

func TestMatcherObject(t *testing.T) {
	g := newMatcher(testOptions())
	c := mustMatch(t, g, bean(12), NewContext())

	want := `match.Object[*shop.Bean](match.Fields{"Field": 12})`
	if c.Value != want {
		t.Errorf("Expected %s, got %s", want, c.Value)
	}
	if len(c.Statements) != 0 {
		t.Errorf("Expected no statements, got %v", c.Statements)
	}
	if !c.Type.Identical(MatcherType) {
		t.Errorf("Expected matcher type, got %s", c.Type)
	}
}

func TestMatcherCollections(t *testing.T) {
	tests := []struct {
		name  string
		value testrecorder.Value
		want  string
	}{
		{
			name:  "empty list",
			value: testrecorder.NewList(testrecorder.SliceOf(strT), nil),
			want:  "match.Empty()",
		},
		{
			name:  "list",
			value: testrecorder.NewList(testrecorder.SliceOf(strT), nil, strs("a", "b")...),
			want:  `match.ContainsInOrder("a", "b")`,
		},
		{
			name:  "set",
			value: testrecorder.NewSet(testrecorder.SetOf(strT), nil, strs("x")...),
			want:  `match.ContainsInAnyOrder("x")`,
		},
		{
			name:  "empty set",
			value: testrecorder.NewSet(testrecorder.SetOf(strT), nil),
			want:  "match.Empty()",
		},
		{
			name: "map",
			value: testrecorder.NewMap(testrecorder.MapOf(strT, intT), nil,
				testrecorder.Entry{Key: testrecorder.Lit(strT, "k"), Value: testrecorder.Lit(intT, 1)}),
			want: `match.ContainsEntries(match.Entry("k", 1))`,
		},
		{
			name:  "empty map",
			value: testrecorder.NewMap(testrecorder.MapOf(strT, intT), nil),
			want:  "match.NoEntries()",
		},
		{
			name: "primitive array",
			value: testrecorder.NewArray(testrecorder.ArrayOf(2, intT), nil,
				testrecorder.Lit(intT, 1), testrecorder.Lit(intT, 2)),
			want: "match.PrimitiveArray(1, 2)",
		},
		{
			name:  "object array",
			value: testrecorder.NewArray(testrecorder.ArrayOf(1, beanPtr), nil, bean(3)),
			want:  `match.ArrayContaining(match.Object[*shop.Bean](match.Fields{"Field": 3}))`,
		},
		{
			name:  "empty array",
			value: testrecorder.NewArray(testrecorder.ArrayOf(0, intT), nil),
			want:  "match.EmptyArray()",
		},
		{
			name:  "nil",
			value: testrecorder.Nil(beanPtr),
			want:  "match.Nil()",
		},
		{
			name:  "literal",
			value: testrecorder.Lit(strT, "ok"),
			want:  `match.EqualTo("ok")`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustMatch(t, newMatcher(testOptions()), tt.value, NewContext())
			if c.Value != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, c.Value)
			}
		})
	}
}

func TestMatcherRecursive(t *testing.T) {
	g := newMatcher(testOptions())
	a, _ := cycle()
	c := mustMatch(t, g, a, NewContext())

	inner := `match.Object[*shop.Node](match.Fields{"Name": "b", "Next": match.Recursive[*shop.Node]()})`
	want := `match.Object[*shop.Node](match.Fields{"Name": "a", "Next": ` + inner + `})`
	if c.Value != want {
		t.Errorf("Expected\n  %s\ngot\n  %s", want, c.Value)
	}
}

func TestMatcherHidden(t *testing.T) {
	g := newMatcher(testOptions())
	v := testrecorder.NewObject(hiddenBeanPtr, nil).With("Field", intT, testrecorder.Lit(intT, 12))
	v.With("Self", hiddenBeanPtr, v)
	c := mustMatch(t, g, v, NewContext())

	want := `match.Generic("*example.com/shop.bean", match.Fields{"Field": 12, "Self": match.RecursiveOf("*example.com/shop.bean")})`
	if c.Value != want {
		t.Errorf("Expected %s, got %s", want, c.Value)
	}
}

func TestMatcherEnum(t *testing.T) {
	color := testrecorder.Named(shopPkg, "Color", intT)
	hiddenColor := testrecorder.Named(shopPkg, "color", intT)

	g := newMatcher(testOptions())
	c := mustMatch(t, g, testrecorder.EnumOf(nil, color, "Red", 1), NewContext())
	if c.Value != "match.EqualTo(shop.Red)" {
		t.Errorf("Unexpected visible enum matcher %s", c.Value)
	}
	c = mustMatch(t, g, testrecorder.EnumOf(nil, hiddenColor, "blue", 2), NewContext())
	if c.Value != `match.Enum("blue")` {
		t.Errorf("Unexpected hidden enum matcher %s", c.Value)
	}
}

func TestMatcherSkipChecks(t *testing.T) {
	g := newMatcher(testOptions())
	v := bean(5).With("Secret", strT, testrecorder.Lit(strT, "pw"), testrecorder.SkipChecks{})

	c := mustMatch(t, g, v, NewContext())
	want := `match.Object[*shop.Bean](match.Fields{"Field": 5})`
	if c.Value != want {
		t.Errorf("Expected %s, got %s", want, c.Value)
	}

	skipped, err := g.Generate(bean(1), NewContext(testrecorder.SkipChecks{}))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if skipped != nil {
		t.Errorf("Expected no matcher under SkipChecks, got %s", skipped.Value)
	}
}

func TestMatcherSkippedElements(t *testing.T) {
	g := newMatcher(testOptions())
	list := testrecorder.NewList(testrecorder.SliceOf(strT), nil, strs("a")...)
	args, _, err := g.elements(list.Elements(), NewContext(testrecorder.SkipChecks{}))
	if err != nil {
		t.Fatalf("elements failed: %v", err)
	}
	if len(args) != 1 || args[0] != "match.Any()" {
		t.Errorf("Expected a wildcard per skipped element, got %v", args)
	}
}
