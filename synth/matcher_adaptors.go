package synth

import (
	"strconv"

	"github.com/speakeasy-api/testrecorder"
)

// MatcherAdaptor is an adaptor of the matcher synthesizer.
type MatcherAdaptor = Adaptor[*MatcherGenerator]

// DefaultMatcherAdaptors returns the built-in matcher adaptors.
func DefaultMatcherAdaptors() []MatcherAdaptor {
	return []MatcherAdaptor{
		literalMatcher{adaptorInfo{name: "matcher.literal", variant: testrecorder.LiteralVariant}},
		nullMatcher{adaptorInfo{name: "matcher.null", variant: testrecorder.NullVariant}},
		immutableMatcher{adaptorInfo{name: "matcher.immutable", variant: testrecorder.ImmutableVariant}},
		enumMatcher{adaptorInfo{name: "matcher.enum", variant: testrecorder.EnumVariant}},
		objectMatcher{adaptorInfo{name: "matcher.object", variant: testrecorder.ObjectVariant}},
		genericObjectMatcher{adaptorInfo{name: "matcher.generic-object", variant: testrecorder.ObjectVariant}},
		listMatcher{adaptorInfo{name: "matcher.list", variant: testrecorder.ListVariant}},
		setMatcher{adaptorInfo{name: "matcher.set", variant: testrecorder.SetVariant}},
		mapMatcher{adaptorInfo{name: "matcher.map", variant: testrecorder.MapVariant}},
		arrayMatcher{adaptorInfo{name: "matcher.array", variant: testrecorder.ArrayVariant}},
	}
}

type literalMatcher struct{ adaptorInfo }

func (literalMatcher) Matches(t *testrecorder.Type) bool { return t != nil && t.Kind.IsBasic() }

func (literalMatcher) TryGenerate(v testrecorder.Value, g *MatcherGenerator, ctx *Context) (*Computation, error) {
	return g.call("EqualTo", []string{g.SimpleValue(v)}, nil), nil
}

type nullMatcher struct{ adaptorInfo }

func (nullMatcher) Matches(t *testrecorder.Type) bool { return true }

func (nullMatcher) TryGenerate(v testrecorder.Value, g *MatcherGenerator, ctx *Context) (*Computation, error) {
	return g.call("Nil", nil, nil), nil
}

type immutableMatcher struct{ adaptorInfo }

func (immutableMatcher) Matches(t *testrecorder.Type) bool { return true }

func (immutableMatcher) TryGenerate(v testrecorder.Value, g *MatcherGenerator, ctx *Context) (*Computation, error) {
	expr, err := immutableExpr(g.types, v.(*testrecorder.Immutable))
	if err != nil {
		return nil, err
	}
	return g.call("EqualTo", []string{expr}, nil), nil
}

// enumMatcher compares visible constants by value and hidden ones by name.
type enumMatcher struct{ adaptorInfo }

func (enumMatcher) Matches(t *testrecorder.Type) bool { return t.IsNamed() }

func (enumMatcher) TryGenerate(v testrecorder.Value, g *MatcherGenerator, ctx *Context) (*Computation, error) {
	e := v.(*testrecorder.Enum)
	if g.types.IsHidden(e.ValueType()) {
		return g.call("Enum", []string{strconv.Quote(e.Name())}, nil), nil
	}
	return g.call("EqualTo", []string{enumExpr(g.types, e)}, nil), nil
}

// fieldMatchers renders the match.Fields literal for the checked fields of o.
func fieldMatchers(o *testrecorder.Object, g *MatcherGenerator, ctx *Context) (string, []string, error) {
	var keys, values, statements []string
	for _, f := range o.Fields() {
		c, err := g.Field(f, ctx)
		if err != nil {
			return "", nil, err
		}
		if c == nil {
			continue
		}
		statements = append(statements, c.Statements...)
		keys = append(keys, f.Name)
		values = append(values, c.Value)
	}
	return g.types.Qualify(MatchPackage, "Fields") + keyed(keys, values, true), statements, nil
}

type objectMatcher struct{ adaptorInfo }

func (objectMatcher) Matches(t *testrecorder.Type) bool {
	return t.Base() != nil && t.Base().Kind == testrecorder.Struct
}

func (objectMatcher) TryGenerate(v testrecorder.Value, g *MatcherGenerator, ctx *Context) (*Computation, error) {
	o := v.(*testrecorder.Object)
	rt := o.ValueType()
	if g.types.IsHidden(rt) {
		return nil, decline("%s is hidden", rt)
	}
	fields, statements, err := fieldMatchers(o, g, ctx)
	if err != nil {
		return nil, err
	}
	expr := callGeneric(g.types.Qualify(MatchPackage, "Object"), g.types.TypeName(rt), fields)
	return Expression(expr, MatcherType, statements...), nil
}

// genericObjectMatcher identifies the type by name, for types generated code
// cannot spell.
type genericObjectMatcher struct{ adaptorInfo }

func (genericObjectMatcher) Matches(t *testrecorder.Type) bool {
	return t.Base() != nil && t.Base().Kind == testrecorder.Struct
}

func (genericObjectMatcher) TryGenerate(v testrecorder.Value, g *MatcherGenerator, ctx *Context) (*Computation, error) {
	o := v.(*testrecorder.Object)
	fields, statements, err := fieldMatchers(o, g, ctx)
	if err != nil {
		return nil, err
	}
	return g.call("Generic", []string{strconv.Quote(o.ValueType().String()), fields}, statements), nil
}

type listMatcher struct{ adaptorInfo }

func (listMatcher) Matches(t *testrecorder.Type) bool { return t != nil && t.Kind == testrecorder.Slice }

func (listMatcher) TryGenerate(v testrecorder.Value, g *MatcherGenerator, ctx *Context) (*Computation, error) {
	elems := v.(*testrecorder.List).Elements()
	if len(elems) == 0 {
		return g.call("Empty", nil, nil), nil
	}
	args, statements, err := g.elements(elems, ctx)
	if err != nil {
		return nil, err
	}
	return g.call("ContainsInOrder", args, statements), nil
}

type setMatcher struct{ adaptorInfo }

func (setMatcher) Matches(t *testrecorder.Type) bool { return t != nil && t.Kind == testrecorder.MapKind }

func (setMatcher) TryGenerate(v testrecorder.Value, g *MatcherGenerator, ctx *Context) (*Computation, error) {
	elems := v.(*testrecorder.Set).Elements()
	if len(elems) == 0 {
		return g.call("Empty", nil, nil), nil
	}
	args, statements, err := g.elements(elems, ctx)
	if err != nil {
		return nil, err
	}
	return g.call("ContainsInAnyOrder", args, statements), nil
}

type mapMatcher struct{ adaptorInfo }

func (mapMatcher) Matches(t *testrecorder.Type) bool { return t != nil && t.Kind == testrecorder.MapKind }

func (mapMatcher) TryGenerate(v testrecorder.Value, g *MatcherGenerator, ctx *Context) (*Computation, error) {
	entries := v.(*testrecorder.Map).Entries()
	if len(entries) == 0 {
		return g.call("NoEntries", nil, nil), nil
	}
	var args, statements []string
	for _, e := range entries {
		kv, stmts, err := g.elements([]testrecorder.Value{e.Key, e.Value}, ctx)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmts...)
		args = append(args, callFunc(g.types.Qualify(MatchPackage, "Entry"), kv...))
	}
	return g.call("ContainsEntries", args, statements), nil
}

// arrayMatcher compares arrays of basic components element-wise by value and
// arrays of references through nested matchers.
type arrayMatcher struct{ adaptorInfo }

func (arrayMatcher) Matches(t *testrecorder.Type) bool { return t != nil && t.Kind == testrecorder.ArrayKind }

func (arrayMatcher) TryGenerate(v testrecorder.Value, g *MatcherGenerator, ctx *Context) (*Computation, error) {
	array := v.(*testrecorder.Array)
	elems := array.Elements()
	if len(elems) == 0 {
		return g.call("EmptyArray", nil, nil), nil
	}
	args, statements, err := g.elements(elems, ctx)
	if err != nil {
		return nil, err
	}
	if array.ComponentType().Kind.IsBasic() {
		return g.call("PrimitiveArray", args, statements), nil
	}
	return g.call("ArrayContaining", args, statements), nil
}
