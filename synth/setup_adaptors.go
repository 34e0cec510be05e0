package synth

import (
	"strconv"

	"github.com/speakeasy-api/testrecorder"
	"gopkg.in/yaml.v3"
)

// SetupAdaptor is an adaptor of the construction synthesizer.
type SetupAdaptor = Adaptor[*SetupGenerator]

// DefaultSetupAdaptors returns the built-in construction adaptors.
func DefaultSetupAdaptors() []SetupAdaptor {
	return []SetupAdaptor{
		literalSetup{literalSetupInfo},
		nullSetup{nullSetupInfo},
		immutableSetup{immutableSetupInfo},
		enumSetup{enumSetupInfo},
		objectSetup{objectSetupInfo},
		genericObjectSetup{genericSetupInfo},
		listSetup{listSetupInfo},
		largeListSetup{largeListSetupInfo},
		setSetup{setSetupInfo},
		mapSetup{mapSetupInfo},
		arraySetup{arraySetupInfo},
		largeArraySetup{largeArraySetupInfo},
		genericCollectionSetup{genericListSetupInfo},
		genericCollectionSetup{genericSetSetupInfo},
		genericCollectionSetup{genericMapSetupInfo},
		genericCollectionSetup{genericArraySetupInfo},
	}
}

// adaptorInfo carries the static description of an adaptor.
type adaptorInfo struct {
	name    string
	variant testrecorder.Variant
	parent  string
}

func (a adaptorInfo) Name() string                  { return a.name }
func (a adaptorInfo) Variant() testrecorder.Variant { return a.variant }
func (a adaptorInfo) Parent() string                { return a.parent }

var (
	literalSetupInfo    = adaptorInfo{name: "setup.literal", variant: testrecorder.LiteralVariant}
	nullSetupInfo       = adaptorInfo{name: "setup.null", variant: testrecorder.NullVariant}
	immutableSetupInfo  = adaptorInfo{name: "setup.immutable", variant: testrecorder.ImmutableVariant}
	enumSetupInfo       = adaptorInfo{name: "setup.enum", variant: testrecorder.EnumVariant}
	objectSetupInfo     = adaptorInfo{name: "setup.object", variant: testrecorder.ObjectVariant}
	genericSetupInfo    = adaptorInfo{name: "setup.generic-object", variant: testrecorder.ObjectVariant}
	listSetupInfo       = adaptorInfo{name: "setup.list", variant: testrecorder.ListVariant}
	largeListSetupInfo  = adaptorInfo{name: "setup.large-list", variant: testrecorder.ListVariant, parent: "setup.list"}
	setSetupInfo        = adaptorInfo{name: "setup.set", variant: testrecorder.SetVariant}
	mapSetupInfo        = adaptorInfo{name: "setup.map", variant: testrecorder.MapVariant}
	arraySetupInfo      = adaptorInfo{name: "setup.array", variant: testrecorder.ArrayVariant}
	largeArraySetupInfo = adaptorInfo{name: "setup.large-array", variant: testrecorder.ArrayVariant, parent: "setup.array"}

	genericListSetupInfo  = adaptorInfo{name: "setup.generic-list", variant: testrecorder.ListVariant}
	genericSetSetupInfo   = adaptorInfo{name: "setup.generic-set", variant: testrecorder.SetVariant}
	genericMapSetupInfo   = adaptorInfo{name: "setup.generic-map", variant: testrecorder.MapVariant}
	genericArraySetupInfo = adaptorInfo{name: "setup.generic-array", variant: testrecorder.ArrayVariant}
)

type literalSetup struct{ adaptorInfo }

func (literalSetup) Matches(t *testrecorder.Type) bool { return t != nil && t.Kind.IsBasic() }

func (literalSetup) TryGenerate(v testrecorder.Value, g *SetupGenerator, ctx *Context) (*Computation, error) {
	l := v.(*testrecorder.Literal)
	expr, untyped := literalExpr(g.types, l.Type(), l.Value())
	c := Expression(expr, l.Type())
	c.Untyped = untyped
	return c, nil
}

type nullSetup struct{ adaptorInfo }

func (nullSetup) Matches(t *testrecorder.Type) bool { return true }

func (nullSetup) TryGenerate(v testrecorder.Value, g *SetupGenerator, ctx *Context) (*Computation, error) {
	c := Expression("nil", v.Type())
	c.Untyped = true
	return c, nil
}

type immutableSetup struct{ adaptorInfo }

func (immutableSetup) Matches(t *testrecorder.Type) bool { return true }

func (immutableSetup) TryGenerate(v testrecorder.Value, g *SetupGenerator, ctx *Context) (*Computation, error) {
	expr, err := immutableExpr(g.types, v.(*testrecorder.Immutable))
	if err != nil {
		return nil, err
	}
	return Expression(expr, v.ValueType()), nil
}

type enumSetup struct{ adaptorInfo }

func (enumSetup) Matches(t *testrecorder.Type) bool { return t.IsNamed() }

func (enumSetup) TryGenerate(v testrecorder.Value, g *SetupGenerator, ctx *Context) (*Computation, error) {
	e := v.(*testrecorder.Enum)
	t := e.ValueType()
	if g.types.IsHidden(t) {
		expr := callFunc(g.types.Qualify(GenobjPackage, "Enum"), strconv.Quote(t.QualifiedName()), strconv.Quote(e.Name()))
		return Expression(expr, WrappedType), nil
	}
	return Expression(enumExpr(g.types, e), t), nil
}

// objectSetup writes a composite literal. It declines objects whose type or
// fields the generation package cannot name.
type objectSetup struct{ adaptorInfo }

func (objectSetup) Matches(t *testrecorder.Type) bool {
	return t.Base() != nil && t.Base().Kind == testrecorder.Struct
}

func (objectSetup) TryGenerate(v testrecorder.Value, g *SetupGenerator, ctx *Context) (*Computation, error) {
	o := v.(*testrecorder.Object)
	rt := o.ValueType()
	if err := composable(g.types, o); err != nil {
		return nil, err
	}
	return g.ForVariable(o, ctx, func(l Local) (*Computation, error) {
		var keys, values, statements []string
		for _, f := range o.Fields() {
			c, err := g.Field(f, ctx)
			if err != nil {
				return nil, err
			}
			statements = append(statements, c.Statements...)
			keys = append(keys, f.Name)
			values = append(values, c.Value)
		}
		literal := g.types.TypeName(rt.Base()) + keyed(keys, values, false)

		name := l.Name()
		switch {
		case l.Forwarded() && rt.Kind == testrecorder.Pointer:
			statements = append(statements, assignLocal("*"+name, literal))
			return Variable(name, l.Type(), statements...), nil
		case l.Forwarded():
			statements = append(statements, assignLocal(name, literal))
			return Variable(name, l.Type(), statements...), nil
		case rt.Kind == testrecorder.Pointer:
			literal = "&" + literal
		}
		statements = append(statements, declareLocal(name, literal))
		return Variable(name, rt, statements...), nil
	})
}

// composable checks that o can be written as a composite literal from the
// generation package.
func composable(types *TypeManager, o *testrecorder.Object) error {
	rt := o.ValueType()
	if rt.Kind == testrecorder.Pointer && rt.Elem.Kind == testrecorder.Pointer {
		return decline("%s is a pointer to a pointer", rt)
	}
	if types.IsHidden(rt) {
		return decline("%s is hidden", rt)
	}
	samePackage := rt.Base().PkgPath == types.Package()
	for _, f := range o.Fields() {
		if !samePackage && !testrecorder.IsExported(f.Name) {
			return decline("field %s of %s is unexported", f.Name, rt)
		}
		if types.IsHidden(f.Type) {
			return decline("field %s of %s has hidden type %s", f.Name, rt, f.Type)
		}
	}
	return nil
}

// genericObjectSetup builds objects reflectively through genobj. It accepts
// every struct, visible or not.
type genericObjectSetup struct{ adaptorInfo }

func (genericObjectSetup) Matches(t *testrecorder.Type) bool {
	return t.Base() != nil && t.Base().Kind == testrecorder.Struct
}

func (genericObjectSetup) TryGenerate(v testrecorder.Value, g *SetupGenerator, ctx *Context) (*Computation, error) {
	o := v.(*testrecorder.Object)
	rt := o.ValueType()
	return g.ForVariable(o, ctx, func(l Local) (*Computation, error) {
		var keys, values, statements []string
		for _, f := range o.Fields() {
			// genobj converts and unwraps reflectively, so the raw value suffices
			c, err := g.Generate(f.Value, ctx.WithHints(f.Hints...))
			if err != nil {
				return nil, err
			}
			statements = append(statements, c.Statements...)
			keys = append(keys, f.Name)
			values = append(values, c.Value)
		}
		fields := g.types.Qualify(GenobjPackage, "Fields") + keyed(keys, values, true)

		name := l.Name()
		if l.Forwarded() {
			statements = append(statements, callFunc(g.types.Qualify(GenobjPackage, "Define"), name, fields))
			return Variable(name, l.Type(), statements...), nil
		}
		if g.types.IsHidden(rt) {
			expr := callFunc(g.types.Qualify(GenobjPackage, "New"), strconv.Quote(rt.String()), fields)
			statements = append(statements, declareLocal(name, expr))
			return Variable(name, WrappedType, statements...), nil
		}
		expr := callGeneric(g.types.Qualify(GenobjPackage, "Build"), g.types.TypeName(rt), fields)
		statements = append(statements, declareLocal(name, expr))
		return Variable(name, rt, statements...), nil
	})
}

// collect finishes a collection built in temp: it becomes the local, or is
// merged into the local's placeholder with merge.
func collect(l Local, t *testrecorder.Type, temp string, statements []string, merge func(dst, src string) string) *Computation {
	name := l.Name()
	if l.Forwarded() {
		statements = append(statements, merge(name, temp))
		return Variable(name, l.Type(), statements...)
	}
	statements = append(statements, declareLocal(name, temp))
	return Variable(name, t, statements...)
}

func copySlice(dst, src string) string { return callFunc("copy", dst, src) }

func copyMap(types *TypeManager) func(dst, src string) string {
	return func(dst, src string) string {
		return callFunc(types.Qualify("maps", "Copy"), dst, src)
	}
}

type listSetup struct{ adaptorInfo }

func (listSetup) Matches(t *testrecorder.Type) bool { return t != nil && t.Kind == testrecorder.Slice }

func (listSetup) TryGenerate(v testrecorder.Value, g *SetupGenerator, ctx *Context) (*Computation, error) {
	list := v.(*testrecorder.List)
	rt := list.ValueType()
	if g.types.IsHidden(rt) {
		return nil, decline("slice type %s is hidden", rt)
	}
	return g.ForVariable(list, ctx, func(l Local) (*Computation, error) {
		elems := list.Elements()
		temp := g.locals.Temporary()
		statements := []string{declareLocal(temp, callFunc("make", g.types.TypeName(rt), "0", strconv.Itoa(len(elems))))}
		for _, e := range elems {
			c, err := g.Generate(e, ctx)
			if err != nil {
				return nil, err
			}
			statements = append(statements, c.Statements...)
			statements = append(statements, assignLocal(temp, callFunc("append", temp, g.Adapt(c, rt.Elem))))
		}
		return collect(l, rt, temp, statements, copySlice), nil
	})
}

type setSetup struct{ adaptorInfo }

func (setSetup) Matches(t *testrecorder.Type) bool { return t != nil && t.Kind == testrecorder.MapKind }

func (setSetup) TryGenerate(v testrecorder.Value, g *SetupGenerator, ctx *Context) (*Computation, error) {
	set := v.(*testrecorder.Set)
	rt := set.ValueType()
	if g.types.IsHidden(rt) {
		return nil, decline("set type %s is hidden", rt)
	}
	present := "true"
	if rt.IsSet() {
		present = "struct{}{}"
	}
	return g.ForVariable(set, ctx, func(l Local) (*Computation, error) {
		elems := set.Elements()
		temp := g.locals.Temporary()
		statements := []string{declareLocal(temp, callFunc("make", g.types.TypeName(rt), strconv.Itoa(len(elems))))}
		for _, e := range elems {
			c, err := g.Generate(e, ctx)
			if err != nil {
				return nil, err
			}
			statements = append(statements, c.Statements...)
			statements = append(statements, assignIndex(temp, g.Adapt(c, rt.Key), present))
		}
		return collect(l, rt, temp, statements, copyMap(g.types)), nil
	})
}

type mapSetup struct{ adaptorInfo }

func (mapSetup) Matches(t *testrecorder.Type) bool { return t != nil && t.Kind == testrecorder.MapKind }

func (mapSetup) TryGenerate(v testrecorder.Value, g *SetupGenerator, ctx *Context) (*Computation, error) {
	m := v.(*testrecorder.Map)
	rt := m.ValueType()
	if g.types.IsHidden(rt) {
		return nil, decline("map type %s is hidden", rt)
	}
	return g.ForVariable(m, ctx, func(l Local) (*Computation, error) {
		entries := m.Entries()
		temp := g.locals.Temporary()
		statements := []string{declareLocal(temp, callFunc("make", g.types.TypeName(rt), strconv.Itoa(len(entries))))}
		for _, e := range entries {
			k, err := g.Generate(e.Key, ctx)
			if err != nil {
				return nil, err
			}
			val, err := g.Generate(e.Value, ctx)
			if err != nil {
				return nil, err
			}
			statements = append(statements, k.Statements...)
			statements = append(statements, val.Statements...)
			statements = append(statements, assignIndex(temp, g.Adapt(k, rt.Key), g.Adapt(val, rt.Elem)))
		}
		return collect(l, rt, temp, statements, copyMap(g.types)), nil
	})
}

type arraySetup struct{ adaptorInfo }

func (arraySetup) Matches(t *testrecorder.Type) bool { return t != nil && t.Kind == testrecorder.ArrayKind }

func (arraySetup) TryGenerate(v testrecorder.Value, g *SetupGenerator, ctx *Context) (*Computation, error) {
	array := v.(*testrecorder.Array)
	rt := array.ValueType()
	if g.types.IsHidden(rt) {
		return nil, decline("array type %s is hidden", rt)
	}
	return g.ForVariable(array, ctx, func(l Local) (*Computation, error) {
		var statements, values []string
		for _, e := range array.Elements() {
			c, err := g.Generate(e, ctx)
			if err != nil {
				return nil, err
			}
			statements = append(statements, c.Statements...)
			values = append(values, g.Adapt(c, rt.Elem))
		}
		literal := g.types.TypeName(rt) + listed(values)
		name := l.Name()
		if l.Forwarded() {
			statements = append(statements, assignLocal(name, literal))
			return Variable(name, l.Type(), statements...), nil
		}
		statements = append(statements, declareLocal(name, literal))
		return Variable(name, rt, statements...), nil
	})
}

// genericCollectionSetup builds collections of hidden types through genobj,
// naming the type as a string. Visible types are left to the typed
// adaptors.
type genericCollectionSetup struct{ adaptorInfo }

func (genericCollectionSetup) Matches(t *testrecorder.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case testrecorder.Slice, testrecorder.MapKind, testrecorder.ArrayKind:
		return true
	}
	return false
}

func (genericCollectionSetup) TryGenerate(v testrecorder.Value, g *SetupGenerator, ctx *Context) (*Computation, error) {
	ref := v.(testrecorder.Reference)
	rt := ref.ValueType()
	if !g.types.IsHidden(rt) {
		return nil, decline("%s is visible", rt)
	}
	return g.ForVariable(ref, ctx, func(l Local) (*Computation, error) {
		if l.Forwarded() {
			return nil, decline("hidden collection %s was forwarded", rt)
		}
		var statements, args []string
		// genobj converts and unwraps reflectively, so raw values suffice
		value := func(e testrecorder.Value) (string, error) {
			c, err := g.Generate(e, ctx)
			if err != nil {
				return "", err
			}
			statements = append(statements, c.Statements...)
			return c.Value, nil
		}

		builder := "Slice"
		switch ref := ref.(type) {
		case *testrecorder.Map:
			builder = "Map"
			entry := g.types.Qualify(GenobjPackage, "Entry")
			for _, e := range ref.Entries() {
				k, err := value(e.Key)
				if err != nil {
					return nil, err
				}
				val, err := value(e.Value)
				if err != nil {
					return nil, err
				}
				args = append(args, entry+keyed([]string{"Key", "Value"}, []string{k, val}, false))
			}
		default:
			switch ref.(type) {
			case *testrecorder.Set:
				builder = "Set"
			case *testrecorder.Array:
				builder = "Array"
			}
			for _, e := range testrecorder.Children(ref) {
				x, err := value(e)
				if err != nil {
					return nil, err
				}
				args = append(args, x)
			}
		}

		expr := callFunc(g.types.Qualify(GenobjPackage, builder), append([]string{strconv.Quote(rt.String())}, args...)...)
		statements = append(statements, declareLocal(l.Name(), expr))
		return Variable(l.Name(), WrappedType, statements...), nil
	})
}

// largeListSetup stores literal slices in a data file when the value carries
// a LoadFromFile hint.
type largeListSetup struct{ adaptorInfo }

func (largeListSetup) Matches(t *testrecorder.Type) bool {
	return t != nil && t.Kind == testrecorder.Slice && primitiveComponent(t.Elem)
}

func (largeListSetup) TryGenerate(v testrecorder.Value, g *SetupGenerator, ctx *Context) (*Computation, error) {
	list := v.(*testrecorder.List)
	return loadFromFile(list, list.Elements(), g, ctx, copySlice)
}

type largeArraySetup struct{ adaptorInfo }

func (largeArraySetup) Matches(t *testrecorder.Type) bool {
	return t != nil && t.Kind == testrecorder.ArrayKind && primitiveComponent(t.Elem)
}

func (largeArraySetup) TryGenerate(v testrecorder.Value, g *SetupGenerator, ctx *Context) (*Computation, error) {
	array := v.(*testrecorder.Array)
	return loadFromFile(array, array.Elements(), g, ctx, func(dst, src string) string { return assignLocal(dst, src) })
}

func primitiveComponent(t *testrecorder.Type) bool {
	return t != nil && t.Kind.IsBasic() && !t.Kind.IsComplex()
}

func loadFromFile(v testrecorder.Reference, elems []testrecorder.Value, g *SetupGenerator, ctx *Context, merge func(dst, src string) string) (*Computation, error) {
	hint, ok := HintOf[testrecorder.LoadFromFile](ctx)
	if !ok {
		return nil, decline("no LoadFromFile hint")
	}
	rt := v.ValueType()
	if g.types.IsHidden(rt) {
		return nil, decline("%s is hidden", rt)
	}
	data := make([]any, 0, len(elems))
	for _, e := range elems {
		l, ok := e.(*testrecorder.Literal)
		if !ok {
			return nil, decline("element %s is not a literal", testrecorder.Print(e))
		}
		data = append(data, l.Value())
	}
	content, err := yaml.Marshal(data)
	if err != nil {
		return nil, err
	}
	file := testrecorder.Fingerprint(v)[:16] + ".yaml"
	g.AddDataFile(DataFile{Dir: hint.WriteTo, Name: file, Content: content})

	return g.ForVariable(v, ctx, func(l Local) (*Computation, error) {
		load := callGeneric(g.types.Qualify(GenobjPackage, "Load"), g.types.TypeName(rt), strconv.Quote(hint.ReadFrom), strconv.Quote(file))
		name := l.Name()
		if l.Forwarded() {
			return Variable(name, l.Type(), merge(name, load)), nil
		}
		return Variable(name, rt, declareLocal(name, load)), nil
	})
}
