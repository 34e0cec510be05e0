package synth

import (
	"errors"
	"strconv"

	"github.com/speakeasy-api/testrecorder"
)

// WrappedType is the type of genobj.New, genobj.Forward and genobj.Enum
// results. Expressions of this type are unwrapped with Value() before use.
var WrappedType = testrecorder.PointerTo(testrecorder.Named(GenobjPackage, "Wrapped", testrecorder.EmptyStruct))

// DataFile is an external file generated code loads values from.
type DataFile struct {
	Dir     string
	Name    string
	Content []byte
}

// SetupGenerator synthesizes statements that rebuild a captured graph. One
// generator serves one synthesis run: every identity gets exactly one local.
type SetupGenerator struct {
	types    *TypeManager
	locals   *Locals
	adaptors *Adaptors[*SetupGenerator]
	opts     Options
	log      Logger
	files    []DataFile
}

// NewSetupGenerator creates a generator dispatching to adaptors.
func NewSetupGenerator(types *TypeManager, adaptors *Adaptors[*SetupGenerator], opts Options) *SetupGenerator {
	return &SetupGenerator{
		types:    types,
		locals:   NewLocals(),
		adaptors: adaptors,
		opts:     opts,
		log:      opts.logger(),
	}
}

func (g *SetupGenerator) Types() *TypeManager { return g.types }
func (g *SetupGenerator) Locals() *Locals     { return g.locals }

// DataFiles returns the external files the generated code depends on.
func (g *SetupGenerator) DataFiles() []DataFile { return g.files }

// AddDataFile records an external file.
func (g *SetupGenerator) AddDataFile(f DataFile) { g.files = append(g.files, f) }

// Generate returns code rebuilding v. A reference value that already has a
// local resolves to it without statements; one whose local is only reserved
// closes a cycle and is forward-declared.
func (g *SetupGenerator) Generate(v testrecorder.Value, ctx *Context) (*Computation, error) {
	if v == nil {
		return nil, errors.New("cannot generate code for a missing value")
	}
	if ref, ok := v.(testrecorder.Reference); ok {
		if b, ok := g.locals.Lookup(ref); ok {
			if g.locals.IsDefined(b) {
				return Variable(g.locals.Name(b), g.locals.Type(b)), nil
			}
			g.log.Debugf("forwarding %s to %s", testrecorder.Print(ref), g.locals.Name(b))
			return g.forward(ref, b)
		}
	}
	child, err := ctx.descend(g.opts.MaxDepth)
	if err != nil {
		return nil, &GenerationError{Value: v, Err: err}
	}
	return g.adaptors.TryGenerate(v, g, child)
}

// Field returns code for the value of f converted to the field type.
func (g *SetupGenerator) Field(f *testrecorder.Field, ctx *Context) (*Computation, error) {
	c, err := g.Generate(f.Value, ctx.WithHints(f.Hints...))
	if err != nil {
		return nil, err
	}
	return Expression(g.Adapt(c, f.Type), f.Type, c.Statements...), nil
}

// Local is the binding handed to the build function of ForVariable.
type Local struct {
	g *SetupGenerator
	b Binding
}

func (l Local) Name() string             { return l.g.locals.Name(l.b) }
func (l Local) Type() *testrecorder.Type { return l.g.locals.Type(l.b) }

// Forwarded reports whether a placeholder was already declared under Name.
// Build functions then fill the placeholder in place instead of declaring
// the local.
func (l Local) Forwarded() bool { return l.g.locals.IsDefined(l.b) }

// ForVariable builds v into a local. The local is reserved before build runs
// so that references back to v from below resolve to it. When v lies on a
// cycle and EagerForward is set, a placeholder is declared first.
func (g *SetupGenerator) ForVariable(v testrecorder.Reference, ctx *Context, build func(l Local) (*Computation, error)) (*Computation, error) {
	b := g.locals.Reserve(v, NameHint(v.ValueType()))

	var pre []string
	if g.opts.EagerForward && ctx.Cyclic(v) {
		if fwd, err := g.forward(v, b); err == nil {
			pre = fwd.Statements
		} else {
			g.log.Debugf("not forwarding %s: %v", g.locals.Name(b), err)
		}
	}

	c, err := build(Local{g: g, b: b})
	if err != nil {
		g.locals.Reset(v)
		return nil, err
	}
	if !g.locals.IsDefined(b) {
		g.locals.Define(b, c.Type)
	}
	g.locals.Finish(b)
	c.Statements = append(pre, c.Statements...)
	c.Stored = true
	return c, nil
}

// forward declares a placeholder for v under the name of b.
func (g *SetupGenerator) forward(v testrecorder.Reference, b Binding) (*Computation, error) {
	name := g.locals.Name(b)
	expr, t, err := g.placeholder(v)
	if err != nil {
		return nil, &GenerationError{Value: v, Err: err}
	}
	g.locals.Define(b, t)
	return Variable(name, t, declareLocal(name, expr)), nil
}

func (g *SetupGenerator) placeholder(v testrecorder.Reference) (string, *testrecorder.Type, error) {
	rt := v.ValueType()
	switch v := v.(type) {
	case *testrecorder.Object:
		if rt.Kind != testrecorder.Pointer {
			return "", nil, errors.New("struct values cannot be forwarded")
		}
		if g.types.IsHidden(rt) {
			return callFunc(g.types.Qualify(GenobjPackage, "Forward"), strconv.Quote(rt.String())), WrappedType, nil
		}
		return callFunc("new", g.types.TypeName(rt.Elem)), rt, nil
	case *testrecorder.List:
		if g.types.IsHidden(rt) {
			return "", nil, errors.New("hidden slice types cannot be forwarded")
		}
		return callFunc("make", g.types.TypeName(rt), strconv.Itoa(len(v.Elements()))), rt, nil
	case *testrecorder.Set, *testrecorder.Map:
		if g.types.IsHidden(rt) {
			return "", nil, errors.New("hidden map types cannot be forwarded")
		}
		return callFunc("make", g.types.TypeName(rt), strconv.Itoa(len(testrecorder.Children(v)))), rt, nil
	case *testrecorder.Array:
		if g.types.IsHidden(rt) {
			return "", nil, errors.New("hidden array types cannot be forwarded")
		}
		return g.types.TypeName(rt) + "{}", rt, nil
	}
	return "", nil, errors.New("unsupported reference variant")
}

// Adapt returns the expression of c converted to target where assignment
// alone would not compile. Wrapped values are unwrapped first.
func (g *SetupGenerator) Adapt(c *Computation, target *testrecorder.Type) string {
	expr := c.Value
	from := c.Type
	if from != nil && from.Identical(WrappedType) {
		expr += ".Value()"
		from = testrecorder.AnyType
		c = &Computation{Value: expr, Type: from}
	}
	if !g.NeedsAdaptation(c, target) {
		return expr
	}
	return g.types.Conversion(target, from, expr)
}

// NeedsAdaptation reports whether c has to be converted before it can be
// assigned to target. Hidden targets are only reached through genobj, which
// converts reflectively.
func (g *SetupGenerator) NeedsAdaptation(c *Computation, target *testrecorder.Type) bool {
	switch {
	case target == nil || target.IsAny():
		return false
	case g.types.IsHidden(target):
		return false
	case c.Type == nil:
		return false
	case c.Untyped && c.Value == "nil":
		return !target.Kind.Nillable()
	case c.Untyped:
		return !g.types.UntypedCompatible(target, c.Type.Kind)
	}
	return !g.types.Assignable(target, c.Type)
}
