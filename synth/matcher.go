package synth

import (
	"errors"
	"strconv"

	"github.com/speakeasy-api/testrecorder"
)

// MatcherGenerator synthesizes matcher expressions asserting that an object
// is structurally equal to a captured graph. An identity is expanded once per
// run; later visits check the type only.
type MatcherGenerator struct {
	types    *TypeManager
	adaptors *Adaptors[*MatcherGenerator]
	opts     Options
	log      Logger
	visited  map[testrecorder.Reference]bool
}

// NewMatcherGenerator creates a generator dispatching to adaptors.
func NewMatcherGenerator(types *TypeManager, adaptors *Adaptors[*MatcherGenerator], opts Options) *MatcherGenerator {
	return &MatcherGenerator{
		types:    types,
		adaptors: adaptors,
		opts:     opts,
		log:      opts.logger(),
		visited:  make(map[testrecorder.Reference]bool),
	}
}

func (g *MatcherGenerator) Types() *TypeManager { return g.types }

// Generate returns a matcher for v, or nil when checks are skipped below ctx.
func (g *MatcherGenerator) Generate(v testrecorder.Value, ctx *Context) (*Computation, error) {
	if v == nil {
		return nil, errors.New("cannot generate a matcher for a missing value")
	}
	if _, skip := HintOf[testrecorder.SkipChecks](ctx); skip {
		return nil, nil
	}
	if ref, ok := v.(testrecorder.Reference); ok {
		if g.visited[ref] {
			return g.recursive(ref), nil
		}
		g.visited[ref] = true
	}
	child, err := ctx.descend(g.opts.MaxDepth)
	if err != nil {
		return nil, &GenerationError{Value: v, Err: err}
	}
	return g.adaptors.TryGenerate(v, g, child)
}

func (g *MatcherGenerator) recursive(v testrecorder.Reference) *Computation {
	rt := v.ValueType()
	if g.types.IsHidden(rt) {
		return Expression(callFunc(g.types.Qualify(MatchPackage, "RecursiveOf"), strconv.Quote(rt.String())), MatcherType)
	}
	return Expression(callGeneric(g.types.Qualify(MatchPackage, "Recursive"), g.types.TypeName(rt)), MatcherType)
}

// Field returns the matcher argument for the value of f, nil when the field
// is not checked.
func (g *MatcherGenerator) Field(f *testrecorder.Field, ctx *Context) (*Computation, error) {
	return g.Element(f.Value, ctx.WithHints(f.Hints...))
}

// Element returns a matcher argument for a value nested in a composite.
// Literals and nils are passed as plain values, which the runtime compares
// for equality.
func (g *MatcherGenerator) Element(v testrecorder.Value, ctx *Context) (*Computation, error) {
	if _, skip := HintOf[testrecorder.SkipChecks](ctx); skip {
		return nil, nil
	}
	if IsSimpleValue(v) {
		return Expression(g.SimpleValue(v), v.Type()), nil
	}
	return g.Generate(v, ctx)
}

// IsSimpleValue reports whether v is compared by plain equality.
func IsSimpleValue(v testrecorder.Value) bool {
	return testrecorder.IsPrimitive(v)
}

// SimpleValue renders a literal or nil.
func (g *MatcherGenerator) SimpleValue(v testrecorder.Value) string {
	if l, ok := v.(*testrecorder.Literal); ok {
		expr, _ := literalExpr(g.types, l.Type(), l.Value())
		return expr
	}
	return "nil"
}

// elements renders the matcher arguments for elems. Skipped elements match
// anything so positions are kept.
func (g *MatcherGenerator) elements(elems []testrecorder.Value, ctx *Context) ([]string, []string, error) {
	var args, statements []string
	for _, e := range elems {
		c, err := g.Element(e, ctx)
		if err != nil {
			return nil, nil, err
		}
		if c == nil {
			args = append(args, callFunc(g.types.Qualify(MatchPackage, "Any")))
			continue
		}
		statements = append(statements, c.Statements...)
		args = append(args, c.Value)
	}
	return args, statements, nil
}

func (g *MatcherGenerator) call(fn string, args []string, statements []string) *Computation {
	return Expression(callFunc(g.types.Qualify(MatchPackage, fn), args...), MatcherType, statements...)
}
