package snapfile

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/testrecorder"
)

// ErrFormat is returned for documents that do not describe a snapshot.
var ErrFormat = errors.New("malformed snapshot document")

// ReadFile decodes every snapshot in the file at path.
func ReadFile(path string) ([]*testrecorder.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer f.Close()

	snaps, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snaps, nil
}

// Decode reads snapshots from r until the end of the stream.
func Decode(r io.Reader) ([]*testrecorder.Snapshot, error) {
	dec := yaml.NewDecoder(r)
	var out []*testrecorder.Snapshot
	for i := 0; ; i++ {
		var doc document
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		snap, err := newDecoder(&doc).snapshot()
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		out = append(out, snap)
	}
}

type decoder struct {
	doc   *document
	named map[string]*testrecorder.Type
	ids   map[string]*node
	built map[*node]testrecorder.Value
}

func newDecoder(doc *document) *decoder {
	return &decoder{
		doc:   doc,
		named: make(map[string]*testrecorder.Type),
		ids:   make(map[string]*node),
		built: make(map[*node]testrecorder.Value),
	}
}

func (d *decoder) snapshot() (*testrecorder.Snapshot, error) {
	doc := d.doc
	if doc.Method.Name == "" {
		return nil, fmt.Errorf("%w: method name missing", ErrFormat)
	}
	for _, roots := range [][]*node{{doc.This, doc.Result, doc.Error, doc.ThisAfter}, doc.Args, doc.ArgsAfter, globalNodes(doc.Globals), globalNodes(doc.GlobalsAfter)} {
		for _, n := range roots {
			if err := d.index(n); err != nil {
				return nil, err
			}
		}
	}

	snap := &testrecorder.Snapshot{Method: doc.Method}
	var err error
	if snap.This, err = d.optional(doc.This); err != nil {
		return nil, fmt.Errorf("this: %w", err)
	}
	if snap.ThisAfter, err = d.optional(doc.ThisAfter); err != nil {
		return nil, fmt.Errorf("this_after: %w", err)
	}
	if snap.Args, err = d.args(doc.Args); err != nil {
		return nil, err
	}
	if snap.ArgsAfter, err = d.args(doc.ArgsAfter); err != nil {
		return nil, err
	}
	if snap.Globals, err = d.globals(doc.Globals); err != nil {
		return nil, err
	}
	if snap.GlobalsAfter, err = d.globals(doc.GlobalsAfter); err != nil {
		return nil, err
	}
	if doc.ResultType != "" {
		if snap.ResultType, err = d.typ(doc.ResultType); err != nil {
			return nil, err
		}
	}
	if snap.Result, err = d.optional(doc.Result); err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}
	if snap.Err, err = d.optional(doc.Error); err != nil {
		return nil, fmt.Errorf("error: %w", err)
	}
	return snap, snap.Validate()
}

func globalNodes(gs []*globalDoc) []*node {
	out := make([]*node, 0, len(gs))
	for _, g := range gs {
		if g != nil {
			out = append(out, g.Value)
		}
	}
	return out
}

// index registers every node carrying an id, so refs resolve regardless of
// document order.
func (d *decoder) index(n *node) error {
	if n == nil {
		return nil
	}
	if n.ID != "" {
		if _, dup := d.ids[n.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrFormat, n.ID)
		}
		d.ids[n.ID] = n
	}
	for _, name := range sortedKeys(n.Fields) {
		if err := d.index(n.Fields[name]); err != nil {
			return err
		}
	}
	for _, e := range n.Elems {
		if err := d.index(e); err != nil {
			return err
		}
	}
	for _, e := range n.Entries {
		if err := d.index(e.Key); err != nil {
			return err
		}
		if err := d.index(e.Value); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) optional(n *node) (testrecorder.Value, error) {
	if n == nil {
		return nil, nil
	}
	return d.value(n)
}

func (d *decoder) args(nodes []*node) ([]testrecorder.Arg, error) {
	var out []testrecorder.Arg
	for i, n := range nodes {
		v, err := d.value(n)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		declared, err := d.declared(n, v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out = append(out, testrecorder.Arg{Declared: declared, Value: v, Hints: hintsOf(n.Hints)})
	}
	return out, nil
}

func (d *decoder) globals(docs []*globalDoc) ([]testrecorder.Global, error) {
	var out []testrecorder.Global
	for _, g := range docs {
		if g == nil || g.Value == nil {
			return nil, fmt.Errorf("%w: global without value", ErrFormat)
		}
		v, err := d.value(g.Value)
		if err != nil {
			return nil, fmt.Errorf("global %s.%s: %w", g.Package, g.Name, err)
		}
		declared, err := d.declared(g.Value, v)
		if err != nil {
			return nil, fmt.Errorf("global %s.%s: %w", g.Package, g.Name, err)
		}
		out = append(out, testrecorder.Global{
			Package:  g.Package,
			Name:     g.Name,
			Declared: declared,
			Value:    v,
			Hints:    hintsOf(g.Value.Hints),
		})
	}
	return out, nil
}

// declared returns the declared type written on n, which may be a ref, or
// the declared type of v.
func (d *decoder) declared(n *node, v testrecorder.Value) (*testrecorder.Type, error) {
	if n.Declared == "" {
		return v.Type(), nil
	}
	return d.typ(n.Declared)
}

func (d *decoder) typ(expr string) (*testrecorder.Type, error) {
	return parseType(expr, d.namedType)
}

// namedType resolves a named type from the types section. The type is
// cached before its structure is parsed so recursive declarations resolve.
func (d *decoder) namedType(pkgPath, name string) (*testrecorder.Type, error) {
	qn := pkgPath + "." + name
	if t, ok := d.named[qn]; ok {
		return t, nil
	}
	t := &testrecorder.Type{Kind: testrecorder.Struct, PkgPath: pkgPath, Name: name}
	d.named[qn] = t

	decl := d.doc.Types[qn]
	if decl == nil {
		return t, nil
	}
	if decl.Underlying != "" {
		u, err := d.typ(decl.Underlying)
		if err != nil {
			return nil, err
		}
		t.Kind, t.Elem, t.Key, t.Len, t.Fields = u.Kind, u.Elem, u.Key, u.Len, u.Fields
	}
	for _, f := range decl.Fields {
		ft, err := d.typ(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s of %s: %w", f.Name, qn, err)
		}
		t.Fields = append(t.Fields, testrecorder.StructField{Name: f.Name, Type: ft, Embedded: f.Embedded})
	}
	for _, expr := range decl.Implements {
		it, err := d.typ(expr)
		if err != nil {
			return nil, err
		}
		t.Implementing(it)
	}
	return t, nil
}

// types returns the value type of n and the declared type, which defaults
// to the value type.
func (d *decoder) types(n *node) (valueType, declared *testrecorder.Type, err error) {
	if n.Type == "" {
		return nil, nil, fmt.Errorf("%w: %s node without type", ErrFormat, n.Kind)
	}
	if valueType, err = d.typ(n.Type); err != nil {
		return nil, nil, err
	}
	declared = valueType
	if n.Declared != "" {
		if declared, err = d.typ(n.Declared); err != nil {
			return nil, nil, err
		}
	}
	return valueType, declared, nil
}

func (d *decoder) value(n *node) (testrecorder.Value, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: missing value", ErrFormat)
	}
	if n.Ref != "" {
		target, ok := d.ids[n.Ref]
		if !ok {
			return nil, fmt.Errorf("%w: unknown ref %q", ErrFormat, n.Ref)
		}
		n = target
	}
	if v, ok := d.built[n]; ok {
		return v, nil
	}

	t, declared, err := d.types(n)
	if err != nil {
		return nil, err
	}

	switch n.Kind {
	case kindLit:
		lit, err := literal(t, n.Lit.yamlNode())
		if err != nil {
			return nil, err
		}
		return testrecorder.Lit(t, lit), nil
	case kindNull:
		return testrecorder.Nil(declared), nil
	case kindEnum:
		lit, err := literal(t, n.Lit.yamlNode())
		if err != nil {
			return nil, err
		}
		return testrecorder.EnumOf(declared, t, n.Enum, lit), nil
	case kindBigInt, kindBigFloat, kindBigRat, kindTime, kindDuration, kindTypeRef:
		return d.immutable(n, declared)
	case kindObject:
		o := testrecorder.NewObject(declared, t)
		d.built[n] = o
		for _, name := range sortedKeys(n.Fields) {
			f := n.Fields[name]
			fv, err := d.value(f)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
			o.With(name, fv.Type(), fv, hintsOf(f.Hints)...)
		}
		return o, nil
	case kindList:
		l := testrecorder.NewList(declared, t)
		d.built[n] = l
		elems, err := d.values(n.Elems)
		l.Add(elems...)
		return l, err
	case kindSet:
		s := testrecorder.NewSet(declared, t)
		d.built[n] = s
		elems, err := d.values(n.Elems)
		s.Add(elems...)
		return s, err
	case kindArray:
		a := testrecorder.NewArray(declared, t)
		d.built[n] = a
		elems, err := d.values(n.Elems)
		a.Add(elems...)
		return a, err
	case kindMap:
		m := testrecorder.NewMap(declared, t)
		d.built[n] = m
		for _, e := range n.Entries {
			k, err := d.value(e.Key)
			if err != nil {
				return nil, err
			}
			v, err := d.value(e.Value)
			if err != nil {
				return nil, err
			}
			m.Put(k, v)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: unknown node kind %q", ErrFormat, n.Kind)
}

func (d *decoder) values(nodes []*node) ([]testrecorder.Value, error) {
	out := make([]testrecorder.Value, 0, len(nodes))
	for _, n := range nodes {
		v, err := d.value(n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (d *decoder) immutable(n *node, declared *testrecorder.Type) (testrecorder.Value, error) {
	var x any
	switch n.Kind {
	case kindBigInt:
		i, ok := new(big.Int).SetString(n.Value, 10)
		if !ok {
			return nil, fmt.Errorf("%w: invalid big integer %q", ErrFormat, n.Value)
		}
		x = i
	case kindBigFloat:
		f, _, err := big.ParseFloat(n.Value, 10, 256, big.ToNearestEven)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid big float %q", ErrFormat, n.Value)
		}
		x = f
	case kindBigRat:
		r, ok := new(big.Rat).SetString(n.Value)
		if !ok {
			return nil, fmt.Errorf("%w: invalid big rational %q", ErrFormat, n.Value)
		}
		x = r
	case kindTime:
		t, err := time.Parse(time.RFC3339Nano, n.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		x = t
	case kindDuration:
		dur, err := time.ParseDuration(n.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		x = dur
	case kindTypeRef:
		t, err := d.typ(n.Value)
		if err != nil {
			return nil, err
		}
		return testrecorder.TypeRef(declared, t), nil
	}
	return testrecorder.Imm(declared, x), nil
}

// literal decodes a scalar according to the kind of t.
func literal(t *testrecorder.Type, n *yaml.Node) (any, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: literal without value", ErrFormat)
	}
	var err error
	switch k := t.Kind; {
	case k == testrecorder.Bool:
		var b bool
		err = n.Decode(&b)
		return b, err
	case k == testrecorder.String:
		var s string
		err = n.Decode(&s)
		return s, err
	case k.IsComplex():
		c, err := strconv.ParseComplex(n.Value, 128)
		return c, err
	case k.IsFloat():
		var f float64
		err = n.Decode(&f)
		return f, err
	case k >= testrecorder.Uint && k <= testrecorder.Uintptr:
		var u uint64
		err = n.Decode(&u)
		return u, err
	case k.IsInteger():
		var i int64
		err = n.Decode(&i)
		return i, err
	}
	return nil, fmt.Errorf("%w: %s is not a literal type", ErrFormat, t)
}

func sortedKeys(m map[string]*node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
