package snapfile

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/testrecorder"
)

// WriteFile encodes snaps into the file at path.
func WriteFile(path string, snaps ...*testrecorder.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	if err := Encode(f, snaps...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode writes one YAML document per snapshot.
func Encode(w io.Writer, snaps ...*testrecorder.Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, s := range snaps {
		if err := s.Validate(); err != nil {
			return err
		}
		if err := enc.Encode(newEncoder().document(s)); err != nil {
			return fmt.Errorf("failed to encode %s: %w", s.Method, err)
		}
	}
	return enc.Close()
}

type encoder struct {
	refs    map[testrecorder.Reference]int
	written map[testrecorder.Reference]bool
	types   map[string]*typeDoc
}

func newEncoder() *encoder {
	return &encoder{
		refs:    make(map[testrecorder.Reference]int),
		written: make(map[testrecorder.Reference]bool),
		types:   make(map[string]*typeDoc),
	}
}

func (e *encoder) document(s *testrecorder.Snapshot) *document {
	var roots []testrecorder.Value
	roots = append(roots, s.This, s.Result, s.Err, s.ThisAfter)
	for _, a := range append(append([]testrecorder.Arg(nil), s.Args...), s.ArgsAfter...) {
		roots = append(roots, a.Value)
	}
	for _, g := range append(append([]testrecorder.Global(nil), s.Globals...), s.GlobalsAfter...) {
		roots = append(roots, g.Value)
	}
	for _, r := range roots {
		e.count(r)
	}

	doc := &document{
		Method:       s.Method,
		This:         e.optional(s.This),
		Args:         e.args(s.Args),
		Globals:      e.globals(s.Globals),
		Result:       e.optional(s.Result),
		Error:        e.optional(s.Err),
		ThisAfter:    e.optional(s.ThisAfter),
		ArgsAfter:    e.args(s.ArgsAfter),
		GlobalsAfter: e.globals(s.GlobalsAfter),
	}
	if s.ResultType != nil {
		doc.ResultType = e.typ(s.ResultType)
	}
	if len(e.types) > 0 {
		doc.Types = e.types
	}
	return doc
}

// count records how often each reference is reached; references reached
// more than once get an id.
func (e *encoder) count(v testrecorder.Value) {
	ref, ok := v.(testrecorder.Reference)
	if !ok {
		return
	}
	e.refs[ref]++
	if e.refs[ref] > 1 {
		return
	}
	for _, c := range testrecorder.Children(v) {
		e.count(c)
	}
}

func (e *encoder) optional(v testrecorder.Value) *node {
	if v == nil {
		return nil
	}
	return e.node(v)
}

func (e *encoder) args(args []testrecorder.Arg) []*node {
	var out []*node
	for _, a := range args {
		n := e.node(a.Value)
		n.Hints = append(n.Hints, hintDocs(a.Hints)...)
		e.declareOn(n, a.Declared, a.Value)
		out = append(out, n)
	}
	return out
}

func (e *encoder) globals(globals []testrecorder.Global) []*globalDoc {
	var out []*globalDoc
	for _, g := range globals {
		n := e.node(g.Value)
		n.Hints = append(n.Hints, hintDocs(g.Hints)...)
		e.declareOn(n, g.Declared, g.Value)
		out = append(out, &globalDoc{Package: g.Package, Name: g.Name, Value: n})
	}
	return out
}

// declareOn writes the declared type of an argument or global when it
// differs from the declared type of its value.
func (e *encoder) declareOn(n *node, declared *testrecorder.Type, v testrecorder.Value) {
	if declared != nil && !declared.Identical(v.Type()) {
		n.Declared = e.typ(declared)
	}
}

func id(ref testrecorder.Reference) string { return "r" + strconv.Itoa(ref.ID()) }

func (e *encoder) node(v testrecorder.Value) *node {
	if ref, ok := v.(testrecorder.Reference); ok && e.refs[ref] > 1 {
		if e.written[ref] {
			return &node{Ref: id(ref)}
		}
		e.written[ref] = true
	}

	n := &node{Type: e.typ(v.ValueType())}
	if d := v.Type(); d != nil && !d.Identical(v.ValueType()) {
		n.Declared = e.typ(d)
	}

	switch v := v.(type) {
	case *testrecorder.Literal:
		n.Kind = kindLit
		n.Lit = &litNode{node: scalar(v.Value())}
	case *testrecorder.Null:
		n.Kind = kindNull
	case *testrecorder.Enum:
		n.Kind = kindEnum
		n.Enum = v.Name()
		n.Lit = &litNode{node: scalar(v.Value())}
	case *testrecorder.Immutable:
		n.Kind, n.Value = immutable(v.Value())
		if ref, ok := v.Value().(*testrecorder.Type); ok {
			e.declare(ref)
		}
	case *testrecorder.Object:
		n.Kind = kindObject
		n.Fields = make(map[string]*node, len(v.Fields()))
		for _, f := range v.Fields() {
			fn := e.node(f.Value)
			fn.Hints = append(fn.Hints, hintDocs(f.Hints)...)
			n.Fields[f.Name] = fn
		}
	case *testrecorder.List:
		n.Kind = kindList
		n.Elems = e.nodes(v.Elements())
	case *testrecorder.Set:
		n.Kind = kindSet
		n.Elems = e.nodes(v.Elements())
	case *testrecorder.Array:
		n.Kind = kindArray
		n.Elems = e.nodes(v.Elements())
	case *testrecorder.Map:
		n.Kind = kindMap
		for _, en := range v.Entries() {
			n.Entries = append(n.Entries, &entryDoc{Key: e.node(en.Key), Value: e.node(en.Value)})
		}
	}
	if ref, ok := v.(testrecorder.Reference); ok && e.refs[ref] > 1 {
		n.ID = id(ref)
	}
	return n
}

func (e *encoder) nodes(vs []testrecorder.Value) []*node {
	out := make([]*node, len(vs))
	for i, v := range vs {
		out[i] = e.node(v)
	}
	return out
}

// typ renders t and declares the named types it mentions.
func (e *encoder) typ(t *testrecorder.Type) string {
	e.declare(t)
	return t.String()
}

func (e *encoder) declare(t *testrecorder.Type) {
	if t == nil {
		return
	}
	if !t.IsNamed() {
		e.declare(t.Key)
		e.declare(t.Elem)
		for _, f := range t.Fields {
			e.declare(f.Type)
		}
		return
	}
	qn := t.QualifiedName()
	if _, done := e.types[qn]; done || t.PkgPath == "" {
		return
	}
	if _, ok := wellKnown[qn]; ok {
		return
	}
	decl := &typeDoc{}
	e.types[qn] = decl

	if t.Kind != testrecorder.Struct {
		u := *t
		u.PkgPath, u.Name = "", ""
		decl.Underlying = e.typ(&u)
	}
	if t.Kind == testrecorder.Struct {
		for _, f := range t.Fields {
			decl.Fields = append(decl.Fields, &fieldDoc{Name: f.Name, Type: e.typ(f.Type), Embedded: f.Embedded})
		}
	}
	for _, i := range t.Interfaces {
		if !i.Identical(t) {
			decl.Implements = append(decl.Implements, e.typ(i))
		}
	}
}

func scalar(v any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	switch x := v.(type) {
	case complex128:
		n.Value = strconv.FormatComplex(x, 'g', -1, 128)
		return n
	case string:
		n.Value = x
		n.Tag = "!!str"
		return n
	}
	if err := n.Encode(v); err != nil {
		n.Value = fmt.Sprint(v)
	}
	return n
}

func immutable(v any) (kind, text string) {
	switch x := v.(type) {
	case *big.Int:
		return kindBigInt, x.String()
	case *big.Float:
		return kindBigFloat, x.Text('g', -1)
	case *big.Rat:
		return kindBigRat, x.RatString()
	case time.Time:
		return kindTime, x.Format(time.RFC3339Nano)
	case time.Duration:
		return kindDuration, x.String()
	case *testrecorder.Type:
		return kindTypeRef, x.String()
	}
	return "", fmt.Sprint(v)
}
