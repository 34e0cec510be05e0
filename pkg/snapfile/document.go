// Package snapfile reads and writes snapshots as YAML documents.
//
// A file holds one snapshot per document. Values are nodes tagged with their
// kind; reference values may carry an id that other nodes point to with ref,
// which is how shared instances and cycles are written:
//
//	method: {package: example.com/shop, receiver: "*Cart", name: Add}
//	types:
//	  example.com/shop.Cart:
//	    fields:
//	      - {name: items, type: "[]string"}
//	      - {name: next, type: "*example.com/shop.Cart"}
//	this:
//	  kind: object
//	  id: cart
//	  type: "*example.com/shop.Cart"
//	  fields:
//	    items: {kind: list, type: "[]string", elems: [{kind: lit, type: string, lit: a}]}
//	    next: {ref: cart}
//	args:
//	  - {kind: lit, type: int, lit: 3}
package snapfile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/testrecorder"
)

// Node kinds.
const (
	kindLit      = "lit"
	kindNull     = "null"
	kindEnum     = "enum"
	kindBigInt   = "bigint"
	kindBigFloat = "bigfloat"
	kindBigRat   = "bigrat"
	kindTime     = "time"
	kindDuration = "duration"
	kindTypeRef  = "typeref"
	kindObject   = "object"
	kindList     = "list"
	kindSet      = "set"
	kindMap      = "map"
	kindArray    = "array"
)

type document struct {
	Method       testrecorder.MethodID `yaml:"method"`
	Types        map[string]*typeDoc   `yaml:"types,omitempty"`
	This         *node                 `yaml:"this,omitempty"`
	Args         []*node               `yaml:"args,omitempty"`
	Globals      []*globalDoc          `yaml:"globals,omitempty"`
	ResultType   string                `yaml:"result_type,omitempty"`
	Result       *node                 `yaml:"result,omitempty"`
	Error        *node                 `yaml:"error,omitempty"`
	ThisAfter    *node                 `yaml:"this_after,omitempty"`
	ArgsAfter    []*node               `yaml:"args_after,omitempty"`
	GlobalsAfter []*globalDoc          `yaml:"globals_after,omitempty"`
}

// typeDoc declares a named type. Underlying defaults to a struct with the
// listed fields.
type typeDoc struct {
	Underlying string      `yaml:"underlying,omitempty"`
	Fields     []*fieldDoc `yaml:"fields,omitempty"`
	Implements []string    `yaml:"implements,omitempty"`
}

type fieldDoc struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Embedded bool   `yaml:"embedded,omitempty"`
}

type globalDoc struct {
	Package string `yaml:"package"`
	Name    string `yaml:"name"`
	Value   *node  `yaml:"value"`
}

type hintDoc struct {
	SkipChecks   bool          `yaml:"skip_checks,omitempty"`
	LoadFromFile *loadFromFile `yaml:"load_from_file,omitempty"`
}

type loadFromFile struct {
	WriteTo  string `yaml:"write_to"`
	ReadFrom string `yaml:"read_from"`
}

type entryDoc struct {
	Key   *node `yaml:"key"`
	Value *node `yaml:"value"`
}

// node is one value. Declared is the type at the place the value was
// observed when it differs from Type.
type node struct {
	Kind     string     `yaml:"kind,omitempty"`
	ID       string     `yaml:"id,omitempty"`
	Ref      string     `yaml:"ref,omitempty"`
	Type     string     `yaml:"type,omitempty"`
	Declared string     `yaml:"declared,omitempty"`
	Hints    []*hintDoc `yaml:"hints,omitempty"`

	Lit   *litNode `yaml:"lit,omitempty"`
	Enum  string   `yaml:"enum,omitempty"`
	Value string   `yaml:"value,omitempty"`

	Fields  map[string]*node `yaml:"fields,omitempty"`
	Elems   []*node          `yaml:"elems,omitempty"`
	Entries []*entryDoc      `yaml:"entries,omitempty"`
}

// litNode keeps a literal as written. Its Go value depends on the type of
// the enclosing node, so decoding is deferred until that type is known.
type litNode struct {
	node *yaml.Node
}

func (l *litNode) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: literal is not a scalar", ErrFormat, n.Line)
	}
	l.node = n
	return nil
}

func (l *litNode) MarshalYAML() (any, error) { return l.node, nil }

// yamlNode returns the scalar, nil when the literal is absent.
func (l *litNode) yamlNode() *yaml.Node {
	if l == nil {
		return nil
	}
	return l.node
}

func hintsOf(docs []*hintDoc) []testrecorder.Hint {
	var out []testrecorder.Hint
	for _, h := range docs {
		if h.SkipChecks {
			out = append(out, testrecorder.SkipChecks{})
		}
		if h.LoadFromFile != nil {
			out = append(out, testrecorder.LoadFromFile{WriteTo: h.LoadFromFile.WriteTo, ReadFrom: h.LoadFromFile.ReadFrom})
		}
	}
	return out
}

func hintDocs(hints []testrecorder.Hint) []*hintDoc {
	var out []*hintDoc
	for _, h := range hints {
		switch h := h.(type) {
		case testrecorder.SkipChecks:
			out = append(out, &hintDoc{SkipChecks: true})
		case testrecorder.LoadFromFile:
			out = append(out, &hintDoc{LoadFromFile: &loadFromFile{WriteTo: h.WriteTo, ReadFrom: h.ReadFrom}})
		}
	}
	return out
}
