package synth

import (
	"github.com/speakeasy-api/testrecorder"
)

// Set is a set of captured values keyed by identity.
type Set map[testrecorder.Value]struct{}

// Contains reports whether v is in s.
func (s Set) Contains(v testrecorder.Value) bool {
	_, ok := s[v]
	return ok
}

// tables are the identity maps shared by every layer of a Context.
type tables struct {
	backReferences map[testrecorder.Reference]Set
	closures       map[testrecorder.Value]Set
	globals        map[string]*testrecorder.Object
}

// Context is the traversal state of one synthesis run. Layers created with
// WithHints share the identity tables of their parent but carry their own
// hints, which are visible to the layer and everything derived from it.
type Context struct {
	parent *Context
	hints  []testrecorder.Hint
	shared *tables
	depth  int
}

// NewContext creates the root layer of a synthesis run.
func NewContext(hints ...testrecorder.Hint) *Context {
	return &Context{
		hints: hints,
		shared: &tables{
			backReferences: make(map[testrecorder.Reference]Set),
			closures:       make(map[testrecorder.Value]Set),
			globals:        make(map[string]*testrecorder.Object),
		},
	}
}

// WithHints returns a child layer carrying hints.
func (c *Context) WithHints(hints ...testrecorder.Hint) *Context {
	return &Context{parent: c, hints: hints, shared: c.shared, depth: c.depth}
}

// Parent returns the enclosing layer, nil for the root.
func (c *Context) Parent() *Context { return c.parent }

// Hints returns the hints visible in c, nearest layer first.
func (c *Context) Hints() []testrecorder.Hint {
	var out []testrecorder.Hint
	for l := c; l != nil; l = l.parent {
		out = append(out, l.hints...)
	}
	return out
}

// HintOf returns the nearest hint of type T visible in c.
func HintOf[T testrecorder.Hint](c *Context) (T, bool) {
	for l := c; l != nil; l = l.parent {
		for _, h := range l.hints {
			if t, ok := h.(T); ok {
				return t, true
			}
		}
	}
	var zero T
	return zero, false
}

// descend returns a layer one level deeper, failing past maxDepth.
func (c *Context) descend(maxDepth int) (*Context, error) {
	if maxDepth > 0 && c.depth >= maxDepth {
		return nil, ErrTooDeep
	}
	return &Context{parent: c, shared: c.shared, depth: c.depth + 1}, nil
}

// Ref records that from points to to.
func (c *Context) Ref(from testrecorder.Reference, to testrecorder.Value) {
	ref, ok := to.(testrecorder.Reference)
	if !ok {
		return
	}
	s := c.shared.backReferences[ref]
	if s == nil {
		s = make(Set)
		c.shared.backReferences[ref] = s
	}
	s[from] = struct{}{}
}

// StaticRef records that a package level variable of pkg points to to. All
// variables of one package share a synthetic root object.
func (c *Context) StaticRef(pkg string, to testrecorder.Value) {
	root := c.shared.globals[pkg]
	if root == nil {
		root = testrecorder.NewObject(testrecorder.Named(pkg, "<globals>", testrecorder.EmptyStruct), nil)
		c.shared.globals[pkg] = root
	}
	c.Ref(root, to)
}

// GlobalRoot returns the synthetic root of the package level variables of pkg.
func (c *Context) GlobalRoot(pkg string) (*testrecorder.Object, bool) {
	root, ok := c.shared.globals[pkg]
	return root, ok
}

// RefCount returns the number of distinct values pointing to v.
func (c *Context) RefCount(v testrecorder.Reference) int {
	return len(c.shared.backReferences[v])
}

// BackReferences returns the values pointing to v.
func (c *Context) BackReferences(v testrecorder.Reference) Set {
	return c.shared.backReferences[v]
}

// Track walks the graph below v and records every edge with Ref.
func (c *Context) Track(v testrecorder.Value) {
	seen := make(map[testrecorder.Reference]bool)
	var walk func(v testrecorder.Value)
	walk = func(v testrecorder.Value) {
		ref, ok := v.(testrecorder.Reference)
		if !ok || seen[ref] {
			return
		}
		seen[ref] = true
		for _, child := range testrecorder.Children(ref) {
			c.Ref(ref, child)
			walk(child)
		}
	}
	walk(v)
}

// ClosureOf returns v and every value reachable from it.
func (c *Context) ClosureOf(v testrecorder.Value) Set {
	if s, ok := c.shared.closures[v]; ok {
		return s
	}
	// sets of nodes inside a cycle are incomplete until the walk that opened
	// the cycle returns, so only the top level result is kept
	s := closureOf(v, make(map[testrecorder.Value]Set))
	c.shared.closures[v] = s
	return s
}

func closureOf(v testrecorder.Value, memo map[testrecorder.Value]Set) Set {
	if s, ok := memo[v]; ok {
		return s
	}
	s := Set{v: {}}
	memo[v] = s
	for _, child := range testrecorder.Children(v) {
		for x := range closureOf(child, memo) {
			s[x] = struct{}{}
		}
	}
	return s
}

// Cyclic reports whether v can reach itself.
func (c *Context) Cyclic(v testrecorder.Reference) bool {
	for _, child := range testrecorder.Children(v) {
		if _, ok := child.(testrecorder.Reference); !ok {
			continue
		}
		if c.ClosureOf(child).Contains(v) {
			return true
		}
	}
	return false
}

// Mutable reports whether the graph below v contains a reference value.
func (c *Context) Mutable(v testrecorder.Value) bool {
	for x := range c.ClosureOf(v) {
		if _, ok := x.(testrecorder.Reference); ok {
			return true
		}
	}
	return false
}
