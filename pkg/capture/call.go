package capture

import (
	"reflect"

	"github.com/speakeasy-api/testrecorder"
)

// Param is a value together with the type it was declared as, for example
// an argument of interface type.
type Param struct {
	Value    any
	Declared reflect.Type
}

// Typed declares v as T.
func Typed[T any](v T) Param {
	return Param{Value: v, Declared: reflect.TypeFor[T]()}
}

type global struct {
	pkg, name string
	ptr       reflect.Value
}

// Call records the state around one call. Begin records the receiver and
// arguments, End the post-call state and the outcome.
type Call struct {
	r       *Recorder
	before  *session
	snap    *testrecorder.Snapshot
	this    any
	args    []any
	globals []global
}

// Begin starts recording a call of method. this is nil for plain functions.
// Arguments may be wrapped with Typed to record their declared type.
func (r *Recorder) Begin(method testrecorder.MethodID, this any, args ...any) *Call {
	s := r.session()
	c := &Call{r: r, before: s, snap: &testrecorder.Snapshot{Method: method}, this: this, args: args}
	if this != nil {
		c.snap.This = s.record(this, nil)
	}
	c.snap.Args = c.recordArgs(s)
	return c
}

// Global adds a package level variable to the recording. ptr points to the
// variable. Globals are recorded in the session of the receiver and the
// arguments, so shared references are preserved.
func (c *Call) Global(pkg, name string, ptr any) *Call {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		panic("capture: Global needs a non-nil pointer to the variable")
	}
	g := global{pkg: pkg, name: name, ptr: v}
	c.globals = append(c.globals, g)
	c.snap.Globals = append(c.snap.Globals, c.recordGlobal(c.before, g))
	return c
}

func (c *Call) recordArgs(s *session) []testrecorder.Arg {
	args := make([]testrecorder.Arg, len(c.args))
	for i, a := range c.args {
		declared := reflect.TypeOf(a)
		if p, ok := a.(Param); ok {
			declared = p.Declared
		}
		args[i] = testrecorder.Arg{Declared: c.r.TypeOf(declared), Value: s.record(a, nil)}
	}
	return args
}

func (c *Call) recordGlobal(s *session, g global) testrecorder.Global {
	declared := c.r.TypeOf(g.ptr.Type().Elem())
	return testrecorder.Global{
		Package:  g.pkg,
		Name:     g.name,
		Declared: declared,
		Value:    s.value(g.ptr.Elem(), declared),
	}
}

// End records the post-call state together with result or err and returns
// the snapshot. A non-nil err takes precedence over result. The returned
// error wraps ErrUnsupported when a recorded value has no representation;
// the snapshot is complete otherwise but should not be turned into a test.
func (c *Call) End(result any, err error) (*testrecorder.Snapshot, error) {
	s := c.r.session()
	if c.this != nil {
		c.snap.ThisAfter = s.record(c.this, nil)
	}
	c.snap.ArgsAfter = c.recordArgs(s)
	for _, g := range c.globals {
		c.snap.GlobalsAfter = append(c.snap.GlobalsAfter, c.recordGlobal(s, g))
	}

	switch {
	case err != nil:
		c.snap.Err = s.record(Param{Value: err, Declared: errorType}, nil)
	case result != nil:
		if p, ok := result.(Param); ok {
			c.snap.ResultType = c.r.TypeOf(p.Declared)
		}
		c.snap.Result = s.record(result, nil)
	}
	for _, rt := range c.before.unsupported {
		s.reject(rt)
	}
	return c.snap, s.err()
}
