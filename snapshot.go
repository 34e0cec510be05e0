package testrecorder

import (
	"errors"
	"fmt"
)

// MethodID identifies the function or method a snapshot was recorded for.
// Receiver is empty for plain functions.
type MethodID struct {
	Package  string `yaml:"package"`
	Receiver string `yaml:"receiver,omitempty"`
	Name     string `yaml:"name"`
}

func (m MethodID) String() string {
	if m.Receiver == "" {
		return m.Package + "." + m.Name
	}
	return m.Package + "." + m.Receiver + "." + m.Name
}

// Arg is an argument observed at a call.
type Arg struct {
	Declared *Type
	Value    Value
	Hints    []Hint
}

// Global is a package level variable observed around a call.
type Global struct {
	Package  string
	Name     string
	Declared *Type
	Value    Value
	Hints    []Hint
}

// QualifiedName returns package.Name.
func (g Global) QualifiedName() string { return g.Package + "." + g.Name }

// Snapshot is the state recorded around one call: the receiver, arguments
// and globals before and after the call, and its result or error.
type Snapshot struct {
	Method MethodID

	This      Value
	ThisAfter Value

	Args      []Arg
	ArgsAfter []Arg

	ResultType *Type
	Result     Value
	Err        Value

	Globals      []Global
	GlobalsAfter []Global
}

// ErrInvalidSnapshot is returned by Validate.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Validate checks the structural constraints of a snapshot.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil", ErrInvalidSnapshot)
	}
	if s.Method.Name == "" {
		return fmt.Errorf("%w: method name missing", ErrInvalidSnapshot)
	}
	if s.Result != nil && s.Err != nil {
		return fmt.Errorf("%w: %s has both result and error", ErrInvalidSnapshot, s.Method)
	}
	if len(s.ArgsAfter) > 0 && len(s.ArgsAfter) != len(s.Args) {
		return fmt.Errorf("%w: %s records %d arguments but %d post states", ErrInvalidSnapshot, s.Method, len(s.Args), len(s.ArgsAfter))
	}
	for i, a := range s.Args {
		if a.Value == nil {
			return fmt.Errorf("%w: %s argument %d has no value", ErrInvalidSnapshot, s.Method, i)
		}
	}
	return nil
}

// Static reports whether the snapshot was taken for a plain function.
func (s *Snapshot) Static() bool { return s.This == nil }
