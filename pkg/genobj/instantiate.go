package genobj

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Strategy picks the arguments a constructor is called with.
type Strategy int

const (
	// Default passes the zero value of every parameter.
	Default Strategy = iota
	// NonNil passes empty but allocated pointers, slices, maps and channels.
	NonNil
	// NonDefault additionally passes non-zero basic values.
	NonDefault
)

var strategies = []Strategy{Default, NonNil, NonDefault}

func (s Strategy) String() string {
	switch s {
	case Default:
		return "default"
	case NonNil:
		return "non-nil"
	case NonDefault:
		return "non-default"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

func (s Strategy) arg(t reflect.Type) reflect.Value {
	if s == Default {
		return reflect.Zero(t)
	}
	switch t.Kind() {
	case reflect.Pointer:
		return reflect.New(t.Elem())
	case reflect.Slice:
		return reflect.MakeSlice(t, 0, 0)
	case reflect.Map:
		return reflect.MakeMap(t)
	case reflect.Chan:
		return reflect.MakeChan(t, 0)
	}
	if s == NonNil {
		return reflect.Zero(t)
	}
	v := reflect.New(t).Elem()
	switch {
	case t.Kind() == reflect.Bool:
		v.SetBool(true)
	case t.Kind() == reflect.String:
		v.SetString("x")
	case v.CanInt():
		v.SetInt(1)
	case v.CanUint():
		v.SetUint(1)
	case v.CanFloat():
		v.SetFloat(1)
	case v.CanComplex():
		v.SetComplex(1)
	}
	return v
}

// InstantiationError collects the failed attempts to create a value.
type InstantiationError struct {
	Type     reflect.Type
	Failures []error
}

func (e *InstantiationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cannot instantiate %s", QualifiedName(e.Type))
	for _, f := range e.Failures {
		b.WriteString("\n  ")
		b.WriteString(f.Error())
	}
	return b.String()
}

func (e *InstantiationError) Unwrap() []error { return e.Failures }

// instantiate creates a value of t. Registered constructors are tried with
// each strategy in turn; without a working constructor the zero value is
// allocated.
func instantiate(t reflect.Type) (reflect.Value, error) {
	var failures []error
	for _, s := range strategies {
		for _, ctor := range constructors(t) {
			v, err := construct(ctor, s)
			if err != nil {
				failures = append(failures, fmt.Errorf("%s with %s arguments: %w", ctor.Type(), s, err))
				continue
			}
			return adjust(v, t), nil
		}
	}
	switch baseType(t).Kind() {
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Invalid:
		failures = append(failures, errors.New("no zero value can be allocated"))
		return reflect.Value{}, &InstantiationError{Type: t, Failures: failures}
	}
	return alloc(t), nil
}

func construct(ctor reflect.Value, s Strategy) (v reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	ft := ctor.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		args[i] = s.arg(ft.In(i))
	}
	out := ctor.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return reflect.Value{}, out[1].Interface().(error)
	}
	return out[0], nil
}

// adjust converts between T and *T.
func adjust(v reflect.Value, want reflect.Type) reflect.Value {
	switch {
	case v.Type() == want:
		return v
	case v.Kind() == reflect.Pointer && v.Type().Elem() == want:
		if v.IsNil() {
			return alloc(want)
		}
		return v.Elem()
	case want.Kind() == reflect.Pointer && want.Elem() == v.Type():
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		return p
	}
	return v
}

// alloc returns an addressable zero value of t, pointers pointing to fresh
// zero values.
func alloc(t reflect.Type) reflect.Value {
	if t.Kind() == reflect.Pointer {
		p := reflect.New(t).Elem()
		p.Set(alloc(t.Elem()).Addr())
		return p
	}
	return reflect.New(t).Elem()
}
