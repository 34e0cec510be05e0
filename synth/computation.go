package synth

import (
	"strings"

	"github.com/speakeasy-api/testrecorder"
)

// Computation is a generated code fragment: the statements producing a value
// and the expression denoting it.
type Computation struct {
	Statements []string
	Value      string
	Type       *testrecorder.Type

	// Stored is set when Value names a local variable.
	Stored bool
	// Untyped is set when Value is an untyped constant or nil.
	Untyped bool
}

// Expression creates a computation without statements.
func Expression(value string, t *testrecorder.Type, statements ...string) *Computation {
	return &Computation{Value: value, Type: t, Statements: statements}
}

// Variable creates a computation denoting the local name.
func Variable(name string, t *testrecorder.Type, statements ...string) *Computation {
	return &Computation{Value: name, Type: t, Statements: statements, Stored: true}
}

// Add appends statements.
func (c *Computation) Add(statements ...string) *Computation {
	c.Statements = append(c.Statements, statements...)
	return c
}

// String renders the statements followed by the expression.
func (c *Computation) String() string {
	if c == nil {
		return "<nil>"
	}
	var b strings.Builder
	for _, s := range c.Statements {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	b.WriteString(c.Value)
	return b.String()
}
