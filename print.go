package testrecorder

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders v compactly for logs and error messages. Reference values are
// tagged with their identity and printed once; later occurrences print the
// tag only.
func Print(v Value) string {
	var b strings.Builder
	p := printer{b: &b, seen: make(map[Reference]bool)}
	p.print(v)
	return b.String()
}

type printer struct {
	b    *strings.Builder
	seen map[Reference]bool
}

func (p printer) print(v Value) {
	switch v := v.(type) {
	case nil:
		p.b.WriteString("<none>")
	case *Literal:
		if s, ok := v.Value().(string); ok {
			p.b.WriteString(strconv.Quote(s))
		} else {
			p.b.WriteString(fmt.Sprint(v.Value()))
		}
	case *Null:
		p.b.WriteString("nil")
	case *Immutable:
		p.b.WriteString(immutableText(v.Value()))
	case *Enum:
		p.b.WriteString(v.Name())
	case Reference:
		p.b.WriteString(v.ValueType().String())
		p.b.WriteByte('#')
		p.b.WriteString(strconv.Itoa(v.ID()))
		if p.seen[v] {
			return
		}
		p.seen[v] = true
		p.reference(v)
	}
}

func (p printer) reference(v Reference) {
	switch v := v.(type) {
	case *Object:
		p.b.WriteByte('{')
		for i, f := range v.Fields() {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(f.Name)
			p.b.WriteString(": ")
			p.print(f.Value)
		}
		p.b.WriteByte('}')
	case *List:
		p.sequence(v.Elements())
	case *Array:
		p.sequence(v.Elements())
	case *Set:
		p.sequence(v.Elements())
	case *Map:
		p.b.WriteByte('{')
		for i, e := range v.Entries() {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.print(e.Key)
			p.b.WriteString(": ")
			p.print(e.Value)
		}
		p.b.WriteByte('}')
	}
}

func (p printer) sequence(elems []Value) {
	p.b.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.print(e)
	}
	p.b.WriteByte(']')
}
