package synth

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/speakeasy-api/testrecorder"
)

// State is the lifecycle stage of a Binding.
type State uint8

const (
	// Reserved bindings have a name but no value yet. Meeting one again
	// means the graph is cyclic.
	Reserved State = iota
	// Defined bindings hold a value, possibly a forward placeholder.
	Defined
	// Finished bindings hold their complete value.
	Finished
)

func (s State) String() string {
	switch s {
	case Reserved:
		return "reserved"
	case Defined:
		return "defined"
	case Finished:
		return "finished"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Binding is a handle to a slot of a Locals arena.
type Binding int

type slot struct {
	name     string
	typ      *testrecorder.Type
	state    State
	identity testrecorder.Reference
}

// Locals allocates variable names for one synthesis run. Each identity gets
// at most one binding; names count up per hint (list1, list2, ...).
type Locals struct {
	slots      []slot
	byIdentity map[testrecorder.Reference]Binding
	counters   map[string]int
	claimed    map[string]bool
}

// NewLocals creates an empty allocator.
func NewLocals() *Locals {
	return &Locals{
		byIdentity: make(map[testrecorder.Reference]Binding),
		counters:   make(map[string]int),
		claimed:    make(map[string]bool),
	}
}

// Claim keeps Fresh from handing out names declared outside the allocator.
func (l *Locals) Claim(names ...string) {
	for _, n := range names {
		l.claimed[n] = true
	}
}

// Fresh returns a new unique name starting with hint.
func (l *Locals) Fresh(hint string) string {
	hint = sanitizeHint(hint)
	for {
		l.counters[hint]++
		name := hint + strconv.Itoa(l.counters[hint])
		if !l.claimed[name] {
			return name
		}
	}
}

// Temporary returns a fresh name for a helper variable.
func (l *Locals) Temporary() string { return l.Fresh("temp") }

// Reserve returns the binding of id, creating a reserved one named after
// hint when id has none.
func (l *Locals) Reserve(id testrecorder.Reference, hint string) Binding {
	if b, ok := l.byIdentity[id]; ok {
		return b
	}
	b := Binding(len(l.slots))
	l.slots = append(l.slots, slot{name: l.Fresh(hint), identity: id})
	l.byIdentity[id] = b
	return b
}

// Lookup returns the binding of id.
func (l *Locals) Lookup(id testrecorder.Reference) (Binding, bool) {
	b, ok := l.byIdentity[id]
	return b, ok
}

// Reset forgets the binding of id after a failed attempt to build it. The
// name stays consumed.
func (l *Locals) Reset(id testrecorder.Reference) {
	delete(l.byIdentity, id)
}

// Define marks b as holding a value of type t.
func (l *Locals) Define(b Binding, t *testrecorder.Type) {
	s := &l.slots[b]
	s.typ = t
	if s.state < Defined {
		s.state = Defined
	}
}

// Finish marks b as complete.
func (l *Locals) Finish(b Binding) { l.slots[b].state = Finished }

func (l *Locals) Name(b Binding) string                     { return l.slots[b].name }
func (l *Locals) Type(b Binding) *testrecorder.Type         { return l.slots[b].typ }
func (l *Locals) State(b Binding) State                     { return l.slots[b].state }
func (l *Locals) Identity(b Binding) testrecorder.Reference { return l.slots[b].identity }

// IsDefined reports whether b holds a value.
func (l *Locals) IsDefined(b Binding) bool { return l.slots[b].state >= Defined }

// IsReady reports whether b holds its complete value.
func (l *Locals) IsReady(b Binding) bool { return l.slots[b].state == Finished }

// Len returns the number of bindings handed out.
func (l *Locals) Len() int { return len(l.slots) }

// NameHint derives a variable name prefix from a type: the lower camel case
// type name for named types, the collection kind otherwise.
func NameHint(t *testrecorder.Type) string {
	t = t.Base()
	if t == nil {
		return "value"
	}
	if t.IsNamed() && t.Kind != testrecorder.Interface {
		return lowerFirst(t.Name)
	}
	switch t.Kind {
	case testrecorder.Slice:
		return "list"
	case testrecorder.MapKind:
		if t.IsSet() {
			return "set"
		}
		return "map"
	case testrecorder.ArrayKind:
		return "array"
	case testrecorder.Struct:
		return "object"
	}
	return "value"
}

func lowerFirst(s string) string {
	// leading acronyms are lowered as a whole: URLParser -> urlParser
	runes := []rune(s)
	i := 0
	for i < len(runes) && unicode.IsUpper(runes[i]) {
		if i+1 < len(runes) && i > 0 && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
		i++
	}
	return string(runes)
}

func sanitizeHint(hint string) string {
	var b strings.Builder
	for _, r := range hint {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if r, _ := utf8.DecodeRuneInString(s); s == "" || !unicode.IsLetter(r) {
		s = "v" + s
	}
	// a trailing digit would merge with the counter
	if r, _ := utf8.DecodeLastRuneInString(s); unicode.IsDigit(r) {
		s += "_"
	}
	return s
}
