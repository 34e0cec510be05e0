package synth

import (
	"path"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/speakeasy-api/testrecorder"
)

// Import is one import of the generated code.
type Import struct {
	Path  string
	Alias string
	// Named is set when Alias differs from the last path element and has to
	// be written out.
	Named bool
}

// TypeManager decides which types generated code in a package may name and
// spells them with consistent import aliases.
type TypeManager struct {
	pkg     string
	imports map[string]string // path -> alias
	aliases map[string]string // alias -> path
}

// NewTypeManager creates a type manager for code generated into pkg.
func NewTypeManager(pkg string) *TypeManager {
	return &TypeManager{
		pkg:     pkg,
		imports: make(map[string]string),
		aliases: make(map[string]string),
	}
}

// Package returns the import path of the generation package.
func (m *TypeManager) Package() string { return m.pkg }

// IsHidden reports whether t cannot be named from the generation package:
// an unexported type of another package, a type below an internal directory
// the package may not import, a type of a main package, or a composite of
// any of these.
func (m *TypeManager) IsHidden(t *testrecorder.Type) bool {
	return m.hidden(t, make(map[*testrecorder.Type]bool))
}

func (m *TypeManager) hidden(t *testrecorder.Type, seen map[*testrecorder.Type]bool) bool {
	if t == nil || seen[t] {
		return false
	}
	seen[t] = true
	if t.IsNamed() {
		if t.PkgPath == "" || t.PkgPath == m.pkg {
			return false
		}
		if !t.Exported() {
			return true
		}
		return !m.importable(t.PkgPath)
	}
	switch t.Kind {
	case testrecorder.Pointer, testrecorder.Slice, testrecorder.ArrayKind, testrecorder.Chan:
		return m.hidden(t.Elem, seen)
	case testrecorder.MapKind:
		return m.hidden(t.Key, seen) || m.hidden(t.Elem, seen)
	case testrecorder.Struct:
		for _, f := range t.Fields {
			if !testrecorder.IsExported(f.Name) || m.hidden(f.Type, seen) {
				return true
			}
		}
	}
	return false
}

// importable applies the rules of the go tool to an import from m.pkg.
func (m *TypeManager) importable(pkgPath string) bool {
	if pkgPath == "main" {
		return false
	}
	for _, prefix := range []string{"/internal/", "/internal"} {
		i := strings.LastIndex(pkgPath, prefix)
		if i < 0 {
			continue
		}
		if prefix == "/internal" && i+len(prefix) != len(pkgPath) {
			continue
		}
		parent := pkgPath[:i]
		return m.pkg == parent || strings.HasPrefix(m.pkg, parent+"/")
	}
	if strings.HasPrefix(pkgPath, "internal/") || pkgPath == "internal" {
		return false
	}
	return true
}

// Resolve picks the type a binding for a value observed as declared with
// dynamic type runtime should get. The dynamic type wins when it can be
// named; otherwise the declared type, otherwise the widest visible type.
// needsCast reports that the result is wider than the value's type.
func (m *TypeManager) Resolve(declared, runtime *testrecorder.Type) (t *testrecorder.Type, needsCast bool) {
	if runtime != nil && !m.IsHidden(runtime) {
		return runtime, false
	}
	if declared != nil && !m.IsHidden(declared) {
		return declared, runtime != nil && !runtime.Identical(declared)
	}
	return m.BestType(runtime)
}

// BestType widens t to the most specific type the generation package can
// name that values of t are assignable to. When nothing more specific than
// any exists it returns any and needsCast.
func (m *TypeManager) BestType(t *testrecorder.Type, candidates ...*testrecorder.Type) (best *testrecorder.Type, needsCast bool) {
	if t != nil && !m.IsHidden(t) {
		return t, false
	}
	for _, c := range candidates {
		if c != nil && !m.IsHidden(c) && m.Assignable(c, t) {
			return c, true
		}
	}
	if t != nil {
		ifaces := t.Interfaces
		if t.Kind == testrecorder.Pointer && t.Elem != nil {
			ifaces = append(append([]*testrecorder.Type(nil), ifaces...), t.Elem.Interfaces...)
		}
		for _, i := range ifaces {
			if !m.IsHidden(i) {
				return i, true
			}
		}
	}
	return testrecorder.AnyType, true
}

// Assignable reports whether a value of type from may be assigned to a
// variable of type to without conversion.
func (m *TypeManager) Assignable(to, from *testrecorder.Type) bool {
	if to == nil || from == nil {
		return false
	}
	if to.Identical(from) {
		return true
	}
	if to.Kind == testrecorder.Interface {
		return from.Implements(to)
	}
	// identical underlying types and at least one side unnamed
	if (!to.IsNamed() || !from.IsNamed()) && !to.Kind.IsBasic() && to.IdenticalUnderlying(from) {
		return true
	}
	return false
}

// UntypedCompatible reports whether an untyped constant of kind from can be
// used where to is expected.
func (m *TypeManager) UntypedCompatible(to *testrecorder.Type, from testrecorder.Kind) bool {
	if to == nil {
		return false
	}
	switch {
	case to.Kind == testrecorder.Interface:
		return to.IsAny()
	case from == testrecorder.Bool:
		return to.Kind == testrecorder.Bool
	case from == testrecorder.String:
		return to.Kind == testrecorder.String
	case from.IsInteger():
		return to.Kind.IsNumeric()
	case from.IsFloat():
		return to.Kind.IsFloat() || to.Kind.IsComplex()
	case from.IsComplex():
		return to.Kind.IsComplex()
	case from == testrecorder.Invalid:
		// untyped nil
		return to.Kind.Nillable()
	}
	return false
}

// RegisterImport returns the alias generated code uses for pkgPath,
// allocating one on first use. Colliding names get numeric suffixes.
func (m *TypeManager) RegisterImport(pkgPath string) string {
	if pkgPath == "" || pkgPath == m.pkg {
		return ""
	}
	if alias, ok := m.imports[pkgPath]; ok {
		return alias
	}
	base := packageName(pkgPath)
	alias := base
	for n := 2; ; n++ {
		if _, taken := m.aliases[alias]; !taken {
			break
		}
		alias = base + strconv.Itoa(n)
	}
	m.imports[pkgPath] = alias
	m.aliases[alias] = pkgPath
	return alias
}

// Imports returns the registered imports sorted by path.
func (m *TypeManager) Imports() []Import {
	out := make([]Import, 0, len(m.imports))
	for p, alias := range m.imports {
		out = append(out, Import{Path: p, Alias: alias, Named: alias != path.Base(p)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Qualify spells ident of package pkgPath.
func (m *TypeManager) Qualify(pkgPath, ident string) string {
	if alias := m.RegisterImport(pkgPath); alias != "" {
		return alias + "." + ident
	}
	return ident
}

// TypeName spells t, registering the imports it needs. Hidden types have no
// spelling; callers widen them with BestType first.
func (m *TypeManager) TypeName(t *testrecorder.Type) string {
	if t == nil {
		return "any"
	}
	return t.Format(func(n *testrecorder.Type) string {
		return m.Qualify(n.PkgPath, n.Name)
	})
}

// VariableTypeName spells the type a variable holding a t can be declared
// with.
func (m *TypeManager) VariableTypeName(t *testrecorder.Type) string {
	best, _ := m.BestType(t)
	return m.TypeName(best)
}

// Conversion renders an expression converting or asserting expr, of type
// from, to type to.
func (m *TypeManager) Conversion(to, from *testrecorder.Type, expr string) string {
	name := m.TypeName(to)
	if from == nil || from.Kind == testrecorder.Interface {
		return expr + ".(" + name + ")"
	}
	if strings.HasPrefix(name, "*") || strings.HasPrefix(name, "func") || strings.HasPrefix(name, "chan") {
		name = "(" + name + ")"
	}
	return name + "(" + expr + ")"
}

// packageName guesses the package name of an import path: the last element
// without major version suffixes, reduced to identifier characters.
func packageName(pkgPath string) string {
	elems := strings.Split(pkgPath, "/")
	name := elems[len(elems)-1]
	if isMajorVersion(name) && len(elems) > 1 {
		name = elems[len(elems)-2]
	}
	if i := strings.Index(name, ".v"); i > 0 && isMajorVersion(name[i+1:]) {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "go-")
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 || unicode.IsDigit(rune(b.String()[0])) {
		return "pkg" + b.String()
	}
	return b.String()
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}
