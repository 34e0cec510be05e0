package main

import (
	"bytes"
	"fmt"
	"go/format"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"

	"github.com/speakeasy-api/testrecorder"
	"github.com/speakeasy-api/testrecorder/synth"
)

// testFile accumulates the test functions of one generated file. Imports of
// all plans are merged; a plan whose aliases collide with earlier ones is
// rejected.
type testFile struct {
	pkg     string // import path of the generated package
	imports map[string]string
	aliases map[string]string
	funcs   []string
	counts  map[string]int
}

func newTestFile(pkg string) *testFile {
	f := &testFile{
		pkg:     pkg,
		imports: make(map[string]string),
		aliases: make(map[string]string),
		counts:  make(map[string]int),
	}
	f.imports["testing"] = "testing"
	f.aliases["testing"] = "testing"
	return f
}

// packageName derives the package clause from the import path.
func packageName(pkgPath string) string {
	name := path.Base(pkgPath)
	if name == "." || name == "/" {
		return "main_test"
	}
	return strings.NewReplacer("-", "_", ".", "_").Replace(name)
}

// importAlias returns the alias of pkgPath, adding the import when needed.
// Packages without a plan-assigned alias get one derived from the path.
func (f *testFile) importAlias(pkgPath string) string {
	if pkgPath == f.pkg {
		return ""
	}
	if alias, ok := f.imports[pkgPath]; ok {
		return alias
	}
	base := packageName(pkgPath)
	alias := base
	for n := 2; f.aliases[alias] != ""; n++ {
		alias = base + strconv.Itoa(n)
	}
	f.imports[pkgPath] = alias
	f.aliases[alias] = pkgPath
	return alias
}

func (f *testFile) qualify(pkgPath, ident string) string {
	if alias := f.importAlias(pkgPath); alias != "" {
		return alias + "." + ident
	}
	return ident
}

// mergeImports takes over the aliases a plan was generated with.
func (f *testFile) mergeImports(imports []synth.Import) error {
	for _, imp := range imports {
		if have, ok := f.aliases[imp.Alias]; ok && have != imp.Path {
			return fmt.Errorf("import alias %s is used for both %s and %s", imp.Alias, have, imp.Path)
		}
		if have, ok := f.imports[imp.Path]; ok && have != imp.Alias {
			return fmt.Errorf("package %s is imported as both %s and %s", imp.Path, have, imp.Alias)
		}
	}
	for _, imp := range imports {
		f.imports[imp.Path] = imp.Alias
		f.aliases[imp.Alias] = imp.Path
	}
	return nil
}

// funcName names the n-th test of method.
func funcName(method testrecorder.MethodID, n int) string {
	var b strings.Builder
	b.WriteString("Test")
	if r := strings.TrimPrefix(method.Receiver, "*"); r != "" {
		b.WriteString(r)
		b.WriteByte('_')
	}
	b.WriteString(method.Name)
	b.WriteByte('_')
	b.WriteString(strconv.Itoa(n))
	return b.String()
}

func splitQualified(name string) (pkgPath, ident string) {
	i := strings.LastIndexByte(name, '.')
	return name[:i], name[i+1:]
}

// add renders plan as one test function: arrange, call, assert.
func (f *testFile) add(plan *synth.TestPlan) error {
	if err := f.mergeImports(plan.Imports); err != nil {
		return fmt.Errorf("%s: %w", plan.Method, err)
	}
	f.counts[plan.Method.String()]++

	var b strings.Builder
	fmt.Fprintf(&b, "func %s(t *testing.T) {\n", funcName(plan.Method, f.counts[plan.Method.String()]))

	var receiver string
	var args []string
	for _, frag := range plan.Arrange {
		for _, s := range frag.Statements {
			fmt.Fprintf(&b, "\t%s\n", s)
		}
		switch frag.Purpose {
		case synth.PurposeGlobal:
			pkgPath, ident := splitQualified(frag.Name)
			fmt.Fprintf(&b, "\t%s = %s\n", f.qualify(pkgPath, ident), frag.Expression)
			continue
		case synth.PurposeReceiver:
			receiver = frag.Name
		case synth.PurposeArgument:
			args = append(args, frag.Name)
		}
		fmt.Fprintf(&b, "\tvar %s %s = %s\n", frag.Name, frag.Type, frag.Expression)
	}

	call := plan.Method.Name + "(" + strings.Join(args, ", ") + ")"
	if receiver != "" {
		call = receiver + "." + call
	} else {
		call = f.qualify(plan.Method.Package, call)
	}
	b.WriteByte('\n')
	switch {
	case hasPurpose(plan.Assert, synth.PurposeError):
		fmt.Fprintf(&b, "\terr := %s\n\n", call)
	case hasPurpose(plan.Assert, synth.PurposeResult):
		fmt.Fprintf(&b, "\tresult := %s\n\n", call)
	default:
		fmt.Fprintf(&b, "\t%s\n\n", call)
	}

	for _, frag := range plan.Assert {
		for _, s := range frag.Statements {
			fmt.Fprintf(&b, "\t%s\n", s)
		}
		subject := frag.Name
		if frag.Purpose == synth.PurposeGlobalAfter {
			subject = f.qualify(splitQualified(frag.Name))
		}
		fmt.Fprintf(&b, "\t%s(t, %s, %s)\n", f.qualify(synth.MatchPackage, "Assert"), subject, frag.Expression)
	}
	b.WriteString("}\n")

	f.funcs = append(f.funcs, b.String())
	return nil
}

func hasPurpose(frags []synth.Fragment, p synth.Purpose) bool {
	for _, frag := range frags {
		if frag.Purpose == p {
			return true
		}
	}
	return false
}

const headerFormat = "%Y-%m-%d %H:%M:%S"

// source renders the file. Unformattable source is returned as is together
// with the formatting error.
func (f *testFile) source(now time.Time) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "// Code generated by testgen at %s. DO NOT EDIT.\n\n", timefmt.Format(now, headerFormat))
	fmt.Fprintf(&b, "package %s\n\n", packageName(f.pkg))

	paths := make([]string, 0, len(f.imports))
	for p := range f.imports {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	b.WriteString("import (\n")
	for _, p := range paths {
		if alias := f.imports[p]; alias != path.Base(p) {
			fmt.Fprintf(&b, "\t%s %q\n", alias, p)
		} else {
			fmt.Fprintf(&b, "\t%q\n", p)
		}
	}
	b.WriteString(")\n")

	for _, fn := range f.funcs {
		b.WriteByte('\n')
		b.WriteString(fn)
	}

	out, err := format.Source(b.Bytes())
	if err != nil {
		return b.Bytes(), fmt.Errorf("generated code does not parse: %w", err)
	}
	return out, nil
}
