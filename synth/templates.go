package synth

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/speakeasy-api/testrecorder"
)

// Import paths of the runtime support packages generated code calls into.
const (
	GenobjPackage = "github.com/speakeasy-api/testrecorder/pkg/genobj"
	MatchPackage  = "github.com/speakeasy-api/testrecorder/pkg/match"
)

// MatcherType is the type of every generated matcher expression.
var MatcherType = testrecorder.InterfaceType(MatchPackage, "Matcher")

func declareLocal(name, expr string) string     { return name + " := " + expr }
func assignLocal(name, expr string) string      { return name + " = " + expr }
func assignIndex(name, key, expr string) string { return name + "[" + key + "] = " + expr }

func callFunc(fn string, args ...string) string {
	return fn + "(" + strings.Join(args, ", ") + ")"
}

func callGeneric(fn, typeArg string, args ...string) string {
	return fn + "[" + typeArg + "](" + strings.Join(args, ", ") + ")"
}

// keyed renders a composite literal body of name: value pairs.
func keyed(keys, values []string, quoteKeys bool) string {
	parts := make([]string, len(keys))
	for i := range keys {
		k := keys[i]
		if quoteKeys {
			k = strconv.Quote(k)
		}
		parts[i] = k + ": " + values[i]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func listed(values []string) string {
	return "{" + strings.Join(values, ", ") + "}"
}

// literalExpr renders a Go constant expression for a literal of type t. It
// reports whether the expression is an untyped constant.
func literalExpr(types *TypeManager, t *testrecorder.Type, v any) (expr string, untyped bool) {
	raw, kind := constantText(v)
	if strings.Contains(raw, "math.") {
		// math.NaN() and math.Inf() are typed float64
		types.RegisterImport("math")
		if t == nil || types.IsHidden(t) || t.Kind == testrecorder.Interface || (!t.IsNamed() && defaultKind(kind) == t.Kind) {
			return raw, false
		}
		return types.TypeName(t) + "(" + raw + ")", false
	}
	if t == nil || types.IsHidden(t) {
		return raw, true
	}
	if t.Kind == testrecorder.Interface {
		// boxed into an interface: keep the dynamic type of the constant
		return raw, true
	}
	if !t.IsNamed() && defaultKind(kind) == t.Kind {
		return raw, true
	}
	return types.TypeName(t) + "(" + raw + ")", false
}

// defaultKind is the type an untyped constant of kind k defaults to.
func defaultKind(k testrecorder.Kind) testrecorder.Kind {
	switch {
	case k.IsInteger():
		return testrecorder.Int
	case k.IsFloat():
		return testrecorder.Float64
	case k.IsComplex():
		return testrecorder.Complex128
	}
	return k
}

// constantText renders a normalized literal value.
func constantText(v any) (string, testrecorder.Kind) {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x), testrecorder.Bool
	case string:
		return strconv.Quote(x), testrecorder.String
	case int64:
		return strconv.FormatInt(x, 10), testrecorder.Int64
	case uint64:
		return strconv.FormatUint(x, 10), testrecorder.Uint64
	case float64:
		return floatText(x), testrecorder.Float64
	case complex128:
		return "complex(" + floatText(real(x)) + ", " + floatText(imag(x)) + ")", testrecorder.Complex128
	}
	return fmt.Sprintf("%#v", v), testrecorder.Invalid
}

func floatText(f float64) string {
	switch {
	case math.IsNaN(f):
		return "math.NaN()"
	case math.IsInf(f, 1):
		return "math.Inf(1)"
	case math.IsInf(f, -1):
		return "math.Inf(-1)"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// immutableExpr renders the canonical factory call rebuilding an immutable.
func immutableExpr(types *TypeManager, v *testrecorder.Immutable) (string, error) {
	switch x := v.Value().(type) {
	case *big.Int:
		if x.IsInt64() {
			return callFunc(types.Qualify("math/big", "NewInt"), strconv.FormatInt(x.Int64(), 10)), nil
		}
		return callFunc(types.Qualify(GenobjPackage, "BigInt"), strconv.Quote(x.String())), nil
	case *big.Float:
		if f, acc := x.Float64(); acc == big.Exact && !math.IsInf(f, 0) {
			return callFunc(types.Qualify("math/big", "NewFloat"), floatText(f)), nil
		}
		return callFunc(types.Qualify(GenobjPackage, "BigFloat"), strconv.Quote(x.Text('g', -1))), nil
	case *big.Rat:
		if x.Num().IsInt64() && x.Denom().IsInt64() {
			return callFunc(types.Qualify("math/big", "NewRat"), x.Num().String(), x.Denom().String()), nil
		}
		return callFunc(types.Qualify(GenobjPackage, "BigRat"), strconv.Quote(x.RatString())), nil
	case time.Time:
		return timeExpr(types, x), nil
	case time.Duration:
		return callFunc(types.Qualify("time", "Duration"), strconv.FormatInt(int64(x), 10)), nil
	case *testrecorder.Type:
		if types.IsHidden(x) {
			return callFunc(types.Qualify(GenobjPackage, "TypeOf"), strconv.Quote(x.String())), nil
		}
		return callGeneric(types.Qualify("reflect", "TypeFor"), types.TypeName(x)), nil
	}
	return "", decline("unsupported immutable %T", v.Value())
}

func timeExpr(types *TypeManager, t time.Time) string {
	var loc string
	switch name, offset := t.Zone(); {
	case t.Location() == time.UTC:
		loc = types.Qualify("time", "UTC")
	case t.Location() == time.Local:
		loc = types.Qualify("time", "Local")
	default:
		loc = callFunc(types.Qualify("time", "FixedZone"), strconv.Quote(name), strconv.Itoa(offset))
	}
	return callFunc(types.Qualify("time", "Date"),
		strconv.Itoa(t.Year()),
		types.Qualify("time", t.Month().String()),
		strconv.Itoa(t.Day()),
		strconv.Itoa(t.Hour()),
		strconv.Itoa(t.Minute()),
		strconv.Itoa(t.Second()),
		strconv.Itoa(t.Nanosecond()),
		loc)
}

// enumExpr names a visible enum constant.
func enumExpr(types *TypeManager, v *testrecorder.Enum) string {
	return types.Qualify(v.ValueType().PkgPath, v.Name())
}
