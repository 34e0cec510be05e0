package genobj

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"reflect"

	"gopkg.in/yaml.v3"
)

// Enum returns the registered constant of the type name.
func Enum(name, constant string) *Wrapped {
	t, err := lookup(name)
	if err != nil {
		panic(err)
	}
	registry.RLock()
	v, ok := registry.enums[t][constant]
	registry.RUnlock()
	if !ok {
		panic(fmt.Errorf("%w: %s.%s", ErrUnknownEnum, name, constant))
	}
	return &Wrapped{v: v}
}

// EnumName returns the registered name of the constant v, or "" when v is
// not a registered constant.
func EnumName(v any) string {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return ""
	}
	registry.RLock()
	defer registry.RUnlock()
	for name, c := range registry.enums[rv.Type()] {
		if c.Equal(rv) {
			return name
		}
	}
	return ""
}

// TypeOf returns the registered type name.
func TypeOf(name string) reflect.Type {
	t, err := lookup(name)
	if err != nil {
		panic(err)
	}
	return t
}

// BigInt parses a decimal integer.
func BigInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(fmt.Sprintf("genobj: invalid big.Int %q", s))
	}
	return n
}

// BigFloat parses a decimal floating point number with 256 bits of
// mantissa.
func BigFloat(s string) *big.Float {
	f, ok := new(big.Float).SetPrec(256).SetString(s)
	if !ok {
		panic(fmt.Sprintf("genobj: invalid big.Float %q", s))
	}
	return f
}

// BigRat parses a fraction a/b or a decimal number.
func BigRat(s string) *big.Rat {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		panic(fmt.Sprintf("genobj: invalid big.Rat %q", s))
	}
	return r
}

// Load decodes the YAML file dir/file into a T.
func Load[T any](dir, file string) T {
	var out T
	data, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		panic(fmt.Errorf("genobj: load: %w", err))
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		panic(fmt.Errorf("genobj: decode %s: %w", file, err))
	}
	return out
}
