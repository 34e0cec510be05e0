package snapfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/speakeasy-api/testrecorder"
)

var predeclared = map[string]*testrecorder.Type{
	"any":        testrecorder.AnyType,
	"error":      testrecorder.ErrorType,
	"bool":       testrecorder.Basic(testrecorder.Bool),
	"int":        testrecorder.Basic(testrecorder.Int),
	"int8":       testrecorder.Basic(testrecorder.Int8),
	"int16":      testrecorder.Basic(testrecorder.Int16),
	"int32":      testrecorder.Basic(testrecorder.Int32),
	"rune":       testrecorder.Basic(testrecorder.Int32),
	"int64":      testrecorder.Basic(testrecorder.Int64),
	"uint":       testrecorder.Basic(testrecorder.Uint),
	"uint8":      testrecorder.Basic(testrecorder.Uint8),
	"byte":       testrecorder.Basic(testrecorder.Uint8),
	"uint16":     testrecorder.Basic(testrecorder.Uint16),
	"uint32":     testrecorder.Basic(testrecorder.Uint32),
	"uint64":     testrecorder.Basic(testrecorder.Uint64),
	"uintptr":    testrecorder.Basic(testrecorder.Uintptr),
	"float32":    testrecorder.Basic(testrecorder.Float32),
	"float64":    testrecorder.Basic(testrecorder.Float64),
	"complex64":  testrecorder.Basic(testrecorder.Complex64),
	"complex128": testrecorder.Basic(testrecorder.Complex128),
	"string":     testrecorder.Basic(testrecorder.String),
}

var wellKnown = map[string]*testrecorder.Type{
	"math/big.Int":   testrecorder.BigIntType.Elem,
	"math/big.Float": testrecorder.BigFloatType.Elem,
	"math/big.Rat":   testrecorder.BigRatType.Elem,
	"time.Time":      testrecorder.TimeType,
	"time.Duration":  testrecorder.DurationType,
	"reflect.Type":   testrecorder.ReflectType,
}

// NamedResolver returns the type declared as pkgPath.name.
type NamedResolver func(pkgPath, name string) (*testrecorder.Type, error)

// ParseType parses a type expression in the form Type.String renders, for
// example "map[string][]*example.com/shop.Item". Named types default to
// structs without fields.
func ParseType(expr string) (*testrecorder.Type, error) {
	return parseType(expr, func(pkgPath, name string) (*testrecorder.Type, error) {
		return testrecorder.Named(pkgPath, name, testrecorder.EmptyStruct), nil
	})
}

func parseType(expr string, named NamedResolver) (*testrecorder.Type, error) {
	p := &typeParser{src: expr, named: named}
	t, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("invalid type %q: %w", expr, err)
	}
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("invalid type %q: unexpected %q at %d", expr, p.src[p.pos:], p.pos)
	}
	return t, nil
}

type typeParser struct {
	src   string
	pos   int
	named NamedResolver
}

func (p *typeParser) rest() string { return p.src[p.pos:] }

func (p *typeParser) consume(prefix string) bool {
	if strings.HasPrefix(p.rest(), prefix) {
		p.pos += len(prefix)
		return true
	}
	return false
}

func (p *typeParser) expect(prefix string) error {
	if !p.consume(prefix) {
		return fmt.Errorf("expected %q at %d", prefix, p.pos)
	}
	return nil
}

func (p *typeParser) parse() (*testrecorder.Type, error) {
	switch {
	case p.consume("*"):
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		return testrecorder.PointerTo(elem), nil
	case p.consume("[]"):
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		return testrecorder.SliceOf(elem), nil
	case p.consume("["):
		end := strings.IndexByte(p.rest(), ']')
		if end < 0 {
			return nil, fmt.Errorf("unterminated array length at %d", p.pos)
		}
		n, err := strconv.Atoi(p.rest()[:end])
		if err != nil {
			return nil, fmt.Errorf("invalid array length: %w", err)
		}
		p.pos += end + 1
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		return testrecorder.ArrayOf(n, elem), nil
	case p.consume("map["):
		key, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		return testrecorder.MapOf(key, elem), nil
	case p.consume("struct{"):
		return p.structType()
	case p.consume("func()"):
		return &testrecorder.Type{Kind: testrecorder.Func}, nil
	case p.consume("chan "):
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		return &testrecorder.Type{Kind: testrecorder.Chan, Elem: elem}, nil
	}
	return p.name()
}

func (p *typeParser) structType() (*testrecorder.Type, error) {
	if p.consume("}") {
		return testrecorder.EmptyStruct, nil
	}
	var fields []testrecorder.StructField
	for {
		sp := strings.IndexByte(p.rest(), ' ')
		if sp <= 0 {
			return nil, fmt.Errorf("expected field name at %d", p.pos)
		}
		name := p.rest()[:sp]
		p.pos += sp + 1
		ft, err := p.parse()
		if err != nil {
			return nil, err
		}
		fields = append(fields, testrecorder.StructField{Name: name, Type: ft})
		if p.consume("}") {
			return testrecorder.StructOf(fields...), nil
		}
		if err := p.expect("; "); err != nil {
			return nil, err
		}
	}
}

func (p *typeParser) name() (*testrecorder.Type, error) {
	end := strings.IndexAny(p.rest(), "]; }")
	if end < 0 {
		end = len(p.rest())
	}
	token := p.rest()[:end]
	if token == "" {
		return nil, fmt.Errorf("expected type at %d", p.pos)
	}
	p.pos += end

	if t, ok := predeclared[token]; ok {
		return t, nil
	}
	if t, ok := wellKnown[token]; ok {
		return t, nil
	}
	dot := strings.LastIndexByte(token, '.')
	if dot <= 0 || dot == len(token)-1 || dot < strings.LastIndexByte(token, '/') {
		return nil, fmt.Errorf("unknown type %q", token)
	}
	return p.named(token[:dot], token[dot+1:])
}
