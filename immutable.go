package testrecorder

import (
	"math/big"
	"time"
)

func immutableType(value any, declared *Type) *Type {
	switch value.(type) {
	case *big.Int:
		return BigIntType
	case *big.Float:
		return BigFloatType
	case *big.Rat:
		return BigRatType
	case time.Time:
		return TimeType
	case time.Duration:
		return DurationType
	case *Type:
		return ReflectType
	}
	return declared
}

// TypeRef returns an immutable referencing t, the equivalent of a
// reflect.Type value.
func TypeRef(declared, t *Type) *Immutable {
	if declared == nil {
		declared = ReflectType
	}
	return Imm(declared, t)
}
