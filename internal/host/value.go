package host

import (
	"fmt"

	"github.com/tknatwork/tokensync/internal/token"
)

// Value is a variable's per-mode value: one of the four raw scalar variants
// or an alias to another variable by identity. The closed set of
// implementations makes switches over values exhaustive.
type Value interface {
	isValue()
}

// ColorValue is a raw color in 0..1 components.
type ColorValue struct {
	R, G, B, A float64
}

// FloatValue is a raw number.
type FloatValue float64

// StringValue is a raw string.
type StringValue string

// BoolValue is a raw boolean.
type BoolValue bool

// AliasValue resolves to another variable's value in the same mode,
// recursively if the target is itself an alias.
type AliasValue struct {
	TargetID string
}

func (ColorValue) isValue()  {}
func (FloatValue) isValue()  {}
func (StringValue) isValue() {}
func (BoolValue) isValue()   {}
func (AliasValue) isValue()  {}

// ZeroValue returns the neutral raw value for a type: transparent black,
// zero, empty string, false. Used as the placeholder when an alias leaf
// carries no fallback.
func ZeroValue(typ token.VariableType) Value {
	switch typ {
	case token.TypeColor:
		return ColorValue{}
	case token.TypeFloat:
		return FloatValue(0)
	case token.TypeBoolean:
		return BoolValue(false)
	}
	return StringValue("")
}

// CheckValue verifies that a raw value conforms to the variable type.
// Aliases pass unconditionally; the target's type is the host's concern.
func CheckValue(typ token.VariableType, v Value) error {
	switch v.(type) {
	case AliasValue:
		return nil
	case ColorValue:
		if typ == token.TypeColor {
			return nil
		}
	case FloatValue:
		if typ == token.TypeFloat {
			return nil
		}
	case StringValue:
		if typ == token.TypeString {
			return nil
		}
	case BoolValue:
		if typ == token.TypeBoolean {
			return nil
		}
	default:
		return fmt.Errorf("unknown value variant %T", v)
	}
	return fmt.Errorf("value %T does not conform to variable type %s", v, typ)
}
