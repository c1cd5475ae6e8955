package fact

import (
	"fmt"
	"math"
)

// Value is a sealed interface over the primitive fact types.
// Only Bool, Int, Float and String implement it. Nested objects, arrays and
// null are not representable.
type Value interface {
	factValue()
	// Native returns the underlying Go value (bool, int64, float64 or string).
	Native() any
}

// Bool is a boolean fact.
type Bool bool

func (Bool) factValue()    {}
func (b Bool) Native() any { return bool(b) }

// Int is an integral fact. Kept distinct from Float so that 1 and 1.0 are
// different facts after a storage round trip.
type Int int64

func (Int) factValue()    {}
func (i Int) Native() any { return int64(i) }

// Float is a finite floating point fact.
type Float float64

func (Float) factValue()    {}
func (f Float) Native() any { return float64(f) }

// String is a textual fact.
type String string

func (String) factValue()    {}
func (s String) Native() any { return string(s) }

// ValueOf converts a Go primitive into a Value.
// Accepted inputs are bool, all integer kinds, float32/float64 and string.
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return checkValue(val)
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case float32:
		return checkValue(Float(val))
	case float64:
		return checkValue(Float(val))
	case nil:
		return nil, fmt.Errorf("null is not a fact value")
	default:
		return nil, fmt.Errorf("unsupported fact type %T", v)
	}
}

func checkValue(v Value) (Value, error) {
	if f, ok := v.(Float); ok {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, fmt.Errorf("non-finite float %v is not a fact value", float64(f))
		}
	}
	return v, nil
}

// Equal reports whether a and b have the same type and value.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}

// Literal renders v the way it appears in canonical JSON.
func Literal(v Value) string {
	data, err := marshalValue(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
