package value

import (
	"fmt"
	"math"

	"github.com/tomrford/mint/errs"
)

// NumericType names the fixed-width target the field encoder converts a
// DataValue into; bitmap sub-fields and scalar/array fields share this
// same type set.
type NumericType int

const (
	U8 NumericType = iota
	U16
	U32
	U64Type
	I8
	I16
	I32
	I64Type
	F32
	F64Type
)

// BitWidth returns the width of t in bits.
func (t NumericType) BitWidth() int {
	switch t {
	case U8, I8:
		return 8
	case U16, I16:
		return 16
	case U32, I32, F32:
		return 32
	case U64Type, I64Type, F64Type:
		return 64
	default:
		return 0
	}
}

// ByteWidth returns the width of t in bytes.
func (t NumericType) ByteWidth() int {
	return t.BitWidth() / 8
}

// IsFloat reports whether t is a floating-point type.
func (t NumericType) IsFloat() bool {
	return t == F32 || t == F64Type
}

// IsSigned reports whether t is a signed integer type.
func (t NumericType) IsSigned() bool {
	switch t {
	case I8, I16, I32, I64Type:
		return true
	default:
		return false
	}
}

// Converted is the typed numeric result of converting a DataValue to a
// NumericType, carried as a uint64/int64/float64 bit-generic payload
// alongside the target type so the field encoder can dispatch byte
// encoding without re-deriving the type.
type Converted struct {
	Type NumericType
	U    uint64
	I    int64
	F64  float64
}

// Convert converts v to t under the conversion table of §4.1: U64/I64/F64
// sources are range- and representability-checked against t; Bool maps to
// 0/1; Str is always rejected with TypeMismatch. In strict mode, any
// narrowing that would change the represented value fails with
// LossyConversion; in lenient mode the conversion truncates/saturates
// instead. block and field name the location for diagnostics.
func Convert(v DataValue, t NumericType, strict bool, block, field string) (Converted, error) {
	switch v.Kind() {
	case KindU64:
		return convertFromU64(v.AsU64(), t, strict, block, field)
	case KindI64:
		return convertFromI64(v.AsI64(), t, strict, block, field)
	case KindF64:
		return convertFromF64(v.AsF64(), t, strict, block, field)
	case KindBool:
		return convertFromBool(v.AsBool(), t), nil
	case KindStr:
		return Converted{}, errs.New(errs.TypeMismatch, block, field, "string value cannot convert to numeric type "+typeName(t))
	default:
		return Converted{}, errs.New(errs.TypeMismatch, block, field, "unrecognized value kind")
	}
}

func convertFromBool(b bool, t NumericType) Converted {
	var n uint64
	if b {
		n = 1
	}
	switch {
	case t.IsFloat():
		return fromFloat(float64(n), t)
	case t.IsSigned():
		return fromInt(int64(n), t)
	}
	return fromUint(n, t)
}

func convertFromU64(v uint64, t NumericType, strict bool, block, field string) (Converted, error) {
	switch {
	case !t.IsFloat() && !t.IsSigned():
		if t.BitWidth() < 64 && v >= uint64(1)<<uint(t.BitWidth()) {
			if strict {
				return Converted{}, lossy(block, field, v, t)
			}
			v &= (uint64(1) << uint(t.BitWidth())) - 1
		}
		return fromUint(v, t), nil
	case !t.IsFloat() && t.IsSigned():
		max := int64(1)<<uint(t.BitWidth()-1) - 1
		if v > uint64(max) {
			if strict {
				return Converted{}, lossy(block, field, v, t)
			}
			return fromInt(truncateToSigned(v, t.BitWidth()), t), nil
		}
		return fromInt(int64(v), t), nil
	default: // float target
		f := float64(v)
		if strict && !u64ExactlyRepresentableAsFloat(v, t) {
			return Converted{}, lossy(block, field, v, t)
		}
		if t == F32 {
			f = float64(float32(f))
		}
		return fromFloat(f, t), nil
	}
}

func convertFromI64(v int64, t NumericType, strict bool, block, field string) (Converted, error) {
	switch {
	case !t.IsFloat() && !t.IsSigned():
		if v < 0 || (t.BitWidth() < 64 && uint64(v) >= uint64(1)<<uint(t.BitWidth())) {
			if strict {
				return Converted{}, lossy(block, field, v, t)
			}
			return fromUint(uint64(v)&((uint64(1)<<uint(t.BitWidth()))-1), t), nil
		}
		return fromUint(uint64(v), t), nil
	case !t.IsFloat() && t.IsSigned():
		min := -(int64(1) << uint(t.BitWidth()-1))
		max := int64(1)<<uint(t.BitWidth()-1) - 1
		if (t.BitWidth() < 64) && (v < min || v > max) {
			if strict {
				return Converted{}, lossy(block, field, v, t)
			}
			return fromInt(truncateToSigned(uint64(v), t.BitWidth()), t), nil
		}
		return fromInt(v, t), nil
	default:
		f := float64(v)
		if strict && !i64ExactlyRepresentableAsFloat(v, t) {
			return Converted{}, lossy(block, field, v, t)
		}
		if t == F32 {
			f = float64(float32(f))
		}
		return fromFloat(f, t), nil
	}
}

func convertFromF64(v float64, t NumericType, strict bool, block, field string) (Converted, error) {
	if t.IsFloat() {
		if t == F32 {
			f32 := float32(v)
			if strict && float64(f32) != v {
				return Converted{}, lossy(block, field, v, t)
			}
			return fromFloat(float64(f32), t), nil
		}
		return fromFloat(v, t), nil
	}

	// Float -> integer: fractional part must be zero.
	if v != math.Trunc(v) {
		if strict {
			return Converted{}, lossy(block, field, v, t)
		}
		v = math.Trunc(v)
	}

	if !t.IsSigned() {
		min, max := uintRange(t)
		if v < float64(min) || v > float64(max) {
			if strict {
				return Converted{}, lossy(block, field, v, t)
			}
			v = clamp(v, float64(min), float64(max))
		}
		return fromUint(uint64(v), t), nil
	}

	min, max := intRange(t)
	if v < float64(min) || v > float64(max) {
		if strict {
			return Converted{}, lossy(block, field, v, t)
		}
		v = clamp(v, float64(min), float64(max))
	}
	return fromInt(int64(v), t), nil
}

func fromUint(v uint64, t NumericType) Converted  { return Converted{Type: t, U: v} }
func fromInt(v int64, t NumericType) Converted    { return Converted{Type: t, I: v} }
func fromFloat(v float64, t NumericType) Converted { return Converted{Type: t, F64: v} }

func truncateToSigned(v uint64, bits int) int64 {
	mask := uint64(1)<<uint(bits) - 1
	v &= mask
	signBit := uint64(1) << uint(bits-1)
	if v&signBit != 0 {
		return int64(v) - int64(mask) - 1
	}
	return int64(v)
}

func uintRange(t NumericType) (uint64, uint64) {
	if t.BitWidth() >= 64 {
		return 0, math.MaxUint64
	}
	return 0, uint64(1)<<uint(t.BitWidth()) - 1
}

func intRange(t NumericType) (int64, int64) {
	if t.BitWidth() >= 64 {
		return math.MinInt64, math.MaxInt64
	}
	max := int64(1)<<uint(t.BitWidth()-1) - 1
	min := -(int64(1) << uint(t.BitWidth()-1))
	return min, max
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// u64ExactlyRepresentableAsFloat applies the exact-representability test
// of §4.1: a value is representable iff its magnitude is within the
// target mantissa's exact-integer range, or converting it to float and
// back to the integer domain round-trips losslessly.
func u64ExactlyRepresentableAsFloat(v uint64, t NumericType) bool {
	mantissaBits := 52
	if t == F32 {
		mantissaBits = 23
	}
	if v <= uint64(1)<<uint(mantissaBits) {
		return true
	}
	f := float64(v)
	if t == F32 {
		f = float64(float32(f))
	}
	return f == math.Trunc(f) && f >= 0 && uint64(f) == v
}

func i64ExactlyRepresentableAsFloat(v int64, t NumericType) bool {
	mantissaBits := 52
	if t == F32 {
		mantissaBits = 23
	}
	abs := v
	if abs < 0 {
		abs = -abs
	}
	if uint64(abs) <= uint64(1)<<uint(mantissaBits) {
		return true
	}
	f := float64(v)
	if t == F32 {
		f = float64(float32(f))
	}
	return f == math.Trunc(f) && int64(f) == v
}

func lossy(block, field string, v any, t NumericType) error {
	return errs.New(errs.LossyConversion, block, field, sprintLossy(v, t))
}

func sprintLossy(v any, t NumericType) string {
	return fmt.Sprintf("%s cannot represent %v without loss", typeName(t), v)
}

func typeName(t NumericType) string {
	switch t {
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64Type:
		return "u64"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64Type:
		return "i64"
	case F32:
		return "f32"
	case F64Type:
		return "f64"
	default:
		return "unknown"
	}
}
