package value

import (
	"math"

	"github.com/tomrford/mint/endian"
)

// Encode appends the byte representation of c to dst in the byte order of
// engine, returning the extended slice. Floats are encoded as IEEE-754
// binary32/binary64 bit patterns; signed integers as two's complement.
func Encode(dst []byte, c Converted, engine endian.EndianEngine) []byte {
	switch c.Type {
	case U8:
		return append(dst, byte(c.U))
	case U16:
		return engine.AppendUint16(dst, uint16(c.U))
	case U32:
		return engine.AppendUint32(dst, uint32(c.U))
	case U64Type:
		return engine.AppendUint64(dst, c.U)
	case I8:
		return append(dst, byte(int8(c.I)))
	case I16:
		return engine.AppendUint16(dst, uint16(int16(c.I)))
	case I32:
		return engine.AppendUint32(dst, uint32(int32(c.I)))
	case I64Type:
		return engine.AppendUint64(dst, uint64(c.I))
	case F32:
		return engine.AppendUint32(dst, math.Float32bits(float32(c.F64)))
	case F64Type:
		return engine.AppendUint64(dst, math.Float64bits(c.F64))
	default:
		return dst
	}
}
