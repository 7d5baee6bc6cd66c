// Package field implements the field encoder of §4.3: type-directed
// resolution, shape-checking, conversion, and little/big-endian
// serialization of scalar, array, string, and bitmap field declarations
// into bytes, plus the UsedValueSink observer hook fields report through.
package field

import "github.com/tomrford/mint/value"

// Kind tags which of the five field shapes a Field describes. Group
// nesting (§3.3) is not a distinct Kind here: a dotted Path on any other
// Kind already produces the nested export-report object group semantics
// describe.
type Kind int

const (
	// Scalar holds exactly one typed value.
	Scalar Kind = iota
	// Array1D holds a sequence whose emitted length is size * sizeof(type).
	Array1D
	// Array2D holds a row-major matrix.
	Array2D
	// String holds a NUL-padded byte string (type is always u8); a string
	// too long for its size fails rather than being truncated.
	String
	// Bitmap packs an ordered list of sub-fields MSB-first into one scalar.
	Bitmap
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Array1D:
		return "array1d"
	case Array2D:
		return "array2d"
	case String:
		return "string"
	case Bitmap:
		return "bitmap"
	default:
		return "unknown"
	}
}

// BitSubField describes one entry of a Bitmap field's declaration list.
// An entry with an empty Name is reserved: its value comes from Value (nil
// means zero) rather than from the data source.
type BitSubField struct {
	Bits  int
	Name  string
	Value *uint64
}

// Field is one entry of a block's `data` table: an optional inline value
// or data-source name, a required numeric type, optional size bounds, and
// — for Bitmap fields — the sub-field declaration list.
//
// Exactly one of the Inline* fields or Name is populated, except for
// reserved Bitmap sub-fields which carry neither.
type Field struct {
	// Path is the field's dotted export-report key, e.g. "device.id".
	Path string
	Kind Kind
	Type value.NumericType

	// Name is the DataSource key to resolve when no inline value is given.
	Name string

	InlineScalar  *value.DataValue
	InlineArray   []value.DataValue
	InlineArray2D [][]value.DataValue
	InlineString  *string

	// Size is the lowercase upper-bound length (elements, or bytes for
	// String); 0 means unset. SizeExact is the uppercase exact length.
	Size      int
	SizeExact int

	// Size2D/SizeExact2D are the [rows, cols] equivalents for Array2D.
	// A zero value ([0,0]) means unset.
	Size2D      [2]int
	SizeExact2D [2]int

	Bitmap []BitSubField
}

// Sink is the UsedValueSink capability of §4.7: the encoder pushes each
// field's resolved value here, keyed by its dotted path, after a
// successful encode. Defined here (rather than imported from the report
// package) so field has no dependency on how the export report is built;
// report.Reporter and report.NoopSink both satisfy it structurally.
type Sink interface {
	Record(path string, value any)
}

// NoopSink discards every recorded value.
type NoopSink struct{}

// Record implements Sink by discarding value.
func (NoopSink) Record(path string, value any) {}
