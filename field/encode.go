package field

import (
	"fmt"

	"github.com/tomrford/mint/datasource"
	"github.com/tomrford/mint/endian"
	"github.com/tomrford/mint/errs"
	"github.com/tomrford/mint/internal/pool"
	"github.com/tomrford/mint/value"
)

// finishField copies a pool-backed scratch accumulation into a freshly
// allocated result and returns the buffer to the pool, the same
// Get/accumulate/copy-out/Put shape block.Build uses for the block-level
// buffer.
func finishField(buf *pool.ByteBuffer, built []byte) []byte {
	buf.B = built
	out := make([]byte, len(built))
	copy(out, built)
	pool.PutFieldBuffer(buf)
	return out
}

// Encode runs the six-step pipeline of §4.3 for f — resolve, bitmap
// sub-resolution, shape check, type conversion, emit, observe — and
// returns the encoded bytes. ds may be nil when every field in the block
// carries an inline value; a Name lookup against a nil ds fails with
// MissingDataSource.
func Encode(f Field, ds datasource.Source, strict bool, engine endian.EndianEngine, block string, sink Sink) ([]byte, error) {
	if sink == nil {
		sink = NoopSink{}
	}

	switch f.Kind {
	case Scalar:
		return encodeScalar(f, ds, strict, engine, block, sink)
	case Array1D:
		return encodeArray1D(f, ds, strict, engine, block, sink)
	case Array2D:
		return encodeArray2D(f, ds, strict, engine, block, sink)
	case String:
		return encodeString(f, ds, block, sink)
	case Bitmap:
		return encodeBitmap(f, ds, strict, engine, block, sink)
	default:
		return nil, errs.New(errs.TypeMismatch, block, f.Path, fmt.Sprintf("unrecognized field kind %v", f.Kind))
	}
}

func resolveNamed(ds datasource.Source, block, path, name string) (value.DataValue, error) {
	if ds == nil {
		return value.DataValue{}, errs.New(errs.MissingDataSource, block, path, "field has a name but no data source is configured")
	}
	return ds.RetrieveSingleValue(name)
}

func encodeScalar(f Field, ds datasource.Source, strict bool, engine endian.EndianEngine, block string, sink Sink) ([]byte, error) {
	var dv value.DataValue
	if f.InlineScalar != nil {
		dv = *f.InlineScalar
	} else {
		v, err := resolveNamed(ds, block, f.Path, f.Name)
		if err != nil {
			return nil, err
		}
		dv = v
	}

	converted, err := value.Convert(dv, f.Type, strict, block, f.Path)
	if err != nil {
		return nil, err
	}

	sink.Record(f.Path, reportableOf(dv))

	buf := pool.GetFieldBuffer()
	built := value.Encode(buf.Bytes(), converted, engine)
	return finishField(buf, built), nil
}

// resolve1D returns the element sequence to shape-check for an Array1D
// field, from an inline literal or a data-source lookup. A Single result
// (the literal-string fallback of §4.2) is treated as a one-element
// sequence.
func resolve1D(f Field, ds datasource.Source, block string) ([]value.DataValue, error) {
	if f.InlineArray != nil {
		return f.InlineArray, nil
	}
	if f.InlineString != nil {
		return elementsOf(value.Tokenize1D(*f.InlineString)), nil
	}
	if ds == nil {
		return nil, errs.New(errs.MissingDataSource, block, f.Path, "field has a name but no data source is configured")
	}
	vs, err := ds.Retrieve1DArrayOrString(f.Name)
	if err != nil {
		return nil, err
	}
	return elementsOf(vs), nil
}

func elementsOf(vs value.ValueSource) []value.DataValue {
	if vs.Kind() == value.SourceArray {
		return vs.AsArray()
	}
	return []value.DataValue{vs.AsSingle()}
}

func encodeArray1D(f Field, ds datasource.Source, strict bool, engine endian.EndianEngine, block string, sink Sink) ([]byte, error) {
	elems, err := resolve1D(f, ds, block)
	if err != nil {
		return nil, err
	}

	padTo, err := checkSizeLen(len(elems), f.Size, f.SizeExact, block, f.Path)
	if err != nil {
		return nil, err
	}

	reported := make([]any, 0, len(elems))
	buf := pool.GetFieldBuffer()
	buf.Grow(padTo * f.Type.ByteWidth())
	out := buf.Bytes()
	for _, dv := range elems {
		converted, err := value.Convert(dv, f.Type, strict, block, f.Path)
		if err != nil {
			return nil, err
		}
		out = value.Encode(out, converted, engine)
		reported = append(reported, reportableOf(dv))
	}
	for i := len(elems); i < padTo; i++ {
		converted, err := value.Convert(value.U64(0), f.Type, strict, block, f.Path)
		if err != nil {
			return nil, err
		}
		out = value.Encode(out, converted, engine)
	}

	sink.Record(f.Path, reported)
	return finishField(buf, out), nil
}

func resolve2D(f Field, ds datasource.Source, block string) ([][]value.DataValue, error) {
	if f.InlineArray2D != nil {
		return f.InlineArray2D, nil
	}
	if ds == nil {
		return nil, errs.New(errs.MissingDataSource, block, f.Path, "field has a name but no data source is configured")
	}
	return ds.Retrieve2DArray(f.Name)
}

func encodeArray2D(f Field, ds datasource.Source, strict bool, engine endian.EndianEngine, block string, sink Sink) ([]byte, error) {
	rows, err := resolve2D(f, ds, block)
	if err != nil {
		return nil, err
	}

	wantRows, wantCols := f.Size2D, f.SizeExact2D
	if wantRows != [2]int{} && wantCols != [2]int{} {
		return nil, errs.New(errs.DuplicateSizeSpec, block, f.Path, "both size and SIZE given for a 2D array field")
	}

	actualRows := len(rows)
	actualCols := 0
	if actualRows > 0 {
		actualCols = len(rows[0])
	}

	switch {
	case wantCols != [2]int{}: // uppercase SIZE: exact
		if actualRows != wantCols[0] || actualCols != wantCols[1] {
			return nil, errs.New(errs.SizeMismatch, block, f.Path,
				fmt.Sprintf("expected exactly [%d,%d], got [%d,%d]", wantCols[0], wantCols[1], actualRows, actualCols))
		}
	case wantRows != [2]int{}: // lowercase size: upper bound
		if actualRows > wantRows[0] || actualCols > wantRows[1] {
			return nil, errs.New(errs.SizeMismatch, block, f.Path,
				fmt.Sprintf("expected at most [%d,%d], got [%d,%d]", wantRows[0], wantRows[1], actualRows, actualCols))
		}
	}

	// Lowercase size pads each row with zero-valued elements to the
	// declared column count and appends zero rows up to the row count.
	outRows, outCols := actualRows, actualCols
	if wantRows != [2]int{} {
		outRows, outCols = wantRows[0], wantRows[1]
	}
	zero, err := value.Convert(value.U64(0), f.Type, strict, block, f.Path)
	if err != nil {
		return nil, err
	}

	reported := make([][]any, 0, actualRows)
	buf := pool.GetFieldBuffer()
	buf.Grow(outRows * outCols * f.Type.ByteWidth())
	out := buf.Bytes()
	for _, row := range rows {
		reportedRow := make([]any, 0, len(row))
		for _, dv := range row {
			converted, err := value.Convert(dv, f.Type, strict, block, f.Path)
			if err != nil {
				return nil, err
			}
			out = value.Encode(out, converted, engine)
			reportedRow = append(reportedRow, reportableOf(dv))
		}
		for c := len(row); c < outCols; c++ {
			out = value.Encode(out, zero, engine)
		}
		reported = append(reported, reportedRow)
	}
	for i := actualRows * outCols; i < outRows*outCols; i++ {
		out = value.Encode(out, zero, engine)
	}

	sink.Record(f.Path, reported)
	return finishField(buf, out), nil
}

// encodeString implements the String field kind: always a u8 byte
// sequence, padded with 0x00 and guaranteed room for a trailing NUL when
// a size bound is given (§3.3).
func encodeString(f Field, ds datasource.Source, block string, sink Sink) ([]byte, error) {
	if f.Size != 0 && f.SizeExact != 0 {
		return nil, errs.New(errs.DuplicateSizeSpec, block, f.Path, "both size and SIZE given for a string field")
	}

	var s string
	var raw []byte
	switch {
	case f.InlineString != nil:
		s = *f.InlineString
		raw = []byte(s)
	default:
		if ds == nil {
			return nil, errs.New(errs.MissingDataSource, block, f.Path, "field has a name but no data source is configured")
		}
		vs, err := ds.Retrieve1DArrayOrString(f.Name)
		if err != nil {
			return nil, err
		}
		if vs.Kind() == value.SourceSingle && vs.AsSingle().Kind() == value.KindStr {
			s = vs.AsSingle().AsStr()
			raw = []byte(s)
		} else if vs.Kind() == value.SourceArray {
			for _, dv := range vs.AsArray() {
				if dv.Kind() != value.KindU64 {
					return nil, errs.New(errs.TypeMismatch, block, f.Path, "string field's 1D-byte-array elements must be unsigned integers")
				}
				raw = append(raw, byte(dv.AsU64()))
			}
			s = string(raw)
		} else {
			return nil, errs.New(errs.TypeMismatch, block, f.Path, "string field did not resolve to a string or byte array")
		}
	}

	total := f.Size
	exact := f.SizeExact != 0
	if exact {
		total = f.SizeExact
	}

	if total != 0 {
		if len(raw) > total-1 {
			return nil, errs.New(errs.SizeMismatch, block, f.Path,
				fmt.Sprintf("string of %d bytes leaves no room for a NUL terminator within %d", len(raw), total))
		}
		out := make([]byte, total)
		copy(out, raw)
		sink.Record(f.Path, s)
		return out, nil
	}

	sink.Record(f.Path, s)
	return raw, nil
}

func encodeBitmap(f Field, ds datasource.Source, strict bool, engine endian.EndianEngine, block string, sink Sink) ([]byte, error) {
	width := f.Type.BitWidth()
	sum := 0
	for _, sub := range f.Bitmap {
		sum += sub.Bits
	}
	if sum != width {
		return nil, errs.New(errs.BitmapWidthMismatch, block, f.Path,
			fmt.Sprintf("bitmap sub-fields sum to %d bits, field type is %d bits wide", sum, width))
	}

	var composite uint64
	offset := 0
	for _, sub := range f.Bitmap {
		mask := uint64(1)<<uint(sub.Bits) - 1

		var masked uint64
		if sub.Name != "" {
			dv, err := resolveNamed(ds, block, f.Path+"."+sub.Name, sub.Name)
			if err != nil {
				return nil, err
			}
			raw, err := toU64Lenient(dv, block, f.Path+"."+sub.Name)
			if err != nil {
				return nil, err
			}
			masked = raw & mask
			sink.Record(f.Path+"."+sub.Name, masked)
		} else {
			if sub.Value != nil {
				masked = *sub.Value & mask
			}
			sink.Record(fmt.Sprintf("%s.reserved_%d_%d", f.Path, offset, sub.Bits), masked)
		}

		shift := width - (offset + sub.Bits)
		composite |= masked << uint(shift)
		offset += sub.Bits
	}

	converted, err := value.Convert(value.U64(composite), f.Type, strict, block, f.Path)
	if err != nil {
		return nil, err
	}

	buf := pool.GetFieldBuffer()
	built := value.Encode(buf.Bytes(), converted, engine)
	return finishField(buf, built), nil
}

// toU64Lenient extracts an unsigned bit pattern from dv for bitmap
// sub-field masking; bitmap packing always operates on the raw bit
// pattern rather than going through the strict/lenient numeric table.
func toU64Lenient(dv value.DataValue, block, path string) (uint64, error) {
	switch dv.Kind() {
	case value.KindU64:
		return dv.AsU64(), nil
	case value.KindI64:
		return uint64(dv.AsI64()), nil
	case value.KindBool:
		if dv.AsBool() {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, errs.New(errs.TypeMismatch, block, path, "bitmap sub-field value must be numeric or boolean")
	}
}

// checkSizeLen applies the §3.4 size/SIZE rules to an element count,
// returning the length the caller should pad to.
func checkSizeLen(actual, size, sizeExact int, block, path string) (int, error) {
	if size != 0 && sizeExact != 0 {
		return 0, errs.New(errs.DuplicateSizeSpec, block, path, "both size and SIZE given")
	}
	if sizeExact != 0 {
		if actual != sizeExact {
			return 0, errs.New(errs.SizeMismatch, block, path,
				fmt.Sprintf("expected exactly %d, got %d", sizeExact, actual))
		}
		return sizeExact, nil
	}
	if size != 0 {
		if actual > size {
			return 0, errs.New(errs.SizeMismatch, block, path,
				fmt.Sprintf("expected at most %d, got %d", size, actual))
		}
		return size, nil
	}
	return actual, nil
}

// reportableOf converts a DataValue to a plain Go value JSON-friendly
// enough for the export report.
func reportableOf(dv value.DataValue) any {
	switch dv.Kind() {
	case value.KindU64:
		return dv.AsU64()
	case value.KindI64:
		return dv.AsI64()
	case value.KindF64:
		return dv.AsF64()
	case value.KindBool:
		return dv.AsBool()
	case value.KindStr:
		return dv.AsStr()
	default:
		return nil
	}
}
