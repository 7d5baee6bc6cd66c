// Package errs defines the error taxonomy used across mint's core
// packages (value, datasource, field, block, crc, record, layout). Every
// fallible operation returns an *errs.E carrying a Kind plus the block
// name and field path affected, so a failure deep in a field encode still
// surfaces a diagnosable location to the CLI.
package errs

import "fmt"

// Kind identifies one category of failure. Kind values are compared with
// Is/errors.Is, not string-matched against Error().
type Kind int

const (
	_ Kind = iota

	// NameNotFound: no version in the stack contains the requested key.
	NameNotFound
	// MissingVersion: none of the versions named in the stack exist in
	// the underlying source, or the stack is empty.
	MissingVersion
	// MissingDataSource: a field has a `name` to resolve but no
	// DataSource was configured for the build.
	MissingDataSource
	// TypeMismatch: the resolved value's shape cannot satisfy the
	// field's declared type (e.g. a string where numeric is expected).
	TypeMismatch
	// LossyConversion: a numeric conversion would lose information and
	// strict mode is in effect.
	LossyConversion
	// SizeMismatch: the encoded length does not satisfy the field's
	// size constraint.
	SizeMismatch
	// DuplicateSizeSpec: both `size` and `SIZE` were given on the same
	// field.
	DuplicateSizeSpec
	// BitmapWidthMismatch: a bitmap's declared sub-fields do not sum to
	// the field type's bit width.
	BitmapWidthMismatch
	// BlockOverflow: encoded fields exceed the block's declared length.
	BlockOverflow
	// CrcRangeInvalid: a configured CRC slot or range falls outside the
	// block's bounds.
	CrcRangeInvalid
	// IoError: a failure opening or reading an external resource (a
	// data-source file, an Excel workbook, a Postgres connection).
	IoError
	// LayoutParse: a failure decoding the layout file. The layout
	// grammar is owned externally; this only reports decode failure at
	// the boundary.
	LayoutParse
)

// String returns the taxonomy name of k, as used in the distilled spec's
// error table.
func (k Kind) String() string {
	switch k {
	case NameNotFound:
		return "NameNotFound"
	case MissingVersion:
		return "MissingVersion"
	case MissingDataSource:
		return "MissingDataSource"
	case TypeMismatch:
		return "TypeMismatch"
	case LossyConversion:
		return "LossyConversion"
	case SizeMismatch:
		return "SizeMismatch"
	case DuplicateSizeSpec:
		return "DuplicateSizeSpec"
	case BitmapWidthMismatch:
		return "BitmapWidthMismatch"
	case BlockOverflow:
		return "BlockOverflow"
	case CrcRangeInvalid:
		return "CrcRangeInvalid"
	case IoError:
		return "IoError"
	case LayoutParse:
		return "LayoutParse"
	default:
		return "Unknown"
	}
}

// E is the concrete error type returned by mint's core packages. Block and
// Field are diagnostic context, not identity: two *E values with the same
// Kind compare equal under Is regardless of Block/Field/Msg/Cause, so
// callers can match with errors.Is(err, errs.New(errs.SizeMismatch, "", "", "")).
type E struct {
	Kind  Kind
	Block string // block name, empty if not applicable
	Field string // dotted field path, empty if not applicable
	Msg   string
	Cause error // wrapped lower-level error, if any
}

// New builds an *E. msg should describe the specific failure ("expected
// 10, actual 3"); Block/Field are diagnostic context and may be empty.
func New(kind Kind, block, field, msg string) *E {
	return &E{Kind: kind, Block: block, Field: field, Msg: msg}
}

// Wrap builds an *E around a lower-level cause, preserving it for
// errors.Unwrap/errors.Is chains.
func Wrap(kind Kind, block, field string, cause error) *E {
	return &E{Kind: kind, Block: block, Field: field, Cause: cause}
}

func (e *E) Error() string {
	loc := e.Block
	if e.Field != "" {
		if loc != "" {
			loc += "."
		}
		loc += e.Field
	}

	switch {
	case loc != "" && e.Msg != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s (%s): %v", e.Kind, loc, e.Msg, e.Cause)
	case loc != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, loc, e.Msg)
	case loc != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, loc, e.Cause)
	case loc != "":
		return fmt.Sprintf("%s: %s", e.Kind, loc)
	case e.Msg != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	default:
		return e.Kind.String()
	}
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As chains.
func (e *E) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *E of the same Kind. This lets callers
// write errors.Is(err, errs.New(errs.BlockOverflow, "", "", "")) without
// caring about the diagnostic context the real error carries.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
