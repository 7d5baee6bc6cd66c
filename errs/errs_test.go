package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tomrford/mint/errs"
)

func kindOnly(k errs.Kind) error {
	return errs.New(k, "", "", "")
}

func TestKind_String(t *testing.T) {
	cases := map[errs.Kind]string{
		errs.NameNotFound:        "NameNotFound",
		errs.SizeMismatch:        "SizeMismatch",
		errs.DuplicateSizeSpec:   "DuplicateSizeSpec",
		errs.BitmapWidthMismatch: "BitmapWidthMismatch",
		errs.BlockOverflow:       "BlockOverflow",
		errs.CrcRangeInvalid:     "CrcRangeInvalid",
		errs.LayoutParse:         "LayoutParse",
	}

	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}

func TestE_Error_FormatsContext(t *testing.T) {
	err := errs.New(errs.SizeMismatch, "block3", "short_array", "expected 10, actual 3")

	assert.Equal(t, "SizeMismatch: block3.short_array: expected 10, actual 3", err.Error())
}

func TestE_Error_NoContext(t *testing.T) {
	err := errs.New(errs.BlockOverflow, "", "", "")

	assert.Equal(t, "BlockOverflow", err.Error())
}

func TestE_Is_MatchesByKindOnly(t *testing.T) {
	a := errs.New(errs.SizeMismatch, "block3", "short_array", "expected 10, actual 3")
	b := errs.New(errs.SizeMismatch, "other_block", "other_field", "different message")

	assert.True(t, errors.Is(a, b))
	assert.True(t, errors.Is(a, kindOnly(errs.SizeMismatch)))
	assert.False(t, errors.Is(a, kindOnly(errs.BlockOverflow)))
}

func TestE_Wrap_PreservesCauseForUnwrap(t *testing.T) {
	cause := fmt.Errorf("write: short write")
	err := errs.Wrap(errs.IoError, "block3", "", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "short write")
}

func TestE_WrappedInFmtErrorf_StillMatchesIs(t *testing.T) {
	inner := errs.New(errs.DuplicateSizeSpec, "both", "value", "")
	outer := fmt.Errorf("building block: %w", inner)

	assert.True(t, errors.Is(outer, kindOnly(errs.DuplicateSizeSpec)))
}
