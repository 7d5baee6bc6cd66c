package block_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomrford/mint/block"
	"github.com/tomrford/mint/crc"
	"github.com/tomrford/mint/endian"
	"github.com/tomrford/mint/errs"
	"github.com/tomrford/mint/field"
	"github.com/tomrford/mint/value"
)

func settingsLE() block.Settings {
	return block.Settings{Engine: endian.GetLittleEndianEngine()}
}

// S1: a field's own size padding plus the block's own trailing padding.
func TestBuild_FieldAndBlockPadding(t *testing.T) {
	b := block.Block{
		Name:    "cfg",
		Length:  0x10,
		Padding: 0xFF,
		Data: []field.Field{
			{
				Path:        "short_array",
				Kind:        field.Array1D,
				Type:        value.U16,
				InlineArray: []value.DataValue{value.U64(1), value.U64(2), value.U64(3)},
				Size:        5,
			},
		},
	}

	out, paddingCount, err := block.Build(b, settingsLE(), nil, true, nil)
	require.NoError(t, err)
	require.Len(t, out, 0x10)
	assert.Equal(t, []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00}, out[:10])
	for _, bb := range out[10:] {
		assert.Equal(t, byte(0xFF), bb)
	}
	assert.Equal(t, 6, paddingCount)
}

func TestBuild_OverflowingFieldsFail(t *testing.T) {
	b := block.Block{
		Name:   "cfg",
		Length: 2,
		Data: []field.Field{
			{Path: "a", Kind: field.Scalar, Type: value.U32, InlineScalar: func() *value.DataValue { v := value.U64(1); return &v }()},
		},
	}

	_, _, err := block.Build(b, settingsLE(), nil, true, nil)
	require.Error(t, err)
	var e *errs.E
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.BlockOverflow, e.Kind)
}

func TestBuild_EndDataCRCSlot(t *testing.T) {
	one := value.U64(0xAABBCCDD)
	b := block.Block{
		Name:    "cfg",
		Length:  8,
		Padding: 0x00,
		Data: []field.Field{
			{Path: "magic", Kind: field.Scalar, Type: value.U32, InlineScalar: &one},
		},
		CRC: &block.CRCLocation{EndData: true},
	}
	s := settingsLE()
	s.CRC = &block.CRCSettings{Params: crc.ISOHDLC, Area: "data"}

	out, _, err := block.Build(b, s, nil, true, nil)
	require.NoError(t, err)
	require.Len(t, out, 8)

	// Recompute expected CRC over the data bytes with the slot zeroed.
	zeroed := make([]byte, 8)
	copy(zeroed, out[:4])
	expected := crc.Compute(crc.ISOHDLC, zeroed[:4])
	gotCRC := s.Engine.Uint32(out[4:8])
	assert.Equal(t, expected, gotCRC)
}

func TestBuild_AbsoluteCRCOutsideBlockFails(t *testing.T) {
	b := block.Block{
		Name:         "cfg",
		StartAddress: 0x1000,
		Length:       4,
		CRC:          &block.CRCLocation{Address: 0x2000},
	}
	s := settingsLE()
	s.CRC = &block.CRCSettings{Params: crc.ISOHDLC, Area: "data"}

	_, _, err := block.Build(b, s, nil, true, nil)
	require.Error(t, err)
	var e *errs.E
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.CrcRangeInvalid, e.Kind)
}

func TestBuild_StartAddressPlusLengthOverflowFails(t *testing.T) {
	b := block.Block{
		Name:         "cfg",
		StartAddress: 0xFFFFFFF0,
		Length:       0xFFFFFFFF,
	}

	_, _, err := block.Build(b, settingsLE(), nil, true, nil)
	require.Error(t, err)
	var e *errs.E
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.BlockOverflow, e.Kind)
}
