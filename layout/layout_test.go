package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomrford/mint/block"
	"github.com/tomrford/mint/endian"
	"github.com/tomrford/mint/field"
	"github.com/tomrford/mint/layout"
)

func TestParse_DefaultsToLittleEndianWithNoSettings(t *testing.T) {
	cfg, err := layout.Parse([]byte(`
[config.header]
start_address = 0
length = 4

[config.data.counter]
type = "u32"
value = 7
`))
	require.NoError(t, err)
	assert.Equal(t, endian.GetLittleEndianEngine(), cfg.Settings.Engine)

	b, ok := cfg.Blocks["config"]
	require.True(t, ok)
	assert.Equal(t, uint32(4), b.Length)
	require.Len(t, b.Data, 1)
	assert.Equal(t, field.Scalar, b.Data[0].Kind)
}

func TestParse_BigEndianAndCrcSettings(t *testing.T) {
	cfg, err := layout.Parse([]byte(`
[settings]
endianness = "big"

[settings.crc]
polynomial = 0x04C11DB7
start = 0xFFFFFFFF
xor_out = 0xFFFFFFFF
ref_in = true
ref_out = true
area = "all"

[config.header]
start_address = 0
length = 8

[config.data.id]
type = "u32"
value = 1
`))
	require.NoError(t, err)
	assert.Equal(t, endian.GetBigEndianEngine(), cfg.Settings.Engine)
	require.NotNil(t, cfg.Settings.CRC)
	assert.Equal(t, "all", cfg.Settings.CRC.Area)
	assert.Equal(t, uint32(0x04C11DB7), cfg.Settings.CRC.Params.Polynomial)
}

func TestParse_DottedGroupFlattensToPath(t *testing.T) {
	cfg, err := layout.Parse([]byte(`
[config.header]
start_address = 0
length = 4

[config.data.device.id]
type = "u16"
name = "DeviceId"

[config.data.device.name]
type = "u8"
name = "DeviceName"
size = 2
`))
	require.NoError(t, err)

	b := cfg.Blocks["config"]
	paths := map[string]field.Field{}
	for _, f := range b.Data {
		paths[f.Path] = f
	}

	id, ok := paths["device.id"]
	require.True(t, ok)
	assert.Equal(t, "DeviceId", id.Name)
	assert.Equal(t, field.Scalar, id.Kind)

	name, ok := paths["device.name"]
	require.True(t, ok)
	assert.Equal(t, field.String, name.Kind)
	assert.Equal(t, 2, name.Size)
}

func TestParse_BitmapSubFields(t *testing.T) {
	cfg, err := layout.Parse([]byte(`
[config.header]
start_address = 0
length = 4

[config.data.flags]
type = "u8"

[[config.data.flags.bitmap]]
bits = 1
name = "EnableDebug"

[[config.data.flags.bitmap]]
bits = 3
value = 0

[[config.data.flags.bitmap]]
bits = 4
name = "RegionCode"
`))
	require.NoError(t, err)

	b := cfg.Blocks["config"]
	require.Len(t, b.Data, 1)
	flags := b.Data[0]
	assert.Equal(t, field.Bitmap, flags.Kind)
	require.Len(t, flags.Bitmap, 3)
	assert.Equal(t, "EnableDebug", flags.Bitmap[0].Name)
	assert.Equal(t, 3, flags.Bitmap[1].Bits)
	require.NotNil(t, flags.Bitmap[1].Value)
	assert.Equal(t, uint64(0), *flags.Bitmap[1].Value)
	assert.Equal(t, "RegionCode", flags.Bitmap[2].Name)
}

func TestParse_CrcLocationEndDataAndAbsolute(t *testing.T) {
	cfg, err := layout.Parse([]byte(`
[config.header]
start_address = 0
length = 8
crc = { location = "end_data" }

[config.data.id]
type = "u32"
value = 1

[other.header]
start_address = 0x100
length = 8
crc = { location = 0x104 }

[other.data.id]
type = "u32"
value = 1
`))
	require.NoError(t, err)

	cfgBlock := cfg.Blocks["config"]
	require.NotNil(t, cfgBlock.CRC)
	assert.True(t, cfgBlock.CRC.EndData)

	otherBlock := cfg.Blocks["other"]
	require.NotNil(t, otherBlock.CRC)
	assert.False(t, otherBlock.CRC.EndData)
	assert.Equal(t, uint32(0x104), otherBlock.CRC.Address)
}

func TestParse_SizeVsSIZEDisambiguatesArrayKind(t *testing.T) {
	cfg, err := layout.Parse([]byte(`
[config.header]
start_address = 0
length = 16

[config.data.soft]
type = "u16"
name = "Soft"
size = 4

[config.data.hard]
type = "u16"
name = "Hard"
SIZE = 4
`))
	require.NoError(t, err)

	b := cfg.Blocks["config"]
	var soft, hard field.Field
	for _, f := range b.Data {
		switch f.Path {
		case "soft":
			soft = f
		case "hard":
			hard = f
		}
	}
	assert.Equal(t, field.Array1D, soft.Kind)
	assert.Equal(t, 4, soft.Size)
	assert.Equal(t, 0, soft.SizeExact)

	assert.Equal(t, field.Array1D, hard.Kind)
	assert.Equal(t, 4, hard.SizeExact)
	assert.Equal(t, 0, hard.Size)
}

func TestParse_EndToEndBuildsBlock(t *testing.T) {
	cfg, err := layout.Parse([]byte(`
[config.header]
start_address = 0
length = 4
padding = 0xFF

[config.data.id]
type = "u16"
value = 0x1234
`))
	require.NoError(t, err)

	b := cfg.Blocks["config"]
	out, padCount, err := block.Build(b, cfg.Settings, nil, true, nil)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, []byte{0x34, 0x12, 0xFF, 0xFF}, out)
	assert.Equal(t, 2, padCount)
}
