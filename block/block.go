// Package block implements the block builder of §4.4: it composes a
// block's fields in declaration order into a zeroed, length-bounded
// buffer, pads the remainder, and resolves an optional CRC slot.
package block

import (
	"github.com/tomrford/mint/crc"
	"github.com/tomrford/mint/endian"
	"github.com/tomrford/mint/field"
)

// CRCLocation is a block's `crc.location` setting (§3.5): either the
// `end_data` sentinel (the block's last sizeof(CRC) bytes) or an
// absolute target address that must fall within the block.
type CRCLocation struct {
	EndData bool
	Address uint32
}

// CRCSettings is the shared `[settings.crc]` table (§3.6): the
// parameterized CRC-32 variant and which byte range it covers.
type CRCSettings struct {
	Params crc.Params
	// Area is "data" (just this block's encoded bytes) or "all" (the
	// whole padded block); any CRC slot bytes inside the range are read
	// as zero when the CRC is computed.
	// True cross-block "all" composition belongs to the caller that
	// assembles the final multi-block stream; Build applies Area to
	// this block's own bytes only.
	Area string
}

// Settings is `[settings]` (§3.6), shared across every block in a build.
type Settings struct {
	Engine        endian.EndianEngine
	VirtualOffset uint32
	CRC           *CRCSettings
}

// Block is one `[<name>]` entry of the layout configuration (§3.5).
type Block struct {
	Name         string
	StartAddress uint32
	Length       uint32
	Padding      byte
	Data         []field.Field
	CRC          *CRCLocation
}

// EffectiveAddress returns the block's start address with the shared
// virtual offset applied, per §4.6's "effective_address = start_address +
// settings.virtual_offset".
func (b Block) EffectiveAddress(s Settings) uint32 {
	return b.StartAddress + s.VirtualOffset
}
