package block

import (
	"github.com/tomrford/mint/crc"
	"github.com/tomrford/mint/datasource"
	"github.com/tomrford/mint/errs"
	"github.com/tomrford/mint/field"
	"github.com/tomrford/mint/internal/pool"
)

const crcByteWidth = 4

// Build runs §4.4's pipeline for b: allocate a zeroed buffer of b.Length,
// encode each field in declaration order tracking the running offset,
// pad the remainder with b.Padding, then resolve and write any
// configured CRC slot. It returns the finished bytes and the number of
// trailing padding bytes written (for `--stats` reporting).
func Build(b Block, s Settings, ds datasource.Source, strict bool, sink field.Sink) ([]byte, int, error) {
	if uint64(b.StartAddress)+uint64(b.Length) > 0xFFFFFFFF {
		return nil, 0, errs.New(errs.BlockOverflow, b.Name, "", "start_address + length overflows a 32-bit address")
	}

	// buf is pool-backed scratch space for the working bytes; only the
	// final copy handed back to the caller outlives Build, so the
	// pooled backing array can be safely returned once we're done.
	buf := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(buf)
	buf.Grow(int(b.Length))
	buf.SetLength(int(b.Length))
	clear(buf.Bytes())
	work := buf.Bytes()

	offset := 0
	for _, f := range b.Data {
		encoded, err := field.Encode(f, ds, strict, s.Engine, b.Name, sink)
		if err != nil {
			return nil, 0, err
		}
		if offset+len(encoded) > len(work) {
			return nil, 0, errs.New(errs.BlockOverflow, b.Name, f.Path,
				"encoded fields exceed the block's declared length")
		}
		copy(work[offset:], encoded)
		offset += len(encoded)
	}

	paddingCount := len(work) - offset
	for i := offset; i < len(work); i++ {
		work[i] = b.Padding
	}

	if b.CRC != nil {
		if s.CRC == nil {
			return nil, 0, errs.New(errs.CrcRangeInvalid, b.Name, "", "block configures a CRC location but no CRC settings are defined")
		}
		if err := placeCRC(work, b, s, offset); err != nil {
			return nil, 0, err
		}
	}

	out := make([]byte, len(work))
	copy(out, work)
	return out, paddingCount, nil
}

func placeCRC(buf []byte, b Block, s Settings, fieldsEnd int) error {
	slot, err := resolveCRCSlot(*b.CRC, b.StartAddress, len(buf), b.Name)
	if err != nil {
		return err
	}

	rangeEnd := fieldsEnd
	if s.CRC.Area == "all" {
		rangeEnd = len(buf)
	}

	scratch := make([]byte, rangeEnd)
	copy(scratch, buf[:rangeEnd])

	// Zero only the portion of the CRC slot that actually falls inside
	// the covered range; for "data" with an end_data slot the whole slot
	// sits past fieldsEnd and nothing here needs zeroing.
	zeroStart, zeroEnd := slot, slot+crcByteWidth
	if zeroStart < 0 {
		zeroStart = 0
	}
	if zeroEnd > rangeEnd {
		zeroEnd = rangeEnd
	}
	for i := zeroStart; i < zeroEnd; i++ {
		scratch[i] = 0
	}

	sum := crc.Compute(s.CRC.Params, scratch)
	encoded := s.Engine.AppendUint32(nil, sum)
	copy(buf[slot:slot+crcByteWidth], encoded)
	return nil
}

func resolveCRCSlot(loc CRCLocation, startAddress uint32, length int, blockName string) (int, error) {
	if loc.EndData {
		slot := length - crcByteWidth
		if slot < 0 {
			return 0, errs.New(errs.CrcRangeInvalid, blockName, "", "block is too short to hold a CRC at end_data")
		}
		return slot, nil
	}

	if loc.Address < startAddress {
		return 0, errs.New(errs.CrcRangeInvalid, blockName, "", "CRC address falls before the block's start_address")
	}
	slot := int(loc.Address - startAddress)
	if slot < 0 || slot+crcByteWidth > length {
		return 0, errs.New(errs.CrcRangeInvalid, blockName, "", "CRC address falls outside the block")
	}
	return slot, nil
}
