// Package record implements the §4.6 record-format serializer: Intel HEX
// and Motorola S-record text emission over one or more effective-address
// byte segments, with address-width auto-selection for S-records and
// Extended Linear Address records for Intel HEX addresses above 16 bits.
package record

import (
	"fmt"
	"strings"
)

// Segment is one contiguous run of bytes destined for an effective
// address (start_address + settings.virtual_offset).
type Segment struct {
	Address uint32
	Data    []byte
}

// chunk splits data into pieces of at most width bytes, pairing each
// with its absolute address.
func chunk(addr uint32, data []byte, width int) []Segment {
	if width <= 0 {
		width = len(data)
	}
	out := make([]Segment, 0, (len(data)+width-1)/width)
	for off := 0; off < len(data); off += width {
		end := off + width
		if end > len(data) {
			end = len(data)
		}
		out = append(out, Segment{Address: addr + uint32(off), Data: data[off:end]})
	}
	return out
}

func checksumIntelHex(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return byte(0x100 - int(sum))
}

// EncodeIntelHex renders segments as Intel HEX text: Extended Linear
// Address records (type 04) whenever the upper 16 bits of the target
// address change, data records (type 00) of at most recordWidth bytes,
// and a trailing end-of-file record (type 01). Lines are LF-terminated.
func EncodeIntelHex(segments []Segment, recordWidth int) string {
	var b strings.Builder
	lastUpper := 0 // the linear base address starts at 0

	for _, seg := range segments {
		for _, line := range chunk(seg.Address, seg.Data, recordWidth) {
			upper := int(line.Address >> 16)
			if upper != lastUpper {
				writeIntelHexRecord(&b, 0x0000, 0x04, []byte{byte(upper >> 8), byte(upper)})
				lastUpper = upper
			}
			writeIntelHexRecord(&b, uint16(line.Address), 0x00, line.Data)
		}
	}

	writeIntelHexRecord(&b, 0x0000, 0x01, nil)
	return b.String()
}

func writeIntelHexRecord(b *strings.Builder, addr uint16, recType byte, data []byte) {
	payload := make([]byte, 0, 4+len(data))
	payload = append(payload, byte(len(data)), byte(addr>>8), byte(addr), recType)
	payload = append(payload, data...)
	cksum := checksumIntelHex(payload)

	fmt.Fprintf(b, ":%02X%04X%02X", len(data), addr, recType)
	for _, d := range data {
		fmt.Fprintf(b, "%02X", d)
	}
	fmt.Fprintf(b, "%02X\n", cksum)
}

// sRecordAddressWidth picks 2, 3, or 4 address bytes per §4.6: 16-bit up
// to 0xFFFF, 24-bit up to 0xFFFFFF, 32-bit otherwise.
func sRecordAddressWidth(maxAddr uint32) int {
	switch {
	case maxAddr <= 0xFFFF:
		return 2
	case maxAddr <= 0xFFFFFF:
		return 3
	default:
		return 4
	}
}

func maxEffectiveAddress(segments []Segment) uint32 {
	var max uint32
	for _, seg := range segments {
		if len(seg.Data) == 0 {
			continue
		}
		last := seg.Address + uint32(len(seg.Data)) - 1
		if last > max {
			max = last
		}
	}
	return max
}

func checksumSRecord(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return ^sum
}

// EncodeSRecord renders segments as Motorola S-records: data records (S1
// /S2/S3 per the address width chosen by the highest effective address
// across all segments) of at most recordWidth bytes, followed by one
// terminator record (S9/S8/S7) at address 0.
func EncodeSRecord(segments []Segment, recordWidth int) string {
	width := sRecordAddressWidth(maxEffectiveAddress(segments))

	dataType, termType := byte('1'), byte('9')
	switch width {
	case 3:
		dataType, termType = '2', '8'
	case 4:
		dataType, termType = '3', '7'
	}

	var b strings.Builder
	for _, seg := range segments {
		for _, line := range chunk(seg.Address, seg.Data, recordWidth) {
			writeSRecord(&b, dataType, width, line.Address, line.Data)
		}
	}
	writeSRecord(&b, termType, width, 0, nil)

	return b.String()
}

func writeSRecord(b *strings.Builder, recType byte, addrWidth int, addr uint32, data []byte) {
	addrBytes := make([]byte, addrWidth)
	for i := 0; i < addrWidth; i++ {
		shift := uint((addrWidth - 1 - i) * 8)
		addrBytes[i] = byte(addr >> shift)
	}

	count := addrWidth + len(data) + 1 // address + data + checksum
	payload := make([]byte, 0, count)
	payload = append(payload, byte(count))
	payload = append(payload, addrBytes...)
	payload = append(payload, data...)
	cksum := checksumSRecord(payload)

	fmt.Fprintf(b, "S%c%02X", recType, count)
	for _, v := range addrBytes {
		fmt.Fprintf(b, "%02X", v)
	}
	for _, v := range data {
		fmt.Fprintf(b, "%02X", v)
	}
	fmt.Fprintf(b, "%02X\n", cksum)
}
