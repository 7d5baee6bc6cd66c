// Package layout decodes the TOML-shaped configuration of §6.1 into the
// in-memory block.Block/field.Field/block.Settings tree the core build
// pipeline consumes. The layout grammar itself is an external collaborator
// (§1); this package is the thin adapter from BurntSushi/toml's generic
// decode into mint's typed domain model.
package layout

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tomrford/mint/block"
	"github.com/tomrford/mint/crc"
	"github.com/tomrford/mint/endian"
	"github.com/tomrford/mint/errs"
	"github.com/tomrford/mint/field"
	"github.com/tomrford/mint/value"
)

// Config is a fully decoded layout file: the shared settings plus every
// named block (§3.7's "mapping from block-name -> Block").
type Config struct {
	Settings block.Settings
	Blocks   map[string]block.Block
}

// Load reads and decodes the TOML layout file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.LayoutParse, "", "", err)
	}
	return Parse(data)
}

// Parse decodes layout TOML already in memory, for callers that don't
// read it from a file (e.g. tests, or a layout assembled in-process).
func Parse(data []byte) (*Config, error) {
	var top map[string]toml.Primitive
	md, err := toml.Decode(string(data), &top)
	if err != nil {
		return nil, errs.Wrap(errs.LayoutParse, "", "", err)
	}

	cfg := &Config{Blocks: map[string]block.Block{}}

	if raw, ok := top["settings"]; ok {
		var rs rawSettings
		if err := md.PrimitiveDecode(raw, &rs); err != nil {
			return nil, errs.Wrap(errs.LayoutParse, "", "", err)
		}
		settings, err := rs.toSettings()
		if err != nil {
			return nil, err
		}
		cfg.Settings = settings
	} else {
		cfg.Settings = block.Settings{Engine: endian.GetLittleEndianEngine()}
	}

	for name, raw := range top {
		if name == "settings" {
			continue
		}
		var rb rawBlock
		if err := md.PrimitiveDecode(raw, &rb); err != nil {
			return nil, errs.Wrap(errs.LayoutParse, name, "", err)
		}
		b, err := rb.toBlock(name)
		if err != nil {
			return nil, err
		}
		// rb.Data is a map, so restore the fields' declaration order from
		// the order in which the decoder saw their keys.
		order := map[string]int{}
		for i, k := range md.Keys() {
			if len(k) > 2 && k[0] == name && k[1] == "data" {
				if p := strings.Join(k[2:], "."); order[p] == 0 {
					order[p] = i + 1
				}
			}
		}
		sort.SliceStable(b.Data, func(i, j int) bool { return order[b.Data[i].Path] < order[b.Data[j].Path] })
		cfg.Blocks[name] = b
	}

	return cfg, nil
}

type rawSettings struct {
	Endianness    string        `toml:"endianness"`
	VirtualOffset uint32        `toml:"virtual_offset"`
	CRC           *rawCRCParams `toml:"crc"`
}

type rawCRCParams struct {
	Polynomial uint32 `toml:"polynomial"`
	Start      uint32 `toml:"start"`
	XorOut     uint32 `toml:"xor_out"`
	RefIn      bool   `toml:"ref_in"`
	RefOut     bool   `toml:"ref_out"`
	Area       string `toml:"area"`
}

func (rs rawSettings) toSettings() (block.Settings, error) {
	engine, err := parseEndianness(rs.Endianness)
	if err != nil {
		return block.Settings{}, err
	}

	s := block.Settings{Engine: engine, VirtualOffset: rs.VirtualOffset}
	if rs.CRC != nil {
		area := rs.CRC.Area
		if area == "" {
			area = "data"
		}
		s.CRC = &block.CRCSettings{
			Params: crc.Params{
				Polynomial: rs.CRC.Polynomial,
				Start:      rs.CRC.Start,
				XorOut:     rs.CRC.XorOut,
				RefIn:      rs.CRC.RefIn,
				RefOut:     rs.CRC.RefOut,
			},
			Area: area,
		}
	}
	return s, nil
}

func parseEndianness(s string) (endian.EndianEngine, error) {
	switch s {
	case "", "little":
		return endian.GetLittleEndianEngine(), nil
	case "big":
		return endian.GetBigEndianEngine(), nil
	default:
		return nil, errs.New(errs.LayoutParse, "", "", fmt.Sprintf("unknown endianness %q", s))
	}
}

type rawBlock struct {
	Header rawBlockHeader `toml:"header"`
	Data   map[string]any `toml:"data"`
}

// rawBlockHeader is the `[<block-name>.header]` sub-table per §6.1:
// placement, padding, and the block's own CRC slot all live here rather
// than at the block's top level.
type rawBlockHeader struct {
	StartAddress uint32          `toml:"start_address"`
	Length       uint32          `toml:"length"`
	Padding      *int64          `toml:"padding"`
	CRC          *rawCRCLocation `toml:"crc"`
}

type rawCRCLocation struct {
	Location any `toml:"location"`
}

func (rb rawBlock) toBlock(name string) (block.Block, error) {
	b := block.Block{
		Name:         name,
		StartAddress: rb.Header.StartAddress,
		Length:       rb.Header.Length,
	}
	if rb.Header.Padding != nil {
		b.Padding = byte(*rb.Header.Padding)
	}

	var fields []field.Field
	if err := flattenFields(name, "", rb.Data, &fields); err != nil {
		return block.Block{}, err
	}
	b.Data = fields

	if rb.Header.CRC != nil {
		loc, err := rb.Header.CRC.toLocation(name)
		if err != nil {
			return block.Block{}, err
		}
		b.CRC = &loc
	}

	return b, nil
}

func (rc rawCRCLocation) toLocation(blockName string) (block.CRCLocation, error) {
	switch v := rc.Location.(type) {
	case string:
		if v != "end_data" {
			return block.CRCLocation{}, errs.New(errs.LayoutParse, blockName, "", fmt.Sprintf("unknown crc location %q", v))
		}
		return block.CRCLocation{EndData: true}, nil
	case int64:
		return block.CRCLocation{Address: uint32(v)}, nil
	default:
		return block.CRCLocation{}, errs.New(errs.LayoutParse, blockName, "", "crc location must be \"end_data\" or an address")
	}
}
