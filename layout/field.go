package layout

import (
	"fmt"

	"github.com/tomrford/mint/errs"
	"github.com/tomrford/mint/field"
	"github.com/tomrford/mint/value"
)

// flattenFields walks a decoded `data` table, descending into nested
// tables that are dotted-key groups (§3.3's Group kind: `device.id` /
// `device.name`) until it finds a leaf — recognized by the presence of a
// `type` key, which every field descriptor carries — and converts that
// leaf into a field.Field whose Path is the dotted walk so far.
func flattenFields(blockName, prefix string, node map[string]any, out *[]field.Field) error {
	for key, v := range node {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		m, ok := v.(map[string]any)
		if !ok {
			return errs.New(errs.LayoutParse, blockName, path, "field descriptor must be a table")
		}

		if _, isLeaf := m["type"]; isLeaf {
			f, err := fieldFromMap(blockName, path, m)
			if err != nil {
				return err
			}
			*out = append(*out, f)
			continue
		}

		if err := flattenFields(blockName, path, m, out); err != nil {
			return err
		}
	}
	return nil
}

func fieldFromMap(blockName, path string, m map[string]any) (field.Field, error) {
	typeStr, _ := m["type"].(string)
	numType, err := parseNumericType(typeStr)
	if err != nil {
		return field.Field{}, errs.New(errs.LayoutParse, blockName, path, err.Error())
	}

	f := field.Field{Path: path, Type: numType}
	if name, ok := m["name"].(string); ok {
		f.Name = name
	}

	if bitmapRaw, ok := m["bitmap"]; ok {
		subs, err := parseBitmap(bitmapRaw)
		if err != nil {
			return field.Field{}, errs.New(errs.LayoutParse, blockName, path, err.Error())
		}
		f.Kind = field.Bitmap
		f.Bitmap = subs
		return f, nil
	}

	size2D, hasSize2D := as2DSize(m["size"])
	sizeExact2D, hasSizeExact2D := as2DSize(m["SIZE"])
	if hasSize2D || hasSizeExact2D {
		f.Kind = field.Array2D
		f.Size2D = size2D
		f.SizeExact2D = sizeExact2D
		if inline, ok := m["value"]; ok {
			arr, err := toml2DToDataValues(inline)
			if err != nil {
				return field.Field{}, errs.New(errs.LayoutParse, blockName, path, err.Error())
			}
			f.InlineArray2D = arr
		}
		return f, nil
	}

	size, hasSize := asInt(m["size"])
	sizeExact, hasSizeExact := asInt(m["SIZE"])

	if numType == value.U8 && (hasSize || hasSizeExact) {
		f.Kind = field.String
		f.Size = size
		f.SizeExact = sizeExact
		if inline, ok := m["value"].(string); ok {
			f.InlineString = &inline
		}
		return f, nil
	}

	if hasSize || hasSizeExact {
		f.Kind = field.Array1D
		f.Size = size
		f.SizeExact = sizeExact
		if inline, ok := m["value"]; ok {
			arr, err := tomlArrayToDataValues(inline)
			if err != nil {
				return field.Field{}, errs.New(errs.LayoutParse, blockName, path, err.Error())
			}
			f.InlineArray = arr
		}
		return f, nil
	}

	f.Kind = field.Scalar
	if inline, ok := m["value"]; ok {
		dv, err := tomlToDataValue(inline)
		if err != nil {
			return field.Field{}, errs.New(errs.LayoutParse, blockName, path, err.Error())
		}
		f.InlineScalar = &dv
	}
	return f, nil
}

func parseBitmap(raw any) ([]field.BitSubField, error) {
	items, ok := raw.([]map[string]any)
	if !ok {
		if anyItems, ok2 := raw.([]any); ok2 {
			items = make([]map[string]any, 0, len(anyItems))
			for _, it := range anyItems {
				m, ok3 := it.(map[string]any)
				if !ok3 {
					return nil, fmt.Errorf("bitmap entry must be a table")
				}
				items = append(items, m)
			}
		} else {
			return nil, fmt.Errorf("bitmap must be an array of tables")
		}
	}

	subs := make([]field.BitSubField, 0, len(items))
	for _, m := range items {
		bits, _ := asInt(m["bits"])
		sub := field.BitSubField{Bits: bits}
		if name, ok := m["name"].(string); ok {
			sub.Name = name
		}
		if v, ok := m["value"]; ok {
			n, ok := asInt(v)
			if !ok {
				return nil, fmt.Errorf("bitmap sub-field value must be an integer")
			}
			u := uint64(n)
			sub.Value = &u
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func parseNumericType(s string) (value.NumericType, error) {
	switch s {
	case "u8":
		return value.U8, nil
	case "u16":
		return value.U16, nil
	case "u32":
		return value.U32, nil
	case "u64":
		return value.U64Type, nil
	case "i8":
		return value.I8, nil
	case "i16":
		return value.I16, nil
	case "i32":
		return value.I32, nil
	case "i64":
		return value.I64Type, nil
	case "f32":
		return value.F32, nil
	case "f64":
		return value.F64Type, nil
	default:
		return 0, fmt.Errorf("unknown field type %q", s)
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// as2DSize recognizes a TOML array of exactly two integers, the [rows,
// cols] shape of §3.3's 2D array size/SIZE.
func as2DSize(v any) ([2]int, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return [2]int{}, false
	}
	rows, ok1 := asInt(arr[0])
	cols, ok2 := asInt(arr[1])
	if !ok1 || !ok2 {
		return [2]int{}, false
	}
	return [2]int{rows, cols}, true
}

func tomlToDataValue(v any) (value.DataValue, error) {
	switch t := v.(type) {
	case int64:
		if t < 0 {
			return value.I64(t), nil
		}
		return value.U64(uint64(t)), nil
	case float64:
		return value.F64(t), nil
	case bool:
		return value.Bool(t), nil
	case string:
		return value.Str(t), nil
	default:
		return value.DataValue{}, fmt.Errorf("unsupported inline value type %T", v)
	}
}

func tomlArrayToDataValues(v any) ([]value.DataValue, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array value")
	}
	out := make([]value.DataValue, 0, len(arr))
	for _, item := range arr {
		dv, err := tomlToDataValue(item)
		if err != nil {
			return nil, err
		}
		out = append(out, dv)
	}
	return out, nil
}

func toml2DToDataValues(v any) ([][]value.DataValue, error) {
	rows, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a 2D array value")
	}
	out := make([][]value.DataValue, 0, len(rows))
	for _, row := range rows {
		dvs, err := tomlArrayToDataValues(row)
		if err != nil {
			return nil, err
		}
		out = append(out, dvs)
	}
	return out, nil
}
