package datasource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tomrford/mint/errs"
	"github.com/tomrford/mint/value"
)

// shape is the common post-parse representation every concrete source
// adapts into: version name → field name → decoded JSON value. The three
// DataSource operations are implemented once over this shape, as §4.2
// requires ("the shape adapter is the only source-specific code").
type shape map[string]map[string]any

// decodeShapeJSON decodes a JSON document into a shape, using
// json.Number for numeric literals so integers are not forced through a
// float64 round-trip before DataValue classification.
func decodeShapeJSON(data []byte) (shape, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var s shape
	if err := dec.Decode(&s); err != nil {
		return nil, errs.Wrap(errs.LayoutParse, "", "", err)
	}
	return s, nil
}

// decodeValueJSON decodes a single JSON value (used for data_path
// sub-extraction results and HTTP/SQL response bodies before they are
// folded into a version's name→value map).
func decodeValueJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errs.Wrap(errs.LayoutParse, "", "", err)
	}
	return v, nil
}

// navigateDataPath walks v through a dotted path of object keys,
// returning the nested value. Used by HTTP/SQL sources' optional
// data_path configuration.
func navigateDataPath(v any, dataPath string) (any, error) {
	if dataPath == "" {
		return v, nil
	}
	cur := v
	for _, seg := range strings.Split(dataPath, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, errs.New(errs.TypeMismatch, "", "", fmt.Sprintf("data_path segment %q: not an object", seg))
		}
		next, ok := m[seg]
		if !ok {
			return nil, errs.New(errs.NameNotFound, "", "", fmt.Sprintf("data_path segment %q not found", seg))
		}
		cur = next
	}
	return cur, nil
}

// newVerifiedShapeSource validates that at least one entry of versions
// exists as a key in s (§4.2 "version existence") and wraps s with the
// stack into a shapeSource.
func newVerifiedShapeSource(s shape, versions []string) (*shapeSource, error) {
	found := false
	for _, v := range versions {
		if _, ok := s[v]; ok {
			found = true
			break
		}
	}
	if !found {
		return nil, errs.New(errs.MissingVersion, "", "", "none of the configured versions exist in the data source")
	}
	return &shapeSource{shape: s, versions: versions}, nil
}

// shapeSource implements the three DataSource operations once over a
// shape and a resolved version stack, shared by the JSON, HTTP, and SQL
// adapters (and by Excel's main-sheet table).
type shapeSource struct {
	shape    shape
	versions []string
}

func (s *shapeSource) resolveRaw(name string) (any, bool) {
	for _, v := range s.versions {
		m, ok := s.shape[v]
		if !ok {
			continue
		}
		if raw, ok := m[name]; ok {
			return raw, true
		}
	}
	return nil, false
}

// RetrieveSingleValue implements Source.
func (s *shapeSource) RetrieveSingleValue(name string) (value.DataValue, error) {
	raw, ok := s.resolveRaw(name)
	if !ok {
		return value.DataValue{}, errs.New(errs.NameNotFound, "", name, "not present in any configured version")
	}
	return jsonToDataValue(raw, name)
}

// Retrieve1DArrayOrString implements Source.
func (s *shapeSource) Retrieve1DArrayOrString(name string) (value.ValueSource, error) {
	raw, ok := s.resolveRaw(name)
	if !ok {
		return value.ValueSource{}, errs.New(errs.NameNotFound, "", name, "not present in any configured version")
	}

	switch v := raw.(type) {
	case []any:
		vals := make([]value.DataValue, 0, len(v))
		for _, elem := range v {
			dv, err := jsonToDataValue(elem, name)
			if err != nil {
				return value.ValueSource{}, err
			}
			vals = append(vals, dv)
		}
		return value.Array(vals), nil
	case string:
		return value.Tokenize1D(v), nil
	default:
		dv, err := jsonToDataValue(raw, name)
		if err != nil {
			return value.ValueSource{}, err
		}
		return value.Single(dv), nil
	}
}

// Retrieve2DArray implements Source.
func (s *shapeSource) Retrieve2DArray(name string) ([][]value.DataValue, error) {
	raw, ok := s.resolveRaw(name)
	if !ok {
		return nil, errs.New(errs.NameNotFound, "", name, "not present in any configured version")
	}

	rows, ok := raw.([]any)
	if !ok {
		return nil, errs.New(errs.TypeMismatch, "", name, "expected a native 2D array")
	}

	out := make([][]value.DataValue, 0, len(rows))
	for _, rowRaw := range rows {
		row, ok := rowRaw.([]any)
		if !ok {
			return nil, errs.New(errs.TypeMismatch, "", name, "expected a native 2D array (row is not an array)")
		}
		cols := make([]value.DataValue, 0, len(row))
		for _, elem := range row {
			dv, err := jsonToDataValue(elem, name)
			if err != nil {
				return nil, err
			}
			cols = append(cols, dv)
		}
		out = append(out, cols)
	}
	return out, nil
}

// jsonToDataValue converts a decoded JSON scalar into the narrowest
// faithful DataValue tag: unsigned integers become U64, negative integers
// I64, fractional/scientific values F64, JSON booleans Bool, and JSON
// strings Str.
func jsonToDataValue(raw any, name string) (value.DataValue, error) {
	switch v := raw.(type) {
	case bool:
		return value.Bool(v), nil
	case string:
		return value.Str(v), nil
	case json.Number:
		return numberToDataValue(v), nil
	case float64: // defensive: reached only if a caller bypassed UseNumber
		return numberToDataValue(json.Number(strconv.FormatFloat(v, 'g', -1, 64))), nil
	default:
		return value.DataValue{}, errs.New(errs.TypeMismatch, "", name, fmt.Sprintf("unsupported JSON value shape %T", raw))
	}
}

func numberToDataValue(n json.Number) value.DataValue {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return value.U64(u)
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return value.I64(i)
		}
	}
	f, err := n.Float64()
	if err != nil {
		f = math.NaN()
	}
	return value.F64(f)
}
