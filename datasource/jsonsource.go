package datasource

import (
	"os"
	"strings"

	"github.com/tomrford/mint/errs"
	"github.com/tomrford/mint/value"
)

// JSONSource resolves names against an inline JSON document or a JSON
// file, shaped `{version: {name: value, ...}, ...}` per §4.2.
type JSONSource struct {
	inner *shapeSource
}

var _ Source = (*JSONSource)(nil)

// NewJSONSource loads spec (either a literal JSON document or a path to
// one) and resolves it against versions in priority order.
func NewJSONSource(spec string, versions []string) (*JSONSource, error) {
	data, err := loadInlineOrFile(spec)
	if err != nil {
		return nil, err
	}

	s, err := decodeShapeJSON(data)
	if err != nil {
		return nil, err
	}

	inner, err := newVerifiedShapeSource(s, versions)
	if err != nil {
		return nil, err
	}

	return &JSONSource{inner: inner}, nil
}

func (j *JSONSource) RetrieveSingleValue(name string) (value.DataValue, error) {
	return j.inner.RetrieveSingleValue(name)
}

func (j *JSONSource) Retrieve1DArrayOrString(name string) (value.ValueSource, error) {
	return j.inner.Retrieve1DArrayOrString(name)
}

func (j *JSONSource) Retrieve2DArray(name string) ([][]value.DataValue, error) {
	return j.inner.Retrieve2DArray(name)
}

// Close implements io.Closer; JSONSource holds no external resource.
func (j *JSONSource) Close() error { return nil }

// loadInlineOrFile treats spec as a JSON document if it looks like one
// (after trimming, starts with '{' or '['); otherwise it is read as a
// file path.
func loadInlineOrFile(spec string) ([]byte, error) {
	trimmed := strings.TrimSpace(spec)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return []byte(spec), nil
	}
	data, err := os.ReadFile(spec)
	if err != nil {
		return nil, errs.Wrap(errs.IoError, "", "", err)
	}
	return data, nil
}
