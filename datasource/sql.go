package datasource

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/tomrford/mint/errs"
	"github.com/tomrford/mint/value"
)

// sqlConfig is the JSON shape of the --postgres flag's value: `{url,
// query_template, data_path?}`. query_template takes exactly one bind
// parameter, the version name, and must return a single column holding a
// JSON object of `{name: value}`.
type sqlConfig struct {
	URL           string `json:"url"`
	QueryTemplate string `json:"query_template"`
	DataPath      string `json:"data_path"`
}

// SQLSource resolves names by running one parameterized query per
// configured version against PostgreSQL and folding the JSON object
// result into the shared shape.
type SQLSource struct {
	inner *shapeSource
	conn  *pgx.Conn
}

var _ Source = (*SQLSource)(nil)

// NewSQLSource parses spec (inline JSON or a file path) as a sqlConfig,
// connects to the configured Postgres URL, and runs query_template once
// per entry of versions. A version whose row is missing or whose result
// does not decode to a JSON object is treated as absent.
func NewSQLSource(ctx context.Context, spec string, versions []string) (*SQLSource, error) {
	data, err := loadInlineOrFile(spec)
	if err != nil {
		return nil, err
	}

	var cfg sqlConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errs.Wrap(errs.LayoutParse, "", "", err)
	}

	conn, err := pgx.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, errs.Wrap(errs.IoError, "", "", err)
	}

	s := make(shape, len(versions))
	for _, v := range versions {
		obj, err := fetchSQLVersion(ctx, conn, cfg, v)
		if err != nil {
			continue
		}
		s[v] = obj
	}

	inner, err := newVerifiedShapeSource(s, versions)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}

	return &SQLSource{inner: inner, conn: conn}, nil
}

func fetchSQLVersion(ctx context.Context, conn *pgx.Conn, cfg sqlConfig, version string) (map[string]any, error) {
	var raw string
	row := conn.QueryRow(ctx, cfg.QueryTemplate, version)
	if err := row.Scan(&raw); err != nil {
		return nil, err
	}

	decoded, err := decodeValueJSON([]byte(raw))
	if err != nil {
		return nil, err
	}

	if cfg.DataPath != "" {
		decoded, err = navigateDataPath(decoded, cfg.DataPath)
		if err != nil {
			return nil, err
		}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, errs.New(errs.TypeMismatch, "", "", "sql result is not a JSON object")
	}
	return obj, nil
}

func (s *SQLSource) RetrieveSingleValue(name string) (value.DataValue, error) {
	return s.inner.RetrieveSingleValue(name)
}

func (s *SQLSource) Retrieve1DArrayOrString(name string) (value.ValueSource, error) {
	return s.inner.Retrieve1DArrayOrString(name)
}

func (s *SQLSource) Retrieve2DArray(name string) ([][]value.DataValue, error) {
	return s.inner.Retrieve2DArray(name)
}

// Close releases the held Postgres connection.
func (s *SQLSource) Close() error {
	return s.conn.Close(context.Background())
}
