package datasource

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tomrford/mint/errs"
	"github.com/tomrford/mint/internal/options"
	"github.com/tomrford/mint/value"
)

// httpOptions configures NewHTTPSource's constructor through the
// functional-options pattern of internal/options.
type httpOptions struct {
	client *http.Client
}

// HTTPOption configures an HTTPSource at construction time.
type HTTPOption = options.Option[*httpOptions]

// WithHTTPClient overrides the default http.Client, e.g. for test
// injection or custom timeouts/transports.
func WithHTTPClient(c *http.Client) HTTPOption {
	return options.NoError(func(o *httpOptions) { o.client = c })
}

// httpConfig is the JSON shape of the --http flag's value: `{url (with
// $VERSION placeholder), method?, body?, headers?, data_path?}`.
type httpConfig struct {
	URL      string            `json:"url"`
	Method   string            `json:"method"`
	Body     string            `json:"body"`
	Headers  map[string]string `json:"headers"`
	DataPath string            `json:"data_path"`
}

// HTTPSource resolves names by fetching one JSON document per configured
// version from a templated endpoint and folding the results into the
// shared shape.
type HTTPSource struct {
	inner *shapeSource
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource parses spec (inline JSON or a file path) as an httpConfig
// and fetches one response per entry of versions, expanding $VERSION in
// the URL and body. Versions whose request fails or whose shape is not a
// JSON object are treated as absent, matching the spec's version-stack
// fallback semantics; the source only fails outright if no version
// resolves at all.
func NewHTTPSource(spec string, versions []string, opts ...HTTPOption) (*HTTPSource, error) {
	data, err := loadInlineOrFile(spec)
	if err != nil {
		return nil, err
	}

	var cfg httpConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errs.Wrap(errs.LayoutParse, "", "", err)
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}

	o := &httpOptions{client: &http.Client{Timeout: 30 * time.Second}}
	if err := options.Apply(o, opts...); err != nil {
		return nil, err
	}

	s := make(shape, len(versions))
	for _, v := range versions {
		obj, err := fetchVersion(o.client, cfg, v)
		if err != nil {
			continue
		}
		s[v] = obj
	}

	inner, err := newVerifiedShapeSource(s, versions)
	if err != nil {
		return nil, err
	}
	return &HTTPSource{inner: inner}, nil
}

func fetchVersion(client *http.Client, cfg httpConfig, version string) (map[string]any, error) {
	url := expandVersion(cfg.URL, version)
	var bodyReader io.Reader
	if cfg.Body != "" {
		bodyReader = strings.NewReader(expandVersion(cfg.Body, version))
	}

	req, err := http.NewRequest(cfg.Method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d for version %q", resp.StatusCode, version)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	decoded, err := decodeValueJSON(raw)
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
		return nil, errs.New(errs.TypeMismatch, "", "", "http response is not a JSON object")
	}
	return obj, nil
}

func expandVersion(s, version string) string {
	return strings.ReplaceAll(s, "$VERSION", version)
}

func (h *HTTPSource) RetrieveSingleValue(name string) (value.DataValue, error) {
	return h.inner.RetrieveSingleValue(name)
}

func (h *HTTPSource) Retrieve1DArrayOrString(name string) (value.ValueSource, error) {
	return h.inner.Retrieve1DArrayOrString(name)
}

func (h *HTTPSource) Retrieve2DArray(name string) ([][]value.DataValue, error) {
	return h.inner.Retrieve2DArray(name)
}

// Close implements io.Closer; HTTPSource holds no resource, since every
// response is fetched and read during NewHTTPSource.
func (h *HTTPSource) Close() error { return nil }
