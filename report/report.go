// Package report implements the §4.7 used-value sink and export report:
// an observer the build driver feeds every resolved field value, which
// can either discard them (NoopSink) or accumulate them into a nested
// JSON document keyed by source file, then block, then dotted field path
// (Reporter).
package report

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
)

// NoopSink discards every recorded value. It satisfies field.Sink
// structurally; report does not import field to avoid a dependency the
// other direction would create.
type NoopSink struct{}

// Record implements the sink capability by discarding path and value.
func (NoopSink) Record(path string, value any) {}

// Reporter accumulates resolved values into a tree keyed first by the
// layout file path, then by block name, then by the field's dotted path
// (split on '.'). Safe for concurrent use across block builds sharing one
// Reporter, per §5's "concurrent block builds must serialise sink writes".
type Reporter struct {
	mu   sync.Mutex
	tree map[string]map[string]any
}

// NewReporter returns an empty Reporter.
func NewReporter() *Reporter {
	return &Reporter{tree: map[string]map[string]any{}}
}

// ForBlock returns a Sink bound to one (layoutPath, blockName) pair; each
// call to its Record nests value under that block's dotted path.
func (r *Reporter) ForBlock(layoutPath, blockName string) Sink {
	return &blockSink{reporter: r, layoutPath: layoutPath, blockName: blockName}
}

// Record implements Sink directly against a fixed ("", "") location, for
// callers that don't need the layout/block grouping.
func (r *Reporter) Record(path string, value any) {
	r.recordInto("", "", path, value)
}

func (r *Reporter) recordInto(layoutPath, blockName, path string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	block, ok := r.tree[layoutPath]
	if !ok {
		block = map[string]any{}
		r.tree[layoutPath] = block
	}

	root, ok := block[blockName].(map[string]any)
	if !ok {
		root = map[string]any{}
		block[blockName] = root
	}

	setDottedPath(root, path, value)
}

// setDottedPath walks/creates nested maps for each '.'-separated segment
// of path except the last, which is set to value directly.
func setDottedPath(root map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	cur := root
	for _, seg := range segments[:len(segments)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	cur[segments[len(segments)-1]] = value
}

// MarshalJSON renders the accumulated tree with 2-space indentation.
func (r *Reporter) MarshalJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.MarshalIndent(r.tree, "", "  ")
}

// WriteFile serializes the accumulated tree to path as 2-space-indented
// JSON.
func (r *Reporter) WriteFile(path string) error {
	data, err := r.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Sink is the UsedValueSink capability of §4.7. Defined here to match
// field.Sink's shape; Reporter and NoopSink both satisfy field.Sink
// without importing it.
type Sink interface {
	Record(path string, value any)
}

type blockSink struct {
	reporter   *Reporter
	layoutPath string
	blockName  string
}

func (s *blockSink) Record(path string, value any) {
	s.reporter.recordInto(s.layoutPath, s.blockName, path, value)
}
