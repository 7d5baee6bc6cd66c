// Package datasource implements the DataSource capability of §4.2: a
// small fixed set of concrete sources (Excel, JSON, HTTP, SQL) that all
// resolve names against a version-stack with fallback priority, sharing
// one internal shape (version → name → decoded JSON value) and one
// implementation of the three retrieval operations over that shape.
package datasource

import (
	"io"
	"strings"

	"github.com/tomrford/mint/errs"
	"github.com/tomrford/mint/value"
)

// Source is the DataSource capability: three read-only lookups over a
// resolved version stack. Implementations are safe for concurrent reads
// once constructed; Close releases any held resource (the Excel workbook
// handle, the Postgres connection). The HTTP and JSON sources hold none.
type Source interface {
	io.Closer

	// RetrieveSingleValue resolves name to a scalar DataValue, searching
	// the version stack in priority order.
	RetrieveSingleValue(name string) (value.DataValue, error)

	// Retrieve1DArrayOrString resolves name to either an array or, when
	// the underlying value is a literal string that does not tokenize
	// into scalars, a single string.
	Retrieve1DArrayOrString(name string) (value.ValueSource, error)

	// Retrieve2DArray resolves name to a row-major matrix. Only native
	// (non-string) 2D structures are accepted.
	Retrieve2DArray(name string) ([][]value.DataValue, error)
}

// ParseVersionStack tokenizes a slash-separated version-priority string
// per §4.2: split on '/', trim each entry, discard empty entries. An
// empty result (including an empty or all-slashes input) is refused with
// an errs.MissingVersion error, since DataSource construction requires at least
// one named version to search.
func ParseVersionStack(raw string) ([]string, error) {
	parts := strings.Split(raw, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, errs.New(errs.MissingVersion, "", "", "version stack is empty after tokenizing")
	}
	return out, nil
}
