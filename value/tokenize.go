package value

import (
	"strconv"
	"strings"
)

// Tokenize1D applies the 1D-array string-tokenization rule of §4.2: split
// on any run of ',', ';', or ASCII whitespace, drop empty tokens, then
// parse each token in priority order (unsigned integer, signed integer,
// hex, float, bool). A single recognized token still yields a one-element
// Array, never a bare Single — Single is reserved for the fallback case.
// If the input does not tokenize into any recognized scalar at all —
// whether because it produced zero tokens, or because one or more tokens
// failed every numeric/bool parse — the whole original, untokenized string
// is returned as a single Str value instead.
func Tokenize1D(s string) ValueSource {
	tokens := splitTokens(s)
	if len(tokens) == 0 {
		return Single(Str(s))
	}

	values := make([]DataValue, 0, len(tokens))
	for _, tok := range tokens {
		v, ok := parseScalarToken(tok)
		if !ok {
			return Single(Str(s))
		}
		values = append(values, v)
	}

	return Array(values)
}

func splitTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || isASCIISpace(r)
	})
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}

// parseScalarToken parses a single token per the priority order of §4.2:
// unsigned decimal, signed decimal, hex, float/scientific, bool.
func parseScalarToken(tok string) (DataValue, bool) {
	if u, err := strconv.ParseUint(tok, 10, 64); err == nil {
		return U64(u), true
	}
	if strings.HasPrefix(tok, "-") {
		if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return I64(i), true
		}
	}
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		if u, err := strconv.ParseUint(tok[2:], 16, 64); err == nil {
			return U64(u), true
		}
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return F64(f), true
	}
	if b, ok := parseBoolLiteral(tok); ok {
		return Bool(b), true
	}
	return DataValue{}, false
}

func parseBoolLiteral(tok string) (bool, bool) {
	switch strings.ToLower(tok) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}
