package codec

import (
	"fmt"
	"strings"
)

// Marker is the positional placeholder accepted by RewritePlaceholders.
const Marker = '?'

// RewritePlaceholders replaces each ? marker, left to right, with its own
// named marker :p0, :p1, ... Markers inside single-quoted literals and
// double-quoted identifiers are left alone. Comments and dollar-quoted
// bodies are not recognized, so they must not contain markers. The marker
// count must equal n.
func RewritePlaceholders(sql string, n int) (string, error) {
	var b strings.Builder
	b.Grow(len(sql) + 2*n)

	next := 0
	var open rune
	for _, r := range sql {
		switch {
		case r == '\'' || r == '"':
			// A doubled quote closes and reopens, staying quoted.
			if open == 0 {
				open = r
			} else if open == r {
				open = 0
			}
			b.WriteRune(r)
		case r == Marker && open == 0:
			b.WriteByte(':')
			b.WriteString(ParamName(next))
			next++
		default:
			b.WriteRune(r)
		}
	}

	if next != n {
		return "", fmt.Errorf("statement has %d placeholders but %d parameters", next, n)
	}
	return b.String(), nil
}
