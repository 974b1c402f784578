// Package keys builds deterministic cache keys for upstream queries.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const Prefix = "searchsync"

// Key derives a cache key from an endpoint and its raw query string. The
// query text is sanitized to a safe ASCII alphabet and truncated for
// readability; a 64-bit hash suffix keeps distinct queries distinct.
func Key(endpoint, rawQuery string) string {
	ep := sanitize(strings.TrimSpace(endpoint))
	ep = strings.TrimSuffix(ep, ".php")

	q := collapseASCIIWhitespace(rawQuery)
	qSafe := sanitize(q)

	const maxQueryTextLen = 160
	if len(qSafe) > maxQueryTextLen {
		qSafe = qSafe[:maxQueryTextLen]
	}

	sum := xxhash.Sum64String(q)

	return fmt.Sprintf("%s:%s:q=%s:h=%016x", Prefix, ep, qSafe, sum)
}

// EndpointPrefix returns the key prefix shared by all cached responses of one
// endpoint, for prefix invalidation.
func EndpointPrefix(endpoint string) string {
	ep := sanitize(strings.TrimSpace(endpoint))
	ep = strings.TrimSuffix(ep, ".php")
	return Prefix + ":" + ep + ":"
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '=' || r == '.' || r == '&':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

// converts any run of ASCII whitespace to a single space.
func collapseASCIIWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
