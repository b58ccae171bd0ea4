package endpoint

import "strings"

// Encode re-serializes e back into scheme://host[:port][/path][?query]
// form, percent-escaping any byte that is not a valid unencoded pchar (or,
// for query segments, query char). Re-parsing the result with Parse always
// yields an Endpoint equal to e — this is the round-trip invariant the
// parser is tested against.
func (e Endpoint) Encode() string {
	var b strings.Builder
	b.WriteString(e.Scheme)
	b.WriteString("://")

	// A host taken from a bracketed literal may hold bytes that end an
	// unbracketed host; bracket it again whenever it does.
	if strings.ContainsAny(e.Host, ":/?@") || strings.HasPrefix(e.Host, "[") {
		b.WriteByte('[')
		b.WriteString(e.Host)
		b.WriteByte(']')
	} else {
		b.WriteString(e.Host)
	}

	if e.Port != "" {
		b.WriteByte(':')
		b.WriteString(e.Port)
	}

	for _, seg := range e.PathSegments {
		b.WriteByte('/')
		writeEscaped(&b, seg, isPchar)
	}
	// Parse drops one trailing '/', so an empty last segment needs an
	// extra separator to survive the round trip.
	if n := len(e.PathSegments); n > 0 && e.PathSegments[n-1] == "" {
		b.WriteByte('/')
	}

	for i, seg := range e.QuerySegments {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		// '&' is technically a valid query pchar (RFC 3986 sub-delim),
		// but this grammar uses it as the query-segment separator, so a
		// literal '&' inside a segment must always be escaped to keep
		// Encode a true inverse of Parse.
		writeEscaped(&b, seg, func(c byte) bool { return isQueryChar(c) && c != '&' })
	}

	return b.String()
}

const upperHex = "0123456789ABCDEF"

func writeEscaped(b *strings.Builder, s string, valid func(byte) bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if valid(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
}
