// Package binding implements the LwM2M binding-mode enumeration and its
// bidirectional mapping to the short string form used on the wire
// ("U", "UQ", "S", "SQ", "US", "UQS").
package binding

import "log/slog"

// Mode is one of the LwM2M binding modes, or None if unset/unrecognized.
type Mode int

const (
	None Mode = iota
	U         // UDP
	UQ        // UDP, queue mode
	S         // SMS
	SQ        // SMS, queue mode
	US        // UDP + SMS
	UQS       // UDP queue mode + SMS
)

var table = []struct {
	mode Mode
	str  string
}{
	{U, "U"},
	{UQ, "UQ"},
	{S, "S"},
	{SQ, "SQ"},
	{US, "US"},
	{UQS, "UQS"},
}

// AsStr returns the short string form of m, or "" (ok=false) if m is
// None or otherwise unrecognized.
func AsStr(m Mode) (s string, ok bool) {
	for _, e := range table {
		if e.mode == m {
			return e.str, true
		}
	}
	return "", false
}

// FromStr parses a short binding-mode string. Unknown input yields None
// and is logged at warn level rather than returned as an error — an
// unrecognized binding mode in, say, a registration query is a server
// quirk the client should tolerate, not fail on.
func FromStr(s string) Mode {
	for _, e := range table {
		if e.str == s {
			return e.mode
		}
	}
	slog.Warn("unrecognized binding mode", "value", s)
	return None
}
