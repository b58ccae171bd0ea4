package registration

// JobArg is the opaque payload carried by a scheduled Update job: which
// server it targets and whether the connection must be forced to
// reconnect before the update is attempted. The engine's own scheduler
// package (internal/scheduler) is closure-based, so Client never actually
// needs to serialize this — jobs could just close over their *ActiveServer
// and a bool directly. JobArg exists anyway so the SSID/reconnect packing
// is a lossless, independently testable round trip, the way a
// C-style scheduler API (sched_retryable(ssid, reconnect, ...)) would
// require.
type JobArg uint32

const reconnectBit = JobArg(1) << 16

// EncodeArg packs ssid and reconnectRequired into a single JobArg.
func EncodeArg(ssid ServerID, reconnectRequired bool) JobArg {
	arg := JobArg(ssid)
	if reconnectRequired {
		arg |= reconnectBit
	}
	return arg
}

// Decode unpacks a JobArg back into its SSID and reconnect components.
func (a JobArg) Decode() (ssid ServerID, reconnectRequired bool) {
	return ServerID(a &^ reconnectBit), a&reconnectBit != 0
}
