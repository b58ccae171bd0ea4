package registration

import "errors"

// Sentinel errors returned by the public Client API and the engine's
// internal job bodies. Callers should use errors.Is against these rather
// than matching on error text.
var (
	// ErrServerNotFound is returned when a requested SSID does not match
	// any currently active server.
	ErrServerNotFound = errors.New("registration: server not found")

	// ErrOffline is returned by ScheduleRegistrationUpdate while the
	// client's offline flag is set (see SetOffline).
	ErrOffline = errors.New("registration: server offline")

	// ErrNetwork marks a transport-level failure during a protocol
	// exchange (Register/Update/Deregister) or while binding the comm
	// stream for an Update. The underlying error is included only as
	// text in the message; errors.Unwrap yields ErrNetwork itself.
	ErrNetwork = errors.New("registration: network error")

	// ErrUpdateRejected is returned when the server responds to Update
	// with a rejection, which forces a full Re-Register.
	ErrUpdateRejected = errors.New("registration: update rejected by server")

	// ErrClosed is returned by any operation attempted after the
	// Client's scheduler has been closed.
	ErrClosed = errors.New("registration: client closed")
)
