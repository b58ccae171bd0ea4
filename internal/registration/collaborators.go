package registration

import "context"

// UpdateResult is the outcome of a RegistrationProtocol.Update call,
// beyond plain success/error. A network error or any other protocol
// failure is reported through the returned error instead (see errors.go).
type UpdateResult int

const (
	UpdateOK UpdateResult = iota
	UpdateRejected
)

// ConnectionSubsystem is the external collaborator that owns sockets and
// connection selection. Its real implementation talks CoAP/DTLS; that
// wire format is out of scope for this module.
type ConnectionSubsystem interface {
	// Refresh ensures server has a live connection, reconnecting if
	// reconnectRequired is set or the current connection is dead. It
	// updates server's ConnType as a side effect (via SetInfo).
	Refresh(ctx context.Context, server *ActiveServer, reconnectRequired bool) error

	// SetupRegistrationConnection selects and prepares the best
	// connection variant for a Register exchange.
	SetupRegistrationConnection(ctx context.Context, server *ActiveServer) error

	// IsOnline reports whether server's current connection is usable.
	IsOnline(server *ActiveServer) bool

	// Suspend disconnects server's socket while retaining the object, so
	// a later Refresh can reconnect with the same ConnType.
	Suspend(server *ActiveServer)
}

// RegistrationProtocol is the external collaborator performing the
// Register/Update/Deregister protocol exchanges. Payload encoding is out
// of scope. On success, Register and Update are
// expected to call server.SetInfo with the lifetime and deadline granted
// by the server, the same way ConnectionSubsystem updates ConnType: the
// engine never parses a response body itself.
type RegistrationProtocol interface {
	Register(ctx context.Context, server *ActiveServer) error
	Update(ctx context.Context, server *ActiveServer) (UpdateResult, error)
	Deregister(ctx context.Context, server *ActiveServer) error
}

// StreamBinder manages the single process-wide comm stream resource:
// at most one protocol exchange may hold it at a time.
type StreamBinder interface {
	Bind(ctx context.Context, server *ActiveServer) error
	Release()
	ReleaseWithoutSchedulingQueue()
}

// ObservationHooks flushes pending observation/notification state after a
// successful Register or Update. The observation subsystem itself is out
// of scope.
type ObservationHooks interface {
	FlushCurrentConnection(server *ActiveServer)
}

// BootstrapHooks are the two bootstrap-subsystem touchpoints the engine
// calls into; bootstrap business logic beyond these hooks is out of
// scope.
type BootstrapHooks interface {
	// NotifyRegularConnectionAvailable is called after a regular
	// (non-bootstrap) server successfully completes Register.
	NotifyRegularConnectionAvailable(server *ActiveServer)

	// Reconnected is called when the bootstrap server's refresh
	// succeeds with reconnectRequired set on the bootstrap server.
	Reconnected(server *ActiveServer)
}
