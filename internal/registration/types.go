// Package registration implements the per-server LwM2M registration
// lifecycle engine: Update scheduling, the Update-vs-Re-Register
// decision, reconnect plumbing, offline/online transitions, and
// deregistration.
//
// The engine is polymorphic over its collaborators (Scheduler,
// ConnectionSubsystem, RegistrationProtocol, ObservationHooks,
// BootstrapHooks) — see collaborators.go — so the wire protocol and
// transport stay out of this package entirely.
package registration

import (
	"sync"
	"time"

	"github.com/lwm2mgo/lwm2m/internal/metrics"
	"github.com/lwm2mgo/lwm2m/internal/query"
	"github.com/lwm2mgo/lwm2m/internal/scheduler"
)

// ServerID is a 16-bit LwM2M Short Server ID.
type ServerID uint16

const (
	// AnyServer is the reserved SSID meaning "every active server" when
	// passed to ScheduleRegistrationUpdate.
	AnyServer ServerID = 0

	// BootstrapServer is the reserved SSID identifying the bootstrap
	// server. The protocol itself assigns bootstrap servers no real
	// SSID; this sentinel is an internal convention the engine uses to
	// route the bootstrap reconnect hook — see DESIGN.md for why
	// 0xFFFF was chosen over overloading AnyServer's 0.
	BootstrapServer ServerID = 0xFFFF
)

// ConnType describes which concrete connection variant a server's
// registration is bound to, or that none has been selected yet.
// Modeled as an explicit enum rather than relying on ordinal comparisons
// against a "wildcard" value: every check
// for "no connection selected" compares by equality to ConnTypeWildcard.
type ConnType int

const (
	ConnTypeWildcard ConnType = iota
	ConnTypeUDP
	ConnTypeDTLS
)

// RegistrationInfo holds everything created on a successful Register and
// mutated on Update; it is cleared (reset to its zero value) on
// Deregister/deactivate.
type RegistrationInfo struct {
	LifetimeS            int64
	RegistrationDeadline time.Time
	ConnType             ConnType
	LastUpdateParams     query.Params
}

// Expired reports whether now is past the registration deadline. A zero
// RegistrationDeadline (never registered) counts as expired.
func (r RegistrationInfo) Expired(now time.Time) bool {
	return !r.RegistrationDeadline.After(now)
}

// serverMode is purely observational — it mirrors a server's lifecycle
// for logging and tests, but nothing in the engine branches on it; all
// real decisions are driven by ConnType, RegistrationInfo, and the
// scheduler's own bookkeeping.
type serverMode int

const (
	modeUnbound serverMode = iota
	modeBoundIdle
	modeInRequest
	modeSuspended
)

// ActiveServer is one server this client is registered (or registering)
// with. It is owned by Servers; the registration jobs scheduled for it
// carry only its SSID, never a pointer, and re-resolve the server under
// the current Servers list each time they fire. This is what makes
// deactivation races benign instead of use-after-free.
type ActiveServer struct {
	SSID ServerID

	mu           sync.Mutex
	info         RegistrationInfo
	updateHandle *scheduler.Handle // nullable; at most one live job at a time
	mode         serverMode
	isBootstrap  bool

	// Transport references are opaque to this package — ConnectionSubsystem
	// owns whatever socket/stream state a real implementation needs; the
	// engine never looks inside it.
	Transport any
}

// Info returns a copy of the server's current registration info.
func (s *ActiveServer) Info() RegistrationInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// SetInfo replaces the server's registration info (e.g. after a
// successful Register or Update).
func (s *ActiveServer) SetInfo(info RegistrationInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = info
}

// IsBootstrap reports whether this server is the bootstrap server.
func (s *ActiveServer) IsBootstrap() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isBootstrap
}

func (s *ActiveServer) setMode(m serverMode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// swapUpdateHandle replaces the scheduled Update handle with next,
// returning whatever was there before (possibly nil) so the caller can
// cancel it. A server holds at most one live Update handle at a time.
func (s *ActiveServer) swapUpdateHandle(next *scheduler.Handle) *scheduler.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.updateHandle
	s.updateHandle = next
	return prev
}

// NewActiveServer constructs a server record. isBootstrap marks it as
// the bootstrap server for the purposes of the reconnect hook.
func NewActiveServer(ssid ServerID, isBootstrap bool) *ActiveServer {
	return &ActiveServer{SSID: ssid, isBootstrap: isBootstrap}
}

// Servers is the process-wide, ordered collection of active servers.
// Mirrors the established map-behind-a-mutex Manager pattern
// (internal/worker/agent/manager.go) generalized from agent-by-ID to
// server-by-SSID.
type Servers struct {
	mu     sync.RWMutex
	active []*ActiveServer
}

// NewServers creates an empty Servers list.
func NewServers() *Servers {
	return &Servers{}
}

// Get resolves ssid against the current list. Returns false if the
// server was deactivated (or never activated).
func (s *Servers) Get(ssid ServerID) (*ActiveServer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, srv := range s.active {
		if srv.SSID == ssid {
			return srv, true
		}
	}
	return nil, false
}

// All returns a snapshot slice of every currently active server. Safe to
// range over without holding any lock, since it is a fresh copy.
func (s *Servers) All() []*ActiveServer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ActiveServer, len(s.active))
	copy(out, s.active)
	return out
}

// Activate adds srv to the active list. It is a no-op if srv's SSID is
// already active.
func (s *Servers) Activate(srv *ActiveServer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.active {
		if existing.SSID == srv.SSID {
			return
		}
	}
	s.active = append(s.active, srv)
	metrics.ActiveServers.Set(float64(len(s.active)))
}

// Deactivate removes ssid from the active list, if present, and clears
// its RegistrationInfo.
func (s *Servers) Deactivate(ssid ServerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, srv := range s.active {
		if srv.SSID == ssid {
			srv.SetInfo(RegistrationInfo{})
			s.active = append(s.active[:i], s.active[i+1:]...)
			metrics.ActiveServers.Set(float64(len(s.active)))
			return
		}
	}
}
