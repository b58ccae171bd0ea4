// Package transport opens and connects the UDP or DTLS socket a
// registered server's connection binds to. The DTLS handshake itself is
// explicitly out of scope: it is expressed as a narrow Dialer capability
// the caller supplies, the same way the wire protocol exchange and
// scheduler are expressed as capabilities in package registration.
package transport

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/lwm2mgo/lwm2m/internal/endpoint"
)

// Type selects the wire transport for a socket.
type Type int

const (
	UDP Type = iota
	DTLS
)

// Dialer connects to an endpoint's host:port over a particular Type,
// returning an established net.Conn. The real DTLS handshake lives
// outside this module (see package doc); production code supplies a
// Dialer backed by whatever DTLS library the surrounding client uses.
type Dialer interface {
	Dial(t Type, addr string) (net.Conn, error)
}

// Config carries the opaque per-transport settings Open needs beyond the
// endpoint itself: which local port (if any) to bind before connecting
// a UDP socket, and the Dialer to use for the DTLS path.
type Config struct {
	LocalPort int // UDP only; 0 means let the OS choose
	Dialer    Dialer
}

// Open creates a socket for transport type t and connects it to ep's
// host:port. For UDP it optionally binds cfg.LocalPort first; for DTLS it
// hands the address to cfg.Dialer and does not apply cfg.LocalPort. Any
// failure tears down whatever was partially constructed and returns a
// nil conn.
func Open(t Type, cfg Config, ep endpoint.Endpoint) (net.Conn, error) {
	addr := net.JoinHostPort(ep.Host, ep.Port)

	switch t {
	case UDP:
		return openUDP(cfg, addr)
	case DTLS:
		if cfg.Dialer == nil {
			return nil, fmt.Errorf("open %s socket: no DTLS dialer configured", addr)
		}
		conn, err := cfg.Dialer.Dial(DTLS, addr)
		if err != nil {
			return nil, fmt.Errorf("dial DTLS %s: %w", addr, err)
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("unknown transport type %d", t)
	}
}

func openUDP(cfg Config, addr string) (conn net.Conn, err error) {
	var localAddr *net.UDPAddr
	if cfg.LocalPort != 0 {
		localAddr = &net.UDPAddr{Port: cfg.LocalPort}
	}

	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}

	udpConn, err := net.DialUDP("udp", localAddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial udp %s: %w", addr, err)
	}

	defer func() {
		if err != nil {
			_ = udpConn.Close()
		}
	}()

	if err := setReuseAddr(udpConn); err != nil {
		return nil, fmt.Errorf("configure socket for %s: %w", addr, err)
	}

	return udpConn, nil
}

// setReuseAddr enables SO_REUSEADDR so a server whose registration
// connection was suspended and later reconnects
// doesn't transiently fail to rebind the same local port.
func setReuseAddr(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
