// Package protocol is the concrete implementation of the registration
// package's external collaborators (ConnectionSubsystem,
// RegistrationProtocol, StreamBinder, ObservationHooks, BootstrapHooks),
// built on top of package transport. The actual CoAP/DTLS wire format is
// out of scope; the request/response framing
// here is a minimal line-oriented placeholder that exercises the same
// connection lifecycle a real CoAP registration interface would.
package protocol

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lwm2mgo/lwm2m/internal/endpoint"
	"github.com/lwm2mgo/lwm2m/internal/metrics"
	"github.com/lwm2mgo/lwm2m/internal/query"
	"github.com/lwm2mgo/lwm2m/internal/registration"
	"github.com/lwm2mgo/lwm2m/internal/transport"
)

// exchangeTimeout bounds a single request/response round trip.
const exchangeTimeout = 10 * time.Second

// Config describes how this client identifies and registers itself.
type Config struct {
	EndpointName string
	LifetimeS    int64
	Binding      string
	PreferDTLS   bool
}

// Client implements every external collaborator package registration
// consumes, against a single endpoint reached over package transport.
type Client struct {
	cfg          Config
	ep           endpoint.Endpoint
	transportCfg transport.Config

	// mu guards the single process-wide comm stream:
	// only one exchange may hold it at a time.
	mu    sync.Mutex
	bound net.Conn
}

// New constructs a Client targeting ep, using transportCfg for socket
// options and an optional DTLS dialer.
func New(cfg Config, ep endpoint.Endpoint, transportCfg transport.Config) *Client {
	return &Client{cfg: cfg, ep: ep, transportCfg: transportCfg}
}

func (c *Client) transportType() transport.Type {
	if c.cfg.PreferDTLS {
		return transport.DTLS
	}
	return transport.UDP
}

// --- ConnectionSubsystem ---

func (c *Client) Refresh(_ context.Context, server *registration.ActiveServer, reconnectRequired bool) error {
	if !reconnectRequired && c.IsOnline(server) {
		return nil
	}
	return c.connect(server)
}

func (c *Client) SetupRegistrationConnection(_ context.Context, server *registration.ActiveServer) error {
	return c.connect(server)
}

func (c *Client) connect(server *registration.ActiveServer) error {
	if conn, ok := server.Transport.(net.Conn); ok && conn != nil {
		_ = conn.Close()
		server.Transport = nil
	}

	conn, err := transport.Open(c.transportType(), c.transportCfg, c.ep)
	if err != nil {
		return fmt.Errorf("connect server %d: %w", server.SSID, err)
	}
	server.Transport = conn

	info := server.Info()
	if c.cfg.PreferDTLS {
		info.ConnType = registration.ConnTypeDTLS
	} else {
		info.ConnType = registration.ConnTypeUDP
	}
	server.SetInfo(info)
	return nil
}

func (c *Client) IsOnline(server *registration.ActiveServer) bool {
	conn, ok := server.Transport.(net.Conn)
	return ok && conn != nil
}

func (c *Client) Suspend(server *registration.ActiveServer) {
	if conn, ok := server.Transport.(net.Conn); ok && conn != nil {
		_ = conn.Close()
	}
	server.Transport = nil
	info := server.Info()
	info.ConnType = registration.ConnTypeWildcard
	server.SetInfo(info)
}

// --- StreamBinder ---

func (c *Client) Bind(_ context.Context, server *registration.ActiveServer) error {
	c.mu.Lock()
	conn, ok := server.Transport.(net.Conn)
	if !ok || conn == nil {
		c.mu.Unlock()
		return fmt.Errorf("bind server %d: no connection", server.SSID)
	}
	c.bound = conn
	return nil
}

func (c *Client) Release() {
	c.bound = nil
	c.mu.Unlock()
}

func (c *Client) ReleaseWithoutSchedulingQueue() {
	c.Release()
}

// --- RegistrationProtocol ---

func (c *Client) Register(_ context.Context, server *registration.ActiveServer) error {
	ep := c.cfg.EndpointName
	lt := c.cfg.LifetimeS
	b := c.cfg.Binding
	params, err := query.Build(query.Params{Ep: &ep, Lt: &lt, B: &b})
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	resp, err := c.exchange("register", "REGISTER "+strings.Join(params, "&"))
	if err != nil {
		return err
	}

	lifetime, err := parseRegistered(resp)
	if err != nil {
		return err
	}

	info := server.Info()
	info.LifetimeS = lifetime
	info.RegistrationDeadline = time.Now().Add(time.Duration(lifetime) * time.Second)
	server.SetInfo(info)
	return nil
}

func (c *Client) Update(_ context.Context, server *registration.ActiveServer) (registration.UpdateResult, error) {
	resp, err := c.exchange("update", fmt.Sprintf("UPDATE %d", server.SSID))
	if err != nil {
		return registration.UpdateOK, err
	}

	if strings.HasPrefix(resp, "REJECTED") {
		return registration.UpdateRejected, nil
	}

	lifetime, err := parseRegistered(resp)
	if err != nil {
		return registration.UpdateOK, err
	}
	info := server.Info()
	info.LifetimeS = lifetime
	info.RegistrationDeadline = time.Now().Add(time.Duration(lifetime) * time.Second)
	server.SetInfo(info)
	return registration.UpdateOK, nil
}

func (c *Client) Deregister(_ context.Context, server *registration.ActiveServer) error {
	_, err := c.exchange("deregister", fmt.Sprintf("DEREGISTER %d", server.SSID))
	return err
}

// exchange writes req followed by a newline on the bound connection and
// reads a single line back, under exchangeTimeout. Every call is tagged
// with a correlation ID so a Register/Update/Deregister's request and
// response can be matched up in logs even when several exchanges
// interleave across servers, and its wall-clock cost is recorded under
// kind in ExchangeDuration.
//
// Only genuine transport-level failures (no bound connection, write,
// read) are tagged with registration.ErrNetwork here; a malformed or
// unexpected response is a protocol-level failure the caller must
// propagate as-is, not a reason to suspend a perfectly live connection.
func (c *Client) exchange(kind, req string) (string, error) {
	if c.bound == nil {
		return "", fmt.Errorf("%w: no bound connection", registration.ErrNetwork)
	}
	reqID := uuid.New().String()
	slog.Debug("exchange request", "request_id", reqID, "req", req)
	start := time.Now()

	_ = c.bound.SetDeadline(time.Now().Add(exchangeTimeout))

	if _, err := fmt.Fprintf(c.bound, "%s\n", req); err != nil {
		metrics.ExchangeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		return "", fmt.Errorf("%w: write: %v", registration.ErrNetwork, err)
	}

	line, err := bufio.NewReader(c.bound).ReadString('\n')
	metrics.ExchangeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: read: %v", registration.ErrNetwork, err)
	}
	resp := strings.TrimSpace(line)
	slog.Debug("exchange response", "request_id", reqID, "resp", resp)
	return resp, nil
}

func parseRegistered(resp string) (int64, error) {
	fields := strings.Fields(resp)
	if len(fields) != 2 || fields[0] != "REGISTERED" {
		return 0, fmt.Errorf("unexpected response %q", resp)
	}
	lifetime, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse lifetime: %w", err)
	}
	return lifetime, nil
}

// --- ObservationHooks / BootstrapHooks ---

func (c *Client) FlushCurrentConnection(server *registration.ActiveServer) {
	slog.Debug("flushing observation state", "ssid", server.SSID)
}

func (c *Client) NotifyRegularConnectionAvailable(server *registration.ActiveServer) {
	slog.Debug("regular connection available", "ssid", server.SSID)
}

func (c *Client) Reconnected(server *registration.ActiveServer) {
	slog.Debug("bootstrap server reconnected", "ssid", server.SSID)
}
