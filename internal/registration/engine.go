package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/lwm2mgo/lwm2m/internal/metrics"
	"github.com/lwm2mgo/lwm2m/internal/scheduler"
)

const (
	// MinUpdateIntervalS is the floor applied to every computed Update
	// delay.
	MinUpdateIntervalS = 1

	// UpdateIntervalMarginFactor targets the next Update halfway between
	// the last successful registration and lifetime expiry, leaving one
	// retry window before the registration actually lapses.
	UpdateIntervalMarginFactor = 2
)

// Client is the owning value for this module's entire mutable state: the
// active-server list, the scheduler, and the offline flag. It is passed
// explicitly to every operation rather than reached through a singleton.
type Client struct {
	servers *Servers
	sched   *scheduler.Scheduler

	conn      ConnectionSubsystem
	proto     RegistrationProtocol
	stream    StreamBinder
	observe   ObservationHooks
	bootstrap BootstrapHooks
	retryBoff scheduler.NewBackOff

	offline atomic.Bool
	closed  atomic.Bool
}

// NewClient wires a Client against its collaborators. retryBackoff is the
// scheduler's ANJAY_SERVER_RETRYABLE_BACKOFF policy factory; the engine
// never computes its own retry timing.
func NewClient(
	servers *Servers,
	sched *scheduler.Scheduler,
	conn ConnectionSubsystem,
	proto RegistrationProtocol,
	stream StreamBinder,
	observe ObservationHooks,
	bootstrap BootstrapHooks,
	retryBackoff scheduler.NewBackOff,
) *Client {
	return &Client{
		servers:   servers,
		sched:     sched,
		conn:      conn,
		proto:     proto,
		stream:    stream,
		observe:   observe,
		bootstrap: bootstrap,
		retryBoff: retryBackoff,
	}
}

// IsOffline reports the client's offline flag.
func (c *Client) IsOffline() bool {
	return c.offline.Load()
}

// nextUpdateDelay implements the Update scheduling formula in isolation
// from the scheduler so it can be tested without waiting on real timers.
func nextUpdateDelay(info RegistrationInfo, now time.Time) time.Duration {
	remaining := info.RegistrationDeadline.Sub(now) - time.Duration(info.LifetimeS)*time.Second/UpdateIntervalMarginFactor
	if remaining < MinUpdateIntervalS*time.Second {
		return MinUpdateIntervalS * time.Second
	}
	return remaining
}

// scheduleNextUpdate computes the next Update delay and asks
// the scheduler for a retryable job, replacing (and cancelling) any
// handle already held by server.
func (c *Client) scheduleNextUpdate(server *ActiveServer, reconnectRequired bool) {
	delay := nextUpdateDelay(server.Info(), time.Now())

	ssid := server.SSID
	arg := EncodeArg(ssid, reconnectRequired)

	handle := c.sched.Retryable(delay, c.retryBoff, func() error {
		return c.runUpdateJob(arg)
	})

	if prev := server.swapUpdateHandle(handle); prev != nil {
		c.sched.Cancel(prev)
	}
}

// runUpdateJob is the Update job body.
func (c *Client) runUpdateJob(arg JobArg) error {
	ssid, reconnectRequired := arg.Decode()

	server, ok := c.servers.Get(ssid)
	if !ok {
		slog.Info("update job fired for inactive server, ignoring", "ssid", ssid)
		return nil
	}

	server.setMode(modeInRequest)
	ctx := context.Background()
	ssidLabel := strconv.Itoa(int(ssid))

	if err := c.conn.Refresh(ctx, server, reconnectRequired); err != nil {
		server.setMode(modeSuspended)
		if reconnectRequired {
			metrics.ReconnectTotal.WithLabelValues(ssidLabel, "error").Inc()
		}
		return fmt.Errorf("refresh server %d: %w", ssid, err)
	}
	if reconnectRequired {
		metrics.ReconnectTotal.WithLabelValues(ssidLabel, "ok").Inc()
	}

	// The bootstrap server never runs the Update-vs-Re-Register decision:
	// its only job-triggered action is the reconnect hook, regardless of
	// whether this job fired with reconnectRequired set.
	if server.IsBootstrap() {
		if reconnectRequired {
			c.bootstrap.Reconnected(server)
		}
		server.setMode(modeBoundIdle)
		return nil
	}

	err := c.updateOrReregister(ctx, server)
	if errors.Is(err, ErrNetwork) {
		c.conn.Suspend(server)
		server.setMode(modeSuspended)
		metrics.SuspendedTotal.WithLabelValues(ssidLabel).Inc()
		return nil
	}
	if errors.Is(err, ErrUpdateRejected) {
		// Re-Register was already scheduled by sendUpdate; this job's
		// own run is done.
		server.setMode(modeBoundIdle)
		return nil
	}
	if err != nil {
		return err
	}

	server.setMode(modeBoundIdle)
	return nil
}

// updateOrReregister implements the Update-vs-Re-Register decision.
func (c *Client) updateOrReregister(ctx context.Context, server *ActiveServer) error {
	info := server.Info()
	needsReregister := info.ConnType == ConnTypeWildcard || !c.conn.IsOnline(server)

	if needsReregister {
		if err := c.conn.SetupRegistrationConnection(ctx, server); err != nil {
			return fmt.Errorf("setup registration connection: %w", err)
		}
	} else if info.Expired(time.Now()) {
		needsReregister = true
	}

	if needsReregister {
		return c.forceReregister(server)
	}
	return c.sendUpdate(ctx, server)
}

// forceReregister schedules a delay-0 Re-Register job.
// The caller observes only whether scheduling succeeded; the Re-Register
// job's own outcome is handled asynchronously by deactivating the server
// on failure.
func (c *Client) forceReregister(server *ActiveServer) error {
	ssid := server.SSID

	c.sched.Now(func() error {
		srv, ok := c.servers.Get(ssid)
		if !ok {
			slog.Info("re-register job fired for inactive server, ignoring", "ssid", ssid)
			return nil
		}

		if err := c.registerServer(context.Background(), srv); err != nil {
			slog.Warn("re-register failed, deactivating server", "ssid", ssid, "error", err)
			c.servers.Deactivate(ssid)
			return err
		}
		return nil
	})
	return nil
}

// registerServer performs the full Register exchange.
func (c *Client) registerServer(ctx context.Context, server *ActiveServer) error {
	if err := c.conn.SetupRegistrationConnection(ctx, server); err != nil {
		return fmt.Errorf("setup registration connection: %w", err)
	}

	if err := c.stream.Bind(ctx, server); err != nil {
		return fmt.Errorf("bind comm stream: %w", err)
	}
	defer c.stream.Release()

	ssidLabel := strconv.Itoa(int(server.SSID))
	if err := c.proto.Register(ctx, server); err != nil {
		metrics.RegisterTotal.WithLabelValues(ssidLabel, "error").Inc()
		return fmt.Errorf("register: %w", err)
	}
	metrics.RegisterTotal.WithLabelValues(ssidLabel, "ok").Inc()

	if prev := server.swapUpdateHandle(nil); prev != nil {
		c.sched.Cancel(prev)
	}
	c.scheduleNextUpdate(server, false)
	c.observe.FlushCurrentConnection(server)
	if !server.IsBootstrap() {
		c.bootstrap.NotifyRegularConnectionAvailable(server)
	}
	return nil
}

// sendUpdate performs the Update exchange.
func (c *Client) sendUpdate(ctx context.Context, server *ActiveServer) error {
	if err := c.stream.Bind(ctx, server); err != nil {
		return fmt.Errorf("%w: bind comm stream: %v", ErrNetwork, err)
	}
	defer c.stream.Release()

	ssidLabel := strconv.Itoa(int(server.SSID))
	result, err := c.proto.Update(ctx, server)
	if err != nil {
		metrics.UpdateTotal.WithLabelValues(ssidLabel, "error").Inc()
		return fmt.Errorf("update: %w", err)
	}
	if result == UpdateRejected {
		metrics.UpdateTotal.WithLabelValues(ssidLabel, "rejected").Inc()
		slog.Info("update rejected, forcing re-register", "ssid", server.SSID)
		_ = c.forceReregister(server)
		return fmt.Errorf("%w: ssid %d", ErrUpdateRejected, server.SSID)
	}
	metrics.UpdateTotal.WithLabelValues(ssidLabel, "ok").Inc()

	c.observe.FlushCurrentConnection(server)
	c.scheduleNextUpdate(server, false)
	return nil
}

// deregisterServer is best-effort: errors are logged, never retried, and
// the stream is released without rescheduling anything on it.
func (c *Client) deregisterServer(ctx context.Context, server *ActiveServer) {
	ssidLabel := strconv.Itoa(int(server.SSID))
	if server.Info().ConnType == ConnTypeWildcard {
		return
	}
	if err := c.stream.Bind(ctx, server); err != nil {
		slog.Warn("deregister: bind comm stream failed", "ssid", server.SSID, "error", err)
		return
	}
	if err := c.proto.Deregister(ctx, server); err != nil {
		metrics.DeregisterTotal.WithLabelValues(ssidLabel, "error").Inc()
		slog.Warn("deregister failed", "ssid", server.SSID, "error", err)
	} else {
		metrics.DeregisterTotal.WithLabelValues(ssidLabel, "ok").Inc()
	}
	c.stream.ReleaseWithoutSchedulingQueue()
}
