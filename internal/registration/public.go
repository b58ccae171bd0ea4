package registration

import (
	"context"

	"github.com/lwm2mgo/lwm2m/internal/metrics"
)

// RegisterServer activates server and performs its initial Register
// exchange. On success the server is reachable via ssid for every other
// public operation; on failure it is never activated.
func (c *Client) RegisterServer(ctx context.Context, server *ActiveServer) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.registerServer(ctx, server); err != nil {
		return err
	}
	c.servers.Activate(server)
	return nil
}

// DeregisterServer performs a best-effort Deregister,
// cancels the server's Update handle, and removes it from the active
// list regardless of whether the Deregister exchange succeeded.
func (c *Client) DeregisterServer(ctx context.Context, ssid ServerID) error {
	if c.closed.Load() {
		return ErrClosed
	}
	server, ok := c.servers.Get(ssid)
	if !ok {
		return ErrServerNotFound
	}

	c.deregisterServer(ctx, server)

	if prev := server.swapUpdateHandle(nil); prev != nil {
		c.sched.Cancel(prev)
	}
	c.servers.Deactivate(ssid)
	return nil
}

// SetOffline marks the client offline, causing ScheduleRegistrationUpdate
// to fail until ScheduleReconnect clears the flag. The higher layer
// (connectivity monitoring) decides when offline mode is entered; this
// package only enforces its consequences.
func (c *Client) SetOffline() {
	c.offline.Store(true)
	metrics.OfflineState.Set(1)
}

// scheduleImmediateUpdate cancels server's current Update handle (if
// any) and schedules a fresh Update job at delay 0, carrying
// reconnectRequired. Used by the public reschedule/reconnect operations,
// which — unlike scheduleNextUpdate's computed delay — always
// want the job to run as soon as possible.
func (c *Client) scheduleImmediateUpdate(server *ActiveServer, reconnectRequired bool) error {
	if c.closed.Load() {
		return ErrClosed
	}
	arg := EncodeArg(server.SSID, reconnectRequired)
	handle := c.sched.Retryable(0, c.retryBoff, func() error {
		return c.runUpdateJob(arg)
	})
	if prev := server.swapUpdateHandle(handle); prev != nil {
		c.sched.Cancel(prev)
	}
	return nil
}

// ScheduleRegistrationUpdate reschedules a server's Update job to run
// immediately. AnyServer reschedules every active server's Update job; a
// specific SSID reschedules only that server and fails with
// ErrServerNotFound if it is not active. When rescheduling every server,
// the first failure is remembered and returned but does not stop the
// remaining servers from being rescheduled.
func (c *Client) ScheduleRegistrationUpdate(ssid ServerID) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.IsOffline() {
		return ErrOffline
	}

	if ssid == AnyServer {
		var firstErr error
		for _, srv := range c.servers.All() {
			if err := c.scheduleImmediateUpdate(srv, false); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	srv, ok := c.servers.Get(ssid)
	if !ok {
		return ErrServerNotFound
	}
	return c.scheduleImmediateUpdate(srv, false)
}

// ScheduleReconnect reschedules every active server's Update job with
// reconnectRequired set, and clears the offline flag once every server's
// reconnect has been scheduled.
func (c *Client) ScheduleReconnect() error {
	if c.closed.Load() {
		return ErrClosed
	}
	for _, srv := range c.servers.All() {
		if err := c.scheduleServerReconnect(srv); err != nil {
			return err
		}
	}
	c.offline.Store(false)
	metrics.OfflineState.Set(0)
	return nil
}

// scheduleServerReconnect is the internal single-server variant used by
// ScheduleReconnect: reconnectRequired is always set.
func (c *Client) scheduleServerReconnect(server *ActiveServer) error {
	return c.scheduleImmediateUpdate(server, true)
}

// Close stops the Update scheduler and rejects every subsequent public
// operation with ErrClosed. It does not perform Deregister on active
// servers; callers that want a clean unregister should call
// DeregisterServer for each server before Close.
func (c *Client) Close() {
	c.closed.Store(true)
	c.sched.Close()
}
