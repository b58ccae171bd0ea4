// Command lwm2mclient runs a single LwM2M client endpoint: it registers
// with one server, keeps the registration alive via scheduled Updates,
// and deregisters cleanly on shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lwm2mgo/lwm2m/internal/config"
	"github.com/lwm2mgo/lwm2m/internal/endpoint"
	"github.com/lwm2mgo/lwm2m/internal/logging"
	"github.com/lwm2mgo/lwm2m/internal/protocol"
	"github.com/lwm2mgo/lwm2m/internal/registration"
	"github.com/lwm2mgo/lwm2m/internal/scheduler"
	"github.com/lwm2mgo/lwm2m/internal/transport"

	"github.com/cenkalti/backoff/v5"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.DefineFlags()
	ssid := flag.Uint("ssid", 1, "short server ID to register this server under")
	bootstrap := flag.Bool("bootstrap", false, "treat the configured server as the bootstrap server")
	preferDTLS := flag.Bool("dtls", false, "use coaps (DTLS) instead of coap (UDP) regardless of the server URI scheme")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return nil
	}

	logging.Setup()
	if lvl, err := logging.ParseLevel(cfg.LogLevel); err == nil {
		logging.SetLevel(lvl)
	}
	logging.PrintBanner(version, cfg.EndpointName)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	ep, err := endpoint.Parse(cfg.ServerURI)
	if err != nil {
		return fmt.Errorf("parse server URI: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// transport.Config{} leaves Dialer nil: -dtls will fail at connect
	// time until a real DTLS dialer is wired in, which is this binary's
	// job, not package transport's.
	proto := protocol.New(protocol.Config{
		EndpointName: cfg.EndpointName,
		LifetimeS:    cfg.LifetimeS,
		Binding:      cfg.Binding,
		PreferDTLS:   *preferDTLS || ep.Scheme == "coaps",
	}, ep, transport.Config{})

	servers := registration.NewServers()
	sched := scheduler.New()

	client := registration.NewClient(servers, sched, proto, proto, proto, proto, proto, retryBackoff)
	defer client.Close()

	server := registration.NewActiveServer(registration.ServerID(*ssid), *bootstrap)
	if err := client.RegisterServer(ctx, server); err != nil {
		return fmt.Errorf("register endpoint %q: %w", cfg.EndpointName, err)
	}
	slog.Info("registered", "endpoint", cfg.EndpointName, "ssid", *ssid, "server", cfg.ServerURI)

	if err := cfg.SaveState(&config.State{SSIDs: []uint16{uint16(*ssid)}}); err != nil {
		slog.Warn("save state failed", "error", err)
	}

	<-ctx.Done()
	slog.Info("shutting down, deregistering", "ssid", *ssid)

	deregisterCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.DeregisterServer(deregisterCtx, registration.ServerID(*ssid)); err != nil {
		slog.Warn("deregister failed", "error", err)
	}

	return cfg.ClearState()
}

// retryBackoff is the policy every scheduled Update/Re-Register job
// retries under: 1s initial, capped at 60s, doubling, with jitter so a
// fleet of clients reconnecting at once doesn't retry in lockstep.
func retryBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 60 * time.Second
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.2
	b.Reset()
	return b
}
