// Package config defines the client's runtime configuration, sourced
// from command-line flags, and its small persisted state file.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lwm2mgo/lwm2m/internal/binding"
)

// Config holds the client's runtime configuration.
type Config struct {
	EndpointName string // LwM2M endpoint client name (the "ep" query parameter)
	ServerURI    string // e.g. "coap://example.com:5683" or "coaps://[::1]:5684"
	LifetimeS    int64  // registration lifetime in seconds
	Binding      string // binding mode string, e.g. "U", "UQ"
	LogLevel     string
	DataDir      string // directory for persistent state
}

// State holds the client's persisted state: the SSIDs it was last
// registered with, so a restart can re-activate them without the caller
// re-supplying server details out of band.
type State struct {
	SSIDs []uint16 `json:"ssids"`
}

// DefineFlags registers command-line flags for client configuration.
// Call flag.Parse() separately after defining all flags.
func DefineFlags() *Config {
	c := &Config{}
	flag.StringVar(&c.EndpointName, "endpoint", "", "LwM2M endpoint client name (required)")
	flag.StringVar(&c.ServerURI, "server", "coap://localhost:5683", "LwM2M server URI")
	flag.Int64Var(&c.LifetimeS, "lifetime", 86400, "registration lifetime in seconds")
	flag.StringVar(&c.Binding, "binding", "U", "binding mode (U, UQ, S, SQ, US, UQS)")
	flag.StringVar(&c.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&c.DataDir, "data-dir", defaultDataDir(), "data directory")
	return c
}

// Validate checks the configuration and ensures required directories
// exist.
func (c *Config) Validate() error {
	if c.EndpointName == "" {
		return fmt.Errorf("endpoint name is required")
	}
	if c.ServerURI == "" {
		return fmt.Errorf("server URI is required")
	}
	if c.LifetimeS <= 0 {
		return fmt.Errorf("lifetime must be positive, got %d", c.LifetimeS)
	}
	if binding.FromStr(c.Binding) == binding.None {
		return fmt.Errorf("unrecognized binding mode %q", c.Binding)
	}

	if err := os.MkdirAll(c.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "lwm2mclient")
	}
	return filepath.Join(home, ".config", "lwm2mclient")
}

// StatePath returns the path to the state file.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state.json")
}

// LoadState loads persisted state from disk. Returns nil if no state
// file exists.
func (c *Config) LoadState() (*State, error) {
	data, err := os.ReadFile(c.StatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveState persists state to disk.
func (c *Config) SaveState(s *State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.StatePath(), data, 0o600)
}

// ClearState removes the persisted state file.
func (c *Config) ClearState() error {
	return os.Remove(c.StatePath())
}
