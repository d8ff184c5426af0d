// Package model implements the engine's model root: an immutable Config
// value, the connection manager that owns one Connection per configured
// server and tracks the active buffer, and the FavouritesBridge that turns
// a saved favourite into a ready-to-dial (Server, Identity) pair.
package model

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/coldwire/irc/casefold"
)

// Config collects the engine's own tunables into one immutable value
// injected at startup, per translation of Design Note
// §9's "global state becomes an immutable configuration value." Nested
// struct groups and toml tags mirror presbrey-pkg's irc/config.Config.
type Config struct {
	Flood struct {
		BucketSize int `toml:"bucket_size"`
		ReleaseRate float64 `toml:"release_rate_per_sec"`
		MaxQueueSize int `toml:"max_queue_size"`
	} `toml:"flood"`

	DCC struct {
		PortRangeLow int `toml:"port_range_low"`
		PortRangeHigh int `toml:"port_range_high"`
		ProxyProtocol bool `toml:"proxy_protocol"`
	} `toml:"dcc"`

	Buffer struct {
		RingCapacity int `toml:"ring_capacity"`
	} `toml:"buffer"`

	Reconnect struct {
		BetweenRetryDelay time.Duration `toml:"between_retry_delay"`
		MaxAttemptsPerCycle int `toml:"max_attempts_per_cycle"`
	} `toml:"reconnect"`

	Casemapping string `toml:"casemapping"`
}

// DefaultConfig returns the engine's built-in tunable defaults, used when no
// config file is present and as the base Load merges a file's explicit
// settings onto.
func DefaultConfig() Config {
	var c Config
	c.Flood.BucketSize = 5
	c.Flood.ReleaseRate = 1
	c.Flood.MaxQueueSize = 50
	c.DCC.PortRangeLow = 1024
	c.DCC.PortRangeHigh = 5000
	c.DCC.ProxyProtocol = false
	c.Buffer.RingCapacity = 500
	c.Reconnect.BetweenRetryDelay = 15 * time.Second
	c.Reconnect.MaxAttemptsPerCycle = 3
	c.Casemapping = "rfc1459"
	return c
}

// LoadConfig reads a TOML file at path, starting from DefaultConfig so an
// omitted section keeps its default rather than zeroing out.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return c, fmt.Errorf("model: load config %s: %w", path, err)
	}
	return c, nil
}

// CasemappingDefault resolves Config.Casemapping to a casefold.Mapping,
// used as the connection's casemapping before any server ISUPPORT
// CASEMAPPING token is seen.
func (c Config) CasemappingDefault() casefold.Mapping {
	switch c.Casemapping {
	case "ascii":
		return casefold.ASCII
	case "strict-rfc1459":
		return casefold.RFC1459Strict
	default:
		return casefold.RFC1459
	}
}
