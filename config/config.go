/*
Package config loads the server configuration from TOML.

PURPOSE:
  One declarative file describes the HTTP server, the engine's tuning
  knobs, metrics exposure, and the center network. A missing file is not
  an error: the server runs on defaults with the demo center network,
  which keeps local development zero-setup.

EXAMPLE (config.toml):
  [server]
  port = 8080
  read_timeout_seconds = 15

  [engine]
  lookahead_days = 14
  walkin_buffer = 0.20     # 0.0 disables the walk-in hold-back
  overload_threshold = 0   # automatic redistribution disabled

  [metrics]
  enabled = true
  path = "/metrics"

  [[centers]]
  id = "ASK001"
  name = "ASK Delhi - Connaught Place"
  ...

SEE ALSO:
  - centers/toml.go: Validation of center definitions
  - cmd/server/main.go: Flag overrides
*/
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/warp/allocation-engine/centers"
)

// Config is the full server configuration.
type Config struct {
	Server  Server               `toml:"server"`
	Engine  Engine               `toml:"engine"`
	Metrics Metrics              `toml:"metrics"`
	Centers []centers.Definition `toml:"centers"`
}

type Server struct {
	Port                   int `toml:"port"`
	ReadTimeoutSeconds     int `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int `toml:"write_timeout_seconds"`
	IdleTimeoutSeconds     int `toml:"idle_timeout_seconds"`
	ShutdownTimeoutSeconds int `toml:"shutdown_timeout_seconds"`
}

type Engine struct {
	LookaheadDays int `toml:"lookahead_days"`

	// WalkinBuffer is the walk-in hold-back share. Unset means the engine
	// default (0.20); an explicit 0.0 disables the hold-back, which is why
	// this is a pointer rather than a bare float.
	WalkinBuffer *float64 `toml:"walkin_buffer"`

	OverloadThreshold     int `toml:"overload_threshold"`
	OverloadWindowSeconds int `toml:"overload_window_seconds"`
}

type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: Server{
			Port:                   8080,
			ReadTimeoutSeconds:     15,
			WriteTimeoutSeconds:    15,
			IdleTimeoutSeconds:     60,
			ShutdownTimeoutSeconds: 30,
		},
		Engine: Engine{
			LookaheadDays:         14,
			OverloadThreshold:     0,
			OverloadWindowSeconds: 60,
		},
		Metrics: Metrics{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads the TOML file at path, layered over Default(). A missing
// file returns the defaults; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
