package server

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config holds the server's tunables. Durations are expressed in seconds
// in the HCL file and converted after decode.
type Config struct {
	Host       string `hcl:"host,optional"`
	Port       int    `hcl:"port,optional"`
	CORSOrigin string `hcl:"cors_origin,optional"`
	LogLevel   string `hcl:"log_level,optional"`

	MaxPlayersPerRoom int `hcl:"max_players_per_room,optional"`

	HeartbeatSeconds         int `hcl:"heartbeat_seconds,optional"`
	DisconnectTimeoutSeconds int `hcl:"disconnect_timeout_seconds,optional"`
	ReconnectWindowSeconds   int `hcl:"reconnect_window_seconds,optional"`
	RoomIdleTimeoutSeconds   int `hcl:"room_idle_timeout_seconds,optional"`
	EndGameDelaySeconds      int `hcl:"end_game_delay_seconds,optional"`
	ActionTimeoutSeconds     int `hcl:"action_timeout_seconds,optional"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:                     "0.0.0.0",
		Port:                     8080,
		CORSOrigin:               "*",
		LogLevel:                 "info",
		MaxPlayersPerRoom:        8,
		HeartbeatSeconds:         30,
		DisconnectTimeoutSeconds: 90,
		ReconnectWindowSeconds:   300,
		RoomIdleTimeoutSeconds:   1800,
		EndGameDelaySeconds:      5,
		ActionTimeoutSeconds:     30,
	}
}

// LoadConfig reads an HCL config file and fills unset fields with
// defaults. A missing path yields the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing config: %w", diags)
		}
		if diags := gohcl.DecodeBody(file.Body, nil, cfg); diags.HasErrors() {
			return nil, fmt.Errorf("decoding config: %w", diags)
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Host == "" {
		c.Host = def.Host
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.CORSOrigin == "" {
		c.CORSOrigin = def.CORSOrigin
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.MaxPlayersPerRoom == 0 {
		c.MaxPlayersPerRoom = def.MaxPlayersPerRoom
	}
	if c.HeartbeatSeconds == 0 {
		c.HeartbeatSeconds = def.HeartbeatSeconds
	}
	if c.DisconnectTimeoutSeconds == 0 {
		c.DisconnectTimeoutSeconds = def.DisconnectTimeoutSeconds
	}
	if c.ReconnectWindowSeconds == 0 {
		c.ReconnectWindowSeconds = def.ReconnectWindowSeconds
	}
	if c.RoomIdleTimeoutSeconds == 0 {
		c.RoomIdleTimeoutSeconds = def.RoomIdleTimeoutSeconds
	}
	if c.EndGameDelaySeconds == 0 {
		c.EndGameDelaySeconds = def.EndGameDelaySeconds
	}
	if c.ActionTimeoutSeconds == 0 {
		c.ActionTimeoutSeconds = def.ActionTimeoutSeconds
	}
}

// applyEnv lets deploy environments override the file without editing it.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		c.CORSOrigin = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HeartbeatInterval is the client liveness cadence.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

// DisconnectTimeout is how long a silent session stays connected.
func (c *Config) DisconnectTimeout() time.Duration {
	return time.Duration(c.DisconnectTimeoutSeconds) * time.Second
}

// ReconnectWindow is how long a disconnected mid-game seat is held.
func (c *Config) ReconnectWindow() time.Duration {
	return time.Duration(c.ReconnectWindowSeconds) * time.Second
}

// RoomIdleTimeout is how long an inactive room survives.
func (c *Config) RoomIdleTimeout() time.Duration {
	return time.Duration(c.RoomIdleTimeoutSeconds) * time.Second
}

// EndGameDelay is the pause between game over and the room resetting.
func (c *Config) EndGameDelay() time.Duration {
	return time.Duration(c.EndGameDelaySeconds) * time.Second
}

// ActionTimeout is the inactivity window before a seat flips to auto-play.
func (c *Config) ActionTimeout() time.Duration {
	return time.Duration(c.ActionTimeoutSeconds) * time.Second
}
