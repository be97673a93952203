package connection

import (
	"time"

	"github.com/dd0wney/nodewire/pkg/validation"
)

// Config holds connection manager configuration.
type Config struct {
	// Endpoint is the backend URL (ws:// or wss:// for the default
	// transport).
	Endpoint string

	// HeartbeatInterval is the spacing of the ping probe. Zero disables
	// the probe entirely; DefaultConfig carries the standard 25s.
	HeartbeatInterval time.Duration

	// BackoffBase and BackoffCap bound the reconnect delay:
	// min(base * 2^retry, cap).
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// MaxRetries caps consecutive reconnect attempts. Zero means
	// unbounded.
	MaxRetries int

	// AutoReconnect re-dials after a non-manual close.
	AutoReconnect bool

	// Transport timeouts.
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns the standard client configuration.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 25 * time.Second,
		BackoffBase:       750 * time.Millisecond,
		BackoffCap:        10 * time.Second,
		MaxRetries:        0,
		AutoReconnect:     true,
		ConnectTimeout:    10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Validate validates the connection configuration.
func (c *Config) Validate() error {
	v := validation.NewConfigValidator("ConnectionConfig")

	v.Required("Endpoint", c.Endpoint).
		Custom("Endpoint", func() error {
			if c.Endpoint == "" {
				return nil
			}
			return validation.ValidateEndpoint(c.Endpoint)
		})

	// Zero disables the heartbeat, so only negatives are rejected.
	v.NonNegativeDuration("HeartbeatInterval", c.HeartbeatInterval).
		NonNegative("MaxRetries", c.MaxRetries).
		MinDuration("BackoffBase", c.BackoffBase, 10*time.Millisecond).
		MinDuration("BackoffCap", c.BackoffCap, c.BackoffBase)

	return v.Validate()
}

// ApplyDefaults fills zero-valued mechanical fields. HeartbeatInterval is
// deliberately left alone: zero there means disabled, not unset.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	c.BackoffBase = validation.DefaultOrDuration(c.BackoffBase, defaults.BackoffBase)
	c.BackoffCap = validation.DefaultOrDuration(c.BackoffCap, defaults.BackoffCap)
	c.ConnectTimeout = validation.DefaultOrDuration(c.ConnectTimeout, defaults.ConnectTimeout)
	c.WriteTimeout = validation.DefaultOrDuration(c.WriteTimeout, defaults.WriteTimeout)
}

// BackoffDelay returns the reconnect delay for the given retry number:
// min(base * 2^retry, cap). Large retry counts saturate at the cap instead
// of overflowing.
func (c *Config) BackoffDelay(retry int) time.Duration {
	base := c.BackoffBase
	if base <= 0 {
		base = DefaultConfig().BackoffBase
	}
	cap := c.BackoffCap
	if cap <= 0 {
		cap = DefaultConfig().BackoffCap
	}

	if retry < 0 {
		retry = 0
	}
	// base doubles past any sane cap within ~40 steps; beyond that the
	// shift would overflow.
	if retry > 40 {
		return cap
	}
	delay := base << uint(retry)
	if delay <= 0 || delay > cap {
		return cap
	}
	return delay
}
