package connection

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Properties of the reconnect backoff schedule.
func TestBackoffProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	newCfg := func(baseMS, capMS int) Config {
		cfg := DefaultConfig()
		cfg.BackoffBase = time.Duration(baseMS) * time.Millisecond
		cfg.BackoffCap = time.Duration(capMS) * time.Millisecond
		return cfg
	}

	properties.Property("delay never exceeds the cap", prop.ForAll(
		func(baseMS, extraMS, retry int) bool {
			cfg := newCfg(baseMS, baseMS+extraMS)
			return cfg.BackoffDelay(retry) <= cfg.BackoffCap
		},
		gen.IntRange(10, 2000),
		gen.IntRange(0, 60000),
		gen.IntRange(0, 500),
	))

	properties.Property("first delay is the base", prop.ForAll(
		func(baseMS, extraMS int) bool {
			cfg := newCfg(baseMS, baseMS+extraMS)
			return cfg.BackoffDelay(0) == cfg.BackoffBase
		},
		gen.IntRange(10, 2000),
		gen.IntRange(0, 60000),
	))

	properties.Property("delay is non-decreasing in the retry count", prop.ForAll(
		func(baseMS, extraMS, retry int) bool {
			cfg := newCfg(baseMS, baseMS+extraMS)
			return cfg.BackoffDelay(retry) <= cfg.BackoffDelay(retry+1)
		},
		gen.IntRange(10, 2000),
		gen.IntRange(0, 60000),
		gen.IntRange(0, 500),
	))

	properties.Property("delay doubles until it reaches the cap", prop.ForAll(
		func(baseMS, extraMS, retry int) bool {
			cfg := newCfg(baseMS, baseMS+extraMS)
			next := cfg.BackoffDelay(retry + 1)
			if next >= cfg.BackoffCap {
				return true
			}
			return next == 2*cfg.BackoffDelay(retry)
		},
		gen.IntRange(10, 2000),
		gen.IntRange(0, 60000),
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t)
}
