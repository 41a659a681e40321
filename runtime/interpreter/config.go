package interpreter

import (
	"log/slog"
	"time"

	"github.com/opal-lang/sketchvm/runtime/builtins"
)

// Config configures an interpreter. Zero fields take the defaults below; a
// negative limit disables that limit.
type Config struct {
	MaxLoopIterations int // per statement loop, default 1000
	MaxLoopCycles     int // loop() invocations, default 3
	MaxCallDepth      int // nested user calls, default 100
	MaxRangeItems     int // elements a range-for visits, default 1000

	// RequestTimeout is advisory. The interpreter only tells waiting from
	// not waiting; the driver decides what to do when a response is late.
	RequestTimeout time.Duration

	HaltOnError    bool // a runtime error moves to StateError after the current unit
	TraceVariables bool // emit VAR_SET on every declaration and assignment

	Debug    DebugLevel
	Logger   *slog.Logger
	Registry *builtins.Registry
	Seed     int64 // random() seed before randomSeed is called
}

// DebugLevel controls debug logging (development only).
type DebugLevel int

const (
	DebugOff      DebugLevel = iota // No debug logging (default)
	DebugPaths                      // State transitions, requests, responses
	DebugDetailed                   // Every statement and resume point
)

const (
	DefaultMaxLoopIterations = 1000
	DefaultMaxLoopCycles     = 3
	DefaultMaxCallDepth      = 100
	DefaultMaxRangeItems     = 1000
	DefaultRequestTimeout    = 5 * time.Second
)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.MaxLoopIterations == 0 {
		c.MaxLoopIterations = DefaultMaxLoopIterations
	}
	if c.MaxLoopCycles == 0 {
		c.MaxLoopCycles = DefaultMaxLoopCycles
	}
	if c.MaxCallDepth == 0 {
		c.MaxCallDepth = DefaultMaxCallDepth
	}
	if c.MaxRangeItems == 0 {
		c.MaxRangeItems = DefaultMaxRangeItems
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Registry == nil {
		c.Registry = builtins.Default()
	}
	return c
}

func limitReached(n, limit int) bool {
	return limit > 0 && n >= limit
}
