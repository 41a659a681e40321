// Package config loads sketchvm settings: defaults, then a YAML file
// validated against an embedded JSON schema, then SKETCHVM_* environment
// variables. Command-line flags are applied by the caller last.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"github.com/opal-lang/sketchvm/runtime/builtins"
	"github.com/opal-lang/sketchvm/runtime/hardware"
	"github.com/opal-lang/sketchvm/runtime/interpreter"
)

// Environment variables read by ApplyEnv.
const (
	EnvMaxLoops       = "SKETCHVM_MAX_LOOPS"
	EnvMaxIterations  = "SKETCHVM_MAX_ITERATIONS"
	EnvMaxCallDepth   = "SKETCHVM_MAX_CALL_DEPTH"
	EnvHaltOnError    = "SKETCHVM_HALT_ON_ERROR"
	EnvRequestTimeout = "SKETCHVM_REQUEST_TIMEOUT"
)

// Config holds every setting of a run.
type Config struct {
	MaxLoops       int      `yaml:"max_loops"`
	MaxIterations  int      `yaml:"max_iterations"`
	MaxCallDepth   int      `yaml:"max_call_depth"`
	MaxRangeItems  int      `yaml:"max_range_items"`
	MaxTicks       int      `yaml:"max_ticks"`
	HaltOnError    bool     `yaml:"halt_on_error"`
	TraceVariables bool     `yaml:"trace_variables"`
	RequestTimeout Duration `yaml:"request_timeout"`
	Seed           int64    `yaml:"seed"`
	Board          Board    `yaml:"board"`
}

// Board is the initial state of the simulated board. Pins are keyed by
// number or by analog name ("A0".."A5").
type Board struct {
	Digital     map[string]int32 `yaml:"digital"`
	Analog      map[string]int32 `yaml:"analog"`
	ClockStart  int64            `yaml:"clock_start"`
	ClockStep   int64            `yaml:"clock_step"`
	SerialInput string           `yaml:"serial_input"`
	Library     map[string]any   `yaml:"library"`
}

// Duration is a time.Duration written as "250ms" or "5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		MaxLoops:       interpreter.DefaultMaxLoopCycles,
		MaxIterations:  interpreter.DefaultMaxLoopIterations,
		MaxCallDepth:   interpreter.DefaultMaxCallDepth,
		MaxRangeItems:  interpreter.DefaultMaxRangeItems,
		RequestTimeout: Duration(interpreter.DefaultRequestTimeout),
		Seed:           1,
		Board:          Board{ClockStep: 1},
	}
}

// Load returns the defaults overlaid with the file at path (skipped when
// path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := cfg.merge(data); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse validates a YAML document and overlays it on the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	err := cfg.merge(data)
	return cfg, err
}

func (c *Config) merge(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := Validate(data); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from SKETCHVM_* environment variables. The
// env package caches what it has read, so the cache is refreshed first.
func (c *Config) ApplyEnv() error {
	env.Load()
	c.MaxLoops = env.Int(EnvMaxLoops, c.MaxLoops)
	c.MaxIterations = env.Int(EnvMaxIterations, c.MaxIterations)
	c.MaxCallDepth = env.Int(EnvMaxCallDepth, c.MaxCallDepth)
	if env.Has(EnvHaltOnError) {
		c.HaltOnError = env.Bool(EnvHaltOnError)
	}
	if s := env.Str(EnvRequestTimeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRequestTimeout, err)
		}
		c.RequestTimeout = Duration(d)
	}
	return nil
}

// Interpreter converts the settings to an interpreter configuration.
func (c Config) Interpreter(logger *slog.Logger, debug interpreter.DebugLevel) interpreter.Config {
	return interpreter.Config{
		MaxLoopIterations: c.MaxIterations,
		MaxLoopCycles:     c.MaxLoops,
		MaxCallDepth:      c.MaxCallDepth,
		MaxRangeItems:     c.MaxRangeItems,
		RequestTimeout:    time.Duration(c.RequestTimeout),
		HaltOnError:       c.HaltOnError,
		TraceVariables:    c.TraceVariables,
		Debug:             debug,
		Logger:            logger,
		Seed:              c.Seed,
	}
}

// Options converts the settings to run options.
func (c Config) Options(logger *slog.Logger) hardware.Options {
	return hardware.Options{
		RequestTimeout: time.Duration(c.RequestTimeout),
		MaxTicks:       c.MaxTicks,
		Logger:         logger,
	}
}

// SimulatedBoard converts the board section for hardware.NewSimulator.
func (c Config) SimulatedBoard() (hardware.Board, error) {
	digital, err := pinMap(c.Board.Digital)
	if err != nil {
		return hardware.Board{}, fmt.Errorf("board.digital: %w", err)
	}
	analog, err := pinMap(c.Board.Analog)
	if err != nil {
		return hardware.Board{}, fmt.Errorf("board.analog: %w", err)
	}
	return hardware.Board{
		Digital:     digital,
		Analog:      analog,
		ClockStart:  c.Board.ClockStart,
		ClockStep:   c.Board.ClockStep,
		SerialInput: c.Board.SerialInput,
		Library:     c.Board.Library,
	}, nil
}

func pinMap(in map[string]int32) (map[int32]int32, error) {
	out := make(map[int32]int32, len(in))
	for name, v := range in {
		pin, err := ParsePin(name)
		if err != nil {
			return nil, err
		}
		out[pin] = v
	}
	return out, nil
}

// ParsePin converts a pin name ("13", "A0") to its number.
func ParsePin(name string) (int32, error) {
	if rest, ok := strings.CutPrefix(name, "A"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 || n > 5 {
			return 0, fmt.Errorf("invalid analog pin %q", name)
		}
		return int32(builtins.A0 + n), nil
	}
	n, err := strconv.ParseInt(name, 10, 32)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid pin %q", name)
	}
	return int32(n), nil
}

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		const url = "sketchvm://config.json"
		if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile(url)
	})
	return schema, schemaErr
}

// ValidationError reports a config document that does not match the schema.
type ValidationError struct {
	Cause error
}

func (e *ValidationError) Error() string {
	var ve *jsonschema.ValidationError
	if errors.As(e.Cause, &ve) {
		var parts []string
		for _, c := range leaves(ve) {
			loc := c.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			parts = append(parts, fmt.Sprintf("%s: %s", loc, c.Message))
		}
		return "invalid config: " + strings.Join(parts, "; ")
	}
	return "invalid config: " + e.Cause.Error()
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}

// Validate checks a YAML document against the config schema.
func Validate(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	// The validator expects JSON data model values.
	raw, err := json.Marshal(normalize(doc))
	if err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	var inst any
	if err := json.Unmarshal(raw, &inst); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	if err := s.Validate(inst); err != nil {
		return &ValidationError{Cause: err}
	}
	return nil
}

// normalize turns YAML mappings with non-string keys (pin numbers) into
// string-keyed maps.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, x := range t {
			t[k] = normalize(x)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[fmt.Sprint(k)] = normalize(x)
		}
		return out
	case []any:
		for i, x := range t {
			t[i] = normalize(x)
		}
		return t
	}
	return v
}
