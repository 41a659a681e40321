package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/sketchvm/internal/config"
	"github.com/opal-lang/sketchvm/runtime/interpreter"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, interpreter.DefaultMaxLoopCycles, cfg.MaxLoops)
	assert.Equal(t, interpreter.DefaultMaxLoopIterations, cfg.MaxIterations)
	assert.Equal(t, interpreter.DefaultMaxCallDepth, cfg.MaxCallDepth)
	assert.Equal(t, config.Duration(interpreter.DefaultRequestTimeout), cfg.RequestTimeout)
	assert.Equal(t, int64(1), cfg.Board.ClockStep)
}

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(`
max_loops: 10
max_iterations: -1
halt_on_error: true
trace_variables: true
request_timeout: 250ms
board:
  digital:
    2: 1
  analog:
    A0: 512
    15: 100
  clock_start: 1000
  serial_input: "42\n"
  library:
    Servo.read: 90
`))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxLoops)
	assert.Equal(t, -1, cfg.MaxIterations)
	assert.Equal(t, interpreter.DefaultMaxCallDepth, cfg.MaxCallDepth)
	assert.True(t, cfg.HaltOnError)
	assert.Equal(t, config.Duration(250*time.Millisecond), cfg.RequestTimeout)

	board, err := cfg.SimulatedBoard()
	require.NoError(t, err)
	assert.Equal(t, map[int32]int32{2: 1}, board.Digital)
	assert.Equal(t, map[int32]int32{14: 512, 15: 100}, board.Analog)
	assert.Equal(t, int64(1000), board.ClockStart)
	assert.Equal(t, int64(1), board.ClockStep)
	assert.Equal(t, "42\n", board.SerialInput)
	assert.Equal(t, 90, board.Library["Servo.read"])

	ic := cfg.Interpreter(nil, interpreter.DebugPaths)
	assert.Equal(t, 10, ic.MaxLoopCycles)
	assert.Equal(t, -1, ic.MaxLoopIterations)
	assert.True(t, ic.TraceVariables)
	assert.Equal(t, 250*time.Millisecond, ic.RequestTimeout)
	assert.Equal(t, interpreter.DebugPaths, ic.Debug)

	opts := cfg.Options(nil)
	assert.Equal(t, 250*time.Millisecond, opts.RequestTimeout)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"wrong type", "max_loops: many", "/max_loops"},
		{"unknown key", "colour: red", "colour"},
		{"below minimum", "max_call_depth: -5", "/max_call_depth"},
		{"bad pin name", "board:\n  digital:\n    B7: 1\n", "/board/digital"},
		{"pin value range", "board:\n  analog:\n    A1: 4096\n", "/board/analog/A1"},
		{"bad duration", "request_timeout: soon", "/request_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.doc))
			require.Error(t, err)

			var ve *config.ValidationError
			require.True(t, errors.As(err, &ve), "got %T: %v", err, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadAppliesEnvAfterFile(t *testing.T) {
	// Given: a config file and environment overrides
	path := filepath.Join(t.TempDir(), "sketchvm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_loops: 5\nmax_call_depth: 20\n"), 0o600))
	t.Setenv(config.EnvMaxLoops, "7")
	t.Setenv(config.EnvHaltOnError, "true")
	t.Setenv(config.EnvRequestTimeout, "2s")

	// When: loading
	cfg, err := config.Load(path)

	// Then: the environment wins over the file, the file over the defaults
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxLoops)
	assert.Equal(t, 20, cfg.MaxCallDepth)
	assert.True(t, cfg.HaltOnError)
	assert.Equal(t, config.Duration(2*time.Second), cfg.RequestTimeout)
}

func TestApplyEnvSeesLaterChanges(t *testing.T) {
	// Given: a first load that reads the environment
	t.Setenv(config.EnvMaxLoops, "4")
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, 4, cfg.MaxLoops)

	// When: the variable changes in the same process
	t.Setenv(config.EnvMaxLoops, "9")
	cfg, err = config.Load("")

	// Then: the new value is used
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.MaxLoops)
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	t.Setenv(config.EnvRequestTimeout, "whenever")
	_, err = config.Load("")
	assert.ErrorContains(t, err, config.EnvRequestTimeout)
}

func TestParsePin(t *testing.T) {
	tests := []struct {
		name    string
		want    int32
		wantErr bool
	}{
		{"13", 13, false},
		{"0", 0, false},
		{"A0", 14, false},
		{"A5", 19, false},
		{"A6", 0, true},
		{"-1", 0, true},
		{"D2", 0, true},
	}
	for _, tt := range tests {
		got, err := config.ParsePin(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}
