package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/sketchvm/internal/config"
	"github.com/opal-lang/sketchvm/runtime/interpreter"
	"github.com/opal-lang/sketchvm/runtime/value"
)

func newTestSession(t *testing.T, cfg config.Config) (*debugSession, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	s, err := newDebugSession(&out, decodeSketch(t, buttonSketch()), cfg, false, false)
	require.NoError(t, err)
	return s, &out
}

func TestDebugSessionAnswerFromSimulator(t *testing.T) {
	cfg, err := config.Parse([]byte("board:\n  digital:\n    2: 1\n"))
	require.NoError(t, err)
	s, out := newTestSession(t, cfg)

	// Given: a run suspended on digitalRead
	s.exec("start")
	s.exec("tick")
	require.Equal(t, interpreter.StateWaitingForResponse, s.in.State())

	out.Reset()
	s.exec("pending")
	assert.Contains(t, out.String(), "req-1 digitalRead")

	// When: the simulator answers and the unit finishes
	s.exec("answer")
	s.exec("tick")

	// Then: setup saw the configured pin level
	assert.Equal(t, value.Int(1), s.in.Globals()["button"])
	out.Reset()
	s.exec("globals")
	assert.Equal(t, "button = 1\n", out.String())
}

func TestDebugSessionRespondByHand(t *testing.T) {
	s, out := newTestSession(t, config.Default())
	s.exec("start")
	s.exec("tick")

	out.Reset()
	s.exec("respond req-9 1")
	assert.Contains(t, out.String(), "no pending request with id req-9")

	// Any nonzero reading is a HIGH level.
	s.exec("respond req-1 7")
	s.exec("tick")
	assert.Equal(t, value.Int(1), s.in.Globals()["button"])
}

func TestDebugSessionRespondLow(t *testing.T) {
	cfg, err := config.Parse([]byte("board:\n  digital:\n    2: 1\n"))
	require.NoError(t, err)
	s, _ := newTestSession(t, cfg)
	s.exec("start")
	s.exec("tick")

	s.exec("respond req-1 0")
	s.exec("tick")
	assert.Equal(t, value.Int(0), s.in.Globals()["button"])
}

func TestDebugSessionControl(t *testing.T) {
	s, out := newTestSession(t, config.Default())

	s.exec("pause")
	assert.Contains(t, out.String(), "cannot pause while idle")

	s.exec("start")
	s.exec("pause")
	assert.Equal(t, interpreter.StatePaused, s.in.State())
	s.exec("resume")
	assert.Equal(t, interpreter.StateRunning, s.in.State())

	out.Reset()
	s.exec("state")
	assert.Contains(t, out.String(), "running ticks=0")

	s.exec("stop")
	assert.Equal(t, interpreter.StateIdle, s.in.State())
	assert.Contains(t, out.String(), "PROGRAM_END")

	out.Reset()
	s.exec("frobnicate")
	assert.Contains(t, out.String(), "unknown command \"frobnicate\"")

	out.Reset()
	s.exec("tick zero")
	assert.Contains(t, out.String(), "tick count must be a positive number")

	assert.False(t, s.exec("   "))
	assert.True(t, s.exec("quit"))
}

func TestDebugSessionTickStopsAtRequest(t *testing.T) {
	s, _ := newTestSession(t, config.Default())
	s.exec("start")
	s.exec("tick 50")

	p, ok := s.in.PendingRequest()
	require.True(t, ok)
	assert.Equal(t, "digitalRead", p.Builtin)
	assert.Equal(t, 1, s.in.Stats().Ticks)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"42", int32(42)},
		{"-1", int32(-1)},
		{"2.5", 2.5},
		{"true", true},
		{`"hi there"`, "hi there"},
		{"hello", "hello"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseResponse(tt.raw), tt.raw)
	}
}
