package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/hardware"
	"github.com/opal-lang/sketchvm/runtime/interpreter"
)

func TestFormatCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  command.Command
		want string
	}{
		{"no fields", command.SetupStart{}, "SETUP_START"},
		{"ints", command.DigitalWrite{Pin: 13, Value: 1}, "DIGITAL_WRITE pin=13 value=1"},
		{"strings quoted", command.SerialPrintln{Port: "Serial", Data: "hi"}, `SERIAL_PRINTLN data="hi" port="Serial"`},
		{"omitempty", command.ProgramEnd{Message: "done"}, `PROGRAM_END message="done"`},
		{"args", command.LibraryMethodCall{Library: "Servo", Object: "arm", Method: "write", Args: []any{int32(90)}},
			`LIBRARY_METHOD_CALL args=[90] library="Servo" method="write" object="arm"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCommand(tt.cmd, false))
		})
	}
}

func TestFormatCommand_Color(t *testing.T) {
	got := FormatCommand(command.Error{Kind: "DivisionByZero", Message: "x / 0"}, true)
	assert.Equal(t, ColorRed+"ERROR"+ColorReset+` errorType="DivisionByZero" message="x / 0"`, got)

	got = FormatCommand(command.MillisRequest{ID: "req-1"}, true)
	assert.Equal(t, ColorBlue+"MILLIS_REQUEST"+ColorReset+` requestId="req-1"`, got)
}

func TestFormatResult(t *testing.T) {
	var buf bytes.Buffer
	formatResult(&buf, hardware.Result{
		State:     interpreter.StateComplete,
		Stats:     interpreter.Stats{Ticks: 4, Statements: 9, LoopCycles: 3, Requests: 1, Errors: 1},
		LastError: &interpreter.RuntimeError{Kind: interpreter.ErrUndefinedVariable, Message: "nope"},
	}, false)

	assert.Equal(t, "result: complete ticks=4 statements=9 loops=3 requests=1 errors=1\n"+
		"last error: UndefinedVariable: nope\n", buf.String())
}

func TestFormatError(t *testing.T) {
	var buf bytes.Buffer
	FormatError(&buf, &CLIError{Type: "decode", Message: "cannot decode x.ast", Details: "bad magic", Hint: "recompile"}, false)
	assert.Equal(t, "Error: cannot decode x.ast\n  bad magic\nHint: recompile\n", buf.String())

	buf.Reset()
	FormatError(&buf, errors.New("boom"), false)
	assert.Equal(t, "Error: boom\n", buf.String())

	buf.Reset()
	FormatError(&buf, nil, false)
	assert.Empty(t, buf.String())
}

func TestRunErrorHints(t *testing.T) {
	err := runError(&hardware.TimeoutError{ID: "req-1", Builtin: "millis"})
	var cliErr *CLIError
	assert.True(t, errors.As(err, &cliErr))
	assert.Contains(t, cliErr.Hint, "request_timeout")

	err = runError(hardware.ErrTickBudget)
	assert.True(t, errors.As(err, &cliErr))
	assert.Contains(t, cliErr.Hint, "max_ticks")
	assert.ErrorIs(t, err, hardware.ErrTickBudget)
}

func TestShouldUseColor(t *testing.T) {
	assert.False(t, ShouldUseColor(true))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, ShouldUseColor(false))
}
