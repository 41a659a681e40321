package hardware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/sketchvm/core/ast"
	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/hardware"
	"github.com/opal-lang/sketchvm/runtime/interpreter"
	"github.com/opal-lang/sketchvm/runtime/value"
)

func blinkSketch() *ast.Node {
	serialPrintln := func(x *ast.Node) *ast.Node { return ast.Expr(ast.MethodCall("Serial", "println", x)) }
	return ast.Program(
		ast.Var("int", "button", ast.Num(0)),
		ast.Var("int", "level", ast.Num(0)),
		ast.Var("unsigned long", "started", ast.Num(0)),
		ast.Func("void", "setup", nil,
			ast.Expr(ast.Call("pinMode", ast.Num(2), ast.Const("INPUT_PULLUP"))),
			ast.Expr(ast.Call("pinMode", ast.Num(13), ast.Const("OUTPUT"))),
			ast.Set("button", ast.Call("digitalRead", ast.Num(2))),
			ast.Set("started", ast.Call("millis")),
			serialPrintln(ast.Ident("button")),
		),
		ast.Func("void", "loop", nil,
			ast.Expr(ast.Call("digitalWrite", ast.Num(13), ast.Un("!", ast.Ident("level")))),
			ast.Set("level", ast.Call("digitalRead", ast.Num(13))),
			ast.Expr(ast.Call("delay", ast.Num(100))),
		),
	)
}

func TestRunCompletes(t *testing.T) {
	in := interpreter.New(blinkSketch(), interpreter.Config{MaxLoopCycles: 3})
	sim := hardware.NewSimulator(hardware.Board{ClockStart: 42})
	rec := &command.Recorder{}

	res, err := hardware.Run(context.Background(), in, sim, hardware.Options{Sink: rec})
	require.NoError(t, err)

	assert.Equal(t, interpreter.StateComplete, res.State)
	assert.Equal(t, 3, res.Stats.LoopCycles)
	assert.Equal(t, res.Stats.Requests, res.Stats.Responses)
	assert.Nil(t, res.LastError)

	globals := in.Globals()
	assert.Equal(t, value.Int(1), globals["button"])
	assert.Equal(t, value.Int(42), globals["started"])
	assert.Equal(t, value.Int(1), globals["level"])
	assert.Equal(t, "1\r\n", sim.Output("Serial"))
	assert.Equal(t, int64(42+300), sim.Millis())

	end := rec.Last().(command.ProgramEnd)
	assert.Equal(t, "loop limit reached", end.Reason)
}

type silentDevice struct{}

func (silentDevice) Emit(command.Command) {}

func (silentDevice) Respond(ctx context.Context, _ command.Request) (any, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunRequestTimeout(t *testing.T) {
	// Given: a device that never answers
	in := interpreter.New(blinkSketch(), interpreter.Config{})

	// When: the sketch reads a pin
	start := time.Now()
	_, err := hardware.Run(context.Background(), in, silentDevice{}, hardware.Options{RequestTimeout: 20 * time.Millisecond})

	// Then: Run gives up after the deadline and stops the interpreter
	var timeout *hardware.TimeoutError
	require.True(t, errors.As(err, &timeout), "got %v", err)
	assert.Equal(t, "digitalRead", timeout.Builtin)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, interpreter.StateIdle, in.State())
	assert.False(t, in.IsWaitingForResponse())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := interpreter.New(blinkSketch(), interpreter.Config{})
	_, err := hardware.Run(ctx, in, hardware.NewSimulator(hardware.Board{}), hardware.Options{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, interpreter.StateIdle, in.State())
}

func TestRunTickBudget(t *testing.T) {
	in := interpreter.New(blinkSketch(), interpreter.Config{MaxLoopCycles: -1})
	res, err := hardware.Run(context.Background(), in, hardware.NewSimulator(hardware.Board{}), hardware.Options{MaxTicks: 10})

	assert.ErrorIs(t, err, hardware.ErrTickBudget)
	assert.Equal(t, interpreter.StateIdle, res.State)
}

type refusingDevice struct{ silentDevice }

func (refusingDevice) Respond(context.Context, command.Request) (any, error) {
	return nil, hardware.ErrUnsupportedRequest
}

func TestRunUnsupportedRequest(t *testing.T) {
	in := interpreter.New(blinkSketch(), interpreter.Config{})
	_, err := hardware.Run(context.Background(), in, refusingDevice{}, hardware.Options{})

	assert.ErrorIs(t, err, hardware.ErrUnsupportedRequest)
	assert.Contains(t, err.Error(), "digitalRead")
}

func TestRunRuntimeErrorsAreNotRunErrors(t *testing.T) {
	prog := ast.Program(ast.Func("void", "setup", nil, ast.Expr(ast.Ident("nope"))))
	in := interpreter.New(prog, interpreter.Config{})

	res, err := hardware.Run(context.Background(), in, hardware.NewSimulator(hardware.Board{}), hardware.Options{})
	require.NoError(t, err)

	assert.Equal(t, interpreter.StateComplete, res.State)
	require.NotNil(t, res.LastError)
	assert.Equal(t, interpreter.ErrUndefinedVariable, res.LastError.Kind)
}
