package hardware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/interpreter"
)

var (
	// ErrUnsupportedRequest is returned by a Device for a request it cannot answer.
	ErrUnsupportedRequest = errors.New("unsupported request")

	// ErrTickBudget is returned when Run gives up after Options.MaxTicks ticks.
	ErrTickBudget = errors.New("tick budget exhausted")
)

// Device is the hardware end of a run. It sees every command the sketch
// emits and answers request commands. Respond may block until ctx is done.
type Device interface {
	command.Sink
	Respond(ctx context.Context, req command.Request) (any, error)
}

// Options configures Run.
type Options struct {
	// RequestTimeout bounds how long Run waits for the device to answer one
	// request. Zero uses interpreter.DefaultRequestTimeout; negative waits
	// forever.
	RequestTimeout time.Duration

	// MaxTicks stops runaway programs. Zero means no limit.
	MaxTicks int

	// Sink receives every command after the device has seen it.
	Sink   command.Sink
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout == 0 {
		o.RequestTimeout = interpreter.DefaultRequestTimeout
	}
	if o.Sink == nil {
		o.Sink = command.Discard
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Result summarizes a run.
type Result struct {
	State     interpreter.State
	Stats     interpreter.Stats
	LastError *interpreter.RuntimeError
}

// TimeoutError reports a request the device did not answer in time.
type TimeoutError struct {
	ID      string
	Builtin string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %s (%s) not answered within %s", e.ID, e.Builtin, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// Run starts in and ticks it until it completes, fails or is stopped,
// answering each request through dev. The interpreter's command listener
// is replaced for the duration of the run.
//
// Run stops the interpreter and returns an error when ctx is cancelled, when
// a request cannot be answered, or when the tick budget runs out. Runtime
// errors inside the sketch are not Run errors; they are in the command
// stream and Result.LastError.
func Run(ctx context.Context, in *interpreter.Interpreter, dev Device, opts Options) (Result, error) {
	opts = opts.withDefaults()

	var last command.Request
	in.SetCommandListener(command.SinkFunc(func(c command.Command) {
		if r, ok := c.(command.Request); ok {
			last = r
		}
		dev.Emit(c)
		opts.Sink.Emit(c)
	}))

	if err := in.Start(); err != nil {
		return result(in), err
	}

	for ticks := 0; in.State().Active(); ticks++ {
		if err := ctx.Err(); err != nil {
			in.Stop()
			return result(in), err
		}
		if opts.MaxTicks > 0 && ticks >= opts.MaxTicks {
			in.Stop()
			return result(in), fmt.Errorf("%w after %d ticks", ErrTickBudget, opts.MaxTicks)
		}
		if in.State() == interpreter.StatePaused {
			in.Stop()
			return result(in), fmt.Errorf("interpreter paused outside a debugger")
		}

		if p, waiting := in.PendingRequest(); waiting {
			if err := answer(ctx, in, dev, p, last, opts); err != nil {
				in.Stop()
				return result(in), err
			}
		}
		in.Tick()
	}
	return result(in), nil
}

func answer(ctx context.Context, in *interpreter.Interpreter, dev Device, p interpreter.Pending, req command.Request, opts Options) error {
	if req == nil || req.RequestID() != p.ID {
		return fmt.Errorf("request %s was never emitted", p.ID)
	}

	waitCtx := ctx
	if opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, opts.RequestTimeout)
		defer cancel()
	}

	v, err := dev.Respond(waitCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return &TimeoutError{ID: p.ID, Builtin: p.Builtin, Timeout: opts.RequestTimeout}
		}
		return fmt.Errorf("answering %s (%s): %w", p.ID, p.Builtin, err)
	}
	opts.Logger.Debug("response", "id", p.ID, "builtin", p.Builtin, "value", v)
	if !in.DeliverResponse(p.ID, v) {
		return fmt.Errorf("response for %s rejected", p.ID)
	}
	return nil
}

func result(in *interpreter.Interpreter) Result {
	return Result{State: in.State(), Stats: in.Stats(), LastError: in.LastError()}
}
