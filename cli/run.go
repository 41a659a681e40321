package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/opal-lang/sketchvm/core/astfmt"
	"github.com/opal-lang/sketchvm/internal/config"
	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/hardware"
	"github.com/opal-lang/sketchvm/runtime/interpreter"
)

// runFlags are the flags of run and watch.
type runFlags struct {
	format        string
	maxLoops      int
	maxIterations int
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", "text", "Output format: text, json or cbor")
	cmd.Flags().IntVar(&f.maxLoops, "max-loops", 0, "loop() invocations before stopping (negative for no limit)")
	cmd.Flags().IntVar(&f.maxIterations, "max-iterations", 0, "Iterations per statement loop (negative for no limit)")
}

// apply overrides cfg with the flags the user set.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("max-loops") {
		cfg.MaxLoops = f.maxLoops
	}
	if cmd.Flags().Changed("max-iterations") {
		cfg.MaxIterations = f.maxIterations
	}
}

func newRunCmd(g *globalFlags) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a compiled sketch against the simulated board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(g)
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)

			prog, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			_, err = runProgram(cmd.Context(), cmd.OutOrStdout(), prog, cfg, runSettings{
				format:   f.format,
				debug:    g.debug,
				useColor: ShouldUseColor(g.noColor),
			})
			return err
		},
	}
	f.register(cmd)
	return cmd
}

type runSettings struct {
	format   string
	debug    bool
	useColor bool
}

// runProgram runs prog to completion on a fresh simulator and writes the
// command stream to w.
func runProgram(ctx context.Context, w io.Writer, prog *astfmt.Program, cfg config.Config, rs runSettings) (hardware.Result, error) {
	board, err := cfg.SimulatedBoard()
	if err != nil {
		return hardware.Result{}, configError(err)
	}

	var (
		sink    command.Sink
		sinkErr func() error
	)
	switch command.Format(rs.format) {
	case "text":
		ts := &textSink{w: w, useColor: rs.useColor}
		sink, sinkErr = ts, ts.Err
	default:
		enc, err := command.NewEncoder(w, command.Format(rs.format))
		if err != nil {
			return hardware.Result{}, &CLIError{
				Type:    "input",
				Message: err.Error(),
				Hint:    "use --format text, json or cbor",
				Err:     err,
			}
		}
		sink, sinkErr = enc, enc.Err
	}

	logger := newLogger(rs.debug)
	in := interpreter.New(prog.Root, cfg.Interpreter(logger, debugLevel(rs.debug)))
	opts := cfg.Options(logger)
	opts.Sink = sink

	res, err := hardware.Run(ctx, in, hardware.NewSimulator(board), opts)
	if err != nil {
		return res, runError(err)
	}
	if err := sinkErr(); err != nil {
		return res, fmt.Errorf("writing output: %w", err)
	}

	if rs.format == "text" {
		formatResult(w, res, rs.useColor)
	}
	if res.State == interpreter.StateError {
		e := &CLIError{
			Type:    "runtime",
			Message: "sketch halted on a runtime error",
			Hint:    "unset halt_on_error to keep running past errors",
		}
		if res.LastError != nil {
			e.Details, e.Err = res.LastError.Error(), res.LastError
		}
		return res, e
	}
	return res, nil
}
