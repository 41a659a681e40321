package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/opal-lang/sketchvm/core/astfmt"
	"github.com/opal-lang/sketchvm/internal/config"
	"github.com/opal-lang/sketchvm/runtime/interpreter"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	debug      bool
	noColor    bool
}

func main() {
	var g globalFlags
	rootCmd := newRootCmd(&g)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		FormatError(os.Stderr, err, ShouldUseColor(g.noColor))
		os.Exit(1)
	}
}

func newRootCmd(g *globalFlags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sketchvm [command]",
		Short:         "Run compiled Arduino sketches against a simulated board",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newRunCmd(g), newDumpCmd(g), newWatchCmd(g), newDebugCmd(g))
	return rootCmd
}

// newLogger returns the debug logger. Time and level are dropped so the
// output stays readable next to the command stream.
func newLogger(debug bool) *slog.Logger {
	if !debug {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func debugLevel(debug bool) interpreter.DebugLevel {
	if debug {
		return interpreter.DebugPaths
	}
	return interpreter.DebugOff
}

// loadSettings reads the config file and environment.
func loadSettings(g *globalFlags) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return cfg, configError(err)
	}
	return cfg, nil
}

// loadProgram decodes the buffer at path. "-" reads stdin.
func loadProgram(path string) (*astfmt.Program, error) {
	reader, closeFunc, err := getInputReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeFunc() }()

	prog, err := astfmt.DecodeReader(reader)
	if err != nil {
		return nil, decodeError(path, err)
	}
	return prog, nil
}

// getInputReader handles the 2 modes of input:
// 1. Explicit stdin with -
// 2. File input
func getInputReader(file string) (io.Reader, func() error, error) {
	if file == "-" {
		if !hasPipedInput() {
			return nil, nil, &CLIError{
				Type:    "input",
				Message: "no input on stdin",
				Hint:    "pipe a compiled sketch, e.g. sketchvm run - < blink.ast",
			}
		}
		return os.Stdin, func() error { return nil }, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening file %s: %w", file, err)
	}
	return f, f.Close, nil
}

// hasPipedInput detects if there's data piped to stdin
func hasPipedInput() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}

	// Pipes may not report size correctly, so only the mode is checked.
	return (stat.Mode() & os.ModeCharDevice) == 0
}
