package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opal-lang/sketchvm/core/astfmt"
	"github.com/opal-lang/sketchvm/internal/config"
	"github.com/opal-lang/sketchvm/runtime/hardware"
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Type    string // "input", "decode", "config", "run", "runtime"
	Message string
	Details string // Additional context
	Hint    string // How to fix it
	Err     error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func (e *CLIError) Unwrap() error { return e.Err }

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		formatCLIError(w, cliErr, useColor)
		return
	}
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
}

// formatCLIError formats CLI errors
func formatCLIError(w io.Writer, err *CLIError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(w, "%s\n", Colorize("  "+err.Details, ColorGray, useColor))
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), err.Hint)
	}
}

func decodeError(path string, err error) error {
	e := &CLIError{
		Type:    "decode",
		Message: fmt.Sprintf("cannot decode %s", path),
		Details: err.Error(),
		Err:     err,
	}
	switch {
	case errors.Is(err, astfmt.ErrFormat):
		e.Hint = fmt.Sprintf("expected an ASTP buffer up to version %s", astfmt.VersionString(astfmt.Version))
	case errors.Is(err, astfmt.ErrCorruptData):
		e.Hint = "the buffer is truncated or was produced by a broken encoder; recompile the sketch"
	}
	return e
}

func configError(err error) error {
	e := &CLIError{Type: "config", Message: "invalid configuration", Details: err.Error(), Err: err}
	var ve *config.ValidationError
	if errors.As(err, &ve) {
		e.Hint = "see internal/config/schema.json for the accepted keys"
	}
	return e
}

func runError(err error) error {
	e := &CLIError{Type: "run", Message: "run aborted", Details: err.Error(), Err: err}
	var timeout *hardware.TimeoutError
	switch {
	case errors.As(err, &timeout):
		e.Hint = "raise request_timeout in the config or SKETCHVM_REQUEST_TIMEOUT"
	case errors.Is(err, hardware.ErrTickBudget):
		e.Hint = "raise max_ticks or lower max_loops"
	}
	return e
}
