package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/opal-lang/sketchvm/core/astfmt/formatter"
	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/hardware"
)

// Output shares the palette of the tree formatter used by dump.
const (
	ColorReset  = formatter.ColorReset
	ColorRed    = formatter.ColorRed
	ColorGreen  = formatter.ColorGreen
	ColorYellow = formatter.ColorYellow
	ColorBlue   = formatter.ColorBlue
	ColorCyan   = formatter.ColorCyan
	ColorGray   = formatter.ColorGray
)

// Colorize is formatter.Colorize.
var Colorize = formatter.Colorize

// ShouldUseColor reports whether stdout gets ANSI colors: never with
// --no-color or NO_COLOR set, otherwise only on a terminal.
func ShouldUseColor(noColorFlag bool) bool {
	if noColorFlag || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// textSink prints one line per command.
type textSink struct {
	w        io.Writer
	useColor bool
	err      error
}

func (s *textSink) Emit(c command.Command) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintln(s.w, FormatCommand(c, s.useColor))
}

func (s *textSink) Err() error { return s.err }

// FormatCommand renders a command as its type followed by key=value fields.
func FormatCommand(c command.Command, useColor bool) string {
	name := Colorize(string(c.Type()), commandColor(c), useColor)
	fields := commandFields(c)
	if fields == "" {
		return name
	}
	return name + " " + fields
}

func commandColor(c command.Command) string {
	switch c.(type) {
	case command.Error:
		return ColorRed
	case command.LoopLimitReached:
		return ColorYellow
	case command.SerialPrint, command.SerialPrintln, command.SerialWrite:
		return ColorGreen
	case command.Request:
		return ColorBlue
	case command.VersionInfo, command.ProgramStart, command.ProgramEnd,
		command.SetupStart, command.SetupEnd, command.LoopStart, command.LoopEnd:
		return ColorCyan
	}
	return ColorGray
}

func commandFields(c command.Command) string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := json.Marshal(m[k])
		parts = append(parts, k+"="+string(v))
	}
	return strings.Join(parts, " ")
}

// formatResult prints the one-line summary after a text-mode run.
func formatResult(w io.Writer, res hardware.Result, useColor bool) {
	st := res.Stats
	_, _ = fmt.Fprintf(w, "%s %s ticks=%d statements=%d loops=%d requests=%d errors=%d\n",
		Colorize("result:", ColorCyan, useColor), res.State,
		st.Ticks, st.Statements, st.LoopCycles, st.Requests, st.Errors)
	if res.LastError != nil {
		_, _ = fmt.Fprintf(w, "%s %s\n", Colorize("last error:", ColorRed, useColor), res.LastError)
	}
}
