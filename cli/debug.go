package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/opal-lang/sketchvm/core/astfmt"
	"github.com/opal-lang/sketchvm/internal/config"
	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/hardware"
	"github.com/opal-lang/sketchvm/runtime/interpreter"
)

const debugHelp = `commands:
  start              begin a run (ends any current one)
  tick [N]           advance N units (default 1)
  step               run one statement of a paused program
  pause | resume     suspend or continue ticking
  stop               return to idle, discarding any pending request
  state              show the state and counters
  pending            show the outstanding request
  respond ID VALUE   answer a request by hand
  answer             answer the outstanding request from the simulator
  globals            list global variables
  scopes             print the scope chain
  quit               leave the debugger`

func newDebugCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "debug FILE",
		Short: "Step through a compiled sketch interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(g)
			if err != nil {
				return err
			}
			prog, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			s, err := newDebugSession(cmd.OutOrStdout(), prog, cfg, g.debug, ShouldUseColor(g.noColor))
			if err != nil {
				return err
			}
			return s.repl()
		},
	}
}

// debugSession drives an interpreter by hand. Commands print through the
// same text rendering as run.
type debugSession struct {
	in       *interpreter.Interpreter
	sim      *hardware.Simulator
	out      io.Writer
	useColor bool
	lastReq  command.Request
}

func newDebugSession(out io.Writer, prog *astfmt.Program, cfg config.Config, debug, useColor bool) (*debugSession, error) {
	board, err := cfg.SimulatedBoard()
	if err != nil {
		return nil, configError(err)
	}
	s := &debugSession{
		in:       interpreter.New(prog.Root, cfg.Interpreter(newLogger(debug), debugLevel(debug))),
		sim:      hardware.NewSimulator(board),
		out:      out,
		useColor: useColor,
	}
	s.in.SetCommandListener(command.Multi{
		s.sim,
		command.SinkFunc(func(c command.Command) {
			if req, ok := c.(command.Request); ok {
				s.lastReq = req
			}
		}),
		&textSink{w: out, useColor: useColor},
	})
	return s, nil
}

func (s *debugSession) repl() error {
	ln := liner.NewLiner()
	defer func() { _ = ln.Close() }()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		var out []string
		for _, c := range debugCommands {
			if strings.HasPrefix(c, line) {
				out = append(out, c)
			}
		}
		return out
	})

	_, _ = fmt.Fprintln(s.out, "sketchvm debugger, type help for commands")
	for {
		line, err := ln.Prompt(fmt.Sprintf("(%s) ", s.in.State()))
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			s.in.Stop()
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)
		if s.exec(line) {
			return nil
		}
	}
}

var debugCommands = []string{
	"answer", "globals", "help", "pause", "pending", "quit", "respond",
	"resume", "scopes", "start", "state", "step", "stop", "tick",
}

// exec runs one debugger command and reports whether the session should end.
func (s *debugSession) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	args := fields[1:]

	var err error
	switch fields[0] {
	case "quit", "exit":
		s.in.Stop()
		return true
	case "help":
		_, _ = fmt.Fprintln(s.out, debugHelp)
	case "start":
		s.in.Stop()
		err = s.in.Start()
	case "tick":
		err = s.tick(args)
	case "step":
		err = s.in.Step()
	case "pause":
		err = s.in.Pause()
	case "resume":
		err = s.in.Resume()
	case "stop":
		s.in.Stop()
	case "state":
		st := s.in.Stats()
		_, _ = fmt.Fprintf(s.out, "%s ticks=%d statements=%d loops=%d requests=%d responses=%d errors=%d\n",
			s.in.State(), st.Ticks, st.Statements, st.LoopCycles, st.Requests, st.Responses, st.Errors)
	case "pending":
		if p, ok := s.in.PendingRequest(); ok {
			_, _ = fmt.Fprintf(s.out, "%s %s (resumes %s)\n", p.ID, p.Builtin, p.Saved)
		} else {
			_, _ = fmt.Fprintln(s.out, "no request pending")
		}
	case "respond":
		err = s.respond(args)
	case "answer":
		err = s.answer()
	case "globals":
		s.printGlobals()
	case "scopes":
		_, _ = fmt.Fprint(s.out, s.in.Scopes())
	default:
		err = fmt.Errorf("unknown command %q, type help for commands", fields[0])
	}
	if err != nil {
		FormatError(s.out, err, s.useColor)
	}
	return false
}

func (s *debugSession) tick(args []string) error {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return fmt.Errorf("tick count must be a positive number, got %q", args[0])
		}
		n = v
	}
	for range n {
		s.in.Tick()
		if s.in.IsWaitingForResponse() || !s.in.State().Active() {
			break
		}
	}
	return nil
}

func (s *debugSession) respond(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: respond ID VALUE")
	}
	id := args[0]
	if !s.in.DeliverResponse(id, parseResponse(strings.Join(args[1:], " "))) {
		return fmt.Errorf("no pending request with id %s", id)
	}
	return nil
}

func (s *debugSession) answer() error {
	p, ok := s.in.PendingRequest()
	if !ok || s.lastReq == nil || s.lastReq.RequestID() != p.ID {
		return errors.New("no request pending")
	}
	v, err := s.sim.Respond(context.Background(), s.lastReq)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(s.out, "%s %s = %v\n", Colorize("answered", ColorBlue, s.useColor), p.ID, v)
	s.in.DeliverResponse(p.ID, v)
	return nil
}

func (s *debugSession) printGlobals() {
	globals := s.in.Globals()
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(s.out, "%s = %s\n", name, globals[name])
	}
}

// parseResponse reads a hand-typed response: an integer, a float, a bool, or
// otherwise a string (quotes optional).
func parseResponse(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 32); err == nil {
		return int32(n)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if s, err := strconv.Unquote(raw); err == nil {
		return s
	}
	return raw
}
