// Package interpreter executes a decoded sketch tree.
//
// An Interpreter is driven by Tick. The first tick after Start declares the
// globals and runs setup(); every later tick runs one loop() iteration.
// Hardware reads and other data builtins do not block: they emit a request
// command and the interpreter waits in StateWaitingForResponse until the
// driver calls DeliverResponse, after which the next tick resumes the
// suspended statement.
//
// An Interpreter is not safe for concurrent use. Command sinks must not call
// back into the interpreter that emitted the command.
package interpreter

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/opal-lang/sketchvm/core/ast"
	"github.com/opal-lang/sketchvm/core/astfmt"
	"github.com/opal-lang/sketchvm/core/invariant"
	"github.com/opal-lang/sketchvm/runtime/builtins"
	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/scope"
	"github.com/opal-lang/sketchvm/runtime/value"
)

// Version is reported in the VERSION_INFO command.
const Version = "1.0.0"

type phase int

const (
	phaseGlobals phase = iota
	phaseSetup
	phaseLoop
	phaseDone
)

type jump int

const (
	jumpNone jump = iota
	jumpBreak
	jumpContinue
	jumpReturn
)

// Interpreter runs one sketch.
type Interpreter struct {
	cfg  Config
	root *ast.Node
	reg  *builtins.Registry
	sink command.Sink
	log  *slog.Logger
	rnd  *rand.Rand

	state   State
	ticking bool
	stepped bool

	store    *scope.Store
	statics  map[*ast.Node]*scope.Variable
	structs  map[string][]structField
	typedefs map[string]string

	phase        phase
	setupStarted bool
	cycles       int
	cycleOpen    bool

	jump        jump
	returnValue value.Value
	depth       int

	pending    *pendingRequest
	responses  map[string]value.Value
	requestSeq int
	resume     []*resumePoint
	unit       *memo

	stats      Stats
	unitErrors int
	lastErr    *RuntimeError
}

type pendingRequest struct {
	Pending
	entry builtins.Entry
	call  builtins.Call
	memo  *memo
	key   callKey
}

// New creates an interpreter for the tree rooted at root.
func New(root *ast.Node, cfg Config) *Interpreter {
	invariant.NotNil(root, "root")
	invariant.Precondition(root.Kind == ast.KindProgram, "root must be a Program node, got %s", root.Kind)

	cfg = cfg.withDefaults()
	in := &Interpreter{
		cfg:  cfg,
		root: root,
		reg:  cfg.Registry,
		sink: command.Discard,
		log:  cfg.Logger,
	}
	in.reset()
	return in
}

func (in *Interpreter) reset() {
	in.rnd = rand.New(rand.NewSource(in.cfg.Seed))
	in.store = scope.New()
	in.statics = make(map[*ast.Node]*scope.Variable)
	in.structs = make(map[string][]structField)
	in.typedefs = make(map[string]string)
	in.phase = phaseGlobals
	in.setupStarted = false
	in.cycles = 0
	in.cycleOpen = false
	in.jump = jumpNone
	in.returnValue = value.Void()
	in.depth = 0
	in.pending = nil
	in.responses = make(map[string]value.Value)
	in.requestSeq = 0
	in.resume = nil
	in.unit = nil
	in.stepped = false
	in.stats = Stats{}
	in.unitErrors = 0
	in.lastErr = nil
}

// SetCommandListener sets the sink that receives every emitted command.
func (in *Interpreter) SetCommandListener(sink command.Sink) {
	if sink == nil {
		sink = command.Discard
	}
	in.sink = sink
}

// State returns the execution state.
func (in *Interpreter) State() State {
	return in.state
}

// Stats returns counters since the last Start.
func (in *Interpreter) Stats() Stats {
	return in.stats
}

// LastError returns the most recent runtime error, or nil.
func (in *Interpreter) LastError() *RuntimeError {
	return in.lastErr
}

// Globals returns the current value of every global variable.
func (in *Interpreter) Globals() map[string]value.Value {
	cur := in.store.Current()
	in.store.Unwind()
	defer in.store.Restore(cur)
	return in.store.AsMap()
}

// Scopes renders the visible scope chain for debugging.
func (in *Interpreter) Scopes() string {
	return in.store.DebugPrint()
}

// Start resets the interpreter and begins a run.
func (in *Interpreter) Start() error {
	if in.state.Active() {
		return &ControlError{Op: "start", State: in.state}
	}
	in.reset()
	in.emit(command.VersionInfo{Component: "sketchvm", Version: Version, Format: astfmt.VersionString(astfmt.Version)})
	in.emit(command.ProgramStart{Message: "program started"})
	in.setState(StateRunning)
	return nil
}

// Stop forces the interpreter back to Idle, discarding any outstanding
// request.
func (in *Interpreter) Stop() {
	if in.state == StateIdle {
		return
	}
	wasActive := in.state.Active()
	in.pending = nil
	in.responses = make(map[string]value.Value)
	in.resume = nil
	in.store.Unwind()
	in.setState(StateIdle)
	if wasActive {
		in.emit(command.ProgramEnd{Message: "program stopped", Reason: "stopped"})
	}
}

// Pause suspends a running program at the next tick boundary.
func (in *Interpreter) Pause() error {
	if in.state != StateRunning && in.state != StateStepping {
		return &ControlError{Op: "pause", State: in.state}
	}
	in.setState(StatePaused)
	return nil
}

// Resume continues a paused program.
func (in *Interpreter) Resume() error {
	if in.state != StatePaused {
		return &ControlError{Op: "resume", State: in.state}
	}
	in.setState(StateRunning)
	return nil
}

// Step runs a paused program until one statement completes, then pauses
// again. A step that suspends on a request finishes on the tick after the
// response is delivered.
func (in *Interpreter) Step() error {
	if in.state != StatePaused {
		return &ControlError{Op: "step", State: in.state}
	}
	in.stepped = false
	in.setState(StateStepping)
	in.Tick()
	if in.state == StateStepping {
		in.setState(StatePaused)
	}
	return nil
}

// IsWaitingForResponse reports whether a request is outstanding.
func (in *Interpreter) IsWaitingForResponse() bool {
	return in.pending != nil
}

// PendingRequest returns the outstanding request.
func (in *Interpreter) PendingRequest() (Pending, bool) {
	if in.pending == nil {
		return Pending{}, false
	}
	return in.pending.Pending, true
}

// DeliverResponse hands in the value for request id. It returns false and
// changes nothing when id is not the outstanding request. The value is
// consumed by the next Tick. v may be a value.Value or a plain Go value.
func (in *Interpreter) DeliverResponse(id string, v any) bool {
	if in.pending == nil || in.pending.ID != id {
		in.log.Debug("response ignored", "id", id)
		return false
	}
	in.responses[id] = value.FromNative(v)
	if in.cfg.Debug >= DebugPaths {
		in.log.Debug("response delivered", "id", id, "builtin", in.pending.Builtin)
	}
	return true
}

// Tick advances the program by one unit: globals and setup() on the first
// tick, one loop() iteration afterwards, or the rest of a suspended unit once
// its response has arrived. Tick does nothing while paused, idle, finished,
// or still waiting.
func (in *Interpreter) Tick() {
	if in.ticking {
		return
	}
	in.ticking = true
	defer func() { in.ticking = false }()

	switch in.state {
	case StateWaitingForResponse:
		if !in.consumeResponse() {
			return
		}
	case StateRunning, StateStepping:
	default:
		return
	}
	in.stats.Ticks++
	in.drive()
}

// consumeResponse moves a delivered response into the memo of the suspended
// unit and restores the state saved when the request was issued.
func (in *Interpreter) consumeResponse() bool {
	p := in.pending
	invariant.Invariant(p != nil, "waiting without a pending request")
	raw, ok := in.responses[p.ID]
	if !ok {
		return false
	}
	delete(in.responses, p.ID)
	p.memo.store(p.key, p.entry.Convert(p.call, raw))
	in.pending = nil
	in.stats.Responses++
	in.setState(p.Saved)
	return true
}

func (in *Interpreter) drive() {
	switch in.phase {
	case phaseGlobals:
		in.runGlobals()
		if in.unwound() {
			return
		}
		in.phase = phaseSetup
		fallthrough

	case phaseSetup:
		if !in.setupStarted {
			in.setupStarted = true
			in.emit(command.SetupStart{})
		}
		in.runEntry("setup")
		if in.unwound() {
			return
		}
		in.emit(command.SetupEnd{})
		in.phase = phaseLoop
		if in.halted() {
			return
		}
		if in.findFunction("loop", 0) == nil {
			in.finish("program completed")
		}

	case phaseLoop:
		if !in.cycleOpen {
			if limitReached(in.cycles, in.cfg.MaxLoopCycles) {
				in.loopCyclesExhausted()
				return
			}
			in.cycles++
			in.cycleOpen = true
			in.stats.LoopCycles = in.cycles
			in.emit(command.LoopStart{Kind: "loop", Iteration: in.cycles})
		}
		in.runEntry("loop")
		if in.unwound() {
			return
		}
		in.cycleOpen = false
		in.emit(command.LoopEnd{Kind: "loop", Iteration: in.cycles})
		if in.halted() {
			return
		}
		if limitReached(in.cycles, in.cfg.MaxLoopCycles) {
			in.loopCyclesExhausted()
		}
	}
}

// unwound resets per-unit bookkeeping after a driver unit and reports
// whether the unit was cut short.
func (in *Interpreter) unwound() bool {
	in.jump = jumpNone
	in.returnValue = value.Void()
	in.unit = nil
	if in.interrupted() {
		in.store.Unwind()
		in.depth = 0
		if in.cfg.Debug >= DebugPaths {
			in.log.Debug("unit suspended", "state", in.state.String(), "resume", len(in.resume))
		}
		return true
	}
	in.resume = nil
	invariant.Postcondition(in.depth == 0, "call depth must be zero after a unit, got %d", in.depth)
	return false
}

// halted escalates runtime errors of the finished unit when HaltOnError is
// set.
func (in *Interpreter) halted() bool {
	errs := in.unitErrors
	in.unitErrors = 0
	if !in.cfg.HaltOnError || errs == 0 {
		return false
	}
	in.setState(StateError)
	in.emit(command.ProgramEnd{Message: "program halted on error", Reason: "error"})
	return true
}

func (in *Interpreter) loopCyclesExhausted() {
	in.emit(command.LoopLimitReached{
		Kind:    "loop",
		Limit:   in.cfg.MaxLoopCycles,
		Message: fmt.Sprintf("loop() limit of %d iterations reached", in.cfg.MaxLoopCycles),
	})
	in.finish("loop limit reached")
}

func (in *Interpreter) finish(reason string) {
	in.phase = phaseDone
	in.setState(StateComplete)
	in.emit(command.ProgramEnd{Message: "program completed", Reason: reason})
}

// runGlobals executes the top-level declarations once.
func (in *Interpreter) runGlobals() {
	start := 0
	if rp := in.takeResume(in.root); rp != nil {
		invariant.InRange(rp.index, 0, len(in.root.Children)-1, "global resume index")
		start = rp.index
	}
	for i := start; i < len(in.root.Children); i++ {
		c := in.root.Children[i]
		switch c.Kind {
		case ast.KindVarDecl, ast.KindStructDecl, ast.KindTypedef:
			in.execStmt(c)
		}
		if in.interrupted() {
			in.suspend(&resumePoint{node: in.root, index: i})
			return
		}
	}
}

// runEntry calls setup or loop. A missing entry function does nothing.
func (in *Interpreter) runEntry(name string) {
	fn := in.findFunction(name, 0)
	if fn == nil {
		return
	}
	in.callFunction(fn, fn, nil)
}

func (in *Interpreter) setState(s State) {
	if in.state == s {
		return
	}
	if in.cfg.Debug >= DebugPaths {
		in.log.Debug("state", "from", in.state.String(), "to", s.String())
	}
	in.state = s
}

func (in *Interpreter) emit(c command.Command) {
	in.sink.Emit(c)
}

// builtinContext is the interpreter as builtins see it.
type builtinContext struct{ in *Interpreter }

func (c builtinContext) Emit(cmd command.Command) { c.in.emit(cmd) }
func (c builtinContext) Rand() *rand.Rand         { return c.in.rnd }
