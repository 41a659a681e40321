package interpreter

import (
	"github.com/opal-lang/sketchvm/core/ast"
	"github.com/opal-lang/sketchvm/runtime/scope"
	"github.com/opal-lang/sketchvm/runtime/value"
)

// Suspension and replay.
//
// A suspending builtin switches the state to WaitingForResponse and returns
// void. Every construct on the way out notices interrupted() and records a
// resume point before returning, innermost first, so the stack ends up
// holding the path from the suspended statement out to the driver.
//
// On the next tick the driver re-enters the same entry function. Each
// construct on the path pops its own resume point (outermost first) and
// continues from it instead of starting over: a block from the statement it
// was running, a loop from its iteration and phase, a user call inside its
// existing frame. Scopes are kept in the resume points, not exited.
//
// The statement that contained the suspending call (a unit) is evaluated
// again from the start. Calls that completed in the first attempt, and the
// call whose response was delivered, return their memoized results. Other
// side effects of the statement that happened before the suspension happen
// again.

type loopPhase int

const (
	phaseInit loopPhase = iota
	phaseCond
	phaseBody
	phaseUpdate
)

// resumePoint is the saved position of one construct on the suspended path.
type resumePoint struct {
	node  *ast.Node
	index int          // statement or case index
	iter  int          // loop iteration or statement index inside a case
	phase loopPhase    // loop phase; for if, the chosen branch
	scope *scope.Scope // scope or frame the construct owns
	value value.Value  // range-for range, switch discriminant
	memo  *memo        // unit memo
}

// callKey identifies one evaluation of a call node within a unit.
type callKey struct {
	node *ast.Node
	n    int
}

// memo holds the results of calls made while evaluating one unit.
type memo struct {
	results map[callKey]value.Value
	seen    map[*ast.Node]int
}

// next returns the key of the next evaluation of node.
func (m *memo) next(node *ast.Node) callKey {
	if m == nil {
		return callKey{node: node}
	}
	if m.seen == nil {
		m.seen = make(map[*ast.Node]int)
	}
	m.seen[node]++
	return callKey{node: node, n: m.seen[node]}
}

func (m *memo) lookup(k callKey) (value.Value, bool) {
	if m == nil {
		return value.Void(), false
	}
	v, ok := m.results[k]
	return v, ok
}

func (m *memo) store(k callKey, v value.Value) {
	if m == nil {
		return
	}
	if m.results == nil {
		m.results = make(map[callKey]value.Value)
	}
	m.results[k] = v
}

// interrupted reports whether evaluation must unwind to the driver.
func (in *Interpreter) interrupted() bool {
	return in.state != StateRunning && in.state != StateStepping
}

// suspended reports whether unwinding constructs must record resume points.
func (in *Interpreter) suspended() bool {
	return in.state == StatePaused || in.state == StateWaitingForResponse
}

// takeResume pops the resume point of node, or returns nil when node is not
// resuming. A mismatch means the replay took a different path than the
// first attempt; the stale path is dropped and execution continues fresh.
func (in *Interpreter) takeResume(node *ast.Node) *resumePoint {
	if len(in.resume) == 0 {
		return nil
	}
	top := in.resume[len(in.resume)-1]
	if top.node != node {
		in.log.Warn("replay diverged, dropping resume path",
			"expected", top.node.Kind.String(), "got", node.Kind.String(), "depth", len(in.resume))
		in.resume = nil
		return nil
	}
	in.resume = in.resume[:len(in.resume)-1]
	if in.cfg.Debug >= DebugDetailed {
		in.log.Debug("resume", "node", node.Kind.String(), "index", top.index, "iter", top.iter, "phase", int(top.phase))
	}
	return top
}

// resuming reports whether node holds the next resume point, without
// consuming it. Call sites use it to tell a call suspended inside its body
// from one that has not started yet.
func (in *Interpreter) resuming(node *ast.Node) bool {
	return len(in.resume) > 0 && in.resume[len(in.resume)-1].node == node
}

// suspend records rp while unwinding from a suspension.
func (in *Interpreter) suspend(rp *resumePoint) {
	if in.suspended() {
		in.resume = append(in.resume, rp)
	}
}

// runUnit evaluates fn as the replayable unit owned by node.
func (in *Interpreter) runUnit(node *ast.Node, fn func()) {
	m := &memo{}
	if rp := in.takeResume(node); rp != nil {
		m = rp.memo
		m.seen = nil
	}
	outer := in.unit
	in.unit = m
	fn()
	in.unit = outer
	if in.interrupted() {
		in.suspend(&resumePoint{node: node, memo: m})
	}
}

// evalHeader evaluates a loop, if or switch header expression as a unit.
func (in *Interpreter) evalHeader(expr *ast.Node) value.Value {
	if expr == nil {
		return value.Bool(true)
	}
	var v value.Value
	in.runUnit(expr, func() { v = in.eval(expr) })
	return v
}

// beginStatement is the step boundary. While stepping, the first statement
// to start after one has completed pauses instead.
func (in *Interpreter) beginStatement(n *ast.Node) bool {
	if in.state == StateStepping && in.stepped {
		in.setState(StatePaused)
		return false
	}
	if in.cfg.Debug >= DebugDetailed {
		in.log.Debug("statement", "kind", n.Kind.String())
	}
	return true
}

// endStatement marks a simple statement as completed.
func (in *Interpreter) endStatement() {
	if in.interrupted() {
		return
	}
	in.stats.Statements++
	if in.state == StateStepping {
		in.stepped = true
	}
}
