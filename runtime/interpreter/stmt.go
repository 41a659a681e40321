package interpreter

import (
	"github.com/opal-lang/sketchvm/core/ast"
	"github.com/opal-lang/sketchvm/core/invariant"
	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/value"
)

// execStmt executes one statement.
func (in *Interpreter) execStmt(n *ast.Node) {
	if n == nil || in.interrupted() {
		return
	}

	switch n.Kind {
	case ast.KindCompound:
		in.execBlock(n, true)

	case ast.KindExpressionStmt:
		in.simple(n, func() { in.eval(n.Operand) })

	case ast.KindVarDecl:
		in.simple(n, func() { in.declare(n) })

	case ast.KindReturn:
		in.simple(n, func() {
			v := in.eval(n.Operand)
			if in.interrupted() {
				return
			}
			in.returnValue = v
			in.jump = jumpReturn
		})

	case ast.KindBreak:
		in.simple(n, func() {
			in.emit(command.BreakStatement{})
			in.jump = jumpBreak
		})

	case ast.KindContinue:
		in.simple(n, func() {
			in.emit(command.ContinueStatement{})
			in.jump = jumpContinue
		})

	case ast.KindIf:
		in.execIf(n)

	case ast.KindWhile:
		in.execLoop(n, loopShape{kind: "while", cond: n.Cond, body: n.Body, condFirst: true})

	case ast.KindDoWhile:
		in.execLoop(n, loopShape{kind: "do-while", cond: n.Cond, body: n.Body})

	case ast.KindFor:
		in.execLoop(n, loopShape{
			kind: "for", init: n.Init, cond: n.Cond, update: n.Update, body: n.Body,
			condFirst: true, scoped: true,
		})

	case ast.KindRangeFor:
		in.execRangeFor(n)

	case ast.KindSwitch:
		in.execSwitch(n)

	case ast.KindStructDecl:
		in.declareStruct(n.Text(), n.Children)

	case ast.KindTypedef:
		in.declareTypedef(n)

	case ast.KindEmpty, ast.KindComment, ast.KindError, ast.KindFuncDef, ast.KindFuncDecl, ast.KindCase:

	default:
		// A bare expression in statement position.
		in.simple(n, func() { in.eval(n) })
	}
}

// simple runs a statement that contains no other statements as one unit.
func (in *Interpreter) simple(n *ast.Node, fn func()) {
	if !in.beginStatement(n) {
		return
	}
	in.runUnit(n, fn)
	in.endStatement()
}

// execBlock runs the statements of a compound node. scoped blocks get their
// own scope; function bodies share the frame with the parameters.
func (in *Interpreter) execBlock(n *ast.Node, scoped bool) {
	start := 0
	rp := in.takeResume(n)
	switch {
	case rp != nil:
		invariant.InRange(rp.index, 0, len(n.Children)-1, "block resume index")
		start = rp.index
		if scoped {
			in.store.Restore(rp.scope)
		}
	case scoped:
		in.store.Enter("block")
	}
	sc := in.store.Current()

	for i := start; i < len(n.Children); i++ {
		in.execStmt(n.Children[i])
		if in.interrupted() {
			in.suspend(&resumePoint{node: n, index: i, scope: sc})
			return
		}
		if in.jump != jumpNone {
			break
		}
	}

	if scoped {
		invariant.Invariant(in.store.Current() == sc, "block scope imbalance")
		_ = in.store.Exit()
	}
}

const (
	branchUndecided loopPhase = iota
	branchThen
	branchElse
)

func (in *Interpreter) execIf(n *ast.Node) {
	if !in.beginStatement(n) {
		return
	}

	branch := branchUndecided
	if rp := in.takeResume(n); rp != nil {
		branch = rp.phase
	}
	if branch == branchUndecided {
		cond := in.evalHeader(n.Cond)
		if in.interrupted() {
			in.suspend(&resumePoint{node: n, phase: branchUndecided})
			return
		}
		taken := "else"
		branch = branchElse
		if cond.Truthy() {
			taken, branch = "then", branchThen
		} else if n.Else == nil {
			taken = "none"
		}
		in.emit(command.IfStatement{Condition: cond.Native(), Branch: taken})
	}

	target := n.Else
	if branch == branchThen {
		target = n.Then
	}
	in.execStmt(target)
	if in.interrupted() {
		in.suspend(&resumePoint{node: n, phase: branch})
	}
}

// execSwitch jumps to the matching case, or default, and runs every case
// body from there on until a break.
func (in *Interpreter) execSwitch(n *ast.Node) {
	if !in.beginStatement(n) {
		return
	}

	var start, stmt int
	rp := in.takeResume(n)
	if rp != nil && rp.phase == phaseBody {
		start, stmt = rp.index, rp.iter
		in.store.Restore(rp.scope)
	} else {
		disc := in.evalHeader(n.Cond)
		if in.interrupted() {
			in.suspend(&resumePoint{node: n, phase: phaseCond})
			return
		}
		start = in.matchCase(n, disc)
		if start < 0 {
			return
		}
		in.store.Enter("switch")
	}
	sc := in.store.Current()

cases:
	for i := start; i < len(n.Children); i++ {
		c := n.Children[i]
		if c.Kind != ast.KindCase {
			continue
		}
		for j := stmt; j < len(c.Children); j++ {
			in.execStmt(c.Children[j])
			if in.interrupted() {
				in.suspend(&resumePoint{node: n, phase: phaseBody, index: i, iter: j, scope: sc})
				return
			}
			if in.jump != jumpNone {
				break cases
			}
		}
		stmt = 0
	}

	if in.jump == jumpBreak {
		in.jump = jumpNone
	}
	invariant.Invariant(in.store.Current() == sc, "switch scope imbalance")
	_ = in.store.Exit()
}

// matchCase returns the index of the first case whose label equals disc, or
// of the default label, or -1.
func (in *Interpreter) matchCase(n *ast.Node, disc value.Value) int {
	def := -1
	for i, c := range n.Children {
		if c.Kind != ast.KindCase {
			continue
		}
		if c.IsDefault() || c.Operand == nil {
			if def < 0 {
				def = i
			}
			continue
		}
		if value.Equal(disc, in.eval(c.Operand)) {
			return i
		}
	}
	return def
}
