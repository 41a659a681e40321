package interpreter

import (
	"fmt"

	"github.com/opal-lang/sketchvm/core/ast"
	"github.com/opal-lang/sketchvm/core/invariant"
	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/scope"
	"github.com/opal-lang/sketchvm/runtime/value"
)

// loopShape is the clause layout shared by while, do-while and for.
type loopShape struct {
	kind                     string
	init, cond, update, body *ast.Node
	condFirst                bool // false for do-while
	scoped                   bool // for loops own the scope of their init clause
}

// execLoop runs a statement loop as a small phase machine so that a
// suspension in any clause resumes in that clause.
func (in *Interpreter) execLoop(n *ast.Node, ls loopShape) {
	if !in.beginStatement(n) {
		return
	}

	ph, iter := phaseInit, 0
	resumingBody := false
	if rp := in.takeResume(n); rp != nil {
		ph, iter = rp.phase, rp.iter
		resumingBody = ph == phaseBody
		if ls.scoped {
			in.store.Restore(rp.scope)
		}
	} else if ls.scoped {
		in.store.Enter(ls.kind)
	}
	sc := in.store.Current()
	save := func(p loopPhase) {
		in.suspend(&resumePoint{node: n, phase: p, iter: iter, scope: sc})
	}

loop:
	for {
		switch ph {
		case phaseInit:
			in.loopClause(ls.init)
			if in.interrupted() {
				save(phaseInit)
				return
			}
			ph = phaseBody
			if ls.condFirst {
				ph = phaseCond
			}

		case phaseCond:
			cond := in.evalHeader(ls.cond)
			if in.interrupted() {
				save(phaseCond)
				return
			}
			if !cond.Truthy() {
				break loop
			}
			ph = phaseBody

		case phaseBody:
			if !resumingBody {
				if limitReached(iter, in.cfg.MaxLoopIterations) {
					in.loopLimit(ls.kind, in.cfg.MaxLoopIterations)
					break loop
				}
				iter++
				in.emit(command.LoopStart{Kind: ls.kind, Iteration: iter})
			}
			resumingBody = false

			in.execStmt(ls.body)
			if in.interrupted() {
				save(phaseBody)
				return
			}
			in.emit(command.LoopEnd{Kind: ls.kind, Iteration: iter})
			if in.loopJump() {
				break loop
			}
			ph = phaseUpdate

		case phaseUpdate:
			if ls.update != nil {
				in.evalHeader(ls.update)
				if in.interrupted() {
					save(phaseUpdate)
					return
				}
			}
			ph = phaseCond
		}
	}

	if ls.scoped {
		invariant.Invariant(in.store.Current() == sc, "%s scope imbalance", ls.kind)
		_ = in.store.Exit()
	}
}

// loopClause runs a for-init clause, a declaration or an expression, as one
// unit without a step boundary.
func (in *Interpreter) loopClause(n *ast.Node) {
	switch {
	case n == nil:
	case n.Kind == ast.KindVarDecl:
		in.runUnit(n, func() { in.declare(n) })
	case n.Kind == ast.KindExpressionStmt:
		in.evalHeader(n.Operand)
	default:
		in.evalHeader(n)
	}
}

// loopJump consumes break and continue after a body run and reports whether
// the loop must stop.
func (in *Interpreter) loopJump() bool {
	switch in.jump {
	case jumpBreak:
		in.jump = jumpNone
		return true
	case jumpContinue:
		in.jump = jumpNone
	case jumpReturn:
		return true
	}
	return false
}

func (in *Interpreter) loopLimit(kind string, limit int) {
	in.log.Debug("loop limit reached", "kind", kind, "limit", limit)
	in.emit(command.LoopLimitReached{
		Kind:    kind,
		Limit:   limit,
		Message: fmt.Sprintf("%s loop limit of %d iterations reached", kind, limit),
	})
}

// execRangeFor runs for (decl : range). The range is evaluated once; items
// are read live by index, so writes to the array during the loop are seen.
func (in *Interpreter) execRangeFor(n *ast.Node) {
	if !in.beginStatement(n) {
		return
	}

	var rng value.Value
	iter := 0
	resuming := false
	if rp := in.takeResume(n); rp != nil && rp.phase == phaseBody {
		rng, iter, resuming = rp.value, rp.iter, true
		in.store.Restore(rp.scope)
	} else {
		rng = in.evalHeader(n.Operand)
		if in.interrupted() {
			in.suspend(&resumePoint{node: n, phase: phaseCond})
			return
		}
		in.store.Enter("range-for")
	}
	sc := in.store.Current()

	count := rangeLen(rng)
	capped := false
	if limitReached(count, in.cfg.MaxRangeItems) && count > in.cfg.MaxRangeItems {
		count, capped = in.cfg.MaxRangeItems, true
	}

	for {
		if !resuming {
			if iter >= count {
				if capped {
					in.loopLimit("range-for", in.cfg.MaxRangeItems)
				}
				break
			}
			if limitReached(iter, in.cfg.MaxLoopIterations) {
				in.loopLimit("range-for", in.cfg.MaxLoopIterations)
				break
			}
			in.bindRangeVar(n.Init, rng, iter)
			iter++
			in.emit(command.LoopStart{Kind: "range-for", Iteration: iter})
		}
		resuming = false

		in.execStmt(n.Body)
		if in.interrupted() {
			in.suspend(&resumePoint{node: n, phase: phaseBody, iter: iter, scope: sc, value: rng})
			return
		}
		in.emit(command.LoopEnd{Kind: "range-for", Iteration: iter})
		if in.loopJump() {
			break
		}
	}

	invariant.Invariant(in.store.Current() == sc, "range-for scope imbalance")
	_ = in.store.Exit()
}

// rangeLen is the number of items a range value yields: the characters of a
// string, 0..n-1 for an int, the elements of an array, or a single item.
func rangeLen(v value.Value) int {
	switch v.Kind {
	case value.KindString:
		return len(v.Str)
	case value.KindInt:
		if v.Char {
			return 1
		}
		return max(int(v.Int), 0)
	case value.KindArray:
		return len(v.Array.Elems)
	case value.KindVoid:
		return 0
	default:
		return 1
	}
}

// rangeItem returns item i of a range value, and a location for reference
// loop variables when the item is addressable.
func rangeItem(v value.Value, i int) (value.Value, value.Ref) {
	switch v.Kind {
	case value.KindString:
		return value.Char(v.Str[i]), nil
	case value.KindInt:
		if v.Char {
			return v, nil
		}
		return value.Int(int32(i)), nil
	case value.KindArray:
		ref := &value.ElemRef{Array: v.Array, Index: i, Name: "range"}
		return ref.Load(), ref
	default:
		return v, nil
	}
}

// bindRangeVar declares the loop variable for item i in the current scope.
func (in *Interpreter) bindRangeVar(decl *ast.Node, rng value.Value, i int) {
	name, typ, ref := rangeVar(decl)
	item, loc := rangeItem(rng, i)
	if name == "" {
		return
	}
	typ = in.resolveType(typ)
	if ref && loc != nil {
		in.store.Declare(scope.NewReference(name, typ, loc))
		return
	}
	if typ == "" || typ == "auto" || value.ParseType(typ).Base == "auto" {
		in.store.Declare(scope.NewVariable(name, "", item))
	} else {
		in.store.Declare(scope.NewVariable(name, typ, value.Coerce(item, typ)))
	}
	in.traceSet(name, item)
}

func rangeVar(decl *ast.Node) (name, typ string, ref bool) {
	if decl == nil {
		return "", "", false
	}
	switch decl.Kind {
	case ast.KindVarDecl:
		typ = decl.TypeName()
		if len(decl.Children) > 0 {
			d := decl.Children[0]
			name = d.Text()
			ref = d.Flags&ast.FlagReference != 0
		}
	case ast.KindParam:
		typ = decl.TypeName()
		name = decl.Name()
		ref = decl.Declarator != nil && decl.Declarator.Flags&ast.FlagReference != 0
	default:
		name = decl.Text()
	}
	ref = ref || value.ParseType(typ).Reference
	return name, typ, ref
}
