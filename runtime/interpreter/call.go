package interpreter

import (
	"fmt"

	"github.com/opal-lang/sketchvm/core/ast"
	"github.com/opal-lang/sketchvm/core/invariant"
	"github.com/opal-lang/sketchvm/runtime/builtins"
	"github.com/opal-lang/sketchvm/runtime/scope"
	"github.com/opal-lang/sketchvm/runtime/value"
)

// call dispatches a Call node: user functions, functional casts, builtins and
// methods on library objects and Strings.
func (in *Interpreter) call(n *ast.Node) value.Value {
	callee := n.Left
	switch {
	case callee == nil:
	case callee.Kind == ast.KindIdentifier:
		return in.callNamed(n, callee.Text())
	case callee.Kind == ast.KindMemberAccess:
		return in.callMethod(n, callee)
	}
	in.fail(ErrUnknownFunction, "expression is not callable")
	return value.Void()
}

func (in *Interpreter) callNamed(n *ast.Node, name string) value.Value {
	if fn := in.findFunction(name, len(n.Children)); fn != nil {
		return in.callFunction(n, fn, n.Children)
	}
	if fn := ast.FindFunction(in.root, name); fn != nil {
		in.fail(ErrArgumentCount, "%s expects %d arguments, got %d", name, len(params(fn)), len(n.Children))
		return value.Void()
	}
	if entry, ok := in.reg.Lookup(name); ok {
		return in.callBuiltin(n, entry, value.Void(), in.writebackArg(n))
	}
	if value.IsScalarType(name) && len(n.Children) == 1 {
		return value.Coerce(in.eval(n.Children[0]), name)
	}

	if s := in.reg.Suggest(name, ast.FunctionNames(in.root)...); s != "" {
		in.fail(ErrUnknownFunction, "unknown function '%s' (did you mean '%s'?)", name, s)
	} else {
		in.fail(ErrUnknownFunction, "unknown function '%s'", name)
	}
	return value.Void()
}

func (in *Interpreter) callMethod(n, callee *ast.Node) value.Value {
	method := memberName(callee)
	recv := in.eval(callee.Left)
	if in.interrupted() {
		return value.Void()
	}
	if callee.Text() == "->" && recv.Kind == value.KindPointer && recv.Ptr != nil {
		recv = recv.Ptr.Load()
	}

	var name string
	switch recv.Kind {
	case value.KindObject:
		name = recv.Object.Class + "." + method
	case value.KindString:
		name = "String." + method
	default:
		in.fail(ErrInvalidMemberAccess, "cannot call method '%s' on %s", method, recv.Kind)
		return value.Void()
	}

	entry, ok := in.reg.Lookup(name)
	if !ok {
		in.fail(ErrUnknownFunction, "unknown method '%s'", name)
		return value.Void()
	}
	var target func(value.Value)
	if entry.Writeback == builtins.WritebackReceiver {
		target = in.writebackTo(callee.Left)
	}
	return in.callBuiltin(n, entry, recv, target)
}

// callBuiltin runs a registered builtin. Completed calls are memoized in
// the current unit so that a replayed statement does not repeat them.
func (in *Interpreter) callBuiltin(n *ast.Node, entry builtins.Entry, recv value.Value, target func(value.Value)) value.Value {
	key := in.unit.next(n)
	if v, ok := in.unit.lookup(key); ok {
		return v
	}

	args := in.evalArgs(n.Children)
	if in.interrupted() {
		return value.Void()
	}
	if err := entry.CheckArgs(len(args)); err != nil {
		in.failWith(err, entry.Name)
		return value.Void()
	}
	c := builtins.Call{Name: entry.Name, Receiver: recv, Args: args}

	if entry.Kind == builtins.KindAsync {
		in.request(entry, c, key)
		return value.Void()
	}

	v, err := entry.Sync(builtinContext{in}, c)
	if err != nil {
		in.failWith(err, entry.Name)
		return value.Void()
	}
	in.unit.store(key, v)
	if target != nil && entry.Writeback != builtins.WritebackNone {
		target(v)
	}
	return v
}

// request emits the request command of an asynchronous builtin and suspends.
func (in *Interpreter) request(entry builtins.Entry, c builtins.Call, key callKey) {
	if in.pending != nil {
		in.fail(ErrRequestOutstanding, "%s called while request %s is outstanding", entry.Name, in.pending.ID)
		return
	}
	invariant.NotNil(in.unit, "unit memo")

	in.requestSeq++
	id := fmt.Sprintf("req-%d", in.requestSeq)
	in.stats.Requests++
	in.pending = &pendingRequest{
		Pending: Pending{ID: id, Builtin: entry.Name, Saved: in.state},
		entry:   entry,
		call:    c,
		memo:    in.unit,
		key:     key,
	}
	if in.cfg.Debug >= DebugPaths {
		in.log.Debug("request", "id", id, "builtin", entry.Name)
	}
	in.emit(entry.Request(id, c))
	in.setState(StateWaitingForResponse)
}

func (in *Interpreter) evalArgs(nodes []*ast.Node) []value.Value {
	args := make([]value.Value, 0, len(nodes))
	for _, a := range nodes {
		args = append(args, in.eval(a))
		if in.interrupted() {
			return nil
		}
	}
	return args
}

// writebackArg returns the store for builtins that update their first
// argument, such as bitSet(x, n).
func (in *Interpreter) writebackArg(n *ast.Node) func(value.Value) {
	if len(n.Children) == 0 {
		return nil
	}
	return in.writebackTo(n.Children[0])
}

// writebackTo returns a store into the location target names, or nil when
// target is not addressable.
func (in *Interpreter) writebackTo(target *ast.Node) func(value.Value) {
	if !addressable(target) {
		return nil
	}
	return func(v value.Value) {
		lv, ok := in.lvalue(target)
		if !ok {
			return
		}
		in.storeTo(lv, v)
	}
}

// findFunction returns the definition of name that accepts nargs
// arguments, counting parameters with defaults as optional.
func (in *Interpreter) findFunction(name string, nargs int) *ast.Node {
	var fallback *ast.Node
	for _, c := range in.root.Children {
		if c.Kind != ast.KindFuncDef || c.Name() != name {
			continue
		}
		ps := params(c)
		if len(ps) == nargs {
			return c
		}
		if fallback == nil && nargs < len(ps) && requiredParams(ps) <= nargs {
			fallback = c
		}
	}
	return fallback
}

// callFunction calls the user function fn from site. A call that suspended
// inside its body resumes in its saved frame without binding its arguments
// again.
func (in *Interpreter) callFunction(site, fn *ast.Node, argNodes []*ast.Node) value.Value {
	name := fn.Name()
	key := in.unit.next(site)
	if v, ok := in.unit.lookup(key); ok {
		return v
	}

	var frame *scope.Scope
	if in.resuming(site) {
		rp := in.takeResume(site)
		frame = rp.scope
		in.store.Restore(frame)
	} else {
		if limitReached(in.depth, in.cfg.MaxCallDepth) {
			in.fail(ErrRecursionLimit, "maximum call depth %d exceeded calling %s", in.cfg.MaxCallDepth, name)
			return value.Void()
		}
		vars := in.bindParams(fn, argNodes)
		if vars == nil {
			return value.Void()
		}
		in.store.EnterFrame(name)
		for _, v := range vars {
			in.store.Declare(v)
		}
		frame = in.store.Current()
	}
	in.depth++

	in.execBlock(fn.Body, false)
	in.depth--
	if in.interrupted() {
		in.suspend(&resumePoint{node: site, scope: frame})
		return value.Void()
	}

	ret := in.returnValue
	in.returnValue = value.Void()
	in.jump = jumpNone
	invariant.Invariant(in.store.Current() == frame, "frame imbalance in %s", name)
	_ = in.store.Exit()

	rt := in.resolveType(fn.TypeName())
	if value.ParseType(rt).Base == "void" {
		ret = value.Void()
	} else if !ret.IsVoid() {
		ret = value.Coerce(ret, rt)
	}
	in.unit.store(key, ret)
	return ret
}

// bindParams evaluates the arguments of a call in the caller's scope and
// returns the parameter variables to declare in the new frame. It returns
// nil when an argument failed or suspended.
func (in *Interpreter) bindParams(fn *ast.Node, argNodes []*ast.Node) []*scope.Variable {
	ps := params(fn)
	if len(argNodes) > len(ps) {
		in.fail(ErrArgumentCount, "%s expects %d arguments, got %d", fn.Name(), len(ps), len(argNodes))
		return nil
	}

	vars := make([]*scope.Variable, 0, len(ps))
	for i, p := range ps {
		pname := p.Name()
		ptyp := in.resolveType(paramType(p))
		ti := value.ParseType(ptyp)

		switch {
		case i < len(argNodes) && ti.Reference:
			lv, ok := in.lvalue(argNodes[i])
			if !ok {
				return nil
			}
			vars = append(vars, scope.NewReference(pname, ptyp, lv.ref))
			continue
		case i < len(argNodes):
			vars = append(vars, scope.NewVariable(pname, ptyp, in.coerceArg(in.eval(argNodes[i]), ptyp)))
		case p.Init != nil:
			vars = append(vars, scope.NewVariable(pname, ptyp, in.coerceArg(in.eval(p.Init), ptyp)))
		default:
			vars = append(vars, scope.NewVariable(pname, ptyp, value.Zero(ptyp)))
		}
		if in.interrupted() {
			return nil
		}
	}
	return vars
}

func (in *Interpreter) coerceArg(v value.Value, typ string) value.Value {
	ti := value.ParseType(typ)
	if ti.Pointer && v.Kind == value.KindArray {
		return value.Pointer(&value.ElemRef{Array: v.Array, Name: "param"})
	}
	return value.Coerce(v.Clone(), typ)
}

// params returns the parameters of a function, treating (void) as none.
func params(fn *ast.Node) []*ast.Node {
	if len(fn.Params) == 1 && fn.Params[0].Name() == "" && fn.Params[0].TypeName() == "void" {
		return nil
	}
	return fn.Params
}

func requiredParams(ps []*ast.Node) int {
	n := 0
	for _, p := range ps {
		if p.Init == nil {
			n++
		}
	}
	return n
}

// paramType returns the declared type of a parameter including pointer and
// reference marks carried on its declarator.
func paramType(p *ast.Node) string {
	typ := p.TypeName()
	if d := p.Declarator; d != nil {
		ti := value.ParseType(typ)
		if d.Flags&ast.FlagPointer != 0 && !ti.Pointer {
			typ += "*"
		}
		if d.Flags&ast.FlagReference != 0 && !ti.Reference {
			typ += "&"
		}
	}
	return typ
}

func addressable(n *ast.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case ast.KindIdentifier, ast.KindArrayAccess, ast.KindMemberAccess:
		return true
	case ast.KindUnary:
		return n.Text() == "*"
	}
	return false
}
