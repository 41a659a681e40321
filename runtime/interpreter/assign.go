package interpreter

import (
	"fmt"
	"strings"

	"github.com/opal-lang/sketchvm/core/ast"
	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/scope"
	"github.com/opal-lang/sketchvm/runtime/value"
)

// lvalue is an assignable location.
type lvalue struct {
	ref      value.Ref
	name     string
	variable *scope.Variable // set when the location is a named variable
}

func (lv lvalue) isConst() bool {
	return lv.variable != nil && lv.variable.Const
}

// lvalue resolves an assignment target. It reports the error itself and
// returns false when n does not name a location.
func (in *Interpreter) lvalue(n *ast.Node) (lvalue, bool) {
	if n == nil {
		in.fail(ErrUnsupportedAssign, "missing assignment target")
		return lvalue{}, false
	}

	switch n.Kind {
	case ast.KindIdentifier:
		name := n.Text()
		v, ok := in.store.Lookup(name)
		if !ok {
			in.fail(ErrUndefinedVariable, "undefined variable '%s'", name)
			return lvalue{}, false
		}
		return lvalue{ref: v, name: name, variable: v}, true

	case ast.KindArrayAccess:
		return in.indexLvalue(n)

	case ast.KindMemberAccess:
		return in.memberLvalue(n)

	case ast.KindUnary:
		if n.Text() != "*" {
			break
		}
		p := in.eval(n.Operand)
		switch {
		case in.interrupted():
			return lvalue{}, false
		case p.Kind == value.KindPointer && p.Ptr != nil:
			return lvalue{ref: p.Ptr, name: p.Ptr.Describe()}, true
		case p.Kind == value.KindArray && len(p.Array.Elems) > 0:
			ref := &value.ElemRef{Array: p.Array, Name: "*"}
			return lvalue{ref: ref, name: ref.Describe()}, true
		}
		in.fail(ErrInvalidMemberAccess, "cannot dereference %s", p.Kind)
		return lvalue{}, false
	}

	in.fail(ErrUnsupportedAssign, "cannot assign to %s", n.Kind)
	return lvalue{}, false
}

func (in *Interpreter) indexLvalue(n *ast.Node) (lvalue, bool) {
	base := in.eval(n.Left)
	i := int(in.eval(n.Right).AsInt())
	if in.interrupted() {
		return lvalue{}, false
	}
	name := fmt.Sprintf("%s[%d]", nodeName(n.Left), i)

	switch base.Kind {
	case value.KindArray:
		if i < 0 || i >= len(base.Array.Elems) {
			in.fail(ErrInvalidArrayAccess, "index %d out of bounds for array of %d", i, len(base.Array.Elems))
			return lvalue{}, false
		}
		return lvalue{ref: &value.ElemRef{Array: base.Array, Index: i, Name: nodeName(n.Left)}, name: name}, true

	case value.KindString:
		if i < 0 || i >= len(base.Str) {
			in.fail(ErrInvalidArrayAccess, "index %d out of bounds for string of length %d", i, len(base.Str))
			return lvalue{}, false
		}
		str, ok := in.lvalue(n.Left)
		if !ok {
			return lvalue{}, false
		}
		return lvalue{ref: &charRef{str: str.ref, index: i}, name: name, variable: str.variable}, true

	case value.KindPointer:
		if elem, ok := base.Ptr.(*value.ElemRef); ok {
			at := elem.Offset(i)
			if at.Index < 0 || at.Index >= len(at.Array.Elems) {
				in.fail(ErrInvalidArrayAccess, "index %d out of bounds for array of %d", at.Index, len(at.Array.Elems))
				return lvalue{}, false
			}
			return lvalue{ref: at, name: at.Describe()}, true
		}
		if i == 0 && base.Ptr != nil {
			return lvalue{ref: base.Ptr, name: base.Ptr.Describe()}, true
		}
	}
	in.fail(ErrInvalidArrayAccess, "cannot index %s", base.Kind)
	return lvalue{}, false
}

func (in *Interpreter) memberLvalue(n *ast.Node) (lvalue, bool) {
	obj := in.eval(n.Left)
	if in.interrupted() {
		return lvalue{}, false
	}
	prop := memberName(n)
	if n.Text() == "->" && obj.Kind == value.KindPointer && obj.Ptr != nil {
		obj = obj.Ptr.Load()
	}

	switch obj.Kind {
	case value.KindStruct:
		if _, ok := obj.Struct.Fields[prop]; ok {
			ref := &value.FieldRef{Struct: obj.Struct, Field: prop, Name: nodeName(n.Left)}
			return lvalue{ref: ref, name: ref.Describe()}, true
		}
		in.fail(ErrInvalidMemberAccess, "struct %s has no member '%s'", obj.Struct.Type, prop)
	case value.KindObject:
		ref := &stateRef{obj: obj.Object, key: prop}
		return lvalue{ref: ref, name: ref.Describe()}, true
	default:
		in.fail(ErrInvalidMemberAccess, "cannot access member '%s' of %s", prop, obj.Kind)
	}
	return lvalue{}, false
}

// assign evaluates =, +=, -= and the other compound assignments.
func (in *Interpreter) assign(n *ast.Node) value.Value {
	op := n.Text()
	if op == "" {
		op = "="
	}
	lv, ok := in.lvalue(n.Left)
	if !ok {
		return value.Void()
	}
	if lv.isConst() {
		in.fail(ErrConstAssignment, "cannot assign to const variable '%s'", lv.variable.Name)
		return value.Void()
	}

	rhs := in.eval(n.Right)
	if in.interrupted() {
		return value.Void()
	}
	if op != "=" {
		r, err := value.Binary(strings.TrimSuffix(op, "="), lv.ref.Load(), rhs)
		if err != nil {
			in.failWith(err, "operator "+op)
			return value.Void()
		}
		rhs = r
	}
	return in.storeTo(lv, rhs)
}

// incDec applies ++ or -- to the location n names and returns the new value
// for prefix forms and the old one for postfix forms.
func (in *Interpreter) incDec(n *ast.Node, op string, prefix bool) value.Value {
	lv, ok := in.lvalue(n)
	if !ok {
		return value.Void()
	}
	if lv.isConst() {
		in.fail(ErrConstAssignment, "cannot assign to const variable '%s'", lv.variable.Name)
		return value.Void()
	}

	old := lv.ref.Load()
	next, err := value.Binary(op[:1], old, value.Int(1))
	if err != nil {
		in.failWith(err, "operator "+op)
		return value.Void()
	}
	v := in.storeTo(lv, next)
	if prefix {
		return v
	}
	return old
}

// storeTo writes v and returns the stored value after coercion.
func (in *Interpreter) storeTo(lv lvalue, v value.Value) value.Value {
	if lv.isConst() {
		in.fail(ErrConstAssignment, "cannot assign to const variable '%s'", lv.variable.Name)
		return value.Void()
	}
	lv.ref.Store(v)
	stored := lv.ref.Load()
	in.traceSet(lv.name, stored)
	return stored
}

func (in *Interpreter) traceSet(name string, v value.Value) {
	if in.cfg.TraceVariables {
		in.emit(command.VarSet{Name: name, Value: v.Native()})
	}
}

// charRef addresses one character of a String variable.
type charRef struct {
	str   value.Ref
	index int
}

func (r *charRef) Load() value.Value {
	s := r.str.Load().AsString()
	if r.index < 0 || r.index >= len(s) {
		return value.Char(0)
	}
	return value.Char(s[r.index])
}

func (r *charRef) Store(v value.Value) {
	b := []byte(r.str.Load().AsString())
	if r.index < 0 || r.index >= len(b) {
		return
	}
	b[r.index] = byte(v.AsInt())
	r.str.Store(value.String(string(b)))
}

func (r *charRef) Describe() string {
	return fmt.Sprintf("%s[%d]", r.str.Describe(), r.index)
}

// stateRef addresses a member of a library object.
type stateRef struct {
	obj *value.Object
	key string
}

func (r *stateRef) Load() value.Value   { return r.obj.State[r.key] }
func (r *stateRef) Store(v value.Value) { r.obj.State[r.key] = v.Clone() }
func (r *stateRef) Describe() string    { return r.obj.Name + "." + r.key }

// nodeName renders a short name for the location an expression denotes.
func nodeName(n *ast.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case ast.KindIdentifier:
		return n.Text()
	case ast.KindMemberAccess:
		return nodeName(n.Left) + "." + memberName(n)
	case ast.KindArrayAccess:
		return nodeName(n.Left) + "[]"
	}
	return n.Kind.String()
}
