package interpreter

import (
	"strconv"
	"strings"

	"github.com/opal-lang/sketchvm/core/ast"
	"github.com/opal-lang/sketchvm/core/invariant"
	"github.com/opal-lang/sketchvm/runtime/value"
)

// eval evaluates an expression. Runtime errors are reported and evaluate to
// void; so does everything while the interpreter is unwinding.
func (in *Interpreter) eval(n *ast.Node) value.Value {
	if n == nil || in.interrupted() {
		return value.Void()
	}

	switch n.Kind {
	case ast.KindNumber:
		return numberLiteral(n.Value)

	case ast.KindString:
		return value.String(n.Text())

	case ast.KindChar:
		return charLiteral(n.Text())

	case ast.KindIdentifier:
		return in.lookup(n.Text())

	case ast.KindConstant:
		if v, ok := in.reg.Constant(n.Text()); ok {
			return v
		}
		if v, ok := parseNumber(n.Text()); ok {
			return v
		}
		return in.lookup(n.Text())

	case ast.KindBinary:
		return in.evalBinary(n)

	case ast.KindUnary:
		return in.evalUnary(n)

	case ast.KindPostfix:
		return in.incDec(n.Operand, n.Text(), false)

	case ast.KindAssignment:
		return in.assign(n)

	case ast.KindCall:
		return in.call(n)

	case ast.KindMemberAccess:
		return in.evalMember(n)

	case ast.KindArrayAccess:
		return in.evalIndex(n)

	case ast.KindTernary:
		cond := in.eval(n.Cond)
		if in.interrupted() {
			return value.Void()
		}
		if cond.Truthy() {
			return in.eval(n.Then)
		}
		return in.eval(n.Else)

	case ast.KindComma:
		last := value.Void()
		for _, c := range n.Children {
			last = in.eval(c)
		}
		return last

	case ast.KindCast:
		return value.Coerce(in.eval(n.Operand), in.resolveType(castType(n)))

	case ast.KindSizeof:
		return value.Int(in.sizeof(n.Operand))

	case ast.KindArrayInit:
		elems := make([]value.Value, len(n.Children))
		for i, c := range n.Children {
			elems[i] = in.eval(c)
		}
		return value.ArrayOf("", elems...)

	case ast.KindExpressionStmt:
		return in.eval(n.Operand)

	case ast.KindType, ast.KindStructType, ast.KindError, ast.KindComment, ast.KindEmpty:
		return value.Void()
	}

	invariant.Invariant(false, "%s is not an expression", n.Kind)
	return value.Void()
}

// lookup resolves a name: variables first, then registry constants.
func (in *Interpreter) lookup(name string) value.Value {
	if v, ok := in.store.Lookup(name); ok {
		return v.Load()
	}
	if v, ok := in.reg.Constant(name); ok {
		return v
	}
	in.fail(ErrUndefinedVariable, "undefined variable '%s'", name)
	return value.Void()
}

func (in *Interpreter) evalBinary(n *ast.Node) value.Value {
	op := n.Text()
	left := in.eval(n.Left)
	if in.interrupted() {
		return value.Void()
	}

	switch op {
	case "&&":
		if !left.Truthy() {
			return value.Bool(false)
		}
		return value.Bool(in.eval(n.Right).Truthy())
	case "||":
		if left.Truthy() {
			return value.Bool(true)
		}
		return value.Bool(in.eval(n.Right).Truthy())
	}

	right := in.eval(n.Right)
	if in.interrupted() {
		return value.Void()
	}
	r, err := value.Binary(op, left, right)
	if err != nil {
		in.failWith(err, "operator "+op)
		return value.Void()
	}
	return r
}

func (in *Interpreter) evalUnary(n *ast.Node) value.Value {
	op := n.Text()
	switch op {
	case "++", "--":
		return in.incDec(n.Operand, op, true)

	case "&":
		lv, ok := in.lvalue(n.Operand)
		if !ok {
			return value.Void()
		}
		if lv.variable != nil {
			return value.Pointer(lv.variable.Target())
		}
		return value.Pointer(lv.ref)

	case "*":
		return in.deref(in.eval(n.Operand))
	}

	v := in.eval(n.Operand)
	if in.interrupted() {
		return value.Void()
	}
	r, err := value.Unary(op, v)
	if err != nil {
		in.failWith(err, "operator "+op)
		return value.Void()
	}
	return r
}

// deref loads what a pointer points at. An array dereferences to its first
// element.
func (in *Interpreter) deref(p value.Value) value.Value {
	switch {
	case in.interrupted():
		return value.Void()
	case p.Kind == value.KindPointer && p.Ptr != nil:
		return p.Ptr.Load()
	case p.Kind == value.KindArray && len(p.Array.Elems) > 0:
		return p.Array.Elems[0]
	case p.Kind == value.KindString && p.Str != "":
		return value.Char(p.Str[0])
	}
	in.fail(ErrInvalidMemberAccess, "cannot dereference %s", p.Kind)
	return value.Void()
}

func (in *Interpreter) evalMember(n *ast.Node) value.Value {
	obj := in.eval(n.Left)
	if in.interrupted() {
		return value.Void()
	}
	prop := memberName(n)
	if n.Text() == "->" {
		if obj.Kind != value.KindPointer || obj.Ptr == nil {
			in.fail(ErrInvalidMemberAccess, "'->%s' on non-pointer %s", prop, obj.Kind)
			return value.Void()
		}
		obj = obj.Ptr.Load()
	}

	switch obj.Kind {
	case value.KindStruct:
		if f, ok := obj.Struct.Fields[prop]; ok {
			return f
		}
		in.fail(ErrInvalidMemberAccess, "struct %s has no member '%s'", obj.Struct.Type, prop)
	case value.KindObject:
		if f, ok := obj.Object.State[prop]; ok {
			return f
		}
		in.fail(ErrInvalidMemberAccess, "%s has no member '%s'", obj.Object.Class, prop)
	default:
		in.fail(ErrInvalidMemberAccess, "cannot access member '%s' of %s", prop, obj.Kind)
	}
	return value.Void()
}

func (in *Interpreter) evalIndex(n *ast.Node) value.Value {
	base := in.eval(n.Left)
	idx := in.eval(n.Right)
	if in.interrupted() {
		return value.Void()
	}
	i := int(idx.AsInt())

	switch base.Kind {
	case value.KindArray:
		if i >= 0 && i < len(base.Array.Elems) {
			return base.Array.Elems[i]
		}
		in.fail(ErrInvalidArrayAccess, "index %d out of bounds for array of %d", i, len(base.Array.Elems))
	case value.KindString:
		switch {
		case i >= 0 && i < len(base.Str):
			return value.Char(base.Str[i])
		case i == len(base.Str):
			return value.Char(0)
		}
		in.fail(ErrInvalidArrayAccess, "index %d out of bounds for string of length %d", i, len(base.Str))
	case value.KindPointer:
		if elem, ok := base.Ptr.(*value.ElemRef); ok {
			at := elem.Offset(i)
			if at.Index >= 0 && at.Index < len(at.Array.Elems) {
				return at.Load()
			}
			in.fail(ErrInvalidArrayAccess, "index %d out of bounds for array of %d", at.Index, len(at.Array.Elems))
			return value.Void()
		}
		if i == 0 && base.Ptr != nil {
			return base.Ptr.Load()
		}
		in.fail(ErrInvalidArrayAccess, "cannot index pointer to %s", describe(base.Ptr))
	default:
		in.fail(ErrInvalidArrayAccess, "cannot index %s", base.Kind)
	}
	return value.Void()
}

// sizeof computes sizeof for a type node, a variable or an expression.
func (in *Interpreter) sizeof(n *ast.Node) int32 {
	if n == nil {
		return 0
	}
	switch n.Kind {
	case ast.KindType, ast.KindStructType:
		typ := in.resolveType(n.Text())
		if fields, ok := in.structs[typ]; ok {
			return int32(2 * len(fields))
		}
		return value.SizeOf(typ)
	case ast.KindIdentifier:
		if v, ok := in.store.Lookup(n.Text()); ok {
			return sizeOfValue(v.Load(), v.Type)
		}
		typ := in.resolveType(n.Text())
		if value.IsScalarType(typ) {
			return value.SizeOf(typ)
		}
	}
	return sizeOfValue(in.eval(n), "")
}

func sizeOfValue(v value.Value, typ string) int32 {
	switch v.Kind {
	case value.KindArray:
		elem := v.Array.ElemType
		if elem == "" && len(v.Array.Elems) > 0 {
			return int32(len(v.Array.Elems)) * sizeOfValue(v.Array.Elems[0], "")
		}
		return int32(len(v.Array.Elems)) * value.SizeOf(elem)
	case value.KindString:
		return int32(len(v.Str)) + 1
	case value.KindStruct:
		var total int32
		for _, name := range v.Struct.Names {
			total += sizeOfValue(v.Struct.Fields[name], "")
		}
		return total
	case value.KindDouble:
		return 4
	case value.KindBool:
		return 1
	case value.KindPointer:
		return 2
	}
	if typ != "" {
		return value.SizeOf(typ)
	}
	if v.Char {
		return 1
	}
	return 2
}

// numberLiteral converts a Number payload. Parsers that keep the source text
// send it as a string, suffixes and all.
func numberLiteral(s ast.Scalar) value.Value {
	switch {
	case !s.Present:
		return value.Int(0)
	case s.IsFloat():
		return value.Double(s.Float)
	case s.Tag == ast.TagBool:
		return value.Bool(s.Int != 0)
	case s.Tag == ast.TagString:
		v, _ := parseNumber(s.Str)
		return v
	default:
		return value.Int(int32(s.AsInt64()))
	}
}

// parseNumber parses a C numeric literal: decimal, 0x hex, 0 octal, 0b
// binary, floats with exponents, and any u/l/f suffix.
func parseNumber(text string) (value.Value, bool) {
	t := strings.TrimSpace(text)
	isHex := strings.HasPrefix(strings.ToLower(t), "0x")
	for len(t) > 1 {
		c := t[len(t)-1] | 0x20
		if c == 'u' || c == 'l' || (c == 'f' && !isHex) {
			t = t[:len(t)-1]
			continue
		}
		break
	}
	if t == "" {
		return value.Void(), false
	}

	if n, err := strconv.ParseInt(t, 0, 64); err == nil {
		return value.Int(int32(n)), true
	}
	if n, err := strconv.ParseUint(t, 0, 64); err == nil {
		return value.Int(int32(uint32(n))), true
	}
	if !isHex {
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return value.Double(f), true
		}
	}
	return value.Void(), false
}

// charLiteral converts a character literal, with or without its quotes.
func charLiteral(text string) value.Value {
	s := text
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		return value.Char(0)
	}
	if s[0] == '\\' {
		r, _, _, err := strconv.UnquoteChar(s, '\'')
		if err == nil {
			return value.Char(byte(r))
		}
	}
	return value.Char(s[0])
}

func castType(n *ast.Node) string {
	if n.Type != nil {
		return n.Type.Text()
	}
	return n.Text()
}

func memberName(n *ast.Node) string {
	if n.Right == nil {
		return ""
	}
	return n.Right.Text()
}

func describe(r value.Ref) string {
	if r == nil {
		return "NULL"
	}
	return r.Describe()
}
