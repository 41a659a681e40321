package interpreter

import (
	"strings"

	"github.com/opal-lang/sketchvm/core/ast"
	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/scope"
	"github.com/opal-lang/sketchvm/runtime/value"
)

// maxArrayLen bounds declared array sizes.
const maxArrayLen = 1 << 16

// structField is one member of a declared struct type.
type structField struct {
	name string
	typ  string
	decl *ast.Node
}

// declare executes a VarDecl: every declarator becomes a variable in the
// current scope.
func (in *Interpreter) declare(n *ast.Node) {
	if t := n.Type; t != nil && t.Kind == ast.KindStructType && len(t.Children) > 0 {
		in.declareStruct(t.Text(), t.Children)
	}
	typ := in.resolveType(n.TypeName())
	for _, d := range n.Children {
		if !d.Kind.IsDeclaratorKind() {
			continue
		}
		in.declareOne(typ, d)
		if in.interrupted() {
			return
		}
	}
}

func (in *Interpreter) declareOne(typ string, d *ast.Node) {
	name := d.Text()
	typ = declaredType(typ, d)
	ti := value.ParseType(typ)

	if v, ok := in.statics[d]; ok {
		in.store.Declare(v)
		return
	}

	if ti.Reference {
		if d.Init == nil {
			in.fail(ErrUnsupportedAssign, "reference '%s' must be initialized", name)
			return
		}
		lv, ok := in.lvalue(d.Init)
		if !ok {
			return
		}
		target := lv.ref
		if lv.variable != nil {
			target = lv.variable.Target()
		}
		in.store.Declare(scope.NewReference(name, typ, target))
		return
	}

	val := in.initialValue(typ, d)
	if in.interrupted() {
		return
	}
	v := in.store.Declare(scope.NewVariable(name, typ, val))
	if ti.Static {
		in.statics[d] = v
	}
	in.traceSet(name, val)
}

// declaredType adds the pointer and reference marks a declarator carries to
// the base type of its declaration.
func declaredType(typ string, d *ast.Node) string {
	ti := value.ParseType(typ)
	if (d.Kind == ast.KindPointerDeclarator || d.Flags&ast.FlagPointer != 0) && !ti.Pointer {
		typ += "*"
	}
	if d.Flags&ast.FlagReference != 0 && !ti.Reference {
		typ += "&"
	}
	return typ
}

// initialValue computes the value a declarator starts with.
func (in *Interpreter) initialValue(typ string, d *ast.Node) value.Value {
	ti := value.ParseType(typ)
	switch {
	case d.Kind == ast.KindArrayDeclarator:
		return in.arrayValue(ti, d)
	case ti.Pointer:
	case in.reg.IsClass(ti.Base):
		return in.newObject(ti.Base, d.Text(), d.Init)
	case in.isStruct(ti.Base):
		return in.structValue(ti.Base, d.Init)
	}

	if d.Init == nil {
		return value.Zero(typ)
	}
	init := in.eval(d.Init)
	if ti.Pointer {
		switch {
		case init.Kind == value.KindArray:
			return value.Pointer(&value.ElemRef{Array: init.Array, Name: d.Text()})
		case init.Kind != value.KindPointer && !ti.IsString() && init.AsInt() == 0:
			return value.Pointer(nil)
		}
	}
	return value.Coerce(init, typ)
}

// arrayValue builds an array from the declarator dimensions and initializer.
func (in *Interpreter) arrayValue(ti value.TypeInfo, d *ast.Node) value.Value {
	elem := ti.Base
	if ti.Pointer {
		elem += "*"
	}
	dims := make([]int, len(d.Children))
	for i, c := range d.Children {
		dims[i] = int(in.eval(c).AsInt())
	}
	if in.interrupted() {
		return value.Void()
	}

	if init := d.Init; init != nil && init.Kind == ast.KindString && ti.Base == "char" && !ti.Pointer {
		s := init.Text()
		n := len(s) + 1
		if len(dims) > 0 && dims[0] > n {
			n = dims[0]
		}
		arr := value.NewArray("char", n)
		for i := range arr.Array.Elems {
			c := byte(0)
			if i < len(s) {
				c = s[i]
			}
			arr.Array.Elems[i] = value.Char(c)
		}
		return arr
	}
	return in.buildArray(elem, dims, d.Init)
}

func (in *Interpreter) buildArray(elem string, dims []int, init *ast.Node) value.Value {
	var items []*ast.Node
	switch {
	case init == nil:
	case init.Kind == ast.KindArrayInit:
		items = init.Children
	default:
		if v := in.eval(init); v.Kind == value.KindArray {
			return v
		}
	}

	n := len(items)
	if len(dims) > 0 && dims[0] > 0 {
		n = dims[0]
	}
	if n < 0 || n > maxArrayLen {
		in.fail(ErrInvalidArrayAccess, "invalid array size %d", n)
		return value.Void()
	}

	elemType := elem
	if len(dims) > 1 {
		elemType = ""
	}
	arr := value.NewArray(elemType, n)
	for i := range arr.Array.Elems {
		var item *ast.Node
		if i < len(items) {
			item = items[i]
		}
		switch {
		case len(dims) > 1:
			arr.Array.Elems[i] = in.buildArray(elem, dims[1:], item)
		case in.isStruct(elem):
			arr.Array.Elems[i] = in.structValue(elem, item)
		case item != nil:
			arr.Array.Elems[i] = value.Coerce(in.eval(item), elem)
		default:
			arr.Array.Elems[i] = value.Zero(elem)
		}
	}
	return arr
}

// newObject creates a library class instance. Constructor arguments are
// kept in the object state and reported as a call to the class name.
func (in *Interpreter) newObject(class, name string, init *ast.Node) value.Value {
	var argNodes []*ast.Node
	switch {
	case init == nil:
	case init.Kind == ast.KindArrayInit, init.Kind == ast.KindComma:
		argNodes = init.Children
	default:
		argNodes = []*ast.Node{init}
	}
	args := in.evalArgs(argNodes)
	if in.interrupted() {
		return value.Void()
	}

	obj := value.NewObject(class, name)
	obj.Object.State["args"] = value.ArrayOf("", args...)
	native := make([]any, len(args))
	for i, a := range args {
		native[i] = a.Native()
	}
	in.emit(command.LibraryMethodCall{Library: class, Object: name, Method: class, Args: native})
	return obj
}

func (in *Interpreter) isStruct(typ string) bool {
	_, ok := in.structs[typ]
	return ok
}

// structValue creates a struct instance. A brace initializer sets fields in
// declaration order; any other initializer must be a struct to copy.
func (in *Interpreter) structValue(typ string, init *ast.Node) value.Value {
	fields := in.structs[typ]
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	s := value.NewStruct(typ, names)

	for _, f := range fields {
		d := *f.decl
		d.Init = nil
		s.Struct.Fields[f.name] = in.initialValue(declaredType(f.typ, &d), &d)
	}

	switch {
	case init == nil:
	case init.Kind == ast.KindArrayInit:
		for i, c := range init.Children {
			if i >= len(fields) {
				break
			}
			f := fields[i]
			if c.Kind == ast.KindArrayInit && in.isStruct(f.typ) {
				s.Struct.Fields[f.name] = in.structValue(f.typ, c)
				continue
			}
			s.Struct.Fields[f.name] = value.Coerce(in.eval(c), f.typ)
		}
	default:
		if v := in.eval(init); v.Kind == value.KindStruct {
			return v.Clone()
		}
	}
	return s
}

// declareStruct records the member layout of a struct type.
func (in *Interpreter) declareStruct(name string, members []*ast.Node) {
	if name == "" {
		return
	}
	var fields []structField
	for _, m := range members {
		if m.Kind != ast.KindVarDecl {
			continue
		}
		typ := in.resolveType(m.TypeName())
		for _, d := range m.Children {
			if d.Kind.IsDeclaratorKind() {
				fields = append(fields, structField{name: d.Text(), typ: typ, decl: d})
			}
		}
	}
	in.structs[name] = fields
}

// declareTypedef records an alias. typedef struct {...} Name declares the
// struct under the alias.
func (in *Interpreter) declareTypedef(n *ast.Node) {
	alias := n.Text()
	if alias == "" {
		for _, c := range n.Children {
			if c.Kind.IsDeclaratorKind() || c.Kind == ast.KindIdentifier {
				alias = c.Text()
				break
			}
		}
	}
	if alias == "" || n.Type == nil {
		return
	}
	if t := n.Type; t.Kind == ast.KindStructType && len(t.Children) > 0 {
		in.declareStruct(alias, t.Children)
		if t.Text() != "" && t.Text() != alias {
			in.declareStruct(t.Text(), t.Children)
		}
		return
	}
	in.typedefs[alias] = n.Type.Text()
}

// resolveType expands typedef aliases in a type name, keeping qualifiers
// and pointer or reference marks.
func (in *Interpreter) resolveType(typ string) string {
	for range 8 {
		ti := value.ParseType(typ)
		alias, ok := in.typedefs[ti.Base]
		if !ok {
			return typ
		}
		var parts []string
		if ti.Static {
			parts = append(parts, "static")
		}
		if ti.Const {
			parts = append(parts, "const")
		}
		typ = strings.Join(append(parts, alias), " ")
		if ti.Pointer {
			typ += "*"
		}
		if ti.Reference {
			typ += "&"
		}
	}
	return typ
}
