package ast

// Builders for hand-assembled trees. Tests and tools use them to produce the
// same shapes the external parser emits.

// Program creates the root node.
func Program(children ...*Node) *Node {
	return &Node{Kind: KindProgram, Children: children}
}

// TypeOf creates a Type node naming typ ("int", "const int", "Servo").
func TypeOf(typ string) *Node {
	return &Node{Kind: KindType, Value: Str(typ)}
}

// Declarator creates a plain declarator for name.
func Declarator(name string) *Node {
	return &Node{Kind: KindDeclarator, Value: Str(name)}
}

// Func creates a function definition with a compound body.
func Func(ret, name string, params []*Node, body ...*Node) *Node {
	return &Node{
		Kind:       KindFuncDef,
		Type:       TypeOf(ret),
		Declarator: Declarator(name),
		Params:     params,
		Body:       Block(body...),
	}
}

// Proto creates a function prototype.
func Proto(ret, name string, params ...*Node) *Node {
	return &Node{Kind: KindFuncDecl, Type: TypeOf(ret), Declarator: Declarator(name), Params: params}
}

// Param creates a function parameter.
func Param(typ, name string) *Node {
	return &Node{Kind: KindParam, Type: TypeOf(typ), Declarator: Declarator(name)}
}

// ParamDefault creates a parameter with a default value expression.
func ParamDefault(typ, name string, def *Node) *Node {
	p := Param(typ, name)
	p.Init = def
	return p
}

// Block creates a compound statement.
func Block(stmts ...*Node) *Node {
	return &Node{Kind: KindCompound, Children: stmts}
}

// Expr wraps an expression into an expression statement.
func Expr(e *Node) *Node {
	return &Node{Kind: KindExpressionStmt, Operand: e}
}

// Var declares a single variable; init may be nil.
func Var(typ, name string, init *Node) *Node {
	d := Declarator(name)
	d.Init = init
	return &Node{Kind: KindVarDecl, Type: TypeOf(typ), Children: []*Node{d}}
}

// VarArray declares an array; size and init may each be nil.
func VarArray(typ, name string, size, init *Node) *Node {
	d := &Node{Kind: KindArrayDeclarator, Value: Str(name), Init: init}
	if size != nil {
		d.Children = []*Node{size}
	}
	return &Node{Kind: KindVarDecl, Type: TypeOf(typ), Children: []*Node{d}}
}

// VarPointer declares a pointer variable.
func VarPointer(typ, name string, init *Node) *Node {
	d := &Node{Kind: KindPointerDeclarator, Flags: FlagPointer, Value: Str(name), Init: init}
	return &Node{Kind: KindVarDecl, Type: TypeOf(typ), Children: []*Node{d}}
}

// Ident creates an identifier reference.
func Ident(name string) *Node {
	return &Node{Kind: KindIdentifier, Value: Str(name)}
}

// Num creates an integer literal.
func Num(v int32) *Node {
	return &Node{Kind: KindNumber, Value: Int32(v)}
}

// Float creates a floating point literal.
func Float(v float64) *Node {
	return &Node{Kind: KindNumber, Value: Float64(v)}
}

// StrLit creates a string literal.
func StrLit(s string) *Node {
	return &Node{Kind: KindString, Value: Str(s)}
}

// CharLit creates a character literal.
func CharLit(c rune) *Node {
	return &Node{Kind: KindChar, Value: Str(string(c))}
}

// Const creates a named constant such as HIGH or true.
func Const(name string) *Node {
	return &Node{Kind: KindConstant, Value: Str(name)}
}

// Bin creates a binary expression.
func Bin(op string, left, right *Node) *Node {
	return &Node{Kind: KindBinary, Value: Str(op), Left: left, Right: right}
}

// Un creates a prefix unary expression (-, !, ~, ++, --, &, *).
func Un(op string, x *Node) *Node {
	return &Node{Kind: KindUnary, Value: Str(op), Operand: x}
}

// Post creates a postfix ++ or --.
func Post(op string, x *Node) *Node {
	return &Node{Kind: KindPostfix, Value: Str(op), Operand: x}
}

// Assign creates an assignment; op is "=" or a compound operator like "+=".
func Assign(op string, target, value *Node) *Node {
	return &Node{Kind: KindAssignment, Value: Str(op), Left: target, Right: value}
}

// Set is shorthand for the statement name = value;.
func Set(name string, value *Node) *Node {
	return Expr(Assign("=", Ident(name), value))
}

// Call creates a call to a named function.
func Call(name string, args ...*Node) *Node {
	return &Node{Kind: KindCall, Left: Ident(name), Children: args}
}

// Member creates obj.prop.
func Member(obj *Node, prop string) *Node {
	return &Node{Kind: KindMemberAccess, Value: Str("."), Left: obj, Right: Ident(prop)}
}

// Arrow creates obj->prop.
func Arrow(obj *Node, prop string) *Node {
	return &Node{Kind: KindMemberAccess, Value: Str("->"), Left: obj, Right: Ident(prop)}
}

// MethodCall creates obj.method(args...).
func MethodCall(obj, method string, args ...*Node) *Node {
	return &Node{Kind: KindCall, Left: Member(Ident(obj), method), Children: args}
}

// Index creates arr[idx].
func Index(arr, idx *Node) *Node {
	return &Node{Kind: KindArrayAccess, Left: arr, Right: idx}
}

// If creates an if statement; els may be nil.
func If(cond, then, els *Node) *Node {
	return &Node{Kind: KindIf, Cond: cond, Then: then, Else: els}
}

// While creates a while loop.
func While(cond, body *Node) *Node {
	return &Node{Kind: KindWhile, Cond: cond, Body: body}
}

// DoWhile creates a do-while loop.
func DoWhile(body, cond *Node) *Node {
	return &Node{Kind: KindDoWhile, Body: body, Cond: cond}
}

// For creates a for loop. Any clause may be nil.
func For(init, cond, update, body *Node) *Node {
	return &Node{Kind: KindFor, Init: init, Cond: cond, Update: update, Body: body}
}

// RangeFor creates for (decl : rng) body.
func RangeFor(decl, rng, body *Node) *Node {
	return &Node{Kind: KindRangeFor, Init: decl, Operand: rng, Body: body}
}

// Switch creates a switch statement over cases.
func Switch(disc *Node, cases ...*Node) *Node {
	return &Node{Kind: KindSwitch, Cond: disc, Children: cases}
}

// Case creates case label: body...
func Case(label *Node, body ...*Node) *Node {
	return &Node{Kind: KindCase, Operand: label, Children: body}
}

// Default creates default: body...
func Default(body ...*Node) *Node {
	return &Node{Kind: KindCase, Flags: FlagDefaultCase, Children: body}
}

// Return creates a return statement; value may be nil.
func Return(value *Node) *Node {
	return &Node{Kind: KindReturn, Operand: value}
}

// Break creates a break statement.
func Break() *Node { return New(KindBreak) }

// Continue creates a continue statement.
func Continue() *Node { return New(KindContinue) }

// Ternary creates cond ? a : b.
func Ternary(cond, a, b *Node) *Node {
	return &Node{Kind: KindTernary, Cond: cond, Then: a, Else: b}
}

// Comma creates a comma expression.
func Comma(exprs ...*Node) *Node {
	return &Node{Kind: KindComma, Children: exprs}
}

// ArrayInit creates a brace initializer list.
func ArrayInit(elems ...*Node) *Node {
	return &Node{Kind: KindArrayInit, Children: elems}
}

// Cast creates (typ)x.
func Cast(typ string, x *Node) *Node {
	return &Node{Kind: KindCast, Value: Str(typ), Operand: x}
}

// Sizeof creates sizeof(x); x may be a Type node.
func Sizeof(x *Node) *Node {
	return &Node{Kind: KindSizeof, Operand: x}
}

// Struct declares a struct type with member declarations.
func Struct(name string, members ...*Node) *Node {
	return &Node{Kind: KindStructDecl, Value: Str(name), Children: members}
}

// Typedef declares alias as a name for typ.
func Typedef(typ, alias string) *Node {
	return &Node{Kind: KindTypedef, Value: Str(alias), Type: TypeOf(typ)}
}

// Comment creates a comment node.
func Comment(text string) *Node {
	return &Node{Kind: KindComment, Value: Str(text)}
}
