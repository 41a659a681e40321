// Package ast is the node model shared by the decoder, the encoder and the
// interpreter.
//
// A tree is made of *Node values. Every node has a Kind, an optional Scalar
// payload and a set of structured slots that the linking pass of the decoder
// binds from the wire child list. Which slots a kind uses:
//
//	FuncDef, FuncDecl   Type, Declarator, Params, Body (FuncDef only)
//	VarDecl             Type, Children (declarators, each with its own Init)
//	Param               Type, Declarator, Init (default value)
//	Declarator,
//	PointerDeclarator   Init
//	ArrayDeclarator     Children (dimensions), Init
//	If, Ternary         Cond, Then, Else
//	While               Cond, Body
//	DoWhile             Body, Cond
//	For                 Init, Cond, Update, Body
//	RangeFor            Init (loop variable), Operand (range), Body
//	Switch              Cond, Children (cases)
//	Case                Operand (label, absent on default), Children (body)
//	Binary, Assignment  Left, Right (Value holds the operator)
//	MemberAccess        Left (object), Right (property identifier)
//	ArrayAccess         Left (array), Right (index)
//	Call                Left (callee), Children (arguments)
//	Unary, Postfix      Operand (Value holds the operator)
//	ExpressionStmt,
//	Return, Cast,
//	Sizeof              Operand
//	Typedef             Type, Children
//
// Children left over after the slots are bound stay in Children, in wire
// order. Kinds without slots keep all their children there.
package ast

// Node is one element of the tree.
type Node struct {
	Kind  Kind
	Flags Flags
	Value Scalar

	Type       *Node
	Declarator *Node
	Params     []*Node
	Body       *Node
	Cond       *Node
	Then       *Node
	Else       *Node
	Init       *Node
	Update     *Node
	Left       *Node
	Right      *Node
	Operand    *Node

	Children []*Node
}

// New returns a node of the given kind without a payload.
func New(kind Kind) *Node {
	return &Node{Kind: kind}
}

// Text returns the string payload, or "" when the node has none.
func (n *Node) Text() string {
	if n == nil || !n.Value.Present || n.Value.Tag != TagString {
		return ""
	}
	return n.Value.Str
}

// IsDefault reports whether a Case node is the default label.
func (n *Node) IsDefault() bool {
	return n.Flags&FlagDefaultCase != 0
}

// Name returns the declared name of a declaration-like node: the declarator
// name of functions and parameters, the payload of declarators, identifiers,
// struct declarations and typedefs.
func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindFuncDef, KindFuncDecl, KindParam:
		return n.Declarator.Name()
	default:
		return n.Text()
	}
}

// TypeName returns the type name held by the Type slot, or "" when absent.
func (n *Node) TypeName() string {
	if n == nil || n.Type == nil {
		return ""
	}
	return n.Type.Text()
}

// Slots returns every child of n exactly once, in wire order: structured
// slots in the order the linker binds them, then Children. Array declarators
// list their dimensions before their initializer.
func (n *Node) Slots() []*Node {
	var out []*Node
	add := func(nodes ...*Node) {
		for _, c := range nodes {
			if c != nil {
				out = append(out, c)
			}
		}
	}

	switch n.Kind {
	case KindFuncDef, KindFuncDecl:
		add(n.Type, n.Declarator)
		add(n.Params...)
		add(n.Body)
	case KindVarDecl, KindTypedef:
		add(n.Type)
	case KindParam:
		add(n.Type, n.Declarator, n.Init)
	case KindDeclarator, KindPointerDeclarator:
		add(n.Init)
	case KindArrayDeclarator:
		add(n.Children...)
		add(n.Init)
		return out
	case KindIf, KindTernary:
		add(n.Cond, n.Then, n.Else)
	case KindWhile:
		add(n.Cond, n.Body)
	case KindDoWhile:
		add(n.Body, n.Cond)
	case KindFor:
		add(n.Init, n.Cond, n.Update, n.Body)
	case KindRangeFor:
		add(n.Init, n.Operand, n.Body)
	case KindSwitch:
		add(n.Cond)
	case KindBinary, KindAssignment, KindMemberAccess, KindArrayAccess:
		add(n.Left, n.Right)
	case KindCall:
		add(n.Left)
	case KindCase, KindUnary, KindPostfix, KindExpressionStmt, KindReturn, KindCast, KindSizeof:
		add(n.Operand)
	}
	add(n.Children...)
	return out
}

// Walk visits n and every node below it in pre-order. Returning false from fn
// skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Slots() {
		Walk(c, fn)
	}
}

// Count returns the number of nodes in the tree rooted at n.
func Count(n *Node) int {
	total := 0
	Walk(n, func(*Node) bool {
		total++
		return true
	})
	return total
}

// FindFunction returns the first function definition named name among the
// root's top-level children, or nil.
func FindFunction(root *Node, name string) *Node {
	if root == nil {
		return nil
	}
	for _, c := range root.Children {
		if c.Kind == KindFuncDef && c.Name() == name {
			return c
		}
	}
	return nil
}

// FunctionNames lists the names of all function definitions under root.
func FunctionNames(root *Node) []string {
	var names []string
	if root == nil {
		return names
	}
	for _, c := range root.Children {
		if c.Kind == KindFuncDef {
			names = append(names, c.Name())
		}
	}
	return names
}
