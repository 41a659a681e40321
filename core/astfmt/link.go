package astfmt

import "github.com/opal-lang/sketchvm/core/ast"

// link resolves child indices into pointers and binds structured slots.
// Parents are processed from the highest index down so every child is fully
// bound before its parent looks at it.
func (d *decoder) link() error {
	owner := make([]int, len(d.nodes))
	for i := range owner {
		owner[i] = -1
	}

	for p := len(d.nodes) - 1; p >= 0; p-- {
		idx := d.kids[p]
		if len(idx) == 0 {
			continue
		}
		kids := make([]*ast.Node, 0, len(idx))
		for _, c := range idx {
			ci := int(c)
			switch {
			case ci >= len(d.nodes):
				return corrupt(d.offsets[p], p, "child index %d out of range (%d nodes)", ci, len(d.nodes))
			case ci <= p:
				return corrupt(d.offsets[p], p, "child index %d does not point forward", ci)
			case owner[ci] >= 0:
				return corrupt(d.offsets[p], p, "child %d already owned by node %d", ci, owner[ci])
			}
			owner[ci] = p
			kids = append(kids, d.nodes[ci])
		}
		bind(d.nodes[p], kids)
	}

	for i := 1; i < len(d.nodes); i++ {
		if owner[i] < 0 {
			return corrupt(d.offsets[i], i, "orphan node %s", d.nodes[i].Kind)
		}
	}
	return nil
}

// bind distributes kids over n's slots.
func bind(n *ast.Node, kids []*ast.Node) {
	next := func() *ast.Node {
		if len(kids) == 0 {
			return nil
		}
		c := kids[0]
		kids = kids[1:]
		return c
	}

	switch n.Kind {
	case ast.KindFuncDef, ast.KindFuncDecl:
		bindFunction(n, kids)
		return
	case ast.KindVarDecl:
		bindVarDecl(n, kids)
		return
	case ast.KindParam:
		bindParam(n, kids)
		return
	case ast.KindTypedef:
		if len(kids) > 0 && kids[0].Kind.IsTypeKind() {
			n.Type = next()
		}
	case ast.KindDeclarator, ast.KindPointerDeclarator:
		n.Init = next()
	case ast.KindArrayDeclarator:
		for _, c := range kids {
			if c.Kind == ast.KindArrayInit && n.Init == nil {
				n.Init = c
				continue
			}
			n.Children = append(n.Children, c)
		}
		return
	case ast.KindIf, ast.KindTernary:
		n.Cond, n.Then, n.Else = next(), next(), next()
	case ast.KindWhile:
		n.Cond, n.Body = next(), next()
	case ast.KindDoWhile:
		n.Body, n.Cond = next(), next()
	case ast.KindFor:
		n.Init, n.Cond, n.Update, n.Body = clause(next()), clause(next()), clause(next()), next()
	case ast.KindRangeFor:
		n.Init, n.Operand, n.Body = next(), next(), next()
	case ast.KindSwitch:
		n.Cond = next()
	case ast.KindCase:
		if !n.IsDefault() {
			n.Operand = next()
		}
	case ast.KindBinary, ast.KindAssignment, ast.KindMemberAccess, ast.KindArrayAccess:
		n.Left, n.Right = next(), next()
	case ast.KindCall:
		n.Left = next()
	case ast.KindUnary, ast.KindPostfix, ast.KindExpressionStmt, ast.KindReturn, ast.KindCast, ast.KindSizeof:
		n.Operand = next()
	}
	n.Children = append(n.Children, kids...)
}

// clause drops the Empty placeholder the encoder writes for an omitted for
// clause.
func clause(n *ast.Node) *ast.Node {
	if n != nil && n.Kind == ast.KindEmpty {
		return nil
	}
	return n
}

func bindFunction(n *ast.Node, kids []*ast.Node) {
	for _, c := range kids {
		switch {
		case c.Kind.IsTypeKind() && n.Type == nil:
			n.Type = c
		case c.Kind.IsDeclaratorKind() && n.Declarator == nil:
			n.Declarator = c
		case c.Kind == ast.KindParam:
			n.Params = append(n.Params, c)
		case c.Kind == ast.KindCompound && n.Kind == ast.KindFuncDef && n.Body == nil:
			n.Body = c
		default:
			n.Children = append(n.Children, c)
		}
	}
}

// bindVarDecl attaches an initializer that follows a declarator to that
// declarator.
func bindVarDecl(n *ast.Node, kids []*ast.Node) {
	var last *ast.Node
	for _, c := range kids {
		switch {
		case c.Kind.IsTypeKind() && n.Type == nil && last == nil:
			n.Type = c
		case c.Kind.IsDeclaratorKind():
			n.Children = append(n.Children, c)
			last = c
		case last != nil && last.Init == nil:
			last.Init = c
		default:
			n.Children = append(n.Children, c)
		}
	}
}

func bindParam(n *ast.Node, kids []*ast.Node) {
	for _, c := range kids {
		switch {
		case c.Kind.IsTypeKind() && n.Type == nil:
			n.Type = c
		case c.Kind.IsDeclaratorKind() && n.Declarator == nil:
			n.Declarator = c
		case n.Init == nil && !c.Kind.IsTypeKind() && !c.Kind.IsDeclaratorKind():
			n.Init = c
		default:
			n.Children = append(n.Children, c)
		}
	}
}
