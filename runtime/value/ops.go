package value

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrDivisionByZero  = errors.New("division by zero")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrInvalidOperand  = errors.New("invalid operand")
)

// Binary applies a binary operator. Int arithmetic wraps at 32 bits; a
// double operand promotes the other side; a String operand turns + into
// concatenation and comparisons into text comparisons. && and || here do not
// short-circuit; callers that need that evaluate the right side lazily.
func Binary(op string, a, b Value) (Value, error) {
	switch op {
	case "&&":
		return Bool(a.Truthy() && b.Truthy()), nil
	case "||":
		return Bool(a.Truthy() || b.Truthy()), nil
	}

	switch {
	case a.Kind == KindPointer || b.Kind == KindPointer:
		return pointerOp(op, a, b)
	case a.Kind == KindString || b.Kind == KindString:
		return stringOp(op, a, b)
	case !a.IsNumeric() || !b.IsNumeric():
		return referenceOp(op, a, b)
	case (a.Kind == KindDouble || b.Kind == KindDouble) && !intOnly(op):
		return doubleOp(op, a.AsDouble(), b.AsDouble())
	default:
		return intOp(op, a.AsInt(), b.AsInt())
	}
}

// Unary applies a prefix operator that does not need an lvalue.
func Unary(op string, v Value) (Value, error) {
	switch op {
	case "!":
		return Bool(!v.Truthy()), nil
	case "-":
		if v.Kind == KindDouble {
			return Double(-v.Double), nil
		}
		return Int(-v.AsInt()), nil
	case "+":
		if v.Kind == KindDouble {
			return v, nil
		}
		return Int(v.AsInt()), nil
	case "~":
		return Int(^v.AsInt()), nil
	default:
		return Void(), fmt.Errorf("%w %q", ErrUnknownOperator, op)
	}
}

// Equal reports whether a == b under the operator rules above.
func Equal(a, b Value) bool {
	r, err := Binary("==", a, b)
	return err == nil && r.Bool
}

func intOnly(op string) bool {
	switch op {
	case "&", "|", "^", "<<", ">>":
		return true
	}
	return false
}

func intOp(op string, a, b int32) (Value, error) {
	switch op {
	case "+":
		return Int(a + b), nil
	case "-":
		return Int(a - b), nil
	case "*":
		return Int(a * b), nil
	case "/":
		if b == 0 {
			return Void(), ErrDivisionByZero
		}
		return Int(a / b), nil
	case "%":
		if b == 0 {
			return Void(), ErrDivisionByZero
		}
		return Int(a % b), nil
	case "&":
		return Int(a & b), nil
	case "|":
		return Int(a | b), nil
	case "^":
		return Int(a ^ b), nil
	case "<<":
		return Int(a << (uint32(b) & 31)), nil
	case ">>":
		return Int(a >> (uint32(b) & 31)), nil
	}
	if r, ok := compare(op, cmpInt(a, b)); ok {
		return r, nil
	}
	return Void(), fmt.Errorf("%w %q", ErrUnknownOperator, op)
}

func doubleOp(op string, a, b float64) (Value, error) {
	switch op {
	case "+":
		return Double(a + b), nil
	case "-":
		return Double(a - b), nil
	case "*":
		return Double(a * b), nil
	case "/":
		if b == 0 {
			return Void(), ErrDivisionByZero
		}
		return Double(a / b), nil
	case "%":
		if b == 0 {
			return Void(), ErrDivisionByZero
		}
		return Double(math.Mod(a, b)), nil
	}
	if r, ok := compare(op, cmpFloat(a, b)); ok {
		return r, nil
	}
	return Void(), fmt.Errorf("%w %q", ErrUnknownOperator, op)
}

func stringOp(op string, a, b Value) (Value, error) {
	if op == "+" {
		return String(a.AsString() + b.AsString()), nil
	}
	x, y := a.AsString(), b.AsString()
	c := 0
	switch {
	case x < y:
		c = -1
	case x > y:
		c = 1
	}
	if r, ok := compare(op, c); ok {
		return r, nil
	}
	return Void(), fmt.Errorf("%w %q for String", ErrUnknownOperator, op)
}

func pointerOp(op string, a, b Value) (Value, error) {
	if a.Kind == KindPointer && b.Kind == KindPointer {
		switch op {
		case "==":
			return Bool(sameRef(a.Ptr, b.Ptr)), nil
		case "!=":
			return Bool(!sameRef(a.Ptr, b.Ptr)), nil
		case "-":
			ea, okA := a.Ptr.(*ElemRef)
			eb, okB := b.Ptr.(*ElemRef)
			if okA && okB && ea.Array == eb.Array {
				return Int(int32(ea.Index - eb.Index)), nil
			}
		}
		return Void(), fmt.Errorf("%w: pointer %s pointer", ErrInvalidOperand, op)
	}

	p, n := a, b
	if b.Kind == KindPointer {
		p, n = b, a
	}
	switch op {
	case "==", "!=":
		// Only comparison with 0 (NULL) is meaningful.
		isNull := p.Ptr == nil && n.AsInt() == 0
		return Bool(isNull == (op == "==")), nil
	case "+", "-":
		elem, ok := p.Ptr.(*ElemRef)
		if !ok || (op == "-" && a.Kind != KindPointer) {
			break
		}
		off := int(n.AsInt())
		if op == "-" {
			off = -off
		}
		return Pointer(elem.Offset(off)), nil
	}
	return Void(), fmt.Errorf("%w: pointer %s %s", ErrInvalidOperand, op, n.Kind)
}

func referenceOp(op string, a, b Value) (Value, error) {
	switch op {
	case "==":
		return Bool(sameStorage(a, b)), nil
	case "!=":
		return Bool(!sameStorage(a, b)), nil
	}
	return Void(), fmt.Errorf("%w: %s %s %s", ErrInvalidOperand, a.Kind, op, b.Kind)
}

func sameRef(a, b Ref) bool {
	ea, okA := a.(*ElemRef)
	eb, okB := b.(*ElemRef)
	if okA && okB {
		return ea.Array == eb.Array && ea.Index == eb.Index
	}
	return a == b
}

func sameStorage(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindArray:
		return a.Array == b.Array
	case KindStruct:
		return a.Struct == b.Struct
	case KindObject:
		return a.Object == b.Object
	}
	return false
}

func compare(op string, c int) (Value, bool) {
	switch op {
	case "==":
		return Bool(c == 0), true
	case "!=":
		return Bool(c != 0), true
	case "<":
		return Bool(c < 0), true
	case "<=":
		return Bool(c <= 0), true
	case ">":
		return Bool(c > 0), true
	case ">=":
		return Bool(c >= 0), true
	}
	return Value{}, false
}

func cmpInt(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
