package interpreter

import (
	"errors"
	"fmt"

	"github.com/opal-lang/sketchvm/runtime/builtins"
	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/scope"
	"github.com/opal-lang/sketchvm/runtime/value"
)

// ErrorKind classifies runtime errors.
type ErrorKind string

const (
	ErrUndefinedVariable   ErrorKind = "UndefinedVariable"
	ErrUnknownOperator     ErrorKind = "UnknownOperator"
	ErrUnknownFunction     ErrorKind = "UnknownFunction"
	ErrDivisionByZero      ErrorKind = "DivisionByZero"
	ErrUnsupportedAssign   ErrorKind = "UnsupportedAssignment"
	ErrInvalidMemberAccess ErrorKind = "InvalidMemberAccess"
	ErrInvalidArrayAccess  ErrorKind = "InvalidArrayAccess"
	ErrConstAssignment     ErrorKind = "ConstAssignment"
	ErrRecursionLimit      ErrorKind = "RecursionLimit"
	ErrArgumentCount       ErrorKind = "ArgumentCount"
	ErrRequestOutstanding  ErrorKind = "RequestOutstanding"
	ErrBuiltinFailed       ErrorKind = "BuiltinFailed"
)

// RuntimeError is a recoverable fault in the running sketch. It is reported
// as an ERROR command; evaluation continues with a void value.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// fail reports a runtime error.
func (in *Interpreter) fail(kind ErrorKind, format string, args ...any) {
	err := &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
	in.stats.Errors++
	in.unitErrors++
	in.lastErr = err
	in.log.Debug("runtime error", "kind", string(kind), "message", err.Message)
	in.emit(command.Error{Kind: string(kind), Message: err.Message})
}

// failWith classifies err from the value, scope or builtins packages.
func (in *Interpreter) failWith(err error, context string) {
	var undef *scope.UndefinedError
	var constErr *scope.ConstError
	var argErr *builtins.ArgCountError
	switch {
	case errors.Is(err, value.ErrDivisionByZero):
		in.fail(ErrDivisionByZero, "%s: division by zero", context)
	case errors.Is(err, value.ErrUnknownOperator), errors.Is(err, value.ErrInvalidOperand):
		in.fail(ErrUnknownOperator, "%s: %v", context, err)
	case errors.As(err, &undef):
		in.fail(ErrUndefinedVariable, "undefined variable '%s'", undef.Name)
	case errors.As(err, &constErr):
		in.fail(ErrConstAssignment, "cannot assign to const variable '%s'", constErr.Name)
	case errors.As(err, &argErr):
		in.fail(ErrArgumentCount, "%v", err)
	default:
		in.fail(ErrBuiltinFailed, "%s: %v", context, err)
	}
}
