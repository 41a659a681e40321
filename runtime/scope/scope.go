// Package scope is the variable store of the interpreter.
//
// Scopes form a tree rooted at the global scope. Block scopes chain to the
// scope they were entered from; function frames chain straight to the global
// scope, so a callee never sees its caller's locals, and remember the caller
// so Exit can return to it.
package scope

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opal-lang/sketchvm/runtime/value"
)

// Kind tells block scopes from function frames.
type Kind int

const (
	KindGlobal Kind = iota
	KindFrame
	KindBlock
)

// Variable is one named storage cell.
type Variable struct {
	Name  string
	Type  string
	Value value.Value

	Const     bool
	Static    bool
	Reference bool
	Global    bool

	// target is the aliased location of a reference variable.
	target value.Ref
}

// NewVariable creates a variable of the given declared type. Qualifiers in typ
// set the Const and Static flags.
func NewVariable(name, typ string, v value.Value) *Variable {
	ti := value.ParseType(typ)
	return &Variable{Name: name, Type: typ, Value: v, Const: ti.Const, Static: ti.Static}
}

// NewReference creates a variable that aliases target.
func NewReference(name, typ string, target value.Ref) *Variable {
	v := NewVariable(name, typ, value.Void())
	v.Reference = true
	v.target = target
	return v
}

// Load returns the current value, following references.
func (v *Variable) Load() value.Value {
	if v.target != nil {
		return v.target.Load()
	}
	return v.Value
}

// Store writes through references and coerces to the declared type.
func (v *Variable) Store(val value.Value) {
	if v.target != nil {
		v.target.Store(val)
		return
	}
	v.Value = value.Coerce(val.Clone(), v.Type)
}

// Describe implements value.Ref.
func (v *Variable) Describe() string {
	return v.Name
}

// Target returns the aliased location of a reference, or v itself.
func (v *Variable) Target() value.Ref {
	if v.target != nil {
		return v.target
	}
	return v
}

// Scope is one level of the tree.
type Scope struct {
	id     string
	kind   Kind
	vars   map[string]*Variable
	parent *Scope
	caller *Scope
	depth  int
	path   []string
}

// ID returns the scope identifier ("global", "loop.1", ...).
func (s *Scope) ID() string { return s.id }

// Kind returns the scope kind.
func (s *Scope) Kind() Kind { return s.kind }

// Store manages the scope tree and the current position in it.
type Store struct {
	root    *Scope
	current *Scope
	entered int
}

// New creates a store holding only the global scope.
func New() *Store {
	root := newScope("global", KindGlobal, nil, nil)
	return &Store{root: root, current: root}
}

func newScope(id string, kind Kind, parent, caller *Scope) *Scope {
	s := &Scope{id: id, kind: kind, vars: make(map[string]*Variable), parent: parent, caller: caller}
	if caller != nil {
		s.depth = caller.depth + 1
		s.path = append(append([]string(nil), caller.path...), id)
	} else if parent != nil {
		s.depth = parent.depth + 1
		s.path = append(append([]string(nil), parent.path...), id)
	} else {
		s.path = []string{id}
	}
	return s
}

// Enter pushes a block scope under the current one.
func (st *Store) Enter(name string) {
	st.entered++
	st.current = newScope(fmt.Sprintf("%s.%d", name, st.entered), KindBlock, st.current, nil)
}

// EnterFrame pushes a function frame. Lookups from inside it see the frame
// and the global scope only.
func (st *Store) EnterFrame(name string) {
	st.entered++
	st.current = newScope(fmt.Sprintf("%s.%d", name, st.entered), KindFrame, st.root, st.current)
}

// Exit pops the current scope. Leaving a frame returns to its caller.
func (st *Store) Exit() error {
	switch {
	case st.current == st.root:
		return fmt.Errorf("cannot exit global scope")
	case st.current.kind == KindFrame:
		st.current = st.current.caller
	default:
		st.current = st.current.parent
	}
	return nil
}

// Reset drops every scope and every global.
func (st *Store) Reset() {
	st.root = newScope("global", KindGlobal, nil, nil)
	st.current = st.root
	st.entered = 0
}

// Unwind returns to the global scope, keeping globals.
func (st *Store) Unwind() {
	st.current = st.root
}

// Restore makes s the current scope again. A construct suspended mid-way
// keeps its scope and restores it on resume instead of entering a new one.
func (st *Store) Restore(s *Scope) {
	st.current = s
}

// Depth is the number of scopes between the current scope and the global
// scope, counting caller frames.
func (st *Store) Depth() int {
	return st.current.depth
}

// Current returns the current scope.
func (st *Store) Current() *Scope {
	return st.current
}

// Path returns the scope path from the global scope to the current scope.
func (st *Store) Path() []string {
	return st.current.path
}

// Declare adds v to the current scope, replacing any variable of the same
// name there. Outer variables of the same name are shadowed.
func (st *Store) Declare(v *Variable) *Variable {
	v.Global = st.current == st.root
	st.current.vars[v.Name] = v
	return v
}

// DeclareGlobal adds v to the global scope regardless of the current scope.
func (st *Store) DeclareGlobal(v *Variable) *Variable {
	v.Global = true
	st.root.vars[v.Name] = v
	return v
}

// Lookup resolves name from the current scope outwards.
func (st *Store) Lookup(name string) (*Variable, bool) {
	for s := st.current; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// IsDeclared reports whether name resolves from the current scope.
func (st *Store) IsDeclared(name string) bool {
	_, ok := st.Lookup(name)
	return ok
}

// Get returns the value of name.
func (st *Store) Get(name string) (value.Value, error) {
	v, ok := st.Lookup(name)
	if !ok {
		return value.Void(), &UndefinedError{Name: name, Scope: st.current.id}
	}
	return v.Load(), nil
}

// Set assigns to an existing variable.
func (st *Store) Set(name string, val value.Value) error {
	v, ok := st.Lookup(name)
	if !ok {
		return &UndefinedError{Name: name, Scope: st.current.id}
	}
	if v.Const {
		return &ConstError{Name: name}
	}
	v.Store(val)
	return nil
}

// AsMap returns every visible variable with inner scopes shadowing outer ones.
func (st *Store) AsMap() map[string]value.Value {
	result := make(map[string]value.Value)
	for s := st.current; s != nil; s = s.parent {
		for name, v := range s.vars {
			if _, exists := result[name]; !exists {
				result[name] = v.Load()
			}
		}
	}
	return result
}

// DebugPrint renders the visible scope chain, innermost first.
func (st *Store) DebugPrint() string {
	var b strings.Builder
	for s := st.current; s != nil; s = s.parent {
		fmt.Fprintf(&b, "%s (depth=%d)\n", s.id, s.depth)
		names := make([]string, 0, len(s.vars))
		for name := range s.vars {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := s.vars[name]
			flags := ""
			if v.Const {
				flags += " const"
			}
			if v.Static {
				flags += " static"
			}
			if v.Reference {
				flags += " ref"
			}
			fmt.Fprintf(&b, "  %s %s = %s%s\n", v.Type, name, v.Load(), flags)
		}
	}
	return b.String()
}

// UndefinedError is returned when a name does not resolve.
type UndefinedError struct {
	Name  string
	Scope string
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("undefined variable %q (in scope %s)", e.Name, e.Scope)
}

// ConstError is returned when assigning to a const variable.
type ConstError struct {
	Name string
}

func (e *ConstError) Error() string {
	return fmt.Sprintf("cannot assign to const variable %q", e.Name)
}
