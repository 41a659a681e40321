// Package builtins is the registry of functions a sketch can call without
// defining them: hardware access, serial I/O, math helpers, String methods
// and library classes.
//
// A builtin is either synchronous (it computes a value and emits commands in
// the same call) or asynchronous (it produces a request command and its value
// arrives later as a delivered response).
package builtins

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/value"
)

// Context is the interpreter as a builtin sees it.
type Context interface {
	Emit(command.Command)
	Rand() *rand.Rand
}

// Call is one builtin invocation.
type Call struct {
	Name string // registry key: "digitalWrite", "Serial.println", "String.length"

	// Receiver is the object or string a method was called on; void for
	// free functions.
	Receiver value.Value
	Args     []value.Value
}

// Arg returns argument i, or void when it was not passed.
func (c Call) Arg(i int) value.Value {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return value.Void()
}

// Object returns the receiver's instance name ("Serial1", "myServo"), or
// fallback for free functions.
func (c Call) Object(fallback string) string {
	if c.Receiver.Kind == value.KindObject {
		return c.Receiver.Object.Name
	}
	return fallback
}

// Kind tells synchronous builtins from suspending ones.
type Kind int

const (
	KindSync Kind = iota
	KindAsync
)

func (k Kind) String() string {
	if k == KindAsync {
		return "async"
	}
	return "sync"
}

// Writeback says where a builtin's result is also stored.
type Writeback int

const (
	WritebackNone     Writeback = iota
	WritebackFirstArg           // bitSet(x, n) updates x
	WritebackReceiver           // s.toUpperCase() updates s
)

// SyncFunc computes a synchronous builtin.
type SyncFunc func(ctx Context, call Call) (value.Value, error)

// RequestFunc builds the request command of an asynchronous builtin.
type RequestFunc func(id string, call Call) command.Request

// ResultFunc converts a delivered response into the call's value.
type ResultFunc func(call Call, response value.Value) value.Value

// Entry is a registered builtin.
type Entry struct {
	Name    string
	Kind    Kind
	MinArgs int
	MaxArgs int // -1 for no limit

	Sync      SyncFunc
	Request   RequestFunc
	Result    ResultFunc
	Writeback Writeback
}

// CheckArgs reports a wrong argument count.
func (e Entry) CheckArgs(n int) error {
	if n < e.MinArgs || (e.MaxArgs >= 0 && n > e.MaxArgs) {
		return &ArgCountError{Name: e.Name, Got: n, Min: e.MinArgs, Max: e.MaxArgs}
	}
	return nil
}

// Convert applies the entry's ResultFunc, if any.
func (e Entry) Convert(call Call, response value.Value) value.Value {
	if e.Result == nil {
		return response
	}
	return e.Result(call, response)
}

// ArgCountError is returned for calls with too few or too many arguments.
type ArgCountError struct {
	Name     string
	Got      int
	Min, Max int
}

func (e *ArgCountError) Error() string {
	switch {
	case e.Max < 0:
		return fmt.Sprintf("%s expects at least %d arguments, got %d", e.Name, e.Min, e.Got)
	case e.Min == e.Max:
		return fmt.Sprintf("%s expects %d arguments, got %d", e.Name, e.Min, e.Got)
	default:
		return fmt.Sprintf("%s expects %d to %d arguments, got %d", e.Name, e.Min, e.Max, e.Got)
	}
}

// Library describes a library class such as Servo. Methods emit
// LIBRARY_METHOD_CALL; DataMethods suspend on LIBRARY_METHOD_REQUEST.
type Library struct {
	Name        string
	Methods     []string
	DataMethods []string
	Constants   map[string]value.Value
}

// Registry holds builtins, named constants and library classes.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	constants map[string]value.Value
	libraries map[string]Library
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:   make(map[string]Entry),
		constants: make(map[string]value.Value),
		libraries: make(map[string]Library),
	}
}

// Register adds or replaces a builtin.
func (r *Registry) Register(e Entry) error {
	switch {
	case e.Name == "":
		return fmt.Errorf("builtin name must not be empty")
	case e.Kind == KindSync && e.Sync == nil:
		return fmt.Errorf("builtin %q: sync entry without a function", e.Name)
	case e.Kind == KindAsync && e.Request == nil:
		return fmt.Errorf("builtin %q: async entry without a request constructor", e.Name)
	case e.MaxArgs >= 0 && e.MaxArgs < e.MinArgs:
		return fmt.Errorf("builtin %q: max args %d below min args %d", e.Name, e.MaxArgs, e.MinArgs)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Name] = e
	return nil
}

// Lookup retrieves a builtin by name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return e, ok
}

// IsRegistered checks if a builtin name is registered.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[name]
	return ok
}

// Names returns every builtin name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Export returns all entries sorted by name (for tooling/docs).
func (r *Registry) Export() []Entry {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(names))
	for i, name := range names {
		out[i] = r.entries[name]
	}
	return out
}

// DefineConstant binds a named constant (HIGH, A0, Serial).
func (r *Registry) DefineConstant(name string, v value.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constants[name] = v
}

// Constant looks up a named constant.
func (r *Registry) Constant(name string) (value.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.constants[name]
	return v, ok
}

// RegisterLibrary registers a library class: one entry per method under
// "Class.method", plus the class constants.
func (r *Registry) RegisterLibrary(lib Library) error {
	if lib.Name == "" {
		return fmt.Errorf("library name must not be empty")
	}
	for _, m := range lib.Methods {
		if err := r.Register(libraryCall(lib.Name, m)); err != nil {
			return err
		}
	}
	for _, m := range lib.DataMethods {
		if err := r.Register(libraryRequest(lib.Name, m)); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.libraries[lib.Name] = lib
	for name, v := range lib.Constants {
		r.constants[name] = v
	}
	return nil
}

// Library returns a registered library class.
func (r *Registry) Library(class string) (Library, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lib, ok := r.libraries[class]
	return lib, ok
}

// IsClass reports whether typ names a registered library class.
func (r *Registry) IsClass(typ string) bool {
	_, ok := r.Library(typ)
	return ok
}

// Suggest returns the closest builtin or extra name to an unknown name, or
// "" when nothing is close.
func (r *Registry) Suggest(name string, extra ...string) string {
	candidates := append(r.Names(), extra...)
	if len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

func libraryCall(class, method string) Entry {
	return Entry{
		Name:    class + "." + method,
		Kind:    KindSync,
		MaxArgs: -1,
		Sync: func(ctx Context, call Call) (value.Value, error) {
			ctx.Emit(command.LibraryMethodCall{
				Library: class,
				Object:  call.Object(class),
				Method:  method,
				Args:    natives(call.Args),
			})
			return value.Void(), nil
		},
	}
}

func libraryRequest(class, method string) Entry {
	return Entry{
		Name:    class + "." + method,
		Kind:    KindAsync,
		MaxArgs: -1,
		Request: func(id string, call Call) command.Request {
			return command.LibraryMethodRequest{
				Library: class,
				Object:  call.Object(class),
				Method:  method,
				Args:    natives(call.Args),
				ID:      id,
			}
		},
	}
}

func natives(args []value.Value) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a.Native()
	}
	return out
}
