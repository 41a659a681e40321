package command

import "fmt"

// Sink receives commands in emission order. Emit must not call back into the
// interpreter that produced the command.
type Sink interface {
	Emit(Command)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Command)

// Emit calls f(c).
func (f SinkFunc) Emit(c Command) { f(c) }

// Discard drops every command.
var Discard Sink = SinkFunc(func(Command) {})

// Multi fans every command out to each sink in order.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(c Command) {
	for _, s := range m {
		s.Emit(c)
	}
}

// Recorder keeps every command it receives.
type Recorder struct {
	Commands []Command
}

// Emit implements Sink.
func (r *Recorder) Emit(c Command) {
	r.Commands = append(r.Commands, c)
}

// Types lists the recorded command types in order.
func (r *Recorder) Types() []Type {
	out := make([]Type, len(r.Commands))
	for i, c := range r.Commands {
		out[i] = c.Type()
	}
	return out
}

// Filter returns the recorded commands of type t.
func (r *Recorder) Filter(t Type) []Command {
	var out []Command
	for _, c := range r.Commands {
		if c.Type() == t {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many commands of type t were recorded.
func (r *Recorder) Count(t Type) int {
	return len(r.Filter(t))
}

// Last returns the most recent command, or nil.
func (r *Recorder) Last() Command {
	if len(r.Commands) == 0 {
		return nil
	}
	return r.Commands[len(r.Commands)-1]
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.Commands = nil
}

// SinkError reports a failure writing commands to an output.
type SinkError struct {
	Sink      string
	Operation string
	Seq       uint64
	Cause     error
}

func (e SinkError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("sink %s %s failed at command %d", e.Sink, e.Operation, e.Seq)
	}
	return fmt.Sprintf("sink %s %s failed at command %d: %v", e.Sink, e.Operation, e.Seq, e.Cause)
}

func (e SinkError) Unwrap() error { return e.Cause }
