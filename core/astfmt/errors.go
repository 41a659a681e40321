package astfmt

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Every error returned by Decode matches exactly one.
var (
	ErrFormat      = errors.New("astfmt: format error")
	ErrCorruptData = errors.New("astfmt: corrupt data")
)

// FormatError reports a buffer that is not in this format at all: wrong magic
// or a version newer than Version.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "format error: " + e.Reason
}

// Is makes errors.Is(err, ErrFormat) work.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// CorruptDataError reports a buffer in this format whose contents are
// inconsistent. Offset is the byte offset where decoding stopped; Node is the
// node index involved, or -1.
type CorruptDataError struct {
	Offset int
	Node   int
	Reason string
}

func (e *CorruptDataError) Error() string {
	if e.Node >= 0 {
		return fmt.Sprintf("corrupt data at offset %d (node %d): %s", e.Offset, e.Node, e.Reason)
	}
	return fmt.Sprintf("corrupt data at offset %d: %s", e.Offset, e.Reason)
}

// Is makes errors.Is(err, ErrCorruptData) work.
func (e *CorruptDataError) Is(target error) bool {
	return target == ErrCorruptData
}

func formatErr(format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

func corrupt(offset, node int, format string, args ...any) error {
	return &CorruptDataError{Offset: offset, Node: node, Reason: fmt.Sprintf(format, args...)}
}
