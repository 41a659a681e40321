package invariant_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/opal-lang/sketchvm/core/invariant"
)

// expectPanic runs fn and returns the recovered panic message
func expectPanic(t *testing.T, fn func()) (msg string) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic, got none")
		}
		msg = fmt.Sprintf("%v", r)
	}()
	fn()
	return ""
}

func TestPreconditionPass(t *testing.T) {
	invariant.Precondition(true, "this should pass")
	invariant.Precondition(len("ASTP") == 4, "magic is four bytes")
}

func TestPreconditionFail(t *testing.T) {
	msg := expectPanic(t, func() {
		invariant.Precondition(false, "buffer must not be empty")
	})
	if !strings.Contains(msg, "PRECONDITION VIOLATION") {
		t.Errorf("expected PRECONDITION VIOLATION, got: %s", msg)
	}
	if !strings.Contains(msg, "buffer must not be empty") {
		t.Errorf("expected custom message, got: %s", msg)
	}
	if !strings.Contains(msg, "at ") {
		t.Errorf("expected caller location, got: %s", msg)
	}
}

func TestPostconditionFail(t *testing.T) {
	msg := expectPanic(t, func() {
		invariant.Postcondition(false, "node count %d must be positive", 0)
	})
	if !strings.Contains(msg, "POSTCONDITION VIOLATION: node count 0 must be positive") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestInvariantFail(t *testing.T) {
	msg := expectPanic(t, func() {
		invariant.Invariant(false, "resume path out of order")
	})
	if !strings.Contains(msg, "INVARIANT VIOLATION") {
		t.Errorf("expected INVARIANT VIOLATION, got: %s", msg)
	}
}

func TestNotNil(t *testing.T) {
	type node struct{}
	invariant.NotNil(&node{}, "node")

	var typedNil *node
	msg := expectPanic(t, func() {
		invariant.NotNil(typedNil, "root")
	})
	if !strings.Contains(msg, "root must not be nil") {
		t.Errorf("unexpected message: %s", msg)
	}

	expectPanic(t, func() {
		invariant.NotNil(nil, "sink")
	})
}

func TestInRange(t *testing.T) {
	invariant.InRange(3, 0, 3, "index")

	msg := expectPanic(t, func() {
		invariant.InRange(4, 0, 3, "index")
	})
	if !strings.Contains(msg, "index must be in range [0, 3], got 4") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestExpectNoError(t *testing.T) {
	invariant.ExpectNoError(nil, "buffer write")

	msg := expectPanic(t, func() {
		invariant.ExpectNoError(errors.New("disk full"), "buffer write")
	})
	if !strings.Contains(msg, "buffer write must not fail: disk full") {
		t.Errorf("unexpected message: %s", msg)
	}
}
