package scope

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/sketchvm/runtime/value"
)

func TestStoreBasics(t *testing.T) {
	st := New()
	st.Declare(NewVariable("led", "int", value.Int(13)))

	got, err := st.Get("led")
	require.NoError(t, err)
	assert.Equal(t, value.Int(13), got)

	v, ok := st.Lookup("led")
	require.True(t, ok)
	assert.True(t, v.Global)
	assert.Equal(t, 0, st.Depth())
}

func TestStoreTraversal(t *testing.T) {
	st := New()
	st.Declare(NewVariable("count", "int", value.Int(1)))

	st.Enter("block")
	require.NoError(t, st.Set("count", value.Int(2)))
	st.Declare(NewVariable("tmp", "int", value.Int(9)))
	assert.Equal(t, 1, st.Depth())
	require.NoError(t, st.Exit())

	got, err := st.Get("count")
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), got, "outer variable updated from inner scope")

	_, err = st.Get("tmp")
	var undef *UndefinedError
	assert.True(t, errors.As(err, &undef), "inner declaration invisible after exit")
	assert.False(t, st.IsDeclared("tmp"))
}

func TestStoreShadowing(t *testing.T) {
	st := New()
	st.Declare(NewVariable("x", "int", value.Int(1)))
	st.Enter("block")
	st.Declare(NewVariable("x", "int", value.Int(2)))

	got, _ := st.Get("x")
	assert.Equal(t, value.Int(2), got)
	assert.Equal(t, value.Int(2), st.AsMap()["x"])

	require.NoError(t, st.Exit())
	got, _ = st.Get("x")
	assert.Equal(t, value.Int(1), got)
}

func TestStoreFrameIsolation(t *testing.T) {
	st := New()
	st.Declare(NewVariable("g", "int", value.Int(1)))

	st.EnterFrame("loop")
	st.Declare(NewVariable("local", "int", value.Int(5)))

	st.EnterFrame("helper")
	assert.True(t, st.IsDeclared("g"), "globals visible from a frame")
	assert.False(t, st.IsDeclared("local"), "caller locals invisible from callee")
	assert.Equal(t, 2, st.Depth())

	require.NoError(t, st.Exit())
	assert.True(t, st.IsDeclared("local"), "exit returns to the caller frame")
	assert.Equal(t, []string{"global", "loop.1"}, st.Path())
}

func TestStoreExitGlobal(t *testing.T) {
	st := New()
	assert.Error(t, st.Exit())
}

func TestStoreConst(t *testing.T) {
	st := New()
	st.Declare(NewVariable("LIMIT", "const int", value.Int(10)))

	err := st.Set("LIMIT", value.Int(11))
	var ce *ConstError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "LIMIT", ce.Name)

	got, _ := st.Get("LIMIT")
	assert.Equal(t, value.Int(10), got)
}

func TestStoreCoercesOnSet(t *testing.T) {
	st := New()
	st.Declare(NewVariable("b", "byte", value.Int(0)))
	require.NoError(t, st.Set("b", value.Int(257)))

	got, _ := st.Get("b")
	assert.Equal(t, value.Int(1), got)
}

func TestReferenceAliasesTarget(t *testing.T) {
	st := New()
	x := st.Declare(NewVariable("x", "int", value.Int(1)))
	st.EnterFrame("f")
	st.Declare(NewReference("r", "int&", x))

	require.NoError(t, st.Set("r", value.Int(42)))
	assert.Equal(t, value.Int(42), x.Load())

	r, _ := st.Lookup("r")
	assert.True(t, r.Reference)
	assert.Same(t, x, r.Target())
}

func TestUnwindKeepsGlobals(t *testing.T) {
	st := New()
	st.Declare(NewVariable("g", "int", value.Int(3)))
	st.EnterFrame("loop")
	st.Enter("block")

	st.Unwind()
	assert.Equal(t, 0, st.Depth())
	assert.True(t, st.IsDeclared("g"))

	st.Reset()
	assert.False(t, st.IsDeclared("g"))
}

func TestRestoreResumesSuspendedScopes(t *testing.T) {
	st := New()
	st.EnterFrame("loop")
	frame := st.Current()
	st.Declare(NewVariable("n", "int", value.Int(4)))
	st.Enter("while")
	block := st.Current()
	st.Declare(NewVariable("i", "int", value.Int(1)))

	st.Unwind()
	assert.False(t, st.IsDeclared("n"))

	st.Restore(frame)
	st.Restore(block)
	got, err := st.Get("i")
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), got)
	assert.True(t, st.IsDeclared("n"))

	require.NoError(t, st.Exit())
	assert.Same(t, frame, st.Current())
	require.NoError(t, st.Exit())
	assert.Equal(t, 0, st.Depth())
}

func TestDebugPrint(t *testing.T) {
	st := New()
	st.Declare(NewVariable("g", "static const int", value.Int(3)))
	st.Enter("block")
	st.Declare(NewVariable("s", "String", value.String("hi")))

	out := st.DebugPrint()
	assert.True(t, strings.HasPrefix(out, "block.1 (depth=1)\n"), out)
	assert.Contains(t, out, `String s = "hi"`)
	assert.Contains(t, out, "static const int g = 3 const static")
}
