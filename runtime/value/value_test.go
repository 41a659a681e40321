package value_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/sketchvm/runtime/value"
)

func TestBinaryIntArithmetic(t *testing.T) {
	tests := []struct {
		op   string
		a, b int32
		want int32
	}{
		{"+", 2, 3, 5},
		{"-", 2, 3, -1},
		{"*", 6, 7, 42},
		{"/", 7, 2, 3},
		{"/", -7, 2, -3},
		{"%", 7, 3, 1},
		{"%", -7, 3, -1},
		{"&", 0b1100, 0b1010, 0b1000},
		{"|", 0b1100, 0b1010, 0b1110},
		{"^", 0b1100, 0b1010, 0b0110},
		{"<<", 1, 4, 16},
		{">>", -16, 2, -4},
		{"+", math.MaxInt32, 1, math.MinInt32},
	}

	for _, tt := range tests {
		got, err := value.Binary(tt.op, value.Int(tt.a), value.Int(tt.b))
		require.NoError(t, err, "%d %s %d", tt.a, tt.op, tt.b)
		assert.Equal(t, value.Int(tt.want), got, "%d %s %d", tt.a, tt.op, tt.b)
	}
}

func TestBinaryPromotesToDouble(t *testing.T) {
	got, err := value.Binary("/", value.Int(7), value.Double(2))
	require.NoError(t, err)
	assert.Equal(t, value.Double(3.5), got)

	got, err = value.Binary("%", value.Double(7.5), value.Int(2))
	require.NoError(t, err)
	assert.Equal(t, value.Double(1.5), got)

	// Bitwise operators truncate doubles.
	got, err = value.Binary("|", value.Double(4.9), value.Int(1))
	require.NoError(t, err)
	assert.Equal(t, value.Int(5), got)
}

func TestBinaryComparisons(t *testing.T) {
	tests := []struct {
		op   string
		a, b value.Value
		want bool
	}{
		{"<", value.Int(1), value.Int(2), true},
		{">=", value.Int(2), value.Int(2), true},
		{"==", value.Int(1), value.Double(1), true},
		{"!=", value.Bool(true), value.Int(1), false},
		{"==", value.String("abc"), value.String("abc"), true},
		{"<", value.String("abc"), value.String("abd"), true},
		{"==", value.Void(), value.Int(0), true},
	}

	for _, tt := range tests {
		got, err := value.Binary(tt.op, tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, value.Bool(tt.want), got, "%v %s %v", tt.a, tt.op, tt.b)
	}
}

func TestBinaryStringConcatenation(t *testing.T) {
	got, err := value.Binary("+", value.String("t="), value.Int(42))
	require.NoError(t, err)
	assert.Equal(t, value.String("t=42"), got)

	got, err = value.Binary("+", value.Double(1.5), value.String("V"))
	require.NoError(t, err)
	assert.Equal(t, value.String("1.50V"), got)

	got, err = value.Binary("+", value.String("x"), value.Char('y'))
	require.NoError(t, err)
	assert.Equal(t, value.String("xy"), got)

	_, err = value.Binary("*", value.String("x"), value.Int(2))
	assert.ErrorIs(t, err, value.ErrUnknownOperator)
}

func TestBinaryDivisionByZero(t *testing.T) {
	for _, op := range []string{"/", "%"} {
		got, err := value.Binary(op, value.Int(1), value.Int(0))
		assert.ErrorIs(t, err, value.ErrDivisionByZero, op)
		assert.True(t, got.IsVoid())

		_, err = value.Binary(op, value.Double(1), value.Double(0))
		assert.ErrorIs(t, err, value.ErrDivisionByZero, op)
	}
}

func TestBinaryUnknownOperator(t *testing.T) {
	_, err := value.Binary("**", value.Int(2), value.Int(3))
	assert.ErrorIs(t, err, value.ErrUnknownOperator)
}

func TestBinaryLogical(t *testing.T) {
	got, err := value.Binary("&&", value.Int(3), value.String(""))
	require.NoError(t, err)
	assert.Equal(t, value.Bool(false), got)

	got, err = value.Binary("||", value.Void(), value.Double(0.1))
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), got)
}

func TestPointerArithmetic(t *testing.T) {
	arr := value.ArrayOf("int", value.Int(10), value.Int(20), value.Int(30))
	p := value.Pointer(&value.ElemRef{Array: arr.Array, Index: 0, Name: "arr"})

	q, err := value.Binary("+", p, value.Int(2))
	require.NoError(t, err)
	require.Equal(t, value.KindPointer, q.Kind)
	assert.Equal(t, value.Int(30), q.Ptr.Load())
	assert.Equal(t, "&arr[2]", q.AsString())

	diff, err := value.Binary("-", q, p)
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), diff)

	same, err := value.Binary("==", p, value.Pointer(&value.ElemRef{Array: arr.Array, Index: 0}))
	require.NoError(t, err)
	assert.True(t, same.Bool)

	isNull, err := value.Binary("==", value.Pointer(nil), value.Int(0))
	require.NoError(t, err)
	assert.True(t, isNull.Bool)

	q.Ptr.Store(value.Double(99.7))
	assert.Equal(t, value.Int(99), arr.Array.Elems[2], "stores coerce to the element type")

	out := &value.ElemRef{Array: arr.Array, Index: 5}
	assert.True(t, out.Load().IsVoid())
	out.Store(value.Int(1))
	assert.Len(t, arr.Array.Elems, 3)
}

func TestUnary(t *testing.T) {
	got, err := value.Unary("-", value.Double(2.5))
	require.NoError(t, err)
	assert.Equal(t, value.Double(-2.5), got)

	got, err = value.Unary("!", value.Int(0))
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), got)

	got, err = value.Unary("~", value.Int(0))
	require.NoError(t, err)
	assert.Equal(t, value.Int(-1), got)

	_, err = value.Unary("?", value.Int(0))
	assert.ErrorIs(t, err, value.ErrUnknownOperator)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		typ  string
		in   value.Value
		want value.Value
	}{
		{"int", value.Double(3.9), value.Int(3)},
		{"const int", value.Double(-3.9), value.Int(-3)},
		{"byte", value.Int(300), value.Int(44)},
		{"uint8_t", value.Int(-1), value.Int(255)},
		{"unsigned int", value.Int(-1), value.Int(65535)},
		{"short", value.Int(40000), value.Int(-25536)},
		{"unsigned long", value.Int(7), value.Int(7)},
		{"float", value.Int(2), value.Double(2)},
		{"bool", value.Int(5), value.Bool(true)},
		{"boolean", value.Int(0), value.Bool(false)},
		{"char", value.Int(65), value.Char('A')},
		{"char", value.String("hi"), value.Char('h')},
		{"String", value.Int(12), value.String("12")},
		{"const char*", value.String("x"), value.String("x")},
		{"int", value.String("42abc"), value.Int(42)},
		{"Servo", value.Int(1), value.Int(1)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, value.Coerce(tt.in, tt.typ), "Coerce(%v, %q)", tt.in, tt.typ)
	}
}

func TestParseType(t *testing.T) {
	ti := value.ParseType("static const unsigned long&")
	assert.Equal(t, value.TypeInfo{Base: "unsigned long", Const: true, Static: true, Reference: true}, ti)

	ti = value.ParseType("const char *")
	assert.True(t, ti.Pointer)
	assert.True(t, ti.IsString())
}

func TestZeroAndSizeOf(t *testing.T) {
	assert.Equal(t, value.Int(0), value.Zero("int"))
	assert.Equal(t, value.Double(0), value.Zero("float"))
	assert.Equal(t, value.String(""), value.Zero("String"))
	assert.Equal(t, value.Bool(false), value.Zero("bool"))
	assert.Equal(t, value.KindPointer, value.Zero("int*").Kind)

	assert.Equal(t, int32(2), value.SizeOf("int"))
	assert.Equal(t, int32(4), value.SizeOf("unsigned long"))
	assert.Equal(t, int32(1), value.SizeOf("byte"))
	assert.True(t, value.IsScalarType("unsigned long"))
	assert.False(t, value.IsScalarType("Servo"))
}

func TestAsStringAndNative(t *testing.T) {
	assert.Equal(t, "3.14", value.Double(3.14159).AsString())
	assert.Equal(t, "1", value.Bool(true).AsString())
	assert.Equal(t, "A", value.Char('A').AsString())
	assert.Equal(t, "{1, 2}", value.ArrayOf("int", value.Int(1), value.Int(2)).AsString())

	assert.Equal(t, int32(5), value.Int(5).Native())
	assert.Nil(t, value.Void().Native())
	assert.Equal(t, []any{int32(1), "a"}, value.ArrayOf("", value.Int(1), value.String("a")).Native())
}

func TestFromNative(t *testing.T) {
	assert.Equal(t, value.Int(512), value.FromNative(512))
	assert.Equal(t, value.Int(1), value.FromNative(float64(1)))
	assert.Equal(t, value.Double(0.5), value.FromNative(0.5))
	assert.Equal(t, value.Bool(true), value.FromNative(true))
	assert.Equal(t, value.String("abc"), value.FromNative("abc"))
	assert.True(t, value.FromNative(struct{}{}).IsVoid())
}

func TestStructCloneIsDeep(t *testing.T) {
	a := value.NewStruct("Point", []string{"x", "y"})
	a.Struct.Fields["x"] = value.Int(1)

	b := a.Clone()
	b.Struct.Fields["x"] = value.Int(2)

	assert.Equal(t, value.Int(1), a.Struct.Fields["x"])
	assert.Equal(t, "Point{x: 2, y: }", b.AsString())

	ref := &value.FieldRef{Struct: a.Struct, Field: "y", Name: "a"}
	ref.Store(value.Int(7))
	assert.Equal(t, value.Int(7), a.Struct.Fields["y"])
	assert.Equal(t, "a.y", ref.Describe())
}

func TestTruthy(t *testing.T) {
	assert.False(t, value.Void().Truthy())
	assert.True(t, value.Double(0.1).Truthy())
	assert.False(t, value.String("").Truthy())
	assert.True(t, value.NewArray("int", 0).Truthy())
	assert.False(t, value.Pointer(nil).Truthy())
}
