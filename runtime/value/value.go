// Package value is the dynamic value model of the interpreter.
//
// Scalars (void, bool, int, double, string) are copied by value. Arrays and
// library objects are references: copying a Value that holds one shares the
// underlying storage, as arrays do in C. Structs are copied with Clone on
// assignment.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the active member of a Value.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindArray
	KindStruct
	KindPointer
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "String"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindPointer:
		return "pointer"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a tagged union. The zero Value is void, the neutral result of a
// failed evaluation.
type Value struct {
	Kind   Kind
	Bool   bool
	Int    int32
	Double float64
	Str    string

	// Char marks an int that came from a character literal or a char
	// variable; printing renders it as a character.
	Char bool

	Array  *Array
	Struct *Struct
	Ptr    Ref
	Object *Object
}

// Array is shared storage for array values.
type Array struct {
	ElemType string
	Elems    []Value
}

// Struct is an instance of a user struct type. Fields keep declaration order.
type Struct struct {
	Type   string
	Names  []string
	Fields map[string]Value
}

// Object is an instance of a library class such as Servo.
type Object struct {
	Class string
	Name  string
	State map[string]Value
}

// Ref is an addressable location. Pointers hold one.
type Ref interface {
	Load() Value
	Store(Value)
	// Describe names the location for display ("x", "arr[2]").
	Describe() string
}

// Void returns the neutral value.
func Void() Value { return Value{} }

// Bool returns a bool value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Int returns an int value.
func Int(i int32) Value { return Value{Kind: KindInt, Int: i} }

// Char returns an int value that prints as a character.
func Char(c byte) Value { return Value{Kind: KindInt, Int: int32(c), Char: true} }

// Double returns a floating point value.
func Double(f float64) Value { return Value{Kind: KindDouble, Double: f} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// NewArray returns an array of n void elements.
func NewArray(elemType string, n int) Value {
	return Value{Kind: KindArray, Array: &Array{ElemType: elemType, Elems: make([]Value, n)}}
}

// ArrayOf wraps existing elements.
func ArrayOf(elemType string, elems ...Value) Value {
	return Value{Kind: KindArray, Array: &Array{ElemType: elemType, Elems: elems}}
}

// NewStruct returns a struct instance with the given fields set to void.
func NewStruct(typ string, names []string) Value {
	s := &Struct{Type: typ, Names: append([]string(nil), names...), Fields: make(map[string]Value, len(names))}
	for _, n := range names {
		s.Fields[n] = Void()
	}
	return Value{Kind: KindStruct, Struct: s}
}

// Pointer returns a pointer to ref.
func Pointer(ref Ref) Value { return Value{Kind: KindPointer, Ptr: ref} }

// NewObject returns an instance of a library class.
func NewObject(class, name string) Value {
	return Value{Kind: KindObject, Object: &Object{Class: class, Name: name, State: map[string]Value{}}}
}

// IsVoid reports whether v is the neutral value.
func (v Value) IsVoid() bool { return v.Kind == KindVoid }

// IsNumeric reports whether v takes part in arithmetic directly.
func (v Value) IsNumeric() bool {
	return v.Kind == KindVoid || v.Kind == KindBool || v.Kind == KindInt || v.Kind == KindDouble
}

// Truthy converts v to a condition result.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindDouble:
		return v.Double != 0
	case KindString:
		return v.Str != ""
	case KindPointer:
		return v.Ptr != nil
	case KindArray, KindStruct, KindObject:
		return true
	default:
		return false
	}
}

// AsInt converts v to an int, truncating doubles toward zero and parsing
// leading digits of strings.
func (v Value) AsInt() int32 {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return 1
		}
		return 0
	case KindInt:
		return v.Int
	case KindDouble:
		return truncate(v.Double)
	case KindString:
		return parseLeadingInt(v.Str)
	default:
		return 0
	}
}

// AsDouble converts v to a double.
func (v Value) AsDouble() float64 {
	switch v.Kind {
	case KindDouble:
		return v.Double
	case KindString:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		return f
	default:
		return float64(v.AsInt())
	}
}

// AsString renders v the way String concatenation does.
func (v Value) AsString() string {
	switch v.Kind {
	case KindVoid:
		return ""
	case KindBool:
		if v.Bool {
			return "1"
		}
		return "0"
	case KindInt:
		if v.Char {
			return string(rune(byte(v.Int)))
		}
		return strconv.FormatInt(int64(v.Int), 10)
	case KindDouble:
		return strconv.FormatFloat(v.Double, 'f', 2, 64)
	case KindString:
		return v.Str
	case KindArray:
		parts := make([]string, len(v.Array.Elems))
		for i, e := range v.Array.Elems {
			parts[i] = e.AsString()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindStruct:
		parts := make([]string, len(v.Struct.Names))
		for i, n := range v.Struct.Names {
			parts[i] = n + ": " + v.Struct.Fields[n].AsString()
		}
		return v.Struct.Type + "{" + strings.Join(parts, ", ") + "}"
	case KindPointer:
		if v.Ptr == nil {
			return "NULL"
		}
		return "&" + v.Ptr.Describe()
	case KindObject:
		return v.Object.Class + " " + v.Object.Name
	default:
		return ""
	}
}

func (v Value) String() string {
	if v.Kind == KindString {
		return strconv.Quote(v.Str)
	}
	if v.Kind == KindVoid {
		return "void"
	}
	return v.AsString()
}

// Native converts v to a plain Go value for command payloads.
func (v Value) Native() any {
	switch v.Kind {
	case KindVoid:
		return nil
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindDouble:
		return v.Double
	case KindString:
		return v.Str
	case KindArray:
		out := make([]any, len(v.Array.Elems))
		for i, e := range v.Array.Elems {
			out[i] = e.Native()
		}
		return out
	case KindStruct:
		out := make(map[string]any, len(v.Struct.Fields))
		for k, f := range v.Struct.Fields {
			out[k] = f.Native()
		}
		return out
	default:
		return v.AsString()
	}
}

// Clone copies struct storage so assignment has value semantics. Arrays and
// objects stay shared.
func (v Value) Clone() Value {
	if v.Kind != KindStruct || v.Struct == nil {
		return v
	}
	s := &Struct{Type: v.Struct.Type, Names: v.Struct.Names, Fields: make(map[string]Value, len(v.Struct.Fields))}
	for k, f := range v.Struct.Fields {
		s.Fields[k] = f.Clone()
	}
	return Value{Kind: KindStruct, Struct: s}
}

// FromNative converts a delivered response to a Value: ints, floats, bools
// and strings map to their kinds, anything else becomes void.
func FromNative(x any) Value {
	switch t := x.(type) {
	case Value:
		return t
	case bool:
		return Bool(t)
	case int:
		return Int(int32(t))
	case int32:
		return Int(t)
	case int64:
		return Int(int32(t))
	case uint8:
		return Int(int32(t))
	case uint16:
		return Int(int32(t))
	case uint32:
		return Int(int32(t))
	case uint64:
		return Int(int32(t))
	case float32:
		return Double(float64(t))
	case float64:
		if t == float64(int32(t)) {
			return Int(int32(t))
		}
		return Double(t)
	case string:
		return String(t)
	default:
		return Void()
	}
}

func truncate(f float64) int32 {
	switch {
	case f != f:
		return 0
	case f >= 2147483647:
		return 2147483647
	case f <= -2147483648:
		return -2147483648
	default:
		return int32(f)
	}
}

func parseLeadingInt(s string) int32 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return int32(n)
}
