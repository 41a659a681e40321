package value

import (
	"strings"
)

// TypeInfo is a parsed C type name.
type TypeInfo struct {
	Base      string // "int", "unsigned long", "String", "Servo"
	Const     bool
	Static    bool
	Pointer   bool
	Reference bool
}

// ParseType splits qualifiers and declarator marks off a type name such as
// "static const unsigned int&".
func ParseType(name string) TypeInfo {
	var ti TypeInfo
	name = strings.TrimSpace(name)
	for strings.HasSuffix(name, "&") || strings.HasSuffix(name, "*") {
		if strings.HasSuffix(name, "&") {
			ti.Reference = true
		} else {
			ti.Pointer = true
		}
		name = strings.TrimSpace(name[:len(name)-1])
	}

	var base []string
	for _, f := range strings.Fields(name) {
		switch f {
		case "const":
			ti.Const = true
		case "static":
			ti.Static = true
		case "volatile", "struct", "register", "inline", "extern", "PROGMEM":
		default:
			base = append(base, f)
		}
	}
	ti.Base = strings.Join(base, " ")
	return ti
}

// IsString reports whether the type holds text: String, char* and const
// char*.
func (ti TypeInfo) IsString() bool {
	return ti.Base == "String" || (ti.Base == "char" && ti.Pointer)
}

// Coerce converts v to the declared type. Unknown types (structs, library
// classes) pass v through. Pointers and references are not coerced.
func Coerce(v Value, typ string) Value {
	ti := ParseType(typ)
	if ti.Reference || (ti.Pointer && !ti.IsString()) {
		return v
	}
	if ti.IsString() {
		if v.Kind == KindString {
			return v
		}
		return String(v.AsString())
	}
	if !v.IsNumeric() && v.Kind != KindString {
		return v
	}

	switch ti.Base {
	case "int", "long", "long int", "signed", "signed int", "int32_t", "long long", "int64_t", "size_t":
		return Int(v.AsInt())
	case "unsigned long", "unsigned long int", "uint32_t", "unsigned long long", "uint64_t":
		return Int(v.AsInt())
	case "short", "short int", "int16_t":
		return Int(int32(int16(v.AsInt())))
	case "unsigned", "unsigned int", "unsigned short", "uint16_t", "word":
		return Int(int32(uint16(v.AsInt())))
	case "byte", "uint8_t", "unsigned char":
		return Int(int32(uint8(v.AsInt())))
	case "int8_t", "signed char":
		return Int(int32(int8(v.AsInt())))
	case "char":
		if v.Kind == KindString {
			if v.Str == "" {
				return Char(0)
			}
			return Char(v.Str[0])
		}
		return Char(byte(v.AsInt()))
	case "bool", "boolean":
		return Bool(v.Truthy())
	case "float", "double":
		return Double(v.AsDouble())
	default:
		return v
	}
}

// Zero returns the default value of a declared scalar type.
func Zero(typ string) Value {
	ti := ParseType(typ)
	switch {
	case ti.IsString():
		return String("")
	case ti.Pointer:
		return Pointer(nil)
	}
	switch ti.Base {
	case "float", "double":
		return Double(0)
	case "bool", "boolean":
		return Bool(false)
	case "char":
		return Char(0)
	case "void", "":
		return Void()
	}
	return Int(0)
}

// IsScalarType reports whether typ names a builtin scalar type.
func IsScalarType(typ string) bool {
	ti := ParseType(typ)
	switch {
	case ti.IsString(), intTypes[ti.Base]:
		return true
	}
	switch ti.Base {
	case "float", "double", "bool", "boolean":
		return true
	}
	return false
}

var intTypes = map[string]bool{
	"int": true, "long": true, "long int": true, "signed": true, "signed int": true,
	"int32_t": true, "long long": true, "int64_t": true, "size_t": true,
	"unsigned long": true, "unsigned long int": true, "uint32_t": true,
	"unsigned long long": true, "uint64_t": true,
	"short": true, "short int": true, "int16_t": true,
	"unsigned": true, "unsigned int": true, "unsigned short": true, "uint16_t": true, "word": true,
	"byte": true, "uint8_t": true, "unsigned char": true,
	"int8_t": true, "signed char": true, "char": true,
}

// SizeOf returns the AVR size in bytes of a scalar type. Anything it does
// not know is an int-sized 2.
func SizeOf(typ string) int32 {
	ti := ParseType(typ)
	if ti.Pointer {
		return 2
	}
	switch ti.Base {
	case "char", "byte", "bool", "boolean", "uint8_t", "int8_t", "unsigned char", "signed char":
		return 1
	case "long", "unsigned long", "int32_t", "uint32_t", "float", "double", "long int", "unsigned long int":
		return 4
	case "long long", "unsigned long long", "int64_t", "uint64_t":
		return 8
	default:
		return 2
	}
}

// ElemRef addresses one array element.
type ElemRef struct {
	Array *Array
	Index int
	Name  string
}

func (r *ElemRef) inRange() bool { return r.Index >= 0 && r.Index < len(r.Array.Elems) }

// Load returns the element, or void when the index is out of range.
func (r *ElemRef) Load() Value {
	if !r.inRange() {
		return Void()
	}
	return r.Array.Elems[r.Index]
}

// Store writes the element; out of range stores are dropped.
func (r *ElemRef) Store(v Value) {
	if r.inRange() {
		r.Array.Elems[r.Index] = Coerce(v, r.Array.ElemType)
	}
}

// Describe implements Ref.
func (r *ElemRef) Describe() string {
	return r.Name + "[" + Int(int32(r.Index)).AsString() + "]"
}

// Offset returns a reference n elements further along the same array.
func (r *ElemRef) Offset(n int) *ElemRef {
	return &ElemRef{Array: r.Array, Index: r.Index + n, Name: r.Name}
}

// FieldRef addresses one struct field.
type FieldRef struct {
	Struct *Struct
	Field  string
	Name   string
}

// Load implements Ref.
func (r *FieldRef) Load() Value { return r.Struct.Fields[r.Field] }

// Store implements Ref.
func (r *FieldRef) Store(v Value) { r.Struct.Fields[r.Field] = v.Clone() }

// Describe implements Ref.
func (r *FieldRef) Describe() string { return r.Name + "." + r.Field }
