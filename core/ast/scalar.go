package ast

import (
	"fmt"
	"strconv"
)

// Tag identifies the type of a node's scalar payload. Values are the wire bytes.
type Tag uint8

const (
	TagVoid    Tag = 0x00
	TagBool    Tag = 0x01
	TagInt8    Tag = 0x02
	TagUint8   Tag = 0x03
	TagInt16   Tag = 0x04
	TagUint16  Tag = 0x05
	TagInt32   Tag = 0x06
	TagUint32  Tag = 0x07
	TagInt64   Tag = 0x08
	TagUint64  Tag = 0x09
	TagFloat32 Tag = 0x0A
	TagFloat64 Tag = 0x0B
	TagString  Tag = 0x0C
)

// Width returns the number of payload bytes that follow the tag byte on the wire.
// ok is false for unknown tags.
func (t Tag) Width() (n int, ok bool) {
	switch t {
	case TagVoid:
		return 0, true
	case TagBool, TagInt8, TagUint8:
		return 1, true
	case TagInt16, TagUint16, TagString:
		return 2, true
	case TagInt32, TagUint32, TagFloat32:
		return 4, true
	case TagInt64, TagUint64, TagFloat64:
		return 8, true
	default:
		return 0, false
	}
}

func (t Tag) String() string {
	switch t {
	case TagVoid:
		return "void"
	case TagBool:
		return "bool"
	case TagInt8:
		return "int8"
	case TagUint8:
		return "uint8"
	case TagInt16:
		return "int16"
	case TagUint16:
		return "uint16"
	case TagInt32:
		return "int32"
	case TagUint32:
		return "uint32"
	case TagInt64:
		return "int64"
	case TagUint64:
		return "uint64"
	case TagFloat32:
		return "float32"
	case TagFloat64:
		return "float64"
	case TagString:
		return "string"
	default:
		return fmt.Sprintf("Tag(0x%02x)", uint8(t))
	}
}

// Scalar is a node's typed payload. Only the field matching Tag is meaningful:
// Int for bool and signed tags, Uint for unsigned tags, Float for float tags and
// Str for strings. A node without a value carries the zero Scalar with Present
// false.
type Scalar struct {
	Present bool
	Tag     Tag
	Int     int64
	Uint    uint64
	Float   float64
	Str     string
}

// Str returns a string payload.
func Str(s string) Scalar { return Scalar{Present: true, Tag: TagString, Str: s} }

// Int32 returns a signed 32-bit payload.
func Int32(v int32) Scalar { return Scalar{Present: true, Tag: TagInt32, Int: int64(v)} }

// Uint32 returns an unsigned 32-bit payload.
func Uint32(v uint32) Scalar { return Scalar{Present: true, Tag: TagUint32, Uint: uint64(v)} }

// Float64 returns a double payload.
func Float64(v float64) Scalar { return Scalar{Present: true, Tag: TagFloat64, Float: v} }

// Bool returns a bool payload.
func Bool(v bool) Scalar {
	s := Scalar{Present: true, Tag: TagBool}
	if v {
		s.Int = 1
	}
	return s
}

// IsFloat reports whether the payload is a float32 or float64.
func (s Scalar) IsFloat() bool { return s.Tag == TagFloat32 || s.Tag == TagFloat64 }

// IsUnsigned reports whether the payload is one of the unsigned integer tags.
func (s Scalar) IsUnsigned() bool {
	return s.Tag == TagUint8 || s.Tag == TagUint16 || s.Tag == TagUint32 || s.Tag == TagUint64
}

// AsInt64 converts any numeric payload to int64, truncating floats.
func (s Scalar) AsInt64() int64 {
	switch {
	case s.IsFloat():
		return int64(s.Float)
	case s.IsUnsigned():
		return int64(s.Uint)
	case s.Tag == TagString:
		n, _ := strconv.ParseInt(s.Str, 0, 64)
		return n
	default:
		return s.Int
	}
}

// AsFloat64 converts any numeric payload to float64.
func (s Scalar) AsFloat64() float64 {
	switch {
	case s.IsFloat():
		return s.Float
	case s.IsUnsigned():
		return float64(s.Uint)
	case s.Tag == TagString:
		f, _ := strconv.ParseFloat(s.Str, 64)
		return f
	default:
		return float64(s.Int)
	}
}

func (s Scalar) String() string {
	if !s.Present {
		return "<none>"
	}
	switch {
	case s.Tag == TagVoid:
		return "void"
	case s.Tag == TagBool:
		return strconv.FormatBool(s.Int != 0)
	case s.Tag == TagString:
		return strconv.Quote(s.Str)
	case s.IsFloat():
		return strconv.FormatFloat(s.Float, 'g', -1, 64)
	case s.IsUnsigned():
		return strconv.FormatUint(s.Uint, 10)
	default:
		return strconv.FormatInt(s.Int, 10)
	}
}
